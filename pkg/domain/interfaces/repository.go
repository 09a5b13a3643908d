package interfaces

// Repository defines the interface for data persistence
type Repository interface {
	Entity() EntityRepository
	Alias() AliasRepository
	Relationship() RelationshipRepository

	// Close releases the backend connection. Safe to call on backends
	// without one.
	Close() error
}
