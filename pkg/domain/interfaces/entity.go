package interfaces

import (
	"context"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
)

// EntityRepository defines the interface for Entity data persistence
type EntityRepository interface {
	// Create inserts a new entity. The (user, name) key is unique: a
	// concurrent or repeated insert returns types.ErrEntityExists and the
	// caller recovers by re-reading. Never pre-locks.
	Create(ctx context.Context, entity *model.Entity) (*model.Entity, error)

	// GetByName retrieves an entity by its exact (user, name) key.
	// Returns types.ErrEntityNotFound on miss.
	GetByName(ctx context.Context, userID types.UserID, name string) (*model.Entity, error)

	// GetByID retrieves an entity by ID within the user's scope
	GetByID(ctx context.Context, userID types.UserID, id types.EntityID) (*model.Entity, error)

	// UpdateDescription replaces the description and its embedding.
	// Used by context append; the caller supplies the full new text.
	UpdateDescription(ctx context.Context, userID types.UserID, id types.EntityID, description string, embedding []float32) error

	// FindNearest ranks the user's entities by cosine distance to the
	// embedding, ascending, and returns up to limit of them. There is no
	// similarity floor: if the user has any entity, something is returned.
	FindNearest(ctx context.Context, userID types.UserID, embedding []float32, limit int) ([]*model.Entity, error)

	// ListByUser retrieves all entities owned by the user
	ListByUser(ctx context.Context, userID types.UserID) ([]*model.Entity, error)

	// CountByUser returns the number of entities owned by the user
	CountByUser(ctx context.Context, userID types.UserID) (int, error)
}
