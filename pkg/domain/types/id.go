package types

import (
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

// UserID is the opaque owner identifier. Every stored object is scoped to
// exactly one UserID and no operation crosses that boundary.
type UserID string

// Validate checks if the UserID is usable as a scope key
func (u UserID) Validate() error {
	if u == "" {
		return goerr.New("user ID cannot be empty")
	}
	return nil
}

// String returns the string representation of UserID
func (u UserID) String() string {
	return string(u)
}

// EntityID is a UUID-based identifier for Entity
type EntityID string

// NewEntityID generates a new UUID v4 EntityID
func NewEntityID() EntityID {
	return EntityID(uuid.New().String())
}

// String returns the string representation of EntityID
func (e EntityID) String() string {
	return string(e)
}

// AliasGroupID is a UUID-based identifier for AliasGroup
type AliasGroupID string

// NewAliasGroupID generates a new UUID v4 AliasGroupID
func NewAliasGroupID() AliasGroupID {
	return AliasGroupID(uuid.New().String())
}

// String returns the string representation of AliasGroupID
func (a AliasGroupID) String() string {
	return string(a)
}

// RelationshipID is a UUID-based identifier for Relationship
type RelationshipID string

// NewRelationshipID generates a new UUID v4 RelationshipID
func NewRelationshipID() RelationshipID {
	return RelationshipID(uuid.New().String())
}

// String returns the string representation of RelationshipID
func (r RelationshipID) String() string {
	return string(r)
}
