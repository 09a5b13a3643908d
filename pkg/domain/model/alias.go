package model

import (
	"time"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
)

// AliasGroup is an equivalence class over entities believed to denote the
// same real-world referent. CanonicalEntityID records which member to show
// when a single display name is needed; it defaults to the entity that
// formed the group.
type AliasGroup struct {
	ID                types.AliasGroupID
	UserID            types.UserID
	CanonicalEntityID types.EntityID
	CreatedAt         time.Time
}

// EntityAlias is a group membership row. An entity has at most one active
// membership, so the rows form a partition of the aliased entities.
type EntityAlias struct {
	UserID    types.UserID
	EntityID  types.EntityID
	GroupID   types.AliasGroupID
	CreatedAt time.Time
}

// AliasInfo is the read-side view of an entity's alias group
type AliasInfo struct {
	CanonicalName string
	Members       []string
}
