package interfaces

import (
	"context"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
)

// AliasRepository defines the interface for alias group persistence.
// Memberships are a partition: an entity belongs to at most one group.
type AliasRepository interface {
	// GetMembership returns the entity's membership row, or
	// types.ErrAliasNotFound when the entity is ungrouped
	GetMembership(ctx context.Context, userID types.UserID, entityID types.EntityID) (*model.EntityAlias, error)

	// GetGroup retrieves an alias group by ID
	GetGroup(ctx context.Context, userID types.UserID, groupID types.AliasGroupID) (*model.AliasGroup, error)

	// CreateGroup inserts a new, empty alias group
	CreateGroup(ctx context.Context, group *model.AliasGroup) (*model.AliasGroup, error)

	// AddMember inserts a membership row for the entity. Returns
	// types.ErrAliasExists when the entity is already in a group.
	AddMember(ctx context.Context, userID types.UserID, groupID types.AliasGroupID, entityID types.EntityID) error

	// ListMembers returns all membership rows of a group
	ListMembers(ctx context.Context, userID types.UserID, groupID types.AliasGroupID) ([]*model.EntityAlias, error)

	// MoveMembers reparents every member of fromGroupID into toGroupID and
	// returns how many rows moved. Cost is linear in the losing group.
	MoveMembers(ctx context.Context, userID types.UserID, fromGroupID, toGroupID types.AliasGroupID) (int, error)

	// DeleteGroup removes a group record. Used only for the losing,
	// now-empty group after a merge.
	DeleteGroup(ctx context.Context, userID types.UserID, groupID types.AliasGroupID) error

	// CountGroupsByUser returns the number of alias groups owned by the user
	CountGroupsByUser(ctx context.Context, userID types.UserID) (int, error)
}
