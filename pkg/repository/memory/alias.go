package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
)

type aliasRepository struct {
	mu     sync.RWMutex
	groups map[types.AliasGroupID]*model.AliasGroup

	// members is keyed by entity: the partition invariant (one group per
	// entity) is structural, not checked
	members map[types.EntityID]*model.EntityAlias
}

func newAliasRepository() *aliasRepository {
	return &aliasRepository{
		groups:  make(map[types.AliasGroupID]*model.AliasGroup),
		members: make(map[types.EntityID]*model.EntityAlias),
	}
}

func copyGroup(g *model.AliasGroup) *model.AliasGroup {
	if g == nil {
		return nil
	}
	c := *g
	return &c
}

func copyMembership(m *model.EntityAlias) *model.EntityAlias {
	if m == nil {
		return nil
	}
	c := *m
	return &c
}

func (r *aliasRepository) GetMembership(ctx context.Context, userID types.UserID, entityID types.EntityID) (*model.EntityAlias, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	membership, ok := r.members[entityID]
	if !ok || membership.UserID != userID {
		return nil, goerr.Wrap(types.ErrAliasNotFound, "entity is not in any alias group",
			goerr.V("userID", userID),
			goerr.V("entityID", entityID))
	}
	return copyMembership(membership), nil
}

func (r *aliasRepository) GetGroup(ctx context.Context, userID types.UserID, groupID types.AliasGroupID) (*model.AliasGroup, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	group, ok := r.groups[groupID]
	if !ok || group.UserID != userID {
		return nil, goerr.Wrap(types.ErrAliasGroupNotFound, "no alias group with ID",
			goerr.V("userID", userID),
			goerr.V("groupID", groupID))
	}
	return copyGroup(group), nil
}

func (r *aliasRepository) CreateGroup(ctx context.Context, group *model.AliasGroup) (*model.AliasGroup, error) {
	if err := group.UserID.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid alias group owner")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyGroup(group)
	if stored.ID == "" {
		stored.ID = types.NewAliasGroupID()
	}
	stored.CreatedAt = time.Now().UTC()

	r.groups[stored.ID] = stored
	return copyGroup(stored), nil
}

func (r *aliasRepository) AddMember(ctx context.Context, userID types.UserID, groupID types.AliasGroupID, entityID types.EntityID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.groups[groupID]
	if !ok || group.UserID != userID {
		return goerr.Wrap(types.ErrAliasGroupNotFound, "no alias group with ID",
			goerr.V("userID", userID),
			goerr.V("groupID", groupID))
	}

	if existing, ok := r.members[entityID]; ok && existing.UserID == userID {
		return goerr.Wrap(types.ErrAliasExists, "entity already belongs to a group",
			goerr.V("entityID", entityID),
			goerr.V("groupID", existing.GroupID))
	}

	r.members[entityID] = &model.EntityAlias{
		UserID:    userID,
		EntityID:  entityID,
		GroupID:   groupID,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (r *aliasRepository) ListMembers(ctx context.Context, userID types.UserID, groupID types.AliasGroupID) ([]*model.EntityAlias, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	memberships := make([]*model.EntityAlias, 0)
	for _, membership := range r.members {
		if membership.UserID == userID && membership.GroupID == groupID {
			memberships = append(memberships, copyMembership(membership))
		}
	}
	sort.Slice(memberships, func(i, j int) bool {
		return memberships[i].EntityID < memberships[j].EntityID
	})
	return memberships, nil
}

func (r *aliasRepository) MoveMembers(ctx context.Context, userID types.UserID, fromGroupID, toGroupID types.AliasGroupID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	moved := 0
	for _, membership := range r.members {
		if membership.UserID == userID && membership.GroupID == fromGroupID {
			membership.GroupID = toGroupID
			moved++
		}
	}
	return moved, nil
}

func (r *aliasRepository) DeleteGroup(ctx context.Context, userID types.UserID, groupID types.AliasGroupID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	group, ok := r.groups[groupID]
	if !ok || group.UserID != userID {
		return goerr.Wrap(types.ErrAliasGroupNotFound, "no alias group with ID",
			goerr.V("userID", userID),
			goerr.V("groupID", groupID))
	}

	delete(r.groups, groupID)
	return nil
}

func (r *aliasRepository) CountGroupsByUser(ctx context.Context, userID types.UserID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, group := range r.groups {
		if group.UserID == userID {
			count++
		}
	}
	return count, nil
}
