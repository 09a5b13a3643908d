package usecase

import (
	"context"
	"errors"
	"sort"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// handleAlias links two entities as names of the same referent. Dispatch on
// current membership: neither grouped creates a group, one grouped joins it,
// different groups merge (the target's group loses), same group is a no-op.
// Alias handling is serialized per user because a merge mutates several rows
// with no unique-key conflict to recover from.
func (uc *UseCases) handleAlias(ctx context.Context, source, target *model.Entity) error {
	if source.UserID != target.UserID {
		return goerr.New("alias endpoints belong to different users",
			goerr.V("source", source.UserID),
			goerr.V("target", target.UserID))
	}
	if source.ID == target.ID {
		return nil
	}
	userID := source.UserID

	mu := uc.aliasLock(userID)
	mu.Lock()
	defer mu.Unlock()

	sourceMember, err := uc.repo.Alias().GetMembership(ctx, userID, source.ID)
	if err != nil && !errors.Is(err, types.ErrAliasNotFound) {
		return goerr.Wrap(err, "failed to read source membership")
	}

	targetMember, err := uc.repo.Alias().GetMembership(ctx, userID, target.ID)
	if err != nil && !errors.Is(err, types.ErrAliasNotFound) {
		return goerr.Wrap(err, "failed to read target membership")
	}

	switch {
	case sourceMember == nil && targetMember == nil:
		group, err := uc.repo.Alias().CreateGroup(ctx, &model.AliasGroup{
			UserID:            userID,
			CanonicalEntityID: source.ID,
		})
		if err != nil {
			return goerr.Wrap(err, "failed to create alias group")
		}
		if err := uc.repo.Alias().AddMember(ctx, userID, group.ID, source.ID); err != nil {
			return goerr.Wrap(err, "failed to add source to new alias group")
		}
		if err := uc.repo.Alias().AddMember(ctx, userID, group.ID, target.ID); err != nil {
			return goerr.Wrap(err, "failed to add target to new alias group")
		}

	case sourceMember != nil && targetMember == nil:
		if err := uc.repo.Alias().AddMember(ctx, userID, sourceMember.GroupID, target.ID); err != nil {
			return goerr.Wrap(err, "failed to add target to source's alias group")
		}

	case sourceMember == nil && targetMember != nil:
		if err := uc.repo.Alias().AddMember(ctx, userID, targetMember.GroupID, source.ID); err != nil {
			return goerr.Wrap(err, "failed to add source to target's alias group")
		}

	case sourceMember.GroupID == targetMember.GroupID:
		return nil

	default:
		// Merge: reparent every member of the target's group under the
		// source's group, then drop the empty group record
		if _, err := uc.repo.Alias().MoveMembers(ctx, userID, targetMember.GroupID, sourceMember.GroupID); err != nil {
			return goerr.Wrap(err, "failed to merge alias groups",
				goerr.V("winner", sourceMember.GroupID),
				goerr.V("loser", targetMember.GroupID))
		}
		if err := uc.repo.Alias().DeleteGroup(ctx, userID, targetMember.GroupID); err != nil {
			return goerr.Wrap(err, "failed to delete merged alias group", goerr.V("group", targetMember.GroupID))
		}
	}

	return nil
}

// Aliases returns the alias group of the named entity as display names. An
// ungrouped entity is its own group of one.
func (uc *UseCases) Aliases(ctx context.Context, userID types.UserID, name string) (*model.AliasInfo, error) {
	if err := userID.Validate(); err != nil {
		return nil, err
	}

	entity, err := uc.repo.Entity().GetByName(ctx, userID, name)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to look up entity", goerr.V("name", name))
	}

	member, err := uc.repo.Alias().GetMembership(ctx, userID, entity.ID)
	if err != nil {
		if errors.Is(err, types.ErrAliasNotFound) {
			return &model.AliasInfo{CanonicalName: entity.Name, Members: []string{entity.Name}}, nil
		}
		return nil, goerr.Wrap(err, "failed to read alias membership", goerr.V("name", name))
	}

	group, err := uc.repo.Alias().GetGroup(ctx, userID, member.GroupID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read alias group", goerr.V("group", member.GroupID))
	}

	members, err := uc.repo.Alias().ListMembers(ctx, userID, member.GroupID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list alias group members", goerr.V("group", member.GroupID))
	}

	info := &model.AliasInfo{CanonicalName: entity.Name}
	for _, m := range members {
		e, err := uc.repo.Entity().GetByID(ctx, userID, m.EntityID)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to resolve alias member", goerr.V("entity", m.EntityID))
		}
		if m.EntityID == group.CanonicalEntityID {
			info.CanonicalName = e.Name
		}
		info.Members = append(info.Members, e.Name)
	}
	sort.Strings(info.Members)

	return info, nil
}
