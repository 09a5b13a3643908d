package usecase

import (
	"context"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Stats counts the user's graph objects
func (uc *UseCases) Stats(ctx context.Context, userID types.UserID) (*model.GraphStats, error) {
	if err := userID.Validate(); err != nil {
		return nil, err
	}

	entities, err := uc.repo.Entity().CountByUser(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count entities")
	}

	groups, err := uc.repo.Alias().CountGroupsByUser(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count alias groups")
	}

	relationships, err := uc.repo.Relationship().CountByUser(ctx, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to count relationships")
	}

	return &model.GraphStats{
		Entities:      entities,
		AliasGroups:   groups,
		Relationships: relationships,
	}, nil
}
