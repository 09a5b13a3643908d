package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// getOrCreateEntity resolves a name to the user's entity, creating it on
// first mention with a generated description. Creation races are settled
// optimistically: lose the insert, read the winner.
func (uc *UseCases) getOrCreateEntity(ctx context.Context, userID types.UserID, name string) (*model.Entity, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, goerr.New("entity name is required")
	}

	entity, err := uc.repo.Entity().GetByName(ctx, userID, name)
	if err == nil {
		return entity, nil
	}
	if !errors.Is(err, types.ErrEntityNotFound) {
		return nil, goerr.Wrap(err, "failed to look up entity", goerr.V("name", name))
	}

	description, err := uc.gateway.DescribeEntity(ctx, name)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate entity description", goerr.V("name", name))
	}

	embedding, err := uc.embedOne(ctx, description)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed entity description", goerr.V("name", name))
	}

	created, err := uc.repo.Entity().Create(ctx, &model.Entity{
		UserID:               userID,
		Name:                 name,
		Description:          description,
		DescriptionEmbedding: embedding,
	})
	if err != nil {
		if errors.Is(err, types.ErrEntityExists) {
			return uc.repo.Entity().GetByName(ctx, userID, name)
		}
		return nil, goerr.Wrap(err, "failed to create entity", goerr.V("name", name))
	}

	return created, nil
}

// appendEntityContext concatenates a snippet onto an existing entity's
// description and re-embeds the full new text. The entity must already
// exist; first mentions go through getOrCreateEntity instead.
func (uc *UseCases) appendEntityContext(ctx context.Context, userID types.UserID, name, snippet string) error {
	entity, err := uc.repo.Entity().GetByName(ctx, userID, name)
	if err != nil {
		return goerr.Wrap(err, "failed to look up entity for context append", goerr.V("name", name))
	}

	description := entity.AppendedDescription(snippet)
	if description == entity.Description {
		return nil
	}

	embedding, err := uc.embedOne(ctx, description)
	if err != nil {
		return goerr.Wrap(err, "failed to embed appended description", goerr.V("name", name))
	}

	if err := uc.repo.Entity().UpdateDescription(ctx, userID, entity.ID, description, embedding); err != nil {
		return goerr.Wrap(err, "failed to persist appended description", goerr.V("name", name))
	}

	return nil
}
