package usecase

import (
	"context"
	"sync/atomic"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
	"github.com/aletheia-lab/mnemosyne/pkg/utils/async"
	"github.com/aletheia-lab/mnemosyne/pkg/utils/errutil"
	"github.com/m-mizutani/goerr/v2"
	"golang.org/x/sync/errgroup"
)

// backfillConcurrency bounds parallel gateway calls during a sweep
const backfillConcurrency = 4

// backfillEdge generates and stores the elaborated description and its
// embedding for one label-only edge
func (uc *UseCases) backfillEdge(ctx context.Context, rel *model.Relationship) error {
	description, err := uc.gateway.DescribeRelationship(ctx, rel.Label)
	if err != nil {
		return goerr.Wrap(err, "failed to elaborate relationship", goerr.V("label", rel.Label))
	}

	embedding, err := uc.embedOne(ctx, description)
	if err != nil {
		return goerr.Wrap(err, "failed to embed elaboration", goerr.V("label", rel.Label))
	}

	if err := uc.repo.Relationship().UpdateDescription(ctx, rel.UserID, rel.ID, description, embedding); err != nil {
		return goerr.Wrap(err, "failed to store elaboration", goerr.V("id", rel.ID))
	}

	return nil
}

// scheduleEdgeBackfill retries the elaboration for one edge off the request
// path. The sweep covers anything this attempt misses, so failures are only
// logged.
func (uc *UseCases) scheduleEdgeBackfill(ctx context.Context, userID types.UserID, id types.RelationshipID) {
	async.Dispatch(ctx, func(ctx context.Context) error {
		rel, err := uc.repo.Relationship().GetByID(ctx, userID, id)
		if err != nil {
			return goerr.Wrap(err, "failed to load edge for backfill", goerr.V("id", id))
		}
		if rel.HasDescription() {
			return nil
		}
		return uc.backfillEdge(ctx, rel)
	})
}

// BackfillDescriptions sweeps the user's label-only edges, oldest first, and
// completes their elaborated descriptions. A non-positive limit sweeps every
// pending edge. Each edge is independent, so a failing edge is logged and
// skipped. Returns how many edges were completed.
func (uc *UseCases) BackfillDescriptions(ctx context.Context, userID types.UserID, limit int) (int, error) {
	if err := userID.Validate(); err != nil {
		return 0, err
	}

	pending, err := uc.repo.Relationship().ListWithoutDescription(ctx, userID, limit)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to list backfill candidates")
	}

	var done atomic.Int64
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(backfillConcurrency)

	for _, rel := range pending {
		eg.Go(func() error {
			if err := uc.backfillEdge(egCtx, rel); err != nil {
				errutil.Handle(egCtx, err, "backfill skipped an edge")
				return nil
			}
			done.Add(1)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return int(done.Load()), err
	}

	return int(done.Load()), nil
}
