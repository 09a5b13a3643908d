package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
	"github.com/aletheia-lab/mnemosyne/pkg/utils/errutil"
	"github.com/m-mizutani/goerr/v2"
)

// Remember ingests one raw statement for a user: extract fragments, append
// context to entities that were already known, then turn each fragment into
// an alias link or a relationship edge. Fragment processing is best-effort;
// a failing fragment is logged and counted, never aborts the rest.
func (uc *UseCases) Remember(ctx context.Context, userID types.UserID, statement string) (*model.IngestReceipt, error) {
	if err := userID.Validate(); err != nil {
		return nil, err
	}
	statement = strings.TrimSpace(statement)
	if statement == "" {
		return nil, goerr.New("statement is required")
	}

	triples, err := uc.gateway.ExtractTriples(ctx, statement, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract fragments")
	}

	receipt := &model.IngestReceipt{
		Statement: statement,
		Fragments: len(triples),
	}

	// Context appends run before any entity is created below, so only
	// entities known before this statement collect it as evidence
	uc.appendContextToKnownEntities(ctx, userID, statement, triples, receipt)

	for _, triple := range triples {
		if err := uc.ingestTriple(ctx, userID, statement, triple, receipt); err != nil {
			receipt.Errors++
			errutil.Handle(ctx, err, "fragment ingestion failed")
		}
	}

	return receipt, nil
}

// appendContextToKnownEntities appends the raw statement to the description
// of every already-existing entity any fragment mentions. Best-effort: a
// failed append is logged and counted, the rest still run.
func (uc *UseCases) appendContextToKnownEntities(ctx context.Context, userID types.UserID, statement string, triples []model.Triple, receipt *model.IngestReceipt) {
	seen := make(map[string]struct{})

	for _, triple := range triples {
		for _, name := range triple.EntityNames() {
			if name == "" {
				continue
			}
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}

			if _, err := uc.repo.Entity().GetByName(ctx, userID, name); err != nil {
				if errors.Is(err, types.ErrEntityNotFound) {
					continue
				}
				receipt.Errors++
				errutil.Handle(ctx, err, "context append lookup failed")
				continue
			}

			if err := uc.appendEntityContext(ctx, userID, name, statement); err != nil {
				receipt.Errors++
				errutil.Handle(ctx, err, "context append failed")
				continue
			}
			receipt.ContextAppends++
		}
	}
}

// ingestTriple persists one fragment: both endpoint entities, then either an
// alias link or an edge
func (uc *UseCases) ingestTriple(ctx context.Context, userID types.UserID, statement string, triple model.Triple, receipt *model.IngestReceipt) error {
	source, err := uc.getOrCreateEntity(ctx, userID, triple.Source)
	if err != nil {
		return goerr.Wrap(err, "failed to resolve source entity", goerr.V("name", triple.Source))
	}

	target, err := uc.getOrCreateEntity(ctx, userID, triple.Target)
	if err != nil {
		return goerr.Wrap(err, "failed to resolve target entity", goerr.V("name", triple.Target))
	}

	if triple.IsAlias {
		if err := uc.handleAlias(ctx, source, target); err != nil {
			return goerr.Wrap(err, "failed to link aliases",
				goerr.V("source", triple.Source),
				goerr.V("target", triple.Target))
		}
		receipt.AliasesLinked++
		return nil
	}

	created, err := uc.createEdge(ctx, userID, source, target, triple.Relationship, statement)
	if err != nil {
		return err
	}
	if created {
		receipt.EdgesCreated++
	} else {
		receipt.EdgesExisting++
	}

	return nil
}

// createEdge embeds the label, elaborates the relationship description when
// the gateway cooperates, and inserts the edge. Reports false when the edge
// already existed. A failed elaboration leaves a label-only edge for the
// backfill sweep rather than failing the fragment.
func (uc *UseCases) createEdge(ctx context.Context, userID types.UserID, source, target *model.Entity, label, statement string) (bool, error) {
	labelEmbedding, err := uc.embedOne(ctx, label)
	if err != nil {
		return false, goerr.Wrap(err, "failed to embed relationship label", goerr.V("label", label))
	}

	rel := &model.Relationship{
		UserID:         userID,
		SourceEntityID: source.ID,
		Label:          label,
		TargetEntityID: target.ID,
		LabelEmbedding: labelEmbedding,
		OriginalInput:  statement,
	}

	if description, err := uc.gateway.DescribeRelationship(ctx, label); err != nil {
		errutil.Handle(ctx, err, "relationship elaboration skipped")
	} else if embedding, err := uc.embedOne(ctx, description); err != nil {
		errutil.Handle(ctx, err, "relationship elaboration embedding skipped")
	} else {
		rel.Description = description
		rel.DescriptionEmbedding = embedding
	}

	created, err := uc.repo.Relationship().Create(ctx, rel)
	if err != nil {
		if errors.Is(err, types.ErrRelationshipExists) {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to create relationship", goerr.V("label", label))
	}

	if !created.HasDescription() {
		uc.scheduleEdgeBackfill(ctx, userID, created.ID)
	}

	return true, nil
}
