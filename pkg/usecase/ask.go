package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
	"github.com/aletheia-lab/mnemosyne/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// scoredEdge pairs a walked edge with its cosine distance to the query
// phrase
type scoredEdge struct {
	rel      *model.Relationship
	distance float64
}

// Ask answers a question from the user's graph. The stages run strictly in
// order: parse, anchor, walk, score, filter, aggregate, synthesize. A stage
// may end the request with the fixed no-information answer; it never
// partially succeeds silently. Gateway failures are fatal here, unlike
// during ingestion: a wrong guess is worse than an error.
func (uc *UseCases) Ask(ctx context.Context, userID types.UserID, question string) (*model.Answer, error) {
	if err := userID.Validate(); err != nil {
		return nil, err
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, goerr.New("question is required")
	}

	parsed, err := uc.gateway.ParseQuery(ctx, question, userID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse question")
	}

	trace := &model.RetrievalTrace{
		EntityMentions:     parsed.Entities,
		RelationshipPhrase: parsed.RelationshipPhrase,
	}

	mention := parsed.PrimaryEntity()
	if mention == "" {
		trace.Searched = "question names no entity to anchor on"
		return noInformation(trace), nil
	}

	anchor, err := uc.resolveAnchor(ctx, userID, mention)
	if err != nil {
		return nil, err
	}
	if anchor == nil {
		trace.Searched = fmt.Sprintf("no entity in the graph to anchor %q on", mention)
		return noInformation(trace), nil
	}
	trace.AnchorEntity = anchor.Name

	edges, err := uc.walk(ctx, userID, anchor.ID)
	if err != nil {
		return nil, err
	}
	trace.EdgesWalked = len(edges)
	if len(edges) == 0 {
		trace.Searched = fmt.Sprintf("anchored on %q, no edge within %d hops", anchor.Name, uc.cfg.MaxHops)
		return noInformation(trace), nil
	}

	scored, err := uc.score(ctx, edges, parsed.RelationshipPhrase, question)
	if err != nil {
		return nil, err
	}

	kept := filterByRelevance(scored, uc.cfg.DistanceCeiling)
	trace.EdgesKept = len(kept)
	if len(kept) == 0 {
		trace.Searched = fmt.Sprintf("anchored on %q, walked %d edges, none within the relevance band", anchor.Name, len(edges))
		return noInformation(trace), nil
	}

	statements, err := uc.aggregate(ctx, userID, kept)
	if err != nil {
		return nil, err
	}
	trace.Statements = statements
	if len(statements) == 0 {
		trace.Searched = fmt.Sprintf("anchored on %q, kept %d edges but none carried a statement", anchor.Name, len(kept))
		return noInformation(trace), nil
	}

	trace.Searched = fmt.Sprintf("anchored on %q, walked %d edges, kept %d, synthesized from %d statements",
		anchor.Name, len(edges), len(kept), len(statements))

	answer, err := uc.gateway.Synthesize(ctx, question, statements)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to synthesize answer")
	}

	logging.From(ctx).Info("question answered",
		"anchor", anchor.Name,
		"edges_walked", len(edges),
		"edges_kept", len(kept),
		"statements", len(statements))

	return &model.Answer{Text: answer, Trace: trace}, nil
}

func noInformation(trace *model.RetrievalTrace) *model.Answer {
	return &model.Answer{
		Text:          model.NoInformationMessage,
		NoInformation: true,
		Trace:         trace,
	}
}

// resolveAnchor resolves the primary mention to an entity: exact name match
// first, then the nearest entity by description embedding. The fuzzy
// fallback has no similarity floor, so it returns nil only when the user's
// graph holds no entity at all.
func (uc *UseCases) resolveAnchor(ctx context.Context, userID types.UserID, mention string) (*model.Entity, error) {
	entity, err := uc.repo.Entity().GetByName(ctx, userID, mention)
	if err == nil {
		return entity, nil
	}
	if !errors.Is(err, types.ErrEntityNotFound) {
		return nil, goerr.Wrap(err, "failed to look up anchor entity", goerr.V("mention", mention))
	}

	embedding, err := uc.embedOne(ctx, mention)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed anchor mention", goerr.V("mention", mention))
	}

	nearest, err := uc.repo.Entity().FindNearest(ctx, userID, embedding, 1)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to search nearest entity", goerr.V("mention", mention))
	}
	if len(nearest) == 0 {
		return nil, nil
	}

	return nearest[0], nil
}

type hopItem struct {
	id    types.EntityID
	depth int
}

// walk collects every outgoing edge reachable from the anchor within MaxHops
// by breadth-first traversal. Purely structural: embeddings are never
// consulted here. Each entity expands at most once, so cycles terminate and
// each edge is collected exactly once.
func (uc *UseCases) walk(ctx context.Context, userID types.UserID, anchor types.EntityID) ([]*model.Relationship, error) {
	var edges []*model.Relationship
	visited := map[types.EntityID]struct{}{anchor: {}}
	queue := []hopItem{{id: anchor, depth: 0}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur.depth >= uc.cfg.MaxHops {
			continue
		}

		outgoing, err := uc.repo.Relationship().ListBySource(ctx, userID, cur.id)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to list outgoing edges", goerr.V("entity", cur.id))
		}

		for _, rel := range outgoing {
			edges = append(edges, rel)
			if _, ok := visited[rel.TargetEntityID]; !ok {
				visited[rel.TargetEntityID] = struct{}{}
				queue = append(queue, hopItem{id: rel.TargetEntityID, depth: cur.depth + 1})
			}
		}
	}

	return edges, nil
}

// score embeds the relationship phrase once and computes cosine distance to
// each edge's scoring embedding: the elaborated description embedding when
// present, the label embedding otherwise. An empty phrase falls back to the
// whole question.
func (uc *UseCases) score(ctx context.Context, edges []*model.Relationship, phrase, question string) ([]scoredEdge, error) {
	if strings.TrimSpace(phrase) == "" {
		phrase = question
	}

	phraseEmbedding, err := uc.embedOne(ctx, phrase)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed relationship phrase", goerr.V("phrase", phrase))
	}

	scored := make([]scoredEdge, 0, len(edges))
	for _, rel := range edges {
		scored = append(scored, scoredEdge{
			rel:      rel,
			distance: model.CosineDistance(phraseEmbedding, rel.ScoringEmbedding()),
		})
	}

	return scored, nil
}

// aggregate dedupes the kept edges by target entity name, then by source
// statement, yielding distinct original statements best-first
func (uc *UseCases) aggregate(ctx context.Context, userID types.UserID, kept []scoredEdge) ([]string, error) {
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].distance < kept[j].distance })

	names := make(map[types.EntityID]string)
	seenName := make(map[string]struct{})
	seenStatement := make(map[string]struct{})
	statements := make([]string, 0, len(kept))

	for _, edge := range kept {
		name, ok := names[edge.rel.TargetEntityID]
		if !ok {
			target, err := uc.repo.Entity().GetByID(ctx, userID, edge.rel.TargetEntityID)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to resolve edge target", goerr.V("entity", edge.rel.TargetEntityID))
			}
			name = target.Name
			names[edge.rel.TargetEntityID] = name
		}

		if _, ok := seenName[name]; ok {
			continue
		}
		seenName[name] = struct{}{}

		statement := strings.TrimSpace(edge.rel.OriginalInput)
		if statement == "" {
			continue
		}
		if _, ok := seenStatement[statement]; ok {
			continue
		}
		seenStatement[statement] = struct{}{}
		statements = append(statements, statement)
	}

	return statements, nil
}
