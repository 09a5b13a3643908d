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

type relationshipKey struct {
	userID   types.UserID
	sourceID types.EntityID
	label    string
	targetID types.EntityID
}

type relationshipRepository struct {
	mu    sync.RWMutex
	byKey map[relationshipKey]*model.Relationship
	byID  map[types.RelationshipID]*model.Relationship
}

func newRelationshipRepository() *relationshipRepository {
	return &relationshipRepository{
		byKey: make(map[relationshipKey]*model.Relationship),
		byID:  make(map[types.RelationshipID]*model.Relationship),
	}
}

func copyRelationship(rel *model.Relationship) *model.Relationship {
	if rel == nil {
		return nil
	}
	c := *rel
	if rel.LabelEmbedding != nil {
		c.LabelEmbedding = make([]float32, len(rel.LabelEmbedding))
		copy(c.LabelEmbedding, rel.LabelEmbedding)
	}
	if rel.DescriptionEmbedding != nil {
		c.DescriptionEmbedding = make([]float32, len(rel.DescriptionEmbedding))
		copy(c.DescriptionEmbedding, rel.DescriptionEmbedding)
	}
	return &c
}

func (r *relationshipRepository) key(rel *model.Relationship) relationshipKey {
	return relationshipKey{
		userID:   rel.UserID,
		sourceID: rel.SourceEntityID,
		label:    rel.Label,
		targetID: rel.TargetEntityID,
	}
}

func (r *relationshipRepository) Create(ctx context.Context, rel *model.Relationship) (*model.Relationship, error) {
	if err := rel.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid relationship")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := r.key(rel)
	if _, ok := r.byKey[key]; ok {
		return nil, goerr.Wrap(types.ErrRelationshipExists, "edge already exists",
			goerr.V("userID", rel.UserID),
			goerr.V("label", rel.Label))
	}

	now := time.Now().UTC()
	stored := copyRelationship(rel)
	if stored.ID == "" {
		stored.ID = types.NewRelationshipID()
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.byKey[key] = stored
	r.byID[stored.ID] = stored

	return copyRelationship(stored), nil
}

func (r *relationshipRepository) GetByID(ctx context.Context, userID types.UserID, id types.RelationshipID) (*model.Relationship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rel, ok := r.byID[id]
	if !ok || rel.UserID != userID {
		return nil, goerr.Wrap(types.ErrRelationshipNotFound, "no relationship with ID",
			goerr.V("userID", userID),
			goerr.V("id", id))
	}
	return copyRelationship(rel), nil
}

func (r *relationshipRepository) GetByKey(ctx context.Context, userID types.UserID, sourceID types.EntityID, label string, targetID types.EntityID) (*model.Relationship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key := relationshipKey{userID: userID, sourceID: sourceID, label: label, targetID: targetID}
	rel, ok := r.byKey[key]
	if !ok {
		return nil, goerr.Wrap(types.ErrRelationshipNotFound, "no relationship with key",
			goerr.V("userID", userID),
			goerr.V("sourceID", sourceID),
			goerr.V("label", label),
			goerr.V("targetID", targetID))
	}
	return copyRelationship(rel), nil
}

func (r *relationshipRepository) ListBySource(ctx context.Context, userID types.UserID, sourceID types.EntityID) ([]*model.Relationship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rels := make([]*model.Relationship, 0)
	for _, rel := range r.byID {
		if rel.UserID == userID && rel.SourceEntityID == sourceID {
			rels = append(rels, copyRelationship(rel))
		}
	}
	sortRelationships(rels)
	return rels, nil
}

func (r *relationshipRepository) ListWithoutDescription(ctx context.Context, userID types.UserID, limit int) ([]*model.Relationship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rels := make([]*model.Relationship, 0)
	for _, rel := range r.byID {
		if rel.UserID == userID && !rel.HasDescription() {
			rels = append(rels, copyRelationship(rel))
		}
	}
	sortRelationships(rels)
	if limit > 0 && len(rels) > limit {
		rels = rels[:limit]
	}
	return rels, nil
}

func (r *relationshipRepository) UpdateDescription(ctx context.Context, userID types.UserID, id types.RelationshipID, description string, embedding []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rel, ok := r.byID[id]
	if !ok || rel.UserID != userID {
		return goerr.Wrap(types.ErrRelationshipNotFound, "no relationship with ID",
			goerr.V("userID", userID),
			goerr.V("id", id))
	}

	rel.Description = description
	rel.DescriptionEmbedding = make([]float32, len(embedding))
	copy(rel.DescriptionEmbedding, embedding)
	rel.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *relationshipRepository) CountByUser(ctx context.Context, userID types.UserID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, rel := range r.byID {
		if rel.UserID == userID {
			count++
		}
	}
	return count, nil
}

func sortRelationships(rels []*model.Relationship) {
	sort.Slice(rels, func(i, j int) bool {
		if !rels[i].CreatedAt.Equal(rels[j].CreatedAt) {
			return rels[i].CreatedAt.Before(rels[j].CreatedAt)
		}
		return rels[i].ID < rels[j].ID
	})
}
