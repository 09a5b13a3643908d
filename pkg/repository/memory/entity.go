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

type entityKey struct {
	userID types.UserID
	name   string
}

type entityRepository struct {
	mu    sync.RWMutex
	byKey map[entityKey]*model.Entity
	byID  map[types.EntityID]*model.Entity
}

func newEntityRepository() *entityRepository {
	return &entityRepository{
		byKey: make(map[entityKey]*model.Entity),
		byID:  make(map[types.EntityID]*model.Entity),
	}
}

func copyEntity(e *model.Entity) *model.Entity {
	if e == nil {
		return nil
	}
	c := *e
	if e.DescriptionEmbedding != nil {
		c.DescriptionEmbedding = make([]float32, len(e.DescriptionEmbedding))
		copy(c.DescriptionEmbedding, e.DescriptionEmbedding)
	}
	return &c
}

func (r *entityRepository) Create(ctx context.Context, entity *model.Entity) (*model.Entity, error) {
	if err := entity.Validate(); err != nil {
		return nil, goerr.Wrap(err, "invalid entity")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := entityKey{userID: entity.UserID, name: entity.Name}
	if _, ok := r.byKey[key]; ok {
		return nil, goerr.Wrap(types.ErrEntityExists, "entity name already taken",
			goerr.V("userID", entity.UserID),
			goerr.V("name", entity.Name))
	}

	now := time.Now().UTC()
	stored := copyEntity(entity)
	if stored.ID == "" {
		stored.ID = types.NewEntityID()
	}
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.byKey[key] = stored
	r.byID[stored.ID] = stored

	return copyEntity(stored), nil
}

func (r *entityRepository) GetByName(ctx context.Context, userID types.UserID, name string) (*model.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.byKey[entityKey{userID: userID, name: name}]
	if !ok {
		return nil, goerr.Wrap(types.ErrEntityNotFound, "no entity with name",
			goerr.V("userID", userID),
			goerr.V("name", name))
	}
	return copyEntity(entity), nil
}

func (r *entityRepository) GetByID(ctx context.Context, userID types.UserID, id types.EntityID) (*model.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.byID[id]
	if !ok || entity.UserID != userID {
		return nil, goerr.Wrap(types.ErrEntityNotFound, "no entity with ID",
			goerr.V("userID", userID),
			goerr.V("id", id))
	}
	return copyEntity(entity), nil
}

func (r *entityRepository) UpdateDescription(ctx context.Context, userID types.UserID, id types.EntityID, description string, embedding []float32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entity, ok := r.byID[id]
	if !ok || entity.UserID != userID {
		return goerr.Wrap(types.ErrEntityNotFound, "no entity with ID",
			goerr.V("userID", userID),
			goerr.V("id", id))
	}

	entity.Description = description
	entity.DescriptionEmbedding = make([]float32, len(embedding))
	copy(entity.DescriptionEmbedding, embedding)
	entity.UpdatedAt = time.Now().UTC()

	return nil
}

func (r *entityRepository) FindNearest(ctx context.Context, userID types.UserID, embedding []float32, limit int) ([]*model.Entity, error) {
	if limit <= 0 || len(embedding) == 0 {
		return []*model.Entity{}, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	type scored struct {
		entity   *model.Entity
		distance float64
	}

	candidates := make([]scored, 0)
	for _, entity := range r.byID {
		if entity.UserID != userID {
			continue
		}
		candidates = append(candidates, scored{
			entity:   entity,
			distance: model.CosineDistance(embedding, entity.DescriptionEmbedding),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].entity.Name < candidates[j].entity.Name
	})

	if limit > len(candidates) {
		limit = len(candidates)
	}
	results := make([]*model.Entity, 0, limit)
	for _, c := range candidates[:limit] {
		results = append(results, copyEntity(c.entity))
	}
	return results, nil
}

func (r *entityRepository) ListByUser(ctx context.Context, userID types.UserID) ([]*model.Entity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entities := make([]*model.Entity, 0)
	for _, entity := range r.byID {
		if entity.UserID == userID {
			entities = append(entities, copyEntity(entity))
		}
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i].Name < entities[j].Name })
	return entities, nil
}

func (r *entityRepository) CountByUser(ctx context.Context, userID types.UserID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, entity := range r.byID {
		if entity.UserID == userID {
			count++
		}
	}
	return count, nil
}
