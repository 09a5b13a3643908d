package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
)

// entityDoc is the Firestore document representation of model.Entity.
// DescriptionEmbedding is stored as firestore.Vector32 so that FindNearest
// vector search works. The document ID is a digest of the entity name,
// which enforces the (user, name) unique key at the storage layer.
type entityDoc struct {
	ID                   string             `firestore:"ID"`
	UserID               string             `firestore:"UserID"`
	Name                 string             `firestore:"Name"`
	Description          string             `firestore:"Description"`
	DescriptionEmbedding firestore.Vector32 `firestore:"DescriptionEmbedding,omitempty"`
	CreatedAt            time.Time          `firestore:"CreatedAt"`
	UpdatedAt            time.Time          `firestore:"UpdatedAt"`
}

func toEntityDoc(e *model.Entity) *entityDoc {
	doc := &entityDoc{
		ID:          string(e.ID),
		UserID:      string(e.UserID),
		Name:        e.Name,
		Description: e.Description,
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
	if len(e.DescriptionEmbedding) > 0 {
		doc.DescriptionEmbedding = firestore.Vector32(e.DescriptionEmbedding)
	}
	return doc
}

func fromEntityDoc(d *entityDoc) *model.Entity {
	e := &model.Entity{
		ID:          types.EntityID(d.ID),
		UserID:      types.UserID(d.UserID),
		Name:        d.Name,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if len(d.DescriptionEmbedding) > 0 {
		e.DescriptionEmbedding = []float32(d.DescriptionEmbedding)
	}
	return e
}

func docToEntity(doc *firestore.DocumentSnapshot) (*model.Entity, error) {
	var d entityDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, err
	}
	return fromEntityDoc(&d), nil
}

type entityRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newEntityRepository(client *firestore.Client) *entityRepository {
	return &entityRepository{
		client: client,
	}
}

func (r *entityRepository) usersCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_users"
	}
	return "users"
}

func (r *entityRepository) entitiesCollection(userID types.UserID) *firestore.CollectionRef {
	return r.client.Collection(r.usersCollection()).Doc(string(userID)).Collection("entities")
}

func (r *entityRepository) Create(ctx context.Context, entity *model.Entity) (*model.Entity, error) {
	if err := entity.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if entity.ID == "" {
		entity.ID = types.NewEntityID()
	}
	entity.CreatedAt = now
	entity.UpdatedAt = now

	docRef := r.entitiesCollection(entity.UserID).Doc(docDigest(entity.Name))
	if _, err := docRef.Create(ctx, toEntityDoc(entity)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(types.ErrEntityExists, "entity already exists",
				goerr.V("userID", entity.UserID),
				goerr.V("name", entity.Name))
		}
		return nil, goerr.Wrap(err, "failed to create entity", goerr.V("name", entity.Name))
	}

	return entity, nil
}

func (r *entityRepository) GetByName(ctx context.Context, userID types.UserID, name string) (*model.Entity, error) {
	docRef := r.entitiesCollection(userID).Doc(docDigest(name))
	doc, err := docRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(types.ErrEntityNotFound, "entity not found",
				goerr.V("userID", userID),
				goerr.V("name", name))
		}
		return nil, goerr.Wrap(err, "failed to get entity", goerr.V("name", name))
	}

	entity, err := docToEntity(doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal entity", goerr.V("name", name))
	}

	return entity, nil
}

func (r *entityRepository) GetByID(ctx context.Context, userID types.UserID, id types.EntityID) (*model.Entity, error) {
	iter := r.entitiesCollection(userID).
		Where("ID", "==", string(id)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(types.ErrEntityNotFound, "entity not found",
			goerr.V("userID", userID),
			goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query entity", goerr.V("id", id))
	}

	entity, err := docToEntity(doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal entity", goerr.V("id", id))
	}

	return entity, nil
}

func (r *entityRepository) UpdateDescription(ctx context.Context, userID types.UserID, id types.EntityID, description string, embedding []float32) error {
	iter := r.entitiesCollection(userID).
		Where("ID", "==", string(id)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return goerr.Wrap(types.ErrEntityNotFound, "entity not found",
			goerr.V("userID", userID),
			goerr.V("id", id))
	}
	if err != nil {
		return goerr.Wrap(err, "failed to query entity", goerr.V("id", id))
	}

	updates := []firestore.Update{
		{Path: "Description", Value: description},
		{Path: "DescriptionEmbedding", Value: firestore.Vector32(embedding)},
		{Path: "UpdatedAt", Value: time.Now().UTC()},
	}
	if _, err := doc.Ref.Update(ctx, updates); err != nil {
		return goerr.Wrap(err, "failed to update entity description", goerr.V("id", id))
	}

	return nil
}

func (r *entityRepository) FindNearest(ctx context.Context, userID types.UserID, embedding []float32, limit int) ([]*model.Entity, error) {
	if limit <= 0 || len(embedding) == 0 {
		return []*model.Entity{}, nil
	}

	vq := r.entitiesCollection(userID).
		FindNearest("DescriptionEmbedding", firestore.Vector32(embedding), limit, firestore.DistanceMeasureCosine, nil)

	iter := vq.Documents(ctx)
	defer iter.Stop()

	entities := make([]*model.Entity, 0, limit)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate vector search results")
		}

		entity, err := docToEntity(doc)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal entity from vector search")
		}

		entities = append(entities, entity)
	}

	return entities, nil
}

func (r *entityRepository) ListByUser(ctx context.Context, userID types.UserID) ([]*model.Entity, error) {
	iter := r.entitiesCollection(userID).Documents(ctx)
	defer iter.Stop()

	entities := make([]*model.Entity, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate entities", goerr.V("userID", userID))
		}

		entity, err := docToEntity(doc)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal entity")
		}

		entities = append(entities, entity)
	}

	return entities, nil
}

func (r *entityRepository) CountByUser(ctx context.Context, userID types.UserID) (int, error) {
	docs, err := r.entitiesCollection(userID).Documents(ctx).GetAll()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count entities", goerr.V("userID", userID))
	}
	return len(docs), nil
}
