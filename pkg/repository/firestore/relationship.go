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

// relationshipDoc is the Firestore document representation of
// model.Relationship. The document ID is a digest of (source, label, target),
// which enforces the edge's unique key at the storage layer. HasDescription
// mirrors whether the elaborated description is filled in, so the backfill
// query stays a plain equality filter.
type relationshipDoc struct {
	ID                   string             `firestore:"ID"`
	UserID               string             `firestore:"UserID"`
	SourceEntityID       string             `firestore:"SourceEntityID"`
	Label                string             `firestore:"Label"`
	TargetEntityID       string             `firestore:"TargetEntityID"`
	LabelEmbedding       firestore.Vector32 `firestore:"LabelEmbedding,omitempty"`
	Description          string             `firestore:"Description"`
	DescriptionEmbedding firestore.Vector32 `firestore:"DescriptionEmbedding,omitempty"`
	HasDescription       bool               `firestore:"HasDescription"`
	OriginalInput        string             `firestore:"OriginalInput"`
	CreatedAt            time.Time          `firestore:"CreatedAt"`
	UpdatedAt            time.Time          `firestore:"UpdatedAt"`
}

func toRelationshipDoc(rel *model.Relationship) *relationshipDoc {
	doc := &relationshipDoc{
		ID:             string(rel.ID),
		UserID:         string(rel.UserID),
		SourceEntityID: string(rel.SourceEntityID),
		Label:          rel.Label,
		TargetEntityID: string(rel.TargetEntityID),
		Description:    rel.Description,
		HasDescription: rel.HasDescription(),
		OriginalInput:  rel.OriginalInput,
		CreatedAt:      rel.CreatedAt,
		UpdatedAt:      rel.UpdatedAt,
	}
	if len(rel.LabelEmbedding) > 0 {
		doc.LabelEmbedding = firestore.Vector32(rel.LabelEmbedding)
	}
	if len(rel.DescriptionEmbedding) > 0 {
		doc.DescriptionEmbedding = firestore.Vector32(rel.DescriptionEmbedding)
	}
	return doc
}

func fromRelationshipDoc(d *relationshipDoc) *model.Relationship {
	rel := &model.Relationship{
		ID:             types.RelationshipID(d.ID),
		UserID:         types.UserID(d.UserID),
		SourceEntityID: types.EntityID(d.SourceEntityID),
		Label:          d.Label,
		TargetEntityID: types.EntityID(d.TargetEntityID),
		Description:    d.Description,
		OriginalInput:  d.OriginalInput,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if len(d.LabelEmbedding) > 0 {
		rel.LabelEmbedding = []float32(d.LabelEmbedding)
	}
	if len(d.DescriptionEmbedding) > 0 {
		rel.DescriptionEmbedding = []float32(d.DescriptionEmbedding)
	}
	return rel
}

func docToRelationship(doc *firestore.DocumentSnapshot) (*model.Relationship, error) {
	var d relationshipDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, err
	}
	return fromRelationshipDoc(&d), nil
}

type relationshipRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newRelationshipRepository(client *firestore.Client) *relationshipRepository {
	return &relationshipRepository{
		client: client,
	}
}

func (r *relationshipRepository) usersCollection() string {
	if r.collectionPrefix != "" {
		return r.collectionPrefix + "_users"
	}
	return "users"
}

func (r *relationshipRepository) relationshipsCollection(userID types.UserID) *firestore.CollectionRef {
	return r.client.Collection(r.usersCollection()).Doc(string(userID)).Collection("relationships")
}

func (r *relationshipRepository) keyDoc(sourceID types.EntityID, label string, targetID types.EntityID) string {
	return docDigest(string(sourceID), label, string(targetID))
}

func (r *relationshipRepository) Create(ctx context.Context, rel *model.Relationship) (*model.Relationship, error) {
	if err := rel.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if rel.ID == "" {
		rel.ID = types.NewRelationshipID()
	}
	rel.CreatedAt = now
	rel.UpdatedAt = now

	docRef := r.relationshipsCollection(rel.UserID).Doc(r.keyDoc(rel.SourceEntityID, rel.Label, rel.TargetEntityID))
	if _, err := docRef.Create(ctx, toRelationshipDoc(rel)); err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return nil, goerr.Wrap(types.ErrRelationshipExists, "relationship already exists",
				goerr.V("userID", rel.UserID),
				goerr.V("sourceID", rel.SourceEntityID),
				goerr.V("label", rel.Label),
				goerr.V("targetID", rel.TargetEntityID))
		}
		return nil, goerr.Wrap(err, "failed to create relationship", goerr.V("label", rel.Label))
	}

	return rel, nil
}

func (r *relationshipRepository) GetByID(ctx context.Context, userID types.UserID, id types.RelationshipID) (*model.Relationship, error) {
	iter := r.relationshipsCollection(userID).
		Where("ID", "==", string(id)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, goerr.Wrap(types.ErrRelationshipNotFound, "relationship not found",
			goerr.V("userID", userID),
			goerr.V("id", id))
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query relationship", goerr.V("id", id))
	}

	rel, err := docToRelationship(doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal relationship", goerr.V("id", id))
	}

	return rel, nil
}

func (r *relationshipRepository) GetByKey(ctx context.Context, userID types.UserID, sourceID types.EntityID, label string, targetID types.EntityID) (*model.Relationship, error) {
	docRef := r.relationshipsCollection(userID).Doc(r.keyDoc(sourceID, label, targetID))
	doc, err := docRef.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(types.ErrRelationshipNotFound, "relationship not found",
				goerr.V("userID", userID),
				goerr.V("sourceID", sourceID),
				goerr.V("label", label),
				goerr.V("targetID", targetID))
		}
		return nil, goerr.Wrap(err, "failed to get relationship", goerr.V("label", label))
	}

	rel, err := docToRelationship(doc)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to unmarshal relationship", goerr.V("label", label))
	}

	return rel, nil
}

func (r *relationshipRepository) ListBySource(ctx context.Context, userID types.UserID, sourceID types.EntityID) ([]*model.Relationship, error) {
	iter := r.relationshipsCollection(userID).
		Where("SourceEntityID", "==", string(sourceID)).
		Documents(ctx)
	defer iter.Stop()

	rels := make([]*model.Relationship, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate relationships", goerr.V("sourceID", sourceID))
		}

		rel, err := docToRelationship(doc)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal relationship")
		}

		rels = append(rels, rel)
	}

	return rels, nil
}

func (r *relationshipRepository) ListWithoutDescription(ctx context.Context, userID types.UserID, limit int) ([]*model.Relationship, error) {
	query := r.relationshipsCollection(userID).
		Where("HasDescription", "==", false).
		OrderBy("CreatedAt", firestore.Asc)
	if limit > 0 {
		query = query.Limit(limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	rels := make([]*model.Relationship, 0)
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate relationships", goerr.V("userID", userID))
		}

		rel, err := docToRelationship(doc)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to unmarshal relationship")
		}

		rels = append(rels, rel)
	}

	return rels, nil
}

func (r *relationshipRepository) UpdateDescription(ctx context.Context, userID types.UserID, id types.RelationshipID, description string, embedding []float32) error {
	iter := r.relationshipsCollection(userID).
		Where("ID", "==", string(id)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return goerr.Wrap(types.ErrRelationshipNotFound, "relationship not found",
			goerr.V("userID", userID),
			goerr.V("id", id))
	}
	if err != nil {
		return goerr.Wrap(err, "failed to query relationship", goerr.V("id", id))
	}

	updates := []firestore.Update{
		{Path: "Description", Value: description},
		{Path: "DescriptionEmbedding", Value: firestore.Vector32(embedding)},
		{Path: "HasDescription", Value: description != "" && len(embedding) > 0},
		{Path: "UpdatedAt", Value: time.Now().UTC()},
	}
	if _, err := doc.Ref.Update(ctx, updates); err != nil {
		return goerr.Wrap(err, "failed to update relationship description", goerr.V("id", id))
	}

	return nil
}

func (r *relationshipRepository) CountByUser(ctx context.Context, userID types.UserID) (int, error) {
	docs, err := r.relationshipsCollection(userID).Documents(ctx).GetAll()
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count relationships", goerr.V("userID", userID))
	}
	return len(docs), nil
}
