package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pgvector/pgvector-go"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
)

type relationshipRepository struct {
	pool *pgxpool.Pool
}

const relationshipColumns = "id, user_id, source_entity_id, label, target_entity_id, label_embedding, description, description_embedding, original_input, created_at, updated_at"

func scanRelationship(row pgx.Row) (*model.Relationship, error) {
	var rel model.Relationship
	var id, userID, sourceID, targetID string
	var labelEmbedding, descriptionEmbedding *pgvector.Vector

	err := row.Scan(
		&id,
		&userID,
		&sourceID,
		&rel.Label,
		&targetID,
		&labelEmbedding,
		&rel.Description,
		&descriptionEmbedding,
		&rel.OriginalInput,
		&rel.CreatedAt,
		&rel.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rel.ID = types.RelationshipID(id)
	rel.UserID = types.UserID(userID)
	rel.SourceEntityID = types.EntityID(sourceID)
	rel.TargetEntityID = types.EntityID(targetID)
	if labelEmbedding != nil {
		rel.LabelEmbedding = labelEmbedding.Slice()
	}
	if descriptionEmbedding != nil {
		rel.DescriptionEmbedding = descriptionEmbedding.Slice()
	}
	return &rel, nil
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

	query := `
		INSERT INTO relationships (
			id, user_id, source_entity_id, label, target_entity_id,
			label_embedding, description, description_embedding,
			original_input, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.pool.Exec(ctx, query,
		string(rel.ID),
		string(rel.UserID),
		string(rel.SourceEntityID),
		rel.Label,
		string(rel.TargetEntityID),
		vectorParam(rel.LabelEmbedding),
		rel.Description,
		vectorParam(rel.DescriptionEmbedding),
		rel.OriginalInput,
		rel.CreatedAt,
		rel.UpdatedAt,
	)
	if err != nil {
		if isPgErrCode(err, pgUniqueViolation) {
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
	query := `SELECT ` + relationshipColumns + ` FROM relationships WHERE user_id = $1 AND id = $2`

	rel, err := scanRelationship(r.pool.QueryRow(ctx, query, string(userID), string(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(types.ErrRelationshipNotFound, "relationship not found",
				goerr.V("userID", userID),
				goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get relationship", goerr.V("id", id))
	}

	return rel, nil
}

func (r *relationshipRepository) GetByKey(ctx context.Context, userID types.UserID, sourceID types.EntityID, label string, targetID types.EntityID) (*model.Relationship, error) {
	query := `
		SELECT ` + relationshipColumns + `
		FROM relationships
		WHERE user_id = $1 AND source_entity_id = $2 AND label = $3 AND target_entity_id = $4
	`
	rel, err := scanRelationship(r.pool.QueryRow(ctx, query, string(userID), string(sourceID), label, string(targetID)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(types.ErrRelationshipNotFound, "relationship not found",
				goerr.V("userID", userID),
				goerr.V("sourceID", sourceID),
				goerr.V("label", label),
				goerr.V("targetID", targetID))
		}
		return nil, goerr.Wrap(err, "failed to get relationship", goerr.V("label", label))
	}

	return rel, nil
}

func (r *relationshipRepository) ListBySource(ctx context.Context, userID types.UserID, sourceID types.EntityID) ([]*model.Relationship, error) {
	query := `
		SELECT ` + relationshipColumns + `
		FROM relationships
		WHERE user_id = $1 AND source_entity_id = $2
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, string(userID), string(sourceID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list relationships", goerr.V("sourceID", sourceID))
	}
	defer rows.Close()

	rels := make([]*model.Relationship, 0)
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan relationship")
		}
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate relationships")
	}

	return rels, nil
}

func (r *relationshipRepository) ListWithoutDescription(ctx context.Context, userID types.UserID, limit int) ([]*model.Relationship, error) {
	query := `
		SELECT ` + relationshipColumns + `
		FROM relationships
		WHERE user_id = $1 AND description_embedding IS NULL
		ORDER BY created_at ASC, id ASC
	`
	query = limitClause(query, limit)

	rows, err := r.pool.Query(ctx, query, string(userID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list relationships without description", goerr.V("userID", userID))
	}
	defer rows.Close()

	rels := make([]*model.Relationship, 0)
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan relationship")
		}
		rels = append(rels, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate relationships")
	}

	return rels, nil
}

func (r *relationshipRepository) UpdateDescription(ctx context.Context, userID types.UserID, id types.RelationshipID, description string, embedding []float32) error {
	query := `
		UPDATE relationships
		SET description = $1, description_embedding = $2, updated_at = $3
		WHERE user_id = $4 AND id = $5
	`
	tag, err := r.pool.Exec(ctx, query,
		description,
		vectorParam(embedding),
		time.Now().UTC(),
		string(userID),
		string(id),
	)
	if err != nil {
		return goerr.Wrap(err, "failed to update relationship description", goerr.V("id", id))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(types.ErrRelationshipNotFound, "relationship not found",
			goerr.V("userID", userID),
			goerr.V("id", id))
	}

	return nil
}

func (r *relationshipRepository) CountByUser(ctx context.Context, userID types.UserID) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM relationships WHERE user_id = $1`, string(userID)).Scan(&count); err != nil {
		return 0, goerr.Wrap(err, "failed to count relationships", goerr.V("userID", userID))
	}
	return count, nil
}
