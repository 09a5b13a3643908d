package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	"github.com/pgvector/pgvector-go"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
)

type entityRepository struct {
	pool *pgxpool.Pool
}

const entityColumns = "id, user_id, name, description, description_embedding, created_at, updated_at"

// vectorParam converts an embedding to a query parameter, keeping NULL for
// absent embeddings instead of a zero-length vector.
func vectorParam(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

func scanEntity(row pgx.Row) (*model.Entity, error) {
	var e model.Entity
	var id, userID string
	var embedding *pgvector.Vector

	if err := row.Scan(&id, &userID, &e.Name, &e.Description, &embedding, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}

	e.ID = types.EntityID(id)
	e.UserID = types.UserID(userID)
	if embedding != nil {
		e.DescriptionEmbedding = embedding.Slice()
	}
	return &e, nil
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

	query := `
		INSERT INTO entities (id, user_id, name, description, description_embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.pool.Exec(ctx, query,
		string(entity.ID),
		string(entity.UserID),
		entity.Name,
		entity.Description,
		vectorParam(entity.DescriptionEmbedding),
		entity.CreatedAt,
		entity.UpdatedAt,
	)
	if err != nil {
		if isPgErrCode(err, pgUniqueViolation) {
			return nil, goerr.Wrap(types.ErrEntityExists, "entity already exists",
				goerr.V("userID", entity.UserID),
				goerr.V("name", entity.Name))
		}
		return nil, goerr.Wrap(err, "failed to create entity", goerr.V("name", entity.Name))
	}

	return entity, nil
}

func (r *entityRepository) GetByName(ctx context.Context, userID types.UserID, name string) (*model.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE user_id = $1 AND name = $2`

	entity, err := scanEntity(r.pool.QueryRow(ctx, query, string(userID), name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(types.ErrEntityNotFound, "entity not found",
				goerr.V("userID", userID),
				goerr.V("name", name))
		}
		return nil, goerr.Wrap(err, "failed to get entity", goerr.V("name", name))
	}

	return entity, nil
}

func (r *entityRepository) GetByID(ctx context.Context, userID types.UserID, id types.EntityID) (*model.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE user_id = $1 AND id = $2`

	entity, err := scanEntity(r.pool.QueryRow(ctx, query, string(userID), string(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(types.ErrEntityNotFound, "entity not found",
				goerr.V("userID", userID),
				goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get entity", goerr.V("id", id))
	}

	return entity, nil
}

func (r *entityRepository) UpdateDescription(ctx context.Context, userID types.UserID, id types.EntityID, description string, embedding []float32) error {
	query := `
		UPDATE entities
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
		return goerr.Wrap(err, "failed to update entity description", goerr.V("id", id))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(types.ErrEntityNotFound, "entity not found",
			goerr.V("userID", userID),
			goerr.V("id", id))
	}

	return nil
}

func (r *entityRepository) FindNearest(ctx context.Context, userID types.UserID, embedding []float32, limit int) ([]*model.Entity, error) {
	if limit <= 0 || len(embedding) == 0 {
		return []*model.Entity{}, nil
	}

	query := `
		SELECT ` + entityColumns + `
		FROM entities
		WHERE user_id = $1 AND description_embedding IS NOT NULL
		ORDER BY description_embedding <=> $2
		LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, string(userID), pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to run vector search", goerr.V("userID", userID))
	}
	defer rows.Close()

	entities := make([]*model.Entity, 0, limit)
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan entity from vector search")
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate vector search results")
	}

	return entities, nil
}

func (r *entityRepository) ListByUser(ctx context.Context, userID types.UserID) ([]*model.Entity, error) {
	query := `SELECT ` + entityColumns + ` FROM entities WHERE user_id = $1 ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query, string(userID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list entities", goerr.V("userID", userID))
	}
	defer rows.Close()

	entities := make([]*model.Entity, 0)
	for rows.Next() {
		entity, err := scanEntity(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan entity")
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate entities")
	}

	return entities, nil
}

func (r *entityRepository) CountByUser(ctx context.Context, userID types.UserID) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM entities WHERE user_id = $1`, string(userID)).Scan(&count); err != nil {
		return 0, goerr.Wrap(err, "failed to count entities", goerr.V("userID", userID))
	}
	return count, nil
}

// limitClause appends a LIMIT when one is requested. The limit is always an
// int from our own call sites, never user input.
func limitClause(query string, limit int) string {
	if limit > 0 {
		return query + fmt.Sprintf(" LIMIT %d", limit)
	}
	return query
}
