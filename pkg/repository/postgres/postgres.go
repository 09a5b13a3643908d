package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/interfaces"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Postgres persists the graph in PostgreSQL with pgvector columns for the
// embeddings. Uniqueness is enforced by UNIQUE constraints, so duplicate
// inserts come back as unique violations for the caller to recover from.
type Postgres struct {
	pool         *pgxpool.Pool
	entity       *entityRepository
	alias        *aliasRepository
	relationship *relationshipRepository
}

var _ interfaces.Repository = &Postgres{}

// New connects to PostgreSQL and applies the schema. The pgvector extension
// must be installable on the target database.
func New(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse postgres DSN")
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create postgres pool")
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "failed to ping postgres")
	}

	p := &Postgres{
		pool:         pool,
		entity:       &entityRepository{pool: pool},
		alias:        &aliasRepository{pool: pool},
		relationship: &relationshipRepository{pool: pool},
	}

	if err := p.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return p, nil
}

// EnsureSchema applies the idempotent DDL. Safe to run on every startup.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return goerr.Wrap(err, "failed to apply postgres schema")
	}
	return nil
}

func (p *Postgres) Entity() interfaces.EntityRepository {
	return p.entity
}

func (p *Postgres) Alias() interfaces.AliasRepository {
	return p.alias
}

func (p *Postgres) Relationship() interfaces.RelationshipRepository {
	return p.relationship
}

func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func isPgErrCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
