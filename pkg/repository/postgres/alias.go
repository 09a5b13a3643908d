package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"

	"github.com/aletheia-lab/mnemosyne/pkg/domain/model"
	"github.com/aletheia-lab/mnemosyne/pkg/domain/types"
)

type aliasRepository struct {
	pool *pgxpool.Pool
}

func scanAliasMember(row pgx.Row) (*model.EntityAlias, error) {
	var m model.EntityAlias
	var userID, entityID, groupID string

	if err := row.Scan(&userID, &entityID, &groupID, &m.CreatedAt); err != nil {
		return nil, err
	}

	m.UserID = types.UserID(userID)
	m.EntityID = types.EntityID(entityID)
	m.GroupID = types.AliasGroupID(groupID)
	return &m, nil
}

func (r *aliasRepository) GetMembership(ctx context.Context, userID types.UserID, entityID types.EntityID) (*model.EntityAlias, error) {
	query := `SELECT user_id, entity_id, group_id, created_at FROM entity_aliases WHERE user_id = $1 AND entity_id = $2`

	member, err := scanAliasMember(r.pool.QueryRow(ctx, query, string(userID), string(entityID)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(types.ErrAliasNotFound, "entity has no alias membership",
				goerr.V("userID", userID),
				goerr.V("entityID", entityID))
		}
		return nil, goerr.Wrap(err, "failed to get alias membership", goerr.V("entityID", entityID))
	}

	return member, nil
}

func (r *aliasRepository) GetGroup(ctx context.Context, userID types.UserID, groupID types.AliasGroupID) (*model.AliasGroup, error) {
	query := `SELECT id, user_id, canonical_entity_id, created_at FROM alias_groups WHERE user_id = $1 AND id = $2`

	var g model.AliasGroup
	var id, owner, canonical string
	err := r.pool.QueryRow(ctx, query, string(userID), string(groupID)).Scan(&id, &owner, &canonical, &g.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, goerr.Wrap(types.ErrAliasGroupNotFound, "alias group not found",
				goerr.V("userID", userID),
				goerr.V("groupID", groupID))
		}
		return nil, goerr.Wrap(err, "failed to get alias group", goerr.V("groupID", groupID))
	}

	g.ID = types.AliasGroupID(id)
	g.UserID = types.UserID(owner)
	g.CanonicalEntityID = types.EntityID(canonical)
	return &g, nil
}

func (r *aliasRepository) CreateGroup(ctx context.Context, group *model.AliasGroup) (*model.AliasGroup, error) {
	if group.UserID == "" {
		return nil, goerr.New("user ID is required")
	}

	if group.ID == "" {
		group.ID = types.NewAliasGroupID()
	}
	group.CreatedAt = time.Now().UTC()

	query := `INSERT INTO alias_groups (id, user_id, canonical_entity_id, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query,
		string(group.ID),
		string(group.UserID),
		string(group.CanonicalEntityID),
		group.CreatedAt,
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create alias group", goerr.V("groupID", group.ID))
	}

	return group, nil
}

func (r *aliasRepository) AddMember(ctx context.Context, userID types.UserID, groupID types.AliasGroupID, entityID types.EntityID) error {
	query := `INSERT INTO entity_aliases (user_id, entity_id, group_id, created_at) VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, query,
		string(userID),
		string(entityID),
		string(groupID),
		time.Now().UTC(),
	)
	if err != nil {
		if isPgErrCode(err, pgUniqueViolation) {
			return goerr.Wrap(types.ErrAliasExists, "entity is already in an alias group",
				goerr.V("userID", userID),
				goerr.V("entityID", entityID))
		}
		if isPgErrCode(err, pgForeignKeyViolation) {
			return goerr.Wrap(types.ErrAliasGroupNotFound, "alias group not found",
				goerr.V("userID", userID),
				goerr.V("groupID", groupID))
		}
		return goerr.Wrap(err, "failed to add alias member", goerr.V("entityID", entityID))
	}

	return nil
}

func (r *aliasRepository) ListMembers(ctx context.Context, userID types.UserID, groupID types.AliasGroupID) ([]*model.EntityAlias, error) {
	query := `
		SELECT user_id, entity_id, group_id, created_at
		FROM entity_aliases
		WHERE user_id = $1 AND group_id = $2
		ORDER BY entity_id ASC
	`
	rows, err := r.pool.Query(ctx, query, string(userID), string(groupID))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list alias members", goerr.V("groupID", groupID))
	}
	defer rows.Close()

	members := make([]*model.EntityAlias, 0)
	for rows.Next() {
		member, err := scanAliasMember(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan alias member")
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to iterate alias members")
	}

	return members, nil
}

func (r *aliasRepository) MoveMembers(ctx context.Context, userID types.UserID, fromGroupID, toGroupID types.AliasGroupID) (int, error) {
	query := `UPDATE entity_aliases SET group_id = $1 WHERE user_id = $2 AND group_id = $3`
	tag, err := r.pool.Exec(ctx, query, string(toGroupID), string(userID), string(fromGroupID))
	if err != nil {
		return 0, goerr.Wrap(err, "failed to move alias members",
			goerr.V("fromGroupID", fromGroupID),
			goerr.V("toGroupID", toGroupID))
	}

	return int(tag.RowsAffected()), nil
}

func (r *aliasRepository) DeleteGroup(ctx context.Context, userID types.UserID, groupID types.AliasGroupID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM alias_groups WHERE user_id = $1 AND id = $2`, string(userID), string(groupID))
	if err != nil {
		return goerr.Wrap(err, "failed to delete alias group", goerr.V("groupID", groupID))
	}
	if tag.RowsAffected() == 0 {
		return goerr.Wrap(types.ErrAliasGroupNotFound, "alias group not found",
			goerr.V("userID", userID),
			goerr.V("groupID", groupID))
	}

	return nil
}

func (r *aliasRepository) CountGroupsByUser(ctx context.Context, userID types.UserID) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM alias_groups WHERE user_id = $1`, string(userID)).Scan(&count); err != nil {
		return 0, goerr.Wrap(err, "failed to count alias groups", goerr.V("userID", userID))
	}
	return count, nil
}
