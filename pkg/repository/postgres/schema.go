package postgres

// schema contains the SQL statements to create the database schema. All
// statements use IF NOT EXISTS so the whole block is idempotent. The vector
// dimension is pinned to the embedding model of the deployment; changing it
// requires re-embedding everything, not a migration.
const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

-- Entities: one row per (user, name). The description accumulates context
-- snippets over time and its embedding is recomputed on every append.
CREATE TABLE IF NOT EXISTS entities (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    description_embedding vector(768),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    UNIQUE(user_id, name)
);

-- Alias groups: equivalence classes over entities of one user.
CREATE TABLE IF NOT EXISTS alias_groups (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    canonical_entity_id TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- Alias memberships: the primary key keeps every entity in at most one
-- group; the foreign key rejects members of groups that do not exist.
CREATE TABLE IF NOT EXISTS entity_aliases (
    user_id TEXT NOT NULL,
    entity_id TEXT NOT NULL,
    group_id TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    PRIMARY KEY (user_id, entity_id),
    FOREIGN KEY (group_id) REFERENCES alias_groups(id)
);

-- Relationships: directed labeled edges with provenance. Deduplicated by
-- the full (user, source, label, target) key. description_embedding stays
-- NULL until the elaboration backfill succeeds.
CREATE TABLE IF NOT EXISTS relationships (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    source_entity_id TEXT NOT NULL,
    label TEXT NOT NULL,
    target_entity_id TEXT NOT NULL,
    label_embedding vector(768),
    description TEXT NOT NULL DEFAULT '',
    description_embedding vector(768),
    original_input TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    UNIQUE(user_id, source_entity_id, label, target_entity_id)
);

-- Lookup indexes

CREATE INDEX IF NOT EXISTS idx_entities_user ON entities(user_id);
CREATE INDEX IF NOT EXISTS idx_alias_groups_user ON alias_groups(user_id);
CREATE INDEX IF NOT EXISTS idx_entity_aliases_group ON entity_aliases(user_id, group_id);
CREATE INDEX IF NOT EXISTS idx_relationships_user_source ON relationships(user_id, source_entity_id);

-- Backfill scans for edges still missing their elaborated description.
CREATE INDEX IF NOT EXISTS idx_relationships_no_description
    ON relationships(user_id, created_at)
    WHERE description_embedding IS NULL;

-- Approximate nearest-neighbor index for the fuzzy anchor lookup. ivfflat
-- needs existing rows to pick centroids, so creation is deferred until the
-- table has data; until then the planner falls back to a sequential scan,
-- which is fine at small sizes.
DO $$
BEGIN
  IF NOT EXISTS (
    SELECT 1 FROM pg_indexes WHERE indexname = 'idx_entities_embedding_cosine'
  ) THEN
    IF EXISTS (SELECT 1 FROM entities LIMIT 1) THEN
      EXECUTE 'CREATE INDEX idx_entities_embedding_cosine ON entities USING ivfflat (description_embedding vector_cosine_ops) WITH (lists = 100)';
    END IF;
  END IF;
END$$;
`
