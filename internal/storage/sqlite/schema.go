package sqlite

// schema is the baseline DDL for a brand-new database (schema_version 1).
// Everything added by later schema versions lives in migrations.go instead
// of here, so that an existing database upgraded from v1 ends up with an
// identical shape to one created fresh and then migrated.
const schema = `
CREATE TABLE IF NOT EXISTS meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS content_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source TEXT NOT NULL,
    session_id TEXT NOT NULL,
    transcript_path TEXT NOT NULL,
    project_path TEXT NOT NULL DEFAULT '',
    occurred_at DATETIME,
    ingested_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    text_hash TEXT NOT NULL,
    byte_len INTEGER NOT NULL DEFAULT 0,
    raw_text TEXT NOT NULL DEFAULT '',
    git_branch TEXT DEFAULT '',
    cwd TEXT DEFAULT '',
    metadata_json TEXT DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS idx_content_items_session ON content_items(session_id);
CREATE INDEX IF NOT EXISTS idx_content_items_transcript ON content_items(transcript_path);
CREATE INDEX IF NOT EXISTS idx_content_items_ingested_at ON content_items(ingested_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_content_items_hash_session ON content_items(text_hash, session_id);

CREATE TABLE IF NOT EXISTS delta_cursors (
    session_id TEXT NOT NULL,
    transcript_path TEXT NOT NULL,
    last_byte_offset INTEGER NOT NULL DEFAULT 0,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (session_id, transcript_path)
);

CREATE TABLE IF NOT EXISTS entities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    type TEXT NOT NULL,
    canonical_name TEXT NOT NULL,
    slug TEXT NOT NULL,
    first_seen DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    mention_count INTEGER NOT NULL DEFAULT 1,
    UNIQUE(type, slug)
);

CREATE INDEX IF NOT EXISTS idx_entities_slug ON entities(slug);

CREATE TABLE IF NOT EXISTS entity_aliases (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    entity_id INTEGER NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
    alias TEXT NOT NULL,
    source TEXT NOT NULL DEFAULT 'resolver',
    confidence REAL NOT NULL DEFAULT 1.0,
    UNIQUE(entity_id, alias)
);

CREATE TABLE IF NOT EXISTS facts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    subject_entity_id INTEGER NOT NULL REFERENCES entities(id),
    predicate TEXT NOT NULL,
    object_entity_id INTEGER REFERENCES entities(id),
    object_literal TEXT DEFAULT '',
    datatype TEXT DEFAULT 'string',
    polarity TEXT NOT NULL DEFAULT 'positive' CHECK(polarity IN ('positive','negative')),
    valid_from DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    valid_to DATETIME,
    status TEXT NOT NULL DEFAULT 'active'
        CHECK(status IN ('active','superseded','disputed','proposed','expired')),
    confidence REAL NOT NULL DEFAULT 1.0,
    created_from TEXT DEFAULT '',
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    CHECK ((object_entity_id IS NOT NULL) OR (object_literal IS NOT NULL AND object_literal != ''))
);

CREATE INDEX IF NOT EXISTS idx_facts_subject_predicate ON facts(subject_entity_id, predicate);
CREATE INDEX IF NOT EXISTS idx_facts_status ON facts(status);

CREATE TABLE IF NOT EXISTS provenance (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    fact_id INTEGER NOT NULL REFERENCES facts(id) ON DELETE CASCADE,
    content_item_id INTEGER REFERENCES content_items(id) ON DELETE SET NULL,
    quote TEXT DEFAULT '',
    attribution_entity_id INTEGER REFERENCES entities(id),
    strength TEXT NOT NULL DEFAULT 'stated' CHECK(strength IN ('stated','inferred'))
);

CREATE INDEX IF NOT EXISTS idx_provenance_fact ON provenance(fact_id);
CREATE INDEX IF NOT EXISTS idx_provenance_content_item ON provenance(content_item_id);

CREATE TABLE IF NOT EXISTS fact_links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    from_fact_id INTEGER NOT NULL REFERENCES facts(id) ON DELETE CASCADE,
    to_fact_id INTEGER NOT NULL REFERENCES facts(id) ON DELETE CASCADE,
    link_type TEXT NOT NULL DEFAULT 'supersedes'
);

CREATE INDEX IF NOT EXISTS idx_fact_links_from ON fact_links(from_fact_id);
CREATE INDEX IF NOT EXISTS idx_fact_links_to ON fact_links(to_fact_id);

CREATE TABLE IF NOT EXISTS conflicts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    fact_a_id INTEGER NOT NULL REFERENCES facts(id) ON DELETE CASCADE,
    fact_b_id INTEGER NOT NULL REFERENCES facts(id) ON DELETE CASCADE,
    status TEXT NOT NULL DEFAULT 'open' CHECK(status IN ('open','resolved')),
    detected_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    notes TEXT DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_conflicts_status ON conflicts(status);

-- Full text search over content_items.raw_text (external content table,
-- kept in sync by the triggers below; see internal/storage/sqlite/fts.go
-- for the rebuild helper used after bulk loads).
CREATE VIRTUAL TABLE IF NOT EXISTS content_items_fts USING fts5(
    raw_text,
    content='content_items',
    content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS content_items_ai AFTER INSERT ON content_items BEGIN
    INSERT INTO content_items_fts(rowid, raw_text) VALUES (new.id, new.raw_text);
END;

CREATE TRIGGER IF NOT EXISTS content_items_ad AFTER DELETE ON content_items BEGIN
    INSERT INTO content_items_fts(content_items_fts, rowid, raw_text) VALUES('delete', old.id, old.raw_text);
END;

CREATE TRIGGER IF NOT EXISTS content_items_au AFTER UPDATE ON content_items BEGIN
    INSERT INTO content_items_fts(content_items_fts, rowid, raw_text) VALUES('delete', old.id, old.raw_text);
    INSERT INTO content_items_fts(rowid, raw_text) VALUES (new.id, new.raw_text);
END;
`
