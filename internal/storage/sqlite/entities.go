package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/devhaven/memoryd/internal/types"
)

var slugNonWord = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugNonWord.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// findOrCreateEntity resolves (type, canonical_name) to an entity row,
// creating one with mention_count 1 on first sight and incrementing
// mention_count on every subsequent resolution. The increment is purely
// observational (see types.Entity.MentionCount) and never affects any
// resolution decision.
func findOrCreateEntity(ctx context.Context, e execer, entityType, canonicalName string) (*types.Entity, error) {
	slug := slugify(canonicalName)
	if slug == "" {
		return nil, fmt.Errorf("findOrCreateEntity: empty slug for name %q", canonicalName)
	}

	row := e.QueryRowContext(ctx, `
SELECT id, type, canonical_name, slug, first_seen, mention_count
FROM entities WHERE type = ? AND slug = ?`, entityType, slug)

	ent, err := scanEntity(row)
	if err == nil {
		if _, uerr := e.ExecContext(ctx, `UPDATE entities SET mention_count = mention_count + 1 WHERE id = ?`, ent.ID); uerr != nil {
			return nil, fmt.Errorf("bump mention_count for entity %d: %w", ent.ID, uerr)
		}
		ent.MentionCount++
		return ent, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("lookup entity %s/%s: %w", entityType, slug, err)
	}

	res, err := e.ExecContext(ctx, `
INSERT INTO entities (type, canonical_name, slug, first_seen, mention_count)
VALUES (?, ?, ?, CURRENT_TIMESTAMP, 1)`, entityType, canonicalName, slug)
	if err != nil {
		return nil, fmt.Errorf("insert entity %s/%s: %w", entityType, slug, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("entity last insert id: %w", err)
	}
	return &types.Entity{
		ID: id, Type: entityType, CanonicalName: canonicalName, Slug: slug, MentionCount: 1,
	}, nil
}

func entityBySlug(ctx context.Context, e execer, entityType, slug string) (*types.Entity, error) {
	row := e.QueryRowContext(ctx, `
SELECT id, type, canonical_name, slug, first_seen, mention_count
FROM entities WHERE type = ? AND slug = ?`, entityType, slug)
	ent, err := scanEntity(row)
	if err != nil {
		return nil, fmt.Errorf("entity by slug %s/%s: %w", entityType, slug, wrapNotFound(err))
	}
	return ent, nil
}

func entityByID(ctx context.Context, e execer, id int64) (*types.Entity, error) {
	row := e.QueryRowContext(ctx, `
SELECT id, type, canonical_name, slug, first_seen, mention_count
FROM entities WHERE id = ?`, id)
	ent, err := scanEntity(row)
	if err != nil {
		return nil, fmt.Errorf("entity by id %d: %w", id, wrapNotFound(err))
	}
	return ent, nil
}

func scanEntity(row *sql.Row) (*types.Entity, error) {
	var ent types.Entity
	if err := row.Scan(&ent.ID, &ent.Type, &ent.CanonicalName, &ent.Slug, &ent.FirstSeen, &ent.MentionCount); err != nil {
		return nil, err
	}
	return &ent, nil
}

func addEntityAlias(ctx context.Context, e execer, alias *types.EntityAlias) error {
	source := alias.Source
	if source == "" {
		source = "resolver"
	}
	_, err := e.ExecContext(ctx, `
INSERT INTO entity_aliases (entity_id, alias, source, confidence)
VALUES (?, ?, ?, ?)
ON CONFLICT(entity_id, alias) DO NOTHING`, alias.EntityID, alias.Alias, source, alias.Confidence)
	if err != nil {
		return fmt.Errorf("insert entity alias %q: %w", alias.Alias, err)
	}
	return nil
}

func (s *SQLiteStorage) FindOrCreateEntity(ctx context.Context, entityType, canonicalName string) (*types.Entity, error) {
	return findOrCreateEntity(ctx, s.db, entityType, canonicalName)
}

func (s *SQLiteStorage) EntityBySlug(ctx context.Context, entityType, slug string) (*types.Entity, error) {
	return entityBySlug(ctx, s.db, entityType, slug)
}

func (s *SQLiteStorage) EntityByID(ctx context.Context, id int64) (*types.Entity, error) {
	return entityByID(ctx, s.db, id)
}

func (s *SQLiteStorage) AddEntityAlias(ctx context.Context, alias *types.EntityAlias) error {
	return addEntityAlias(ctx, s.db, alias)
}

func (t *sqlTransaction) FindOrCreateEntity(ctx context.Context, entityType, canonicalName string) (*types.Entity, error) {
	return findOrCreateEntity(ctx, t.tx, entityType, canonicalName)
}

func (t *sqlTransaction) EntityByID(ctx context.Context, id int64) (*types.Entity, error) {
	return entityByID(ctx, t.tx, id)
}

func (t *sqlTransaction) AddEntityAlias(ctx context.Context, alias *types.EntityAlias) error {
	return addEntityAlias(ctx, t.tx, alias)
}
