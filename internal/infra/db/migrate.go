package db

import (
	"context"
	"database/sql"
	"fmt"
)

// postgresSchema is applied in order; every statement is idempotent.
var postgresSchema = []string{
	`
CREATE TABLE IF NOT EXISTS articles (
    id            BIGSERIAL PRIMARY KEY,
    url           TEXT NOT NULL UNIQUE,
    title         TEXT NOT NULL,
    summary       TEXT NOT NULL DEFAULT '',
    content       TEXT NOT NULL DEFAULT '',
    source        TEXT NOT NULL,
    published_at  TIMESTAMPTZ NOT NULL,
    sentiment     TEXT NOT NULL DEFAULT 'neutral'
                  CHECK (sentiment IN ('positive', 'negative', 'neutral')),
    topics        JSONB NOT NULL DEFAULT '[]'::jsonb,
    keywords      JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    search_vector tsvector GENERATED ALWAYS AS (
        to_tsvector('english', title || ' ' || summary || ' ' || content)
    ) STORED
)`,
	`
CREATE TABLE IF NOT EXISTS users (
    id            UUID PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    name          TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    pref_topics   JSONB NOT NULL DEFAULT '[]'::jsonb,
    pref_sources  JSONB NOT NULL DEFAULT '[]'::jsonb,
    pref_keywords JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`
CREATE TABLE IF NOT EXISTS user_saved_articles (
    user_id    UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    article_id BIGINT NOT NULL REFERENCES articles(id),
    saved_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (user_id, article_id)
)`,
	// フィード取得は常に published_at DESC
	`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source)`,
	// topics ?| ARRAY[...] 用
	`CREATE INDEX IF NOT EXISTS idx_articles_topics_gin ON articles USING gin(topics)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_search_vector ON articles USING gin(search_vector)`,
	`CREATE INDEX IF NOT EXISTS idx_user_saved_articles_saved_at ON user_saved_articles(user_id, saved_at)`,
}

// sqliteSchema mirrors postgresSchema. JSON sets are TEXT and timestamps are
// fixed-width UTC strings so lexical order equals chronological order.
var sqliteSchema = []string{
	`PRAGMA foreign_keys = ON`,
	`
CREATE TABLE IF NOT EXISTS articles (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    url          TEXT NOT NULL UNIQUE,
    title        TEXT NOT NULL,
    summary      TEXT NOT NULL DEFAULT '',
    content      TEXT NOT NULL DEFAULT '',
    source       TEXT NOT NULL,
    published_at TEXT NOT NULL,
    sentiment    TEXT NOT NULL DEFAULT 'neutral'
                 CHECK (sentiment IN ('positive', 'negative', 'neutral')),
    topics       TEXT NOT NULL DEFAULT '[]',
    keywords     TEXT NOT NULL DEFAULT '[]',
    created_at   TEXT NOT NULL
)`,
	`
CREATE TABLE IF NOT EXISTS users (
    id            TEXT PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    name          TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    pref_topics   TEXT NOT NULL DEFAULT '[]',
    pref_sources  TEXT NOT NULL DEFAULT '[]',
    pref_keywords TEXT NOT NULL DEFAULT '[]',
    created_at    TEXT NOT NULL
)`,
	`
CREATE TABLE IF NOT EXISTS user_saved_articles (
    user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    article_id INTEGER NOT NULL REFERENCES articles(id),
    saved_at   TEXT NOT NULL,
    PRIMARY KEY (user_id, article_id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_published_at ON articles(published_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_articles_source ON articles(source)`,
	`CREATE INDEX IF NOT EXISTS idx_user_saved_articles_saved_at ON user_saved_articles(user_id, saved_at)`,
}

// MigrateUp applies the schema for driver (DriverPostgres or DriverSQLite).
func MigrateUp(ctx context.Context, db *sql.DB, driver string) error {
	schema := postgresSchema
	if driver == DriverSQLite {
		schema = sqliteSchema
	}

	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
