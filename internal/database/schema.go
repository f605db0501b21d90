package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// schemaStatements holds the DDL for the dictionary and rating tables.
// {{pk}} expands to the driver's auto-increment primary key column.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id {{pk}},
		name TEXT NOT NULL,
		weight INTEGER NOT NULL,
		origin TEXT NOT NULL DEFAULT 'custom',
		UNIQUE (name, weight)
	)`,
	`CREATE TABLE IF NOT EXISTS words (
		id {{pk}},
		name TEXT NOT NULL UNIQUE,
		origin TEXT NOT NULL DEFAULT 'custom'
	)`,
	`CREATE TABLE IF NOT EXISTS word_features (
		id {{pk}},
		category_id BIGINT NOT NULL REFERENCES categories (id),
		strength TEXT NOT NULL,
		weight INTEGER NOT NULL,
		origin TEXT NOT NULL DEFAULT 'custom',
		UNIQUE (category_id, strength, weight)
	)`,
	`CREATE TABLE IF NOT EXISTS word_feature_links (
		word_id BIGINT NOT NULL REFERENCES words (id),
		feature_id BIGINT NOT NULL REFERENCES word_features (id),
		PRIMARY KEY (word_id, feature_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_storage (
		user_id BIGINT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS user_categories (
		user_id BIGINT NOT NULL REFERENCES user_storage (user_id),
		category_id BIGINT NOT NULL REFERENCES categories (id),
		PRIMARY KEY (user_id, category_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_words (
		user_id BIGINT NOT NULL REFERENCES user_storage (user_id),
		word_id BIGINT NOT NULL REFERENCES words (id),
		PRIMARY KEY (user_id, word_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_word_features (
		user_id BIGINT NOT NULL REFERENCES user_storage (user_id),
		feature_id BIGINT NOT NULL REFERENCES word_features (id),
		PRIMARY KEY (user_id, feature_id)
	)`,
	`CREATE TABLE IF NOT EXISTS contents (
		id {{pk}},
		title TEXT NOT NULL,
		creator TEXT NOT NULL,
		media INTEGER NOT NULL,
		UNIQUE (title, creator, media)
	)`,
	`CREATE TABLE IF NOT EXISTS content_ratings (
		id {{pk}},
		uuid TEXT NOT NULL UNIQUE,
		content_id BIGINT NOT NULL REFERENCES contents (id),
		rating INTEGER NOT NULL,
		created TIMESTAMP NOT NULL,
		updated TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS category_ratings (
		id {{pk}},
		category_id BIGINT NOT NULL REFERENCES categories (id),
		rating INTEGER NOT NULL,
		UNIQUE (category_id, rating)
	)`,
	`CREATE TABLE IF NOT EXISTS word_counts (
		id {{pk}},
		word_id BIGINT NOT NULL REFERENCES words (id),
		count INTEGER NOT NULL,
		UNIQUE (word_id, count)
	)`,
	`CREATE TABLE IF NOT EXISTS content_rating_categories (
		rating_id BIGINT NOT NULL REFERENCES content_ratings (id),
		category_rating_id BIGINT NOT NULL REFERENCES category_ratings (id),
		PRIMARY KEY (rating_id, category_rating_id)
	)`,
	`CREATE TABLE IF NOT EXISTS content_rating_word_counts (
		rating_id BIGINT NOT NULL REFERENCES content_ratings (id),
		word_count_id BIGINT NOT NULL REFERENCES word_counts (id),
		PRIMARY KEY (rating_id, word_count_id)
	)`,
	`CREATE TABLE IF NOT EXISTS user_ratings (
		user_id BIGINT NOT NULL REFERENCES user_storage (user_id),
		rating_id BIGINT NOT NULL REFERENCES content_ratings (id),
		PRIMARY KEY (user_id, rating_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_word_features_category ON word_features (category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_content_ratings_content ON content_ratings (content_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_ratings_user ON user_ratings (user_id)`,
}

// Migrate creates the schema when it does not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	pk := "BIGSERIAL PRIMARY KEY"
	if db.DriverName() == "sqlite3" {
		pk = "INTEGER PRIMARY KEY AUTOINCREMENT"
	}

	for _, stmt := range schemaStatements {
		stmt = strings.ReplaceAll(stmt, "{{pk}}", pk)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
