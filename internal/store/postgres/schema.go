package postgres

import (
	"context"
	"fmt"
)

// Schema statements, applied in order by InitSchema. Tasks come first so the
// record tables can reference them.
var createStatements = []string{
	`CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	city        TEXT NOT NULL,
	url         TEXT NOT NULL,
	type        TEXT NOT NULL,
	is_finished BOOLEAN NOT NULL DEFAULT FALSE,
	parent_id   TEXT NOT NULL DEFAULT ''
)`,
	`CREATE TABLE IF NOT EXISTS restaurants (
	id           TEXT PRIMARY KEY,
	city         TEXT NOT NULL,
	name         TEXT NOT NULL,
	alter_names  TEXT NOT NULL DEFAULT '',
	rating       INTEGER NOT NULL DEFAULT 0,
	rating_count TEXT NOT NULL DEFAULT '0,0,0,0,0',
	url          TEXT NOT NULL,
	host_url     TEXT NOT NULL DEFAULT '',
	address      TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL DEFAULT '',
	latitude     TEXT NOT NULL DEFAULT '',
	longitude    TEXT NOT NULL DEFAULT '',
	phone        TEXT NOT NULL DEFAULT '',
	review_count INTEGER NOT NULL DEFAULT 0,
	tags         TEXT NOT NULL DEFAULT '',
	task_id      TEXT NOT NULL REFERENCES tasks(id)
)`,
	`CREATE TABLE IF NOT EXISTS reviews (
	id            TEXT PRIMARY KEY,
	restaurant_id TEXT NOT NULL REFERENCES restaurants(id),
	rating        DOUBLE PRECISION NOT NULL DEFAULT -0.1,
	language      TEXT NOT NULL DEFAULT '',
	content       BYTEA NOT NULL,
	review_date   DATE NOT NULL,
	images        TEXT NOT NULL DEFAULT '',
	task_id       TEXT NOT NULL REFERENCES tasks(id)
)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_unfinished ON tasks (is_finished) WHERE is_finished = FALSE`,
	`CREATE INDEX IF NOT EXISTS idx_restaurants_task ON restaurants (task_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_restaurant ON reviews (restaurant_id)`,
}

var dropStatements = []string{
	`DROP TABLE IF EXISTS reviews`,
	`DROP TABLE IF EXISTS restaurants`,
	`DROP TABLE IF EXISTS tasks`,
}

// InitSchema creates the crawler tables if they do not exist.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range createStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// DropSchema removes the crawler tables and all crawled data.
func (s *Store) DropSchema(ctx context.Context) error {
	for _, stmt := range dropStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("drop schema: %w", err)
		}
	}
	return nil
}
