// Package postgres provides the Postgres-backed task and record stores.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/qwzhou89/foodcrawler/internal/crawl"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pool is the subset of pgxpool.Pool the store uses, narrowed so tests can
// substitute a pgxmock pool.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store implements crawl.Store on Postgres. A task transition commits its
// follow-up tasks, domain records, and finished flip in one transaction.
type Store struct {
	pool pool
}

// New connects a Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: p}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing).
func NewWithPool(p pool) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: p}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

const taskColumns = "id, city, url, type, is_finished, parent_id"

// ListAll returns every task row.
func (s *Store) ListAll(ctx context.Context) ([]crawl.Task, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+taskColumns+" FROM tasks")
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return scanTasks(rows)
}

// ListUnfinished returns the pending work queue.
func (s *Store) ListUnfinished(ctx context.Context) ([]crawl.Task, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+taskColumns+" FROM tasks WHERE is_finished = FALSE")
	if err != nil {
		return nil, fmt.Errorf("list unfinished tasks: %w", err)
	}
	return scanTasks(rows)
}

// Get returns one task, or crawl.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (crawl.Task, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id)
	task, err := scanTask(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return crawl.Task{}, fmt.Errorf("task %s: %w", id, crawl.ErrNotFound)
	}
	if err != nil {
		return crawl.Task{}, fmt.Errorf("get task %s: %w", id, err)
	}
	return task, nil
}

// CreateTasks persists a batch of tasks in one transaction.
func (s *Store) CreateTasks(ctx context.Context, tasks []crawl.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertTasks(ctx, tx, tasks); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// CommitTransition applies one task transition atomically.
func (s *Store) CommitTransition(ctx context.Context, tr crawl.Transition) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := insertTasks(ctx, tx, tr.NewTasks); err != nil {
		return err
	}
	if tr.Restaurant != nil {
		if err := insertRestaurant(ctx, tx, *tr.Restaurant); err != nil {
			return err
		}
	}
	for _, review := range tr.Reviews {
		if err := insertReview(ctx, tx, review); err != nil {
			return err
		}
	}

	tag, err := tx.Exec(ctx, "UPDATE tasks SET is_finished = TRUE WHERE id = $1", tr.TaskID)
	if err != nil {
		return fmt.Errorf("finish task %s: %w", tr.TaskID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("finish task %s: %w", tr.TaskID, crawl.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transition for task %s: %w", tr.TaskID, err)
	}
	return nil
}

// RestaurantByTaskID returns the restaurant produced by a task, or
// crawl.ErrNotFound.
func (s *Store) RestaurantByTaskID(ctx context.Context, taskID string) (crawl.Restaurant, error) {
	row := s.pool.QueryRow(ctx, `
SELECT id, city, name, alter_names, rating, rating_count, url, host_url,
       address, category, latitude, longitude, phone, review_count, tags, task_id
FROM restaurants WHERE task_id = $1`, taskID)

	var r crawl.Restaurant
	err := row.Scan(
		&r.ID, &r.City, &r.Name, &r.AlterNames, &r.Rating, &r.RatingCount,
		&r.URL, &r.HostURL, &r.Address, &r.Category, &r.Latitude, &r.Longitude,
		&r.Phone, &r.ReviewCount, &r.Tags, &r.TaskID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return crawl.Restaurant{}, fmt.Errorf("restaurant for task %s: %w", taskID, crawl.ErrNotFound)
	}
	if err != nil {
		return crawl.Restaurant{}, fmt.Errorf("restaurant for task %s: %w", taskID, err)
	}
	return r, nil
}

// CountRestaurants returns the number of restaurant rows.
func (s *Store) CountRestaurants(ctx context.Context) (int64, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM restaurants")
}

// CountReviews returns the number of review rows.
func (s *Store) CountReviews(ctx context.Context) (int64, error) {
	return s.count(ctx, "SELECT COUNT(*) FROM reviews")
}

func (s *Store) count(ctx context.Context, query string) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func insertTasks(ctx context.Context, tx pgx.Tx, tasks []crawl.Task) error {
	for _, t := range tasks {
		_, err := tx.Exec(ctx, `
INSERT INTO tasks (id, city, url, type, is_finished, parent_id)
VALUES ($1, $2, $3, $4, $5, $6)`,
			t.ID, t.City, t.URL, string(t.Type), t.IsFinished, t.ParentID,
		)
		if err != nil {
			return fmt.Errorf("insert task %s: %w", t.ID, err)
		}
	}
	return nil
}

func insertRestaurant(ctx context.Context, tx pgx.Tx, r crawl.Restaurant) error {
	_, err := tx.Exec(ctx, `
INSERT INTO restaurants (
	id, city, name, alter_names, rating, rating_count, url, host_url,
	address, category, latitude, longitude, phone, review_count, tags, task_id
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		r.ID, r.City, r.Name, r.AlterNames, r.Rating, r.RatingCount, r.URL,
		r.HostURL, r.Address, r.Category, r.Latitude, r.Longitude, r.Phone,
		r.ReviewCount, r.Tags, r.TaskID,
	)
	if err != nil {
		return fmt.Errorf("insert restaurant %s: %w", r.ID, err)
	}
	return nil
}

func insertReview(ctx context.Context, tx pgx.Tx, review crawl.Review) error {
	_, err := tx.Exec(ctx, `
INSERT INTO reviews (id, restaurant_id, rating, language, content, review_date, images, task_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		review.ID, review.RestaurantID, review.Rating, review.Language,
		review.Content, review.Date, review.Images, review.TaskID,
	)
	if err != nil {
		return fmt.Errorf("insert review %s: %w", review.ID, err)
	}
	return nil
}

func scanTasks(rows pgx.Rows) ([]crawl.Task, error) {
	defer rows.Close()
	var tasks []crawl.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func scanTask(row pgx.Row) (crawl.Task, error) {
	var t crawl.Task
	var typ string
	if err := row.Scan(&t.ID, &t.City, &t.URL, &typ, &t.IsFinished, &t.ParentID); err != nil {
		return crawl.Task{}, err
	}
	t.Type = crawl.TaskType(typ)
	return t, nil
}
