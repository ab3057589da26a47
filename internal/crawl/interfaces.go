package crawl

import (
	"context"
	"errors"
	"time"

	"github.com/qwzhou89/foodcrawler/internal/page"
)

// ErrNotFound is returned by store lookups when no row matches.
var ErrNotFound = errors.New("not found")

// TaskStore persists crawl tasks.
type TaskStore interface {
	// ListAll returns every task ever created, finished or not. Used at
	// startup to rebuild the URL dedup set.
	ListAll(ctx context.Context) ([]Task, error)

	// ListUnfinished returns the current work queue.
	ListUnfinished(ctx context.Context) ([]Task, error)

	// Get returns the task with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (Task, error)

	// CreateTasks persists a batch of tasks atomically.
	CreateTasks(ctx context.Context, tasks []Task) error
}

// RecordStore persists restaurants and reviews.
type RecordStore interface {
	// RestaurantByTaskID returns the restaurant produced by the given task,
	// or ErrNotFound. Review-page extraction uses it to resolve the parent.
	RestaurantByTaskID(ctx context.Context, taskID string) (Restaurant, error)

	// CountRestaurants and CountReviews report totals for the status surface.
	CountRestaurants(ctx context.Context) (int64, error)
	CountReviews(ctx context.Context) (int64, error)
}

// TransitionStore commits a task transition as one atomic unit: follow-up
// tasks, domain records, and the finished flip of the source task either all
// land or none do.
type TransitionStore interface {
	CommitTransition(ctx context.Context, tr Transition) error
}

// Store is the full persistence surface the engine is wired with.
type Store interface {
	TaskStore
	RecordStore
	TransitionStore
}

// Fetcher retrieves a task's URL and returns the parsed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*page.Document, error)
}

// DedupSet remembers URLs already represented by a task row.
type DedupSet interface {
	// Seen reports whether url was already marked.
	Seen(url string) bool
	// MarkIfNew marks url and reports true if it was not seen before.
	MarkIfNew(url string) bool
}

// IDGenerator produces row ids (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
