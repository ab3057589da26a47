// Package memory provides an in-memory crawl.Store for tests and local
// development.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/qwzhou89/foodcrawler/internal/crawl"
)

// Store keeps tasks and records in maps behind one mutex. CommitTransition
// applies its writes under a single lock acquisition, so observers see the
// transition all-or-nothing just like the Postgres transaction.
type Store struct {
	mu          sync.RWMutex
	tasks       map[string]crawl.Task
	taskOrder   []string
	restaurants map[string]crawl.Restaurant // keyed by id
	byTask      map[string]string           // task id -> restaurant id
	reviews     []crawl.Review
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		tasks:       make(map[string]crawl.Task),
		restaurants: make(map[string]crawl.Restaurant),
		byTask:      make(map[string]string),
	}
}

// ListAll returns every task in creation order.
func (s *Store) ListAll(_ context.Context) ([]crawl.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawl.Task, 0, len(s.taskOrder))
	for _, id := range s.taskOrder {
		out = append(out, s.tasks[id])
	}
	return out, nil
}

// ListUnfinished returns pending tasks in creation order.
func (s *Store) ListUnfinished(_ context.Context) ([]crawl.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []crawl.Task
	for _, id := range s.taskOrder {
		if t := s.tasks[id]; !t.IsFinished {
			out = append(out, t)
		}
	}
	return out, nil
}

// Get returns one task or crawl.ErrNotFound.
func (s *Store) Get(_ context.Context, id string) (crawl.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return crawl.Task{}, fmt.Errorf("task %s: %w", id, crawl.ErrNotFound)
	}
	return task, nil
}

// CreateTasks stores a batch of tasks.
func (s *Store) CreateTasks(_ context.Context, tasks []crawl.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addTasks(tasks)
}

// CommitTransition applies a transition atomically.
func (s *Store) CommitTransition(_ context.Context, tr crawl.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[tr.TaskID]
	if !ok {
		return fmt.Errorf("task %s: %w", tr.TaskID, crawl.ErrNotFound)
	}
	if err := s.addTasks(tr.NewTasks); err != nil {
		return err
	}
	if tr.Restaurant != nil {
		s.restaurants[tr.Restaurant.ID] = *tr.Restaurant
		s.byTask[tr.Restaurant.TaskID] = tr.Restaurant.ID
	}
	s.reviews = append(s.reviews, tr.Reviews...)

	task.IsFinished = true
	s.tasks[tr.TaskID] = task
	return nil
}

// RestaurantByTaskID returns the restaurant a task produced, or
// crawl.ErrNotFound.
func (s *Store) RestaurantByTaskID(_ context.Context, taskID string) (crawl.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byTask[taskID]
	if !ok {
		return crawl.Restaurant{}, fmt.Errorf("restaurant for task %s: %w", taskID, crawl.ErrNotFound)
	}
	return s.restaurants[id], nil
}

// CountRestaurants returns the number of stored restaurants.
func (s *Store) CountRestaurants(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.restaurants)), nil
}

// CountReviews returns the number of stored reviews.
func (s *Store) CountReviews(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.reviews)), nil
}

// Reviews returns a copy of every stored review, for tests.
func (s *Store) Reviews() []crawl.Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawl.Review, len(s.reviews))
	copy(out, s.reviews)
	return out
}

func (s *Store) addTasks(tasks []crawl.Task) error {
	for _, t := range tasks {
		if _, exists := s.tasks[t.ID]; exists {
			return fmt.Errorf("task %s already exists", t.ID)
		}
		s.tasks[t.ID] = t
		s.taskOrder = append(s.taskOrder, t.ID)
	}
	return nil
}
