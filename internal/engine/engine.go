// Package engine drives the task lifecycle: it pulls unfinished tasks,
// dispatches each fetched document to the extractor matching the task's
// type, commits the outputs atomically, and schedules the follow-up fetches.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/qwzhou89/foodcrawler/internal/crawl"
	"github.com/qwzhou89/foodcrawler/internal/dedup"
	"github.com/qwzhou89/foodcrawler/internal/extract"
	"github.com/qwzhou89/foodcrawler/internal/metrics"
	memqueue "github.com/qwzhou89/foodcrawler/internal/queue/memory"
)

// Config controls Engine behavior.
type Config struct {
	Concurrency int
	QueueDepth  int
}

// Engine is the crawl orchestrator. It holds no persistent state itself: all
// durable state lives in the store, and the dedup set is rebuilt from the
// task table on startup.
type Engine struct {
	store      crawl.Store
	dedup      *dedup.URLSet
	fetcher    crawl.Fetcher
	extractors map[crawl.TaskType]extract.Extractor
	clock      crawl.Clock
	ids        crawl.IDGenerator
	seeds      []crawl.Seed
	cfg        Config
	logger     *zap.Logger

	queue       *memqueue.Queue
	outstanding atomic.Int64
}

// New constructs an Engine.
func New(
	store crawl.Store,
	urls *dedup.URLSet,
	fetcher crawl.Fetcher,
	extractors map[crawl.TaskType]extract.Extractor,
	clock crawl.Clock,
	ids crawl.IDGenerator,
	seeds []crawl.Seed,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = 4096
	}
	return &Engine{
		store:      store,
		dedup:      urls,
		fetcher:    fetcher,
		extractors: extractors,
		clock:      clock,
		ids:        ids,
		seeds:      seeds,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run bootstraps the task table, then fans the pending tasks out to workers
// until the crawl frontier is exhausted or the context ends.
func (e *Engine) Run(ctx context.Context) error {
	pending, err := e.Bootstrap(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		e.logger.Info("no unfinished tasks, nothing to crawl")
		return nil
	}
	e.logger.Info("starting crawl",
		zap.Int("pending_tasks", len(pending)),
		zap.Int("concurrency", e.cfg.Concurrency),
	)

	e.queue = memqueue.New(e.cfg.QueueDepth)
	for _, task := range pending {
		e.schedule(ctx, task)
	}

	var wg sync.WaitGroup
	for i := 0; i < e.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e.work(ctx)
		}()
	}
	wg.Wait()

	if ctx.Err() != nil {
		return fmt.Errorf("crawl interrupted: %w", ctx.Err())
	}
	e.logger.Info("crawl finished")
	return nil
}

// Bootstrap prepares a crawl run. With an empty task store it creates the
// seed listing tasks; otherwise it rebuilds the dedup set from every known
// task URL. Either way it returns the unfinished tasks to process. Running
// it twice against the same store creates no duplicate rows.
func (e *Engine) Bootstrap(ctx context.Context) ([]crawl.Task, error) {
	all, err := e.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	if len(all) == 0 {
		seedTasks := make([]crawl.Task, 0, len(e.seeds))
		for _, seed := range e.seeds {
			if !e.dedup.MarkIfNew(seed.URL) {
				continue
			}
			id, err := e.ids.NewID()
			if err != nil {
				return nil, fmt.Errorf("seed task id: %w", err)
			}
			seedTasks = append(seedTasks, crawl.Task{
				ID:   id,
				City: seed.City,
				URL:  seed.URL,
				Type: crawl.TaskTypeListing,
			})
		}
		if len(seedTasks) > 0 {
			if err := e.store.CreateTasks(ctx, seedTasks); err != nil {
				return nil, fmt.Errorf("create seed tasks: %w", err)
			}
			e.logger.Info("seeded task store", zap.Int("tasks", len(seedTasks)))
		}
	} else {
		urls := make([]string, 0, len(all))
		for _, t := range all {
			urls = append(urls, t.URL)
		}
		e.dedup.Seed(urls)
		e.logger.Info("resuming crawl", zap.Int("known_urls", len(urls)))
	}

	pending, err := e.store.ListUnfinished(ctx)
	if err != nil {
		return nil, fmt.Errorf("list unfinished tasks: %w", err)
	}
	return pending, nil
}

func (e *Engine) work(ctx context.Context) {
	for {
		task, err := e.queue.Dequeue(ctx)
		if err != nil {
			return
		}
		e.process(ctx, task)
		e.finish()
	}
}

// schedule registers a task as outstanding and hands it to the queue. The
// enqueue runs on its own goroutine so a producer holding the last queue
// slot can never deadlock the worker pool.
func (e *Engine) schedule(ctx context.Context, task crawl.Task) {
	e.outstanding.Add(1)
	go func() {
		if err := e.queue.Enqueue(ctx, task); err != nil {
			e.logger.Warn("enqueue failed", zap.String("task_id", task.ID), zap.Error(err))
			e.finish()
		}
	}()
}

func (e *Engine) finish() {
	if e.outstanding.Add(-1) == 0 {
		e.queue.Close()
	}
}

// process runs one task transition. Failures at any stage are logged and
// leave the task unfinished; the atomic commit guarantees no half-done state
// is ever observable.
func (e *Engine) process(ctx context.Context, queued crawl.Task) {
	// Reload the row: the queued copy may be stale across a long run.
	task, err := e.store.Get(ctx, queued.ID)
	if err != nil {
		e.logger.Error("task reload failed", zap.String("task_id", queued.ID), zap.Error(err))
		return
	}
	if task.IsFinished {
		e.logger.Debug("task already finished", zap.String("task_id", task.ID))
		return
	}

	extractor, ok := e.extractors[task.Type]
	if !ok {
		e.logger.Error("no extractor for task type",
			zap.String("task_id", task.ID),
			zap.String("type", string(task.Type)),
		)
		metrics.TaskProcessed(string(task.Type), "unknown_type")
		return
	}

	start := e.clock.Now()
	doc, err := e.fetcher.Fetch(ctx, task.URL)
	metrics.ObserveFetch(e.clock.Now().Sub(start), err)
	if err != nil {
		e.logger.Error("fetch failed",
			zap.String("task_id", task.ID),
			zap.String("url", task.URL),
			zap.Error(err),
		)
		metrics.TaskProcessed(string(task.Type), "fetch_error")
		return
	}

	out, err := extractor.Extract(ctx, doc, task)
	if err != nil {
		e.logger.Error("extraction failed",
			zap.String("task_id", task.ID),
			zap.String("url", task.URL),
			zap.Error(err),
		)
		metrics.TaskProcessed(string(task.Type), "extract_error")
		return
	}

	// Reviews found on the restaurant page itself inherit the restaurant
	// persisted in the same transition.
	if out.Restaurant != nil {
		for i := range out.Reviews {
			if out.Reviews[i].RestaurantID == "" {
				out.Reviews[i].RestaurantID = out.Restaurant.ID
			}
		}
	}

	tr := crawl.Transition{
		TaskID:     task.ID,
		NewTasks:   out.Tasks,
		Restaurant: out.Restaurant,
		Reviews:    out.Reviews,
	}
	if err := e.store.CommitTransition(ctx, tr); err != nil {
		e.logger.Error("transition commit failed",
			zap.String("task_id", task.ID),
			zap.Error(err),
		)
		metrics.TaskProcessed(string(task.Type), "commit_error")
		return
	}

	e.recordMetrics(task, out)
	e.logger.Info("task finished",
		zap.String("task_id", task.ID),
		zap.String("type", string(task.Type)),
		zap.Int("new_tasks", len(out.Tasks)),
		zap.Int("reviews", len(out.Reviews)),
	)

	for _, t := range out.Tasks {
		e.schedule(ctx, t)
	}
}

func (e *Engine) recordMetrics(task crawl.Task, out extract.Output) {
	metrics.TaskProcessed(string(task.Type), "finished")
	restaurants := 0
	if out.Restaurant != nil {
		restaurants = 1
	}
	metrics.RecordsSaved(restaurants, len(out.Reviews))
	byType := map[string]int{}
	for _, t := range out.Tasks {
		byType[string(t.Type)]++
	}
	for typ, n := range byType {
		metrics.TasksCreated(typ, n)
	}
}
