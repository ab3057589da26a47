package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/qwzhou89/foodcrawler/internal/api"
	"github.com/qwzhou89/foodcrawler/internal/clock/system"
	"github.com/qwzhou89/foodcrawler/internal/config"
	"github.com/qwzhou89/foodcrawler/internal/crawl"
	"github.com/qwzhou89/foodcrawler/internal/dedup"
	"github.com/qwzhou89/foodcrawler/internal/engine"
	"github.com/qwzhou89/foodcrawler/internal/extract"
	collyfetcher "github.com/qwzhou89/foodcrawler/internal/fetcher/colly"
	"github.com/qwzhou89/foodcrawler/internal/id/uuid"
	"github.com/qwzhou89/foodcrawler/internal/metrics"
	memorystore "github.com/qwzhou89/foodcrawler/internal/store/memory"
	"github.com/qwzhou89/foodcrawler/internal/store/postgres"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run the crawler until the task frontier is exhausted",
		Long: `Seeds the task store from configuration when it is empty, otherwise
resumes every unfinished task, and crawls until no pending work remains.`,
		RunE: runCrawl,
	}
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	fetcher, err := collyfetcher.New(collyfetcher.Config{
		UserAgent:      cfg.Fetcher.UserAgent,
		Timeout:        cfg.FetchTimeout(),
		Delay:          cfg.FetchDelay(),
		AllowedDomains: cfg.Fetcher.AllowedDomains,
	})
	if err != nil {
		return fmt.Errorf("init fetcher: %w", err)
	}

	urls := dedup.NewURLSet()
	ids := uuid.NewGenerator()
	clock := system.New()

	extractors := map[crawl.TaskType]extract.Extractor{
		crawl.TaskTypeListing:    extract.NewListing(urls, ids, logger),
		crawl.TaskTypeRestaurant: extract.NewRestaurant(urls, ids, logger),
		crawl.TaskTypeReview:     extract.NewReview(store, ids, logger),
	}

	eng := engine.New(store, urls, fetcher, extractors, clock, ids, cfg.Seeds, engine.Config{
		Concurrency: cfg.Crawler.Concurrency,
		QueueDepth:  cfg.Crawler.QueueDepth,
	}, logger)

	srvDone := startOpsServer(ctx, cfg, store, logger)

	if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawler: %w", err)
	}

	stop()
	<-srvDone
	logger.Info("crawl command finished")
	return nil
}

// buildStore picks the configured persistence backend.
func buildStore(ctx context.Context, cfg config.Config) (crawl.Store, func(), error) {
	switch cfg.DB.Driver {
	case "postgres":
		pg, err := postgres.New(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("init postgres store: %w", err)
		}
		return pg, pg.Close, nil
	case "memory":
		return memorystore.NewStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown db.driver %q", cfg.DB.Driver)
	}
}

// startOpsServer runs the chi ops server until ctx ends. The returned
// channel closes once the server has shut down.
func startOpsServer(ctx context.Context, cfg config.Config, store crawl.Store, logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	if !cfg.Server.Enabled {
		close(done)
		return done
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewServer(store, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("ops server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ops server failed", zap.Error(err))
		}
	}()

	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("ops server shutdown failed", zap.Error(err))
		}
	}()

	return done
}
