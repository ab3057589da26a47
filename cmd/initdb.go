package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/qwzhou89/foodcrawler/internal/store/postgres"
)

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Create the crawler tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cfg.DB.Driver != "postgres" {
				return fmt.Errorf("initdb requires db.driver=postgres, got %q", cfg.DB.Driver)
			}

			store, err := postgres.New(cmd.Context(), postgres.Config{DSN: cfg.DB.DSN})
			if err != nil {
				return fmt.Errorf("init postgres store: %w", err)
			}
			defer store.Close()

			if err := store.InitSchema(cmd.Context()); err != nil {
				return err
			}
			logger.Info("schema created")
			return nil
		},
	}
}

func newDropDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dropdb",
		Short: "Drop the crawler tables and all crawled data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cfg.DB.Driver != "postgres" {
				return fmt.Errorf("dropdb requires db.driver=postgres, got %q", cfg.DB.Driver)
			}

			store, err := postgres.New(cmd.Context(), postgres.Config{DSN: cfg.DB.DSN})
			if err != nil {
				return fmt.Errorf("init postgres store: %w", err)
			}
			defer store.Close()

			if err := store.DropSchema(cmd.Context()); err != nil {
				return err
			}
			logger.Info("schema dropped")
			return nil
		},
	}
}
