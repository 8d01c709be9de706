package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/formflow/backend/internal/config"
	"github.com/formflow/backend/internal/database"
	"github.com/formflow/backend/internal/logging"
)

// env carries what commands need from the outside world.
type env struct {
	loadConfig func() (*config.Config, error)
	openDB     func(cfg *config.Config) (*gorm.DB, error)
	out        io.Writer
}

func defaultEnv() *env {
	return &env{
		loadConfig: config.Load,
		openDB: func(cfg *config.Config) (*gorm.DB, error) {
			return database.New(&cfg.Database)
		},
		out: os.Stdout,
	}
}

func newRootCmd(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:           "formctl",
		Short:         "Administration CLI for forms, task templates and task inheritance",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetOut(e.out)
	root.SetErr(e.out)

	root.AddCommand(migrateCmd(e))
	root.AddCommand(templatesCmd(e))
	root.AddCommand(inheritCmd(e))
	root.AddCommand(tokenCmd(e))
	return root
}

// withDB loads configuration, opens the database and closes it after fn.
func (e *env) withDB(ctx context.Context, fn func(ctx context.Context, cfg *config.Config, db *gorm.DB) error) error {
	cfg, err := e.loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logging.Setup(cfg.Log); err != nil {
		return err
	}
	db, err := e.openDB(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	defer database.Close(db)
	return fn(ctx, cfg, db)
}

func migrateCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withDB(cmd.Context(), func(ctx context.Context, _ *config.Config, db *gorm.DB) error {
				if err := database.Migrate(db); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "migrated %d tables\n", len(database.Models()))
				return nil
			})
		},
	}
}
