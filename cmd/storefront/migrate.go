package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vladislavdragonenkov/storefront/internal/storage/postgres"
)

const defaultMigrateTimeout = 30 * time.Second

// migrator описывает операции со схемой, которые нужны команде migrate.
type migrator interface {
	MigrateUp(ctx context.Context, steps int) error
	MigrateDown(ctx context.Context, steps int) error
	MigrationStatus(ctx context.Context) (int64, int, error)
	Close() error
}

var openMigrator = func(ctx context.Context, dsn string) (migrator, error) {
	return postgres.Open(ctx, dsn)
}

func migrateCmd(c *cli) *cobra.Command {
	var (
		steps   int
		dsn     string
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:       "migrate up|down|status",
		Short:     "Apply or roll back PostgreSQL migrations",
		Long:      `Управляет схемой PostgreSQL (корзины профилей и outbox checkout proxy).`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "status"},
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if strings.TrimSpace(dsn) == "" {
				dsn = strings.TrimSpace(c.cfg.PostgresDSN)
			}
			if dsn == "" {
				return errors.New("STOREFRONT_POSTGRES_DSN (or --dsn) is required")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			store, err := openMigrator(ctx, dsn)
			if err != nil {
				return fmt.Errorf("open postgres store: %w", err)
			}
			defer func() { err = errors.Join(err, store.Close()) }()

			return runMigration(ctx, store, args[0], steps, c)
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 0, "number of migrations to apply/rollback (0=all for up, 1 for down)")
	cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL DSN (default from config)")
	cmd.Flags().DurationVar(&timeout, "timeout", defaultMigrateTimeout, "overall migration timeout")
	return cmd
}

func runMigration(ctx context.Context, store migrator, direction string, steps int, c *cli) error {
	switch direction {
	case "up":
		if err := store.MigrateUp(ctx, steps); err != nil {
			return fmt.Errorf("migrate up failed: %w", err)
		}
	case "down":
		if steps <= 0 {
			steps = 1
		}
		if err := store.MigrateDown(ctx, steps); err != nil {
			return fmt.Errorf("migrate down failed: %w", err)
		}
	case "status":
	default:
		return fmt.Errorf("unsupported direction: %s (use up|down|status)", direction)
	}

	version, count, err := store.MigrationStatus(ctx)
	if err != nil {
		return fmt.Errorf("migration status failed: %w", err)
	}
	_, err = fmt.Fprintf(c.out, "migrate %s ok: version=%d applied=%d\n", direction, version, count)
	return err
}
