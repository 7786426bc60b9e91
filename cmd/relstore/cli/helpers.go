package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/viper"
	_ "modernc.org/sqlite"

	"github.com/relstore/relstore/internal/config"
	"github.com/relstore/relstore/internal/introspect"
	"github.com/relstore/relstore/internal/model"
)

// openFamily loads the config, opens the database, and builds the
// schema family during this trusted initialization step. The caller
// must Close the returned pool.
func openFamily(ctx context.Context) (*sqlx.DB, *model.SchemaFamily, *slog.Logger, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, nil, err
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	db, err := sqlx.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	family, err := introspect.Family(ctx, db, introspect.Options{
		Exclude:          cfg.Exclude,
		JunctionPrefix:   cfg.JunctionPrefix,
		JunctionSplitter: cfg.JunctionSplitter,
	})
	if err != nil {
		db.Close()
		return nil, nil, nil, fmt.Errorf("resolve schema family: %w", err)
	}
	logger.Debug("schema family resolved", "tables", len(family.Schemas))

	return db, family, logger, nil
}
