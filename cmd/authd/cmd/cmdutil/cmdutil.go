// Package cmdutil carries state and helpers shared by the authd subcommands.
package cmdutil

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/ArashRezazadeh/DataAnnotations/internal/config"
	"github.com/ArashRezazadeh/DataAnnotations/internal/db/bunx"
	"github.com/ArashRezazadeh/DataAnnotations/internal/migrations"
	"github.com/ArashRezazadeh/DataAnnotations/internal/repository"
)

// Command annotations read by the root pre-run hook.
const (
	AnnotationSigningKey = "authd/signing-key"
	AnnotationNoConfig   = "authd/no-config"
)

var (
	runtimeCfg    *config.Config
	runtimeLogger = zap.NewNop()
)

// SetRuntime records the loaded configuration and logger for subcommands.
func SetRuntime(cfg *config.Config, logger *zap.Logger) {
	runtimeCfg = cfg
	if logger != nil {
		runtimeLogger = logger
	}
}

// Config returns the configuration loaded by the root command.
func Config() *config.Config { return runtimeCfg }

// Logger returns the process logger, a no-op logger before configuration.
func Logger() *zap.Logger { return runtimeLogger }

// NeedsSigningKey reports whether cmd resolves the JWT signing key at startup.
func NeedsSigningKey(cmd *cobra.Command) bool {
	return cmd.Annotations[AnnotationSigningKey] == "true"
}

// SkipsConfig reports whether cmd runs without loading configuration.
func SkipsConfig(cmd *cobra.Command) bool {
	return cmd.Annotations[AnnotationNoConfig] == "true"
}

// DirectoryBundle couples the user repository with its DB connection.
type DirectoryBundle struct {
	Users *repository.BunUserRepository
	DB    *bun.DB
}

// Close releases the underlying database connection.
func (b *DirectoryBundle) Close() {
	if b == nil || b.DB == nil {
		return
	}
	_ = bunx.Close(b.DB)
}

// OpenDirectory connects to the configured database, applies pending
// migrations and returns the account store.
func OpenDirectory(ctx context.Context, cfg *config.Config) (*DirectoryBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration not loaded")
	}
	db, err := bunx.NewDB(ctx, cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := migrations.Apply(ctx, db); err != nil {
		_ = bunx.Close(db)
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	users, err := repository.NewBunUserRepository(db)
	if err != nil {
		_ = bunx.Close(db)
		return nil, err
	}
	return &DirectoryBundle{Users: users, DB: db}, nil
}
