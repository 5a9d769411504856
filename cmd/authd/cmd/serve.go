package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ArashRezazadeh/DataAnnotations/cmd/authd/cmd/cmdutil"
	"github.com/ArashRezazadeh/DataAnnotations/internal/authz"
	"github.com/ArashRezazadeh/DataAnnotations/internal/config"
	"github.com/ArashRezazadeh/DataAnnotations/internal/db/bunx"
	"github.com/ArashRezazadeh/DataAnnotations/internal/iam"
	"github.com/ArashRezazadeh/DataAnnotations/internal/migrations"
	"github.com/ArashRezazadeh/DataAnnotations/internal/repository"
	"github.com/ArashRezazadeh/DataAnnotations/internal/server"
	"github.com/ArashRezazadeh/DataAnnotations/internal/session"
	"github.com/ArashRezazadeh/DataAnnotations/internal/telemetry"
	"github.com/ArashRezazadeh/DataAnnotations/internal/token"
)

// version is overridden at build time with -ldflags "-X".
var version = "dev"

const shutdownTimeout = 10 * time.Second

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Start the account server",
	Long:        `Starts the HTTP server exposing /api/account and /health.`,
	Annotations: map[string]string{cmdutil.AnnotationSigningKey: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		shutdownTracing, err := telemetry.Init(ctx, telemetry.Config{
			Endpoint:    cfg.OTel.Endpoint,
			Insecure:    cfg.OTel.Insecure,
			ServiceName: cfg.OTel.ServiceName,
			Version:     version,
		}, logger)
		if err != nil {
			return err
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdownTracing(sctx); err != nil {
				logger.Warn("tracer shutdown failed", zap.Error(err))
			}
		}()

		db, err := bunx.NewDB(ctx, cfg.Database.URL)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db) //nolint:errcheck
		logger.Info("connected to database")

		if !skipMigrate {
			group, err := migrations.Apply(ctx, db)
			if err != nil {
				return err
			}
			if !group.IsZero() {
				logger.Info("applied migration group", zap.Int64("group", group.ID))
			}
		}

		users, err := repository.NewBunUserRepository(db)
		if err != nil {
			return err
		}

		backend, closeBackend, err := openSessionBackend(ctx, cfg, db)
		if err != nil {
			return err
		}
		defer closeBackend()

		sessions, err := session.NewManager(backend, session.Options{
			SlidingWindow: cfg.Session.SlidingWindow,
			MaxLifetime:   cfg.Session.MaxLifetime,
			Logger:        logger.Named("session"),
		})
		if err != nil {
			return err
		}

		revocations, revokedRepo, err := openRevocationList(cfg, db)
		if err != nil {
			return err
		}

		signer, err := token.NewSigner(cfg.SigningKey)
		if err != nil {
			return err
		}

		svc, err := iam.NewService(iam.ServiceDependencies{
			Verifier:    users,
			Directory:   users,
			Signer:      signer,
			Sessions:    sessions,
			Revocations: revocations,
			Logger:      logger.Named("iam"),
		}, iam.ServiceConfig{
			Issuer:             cfg.JWT.Issuer,
			Audience:           cfg.JWT.Audience,
			TokenTTL:           cfg.JWT.TTL,
			SessionMaxLifetime: cfg.Session.MaxLifetime,
			CookieName:         cfg.Session.CookieName,
		})
		if err != nil {
			return err
		}

		authMetrics, err := telemetry.NewAuthMetrics()
		if err != nil {
			return err
		}
		httpMetrics, err := telemetry.NewHTTPMetrics()
		if err != nil {
			return err
		}

		selector := iam.NewSelector(
			iam.NewBearerAuthenticator(signer, cfg.JWT.Issuer, cfg.JWT.Audience, revocations),
			iam.NewSessionAuthenticator(sessions, cfg.Session.CookieName),
			cfg.Session.CookieName,
			iam.WithAuthMetrics(authMetrics),
		)

		registry, err := authz.BuildRegistry(ctx, cfg.Policies)
		if err != nil {
			return err
		}
		logger.Info("authorization policies registered", zap.Strings("policies", registry.Names()))

		loginMech, err := iam.ParseMechanism(cfg.Server.LoginMechanism)
		if err != nil {
			return err
		}
		routeMech, err := iam.ParseMechanism(cfg.Server.RouteMechanism)
		if err != nil {
			return err
		}

		handler, err := server.NewH2CHandler(server.RouterOptions{
			Service:        svc,
			Selector:       selector,
			Evaluator:      authz.NewEvaluator(registry, logger.Named("authz")),
			Logger:         logger,
			Metrics:        httpMetrics,
			LoginMechanism: loginMech,
			RouteMechanism: routeMech,
			RequireHTTPS:   cfg.Server.RequireHTTPS,
			CORSOrigins:    cfg.Server.CORSOrigins,
		})
		if err != nil {
			return err
		}

		httpServer := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("starting server", zap.String("addr", cfg.Server.Addr), zap.String("version", version))
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			return sessions.RunJanitor(gctx, cfg.Session.CleanupInterval)
		})
		if revokedRepo != nil {
			g.Go(func() error {
				return pruneRevocations(gctx, revokedRepo, cfg.Session.CleanupInterval)
			})
		}
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down server")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(sctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		})

		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("server stopped")
		return nil
	},
}

// openSessionBackend builds the configured session store. The returned
// closer is always safe to call.
func openSessionBackend(ctx context.Context, cfg *config.Config, db *bun.DB) (session.Backend, func(), error) {
	noop := func() {}
	switch cfg.Session.Backend {
	case config.BackendSQL:
		return repository.NewBunSessionRepository(db), noop, nil
	case config.BackendRedis:
		rb, err := session.NewRedisBackend(cfg.Session.RedisAddr, cfg.Session.RedisPassword, cfg.Session.RedisDB)
		if err != nil {
			return nil, noop, err
		}
		if err := rb.Ping(ctx); err != nil {
			_ = rb.Close()
			return nil, noop, fmt.Errorf("redis session backend: %w", err)
		}
		return rb, func() { _ = rb.Close() }, nil
	case config.BackendBolt:
		bb, err := session.OpenBoltBackend(cfg.Session.BoltPath)
		if err != nil {
			return nil, noop, err
		}
		return bb, func() { _ = bb.Close() }, nil
	default:
		return session.NewMemoryBackend(), noop, nil
	}
}

// openRevocationList persists revoked token ids alongside SQL sessions and
// keeps them in a bounded in-process cache otherwise. The repository is
// returned separately so its expired rows can be pruned.
func openRevocationList(cfg *config.Config, db *bun.DB) (iam.RevocationList, *repository.BunRevokedJTIRepository, error) {
	if cfg.Session.Backend == config.BackendSQL {
		repo := repository.NewBunRevokedJTIRepository(db)
		return repo, repo, nil
	}
	list, err := iam.NewMemoryRevocationList(cfg.Revocation.CacheSize)
	if err != nil {
		return nil, nil, err
	}
	return list, nil, nil
}

func pruneRevocations(ctx context.Context, repo *repository.BunRevokedJTIRepository, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n, err := repo.DeleteExpired(ctx, time.Now())
			if err != nil {
				logger.Warn("revocation prune failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("expired revocations removed", zap.Int64("count", n))
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not apply pending migrations at startup")
}
