package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"ai-prompt-generator/admin/internal/audit"
	audithandler "ai-prompt-generator/admin/internal/audit/handler"
	auditrepo "ai-prompt-generator/admin/internal/audit/repository"
	"ai-prompt-generator/admin/internal/config"
	healthhandler "ai-prompt-generator/admin/internal/health/handler"
	identityhandler "ai-prompt-generator/admin/internal/identity/handler"
	identityservice "ai-prompt-generator/admin/internal/identity/service"
	"ai-prompt-generator/admin/internal/security"
	"ai-prompt-generator/admin/internal/server"
	"ai-prompt-generator/admin/internal/server/middleware"
	sessionhandler "ai-prompt-generator/admin/internal/session/handler"
	sessionrepo "ai-prompt-generator/admin/internal/session/repository"
	"ai-prompt-generator/admin/internal/telemetry"
	"ai-prompt-generator/admin/internal/telemetry/metrics"
	telemetryotel "ai-prompt-generator/admin/internal/telemetry/otel"
	userrepo "ai-prompt-generator/admin/internal/user/repository"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	shutdownTimeout = 15 * time.Second
	limiterIdle     = 10 * time.Minute
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		os.Exit(1)
	}
	log := newLogger(cfg)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(cfg.LogLevel))); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogJSON {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(h).With("service", cfg.ServiceName)
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Config{
		Endpoint:       cfg.OTLPEndpoint,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		Environment:    cfg.Env,
		Insecure:       cfg.OTLPInsecure,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), telemetry.ShutdownDrainDuration)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		return fmt.Errorf("jwt keys: %w", err)
	}
	tokens, err := security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	if err != nil {
		return fmt.Errorf("token provider: %w", err)
	}
	users, err := userrepo.LoadFile(cfg.AdminUsersFile)
	if err != nil {
		return err
	}

	store := sessionrepo.NewMemoryStore(sessionrepo.MemoryConfig{
		TTL:        cfg.SessionLifetime(),
		MaxPerUser: cfg.SessionMaxPerUser,
		RevokedTTL: cfg.AccessTTL(),
	})
	metrics.RegisterSessionGauge(store.SessionCount)

	audits := auditrepo.NewMemoryRepository(auditrepo.DefaultMemoryCapacity)
	auditLogger := audit.NewLogger(audits, telemetryotel.NewEventEmitter(providers.LoggerProvider),
		middleware.ClientIPFromContext, log.With("component", "audit"))

	authz := middleware.NewAuthorizer(
		middleware.NewResolver(tokens, store, cfg.VerifyTimeout()),
		nil,
		auditLogger,
		log.With("component", "authz"),
	)
	authSvc := identityservice.NewAuthService(users, store, security.NewHasher(cfg.BcryptCost), tokens,
		auditLogger, log.With("component", "auth"))
	limiter := middleware.NewIPRateLimiter(cfg.LoginRatePerMinute)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: server.NewRouter(server.Deps{
			Authorizer:     authz,
			Auth:           identityhandler.NewAuthHandler(authSvc, cfg.SessionLifetime(), cfg.Production()),
			Sessions:       sessionhandler.NewHandler(store, auditLogger),
			Audit:          audithandler.NewHandler(audits),
			Health:         healthhandler.NewHandler(store.SessionCount),
			LoginLimiter:   limiter,
			TrustedProxies: middleware.NewTrustedProxies(cfg.TrustedProxies()),
			CORSOrigins:    cfg.CORSOrigins(),
		}),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("admin HTTP server listening", "addr", cfg.HTTPAddr, "env", cfg.Env, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		sweep(gctx, log.With("component", "sweeper"), store, limiter, cfg.SweepInterval())
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down admin HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// sweep purges expired sessions and idle rate limiters every interval until ctx is done.
func sweep(ctx context.Context, log *slog.Logger, store *sessionrepo.MemoryStore, limiter *middleware.IPRateLimiter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := store.Sweep(ctx)
			metrics.SessionsSweptTotal.Add(float64(removed))
			pruned := limiter.Prune(limiterIdle)
			if removed > 0 || pruned > 0 {
				log.Debug("sweep", "sessions_removed", removed, "limiters_pruned", pruned,
					"sessions_stored", store.SessionCount(), "revoked_tokens", store.RevokedCount())
			}
		}
	}
}
