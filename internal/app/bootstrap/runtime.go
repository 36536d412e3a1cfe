package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cacheadapter "github.com/deviceautosetup/provisioning/internal/adapters/cache"
	"github.com/deviceautosetup/provisioning/internal/adapters/fallback"
	httpadapter "github.com/deviceautosetup/provisioning/internal/adapters/http"
	"github.com/deviceautosetup/provisioning/internal/adapters/postgres"
	"github.com/deviceautosetup/provisioning/internal/adapters/security"
	"github.com/deviceautosetup/provisioning/internal/application"
)

// Runtime owns the process-lifetime resources: the connection pool, the
// Redis client, and the HTTP server. Everything is constructed once at
// startup and passed down explicitly.
type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping device provisioning service", "http_port", cfg.HTTPPort)

	pool, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := pool.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL, cacheadapter.ClientOptions{
		PoolSize:    cfg.RedisPoolSize,
		DialTimeout: cfg.StorageOpTimeout,
	})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	if err := redisClient.Ping(ctx).Err(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	tokenSigner, err := security.NewTokenSigner(cfg.TokenSecret)
	if err != nil {
		if !cfg.AllowEphemeralToken {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init token signer: %w", err)
		}
		logger.Warn("using ephemeral token secret for local/dev runtime")
		tokenSigner, err = security.NewEphemeralTokenSigner()
		if err != nil {
			_ = sqlDB.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init ephemeral token signer: %w", err)
		}
	}

	seedCodec, err := security.NewSeedCodec(cfg.SeedSealKey)
	if err != nil {
		_ = sqlDB.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init seed codec: %w", err)
	}

	repos := postgres.NewRepositories(pool, cfg.StorageOpTimeout)
	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			TokenTTL:         cfg.TokenTTL,
			DefaultConfigKey: cfg.ConfigDefaultKey,
		},
		Credentials: repos.Credentials,
		Configs:     cacheadapter.NewRedisConfigStore(redisClient, cfg.ConfigKeyPrefix),
		Fallback:    fallback.NewFileSource(cfg.FallbackConfigPath),
		Seeds:       seedCodec,
		TokenSigner: tokenSigner,
	})

	readyFn := func(ctx context.Context) error {
		if err := sqlDB.PingContext(ctx); err != nil {
			return err
		}
		return redisClient.Ping(ctx).Err()
	}

	handler := httpadapter.NewHandler(svc, readyFn)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		cleanupFn: func(ctx context.Context) {
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.cleanupFn(shutdownCtx)
	return nil
}
