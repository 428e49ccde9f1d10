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

	"github.com/shopspring/decimal"

	cacheadapter "github.com/loadhaul/platform/services/payments-service/internal/adapters/cache"
	eventadapter "github.com/loadhaul/platform/services/payments-service/internal/adapters/events"
	grpcadapter "github.com/loadhaul/platform/services/payments-service/internal/adapters/grpc"
	httpadapter "github.com/loadhaul/platform/services/payments-service/internal/adapters/http"
	"github.com/loadhaul/platform/services/payments-service/internal/adapters/memory"
	"github.com/loadhaul/platform/services/payments-service/internal/adapters/postgres"
	"github.com/loadhaul/platform/services/payments-service/internal/adapters/stripeproc"
	"github.com/loadhaul/platform/services/payments-service/internal/application"
	"github.com/loadhaul/platform/services/payments-service/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	httpServer *http.Server
	grpcServer *grpcadapter.Server
	outbox     *eventadapter.OutboxFlushWorker
	sweeps     *eventadapter.SweepWorker
	cleanupFn  func(context.Context)
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	logger.Info("bootstrapping payments service", "http_port", cfg.HTTPPort, "grpc_port", cfg.GRPCPort)

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}

	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}

	repos := postgres.NewRepositories(db)

	var processor ports.PaymentProcessor
	if cfg.StripeSecretKey != "" {
		processor = stripeproc.New(cfg.StripeSecretKey)
	} else {
		// No processor key means local/dev; holds are simulated in-process.
		logger.Warn("STRIPE_SECRET_KEY not set, using simulated payment processor")
		processor = memory.NewProcessor()
	}

	publisher := eventadapter.NewLoggingPublisher(logger)

	svc := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:          cfg.ServiceID,
			Currency:             cfg.Currency,
			PlatformFeeRate:      decimal.NewFromFloat(cfg.PlatformFeeRate),
			MaxHoldCents:         cfg.MaxHoldCents,
			AutoReleaseAfter:     cfg.AutoReleaseAfter,
			DefaultBidTTL:        cfg.DefaultBidTTL,
			SweepBatchSize:       cfg.SweepBatchSize,
			IdempotencyTTL:       cfg.IdempotencyTTL,
			OutboxFlushBatchSize: cfg.OutboxBatchSize,
		},
		Loads:           repos.Loads,
		Bids:            repos.Bids,
		Payments:        repos.Payments,
		Payouts:         repos.Payouts,
		Documents:       repos.Documents,
		CarrierAccounts: repos.CarrierAccounts,
		Idempotency:     repos.Idempotency,
		Outbox:          repos.Outbox,
		Processor:       processor,
		DomainEvents:    publisher,
		Analytics:       publisher,
		Logger:          logger,
	})

	handler := httpadapter.NewHandler(svc, httpadapter.HandlerOptions{
		JWTSecret:          []byte(cfg.JWTSecret),
		RateLimits:         cacheadapter.NewRedisRateLimitStore(redisClient),
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ReadyCheck: func(ctx context.Context) error {
			if err := sqlDB.PingContext(ctx); err != nil {
				return err
			}
			return redisClient.Ping(ctx).Err()
		},
	})
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		httpServer: httpServer,
		grpcServer: grpcadapter.NewServer(cfg.ServiceID),
		outbox:     eventadapter.NewOutboxFlushWorker(logger, svc, cfg.OutboxPollInterval),
		sweeps:     eventadapter.NewSweepWorker(logger, svc, cfg.SweepInterval),
		cleanupFn: func(ctx context.Context) {
			_ = redisClient.Close()
			_ = sqlDB.Close()
		},
	}, nil
}

// RunAPI serves HTTP, gRPC health and the background workers until a shutdown
// signal or a server failure.
func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 2)
	go func() {
		r.logger.Info("http server started", "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		r.logger.Info("grpc health server started", "port", r.cfg.GRPCPort)
		if err := r.grpcServer.Serve(r.cfg.GRPCPort); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	go func() { _ = r.outbox.Run(workerCtx) }()
	go func() { _ = r.sweeps.Run(workerCtx) }()

	select {
	case <-ctx.Done():
		r.logger.Info("shutdown signal received")
	case err := <-errCh:
		r.logger.Error("server failure", "error", err)
	}

	cancelWorkers()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.Stop()
	r.cleanupFn(shutdownCtx)
	return nil
}
