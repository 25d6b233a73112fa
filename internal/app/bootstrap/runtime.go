package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	cacheadapter "github.com/Simran251393/fraud-detection-system/internal/adapters/cache"
	eventadapter "github.com/Simran251393/fraud-detection-system/internal/adapters/events"
	geoadapter "github.com/Simran251393/fraud-detection-system/internal/adapters/geo"
	httpadapter "github.com/Simran251393/fraud-detection-system/internal/adapters/http"
	"github.com/Simran251393/fraud-detection-system/internal/adapters/memory"
	metricsadapter "github.com/Simran251393/fraud-detection-system/internal/adapters/metrics"
	"github.com/Simran251393/fraud-detection-system/internal/adapters/notify"
	"github.com/Simran251393/fraud-detection-system/internal/adapters/postgres"
	"github.com/Simran251393/fraud-detection-system/internal/adapters/security"
	"github.com/Simran251393/fraud-detection-system/internal/application"
	"github.com/Simran251393/fraud-detection-system/internal/domain"
	"github.com/Simran251393/fraud-detection-system/internal/ports"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	service    *application.Service
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcHealth *health.Server
	outbox     *eventadapter.OutboxWorker
	closers    []func() error
}

// stores groups the persistence adapters selected by the store driver.
type stores struct {
	identities  ports.IdentityRepository
	attempts    ports.AttemptRepository
	outbox      ports.OutboxRepository
	lockouts    ports.LockoutStore
	revocations ports.SessionRevocationStore
	ready       func(ctx context.Context) error
	closers     []func() error
}

func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	return Build(ctx, cfg)
}

// Build wires adapters for cfg. Postgres migrations run before the service is
// constructed.
func Build(ctx context.Context, cfg Config) (*Runtime, error) {
	logger := NewLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("bootstrapping risk auth service",
		"service", cfg.ServiceID,
		"environment", cfg.Environment,
		"store_driver", cfg.StoreDriver,
		"http_port", cfg.HTTPPort,
		"grpc_port", cfg.GRPCPort,
	)
	if cfg.OTPReturnToClient {
		logger.Warn("otp codes are returned to clients; demo configuration only",
			"service", cfg.ServiceID,
		)
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	closers := append([]func() error{}, st.closers...)
	fail := func(err error) (*Runtime, error) {
		closeAll(closers)
		return nil, err
	}

	tokenSigner, err := newTokenSigner(cfg, logger)
	if err != nil {
		return fail(err)
	}

	var geo ports.GeoLocator = geoadapter.NewStaticLocator()
	if cfg.GeoIPDBPath != "" {
		locator, err := geoadapter.OpenMaxMind(cfg.GeoIPDBPath)
		if err != nil {
			return fail(fmt.Errorf("open geoip: %w", err))
		}
		closers = append(closers, locator.Close)
		geo = locator
	}

	var notifier ports.OTPSender
	switch {
	case cfg.SMTPHost != "":
		notifier = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
			TLSMode:  cfg.SMTPTLSMode,
		})
	case !cfg.IsProduction():
		notifier = notify.NewLoggingSender(logger)
	}

	var statsCache ports.StatsCache
	if cfg.StatsCacheTTL > 0 {
		statsCache = cacheadapter.NewStatsCache(cfg.StatsCacheTTL)
	}

	recorder, err := metricsadapter.NewRecorder()
	if err != nil {
		return fail(fmt.Errorf("init metrics: %w", err))
	}

	svc := application.NewService(application.Dependencies{
		Config:      applicationConfig(cfg),
		Identities:  st.identities,
		Attempts:    st.attempts,
		Outbox:      st.outbox,
		Lockouts:    st.lockouts,
		Revocations: st.revocations,
		StatsCache:  statsCache,
		Geo:         geo,
		Notifier:    notifier,
		Metrics:     recorder,
		Hasher:      security.NewBcryptOTPHasher(cfg.OTPBcryptCost),
		Codes:       security.NewNumericCodeGenerator(),
		TokenSigner: tokenSigner,
	})

	var publisher ports.EventPublisher = eventadapter.NewLoggingPublisher(logger)
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return fail(fmt.Errorf("init kafka publisher: %w", err))
		}
		closers = append(closers, kafkaPublisher.Close)
		publisher = kafkaPublisher
	}
	outbox := eventadapter.NewOutboxWorker(logger, st.outbox, publisher, eventadapter.OutboxWorkerConfig{
		Interval:   cfg.OutboxPollInterval,
		BatchSize:  cfg.OutboxBatchSize,
		ClaimTTL:   cfg.OutboxClaimTTL,
		MaxRetries: cfg.OutboxMaxRetries,
	})

	handler := httpadapter.NewHandler(svc, httpadapter.Options{
		AdminAPIKey:    cfg.AdminAPIKey,
		Ready:          st.ready,
		Metrics:        recorder,
		MetricsHandler: recorder.Handler(),
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           httpadapter.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		service:    svc,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcHealth: healthSrv,
		outbox:     outbox,
		closers:    closers,
	}, nil
}

func applicationConfig(cfg Config) application.Config {
	return application.Config{
		Thresholds: domain.RiskThresholds{
			Low:    cfg.RiskLowThreshold,
			Medium: cfg.RiskMediumThreshold,
		},
		OTPLength:           cfg.OTPLength,
		OTPTTL:              cfg.OTPTTL,
		OTPMaxAttempts:      cfg.OTPMaxAttempts,
		PendingTTL:          cfg.PendingTTL,
		TokenTTL:            cfg.TokenTTL,
		ExposeOTP:           cfg.OTPReturnToClient,
		BlockThreshold:      cfg.BlockThreshold,
		BlockWindow:         cfg.BlockWindow,
		CheckRateLimit:      cfg.CheckRateLimit,
		CheckRateWindow:     cfg.CheckRateWindow,
		AttemptsListLimit:   cfg.AttemptsListLimit,
		RecentAttemptsLimit: cfg.RecentAttemptsLimit,
	}
}

func openStores(ctx context.Context, cfg Config) (stores, error) {
	if cfg.StoreDriver == StoreDriverMemory {
		return stores{
			identities:  memory.NewIdentityRepository(),
			attempts:    memory.NewAttemptRepository(),
			outbox:      memory.NewOutboxRepository(),
			lockouts:    memory.NewLockoutStore(),
			revocations: memory.NewRevocationStore(),
		}, nil
	}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return stores{}, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return stores{}, fmt.Errorf("gorm sql db: %w", err)
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = sqlDB.Close()
		return stores{}, fmt.Errorf("run migrations: %w", err)
	}

	redisClient, err := cacheadapter.Connect(ctx, cfg.RedisURL)
	if err != nil {
		_ = sqlDB.Close()
		return stores{}, fmt.Errorf("connect redis: %w", err)
	}

	repos := postgres.NewRepositories(db)
	return stores{
		identities:  repos.Identities,
		attempts:    repos.Attempts,
		outbox:      repos.Outbox,
		lockouts:    cacheadapter.NewRedisLockoutStore(redisClient),
		revocations: cacheadapter.NewRedisSessionRevocationStore(redisClient),
		ready: func(ctx context.Context) error {
			if err := sqlDB.PingContext(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if err := redisClient.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return nil
		},
		closers: []func() error{redisClient.Close, sqlDB.Close},
	}, nil
}

func newTokenSigner(cfg Config, logger *slog.Logger) (*security.JWTSigner, error) {
	if cfg.JWTPrivateKeyPEM != "" && cfg.JWTPublicKeyPEM != "" {
		signer, err := security.NewJWTSigner(cfg.JWTKeyID, cfg.JWTPrivateKeyPEM, cfg.JWTPublicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("init jwt signer: %w", err)
		}
		return signer, nil
	}
	if !cfg.AllowEphemeralJWT {
		return nil, errors.New("jwt keys are required when ephemeral keys are disabled")
	}
	logger.Warn("using ephemeral JWT keys; sessions will not survive a restart",
		"service", cfg.ServiceID,
	)
	signer, err := security.NewEphemeralJWTSigner(cfg.JWTKeyID)
	if err != nil {
		return nil, fmt.Errorf("init ephemeral jwt signer: %w", err)
	}
	return signer, nil
}

// Service exposes the wired application service to CLI tooling.
func (r *Runtime) Service() *application.Service {
	return r.service
}

// Handler returns the HTTP router without starting a listener.
func (r *Runtime) Handler() http.Handler {
	return r.httpServer.Handler
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer r.Close()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", r.cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("listen gRPC: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.logger.Info("http server started", "service", r.cfg.ServiceID, "addr", r.httpServer.Addr)
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		r.logger.Info("grpc server started", "service", r.cfg.ServiceID, "addr", lis.Addr().String())
		if err := r.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	if r.cfg.StoreDriver == StoreDriverMemory {
		g.Go(func() error {
			return r.runOutbox(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		r.logger.Info("shutdown signal received", "service", r.cfg.ServiceID)
		r.grpcHealth.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := r.httpServer.Shutdown(shutdownCtx)
		r.grpcServer.GracefulStop()
		return err
	})
	return g.Wait()
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer r.Close()
	return r.runOutbox(ctx)
}

func (r *Runtime) runOutbox(ctx context.Context) error {
	r.logger.Info("outbox worker started", "service", r.cfg.ServiceID)
	if err := r.outbox.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (r *Runtime) Close() {
	closeAll(r.closers)
	r.closers = nil
}

func closeAll(closers []func() error) {
	for i := len(closers) - 1; i >= 0; i-- {
		_ = closers[i]()
	}
}

// Migrate applies pending Postgres migrations without building the service.
func Migrate(ctx context.Context, cfg Config) error {
	if cfg.StoreDriver != StoreDriverPostgres {
		return fmt.Errorf("migrations require the %s store driver", StoreDriverPostgres)
	}
	db, err := postgres.Connect(ctx, cfg.DatabaseURL, 2)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("gorm sql db: %w", err)
	}
	defer sqlDB.Close()
	return postgres.RunMigrations(ctx, db)
}
