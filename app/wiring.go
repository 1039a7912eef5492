package main

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"field-crm/internal/integrations"
	"field-crm/internal/integrations/google"
	"field-crm/internal/integrations/mock"
	"field-crm/internal/integrations/nominatim"
	"field-crm/internal/listeners"
	"field-crm/internal/repositories"
	"field-crm/internal/routes"
	"field-crm/internal/services"
	"field-crm/internal/sync"
	"field-crm/pkg/config"
	"field-crm/pkg/database/postgresql"
	"field-crm/pkg/email"
	"field-crm/pkg/eventbus"
	applogger "field-crm/pkg/logger"
	"field-crm/pkg/metrics"
	"field-crm/pkg/retry"
	"field-crm/pkg/service"
	"field-crm/pkg/sms"
	appws "field-crm/pkg/websocket"
)

// application holds every long-lived dependency the commands share.
type application struct {
	cfg     *config.Config
	logger  *zap.Logger
	pool    *pgxpool.Pool
	redis   *redis.Client
	metrics *metrics.Collector
	bus     *eventbus.Bus
	jwt     service.JWTService
	board   *appws.Hub

	services routes.Services
	queue    repositories.NotificationQueueInterface
	notifier services.NotificationServiceInterface
}

func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.New()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, applogger.NewLogger(cfg.LogLevel, cfg.LogFile), nil
}

func newApplication(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*application, error) {
	pool, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN, logger)
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Address, err)
	}

	registry, err := newGeocoderRegistry(cfg.Geocoder)
	if err != nil {
		pool.Close()
		redisClient.Close()
		return nil, err
	}

	app := &application{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		redis:   redisClient,
		metrics: metrics.NewCollector(),
		bus:     eventbus.New(logger.Named("eventbus")),
		jwt:     service.NewJWTService(cfg.JWT.SecretKey),
		board:   appws.NewHub(cfg.Server.AllowedOrigins, logger.Named("board")),
	}

	txManager := repositories.NewTxManager(pool, retry.Config{
		Attempts: cfg.Postgres.RetryCount,
		Backoff:  cfg.Postgres.RetryBackoff,
	}, logger)

	jobRepo := repositories.NewJobRepository(pool, logger)
	techRepo := repositories.NewTechnicianRepository(pool, logger)
	salespersonRepo := repositories.NewSalespersonRepository(pool)
	timelineRepo := repositories.NewTimelineRepository(pool)
	locationRepo := repositories.NewLocationRepository(pool)
	contactRepo := repositories.NewContactAttemptRepository(pool)
	commissionRepo := repositories.NewCommissionRepository(pool)
	app.queue = repositories.NewRedisNotificationQueue(redisClient, cfg.Redis.NotificationQueue)

	geocoder := services.NewGeocodingService(registry, app.metrics, logger.Named("geocoder"))
	app.notifier = services.NewNotificationService(
		email.NewClient(cfg.Email.APIURL, cfg.Email.APIKey, cfg.Email.From, cfg.Email.Timeout),
		sms.NewClient(cfg.SMS.APIURL, cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.From, cfg.SMS.Timeout),
		cfg.Frontend.BaseURL,
		app.metrics,
		logger.Named("notifications"),
	)

	commissionService := services.NewCommissionService(txManager, jobRepo, salespersonRepo, commissionRepo,
		cfg.Dispatch.DefaultCommissionRate, app.metrics, logger.Named("commissions"))

	app.services = routes.Services{
		Jobs: services.NewJobLifecycleService(txManager, jobRepo, techRepo, timelineRepo, geocoder,
			app.bus, app.metrics, cfg.Dispatch, logger.Named("jobs")),
		Timeline:    services.NewTimelineService(jobRepo, timelineRepo, logger),
		Technicians: services.NewTechnicianService(txManager, techRepo, locationRepo, logger.Named("technicians")),
		Dispatch: services.NewDispatchService(jobRepo, techRepo, locationRepo, contactRepo, geocoder,
			app.notifier, cfg.Dispatch.MaxLocationAge, app.metrics, logger.Named("dispatch")),
		Commissions: commissionService,
		Reports:     services.NewReportService(commissionRepo, logger),
		Roster:      sync.NewDBHandler(txManager, techRepo, salespersonRepo, logger.Named("roster")),
		Board:       app.board,
	}

	listeners.NewNotificationListener(app.queue, app.notifier, logger.Named("notification_listener")).Register(app.bus)
	listeners.NewCommissionListener(commissionService, logger.Named("commission_listener")).Register(app.bus)
	listeners.NewBoardListener(app.board, logger.Named("board_listener")).Register(app.bus)

	return app, nil
}

// close waits for in-flight listeners before dropping the connections they use.
func (a *application) close() {
	a.bus.Wait()
	if err := a.redis.Close(); err != nil {
		a.logger.Warn("closing redis", zap.Error(err))
	}
	a.pool.Close()
}

func newGeocoderRegistry(cfg config.GeocoderConfig) (integrations.RegistryInterface, error) {
	baseURLFor := func(name string) string {
		if cfg.Provider == name {
			return cfg.BaseURL
		}
		return ""
	}

	registry := integrations.NewRegistry()
	providers := []integrations.GeocodingProvider{
		google.New(baseURLFor("google"), cfg.APIKey, cfg.Timeout),
		nominatim.New(baseURLFor("nominatim"), cfg.Timeout),
		mock.NewMockProvider(),
	}
	for _, p := range providers {
		if err := registry.Register(p); err != nil {
			return nil, err
		}
	}
	if err := registry.SetActive(cfg.Provider); err != nil {
		return nil, fmt.Errorf("geocoder provider: %w", err)
	}
	return registry, nil
}
