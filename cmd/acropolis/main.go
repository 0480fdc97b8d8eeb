package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	appcommands "acropolis/internal/app/commands"
	"acropolis/internal/app/handlers"
	"acropolis/internal/app/middleware"
	appoutbox "acropolis/internal/app/outbox"
	"acropolis/internal/app/uow"
	"acropolis/internal/infra/broker/kafka"
	rediscache "acropolis/internal/infra/cache/redis"
	"acropolis/internal/infra/config"
	mongodb "acropolis/internal/infra/db/mongo"
	ginserver "acropolis/internal/infra/http/gin"
	"acropolis/internal/infra/obs"
	outboxinfra "acropolis/internal/infra/outbox"
	"acropolis/internal/infra/storage/memory"
	s3storage "acropolis/internal/infra/storage/s3"
)

const systemActor = "system"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger("prod").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	if err := loadListingFixtures(ctx, app.commands, fixturesPath(cfg.ListingsFixtures), logger); err != nil {
		logger.Warn("listing fixtures load failed", "error", err)
	}

	go func() {
		if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox worker stopped", "error", err)
		}
	}()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, app.health, app.handlers)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", app.storage)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	storage  string
	commands appcommands.Bus
	handlers ginserver.Handlers
	health   obs.HealthHandlers
	worker   *outboxinfra.Worker
	closers  []io.Closer
	shutdown []func(context.Context) error
}

func (a application) close(logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logger.Warn("close failed", "error", err)
		}
	}
	for _, fn := range a.shutdown {
		if err := fn(ctx); err != nil {
			logger.Warn("shutdown failed", "error", err)
		}
	}
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	app := application{health: obs.HealthHandlers{Checks: map[string]func(context.Context) error{}}}

	var (
		factory uow.UoWFactory
		box     appoutbox.Outbox
		relay   appoutbox.Relay
		wake    <-chan struct{}
		idem    middleware.IdempotencyStore
	)
	if cfg.Memory() {
		store := memory.NewStore()
		factory = memory.NewFactory(store)
		box, relay, wake = store.Outbox(), store.Outbox(), store.Outbox().Wake()
		app.storage = config.BackendMemory
	} else {
		client, err := mongodb.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return app, err
		}
		app.shutdown = append(app.shutdown, client.Close)
		app.health.Checks["mongo"] = client.Ping
		factory = mongodb.NewFactory(client.DB)
		outboxStore := outboxinfra.NewStore(client.DB)
		box, relay = outboxStore, outboxStore
		app.storage = config.BackendMongo
		if cfg.IdempotencyBackend == config.BackendMongo {
			idem = mongodb.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
		}
	}

	var redisClient *goredis.Client
	if cfg.RedisURL != "" {
		client, err := rediscache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return app, err
		}
		redisClient = client
		app.closers = append(app.closers, client)
		app.health.Checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	switch cfg.IdempotencyBackend {
	case config.BackendRedis:
		idem = rediscache.NewIdempotencyStore(redisClient, cfg.IdempotencyTTL)
	case config.BackendMemory:
		idem = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
	}

	deps := handlers.Dependencies{
		UoW:    factory,
		Outbox: box,
		Logger: logger,
	}
	if cfg.S3Enabled {
		archive, err := s3storage.NewReceiptArchive(s3storage.Config{
			Endpoint:      cfg.S3Endpoint,
			UseSSL:        cfg.S3UseSSL,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			Bucket:        cfg.S3Bucket,
			PublicBaseURL: cfg.S3PublicEndpoint,
		}, logger)
		if err != nil {
			return app, err
		}
		deps.Receipts = archive
	}
	commandBus, queryBus := handlers.Buses(deps, idem)
	app.commands = commandBus

	var producer outboxinfra.Producer = kafka.LogProducer{Logger: logger}
	if len(cfg.KafkaBrokers) > 0 {
		p, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaClientID, nil)
		if err != nil {
			return app, err
		}
		producer = p
		app.closers = append(app.closers, p)
	}
	app.worker = &outboxinfra.Worker{
		Relay:       relay,
		Producer:    producer,
		Wake:        wake,
		Logger:      logger,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
	}

	limiterStore, err := ginserver.NewLimiterStore(redisClient)
	if err != nil {
		return app, err
	}
	createLimiter, err := ginserver.RateLimit(cfg.RateLimit, limiterStore)
	if err != nil {
		return app, err
	}

	app.handlers = ginserver.Handlers{
		Booking:       ginserver.BookingHandler{Commands: commandBus, Queries: queryBus, Logger: logger},
		Listing:       ginserver.ListingHandler{Commands: commandBus, Queries: queryBus, Logger: logger},
		CreateLimiter: createLimiter,
	}
	return app, nil
}
