package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"questrya/internal/config"
	"questrya/internal/database"
	"questrya/internal/domain"
	"questrya/internal/handlers"
	"questrya/internal/logging"
	"questrya/internal/middleware"
	"questrya/internal/repositories"
	"questrya/internal/services"
	"questrya/internal/tasks"
	"questrya/pkg/rabbitmq"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	log := logging.New(cfg.LogLevel, cfg.JSONLogs)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Error("server stopped with error")
		os.Exit(1)
	}
	log.Info("server gracefully stopped")
}

// run wires every component and serves HTTP until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	userOpts := []domain.Option{domain.WithHasher(domain.NewBcryptHasher(cfg.Password.BcryptCost))}

	// --- Storage ---
	st, err := openStore(cfg, log, userOpts)
	if err != nil {
		return err
	}
	defer st.close()

	// --- RabbitMQ ---
	var publisher services.EventPublisher
	var mqClient *rabbitmq.Client
	if cfg.Queue.Enabled {
		queues := append(tasks.Queues(cfg.Queue.DefaultQueue), services.UserEventsQueue)
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: cfg.QueueURL(), Queues: queues}, log)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ client: %w", err)
		}
		defer mqClient.Close()
		publisher = mqClient
	} else {
		log.Warn("task queue disabled; events are not published")
	}

	app, dispatcher := newApp(cfg, log, st, publisher, userOpts)

	// --- Consumers ---
	if mqClient != nil {
		if err := startConsumers(ctx, mqClient, dispatcher, cfg.Queue.DefaultQueue); err != nil {
			return err
		}
	}

	// --- HTTP server ---
	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.AppPort).Info("starting server")
		serverErr <- app.Listen(cfg.AppPort)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		return fmt.Errorf("error during Fiber shutdown: %w", err)
	}
	return nil
}

// store bundles the user repository with its readiness probe and cleanup.
type store struct {
	users repositories.UserRepository
	ready handlers.HealthCheck
	close func()
}

// openStore selects the repository backing DB_DRIVER.
func openStore(cfg *config.Config, log logrus.FieldLogger, opts []domain.Option) (*store, error) {
	if cfg.DB.Driver == "memory" {
		log.Warn("using in-memory user repository; data is lost on restart")
		return &store{
			users: repositories.NewMockUserRepository(opts...),
			close: func() {},
		}, nil
	}

	db, err := database.Open(cfg, log)
	if err != nil {
		return nil, err
	}
	return &store{
		users: repositories.NewGORMUserRepository(db, opts...),
		ready: func(ctx context.Context) error { return database.Ping(ctx, db) },
		close: func() {
			if sqlDB, err := db.DB(); err == nil {
				if err := sqlDB.Close(); err != nil {
					log.WithError(err).Warn("failed to close database")
				}
			}
		},
	}, nil
}

// newApp builds the Fiber app. publisher may be nil when the queue is disabled.
func newApp(cfg *config.Config, log logrus.FieldLogger, st *store, publisher services.EventPublisher, opts []domain.Option) (*fiber.App, *tasks.Dispatcher) {
	// --- Services ---
	userService := services.NewUserService(st.users, publisher, log, opts...)
	authService := services.NewAuthService(st.users, cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, log)

	var taskPublisher tasks.Publisher
	if publisher != nil {
		taskPublisher = publisher
	}
	enqueuer := tasks.NewEnqueuer(taskPublisher, cfg.Queue.DefaultQueue, log)
	dispatcher := tasks.NewDispatcher(log)

	// --- Fiber app ---
	app := fiber.New(fiber.Config{
		AppName: "questrya " + cfg.AppVersion,
	})
	app.Use(recover.New())
	app.Use(logger.New())

	api := app.Group("/api")
	auth := middleware.AuthRequired(authService, log)

	handlers.NewUserHandler(userService, log).RegisterRoutes(api, auth)
	handlers.NewAuthHandler(authService, log).RegisterRoutes(api)
	handlers.NewMonitorHandler(cfg.AppVersion, st.ready, log).RegisterRoutes(api)
	handlers.NewTaskHandler(enqueuer, dispatcher, log).RegisterRoutes(api, auth)

	return app, dispatcher
}

// consumer is the part of the RabbitMQ client the workers need.
type consumer interface {
	Consume(ctx context.Context, queue string, handler rabbitmq.Handler) error
}

// startConsumers attaches the dispatcher to the user events queue and every task queue.
func startConsumers(ctx context.Context, c consumer, d *tasks.Dispatcher, defaultQueue string) error {
	var errs []error
	if err := c.Consume(ctx, services.UserEventsQueue, d.HandleUserEvent); err != nil {
		errs = append(errs, err)
	}
	for _, q := range tasks.Queues(defaultQueue) {
		if err := c.Consume(ctx, q, d.HandleTask); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to start RabbitMQ consumers: %w", err)
	}
	return nil
}
