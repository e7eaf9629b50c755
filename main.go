package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mama165/sdk-go/logs"
	"golang.org/x/sync/errgroup"

	"notechat/internal/chat"
	"notechat/internal/config"
	"notechat/internal/database"
	"notechat/internal/identity"
	"notechat/internal/message"
	"notechat/internal/note"
	"notechat/internal/relay"
	"notechat/internal/security"
	"notechat/internal/server"
	wsocket "notechat/internal/websocket"
)

// Exit codes reported to the service manager
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "notechat terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and blocks until the server stops. Deferred
// cleanups run before main exits.
func run() (int, error) {
	cfg, err := config.Load()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	logger := logs.GetLoggerFromString(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]server.Check{}

	// Storage: MongoDB when enabled, process memory otherwise
	var notes note.Repository = note.NewInMemoryRepository()
	var history message.Log
	if cfg.EnableMongoDB {
		db, err := database.NewMongoDB(ctx, &database.MongoConfig{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDatabase,
			ConnectTimeout: cfg.MongoTimeout,
			PingTimeout:    cfg.MongoTimeout,
			MaxPoolSize:    100,
			MinPoolSize:    5,
		}, logger)
		if err != nil {
			return exitRuntime, err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := db.Close(closeCtx); err != nil {
				logger.Warn("Failed to close MongoDB", "error", err)
			}
		}()

		if err := db.CreateIndexes(ctx); err != nil {
			logger.Warn("Failed to create indexes", "error", err)
		}
		notes = note.NewMongoRepository(db, cfg.MongoTimeout)
		checks["mongodb"] = db.HealthCheck
		if cfg.EnableMessageLog {
			history = message.NewMongoLog(db, cfg.MongoTimeout)
		}
	} else if cfg.EnableMessageLog {
		history = message.NewInMemoryLog(cfg.MessageLogHistory)
	}

	metrics := config.NewServerMetrics()
	limiter := config.NewRateLimiter(cfg)
	limiter.Start()
	defer limiter.Stop()

	opts := chat.Options{
		Registry:    chat.NewRegistry(cfg.MaxUsersPerRoom, logger),
		Authorizer:  chat.NewAuthorizer(notes, logger),
		Validator:   security.NewInputValidator(cfg),
		Limiter:     limiter,
		Messages:    history,
		Metrics:     metrics,
		Logger:      logger,
		JoinTimeout: cfg.JoinTimeout,
	}

	var redisRelay *relay.RedisRelay
	var subscription *relay.Subscription
	if cfg.RedisURL != "" {
		redisRelay, err = relay.NewRedisRelay(ctx, cfg.RedisURL, cfg.RelayChannel, logger)
		if err != nil {
			return exitRuntime, err
		}
		defer redisRelay.Close()
		if subscription, err = redisRelay.Subscribe(ctx); err != nil {
			return exitRuntime, err
		}
		opts.Relay = redisRelay
		checks["redis"] = redisRelay.Ping
	}

	service := chat.NewService(opts)
	manager := wsocket.NewManager(cfg, metrics, logger)
	verifier := identity.NewJWTVerifier(cfg.JWTSecret)

	srv := server.New(server.Deps{
		Config:  cfg,
		Chat:    chat.NewHandler(service, manager, verifier, cfg, logger),
		Service: service,
		Manager: manager,
		Notes:   note.NewHandler(note.NewService(notes, logger), history, logger),
		Auth:    identity.Middleware(verifier, logger),
		Checks:  checks,
		Logger:  logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting notechat server",
			"addr", cfg.Port,
			"max_connections", cfg.MaxConnections,
			"mongodb", cfg.EnableMongoDB,
			"message_log", cfg.EnableMessageLog,
			"relay", redisRelay != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		manager.Run(gctx)
		return nil
	})

	if subscription != nil {
		g.Go(func() error {
			return subscription.Run(gctx, service.DeliverRemote)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", "timeout", cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		manager.CloseAll()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return exitRuntime, err
	}
	logger.Info("Server stopped gracefully")
	return exitOK, nil
}
