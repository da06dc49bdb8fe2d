package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vashist1110/AVS-Bank/bank-service/internal/command"
	"github.com/Vashist1110/AVS-Bank/bank-service/internal/documents"
	"github.com/Vashist1110/AVS-Bank/bank-service/internal/handler"
	"github.com/Vashist1110/AVS-Bank/bank-service/internal/query"
	"github.com/Vashist1110/AVS-Bank/bank-service/internal/repository"
	"github.com/Vashist1110/AVS-Bank/shared/auth"
	"github.com/Vashist1110/AVS-Bank/shared/config"
	"github.com/Vashist1110/AVS-Bank/shared/database"
	"github.com/Vashist1110/AVS-Bank/shared/events"
	"github.com/Vashist1110/AVS-Bank/shared/logging"
	"github.com/Vashist1110/AVS-Bank/shared/middleware"
	redisClient "github.com/Vashist1110/AVS-Bank/shared/redis"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.Logging())
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Write store
	store, db, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	if db != nil {
		defer db.Close()
	}

	// Redis connection
	redis, err := redisClient.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redis.Close()

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL())
	if err != nil {
		logger.Fatal("failed to create token manager", zap.Error(err))
	}
	docs, err := documents.NewOSStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal("failed to prepare upload dir", zap.Error(err))
	}

	publisher := events.NewPublisher(redis.Client)
	readRepo := repository.NewAccountReadRepository(store, redis.Client, repository.DefaultReadModelTTL, logger)
	limiter := redisClient.NewRateLimiter(redis.Client, "avs:rate_limit", cfg.LoginRateLimitPerMinute, time.Minute)

	// Command + Query services
	accountCmds := command.NewAccountCommandService(store, readRepo, publisher, logger)
	ledgerCmds := command.NewLedgerCommandService(store, readRepo, publisher, logger)
	requestCmds := command.NewRequestCommandService(store, docs, readRepo, publisher, logger)
	accountQueries := query.NewAccountQueryService(readRepo, cfg.RecentTransactionsLimit)
	adminQueries := query.NewAdminQueryService(store, readRepo, cfg.RecentTransactionsLimit)
	authQueries := query.NewAuthQueryService(store, tokens, limiter, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware(logger))
	handler.RegisterRoutes(router, tokens, handler.Handlers{
		Auth:  handler.NewAuthHandler(authQueries),
		User:  handler.NewUserHandler(accountCmds, ledgerCmds, requestCmds, accountQueries, cfg.MaxUploadBytes),
		Admin: handler.NewAdminHandler(accountCmds, requestCmds, adminQueries, docs),
	})

	// Recent-transaction projection backstop
	go func() {
		consumer, _ := os.Hostname()
		subscriber := events.NewSubscriber(redis.Client, events.SubscriberConfig{
			Group:    "bank-service-read-model",
			Consumer: "bank-" + consumer,
			Stream:   events.LedgerEventsStream,
			Handler:  readRepo.HandleLedgerEvent,
			Logger:   logger,
		})
		if err := subscriber.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("ledger subscriber stopped", zap.Error(err))
		}
	}()

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           middleware.CORS(cfg.AllowedOrigins())(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("bank service starting", zap.String("port", cfg.ServerPort), zap.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}

// openStore returns the configured write store. db is nil for the memory
// driver.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (repository.Store, *sqlx.DB, error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		logger.Warn("using in-memory store; data is lost on restart")
		return repository.NewMemoryStore(), nil, nil
	}

	db, err := database.Connect(ctx, database.Config{DSN: cfg.DatabaseURL, MaxConns: cfg.DatabaseMaxConns})
	if err != nil {
		return nil, nil, err
	}
	store := repository.NewPostgresStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, db, nil
}
