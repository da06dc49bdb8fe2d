package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Vashist1110/AVS-Bank/api-gateway/internal/gateway"
	"github.com/Vashist1110/AVS-Bank/shared/auth"
	"github.com/Vashist1110/AVS-Bank/shared/config"
	"github.com/Vashist1110/AVS-Bank/shared/logging"
	"github.com/Vashist1110/AVS-Bank/shared/middleware"
	"github.com/gin-gonic/gin"
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

	tokens, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL())
	if err != nil {
		logger.Fatal("failed to create token manager", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware(logger))
	gateway.RegisterRoutes(router, tokens, gateway.NewProxy(cfg.BankServiceURL, 30*time.Second, cfg.MaxUploadBytes+gateway.UploadOverheadBytes))

	server := &http.Server{
		Addr:              ":" + cfg.GatewayPort,
		Handler:           middleware.CORS(cfg.AllowedOrigins())(router),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("api gateway starting", zap.String("port", cfg.GatewayPort), zap.String("upstream", cfg.BankServiceURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
