package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gmw "github.com/Laisky/gin-middlewares/v6"
	glog "github.com/Laisky/go-utils/v5/log"
	"github.com/Laisky/zap"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fuchsia74/bedrock-gateway/common/client"
	"github.com/fuchsia74/bedrock-gateway/common/config"
	"github.com/fuchsia74/bedrock-gateway/common/graceful"
	"github.com/fuchsia74/bedrock-gateway/common/logger"
	"github.com/fuchsia74/bedrock-gateway/common/secret"
	"github.com/fuchsia74/bedrock-gateway/middleware"
	"github.com/fuchsia74/bedrock-gateway/monitor"
	"github.com/fuchsia74/bedrock-gateway/relay/registry"
	"github.com/fuchsia74/bedrock-gateway/router"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := config.Validate(); err != nil {
		logger.Logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Logger.Info("bedrock gateway starting",
		zap.String("region", config.AWSRegion),
		zap.Bool("cross_region_inference", config.EnableCrossRegionInference),
		zap.Bool("application_inference_profiles", config.EnableApplicationInferenceProfiles))

	if err := client.Init(ctx); err != nil {
		logger.Logger.Fatal("initialize aws clients", zap.Error(err))
	}

	registry.StartRefresher(ctx, client.Bedrock)

	credentials := secret.NewProvider(
		client.SecretsManager,
		config.APIKeySecretARN,
		config.APIKey,
		config.SecretRefreshInterval,
	)

	if config.GinMode != gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	logLevel := glog.LevelInfo
	if config.DebugEnabled {
		logLevel = glog.LevelDebug
	}

	server := gin.New()
	server.RedirectTrailingSlash = false
	server.Use(
		gin.Recovery(),
		gmw.NewLoggerMiddleware(
			gmw.WithLoggerMwColored(),
			gmw.WithLevel(logLevel.String()),
			gmw.WithLogger(logger.Logger.Named("gin")),
		),
	)
	server.Use(middleware.RequestId())

	if config.EnablePrometheusMetrics {
		server.Use(monitor.GinMiddleware())
		server.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	router.SetRouter(server, credentials)

	httpServer := &http.Server{
		Addr:    ":" + config.ServerPort,
		Handler: server,
	}

	go func() {
		logger.Logger.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("shutdown signal received, draining")
	graceful.SetDraining()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(),
		time.Duration(config.ShutdownTimeoutSec)*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error("http server shutdown", zap.Error(err))
	}
	if err := graceful.Drain(shutdownCtx); err != nil {
		logger.Logger.Error("drain in-flight requests", zap.Error(err))
	}

	cancel()
	logger.Logger.Info("bedrock gateway stopped")
}
