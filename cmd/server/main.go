package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/cache"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/config"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/events"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/handlers"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/repositories/postgres"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/services"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/utils"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/internal/validator"
	"github.com/craigjefferies/kotakureo-phonics-check-assistant/pkg"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		logger = utils.NewDefaultLogger()
	} else {
		logger = utils.NewDevelopmentLogger()
	}

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}

	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		logger.Error("Failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	cacheService := cache.NewRedisCache(redisClient, utils.ToSlogLogger(logger))

	publisher, err := events.NewPublisher(
		cfg.Events.Enabled,
		cfg.Events.Publisher,
		cfg.Events.Brokers,
		cfg.Events.Topic,
		utils.ToSlogLogger(logger),
	)
	if err != nil {
		logger.Error("Failed to create event publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	repo := postgres.NewRepository(db)
	v := validator.New()

	serviceManager := services.NewServiceManager(repo, cacheService, publisher, cfg.TemplatePaths, logger, v)
	handlerManager := handlers.NewHandlerManager(serviceManager, logger)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(logger))

	handlerManager.SetupRoutes(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Server starting", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
}
