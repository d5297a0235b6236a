package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/abcgaming/loyalty-engine/internal/api"
	"github.com/abcgaming/loyalty-engine/internal/api/handlers"
	"github.com/abcgaming/loyalty-engine/internal/api/middleware"
	"github.com/abcgaming/loyalty-engine/internal/services"
	"github.com/abcgaming/loyalty-engine/pkg/config"
	"github.com/abcgaming/loyalty-engine/pkg/database"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Setup logging
	if cfg.IsDevelopment() {
		logrus.SetLevel(logrus.DebugLevel)
		gin.SetMode(gin.DebugMode)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logrus.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Connect to Redis. The dashboard keeps working without it, reads just
	// skip the cache.
	var redisClient *redis.Client
	if opt, err := redis.ParseURL(cfg.RedisURL); err != nil {
		logrus.Warnf("Invalid Redis URL, caching disabled: %v", err)
	} else {
		client := redis.NewClient(opt)
		if err := client.Ping(context.Background()).Err(); err != nil {
			logrus.Warnf("Redis unreachable, caching disabled: %v", err)
			client.Close()
		} else {
			redisClient = client
			defer redisClient.Close()
		}
	}

	// Initialize services
	cacheService := services.NewCacheService(redisClient, cfg.CacheTTL())
	webSocketHub := services.NewWebSocketHub()
	go webSocketHub.Run()

	notifier := services.NewNotifier(cfg)
	datasetService := services.NewDatasetService(db, cacheService, webSocketHub, notifier, cfg)

	// Background retention sweeps and cache warming
	maintenance := services.NewMaintenanceService(datasetService, logrus.StandardLogger(), cfg.RetentionDays)
	if cfg.EnableBackgroundJobs {
		if err := maintenance.Start(); err != nil {
			logrus.Errorf("Failed to start maintenance jobs: %v", err)
		}
		defer maintenance.Stop()
	}

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logrus.StandardLogger()))
	router.Use(middleware.ErrorLogger(logrus.StandardLogger()))
	router.Use(middleware.CORS(cfg.CorsOrigins))

	// Built-in dashboard UI
	router.GET("/", handlers.Dashboard)

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(db, redisClient, webSocketHub, maintenance)
	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)

	// Setup API routes under /api/v1
	apiV1 := router.Group("/api/v1")
	api.SetupRoutes(apiV1, datasetService, cfg)
	apiV1.GET("/jobs", healthHandler.GetJobsStatus)

	// Setup WebSocket endpoint at root level (not under /api/v1)
	wsHandler := handlers.NewWebSocketHandler(webSocketHub)
	router.GET("/ws", middleware.OptionalAuth(cfg.JWTSecret), wsHandler.HandleWebSocket)

	// Log all registered routes
	logrus.Info("=== REGISTERED ROUTES ===")
	for _, route := range router.Routes() {
		logrus.Infof("%s %s", route.Method, route.Path)
	}
	logrus.Info("=========================")

	// Setup server. Read timeout leaves room for 200MB uploads on slow links.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logrus.Infof("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}
