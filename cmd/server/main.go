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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/stwalsh4118/loadcalc/api/internal/calc"
	"github.com/stwalsh4118/loadcalc/api/internal/config"
	"github.com/stwalsh4118/loadcalc/api/internal/database"
	"github.com/stwalsh4118/loadcalc/api/internal/handlers"
	"github.com/stwalsh4118/loadcalc/api/internal/logger"
	"github.com/stwalsh4118/loadcalc/api/internal/metrics"
	"github.com/stwalsh4118/loadcalc/api/internal/middleware"
	"github.com/stwalsh4118/loadcalc/api/internal/repository"
	"github.com/stwalsh4118/loadcalc/api/internal/services"
	"github.com/stwalsh4118/loadcalc/api/internal/tables"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.NewWithOptions(logger.Options{Env: cfg.Server.Env, Level: cfg.Server.LogLevel})
	log.Info("Starting load calculation API", map[string]interface{}{
		"version":     handlers.APIVersion,
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
	})

	store, err := tables.LoadFile(cfg.Engine.TablesPath)
	if err != nil {
		log.Fatal("Failed to load NEC tables", err, map[string]interface{}{
			"path": cfg.Engine.TablesPath,
		})
	}
	engine := calc.NewEngine(store, calc.Options{
		DefaultVoltage:          cfg.Engine.DefaultVoltage,
		DefaultMaterial:         tables.Material(cfg.Engine.DefaultMaterial),
		VoltageDropLimitPercent: cfg.Engine.VoltageDropLimitPercent,
	})
	log.Info("NEC tables loaded", map[string]interface{}{"edition": store.Edition})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		log.Fatal("Failed to register metrics", err, nil)
	}

	// Calculation history is optional; without it the API is stateless.
	var (
		repo   repository.CalculationRepository
		pinger database.Pinger
	)
	if cfg.Persistence.Enabled {
		ctx := context.Background()
		db, err := database.NewPostgresPool(ctx, cfg.Database)
		if err != nil {
			log.Fatal("Failed to connect to database", err, map[string]interface{}{
				"host": cfg.Database.Host,
				"port": cfg.Database.Port,
				"name": cfg.Database.Name,
			})
		}
		defer db.Close()

		if err := db.EnsureSchema(ctx); err != nil {
			log.Fatal("Failed to create calculation history schema", err, nil)
		}

		log.Info("Database connection established", map[string]interface{}{
			"host":     cfg.Database.Host,
			"port":     cfg.Database.Port,
			"database": cfg.Database.Name,
			"pool_min": cfg.Database.PoolMin,
			"pool_max": cfg.Database.PoolMax,
		})
		repo = repository.NewCalculationRepository(db)
		pinger = db
	} else {
		log.Info("Calculation history disabled", nil)
	}

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Metrics -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Metrics(m))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Register health check routes
	healthHandler := handlers.NewHealthHandler(pinger, store.Edition, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler(reg)))
	}

	// Initialize service layer and handlers
	calculationService := services.NewCalculationService(engine, repo, m, log)
	calculationHandler := handlers.NewCalculationHandler(calculationService)

	// Register API v1 routes
	v1 := router.Group("/api/v1")
	calculationHandler.RegisterRoutes(v1)

	// Create HTTP server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
