package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"land-portal/parcel-portal/parcel-portal-backend/internal/config"
	"land-portal/parcel-portal/parcel-portal-backend/internal/draft"
	"land-portal/parcel-portal/parcel-portal-backend/internal/export"
	"land-portal/parcel-portal/parcel-portal-backend/internal/intake"
	"land-portal/parcel-portal/parcel-portal-backend/internal/metrics"
	"land-portal/parcel-portal/parcel-portal-backend/internal/parcels"
	"land-portal/parcel-portal/parcel-portal-backend/pkg/clock"
	"land-portal/parcel-portal/parcel-portal-backend/pkg/logger"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.json"
	}

	// Load configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		bootstrap, _ := zap.NewDevelopment()
		bootstrap.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Environment, cfg.Logging.Level)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open draft store", zap.String("backend", cfg.Draft.Backend), zap.Error(err))
	}
	defer closeStore()

	clk := clock.New()
	persister := draft.NewPersister(store, draft.PersisterConfig{
		Key:          cfg.Draft.Key,
		Window:       cfg.Draft.DebounceWindow,
		WriteTimeout: cfg.Draft.WriteTimeout,
	}, clk, log, m)
	session := draft.Open(ctx, persister, log, m)

	orchestrator := intake.NewOrchestrator(
		session,
		intake.NewHTTPTransport(cfg.Intake.Endpoint, cfg.Intake.Timeout),
		clk,
		intake.Config{
			ProgressInterval:  cfg.Intake.ProgressInterval,
			ProgressStep:      cfg.Intake.ProgressStep,
			ProgressCap:       cfg.Intake.ProgressCap,
			ConfirmationDelay: cfg.Intake.ConfirmationDelay,
		},
		log,
		m,
	)

	var archiver *export.Archiver
	if cfg.Archive.Schedule != "" {
		formats, err := export.ParseFormats(cfg.Archive.Formats)
		if err != nil {
			log.Fatal("Invalid archive formats", zap.Error(err))
		}
		archiver, err = export.NewArchiver(session, clk, export.ArchiverConfig{
			Schedule: cfg.Archive.Schedule,
			Dir:      cfg.Archive.Dir,
			Formats:  formats,
		}, log)
		if err != nil {
			log.Fatal("Failed to create archiver", zap.Error(err))
		}
		if err := archiver.Start(); err != nil {
			log.Fatal("Failed to start archiver", zap.Error(err))
		}
	}

	hub := parcels.NewHub(log)
	parcelsHandler := parcels.NewHandler(session, orchestrator, hub, clk, log)
	orchestrator.Subscribe(parcelsHandler.PublishStatus)

	// Setup Router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(logger.Recovery(log), logger.RequestLogger(log))

	// CORS Middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.Server.AllowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Register Routes
	api := router.Group("/api/v1")
	{
		parcelsHandler.RegisterRoutes(api)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"backend":   cfg.Draft.Backend,
			"timestamp": time.Now(),
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Start Server
	srv := &http.Server{
		Addr:         cfg.Server.GetServerAddr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	log.Info("Server started",
		zap.String("addr", srv.Addr),
		zap.String("draft_backend", cfg.Draft.Backend),
		zap.String("intake_endpoint", cfg.Intake.Endpoint),
	)

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if archiver != nil {
		archiver.Stop()
	}
	orchestrator.Stop()
	hub.Stop()
	if err := session.Close(shutdownCtx); err != nil {
		log.Error("Failed to flush draft on shutdown", zap.Error(err))
	}

	log.Info("Server exiting")
}
