package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "turfmania-backend/internal/api/http"
	"turfmania-backend/internal/config"
	"turfmania-backend/internal/jobs"
	"turfmania-backend/internal/logger"
	"turfmania-backend/internal/repository/postgres"
	"turfmania-backend/internal/scheduler"
	"turfmania-backend/internal/service"
	"turfmania-backend/internal/storage"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting TurfMania Backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress())
	logger.Info("Database configuration", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)

	// Initialize Database
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		logger.Error("Failed to ping database", "error", err)
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize Repositories
	store := postgres.NewStore(db)

	// Initialize Asset Store
	assets, err := storage.NewLocalAssetStore(cfg.Storage.BaseURL, cfg.Storage.UploadDir)
	if err != nil {
		logger.Error("Failed to initialize asset store", "error", err)
		log.Fatalf("Failed to initialize asset store: %v", err)
	}

	// Initialize Services
	emailSender := service.NewSendGridEmailSender(cfg.Email.APIKey, cfg.Email.From, cfg.Email.FromName)
	notifier := service.NewNotifier(store.UserRepository, emailSender, cfg.Email.Support)
	requestSvc := service.NewOrganizationRequestService(
		store.OrganizationRequestRepository,
		store.UserRepository,
		store.FacilityRepository,
		assets,
		notifier,
	)

	// Initialize Reclaimer
	jobRunner := jobs.NewJobRunner(requestSvc, cfg)
	cronScheduler := scheduler.NewScheduler(jobRunner)
	cronScheduler.Start()
	defer cronScheduler.Stop()

	// Set up HTTP server
	router := mux.NewRouter()
	requestHandler := httpapi.NewOrganizationRequestHandler(
		requestSvc,
		store.OrganizationRepository,
		store.UserRepository,
		notifier,
		db,
	)
	requestHandler.RegisterRoutes(router)

	// Serve uploaded images
	router.PathPrefix("/assets/images/").Handler(
		http.StripPrefix("/assets/images/", http.FileServer(http.Dir(assets.ImagesDir()))))

	srv := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "address", cfg.GetServerAddress())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			log.Fatalf("Failed to serve: %v", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}
