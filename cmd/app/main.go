package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/Kaushikmangukiya360/student-friend/docs"
	"github.com/Kaushikmangukiya360/student-friend/internal/config"
	"github.com/Kaushikmangukiya360/student-friend/internal/db"
	"github.com/Kaushikmangukiya360/student-friend/internal/logger"
	"github.com/Kaushikmangukiya360/student-friend/internal/notifier"
	"github.com/Kaushikmangukiya360/student-friend/internal/server"
)

// @title StudyFriend API
// @version 1.0
// @description API for student-faculty session booking with wallet payments.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.LogLevel)
	logger.Info("Starting StudyFriend application")

	logger.Info("Connecting to database...")
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	notifierService := notifier.New(cfg.RedisAddr, database)
	defer notifierService.Close()
	logger.Info("Notifier service initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go notifierService.Start(ctx)

	srv := server.New(database, cfg, notifierService)

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(cfg.Port); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}

	logger.Info("Server stopped")
}
