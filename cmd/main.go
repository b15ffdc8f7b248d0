/*
Package main is the entry point for the anonchat server.

It is responsible for loading configuration, initializing the global logging system, opening the
user directory, starting the pairing engine and the WebSocket hub, serving HTTP, and gracefully
handling operating system interrupt signals (SIGINT, SIGTERM) to ensure a smooth shutdown.
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"anonchat/internal/app/chat"
	"anonchat/internal/app/db"
	"anonchat/internal/app/directory"
	"anonchat/internal/app/matchmaking"
	"anonchat/internal/app/storage"
	"anonchat/internal/configs"
	"anonchat/internal/handler"
	"anonchat/internal/pkg/logx"
)

func main() {
	// Load configuration from .env and environment variables
	cfg, err := configs.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logx.InitGlobalLogger(cfg.IsDevelopment(), cfg.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logx.Logger().Info().
		Str("environment", cfg.Environment).
		Int("port", cfg.Port).
		Str("directory_driver", cfg.DirectoryDriver).
		Bool("attachments", cfg.S3Enabled()).
		Strs("allowed_origins", cfg.AllowedOrigins).
		Msg("Configuration loaded successfully")

	// Create a context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dir, err := openDirectory(ctx, cfg)
	if err != nil {
		logx.Fatal(err, "Failed to open user directory")
	}

	storageService, err := storage.NewStorageService(storage.ServiceConfig{
		S3BucketName:      cfg.S3BucketName,
		S3Endpoint:        cfg.S3Endpoint,
		S3AccessKeyID:     cfg.S3AccessKeyID,
		S3SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		logx.Fatal(err, "Failed to initialize attachment storage")
	}

	hub := chat.NewHub()
	sm := matchmaking.NewStateMachine(dir)

	dispatchCfg := matchmaking.DefaultDispatcherConfig()
	dispatchCfg.Workers = cfg.NotifyWorkers
	events := matchmaking.NewDispatcher(hub, dispatchCfg)

	teardown := matchmaking.NewTeardown(sm, events)
	engine := matchmaking.NewEngine(sm, events)

	engineCtx, stopEngine := context.WithCancel(context.Background())
	var engineDone sync.WaitGroup
	engineDone.Add(1)
	go func() {
		defer engineDone.Done()
		engine.Run(engineCtx)
	}()

	router := handler.Router(&handler.AppDeps{
		Config:         cfg,
		Directory:      dir,
		StateMachine:   sm,
		Teardown:       teardown,
		Hub:            hub,
		Relay:          chat.NewRelay(sm, teardown, hub),
		StorageService: storageService,
	})

	serverAddr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logx.Info(fmt.Sprintf("anonchat server starting on http://localhost%s", serverAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal(err, "Server failed to start")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server with a timeout of 5 seconds.
	<-ctx.Done()
	logx.Info("Received shutdown signal. Starting graceful shutdown...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logx.Error(err, "Server forced to shutdown")
	}

	// An in-flight pairing still commits or rolls back before Run returns.
	stopEngine()
	engineDone.Wait()

	events.Close()
	hub.Shutdown()

	if err := dir.Close(); err != nil {
		logx.Error(err, "Failed to close user directory")
	}

	logx.Info("Server gracefully stopped.")
}

// openDirectory opens the configured directory driver.
func openDirectory(ctx context.Context, cfg *configs.AppConfig) (directory.Directory, error) {
	switch cfg.DirectoryDriver {
	case configs.DriverBadger:
		if cfg.BadgerPath == "" {
			logx.Warn("BADGER_PATH is empty, users are kept in memory only")
		}
		return directory.OpenBadger(cfg.BadgerPath)

	case configs.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseDSN, db.PoolOptions{MaxConns: cfg.DatabaseMaxConn})
		if err != nil {
			return nil, err
		}
		logx.Info("Database connection pool successfully initialized.")
		return directory.NewPostgres(pool), nil
	}

	return nil, fmt.Errorf("unknown directory driver %q", cfg.DirectoryDriver)
}
