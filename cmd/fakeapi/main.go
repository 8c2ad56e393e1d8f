// Command fakeapi serves a local store API to rehearse seeding runs against.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storeseed/internal/config"
	"storeseed/internal/database"
	"storeseed/internal/fakeapi"
	"storeseed/internal/observability"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.SetupLogging(cfg.LogFormat, cfg.LogLevel)
	logger := observability.GlobalLogger.Logger

	db, err := database.Open(cfg.FakeAPIDatabaseURL, logger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	store := fakeapi.NewStore(db, 0)
	if err := store.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	if cfg.FakeAPIAdminEmail != "" {
		if _, err := store.EnsureAdmin(context.Background(), cfg.FakeAPIAdminEmail, cfg.FakeAPIAdminPass); err != nil {
			log.Fatalf("Failed to create admin account: %v", err)
		}
		log.Printf("Admin account ready: %s", cfg.FakeAPIAdminEmail)
	}

	srv := fakeapi.New(store, fakeapi.Options{
		JWTSecret: cfg.FakeAPIJWTSecret,
		FailEvery: cfg.FakeAPIFailEvery,
		Logger:    logger,
	})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		if sqlDB, err := db.DB(); err == nil {
			if cerr := sqlDB.Close(); cerr != nil {
				log.Printf("error closing sql DB: %v", cerr)
			}
		}
	}()

	if err := srv.Listen(":" + cfg.FakeAPIPort); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server shutdown complete")
}
