// Command seed populates a store API with demo users, categories and products.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storeseed/internal/apiclient"
	"storeseed/internal/catalog"
	"storeseed/internal/config"
	"storeseed/internal/observability"
	"storeseed/internal/seed"
)

func main() {
	products := flag.Int("products", 0, "Number of products to create (overrides SEED_TOTAL_PRODUCTS)")
	baseURL := flag.String("base-url", "", "API base URL (overrides SEED_BASE_URL)")
	dryRun := flag.Bool("dry-run", false, "Log payloads instead of sending them")
	randomSeed := flag.Int64("seed", 0, "Random seed for reproducible data (overrides SEED_RANDOM_SEED)")
	flag.Parse()

	log.Println("🌱 Store Seeder")
	log.Println("===============")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *products > 0 {
		cfg.TotalProducts = *products
	}
	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *dryRun {
		cfg.DryRun = true
	}
	if *randomSeed != 0 {
		cfg.RandomSeed = *randomSeed
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := run(cfg); err != nil {
		log.Printf("❌ Seeding failed: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	observability.SetupLogging(cfg.LogFormat, cfg.LogLevel)

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "storeseed",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracer shutdown error: %v", err)
		}
	}()

	cat, err := catalog.Default()
	if cfg.CatalogFile != "" {
		cat, err = catalog.Load(cfg.CatalogFile)
	}
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithRunID(ctx, observability.GenerateRunID())

	var api seed.API
	if cfg.DryRun {
		log.Println("Dry run: nothing will be sent")
		api = apiclient.NewRecorder()
	} else {
		client, err := apiclient.New(cfg.BaseURL, apiclient.WithTimeout(cfg.HTTPTimeout()))
		if err != nil {
			return err
		}
		if cfg.AuthEmail != "" {
			if err := client.Login(ctx, cfg.AuthEmail, cfg.AuthPassword); err != nil {
				return err
			}
			log.Printf("Authenticated as %s", cfg.AuthEmail)
		}
		api = client
	}

	log.Printf("Target: %d products against %s", cfg.TotalProducts, cfg.BaseURL)

	s := seed.NewSeeder(api, cat, seed.Options{
		TotalProducts:      cfg.TotalProducts,
		RequestDelay:       cfg.RequestDelay(),
		ProgressEvery:      cfg.ProgressEvery,
		MaxProductAttempts: cfg.MaxProductAttempts,
		RandomSeed:         cfg.RandomSeed,
	})
	sum, runErr := s.Run(ctx)

	log.Printf("Users: %d created, %d failed", sum.UsersCreated, sum.UsersFailed)
	log.Printf("Categories: %d created, %d failed", sum.CategoriesCreated, sum.CategoriesFailed)
	if sum.ProductsSkipped {
		log.Println(seed.MsgNothingToReference)
	} else {
		log.Printf("Products: %d created, %d failed, %d attempts", sum.ProductsCreated, sum.ProductsFailed, sum.ProductAttempts)
	}
	log.Printf("Elapsed: %s", sum.Elapsed.Round(time.Millisecond))

	if cfg.MetricsFile != "" {
		if err := observability.WriteMetricsFile(cfg.MetricsFile); err != nil {
			log.Printf("failed to write metrics: %v", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	log.Println("✨ All done!")
	return nil
}
