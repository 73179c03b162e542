package main

import (
	"context"
	"flag"
	"log"

	"dressline/internal/app"
	"dressline/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	// Parse command-line flags
	force := flag.Bool("force", false, "Replace existing local content with the initial book")
	dropTables := flag.Bool("drop-tables", false, "Drop the remote mirror tables before creating them")
	schemaOnly := flag.Bool("schema-only", false, "Only create the remote mirror tables")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*force || *dropTables) {
		log.Fatalf("🚫 BLOCKED: Cannot run destructive operations (--force or --drop-tables) in production environment")
	}

	logger, closeLog, err := config.NewLogger(cfg, "seed")
	if err != nil {
		log.Fatalf("Failed to setup logging: %v", err)
	}
	defer closeLog()

	ctx := context.Background()
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer application.Close()

	if application.Remote != nil {
		if *dropTables {
			log.Println("🗑️  Dropping remote tables...")
			if err := application.Remote.DropSchema(ctx); err != nil {
				log.Fatalf("Failed to drop tables: %v", err)
			}
			log.Println("✅ Tables dropped")
		}

		log.Printf("📋 Ensuring remote schema (prefix: %s)...", cfg.TablePrefix)
		if err := application.EnsureRemoteSchema(ctx); err != nil {
			log.Fatalf("Failed to create remote schema: %v", err)
		}
		log.Println("✅ Remote schema ready")
	} else {
		log.Println("ℹ️  REMOTE_DB_URL not set, skipping remote schema")
	}

	if *schemaOnly {
		return
	}

	if *force {
		log.Println("⚠️  Replacing local content with the initial book...")
		if err := application.Seeder.Reset(ctx); err != nil {
			log.Fatalf("Failed to seed: %v", err)
		}
		log.Println("✅ Initial book loaded")
		return
	}

	log.Printf("🌱 Seeding local store at %s", cfg.LocalDBPath)
	source, err := application.Seeder.Bootstrap(ctx, cfg.StaticDataFile)
	if err != nil {
		log.Fatalf("Failed to seed: %v", err)
	}
	log.Printf("✅ Local store ready (source: %s)", source)
}
