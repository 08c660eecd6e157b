package main

import (
	"context"
	"flag"
	"log"
	"time"

	"painel/internal/config"
	"painel/internal/container"
	"painel/internal/migration"

	"github.com/joho/godotenv"
)

func main() {
	status := flag.Bool("status", false, "print the applied schema version and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := container.OpenDatabase(ctx, cfg.Catalog)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}
	defer db.Close()

	runner := migration.NewRunner()
	if *status {
		version, err := runner.AppliedVersion(ctx, db)
		if err != nil {
			log.Fatalf("Failed to read schema version: %v", err)
		}
		if version == "" {
			version = "none"
		}
		log.Printf("Catalog schema version: %s (latest %s)", version, runner.Version())
		return
	}

	log.Printf("Migrating %s catalog to schema %s", db.DriverName(), runner.Version())
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Migration complete")
}
