package main

import (
	"context"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"

	"painel/internal/config"
	"painel/internal/container"
	"painel/ui"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := container.OpenDatabase(ctx, appConfig.Catalog)
	if err != nil {
		log.Fatalf("Failed to open catalog: %v", err)
	}

	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	if err := appContainer.InitWithDatabase(ctx, db); err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	appContainer.StartSessionSweeper(ctx)

	server := ui.NewServer(ui.Options{
		Catalog:        appContainer.Catalog,
		Processor:      appContainer.Processor,
		Engine:         appContainer.Engine,
		Sessions:       appContainer.Sessions,
		MaxUploadBytes: appConfig.Uploads.MaxBytes(),
		GinMode:        appConfig.Server.GinMode,
	})

	// Start pprof server for performance profiling
	if appConfig.Profiling.Enabled {
		go func() {
			log.Printf("Performance profiling server starting on :%s", appConfig.Profiling.Port)
			log.Printf("View profiles: go tool pprof -http=:8081 http://localhost:%s/debug/pprof/profile?seconds=30", appConfig.Profiling.Port)
			if err := http.ListenAndServe(":"+appConfig.Profiling.Port, nil); err != nil {
				log.Printf("pprof server failed: %v", err)
			}
		}()
	}

	log.Printf("Starting Painel server on port %s", appConfig.Server.Port)
	if err := server.Start(ctx, ":"+appConfig.Server.Port, appConfig.Server.ShutdownTimeout); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
