// Package main implements the entry point for the taskchat API server,
// the realtime chat backend scoped to collaborative tasks.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/rgeorgiev/taskchat-api/internal/config"
	"github.com/rgeorgiev/taskchat-api/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a migration command (up, down, status) and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.Setup(logger.LoggerConfig{Level: cfg.Server.LogLevel})
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel)

	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			appLogger.Error("failed to close database", "error", err)
		}
	}()

	if *migrateCmd != "" {
		if err := runMigrations(db, *migrateCmd, appLogger); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		return
	}

	app, err := newApplication(cfg, appLogger, db)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	fmt.Println("Server stopped")
}
