// Package main implements the entry point for the taskmirror server,
// which materializes recurring task instances and mirrors scheduled work
// into an external calendar.
package main

import (
	"fmt"
	"log"
	"log/slog"

	"github.com/calmhive/taskmirror/internal/config"
	"github.com/calmhive/taskmirror/internal/platform/logger"
)

func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.run(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration, sets up logging, and wires the
// application's dependencies.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"horizon_days", cfg.Materialization.HorizonDays,
		"materialization_interval", cfg.Materialization.Interval.String())

	return newApplication(cfg, appLogger)
}
