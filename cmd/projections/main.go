package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/joho/godotenv"

	"propflow/config"
	"propflow/internal/projections"
	"propflow/logger"
	"propflow/writer"
)

// Builds PPR fantasy projections from the most recent stored lines and
// writes them to a timestamped CSV.
func main() {
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "", "Path to configuration file")
	outDir := flag.String("out", "projections", "Directory for projection CSV files")
	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolveConfigPath(*configPath))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	store, err := writer.NewStore(cfg.Database.Path)
	if err != nil {
		log.WithError(err).Error("Failed to open database")
		os.Exit(1)
	}
	defer store.Close()

	rows, err := store.LatestLines(context.Background(), cfg.API.SelectedBook, projections.Markets())
	if err != nil {
		log.WithError(err).Error("Failed to load latest lines")
		os.Exit(1)
	}

	built := projections.Build(rows)
	path, err := projections.WriteCSV(*outDir, built, time.Now())
	if err != nil {
		log.WithError(err).Error("Failed to write projections")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"path":    path,
		"players": len(built),
	}).Info("projections written")
}
