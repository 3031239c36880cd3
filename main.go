package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"

	"propflow/config"
	"propflow/internal/pipeline"
	"propflow/logger"
)

var errRunInProgress = errors.New("another run is in progress")

// acquireRunLock takes the advisory lock guarding the database file.
// Returns errRunInProgress when another invocation holds it.
func acquireRunLock(path string) (*flock.Flock, error) {
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, err
	}
	if !locked {
		return nil, errRunInProgress
	}
	return lock, nil
}

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "", "Path to configuration file")
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

	log.WithFields(logger.Fields{
		"service": cfg.Propflow.Name,
		"version": cfg.Propflow.Version,
	}).Info("starting propflow")

	// A scheduled run may still be in flight when the next one starts.
	// The lock fails the overlapping invocation fast instead of letting
	// two processes append to the same database.
	lock, err := acquireRunLock(cfg.Database.Path + ".lock")
	if err != nil {
		log.WithError(err).Error("Failed to acquire run lock")
		os.Exit(1)
	}
	defer lock.Unlock()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := pipeline.New(cfg)
	if err != nil {
		log.WithError(err).Error("Failed to build pipeline")
		os.Exit(1)
	}

	if err := p.Run(ctx); err != nil {
		log.WithError(err).Error("Run failed")
		lock.Unlock()
		os.Exit(1)
	}

	log.Info("propflow finished")
}
