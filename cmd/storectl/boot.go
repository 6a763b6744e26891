package main

import (
	"fmt"
	"time"

	"steel-store/internal/config"
	"steel-store/internal/database"
	"steel-store/internal/logger"

	"go.uber.org/zap"
)

// app is what every subcommand needs once configuration is loaded
type app struct {
	cfg    *config.Config
	log    *zap.Logger
	dbSvc  database.Service
	expiry time.Duration
}

// boot loads config and opens the database connection
func boot() (*app, error) {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	dbSvc, err := database.New(cfg.Database)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		log:    log,
		dbSvc:  dbSvc,
		expiry: time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
	}, nil
}

func (a *app) close() {
	if err := a.dbSvc.Close(); err != nil {
		a.log.Error("Failed to close database connection", zap.Error(err))
	}
	a.log.Sync()
}
