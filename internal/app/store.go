package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Freeeeeet/slotswap/internal/config"
	"github.com/Freeeeeet/slotswap/internal/repository"
	"github.com/Freeeeeet/slotswap/internal/repository/postgres"
	"github.com/Freeeeeet/slotswap/internal/repository/sqlite"
)

// OpenStore подключается к хранилищу, выбранному в DB_DRIVER.
// SQLite мигрирует при открытии, PostgreSQL - через Migrator.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.DBDSN, cfg.TxMaxRetries)
		if err != nil {
			return nil, err
		}
		logger.Info("Connected to PostgreSQL")
		return store, nil

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		logger.Info("Opened SQLite database", zap.String("dsn", cfg.DBDSN))
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}
