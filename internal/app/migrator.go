package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/Freeeeeet/slotswap/internal/repository"
	"github.com/Freeeeeet/slotswap/internal/repository/migrations"
	"github.com/Freeeeeet/slotswap/internal/repository/postgres"
	"github.com/Freeeeeet/slotswap/internal/repository/sqlite"
)

// Migrator обёртка над goose провайдером
type Migrator struct {
	db       *sql.DB
	ownsDB   bool
	provider *goose.Provider
	logger   *zap.Logger
}

// NewMigrator создаёт мигратор для открытого хранилища
func NewMigrator(store repository.Store, logger *zap.Logger) (*Migrator, error) {
	var (
		db      *sql.DB
		ownsDB  bool
		dialect goose.Dialect
	)

	switch s := store.(type) {
	case *postgres.Store:
		// Goose работает с *sql.DB, поэтому создаём его из пула
		db = stdlib.OpenDBFromPool(s.Pool())
		ownsDB = true
		dialect = goose.DialectPostgres
	case *sqlite.Store:
		db = s.DB()
		dialect = goose.DialectSQLite3
	default:
		return nil, fmt.Errorf("migrations not supported for %T", store)
	}

	provider, err := migrations.NewProvider(db, dialect)
	if err != nil {
		if ownsDB {
			db.Close()
		}
		return nil, err
	}

	return &Migrator{
		db:       db,
		ownsDB:   ownsDB,
		provider: provider,
		logger:   logger,
	}, nil
}

// Run применяет все pending миграции
func (mg *Migrator) Run(ctx context.Context) error {
	mg.logger.Info("Applying database migrations")

	results, err := mg.provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	for _, r := range results {
		mg.logger.Info("Migration applied",
			zap.Int64("version", r.Source.Version),
			zap.String("source", r.Source.Path),
			zap.Duration("duration", r.Duration),
		)
	}

	version, err := mg.Version(ctx)
	if err != nil {
		return err
	}
	mg.logger.Info("Migrations up to date", zap.Int64("version", version), zap.Int("applied", len(results)))
	return nil
}

// Version показывает текущую версию миграций
func (mg *Migrator) Version(ctx context.Context) (int64, error) {
	version, err := mg.provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}

// Status возвращает состояние каждой известной миграции
func (mg *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	status, err := mg.provider.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("get migration status: %w", err)
	}
	return status, nil
}

// Close закрывает соединение мигратора
func (mg *Migrator) Close() error {
	// Закрываем sql.DB, только если создавали его сами; пул управляется снаружи
	if mg.ownsDB && mg.db != nil {
		return mg.db.Close()
	}
	return nil
}
