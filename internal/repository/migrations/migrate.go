package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// NewProvider создаёт goose провайдер для нужного диалекта.
// Используется провайдер, а не глобальное состояние goose, чтобы несколько
// хранилищ (например, в тестах) могли мигрировать независимо.
func NewProvider(db *sql.DB, dialect goose.Dialect) (*goose.Provider, error) {
	var (
		fsys fs.FS
		err  error
	)

	switch dialect {
	case goose.DialectPostgres:
		fsys, err = fs.Sub(Postgres, PostgresDir)
	case goose.DialectSQLite3:
		fsys, err = fs.Sub(SQLite, SQLiteDir)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("open migrations dir: %w", err)
	}

	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("create goose provider: %w", err)
	}
	return provider, nil
}

// Up применяет все pending миграции и возвращает итоговую версию схемы
func Up(ctx context.Context, db *sql.DB, dialect goose.Dialect) (int64, error) {
	provider, err := NewProvider(db, dialect)
	if err != nil {
		return 0, err
	}

	if _, err := provider.Up(ctx); err != nil {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}

	version, err := provider.GetDBVersion(ctx)
	if err != nil {
		return 0, fmt.Errorf("get version: %w", err)
	}
	return version, nil
}
