// Package sqlite реализует repository.Store поверх встраиваемого SQLite
// (modernc.org/sqlite, без cgo). Используется для локального запуска и тестов.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Freeeeeet/slotswap/internal/repository"
	"github.com/Freeeeeet/slotswap/internal/repository/migrations"
)

// Параметры соединения по умолчанию: внешние ключи, ожидание блокировки и
// BEGIN IMMEDIATE, чтобы транзакция сразу брала блокировку на запись.
var defaultParams = []struct{ key, param string }{
	{"foreign_keys", "_pragma=foreign_keys(1)"},
	{"busy_timeout", "_pragma=busy_timeout(5000)"},
	{"_txlock", "_txlock=immediate"},
}

// Store реализует repository.Store поверх SQLite
type Store struct {
	*queries
	db *sql.DB
}

// Compile-time check
var _ repository.Store = (*Store)(nil)

// Open открывает базу, применяет миграции и возвращает хранилище.
// Все операции идут через одно соединение, поэтому транзакции сериализуются.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", withDefaultParams(dsn))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := migrations.Up(ctx, db, goose.DialectSQLite3); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	return New(db), nil
}

// New оборачивает уже открытую базу без применения миграций
func New(db *sql.DB) *Store {
	return &Store{queries: &queries{q: db}, db: db}
}

// DB возвращает нижележащий *sql.DB
func (s *Store) DB() *sql.DB {
	return s.db
}

// InTx выполняет fn в транзакции
func (s *Store) InTx(ctx context.Context, fn func(q repository.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&queries{q: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close закрывает базу
func (s *Store) Close() error {
	return s.db.Close()
}

func withDefaultParams(dsn string) string {
	var params []string
	for _, p := range defaultParams {
		if !strings.Contains(dsn, p.key) {
			params = append(params, p.param)
		}
	}
	if len(params) == 0 {
		return dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// isConstraintError проверяет, что ошибка - нарушение ограничения SQLite
func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
	}
	return false
}
