// Package postgres реализует repository.Store поверх PostgreSQL (pgx).
//
// Транзакции выполняются на уровне REPEATABLE READ, строки слотов и
// предложений блокируются через SELECT ... FOR UPDATE. При конфликте
// сериализации или дедлоке транзакция повторяется целиком.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/Freeeeeet/slotswap/internal/repository"
)

const (
	defaultMaxRetries = 5
	retryBaseDelay    = 10 * time.Millisecond
)

// Store реализует repository.Store поверх pgxpool
type Store struct {
	*queries
	pool       *pgxpool.Pool
	maxRetries uint64
}

// Compile-time check
var _ repository.Store = (*Store)(nil)

// Open создаёт пул соединений и проверяет подключение
func Open(ctx context.Context, dsn string, maxRetries int) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return New(pool, maxRetries), nil
}

// New оборачивает существующий пул. maxRetries <= 0 означает значение по умолчанию.
func New(pool *pgxpool.Pool, maxRetries int) *Store {
	n := uint64(defaultMaxRetries)
	if maxRetries > 0 {
		n = uint64(maxRetries)
	}
	return &Store{
		queries:    &queries{db: pool},
		pool:       pool,
		maxRetries: n,
	}
}

// Pool возвращает пул соединений
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// InTx выполняет fn в транзакции REPEATABLE READ, повторяя её при
// конфликте сериализации
func (s *Store) InTx(ctx context.Context, fn func(q repository.Queries) error) error {
	backoff := retry.WithMaxRetries(s.maxRetries, retry.NewExponential(retryBaseDelay))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.runTx(ctx, fn)
		if err != nil && isRetryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func (s *Store) runTx(ctx context.Context, fn func(q repository.Queries) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&queries{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close закрывает пул
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
