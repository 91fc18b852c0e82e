package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/slotswap/internal/model"
)

const userColumns = `id, external_id, telegram_id, name, email, created_at`

// UpsertUser создаёт пользователя или обновляет непустые поля существующего
func (r *queries) UpsertUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (external_id, telegram_id, name, email, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (external_id) DO UPDATE SET
			telegram_id = COALESCE(excluded.telegram_id, users.telegram_id),
			name = CASE WHEN excluded.name <> '' THEN excluded.name ELSE users.name END,
			email = CASE WHEN excluded.email <> '' THEN excluded.email ELSE users.email END
		RETURNING ` + userColumns

	row := r.q.QueryRowContext(ctx, query,
		user.ExternalID,
		user.TelegramID,
		user.Name,
		user.Email,
		formatTime(time.Now()),
	)
	if err := scanUser(row, user); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetUserByID получает пользователя по ID
func (r *queries) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	var user model.User
	err := scanUser(r.q.QueryRowContext(ctx, query, id), &user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &user, nil
}

// GetUserByTelegramID получает пользователя по Telegram ID
func (r *queries) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = ?`

	var user model.User
	err := scanUser(r.q.QueryRowContext(ctx, query, telegramID), &user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}
	return &user, nil
}

func scanUser(row *sql.Row, user *model.User) error {
	var (
		telegramID sql.NullInt64
		createdAt  string
	)
	err := row.Scan(
		&user.ID,
		&user.ExternalID,
		&telegramID,
		&user.Name,
		&user.Email,
		&createdAt,
	)
	if err != nil {
		return err
	}

	user.TelegramID = nil
	if telegramID.Valid {
		id := telegramID.Int64
		user.TelegramID = &id
	}
	user.CreatedAt, err = parseTime(createdAt)
	return err
}
