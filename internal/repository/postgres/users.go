package postgres

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/slotswap/internal/model"
)

const userColumns = `id, external_id, telegram_id, name, email, created_at`

// UpsertUser создаёт пользователя или обновляет непустые поля существующего
func (r *queries) UpsertUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (external_id, telegram_id, name, email)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (external_id) DO UPDATE SET
			telegram_id = COALESCE(EXCLUDED.telegram_id, users.telegram_id),
			name = CASE WHEN EXCLUDED.name <> '' THEN EXCLUDED.name ELSE users.name END,
			email = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE users.email END
		RETURNING ` + userColumns

	err := r.db.QueryRow(ctx, query,
		user.ExternalID,
		user.TelegramID,
		user.Name,
		user.Email,
	).Scan(
		&user.ID,
		&user.ExternalID,
		&user.TelegramID,
		&user.Name,
		&user.Email,
		&user.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetUserByID получает пользователя по ID
func (r *queries) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := r.getUser(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return user, nil
}

// GetUserByTelegramID получает пользователя по Telegram ID
func (r *queries) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := r.getUser(ctx, query, telegramID)
	if err != nil {
		return nil, fmt.Errorf("get user by telegram id: %w", err)
	}
	return user, nil
}

func (r *queries) getUser(ctx context.Context, query string, arg any) (*model.User, error) {
	var user model.User
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.ExternalID,
		&user.TelegramID,
		&user.Name,
		&user.Email,
		&user.CreatedAt,
	)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
