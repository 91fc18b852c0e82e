package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository"
	"go.uber.org/zap"
)

type UserService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewUserService(store repository.Store, logger *zap.Logger) *UserService {
	return &UserService{
		store:  store,
		logger: logger,
	}
}

// EnsureUser регистрирует пользователя по внешнему идентификатору или
// обновляет непустые имя и email существующего
func (s *UserService) EnsureUser(ctx context.Context, externalID, name, email string) (*model.User, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, fmt.Errorf("%w: empty identity", ErrInvalidInput)
	}

	user := &model.User{
		ExternalID: externalID,
		Name:       strings.TrimSpace(name),
		Email:      strings.TrimSpace(email),
	}
	if err := s.store.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}

	s.logger.Debug("User ensured",
		zap.Int64("user_id", user.ID),
		zap.String("external_id", externalID),
	)

	return user, nil
}

// RegisterTelegramUser регистрирует или обновляет пользователя Telegram
func (s *UserService) RegisterTelegramUser(ctx context.Context, telegramID int64, username, firstName, lastName string) (*model.User, error) {
	name := strings.TrimSpace(firstName + " " + lastName)
	if name == "" {
		name = username
	}

	user := &model.User{
		ExternalID: TelegramExternalID(telegramID),
		TelegramID: &telegramID,
		Name:       name,
	}
	if err := s.store.UpsertUser(ctx, user); err != nil {
		return nil, fmt.Errorf("upsert telegram user: %w", err)
	}

	s.logger.Info("Telegram user registered",
		zap.Int64("user_id", user.ID),
		zap.Int64("telegram_id", telegramID),
		zap.String("username", username),
	)

	return user, nil
}

// GetByTelegramID получает пользователя по Telegram ID
func (s *UserService) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	return s.store.GetUserByTelegramID(ctx, telegramID)
}

// GetByID получает пользователя по ID
func (s *UserService) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return s.store.GetUserByID(ctx, id)
}

// TelegramExternalID возвращает внешний идентификатор пользователя Telegram
func TelegramExternalID(telegramID int64) string {
	return fmt.Sprintf("tg:%d", telegramID)
}
