package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository"
	"go.uber.org/zap"
)

// SlotService - реестр слотов. Все операции ограничены владельцем.
type SlotService struct {
	store  repository.Store
	logger *zap.Logger
}

func NewSlotService(store repository.Store, logger *zap.Logger) *SlotService {
	return &SlotService{
		store:  store,
		logger: logger,
	}
}

// Create создаёт новый слот со статусом Busy
func (s *SlotService) Create(ctx context.Context, ownerID int64, title string, start, end time.Time) (*model.Slot, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if start.IsZero() || end.IsZero() {
		return nil, fmt.Errorf("%w: start and end are required", ErrInvalidInput)
	}
	if !end.After(start) {
		return nil, ErrInvalidInterval
	}

	slot := &model.Slot{
		OwnerID:   ownerID,
		Title:     title,
		StartTime: start,
		EndTime:   end,
		Status:    model.SlotStatusBusy,
	}

	if err := s.store.CreateSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}

	s.logger.Info("Slot created",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("owner_id", ownerID),
		zap.Time("start", start),
		zap.Time("end", end),
	)

	return slot, nil
}

// Update применяет частичное изменение полей слота
func (s *SlotService) Update(ctx context.Context, ownerID, slotID int64, patch model.SlotPatch) (*model.Slot, error) {
	if err := validatePatch(&patch); err != nil {
		return nil, err
	}

	var updated *model.Slot
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		slot, err := lockOwnedSlot(ctx, q, ownerID, slotID)
		if err != nil {
			return err
		}
		if slot.IsLocked() {
			return fmt.Errorf("%w: slot %d", ErrLockedResource, slotID)
		}

		patch.ApplyTo(slot)
		if !slot.EndTime.After(slot.StartTime) {
			return ErrInvalidInterval
		}

		if err := q.UpdateSlot(ctx, slot); err != nil {
			return fmt.Errorf("update slot: %w", err)
		}
		updated = slot
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Slot updated",
		zap.Int64("slot_id", slotID),
		zap.Int64("owner_id", ownerID),
		zap.String("status", string(updated.Status)),
	)

	return updated, nil
}

// Delete удаляет слот владельца
func (s *SlotService) Delete(ctx context.Context, ownerID, slotID int64) error {
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		slot, err := lockOwnedSlot(ctx, q, ownerID, slotID)
		if err != nil {
			return err
		}
		if slot.IsLocked() {
			return fmt.Errorf("%w: slot %d", ErrLockedResource, slotID)
		}

		if err := q.DeleteSlot(ctx, slotID); err != nil {
			return fmt.Errorf("delete slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Slot deleted",
		zap.Int64("slot_id", slotID),
		zap.Int64("owner_id", ownerID),
	)

	return nil
}

// Get получает слот владельца
func (s *SlotService) Get(ctx context.Context, ownerID, slotID int64) (*model.Slot, error) {
	slot, err := s.store.GetSlot(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil || slot.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: slot %d", ErrNotFound, slotID)
	}
	return slot, nil
}

// ListOwned получает все слоты владельца
func (s *SlotService) ListOwned(ctx context.Context, ownerID int64) ([]*model.Slot, error) {
	slots, err := s.store.ListSlotsByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owned slots: %w", err)
	}
	return slots, nil
}

// ListExchangeable получает доступные для обмена слоты других пользователей,
// по возрастанию времени начала
func (s *SlotService) ListExchangeable(ctx context.Context, excludeOwnerID int64) ([]*model.MarketSlot, error) {
	slots, err := s.store.ListExchangeableSlots(ctx, excludeOwnerID)
	if err != nil {
		return nil, fmt.Errorf("list exchangeable slots: %w", err)
	}
	return slots, nil
}

// setStatusAndOwner меняет статус и владельца слота в рамках транзакции
// переговоров об обмене. Вызывается только из SwapService.
func (s *SlotService) setStatusAndOwner(ctx context.Context, q repository.Queries, slotID int64, status model.SlotStatus, ownerID int64) error {
	if !status.Valid() {
		return fmt.Errorf("set slot %d: unknown status %q", slotID, status)
	}
	if err := q.SetSlotStatusAndOwner(ctx, slotID, status, ownerID); err != nil {
		return fmt.Errorf("set slot %d status: %w", slotID, err)
	}
	return nil
}

// lockOwnedSlot блокирует слот и проверяет владельца
func lockOwnedSlot(ctx context.Context, q repository.Queries, ownerID, slotID int64) (*model.Slot, error) {
	slots, err := q.LockSlots(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("lock slot: %w", err)
	}
	slot := slots[slotID]
	if slot == nil || slot.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: slot %d", ErrNotFound, slotID)
	}
	return slot, nil
}

// validatePatch проверяет поля до открытия транзакции
func validatePatch(patch *model.SlotPatch) error {
	if patch.IsEmpty() {
		return fmt.Errorf("%w: no fields to update", ErrInvalidInput)
	}
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
		}
		patch.Title = &title
	}
	if patch.StartTime != nil && patch.StartTime.IsZero() {
		return fmt.Errorf("%w: start must not be empty", ErrInvalidInput)
	}
	if patch.EndTime != nil && patch.EndTime.IsZero() {
		return fmt.Errorf("%w: end must not be empty", ErrInvalidInput)
	}
	if patch.StartTime != nil && patch.EndTime != nil && !patch.EndTime.After(*patch.StartTime) {
		return ErrInvalidInterval
	}
	if patch.Status != nil && !patch.Status.OwnerSettable() {
		return fmt.Errorf("%w: status must be %q or %q", ErrInvalidInput, model.SlotStatusBusy, model.SlotStatusExchangeable)
	}
	return nil
}
