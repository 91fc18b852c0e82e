package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/slotswap/internal/model"
)

// InconsistencyFinder ищет слоты с рассогласованным статусом блокировки
type InconsistencyFinder interface {
	FindSlotInconsistencies(ctx context.Context) ([]*model.SlotInconsistency, error)
}

// Auditor периодически проверяет, что SwapLocked стоит ровно у слотов
// с одним pending предложением. Только читает и логирует.
type Auditor struct {
	finder   InconsistencyFinder
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
}

// NewAuditor создаёт аудитор. interval <= 0 отключает проверки.
func NewAuditor(finder InconsistencyFinder, interval time.Duration, logger *zap.Logger) *Auditor {
	return &Auditor{
		finder:   finder,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Run выполняет проверки до отмены ctx или вызова Stop
func (a *Auditor) Run(ctx context.Context) error {
	if a.interval <= 0 {
		a.logger.Info("Consistency auditor disabled")
		return nil
	}

	a.logger.Info("Starting consistency auditor", zap.Duration("interval", a.interval))

	// Первый запуск сразу при старте
	a.Check(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.Check(ctx)
		case <-a.stopChan:
			a.logger.Info("Consistency auditor stopped")
			return nil
		case <-ctx.Done():
			a.logger.Info("Consistency auditor cancelled")
			return nil
		}
	}
}

// Stop останавливает аудитор
func (a *Auditor) Stop() {
	close(a.stopChan)
}

// Check выполняет одну проверку и возвращает число найденных нарушений
func (a *Auditor) Check(ctx context.Context) int {
	found, err := a.finder.FindSlotInconsistencies(ctx)
	if err != nil {
		a.logger.Error("Consistency audit failed", zap.Error(err))
		return 0
	}

	for _, item := range found {
		a.logger.Warn("Slot lock status inconsistent",
			zap.Int64("slot_id", item.SlotID),
			zap.String("status", string(item.Status)),
			zap.Int("pending_claims", item.PendingClaims),
		)
	}

	if len(found) == 0 {
		a.logger.Debug("Consistency audit passed")
	}
	return len(found)
}
