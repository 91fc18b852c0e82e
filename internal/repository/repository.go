// Package repository описывает хранилище слотов и предложений обмена.
// Реализации лежат в подпакетах postgres и sqlite.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Freeeeeet/slotswap/internal/model"
)

var (
	// ErrSlotClaimed возвращается, когда слот уже занят другим pending предложением
	ErrSlotClaimed = errors.New("slot is already claimed by a pending proposal")

	// ErrNoRows возвращается мутациями, не затронувшими ни одной строки
	ErrNoRows = errors.New("no rows affected")
)

// Queries - операции над хранилищем. Один и тот же набор работает как
// поверх пула, так и внутри транзакции (см. Store.InTx).
//
// Get* методы возвращают (nil, nil), если запись не найдена.
type Queries interface {
	// Пользователи
	UpsertUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)

	// Слоты
	CreateSlot(ctx context.Context, slot *model.Slot) error
	GetSlot(ctx context.Context, id int64) (*model.Slot, error)
	// LockSlots загружает слоты и блокирует их строки до конца транзакции.
	// Блокировки берутся в порядке возрастания id.
	LockSlots(ctx context.Context, ids ...int64) (map[int64]*model.Slot, error)
	ListSlotsByOwner(ctx context.Context, ownerID int64) ([]*model.Slot, error)
	ListExchangeableSlots(ctx context.Context, excludeOwnerID int64) ([]*model.MarketSlot, error)
	UpdateSlot(ctx context.Context, slot *model.Slot) error
	SetSlotStatusAndOwner(ctx context.Context, id int64, status model.SlotStatus, ownerID int64) error
	DeleteSlot(ctx context.Context, id int64) error

	// Предложения обмена
	CreateProposal(ctx context.Context, proposal *model.SwapProposal) error
	GetProposal(ctx context.Context, id int64) (*model.SwapProposal, error)
	LockProposal(ctx context.Context, id int64) (*model.SwapProposal, error)
	HasPendingClaim(ctx context.Context, slotIDs ...int64) (bool, error)
	ResolveProposal(ctx context.Context, id int64, status model.ProposalStatus, respondedAt time.Time) error
	GetProposalView(ctx context.Context, id int64) (*model.SwapProposalView, error)
	ListIncomingProposals(ctx context.Context, receiverID int64) ([]*model.SwapProposalView, error)
	ListOutgoingProposals(ctx context.Context, proposerID int64) ([]*model.SwapProposalView, error)

	// Аудит
	FindSlotInconsistencies(ctx context.Context) ([]*model.SlotInconsistency, error)
}

// Store - хранилище с поддержкой транзакций
type Store interface {
	Queries

	// InTx выполняет fn в одной транзакции. Любая ошибка из fn откатывает
	// транзакцию целиком. fn может быть вызвана повторно при конфликте
	// сериализации, поэтому она не должна иметь внешних побочных эффектов.
	InTx(ctx context.Context, fn func(q Queries) error) error

	Close() error
}
