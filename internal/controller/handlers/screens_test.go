package handlers

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Freeeeeet/slotswap/internal/controller/state"
	"github.com/Freeeeeet/slotswap/internal/events"
	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository/sqlite"
	"github.com/Freeeeeet/slotswap/internal/service"
)

func newTestHandlers(t *testing.T) *Handlers {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "slotswap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := zaptest.NewLogger(t)
	slots := service.NewSlotService(store, logger)
	return NewHandlers(
		service.NewUserService(store, logger),
		slots,
		service.NewSwapService(store, slots, &events.NoopPublisher{}, logger),
		state.NewManager(0),
		time.UTC,
		logger,
	)
}

func (h *Handlers) testUser(t *testing.T, telegramID int64, name string) *model.User {
	t.Helper()
	u, err := h.userService.RegisterTelegramUser(context.Background(), telegramID, "", name, "")
	require.NoError(t, err)
	return u
}

func (h *Handlers) testSlot(t *testing.T, owner *model.User, title string, exchangeable bool) *model.Slot {
	t.Helper()
	ctx := context.Background()
	start := time.Date(2025, 3, 25, 10, 0, 0, 0, time.UTC)
	slot, err := h.slotService.Create(ctx, owner.ID, title, start, start.Add(time.Hour))
	require.NoError(t, err)
	if exchangeable {
		status := model.SlotStatusExchangeable
		slot, err = h.slotService.Update(ctx, owner.ID, slot.ID, model.SlotPatch{Status: &status})
		require.NoError(t, err)
	}
	return slot
}

func TestMySlotsScreen(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()
	anna := h.testUser(t, 100, "Анна")

	s, err := h.mySlotsScreen(ctx, anna)
	require.NoError(t, err)
	assert.Contains(t, s.text, "/newslot")
	assert.Nil(t, s.keyboard)

	slot := h.testSlot(t, anna, "Смена", false)

	s, err = h.mySlotsScreen(ctx, anna)
	require.NoError(t, err)
	assert.Contains(t, s.text, "Смена")
	require.NotNil(t, s.keyboard)
	require.Len(t, s.keyboard.InlineKeyboard, 1)
	assert.Equal(t, CallbackToggleSlot+itoa(slot.ID), s.keyboard.InlineKeyboard[0][0].CallbackData)
}

func TestMarketAndOfferScreens(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()
	anna := h.testUser(t, 100, "Анна")
	boris := h.testUser(t, 200, "Борис")

	theirs := h.testSlot(t, boris, "Вечер", true)
	h.testSlot(t, anna, "Своё закрытое", false)

	market, err := h.marketScreen(ctx, anna)
	require.NoError(t, err)
	assert.Contains(t, market.text, "Вечер")
	assert.Contains(t, market.text, "Борис")
	assert.NotContains(t, market.text, "Своё закрытое")
	assert.Equal(t, CallbackOffer+itoa(theirs.ID), market.keyboard.InlineKeyboard[0][0].CallbackData)

	// Своих открытых слотов нет
	offer, err := h.offerScreen(ctx, anna, theirs.ID)
	require.NoError(t, err)
	assert.Nil(t, offer.keyboard)
	assert.Contains(t, offer.text, "/myslots")

	mine := h.testSlot(t, anna, "Утро", true)
	offer, err = h.offerScreen(ctx, anna, theirs.ID)
	require.NoError(t, err)
	require.NotNil(t, offer.keyboard)
	assert.Equal(t, CallbackPropose+itoa(mine.ID)+":"+itoa(theirs.ID), offer.keyboard.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, CallbackMarket, offer.keyboard.InlineKeyboard[1][0].CallbackData)
}

func TestRequestsScreen(t *testing.T) {
	h := newTestHandlers(t)
	ctx := context.Background()
	anna := h.testUser(t, 100, "Анна")
	boris := h.testUser(t, 200, "Борис")

	s, err := h.requestsScreen(ctx, boris)
	require.NoError(t, err)
	assert.Contains(t, s.text, "Предложений обмена пока нет")

	mine := h.testSlot(t, anna, "Утро", true)
	theirs := h.testSlot(t, boris, "Вечер", true)
	proposal, err := h.swapService.Propose(ctx, anna.ID, mine.ID, theirs.ID)
	require.NoError(t, err)

	// Получатель видит кнопки ответа
	s, err = h.requestsScreen(ctx, boris)
	require.NoError(t, err)
	assert.Contains(t, s.text, "От: Анна")
	require.NotNil(t, s.keyboard)
	row := s.keyboard.InlineKeyboard[0]
	assert.Equal(t, CallbackAccept+itoa(proposal.ID), row[0].CallbackData)
	assert.Equal(t, CallbackReject+itoa(proposal.ID), row[1].CallbackData)

	// Инициатор видит исходящее без кнопок
	s, err = h.requestsScreen(ctx, anna)
	require.NoError(t, err)
	assert.Contains(t, s.text, "Кому: Борис")
	assert.Nil(t, s.keyboard)

	_, err = h.swapService.Respond(ctx, boris.ID, proposal.ID, true)
	require.NoError(t, err)

	s, err = h.requestsScreen(ctx, boris)
	require.NoError(t, err)
	assert.Contains(t, s.text, "✅ Обмен #")
	assert.Nil(t, s.keyboard)
}
