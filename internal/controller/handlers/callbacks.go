package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// callbackContext - разобранный callback вместе с пользователем
type callbackContext struct {
	query   *models.CallbackQuery
	message *models.Message
	user    *model.User
}

// HandleCallbackQuery маршрутизирует нажатия на inline кнопки
func (h *Handlers) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	query := update.CallbackQuery
	if query == nil {
		return
	}

	msg := query.Message.Message
	if msg == nil {
		h.answerCallback(ctx, b, query.ID, "Сообщение устарело, повторите команду.", true)
		return
	}

	user, err := h.userService.GetByTelegramID(ctx, query.From.ID)
	if err != nil {
		h.logger.Error("Failed to get user", zap.Int64("telegram_id", query.From.ID), zap.Error(err))
		h.answerCallback(ctx, b, query.ID, ErrorText(err), true)
		return
	}
	if user == nil {
		h.answerCallback(ctx, b, query.ID, "Используйте /start для регистрации.", true)
		return
	}

	cc := &callbackContext{query: query, message: msg, user: user}
	data := query.Data

	h.logger.Debug("Callback received",
		zap.Int64("user_id", user.ID),
		zap.String("data", data))

	switch {
	case data == CallbackMySlots:
		h.showScreen(ctx, b, cc, "", h.mySlotsScreen)
	case data == CallbackMarket:
		h.showScreen(ctx, b, cc, "", h.marketScreen)
	case data == CallbackRequests:
		h.showScreen(ctx, b, cc, "", h.requestsScreen)
	case strings.HasPrefix(data, CallbackToggleSlot):
		h.handleToggleSlot(ctx, b, cc)
	case strings.HasPrefix(data, CallbackDeleteSlot):
		h.handleDeleteSlot(ctx, b, cc)
	case strings.HasPrefix(data, CallbackConfirmDelete):
		h.handleConfirmDelete(ctx, b, cc)
	case strings.HasPrefix(data, CallbackOffer):
		h.handleOffer(ctx, b, cc)
	case strings.HasPrefix(data, CallbackPropose):
		h.handlePropose(ctx, b, cc)
	case strings.HasPrefix(data, CallbackAccept):
		h.handleRespond(ctx, b, cc, CallbackAccept, true)
	case strings.HasPrefix(data, CallbackReject):
		h.handleRespond(ctx, b, cc, CallbackReject, false)
	default:
		h.logger.Warn("Unknown callback", zap.String("data", data))
		h.answerCallback(ctx, b, query.ID, "", false)
	}
}

// showScreen перерисовывает сообщение callback'а и отвечает на него текстом notice
func (h *Handlers) showScreen(
	ctx context.Context,
	b *bot.Bot,
	cc *callbackContext,
	notice string,
	build func(context.Context, *model.User) (*screen, error),
) {
	s, err := build(ctx, cc.user)
	if err != nil {
		h.callbackError(ctx, b, cc, err)
		return
	}
	h.answerCallback(ctx, b, cc.query.ID, notice, false)
	h.editMessage(ctx, b, cc.message, s.text, s.keyboard)
}

// callbackError отвечает на callback понятным сообщением. Внутренние ошибки логируются.
func (h *Handlers) callbackError(ctx context.Context, b *bot.Bot, cc *callbackContext, err error) {
	if !service.IsDomainError(err) {
		h.logger.Error("Callback failed",
			zap.Int64("user_id", cc.user.ID),
			zap.String("data", cc.query.Data),
			zap.Error(err))
	}
	h.answerCallback(ctx, b, cc.query.ID, ErrorText(err), true)
}

// callbackID разбирает единственный идентификатор из callback data
func (h *Handlers) callbackID(ctx context.Context, b *bot.Bot, cc *callbackContext, prefix string) (int64, bool) {
	ids, err := ParseCallbackIDs(cc.query.Data, prefix, 1)
	if err != nil {
		h.logger.Warn("Bad callback data", zap.Error(err))
		h.answerCallback(ctx, b, cc.query.ID, "❌ Некорректная кнопка.", true)
		return 0, false
	}
	return ids[0], true
}

// handleToggleSlot открывает слот для обмена или снимает его с обмена
func (h *Handlers) handleToggleSlot(ctx context.Context, b *bot.Bot, cc *callbackContext) {
	slotID, ok := h.callbackID(ctx, b, cc, CallbackToggleSlot)
	if !ok {
		return
	}

	slot, err := h.slotService.Get(ctx, cc.user.ID, slotID)
	if err != nil {
		h.callbackError(ctx, b, cc, err)
		return
	}

	next := model.SlotStatusExchangeable
	notice := "🔄 Слот открыт для обмена"
	if slot.IsExchangeable() {
		next = model.SlotStatusBusy
		notice = "📌 Слот снят с обмена"
	}

	if _, err := h.slotService.Update(ctx, cc.user.ID, slotID, model.SlotPatch{Status: &next}); err != nil {
		h.callbackError(ctx, b, cc, err)
		return
	}

	h.showScreen(ctx, b, cc, notice, h.mySlotsScreen)
}

// handleDeleteSlot спрашивает подтверждение удаления
func (h *Handlers) handleDeleteSlot(ctx context.Context, b *bot.Bot, cc *callbackContext) {
	slotID, ok := h.callbackID(ctx, b, cc, CallbackDeleteSlot)
	if !ok {
		return
	}

	slot, err := h.slotService.Get(ctx, cc.user.ID, slotID)
	if err != nil {
		h.callbackError(ctx, b, cc, err)
		return
	}

	kb := newKeyboard().
		Row(
			button("🗑 Да, удалить", CallbackConfirmDelete+itoa(slot.ID)),
			button("⬅️ Нет", CallbackMySlots),
		).
		Build()

	h.answerCallback(ctx, b, cc.query.ID, "", false)
	h.editMessage(ctx, b, cc.message, "🗑 Удалить слот?\n\n"+FormatSlot(slot, h.location), kb)
}

// handleConfirmDelete удаляет слот
func (h *Handlers) handleConfirmDelete(ctx context.Context, b *bot.Bot, cc *callbackContext) {
	slotID, ok := h.callbackID(ctx, b, cc, CallbackConfirmDelete)
	if !ok {
		return
	}

	if err := h.slotService.Delete(ctx, cc.user.ID, slotID); err != nil {
		h.callbackError(ctx, b, cc, err)
		return
	}

	h.showScreen(ctx, b, cc, "🗑 Слот удалён", h.mySlotsScreen)
}

// handleOffer показывает выбор своего слота для обмена на чужой
func (h *Handlers) handleOffer(ctx context.Context, b *bot.Bot, cc *callbackContext) {
	theirSlotID, ok := h.callbackID(ctx, b, cc, CallbackOffer)
	if !ok {
		return
	}

	h.showScreen(ctx, b, cc, "", func(ctx context.Context, user *model.User) (*screen, error) {
		return h.offerScreen(ctx, user, theirSlotID)
	})
}

// handlePropose создаёт предложение обмена
func (h *Handlers) handlePropose(ctx context.Context, b *bot.Bot, cc *callbackContext) {
	ids, err := ParseCallbackIDs(cc.query.Data, CallbackPropose, 2)
	if err != nil {
		h.logger.Warn("Bad callback data", zap.Error(err))
		h.answerCallback(ctx, b, cc.query.ID, "❌ Некорректная кнопка.", true)
		return
	}

	proposal, err := h.swapService.Propose(ctx, cc.user.ID, ids[0], ids[1])
	if err != nil {
		h.callbackError(ctx, b, cc, err)
		return
	}

	kb := newKeyboard().Row(button("📨 Мои предложения", CallbackRequests)).Build()

	h.answerCallback(ctx, b, cc.query.ID, "🤝 Предложение отправлено", false)
	h.editMessage(ctx, b, cc.message, fmt.Sprintf(
		"✅ Предложение обмена #%d отправлено.\n\n"+
			"Оба слота заблокированы до ответа второй стороны.", proposal.ID), kb)
}

// handleRespond принимает или отклоняет входящее предложение
func (h *Handlers) handleRespond(ctx context.Context, b *bot.Bot, cc *callbackContext, prefix string, accept bool) {
	proposalID, ok := h.callbackID(ctx, b, cc, prefix)
	if !ok {
		return
	}

	if _, err := h.swapService.Respond(ctx, cc.user.ID, proposalID, accept); err != nil {
		h.callbackError(ctx, b, cc, err)
		return
	}

	notice := "❌ Предложение отклонено"
	if accept {
		notice = "✅ Обмен состоялся"
	}
	h.showScreen(ctx, b, cc, notice, h.requestsScreen)
}
