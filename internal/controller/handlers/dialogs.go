package handlers

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Freeeeeet/slotswap/internal/controller/state"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleNewSlotStart начинает процесс создания слота
func (h *Handlers) HandleNewSlotStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		return
	}

	telegramID := update.Message.From.ID
	h.stateManager.ClearState(telegramID)
	h.stateManager.SetState(telegramID, state.StateNewSlotTitle)

	h.logger.Info("Starting slot creation",
		zap.Int64("telegram_id", telegramID),
		zap.Int64("user_id", user.ID))

	h.sendMessage(ctx, b, update.Message.Chat.ID,
		"📝 Новый слот\n\n"+
			"Шаг 1 из 3: Как назвать слот?\n\n"+
			"Например: Дежурство, Смена в кафе, Созвон с командой\n\n"+
			"Для отмены используйте /cancel")
}

// handleNewSlotTitle обрабатывает ввод названия слота
func (h *Handlers) handleNewSlotTitle(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	title := strings.TrimSpace(update.Message.Text)

	if title == "" {
		h.sendError(ctx, b, update.Message.Chat.ID, "❌ Название не может быть пустым.\n\nПопробуйте ещё раз:")
		return
	}
	if utf8.RuneCountInString(title) > SlotTitleMaxLength {
		h.sendError(ctx, b, update.Message.Chat.ID,
			fmt.Sprintf("❌ Название слишком длинное. Максимум %d символов.\n\nПопробуйте ещё раз:", SlotTitleMaxLength))
		return
	}

	h.stateManager.SetData(telegramID, state.KeyTitle, title)
	h.stateManager.SetState(telegramID, state.StateNewSlotStart)

	h.sendMessage(ctx, b, update.Message.Chat.ID, fmt.Sprintf(
		"✅ Название: %s\n\n"+
			"Шаг 2 из 3: Когда начинается слот?\n\n"+
			"Формат: ДД.ММ.ГГГГ ЧЧ:ММ, например 25.03.2025 14:00\n\n"+
			"Для отмены используйте /cancel", title))
}

// handleNewSlotStart обрабатывает ввод начала слота
func (h *Handlers) handleNewSlotStart(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID

	start, err := ParseSlotStart(update.Message.Text, h.location)
	if err != nil {
		h.sendError(ctx, b, update.Message.Chat.ID,
			"❌ Не удалось разобрать дату. Формат: ДД.ММ.ГГГГ ЧЧ:ММ\n\nПопробуйте ещё раз:")
		return
	}

	h.stateManager.SetData(telegramID, state.KeyStart, start)
	h.stateManager.SetState(telegramID, state.StateNewSlotEnd)

	h.sendMessage(ctx, b, update.Message.Chat.ID, fmt.Sprintf(
		"✅ Начало: %s\n\n"+
			"Шаг 3 из 3: Когда слот заканчивается?\n\n"+
			"Введите длительность в минутах (например 90), время окончания (18:30) "+
			"или полную дату и время.\n\n"+
			"Для отмены используйте /cancel", start.Format(InputDateTimeLayout)))
}

// handleNewSlotEnd обрабатывает ввод окончания слота и создаёт слот
func (h *Handlers) handleNewSlotEnd(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	title, ok1 := h.stateManager.GetString(telegramID, state.KeyTitle)
	start, ok2 := h.stateManager.GetTime(telegramID, state.KeyStart)
	if !ok1 || !ok2 {
		h.logger.Error("Missing data for new slot", zap.Int64("telegram_id", telegramID))
		h.stateManager.ClearState(telegramID)
		h.sendError(ctx, b, chatID, "❌ Ошибка: данные не найдены. Начните заново через /newslot")
		return
	}

	end, err := ParseSlotEnd(update.Message.Text, start)
	if err != nil {
		h.sendError(ctx, b, chatID, "❌ Не удалось разобрать окончание.\n\nПопробуйте ещё раз:")
		return
	}
	if !end.After(start) {
		h.sendError(ctx, b, chatID, "❌ Окончание должно быть позже начала.\n\nПопробуйте ещё раз:")
		return
	}

	user, ok := h.requireUser(ctx, b, update)
	if !ok {
		h.stateManager.ClearState(telegramID)
		return
	}

	slot, err := h.slotService.Create(ctx, user.ID, title, start, end)
	h.stateManager.ClearState(telegramID)
	if err != nil {
		h.logger.Error("Failed to create slot", zap.Int64("user_id", user.ID), zap.Error(err))
		h.sendError(ctx, b, chatID, ErrorText(err))
		return
	}

	kb := newKeyboard().
		Row(button("🔄 Открыть для обмена", CallbackToggleSlot+itoa(slot.ID))).
		Row(button("📋 Мои слоты", CallbackMySlots)).
		Build()

	h.sendWithKeyboard(ctx, b, chatID, "✅ Слот создан!\n\n"+FormatSlot(slot, h.location), kb)
}
