package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/go-telegram/bot/models"
)

// screen - текст сообщения вместе с клавиатурой
type screen struct {
	text     string
	keyboard *models.InlineKeyboardMarkup
}

// mySlotsScreen строит список слотов пользователя с кнопками управления
func (h *Handlers) mySlotsScreen(ctx context.Context, user *model.User) (*screen, error) {
	slots, err := h.slotService.ListOwned(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if len(slots) == 0 {
		return &screen{text: "📋 У вас пока нет слотов.\n\nСоздайте первый: /newslot"}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 У вас %d %s:\n", len(slots), PluralizeSlots(len(slots)))
	kb := newKeyboard()
	for i, slot := range slots {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, FormatSlot(slot, h.location))
		kb.Row(slotButtons(i+1, slot)...)
	}

	return &screen{text: b.String(), keyboard: kb.Build()}, nil
}

// slotButtons возвращает кнопки управления слотом. Заблокированный обменом
// слот изменить нельзя, поэтому кнопок у него нет.
func slotButtons(n int, slot *model.Slot) []models.InlineKeyboardButton {
	switch slot.Status {
	case model.SlotStatusBusy:
		return []models.InlineKeyboardButton{
			button(fmt.Sprintf("%d. 🔄 Открыть для обмена", n), CallbackToggleSlot+itoa(slot.ID)),
			button("🗑", CallbackDeleteSlot+itoa(slot.ID)),
		}
	case model.SlotStatusExchangeable:
		return []models.InlineKeyboardButton{
			button(fmt.Sprintf("%d. 📌 Снять с обмена", n), CallbackToggleSlot+itoa(slot.ID)),
			button("🗑", CallbackDeleteSlot+itoa(slot.ID)),
		}
	default:
		return nil
	}
}

// marketScreen строит список чужих слотов, доступных для обмена
func (h *Handlers) marketScreen(ctx context.Context, user *model.User) (*screen, error) {
	slots, err := h.slotService.ListExchangeable(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if len(slots) == 0 {
		return &screen{text: "🔄 Сейчас нет слотов, доступных для обмена."}, nil
	}

	var b strings.Builder
	b.WriteString("🔄 Слоты, доступные для обмена:\n")
	kb := newKeyboard()
	for i, slot := range slots {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, FormatMarketSlot(slot, h.location))
		kb.Row(button(fmt.Sprintf("%d. 🤝 Предложить обмен", i+1), CallbackOffer+itoa(slot.ID)))
	}

	return &screen{text: b.String(), keyboard: kb.Build()}, nil
}

// offerScreen предлагает выбрать свой слот для обмена на theirSlotID
func (h *Handlers) offerScreen(ctx context.Context, user *model.User, theirSlotID int64) (*screen, error) {
	slots, err := h.slotService.ListOwned(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	kb := newKeyboard()
	for _, slot := range slots {
		if !slot.IsExchangeable() {
			continue
		}
		kb.Row(button(
			fmt.Sprintf("%s, %s", slot.Title, FormatInterval(slot.StartTime, slot.EndTime, h.location)),
			CallbackPropose+itoa(slot.ID)+":"+itoa(theirSlotID),
		))
	}

	if kb.Empty() {
		return &screen{
			text: "❌ У вас нет слотов, открытых для обмена.\n\nОткройте слот для обмена в /myslots.",
		}, nil
	}

	kb.Row(button("⬅️ Назад", CallbackMarket))
	return &screen{text: "🤝 Какой из своих слотов вы отдаёте взамен?", keyboard: kb.Build()}, nil
}

// requestsScreen строит списки входящих и исходящих предложений
func (h *Handlers) requestsScreen(ctx context.Context, user *model.User) (*screen, error) {
	list, err := h.swapService.ListFor(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	if len(list.Incoming) == 0 && len(list.Outgoing) == 0 {
		return &screen{text: "📭 Предложений обмена пока нет.\n\nНайти слот для обмена: /market"}, nil
	}

	var b strings.Builder
	kb := newKeyboard()

	b.WriteString("📥 Входящие:\n")
	if len(list.Incoming) == 0 {
		b.WriteString("   нет\n")
	}
	for _, p := range list.Incoming {
		fmt.Fprintf(&b, "\n%s\n", FormatProposal(p, true, h.location))
		if p.IsPending() {
			kb.Row(
				button(fmt.Sprintf("✅ Принять #%d", p.ID), CallbackAccept+itoa(p.ID)),
				button(fmt.Sprintf("❌ Отклонить #%d", p.ID), CallbackReject+itoa(p.ID)),
			)
		}
	}

	b.WriteString("\n📤 Исходящие:\n")
	if len(list.Outgoing) == 0 {
		b.WriteString("   нет\n")
	}
	for _, p := range list.Outgoing {
		fmt.Fprintf(&b, "\n%s\n", FormatProposal(p, false, h.location))
	}

	s := &screen{text: b.String()}
	if !kb.Empty() {
		s.keyboard = kb.Build()
	}
	return s, nil
}
