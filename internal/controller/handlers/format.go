package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/service"
)

// SlotStatusDisplay содержит emoji и текст для отображения статуса
type SlotStatusDisplay struct {
	Emoji string
	Text  string
}

// GetSlotStatusDisplay возвращает emoji и текст для статуса слота
func GetSlotStatusDisplay(status model.SlotStatus) SlotStatusDisplay {
	switch status {
	case model.SlotStatusBusy:
		return SlotStatusDisplay{Emoji: "📌", Text: "Занят"}
	case model.SlotStatusExchangeable:
		return SlotStatusDisplay{Emoji: "🔄", Text: "Доступен для обмена"}
	case model.SlotStatusSwapLocked:
		return SlotStatusDisplay{Emoji: "🔒", Text: "Ожидает ответа по обмену"}
	default:
		return SlotStatusDisplay{Emoji: "❓", Text: string(status)}
	}
}

// GetProposalStatusDisplay возвращает emoji и текст для статуса предложения
func GetProposalStatusDisplay(status model.ProposalStatus) SlotStatusDisplay {
	switch status {
	case model.ProposalStatusPending:
		return SlotStatusDisplay{Emoji: "⏳", Text: "Ожидает ответа"}
	case model.ProposalStatusAccepted:
		return SlotStatusDisplay{Emoji: "✅", Text: "Принято"}
	case model.ProposalStatusRejected:
		return SlotStatusDisplay{Emoji: "❌", Text: "Отклонено"}
	default:
		return SlotStatusDisplay{Emoji: "❓", Text: string(status)}
	}
}

// FormatInterval форматирует интервал слота.
// Если интервал в пределах одного дня, дата не повторяется.
func FormatInterval(start, end time.Time, loc *time.Location) string {
	start, end = start.In(loc), end.In(loc)
	sy, sm, sd := start.Date()
	ey, em, ed := end.Date()
	if sy == ey && sm == em && sd == ed {
		return fmt.Sprintf("%s-%s", start.Format(InputDateTimeLayout), end.Format(InputTimeLayout))
	}
	return fmt.Sprintf("%s - %s", start.Format(InputDateTimeLayout), end.Format(InputDateTimeLayout))
}

// FormatSlot форматирует слот для отображения в списке
func FormatSlot(slot *model.Slot, loc *time.Location) string {
	display := GetSlotStatusDisplay(slot.Status)
	return fmt.Sprintf("%s %s\n   📅 %s\n   %s",
		display.Emoji,
		slot.Title,
		FormatInterval(slot.StartTime, slot.EndTime, loc),
		display.Text,
	)
}

// FormatMarketSlot форматирует чужой слот, доступный для обмена
func FormatMarketSlot(slot *model.MarketSlot, loc *time.Location) string {
	return fmt.Sprintf("🔄 %s\n   📅 %s\n   👤 %s",
		slot.Title,
		FormatInterval(slot.StartTime, slot.EndTime, loc),
		slot.OwnerName,
	)
}

// formatSummary форматирует слот из предложения. Слот может быть уже удалён.
func formatSummary(slot *model.SlotSummary, loc *time.Location) string {
	if slot == nil {
		return "слот удалён"
	}
	return fmt.Sprintf("%s (%s)", slot.Title, FormatInterval(slot.StartTime, slot.EndTime, loc))
}

// FormatProposal форматирует предложение обмена с точки зрения участника.
// incoming - предложение адресовано текущему пользователю.
func FormatProposal(p *model.SwapProposalView, incoming bool, loc *time.Location) string {
	display := GetProposalStatusDisplay(p.Status)

	var b strings.Builder
	fmt.Fprintf(&b, "%s Обмен #%d: %s\n", display.Emoji, p.ID, display.Text)
	if incoming {
		fmt.Fprintf(&b, "   👤 От: %s\n", p.ProposerName)
		fmt.Fprintf(&b, "   ➡️ Вам предлагают: %s\n", formatSummary(p.OfferedSlot, loc))
		fmt.Fprintf(&b, "   ⬅️ В обмен на ваш: %s", formatSummary(p.RequestedSlot, loc))
	} else {
		fmt.Fprintf(&b, "   👤 Кому: %s\n", p.ReceiverName)
		fmt.Fprintf(&b, "   ➡️ Вы отдаёте: %s\n", formatSummary(p.OfferedSlot, loc))
		fmt.Fprintf(&b, "   ⬅️ Вы получаете: %s", formatSummary(p.RequestedSlot, loc))
	}
	return b.String()
}

// ErrorText возвращает понятное пользователю сообщение об ошибке сервиса
func ErrorText(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidInterval):
		return "❌ Окончание слота должно быть позже начала."
	case errors.Is(err, service.ErrInvalidInput):
		return "❌ Некорректные данные."
	case errors.Is(err, service.ErrNotFound):
		return "❌ Не найдено. Возможно, запись уже удалена."
	case errors.Is(err, service.ErrForbidden):
		return "⛔ Нет доступа."
	case errors.Is(err, service.ErrNotEligible):
		return "❌ Слот сейчас недоступен для обмена."
	case errors.Is(err, service.ErrSelfSwap):
		return "❌ Нельзя меняться со своим же слотом."
	case errors.Is(err, service.ErrAlreadyLocked):
		return "🔒 Слот уже участвует в другом обмене."
	case errors.Is(err, service.ErrNotPending):
		return "❌ Предложение уже обработано."
	case errors.Is(err, service.ErrLockedResource):
		return "🔒 Слот участвует в обмене, его нельзя изменить."
	default:
		return "❌ Произошла ошибка. Попробуйте позже."
	}
}

// ParseCallbackIDs извлекает идентификаторы из callback data.
// Например: ParseCallbackIDs("propose:3:7", CallbackPropose, 2) -> [3 7]
func ParseCallbackIDs(data, prefix string, n int) ([]int64, error) {
	rest, ok := strings.CutPrefix(data, prefix)
	if !ok {
		return nil, fmt.Errorf("callback %q has no prefix %q", data, prefix)
	}

	parts := strings.Split(rest, ":")
	if len(parts) != n {
		return nil, fmt.Errorf("callback %q: want %d ids, got %d", data, n, len(parts))
	}

	ids := make([]int64, 0, n)
	for _, part := range parts {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("callback %q: bad id %q", data, part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseSlotStart разбирает начало слота в формате ДД.ММ.ГГГГ ЧЧ:ММ
func ParseSlotStart(text string, loc *time.Location) (time.Time, error) {
	start, err := time.ParseInLocation(InputDateTimeLayout, strings.TrimSpace(text), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse start %q: %w", text, err)
	}
	return start, nil
}

// ParseSlotEnd разбирает окончание слота. Принимается длительность в
// минутах ("90"), время того же дня ("18:30") или полная дата и время.
func ParseSlotEnd(text string, start time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)

	if minutes, err := strconv.Atoi(text); err == nil {
		d := time.Duration(minutes) * time.Minute
		if d < SlotMinDuration || d > SlotMaxDuration {
			return time.Time{}, fmt.Errorf("duration %d min is out of range", minutes)
		}
		return start.Add(d), nil
	}

	loc := start.Location()
	if clock, err := time.ParseInLocation(InputTimeLayout, text, loc); err == nil {
		y, m, d := start.Date()
		return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, loc), nil
	}

	end, err := time.ParseInLocation(InputDateTimeLayout, text, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse end %q: %w", text, err)
	}
	return end, nil
}

// PluralizeSlots возвращает правильное склонение слова "слот"
func PluralizeSlots(count int) string {
	if count%10 == 1 && count%100 != 11 {
		return "слот"
	}
	if count%10 >= 2 && count%10 <= 4 && (count%100 < 10 || count%100 >= 20) {
		return "слота"
	}
	return "слотов"
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
