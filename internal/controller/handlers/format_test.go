package handlers

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/service"
)

var moscow = time.FixedZone("MSK", 3*60*60)

func TestParseCallbackIDs(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		prefix  string
		n       int
		want    []int64
		wantErr bool
	}{
		{"single", "slot_toggle:42", CallbackToggleSlot, 1, []int64{42}, false},
		{"pair", "propose:3:7", CallbackPropose, 2, []int64{3, 7}, false},
		{"wrong prefix", "offer:3", CallbackPropose, 1, nil, true},
		{"missing id", "propose:3", CallbackPropose, 2, nil, true},
		{"extra id", "swap_accept:1:2", CallbackAccept, 1, nil, true},
		{"not a number", "swap_reject:abc", CallbackReject, 1, nil, true},
		{"zero", "slot_delete:0", CallbackDeleteSlot, 1, nil, true},
		{"negative", "slot_delete:-5", CallbackDeleteSlot, 1, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCallbackIDs(tt.data, tt.prefix, tt.n)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCallbackDataFitsTelegramLimit(t *testing.T) {
	// Telegram ограничивает callback data 64 байтами
	const maxID = int64(9_223_372_036_854_775_807)
	data := fmt.Sprintf("%s%d:%d", CallbackPropose, maxID, maxID)
	assert.LessOrEqual(t, len(data), 64)
}

func TestParseSlotStart(t *testing.T) {
	start, err := ParseSlotStart(" 25.03.2025 14:30 ", moscow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 25, 11, 30, 0, 0, time.UTC), start.UTC())

	for _, bad := range []string{"", "2025-03-25 14:30", "25.03.2025", "32.01.2025 10:00"} {
		_, err := ParseSlotStart(bad, moscow)
		assert.Error(t, err, bad)
	}
}

func TestParseSlotEnd(t *testing.T) {
	start := time.Date(2025, 3, 25, 14, 0, 0, 0, moscow)

	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{"minutes", "90", start.Add(90 * time.Minute), false},
		{"clock same day", "18:30", time.Date(2025, 3, 25, 18, 30, 0, 0, moscow), false},
		{"full date", "26.03.2025 09:00", time.Date(2025, 3, 26, 9, 0, 0, 0, moscow), false},
		{"too short", "1", time.Time{}, true},
		{"too long", "2000", time.Time{}, true},
		{"garbage", "завтра", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSlotEnd(tt.input, start)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}

	// Время раньше начала разбирается, проверка интервала остаётся за вызывающим
	early, err := ParseSlotEnd("10:00", start)
	require.NoError(t, err)
	assert.True(t, early.Before(start))
}

func TestFormatInterval(t *testing.T) {
	start := time.Date(2025, 3, 25, 11, 0, 0, 0, time.UTC)

	assert.Equal(t, "25.03.2025 14:00-15:30",
		FormatInterval(start, start.Add(90*time.Minute), moscow))
	assert.Equal(t, "25.03.2025 14:00 - 26.03.2025 02:00",
		FormatInterval(start, start.Add(12*time.Hour), moscow))
}

func TestFormatSlot(t *testing.T) {
	start := time.Date(2025, 3, 25, 14, 0, 0, 0, time.UTC)
	slot := &model.Slot{
		ID:        1,
		Title:     "Дежурство",
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    model.SlotStatusSwapLocked,
	}

	got := FormatSlot(slot, time.UTC)
	assert.Contains(t, got, "🔒 Дежурство")
	assert.Contains(t, got, "25.03.2025 14:00-15:00")
	assert.Contains(t, got, "Ожидает ответа по обмену")
}

func TestFormatProposal(t *testing.T) {
	start := time.Date(2025, 3, 25, 14, 0, 0, 0, time.UTC)
	view := &model.SwapProposalView{
		SwapProposal: model.SwapProposal{ID: 7, Status: model.ProposalStatusPending},
		ProposerName: "Анна",
		ReceiverName: "Борис",
		OfferedSlot:  &model.SlotSummary{Title: "Утро", StartTime: start, EndTime: start.Add(time.Hour)},
	}

	incoming := FormatProposal(view, true, time.UTC)
	assert.Contains(t, incoming, "⏳ Обмен #7")
	assert.Contains(t, incoming, "От: Анна")
	assert.Contains(t, incoming, "Вам предлагают: Утро (25.03.2025 14:00-15:00)")
	assert.Contains(t, incoming, "В обмен на ваш: слот удалён")

	outgoing := FormatProposal(view, false, time.UTC)
	assert.Contains(t, outgoing, "Кому: Борис")
	assert.Contains(t, outgoing, "Вы отдаёте: Утро")
}

func TestErrorText(t *testing.T) {
	wrapped := fmt.Errorf("%w: slot 5", service.ErrAlreadyLocked)
	assert.Equal(t, "🔒 Слот уже участвует в другом обмене.", ErrorText(wrapped))
	assert.Equal(t, "❌ Нельзя меняться со своим же слотом.", ErrorText(service.ErrSelfSwap))
	assert.Equal(t, "❌ Произошла ошибка. Попробуйте позже.", ErrorText(errors.New("db is down")))

	// InvalidInterval проверяется раньше InvalidInput
	assert.Contains(t, ErrorText(service.ErrInvalidInterval), "позже начала")
}

func TestSlotButtons(t *testing.T) {
	busy := &model.Slot{ID: 3, Status: model.SlotStatusBusy}
	buttons := slotButtons(1, busy)
	require.Len(t, buttons, 2)
	assert.Equal(t, "slot_toggle:3", buttons[0].CallbackData)
	assert.Equal(t, "slot_delete:3", buttons[1].CallbackData)

	locked := &model.Slot{ID: 4, Status: model.SlotStatusSwapLocked}
	assert.Empty(t, slotButtons(2, locked))
}

func TestPluralizeSlots(t *testing.T) {
	cases := map[int]string{
		1: "слот", 21: "слот", 11: "слотов",
		2: "слота", 4: "слота", 22: "слота", 12: "слотов",
		0: "слотов", 5: "слотов", 100: "слотов",
	}
	for n, want := range cases {
		assert.Equal(t, want, PluralizeSlots(n), n)
	}
}
