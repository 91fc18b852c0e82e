package state

import "time"

// UserState представляет текущее состояние пользователя в диалоге
type UserState string

const (
	StateNone UserState = "" // Нет активного состояния

	// Состояния для создания слота
	StateNewSlotTitle UserState = "new_slot_title"
	StateNewSlotStart UserState = "new_slot_start"
	StateNewSlotEnd   UserState = "new_slot_end"
)

// Ключи временных данных диалога
const (
	KeyTitle = "title"
	KeyStart = "start"
)

// UserData хранит временные данные пользователя во время диалога
type UserData struct {
	State     UserState
	Data      map[string]any // Временные данные для текущего диалога
	UpdatedAt time.Time
}
