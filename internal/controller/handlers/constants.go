package handlers

import "time"

// Callback data. Идентификаторы идут после двоеточия.
const (
	CallbackMySlots       = "my_slots"
	CallbackMarket        = "market"
	CallbackRequests      = "requests"
	CallbackToggleSlot    = "slot_toggle:"  // slot_toggle:slot_id
	CallbackDeleteSlot    = "slot_delete:"  // slot_delete:slot_id
	CallbackConfirmDelete = "slot_confirm:" // slot_confirm:slot_id
	CallbackOffer         = "offer:"        // offer:their_slot_id
	CallbackPropose       = "propose:"      // propose:my_slot_id:their_slot_id
	CallbackAccept        = "swap_accept:"  // swap_accept:proposal_id
	CallbackReject        = "swap_reject:"  // swap_reject:proposal_id
)

// Константы валидации для создания слота
const (
	SlotTitleMaxLength = 100

	SlotMinDuration = 5 * time.Minute
	SlotMaxDuration = 24 * time.Hour

	// Формат ввода даты и времени
	InputDateTimeLayout = "02.01.2006 15:04"
	InputTimeLayout     = "15:04"
)
