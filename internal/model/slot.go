package model

import "time"

type SlotStatus string

const (
	SlotStatusBusy         SlotStatus = "busy"         // Default, not offered for swapping
	SlotStatusExchangeable SlotStatus = "exchangeable" // Owner opted in to swapping
	SlotStatusSwapLocked   SlotStatus = "swap_locked"  // Referenced by exactly one pending proposal
)

// Valid reports whether s is a known slot status
func (s SlotStatus) Valid() bool {
	switch s {
	case SlotStatusBusy, SlotStatusExchangeable, SlotStatusSwapLocked:
		return true
	}
	return false
}

// OwnerSettable reports whether an owner may set this status directly.
// SwapLocked is reserved to the swap negotiator.
func (s SlotStatus) OwnerSettable() bool {
	return s == SlotStatusBusy || s == SlotStatusExchangeable
}

type Slot struct {
	ID        int64      `json:"id"`
	OwnerID   int64      `json:"owner_id"`
	Title     string     `json:"title"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Status    SlotStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsLocked checks if slot is engaged in a pending swap
func (s *Slot) IsLocked() bool {
	return s.Status == SlotStatusSwapLocked
}

// IsExchangeable checks if slot can take part in a new swap proposal
func (s *Slot) IsExchangeable() bool {
	return s.Status == SlotStatusExchangeable
}

// SlotPatch is a partial slot update. Nil fields are left untouched.
type SlotPatch struct {
	Title     *string     `json:"title,omitempty"`
	StartTime *time.Time  `json:"start_time,omitempty"`
	EndTime   *time.Time  `json:"end_time,omitempty"`
	Status    *SlotStatus `json:"status,omitempty"`
}

// IsEmpty checks if patch carries no recognized fields
func (p SlotPatch) IsEmpty() bool {
	return p.Title == nil && p.StartTime == nil && p.EndTime == nil && p.Status == nil
}

// ApplyTo copies the present fields onto slot
func (p SlotPatch) ApplyTo(slot *Slot) {
	if p.Title != nil {
		slot.Title = *p.Title
	}
	if p.StartTime != nil {
		slot.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		slot.EndTime = *p.EndTime
	}
	if p.Status != nil {
		slot.Status = *p.Status
	}
}

// MarketSlot is an exchangeable slot together with its owner's display data.
type MarketSlot struct {
	Slot
	OwnerName  string `json:"owner_name"`
	OwnerEmail string `json:"owner_email,omitempty"`
}

// SlotInconsistency describes a slot whose lock status disagrees with its
// pending proposal linkage.
type SlotInconsistency struct {
	SlotID        int64      `json:"slot_id"`
	Status        SlotStatus `json:"status"`
	PendingClaims int        `json:"pending_claims"`
}
