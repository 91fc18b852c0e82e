package model

import "time"

type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusAccepted ProposalStatus = "accepted"
	ProposalStatusRejected ProposalStatus = "rejected"
)

// SwapProposal is a bilateral swap negotiation between two slots.
// Offered/requested slot ids read back as 0 once the slot has been deleted
// after the proposal was resolved.
type SwapProposal struct {
	ID              int64          `json:"id"`
	ProposerID      int64          `json:"proposer_id"`
	ReceiverID      int64          `json:"receiver_id"`
	OfferedSlotID   int64          `json:"offered_slot_id"`
	RequestedSlotID int64          `json:"requested_slot_id"`
	Status          ProposalStatus `json:"status"`
	CreatedAt       time.Time      `json:"created_at"`
	RespondedAt     *time.Time     `json:"responded_at"` // nil until resolved
}

// IsPending checks if proposal still awaits a response
func (p *SwapProposal) IsPending() bool {
	return p.Status == ProposalStatusPending
}

// SlotSummary is the display part of a slot used in proposal listings.
type SlotSummary struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Status    SlotStatus `json:"status"`
}

// SwapProposalView is a proposal enriched with participant and slot display
// data. Filled by a read-side join, never stored.
type SwapProposalView struct {
	SwapProposal
	ProposerName  string       `json:"proposer_name"`
	ProposerEmail string       `json:"proposer_email,omitempty"`
	ReceiverName  string       `json:"receiver_name"`
	ReceiverEmail string       `json:"receiver_email,omitempty"`
	OfferedSlot   *SlotSummary `json:"offered_slot,omitempty"`
	RequestedSlot *SlotSummary `json:"requested_slot,omitempty"`
}

// ProposalList groups proposals by the caller's role.
type ProposalList struct {
	Incoming []*SwapProposalView `json:"incoming"`
	Outgoing []*SwapProposalView `json:"outgoing"`
}
