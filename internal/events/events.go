// Package events публикует события жизненного цикла предложений обмена.
// Это поток для аудита и интеграций, а не доставка уведомлений пользователям.
package events

import (
	"context"
	"time"

	"github.com/Freeeeeet/slotswap/internal/model"
)

// Event topic constants
const (
	TopicProposalCreated  = "slotswap.proposal.created"
	TopicProposalAccepted = "slotswap.proposal.accepted"
	TopicProposalRejected = "slotswap.proposal.rejected"

	// TopicAll matches every slotswap event
	TopicAll = "slotswap.>"
)

// ProposalEvent is the payload for every proposal topic.
type ProposalEvent struct {
	Proposal   *model.SwapProposal `json:"proposal"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// Publisher publishes events to a message bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// TopicForStatus returns the topic announcing a proposal entering status.
func TopicForStatus(status model.ProposalStatus) string {
	switch status {
	case model.ProposalStatusAccepted:
		return TopicProposalAccepted
	case model.ProposalStatusRejected:
		return TopicProposalRejected
	default:
		return TopicProposalCreated
	}
}
