package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Freeeeeet/slotswap/internal/events"
	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository"
	"go.uber.org/zap"
)

// SwapService ведёт переговоры об обмене слотами. Единственный, кто
// переводит слоты в SwapLocked и обратно.
type SwapService struct {
	store     repository.Store
	slots     *SlotService
	publisher events.Publisher
	locks     *slotLocks
	logger    *zap.Logger
	now       func() time.Time
}

func NewSwapService(
	store repository.Store,
	slots *SlotService,
	publisher events.Publisher,
	logger *zap.Logger,
) *SwapService {
	if publisher == nil {
		publisher = &events.NoopPublisher{}
	}
	return &SwapService{
		store:     store,
		slots:     slots,
		publisher: publisher,
		locks:     newSlotLocks(),
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Propose создаёт pending предложение обмена offeredSlotID (слот
// инициатора) на requestedSlotID (слот другого пользователя) и блокирует оба слота
func (s *SwapService) Propose(ctx context.Context, proposerID, offeredSlotID, requestedSlotID int64) (*model.SwapProposal, error) {
	unlock := s.locks.lock(offeredSlotID, requestedSlotID)
	defer unlock()

	var proposal *model.SwapProposal
	err := s.store.InTx(ctx, func(q repository.Queries) error {
		slots, err := q.LockSlots(ctx, offeredSlotID, requestedSlotID)
		if err != nil {
			return fmt.Errorf("lock slots: %w", err)
		}

		// Слот инициатора
		offered := slots[offeredSlotID]
		if offered == nil || offered.OwnerID != proposerID {
			return fmt.Errorf("%w: offered slot %d", ErrNotFound, offeredSlotID)
		}
		if !offered.IsExchangeable() {
			return fmt.Errorf("%w: offered slot %d is %s", ErrNotEligible, offeredSlotID, offered.Status)
		}

		// Запрошенный слот
		requested := slots[requestedSlotID]
		if requested == nil {
			return fmt.Errorf("%w: requested slot %d", ErrNotFound, requestedSlotID)
		}
		if requested.OwnerID == proposerID {
			return ErrSelfSwap
		}
		if !requested.IsExchangeable() {
			return fmt.Errorf("%w: requested slot %d is %s", ErrNotEligible, requestedSlotID, requested.Status)
		}

		claimed, err := q.HasPendingClaim(ctx, offeredSlotID, requestedSlotID)
		if err != nil {
			return err
		}
		if claimed {
			return ErrAlreadyLocked
		}

		proposal = &model.SwapProposal{
			ProposerID:      proposerID,
			ReceiverID:      requested.OwnerID,
			OfferedSlotID:   offeredSlotID,
			RequestedSlotID: requestedSlotID,
			Status:          model.ProposalStatusPending,
			CreatedAt:       s.now(),
		}
		if err := q.CreateProposal(ctx, proposal); err != nil {
			if errors.Is(err, repository.ErrSlotClaimed) {
				return ErrAlreadyLocked
			}
			return err
		}

		if err := s.slots.setStatusAndOwner(ctx, q, offeredSlotID, model.SlotStatusSwapLocked, offered.OwnerID); err != nil {
			return err
		}
		return s.slots.setStatusAndOwner(ctx, q, requestedSlotID, model.SlotStatusSwapLocked, requested.OwnerID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Swap proposed",
		zap.Int64("proposal_id", proposal.ID),
		zap.Int64("proposer_id", proposerID),
		zap.Int64("receiver_id", proposal.ReceiverID),
		zap.Int64("offered_slot_id", offeredSlotID),
		zap.Int64("requested_slot_id", requestedSlotID),
	)
	s.publish(ctx, proposal)

	return proposal, nil
}

// Respond принимает или отклоняет предложение от имени получателя.
// Повторный ответ на решённое предложение возвращает ErrNotPending.
func (s *SwapService) Respond(ctx context.Context, responderID, proposalID int64, accept bool) (*model.SwapProposal, error) {
	// ID слотов нужны до транзакции, чтобы взять блокировку пары
	current, err := s.store.GetProposal(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	if current == nil {
		return nil, fmt.Errorf("%w: proposal %d", ErrNotFound, proposalID)
	}

	unlock := s.locks.lock(current.OfferedSlotID, current.RequestedSlotID)
	defer unlock()

	var proposal *model.SwapProposal
	err = s.store.InTx(ctx, func(q repository.Queries) error {
		p, err := q.LockProposal(ctx, proposalID)
		if err != nil {
			return fmt.Errorf("lock proposal: %w", err)
		}
		if p == nil {
			return fmt.Errorf("%w: proposal %d", ErrNotFound, proposalID)
		}
		if p.ReceiverID != responderID {
			return fmt.Errorf("%w: only the receiver can respond", ErrForbidden)
		}
		if !p.IsPending() {
			return fmt.Errorf("%w: proposal %d is %s", ErrNotPending, proposalID, p.Status)
		}

		slots, err := q.LockSlots(ctx, p.OfferedSlotID, p.RequestedSlotID)
		if err != nil {
			return fmt.Errorf("lock slots: %w", err)
		}
		offered, requested := slots[p.OfferedSlotID], slots[p.RequestedSlotID]
		if offered == nil || requested == nil {
			return fmt.Errorf("proposal %d references a missing slot", proposalID)
		}

		status := model.ProposalStatusRejected
		if accept {
			status = model.ProposalStatusAccepted
			if err := s.slots.setStatusAndOwner(ctx, q, offered.ID, model.SlotStatusBusy, p.ReceiverID); err != nil {
				return err
			}
			if err := s.slots.setStatusAndOwner(ctx, q, requested.ID, model.SlotStatusBusy, p.ProposerID); err != nil {
				return err
			}
		} else {
			if err := s.slots.setStatusAndOwner(ctx, q, offered.ID, model.SlotStatusExchangeable, offered.OwnerID); err != nil {
				return err
			}
			if err := s.slots.setStatusAndOwner(ctx, q, requested.ID, model.SlotStatusExchangeable, requested.OwnerID); err != nil {
				return err
			}
		}

		respondedAt := s.now()
		if err := q.ResolveProposal(ctx, proposalID, status, respondedAt); err != nil {
			if errors.Is(err, repository.ErrNoRows) {
				return fmt.Errorf("%w: proposal %d", ErrNotPending, proposalID)
			}
			return err
		}

		p.Status = status
		p.RespondedAt = &respondedAt
		proposal = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	msg := "Swap rejected"
	if accept {
		msg = "Swap accepted"
	}
	s.logger.Info(msg,
		zap.Int64("proposal_id", proposalID),
		zap.Int64("proposer_id", proposal.ProposerID),
		zap.Int64("receiver_id", responderID),
	)
	s.publish(ctx, proposal)

	return proposal, nil
}

// ListFor получает входящие и исходящие предложения пользователя,
// новые первыми
func (s *SwapService) ListFor(ctx context.Context, userID int64) (*model.ProposalList, error) {
	incoming, err := s.store.ListIncomingProposals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list incoming proposals: %w", err)
	}
	outgoing, err := s.store.ListOutgoingProposals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list outgoing proposals: %w", err)
	}

	if incoming == nil {
		incoming = []*model.SwapProposalView{}
	}
	if outgoing == nil {
		outgoing = []*model.SwapProposalView{}
	}
	return &model.ProposalList{Incoming: incoming, Outgoing: outgoing}, nil
}

// Get получает предложение, если пользователь - его участник
func (s *SwapService) Get(ctx context.Context, userID, proposalID int64) (*model.SwapProposalView, error) {
	view, err := s.store.GetProposalView(ctx, proposalID)
	if err != nil {
		return nil, fmt.Errorf("get proposal: %w", err)
	}
	if view == nil {
		return nil, fmt.Errorf("%w: proposal %d", ErrNotFound, proposalID)
	}
	if view.ProposerID != userID && view.ReceiverID != userID {
		return nil, fmt.Errorf("%w: not a participant", ErrForbidden)
	}
	return view, nil
}

// publish отправляет событие после коммита. Ошибка только логируется.
func (s *SwapService) publish(ctx context.Context, p *model.SwapProposal) {
	topic := events.TopicForStatus(p.Status)
	event := events.ProposalEvent{Proposal: p, OccurredAt: s.now()}

	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		s.logger.Warn("Failed to publish swap event",
			zap.String("topic", topic),
			zap.Int64("proposal_id", p.ID),
			zap.Error(err),
		)
	}
}
