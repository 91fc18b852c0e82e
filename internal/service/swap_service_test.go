package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/slotswap/internal/events"
	"github.com/Freeeeeet/slotswap/internal/model"
)

// swapSetup: A владеет S1 (09:00-10:00), B владеет S2 (14:00-15:00), оба Exchangeable
func swapSetup(t *testing.T) (f *fixture, a, b *model.User, s1, s2 *model.Slot) {
	f = newFixture(t)
	a = f.user(t, "a")
	b = f.user(t, "b")
	s1 = f.slot(t, a.ID, 9, model.SlotStatusExchangeable)
	s2 = f.slot(t, b.ID, 14, model.SlotStatusExchangeable)
	return
}

func TestProposeAndAccept(t *testing.T) {
	f, a, b, s1, s2 := swapSetup(t)
	ctx := context.Background()

	p, err := f.swaps.Propose(ctx, a.ID, s1.ID, s2.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusPending, p.Status)
	assert.Equal(t, b.ID, p.ReceiverID)
	assert.Nil(t, p.RespondedAt)
	assert.Equal(t, model.SlotStatusSwapLocked, f.mustSlot(t, s1.ID).Status)
	assert.Equal(t, model.SlotStatusSwapLocked, f.mustSlot(t, s2.ID).Status)
	f.requireConsistent(t)

	p, err = f.swaps.Respond(ctx, b.ID, p.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusAccepted, p.Status)
	require.NotNil(t, p.RespondedAt)

	got1 := f.mustSlot(t, s1.ID)
	assert.Equal(t, b.ID, got1.OwnerID)
	assert.Equal(t, model.SlotStatusBusy, got1.Status)

	got2 := f.mustSlot(t, s2.ID)
	assert.Equal(t, a.ID, got2.OwnerID)
	assert.Equal(t, model.SlotStatusBusy, got2.Status)

	stored, err := f.store.GetProposal(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusAccepted, stored.Status)
	f.requireConsistent(t)

	assert.Equal(t, []string{events.TopicProposalCreated, events.TopicProposalAccepted}, f.publisher.Topics())
}

func TestProposeAndReject(t *testing.T) {
	f, a, b, s1, s2 := swapSetup(t)
	ctx := context.Background()

	p, err := f.swaps.Propose(ctx, a.ID, s1.ID, s2.ID)
	require.NoError(t, err)

	p, err = f.swaps.Respond(ctx, b.ID, p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusRejected, p.Status)

	got1 := f.mustSlot(t, s1.ID)
	assert.Equal(t, a.ID, got1.OwnerID)
	assert.Equal(t, model.SlotStatusExchangeable, got1.Status)

	got2 := f.mustSlot(t, s2.ID)
	assert.Equal(t, b.ID, got2.OwnerID)
	assert.Equal(t, model.SlotStatusExchangeable, got2.Status)
	f.requireConsistent(t)

	// Rejected slots can be proposed again
	_, err = f.swaps.Propose(ctx, a.ID, s1.ID, s2.ID)
	require.NoError(t, err)
	f.requireConsistent(t)
}

func TestProposeErrors(t *testing.T) {
	f, a, b, s1, s2 := swapSetup(t)
	ctx := context.Background()
	aBusy := f.slot(t, a.ID, 11, model.SlotStatusBusy)
	bBusy := f.slot(t, b.ID, 16, model.SlotStatusBusy)
	aOther := f.slot(t, a.ID, 18, model.SlotStatusExchangeable)

	for _, tc := range []struct {
		name               string
		proposer           int64
		offered, requested int64
		want               error
	}{
		{"offered not owned", a.ID, s2.ID, s1.ID, ErrNotFound},
		{"offered missing", a.ID, 999, s2.ID, ErrNotFound},
		{"requested missing", a.ID, s1.ID, 999, ErrNotFound},
		{"self swap", a.ID, s1.ID, aOther.ID, ErrSelfSwap},
		{"same slot", a.ID, s1.ID, s1.ID, ErrSelfSwap},
		{"offered busy", a.ID, aBusy.ID, s2.ID, ErrNotEligible},
		{"requested busy", a.ID, s1.ID, bBusy.ID, ErrNotEligible},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.swaps.Propose(ctx, tc.proposer, tc.offered, tc.requested)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	// Nothing above may leave a trace
	assert.Equal(t, model.SlotStatusExchangeable, f.mustSlot(t, s1.ID).Status)
	assert.Equal(t, model.SlotStatusExchangeable, f.mustSlot(t, s2.ID).Status)
	assert.Empty(t, f.publisher.Topics())
	f.requireConsistent(t)
}

func TestProposeLockedSlotNotEligible(t *testing.T) {
	f, a, b, s1, s2 := swapSetup(t)
	ctx := context.Background()
	c := f.user(t, "c")
	s3 := f.slot(t, c.ID, 10, model.SlotStatusExchangeable)

	_, err := f.swaps.Propose(ctx, a.ID, s1.ID, s2.ID)
	require.NoError(t, err)

	// S2 is locked; whoever asks, it is not eligible
	_, err = f.swaps.Propose(ctx, c.ID, s3.ID, s2.ID)
	assert.ErrorIs(t, err, ErrNotEligible)

	_, err = f.swaps.Propose(ctx, b.ID, s2.ID, s3.ID)
	assert.ErrorIs(t, err, ErrNotEligible)

	assert.Equal(t, model.SlotStatusExchangeable, f.mustSlot(t, s3.ID).Status)
	f.requireConsistent(t)
}

func TestRespondErrors(t *testing.T) {
	f, a, b, s1, s2 := swapSetup(t)
	ctx := context.Background()

	p, err := f.swaps.Propose(ctx, a.ID, s1.ID, s2.ID)
	require.NoError(t, err)

	_, err = f.swaps.Respond(ctx, b.ID, 999, true)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.swaps.Respond(ctx, a.ID, p.ID, true)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.swaps.Respond(ctx, b.ID, p.ID, true)
	require.NoError(t, err)

	before1, before2 := f.mustSlot(t, s1.ID), f.mustSlot(t, s2.ID)

	// Second response is rejected and changes nothing
	for _, accept := range []bool{true, false} {
		_, err = f.swaps.Respond(ctx, b.ID, p.ID, accept)
		assert.ErrorIs(t, err, ErrNotPending)
	}
	assert.Equal(t, before1, f.mustSlot(t, s1.ID))
	assert.Equal(t, before2, f.mustSlot(t, s2.ID))

	stored, err := f.store.GetProposal(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ProposalStatusAccepted, stored.Status)
	f.requireConsistent(t)
}

func TestConcurrentProposalsSameSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	target := f.user(t, "target")
	wanted := f.slot(t, target.ID, 9, model.SlotStatusExchangeable)

	const n = 10
	type proposer struct {
		user *model.User
		slot *model.Slot
	}
	proposers := make([]proposer, n)
	for i := range proposers {
		u := f.user(t, "proposer-"+string(rune('a'+i)))
		proposers[i] = proposer{user: u, slot: f.slot(t, u.ID, 10+i, model.SlotStatusExchangeable)}
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		success  int
		failures []error
	)
	start := make(chan struct{})
	for _, p := range proposers {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.swaps.Propose(ctx, p.user.ID, p.slot.ID, wanted.ID)

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
				return
			}
			failures = append(failures, err)
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, success)
	for _, err := range failures {
		assert.True(t, errors.Is(err, ErrAlreadyLocked) || errors.Is(err, ErrNotEligible), "unexpected error: %v", err)
	}
	assert.Equal(t, model.SlotStatusSwapLocked, f.mustSlot(t, wanted.ID).Status)
	f.requireConsistent(t)
}

func TestConcurrentResponses(t *testing.T) {
	f, a, b, s1, s2 := swapSetup(t)
	ctx := context.Background()

	p, err := f.swaps.Propose(ctx, a.ID, s1.ID, s2.ID)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func(accept bool) {
			defer wg.Done()
			_, err := f.swaps.Respond(ctx, b.ID, p.ID, accept)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
				return
			}
			assert.ErrorIs(t, err, ErrNotPending)
		}(i%2 == 0)
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	f.requireConsistent(t)
}

func TestListForAndGet(t *testing.T) {
	f, a, b, s1, s2 := swapSetup(t)
	ctx := context.Background()
	c := f.user(t, "c")
	s3 := f.slot(t, a.ID, 11, model.SlotStatusExchangeable)
	s4 := f.slot(t, c.ID, 15, model.SlotStatusExchangeable)

	clock := day
	f.swaps.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	first, err := f.swaps.Propose(ctx, a.ID, s1.ID, s2.ID)
	require.NoError(t, err)
	second, err := f.swaps.Propose(ctx, a.ID, s3.ID, s4.ID)
	require.NoError(t, err)

	list, err := f.swaps.ListFor(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, list.Incoming)
	require.Len(t, list.Outgoing, 2)
	assert.Equal(t, second.ID, list.Outgoing[0].ID, "newest first")
	assert.Equal(t, first.ID, list.Outgoing[1].ID)
	assert.Equal(t, "c", list.Outgoing[0].ReceiverName)
	require.NotNil(t, list.Outgoing[1].RequestedSlot)
	assert.Equal(t, s2.ID, list.Outgoing[1].RequestedSlot.ID)

	list, err = f.swaps.ListFor(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, list.Incoming, 1)
	assert.Equal(t, "a", list.Incoming[0].ProposerName)
	assert.NotNil(t, list.Outgoing)

	view, err := f.swaps.Get(ctx, b.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, view.ID)

	_, err = f.swaps.Get(ctx, c.ID, first.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.swaps.Get(ctx, a.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPublishFailureDoesNotFailSwap(t *testing.T) {
	f, a, b, s1, s2 := swapSetup(t)
	ctx := context.Background()
	f.publisher.err = errors.New("bus down")

	p, err := f.swaps.Propose(ctx, a.ID, s1.ID, s2.ID)
	require.NoError(t, err)
	_, err = f.swaps.Respond(ctx, b.ID, p.ID, false)
	require.NoError(t, err)
	assert.Len(t, f.publisher.Topics(), 2)
}
