package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "slotswap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func mustUser(t *testing.T, s *Store, externalID, name string) *model.User {
	t.Helper()
	u := &model.User{ExternalID: externalID, Name: name, Email: externalID + "@example.com"}
	require.NoError(t, s.UpsertUser(context.Background(), u))
	return u
}

func mustSlot(t *testing.T, s *Store, ownerID int64, title string, start time.Time, status model.SlotStatus) *model.Slot {
	t.Helper()
	slot := &model.Slot{
		OwnerID:   ownerID,
		Title:     title,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
		Status:    status,
	}
	require.NoError(t, s.CreateSlot(context.Background(), slot))
	return slot
}

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestUpsertUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := mustUser(t, s, "ext-1", "Alice")
	assert.NotZero(t, u.ID)
	assert.Nil(t, u.TelegramID)

	tg := int64(4242)
	again := &model.User{ExternalID: "ext-1", TelegramID: &tg}
	require.NoError(t, s.UpsertUser(ctx, again))
	assert.Equal(t, u.ID, again.ID)
	assert.Equal(t, "Alice", again.Name, "empty name must not overwrite")
	require.NotNil(t, again.TelegramID)
	assert.Equal(t, tg, *again.TelegramID)

	byTg, err := s.GetUserByTelegramID(ctx, tg)
	require.NoError(t, err)
	require.NotNil(t, byTg)
	assert.Equal(t, u.ID, byTg.ID)

	missing, err := s.GetUserByID(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSlotLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice", "Alice")
	bob := mustUser(t, s, "bob", "Bob")

	later := mustSlot(t, s, alice.ID, "Later", base.Add(2*time.Hour), model.SlotStatusBusy)
	early := mustSlot(t, s, alice.ID, "Early", base, model.SlotStatusExchangeable)
	mustSlot(t, s, bob.ID, "Bob's", base.Add(time.Hour), model.SlotStatusExchangeable)

	got, err := s.GetSlot(ctx, early.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.StartTime.Equal(base))
	assert.Equal(t, model.SlotStatusExchangeable, got.Status)

	owned, err := s.ListSlotsByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, early.ID, owned[0].ID)
	assert.Equal(t, later.ID, owned[1].ID)

	market, err := s.ListExchangeableSlots(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, market, 1)
	assert.Equal(t, "Bob", market[0].OwnerName)
	assert.Equal(t, "bob@example.com", market[0].OwnerEmail)

	later.Title = "Renamed"
	later.Status = model.SlotStatusExchangeable
	require.NoError(t, s.UpdateSlot(ctx, later))
	got, err = s.GetSlot(ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)

	require.NoError(t, s.DeleteSlot(ctx, later.ID))
	got, err = s.GetSlot(ctx, later.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, s.DeleteSlot(ctx, later.ID), repository.ErrNoRows)
}

func TestLockSlots(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice", "Alice")
	a := mustSlot(t, s, alice.ID, "A", base, model.SlotStatusBusy)
	b := mustSlot(t, s, alice.ID, "B", base.Add(time.Hour), model.SlotStatusBusy)

	err := s.InTx(ctx, func(q repository.Queries) error {
		slots, err := q.LockSlots(ctx, b.ID, a.ID, 999)
		require.NoError(t, err)
		assert.Len(t, slots, 2)
		assert.Equal(t, "A", slots[a.ID].Title)
		assert.Nil(t, slots[999])
		return nil
	})
	require.NoError(t, err)
}

func TestProposalClaims(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice", "Alice")
	bob := mustUser(t, s, "bob", "Bob")
	carol := mustUser(t, s, "carol", "Carol")

	aSlot := mustSlot(t, s, alice.ID, "A", base, model.SlotStatusExchangeable)
	bSlot := mustSlot(t, s, bob.ID, "B", base.Add(time.Hour), model.SlotStatusExchangeable)
	cSlot := mustSlot(t, s, carol.ID, "C", base.Add(2*time.Hour), model.SlotStatusExchangeable)

	first := &model.SwapProposal{
		ProposerID:      alice.ID,
		ReceiverID:      bob.ID,
		OfferedSlotID:   aSlot.ID,
		RequestedSlotID: bSlot.ID,
		Status:          model.ProposalStatusPending,
	}
	require.NoError(t, s.InTx(ctx, func(q repository.Queries) error {
		return q.CreateProposal(ctx, first)
	}))
	assert.NotZero(t, first.ID)

	claimed, err := s.HasPendingClaim(ctx, bSlot.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	// Carol targets Bob's slot, which is already claimed
	second := &model.SwapProposal{
		ProposerID:      carol.ID,
		ReceiverID:      bob.ID,
		OfferedSlotID:   cSlot.ID,
		RequestedSlotID: bSlot.ID,
		Status:          model.ProposalStatusPending,
	}
	err = s.InTx(ctx, func(q repository.Queries) error {
		return q.CreateProposal(ctx, second)
	})
	assert.ErrorIs(t, err, repository.ErrSlotClaimed)

	// Rollback leaves no trace of the second proposal
	outgoing, err := s.ListOutgoingProposals(ctx, carol.ID)
	require.NoError(t, err)
	assert.Empty(t, outgoing)

	// Claimed slots cannot be deleted
	assert.Error(t, s.DeleteSlot(ctx, aSlot.ID))

	respondedAt := base.Add(24 * time.Hour)
	require.NoError(t, s.ResolveProposal(ctx, first.ID, model.ProposalStatusRejected, respondedAt))
	assert.ErrorIs(t, s.ResolveProposal(ctx, first.ID, model.ProposalStatusAccepted, respondedAt), repository.ErrNoRows)

	claimed, err = s.HasPendingClaim(ctx, aSlot.ID, bSlot.ID)
	require.NoError(t, err)
	assert.False(t, claimed)

	got, err := s.GetProposal(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.ProposalStatusRejected, got.Status)
	require.NotNil(t, got.RespondedAt)
	assert.True(t, got.RespondedAt.Equal(respondedAt))
}

func TestProposalViews(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice", "Alice")
	bob := mustUser(t, s, "bob", "Bob")

	aSlot := mustSlot(t, s, alice.ID, "Standup", base, model.SlotStatusExchangeable)
	bSlot := mustSlot(t, s, bob.ID, "Review", base.Add(time.Hour), model.SlotStatusExchangeable)

	p := &model.SwapProposal{
		ProposerID:      alice.ID,
		ReceiverID:      bob.ID,
		OfferedSlotID:   aSlot.ID,
		RequestedSlotID: bSlot.ID,
		Status:          model.ProposalStatusPending,
	}
	require.NoError(t, s.CreateProposal(ctx, p))

	incoming, err := s.ListIncomingProposals(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	v := incoming[0]
	assert.Equal(t, "Alice", v.ProposerName)
	assert.Equal(t, "Bob", v.ReceiverName)
	require.NotNil(t, v.OfferedSlot)
	assert.Equal(t, "Standup", v.OfferedSlot.Title)
	require.NotNil(t, v.RequestedSlot)
	assert.Equal(t, "Review", v.RequestedSlot.Title)
	assert.Nil(t, v.RespondedAt)

	incoming, err = s.ListIncomingProposals(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, incoming)

	// Once resolved, a deleted slot leaves the proposal in place with a zero reference
	require.NoError(t, s.ResolveProposal(ctx, p.ID, model.ProposalStatusRejected, base))
	require.NoError(t, s.DeleteSlot(ctx, aSlot.ID))

	view, err := s.GetProposalView(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, view)
	assert.Zero(t, view.OfferedSlotID)
	assert.Nil(t, view.OfferedSlot)
	assert.Equal(t, bSlot.ID, view.RequestedSlotID)

	missing, err := s.GetProposalView(ctx, 999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindSlotInconsistencies(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice", "Alice")
	bob := mustUser(t, s, "bob", "Bob")

	aSlot := mustSlot(t, s, alice.ID, "A", base, model.SlotStatusSwapLocked)
	bSlot := mustSlot(t, s, bob.ID, "B", base.Add(time.Hour), model.SlotStatusSwapLocked)
	orphan := mustSlot(t, s, bob.ID, "Orphan", base.Add(2*time.Hour), model.SlotStatusSwapLocked)

	require.NoError(t, s.CreateProposal(ctx, &model.SwapProposal{
		ProposerID:      alice.ID,
		ReceiverID:      bob.ID,
		OfferedSlotID:   aSlot.ID,
		RequestedSlotID: bSlot.ID,
		Status:          model.ProposalStatusPending,
	}))

	found, err := s.FindSlotInconsistencies(ctx)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, orphan.ID, found[0].SlotID)
	assert.Equal(t, 0, found[0].PendingClaims)
}

func TestWithDefaultParams(t *testing.T) {
	assert.Equal(t,
		"db.sqlite?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate",
		withDefaultParams("db.sqlite"))
	assert.Equal(t,
		"file:db?mode=memory&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate",
		withDefaultParams("file:db?mode=memory"))
	assert.Equal(t,
		"db?_pragma=foreign_keys(0)&_txlock=deferred&_pragma=busy_timeout(5000)",
		withDefaultParams("db?_pragma=foreign_keys(0)&_txlock=deferred"))
}
