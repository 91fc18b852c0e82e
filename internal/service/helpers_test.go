package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Freeeeeet/slotswap/internal/model"
	"github.com/Freeeeeet/slotswap/internal/repository"
	"github.com/Freeeeeet/slotswap/internal/repository/sqlite"
)

// recordingPublisher запоминает опубликованные события
type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

type fixture struct {
	store     repository.Store
	users     *UserService
	slots     *SlotService
	swaps     *SwapService
	publisher *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "slotswap.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	logger := zaptest.NewLogger(t)
	publisher := &recordingPublisher{}
	slots := NewSlotService(store, logger)

	return &fixture{
		store:     store,
		users:     NewUserService(store, logger),
		slots:     slots,
		swaps:     NewSwapService(store, slots, publisher, logger),
		publisher: publisher,
	}
}

func (f *fixture) user(t *testing.T, externalID string) *model.User {
	t.Helper()
	u, err := f.users.EnsureUser(context.Background(), externalID, externalID, externalID+"@example.com")
	require.NoError(t, err)
	return u
}

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

// slot создаёт слот с началом в day+hour на один час
func (f *fixture) slot(t *testing.T, ownerID int64, hour int, status model.SlotStatus) *model.Slot {
	t.Helper()
	ctx := context.Background()
	start := day.Add(time.Duration(hour) * time.Hour)

	s, err := f.slots.Create(ctx, ownerID, "slot", start, start.Add(time.Hour))
	require.NoError(t, err)
	if status != model.SlotStatusBusy {
		s, err = f.slots.Update(ctx, ownerID, s.ID, model.SlotPatch{Status: &status})
		require.NoError(t, err)
	}
	return s
}

func (f *fixture) mustSlot(t *testing.T, id int64) *model.Slot {
	t.Helper()
	s, err := f.store.GetSlot(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}

// requireConsistent проверяет, что SwapLocked совпадает с наличием
// ровно одного pending предложения
func (f *fixture) requireConsistent(t *testing.T) {
	t.Helper()
	found, err := f.store.FindSlotInconsistencies(context.Background())
	require.NoError(t, err)
	require.Empty(t, found)
}
