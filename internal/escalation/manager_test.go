package escalation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumehealth/carebot/internal/care"
)

type stubResolver struct {
	mu sync.Mutex
	id care.ChatID
	ok bool
}

func (s *stubResolver) Resolve(context.Context) (care.ChatID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, s.ok
}

func (s *stubResolver) set(id care.ChatID, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id, s.ok = id, ok
}

func newTestManager(t *testing.T, interval time.Duration) (*Manager, gocron.Scheduler) {
	t.Helper()

	sched, err := gocron.NewScheduler()
	require.NoError(t, err)
	sched.Start()
	t.Cleanup(func() { _ = sched.Shutdown() })

	return NewManager(sched, interval, nil), sched
}

func TestManager_StartAndCancel(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)
	m.SetResolver(&stubResolver{id: 42, ok: true})
	m.SetNagFunc(func(care.ChatID, care.Slot, care.Day) {})

	day := care.Day("2024-01-01")

	require.NoError(t, m.Start(42, care.SlotMedicineMorning, day))
	assert.True(t, m.IsActive(42, care.SlotMedicineMorning, day))
	assert.Equal(t, 1, m.ActiveCount())

	assert.Equal(t, 1, m.Cancel(42, care.SlotMedicineMorning, day))
	assert.False(t, m.IsActive(42, care.SlotMedicineMorning, day))

	// Cancelling again is a no-op, not an error.
	assert.Equal(t, 0, m.Cancel(42, care.SlotMedicineMorning, day))
}

func TestManager_StartRejectsNonEscalatingSlot(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)

	err := m.Start(42, care.SlotFood, care.Day("2024-01-01"))
	require.Error(t, err)
	assert.False(t, m.IsActive(42, care.SlotFood, care.Day("2024-01-01")))
}

func TestManager_CancelIsKeyScoped(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)
	m.SetResolver(&stubResolver{id: 42, ok: true})
	m.SetNagFunc(func(care.ChatID, care.Slot, care.Day) {})

	day := care.Day("2024-01-01")
	require.NoError(t, m.Start(42, care.SlotMedicineEvening, day))

	// Wrong day, wrong slot, wrong recipient: none may touch the job.
	assert.Equal(t, 0, m.Cancel(42, care.SlotMedicineEvening, care.Day("2024-01-02")))
	assert.Equal(t, 0, m.Cancel(42, care.SlotMedicineMorning, day))
	assert.Equal(t, 0, m.Cancel(99, care.SlotMedicineEvening, day))
	assert.True(t, m.IsActive(42, care.SlotMedicineEvening, day))
}

func TestManager_StartTwiceKeepsOneJob(t *testing.T) {
	m, sched := newTestManager(t, time.Hour)
	m.SetResolver(&stubResolver{id: 42, ok: true})
	m.SetNagFunc(func(care.ChatID, care.Slot, care.Day) {})

	day := care.Day("2024-01-01")
	require.NoError(t, m.Start(42, care.SlotMedicineMorning, day))
	require.NoError(t, m.Start(42, care.SlotMedicineMorning, day))

	assert.Equal(t, 1, m.ActiveCount())
	assert.Len(t, sched.Jobs(), 1)

	assert.Equal(t, 1, m.Cancel(42, care.SlotMedicineMorning, day))
	assert.Len(t, sched.Jobs(), 0)
}

func TestManager_NagRepeatsUntilCancelled(t *testing.T) {
	const interval = 20 * time.Millisecond

	m, _ := newTestManager(t, interval)
	m.SetResolver(&stubResolver{id: 42, ok: true})

	var mu sync.Mutex
	var fires []time.Time
	fired := make(chan struct{}, 16)
	m.SetNagFunc(func(recipient care.ChatID, slot care.Slot, day care.Day) {
		assert.Equal(t, care.ChatID(42), recipient)
		assert.Equal(t, care.SlotMedicineEvening, slot)
		mu.Lock()
		fires = append(fires, time.Now())
		mu.Unlock()
		fired <- struct{}{}
	})

	day := care.Day("2024-01-01")
	require.NoError(t, m.Start(42, care.SlotMedicineEvening, day))

	for i := 0; i < 3; i++ {
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for nag firing %d", i+1)
		}
	}

	// Still active after repeated firings; the loop is unbounded.
	assert.True(t, m.IsActive(42, care.SlotMedicineEvening, day))

	mu.Lock()
	spacing := fires[2].Sub(fires[0])
	mu.Unlock()
	assert.GreaterOrEqual(t, spacing, 2*interval-2*time.Millisecond,
		"three firings should span at least two intervals")

	assert.Equal(t, 1, m.Cancel(42, care.SlotMedicineEvening, day))
	assert.False(t, m.IsActive(42, care.SlotMedicineEvening, day))
}

func TestManager_FireWithoutActiveJobSendsNothing(t *testing.T) {
	m, _ := newTestManager(t, time.Hour)
	m.SetResolver(&stubResolver{id: 42, ok: true})

	fired := make(chan struct{}, 1)
	m.SetNagFunc(func(care.ChatID, care.Slot, care.Day) { fired <- struct{}{} })

	// Simulates a firing that lost the race with a concurrent cancel: the key
	// is gone from the live set by the time the callback runs.
	m.fire(care.Key{Recipient: 42, Slot: care.SlotMedicineMorning, Day: "2024-01-01"})

	select {
	case <-fired:
		t.Fatal("nag sent for a cancelled escalation")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_SelfCancelWhenRecipientUnset(t *testing.T) {
	resolver := &stubResolver{}

	m, _ := newTestManager(t, 15*time.Millisecond)
	m.SetResolver(resolver)

	fired := make(chan struct{}, 1)
	m.SetNagFunc(func(care.ChatID, care.Slot, care.Day) { fired <- struct{}{} })

	day := care.Day("2024-01-01")
	require.NoError(t, m.Start(42, care.SlotMedicineMorning, day))

	require.Eventually(t, func() bool {
		return !m.IsActive(42, care.SlotMedicineMorning, day)
	}, 2*time.Second, 10*time.Millisecond, "orphaned job should clean itself up")

	select {
	case <-fired:
		t.Fatal("nag sent despite unresolvable recipient")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_SelfCancelWhenRecipientChanged(t *testing.T) {
	resolver := &stubResolver{id: 99, ok: true}

	m, _ := newTestManager(t, 15*time.Millisecond)
	m.SetResolver(resolver)

	fired := make(chan struct{}, 1)
	m.SetNagFunc(func(care.ChatID, care.Slot, care.Day) { fired <- struct{}{} })

	day := care.Day("2024-01-01")
	require.NoError(t, m.Start(42, care.SlotMedicineMorning, day))

	require.Eventually(t, func() bool {
		return !m.IsActive(42, care.SlotMedicineMorning, day)
	}, 2*time.Second, 10*time.Millisecond, "job for a superseded recipient should clean itself up")

	select {
	case <-fired:
		t.Fatal("nag sent to a superseded recipient")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManager_ConcurrentStartStart(t *testing.T) {
	m, sched := newTestManager(t, time.Hour)
	m.SetResolver(&stubResolver{id: 42, ok: true})
	m.SetNagFunc(func(care.ChatID, care.Slot, care.Day) {})

	day := care.Day("2024-01-01")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Start(42, care.SlotMedicineMorning, day))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, m.ActiveCount(), "duplicate starts must collapse to one job")
	assert.Len(t, sched.Jobs(), 1)
}

func TestManager_ConcurrentStartCancel(t *testing.T) {
	m, sched := newTestManager(t, time.Hour)
	m.SetResolver(&stubResolver{id: 42, ok: true})
	m.SetNagFunc(func(care.ChatID, care.Slot, care.Day) {})

	day := care.Day("2024-01-01")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = m.Start(42, care.SlotMedicineMorning, day)
		}()
		go func() {
			defer wg.Done()
			_ = m.Cancel(42, care.SlotMedicineMorning, day)
		}()
	}
	wg.Wait()

	count := m.ActiveCount()
	assert.LessOrEqual(t, count, 1)
	assert.Len(t, sched.Jobs(), count, "live set and scheduler must agree")
}
