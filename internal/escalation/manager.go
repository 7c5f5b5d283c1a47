// Package escalation owns the nag-loop state machine. Each active escalation
// is one repeating timer job keyed by (recipient, slot, occurrence day): it
// fires at a fixed interval forever until cancelled by a confirmation, and it
// is never persisted, so a restart ends every in-flight escalation.
package escalation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/lumehealth/carebot/internal/care"
	"github.com/lumehealth/carebot/internal/errors"
	"github.com/lumehealth/carebot/internal/logfields"
	"github.com/lumehealth/carebot/internal/metrics"
)

// resolveTimeout bounds recipient lookups made from timer callbacks, since
// override sources may reach out over the network.
const resolveTimeout = 5 * time.Second

// NagFunc is invoked on every interval elapsing for an active escalation.
// Delivery is the callback's concern; its outcome never affects job state.
type NagFunc func(recipient care.ChatID, slot care.Slot, day care.Day)

// Resolver reports the currently resolved recipient.
type Resolver interface {
	Resolve(ctx context.Context) (care.ChatID, bool)
}

// Manager drives repeating nag jobs on a shared scheduler. All state lives in
// the keyed job set; operations on the same key are serialized by the mutex.
type Manager struct {
	mu   sync.Mutex
	jobs map[care.Key]uuid.UUID

	scheduler gocron.Scheduler
	interval  time.Duration
	nag       NagFunc
	resolver  Resolver
	recorder  metrics.Recorder
	logger    *slog.Logger
}

// NewManager creates a Manager scheduling nag jobs at the given interval.
// The scheduler is shared with the daily triggers and owned by the caller.
func NewManager(scheduler gocron.Scheduler, interval time.Duration, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		jobs:      make(map[care.Key]uuid.UUID),
		scheduler: scheduler,
		interval:  interval,
		recorder:  metrics.NoopRecorder{},
		logger:    logger,
	}
}

// SetNagFunc injects the callback invoked on each nag firing.
func (m *Manager) SetNagFunc(fn NagFunc) { m.nag = fn }

// SetResolver injects the recipient resolver consulted before each nag.
func (m *Manager) SetResolver(r Resolver) { m.resolver = r }

// SetRecorder injects the metrics recorder.
func (m *Manager) SetRecorder(rec metrics.Recorder) {
	if rec != nil {
		m.recorder = rec
	}
}

// SetInterval changes the nag cadence for escalations armed afterwards.
// Already-running loops keep the interval they started with.
func (m *Manager) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interval = d
}

// Start arms the nag loop for one occurrence. Any pre-existing job under the
// same key is removed first, so a duplicate trigger fire can never produce two
// concurrent loops. The first nag fires one interval from now; the initial
// notification is the caller's job.
func (m *Manager) Start(recipient care.ChatID, slot care.Slot, day care.Day) error {
	if !slot.Escalates() {
		return errors.New(errors.CategoryValidation, errors.SeverityWarning, "slot does not escalate").
			WithContext("slot", string(slot))
	}

	key := care.Key{Recipient: recipient, Slot: slot, Day: day}

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.jobs[key]; ok {
		if err := m.scheduler.RemoveJob(old); err != nil {
			m.logger.Debug("stale escalation job already gone", logfields.JobKey(key), logfields.Error(err))
		}
		delete(m.jobs, key)
		m.logger.Info("replaced existing escalation", logfields.JobKey(key))
	}

	job, err := m.scheduler.NewJob(
		gocron.DurationJob(m.interval),
		gocron.NewTask(m.fire, key),
		gocron.WithName(key.String()),
		gocron.WithTags("escalation", string(slot)),
	)
	if err != nil {
		return errors.SchedulerError("start escalation", err).WithContext("key", key.String())
	}

	m.jobs[key] = job.ID()
	m.recorder.SetActiveEscalations(len(m.jobs))
	m.logger.Info("escalation armed",
		logfields.JobKey(key),
		slog.Duration("interval", m.interval))
	return nil
}

// Cancel removes the job under the exact key if present and reports how many
// jobs were removed. Cancelling a non-existent job is a no-op returning 0.
func (m *Manager) Cancel(recipient care.ChatID, slot care.Slot, day care.Day) int {
	key := care.Key{Recipient: recipient, Slot: slot, Day: day}

	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(key)
}

// IsActive reports whether an escalation is armed for the exact key.
func (m *Manager) IsActive(recipient care.ChatID, slot care.Slot, day care.Day) bool {
	key := care.Key{Recipient: recipient, Slot: slot, Day: day}

	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.jobs[key]
	return ok
}

// ActiveCount reports the number of armed escalations.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// removeLocked deletes the key's job from the scheduler and the live set.
// Callers must hold m.mu.
func (m *Manager) removeLocked(key care.Key) int {
	id, ok := m.jobs[key]
	if !ok {
		return 0
	}
	if err := m.scheduler.RemoveJob(id); err != nil {
		m.logger.Debug("escalation job already removed from scheduler", logfields.JobKey(key), logfields.Error(err))
	}
	delete(m.jobs, key)
	m.recorder.SetActiveEscalations(len(m.jobs))
	m.logger.Info("escalation cancelled", logfields.JobKey(key))
	return 1
}

// fire runs on every interval elapsing. A firing that lost a race with a
// concurrent cancel sends nothing; a firing whose recipient no longer
// resolves to the job's recipient self-cancels instead of nagging into the
// void.
func (m *Manager) fire(key care.Key) {
	m.mu.Lock()
	if _, ok := m.jobs[key]; !ok {
		m.mu.Unlock()
		m.recorder.IncNagSkipped(string(key.Slot), metrics.SkipConfirmed)
		m.logger.Debug("nag firing lost race with cancel", logfields.JobKey(key))
		return
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	current, ok := m.resolveRecipient(ctx)
	if !ok {
		m.selfCancel(key, metrics.SkipNoRecipient)
		return
	}
	if current != key.Recipient {
		m.selfCancel(key, metrics.SkipRecipientChanged)
		return
	}

	if m.nag == nil {
		m.logger.Error("escalation nag callback not set", logfields.JobKey(key))
		return
	}

	m.nag(key.Recipient, key.Slot, key.Day)
	m.recorder.IncNagSent(string(key.Slot))
}

func (m *Manager) resolveRecipient(ctx context.Context) (care.ChatID, bool) {
	if m.resolver == nil {
		return 0, false
	}
	return m.resolver.Resolve(ctx)
}

// selfCancel converts an orphaned job into automatic cleanup.
func (m *Manager) selfCancel(key care.Key, reason metrics.SkipReason) {
	m.mu.Lock()
	removed := m.removeLocked(key)
	m.mu.Unlock()

	if removed > 0 {
		m.recorder.IncNagSkipped(string(key.Slot), reason)
		m.logger.Warn("escalation self-cancelled",
			logfields.JobKey(key),
			slog.String("reason", string(reason)))
	}
}
