// Package trigger fires named slot events once per local calendar day at
// configured wall-clock times. Firing is best-effort: occurrences missed
// while the process was down are skipped, never backfilled.
package trigger

import (
	"fmt"
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

// FireFunc is invoked when a slot's daily time arrives, carrying the slot and
// the occurrence day current at fire time.
type FireFunc func(slot care.Slot, day care.Day)

// Scheduler registers one independent daily timer line per slot on a shared
// scheduler. Slots never interact at this layer.
type Scheduler struct {
	mu   sync.Mutex
	jobs map[care.Slot]uuid.UUID

	scheduler gocron.Scheduler
	location  *time.Location
	fire      FireFunc
	recorder  metrics.Recorder
	logger    *slog.Logger
}

// NewScheduler creates a trigger scheduler. The shared gocron scheduler must
// have been created with the same location so at-times land on local
// wall-clock instants.
func NewScheduler(scheduler gocron.Scheduler, location *time.Location, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:      make(map[care.Slot]uuid.UUID),
		scheduler: scheduler,
		location:  location,
		recorder:  metrics.NoopRecorder{},
		logger:    logger,
	}
}

// SetFireFunc injects the callback invoked on each daily fire.
func (s *Scheduler) SetFireFunc(fn FireFunc) { s.fire = fn }

// SetRecorder injects the metrics recorder.
func (s *Scheduler) SetRecorder(rec metrics.Recorder) {
	if rec != nil {
		s.recorder = rec
	}
}

// Schedule registers a recurring daily fire for the slot. Scheduling a slot
// that is already registered replaces its timer line.
func (s *Scheduler) Schedule(slot care.Slot, at care.ClockTime) error {
	if !slot.Valid() {
		return errors.New(errors.CategoryValidation, errors.SeverityWarning, "unknown slot").
			WithContext("slot", string(slot))
	}
	return s.schedule(slot, uint(at.Hour), uint(at.Minute), 0)
}

// schedule registers the gocron job at second granularity.
func (s *Scheduler) schedule(slot care.Slot, hour, minute, second uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.jobs[slot]; ok {
		if err := s.scheduler.RemoveJob(old); err != nil {
			s.logger.Debug("stale trigger job already gone", logfields.Slot(slot), logfields.Error(err))
		}
		delete(s.jobs, slot)
	}

	job, err := s.scheduler.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(
			gocron.NewAtTime(hour, minute, second),
		)),
		gocron.NewTask(s.run, slot),
		gocron.WithName(fmt.Sprintf("daily:%s", slot)),
		gocron.WithTags("trigger", string(slot)),
	)
	if err != nil {
		return errors.SchedulerError("schedule daily trigger", err).WithContext("slot", string(slot))
	}

	s.jobs[slot] = job.ID()
	s.logger.Info("daily trigger scheduled",
		logfields.Slot(slot),
		slog.String("at", fmt.Sprintf("%02d:%02d:%02d", hour, minute, second)),
		slog.String("timezone", s.location.String()))
	return nil
}

// ScheduleAll registers every slot in the map.
func (s *Scheduler) ScheduleAll(times map[care.Slot]care.ClockTime) error {
	for _, slot := range care.Slots() {
		at, ok := times[slot]
		if !ok {
			return errors.ConfigRequired(fmt.Sprintf("schedule time for slot %s", slot))
		}
		if err := s.Schedule(slot, at); err != nil {
			return err
		}
	}
	return nil
}

// NextRun reports the next fire instant for the slot.
func (s *Scheduler) NextRun(slot care.Slot) (time.Time, error) {
	s.mu.Lock()
	id, ok := s.jobs[slot]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, errors.New(errors.CategoryScheduler, errors.SeverityWarning, "slot not scheduled").
			WithContext("slot", string(slot))
	}

	for _, job := range s.scheduler.Jobs() {
		if job.ID() == id {
			return job.NextRun()
		}
	}
	return time.Time{}, errors.New(errors.CategoryScheduler, errors.SeverityWarning, "trigger job missing from scheduler").
		WithContext("slot", string(slot))
}

// run executes one daily fire. The occurrence day is derived at fire time so
// a fire delayed across midnight still names the day it actually ran on.
func (s *Scheduler) run(slot care.Slot) {
	if s.fire == nil {
		s.logger.Error("trigger fire callback not set", logfields.Slot(slot))
		return
	}

	day := care.Today(s.location)
	s.logger.Info("daily trigger fired", logfields.Slot(slot), logfields.Day(day))
	s.recorder.IncTriggerFired(string(slot))
	s.fire(slot, day)
}
