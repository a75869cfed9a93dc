package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"pocketpages/internal/domain"
	"pocketpages/internal/event"
)

// ErrPurgeRunning is returned when a retention purge is already in progress.
var ErrPurgeRunning = errors.New("purge already running")

const purgeJobID = "trash-retention"

// ─────────────────────────────────────────────────────────────
// Trash Service — scheduled retention purge
// ─────────────────────────────────────────────────────────────

// TrashService permanently removes pages that have sat in the trash longer
// than the retention period, on a cron schedule.
type TrashService struct {
	store     domain.PageStore
	emitter   event.Emitter
	log       zerolog.Logger
	retention time.Duration
	schedule  string
	now       func() time.Time

	running   runningJobsGuard
	cronSched *cron.Cron
}

// NewTrashService creates a TrashService. retentionDays <= 0 disables purging.
func NewTrashService(store domain.PageStore, retentionDays int, schedule string, emitter event.Emitter, log zerolog.Logger) *TrashService {
	if emitter == nil {
		emitter = event.Nop{}
	}
	return &TrashService{
		store:     store,
		emitter:   emitter,
		log:       log.With().Str("component", "trash").Logger(),
		retention: time.Duration(retentionDays) * 24 * time.Hour,
		schedule:  schedule,
		now:       time.Now,
	}
}

func (s *TrashService) Enabled() bool { return s.retention > 0 }

// Start schedules the purge. It is a no-op when retention is disabled.
func (s *TrashService) Start(ctx context.Context) error {
	s.Stop()
	if !s.Enabled() {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(s.schedule, func() {
		n, err := s.PurgeExpired(ctx)
		switch {
		case errors.Is(err, ErrPurgeRunning):
			s.log.Debug().Msg("purge skipped, previous run still active")
		case err != nil:
			s.log.Error().Err(err).Msg("scheduled purge failed")
		default:
			s.log.Debug().Int("pages", n).Msg("scheduled purge finished")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid purge schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cronSched = c
	s.log.Info().Str("schedule", s.schedule).Dur("retention", s.retention).Msg("trash retention scheduled")
	return nil
}

// Stop cancels the schedule. A purge already running is left to finish; use Wait for it.
func (s *TrashService) Stop() {
	if s.cronSched != nil {
		s.cronSched.Stop()
		s.cronSched = nil
	}
}

// Wait blocks until a running purge completes or ctx is cancelled.
func (s *TrashService) Wait(ctx context.Context) {
	s.running.WaitAll(ctx)
}

// PurgeExpired removes trashed pages deleted before now minus the retention period.
func (s *TrashService) PurgeExpired(ctx context.Context) (int, error) {
	if !s.Enabled() {
		return 0, nil
	}
	if !s.running.TryLock(purgeJobID) {
		return 0, ErrPurgeRunning
	}
	defer s.running.Unlock(purgeJobID)

	cutoff := s.now().Add(-s.retention)
	n, err := s.store.PurgeDeletedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge expired pages: %w", err)
	}
	if n > 0 {
		s.log.Info().Int("pages", n).Time("cutoff", cutoff).Msg("expired pages purged")
		s.emitter.Emit(ctx, EventPagesChanged, "")
	}
	return n, nil
}
