package service

import "time"

// ExportedRunningGuard lets the _test package exercise the guard.
type ExportedRunningGuard = runningJobsGuard

// SetTrashClock replaces the time source used to compute the purge cutoff.
func SetTrashClock(s *TrashService, now func() time.Time) {
	s.now = now
}
