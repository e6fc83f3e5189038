package jobstore

import (
	"context"
	"fmt"

	"github.com/gofrs/flock"
)

// Claim registers the store as a live writer for as long as it stays open
// and repairs rows left unfinished by processes that are gone. Every open
// writer holds a shared lock on <db>.lock; the repair only runs when an
// exclusive lock can be taken, meaning no other process has history open.
// It returns the number of rows marked interrupted.
func (s *Store) Claim(ctx context.Context) (int64, error) {
	if s.lock != nil {
		return 0, nil
	}
	lock := flock.New(s.path + ".lock")
	exclusive, err := lock.TryLock()
	if err != nil {
		return 0, fmt.Errorf("lock job history: %w", err)
	}

	var repaired int64
	var repairErr error
	if exclusive {
		repaired, repairErr = s.MarkInterrupted(ctx)
		if err := lock.Unlock(); err != nil {
			return repaired, fmt.Errorf("release job history lock: %w", err)
		}
	}
	if err := lock.RLock(); err != nil {
		return repaired, fmt.Errorf("share job history lock: %w", err)
	}
	s.lock = lock
	return repaired, repairErr
}
