package testsupport

import (
	"testing"

	"dvdmaker/internal/config"
	"dvdmaker/internal/jobstore"
)

// MustOpenStore opens the job history store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobstore.Store {
	t.Helper()

	store, err := jobstore.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("jobstore.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
