package testsupport

import (
	"context"
	"testing"
	"time"

	"sopgen/internal/config"
	"sopgen/internal/history"
)

// MustOpenStore opens the history store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// RecordRun inserts a finished run for tests.
func RecordRun(t testing.TB, store *history.Store, id string, status history.Status, started time.Time) history.Run {
	t.Helper()

	run := history.Run{
		ID:         id,
		VideoPath:  "/videos/" + id + ".mp4",
		Title:      "Run " + id,
		Status:     status,
		StepCount:  3,
		FrameCount: 5,
		StartedAt:  started,
		FinishedAt: started.Add(42 * time.Second),
		Timings:    history.Timings{Total: 42 * time.Second},
	}
	if err := store.Record(context.Background(), run); err != nil {
		t.Fatalf("store.Record: %v", err)
	}
	return run
}
