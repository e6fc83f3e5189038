package jobstore_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"dvdmaker/internal/dvd"
	"dvdmaker/internal/job"
	"dvdmaker/internal/jobstore"
	"dvdmaker/internal/preset"
	"dvdmaker/internal/services"
	"dvdmaker/internal/testsupport"
)

func sampleRequest() job.Request {
	return job.Request{
		Sources: job.NewSources("/media/a.mp4", "/media/b.mkv"),
		DVD:     dvd.Settings{Mode: dvd.ModeNTSC, Aspect: dvd.AspectAuto, PresetID: "fit"},
		Output:  dvd.Output{ExportFolder: true, Dir: "/out"},
		Preset:  preset.Definition{ID: "fit"},
	}
}

func TestStartAndFinish(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := store.Start(ctx, "job-1", sampleRequest(), "/work/job_1", started); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := store.UpdateProgress(ctx, "job-1", job.Progress{Stage: job.StageTranscode, Percent: 42.5, Message: "Encoding a.mp4"}); err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}

	rec, err := store.Get(ctx, "job-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if rec.Stage != job.StageTranscode || rec.Percent != 42.5 || rec.Message != "Encoding a.mp4" {
		t.Fatalf("unexpected progress %+v", rec)
	}
	if len(rec.Sources) != 2 || rec.Sources[1] != "/media/b.mkv" || rec.Mode != "ntsc" || rec.Preset != "fit" {
		t.Fatalf("unexpected request fields %+v", rec)
	}
	if !rec.StartedAt.Equal(started) || !rec.FinishedAt.IsZero() {
		t.Fatalf("unexpected times %v %v", rec.StartedAt, rec.FinishedAt)
	}

	err = store.Finish(ctx, job.Result{
		JobID:            "job-1",
		State:            job.StageFailed,
		VideoBitrateKbps: 6329,
		Err:              services.ToolFailed("author", "dvdauthor", 1, nil, nil),
		FinishedAt:       started.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	rec, err = store.Get(ctx, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if rec.State != job.StageFailed || rec.ErrorKind != services.KindToolExecution || rec.VideoBitrateKbps != 6329 {
		t.Fatalf("unexpected result %+v", rec)
	}
	if rec.ErrorMessage == "" || rec.FinishedAt.Sub(rec.StartedAt) != time.Hour {
		t.Fatalf("unexpected error fields %+v", rec)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		if err := store.Start(ctx, id, sampleRequest(), "", base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatal(err)
		}
	}
	records, err := store.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 || records[0].ID != "new" || records[1].ID != "mid" {
		t.Fatalf("unexpected order %+v", records)
	}
	all, err := store.List(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("List(0) = %d, %v", len(all), err)
	}
}

func TestGetAndFinishUnknown(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	if _, err := store.Get(ctx, "missing"); !errors.Is(err, jobstore.ErrNotFound) {
		t.Fatalf("Get err = %v", err)
	}
	if err := store.Finish(ctx, job.Result{JobID: "missing", State: job.StageDone}); !errors.Is(err, jobstore.ErrNotFound) {
		t.Fatalf("Finish err = %v", err)
	}
}

func TestMarkInterrupted(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	now := time.Now()
	for _, id := range []string{"running", "finished"} {
		if err := store.Start(ctx, id, sampleRequest(), "", now); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.Finish(ctx, job.Result{JobID: "finished", Success: true, State: job.StageDone}); err != nil {
		t.Fatal(err)
	}
	n, err := store.MarkInterrupted(ctx)
	if err != nil || n != 1 {
		t.Fatalf("MarkInterrupted = %d, %v", n, err)
	}
	rec, err := store.Get(ctx, "running")
	if err != nil {
		t.Fatal(err)
	}
	if rec.State != job.StageCancelled || rec.FinishedAt.IsZero() {
		t.Fatalf("unexpected record %+v", rec)
	}
}

func TestReopenKeepsHistory(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store, err := jobstore.Open(cfg.HistoryPath())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Start(context.Background(), "persisted", sampleRequest(), "", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	reopened := testsupport.MustOpenStore(t, cfg)
	if _, err := reopened.Get(context.Background(), "persisted"); err != nil {
		t.Fatalf("history lost after reopen: %v", err)
	}
}

func TestSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("CREATE TABLE schema_version (version INTEGER NOT NULL); INSERT INTO schema_version VALUES (99);"); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	if _, err := jobstore.Open(path); !errors.Is(err, jobstore.ErrSchemaMismatch) {
		t.Fatalf("expected schema mismatch, got %v", err)
	}
}

func openClaimed(t *testing.T, path string) (*jobstore.Store, int64) {
	t.Helper()
	store, err := jobstore.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	n, err := store.Claim(context.Background())
	if err != nil {
		_ = store.Close()
		t.Fatalf("Claim: %v", err)
	}
	return store, n
}

func TestClaimLeavesLiveJobsAlone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()

	running, n := openClaimed(t, path)
	if n != 0 {
		t.Fatalf("first claim repaired %d rows", n)
	}
	if err := running.Start(ctx, "live", sampleRequest(), "", time.Now()); err != nil {
		t.Fatal(err)
	}

	second, n := openClaimed(t, path)
	if n != 0 {
		t.Fatalf("claim beside a live writer repaired %d rows", n)
	}
	rec, err := second.Get(ctx, "live")
	if err != nil {
		t.Fatal(err)
	}
	if rec.State == job.StageCancelled || !rec.FinishedAt.IsZero() {
		t.Fatalf("live job was marked interrupted: %+v", rec)
	}

	// The first writer exits without finishing; the second is still open.
	if err := running.Close(); err != nil {
		t.Fatal(err)
	}
	third, n := openClaimed(t, path)
	if n != 0 {
		t.Fatalf("claim beside the second writer repaired %d rows", n)
	}
	if err := third.Close(); err != nil {
		t.Fatal(err)
	}
	if err := second.Close(); err != nil {
		t.Fatal(err)
	}

	last, n := openClaimed(t, path)
	t.Cleanup(func() { _ = last.Close() })
	if n != 1 {
		t.Fatalf("expected the abandoned job to be repaired, got %d", n)
	}
	rec, err = last.Get(ctx, "live")
	if err != nil {
		t.Fatal(err)
	}
	if rec.State != job.StageCancelled || rec.FinishedAt.IsZero() {
		t.Fatalf("unexpected record %+v", rec)
	}
}
