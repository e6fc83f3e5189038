package workflow_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"dvdmaker/internal/config"
	"dvdmaker/internal/job"
	"dvdmaker/internal/services"
	"dvdmaker/internal/testsupport"
	"dvdmaker/internal/workflow"
)

func TestRunEndToEnd(t *testing.T) {
	fake := &fakePipeline{durations: map[string]float64{"part1.mp4": 1800, "part2.mkv": 3600}}
	h := newHarness(t, fake, testsupport.WithISO("My Disc"))
	req := h.request(t, "part1.mp4", "part2.mkv")

	var snapshots []job.Progress
	result, err := h.manager.Run(context.Background(), req, func(p job.Progress) {
		snapshots = append(snapshots, p)
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !result.Success || result.State != job.StageDone {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.VideoBitrateKbps != 6329 {
		t.Fatalf("bitrate = %d, want 6329", result.VideoBitrateKbps)
	}

	ffmpeg := h.fake.callsFor("ffmpeg")
	if len(ffmpeg) != 4 {
		t.Fatalf("expected two passes per source, got %d ffmpeg calls", len(ffmpeg))
	}
	for _, call := range ffmpeg {
		if got := bitrateArg(call.Args); got != "6329k" {
			t.Fatalf("ffmpeg -b:v = %q, want 6329k", got)
		}
	}
	if len(h.fake.callsFor("ffprobe")) != 2 || len(h.fake.callsFor("dvdauthor")) != 1 || len(h.fake.callsFor("xorriso")) != 1 {
		t.Fatalf("unexpected tool calls: %d total", h.fake.total())
	}

	wantVideoTS := filepath.Join(h.cfg.Paths.OutputDir, "VIDEO_TS")
	if result.VideoTSPath != wantVideoTS {
		t.Fatalf("VideoTSPath = %q, want %q", result.VideoTSPath, wantVideoTS)
	}
	if _, err := os.Stat(filepath.Join(wantVideoTS, "VTS_01_1.VOB")); err != nil {
		t.Fatalf("exported VOB missing: %v", err)
	}
	wantISO := filepath.Join(h.cfg.Paths.OutputDir, "MY_DISC.iso")
	if result.ISOPath != wantISO {
		t.Fatalf("ISOPath = %q, want %q", result.ISOPath, wantISO)
	}
	if _, err := os.Stat(wantISO); err != nil {
		t.Fatalf("iso missing: %v", err)
	}

	if result.WorkDir != "" {
		t.Fatalf("workspace should be removed, got %q", result.WorkDir)
	}
	entries, err := os.ReadDir(h.cfg.Paths.WorkDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("work dir not cleaned: %v", entries)
	}

	if len(snapshots) == 0 {
		t.Fatal("no progress reported")
	}
	order := append(job.Pipeline(), job.StageDone)
	seen := -1
	for i, p := range snapshots {
		if i > 0 && p.Percent < snapshots[i-1].Percent {
			t.Fatalf("progress decreased at %d: %v -> %v", i, snapshots[i-1].Percent, p.Percent)
		}
		idx := slices.Index(order, p.Stage)
		if idx < seen {
			t.Fatalf("stage %s reported after a later stage", p.Stage)
		}
		seen = idx
	}
	if order[seen] != job.StageDone {
		t.Fatalf("last stage = %s", order[seen])
	}
	if last := snapshots[len(snapshots)-1]; last.Percent != 100 {
		t.Fatalf("final percent = %v", last.Percent)
	}

	rec, err := h.store.Get(context.Background(), result.JobID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if rec.State != job.StageDone || rec.VideoBitrateKbps != 6329 || rec.ISOPath != wantISO {
		t.Fatalf("unexpected history record %+v", rec)
	}

	logText := readFile(t, filepath.Join(h.cfg.JobLogDir(), result.JobID+".log"))
	for _, want := range []string{"[ffmpeg:stderr] frame=", "[dvdauthor:stderr] INFO: dvdauthor creating VTS", "job completed"} {
		if !containsLine(logText, want) {
			t.Fatalf("job log missing %q:\n%s", want, logText)
		}
	}
}

func TestRunRejectsZeroSourcesBeforeAnyProcess(t *testing.T) {
	fake := &fakePipeline{}
	h := newHarness(t, fake)
	req := h.request(t)

	result, err := h.manager.Run(context.Background(), req, nil)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if result.State != job.StageFailed || result.Success {
		t.Fatalf("unexpected result %+v", result)
	}
	if details := services.Details(err); details.Stage != string(job.StagePrepare) {
		t.Fatalf("stage = %q", details.Stage)
	}
	if fake.total() != 0 {
		t.Fatalf("%d processes launched", fake.total())
	}
}

func TestMissingToolFailsBeforeEncoding(t *testing.T) {
	fake := &fakePipeline{durations: map[string]float64{"a.mp4": 60}}
	cfg := testsupport.NewConfig(t)
	tools := allTools()
	delete(tools, "dvdauthor")
	m, err := workflow.NewManager(cfg, nil, nil, workflow.WithRunner(fake), workflow.WithTools(tools))
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{cfg: cfg, fake: fake, manager: m}

	_, err = m.Run(context.Background(), h.request(t, "a.mp4"), nil)
	if !errors.Is(err, services.ErrToolMissing) {
		t.Fatalf("expected tool missing, got %v", err)
	}
	details := services.Details(err)
	if details.Stage != string(job.StageAuthor) || details.Tool != "dvdauthor" {
		t.Fatalf("details = %+v", details)
	}
	if fake.total() != 0 {
		t.Fatalf("%d processes launched before failure", fake.total())
	}
}

func TestISOFailureKeepsFolderUnexported(t *testing.T) {
	fake := &fakePipeline{durations: map[string]float64{"a.mp4": 600}, isoFail: true}
	h := newHarness(t, fake, testsupport.WithISO("X"))

	result, err := h.manager.Run(context.Background(), h.request(t, "a.mp4"), nil)
	if !errors.Is(err, services.ErrToolExecution) {
		t.Fatalf("expected tool execution error, got %v", err)
	}
	if result.State != job.StageFailed || result.VideoTSPath != "" || result.ISOPath != "" {
		t.Fatalf("unexpected result %+v", result)
	}
	if details := services.Details(err); details.Stage != string(job.StageISO) || details.Tool != "xorriso" {
		t.Fatalf("details = %+v", details)
	}
	entries, err := os.ReadDir(h.cfg.Paths.OutputDir)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Fatalf("output directory should be empty, found %v", names)
	}
}

func TestCancelDuringTranscode(t *testing.T) {
	fake := &fakePipeline{
		durations:   map[string]float64{"a.mp4": 600, "b.mp4": 600},
		blockFFmpeg: true,
		started:     make(chan struct{}),
	}
	h := newHarness(t, fake, testsupport.WithISO("X"))

	handle, err := h.manager.Submit(context.Background(), h.request(t, "a.mp4", "b.mp4"))
	if err != nil {
		t.Fatal(err)
	}
	select {
	case <-fake.started:
	case <-time.After(5 * time.Second):
		t.Fatal("ffmpeg never started")
	}
	handle.Cancel()

	result, err := handle.Wait()
	if !errors.Is(err, services.ErrCancelled) || !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if result.State != job.StageCancelled || result.Success {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(fake.callsFor("ffmpeg")) != 1 || len(fake.callsFor("dvdauthor")) != 0 {
		t.Fatalf("unexpected calls after cancel: %d total", fake.total())
	}
	if _, err := os.Stat(filepath.Join(h.cfg.Paths.OutputDir, "VIDEO_TS")); !os.IsNotExist(err) {
		t.Fatal("no VIDEO_TS should be exported")
	}
	if _, err := os.Stat(filepath.Join(h.cfg.Paths.OutputDir, "X.iso")); !os.IsNotExist(err) {
		t.Fatal("no ISO should be written")
	}
	streams, _ := filepath.Glob(filepath.Join(result.WorkDir, "transcoded", "*.mpg"))
	if len(streams) != 0 {
		t.Fatalf("partial streams left: %v", streams)
	}
	rec, err := h.store.Get(context.Background(), result.JobID)
	if err != nil || rec.State != job.StageCancelled {
		t.Fatalf("history = %+v, %v", rec, err)
	}
}

func TestSecondSubmitRejectedWhileRunning(t *testing.T) {
	fake := &fakePipeline{
		durations:   map[string]float64{"a.mp4": 60},
		blockFFmpeg: true,
		started:     make(chan struct{}),
	}
	h := newHarness(t, fake)
	req := h.request(t, "a.mp4")

	first, err := h.manager.Submit(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	<-fake.started
	if _, err := h.manager.Submit(context.Background(), req); !errors.Is(err, workflow.ErrJobAlreadyRunning) {
		t.Fatalf("expected ErrJobAlreadyRunning, got %v", err)
	}
	if active, ok := h.manager.Active(); !ok || active.ID != first.ID {
		t.Fatal("first job should be active")
	}
	first.Cancel()
	if _, err := first.Wait(); !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("first job: %v", err)
	}
	if _, ok := h.manager.Active(); ok {
		t.Fatal("manager should be idle after the job ends")
	}
}

func TestProbeFailureTolerated(t *testing.T) {
	fake := &fakePipeline{probeFail: true}
	h := newHarness(t, fake)
	result, err := h.manager.Run(context.Background(), h.request(t, "a.mp4"), nil)
	if err != nil {
		t.Fatalf("non-strict probe should continue: %v", err)
	}
	if result.VideoBitrateKbps != 8000 {
		t.Fatalf("bitrate = %d, want the preset ceiling", result.VideoBitrateKbps)
	}
}

func TestStrictProbeFailureIsTerminal(t *testing.T) {
	fake := &fakePipeline{probeFail: true}
	h := newHarness(t, fake, testsupport.WithConfig(func(c *config.Config) { c.Probe.Strict = true }))
	_, err := h.manager.Run(context.Background(), h.request(t, "a.mp4"), nil)
	if !errors.Is(err, services.ErrToolExecution) {
		t.Fatalf("expected tool failure, got %v", err)
	}
	details := services.Details(err)
	if details.Stage != string(job.StageProbe) || details.Tool != "ffprobe" {
		t.Fatalf("details = %+v", details)
	}
	if len(fake.callsFor("ffmpeg")) != 0 {
		t.Fatal("transcode should not start")
	}
}

func TestKeepWorkDirWithISOOnly(t *testing.T) {
	fake := &fakePipeline{durations: map[string]float64{"a.mp4": 120}}
	h := newHarness(t, fake, testsupport.WithISO(""), testsupport.WithConfig(func(c *config.Config) {
		c.Workflow.KeepWorkDir = true
		c.DVD.ExportFolder = false
	}))
	result, err := h.manager.Run(context.Background(), h.request(t, "a.mp4"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.WorkDir == "" || result.VideoTSPath != filepath.Join(result.WorkDir, "dvdroot", "VIDEO_TS") {
		t.Fatalf("unexpected paths %+v", result)
	}
	if _, err := os.Stat(result.VideoTSPath); err != nil {
		t.Fatalf("kept VIDEO_TS missing: %v", err)
	}
	if filepath.Base(result.ISOPath) != "DVD_VIDEO.iso" {
		t.Fatalf("ISOPath = %q", result.ISOPath)
	}
	if _, err := os.Stat(filepath.Join(h.cfg.Paths.OutputDir, "VIDEO_TS")); !os.IsNotExist(err) {
		t.Fatal("folder export was not requested")
	}
}

func TestNewRequestOverrides(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	minutes, parallel, iso := 0, 3, true
	req, err := workflow.NewRequest(cfg, nil, []string{"/a.mp4"}, workflow.Overrides{
		Mode:           "NTSC",
		Aspect:         "16x9",
		ChapterMinutes: &minutes,
		Preset:         "fast",
		ExportISO:      &iso,
		Label:          "Holiday",
		Parallel:       &parallel,
	})
	if err != nil {
		t.Fatal(err)
	}
	if req.DVD.Mode != "ntsc" || req.DVD.Aspect != "16:9" || req.DVD.Chapters.Enabled {
		t.Fatalf("unexpected dvd settings %+v", req.DVD)
	}
	if req.Preset.ID != "fast" || req.Parallel != 3 || !req.Output.ExportISO || !req.Output.ExportFolder {
		t.Fatalf("unexpected request %+v", req)
	}
	if req.Output.Dir != cfg.Paths.OutputDir || req.WorkDir != cfg.Paths.WorkDir {
		t.Fatalf("config paths not applied: %+v", req)
	}

	if _, err := workflow.NewRequest(cfg, nil, nil, workflow.Overrides{Mode: "secam"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := workflow.NewRequest(cfg, nil, nil, workflow.Overrides{Preset: "nope"}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHealthReportsMissingTools(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Tools.ISOPreference = []string{"imgburn"}
	available := allTools()
	delete(available, "dvdauthor")
	m, err := workflow.NewManager(cfg, nil, nil, workflow.WithRunner(&fakePipeline{}), workflow.WithTools(available))
	if err != nil {
		t.Fatal(err)
	}
	byName := make(map[string]bool)
	for _, h := range m.Health(context.Background()) {
		byName[h.Name] = h.Ready
	}
	if !byName["probe"] || !byName["transcode"] || !byName["export"] {
		t.Fatalf("unexpected readiness %v", byName)
	}
	if byName["author"] || byName["iso"] {
		t.Fatalf("author and iso should not be ready: %v", byName)
	}
}
