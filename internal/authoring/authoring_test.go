package authoring

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"dvdmaker/internal/dvd"
	"dvdmaker/internal/job"
	"dvdmaker/internal/process"
	"dvdmaker/internal/services"
)

type staticTools map[string]string

func (s staticTools) Ensure(_ context.Context, name string) (string, error) {
	if path, ok := s[name]; ok {
		return path, nil
	}
	return "", services.ToolMissing("", name, "not found")
}

// fakeDVDAuthor records the command and lays out a VIDEO_TS tree.
type fakeDVDAuthor struct {
	cmd     process.Command
	calls   int
	skipVOB bool
	fail    bool
}

func (f *fakeDVDAuthor) Run(_ context.Context, cmd process.Command) (process.Result, error) {
	f.calls++
	f.cmd = cmd
	if f.fail {
		return process.Result{ExitCode: 1}, services.ToolFailed("", "dvdauthor", 1, []string{"ERR: no video format"}, nil)
	}
	videoTS := filepath.Join(cmd.Dir, "dvdroot", "VIDEO_TS")
	if err := os.MkdirAll(videoTS, 0o755); err != nil {
		return process.Result{}, err
	}
	files := []string{"VIDEO_TS.IFO", "VIDEO_TS.BUP", "VTS_01_0.IFO", "VTS_01_0.BUP"}
	if !f.skipVOB {
		files = append(files, "VTS_01_1.VOB")
	}
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(videoTS, name), []byte("data"), 0o644); err != nil {
			return process.Result{}, err
		}
	}
	return process.Result{}, nil
}

func newRun(t *testing.T, mode dvd.Mode, durations ...float64) *job.Run {
	t.Helper()
	dir := t.TempDir()
	req := job.Request{
		DVD: dvd.Settings{Mode: mode, Aspect: dvd.Aspect16x9, Chapters: dvd.ChaptersEvery(5), PresetID: "fit"},
	}
	ws := job.NewWorkspace(dir, "author-job", time.Now())
	if err := ws.Create(); err != nil {
		t.Fatal(err)
	}
	run := job.NewRun("author-job", req, ws, nil)
	for i, d := range durations {
		run.Sources = append(run.Sources, job.SourceItem{Path: "in.mp4", DurationSeconds: d})
		run.Streams = append(run.Streams, ws.TranscodedPath(i, "in.mp4"))
	}
	return run
}

func TestBuildDocument(t *testing.T) {
	doc := BuildDocument("/job/dvdroot", dvd.ModeNTSC, dvd.AspectAuto, dvd.ChaptersEvery(5), []Title{
		{Path: "/job/transcoded/001_a.mpg", DurationSeconds: 660},
		{Path: "/job/transcoded/002_b.mpg", DurationSeconds: 120},
	})
	data, err := doc.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		`<dvdauthor dest="/job/dvdroot">`,
		`<video format="ntsc"></video>`,
		`<vob file="/job/transcoded/001_a.mpg" chapters="0:00:00,0:05:00,0:10:00"></vob>`,
		`<vob file="/job/transcoded/002_b.mpg" chapters="0:00:00"></vob>`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("document missing %q:\n%s", want, text)
		}
	}
	if strings.Count(text, "<pgc>") != 1 || strings.Count(text, "<titleset>") != 1 {
		t.Fatalf("expected one titleset with one pgc:\n%s", text)
	}
}

func TestBuildDocumentWithoutChapters(t *testing.T) {
	doc := BuildDocument("out", dvd.ModePAL, dvd.Aspect4x3, dvd.ChaptersEvery(0), []Title{{Path: "a.mpg", DurationSeconds: 900}})
	data, err := doc.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	if strings.Contains(text, "chapters=") {
		t.Fatalf("chapters should be omitted:\n%s", text)
	}
	if !strings.Contains(text, `<video format="pal" aspect="4:3"></video>`) {
		t.Fatalf("unexpected video element:\n%s", text)
	}
}

func TestAuthorExecute(t *testing.T) {
	run := newRun(t, dvd.ModePAL, 660, 120)
	runner := &fakeDVDAuthor{}
	author := NewAuthor(runner, staticTools{"dvdauthor": "/opt/dvdauthor"}, nil)

	if err := author.Prepare(context.Background(), run); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := author.Execute(context.Background(), run); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if runner.cmd.Path != "/opt/dvdauthor" || runner.cmd.Dir != run.Workspace.Root {
		t.Fatalf("unexpected command %+v", runner.cmd)
	}
	if !slices.Equal(runner.cmd.Args, []string{"-x", run.Workspace.AuthorXML()}) {
		t.Fatalf("args = %v", runner.cmd.Args)
	}
	if !slices.Contains(runner.cmd.Env, "VIDEO_FORMAT=PAL") {
		t.Fatalf("env = %v", runner.cmd.Env)
	}
	data, err := os.ReadFile(run.Workspace.AuthorXML())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "001_in.mpg") || !strings.Contains(string(data), "002_in.mpg") {
		t.Fatalf("project missing streams:\n%s", data)
	}
	if run.VideoTSPath != run.Workspace.VideoTS() {
		t.Fatalf("VideoTSPath = %q", run.VideoTSPath)
	}
	if got := run.Tracker.Last().Percent; got != 88 {
		t.Fatalf("percent = %v, want 88", got)
	}

	if err := NewValidator().Execute(context.Background(), run); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestAuthorExecuteNTSCEnv(t *testing.T) {
	run := newRun(t, dvd.ModeNTSC, 60)
	runner := &fakeDVDAuthor{}
	if err := NewAuthor(runner, staticTools{"dvdauthor": "dvdauthor"}, nil).Execute(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(runner.cmd.Env, "VIDEO_FORMAT=NTSC") {
		t.Fatalf("env = %v", runner.cmd.Env)
	}
}

func TestAuthorMissingTool(t *testing.T) {
	run := newRun(t, dvd.ModePAL, 60)
	runner := &fakeDVDAuthor{}
	err := NewAuthor(runner, staticTools{}, nil).Prepare(context.Background(), run)
	if !errors.Is(err, services.ErrToolMissing) {
		t.Fatalf("expected tool missing, got %v", err)
	}
	details := services.Details(err)
	if details.Stage != string(job.StageAuthor) || details.Tool != "dvdauthor" {
		t.Fatalf("details = %+v", details)
	}
	if runner.calls != 0 {
		t.Fatal("dvdauthor should not run")
	}
}

func TestAuthorToolFailure(t *testing.T) {
	run := newRun(t, dvd.ModePAL, 60)
	err := NewAuthor(&fakeDVDAuthor{fail: true}, staticTools{"dvdauthor": "dvdauthor"}, nil).Execute(context.Background(), run)
	if !errors.Is(err, services.ErrToolExecution) {
		t.Fatalf("expected tool failure, got %v", err)
	}
	if details := services.Details(err); details.Stage != string(job.StageAuthor) || details.ExitCode != 1 {
		t.Fatalf("details = %+v", details)
	}
	if !strings.Contains(err.Error(), "no video format") {
		t.Fatalf("error should carry output tail: %v", err)
	}
}

func TestAuthorRequiresStreams(t *testing.T) {
	run := newRun(t, dvd.ModePAL)
	err := NewAuthor(&fakeDVDAuthor{}, staticTools{"dvdauthor": "dvdauthor"}, nil).Execute(context.Background(), run)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestValidateRejectsIncompleteTree(t *testing.T) {
	run := newRun(t, dvd.ModePAL, 60)
	if err := NewAuthor(&fakeDVDAuthor{skipVOB: true}, staticTools{"dvdauthor": "dvdauthor"}, nil).Execute(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	err := NewValidator().Execute(context.Background(), run)
	if !errors.Is(err, services.ErrOutputIntegrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}
	if details := services.Details(err); details.Stage != string(job.StageValidate) {
		t.Fatalf("stage = %q", details.Stage)
	}
}

func TestValidateVideoTS(t *testing.T) {
	dir := t.TempDir()
	if err := ValidateVideoTS(filepath.Join(dir, "missing")); !errors.Is(err, services.ErrOutputIntegrity) {
		t.Fatalf("missing dir: %v", err)
	}
	write := func(name string, data string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	write("VTS_01_0.IFO", "x")
	write("VTS_01_0.BUP", "x")
	write("VTS_01_1.VOB", "x")
	if err := ValidateVideoTS(dir); err == nil || !strings.Contains(err.Error(), "VIDEO_TS.IFO") {
		t.Fatalf("expected missing VIDEO_TS.IFO, got %v", err)
	}
	write("VIDEO_TS.IFO", "")
	if err := ValidateVideoTS(dir); err == nil {
		t.Fatal("empty VIDEO_TS.IFO should not count")
	}
	write("VIDEO_TS.IFO", "x")
	if err := ValidateVideoTS(dir); err != nil {
		t.Fatalf("valid tree rejected: %v", err)
	}
}
