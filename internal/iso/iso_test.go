package iso

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"dvdmaker/internal/dvd"
	"dvdmaker/internal/job"
	"dvdmaker/internal/process"
	"dvdmaker/internal/services"
)

type fakeLocator struct {
	installed map[string]string
	broken    map[string]bool
	ensured   []string
}

func (f *fakeLocator) Available(name string) bool {
	_, ok := f.installed[name]
	return ok
}

func (f *fakeLocator) Ensure(_ context.Context, name string) (string, error) {
	f.ensured = append(f.ensured, name)
	if f.broken[name] {
		return "", services.ToolMissing("", name, "download failed")
	}
	path, ok := f.installed[name]
	if !ok {
		return "", services.ToolMissing("", name, "not found")
	}
	return path, nil
}

type fakeBuilderRunner struct {
	commands []process.Command
	empty    bool
	fail     bool
}

func (f *fakeBuilderRunner) Run(_ context.Context, cmd process.Command) (process.Result, error) {
	f.commands = append(f.commands, cmd)
	if f.fail {
		return process.Result{ExitCode: 2}, services.ToolFailed("", cmd.Tool, 2, []string{"write error"}, nil)
	}
	out := ""
	for i, arg := range cmd.Args {
		if (arg == "-o" || arg == "/DEST") && i+1 < len(cmd.Args) {
			out = cmd.Args[i+1]
		}
	}
	body := []byte("iso-image")
	if f.empty {
		body = nil
	}
	return process.Result{}, os.WriteFile(out, body, 0o644)
}

func newRun(t *testing.T, exportISO bool) *job.Run {
	t.Helper()
	dir := t.TempDir()
	ws := job.NewWorkspace(dir, "iso-job", time.Now())
	if err := ws.Create(); err != nil {
		t.Fatal(err)
	}
	req := job.Request{Output: dvd.Output{ExportISO: exportISO, Dir: filepath.Join(dir, "out"), Label: "Ma Vidéo"}}
	return job.NewRun("iso-job", req, ws, nil)
}

func defaultOrder(t *testing.T) []Builder {
	t.Helper()
	builders, err := Order([]string{"imgburn", "xorriso", "mkisofs", "genisoimage"})
	if err != nil {
		t.Fatal(err)
	}
	return builders
}

func TestBuilderArgs(t *testing.T) {
	x, _ := Lookup("xorriso")
	if got := x.Args("/r", "/o.iso", "LBL"); !slices.Equal(got, []string{"-as", "mkisofs", "-dvd-video", "-V", "LBL", "-o", "/o.iso", "/r"}) {
		t.Fatalf("xorriso args = %v", got)
	}
	g, _ := Lookup("genisoimage")
	if g.Name() != "genisoimage" {
		t.Fatalf("name = %q", g.Name())
	}
	if got := g.Args("/r", "/o.iso", "LBL"); !slices.Equal(got, []string{"-dvd-video", "-udf", "-V", "LBL", "-o", "/o.iso", "/r"}) {
		t.Fatalf("genisoimage args = %v", got)
	}
	i, _ := Lookup("ImgBurn")
	args := i.Args("/r", "/o.iso", "LBL")
	if !slices.Contains(args, "/VOLUMELABEL") || !slices.Contains(args, "/START") {
		t.Fatalf("imgburn args = %v", args)
	}
	if _, err := Lookup("nero"); err == nil {
		t.Fatal("unknown builder accepted")
	}
}

func TestOrderSkipsDuplicates(t *testing.T) {
	builders, err := Order([]string{"xorriso", "XORRISO", "mkisofs"})
	if err != nil {
		t.Fatal(err)
	}
	if len(builders) != 2 || builders[0].Name() != "xorriso" || builders[1].Name() != "mkisofs" {
		t.Fatalf("unexpected order %v", builders)
	}
}

func TestExecuteFallsBackInOrder(t *testing.T) {
	run := newRun(t, true)
	locator := &fakeLocator{installed: map[string]string{"mkisofs": "/usr/bin/mkisofs", "genisoimage": "/usr/bin/genisoimage"}}
	runner := &fakeBuilderRunner{}
	st := NewStage(runner, locator, defaultOrder(t), nil)

	if err := st.Prepare(context.Background(), run); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if run.ISOBuilder != "mkisofs" {
		t.Fatalf("selected %q, want mkisofs", run.ISOBuilder)
	}
	if err := st.Execute(context.Background(), run); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(runner.commands) != 1 || runner.commands[0].Path != "/usr/bin/mkisofs" {
		t.Fatalf("commands = %+v", runner.commands)
	}
	if !slices.Contains(runner.commands[0].Args, "MA_VIDEO") {
		t.Fatalf("label missing from args %v", runner.commands[0].Args)
	}
	want := filepath.Join(run.Request.Output.Dir, "MA_VIDEO.iso")
	if run.ISOPath != want {
		t.Fatalf("ISOPath = %q, want %q", run.ISOPath, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("final image: %v", err)
	}
	if _, err := os.Stat(filepath.Join(run.Workspace.ImageDir(), "MA_VIDEO.iso")); !os.IsNotExist(err) {
		t.Fatal("staged image should have been moved")
	}
	if got := run.Tracker.Last().Percent; got != 99 {
		t.Fatalf("percent = %v, want 99", got)
	}
}

func TestPrepareSkipsBrokenBuilder(t *testing.T) {
	run := newRun(t, true)
	locator := &fakeLocator{
		installed: map[string]string{"imgburn": "ImgBurn.exe", "xorriso": "/usr/bin/xorriso"},
		broken:    map[string]bool{"imgburn": true},
	}
	if err := NewStage(&fakeBuilderRunner{}, locator, defaultOrder(t), nil).Prepare(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	if run.ISOBuilder != "xorriso" {
		t.Fatalf("selected %q", run.ISOBuilder)
	}
	if !slices.Equal(locator.ensured, []string{"imgburn", "xorriso"}) {
		t.Fatalf("ensured = %v", locator.ensured)
	}
}

func TestNoBuilderFailsBeforeLaunch(t *testing.T) {
	run := newRun(t, true)
	runner := &fakeBuilderRunner{}
	st := NewStage(runner, &fakeLocator{}, defaultOrder(t), nil)

	for _, step := range []func(context.Context, *job.Run) error{st.Prepare, st.Execute} {
		err := step(context.Background(), run)
		if !errors.Is(err, services.ErrToolMissing) {
			t.Fatalf("expected tool missing, got %v", err)
		}
		details := services.Details(err)
		if details.Stage != "iso" || details.Message != "no ISO tool available" {
			t.Fatalf("details = %+v", details)
		}
	}
	if len(runner.commands) != 0 {
		t.Fatal("no process should launch")
	}
}

func TestExecuteSkippedWithoutISO(t *testing.T) {
	run := newRun(t, false)
	runner := &fakeBuilderRunner{}
	st := NewStage(runner, &fakeLocator{}, defaultOrder(t), nil)
	if err := st.Prepare(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	if err := st.Execute(context.Background(), run); err != nil {
		t.Fatal(err)
	}
	if len(runner.commands) != 0 || run.ISOPath != "" {
		t.Fatal("ISO stage should be a no-op")
	}
}

func TestEmptyImageIsIntegrityFailure(t *testing.T) {
	run := newRun(t, true)
	locator := &fakeLocator{installed: map[string]string{"xorriso": "xorriso"}}
	err := NewStage(&fakeBuilderRunner{empty: true}, locator, defaultOrder(t), nil).Execute(context.Background(), run)
	if !errors.Is(err, services.ErrOutputIntegrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(run.Request.Output.Dir, "MA_VIDEO.iso")); !os.IsNotExist(statErr) {
		t.Fatal("empty image must not be promoted")
	}
}

func TestBuilderFailureNamesTool(t *testing.T) {
	run := newRun(t, true)
	locator := &fakeLocator{installed: map[string]string{"xorriso": "xorriso"}}
	err := NewStage(&fakeBuilderRunner{fail: true}, locator, defaultOrder(t), nil).Execute(context.Background(), run)
	details := services.Details(err)
	if details.Kind != services.KindToolExecution || details.Tool != "xorriso" || details.Stage != "iso" || details.ExitCode != 2 {
		t.Fatalf("details = %+v", details)
	}
}
