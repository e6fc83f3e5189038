//go:build unix

package process_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"dvdmaker/internal/process"
	"dvdmaker/internal/services"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool.sh")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

type lineRecorder struct {
	mu    sync.Mutex
	lines map[string][]string
}

func (r *lineRecorder) sink(stream, line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lines == nil {
		r.lines = make(map[string][]string)
	}
	r.lines[stream] = append(r.lines[stream], line)
}

func (r *lineRecorder) get(stream string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines[stream]...)
}

func TestRunDeliversLinesInOrder(t *testing.T) {
	script := writeScript(t, "echo one\necho two\necho err1 >&2\nprintf 'three\\rfour\\n'\necho err2 >&2\n")
	rec := &lineRecorder{}
	runner := process.New()

	result, err := runner.Run(context.Background(), process.Command{Tool: "demo", Path: script, Sink: rec.sink})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ExitCode != 0 {
		t.Fatalf("exit code = %d", result.ExitCode)
	}
	if got := strings.Join(rec.get(process.StreamStdout), ","); got != "one,two,three,four" {
		t.Fatalf("stdout lines = %q", got)
	}
	if got := strings.Join(rec.get(process.StreamStderr), ","); got != "err1,err2" {
		t.Fatalf("stderr lines = %q", got)
	}
}

func TestRunCapturesStdout(t *testing.T) {
	script := writeScript(t, "echo '{\"a\":1}'\n")
	result, err := process.New().Run(context.Background(), process.Command{Tool: "demo", Path: script, CaptureStdout: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(string(result.Stdout)) != `{"a":1}` {
		t.Fatalf("stdout = %q", result.Stdout)
	}
}

func TestRunNonZeroExitIncludesTail(t *testing.T) {
	script := writeScript(t, "i=0\nwhile [ $i -lt 10 ]; do echo line$i >&2; i=$((i+1)); done\nexit 3\n")
	result, err := process.New(process.WithTailLines(3)).Run(context.Background(), process.Command{Tool: "demo", Path: script})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrToolExecution) {
		t.Fatalf("expected tool execution error, got %v", err)
	}
	var typed *services.Error
	if !errors.As(err, &typed) {
		t.Fatalf("expected services.Error, got %T", err)
	}
	if typed.ExitCode != 3 || result.ExitCode != 3 {
		t.Fatalf("exit code = %d/%d", typed.ExitCode, result.ExitCode)
	}
	if typed.Tool != "demo" {
		t.Fatalf("tool = %q", typed.Tool)
	}
	if got := strings.Join(typed.OutputTail, ","); got != "line7,line8,line9" {
		t.Fatalf("tail = %q", got)
	}
}

func TestRunMissingExecutable(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := process.New().Run(context.Background(), process.Command{Tool: "nope", Path: missing})
	if !errors.Is(err, services.ErrToolMissing) {
		t.Fatalf("expected tool missing, got %v", err)
	}

	_, err = process.New().Run(context.Background(), process.Command{Tool: "nope", Path: "dvdmaker-nonexistent-binary"})
	if !errors.Is(err, services.ErrToolMissing) {
		t.Fatalf("expected tool missing for PATH lookup, got %v", err)
	}
}

func TestRunCancellationKillsProcessGroup(t *testing.T) {
	// The backgrounded sleep inherits the output pipes, so Run only returns
	// promptly when the whole group is killed.
	script := writeScript(t, "sleep 30 &\necho ready\nwait\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ready := make(chan struct{})
	var once sync.Once
	sink := func(stream, line string) {
		if line == "ready" {
			once.Do(func() { close(ready) })
		}
	}

	runner := process.New(process.WithWaitDelay(20 * time.Second))
	done := make(chan error, 1)
	go func() {
		_, err := runner.Run(ctx, process.Command{Tool: "sleepy", Path: script, Sink: sink})
		done <- err
	}()

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		t.Fatal("tool never reported ready")
	}
	started := time.Now()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, services.ErrCancelled) {
			t.Fatalf("expected cancelled error, got %v", err)
		}
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled in chain, got %v", err)
		}
		if elapsed := time.Since(started); elapsed > 5*time.Second {
			t.Fatalf("cancellation took %s", elapsed)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

func TestRunAlreadyCancelled(t *testing.T) {
	script := writeScript(t, "echo hi\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := process.New().Run(ctx, process.Command{Tool: "demo", Path: script})
	if !errors.Is(err, services.ErrCancelled) {
		t.Fatalf("expected cancelled, got %v", err)
	}
}

func TestTeeSkipsNil(t *testing.T) {
	var got []string
	sink := process.Tee(nil, func(stream, line string) { got = append(got, stream+":"+line) })
	sink("stdout", "x")
	if len(got) != 1 || got[0] != "stdout:x" {
		t.Fatalf("got %v", got)
	}
}
