package workflow_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"dvdmaker/internal/config"
	"dvdmaker/internal/encoding"
	"dvdmaker/internal/job"
	"dvdmaker/internal/jobstore"
	"dvdmaker/internal/process"
	"dvdmaker/internal/services"
	"dvdmaker/internal/testsupport"
	"dvdmaker/internal/workflow"
)

// fakeTools reports every named tool as installed.
type fakeTools map[string]string

func (f fakeTools) Available(name string) bool {
	_, ok := f[name]
	return ok
}

func (f fakeTools) Ensure(_ context.Context, name string) (string, error) {
	if path, ok := f[name]; ok {
		return path, nil
	}
	return "", services.ToolMissing("", name, "not installed and no download source configured")
}

func allTools() fakeTools {
	return fakeTools{
		"ffmpeg":    "/tools/ffmpeg",
		"ffprobe":   "/tools/ffprobe",
		"dvdauthor": "/tools/dvdauthor",
		"xorriso":   "/tools/xorriso",
	}
}

// fakePipeline imitates every external tool the pipeline launches.
type fakePipeline struct {
	mu        sync.Mutex
	calls     []process.Command
	durations map[string]float64
	probeFail bool
	isoFail   bool
	// blockFFmpeg makes ffmpeg wait for cancellation; started is closed on
	// the first ffmpeg launch.
	blockFFmpeg bool
	started     chan struct{}
	startOnce   sync.Once
}

func (f *fakePipeline) Run(ctx context.Context, cmd process.Command) (process.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	emit := func(stream, line string) {
		if cmd.Sink != nil {
			cmd.Sink(stream, line)
		}
	}
	switch cmd.Tool {
	case "ffprobe":
		if f.probeFail {
			return process.Result{ExitCode: 1}, services.ToolFailed("", "ffprobe", 1, []string{"Invalid data found when processing input"}, nil)
		}
		src := cmd.Args[len(cmd.Args)-1]
		duration := f.durations[filepath.Base(src)]
		body := fmt.Sprintf(`{"streams":[{"codec_type":"video","width":1920,"height":1080,"r_frame_rate":"24000/1001"},{"codec_type":"audio","channels":6,"sample_rate":"48000"}],"format":{"duration":"%.3f"}}`, duration)
		return process.Result{Stdout: []byte(body)}, nil
	case "ffmpeg":
		emit(process.StreamStderr, "frame=  100 fps=50 q=2.0")
		if f.blockFFmpeg {
			f.startOnce.Do(func() { close(f.started) })
			<-ctx.Done()
			return process.Result{ExitCode: -1}, services.Cancelled("", ctx.Err())
		}
		emit(process.StreamStdout, "progress=end")
		out := cmd.Args[len(cmd.Args)-1]
		if out == encoding.NullDevice() {
			return process.Result{}, nil
		}
		return process.Result{}, os.WriteFile(out, []byte("mpeg-ps"), 0o644)
	case "dvdauthor":
		emit(process.StreamStderr, "INFO: dvdauthor creating VTS")
		videoTS := filepath.Join(cmd.Dir, "dvdroot", "VIDEO_TS")
		if err := os.MkdirAll(videoTS, 0o755); err != nil {
			return process.Result{}, err
		}
		for _, name := range []string{"VIDEO_TS.IFO", "VIDEO_TS.BUP", "VTS_01_0.IFO", "VTS_01_0.BUP", "VTS_01_1.VOB"} {
			if err := os.WriteFile(filepath.Join(videoTS, name), []byte(name), 0o644); err != nil {
				return process.Result{}, err
			}
		}
		return process.Result{}, nil
	case "xorriso":
		if f.isoFail {
			return process.Result{ExitCode: 32}, services.ToolFailed("", "xorriso", 32, []string{"xorriso : FAILURE : Image size exceeds free space"}, nil)
		}
		out := cmd.Args[slices.Index(cmd.Args, "-o")+1]
		return process.Result{}, os.WriteFile(out, []byte("iso9660"), 0o644)
	}
	return process.Result{}, fmt.Errorf("unexpected tool %q", cmd.Tool)
}

func (f *fakePipeline) callsFor(tool string) []process.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []process.Command
	for _, c := range f.calls {
		if c.Tool == tool {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakePipeline) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type harness struct {
	cfg     *config.Config
	store   *jobstore.Store
	fake    *fakePipeline
	manager *workflow.Manager
}

func newHarness(t *testing.T, fake *fakePipeline, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Tools.ISOPreference = []string{"imgburn", "xorriso"}
	store := testsupport.MustOpenStore(t, cfg)
	m, err := workflow.NewManager(cfg, store, nil, workflow.WithRunner(fake), workflow.WithTools(allTools()))
	if err != nil {
		t.Fatal(err)
	}
	return &harness{cfg: cfg, store: store, fake: fake, manager: m}
}

// request writes one source file per name and builds a request from config.
func (h *harness) request(t *testing.T, names ...string) job.Request {
	t.Helper()
	srcDir := filepath.Join(testsupport.BaseDir(h.cfg), "sources")
	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(srcDir, name)
		testsupport.WriteFile(t, paths[i], 1024)
	}
	req, err := workflow.NewRequest(h.cfg, nil, paths, workflow.Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	return req
}

func bitrateArg(args []string) string {
	for i, a := range args {
		if a == "-b:v" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func containsLine(text, want string) bool {
	for line := range strings.SplitSeq(text, "\n") {
		if strings.Contains(line, want) {
			return true
		}
	}
	return false
}
