package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"dvdmaker/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// PATH lookup is disabled so tests only see tools they install themselves.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.ToolsDir = filepath.Join(base, "tools")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Tools.AllowPathLookup = false

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithISO enables image export with the given label.
func WithISO(label string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.DVD.ExportISO = true
		b.cfg.DVD.Label = label
	}
}

// WithConfig applies an arbitrary mutation to the test configuration.
func WithConfig(mutate func(*config.Config)) ConfigOption {
	return func(b *configBuilder) { mutate(b.cfg) }
}

// WithStubbedTools writes stub executables into the tools directory. If names
// is empty, ffmpeg, ffprobe and dvdauthor are stubbed.
func WithStubbedTools(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "dvdauthor"}
		}
		for _, name := range names {
			WriteStubBinary(b.t, b.cfg.Paths.ToolsDir, name, "exit 0\n")
		}
	}
}

// WriteStubBinary writes an executable shell script named name into dir and
// returns its path. body is appended after the shebang line.
func WriteStubBinary(t testing.TB, dir, name, body string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir stub dir: %v", err)
	}
	target := filepath.Join(dir, name)
	if err := os.WriteFile(target, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write stub %s: %v", name, err)
	}
	return target
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
