package ffprobe

import (
	"context"
	"strings"

	"dvdmaker/internal/process"
	"dvdmaker/internal/services"
)

const toolName = "ffprobe"

// Metadata is what the pipeline learns about a source file. Fields ffprobe
// did not report stay zero.
type Metadata struct {
	DurationSeconds float64
	Width           int
	Height          int
	FrameRate       float64
	HasAudio        bool
	AudioChannels   int
	AudioSampleRate int
}

// Prober inspects media files with ffprobe.
type Prober struct {
	binary string
	runner process.Runner
	sink   process.LineSink
}

// Option customizes a Prober.
type Option func(*Prober)

// WithSink forwards ffprobe stderr diagnostics to the job log.
func WithSink(sink process.LineSink) Option {
	return func(p *Prober) { p.sink = sink }
}

// NewProber builds a prober for the resolved ffprobe binary.
func NewProber(binary string, runner process.Runner, opts ...Option) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = toolName
	}
	if runner == nil {
		runner = process.New()
	}
	p := &Prober{binary: binary, runner: runner}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Args returns the ffprobe argument vector for path.
func Args(path string) []string {
	return []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path}
}

// Probe runs ffprobe against path and returns the decoded metadata.
func (p *Prober) Probe(ctx context.Context, path string) (Metadata, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Metadata{}, services.Wrap(services.KindValidation, "", "probe", "empty source path", nil)
	}
	var sink process.LineSink
	if p.sink != nil {
		sink = func(stream, line string) {
			if stream == process.StreamStderr {
				p.sink(stream, line)
			}
		}
	}
	result, err := p.runner.Run(ctx, process.Command{
		Tool:          toolName,
		Path:          p.binary,
		Args:          Args(path),
		Sink:          sink,
		CaptureStdout: true,
	})
	if err != nil {
		return Metadata{}, err
	}
	parsed, err := Parse(result.Stdout)
	if err != nil {
		return Metadata{}, &services.Error{
			Kind:      services.KindOutputIntegrity,
			Tool:      toolName,
			Operation: "parse",
			Message:   "ffprobe returned unreadable JSON",
			Err:       err,
		}
	}
	return parsed.Metadata(), nil
}
