package ffprobe

import (
	"context"
	"errors"
	"testing"

	"dvdmaker/internal/process"
	"dvdmaker/internal/services"
)

const samplePayload = `{
  "streams": [
    {"index": 0, "codec_type": "video", "codec_name": "h264", "width": 1920, "height": 1080,
     "r_frame_rate": "30000/1001", "avg_frame_rate": "30000/1001", "duration": "60.0"},
    {"index": 1, "codec_type": "audio", "codec_name": "aac", "sample_rate": "48000", "channels": 6}
  ],
  "format": {"filename": "in.mp4", "nb_streams": 2, "duration": "123.45", "size": "1000", "bit_rate": "32000"}
}`

func TestMetadataFromPayload(t *testing.T) {
	result, err := Parse([]byte(samplePayload))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.VideoStreamCount() != 1 || result.AudioStreamCount() != 1 {
		t.Fatalf("unexpected stream counts: %d video, %d audio", result.VideoStreamCount(), result.AudioStreamCount())
	}
	meta := result.Metadata()
	if meta.DurationSeconds != 123.45 {
		t.Fatalf("duration = %v", meta.DurationSeconds)
	}
	if meta.Width != 1920 || meta.Height != 1080 {
		t.Fatalf("geometry = %dx%d", meta.Width, meta.Height)
	}
	if meta.FrameRate < 29.97 || meta.FrameRate > 29.98 {
		t.Fatalf("frame rate = %v", meta.FrameRate)
	}
	if !meta.HasAudio || meta.AudioChannels != 6 || meta.AudioSampleRate != 48000 {
		t.Fatalf("audio = %+v", meta)
	}
}

func TestNumericDurationAndMissingFields(t *testing.T) {
	result, err := Parse([]byte(`{"streams":[{"codec_type":"video","r_frame_rate":"25/0"}],"format":{"duration":42.5}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	meta := result.Metadata()
	if meta.DurationSeconds != 42.5 {
		t.Fatalf("duration = %v", meta.DurationSeconds)
	}
	if meta.FrameRate != 0 {
		t.Fatalf("expected zero frame rate for zero denominator, got %v", meta.FrameRate)
	}
	if meta.HasAudio || meta.AudioChannels != 0 || meta.AudioSampleRate != 0 {
		t.Fatalf("expected no audio, got %+v", meta)
	}

	empty, err := Parse([]byte(`{"format":{"duration":"N/A"}}`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if empty.Metadata() != (Metadata{}) {
		t.Fatalf("expected zero metadata, got %+v", empty.Metadata())
	}
}

func TestNonFiniteValuesBecomeZero(t *testing.T) {
	for _, raw := range []string{`"inf"`, `"-inf"`, `"nan"`, `"Infinity"`} {
		result, err := Parse([]byte(`{"format":{"duration":` + raw + `,"size":` + raw + `}}`))
		if err != nil {
			t.Fatalf("Parse(%s): %v", raw, err)
		}
		if result.Format.Duration != 0 || result.Format.Size != 0 {
			t.Fatalf("%s: duration=%v size=%v, want zero", raw, result.Format.Duration, result.Format.Size)
		}
		if meta := result.Metadata(); meta.DurationSeconds != 0 {
			t.Fatalf("%s: metadata duration = %v", raw, meta.DurationSeconds)
		}
	}
}

func TestParseFrameRate(t *testing.T) {
	cases := map[string]float64{
		"25":     25,
		"25/1":   25,
		"50/2":   25,
		"1/0":    0,
		"":       0,
		"abc":    0,
		"24/bad": 0,
	}
	for input, want := range cases {
		if got := ParseFrameRate(input); got != want {
			t.Errorf("ParseFrameRate(%q) = %v, want %v", input, got, want)
		}
	}
}

type stubRunner struct {
	cmd    process.Command
	result process.Result
	err    error
}

func (s *stubRunner) Run(_ context.Context, cmd process.Command) (process.Result, error) {
	s.cmd = cmd
	return s.result, s.err
}

func TestProberRunsFFprobe(t *testing.T) {
	runner := &stubRunner{result: process.Result{Stdout: []byte(samplePayload)}}
	prober := NewProber("/opt/tools/ffprobe", runner)

	meta, err := prober.Probe(context.Background(), "/videos/in.mp4")
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if meta.DurationSeconds != 123.45 {
		t.Fatalf("duration = %v", meta.DurationSeconds)
	}
	if runner.cmd.Path != "/opt/tools/ffprobe" || !runner.cmd.CaptureStdout {
		t.Fatalf("unexpected command: %+v", runner.cmd)
	}
	args := runner.cmd.Args
	if args[len(args)-1] != "/videos/in.mp4" || args[len(args)-2] != "--" {
		t.Fatalf("path must follow --, got %v", args)
	}

	// Probing twice yields the same answer.
	again, err := prober.Probe(context.Background(), "/videos/in.mp4")
	if err != nil || again != meta {
		t.Fatalf("re-probe mismatch: %+v vs %+v (%v)", again, meta, err)
	}
}

func TestProberReportsBadJSON(t *testing.T) {
	runner := &stubRunner{result: process.Result{Stdout: []byte("not json")}}
	_, err := NewProber("", runner).Probe(context.Background(), "in.mp4")
	if !errors.Is(err, services.ErrOutputIntegrity) {
		t.Fatalf("expected output integrity error, got %v", err)
	}
}

func TestProberPropagatesRunnerError(t *testing.T) {
	runner := &stubRunner{err: services.ToolMissing("", "ffprobe", "not found")}
	_, err := NewProber("", runner).Probe(context.Background(), "in.mp4")
	if !errors.Is(err, services.ErrToolMissing) {
		t.Fatalf("expected tool missing, got %v", err)
	}
}
