package encoding

import (
	"fmt"
	"runtime"
	"strconv"

	"dvdmaker/internal/dvd"
	"dvdmaker/internal/preset"
)

// Pass selects single-pass or one half of a two-pass encode.
type Pass int

const (
	SinglePass Pass = iota
	FirstPass
	SecondPass
)

// Params describes one ffmpeg invocation.
type Params struct {
	Input         string
	Output        string
	Mode          dvd.Mode
	Aspect        dvd.Aspect
	VideoKbps     int
	MaxKbps       int
	MinKbps       int
	BufferKB      int
	Audio         preset.Audio
	HasAudio      bool
	Pass          Pass
	PassLogPrefix string
}

// NullDevice is where the analysis pass writes its discarded stream.
func NullDevice() string {
	if runtime.GOOS == "windows" {
		return "NUL"
	}
	return "/dev/null"
}

// BuildArgs returns the ffmpeg argument vector for p.
func BuildArgs(p Params) []string {
	silent := !p.HasAudio && p.Pass != FirstPass
	args := []string{"-hide_banner", "-nostdin", "-y", "-i", p.Input}
	if silent {
		args = append(args,
			"-f", "lavfi",
			"-i", fmt.Sprintf("anullsrc=channel_layout=%s:sample_rate=%d", channelLayout(p.Audio.Channels), p.Audio.SampleRate),
		)
	}

	args = append(args, "-map", "0:v:0")
	switch {
	case p.Pass == FirstPass:
	case silent:
		args = append(args, "-map", "1:a:0", "-shortest")
	default:
		args = append(args, "-map", "0:a:0")
	}

	args = append(args, "-s", p.Mode.Resolution(), "-r", p.Mode.FrameRate())
	if p.Aspect.Explicit() {
		args = append(args, "-aspect", string(p.Aspect))
	}

	maxKbps := p.MaxKbps
	if maxKbps < p.VideoKbps {
		maxKbps = p.VideoKbps
	}
	args = append(args,
		"-c:v", "mpeg2video",
		"-b:v", kbps(p.VideoKbps),
		"-maxrate", kbps(maxKbps),
		"-bufsize", kbps(p.BufferKB),
	)
	if p.MinKbps > 0 {
		args = append(args, "-minrate", kbps(min(p.MinKbps, p.VideoKbps)))
	}
	args = append(args, "-g", strconv.Itoa(p.Mode.GOPSize()))

	switch p.Pass {
	case FirstPass:
		return append(args,
			"-pass", "1", "-passlogfile", p.PassLogPrefix,
			"-an",
			"-progress", "pipe:1", "-nostats",
			"-f", "dvd", NullDevice(),
		)
	case SecondPass:
		args = append(args, "-pass", "2", "-passlogfile", p.PassLogPrefix)
	}

	args = append(args,
		"-c:a", p.Audio.Codec,
		"-b:a", kbps(p.Audio.BitrateKbps),
		"-ar", strconv.Itoa(p.Audio.SampleRate),
		"-ac", strconv.Itoa(p.Audio.Channels),
		"-progress", "pipe:1", "-nostats",
		"-f", "dvd", p.Output,
	)
	return args
}

func kbps(value int) string {
	return strconv.Itoa(value) + "k"
}

func channelLayout(channels int) string {
	switch channels {
	case 1:
		return "mono"
	case 6:
		return "5.1"
	default:
		return "stereo"
	}
}
