package dvd

import (
	"fmt"
	"strings"
)

// Mode is the television standard of the produced disc.
type Mode string

const (
	ModePAL  Mode = "pal"
	ModeNTSC Mode = "ntsc"
)

// ParseMode accepts "pal" or "ntsc" in any case.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModePAL:
		return ModePAL, nil
	case ModeNTSC:
		return ModeNTSC, nil
	default:
		return "", fmt.Errorf("unknown video mode %q (want pal or ntsc)", value)
	}
}

// Resolution returns the ffmpeg frame size.
func (m Mode) Resolution() string {
	if m == ModeNTSC {
		return "720x480"
	}
	return "720x576"
}

// FrameRate returns the ffmpeg rate expression.
func (m Mode) FrameRate() string {
	if m == ModeNTSC {
		return "30000/1001"
	}
	return "25"
}

// FPS returns the frame rate as a number.
func (m Mode) FPS() float64 {
	if m == ModeNTSC {
		return 30000.0 / 1001.0
	}
	return 25
}

// GOPSize returns the maximum GOP length allowed on DVD.
func (m Mode) GOPSize() int {
	if m == ModeNTSC {
		return 18
	}
	return 15
}

// VideoFormat returns the dvdauthor VIDEO_FORMAT value.
func (m Mode) VideoFormat() string {
	if m == ModeNTSC {
		return "NTSC"
	}
	return "PAL"
}

// Aspect is the display aspect ratio flag.
type Aspect string

const (
	AspectAuto Aspect = "auto"
	Aspect16x9 Aspect = "16:9"
	Aspect4x3  Aspect = "4:3"
)

// ParseAspect accepts auto, 16:9 or 4:3. "16x9" and "4x3" are aliases.
func ParseAspect(value string) (Aspect, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(AspectAuto):
		return AspectAuto, nil
	case string(Aspect16x9), "16x9", "anamorphic":
		return Aspect16x9, nil
	case string(Aspect4x3), "4x3", "standard":
		return Aspect4x3, nil
	default:
		return "", fmt.Errorf("unknown aspect %q (want auto, 16:9 or 4:3)", value)
	}
}

// Explicit reports whether a fixed aspect was requested.
func (a Aspect) Explicit() bool {
	return a == Aspect16x9 || a == Aspect4x3
}

// Chapters describes automatic chapter markers.
type Chapters struct {
	Enabled      bool
	EveryMinutes int
}

// ChaptersEvery returns chapter markers every n minutes; n <= 0 disables
// them and larger values are clamped to [1,60].
func ChaptersEvery(n int) Chapters {
	if n <= 0 {
		return Chapters{}
	}
	return Chapters{Enabled: true, EveryMinutes: ClampChapterMinutes(n)}
}

// ClampChapterMinutes bounds a chapter interval to [1,60].
func ClampChapterMinutes(n int) int {
	switch {
	case n < 1:
		return 1
	case n > 60:
		return 60
	default:
		return n
	}
}

// Settings are the disc-wide encoding choices of a job.
type Settings struct {
	Mode     Mode     `validate:"required,oneof=pal ntsc"`
	Aspect   Aspect   `validate:"required,oneof=auto 16:9 4:3"`
	Chapters Chapters
	PresetID string `validate:"required"`
}
