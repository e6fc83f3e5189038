package tools

import (
	"runtime"
	"slices"
	"strings"
)

// Logical tool names.
const (
	FFmpeg      = "ffmpeg"
	FFprobe     = "ffprobe"
	DVDAuthor   = "dvdauthor"
	ImgBurn     = "imgburn"
	Xorriso     = "xorriso"
	Mkisofs     = "mkisofs"
	Genisoimage = "genisoimage"
)

// Requirement describes one tool for status reporting.
type Requirement struct {
	Name        string
	Description string
	Optional    bool
}

// Known lists every tool dvdmaker can drive.
func Known() []Requirement {
	return []Requirement{
		{Name: FFprobe, Description: "Source inspection"},
		{Name: FFmpeg, Description: "MPEG-2 transcoding"},
		{Name: DVDAuthor, Description: "VIDEO_TS authoring"},
		{Name: ImgBurn, Description: "ISO image builder (Windows)", Optional: true},
		{Name: Xorriso, Description: "ISO image builder", Optional: true},
		{Name: Mkisofs, Description: "ISO image builder", Optional: true},
		{Name: Genisoimage, Description: "ISO image builder", Optional: true},
	}
}

var coreTools = []string{FFmpeg, FFprobe}

// IsCore reports whether name must be installed by the user.
func IsCore(name string) bool {
	return slices.Contains(coreTools, strings.ToLower(strings.TrimSpace(name)))
}

// ExecutableName returns the file name a tool is installed under.
func ExecutableName(name string) string {
	return executableNameFor(name, runtime.GOOS)
}

func executableNameFor(name, goos string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == ImgBurn {
		return "ImgBurn.exe"
	}
	if goos == "windows" {
		return name + ".exe"
	}
	return name
}
