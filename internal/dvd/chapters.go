package dvd

import (
	"fmt"
	"math"
)

// MaxChapterMarks is the number of programs a DVD program chain can address.
const MaxChapterMarks = 99

// ChapterMarks returns chapter start times for a title of the given length,
// formatted as H:MM:SS. The first mark is always 0:00:00; further marks fall
// every interval minutes strictly before the end of the title, up to
// MaxChapterMarks. Disabled chapters yield nil.
func ChapterMarks(durationSeconds float64, chapters Chapters) []string {
	if !chapters.Enabled {
		return nil
	}
	step := ClampChapterMinutes(chapters.EveryMinutes) * 60
	marks := []string{FormatTimestamp(0)}
	if math.IsNaN(durationSeconds) || math.IsInf(durationSeconds, 0) {
		return marks
	}
	for at := step; float64(at) < durationSeconds && len(marks) < MaxChapterMarks; at += step {
		marks = append(marks, FormatTimestamp(at))
	}
	return marks
}

// FormatTimestamp renders whole seconds as H:MM:SS.
func FormatTimestamp(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}
