package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	// MaxVolumeLabelLength is the longest label ISO builders accept.
	MaxVolumeLabelLength = 32
	// FallbackVolumeLabel replaces labels that sanitize to nothing.
	FallbackVolumeLabel = "DVD_VIDEO"
)

var upper = cases.Upper(language.Und)

// SanitizeVolumeLabel reduces value to uppercase A-Z, 0-9, underscore and
// hyphen, at most MaxVolumeLabelLength characters. Whitespace becomes an
// underscore and any other character is dropped. The function is idempotent
// and never returns an empty string.
func SanitizeVolumeLabel(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return FallbackVolumeLabel
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if stripped, _, err := transform.String(t, value); err == nil {
		value = stripped
	}
	value = upper.String(value)

	var b strings.Builder
	for _, r := range value {
		if b.Len() >= MaxVolumeLabelLength {
			break
		}
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return FallbackVolumeLabel
	}
	return b.String()
}

// IsValidVolumeLabel reports whether value already satisfies the label rules.
func IsValidVolumeLabel(value string) bool {
	if value == "" || len(value) > MaxVolumeLabelLength {
		return false
	}
	for _, r := range value {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}
