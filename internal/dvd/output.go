package dvd

import (
	"errors"
	"strings"

	"dvdmaker/internal/textutil"
)

// Output selects which artifacts a job produces and where.
type Output struct {
	ExportFolder bool
	ExportISO    bool
	Dir          string `validate:"required"`
	Label        string
}

// ErrNoOutputSelected is returned when neither folder nor ISO export is on.
var ErrNoOutputSelected = errors.New("at least one of folder or ISO export must be enabled")

// Check validates the output selection.
func (o Output) Check() error {
	if !o.ExportFolder && !o.ExportISO {
		return ErrNoOutputSelected
	}
	if strings.TrimSpace(o.Dir) == "" {
		return errors.New("output directory is required")
	}
	return nil
}

// VolumeLabel returns the sanitized disc label.
func (o Output) VolumeLabel() string {
	return textutil.SanitizeVolumeLabel(o.Label)
}

// ISOName returns the final image file name.
func (o Output) ISOName() string {
	return o.VolumeLabel() + ".iso"
}
