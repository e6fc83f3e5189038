package workflow

import (
	"fmt"
	"log/slog"

	"dvdmaker/internal/authoring"
	"dvdmaker/internal/encoding"
	"dvdmaker/internal/export"
	"dvdmaker/internal/iso"
)

// configureStages fills every unset handler with the default implementation
// wired to the manager's runner and tool locator.
func (m *Manager) configureStages(logger *slog.Logger) error {
	set := m.stages
	if set.Prober == nil {
		set.Prober = NewProbeStage(m.runner, m.tools, m.cfg.Probe.Strict, logger)
	}
	if set.Transcoder == nil {
		set.Transcoder = encoding.NewTranscoder(m.runner, m.tools, encoding.WithLogger(logger))
	}
	if set.Author == nil {
		set.Author = authoring.NewAuthor(m.runner, m.tools, logger)
	}
	if set.Validator == nil {
		set.Validator = authoring.NewValidator()
	}
	if set.Exporter == nil {
		set.Exporter = export.NewExporter(logger)
	}
	if set.ISO == nil {
		builders, err := iso.Order(m.cfg.Tools.ISOPreference)
		if err != nil {
			return fmt.Errorf("configure ISO builders: %w", err)
		}
		set.ISO = iso.NewStage(m.runner, m.tools, builders, logger)
	}
	m.stages = set
	return nil
}
