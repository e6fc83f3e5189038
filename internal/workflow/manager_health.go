package workflow

import (
	"context"

	"dvdmaker/internal/job"
	"dvdmaker/internal/stage"
	"dvdmaker/internal/tools"
)

var stageTools = map[job.Stage][]string{
	job.StageProbe:     {tools.FFprobe},
	job.StageTranscode: {tools.FFmpeg},
	job.StageAuthor:    {tools.DVDAuthor},
}

// Health reports the readiness of every pipeline stage. A stage whose tool
// is neither installed nor fetchable is not ready; the ISO stage is ready
// when any configured builder is.
func (m *Manager) Health(ctx context.Context) []stage.Health {
	pipeline := m.stages.pipeline()
	out := make([]stage.Health, 0, len(pipeline))
	for _, ps := range pipeline {
		if ps.handler == nil {
			out = append(out, stage.Unhealthy(string(ps.stage), "not configured"))
			continue
		}
		h := ps.handler.HealthCheck(ctx)
		var missing []string
		for _, name := range stageTools[ps.stage] {
			if !m.tools.Available(name) {
				missing = append(missing, name)
			}
		}
		if ps.stage == job.StageISO && !m.anyISOBuilder() {
			h.Detail = "no ISO builder installed (needed only for --iso)"
			missing = append(missing, m.cfg.Tools.ISOPreference...)
		}
		out = append(out, h.WithMissing(missing...))
	}
	return out
}

func (m *Manager) anyISOBuilder() bool {
	for _, name := range m.cfg.Tools.ISOPreference {
		if m.tools.Available(name) {
			return true
		}
	}
	return false
}
