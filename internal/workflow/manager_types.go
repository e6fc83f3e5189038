package workflow

import (
	"dvdmaker/internal/job"
	"dvdmaker/internal/stage"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
type StageSet struct {
	Prober     stage.Handler
	Transcoder stage.Handler
	Author     stage.Handler
	Validator  stage.Handler
	Exporter   stage.Handler
	ISO        stage.Handler
}

type pipelineStage struct {
	stage   job.Stage
	handler stage.Handler
	// enabled reports whether the stage applies to the request.
	enabled func(job.Request) bool
}

func always(job.Request) bool { return true }

func (s StageSet) pipeline() []pipelineStage {
	return []pipelineStage{
		{stage: job.StageProbe, handler: s.Prober, enabled: always},
		{stage: job.StageTranscode, handler: s.Transcoder, enabled: always},
		{stage: job.StageAuthor, handler: s.Author, enabled: always},
		{stage: job.StageValidate, handler: s.Validator, enabled: always},
		{stage: job.StageExport, handler: s.Exporter, enabled: func(r job.Request) bool { return r.Output.ExportFolder }},
		{stage: job.StageISO, handler: s.ISO, enabled: func(r job.Request) bool { return r.Output.ExportISO }},
	}
}
