package authoring

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"dvdmaker/internal/job"
	"dvdmaker/internal/logging"
	"dvdmaker/internal/process"
	"dvdmaker/internal/services"
	"dvdmaker/internal/stage"
	"dvdmaker/internal/tools"
)

// Author is the authoring stage handler.
type Author struct {
	runner   process.Runner
	provider stage.ToolProvider
	logger   *slog.Logger
}

// NewAuthor builds the authoring stage.
func NewAuthor(runner process.Runner, provider stage.ToolProvider, logger *slog.Logger) *Author {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Author{runner: runner, provider: provider, logger: logging.NewComponentLogger(logger, "authoring")}
}

// Prepare resolves or installs dvdauthor.
func (a *Author) Prepare(ctx context.Context, run *job.Run) error {
	_, err := stage.RequireTool(ctx, a.provider, run, job.StageAuthor, tools.DVDAuthor)
	return err
}

// HealthCheck reports whether the stage is wired.
func (a *Author) HealthCheck(context.Context) stage.Health {
	if a.runner == nil || a.provider == nil {
		return stage.Unhealthy("author", "runner or tool provider not configured")
	}
	return stage.Healthy("author")
}

// Execute writes dvdauthor.xml and runs dvdauthor against it.
func (a *Author) Execute(ctx context.Context, run *job.Run) error {
	binary, err := stage.RequireTool(ctx, a.provider, run, job.StageAuthor, tools.DVDAuthor)
	if err != nil {
		return err
	}
	if len(run.Streams) == 0 {
		return services.Wrap(services.KindValidation, string(job.StageAuthor), "collect streams", "no transcoded streams to author", nil)
	}
	titles := make([]Title, 0, len(run.Streams))
	for i, stream := range run.Streams {
		duration := 0.0
		if i < len(run.Sources) {
			duration = run.Sources[i].DurationSeconds
		}
		titles = append(titles, Title{Path: stream, DurationSeconds: duration})
	}

	ws := run.Workspace
	if err := os.RemoveAll(ws.DVDRoot()); err != nil {
		return services.Wrap(services.KindFilesystem, string(job.StageAuthor), "reset dvdroot", "", err)
	}
	req := run.Request
	doc := BuildDocument(ws.DVDRoot(), req.DVD.Mode, req.DVD.Aspect, req.DVD.Chapters, titles)
	if err := doc.WriteFile(ws.AuthorXML()); err != nil {
		return services.Wrap(services.KindFilesystem, string(job.StageAuthor), "write project", "", err)
	}

	logger := logging.WithContext(ctx, a.logger)
	logger.Info("authoring VIDEO_TS",
		logging.Int("titles", len(titles)),
		logging.String("video_format", req.DVD.Mode.VideoFormat()),
		logging.Bool("chapters", req.DVD.Chapters.Enabled),
	)
	run.Tracker.Update(job.StageAuthor, 0.1, fmt.Sprintf("Authoring %d title(s)", len(titles)))

	_, err = a.runner.Run(ctx, process.Command{
		Tool: tools.DVDAuthor,
		Path: binary,
		Args: []string{"-x", ws.AuthorXML()},
		Dir:  ws.Root,
		Env:  []string{"VIDEO_FORMAT=" + req.DVD.Mode.VideoFormat()},
		Sink: run.LineSink(tools.DVDAuthor),
	})
	if err != nil {
		return stage.Fail(job.StageAuthor, err)
	}
	run.VideoTSPath = ws.VideoTS()
	run.Tracker.Update(job.StageAuthor, 1, "Authoring complete")
	return nil
}
