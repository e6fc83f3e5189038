package stage

import (
	"context"

	"dvdmaker/internal/job"
)

// ToolProvider returns a runnable executable for a logical tool name,
// installing it first when that is possible.
type ToolProvider interface {
	Ensure(ctx context.Context, name string) (string, error)
}

// RequireTool resolves name through provider and records it on the run.
func RequireTool(ctx context.Context, provider ToolProvider, run *job.Run, stageName job.Stage, name string) (string, error) {
	if path, ok := run.Tool(name); ok {
		return path, nil
	}
	path, err := provider.Ensure(ctx, name)
	if err != nil {
		return "", Fail(stageName, err)
	}
	run.SetTool(name, path)
	return path, nil
}
