package job

import (
	"log/slog"
	"sync"
	"time"

	"dvdmaker/internal/logging"
	"dvdmaker/internal/process"
)

// ToolSink returns a line sink that tags output with the tool name.
type ToolSink func(tool string) process.LineSink

// Run is the mutable state of one executing job. Stages run strictly in
// sequence; the only concurrent writer is the transcode stage, which guards
// per-source fields with its own synchronization.
type Run struct {
	ID        string
	Request   Request
	Workspace Workspace
	StartedAt time.Time

	Logger  *slog.Logger
	Tracker *Tracker
	Sink    ToolSink

	// Tools maps logical tool names to resolved executables.
	Tools map[string]string

	Sources          []SourceItem
	VideoBitrateKbps int
	Streams          []string
	VideoTSPath      string
	ExportedVideoTS  string
	ISOPath          string
	ISOBuilder       string

	pending []Pending
	mu      sync.Mutex
}

// Pending is a staged artifact that is moved into the output directory only
// after every stage has succeeded. Promote returns the final path; Discard
// removes the staged copy when the job ends without promoting it.
type Pending struct {
	Stage   Stage
	Promote func() (string, error)
	Discard func()
}

// Defer queues p for promotion when the job completes.
func (r *Run) Defer(p Pending) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending = append(r.pending, p)
}

// TakePending returns the queued promotions in the order they were deferred
// and clears the queue.
func (r *Run) TakePending() []Pending {
	r.mu.Lock()
	defer r.mu.Unlock()
	pending := r.pending
	r.pending = nil
	return pending
}

// NewRun prepares run state for req.
func NewRun(id string, req Request, ws Workspace, tracker *Tracker) *Run {
	sources := make([]SourceItem, len(req.Sources))
	copy(sources, req.Sources)
	if tracker == nil {
		tracker = NewTracker(nil)
	}
	return &Run{
		ID:        id,
		Request:   req,
		Workspace: ws,
		StartedAt: time.Now(),
		Logger:    logging.NewNop(),
		Tracker:   tracker,
		Tools:     make(map[string]string),
		Sources:   sources,
	}
}

// SetTool records a resolved tool path.
func (r *Run) SetTool(name, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Tools[name] = path
}

// Tool returns the resolved path for name.
func (r *Run) Tool(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	path, ok := r.Tools[name]
	return path, ok
}

// LineSink returns the output sink for tool, or nil when none is attached.
func (r *Run) LineSink(tool string) process.LineSink {
	if r.Sink == nil {
		return nil
	}
	return r.Sink(tool)
}

// TotalDuration sums probed source durations.
func (r *Run) TotalDuration() float64 {
	total := 0.0
	for _, src := range r.Sources {
		if src.DurationSeconds > 0 {
			total += src.DurationSeconds
		}
	}
	return total
}
