package job

import (
	"math"
	"sync"
	"time"
)

// Progress is one snapshot emitted to observers.
type Progress struct {
	Stage   Stage
	Percent float64
	Message string
	Time    time.Time
}

// Reporter receives progress snapshots. It is called synchronously and must
// not block for long.
type Reporter func(Progress)

// Tracker converts stage-relative fractions into overall percentages and
// keeps them monotonic. It is safe for concurrent use.
type Tracker struct {
	mu   sync.Mutex
	last Progress
	emit Reporter
	now  func() time.Time
}

// NewTracker creates a tracker that forwards snapshots to emit.
func NewTracker(emit Reporter) *Tracker {
	return &Tracker{emit: emit, now: time.Now, last: Progress{Stage: StagePrepare}}
}

// Enter reports the start of a stage.
func (t *Tracker) Enter(stage Stage, message string) {
	t.Update(stage, 0, message)
}

// Update reports fraction (0..1) of stage completed.
func (t *Tracker) Update(stage Stage, fraction float64, message string) {
	if math.IsNaN(fraction) || fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	start, end := stage.Band()
	t.publish(stage, start+fraction*(end-start), message)
}

// Finish emits the terminal snapshot. Done jumps to 100; failure states keep
// the last percentage reached.
func (t *Tracker) Finish(stage Stage, message string) {
	percent := 0.0
	if stage == StageDone {
		percent = 100
	}
	t.publish(stage, percent, message)
}

// Last returns the most recent snapshot.
func (t *Tracker) Last() Progress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

func (t *Tracker) publish(stage Stage, percent float64, message string) {
	t.mu.Lock()
	if percent < t.last.Percent {
		percent = t.last.Percent
	}
	snapshot := Progress{Stage: stage, Percent: percent, Message: message, Time: t.now()}
	t.last = snapshot
	emit := t.emit
	if emit != nil {
		// emit runs under mu so observers see snapshots in publish order.
		emit(snapshot)
	}
	t.mu.Unlock()
}
