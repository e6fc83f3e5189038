package workflow

import (
	"context"

	"dvdmaker/internal/job"
	"dvdmaker/internal/logging"
)

const progressBuffer = 64

// Handle observes and controls one submitted job.
type Handle struct {
	ID string

	progress chan job.Progress
	hub      *logging.StreamHub
	cancel   context.CancelFunc
	done     chan struct{}

	result job.Result
	err    error
}

func newHandle(id string, cancel context.CancelFunc) *Handle {
	return &Handle{
		ID:       id,
		progress: make(chan job.Progress, progressBuffer),
		hub:      logging.NewStreamHub(2048),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Progress delivers snapshots in order. The channel is closed when the job
// ends. A slow reader loses the oldest buffered snapshots, never the newest.
func (h *Handle) Progress() <-chan job.Progress { return h.progress }

// Logs returns the job's append-only log stream.
func (h *Handle) Logs() *logging.StreamHub { return h.hub }

// Cancel requests cancellation. Running tools are killed and the job ends in
// the Cancelled state.
func (h *Handle) Cancel() { h.cancel() }

// Done is closed when the job has finished.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the job finishes and returns its result.
func (h *Handle) Wait() (job.Result, error) {
	<-h.done
	return h.result, h.err
}

// publish is only called from the tracker, which serializes emissions.
func (h *Handle) publish(p job.Progress) {
	for {
		select {
		case h.progress <- p:
			return
		default:
		}
		select {
		case <-h.progress:
		default:
		}
	}
}

func (h *Handle) finish(result job.Result, err error) {
	h.result = result
	h.err = err
	close(h.progress)
	h.cancel()
	close(h.done)
}
