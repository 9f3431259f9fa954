package pipeline

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mgpai22/whispersub/internal/cancel"
	"github.com/mgpai22/whispersub/internal/events"
)

const eventBuffer = 1024

// Runner is the control surface: it starts at most one run at a time on a
// background goroutine and forwards cancel requests to it.
type Runner struct {
	orch *Orchestrator
	flag cancel.Flag

	mu     sync.Mutex
	active *Run
}

func NewRunner(o *Orchestrator) *Runner {
	return &Runner{orch: o}
}

// Run is a handle on one started pipeline run.
type Run struct {
	ID string

	events chan events.Event
	done   chan struct{}
	result Result
	err    error
}

// Events delivers the run's events in order and is closed when the run ends.
// It must be drained; the worker blocks once the buffer is full.
func (r *Run) Events() <-chan events.Event { return r.events }

// Done is closed after the run reached a terminal state.
func (r *Run) Done() <-chan struct{} { return r.done }

// Result is valid after Done is closed.
func (r *Run) Result() Result { return r.result }

// Err is valid after Done is closed.
func (r *Run) Err() error { return r.err }

// Wait blocks until the run ends.
func (r *Run) Wait() (Result, error) {
	<-r.done
	return r.result, r.err
}

// Start launches req in the background and returns immediately. It fails
// with ErrInputMissing when no video is set and ErrBusy while another run
// is active.
func (rn *Runner) Start(ctx context.Context, req Request) (*Run, error) {
	if strings.TrimSpace(req.VideoPath) == "" {
		return nil, &Error{Stage: StateIdle, Kind: ErrInputMissing}
	}

	rn.mu.Lock()
	defer rn.mu.Unlock()

	if rn.activeLocked() {
		return nil, &Error{Stage: StateIdle, Kind: ErrBusy}
	}

	rn.flag.Reset()
	run := &Run{
		ID:     uuid.NewString(),
		events: make(chan events.Event, eventBuffer),
		done:   make(chan struct{}),
	}
	rn.active = run

	go func() {
		defer close(run.done)
		defer close(run.events)

		sink := events.NewSequencer(run.ID, events.Func(func(e events.Event) {
			run.events <- e
		}))
		run.result, run.err = rn.orch.Run(ctx, sink, &rn.flag, req)
	}()

	return run, nil
}

// Cancel asks the active run to stop at its next checkpoint. It reports
// whether a run was active.
func (rn *Runner) Cancel() bool {
	rn.mu.Lock()
	defer rn.mu.Unlock()

	if !rn.activeLocked() {
		return false
	}
	rn.flag.Signal()
	return true
}

// Active reports whether a run is in progress.
func (rn *Runner) Active() bool {
	rn.mu.Lock()
	defer rn.mu.Unlock()
	return rn.activeLocked()
}

func (rn *Runner) activeLocked() bool {
	if rn.active == nil {
		return false
	}
	select {
	case <-rn.active.done:
		return false
	default:
		return true
	}
}
