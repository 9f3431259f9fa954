package pipeline

import (
	"fmt"

	"github.com/mgpai22/whispersub/internal/events"
)

// State is the stage a run is in.
type State string

const (
	StateIdle            State = "idle"
	StateExtractingAudio State = "extracting_audio"
	StateLoadingModel    State = "loading_model"
	StateStreaming       State = "streaming"
	StatePersisting      State = "persisting"
	StateCompleted       State = "completed"
	StateCancelled       State = "cancelled"
	StateFailed          State = "failed"
)

// Terminal reports whether no further transition is possible in the run.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCancelled || s == StateFailed
}

// isValidTransition enforces the allowed run state machine edges.
func isValidTransition(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateExtractingAudio || to == StateCancelled || to == StateFailed
	case StateExtractingAudio:
		return to == StateLoadingModel || to == StateCancelled || to == StateFailed
	case StateLoadingModel:
		return to == StateStreaming || to == StateCancelled || to == StateFailed
	case StateStreaming:
		return to == StatePersisting || to == StateCancelled || to == StateFailed
	case StatePersisting:
		return to == StateCompleted || to == StateCancelled || to == StateFailed
	default:
		return false
	}
}

// machine tracks one run's state and reports every transition.
type machine struct {
	state State
	sink  events.Sink
}

func newMachine(sink events.Sink) *machine {
	return &machine{state: StateIdle, sink: sink}
}

func (m *machine) to(next State) error {
	if !isValidTransition(m.state, next) {
		return fmt.Errorf("invalid transition: %s -> %s", m.state, next)
	}
	prev := m.state
	m.state = next
	events.Emit(m.sink, events.Event{
		Type:    events.TypeState,
		Level:   events.LevelInfo,
		Stage:   string(next),
		Message: fmt.Sprintf("%s -> %s", prev, next),
	})
	return nil
}
