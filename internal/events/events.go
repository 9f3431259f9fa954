package events

import (
	"sync"
	"time"
)

// Type classifies messages emitted during a pipeline run.
type Type string

const (
	TypeStatus   Type = "status"
	TypeState    Type = "state"
	TypeMetadata Type = "metadata"
	TypeSegment  Type = "segment"
	TypeProgress Type = "progress"
	TypeError    Type = "error"
)

// Level is the severity a consumer should log an event with.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Event is one ordered status/progress message produced by the worker.
type Event struct {
	Seq     int64     `json:"seq"`
	Time    time.Time `json:"time"`
	RunID   string    `json:"runId,omitempty"`
	Type    Type      `json:"type"`
	Level   Level     `json:"level"`
	Stage   string    `json:"stage,omitempty"`
	Message string    `json:"message"`

	// set on TypeProgress
	Percent float64 `json:"percent,omitempty"`

	// set on TypeSegment
	Start float64 `json:"start,omitempty"`
	End   float64 `json:"end,omitempty"`
	Text  string  `json:"text,omitempty"`
}

// Sink receives events from pipeline components. Implementations must be
// safe to call from the worker goroutine.
type Sink interface {
	Emit(Event)
}

// Func adapts a plain function to Sink.
type Func func(Event)

func (f Func) Emit(e Event) { f(e) }

// Discard drops every event.
var Discard Sink = Func(func(Event) {})

// Status emits an info-level status line.
func Status(s Sink, stage, msg string) {
	Emit(s, Event{Type: TypeStatus, Level: LevelInfo, Stage: stage, Message: msg})
}

// Warn emits a warn-level status line, used for locally recovered failures.
func Warn(s Sink, stage, msg string) {
	Emit(s, Event{Type: TypeStatus, Level: LevelWarn, Stage: stage, Message: msg})
}

// Error emits an error event.
func Error(s Sink, stage, msg string) {
	Emit(s, Event{Type: TypeError, Level: LevelError, Stage: stage, Message: msg})
}

// Emit forwards e to s. A nil sink drops it.
func Emit(s Sink, e Event) {
	if s == nil {
		return
	}
	s.Emit(e)
}

// Recorder keeps every event in memory. Used by tests and by callers that
// want a transcript of a run.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a snapshot of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Messages returns the messages of recorded events of the given type, or of
// every event when typ is empty.
func (r *Recorder) Messages(typ Type) []string {
	var out []string
	for _, e := range r.Events() {
		if typ == "" || e.Type == typ {
			out = append(out, e.Message)
		}
	}
	return out
}

// Sequencer stamps Seq, Time and RunID on events before forwarding them.
type Sequencer struct {
	mu    sync.Mutex
	next  int64
	runID string
	dst   Sink
	now   func() time.Time
}

func NewSequencer(runID string, dst Sink) *Sequencer {
	return &Sequencer{
		runID: runID,
		dst:   dst,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Sequencer) Emit(e Event) {
	s.mu.Lock()
	s.next++
	e.Seq = s.next
	if e.Time.IsZero() {
		e.Time = s.now()
	}
	if e.RunID == "" {
		e.RunID = s.runID
	}
	s.mu.Unlock()

	s.dst.Emit(e)
}
