package pipeline

import (
	"errors"
	"fmt"
)

// error kinds surfaced to the caller
var (
	ErrInputMissing = errors.New("no video selected")
	ErrBusy         = errors.New("a run is already active")
	ErrExtraction   = errors.New("audio extraction failed")
	ErrModelLoad    = errors.New("model load failed")
	ErrStreaming    = errors.New("transcription failed")
	ErrPersistence  = errors.New("saving subtitles failed")
)

// Error records the stage a run failed in. errors.Is matches both the kind
// and the underlying cause.
type Error struct {
	Stage State
	Kind  error
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Stage, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
