// Package cancel holds the cooperative stop signal shared between the
// control surface and the pipeline worker.
package cancel

import "sync/atomic"

// Checker is the read side of a Flag.
type Checker interface {
	IsSet() bool
}

// Flag is a level-triggered stop request. The worker polls it at
// checkpoints; nothing in flight is interrupted.
type Flag struct {
	set atomic.Bool
}

// Signal sets the flag. Calling it more than once is a no-op.
func (f *Flag) Signal() {
	f.set.Store(true)
}

// IsSet reports whether a stop has been requested.
func (f *Flag) IsSet() bool {
	return f.set.Load()
}

// Reset clears the flag. Only call between runs.
func (f *Flag) Reset() {
	f.set.Store(false)
}
