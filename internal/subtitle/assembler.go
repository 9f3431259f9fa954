package subtitle

import (
	"github.com/mgpai22/whispersub/internal/cancel"
	"github.com/mgpai22/whispersub/internal/transcribe"
)

// Assembler collects accepted segments into a subtitle document.
type Assembler struct {
	sub       Subtitle
	cancelled cancel.Checker
	writer    Writer
}

// NewAssembler returns an assembler that refuses to persist once cancelled
// reports set. cancelled may be nil.
func NewAssembler(cancelled cancel.Checker) *Assembler {
	return &Assembler{
		cancelled: cancelled,
		writer:    &SRTWriter{},
	}
}

// Accept appends one segment and returns its entry with the next index.
func (a *Assembler) Accept(seg transcribe.Segment) Entry {
	e := Entry{
		Index:     len(a.sub.Entries) + 1,
		StartTime: seg.Start,
		EndTime:   seg.End,
		Text:      seg.Text,
	}
	a.sub.Entries = append(a.sub.Entries, e)
	return e
}

func (a *Assembler) SetLanguage(lang string) { a.sub.Language = lang }

func (a *Assembler) Len() int { return len(a.sub.Entries) }

// Entries returns a copy of the accepted entries.
func (a *Assembler) Entries() []Entry {
	out := make([]Entry, len(a.sub.Entries))
	copy(out, a.sub.Entries)
	return out
}

// Persist writes the document to path. It does nothing, and reports
// written=false, when no entry was accepted or the run was cancelled.
func (a *Assembler) Persist(path string) (written bool, err error) {
	if len(a.sub.Entries) == 0 {
		return false, nil
	}
	if a.cancelled != nil && a.cancelled.IsSet() {
		return false, nil
	}
	if err := a.writer.Write(&a.sub, path); err != nil {
		return false, err
	}
	return true, nil
}
