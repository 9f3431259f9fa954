package cli

import (
	"io"
	"math"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/mgpai22/whispersub/internal/events"
	"github.com/mgpai22/whispersub/internal/logging"
)

// bar resolution: tenths of a percent
const barSteps = 1000

// renderer turns run events into log lines and, on a terminal, a progress
// bar.
type renderer struct {
	log *logging.Logger
	bar *progressbar.ProgressBar
}

func newRenderer(log *logging.Logger, w io.Writer) *renderer {
	r := &renderer{log: log}
	if isTerminal(w) {
		r.bar = progressbar.NewOptions(barSteps,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("Transcribing"),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionClearOnFinish(),
		)
	}
	return r
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (r *renderer) handle(e events.Event) {
	if e.Type == events.TypeProgress {
		if r.bar != nil {
			_ = r.bar.Set(int(math.Round(e.Percent * barSteps / 100)))
			return
		}
		r.log.Infow("Progress", "percent", e.Message)
		return
	}

	if r.bar != nil {
		_ = r.bar.Clear()
	}

	fields := []any{"stage", e.Stage}
	if e.Type == events.TypeSegment {
		fields = append(fields, "start", e.Start, "end", e.End)
	}

	switch e.Level {
	case events.LevelWarn:
		r.log.Warnw(e.Message, fields...)
	case events.LevelError:
		r.log.Errorw(e.Message, fields...)
	default:
		if e.Type == events.TypeState {
			r.log.Debugw(e.Message, fields...)
			return
		}
		r.log.Infow(e.Message, fields...)
	}
}

func (r *renderer) finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
}

func (r *renderer) sink() events.Sink {
	return events.Func(r.handle)
}
