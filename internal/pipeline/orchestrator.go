package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/mgpai22/whispersub/internal/cancel"
	"github.com/mgpai22/whispersub/internal/events"
	"github.com/mgpai22/whispersub/internal/model"
	"github.com/mgpai22/whispersub/internal/progress"
	"github.com/mgpai22/whispersub/internal/subtitle"
	"github.com/mgpai22/whispersub/internal/transcribe"
	"github.com/mgpai22/whispersub/internal/video"
)

const previewRunes = 120

// Extractor produces the temporary audio artifact.
type Extractor interface {
	NewArtifact() *video.Artifact
	Extract(ctx context.Context, sink events.Sink, videoPath string, artifact *video.Artifact, skipLoudnorm bool) error
}

// Acquirer loads a model for a tier using a precision profile.
type Acquirer interface {
	Acquire(ctx context.Context, sink events.Sink, tier model.Tier, profile model.Profile) (*model.Handle, error)
}

// Request describes one run.
type Request struct {
	VideoPath    string
	Tier         model.Tier
	Language     string
	Task         transcribe.Task
	SkipLoudnorm bool
	Profile      model.Profile

	// defaults to subtitle.OutputPath(VideoPath)
	OutputPath string
}

// Result summarizes a finished run.
type Result struct {
	State State
	// empty unless a file was written
	OutputPath string
	Entries    int
	Language   string
	Duration   time.Duration
	Precision  model.Precision
}

// Orchestrator runs extraction, model load, streaming and persistence
// strictly in sequence on the calling goroutine.
type Orchestrator struct {
	Extractor Extractor
	Models    Acquirer
}

func NewOrchestrator(x Extractor, m Acquirer) *Orchestrator {
	return &Orchestrator{Extractor: x, Models: m}
}

// run carries the per-run state shared by the stages.
type run struct {
	sink    events.Sink
	machine *machine
	result  Result
}

func (r *run) status(stage State, msg string) {
	events.Status(r.sink, string(stage), msg)
}

func (r *run) fail(stage State, kind, err error) (Result, error) {
	perr := &Error{Stage: stage, Kind: kind, Err: err}
	events.Error(r.sink, string(stage), perr.Error())
	if tErr := r.machine.to(StateFailed); tErr != nil {
		return r.result, errors.Join(perr, tErr)
	}
	r.result.State = StateFailed
	return r.result, perr
}

func (r *run) cancelled(msg string) (Result, error) {
	r.status(r.machine.state, msg)
	if err := r.machine.to(StateCancelled); err != nil {
		return r.result, err
	}
	r.result.State = StateCancelled
	return r.result, nil
}

func (r *run) advance(next State) error {
	if err := r.machine.to(next); err != nil {
		return err
	}
	r.result.State = next
	return nil
}

// Run executes one pipeline run. The flag is polled at stage boundaries and
// before each segment is accepted; nothing in flight is interrupted. A
// cancelled run returns a nil error with State StateCancelled.
func (o *Orchestrator) Run(ctx context.Context, sink events.Sink, flag cancel.Checker, req Request) (Result, error) {
	if sink == nil {
		sink = events.Discard
	}
	if flag == nil {
		flag = &cancel.Flag{}
	}
	r := &run{sink: sink, machine: newMachine(sink), result: Result{State: StateIdle}}

	if strings.TrimSpace(req.VideoPath) == "" {
		return r.result, &Error{Stage: StateIdle, Kind: ErrInputMissing}
	}
	if _, err := model.ParseTier(string(req.Tier)); err != nil {
		return r.fail(StateIdle, ErrModelLoad, err)
	}
	outPath := req.OutputPath
	if outPath == "" {
		outPath = subtitle.OutputPath(req.VideoPath)
	}

	artifact := o.Extractor.NewArtifact()
	defer func() {
		if err := artifact.Remove(); err != nil {
			events.Warn(sink, "cleanup", fmt.Sprintf("failed to remove temp audio %s: %v", artifact.Path, err))
			return
		}
		events.Status(sink, "cleanup", "Temp audio removed")
	}()

	if flag.IsSet() {
		return r.cancelled("Cancelled before extraction")
	}
	if err := r.advance(StateExtractingAudio); err != nil {
		return r.result, err
	}
	r.status(StateExtractingAudio, "Extracting and (optionally) normalizing audio...")
	if err := o.Extractor.Extract(ctx, sink, req.VideoPath, artifact, req.SkipLoudnorm); err != nil {
		return r.fail(StateExtractingAudio, ErrExtraction, err)
	}

	if flag.IsSet() {
		return r.cancelled("Cancelled before transcription")
	}
	if err := r.advance(StateLoadingModel); err != nil {
		return r.result, err
	}
	r.status(StateLoadingModel, fmt.Sprintf("Loading model %s (compute modes: %s)",
		req.Tier, strings.Join(req.Profile.Strings(), ", ")))
	handle, err := o.Models.Acquire(ctx, sink, req.Tier, req.Profile)
	if err != nil {
		return r.fail(StateLoadingModel, ErrModelLoad, err)
	}
	defer handle.Close()
	r.result.Precision = handle.Precision

	if flag.IsSet() {
		return r.cancelled("Cancelled after model load")
	}
	if err := r.advance(StateStreaming); err != nil {
		return r.result, err
	}
	task := req.Task
	if task == "" {
		task = transcribe.TaskTranslate
	}
	r.status(StateStreaming, fmt.Sprintf("Transcribing (task=%s), streaming segments now", task))

	stream, err := transcribe.Start(ctx, sink, handle.Model, artifact.Path, req.Language, task)
	if err != nil {
		return r.fail(StateStreaming, ErrStreaming, err)
	}
	defer stream.Close()

	info := stream.Info()
	r.result.Language = info.Language
	r.result.Duration = info.Duration

	asm := subtitle.NewAssembler(flag)
	asm.SetLanguage(info.Language)
	tracker := &progress.Tracker{}

	stopped := false
	for {
		seg, err := stream.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			r.result.Entries = asm.Len()
			return r.fail(StateStreaming, ErrStreaming, err)
		}
		if flag.IsSet() {
			r.status(StateStreaming, "Cancellation noted, stopping transcription loop")
			stopped = true
			break
		}

		entry := asm.Accept(seg)
		events.Emit(sink, events.Event{
			Type:    events.TypeSegment,
			Level:   events.LevelInfo,
			Stage:   string(StateStreaming),
			Message: preview(entry),
			Start:   entry.StartTime.Seconds(),
			End:     entry.EndTime.Seconds(),
			Text:    entry.Text,
		})
		if pct, ok := tracker.Update(seg.End, info.Duration); ok {
			emitProgress(sink, pct)
		}
	}
	r.result.Entries = asm.Len()

	if !stopped && !flag.IsSet() && info.Duration > 0 {
		emitProgress(sink, tracker.Complete())
	}

	if err := r.advance(StatePersisting); err != nil {
		return r.result, err
	}
	written, err := asm.Persist(outPath)
	if err != nil {
		return r.fail(StatePersisting, ErrPersistence, err)
	}
	if written {
		r.result.OutputPath = outPath
		r.status(StatePersisting, "Subtitles saved to "+outPath)
	} else {
		r.status(StatePersisting, "No subtitles saved (empty or cancelled)")
	}

	if stopped || flag.IsSet() {
		return r.cancelled(fmt.Sprintf("Run cancelled after %d segments", asm.Len()))
	}
	if err := r.advance(StateCompleted); err != nil {
		return r.result, err
	}
	return r.result, nil
}

func emitProgress(sink events.Sink, pct float64) {
	events.Emit(sink, events.Event{
		Type:    events.TypeProgress,
		Level:   events.LevelInfo,
		Stage:   string(StateStreaming),
		Message: fmt.Sprintf("%.1f%%", pct),
		Percent: pct,
	})
}

// [12.00 --> 15.50] text, text cut to previewRunes
func preview(e subtitle.Entry) string {
	text := e.Text
	if runes := []rune(text); len(runes) > previewRunes {
		text = string(runes[:previewRunes])
	}
	return fmt.Sprintf("[%.2f --> %.2f] %s", e.StartTime.Seconds(), e.EndTime.Seconds(), text)
}
