package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/mgpai22/whispersub/internal/events"
)

// beam width used for every decode
const BeamSize = 5

// AutoLanguage asks the backend to detect the spoken language.
const AutoLanguage = "auto"

var (
	// ErrStreaming is returned when decoding fails after the stream started.
	ErrStreaming = errors.New("transcription stream failed")

	ErrInvalidLanguage = errors.New("invalid language code")
	ErrInvalidTask     = errors.New("invalid task")
)

// what the model should produce
type Task string

const (
	// English text regardless of the spoken language
	TaskTranslate Task = "translate"
	// text in the spoken language
	TaskTranscribe Task = "transcribe"
)

func ParseTask(s string) (Task, error) {
	switch t := Task(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TaskTranslate, nil
	case TaskTranslate, TaskTranscribe:
		return t, nil
	default:
		return "", fmt.Errorf("%w %q: use translate or transcribe", ErrInvalidTask, s)
	}
}

// one recognized utterance
type Segment struct {
	Start time.Duration
	End   time.Duration
	Text  string
}

// stream metadata, known before the first segment
type Info struct {
	// zero when the backend cannot tell
	Duration time.Duration
	Language string
}

// decoding parameters
type Options struct {
	// empty means detect
	Language string
	Task     Task
	BeamSize int
}

// Model is a loaded speech model.
type Model interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) (Stream, error)
	Name() string
	Close() error
}

// Stream yields segments in emission order. Next returns io.EOF after the
// last segment. A stream cannot be restarted.
type Stream interface {
	Info() Info
	Next() (Segment, error)
	Close() error
}

// NormalizeLanguage maps "" and "auto" to "" (detect) and canonicalizes
// anything else to its base language code.
func NormalizeLanguage(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" || strings.EqualFold(code, AutoLanguage) {
		return "", nil
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("%w %q: %v", ErrInvalidLanguage, code, err)
	}
	base, _ := tag.Base()
	return base.String(), nil
}

// DescribeLanguage renders a code as "ta (Tamil)". Unknown values are
// returned unchanged.
func DescribeLanguage(code string) string {
	if code == "" {
		return "unknown"
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	name := display.English.Languages().Name(tag)
	if name == "" || strings.EqualFold(name, code) {
		return code
	}
	return fmt.Sprintf("%s (%s)", code, name)
}

// Start begins decoding audioPath with m and reports the stream metadata to
// sink before any segment is consumed.
func Start(
	ctx context.Context,
	sink events.Sink,
	m Model,
	audioPath string,
	lang string,
	task Task,
) (Stream, error) {
	code, err := NormalizeLanguage(lang)
	if err != nil {
		return nil, err
	}
	if task == "" {
		task = TaskTranslate
	}

	stream, err := m.Transcribe(ctx, audioPath, Options{
		Language: code,
		Task:     task,
		BeamSize: BeamSize,
	})
	if err != nil {
		return nil, err
	}

	info := stream.Info()
	events.Emit(sink, events.Event{
		Type:    events.TypeMetadata,
		Level:   events.LevelInfo,
		Stage:   "stream",
		Message: describeInfo(info),
	})
	return stream, nil
}

func describeInfo(info Info) string {
	dur := "unknown"
	if info.Duration > 0 {
		dur = fmt.Sprintf("%.1fs", info.Duration.Seconds())
	}
	return fmt.Sprintf("Audio duration: %s, detected language: %s", dur, DescribeLanguage(info.Language))
}

// trims text and drops empty segments
func clean(segs []Segment) []Segment {
	out := segs[:0]
	for _, s := range segs {
		s.Text = strings.TrimSpace(s.Text)
		if s.Text == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}
