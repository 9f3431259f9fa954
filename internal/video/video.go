package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/mgpai22/whispersub/internal/audio"
	"github.com/mgpai22/whispersub/internal/events"
	ffmpegbin "github.com/mgpai22/whispersub/internal/ffmpeg"
)

const (
	stage = "extract"

	// EBU R128 style targets
	loudnormFilter = "loudnorm=I=-16:TP=-1.5:LRA=11"

	sampleRate = 16000
	channels   = 1
)

// ErrExtraction is returned when no strategy could produce the audio artifact.
var ErrExtraction = errors.New("audio extraction failed")

// RunFunc runs one ffmpeg invocation and returns its stderr.
type RunFunc func(ctx context.Context, input, output string, kwargs ffmpeg.KwArgs) (string, error)

// Artifact is the temporary audio file owned by one pipeline run.
type Artifact struct {
	Path string
}

// Remove deletes the file. Missing files are not an error.
func (a *Artifact) Remove() error {
	if a == nil || a.Path == "" {
		return nil
	}
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// one way of producing the artifact
type strategy struct {
	name     string
	label    string
	announce string
	filter   string
}

// Extractor converts a video's audio track into 16 kHz mono PCM wav.
type Extractor struct {
	TempDir string
	Run     RunFunc
}

func NewExtractor() *Extractor {
	return &Extractor{
		TempDir: os.TempDir(),
		Run:     runFFmpeg,
	}
}

// NewArtifact picks a process-unique path for the extracted audio. Nothing is
// created on disk until Extract runs.
func (e *Extractor) NewArtifact() *Artifact {
	dir := e.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	name := fmt.Sprintf("whispersub_audio_%d_%s.wav", os.Getpid(), uuid.NewString())
	return &Artifact{Path: filepath.Join(dir, name)}
}

func (e *Extractor) strategies(out string, skipLoudnorm bool) []strategy {
	plain := strategy{
		name:     "plain",
		label:    "simple extraction",
		announce: "Skipping loudnorm (fast extraction) -> " + out,
	}
	if skipLoudnorm {
		return []strategy{plain}
	}
	plain.announce = ""
	return []strategy{
		{
			name:     "loudnorm",
			label:    "loudnorm",
			announce: "Running ffmpeg loudnorm -> " + out,
			filter:   loudnormFilter,
		},
		plain,
	}
}

// Extract writes the audio of videoPath to artifact. With skipLoudnorm false
// a loudness-normalized extraction is tried first and a failure falls back to
// a plain extraction; the fallback is reported to sink as a warning.
func (e *Extractor) Extract(
	ctx context.Context,
	sink events.Sink,
	videoPath string,
	artifact *Artifact,
	skipLoudnorm bool,
) error {
	if artifact == nil || artifact.Path == "" {
		return fmt.Errorf("%w: no output path", ErrExtraction)
	}
	if _, err := os.Stat(videoPath); err != nil {
		return fmt.Errorf("%w: video file not found: %s", ErrExtraction, videoPath)
	}
	if err := os.MkdirAll(filepath.Dir(artifact.Path), 0755); err != nil {
		return fmt.Errorf("%w: failed to create output directory: %w", ErrExtraction, err)
	}

	run := e.Run
	if run == nil {
		run = runFFmpeg
	}

	plan := e.strategies(artifact.Path, skipLoudnorm)
	var lastErr error
	for i, s := range plan {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		if s.announce != "" {
			events.Status(sink, stage, s.announce)
		}

		stderr, err := run(ctx, videoPath, artifact.Path, kwargsFor(s))
		if err == nil {
			return nil
		}

		lastErr = fmt.Errorf("%s: %w", s.name, err)
		if tail := audio.Tail(stderr, 400); tail != "" {
			lastErr = fmt.Errorf("%w: %s", lastErr, tail)
		}
		if i+1 < len(plan) {
			events.Warn(sink, stage, fmt.Sprintf("%s failed, falling back to %s: %v",
				s.label, plan[i+1].label, err))
		}
	}

	_ = artifact.Remove()
	return fmt.Errorf("%w: %w", ErrExtraction, lastErr)
}

func kwargsFor(s strategy) ffmpeg.KwArgs {
	kwargs := ffmpeg.KwArgs{
		"vn":     "", // No video
		"ac":     channels,
		"ar":     sampleRate,
		"acodec": "pcm_s16le",
	}
	if s.filter != "" {
		kwargs["af"] = s.filter
	}
	return kwargs
}

func runFFmpeg(ctx context.Context, input, output string, kwargs ffmpeg.KwArgs) (string, error) {
	ffmpegPath, err := ffmpegbin.FFmpegPath()
	if err != nil {
		return "", err
	}

	var stderr bytes.Buffer
	err = ffmpeg.Input(input).
		Output(output, kwargs).
		OverWriteOutput().
		SetFfmpegPath(ffmpegPath).
		WithErrorOutput(&stderr).
		Run()
	return stderr.String(), err
}
