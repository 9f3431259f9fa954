package transcribe

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/mgpai22/whispersub/internal/audio"
)

var (
	// [00:00:05.000 --> 00:00:12.480]   text
	resultLine = regexp.MustCompile(`^\[(\d+):(\d{2}):(\d{2})\.(\d{3}) --> (\d+):(\d{2}):(\d{2})\.(\d{3})\]\s*(.*)$`)
	detectLine = regexp.MustCompile(`auto-detected language: ([a-z]{2,3})`)
)

type commandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// WhisperCPPModel drives a whisper.cpp command line binary with a local ggml
// model file.
type WhisperCPPModel struct {
	Binary    string
	ModelPath string
	Threads   int

	// duration of the input, audio.GetDuration by default
	Probe   func(ctx context.Context, path string) (time.Duration, error)
	command commandFunc
}

func NewWhisperCPPModel(binary, modelPath string, threads int) *WhisperCPPModel {
	return &WhisperCPPModel{
		Binary:    binary,
		ModelPath: modelPath,
		Threads:   threads,
		Probe:     audio.GetDuration,
		command:   exec.CommandContext,
	}
}

func (m *WhisperCPPModel) Name() string {
	return "whisper.cpp " + filepath.Base(m.ModelPath)
}

func (m *WhisperCPPModel) Close() error { return nil }

func (m *WhisperCPPModel) baseArgs(audioPath string) []string {
	args := []string{"-m", m.ModelPath, "-f", audioPath}
	if m.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(m.Threads))
	}
	return args
}

func (m *WhisperCPPModel) transcribeArgs(audioPath, lang string, opts Options) []string {
	beam := opts.BeamSize
	if beam <= 0 {
		beam = BeamSize
	}
	args := append(m.baseArgs(audioPath), "-np", "-bs", strconv.Itoa(beam), "-l", lang)
	if opts.Task == TaskTranslate {
		args = append(args, "-tr")
	}
	return args
}

// detectLanguage runs whisper.cpp in detect-only mode and parses its log.
func (m *WhisperCPPModel) detectLanguage(ctx context.Context, audioPath string) (string, error) {
	args := append(m.baseArgs(audioPath), "-l", "auto", "-dl")
	cmd := m.cmd(ctx, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("language detection failed: %w: %s", err, audio.Tail(out.String(), 400))
	}
	match := detectLine.FindStringSubmatch(out.String())
	if match == nil {
		return "", fmt.Errorf("language detection produced no result")
	}
	return match[1], nil
}

func (m *WhisperCPPModel) cmd(ctx context.Context, args ...string) *exec.Cmd {
	command := m.command
	if command == nil {
		command = exec.CommandContext
	}
	return command(ctx, m.Binary, args...)
}

func (m *WhisperCPPModel) Transcribe(ctx context.Context, audioPath string, opts Options) (Stream, error) {
	if _, err := os.Stat(audioPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", audioPath)
	}

	var duration time.Duration
	if m.Probe != nil {
		// unknown duration only disables progress
		if d, err := m.Probe(ctx, audioPath); err == nil {
			duration = d
		}
	}

	lang := opts.Language
	if lang == "" {
		detected, err := m.detectLanguage(ctx, audioPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStreaming, err)
		}
		lang = detected
	}

	cmd := m.cmd(ctx, m.transcribeArgs(audioPath, lang, opts)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStreaming, err)
	}
	s := &cliStream{
		cmd:     cmd,
		scanner: bufio.NewScanner(stdout),
		info:    Info{Duration: duration, Language: lang},
	}
	cmd.Stderr = &s.stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start %s: %w", ErrStreaming, m.Binary, err)
	}
	return s, nil
}

// cliStream reads result lines from a running whisper.cpp process as they
// are printed.
type cliStream struct {
	cmd     *exec.Cmd
	scanner *bufio.Scanner
	stderr  bytes.Buffer
	info    Info

	waitOnce sync.Once
	waitErr  error
	done     bool
}

func (s *cliStream) Info() Info { return s.info }

func (s *cliStream) Next() (Segment, error) {
	if s.done {
		return Segment{}, io.EOF
	}
	for s.scanner.Scan() {
		seg, ok := parseResultLine(s.scanner.Text())
		if !ok {
			continue
		}
		return seg, nil
	}

	s.done = true
	scanErr := s.scanner.Err()
	if err := s.wait(); err != nil {
		return Segment{}, fmt.Errorf("%w: whisper.cpp exited: %w: %s", ErrStreaming, err, audio.Tail(s.stderr.String(), 400))
	}
	if scanErr != nil {
		return Segment{}, fmt.Errorf("%w: reading output: %w", ErrStreaming, scanErr)
	}
	return Segment{}, io.EOF
}

func (s *cliStream) wait() error {
	s.waitOnce.Do(func() {
		s.waitErr = s.cmd.Wait()
	})
	return s.waitErr
}

// Close stops the process if output was not read to the end.
func (s *cliStream) Close() error {
	if !s.done && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	s.done = true
	err := s.wait()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// killed or failed, already reported through Next
		return nil
	}
	return err
}

func parseResultLine(line string) (Segment, bool) {
	m := resultLine.FindStringSubmatch(line)
	if m == nil {
		return Segment{}, false
	}
	seg := Segment{
		Start: clockDuration(m[1], m[2], m[3], m[4]),
		End:   clockDuration(m[5], m[6], m[7], m[8]),
	}
	segs := clean([]Segment{{Start: seg.Start, End: seg.End, Text: m[9]}})
	if len(segs) == 0 {
		return Segment{}, false
	}
	return segs[0], true
}

func clockDuration(h, m, s, ms string) time.Duration {
	hh, _ := strconv.Atoi(h)
	mm, _ := strconv.Atoi(m)
	ss, _ := strconv.Atoi(s)
	mss, _ := strconv.Atoi(ms)
	return time.Duration(hh)*time.Hour +
		time.Duration(mm)*time.Minute +
		time.Duration(ss)*time.Second +
		time.Duration(mss)*time.Millisecond
}
