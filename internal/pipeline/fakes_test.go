package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/mgpai22/whispersub/internal/events"
	"github.com/mgpai22/whispersub/internal/model"
	"github.com/mgpai22/whispersub/internal/subtitle"
	"github.com/mgpai22/whispersub/internal/transcribe"
	"github.com/mgpai22/whispersub/internal/video"
)

type fakeExtractor struct {
	dir      string
	err      error
	onRun    func()
	calls    int
	artifact *video.Artifact
}

func (f *fakeExtractor) NewArtifact() *video.Artifact {
	f.artifact = &video.Artifact{Path: filepath.Join(f.dir, "whispersub_audio_test.wav")}
	return f.artifact
}

func (f *fakeExtractor) Extract(_ context.Context, sink events.Sink, _ string, a *video.Artifact, _ bool) error {
	f.calls++
	if err := os.WriteFile(a.Path, []byte("RIFF"), 0o644); err != nil {
		return err
	}
	if f.onRun != nil {
		f.onRun()
	}
	return f.err
}

type fakeAcquirer struct {
	model *fakeModel
	err   error
	onRun func()
	calls int
}

func (f *fakeAcquirer) Acquire(_ context.Context, _ events.Sink, tier model.Tier, _ model.Profile) (*model.Handle, error) {
	f.calls++
	if f.onRun != nil {
		f.onRun()
	}
	if f.err != nil {
		return nil, f.err
	}
	return &model.Handle{Model: f.model, Tier: tier, Precision: "q8_0"}, nil
}

type fakeModel struct {
	stream *fakeStream
	err    error
	calls  int
	closed bool
}

func (m *fakeModel) Transcribe(context.Context, string, transcribe.Options) (transcribe.Stream, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.stream, nil
}

func (m *fakeModel) Name() string { return "fake" }

func (m *fakeModel) Close() error {
	m.closed = true
	return nil
}

type fakeStream struct {
	info transcribe.Info
	segs []transcribe.Segment
	// called before segment i is returned
	beforeNext func(i int)
	failAt     int
	failErr    error
	pos        int
	closed     bool
}

func (s *fakeStream) Info() transcribe.Info { return s.info }

func (s *fakeStream) Next() (transcribe.Segment, error) {
	i := s.pos
	if s.failErr != nil && i == s.failAt {
		return transcribe.Segment{}, s.failErr
	}
	if i >= len(s.segs) {
		return transcribe.Segment{}, io.EOF
	}
	if s.beforeNext != nil {
		s.beforeNext(i)
	}
	s.pos++
	return s.segs[i], nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}

func subtitleEntry(text string) subtitle.Entry {
	return subtitle.Entry{Index: 1, StartTime: 1500 * time.Millisecond, EndTime: 2250 * time.Millisecond, Text: text}
}
