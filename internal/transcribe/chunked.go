package transcribe

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mgpai22/whispersub/internal/audio"
)

// result of decoding one chunk, timestamps relative to the chunk
type chunkResult struct {
	Segments []Segment
	Language string
}

type chunkFunc func(ctx context.Context, chunk audio.ChunkInfo) (chunkResult, error)

// chunkedStream decodes one chunk at a time and hands out its segments with
// the chunk offset applied. Only the first chunk is decoded up front.
type chunkedStream struct {
	ctx      context.Context
	chunks   []audio.ChunkInfo
	decode   chunkFunc
	cleanup  func()
	info     Info
	next     int
	pending  []Segment
	finished bool
}

func newChunkedStream(
	ctx context.Context,
	chunks []audio.ChunkInfo,
	language string,
	decode chunkFunc,
	cleanup func(),
) (*chunkedStream, error) {
	s := &chunkedStream{
		ctx:     ctx,
		chunks:  chunks,
		decode:  decode,
		cleanup: cleanup,
		info:    Info{Language: language},
	}
	if len(chunks) > 0 {
		s.info.Duration = chunks[len(chunks)-1].EndTime
	}
	if err := s.load(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// decodes the next chunk into pending
func (s *chunkedStream) load() error {
	if s.next >= len(s.chunks) {
		s.finished = true
		return nil
	}
	chunk := s.chunks[s.next]
	s.next++

	res, err := s.decode(s.ctx, chunk)
	if err != nil {
		return fmt.Errorf("%w: chunk %d: %w", ErrStreaming, chunk.Index, err)
	}
	if s.info.Language == "" && res.Language != "" {
		s.info.Language = res.Language
	}

	for _, seg := range clean(res.Segments) {
		seg.Start += chunk.StartTime
		seg.End += chunk.StartTime
		s.pending = append(s.pending, seg)
	}
	return nil
}

func (s *chunkedStream) Info() Info { return s.info }

func (s *chunkedStream) Next() (Segment, error) {
	for len(s.pending) == 0 {
		if s.finished {
			return Segment{}, io.EOF
		}
		if err := s.load(); err != nil {
			s.finished = true
			return Segment{}, err
		}
	}
	seg := s.pending[0]
	s.pending = s.pending[1:]
	return seg, nil
}

func (s *chunkedStream) Close() error {
	s.finished = true
	s.pending = nil
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
	return nil
}

// prepareCloudAudio compresses the artifact for upload and splits it into
// sequential chunks. The returned cleanup removes everything it created.
func prepareCloudAudio(
	ctx context.Context,
	audioPath string,
	chunkLen time.Duration,
) ([]audio.ChunkInfo, func(), error) {
	workDir := filepath.Join(os.TempDir(), "whispersub_chunks_"+uuid.NewString())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(workDir) }

	compressed := filepath.Join(workDir, "audio.mp3")
	if err := audio.CompressAudio(ctx, audioPath, compressed, audio.DefaultCompressionOptions()); err != nil {
		cleanup()
		return nil, nil, err
	}

	chunks, err := audio.ChunkAudio(ctx, compressed, chunkLen, workDir)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return chunks, cleanup, nil
}
