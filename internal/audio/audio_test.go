package audio

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPlanChunks(t *testing.T) {
	chunks := planChunks(25*time.Minute, 10*time.Minute, "/tmp/work", "audio", ".mp3")
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	wantBounds := [][2]time.Duration{
		{0, 10 * time.Minute},
		{10 * time.Minute, 20 * time.Minute},
		{20 * time.Minute, 25 * time.Minute},
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d: index = %d", i, c.Index)
		}
		if c.StartTime != wantBounds[i][0] || c.EndTime != wantBounds[i][1] {
			t.Errorf("chunk %d: bounds = %v-%v, want %v-%v",
				i, c.StartTime, c.EndTime, wantBounds[i][0], wantBounds[i][1])
		}
	}
	if chunks[2].Path != filepath.Join("/tmp/work", "audio_chunk_002.mp3") {
		t.Errorf("path = %q", chunks[2].Path)
	}
}

func TestPlanChunksShorterThanChunk(t *testing.T) {
	chunks := planChunks(90*time.Second, 10*time.Minute, "d", "a", ".mp3")
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].EndTime != 90*time.Second {
		t.Errorf("end = %v, want 90s", chunks[0].EndTime)
	}
}

func TestParseProbeDuration(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    time.Duration
		wantErr bool
	}{
		{"seconds", `{"format":{"duration":"120.000000"}}`, 120 * time.Second, false},
		{"fraction", `{"format":{"duration":"1.5"}}`, 1500 * time.Millisecond, false},
		{"unknown", `{"format":{"duration":"N/A"}}`, 0, false},
		{"missing", `{"format":{}}`, 0, false},
		{"garbage", `{"format":{"duration":"abc"}}`, 0, true},
		{"invalid json", `{`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProbeDuration([]byte(tt.json))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMediaTypeDetection(t *testing.T) {
	tests := []struct {
		path         string
		video, audio bool
	}{
		{"movie.MP4", true, false},
		{"clip.mkv", true, false},
		{"talk.wav", false, true},
		{"song.Mp3", false, true},
		{"notes.txt", false, false},
		{"noext", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := IsVideoFile(tt.path); got != tt.video {
				t.Errorf("IsVideoFile = %v, want %v", got, tt.video)
			}
			if got := IsAudioFile(tt.path); got != tt.audio {
				t.Errorf("IsAudioFile = %v, want %v", got, tt.audio)
			}
			if got := IsMediaFile(tt.path); got != (tt.video || tt.audio) {
				t.Errorf("IsMediaFile = %v", got)
			}
		})
	}
}

func TestTail(t *testing.T) {
	if got := Tail("  short  ", 10); got != "short" {
		t.Errorf("got %q", got)
	}
	long := strings.Repeat("a", 20) + "END"
	got := Tail(long, 3)
	if got != "...END" {
		t.Errorf("got %q, want ...END", got)
	}
}
