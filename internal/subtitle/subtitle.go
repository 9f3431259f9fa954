package subtitle

import (
	"path/filepath"
	"strings"
	"time"
)

// file name suffix downstream tools look for
const OutputSuffix = "_english_subtitles.srt"

// represents single subtitle entry
type Entry struct {
	Index     int
	StartTime time.Duration
	EndTime   time.Duration
	Text      string
}

// represents complete subtitle track
type Subtitle struct {
	Entries  []Entry
	Language string
}

// interface for writing subtitles to files
type Writer interface {
	Write(subtitle *Subtitle, path string) error
}

// OutputPath places the subtitle file next to the video:
// /videos/talk.mp4 -> /videos/talk_english_subtitles.srt
func OutputPath(videoPath string) string {
	dir := filepath.Dir(videoPath)
	base := filepath.Base(videoPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, base+OutputSuffix)
}
