package config

import (
	"strconv"
	"strings"
)

type lookupFunc func(key string) (string, bool)

// applyEnv overlays environment variables on top of file values.
func (c *Config) applyEnv(lookup lookupFunc) {
	if v, ok := nonEmpty(lookup, "WHISPERSUB_BACKEND"); ok {
		c.Backend = Backend(v)
	}
	if v, ok := nonEmpty(lookup, "WHISPERSUB_MODEL"); ok {
		c.Model = v
	}
	if v, ok := nonEmpty(lookup, "WHISPERSUB_LANGUAGE"); ok {
		c.Language = v
	}
	if v, ok := nonEmpty(lookup, "WHISPERSUB_MODEL_DIR"); ok {
		c.WhisperCPP.ModelDir = v
	}
	if v, ok := nonEmpty(lookup, "WHISPERSUB_WHISPER_BINARY"); ok {
		c.WhisperCPP.Binary = v
	}
	if v, ok := nonEmpty(lookup, "WHISPERSUB_THREADS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.WhisperCPP.Threads = n
		}
	}
	if v, ok := nonEmpty(lookup, "WHISPERSUB_FFMPEG_PATH"); ok {
		c.FFmpeg.FFmpegPath = v
	}
	if v, ok := nonEmpty(lookup, "WHISPERSUB_FFPROBE_PATH"); ok {
		c.FFmpeg.FFprobePath = v
	}
	if c.OpenAI.APIKey == "" {
		if v, ok := nonEmpty(lookup, "OPENAI_API_KEY"); ok {
			c.OpenAI.APIKey = v
		}
	}
	if c.Gemini.APIKey == "" {
		if v, ok := nonEmpty(lookup, "GEMINI_API_KEY"); ok {
			c.Gemini.APIKey = v
		}
	}
}

func nonEmpty(lookup lookupFunc, key string) (string, bool) {
	v, ok := lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
