package config

import (
	"fmt"
	"strings"
)

var validTiers = map[string]bool{
	"tiny":   true,
	"base":   true,
	"small":  true,
	"medium": true,
	"large":  true,
}

// Normalize trims and lowercases enumerated fields, expands paths and fills
// backend-specific defaults.
func (c *Config) Normalize() error {
	c.Backend = Backend(strings.ToLower(strings.TrimSpace(string(c.Backend))))
	if c.Backend == "" {
		c.Backend = BackendWhisperCPP
	}
	c.Model = strings.ToLower(strings.TrimSpace(c.Model))
	if c.Model == "" {
		c.Model = DefaultModel
	}
	c.Language = strings.TrimSpace(c.Language)
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
	c.Task = strings.ToLower(strings.TrimSpace(c.Task))
	if c.Task == "" {
		c.Task = DefaultTask
	}

	precision := make([]string, 0, len(c.Precision))
	for _, p := range c.Precision {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			precision = append(precision, p)
		}
	}
	if len(precision) == 0 {
		precision = DefaultPrecision(c.Backend)
	}
	c.Precision = precision

	if c.WhisperCPP.Binary == "" {
		c.WhisperCPP.Binary = DefaultWhisperBinary
	}
	if c.WhisperCPP.ModelDir == "" {
		c.WhisperCPP.ModelDir = defaultModelDir()
	}
	dir, err := expandPath(c.WhisperCPP.ModelDir)
	if err != nil {
		return fmt.Errorf("whispercpp.model_dir: %w", err)
	}
	c.WhisperCPP.ModelDir = dir
	if c.WhisperCPP.Threads <= 0 {
		c.WhisperCPP.Threads = defaultThreads()
	}

	normalizeCloud(&c.OpenAI, DefaultOpenAIModel)
	normalizeCloud(&c.Gemini, DefaultGeminiModel)

	if c.Logging.File != "" {
		file, err := expandPath(c.Logging.File)
		if err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
		c.Logging.File = file
	}
	return nil
}

func normalizeCloud(c *Cloud, defModel string) {
	c.APIKey = strings.TrimSpace(c.APIKey)
	c.Model = strings.TrimSpace(c.Model)
	if c.Model == "" {
		c.Model = defModel
	}
	if c.ChunkMinutes <= 0 {
		c.ChunkMinutes = DefaultChunkMinutes
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendWhisperCPP, BackendOpenAI, BackendGemini:
	default:
		return fmt.Errorf("invalid backend %q: use whispercpp, openai or gemini", c.Backend)
	}
	if !validTiers[c.Model] {
		return fmt.Errorf("invalid model %q: use tiny, base, small, medium or large", c.Model)
	}
	switch c.Task {
	case "translate", "transcribe":
	default:
		return fmt.Errorf("invalid task %q: use translate or transcribe", c.Task)
	}
	if len(c.Precision) == 0 {
		return fmt.Errorf("precision must list at least one compute mode")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid logging.level %q", c.Logging.Level)
	}
	return nil
}

// APIKey returns the key configured for a cloud backend.
func (c *Config) APIKey(b Backend) string {
	switch b {
	case BackendOpenAI:
		return c.OpenAI.APIKey
	case BackendGemini:
		return c.Gemini.APIKey
	default:
		return ""
	}
}
