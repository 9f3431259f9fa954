package config

import (
	"os"
	"path/filepath"
	"runtime"
)

const (
	DefaultModel    = "small"
	DefaultLanguage = "auto"
	DefaultTask     = "translate"

	DefaultWhisperBinary = "whisper-cli"
	DefaultOpenAIModel   = "whisper-1"
	DefaultGeminiModel   = "gemini-2.5-flash"
	DefaultChunkMinutes  = 10

	maxDefaultThreads = 6
)

// whisper.cpp ships quantized ggml variants; smaller first.
var defaultWhisperPrecision = []string{"q5_1", "q8_0", "f16"}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Backend:  BackendWhisperCPP,
		Model:    DefaultModel,
		Language: DefaultLanguage,
		Task:     DefaultTask,
		WhisperCPP: WhisperCPP{
			Binary:   DefaultWhisperBinary,
			ModelDir: defaultModelDir(),
			Threads:  defaultThreads(),
			Download: true,
		},
		OpenAI: Cloud{
			Model:        DefaultOpenAIModel,
			ChunkMinutes: DefaultChunkMinutes,
		},
		Gemini: Cloud{
			Model:        DefaultGeminiModel,
			ChunkMinutes: DefaultChunkMinutes,
		},
		Logging: Logging{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// DefaultPrecision returns the compute-mode fallback order for a backend.
func DefaultPrecision(b Backend) []string {
	switch b {
	case BackendWhisperCPP:
		out := make([]string, len(defaultWhisperPrecision))
		copy(out, defaultWhisperPrecision)
		return out
	default:
		return []string{"default"}
	}
}

func defaultThreads() int {
	n := runtime.NumCPU()
	if n > maxDefaultThreads {
		return maxDefaultThreads
	}
	if n < 1 {
		return 1
	}
	return n
}

func defaultModelDir() string {
	dir, err := os.UserCacheDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "whispersub", "models")
}
