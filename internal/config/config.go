package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Backend names a speech model implementation.
type Backend string

const (
	BackendWhisperCPP Backend = "whispercpp"
	BackendOpenAI     Backend = "openai"
	BackendGemini     Backend = "gemini"
)

// Config is the full on-disk configuration.
type Config struct {
	Backend      Backend  `toml:"backend"`
	Model        string   `toml:"model"`
	Language     string   `toml:"language"`
	Task         string   `toml:"task"`
	SkipLoudnorm bool     `toml:"skip_loudnorm"`
	Precision    []string `toml:"precision"`

	WhisperCPP WhisperCPP `toml:"whispercpp"`
	OpenAI     Cloud      `toml:"openai"`
	Gemini     Cloud      `toml:"gemini"`
	FFmpeg     FFmpeg     `toml:"ffmpeg"`
	Logging    Logging    `toml:"logging"`
}

// WhisperCPP configures the local whisper.cpp backend.
type WhisperCPP struct {
	Binary   string `toml:"binary"`
	ModelDir string `toml:"model_dir"`
	Threads  int    `toml:"threads"`
	Download bool   `toml:"download"`
}

// Cloud configures an API-backed speech backend.
type Cloud struct {
	APIKey       string `toml:"api_key"`
	Model        string `toml:"model"`
	ChunkMinutes int    `toml:"chunk_minutes"`
}

// FFmpeg overrides media toolchain discovery.
type FFmpeg struct {
	FFmpegPath  string `toml:"ffmpeg_path"`
	FFprobePath string `toml:"ffprobe_path"`
}

// Logging configures log level and the optional rotated log file.
type Logging struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// DefaultPath returns the per-user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config directory: %w", err)
	}
	return filepath.Join(dir, "whispersub", "config.toml"), nil
}

// Load reads the config at path (or the default path when empty), applies
// environment overrides, normalizes and validates it. A missing file yields
// defaults. The resolved path and whether it existed are returned.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolvePath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolved, exists, nil
}

// Marshal renders cfg as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// CreateSample writes the commented sample config to path.
func CreateSample(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func resolvePath(path string) (string, bool, error) {
	if path == "" {
		def, err := DefaultPath()
		if err != nil {
			return "", false, err
		}
		path = def
	}

	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}

	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path is a directory: %s", expanded)
	}
	return expanded, true, nil
}

func expandPath(p string) (string, error) {
	if p == "" {
		return p, nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimLeft(p[1:], `/\`))
	}
	abs, err := filepath.Abs(filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}
	return abs, nil
}
