package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"WHISPERSUB_BACKEND", "WHISPERSUB_MODEL", "WHISPERSUB_LANGUAGE",
		"WHISPERSUB_MODEL_DIR", "WHISPERSUB_WHISPER_BINARY", "WHISPERSUB_THREADS",
		"WHISPERSUB_FFMPEG_PATH", "WHISPERSUB_FFPROBE_PATH",
		"OPENAI_API_KEY", "GEMINI_API_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "absent.toml")

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Error("expected exists = false")
	}
	if resolved != path {
		t.Errorf("resolved = %q, want %q", resolved, path)
	}
	if cfg.Backend != BackendWhisperCPP {
		t.Errorf("backend = %q, want whispercpp", cfg.Backend)
	}
	if cfg.Model != "small" || cfg.Language != "auto" || cfg.Task != "translate" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Precision, []string{"q5_1", "q8_0", "f16"}) {
		t.Errorf("precision = %v", cfg.Precision)
	}
	if cfg.WhisperCPP.Threads < 1 || cfg.WhisperCPP.Threads > 6 {
		t.Errorf("threads = %d, want 1..6", cfg.WhisperCPP.Threads)
	}
}

func TestLoadParsesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
backend = "OpenAI"
model = "Medium"
language = "ta"
task = "transcribe"
skip_loudnorm = true

[openai]
api_key = "sk-test"
chunk_minutes = 5

[whispercpp]
threads = 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Error("expected exists = true")
	}
	if cfg.Backend != BackendOpenAI {
		t.Errorf("backend = %q, want openai", cfg.Backend)
	}
	if cfg.Model != "medium" {
		t.Errorf("model = %q, want medium", cfg.Model)
	}
	if cfg.Language != "ta" || cfg.Task != "transcribe" || !cfg.SkipLoudnorm {
		t.Errorf("unexpected values: %+v", cfg)
	}
	if cfg.OpenAI.APIKey != "sk-test" || cfg.OpenAI.ChunkMinutes != 5 {
		t.Errorf("openai = %+v", cfg.OpenAI)
	}
	if cfg.OpenAI.Model != DefaultOpenAIModel {
		t.Errorf("openai model = %q, want default", cfg.OpenAI.Model)
	}
	if !reflect.DeepEqual(cfg.Precision, []string{"default"}) {
		t.Errorf("precision = %v, want [default]", cfg.Precision)
	}
	if cfg.WhisperCPP.Threads != 3 {
		t.Errorf("threads = %d, want 3", cfg.WhisperCPP.Threads)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"backend", `backend = "azure"`, "invalid backend"},
		{"model", `model = "huge"`, "invalid model"},
		{"task", `task = "summarize"`, "invalid task"},
		{"level", "[logging]\nlevel = \"loud\"", "invalid logging.level"},
		{"syntax", `backend = `, "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"WHISPERSUB_BACKEND":   "gemini",
		"WHISPERSUB_MODEL":     "tiny",
		"WHISPERSUB_LANGUAGE":  "hi",
		"WHISPERSUB_THREADS":   "2",
		"WHISPERSUB_MODEL_DIR": "  ",
		"GEMINI_API_KEY":       "g-key",
		"OPENAI_API_KEY":       "o-key",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg := Default()
	cfg.OpenAI.APIKey = "from-file"
	dir := cfg.WhisperCPP.ModelDir
	cfg.applyEnv(lookup)

	if cfg.Backend != BackendGemini || cfg.Model != "tiny" || cfg.Language != "hi" {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.WhisperCPP.Threads != 2 {
		t.Errorf("threads = %d, want 2", cfg.WhisperCPP.Threads)
	}
	if cfg.WhisperCPP.ModelDir != dir {
		t.Errorf("blank env should not override model dir, got %q", cfg.WhisperCPP.ModelDir)
	}
	if cfg.Gemini.APIKey != "g-key" {
		t.Errorf("gemini key = %q, want g-key", cfg.Gemini.APIKey)
	}
	if cfg.OpenAI.APIKey != "from-file" {
		t.Errorf("file key should win over env, got %q", cfg.OpenAI.APIKey)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path, false); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if err := CreateSample(path, false); err == nil {
		t.Fatal("expected error when config exists")
	}

	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if cfg.Backend != BackendWhisperCPP || cfg.Model != "small" {
		t.Errorf("sample values = %+v", cfg)
	}
}
