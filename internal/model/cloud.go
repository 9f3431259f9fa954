package model

import (
	"context"
	"fmt"
	"time"

	"github.com/mgpai22/whispersub/internal/config"
	"github.com/mgpai22/whispersub/internal/transcribe"
)

// hosted models come in one size; the tier is accepted and ignored
func requireDefault(p Precision) error {
	if p != PrecisionDefault {
		return fmt.Errorf("%w: hosted models only offer %q, got %q", ErrUnsupportedPrecision, PrecisionDefault, p)
	}
	return nil
}

type OpenAILoader struct {
	APIKey   string
	Model    string
	ChunkLen time.Duration
}

func (l *OpenAILoader) Load(_ context.Context, _ Tier, precision Precision) (transcribe.Model, error) {
	if err := requireDefault(precision); err != nil {
		return nil, err
	}
	return transcribe.NewOpenAIModel(l.APIKey, l.Model, l.ChunkLen)
}

type GeminiLoader struct {
	APIKey   string
	Model    string
	ChunkLen time.Duration
}

func (l *GeminiLoader) Load(ctx context.Context, _ Tier, precision Precision) (transcribe.Model, error) {
	if err := requireDefault(precision); err != nil {
		return nil, err
	}
	return transcribe.NewGeminiModel(ctx, l.APIKey, l.Model, l.ChunkLen)
}

// NewLoader builds the loader for the configured backend.
func NewLoader(cfg *config.Config) (Loader, error) {
	switch cfg.Backend {
	case config.BackendWhisperCPP:
		catalog := NewCatalog(cfg.WhisperCPP.ModelDir, cfg.WhisperCPP.Download)
		return NewWhisperCPPLoader(cfg.WhisperCPP.Binary, cfg.WhisperCPP.Threads, catalog), nil
	case config.BackendOpenAI:
		if cfg.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai backend needs an API key (openai.api_key or OPENAI_API_KEY)")
		}
		return &OpenAILoader{
			APIKey:   cfg.OpenAI.APIKey,
			Model:    cfg.OpenAI.Model,
			ChunkLen: time.Duration(cfg.OpenAI.ChunkMinutes) * time.Minute,
		}, nil
	case config.BackendGemini:
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("gemini backend needs an API key (gemini.api_key or GEMINI_API_KEY)")
		}
		return &GeminiLoader{
			APIKey:   cfg.Gemini.APIKey,
			Model:    cfg.Gemini.Model,
			ChunkLen: time.Duration(cfg.Gemini.ChunkMinutes) * time.Minute,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported backend: %s", cfg.Backend)
	}
}
