package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/mgpai22/whispersub/internal/events"
	"github.com/mgpai22/whispersub/internal/transcribe"
)

const stage = "model"

var (
	// ErrModelLoad is returned when every mode in the profile failed.
	ErrModelLoad = errors.New("model load failed")

	// ErrUnsupportedPrecision marks a mode the backend cannot provide here.
	ErrUnsupportedPrecision = errors.New("unsupported compute mode")
)

// Loader loads one tier in one compute mode.
type Loader interface {
	Load(ctx context.Context, tier Tier, precision Precision) (transcribe.Model, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, tier Tier, precision Precision) (transcribe.Model, error)

func (f LoaderFunc) Load(ctx context.Context, tier Tier, precision Precision) (transcribe.Model, error) {
	return f(ctx, tier, precision)
}

// Handle is a loaded model bound to the mode that succeeded.
type Handle struct {
	Model     transcribe.Model
	Tier      Tier
	Precision Precision
}

func (h *Handle) Close() error {
	if h == nil || h.Model == nil {
		return nil
	}
	return h.Model.Close()
}

// Provider walks a precision profile until a mode loads.
type Provider struct {
	Loader Loader
}

func NewProvider(l Loader) *Provider {
	return &Provider{Loader: l}
}

// Acquire tries each mode of profile in order. Each failure is reported to
// sink along with the next mode; only exhausting the profile is an error.
// A loader error wrapping ErrInvalidTier stops the walk immediately.
func (p *Provider) Acquire(
	ctx context.Context,
	sink events.Sink,
	tier Tier,
	profile Profile,
) (*Handle, error) {
	if _, err := ParseTier(string(tier)); err != nil {
		return nil, err
	}
	if len(profile) == 0 {
		return nil, fmt.Errorf("%w: empty precision profile", ErrModelLoad)
	}

	var errs []error
	for i, mode := range profile {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		m, err := p.Loader.Load(ctx, tier, mode)
		if err == nil {
			events.Status(sink, stage, fmt.Sprintf("loaded model %s with compute mode %s", tier, mode))
			return &Handle{Model: m, Tier: tier, Precision: mode}, nil
		}
		if errors.Is(err, ErrInvalidTier) {
			return nil, err
		}

		errs = append(errs, fmt.Errorf("%s: %w", mode, err))
		if i+1 < len(profile) {
			events.Warn(sink, stage, fmt.Sprintf("compute mode %s failed: %v; falling back to %s", mode, err, profile[i+1]))
		} else {
			events.Warn(sink, stage, fmt.Sprintf("compute mode %s failed: %v", mode, err))
		}
	}

	return nil, fmt.Errorf("%w: %s model: %w", ErrModelLoad, tier, errors.Join(errs...))
}
