package model

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/mgpai22/whispersub/internal/transcribe"
)

// WhisperCPPLoader binds a whisper.cpp binary to catalog model files.
type WhisperCPPLoader struct {
	Binary  string
	Threads int
	Catalog *Catalog

	lookPath func(string) (string, error)
}

func NewWhisperCPPLoader(binary string, threads int, catalog *Catalog) *WhisperCPPLoader {
	return &WhisperCPPLoader{
		Binary:   binary,
		Threads:  threads,
		Catalog:  catalog,
		lookPath: exec.LookPath,
	}
}

func (l *WhisperCPPLoader) Load(ctx context.Context, tier Tier, precision Precision) (transcribe.Model, error) {
	quant, err := ResolveGGML(precision)
	if err != nil {
		return nil, err
	}

	lookPath := l.lookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	bin, err := lookPath(l.Binary)
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp binary %q not found: %w", l.Binary, err)
	}

	path, err := l.Catalog.Ensure(ctx, tier, quant)
	if err != nil {
		return nil, err
	}
	return transcribe.NewWhisperCPPModel(bin, path, l.Threads), nil
}
