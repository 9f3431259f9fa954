package model

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const (
	DefaultModelBaseURL = "https://huggingface.co/ggerganov/whisper.cpp/resolve/main"

	// "ggml" as written by whisper.cpp's converter
	ggmlMagic = 0x67676d6c

	lockRetry = 500 * time.Millisecond
)

// whisper.cpp quantizations, smallest first
var GGMLModes = []Precision{"q5_0", "q5_1", "q8_0", "f16"}

var ggmlAliases = map[Precision]Precision{
	"int8":         "q8_0",
	"int8_float16": "q8_0",
	"float16":      "f16",
	"float32":      "f16",
	"fp16":         "f16",
}

// ResolveGGML maps a compute mode onto a ggml quantization.
func ResolveGGML(p Precision) (Precision, error) {
	if alias, ok := ggmlAliases[p]; ok {
		p = alias
	}
	for _, m := range GGMLModes {
		if p == m {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q is not a whisper.cpp quantization", ErrUnsupportedPrecision, p)
}

// FileName returns the ggml file name published for tier and quant.
func FileName(tier Tier, quant Precision) string {
	name := string(tier)
	if tier == TierLarge {
		name = "large-v3"
	}
	if quant == "f16" {
		return "ggml-" + name + ".bin"
	}
	return fmt.Sprintf("ggml-%s-%s.bin", name, quant)
}

// Entry describes one model file.
type Entry struct {
	Tier      Tier
	Precision Precision
	File      string
	Path      string
	Present   bool
	Size      int64
}

// Catalog manages ggml model files in a local directory.
type Catalog struct {
	Dir      string
	BaseURL  string
	Client   *http.Client
	Download bool

	// Progress, when set, receives a writer that mirrors download bytes.
	Progress func(file string, total int64) io.Writer
}

func NewCatalog(dir string, download bool) *Catalog {
	return &Catalog{
		Dir:      dir,
		BaseURL:  DefaultModelBaseURL,
		Client:   &http.Client{Timeout: 2 * time.Hour},
		Download: download,
	}
}

// Entries lists every tier and quantization with local availability.
func (c *Catalog) Entries() []Entry {
	var out []Entry
	for _, tier := range Tiers {
		for _, quant := range GGMLModes {
			file := FileName(tier, quant)
			e := Entry{Tier: tier, Precision: quant, File: file, Path: filepath.Join(c.Dir, file)}
			if info, err := os.Stat(e.Path); err == nil && checkGGML(e.Path) == nil {
				e.Present = true
				e.Size = info.Size()
			}
			out = append(out, e)
		}
	}
	return out
}

// Ensure returns the path of a valid model file, downloading it when the
// catalog allows. A variant that is neither present nor downloadable is
// ErrUnsupportedPrecision.
func (c *Catalog) Ensure(ctx context.Context, tier Tier, quant Precision) (string, error) {
	file := FileName(tier, quant)
	path := filepath.Join(c.Dir, file)

	if err := checkGGML(path); err == nil {
		return path, nil
	} else if !errors.Is(err, os.ErrNotExist) && !c.Download {
		return "", err
	}

	if !c.Download {
		return "", fmt.Errorf("%w: %s not found in %s and downloads are disabled", ErrUnsupportedPrecision, file, c.Dir)
	}
	return c.fetch(ctx, file, path)
}

// Pull downloads a model file regardless of the Download setting.
func (c *Catalog) Pull(ctx context.Context, tier Tier, quant Precision) (string, error) {
	file := FileName(tier, quant)
	path := filepath.Join(c.Dir, file)
	if err := checkGGML(path); err == nil {
		return path, nil
	}
	return c.fetch(ctx, file, path)
}

// fetch downloads file under a cross-process lock so concurrent runs do
// not write the same model twice.
func (c *Catalog) fetch(ctx context.Context, file, path string) (string, error) {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create model directory: %w", err)
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return "", fmt.Errorf("lock %s: %w", file, err)
	}
	if !locked {
		return "", fmt.Errorf("lock %s: not acquired", file)
	}
	defer func() { _ = lock.Unlock() }()

	// another process may have finished while we waited
	if err := checkGGML(path); err == nil {
		return path, nil
	}

	if err := c.download(ctx, file, path); err != nil {
		return "", err
	}
	return path, nil
}

func (c *Catalog) download(ctx context.Context, file, path string) error {
	base := c.BaseURL
	if base == "" {
		base = DefaultModelBaseURL
	}
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/"+file, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "whispersub")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", file, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s is not published", ErrUnsupportedPrecision, file)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("download %s: unexpected HTTP status: %s", file, resp.Status)
	}

	tmp, err := os.CreateTemp(c.Dir, file+".*.part")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	tmpPath := tmp.Name()

	var dst io.Writer = tmp
	if c.Progress != nil {
		if w := c.Progress(file, resp.ContentLength); w != nil {
			dst = io.MultiWriter(tmp, w)
		}
	}

	_, copyErr := io.Copy(dst, resp.Body)
	closeErr := tmp.Close()
	if copyErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", file, copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", file, closeErr)
	}
	if err := checkGGML(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("downloaded %s: %w", file, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("move %s into place: %w", file, err)
	}
	return nil
}

// checkGGML verifies the file magic.
func checkGGML(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var magic uint32
	if err := binary.Read(f, binary.LittleEndian, &magic); err != nil {
		return fmt.Errorf("%s is not a ggml model: %w", filepath.Base(path), err)
	}
	if magic != ggmlMagic {
		return fmt.Errorf("%s is not a ggml model (magic %#x)", filepath.Base(path), magic)
	}
	return nil
}
