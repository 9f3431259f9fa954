package ffmpeg

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

const (
	releaseVersion = "6.1"
	releaseBaseURL = "https://github.com/ffbinaries/ffbinaries-prebuilt/releases/download"

	envFFmpeg  = "WHISPERSUB_FFMPEG_PATH"
	envFFprobe = "WHISPERSUB_FFPROBE_PATH"
)

// Paths holds resolved ffmpeg and ffprobe executables.
type Paths struct {
	FFmpeg  string
	FFprobe string
}

func (p Paths) complete() bool {
	return p.FFmpeg != "" && p.FFprobe != ""
}

var (
	overrideMu sync.Mutex
	override   Paths

	ensureOnce  sync.Once
	ensurePaths Paths
	ensureErr   error
)

// SetOverride pins binary locations ahead of the first Ensure call.
// Empty fields fall through to env, PATH and the download cache.
func SetOverride(p Paths) {
	overrideMu.Lock()
	defer overrideMu.Unlock()
	override = p
}

// Ensure resolves the binaries once per process.
func Ensure() (Paths, error) {
	ensureOnce.Do(func() {
		overrideMu.Lock()
		r := NewResolver()
		r.Override = override
		overrideMu.Unlock()

		ensurePaths, ensureErr = r.Resolve()
	})
	return ensurePaths, ensureErr
}

func FFmpegPath() (string, error) {
	paths, err := Ensure()
	if err != nil {
		return "", err
	}
	return paths.FFmpeg, nil
}

func FFprobePath() (string, error) {
	paths, err := Ensure()
	if err != nil {
		return "", err
	}
	return paths.FFprobe, nil
}

// Resolver finds ffmpeg/ffprobe. Lookup order: Override, environment,
// PATH, the per-user cache, then a download of a static build.
type Resolver struct {
	Override Paths

	Getenv   func(string) string
	LookPath func(string) (string, error)
	CacheDir string
	BaseURL  string
	Client   *http.Client
	GOOS     string
	GOARCH   string
}

func NewResolver() *Resolver {
	cacheDir, err := os.UserCacheDir()
	if err != nil || cacheDir == "" {
		cacheDir = os.TempDir()
	}
	return &Resolver{
		Getenv:   os.Getenv,
		LookPath: exec.LookPath,
		CacheDir: filepath.Join(cacheDir, "whispersub", "ffmpeg"),
		BaseURL:  releaseBaseURL,
		Client:   &http.Client{Timeout: 5 * time.Minute},
		GOOS:     runtime.GOOS,
		GOARCH:   runtime.GOARCH,
	}
}

func (r *Resolver) Resolve() (Paths, error) {
	paths := r.Override
	if paths.FFmpeg == "" {
		paths.FFmpeg = r.Getenv(envFFmpeg)
	}
	if paths.FFprobe == "" {
		paths.FFprobe = r.Getenv(envFFprobe)
	}
	if paths.complete() {
		return paths, nil
	}

	if paths.FFmpeg == "" {
		if found, err := r.LookPath("ffmpeg"); err == nil {
			paths.FFmpeg = found
		}
	}
	if paths.FFprobe == "" {
		if found, err := r.LookPath("ffprobe"); err == nil {
			paths.FFprobe = found
		}
	}
	if paths.complete() {
		return paths, nil
	}

	asset, err := assetForPlatform(r.GOOS, r.GOARCH)
	if err != nil {
		return Paths{}, err
	}

	installDir := filepath.Join(r.CacheDir, releaseVersion, r.GOOS, r.GOARCH)
	suffix := executableSuffix(r.GOOS)
	cached := Paths{
		FFmpeg:  filepath.Join(installDir, "ffmpeg"+suffix),
		FFprobe: filepath.Join(installDir, "ffprobe"+suffix),
	}
	if fileExists(cached.FFmpeg) && fileExists(cached.FFprobe) {
		return cached, nil
	}

	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create ffmpeg cache dir: %w", err)
	}
	if err := r.download(asset, installDir, suffix); err != nil {
		return Paths{}, err
	}
	if !fileExists(cached.FFmpeg) || !fileExists(cached.FFprobe) {
		return Paths{}, errors.New("ffmpeg binaries not found after extraction")
	}

	if r.GOOS != "windows" {
		for _, p := range []string{cached.FFmpeg, cached.FFprobe} {
			if err := os.Chmod(p, 0o755); err != nil {
				return Paths{}, fmt.Errorf("chmod %s: %w", filepath.Base(p), err)
			}
		}
	}
	return cached, nil
}

func assetForPlatform(goos, goarch string) (string, error) {
	var platform string
	switch {
	case goos == "linux" && goarch == "amd64":
		platform = "linux-64"
	case goos == "linux" && goarch == "arm64":
		platform = "linux-arm-64"
	case goos == "darwin" && goarch == "amd64":
		platform = "macos-64"
	case goos == "windows" && goarch == "amd64":
		platform = "win-64"
	default:
		return "", fmt.Errorf("ffmpeg not found and no bundled build for %s/%s: install ffmpeg or set %s", goos, goarch, envFFmpeg)
	}
	return fmt.Sprintf("ffmpeg-%s-%s.zip", releaseVersion, platform), nil
}

func (r *Resolver) download(asset, installDir, suffix string) error {
	url := fmt.Sprintf("%s/v%s/%s", strings.TrimRight(r.BaseURL, "/"), releaseVersion, asset)
	resp, err := r.Client.Get(url)
	if err != nil {
		return fmt.Errorf("download ffmpeg bundle: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download ffmpeg bundle: unexpected status %s", resp.Status)
	}

	tmp, err := os.CreateTemp("", "whispersub-ffmpeg-*.zip")
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}
	archivePath := tmp.Name()
	defer func() { _ = os.Remove(archivePath) }()

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close archive: %w", err)
	}

	if err := extractArchive(archivePath, installDir, suffix); err != nil {
		return fmt.Errorf("extract %s: %w", asset, err)
	}
	return nil
}

// extractArchive copies the ffmpeg and ffprobe entries out of a zip,
// ignoring directory layout inside the archive.
func extractArchive(archivePath, installDir, suffix string) error {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("open ffmpeg archive: %w", err)
	}
	defer func() { _ = zr.Close() }()

	found := map[string]bool{}
	for _, file := range zr.File {
		name := strings.TrimSuffix(strings.ToLower(filepath.Base(file.Name)), ".exe")
		if name != "ffmpeg" && name != "ffprobe" {
			continue
		}
		if err := extractZipFile(file, filepath.Join(installDir, name+suffix)); err != nil {
			return err
		}
		found[name] = true
	}

	if !found["ffmpeg"] || !found["ffprobe"] {
		return errors.New("ffmpeg archive missing required binaries")
	}
	return nil
}

func extractZipFile(file *zip.File, dest string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", file.Name, err)
	}
	defer func() { _ = src.Close() }()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(dest), err)
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, src); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(dest), err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir() && info.Size() > 0
}

func executableSuffix(goos string) string {
	if goos == "windows" {
		return ".exe"
	}
	return ""
}
