package ffmpeg

import (
	"archive/zip"
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	return &Resolver{
		Getenv:   func(string) string { return "" },
		LookPath: func(string) (string, error) { return "", errors.New("not found") },
		CacheDir: t.TempDir(),
		Client:   http.DefaultClient,
		GOOS:     "linux",
		GOARCH:   "amd64",
	}
}

func TestResolvePrefersOverride(t *testing.T) {
	r := newTestResolver(t)
	r.Override = Paths{FFmpeg: "/opt/ffmpeg", FFprobe: "/opt/ffprobe"}

	got, err := r.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != r.Override {
		t.Errorf("got %+v, want %+v", got, r.Override)
	}
}

func TestResolveMixesEnvAndPath(t *testing.T) {
	r := newTestResolver(t)
	r.Getenv = func(k string) string {
		if k == envFFmpeg {
			return "/env/ffmpeg"
		}
		return ""
	}
	r.LookPath = func(name string) (string, error) {
		return "/usr/bin/" + name, nil
	}

	got, err := r.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.FFmpeg != "/env/ffmpeg" {
		t.Errorf("ffmpeg = %q, want env value", got.FFmpeg)
	}
	if got.FFprobe != "/usr/bin/ffprobe" {
		t.Errorf("ffprobe = %q, want PATH value", got.FFprobe)
	}
}

func TestResolveUsesCache(t *testing.T) {
	r := newTestResolver(t)
	dir := filepath.Join(r.CacheDir, releaseVersion, "linux", "amd64")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"ffmpeg", "ffprobe"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("bin"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	r.BaseURL = "http://127.0.0.1:1"

	got, err := r.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.FFmpeg != filepath.Join(dir, "ffmpeg") {
		t.Errorf("ffmpeg = %q", got.FFmpeg)
	}
}

func TestResolveDownloadsBundle(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"bundle/ffmpeg", "bundle/ffprobe", "bundle/README"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = w.Write([]byte("#!/bin/sh\n"))
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}

	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		requested = req.URL.Path
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	r := newTestResolver(t)
	r.BaseURL = srv.URL

	got, err := r.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !strings.HasSuffix(requested, "ffmpeg-6.1-linux-64.zip") {
		t.Errorf("requested %q", requested)
	}
	for _, p := range []string{got.FFmpeg, got.FFprobe} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if info.Mode().Perm()&0o100 == 0 {
			t.Errorf("%s not executable", p)
		}
	}
}

func TestResolveDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	r := newTestResolver(t)
	r.BaseURL = srv.URL

	if _, err := r.Resolve(); err == nil {
		t.Fatal("expected error on 404")
	}
}

func TestAssetForPlatform(t *testing.T) {
	if _, err := assetForPlatform("plan9", "386"); err == nil {
		t.Error("expected error for unsupported platform")
	}
	got, err := assetForPlatform("darwin", "amd64")
	if err != nil || got != "ffmpeg-6.1-macos-64.zip" {
		t.Errorf("got %q, %v", got, err)
	}
}
