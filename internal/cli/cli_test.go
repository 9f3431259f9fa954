package cli

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mgpai22/whispersub/internal/config"
	"github.com/mgpai22/whispersub/internal/events"
	"github.com/mgpai22/whispersub/internal/logging"
	"github.com/mgpai22/whispersub/internal/model"
	"github.com/mgpai22/whispersub/internal/transcribe"
)

func parseGenerate(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "generate"}
	addGenerateFlags(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	return cmd
}

func TestApplyGenerateFlags(t *testing.T) {
	cmd := parseGenerate(t,
		"--model", "Medium", "-l", "ta", "--precision", "q8_0,F16",
		"--no-download", "--threads", "2", "--skip-loudnorm",
	)
	c := config.Default()
	if err := applyGenerateFlags(cmd, &c); err != nil {
		t.Fatalf("applyGenerateFlags: %v", err)
	}
	if c.Model != "medium" || c.Language != "ta" || !c.SkipLoudnorm {
		t.Errorf("flags not applied: %+v", c)
	}
	if !reflect.DeepEqual(c.Precision, []string{"q8_0", "f16"}) {
		t.Errorf("precision = %v", c.Precision)
	}
	if c.WhisperCPP.Download || c.WhisperCPP.Threads != 2 {
		t.Errorf("whispercpp = %+v", c.WhisperCPP)
	}
}

func TestApplyGenerateFlagsUnsetKeepsConfig(t *testing.T) {
	cmd := parseGenerate(t)
	c := config.Default()
	c.Model = "base"
	c.SkipLoudnorm = true
	if err := applyGenerateFlags(cmd, &c); err != nil {
		t.Fatal(err)
	}
	if c.Model != "base" || !c.SkipLoudnorm || !c.WhisperCPP.Download {
		t.Errorf("unset flags changed config: %+v", c)
	}
}

func TestApplyGenerateFlagsBackendSwitch(t *testing.T) {
	cmd := parseGenerate(t, "--backend", "openai", "--api-key", "sk-test")
	c := config.Default()
	if err := applyGenerateFlags(cmd, &c); err != nil {
		t.Fatal(err)
	}
	if c.Backend != config.BackendOpenAI || c.OpenAI.APIKey != "sk-test" {
		t.Errorf("backend = %q key = %q", c.Backend, c.OpenAI.APIKey)
	}
	if !reflect.DeepEqual(c.Precision, []string{"default"}) {
		t.Errorf("precision should reset to the backend default, got %v", c.Precision)
	}
}

func TestApplyGenerateFlagsRejectsInvalid(t *testing.T) {
	cmd := parseGenerate(t, "--model", "huge")
	c := config.Default()
	if err := applyGenerateFlags(cmd, &c); err == nil || !strings.Contains(err.Error(), "invalid model") {
		t.Errorf("err = %v, want invalid model", err)
	}
}

func TestBuildRequest(t *testing.T) {
	c := config.Default()
	c.Model = "medium"
	c.Task = "transcribe"
	c.Precision = []string{"q8_0", "f16"}

	req, err := buildRequest(&c, "/videos/talk.mp4", "")
	if err != nil {
		t.Fatalf("buildRequest: %v", err)
	}
	if req.Tier != model.TierMedium || req.Task != transcribe.TaskTranscribe {
		t.Errorf("req = %+v", req)
	}
	if !reflect.DeepEqual(req.Profile, model.Profile{"q8_0", "f16"}) {
		t.Errorf("profile = %v", req.Profile)
	}

	c.Language = "not a language!"
	if _, err := buildRequest(&c, "/videos/talk.mp4", ""); !errors.Is(err, transcribe.ErrInvalidLanguage) {
		t.Errorf("err = %v, want ErrInvalidLanguage", err)
	}
}

func TestRendererLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newRenderer(&logging.Logger{SugaredLogger: zap.New(core).Sugar()}, nil)

	sink := r.sink()
	events.Status(sink, "extracting_audio", "Extracting and (optionally) normalizing audio...")
	events.Warn(sink, "extracting_audio", "loudnorm failed, falling back to simple extraction: exit 1")
	events.Error(sink, "streaming", "boom")
	events.Emit(sink, events.Event{Type: events.TypeState, Level: events.LevelInfo, Stage: "streaming", Message: "loading_model -> streaming"})
	events.Emit(sink, events.Event{Type: events.TypeProgress, Level: events.LevelInfo, Message: "4.2%", Percent: 4.17})
	events.Emit(sink, events.Event{Type: events.TypeSegment, Level: events.LevelInfo, Message: "[0.00 --> 5.00] hello", Start: 0, End: 5})

	got := logs.All()
	want := []struct {
		level zapcore.Level
		msg   string
	}{
		{zapcore.InfoLevel, "Extracting and (optionally) normalizing audio..."},
		{zapcore.WarnLevel, "loudnorm failed, falling back to simple extraction: exit 1"},
		{zapcore.ErrorLevel, "boom"},
		{zapcore.DebugLevel, "loading_model -> streaming"},
		{zapcore.InfoLevel, "Progress"},
		{zapcore.InfoLevel, "[0.00 --> 5.00] hello"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d log entries, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Level != w.level || got[i].Message != w.msg {
			t.Errorf("entry %d = %s %q, want %s %q", i, got[i].Level, got[i].Message, w.level, w.msg)
		}
	}
	if p := got[4].ContextMap()["percent"]; p != "4.2%" {
		t.Errorf("progress field = %v", p)
	}
	if end := got[5].ContextMap()["end"]; end != float64(5) {
		t.Errorf("segment end field = %v", end)
	}
}

func TestRenderModels(t *testing.T) {
	out := renderModels([]model.Entry{
		{Tier: model.TierSmall, Precision: "q5_1", File: "ggml-small-q5_1.bin", Present: true, Size: 190 << 20},
		{Tier: model.TierLarge, Precision: "f16", File: "ggml-large-v3.bin"},
	})
	for _, want := range []string{"ggml-small-q5_1.bin", "present", "190.0 MiB", "ggml-large-v3.bin", "missing"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestHumanBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{1536, "1.5 KiB"},
		{3 << 30, "3.0 GiB"},
	}
	for _, tt := range tests {
		if got := humanBytes(tt.n); got != tt.want {
			t.Errorf("humanBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestMaskKey(t *testing.T) {
	tests := map[string]string{
		"":            "",
		"abc":         "****",
		"sk-abcdef12": "****ef12",
	}
	for in, want := range tests {
		if got := maskKey(in); got != want {
			t.Errorf("maskKey(%q) = %q, want %q", in, got, want)
		}
	}
}
