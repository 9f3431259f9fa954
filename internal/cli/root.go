package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgpai22/whispersub/internal/config"
	"github.com/mgpai22/whispersub/internal/ffmpeg"
	"github.com/mgpai22/whispersub/internal/logging"
)

// ErrCancelled is returned when the user stopped a run.
var ErrCancelled = errors.New("cancelled")

// commands annotated with this key run without loading the config file
const skipConfig = "skip-config"

var (
	verbose    bool
	configPath string
	logger     *logging.Logger
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "whispersub",
	Short: "Generate English subtitles for videos with Whisper",
	Long: `whispersub extracts the audio track of a video, runs it through a Whisper
model and writes an English .srt file next to the video.

Models run locally through whisper.cpp or remotely through OpenAI or
Gemini. Segments are streamed while the model works and Ctrl+C stops the
run after the current segment.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipConfig] == "true" {
			logger = logging.NewLogger(verbose)
			return nil
		}
		return loadRuntime()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVar(&configPath, "config", "", "Config file (default is the per-user whispersub/config.toml)")
}

// loadRuntime resolves config, logger and ffmpeg overrides for a command.
func loadRuntime() error {
	c, resolved, exists, err := config.Load(configPath)
	if err != nil {
		logger = logging.NewLogger(verbose)
		return fmt.Errorf("load config: %w", err)
	}
	cfg = c

	logger, err = logging.New(logging.Options{
		Verbose:    verbose,
		Level:      c.Logging.Level,
		File:       c.Logging.File,
		MaxSizeMB:  c.Logging.MaxSizeMB,
		MaxBackups: c.Logging.MaxBackups,
		MaxAgeDays: c.Logging.MaxAgeDays,
	})
	if err != nil {
		logger = logging.NewLogger(verbose)
		return fmt.Errorf("init logging: %w", err)
	}

	ffmpeg.SetOverride(ffmpeg.Paths{
		FFmpeg:  c.FFmpeg.FFmpegPath,
		FFprobe: c.FFmpeg.FFprobePath,
	})

	logger.Debugw("Config loaded", "path", resolved, "exists", exists, "backend", c.Backend)
	return nil
}
