package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mgpai22/whispersub/internal/audio"
	"github.com/mgpai22/whispersub/internal/config"
	"github.com/mgpai22/whispersub/internal/model"
	"github.com/mgpai22/whispersub/internal/pipeline"
	"github.com/mgpai22/whispersub/internal/transcribe"
	"github.com/mgpai22/whispersub/internal/video"
)

var generateCmd = &cobra.Command{
	Use:   "generate [video_file]",
	Short: "Generate English subtitles for a video",
	Long: `Generate an .srt subtitle file for the specified video.

Audio is extracted to a temporary 16 kHz mono wav (loudness normalized unless
--skip-loudnorm is set), a Whisper model is loaded with the first compute mode
that works, and segments are written to <video>_english_subtitles.srt next to
the video.

Press Ctrl+C once to stop after the current segment (no file is written),
twice to abort immediately.

Examples:
  whispersub generate talk.mp4
  whispersub generate talk.mp4 --model medium --language ta
  whispersub generate talk.mp4 --precision q8_0,f16 --skip-loudnorm
  whispersub generate talk.mp4 --backend openai --task transcribe`,
	Args: cobra.ExactArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)
	addGenerateFlags(generateCmd)
}

func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().
		StringP("model", "m", "", "Model size tier (tiny, base, small, medium, large)")
	cmd.Flags().
		StringP("language", "l", "", "Source language code or 'auto' to detect it")
	cmd.Flags().
		String("task", "", "translate (to English) or transcribe")
	cmd.Flags().
		Bool("skip-loudnorm", false, "Skip loudness normalization (faster, slightly lower accuracy)")
	cmd.Flags().
		StringSlice("precision", nil, "Compute modes to try in order (e.g. q5_1,q8_0,f16)")
	cmd.Flags().
		StringP("backend", "b", "", "Speech backend (whispercpp, openai, gemini)")
	cmd.Flags().
		String("model-dir", "", "Directory holding whisper.cpp ggml models")
	cmd.Flags().
		Int("threads", 0, "whisper.cpp worker threads")
	cmd.Flags().
		Bool("no-download", false, "Do not download missing whisper.cpp models")
	cmd.Flags().
		StringP("api-key", "k", "", "API key for the openai or gemini backend")
	cmd.Flags().
		StringP("output", "o", "", "Output file path (default <video>_english_subtitles.srt)")
}

// applyGenerateFlags overlays explicitly set flags on cfg and revalidates it.
func applyGenerateFlags(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("backend") {
		v, _ := flags.GetString("backend")
		c.Backend = config.Backend(v)
		if !flags.Changed("precision") {
			// the file's modes belong to the previous backend
			c.Precision = nil
		}
	}
	if flags.Changed("model") {
		c.Model, _ = flags.GetString("model")
	}
	if flags.Changed("language") {
		c.Language, _ = flags.GetString("language")
	}
	if flags.Changed("task") {
		c.Task, _ = flags.GetString("task")
	}
	if flags.Changed("skip-loudnorm") {
		c.SkipLoudnorm, _ = flags.GetBool("skip-loudnorm")
	}
	if flags.Changed("precision") {
		c.Precision, _ = flags.GetStringSlice("precision")
	}
	if flags.Changed("model-dir") {
		c.WhisperCPP.ModelDir, _ = flags.GetString("model-dir")
	}
	if flags.Changed("threads") {
		c.WhisperCPP.Threads, _ = flags.GetInt("threads")
	}
	if flags.Changed("no-download") {
		noDownload, _ := flags.GetBool("no-download")
		c.WhisperCPP.Download = !noDownload
	}
	if flags.Changed("api-key") {
		key, _ := flags.GetString("api-key")
		switch c.Backend {
		case config.BackendOpenAI:
			c.OpenAI.APIKey = key
		case config.BackendGemini:
			c.Gemini.APIKey = key
		}
	}

	if err := c.Normalize(); err != nil {
		return err
	}
	return c.Validate()
}

// buildRequest maps the effective config onto a pipeline request.
func buildRequest(c *config.Config, videoPath, outputPath string) (pipeline.Request, error) {
	tier, err := model.ParseTier(c.Model)
	if err != nil {
		return pipeline.Request{}, err
	}
	task, err := transcribe.ParseTask(c.Task)
	if err != nil {
		return pipeline.Request{}, err
	}
	if _, err := transcribe.NormalizeLanguage(c.Language); err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.Request{
		VideoPath:    videoPath,
		Tier:         tier,
		Language:     c.Language,
		Task:         task,
		SkipLoudnorm: c.SkipLoudnorm,
		Profile:      model.ParseProfile(c.Precision),
		OutputPath:   outputPath,
	}, nil
}

func runGenerate(cmd *cobra.Command, args []string) error {
	videoPath := args[0]

	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", videoPath)
	}
	if !audio.IsMediaFile(videoPath) {
		return fmt.Errorf("unsupported file type: %s (expected a video file)", filepath.Ext(videoPath))
	}

	if err := applyGenerateFlags(cmd, cfg); err != nil {
		return err
	}
	outputPath, _ := cmd.Flags().GetString("output")
	req, err := buildRequest(cfg, videoPath, outputPath)
	if err != nil {
		return err
	}

	out := newRenderer(logger, os.Stderr)

	loader, err := model.NewLoader(cfg)
	if err != nil {
		return err
	}
	if wl, ok := loader.(*model.WhisperCPPLoader); ok {
		wl.Catalog.Progress = downloadProgress
	}

	runner := pipeline.NewRunner(pipeline.NewOrchestrator(video.NewExtractor(), model.NewProvider(loader)))

	logger.Infow("Starting subtitle generation",
		"input", videoPath,
		"backend", cfg.Backend,
		"model", req.Tier,
		"language", req.Language,
		"task", req.Task,
		"precision", req.Profile.Strings(),
	)

	ctx, abort := context.WithCancel(context.Background())
	defer abort()

	run, err := runner.Start(ctx, req)
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go watchSignals(sigCh, run.Done(), runner, abort)

	for e := range run.Events() {
		out.handle(e)
	}
	out.finish()

	res, err := run.Wait()
	if err != nil {
		return err
	}

	switch res.State {
	case pipeline.StateCancelled:
		fmt.Printf("Cancelled after %d segments; no subtitles written\n", res.Entries)
		return ErrCancelled
	case pipeline.StateCompleted:
		if res.OutputPath == "" {
			fmt.Println("No speech detected; no subtitles written")
			return nil
		}
		absOutput, _ := filepath.Abs(res.OutputPath)
		fmt.Printf("Subtitles generated successfully: %s\n", absOutput)
		fmt.Printf("  Entries: %d\n", res.Entries)
		if res.Duration > 0 {
			fmt.Printf("  Duration: %s\n", res.Duration.String())
		}
		fmt.Printf("  Language: %s\n", transcribe.DescribeLanguage(res.Language))
		fmt.Printf("  Compute mode: %s\n", res.Precision)
		return nil
	default:
		return errors.New("run ended in state " + string(res.State))
	}
}

// watchSignals turns the first interrupt into a cooperative cancel and a
// second one into a hard abort of in-flight work.
func watchSignals(sigCh <-chan os.Signal, done <-chan struct{}, runner *pipeline.Runner, abort context.CancelFunc) {
	requested := false
	for {
		select {
		case <-done:
			return
		case <-sigCh:
			if requested {
				logger.Warnw("Aborting")
				abort()
				return
			}
			requested = true
			if runner.Cancel() {
				logger.Infow("Cancellation requested, stopping after current segment...")
			}
		}
	}
}
