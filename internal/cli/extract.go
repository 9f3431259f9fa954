package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mgpai22/whispersub/internal/video"
)

var extractCmd = &cobra.Command{
	Use:   "extract [video_file]",
	Short: "Extract the audio a run would transcribe",
	Long: `Extract the audio track of a video into a 16 kHz mono PCM wav file, the
same artifact generate feeds to the model. Loudness normalization runs first
and falls back to a plain extraction if ffmpeg rejects the filter.

Examples:
  whispersub extract talk.mp4
  whispersub extract talk.mp4 -o talk.wav --skip-loudnorm`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().
		StringP("output", "o", "", "Output wav path (default <video>.wav)")
	extractCmd.Flags().
		Bool("skip-loudnorm", false, "Skip loudness normalization")
}

func runExtract(cmd *cobra.Command, args []string) error {
	videoPath := args[0]
	if _, err := os.Stat(videoPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", videoPath)
	}

	outputPath, _ := cmd.Flags().GetString("output")
	if outputPath == "" {
		outputPath = strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + ".wav"
	}
	skip, _ := cmd.Flags().GetBool("skip-loudnorm")
	if !cmd.Flags().Changed("skip-loudnorm") {
		skip = cfg.SkipLoudnorm
	}

	logger.Infow("Extracting audio",
		"video", videoPath,
		"output", outputPath,
		"loudnorm", !skip,
	)

	out := newRenderer(logger, nil)
	if err := video.NewExtractor().Extract(cmd.Context(), out.sink(), videoPath, &video.Artifact{Path: outputPath}, skip); err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Audio extracted successfully: %s\n", absOutput)
	return nil
}
