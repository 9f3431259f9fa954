package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/mgpai22/whispersub/internal/config"
	"github.com/mgpai22/whispersub/internal/model"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List whisper.cpp models and their local availability",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := model.NewCatalog(cfg.WhisperCPP.ModelDir, cfg.WhisperCPP.Download)
		fmt.Fprintf(cmd.OutOrStdout(), "Model directory: %s\n", catalog.Dir)
		fmt.Fprintln(cmd.OutOrStdout(), renderModels(catalog.Entries()))
		return nil
	},
}

var modelsPullCmd = &cobra.Command{
	Use:   "pull [tier]",
	Short: "Download a whisper.cpp model",
	Long: `Download a ggml model for whisper.cpp into the model directory.

Examples:
  whispersub models pull small
  whispersub models pull medium --precision q8_0`,
	Args: cobra.ExactArgs(1),
	RunE: runModelsPull,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsPullCmd)

	modelsPullCmd.Flags().
		StringP("precision", "p", "", "ggml quantization (q5_0, q5_1, q8_0, f16); default is the first configured mode")
}

func runModelsPull(cmd *cobra.Command, args []string) error {
	tier, err := model.ParseTier(args[0])
	if err != nil {
		return err
	}

	mode, _ := cmd.Flags().GetString("precision")
	if mode == "" {
		mode = config.DefaultPrecision(config.BackendWhisperCPP)[0]
		if cfg.Backend == config.BackendWhisperCPP && len(cfg.Precision) > 0 {
			mode = cfg.Precision[0]
		}
	}
	quant, err := model.ResolveGGML(model.Precision(mode))
	if err != nil {
		return err
	}

	catalog := model.NewCatalog(cfg.WhisperCPP.ModelDir, true)
	catalog.Progress = downloadProgress

	logger.Infow("Pulling model", "tier", tier, "precision", quant, "dir", catalog.Dir)
	path, err := catalog.Pull(cmd.Context(), tier, quant)
	if err != nil {
		return fmt.Errorf("pull %s %s: %w", tier, quant, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Model ready: %s\n", path)
	return nil
}

// downloadProgress shows a byte progress bar on a terminal and a single log
// line otherwise.
func downloadProgress(file string, total int64) io.Writer {
	if !isTerminal(os.Stderr) {
		logger.Infow("Downloading model", "file", file, "bytes", total)
		return nil
	}
	return progressbar.DefaultBytes(total, "Downloading "+file)
}

func renderModels(entries []model.Entry) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Tier", "Precision", "File", "Status", "Size"})
	for _, e := range entries {
		status, size := "missing", ""
		if e.Present {
			status, size = "present", humanBytes(e.Size)
		}
		tw.AppendRow(table.Row{e.Tier, e.Precision, e.File, status, size})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
