package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mgpai22/whispersub/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the whispersub config file",
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Write a commented sample config",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipConfig: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			p, err := config.DefaultPath()
			if err != nil {
				return err
			}
			path = p
		}
		force, _ := cmd.Flags().GetBool("force")
		if err := config.CreateSample(path, force); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		shown.OpenAI.APIKey = maskKey(shown.OpenAI.APIKey)
		shown.Gemini.APIKey = maskKey(shown.Gemini.APIKey)
		data, err := shown.Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configShowCmd)

	configInitCmd.Flags().Bool("force", false, "Overwrite an existing config file")
}

// maskKey keeps the last four characters of a secret.
func maskKey(k string) string {
	if k == "" {
		return ""
	}
	if len(k) <= 4 {
		return "****"
	}
	return "****" + k[len(k)-4:]
}
