package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ssargent/blt/pkg/engineconfig"
)

// initCmd represents the init command.
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap a blt configuration file",
	Long: `Create a blt configuration file with a generated API key if one
doesn't already exist.

Example:
  blt init --data-dir ./data`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath
		if path == "" {
			path = engineconfig.GetDefaultConfigPath()
		}

		if engineconfig.ConfigExists(path) {
			cmd.Printf("Configuration already exists at %s\n", path)
			return nil
		}

		cfg, err := engineconfig.BootstrapConfig(path, dataDir)
		if err != nil {
			return err
		}

		cmd.Printf("Configuration created at %s\n", path)
		cmd.Printf("Data directory: %s\n", cfg.DataDir)
		cmd.Printf("API key: %s\n", cfg.Server.APIKey)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
