package cmd

import (
	"github.com/spf13/cobra"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Checkpoint the tree on a running server",
	Long: `Flush the WAL (if any) and checkpoint the tree to a new root on a
running blt serve instance.

Example:
  blt checkpoint`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := newAPIClient(cfg).checkpoint(); err != nil {
			return err
		}

		cmd.Println("Checkpoint complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkpointCmd)
}
