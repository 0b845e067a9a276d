package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Delete a key on a running server",
	Long: `Delete a key from a running blt serve instance.

Example:
  blt delete 42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if err := newAPIClient(cfg).delete(key); err != nil {
			return err
		}

		cmd.Printf("Deleted key %d\n", key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
