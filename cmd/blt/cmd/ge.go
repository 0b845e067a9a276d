package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

var geCmd = &cobra.Command{
	Use:   "ge <key>",
	Short: "Find the smallest key at or above a query key",
	Long: `Find the smallest stored key that is greater than or equal to the
query key, on a running blt serve instance.

Example:
  blt ge 42`,
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

		kv, err := newAPIClient(cfg).ge(key)
		if err != nil {
			return err
		}

		cmd.Printf("%d: %s\n", kv.Key, string(kv.Value))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(geCmd)
}
