package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Find the value for a key on a running server",
	Long: `Find the value for an exact key on a running blt serve instance.

Example:
  blt get 42`,
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

		value, err := newAPIClient(cfg).find(key)
		if err != nil {
			return err
		}

		cmd.Printf("%s\n", string(value))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(getCmd)
}
