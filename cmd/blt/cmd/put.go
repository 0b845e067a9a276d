package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put <key> <value>",
	Short: "Insert or overwrite a key on a running server",
	Long: `Insert or overwrite a key on a running blt serve instance.

Example:
  blt put 42 hello`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		client := newAPIClient(cfg)
		if err := client.insert(key, []byte(args[1])); err != nil {
			return err
		}

		cmd.Printf("Stored key %d\n", key)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(putCmd)
}
