package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

var rangeMax int

var rangeCmd = &cobra.Command{
	Use:   "range <low> <high>",
	Short: "Query a key range on a running server",
	Long: `Return key-value pairs with low <= key <= high from a running
blt serve instance.

Example:
  blt range 10 99 --max 50`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		low, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return err
		}
		high, err := strconv.ParseUint(args[1], 10, 64)
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		results, err := newAPIClient(cfg).rangeQuery(low, high, rangeMax)
		if err != nil {
			return err
		}

		for _, kv := range results {
			cmd.Printf("%d: %s\n", kv.Key, string(kv.Value))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rangeCmd)
	rangeCmd.Flags().IntVar(&rangeMax, "max", 1000, "Maximum number of results")
}
