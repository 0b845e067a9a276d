package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/blt/pkg/api"
	"github.com/ssargent/blt/pkg/di"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the blt REST API server, building a tree from the resolved
config and serving it over HTTP until interrupted.

Example:
  blt serve --config ./blt.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		tree, cache, err := di.BuildTree(cfg)
		if err != nil {
			return fmt.Errorf("failed to build tree: %w", err)
		}

		serverConfig := api.ServerConfig{
			Bind:   cfg.Server.Bind,
			Port:   cfg.Server.Port,
			APIKey: cfg.Server.APIKey,
		}

		starter := container.GetServerFactory().CreateServerStarter()

		cmd.Printf("Starting blt REST API server on %s:%d\n", cfg.Server.Bind, cfg.Server.Port)
		return starter.StartServer(tree, serverConfig, cache.Registry())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
