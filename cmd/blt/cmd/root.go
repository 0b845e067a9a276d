/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/blt/pkg/di"
	"github.com/ssargent/blt/pkg/engineconfig"
)

var container *di.Container

// SetContainer injects the dependency injection container used by
// subcommands that start the HTTP server.
func SetContainer(c *di.Container) {
	container = c
}

var (
	dataDir    string
	configPath string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "blt",
	Short: "blt - an embeddable copy-on-write B+tree store",
	Long: `blt is an embeddable key-value store backed by a disk-oriented,
copy-on-write B+tree with a simulated buffer cache.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to
// happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", "./data", "Data directory for the store")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: OS-specific location)")
}

// loadConfig resolves configPath (falling back to the default
// location), bootstrapping a new config there if none exists yet.
func loadConfig() (*engineconfig.Config, error) {
	path := configPath
	if path == "" {
		path = engineconfig.GetDefaultConfigPath()
	}

	if engineconfig.ConfigExists(path) {
		cfg, err := engineconfig.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if dataDir != "" {
			cfg.DataDir = dataDir
		}
		return cfg, nil
	}

	cfg, err := engineconfig.BootstrapConfig(path, dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap config: %w", err)
	}
	return cfg, nil
}
