package cmd

import (
	"fmt"
	"os"

	"github.com/sitewave/sitewave/internal/config"
	"github.com/spf13/cobra"
)

var configPath string

var rootCommand = &cobra.Command{
	Use:   "sitewave",
	Short: "SiteWave website builder backend",
}

func init() {
	rootCommand.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to yaml config file")

	rootCommand.AddCommand(serveWebCommand)
	rootCommand.AddCommand(migrateCommand)
}

func Execute() {
	if err := rootCommand.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveConfig() *config.Config {
	cfg, err := config.New(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "unable to load config:", err)
		os.Exit(1)
	}

	return cfg
}
