package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "gardenclub",
	Short: "Storefront server for garden businesses publishing Google Sheets catalogs",
	Long: `gardenclub serves a storefront for local garden businesses: it ingests
published Google Sheets CSV catalogs, caches them in memory and SQLite, and
relays the Drive-hosted product images that browsers cannot embed directly.`,
	Version:      version,
	SilenceUsage: true,
}

func main() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(businessesCmd)
	rootCmd.AddCommand(resolveCmd)
	rootCmd.AddCommand(configCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
