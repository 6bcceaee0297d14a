// Package main implements the sitehost binary: the hosting server plus a
// small client for pushing sites to it.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// configPath is the optional YAML config file.
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sitehost",
	Short: "Host uploaded static and PHP sites",
	Long: `sitehost serves every folder under its sites root at /sites/<name>.
Sites are uploaded as a folder, a zip archive or a single file.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default $SITEHOST_CONFIG)")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(pushCmd)
	rootCmd.AddCommand(listCmd)
}
