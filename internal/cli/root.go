// Package cli implements the facevault command line interface.
package cli

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// version can be overridden at build time via:
	// go build -ldflags "-X github.com/facevault/facevault/internal/cli.version=1.2.3"
	version = "0.4.0"
	logo    = "\n" +
		"  _____             __     __          _ _\n" +
		" |  ___|_ _  ___ ___\\ \\   / /_ _ _   _| | |_\n" +
		" | |_ / _` |/ __/ _ \\\\ \\ / / _` | | | | | __|\n" +
		" |  _| (_| | (_|  __/ \\ V / (_| | |_| | | |_\n" +
		" |_|  \\__,_|\\___\\___|  \\_/ \\__,_|\\__,_|_|\\__|\n"
)

var rootCmd = &cobra.Command{
	Use:   "facevault",
	Short: "FaceVault - face enrollment and retrieval service",
	Long:  color.CyanString(logo) + "\nEnroll people by face embedding, find them again by image.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(serveCmd)
}
