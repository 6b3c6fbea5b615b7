package cli

import (
	"fmt"
	"os"

	"github.com/facevault/facevault/internal/config"
	"github.com/spf13/cobra"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Write the default config file",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("⚙️ FaceVault Configure")

		path, err := config.ConfigPath()
		if err != nil {
			fmt.Printf("Config path error: %v\n", err)
			os.Exit(1)
		}
		if _, err := os.Stat(path); err == nil {
			fmt.Println("Config already exists: " + path)
			return
		}

		if err := config.Save(config.DefaultConfig()); err != nil {
			fmt.Printf("Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Wrote " + path)
		fmt.Println("Edit it, or override values with FACEVAULT_* environment variables.")
	},
}
