package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/facevault/facevault/internal/config"
	"github.com/facevault/facevault/internal/faces"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("🏷️ FaceVault Version")
		fmt.Printf("Version: %s\n", version)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status",
	Run: func(cmd *cobra.Command, args []string) {
		printHeader("📊 FaceVault Status")
		fmt.Printf("Version: %s\n", version)

		configPath, _ := config.ConfigPath()
		if _, err := os.Stat(configPath); err == nil {
			fmt.Println("Config:  ✓ Found (" + configPath + ")")
		} else {
			fmt.Println("Config:  ✗ Not found (run 'facevault configure' first)")
		}

		cfg, err := config.Load()
		if err != nil {
			fmt.Printf("Config:  ? Unable to load: %v\n", err)
			return
		}

		fmt.Printf("Index:   %s (type=%d method=%d dims=%d)\n",
			cfg.Index.URL, cfg.Index.IndexType, cfg.Index.Method, cfg.Index.Dims)
		if cfg.Embedder.URL != "" {
			fmt.Println("Embedder: ✓ " + cfg.Embedder.URL)
		} else {
			fmt.Println("Embedder: ✗ Not configured (image endpoints disabled)")
		}
		if cfg.Events.Enabled {
			fmt.Printf("Events:  ✓ Kafka %s topic %s\n", cfg.Events.Brokers, cfg.Events.Topic)
		} else {
			fmt.Println("Events:  ✗ Disabled")
		}

		if _, err := os.Stat(cfg.Store.Path); err != nil {
			fmt.Println("Store:   ✗ No database yet (" + cfg.Store.Path + ")")
			return
		}
		store, err := faces.OpenSQLiteStore(cfg.Store.Path)
		if err != nil {
			fmt.Printf("Store:   ? Unable to open: %v\n", err)
			return
		}
		defer store.Close()
		if n, err := store.CountVectors(context.Background()); err == nil {
			fmt.Printf("Store:   ✓ %d vectors (%s)\n", n, cfg.Store.Path)
		}
	},
}
