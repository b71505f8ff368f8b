package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "gallery-editor",
	Short: "Photo gallery ordering editor",
	Long: `Gallery Editor serves drag-and-drop reordering sessions for photo
galleries. It loads a gallery from the gallery API, tracks the working order
and drag state per session, and commits the final order back.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().String("config", "", "Config file (JSON or YAML), overrides CONFIG_PATH")
	rootCmd.Version = version
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	if path, _ := rootCmd.PersistentFlags().GetString("config"); path != "" {
		os.Setenv("CONFIG_PATH", path)
	}
}
