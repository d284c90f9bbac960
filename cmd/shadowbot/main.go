package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shadowbot/internal/app"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "shadowbot",
	Short: "Chat bot with command dispatch, groups and a status API",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot and the status API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Run(configPath)
	},
}

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "config/config.yaml", "path to config file")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
