package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configPath is the config file or directory shared by every command
var configPath string

var rootCmd = &cobra.Command{
	Use:   "threadpilot",
	Short: "Threadpilot is a conversational bot that plans and runs AI tasks",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", ".", "Path to config file or directory")
}
