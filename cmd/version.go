package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	rootCmd.Long = fmt.Sprintf(`Threadpilot %s

Classifies chat messages into task plans, orders the tasks by priority and
dependencies, and runs them against OpenAI, Gemini and Anthropic models.

Define models and the bot in HCL configuration files, then:
  threadpilot verify -c <path>        Validate your configuration
  threadpilot ask -c <path> "..."     Process one message in the terminal
  threadpilot serve -c <path>         Answer messages from a chat gateway
  threadpilot history -c <path>       Inspect recorded requests`, Version)
}
