package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"threadpilot/config"
	"threadpilot/plugin"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [path]",
	Short: "Verify that the configuration is valid",
	Long:  `Verify parses and validates the HCL configuration files and starts each plugin once. Path can be a file or directory.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := configPath
		if len(args) > 0 {
			path = args[0]
		}
		cfg, err := config.LoadAndValidate(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		var warnings []string
		for _, v := range cfg.Variables {
			resolved, _ := config.ResolveVariableValue(&v)
			if resolved == "" {
				warnings = append(warnings, fmt.Sprintf("variable '%s' has no default and no value set", v.Name))
			}
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Found %d model(s)\n", len(cfg.Models))
		for _, m := range cfg.Models {
			fmt.Printf("  - %s (provider: %s, models: %v)\n", m.Name, m.Provider, m.AllowedModels)
		}
		fmt.Printf("Found %d variable(s)\n", len(cfg.Variables))
		for _, v := range cfg.Variables {
			resolved, _ := config.ResolveVariableValue(&v)
			state := "not set"
			if resolved != "" {
				state = v.Display(resolved)
				if !v.Secret {
					state = fmt.Sprintf("%q", resolved)
				}
			}
			fmt.Printf("  - %s = %s\n", v.Name, state)
		}

		bot := cfg.Bot
		fmt.Printf("Bot\n")
		fmt.Printf("  - reasoning model: %s\n", bot.ReasoningModel)
		fmt.Printf("  - text model: %s\n", bot.TextModel)
		if bot.GeminiModel != "" {
			fmt.Printf("  - gemini model: %s\n", bot.GeminiModel)
		}
		fmt.Printf("  - image model: %s (%s, %s, %s)\n", bot.ImageModel, bot.ImageSize, bot.ImageQuality, bot.ImageStyle)
		if bot.GeminiImageModel != "" || bot.GeminiVideoModel != "" {
			fmt.Printf("  - gemini media: image=%s video=%s (%ds)\n", bot.GeminiImageModel, bot.GeminiVideoModel, bot.VideoDuration)
		}

		if cfg.Storage != nil {
			fmt.Printf("Storage: %s (ttl %s)\n", cfg.Storage.Backend, cfg.Storage.TTL)
		} else {
			fmt.Printf("Storage: memory (default)\n")
		}
		if cfg.Gateway != nil {
			fmt.Printf("Gateway: %s (instance: %s)\n", cfg.Gateway.URL, cfg.Gateway.InstanceName)
		}

		fmt.Printf("Found %d plugin(s)\n", len(cfg.Plugins))
		set := plugin.LoadAll(cfg.Plugins, nil)
		defer set.Close()
		for _, p := range cfg.Plugins {
			var routed []string
			for t, client := range set.Routes {
				if client.Name() == p.Name {
					routed = append(routed, string(t))
				}
			}
			sort.Strings(routed)
			state := "NOT LOADED"
			if len(routed) > 0 {
				state = fmt.Sprintf("task types: %v", routed)
			}
			fmt.Printf("  - %s (source: %s, version: %s, %s)\n", p.Name, p.Source, p.Version, state)
		}
		warnings = append(warnings, set.Warnings...)

		if len(warnings) > 0 {
			fmt.Printf("\nWarnings:\n")
			for _, w := range warnings {
				fmt.Printf("  - %s\n", w)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
