package cmd

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"threadpilot/plugin"
	"threadpilot/streamers"
	"threadpilot/task"
)

var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Plugin management commands",
	Long:  `Commands for building and testing task executor plugins.`,
}

var pluginTypesCmd = &cobra.Command{
	Use:   "types <plugin-name>",
	Short: "List the task types a plugin executes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, _ := cmd.Flags().GetString("version")

		// CLI commands use installed plugins only
		p, err := plugin.LoadPlugin(args[0], version, "", nil)
		if err != nil {
			return fmt.Errorf("failed to load plugin: %w", err)
		}
		defer p.Close()

		types, err := p.TaskTypes()
		if err != nil {
			return fmt.Errorf("failed to list task types: %w", err)
		}

		fmt.Printf("Task types handled by plugin '%s':\n", args[0])
		for _, t := range types {
			fmt.Printf("  - %s\n", t)
		}
		return nil
	},
}

var pluginExecCmd = &cobra.Command{
	Use:   "exec <plugin-name> <task-type> <input>",
	Short: "Execute a single task on a plugin",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, _ := cmd.Flags().GetString("version")
		settings, _ := cmd.Flags().GetStringToString("setting")

		t, err := task.ParseType(args[1])
		if err != nil {
			return err
		}

		p, err := plugin.LoadPlugin(args[0], version, "", nil)
		if err != nil {
			return fmt.Errorf("failed to load plugin: %w", err)
		}
		defer p.Close()

		if len(settings) > 0 {
			if err := p.Configure(settings); err != nil {
				return fmt.Errorf("plugin configure failed: %w", err)
			}
		}

		input := strings.Join(args[2:], " ")
		result, err := p.Execute(context.Background(), &task.Record{
			ID:          "task_1",
			Type:        t,
			Description: input,
			Input:       input,
			UserID:      "cli",
		})
		if err != nil {
			return fmt.Errorf("plugin execute failed: %w", err)
		}

		if streamers.IsMedia(result) {
			fmt.Println(streamers.Caption(result))
			if result.Media != nil {
				fmt.Printf("%s (%d bytes) %s\n", result.Media.MimeType, len(result.Media.Data), result.Media.URL)
			}
			return nil
		}
		fmt.Println(streamers.ResultText(result))
		return nil
	},
}

var pluginBuildCmd = &cobra.Command{
	Use:   "build <plugin-name> <source-path>",
	Short: "Build a plugin from source",
	Long:  `Build a plugin from a Go source directory and install it to ~/.threadpilot/plugins/<name>/<version>/plugin`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pluginName := args[0]
		version, _ := cmd.Flags().GetString("version")

		absSourcePath, err := filepath.Abs(args[1])
		if err != nil {
			return fmt.Errorf("failed to resolve source path: %w", err)
		}
		if _, err := os.Stat(absSourcePath); os.IsNotExist(err) {
			return fmt.Errorf("source path does not exist: %s", absSourcePath)
		}

		pluginDir, err := plugin.GetPluginDir(pluginName, version)
		if err != nil {
			return fmt.Errorf("failed to get plugin directory: %w", err)
		}
		if err := os.MkdirAll(pluginDir, 0755); err != nil {
			return fmt.Errorf("failed to create plugin directory: %w", err)
		}
		outputPath := filepath.Join(pluginDir, "plugin")

		fmt.Printf("Building plugin '%s' (version: %s)...\n", pluginName, version)
		fmt.Printf("  Source: %s\n", absSourcePath)
		fmt.Printf("  Output: %s\n", outputPath)

		build := exec.Command("go", "build", "-o", outputPath, absSourcePath)
		build.Stdout = os.Stdout
		build.Stderr = os.Stderr
		if err := build.Run(); err != nil {
			return fmt.Errorf("build failed: %w", err)
		}

		fmt.Printf("Plugin '%s' built successfully!\n", pluginName)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pluginCmd)
	pluginCmd.AddCommand(pluginTypesCmd)
	pluginCmd.AddCommand(pluginExecCmd)
	pluginCmd.AddCommand(pluginBuildCmd)

	pluginTypesCmd.Flags().StringP("version", "v", "local", "Plugin version to use")
	pluginExecCmd.Flags().StringP("version", "v", "local", "Plugin version to use")
	pluginExecCmd.Flags().StringToString("setting", nil, "Plugin setting as key=value (repeatable)")
	pluginBuildCmd.Flags().StringP("version", "v", "local", "Plugin version to install as")
}
