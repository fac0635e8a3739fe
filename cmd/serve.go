package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"threadpilot/task"
	"threadpilot/wsbridge"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to a chat gateway and answer messages",
	Long: `Start a long-running process that connects to a chat gateway via WebSocket.
Every message received is classified and its tasks run; progress and results
are posted back into the message thread.

Requires a "gateway" block in the config with the websocket url.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := loadApp(ctx, configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		if a.cfg.Gateway == nil {
			fmt.Fprintln(os.Stderr, "Error: no gateway block in config. Add a gateway block with url.")
			os.Exit(1)
		}

		client := wsbridge.NewClient(wsbridge.Options{
			Gateway:      a.cfg.Gateway,
			Stores:       a.stores,
			Handler:      a.controller,
			Stream:       a.streamOptions(),
			Version:      Version,
			Capabilities: capabilities(),
			Logger:       a.log.Named("gateway"),
		})

		if err := client.Serve(ctx); err != nil {
			a.log.Error("gateway connection ended", "error", err)
			a.Close()
			os.Exit(1)
		}
		a.log.Info("shutting down")
	},
}

// capabilities lists the task types advertised to the gateway
func capabilities() []string {
	out := make([]string, len(task.AllTypes))
	for i, t := range task.AllTypes {
		out[i] = string(t)
	}
	return out
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
