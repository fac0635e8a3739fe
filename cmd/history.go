package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"threadpilot/config"
	"threadpilot/store"
	"threadpilot/streamers/cli"
)

var (
	historyLimit  int
	historyOffset int
)

var historyCmd = &cobra.Command{
	Use:   "history [request-id]",
	Short: "Show recorded requests or the events of one request",
	Long: `Without arguments, list the most recent requests recorded in the store.
With a request id, print every workflow event of that request.
Only the sqlite backend keeps history across runs.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadAndValidate(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		stores, err := store.NewBundle(cfg.Storage)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
			os.Exit(1)
		}
		defer stores.Close()

		if len(args) == 1 {
			printEvents(stores.Runs, args[0])
			return
		}
		printRequests(stores.Runs)
	},
}

func printRequests(runs store.RunStore) {
	requests, total, err := runs.ListRequests(historyLimit, historyOffset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if total == 0 {
		fmt.Println("No requests recorded")
		return
	}

	fmt.Printf("%d request(s), showing %d\n", total, len(requests))
	for _, r := range requests {
		status := cli.Paint(cli.ColorGreen, "ok")
		if r.Failed {
			status = cli.Paint(cli.ColorRed, "failed")
		}
		fmt.Printf("  %s  %s  %d event(s)  %s\n",
			r.StartedAt.Local().Format(time.DateTime), r.RequestID, r.EventCount, status)
	}
}

func printEvents(runs store.RunStore, requestID string) {
	events, err := runs.GetEventsByRequest(requestID, historyLimit, historyOffset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if len(events) == 0 {
		fmt.Printf("No events recorded for request %s\n", requestID)
		return
	}

	for _, e := range events {
		taskID := ""
		if e.TaskID != nil {
			taskID = " [" + *e.TaskID + "]"
		}
		fmt.Printf("%s  %s%s  %s\n",
			cli.Paint(cli.ColorGray, e.CreatedAt.Local().Format(time.TimeOnly)),
			e.EventType, taskID, e.DataJSON)
	}
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum number of rows to show")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "Rows to skip")
}
