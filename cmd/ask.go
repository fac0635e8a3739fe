package cmd

import (
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"threadpilot/streamers"
	"threadpilot/streamers/cli"
	"threadpilot/task"
)

var (
	askThread string
	askImage  string
	askUser   string
	askPlain  bool
)

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Process one message in the terminal",
	Long: `Classify the message, run its tasks and print the results.
With --thread the conversation is kept in the configured store, so later
asks with the same key see the earlier messages.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		message := strings.Join(args, " ")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := loadApp(ctx, configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer a.Close()

		reqCtx := &task.RequestContext{UserID: askUser, UserName: askUser}
		if askImage != "" {
			media, err := readMedia(askImage)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			reqCtx.Media = media
		}

		handler := cli.NewThreadHandler(cli.Options{
			Out:       os.Stdout,
			OutputDir: a.cfg.Bot.OutputDir,
			Spinner:   !askPlain,
			Markdown:  !askPlain,
		})
		handler.Request(message)

		var out streamers.ThreadHandler = handler
		if askThread != "" {
			history, err := streamers.LoadThread(a.stores.Threads, askThread)
			if err != nil {
				a.log.Warn("failed to load stored conversation", "key", askThread, "error", err)
			}
			reqCtx.Thread = history
			out = streamers.NewStoringHandler(handler, streamers.StoringOptions{
				Threads: a.stores.Threads,
				Key:     askThread,
				Request: task.ThreadMessage{UserID: askUser, UserName: askUser, Text: message},
				Logger:  a.log,
			})
		}

		a.controller.Handle(ctx, message, reqCtx, out)
		handler.Done()
	},
}

// readMedia loads an image attached from the command line
func readMedia(path string) (*task.Media, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if !strings.HasPrefix(mimeType, "image/") {
		return nil, fmt.Errorf("%s is not an image", path)
	}
	return &task.Media{Data: data, MimeType: mimeType, Filename: filepath.Base(path)}, nil
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askThread, "thread", "t", "", "Conversation key to load and store the thread under")
	askCmd.Flags().StringVarP(&askImage, "image", "i", "", "Attach an image file to the message")
	askCmd.Flags().StringVarP(&askUser, "user", "u", "cli", "User id sent with the request")
	askCmd.Flags().BoolVar(&askPlain, "plain", false, "Disable the spinner and markdown rendering")
}
