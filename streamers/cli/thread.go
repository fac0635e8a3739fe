package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"

	"threadpilot/streamers"
	"threadpilot/task"
)

// ThreadHandler implements streamers.ThreadHandler for terminal I/O.
// The progress message is shown as a spinner line; results are printed
// below it, with generated media written to the output directory.
type ThreadHandler struct {
	out       io.Writer
	outputDir string
	spinner   *spinner
	renderer  *glamour.TermRenderer

	mu       sync.Mutex
	progress map[streamers.Handle]string
	next     int
}

// Options configures a ThreadHandler
type Options struct {
	Out       io.Writer // defaults to os.Stdout
	OutputDir string    // where images and videos are written; defaults to "."
	Spinner   bool      // animate the progress line
	Markdown  bool      // render text results with glamour
}

// NewThreadHandler creates a new CLI thread handler
func NewThreadHandler(opts Options) *ThreadHandler {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}

	h := &ThreadHandler{
		out:       opts.Out,
		outputDir: opts.OutputDir,
		progress:  make(map[streamers.Handle]string),
	}
	if opts.Spinner {
		h.spinner = newSpinner(opts.Out)
	}
	if opts.Markdown {
		h.renderer, _ = glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
	}
	return h
}

// Request echoes the user's message before processing starts
func (h *ThreadHandler) Request(message string) {
	fmt.Fprintf(h.out, "%s>  %s%s%s\n\n", ColorGray, ColorLightBrown, message, ColorReset)
}

func (h *ThreadHandler) Start(_ context.Context, text string) (streamers.Handle, error) {
	h.mu.Lock()
	h.next++
	handle := streamers.Handle(fmt.Sprintf("progress-%d", h.next))
	h.progress[handle] = text
	h.mu.Unlock()

	h.show(text)
	return handle, nil
}

func (h *ThreadHandler) Update(_ context.Context, handle streamers.Handle, text string) error {
	h.mu.Lock()
	if _, ok := h.progress[handle]; !ok {
		h.mu.Unlock()
		return fmt.Errorf("unknown progress message %q", handle)
	}
	h.progress[handle] = text
	h.mu.Unlock()

	h.show(text)
	return nil
}

// show replaces the progress line
func (h *ThreadHandler) show(text string) {
	if h.spinner != nil {
		h.spinner.Stop()
		h.spinner.Start(text)
		return
	}
	fmt.Fprintf(h.out, "%s%s%s\n", ColorGray, text, ColorReset)
}

func (h *ThreadHandler) pause() {
	if h.spinner != nil {
		h.spinner.Stop()
	}
}

func (h *ThreadHandler) Deliver(_ context.Context, _ streamers.Handle, result *task.Result, rec *task.Record) {
	h.pause()

	if streamers.IsMedia(result) {
		path, err := h.saveMedia(result, rec)
		if err != nil {
			fmt.Fprintf(h.out, "%s%s%s\n\n", ColorRed, streamers.DeliveryFailed(err), ColorReset)
			return
		}
		fmt.Fprintf(h.out, "%s\n%s%s%s\n\n", streamers.Caption(result), ColorGray, path, ColorReset)
		return
	}

	fmt.Fprintf(h.out, "%s\n\n", h.render(streamers.ResultText(result)))
}

func (h *ThreadHandler) Say(_ context.Context, text string) error {
	h.pause()
	fmt.Fprintf(h.out, "%s%s%s\n", ColorOrange, text, ColorReset)
	return nil
}

// Done stops the progress animation, leaving the last progress text printed
func (h *ThreadHandler) Done() {
	h.pause()

	h.mu.Lock()
	handle := streamers.Handle(fmt.Sprintf("progress-%d", h.next))
	last, ok := h.progress[handle]
	h.mu.Unlock()

	if ok && h.spinner != nil {
		fmt.Fprintf(h.out, "%s%s%s\n", ColorGreen, last, ColorReset)
	}
}

func (h *ThreadHandler) render(content string) string {
	if h.renderer == nil {
		return content
	}
	out, err := h.renderer.Render(content)
	if err != nil {
		return content
	}
	// Glamour adds leading/trailing newlines - trim them
	return strings.TrimSpace(out)
}

// saveMedia writes the media bytes to the output directory, or returns the URL when only that is known
func (h *ThreadHandler) saveMedia(result *task.Result, rec *task.Record) (string, error) {
	media := result.Media
	if media == nil {
		return "", fmt.Errorf("result has no media")
	}
	if len(media.Data) == 0 {
		if media.URL == "" {
			return "", fmt.Errorf("result has neither data nor url")
		}
		return media.URL, nil
	}

	if err := os.MkdirAll(h.outputDir, 0755); err != nil {
		return "", err
	}
	name := safeName(media.Filename)
	if name == "" {
		name = string(result.Kind)
	}
	if id := safeName(rec.ID); id != "" {
		name = id + "-" + name
	}
	path := filepath.Join(h.outputDir, name)
	if rel, err := filepath.Rel(h.outputDir, path); err != nil || rel != filepath.Base(path) {
		return "", fmt.Errorf("refusing to write %q outside %s", name, h.outputDir)
	}
	if err := os.WriteFile(path, media.Data, 0644); err != nil {
		return "", err
	}
	return path, nil
}

// safeName reduces a model or plugin supplied name to a single path element
func safeName(s string) string {
	s = strings.NewReplacer("/", "_", "\\", "_").Replace(s)
	s = strings.TrimLeft(s, ".")
	if s == "" {
		return ""
	}
	return filepath.Base(s)
}
