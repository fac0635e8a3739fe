// Package executor runs individual tasks against the configured model providers.
package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"threadpilot/llm"
	"threadpilot/task"
)

var (
	// ErrUnsupportedTask is returned for a task type with no configured backend
	ErrUnsupportedTask = errors.New("unsupported task type")

	// ErrNoMedia is returned by analysis tasks when no image was attached
	ErrNoMedia = errors.New("no image was provided for analysis")
)

const (
	DefaultChatModel       = "gpt-4o"
	DefaultImageModel      = "dall-e-3"
	DefaultImageSize       = "1024x1024"
	DefaultImageQuality    = "hd"
	DefaultImageStyle      = "vivid"
	DefaultGeminiModel     = "gemini-2.5-flash"
	DefaultMaxContextChars = 4000
	DefaultVideoDuration   = 5
)

// Options configures a Dispatcher. Backends left nil make their task types unsupported.
type Options struct {
	// OpenAI-compatible chat and vision
	Chat        llm.Provider
	ChatModel   string
	Temperature float64
	MaxTokens   int

	// DALL-E style image generation
	Images       llm.ImageGenerator
	ImageModel   string
	ImageSize    string
	ImageQuality string
	ImageStyle   string

	// Gemini chat, vision and media
	Gemini           llm.Provider
	GeminiModel      string
	GeminiImages     llm.ImageGenerator
	GeminiImageModel string
	GeminiVideos     llm.VideoGenerator
	GeminiVideoModel string
	VideoDuration    int

	// MaxContextChars bounds the thread history sent with text tasks
	MaxContextChars int

	// Fetcher downloads attached media that only has a URL
	Fetcher *Fetcher

	// Plugins take precedence over the built-in handlers for their task types
	Plugins map[task.Type]Plugin

	Logger hclog.Logger
}

// Plugin executes tasks out of process
type Plugin interface {
	Execute(ctx context.Context, rec *task.Record) (*task.Result, error)
}

type handlerFunc func(ctx context.Context, rec *task.Record) (*task.Result, error)

// Dispatcher routes a task to the handler for its type
type Dispatcher struct {
	opts     Options
	handlers map[task.Type]handlerFunc
	log      hclog.Logger
}

// New creates a Dispatcher, filling model defaults
func New(opts Options) *Dispatcher {
	if opts.ChatModel == "" {
		opts.ChatModel = DefaultChatModel
	}
	if opts.ImageModel == "" {
		opts.ImageModel = DefaultImageModel
	}
	if opts.ImageSize == "" {
		opts.ImageSize = DefaultImageSize
	}
	if opts.ImageQuality == "" {
		opts.ImageQuality = DefaultImageQuality
	}
	if opts.ImageStyle == "" {
		opts.ImageStyle = DefaultImageStyle
	}
	if opts.GeminiModel == "" {
		opts.GeminiModel = DefaultGeminiModel
	}
	if opts.GeminiImageModel == "" {
		opts.GeminiImageModel = llm.DefaultImagenModel
	}
	if opts.GeminiVideoModel == "" {
		opts.GeminiVideoModel = llm.DefaultVeoModel
	}
	if opts.VideoDuration <= 0 {
		opts.VideoDuration = DefaultVideoDuration
	}
	if opts.MaxContextChars <= 0 {
		opts.MaxContextChars = DefaultMaxContextChars
	}
	if opts.Fetcher == nil {
		opts.Fetcher = NewFetcher(FetcherOptions{Logger: opts.Logger})
	}
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}

	d := &Dispatcher{opts: opts, log: opts.Logger}
	d.handlers = map[task.Type]handlerFunc{
		task.TypeTextGeneration:        d.textGeneration,
		task.TypeImageGeneration:       d.imageGeneration,
		task.TypeImageAnalysis:         d.imageAnalysis,
		task.TypeThreadSummary:         d.threadSummary,
		task.TypeGeminiTextGeneration:  d.geminiTextGeneration,
		task.TypeGeminiImageGeneration: d.geminiImageGeneration,
		task.TypeGeminiVideoGeneration: d.geminiVideoGeneration,
		task.TypeGeminiImageAnalysis:   d.geminiImageAnalysis,
	}
	return d
}

// Execute runs one task
func (d *Dispatcher) Execute(ctx context.Context, rec *task.Record) (*task.Result, error) {
	log := d.log.With("task_id", rec.ID, "task_type", rec.Type)

	if p, ok := d.opts.Plugins[rec.Type]; ok {
		log.Debug("routing task to plugin")
		return p.Execute(ctx, rec)
	}

	handler, ok := d.handlers[rec.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTask, rec.Type)
	}

	log.Debug("executing task")
	result, err := handler(ctx, rec)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (d *Dispatcher) chatModel() (llm.Provider, error) {
	if d.opts.Chat == nil {
		return nil, fmt.Errorf("%w: no chat model configured", ErrUnsupportedTask)
	}
	return d.opts.Chat, nil
}

func (d *Dispatcher) geminiModel() (llm.Provider, error) {
	if d.opts.Gemini == nil {
		return nil, fmt.Errorf("%w: no gemini model configured", ErrUnsupportedTask)
	}
	return d.opts.Gemini, nil
}

func userOf(rec *task.Record) string {
	if rec.UserID == "" {
		return "unknown"
	}
	return rec.UserID
}
