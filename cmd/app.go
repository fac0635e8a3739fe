package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"

	"threadpilot/config"
	"threadpilot/executor"
	"threadpilot/intent"
	"threadpilot/llm"
	"threadpilot/plugin"
	"threadpilot/store"
	"threadpilot/streamers"
	"threadpilot/task"
	"threadpilot/workflow"
)

// app holds everything a command needs to process requests
type app struct {
	cfg        *config.Config
	log        hclog.Logger
	stores     *store.Bundle
	plugins    *plugin.Set
	controller *workflow.Controller

	closers []func() error
}

// newLogger builds the process logger from the logging block
func newLogger(cfg *config.LoggingConfig) (hclog.Logger, io.Closer, error) {
	var out io.Writer = os.Stderr
	var closer io.Closer
	jsonFormat := false
	if cfg != nil {
		jsonFormat = cfg.JSON
		if cfg.File != "" {
			f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return nil, nil, fmt.Errorf("open log file: %w", err)
			}
			out = f
			closer = f
		}
	}

	log := hclog.New(&hclog.LoggerOptions{
		Name:       "threadpilot",
		Level:      cfg.HCLogLevel(),
		JSONFormat: jsonFormat,
		Output:     out,
	})
	return log, closer, nil
}

// loadApp loads and validates the config at path, then wires the pipeline
func loadApp(ctx context.Context, path string) (*app, error) {
	cfg, err := config.LoadAndValidate(path)
	if err != nil {
		return nil, err
	}
	log, logCloser, err := newLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		if logCloser != nil {
			logCloser.Close()
		}
		return nil, err
	}
	if logCloser != nil {
		a.closers = append(a.closers, logCloser.Close)
	}
	return a, nil
}

func buildApp(ctx context.Context, cfg *config.Config, log hclog.Logger) (a *app, err error) {
	a = &app{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var calls *llm.CallLogger
	if cfg.Logging != nil && cfg.Logging.CallLog != "" {
		calls, err = llm.NewCallLogger(cfg.Logging.CallLog)
		if err != nil {
			return a, fmt.Errorf("open call log: %w", err)
		}
		a.closers = append(a.closers, calls.Close)
	}

	providers := &providerSet{ctx: ctx, calls: calls, app: a, built: make(map[string]llm.Provider)}

	bot := cfg.Bot
	reasoning, err := providers.resolve(cfg, bot.ReasoningModel)
	if err != nil {
		return a, fmt.Errorf("reasoning model: %w", err)
	}
	text, err := providers.resolve(cfg, bot.TextModel)
	if err != nil {
		return a, fmt.Errorf("text model: %w", err)
	}

	opts := executor.Options{
		Chat:            text.provider,
		ChatModel:       text.apiName,
		MaxTokens:       bot.MaxTokens,
		ImageModel:      bot.ImageModel,
		ImageSize:       bot.ImageSize,
		ImageQuality:    bot.ImageQuality,
		ImageStyle:      bot.ImageStyle,
		VideoDuration:   bot.VideoDuration,
		MaxContextChars: bot.MaxContextChars,
		Logger:          log.Named("executor"),
	}
	if bot.Temperature != nil {
		opts.Temperature = *bot.Temperature
	}

	if bot.GeminiModel != "" {
		gemini, err := providers.resolve(cfg, bot.GeminiModel)
		if err != nil {
			return a, fmt.Errorf("gemini model: %w", err)
		}
		opts.Gemini = gemini.provider
		opts.GeminiModel = gemini.apiName
	}

	if m, ok := cfg.ModelForProvider(config.ProviderOpenAI); ok {
		opts.Images = llm.NewOpenAIProvider(m.APIKey, m.BaseURL)
	}
	if m, ok := cfg.ModelForProvider(config.ProviderGemini); ok && (bot.GeminiImageModel != "" || bot.GeminiVideoModel != "") {
		media := llm.NewGeminiMedia(llm.GeminiMediaOptions{APIKey: m.APIKey, Logger: log.Named("gemini-media")})
		if bot.GeminiImageModel != "" {
			opts.GeminiImages = media
			opts.GeminiImageModel = bot.GeminiImageModel
		}
		if bot.GeminiVideoModel != "" {
			opts.GeminiVideos = media
			opts.GeminiVideoModel = bot.GeminiVideoModel
		}
	}

	fetch := executor.FetcherOptions{Logger: log}
	if cfg.Gateway != nil {
		fetch.BearerToken = cfg.Gateway.FileToken
	}
	opts.Fetcher = executor.NewFetcher(fetch)

	a.plugins = plugin.LoadAll(cfg.Plugins, log.Named("plugin"))
	a.closers = append(a.closers, func() error { a.plugins.Close(); return nil })
	if len(a.plugins.Routes) > 0 {
		opts.Plugins = make(map[task.Type]executor.Plugin, len(a.plugins.Routes))
		for t, client := range a.plugins.Routes {
			opts.Plugins[t] = client
		}
	}

	a.stores, err = store.NewBundle(cfg.Storage)
	if err != nil {
		return a, fmt.Errorf("open store: %w", err)
	}
	a.closers = append(a.closers, a.stores.Close)

	keywords := intent.Keywords{}
	if kw := cfg.Keywords; kw != nil {
		keywords = intent.Keywords{Summary: kw.Summary, Video: kw.Video, Gemini: kw.Gemini, Drawing: kw.Drawing, Image: kw.Image}
	}
	classifier := intent.NewClassifier(intent.Options{
		Reasoner: &intent.ProviderReasoner{Provider: reasoning.provider, Model: reasoning.apiName},
		Keywords: keywords,
		Logger:   log.Named("intent"),
	})

	a.controller = workflow.NewController(workflow.ControllerOptions{
		Classifier: classifier,
		Executor:   executor.New(opts),
		Logger:     log.Named("workflow"),
		Events: workflow.Tee(
			&workflow.HCLogEvents{Logger: log.Named("events")},
			store.NewEventRecorder(a.stores.Runs, log.Named("recorder")),
		),
	})
	return a, nil
}

// streamOptions returns how results are streamed into chat messages
func (a *app) streamOptions() streamers.StreamOptions {
	return streamers.StreamOptions{
		ChunkSize: a.cfg.Bot.ChunkSize,
		MaxLen:    a.cfg.Bot.MaxMessageLen,
		Cursor:    a.cfg.Bot.Cursor,
	}
}

// Close releases everything in reverse order of creation
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.log != nil {
			a.log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

// resolvedModel is a provider client plus the API model name to call it with
type resolvedModel struct {
	provider llm.Provider
	apiName  string
}

// providerSet builds one client per model block, wrapped by the call logger when enabled
type providerSet struct {
	ctx   context.Context
	calls *llm.CallLogger
	app   *app
	built map[string]llm.Provider
}

func (p *providerSet) resolve(cfg *config.Config, ref string) (resolvedModel, error) {
	r, err := cfg.ResolveModel(ref)
	if err != nil {
		return resolvedModel{}, err
	}
	if provider, ok := p.built[r.Model.Name]; ok {
		return resolvedModel{provider: provider, apiName: r.APIName}, nil
	}

	var provider llm.Provider
	switch r.Model.Provider {
	case config.ProviderOpenAI:
		provider = llm.NewOpenAIProvider(r.Model.APIKey, r.Model.BaseURL)
	case config.ProviderAnthropic:
		provider = llm.NewAnthropicProvider(r.Model.APIKey, r.Model.BaseURL)
	case config.ProviderGemini:
		gemini, err := llm.NewGeminiProvider(p.ctx, r.Model.APIKey)
		if err != nil {
			return resolvedModel{}, fmt.Errorf("gemini client: %w", err)
		}
		p.app.closers = append(p.app.closers, gemini.Close)
		provider = gemini
	default:
		return resolvedModel{}, fmt.Errorf("unsupported provider '%s'", r.Model.Provider)
	}

	if p.calls != nil {
		provider = p.calls.Wrap(provider)
	}
	p.built[r.Model.Name] = provider
	return resolvedModel{provider: provider, apiName: r.APIName}, nil
}
