package plugin

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	goplugin "github.com/hashicorp/go-plugin"

	"threadpilot/task"
)

// PluginClient wraps a go-plugin client and provides access to the executor plugin
type PluginClient struct {
	client   *goplugin.Client
	executor TaskExecutor
	name     string
}

// GetPluginsDir returns the base directory for plugins
func GetPluginsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".threadpilot", "plugins"), nil
}

// GetPluginDir returns the directory for a specific plugin version
func GetPluginDir(name, version string) (string, error) {
	pluginsDir, err := GetPluginsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(pluginsDir, name, version), nil
}

// ResolvePluginPath finds the executable of a plugin. A local plugin whose
// source is an existing file runs from there; everything else lives under
// the plugins dir, downloaded from its GitHub release when missing.
func ResolvePluginPath(name, version, source string) (string, error) {
	if version == "local" {
		if info, err := os.Stat(source); err == nil && !info.IsDir() {
			return source, nil
		}
	}

	dir, err := GetPluginDir(name, version)
	if err != nil {
		return "", err
	}
	pluginPath := filepath.Join(dir, "plugin")

	if _, err := os.Stat(pluginPath); os.IsNotExist(err) {
		if version == "local" {
			return "", fmt.Errorf("plugin not found: %s (version local) at %s", name, pluginPath)
		}
		release, err := ParseRelease(source, version)
		if err != nil {
			return "", err
		}
		if err := NewDownloader().Install(context.Background(), release, dir); err != nil {
			return "", fmt.Errorf("download plugin %s: %w", name, err)
		}
	}
	return pluginPath, nil
}

// LoadPlugin starts a plugin by name and version and dispenses its executor
func LoadPlugin(name, version, source string, logger hclog.Logger) (*PluginClient, error) {
	pluginPath, err := ResolvePluginPath(name, version, source)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = hclog.New(&hclog.LoggerOptions{
			Name:   "plugin",
			Output: os.Stderr,
			Level:  hclog.Error, // Only show errors
		})
	}

	client := goplugin.NewClient(&goplugin.ClientConfig{
		HandshakeConfig:  Handshake,
		Plugins:          PluginMap,
		Cmd:              exec.Command(pluginPath),
		Logger:           logger.Named(name),
		AllowedProtocols: []goplugin.Protocol{goplugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to connect to plugin: %w", err)
	}

	raw, err := rpcClient.Dispense("executor")
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("failed to dispense plugin: %w", err)
	}

	executor, ok := raw.(TaskExecutor)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("plugin does not implement TaskExecutor interface")
	}

	return NewPluginClient(name, executor, client), nil
}

// NewPluginClient wraps an already dispensed executor; client may be nil
func NewPluginClient(name string, executor TaskExecutor, client *goplugin.Client) *PluginClient {
	return &PluginClient{client: client, executor: executor, name: name}
}

// Configure passes settings to the plugin
func (p *PluginClient) Configure(settings map[string]string) error {
	return p.executor.Configure(settings)
}

// TaskTypes returns the task types the plugin reports, rejecting unknown ones
func (p *PluginClient) TaskTypes() ([]task.Type, error) {
	raw, err := p.executor.TaskTypes()
	if err != nil {
		return nil, err
	}
	types := make([]task.Type, 0, len(raw))
	for _, s := range raw {
		t, err := task.ParseType(s)
		if err != nil {
			return nil, fmt.Errorf("plugin '%s': %w", p.name, err)
		}
		types = append(types, t)
	}
	return types, nil
}

type contextExecutor interface {
	ExecuteContext(ctx context.Context, req *ExecuteRequest) (*ExecuteResponse, error)
}

// Execute runs a task record in the plugin
func (p *PluginClient) Execute(ctx context.Context, rec *task.Record) (*task.Result, error) {
	req := toRequest(rec)

	var (
		resp *ExecuteResponse
		err  error
	)
	if ce, ok := p.executor.(contextExecutor); ok {
		resp, err = ce.ExecuteContext(ctx, req)
	} else {
		resp, err = p.executor.Execute(req)
	}
	if err != nil {
		return nil, fmt.Errorf("plugin '%s': %w", p.name, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("plugin '%s': empty response", p.name)
	}
	return toResult(resp), nil
}

// Close shuts down the plugin
func (p *PluginClient) Close() {
	if p.client != nil {
		p.client.Kill()
	}
}

// Name returns the plugin name
func (p *PluginClient) Name() string {
	return p.name
}

func toRequest(rec *task.Record) *ExecuteRequest {
	req := &ExecuteRequest{
		TaskID:      rec.ID,
		TaskType:    string(rec.Type),
		Description: rec.Description,
		Input:       rec.Input,
		UserID:      rec.UserID,
	}
	for _, m := range rec.Thread {
		req.Thread = append(req.Thread, ThreadMessage{UserName: m.UserName, Text: m.Text, FromBot: m.FromBot})
	}
	if rec.Media != nil {
		req.MediaURL = rec.Media.URL
		req.MediaMimeType = rec.Media.MimeType
		req.MediaData = rec.Media.Data
		if len(req.MediaData) == 0 && rec.Media.Base64 != "" {
			if data, err := base64.StdEncoding.DecodeString(rec.Media.Base64); err == nil {
				req.MediaData = data
			}
		}
	}
	return req
}

func toResult(resp *ExecuteResponse) *task.Result {
	kind := task.ResultKind(resp.Kind)
	switch kind {
	case task.ResultText, task.ResultImage, task.ResultVideo, task.ResultAnalysis:
	default:
		kind = task.ResultText
	}

	result := &task.Result{
		Kind:          kind,
		Content:       resp.Content,
		Model:         resp.Model,
		Prompt:        resp.Prompt,
		RevisedPrompt: resp.RevisedPrompt,
		Duration:      resp.Duration,
	}
	if resp.MediaURL != "" || len(resp.MediaData) > 0 {
		result.Media = &task.Media{
			URL:      resp.MediaURL,
			MimeType: resp.MediaMimeType,
			Filename: resp.MediaFilename,
			Data:     resp.MediaData,
		}
	}
	return result
}
