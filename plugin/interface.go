package plugin

import (
	"context"
	"net/rpc"

	goplugin "github.com/hashicorp/go-plugin"
)

// Handshake is the handshake config for executor plugins
var Handshake = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "THREADPILOT_PLUGIN",
	MagicCookieValue: "executor",
}

// PluginMap is the map of plugins we can dispense
var PluginMap = map[string]goplugin.Plugin{
	"executor": &ExecutorPlugin{},
}

// ThreadMessage is one message of the conversation, as sent to a plugin
type ThreadMessage struct {
	UserName string
	Text     string
	FromBot  bool
}

// ExecuteRequest is a task handed to a plugin
type ExecuteRequest struct {
	TaskID      string
	TaskType    string
	Description string
	Input       string
	UserID      string
	Thread      []ThreadMessage

	MediaURL      string
	MediaMimeType string
	MediaData     []byte
}

// ExecuteResponse is the result a plugin returns
type ExecuteResponse struct {
	Kind          string // text, image, video or analysis; defaults to text
	Content       string
	Model         string
	Prompt        string
	RevisedPrompt string
	Duration      int

	MediaURL      string
	MediaMimeType string
	MediaFilename string
	MediaData     []byte
}

// TaskExecutor is implemented by plugin binaries
type TaskExecutor interface {
	// Configure passes settings from HCL config to the plugin
	Configure(settings map[string]string) error

	// TaskTypes lists the task types the plugin handles
	TaskTypes() ([]string, error)

	// Execute runs one task
	Execute(req *ExecuteRequest) (*ExecuteResponse, error)
}

// ExecutorPlugin is the go-plugin glue for TaskExecutor over net/rpc
type ExecutorPlugin struct {
	Impl TaskExecutor
}

func (p *ExecutorPlugin) Server(*goplugin.MuxBroker) (interface{}, error) {
	return &rpcServer{impl: p.Impl}, nil
}

func (p *ExecutorPlugin) Client(_ *goplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &rpcClient{client: c}, nil
}

// Serve runs impl as a plugin process. It blocks until the host disconnects.
func Serve(impl TaskExecutor) {
	goplugin.Serve(&goplugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]goplugin.Plugin{
			"executor": &ExecutorPlugin{Impl: impl},
		},
	})
}

// rpcServer runs inside the plugin process
type rpcServer struct {
	impl TaskExecutor
}

func (s *rpcServer) Configure(settings map[string]string, resp *string) error {
	return s.impl.Configure(settings)
}

func (s *rpcServer) TaskTypes(_ interface{}, resp *[]string) error {
	types, err := s.impl.TaskTypes()
	if err != nil {
		return err
	}
	*resp = types
	return nil
}

func (s *rpcServer) Execute(req ExecuteRequest, resp *ExecuteResponse) error {
	out, err := s.impl.Execute(&req)
	if err != nil {
		return err
	}
	if out != nil {
		*resp = *out
	}
	return nil
}

// rpcClient runs in the host and implements TaskExecutor
type rpcClient struct {
	client *rpc.Client
}

func (c *rpcClient) Configure(settings map[string]string) error {
	var resp string
	return c.client.Call("Plugin.Configure", settings, &resp)
}

func (c *rpcClient) TaskTypes() ([]string, error) {
	var resp []string
	err := c.client.Call("Plugin.TaskTypes", new(interface{}), &resp)
	return resp, err
}

func (c *rpcClient) Execute(req *ExecuteRequest) (*ExecuteResponse, error) {
	return c.ExecuteContext(context.Background(), req)
}

// ExecuteContext stops waiting when ctx is done; the plugin may still finish the call
func (c *rpcClient) ExecuteContext(ctx context.Context, req *ExecuteRequest) (*ExecuteResponse, error) {
	var resp ExecuteResponse
	call := c.client.Go("Plugin.Execute", *req, &resp, make(chan *rpc.Call, 1))
	select {
	case <-call.Done:
		if call.Error != nil {
			return nil, call.Error
		}
		return &resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
