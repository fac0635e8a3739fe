package main

import (
	"fmt"
	"strings"

	"threadpilot/plugin"
)

// EchoPlugin answers text tasks by echoing their input
type EchoPlugin struct {
	prefix string
	upper  bool
}

// Configure applies settings: prefix (string) and upper ("true" to capitalize)
func (p *EchoPlugin) Configure(settings map[string]string) error {
	p.prefix = settings["prefix"]
	switch settings["upper"] {
	case "", "false":
		p.upper = false
	case "true":
		p.upper = true
	default:
		return fmt.Errorf("invalid upper setting %q", settings["upper"])
	}
	return nil
}

func (p *EchoPlugin) TaskTypes() ([]string, error) {
	return []string{"text_generation"}, nil
}

func (p *EchoPlugin) Execute(req *plugin.ExecuteRequest) (*plugin.ExecuteResponse, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, fmt.Errorf("task %s has no input", req.TaskID)
	}
	text := req.Input
	if p.upper {
		text = strings.ToUpper(text)
	}
	return &plugin.ExecuteResponse{
		Kind:    "text",
		Content: p.prefix + text,
		Model:   "echo",
	}, nil
}

func main() {
	plugin.Serve(&EchoPlugin{})
}
