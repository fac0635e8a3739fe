package plugin

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"threadpilot/config"
	"threadpilot/task"
)

// Set is the collection of loaded plugins and the task types routed to them
type Set struct {
	Clients  []*PluginClient
	Routes   map[task.Type]*PluginClient
	Warnings []string
}

// LoadAll starts every configured plugin. A plugin that cannot be loaded is
// skipped with a warning so the built-in handlers keep serving its types.
func LoadAll(plugins []config.Plugin, logger hclog.Logger) *Set {
	return loadAll(plugins, logger, func(p config.Plugin) (*PluginClient, error) {
		return LoadPlugin(p.Name, p.Version, p.Source, logger)
	})
}

func loadAll(plugins []config.Plugin, logger hclog.Logger, load func(config.Plugin) (*PluginClient, error)) *Set {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	set := &Set{Routes: make(map[task.Type]*PluginClient)}

	for _, p := range plugins {
		client, err := load(p)
		if err != nil {
			set.warn(logger, "plugin '%s' (version %s): %v", p.Name, p.Version, err)
			continue
		}

		if len(p.Settings) > 0 {
			if err := client.Configure(p.Settings); err != nil {
				set.warn(logger, "plugin '%s' configure: %v", p.Name, err)
				client.Close()
				continue
			}
		}

		types, err := routedTypes(p, client)
		if err != nil {
			set.warn(logger, "plugin '%s' task types: %v", p.Name, err)
			client.Close()
			continue
		}

		set.Clients = append(set.Clients, client)
		for _, t := range types {
			if prev, ok := set.Routes[t]; ok {
				set.warn(logger, "task type %s: plugin '%s' replaces '%s'", t, p.Name, prev.Name())
			}
			set.Routes[t] = client
		}
		logger.Info("plugin loaded", "plugin", p.Name, "version", p.Version, "task_types", types)
	}
	return set
}

// routedTypes uses the configured task_types, or what the plugin reports
func routedTypes(p config.Plugin, client *PluginClient) ([]task.Type, error) {
	if len(p.TaskTypes) == 0 {
		return client.TaskTypes()
	}
	types := make([]task.Type, 0, len(p.TaskTypes))
	for _, s := range p.TaskTypes {
		t, err := task.ParseType(s)
		if err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, nil
}

func (s *Set) warn(logger hclog.Logger, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	s.Warnings = append(s.Warnings, msg)
	logger.Warn(msg)
}

// Close shuts down every plugin
func (s *Set) Close() {
	for _, c := range s.Clients {
		c.Close()
	}
}
