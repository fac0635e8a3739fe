package config

import (
	"fmt"
	"net/url"
	"time"
)

const (
	DefaultReconnectDelay    = 5 * time.Second
	DefaultHeartbeatInterval = 30 * time.Second
)

// GatewayConfig points the bot at a chat gateway websocket
type GatewayConfig struct {
	URL               string `hcl:"url"`
	InstanceName      string `hcl:"instance_name,optional"`
	Token             string `hcl:"token,optional"`      // sent as a bearer token when dialing
	FileToken         string `hcl:"file_token,optional"` // bearer token for downloading attachments
	AutoReconnect     *bool  `hcl:"auto_reconnect,optional"`
	ReconnectDelay    string `hcl:"reconnect_delay,optional"`
	HeartbeatInterval string `hcl:"heartbeat_interval,optional"`
}

// Defaults fills in default values for unset fields
func (g *GatewayConfig) Defaults() {
	if g.InstanceName == "" {
		g.InstanceName = "threadpilot"
	}
	if g.AutoReconnect == nil {
		on := true
		g.AutoReconnect = &on
	}
	if g.ReconnectDelay == "" {
		g.ReconnectDelay = DefaultReconnectDelay.String()
	}
	if g.HeartbeatInterval == "" {
		g.HeartbeatInterval = DefaultHeartbeatInterval.String()
	}
}

func (g *GatewayConfig) Validate() error {
	u, err := url.Parse(g.URL)
	if err != nil {
		return fmt.Errorf("invalid url '%s': %w", g.URL, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("url '%s' must use ws:// or wss://", g.URL)
	}
	for name, value := range map[string]string{
		"reconnect_delay":    g.ReconnectDelay,
		"heartbeat_interval": g.HeartbeatInterval,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s '%s': %w", name, value, err)
		}
	}
	return nil
}

// Reconnect reports whether the bridge should redial after a dropped connection
func (g *GatewayConfig) Reconnect() bool {
	return g.AutoReconnect == nil || *g.AutoReconnect
}

// ReconnectDelayDuration returns the parsed reconnect delay
func (g *GatewayConfig) ReconnectDelayDuration() time.Duration {
	return parseDurationOr(g.ReconnectDelay, DefaultReconnectDelay)
}

// HeartbeatDuration returns the parsed heartbeat interval
func (g *GatewayConfig) HeartbeatDuration() time.Duration {
	return parseDurationOr(g.HeartbeatInterval, DefaultHeartbeatInterval)
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
