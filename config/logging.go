package config

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
)

// LoggingConfig controls the process logger and the optional LLM call log
type LoggingConfig struct {
	Level   string `hcl:"level,optional"`    // trace, debug, info, warn, error
	JSON    bool   `hcl:"json,optional"`     // emit JSON lines instead of text
	File    string `hcl:"file,optional"`     // append logs to this file instead of stderr
	CallLog string `hcl:"call_log,optional"` // JSONL file recording every LLM call
}

// Defaults fills in default values for unset fields
func (l *LoggingConfig) Defaults() {
	if l.Level == "" {
		l.Level = "info"
	}
}

func (l *LoggingConfig) Validate() error {
	if hclog.LevelFromString(l.Level) == hclog.NoLevel {
		return fmt.Errorf("unknown level '%s'", l.Level)
	}
	return nil
}

// HCLogLevel returns the configured level, defaulting to info
func (l *LoggingConfig) HCLogLevel() hclog.Level {
	if l == nil {
		return hclog.Info
	}
	level := hclog.LevelFromString(l.Level)
	if level == hclog.NoLevel {
		return hclog.Info
	}
	return level
}
