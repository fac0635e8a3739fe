package config

import (
	"fmt"
	"sort"
	"strings"
)

type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
)

// SupportedModels maps provider to their supported model names
// The keys are the variable names used in HCL references (e.g., models.openai.gpt_4o)
var SupportedModels = map[Provider]map[string]string{
	ProviderOpenAI: {
		"gpt_4o":       "gpt-4o",
		"gpt_4o_mini":  "gpt-4o-mini",
		"gpt_4_1":      "gpt-4.1",
		"gpt_4_1_mini": "gpt-4.1-mini",
		"o3_mini":      "o3-mini",
	},
	ProviderGemini: {
		"gemini_2_5_flash": "gemini-2.5-flash",
		"gemini_2_5_pro":   "gemini-2.5-pro",
		"gemini_2_0_flash": "gemini-2.0-flash",
	},
	ProviderAnthropic: {
		"claude_sonnet_4":  "claude-sonnet-4-20250514",
		"claude_opus_4":    "claude-opus-4-20250514",
		"claude_3_5_haiku": "claude-3-5-haiku-20241022",
	},
}

// Model represents a model provider configuration
type Model struct {
	Name          string   `hcl:"name,label"`
	Provider      Provider `hcl:"provider"`
	AllowedModels []string `hcl:"allowed_models"`
	APIKey        string   `hcl:"api_key"`
	BaseURL       string   `hcl:"base_url,optional"`
}

func (m *Model) Validate() error {
	supportedForProvider, ok := SupportedModels[m.Provider]
	if !ok {
		return fmt.Errorf("Unsupported provider; Provider '%s' is not supported", m.Provider)
	}

	for _, modelName := range m.AllowedModels {
		if _, found := supportedForProvider[modelName]; !found {
			return fmt.Errorf("Unsupported model; Model '%s' is not supported for provider '%s'. Supported models: %v", modelName, m.Provider, getKeys(supportedForProvider))
		}
	}
	return nil
}

// ModelRef is a resolved models.{block}.{key} reference
type ModelRef struct {
	Model   *Model
	Key     string
	APIName string
}

// ResolveModel resolves a reference of the form "{block}.{key}"
func (c *Config) ResolveModel(ref string) (*ModelRef, error) {
	block, key, ok := strings.Cut(ref, ".")
	if !ok {
		return nil, fmt.Errorf("invalid model reference '%s': expected models.<name>.<model>", ref)
	}

	for i := range c.Models {
		m := &c.Models[i]
		if m.Name != block {
			continue
		}
		for _, allowed := range m.AllowedModels {
			if allowed == key {
				apiName, ok := SupportedModels[m.Provider][key]
				if !ok {
					return nil, fmt.Errorf("model '%s' is not supported for provider '%s'", key, m.Provider)
				}
				return &ModelRef{Model: m, Key: key, APIName: apiName}, nil
			}
		}
		return nil, fmt.Errorf("model '%s' is not in the allowed_models of '%s'", key, block)
	}
	return nil, fmt.Errorf("unknown model block '%s'", block)
}

// ModelForProvider returns the first model block of the given provider
func (c *Config) ModelForProvider(p Provider) (*Model, bool) {
	for i := range c.Models {
		if c.Models[i].Provider == p {
			return &c.Models[i], true
		}
	}
	return nil, false
}

func getKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
