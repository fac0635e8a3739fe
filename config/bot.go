package config

import (
	"fmt"
	"strings"
)

// BotConfig selects the models and presentation settings of the bot
type BotConfig struct {
	// ReasoningModel classifies requests (models.<name>.<model>)
	ReasoningModel string `hcl:"reasoning_model"`
	// TextModel answers text, summary and vision tasks; defaults to ReasoningModel
	TextModel string `hcl:"text_model,optional"`
	// GeminiModel serves the gemini_* text and vision tasks
	GeminiModel string `hcl:"gemini_model,optional"`

	ImageModel   string `hcl:"image_model,optional"`
	ImageSize    string `hcl:"image_size,optional"`
	ImageQuality string `hcl:"image_quality,optional"`
	ImageStyle   string `hcl:"image_style,optional"`

	GeminiImageModel string `hcl:"gemini_image_model,optional"`
	GeminiVideoModel string `hcl:"gemini_video_model,optional"`
	VideoDuration    int    `hcl:"video_duration,optional"`

	Temperature     *float64 `hcl:"temperature,optional"`
	MaxTokens       int      `hcl:"max_tokens,optional"`
	MaxContextChars int      `hcl:"max_context_chars,optional"`

	Cursor        string `hcl:"cursor,optional"`
	MaxMessageLen int    `hcl:"max_message_len,optional"`
	ChunkSize     int    `hcl:"chunk_size,optional"`
	OutputDir     string `hcl:"output_dir,optional"`
}

// Defaults fills in default values for unset fields
func (b *BotConfig) Defaults() {
	if b.TextModel == "" {
		b.TextModel = b.ReasoningModel
	}
	if b.ImageModel == "" {
		b.ImageModel = "dall-e-3"
	}
	if b.ImageSize == "" {
		b.ImageSize = "1024x1024"
	}
	if b.ImageQuality == "" {
		b.ImageQuality = "hd"
	}
	if b.ImageStyle == "" {
		b.ImageStyle = "vivid"
	}
	if b.VideoDuration == 0 {
		b.VideoDuration = 5
	}
	if b.MaxContextChars == 0 {
		b.MaxContextChars = 4000
	}
	if b.Cursor == "" {
		b.Cursor = ":robot_face:"
	}
	if b.MaxMessageLen == 0 {
		b.MaxMessageLen = 3000
	}
	if b.ChunkSize == 0 {
		b.ChunkSize = 800
	}
	if b.OutputDir == "" {
		b.OutputDir = "."
	}
}

func (b *BotConfig) Validate(c *Config) error {
	if strings.TrimSpace(b.ReasoningModel) == "" {
		return fmt.Errorf("reasoning_model is required")
	}

	refs := []struct {
		field string
		ref   string
		want  Provider
	}{
		{"reasoning_model", b.ReasoningModel, ""},
		{"text_model", b.TextModel, ""},
		{"gemini_model", b.GeminiModel, ProviderGemini},
	}
	for _, r := range refs {
		if r.ref == "" {
			continue
		}
		resolved, err := c.ResolveModel(r.ref)
		if err != nil {
			return fmt.Errorf("%s: %w", r.field, err)
		}
		if r.want != "" && resolved.Model.Provider != r.want {
			return fmt.Errorf("%s: '%s' is a %s model, expected %s", r.field, r.ref, resolved.Model.Provider, r.want)
		}
	}

	if (b.GeminiImageModel != "" || b.GeminiVideoModel != "") && !c.hasProvider(ProviderGemini) {
		return fmt.Errorf("gemini media models need a gemini model block for the api key")
	}

	if b.Temperature != nil && (*b.Temperature < 0 || *b.Temperature > 2) {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if b.VideoDuration < 0 || b.MaxContextChars < 0 || b.MaxMessageLen < 0 || b.ChunkSize < 0 || b.MaxTokens < 0 {
		return fmt.Errorf("numeric settings must not be negative")
	}
	if b.ChunkSize > b.MaxMessageLen && b.MaxMessageLen > 0 {
		return fmt.Errorf("chunk_size (%d) must not exceed max_message_len (%d)", b.ChunkSize, b.MaxMessageLen)
	}
	return nil
}

func (c *Config) hasProvider(p Provider) bool {
	_, ok := c.ModelForProvider(p)
	return ok
}
