package llm

import (
	"context"
	"strings"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ContentType identifies the type of content in a ContentBlock
type ContentType string

const (
	ContentTypeText  ContentType = "text"
	ContentTypeImage ContentType = "image"
)

// ImageBlock represents base64-encoded image data
type ImageBlock struct {
	Data      string // Base64-encoded data (without data URL prefix)
	MediaType string // MIME type: "image/png", "image/jpeg", "image/gif", "image/webp"
}

// ContentBlock represents a single piece of content (text or image)
type ContentBlock struct {
	Type      ContentType
	Text      string      // Used when Type == ContentTypeText
	ImageData *ImageBlock // Used when Type == ContentTypeImage
}

// Message represents a conversation message with optional multimodal content
type Message struct {
	Role    Role
	Content string         // Simple text content
	Parts   []ContentBlock // Multimodal content blocks (takes precedence over Content if non-empty)
}

// HasParts returns true if the message has multimodal content blocks
func (m Message) HasParts() bool {
	return len(m.Parts) > 0
}

// HasImage reports whether any part carries image data
func (m Message) HasImage() bool {
	for _, p := range m.Parts {
		if p.Type == ContentTypeImage && p.ImageData != nil {
			return true
		}
	}
	return false
}

// GetTextContent returns the text content of the message
// If Parts is set, concatenates all text parts; otherwise returns Content
func (m Message) GetTextContent() string {
	if !m.HasParts() {
		return m.Content
	}
	var b strings.Builder
	for _, part := range m.Parts {
		if part.Type == ContentTypeText {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}

// NewTextMessage creates a simple text-only message
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Content: text}
}

// NewVisionMessage creates a user message holding a question and one image
func NewVisionMessage(text string, image *ImageBlock) Message {
	return Message{
		Role: RoleUser,
		Parts: []ContentBlock{
			{Type: ContentTypeText, Text: text},
			{Type: ContentTypeImage, ImageData: image},
		},
	}
}

type StreamChunk struct {
	Content string
	Done    bool
	Error   error
	Usage   *Usage // Only populated on final chunk (Done=true)
}

type ChatRequest struct {
	Model         string
	Messages      []Message
	MaxTokens     int
	Temperature   float64
	StopSequences []string
	User          string // end-user id forwarded for abuse monitoring where supported
}

type ChatResponse struct {
	ID           string
	Content      string
	FinishReason string
	Usage        Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int

	// Cache-related fields (provider-specific, may be zero if not supported)
	CacheReadInputTokens int // Anthropic: tokens read from existing cache
	CachedTokens         int // OpenAI: tokens served from cache (prompt_tokens_details.cached_tokens)
}

type Provider interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	ChatStream(ctx context.Context, req *ChatRequest) (<-chan StreamChunk, error)
}

// ImageRequest asks for a single generated image
type ImageRequest struct {
	Model       string
	Prompt      string
	Size        string // e.g. "1024x1024"
	Quality     string // e.g. "hd"
	Style       string // e.g. "vivid"
	AspectRatio string // Imagen only, e.g. "1:1"
	User        string
}

// GeneratedImage is the output of an image model
type GeneratedImage struct {
	Data          []byte // raw bytes, empty when only URL is set
	URL           string
	MimeType      string
	RevisedPrompt string
}

// ImageGenerator produces images from a prompt
type ImageGenerator interface {
	GenerateImage(ctx context.Context, req *ImageRequest) (*GeneratedImage, error)
}

// VideoRequest asks for a single generated video
type VideoRequest struct {
	Model           string
	Prompt          string
	DurationSeconds int
	AspectRatio     string
}

// GeneratedVideo is the output of a video model
type GeneratedVideo struct {
	Data     []byte
	URI      string
	MimeType string
}

// VideoGenerator produces videos from a prompt
type VideoGenerator interface {
	GenerateVideo(ctx context.Context, req *VideoRequest) (*GeneratedVideo, error)
}

// CollectStream drains a stream, returning the concatenated content
func CollectStream(chunks <-chan StreamChunk, onChunk func(string)) (string, error) {
	var b strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			return b.String(), chunk.Error
		}
		if chunk.Content != "" {
			b.WriteString(chunk.Content)
			if onChunk != nil {
				onChunk(chunk.Content)
			}
		}
	}
	return b.String(), nil
}
