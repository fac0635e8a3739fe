package executor

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"threadpilot/llm"
	"threadpilot/task"
)

const translatePrompt = `Convert the following request into an English prompt for an image generation model:
%q

Return only the English prompt.`

// ContainsKorean reports whether more than 20% of the characters are Hangul syllables
func ContainsKorean(text string) bool {
	runes := []rune(text)
	if len(runes) == 0 {
		return false
	}
	var korean int
	for _, r := range runes {
		if r >= '가' && r <= '힣' {
			korean++
		}
	}
	return float64(korean) > float64(len(runes))*0.2
}

// imagePrompt translates Korean requests to English before image generation
func (d *Dispatcher) imagePrompt(ctx context.Context, rec *task.Record) (string, error) {
	if !ContainsKorean(rec.Input) || d.opts.Chat == nil {
		return rec.Input, nil
	}

	content, err := d.complete(ctx, d.opts.Chat, d.opts.ChatModel, rec, []llm.Message{
		llm.NewTextMessage(llm.RoleUser, fmt.Sprintf(translatePrompt, rec.Input)),
	})
	if err != nil {
		return "", fmt.Errorf("translating prompt: %w", err)
	}
	prompt := strings.TrimSpace(content)
	if prompt == "" {
		return rec.Input, nil
	}
	return prompt, nil
}

func (d *Dispatcher) generate(ctx context.Context, gen llm.ImageGenerator, req *llm.ImageRequest) (*task.Media, string, error) {
	img, err := gen.GenerateImage(ctx, req)
	if err != nil {
		return nil, "", err
	}

	data := img.Data
	if len(data) == 0 {
		if img.URL == "" {
			return nil, "", fmt.Errorf("image model returned neither data nor url")
		}
		media, err := d.opts.Fetcher.Fetch(ctx, img.URL)
		if err != nil {
			return nil, "", fmt.Errorf("downloading generated image: %w", err)
		}
		data = media
	}

	mime := img.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return &task.Media{
		URL:      img.URL,
		MimeType: mime,
		Filename: "image" + extensionFor(mime),
		Data:     data,
	}, img.RevisedPrompt, nil
}

func (d *Dispatcher) imageGeneration(ctx context.Context, rec *task.Record) (*task.Result, error) {
	if d.opts.Images == nil {
		return nil, fmt.Errorf("%w: no image model configured", ErrUnsupportedTask)
	}

	prompt, err := d.imagePrompt(ctx, rec)
	if err != nil {
		return nil, err
	}

	media, revised, err := d.generate(ctx, d.opts.Images, &llm.ImageRequest{
		Model:   d.opts.ImageModel,
		Prompt:  prompt,
		Size:    d.opts.ImageSize,
		Quality: d.opts.ImageQuality,
		Style:   d.opts.ImageStyle,
		User:    userOf(rec),
	})
	if err != nil {
		return nil, fmt.Errorf("image generation: %w", err)
	}

	d.log.Info("image generated", "task_id", rec.ID, "prompt", prompt, "revised_prompt", revised)
	return &task.Result{
		Kind:          task.ResultImage,
		Model:         d.opts.ImageModel,
		Prompt:        prompt,
		RevisedPrompt: revised,
		Media:         media,
	}, nil
}

func (d *Dispatcher) geminiImageGeneration(ctx context.Context, rec *task.Record) (*task.Result, error) {
	if d.opts.GeminiImages == nil {
		return nil, fmt.Errorf("%w: no gemini image model configured", ErrUnsupportedTask)
	}

	media, _, err := d.generate(ctx, d.opts.GeminiImages, &llm.ImageRequest{
		Model:       d.opts.GeminiImageModel,
		Prompt:      rec.Input,
		AspectRatio: "1:1",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini image generation: %w", err)
	}

	return &task.Result{
		Kind:   task.ResultImage,
		Model:  d.opts.GeminiImageModel,
		Prompt: rec.Input,
		Media:  media,
	}, nil
}

// encodedMedia returns the attached image as base64, downloading it when only a URL is known
func (d *Dispatcher) encodedMedia(ctx context.Context, rec *task.Record) (*llm.ImageBlock, error) {
	if rec.Media == nil {
		return nil, ErrNoMedia
	}

	mime := rec.Media.MimeType
	if mime == "" {
		mime = "image/png"
	}

	switch {
	case rec.Media.Base64 != "":
		return &llm.ImageBlock{Data: rec.Media.Base64, MediaType: mime}, nil
	case len(rec.Media.Data) > 0:
		return &llm.ImageBlock{Data: base64.StdEncoding.EncodeToString(rec.Media.Data), MediaType: mime}, nil
	case rec.Media.URL != "":
		data, err := d.opts.Fetcher.Fetch(ctx, rec.Media.URL)
		if err != nil {
			return nil, fmt.Errorf("downloading image: %w", err)
		}
		return &llm.ImageBlock{Data: base64.StdEncoding.EncodeToString(data), MediaType: mime}, nil
	default:
		return nil, ErrNoMedia
	}
}

func (d *Dispatcher) analyze(ctx context.Context, provider llm.Provider, model string, rec *task.Record) (*task.Result, error) {
	image, err := d.encodedMedia(ctx, rec)
	if err != nil {
		return nil, err
	}

	question := rec.Input
	if strings.TrimSpace(question) == "" {
		question = "Describe the image in great detail as if viewing a photo."
	}

	content, err := d.complete(ctx, provider, model, rec, []llm.Message{llm.NewVisionMessage(question, image)})
	if err != nil {
		return nil, fmt.Errorf("image analysis: %w", err)
	}

	d.log.Info("image analyzed", "task_id", rec.ID, "model", model, "content_length", len(content))
	return &task.Result{Kind: task.ResultAnalysis, Content: content, Model: model}, nil
}

func (d *Dispatcher) imageAnalysis(ctx context.Context, rec *task.Record) (*task.Result, error) {
	provider, err := d.chatModel()
	if err != nil {
		return nil, err
	}
	return d.analyze(ctx, provider, d.opts.ChatModel, rec)
}

func (d *Dispatcher) geminiImageAnalysis(ctx context.Context, rec *task.Record) (*task.Result, error) {
	provider, err := d.geminiModel()
	if err != nil {
		return nil, err
	}
	return d.analyze(ctx, provider, d.opts.GeminiModel, rec)
}

func extensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	case "video/mp4":
		return ".mp4"
	default:
		return ".png"
	}
}
