package executor

import (
	"context"
	"fmt"

	"threadpilot/llm"
	"threadpilot/task"
)

func (d *Dispatcher) geminiVideoGeneration(ctx context.Context, rec *task.Record) (*task.Result, error) {
	if d.opts.GeminiVideos == nil {
		return nil, fmt.Errorf("%w: no gemini video model configured", ErrUnsupportedTask)
	}

	video, err := d.opts.GeminiVideos.GenerateVideo(ctx, &llm.VideoRequest{
		Model:           d.opts.GeminiVideoModel,
		Prompt:          rec.Input,
		DurationSeconds: d.opts.VideoDuration,
		AspectRatio:     "16:9",
	})
	if err != nil {
		return nil, fmt.Errorf("gemini video generation: %w", err)
	}

	mime := video.MimeType
	if mime == "" {
		mime = "video/mp4"
	}

	d.log.Info("video generated", "task_id", rec.ID, "model", d.opts.GeminiVideoModel, "bytes", len(video.Data))
	return &task.Result{
		Kind:     task.ResultVideo,
		Model:    d.opts.GeminiVideoModel,
		Prompt:   rec.Input,
		Duration: d.opts.VideoDuration,
		Media: &task.Media{
			URL:      video.URI,
			MimeType: mime,
			Filename: "video" + extensionFor(mime),
			Data:     video.Data,
		},
	}, nil
}
