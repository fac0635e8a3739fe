package intent

import (
	"strings"

	"threadpilot/task"
)

// VideoUnsupportedNotice is the input of the text task produced for video requests
const VideoUnsupportedNotice = "Sorry, video generation is not available right now. Please ask for a text answer or an image instead."

// Keywords drives the deterministic fallback rules. Matching is case-insensitive.
type Keywords struct {
	Summary []string
	Video   []string
	Gemini  []string
	Drawing []string // used for the Gemini image sub-rule
	Image   []string // generic image generation request
}

// DefaultKeywords returns the built-in keyword lists
func DefaultKeywords() Keywords {
	return Keywords{
		Summary: []string{"요약", "summarize", "summary"},
		Video:   []string{"비디오", "video", "동영상", "영상"},
		Gemini:  []string{"gemini", "제미니"},
		Drawing: []string{"그려", "그림", "이미지"},
		Image:   []string{"그려", "그림", "이미지", "생성"},
	}
}

// withDefaults fills empty lists from DefaultKeywords
func (k Keywords) withDefaults() Keywords {
	d := DefaultKeywords()
	if len(k.Summary) == 0 {
		k.Summary = d.Summary
	}
	if len(k.Video) == 0 {
		k.Video = d.Video
	}
	if len(k.Gemini) == 0 {
		k.Gemini = d.Gemini
	}
	if len(k.Drawing) == 0 {
		k.Drawing = d.Drawing
	}
	if len(k.Image) == 0 {
		k.Image = d.Image
	}
	return k
}

func containsAny(message string, keywords []string) bool {
	lower := strings.ToLower(message)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Fallback builds an intent document from ordered keyword rules. First match wins.
func Fallback(message string, reqCtx *task.RequestContext, kw Keywords) task.IntentDocument {
	kw = kw.withDefaults()

	switch {
	case reqCtx.HasMedia():
		return single("image analysis request", "fallback_image_analysis", task.TypeImageAnalysis, "analyze the uploaded image", message, "10")
	case containsAny(message, kw.Summary):
		return single("thread summary request", "fallback_thread_summary", task.TypeThreadSummary, "summarize the thread messages", message, "8")
	case containsAny(message, kw.Video):
		return single("video generation request (unsupported)", "fallback_video_unsupported", task.TypeTextGeneration, "explain that video generation is unsupported", VideoUnsupportedNotice, "3")
	case containsAny(message, kw.Gemini):
		if reqCtx.HasMedia() {
			return single("Gemini image analysis request", "fallback_gemini_image_analysis", task.TypeGeminiImageAnalysis, "analyze the image with Gemini", message, "10")
		}
		if containsAny(message, kw.Drawing) {
			return single("Gemini image generation request", "fallback_gemini_image_gen", task.TypeGeminiImageGeneration, "generate an image with Gemini", message, "20")
		}
		return single("Gemini text generation request", "fallback_gemini_text", task.TypeGeminiTextGeneration, "generate text with Gemini", message, "10")
	case containsAny(message, kw.Image):
		return single("image generation request", "fallback_image_gen", task.TypeImageGeneration, "generate an image", message, "15")
	default:
		return single("text answer request", "fallback_text", task.TypeTextGeneration, "generate a text answer", message, "8")
	}
}

func single(summary, id string, t task.Type, description, input, estimate string) task.IntentDocument {
	return task.IntentDocument{
		Summary: summary,
		Tasks: []task.Spec{{
			ID:          id,
			Type:        t,
			Description: description,
			Input:       input,
			Priority:    task.Priority(1),
			DependsOn:   []string{},
		}},
		Strategy:         task.StrategySequential,
		EstimatedSeconds: estimate,
	}
}
