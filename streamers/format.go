package streamers

import (
	"fmt"

	"threadpilot/task"
)

const (
	TextPrefix     = "💭"
	AnalysisPrefix = "🔍"
	ImagePrefix    = "🎨"
	VideoPrefix    = "🎬"
)

// ResultText returns the message body of a text or analysis result
func ResultText(result *task.Result) string {
	switch result.Kind {
	case task.ResultAnalysis:
		return AnalysisPrefix + " " + result.Content
	default:
		return TextPrefix + " " + result.Content
	}
}

// Caption returns the caption posted with a generated image or video
func Caption(result *task.Result) string {
	switch result.Kind {
	case task.ResultVideo:
		return fmt.Sprintf("%s [%s] %s (%ds)", VideoPrefix, result.Model, result.Prompt, result.Duration)
	default:
		prompt := result.RevisedPrompt
		if prompt == "" {
			prompt = result.Prompt
		}
		return fmt.Sprintf("%s [%s] %s", ImagePrefix, result.Model, prompt)
	}
}

// DeliveryFailed is the notice posted when a result could not be sent
func DeliveryFailed(err error) string {
	return fmt.Sprintf("❌ error sending task result: %v", err)
}

// IsMedia reports whether the result carries an image or video
func IsMedia(result *task.Result) bool {
	return result.Kind == task.ResultImage || result.Kind == task.ResultVideo
}
