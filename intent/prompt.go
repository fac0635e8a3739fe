package intent

import (
	"fmt"
	"strings"

	"threadpilot/task"
)

// Capabilities describes what the bot can do. It is embedded in every classification prompt.
const Capabilities = `
1. Text generation and conversation
   - question answering, explanations, summaries
   - translation (Korean <-> English)
   - code generation and explanation
   - creative writing (poems, essays, stories)
   - document drafting (reports, plans)

2. Image generation
   - DALL-E images in many styles
   - Gemini Imagen high quality images
   - logos, illustrations, concept visualizations

3. Video generation
   - Gemini Veo short clips

4. Image analysis
   - OpenAI vision description of image content
   - Gemini vision for detailed analysis
   - charts and graphs, code screenshots, scanned documents

5. Thread summary
   - summarize every message in the thread
   - extract main topics and conclusions
   - group opinions by participant

6. Model selection
   - OpenAI (GPT-4o, DALL-E 3, Vision)
   - Google Gemini (Gemini 2.5 Flash, Imagen 4.0, Veo 2.0)
`

const responseTemplate = `{
    "user_intent": "short summary of what the user wants",
    "required_tasks": [
        {
            "task_id": "unique_id",
            "task_type": "%s",
            "description": "what this task does",
            "input_data": "input for the task",
            "priority": 1,
            "depends_on": []
        }
    ],
    "execution_strategy": "sequential|parallel",
    "estimated_time": "estimated seconds"
}`

const examples = `- "파이썬 설명해줘" -> one text_generation task
- "고양이 그려줘" -> one image_generation task
- "AI 설명하고 로봇 이미지도 그려줘" -> text_generation + image_generation, two tasks
- "스레드 요약해줘" -> one thread_summary task
- "Gemini로 텍스트 생성해줘" -> one gemini_text_generation task
- "Gemini로 이미지 만들어줘" -> one gemini_image_generation task
- "Gemini로 비디오 만들어줘" -> one gemini_video_generation task
- "Gemini로 이미지 분석해줘" -> one gemini_image_analysis task`

// BuildPrompt renders the classification prompt for a message and its context
func BuildPrompt(message string, reqCtx *task.RequestContext, capabilities string) string {
	userName := "Unknown"
	if reqCtx != nil && reqCtx.UserName != "" {
		userName = reqCtx.UserName
	}
	attached := "no"
	if reqCtx.HasMedia() {
		attached = "yes"
	}

	types := make([]string, len(task.AllTypes))
	for i, t := range task.AllTypes {
		types[i] = string(t)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "User message: %q\n\n", message)
	b.WriteString("Conversation context:\n")
	fmt.Fprintf(&b, "- user: %s\n", userName)
	fmt.Fprintf(&b, "- thread length: %d messages\n", reqCtx.ThreadLength())
	fmt.Fprintf(&b, "- attached image: %s\n\n", attached)
	fmt.Fprintf(&b, "Bot capabilities: %s\n", capabilities)
	b.WriteString("Analyze the user message and answer with the required tasks as JSON:\n\n")
	fmt.Fprintf(&b, responseTemplate, strings.Join(types, "|"))
	b.WriteString("\n\nExamples:\n")
	b.WriteString(examples)
	b.WriteString("\n\nRespond with JSON only.\n")
	return b.String()
}
