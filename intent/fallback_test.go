package intent_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"threadpilot/intent"
	"threadpilot/task"
)

var _ = Describe("Fallback", func() {
	withImage := &task.RequestContext{Media: &task.Media{URL: "https://files.example/a.png"}}
	noImage := &task.RequestContext{}

	DescribeTable("selects exactly one task by keyword precedence",
		func(message string, reqCtx *task.RequestContext, expectedType task.Type, expectedID, estimate string) {
			doc := intent.Fallback(message, reqCtx, intent.DefaultKeywords())
			Expect(doc.Tasks).To(HaveLen(1))
			Expect(doc.Tasks[0].Type).To(Equal(expectedType))
			Expect(doc.Tasks[0].ID).To(Equal(expectedID))
			Expect(*doc.Tasks[0].Priority).To(Equal(1))
			Expect(doc.Tasks[0].DependsOn).To(BeEmpty())
			Expect(doc.EstimatedSeconds).To(Equal(estimate))
			Expect(doc.Strategy).To(Equal(task.StrategySequential))
		},
		Entry("attached image wins over everything", "Gemini로 요약하고 그려줘", withImage, task.TypeImageAnalysis, "fallback_image_analysis", "10"),
		Entry("summary keyword", "이 스레드 요약해줘", noImage, task.TypeThreadSummary, "fallback_thread_summary", "8"),
		Entry("english summary keyword", "please summarize", noImage, task.TypeThreadSummary, "fallback_thread_summary", "8"),
		Entry("video keyword", "고양이 동영상 만들어줘", noImage, task.TypeTextGeneration, "fallback_video_unsupported", "3"),
		Entry("gemini with drawing keyword", "Gemini로 고양이를 그려줘", noImage, task.TypeGeminiImageGeneration, "fallback_gemini_image_gen", "20"),
		Entry("gemini text", "제미니야 안녕", noImage, task.TypeGeminiTextGeneration, "fallback_gemini_text", "10"),
		Entry("generic image keyword", "고양이 그려줘", noImage, task.TypeImageGeneration, "fallback_image_gen", "15"),
		Entry("plain text", "파이썬 설명해줘", noImage, task.TypeTextGeneration, "fallback_text", "8"),
		Entry("nil context", "hello", nil, task.TypeTextGeneration, "fallback_text", "8"),
	)

	It("carries the unsupported notice for video requests", func() {
		doc := intent.Fallback("make a video", noImage, intent.DefaultKeywords())
		Expect(doc.Tasks[0].Input).To(Equal(intent.VideoUnsupportedNotice))
	})

	It("carries the raw message as input otherwise", func() {
		doc := intent.Fallback("고양이 그려줘", noImage, intent.DefaultKeywords())
		Expect(doc.Tasks[0].Input).To(Equal("고양이 그려줘"))
	})

	It("uses custom keywords and keeps defaults for empty lists", func() {
		kw := intent.Keywords{Image: []string{"paint"}}
		doc := intent.Fallback("paint a dog", noImage, kw)
		Expect(doc.Tasks[0].Type).To(Equal(task.TypeImageGeneration))

		doc = intent.Fallback("summary please", noImage, kw)
		Expect(doc.Tasks[0].Type).To(Equal(task.TypeThreadSummary))
	})
})
