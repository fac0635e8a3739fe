package intent_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"threadpilot/intent"
	"threadpilot/task"
)

var _ = Describe("Classifier", func() {
	var (
		ctx      context.Context
		reasoner *stubReasoner
		reqCtx   *task.RequestContext
	)

	BeforeEach(func() {
		ctx = context.Background()
		reasoner = &stubReasoner{}
		reqCtx = &task.RequestContext{
			UserID:   "U123",
			UserName: "alice",
			Thread:   []task.ThreadMessage{{Text: "a"}, {Text: "b"}},
		}
	})

	It("returns the parsed document on a valid response", func() {
		reasoner.response = `{"user_intent":"explain","required_tasks":[{"task_id":"t1","task_type":"text_generation","description":"explain python","input_data":"python"}],"execution_strategy":"sequential","estimated_time":"5"}`
		c := intent.NewClassifier(intent.Options{Reasoner: reasoner})

		doc := c.Classify(ctx, "파이썬 설명해줘", reqCtx)
		Expect(doc.Summary).To(Equal("explain"))
		Expect(doc.Tasks).To(HaveLen(1))
		Expect(doc.Tasks[0].ID).To(Equal("t1"))
	})

	It("keeps a plan whose priority is written as a float", func() {
		reasoner.response = `{"user_intent":"draw","required_tasks":[{"task_id":"img","task_type":"image_generation","description":"draw","priority":2.0}]}`
		c := intent.NewClassifier(intent.Options{Reasoner: reasoner})

		doc := c.Classify(ctx, "hello", reqCtx)
		Expect(doc.Tasks).To(HaveLen(1))
		Expect(doc.Tasks[0].ID).To(Equal("img"))
		Expect(*doc.Tasks[0].Priority).To(Equal(2))
	})

	It("builds the prompt from the message and context at low temperature", func() {
		reasoner.response = `{"user_intent":"x","required_tasks":[]}`
		c := intent.NewClassifier(intent.Options{Reasoner: reasoner})

		c.Classify(ctx, "고양이 그려줘", reqCtx)
		Expect(reasoner.calls).To(Equal(1))
		Expect(reasoner.params.Temperature).To(BeNumerically("~", 0.1))
		Expect(reasoner.params.User).To(Equal("U123"))
		Expect(reasoner.prompt).To(ContainSubstring("고양이 그려줘"))
		Expect(reasoner.prompt).To(ContainSubstring("user: alice"))
		Expect(reasoner.prompt).To(ContainSubstring("thread length: 2 messages"))
		Expect(reasoner.prompt).To(ContainSubstring("attached image: no"))
		Expect(reasoner.prompt).To(ContainSubstring("gemini_video_generation"))
	})

	It("falls back to an image analysis task on a malformed response with an attached image", func() {
		reasoner.response = "sure! here is what I think..."
		reqCtx.Media = &task.Media{URL: "https://files.example/a.png"}
		c := intent.NewClassifier(intent.Options{Reasoner: reasoner})

		doc := c.Classify(ctx, "이게 뭐야?", reqCtx)
		Expect(doc.Tasks).To(HaveLen(1))
		Expect(doc.Tasks[0].Type).To(Equal(task.TypeImageAnalysis))
	})

	It("falls back when the reasoning call fails", func() {
		reasoner.err = errors.New("connection reset")
		c := intent.NewClassifier(intent.Options{Reasoner: reasoner})

		doc := c.Classify(ctx, "Gemini로 고양이를 그려줘", &task.RequestContext{})
		Expect(doc.Tasks).To(HaveLen(1))
		Expect(doc.Tasks[0].Type).To(Equal(task.TypeGeminiImageGeneration))
	})

	It("falls back when the response misses required fields", func() {
		reasoner.response = `{"required_tasks":[]}`
		c := intent.NewClassifier(intent.Options{Reasoner: reasoner})

		doc := c.Classify(ctx, "hello", reqCtx)
		Expect(doc.Tasks[0].ID).To(Equal("fallback_text"))
	})

	It("falls back when the reasoner panics", func() {
		reasoner.panics = true
		c := intent.NewClassifier(intent.Options{Reasoner: reasoner})

		doc := c.Classify(ctx, "summary", reqCtx)
		Expect(doc.Tasks[0].Type).To(Equal(task.TypeThreadSummary))
	})

	It("falls back without a reasoner", func() {
		c := intent.NewClassifier(intent.Options{})
		doc := c.Classify(ctx, "hello", nil)
		Expect(doc.Tasks).To(HaveLen(1))
	})
})
