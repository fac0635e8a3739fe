package intent_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"threadpilot/intent"
	"threadpilot/task"
)

var _ = Describe("ParseDocument", func() {
	It("parses a fenced JSON response", func() {
		content := "```json\n" + `{
  "user_intent": "explain and draw",
  "required_tasks": [
    {"task_id": "t1", "task_type": "text_generation", "description": "explain AI", "input_data": "AI", "priority": 1, "depends_on": []},
    {"task_id": "t2", "task_type": "image_generation", "description": "draw a robot", "input_data": "robot", "depends_on": ["t1"]}
  ],
  "execution_strategy": "parallel",
  "estimated_time": "25"
}` + "\n```"

		doc, err := intent.ParseDocument(content)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Summary).To(Equal("explain and draw"))
		Expect(doc.Strategy).To(Equal(task.StrategyParallel))
		Expect(doc.EstimatedSeconds).To(Equal("25"))
		Expect(doc.Tasks).To(HaveLen(2))
		Expect(*doc.Tasks[0].Priority).To(Equal(1))
		Expect(doc.Tasks[1].Priority).To(BeNil())
		Expect(doc.Tasks[1].DependsOn).To(Equal([]string{"t1"}))
	})

	It("accepts a numeric estimate and defaults the strategy", func() {
		doc, err := intent.ParseDocument(`{"user_intent":"x","required_tasks":[],"estimated_time":12}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.EstimatedSeconds).To(Equal("12"))
		Expect(doc.Strategy).To(Equal(task.StrategySequential))
	})

	DescribeTable("accepts priorities written as floats or strings",
		func(raw string, want int) {
			doc, err := intent.ParseDocument(`{"user_intent":"x","required_tasks":[{"task_id":"a","task_type":"text_generation","description":"d","priority":` + raw + `}]}`)
			Expect(err).NotTo(HaveOccurred())
			Expect(doc.Tasks[0].Priority).NotTo(BeNil())
			Expect(*doc.Tasks[0].Priority).To(Equal(want))
		},
		Entry("integral float", `2.0`, 2),
		Entry("numeric string", `"3"`, 3),
		Entry("fraction", `1.7`, 1),
	)

	It("leaves a null priority unset and rejects a non-numeric one", func() {
		doc, err := intent.ParseDocument(`{"user_intent":"x","required_tasks":[{"task_id":"a","task_type":"text_generation","description":"d","priority":null}]}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Tasks[0].Priority).To(BeNil())

		_, err = intent.ParseDocument(`{"user_intent":"x","required_tasks":[{"task_id":"a","task_type":"text_generation","description":"d","priority":"high"}]}`)
		Expect(err).To(MatchError(ContainSubstring("invalid priority")))
	})

	DescribeTable("rejects documents missing required fields",
		func(content, field string) {
			_, err := intent.ParseDocument(content)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, intent.ErrMissingField)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring(field))
		},
		Entry("user_intent", `{"required_tasks":[]}`, "user_intent"),
		Entry("required_tasks", `{"user_intent":"x"}`, "required_tasks"),
		Entry("task_id", `{"user_intent":"x","required_tasks":[{"task_type":"text_generation","description":"d"}]}`, "task_id"),
		Entry("task_type", `{"user_intent":"x","required_tasks":[{"task_id":"a","description":"d"}]}`, "task_type"),
		Entry("description", `{"user_intent":"x","required_tasks":[{"task_id":"a","task_type":"text_generation"}]}`, "description"),
	)

	It("rejects malformed JSON", func() {
		_, err := intent.ParseDocument("I think you want a cat picture")
		Expect(err).To(HaveOccurred())
	})

	It("rejects unknown task types", func() {
		_, err := intent.ParseDocument(`{"user_intent":"x","required_tasks":[{"task_id":"a","task_type":"dance","description":"d"}]}`)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("StripCodeFences", func() {
	It("removes bare and json fences", func() {
		Expect(intent.StripCodeFences("```json\n{}\n```")).To(Equal("{}"))
		Expect(intent.StripCodeFences("```\n{\"a\":1}```")).To(Equal(`{"a":1}`))
		Expect(intent.StripCodeFences("  {}  ")).To(Equal("{}"))
	})
})
