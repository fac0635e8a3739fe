package streamers_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"threadpilot/streamers"
	"threadpilot/task"
)

var _ = Describe("formatting", func() {
	It("prefixes text and analysis results", func() {
		Expect(streamers.ResultText(&task.Result{Kind: task.ResultText, Content: "hi"})).To(Equal("💭 hi"))
		Expect(streamers.ResultText(&task.Result{Kind: task.ResultAnalysis, Content: "a cat"})).To(Equal("🔍 a cat"))
	})

	It("captions images with the revised prompt when present", func() {
		Expect(streamers.Caption(&task.Result{Kind: task.ResultImage, Model: "dall-e-3", Prompt: "robot", RevisedPrompt: "a shiny robot"})).
			To(Equal("🎨 [dall-e-3] a shiny robot"))
		Expect(streamers.Caption(&task.Result{Kind: task.ResultImage, Model: "imagen", Prompt: "robot"})).
			To(Equal("🎨 [imagen] robot"))
	})

	It("captions videos with their duration", func() {
		Expect(streamers.Caption(&task.Result{Kind: task.ResultVideo, Model: "veo", Prompt: "waves", Duration: 5})).
			To(Equal("🎬 [veo] waves (5s)"))
	})

	It("formats delivery failures", func() {
		Expect(streamers.DeliveryFailed(errors.New("upload rejected"))).To(Equal("❌ error sending task result: upload rejected"))
	})
})
