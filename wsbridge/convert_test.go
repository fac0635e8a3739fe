package wsbridge_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"threadpilot/wsbridge"
)

var _ = Describe("conversions", func() {
	It("strips mentions from message text", func() {
		Expect(wsbridge.CleanText("<@U123ABC> draw <@U9> a cat ")).To(Equal("draw  a cat"))
		Expect(wsbridge.CleanText("<@UBOT>")).To(BeEmpty())
	})

	It("takes the first image attachment as request media", func() {
		reqCtx := wsbridge.RequestContext(&wsbridge.MessagePayload{
			User: "U1",
			Files: []wsbridge.FileReference{
				{Name: "notes.pdf", MimeType: "application/pdf", URL: "https://files/notes.pdf"},
				{Name: "cat.jpg", MimeType: "image/jpeg", URL: "https://files/cat.jpg"},
			},
		}, "UBOT")

		Expect(reqCtx.HasMedia()).To(BeTrue())
		Expect(reqCtx.Media.URL).To(Equal("https://files/cat.jpg"))
		Expect(reqCtx.Media.MimeType).To(Equal("image/jpeg"))
	})

	It("marks bot entries of the thread", func() {
		reqCtx := wsbridge.RequestContext(&wsbridge.MessagePayload{
			User: "U1",
			Thread: []wsbridge.ThreadEntry{
				{User: "U1", Text: "<@UBOT> hi"},
				{User: "UBOT", Text: "hello"},
				{User: "U2", BotID: "B2", Text: "other bot"},
			},
		}, "UBOT")

		Expect(reqCtx.Thread).To(HaveLen(3))
		Expect(reqCtx.Thread[0].Text).To(Equal("hi"))
		Expect(reqCtx.Thread[0].FromBot).To(BeFalse())
		Expect(reqCtx.Thread[1].FromBot).To(BeTrue())
		Expect(reqCtx.Thread[2].FromBot).To(BeTrue())
		Expect(reqCtx.Media).To(BeNil())
	})
})
