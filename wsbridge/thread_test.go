package wsbridge_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"threadpilot/streamers"
	"threadpilot/task"
	"threadpilot/wsbridge"
)

var _ = Describe("ThreadHandler", func() {
	var (
		ctx    context.Context
		req    *fakeRequester
		thread *wsbridge.ThreadHandler
		rec    *task.Record
	)

	BeforeEach(func() {
		ctx = context.Background()
		req = newFakeRequester()
		thread = wsbridge.NewThreadHandler(req, "C1", "1700.1", streamers.StreamOptions{
			ChunkSize: 100,
			MaxLen:    300,
			Cursor:    streamers.DefaultCursor,
		}, nil)
		rec = &task.Record{ID: "task_1", Type: task.TypeTextGeneration}
	})

	It("posts progress into the thread and edits it by ts", func() {
		h, err := thread.Start(ctx, "working")
		Expect(err).NotTo(HaveOccurred())
		Expect(h).To(Equal(streamers.Handle("200.1")))

		Expect(thread.Update(ctx, h, "done")).To(Succeed())
		Expect(req.messages()).To(Equal([]string{"done"}))

		var update wsbridge.UpdatePayload
		Expect(wsbridge.DecodePayload(req.byType(wsbridge.TypeUpdate)[0], &update)).To(Succeed())
		Expect(update.Channel).To(Equal("C1"))
		Expect(update.TS).To(Equal("200.1"))
	})

	It("streams long text results across messages without leaving the cursor", func() {
		content := strings.Repeat("word ", 100)
		thread.Deliver(ctx, "", &task.Result{Kind: task.ResultText, Content: content}, rec)

		messages := req.messages()
		Expect(len(messages)).To(BeNumerically(">", 1))
		Expect(strings.Join(messages, "")).To(Equal(streamers.ResultText(&task.Result{Content: content})))
		for _, m := range messages {
			Expect(m).NotTo(ContainSubstring(streamers.DefaultCursor))
			Expect(len([]rune(m))).To(BeNumerically("<=", 300))
		}
		Expect(len(req.byType(wsbridge.TypeUpdate))).To(BeNumerically(">=", 5))
	})

	It("prefixes analysis results", func() {
		thread.Deliver(ctx, "", &task.Result{Kind: task.ResultAnalysis, Content: "a cat"}, rec)
		Expect(req.messages()).To(Equal([]string{"🔍 a cat"}))
	})

	It("uploads media with its caption", func() {
		result := &task.Result{
			Kind:   task.ResultImage,
			Model:  "dall-e-3",
			Prompt: "a cat",
			Media:  &task.Media{Filename: "image.png", MimeType: "image/png", Data: []byte("png")},
		}
		thread.Deliver(ctx, "", result, rec)

		uploads := req.byType(wsbridge.TypeUpload)
		Expect(uploads).To(HaveLen(1))
		var upload wsbridge.UploadPayload
		Expect(wsbridge.DecodePayload(uploads[0], &upload)).To(Succeed())
		Expect(upload.Channel).To(Equal("C1"))
		Expect(upload.ThreadTS).To(Equal("1700.1"))
		Expect(upload.Filename).To(Equal("image.png"))
		Expect(upload.Data).To(Equal([]byte("png")))
		Expect(upload.Title).To(Equal("🎨 [dall-e-3] a cat"))
		Expect(req.byType(wsbridge.TypePost)).To(BeEmpty())
	})

	It("reports a failed upload in the thread", func() {
		req.failOn = wsbridge.TypeUpload
		result := &task.Result{Kind: task.ResultVideo, Media: &task.Media{URL: "https://example.com/v.mp4"}}
		thread.Deliver(ctx, "", result, rec)

		Expect(req.messages()).To(HaveLen(1))
		Expect(req.messages()[0]).To(HavePrefix("❌ error sending task result"))
		Expect(req.messages()[0]).To(ContainSubstring("boom"))
	})

	It("reports media without data or url", func() {
		thread.Deliver(ctx, "", &task.Result{Kind: task.ResultImage, Media: &task.Media{}}, rec)
		Expect(req.byType(wsbridge.TypeUpload)).To(BeEmpty())
		Expect(req.messages()[0]).To(ContainSubstring("neither data nor url"))
	})

	It("returns post errors from Say", func() {
		req.failOn = wsbridge.TypePost
		Expect(thread.Say(ctx, "hi")).To(MatchError(ContainSubstring("boom")))
	})
})
