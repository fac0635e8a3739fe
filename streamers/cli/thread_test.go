package cli_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"threadpilot/streamers/cli"
	"threadpilot/task"
)

var _ = Describe("ThreadHandler", func() {
	var (
		ctx context.Context
		out *bytes.Buffer
		dir string
		h   *cli.ThreadHandler
	)

	BeforeEach(func() {
		ctx = context.Background()
		out = &bytes.Buffer{}
		dir = GinkgoT().TempDir()
		h = cli.NewThreadHandler(cli.Options{Out: out, OutputDir: dir})
	})

	It("prints progress messages and rejects unknown handles", func() {
		handle, err := h.Start(ctx, "🤖 analyzing your request...")
		Expect(err).NotTo(HaveOccurred())
		Expect(h.Update(ctx, handle, "⚙️ task 1/1: explain in progress...")).To(Succeed())
		Expect(h.Update(ctx, "nope", "x")).To(HaveOccurred())

		Expect(out.String()).To(ContainSubstring("analyzing your request"))
		Expect(out.String()).To(ContainSubstring("task 1/1"))
	})

	It("prints text results with their prefix", func() {
		h.Deliver(ctx, "", &task.Result{Kind: task.ResultText, Content: "AI is a field"}, &task.Record{ID: "explain"})
		Expect(out.String()).To(ContainSubstring("💭 AI is a field"))
	})

	It("keeps media inside the output directory whatever the task id or filename", func() {
		outDir := filepath.Join(dir, "out")
		h = cli.NewThreadHandler(cli.Options{Out: out, OutputDir: outDir})

		h.Deliver(ctx, "", &task.Result{
			Kind:  task.ResultImage,
			Media: &task.Media{Data: []byte("x"), MimeType: "image/png", Filename: "../../image.png"},
		}, &task.Record{ID: "../escaped"})

		Expect(filepath.Join(dir, "escaped-image.png")).NotTo(BeAnExistingFile())
		Expect(filepath.Join(dir, "image.png")).NotTo(BeAnExistingFile())
		entries, err := os.ReadDir(outDir)
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(1))
		Expect(entries[0].Name()).To(Equal("_escaped-_.._image.png"))
	})

	It("writes generated images to the output directory", func() {
		h.Deliver(ctx, "", &task.Result{
			Kind:          task.ResultImage,
			Model:         "dall-e-3",
			Prompt:        "robot",
			RevisedPrompt: "a friendly robot",
			Media:         &task.Media{Data: []byte("png-bytes"), MimeType: "image/png", Filename: "image.png"},
		}, &task.Record{ID: "draw"})

		path := filepath.Join(dir, "draw-image.png")
		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal("png-bytes"))
		Expect(out.String()).To(ContainSubstring("🎨 [dall-e-3] a friendly robot"))
		Expect(out.String()).To(ContainSubstring(path))
	})

	It("prints the url of media that was not downloaded", func() {
		h.Deliver(ctx, "", &task.Result{
			Kind:     task.ResultVideo,
			Model:    "veo",
			Prompt:   "waves",
			Duration: 5,
			Media:    &task.Media{URL: "https://cdn.example/v.mp4"},
		}, &task.Record{ID: "clip"})
		Expect(out.String()).To(ContainSubstring("🎬 [veo] waves (5s)"))
		Expect(out.String()).To(ContainSubstring("https://cdn.example/v.mp4"))
	})

	It("reports media results it cannot deliver", func() {
		h.Deliver(ctx, "", &task.Result{Kind: task.ResultImage, Model: "m"}, &task.Record{ID: "x"})
		Expect(out.String()).To(ContainSubstring("❌ error sending task result"))
	})

	It("prints notices", func() {
		Expect(h.Say(ctx, "⚠️ Sorry")).To(Succeed())
		Expect(out.String()).To(ContainSubstring("⚠️ Sorry"))
	})
})
