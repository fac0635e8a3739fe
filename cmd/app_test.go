package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"threadpilot/config"
	"threadpilot/streamers/cli"
	"threadpilot/task"
)

var _ = Describe("app wiring", func() {
	var (
		openai *fakeOpenAI
		dir    string
		tmp    string
	)

	configHCL := func(baseURL, tmp string) string {
		return fmt.Sprintf(`
variable "openai_key" {
  default = "test-key"
}

model "openai" {
  provider       = "openai"
  allowed_models = ["gpt_4o", "gpt_4o_mini"]
  api_key        = vars.openai_key
  base_url       = %q
}

model "claude" {
  provider       = "anthropic"
  allowed_models = ["claude_sonnet_4"]
  api_key        = "anthropic-key"
}

bot {
  reasoning_model = models.openai.gpt_4o_mini
  text_model      = models.openai.gpt_4o
  output_dir      = %q
}

storage {
  backend = "sqlite"
  path    = %q
}

logging {
  level    = "debug"
  file     = %q
  call_log = %q
}
`, baseURL, tmp, filepath.Join(tmp, "store.db"), filepath.Join(tmp, "bot.log"), filepath.Join(tmp, "calls.jsonl"))
	}

	BeforeEach(func() {
		openai = newFakeOpenAI("hello from model")
		tmp = GinkgoT().TempDir()
		dir = writeFixtures(map[string]string{"bot.hcl": configHCL(openai.srv.URL+"/", tmp)})
	})

	It("answers a message end to end and records the request", func() {
		a, err := loadApp(context.Background(), dir)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(a.Close)

		var out bytes.Buffer
		handler := cli.NewThreadHandler(cli.Options{Out: &out})
		a.controller.Handle(context.Background(), "say hi", &task.RequestContext{UserID: "cli"}, handler)
		handler.Done()

		Expect(out.String()).To(ContainSubstring("💭 hello from model"))
		// classification falls back on the unparsable reply, then one text task
		Expect(openai.calls.Load()).To(Equal(int32(2)))

		requests, total, err := a.stores.Runs.ListRequests(10, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(1))
		Expect(requests[0].Failed).To(BeFalse())
	})

	It("writes logs and the call log to the configured files", func() {
		a, err := loadApp(context.Background(), dir)
		Expect(err).NotTo(HaveOccurred())

		handler := cli.NewThreadHandler(cli.Options{Out: &bytes.Buffer{}})
		a.controller.Handle(context.Background(), "say hi", nil, handler)
		a.Close()

		logs, err := os.ReadFile(filepath.Join(tmp, "bot.log"))
		Expect(err).NotTo(HaveOccurred())
		Expect(string(logs)).To(ContainSubstring("processing request"))

		calls, err := os.ReadFile(filepath.Join(tmp, "calls.jsonl"))
		Expect(err).NotTo(HaveOccurred())
		Expect(bytes.Count(calls, []byte("\n"))).To(Equal(2))
	})

	It("uses the bot stream settings", func() {
		a, err := loadApp(context.Background(), dir)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(a.Close)

		opts := a.streamOptions()
		Expect(opts.ChunkSize).To(Equal(800))
		Expect(opts.MaxLen).To(Equal(3000))
		Expect(opts.Cursor).To(Equal(":robot_face:"))
	})

	It("fails on an invalid config", func() {
		bad := writeFixtures(map[string]string{"bot.hcl": `bot {}`})
		_, err := loadApp(context.Background(), bad)
		Expect(err).To(HaveOccurred())
	})

	It("logs to stderr without a logging block", func() {
		log, closer, err := newLogger(nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(closer).To(BeNil())
		Expect(log.IsInfo()).To(BeTrue())
		Expect(log.IsDebug()).To(BeFalse())
	})

	It("honours the configured level", func() {
		log, closer, err := newLogger(&config.LoggingConfig{Level: "warn", File: filepath.Join(tmp, "warn.log")})
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(closer.Close)
		Expect(log.IsWarn()).To(BeTrue())
		Expect(log.IsInfo()).To(BeFalse())
	})
})

var _ = Describe("readMedia", func() {
	It("loads an image with its mime type", func() {
		path := filepath.Join(GinkgoT().TempDir(), "cat.png")
		Expect(os.WriteFile(path, []byte("png"), 0644)).To(Succeed())

		media, err := readMedia(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(media.MimeType).To(Equal("image/png"))
		Expect(media.Filename).To(Equal("cat.png"))
		Expect(media.Data).To(Equal([]byte("png")))
	})

	It("rejects files that are not images", func() {
		path := filepath.Join(GinkgoT().TempDir(), "notes.txt")
		Expect(os.WriteFile(path, []byte("text"), 0644)).To(Succeed())

		_, err := readMedia(path)
		Expect(err).To(MatchError(ContainSubstring("is not an image")))
	})
})

var _ = Describe("capabilities", func() {
	It("advertises every task type", func() {
		Expect(capabilities()).To(HaveLen(len(task.AllTypes)))
		Expect(capabilities()).To(ContainElement("text_generation"))
	})
})
