package config_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"threadpilot/config"
)

const geminiModelHCL = `
model "gemini" {
  provider       = "gemini"
  allowed_models = ["gemini_2_5_flash"]
  api_key        = vars.test_api_key
}
`

var _ = Describe("Bot", func() {
	It("applies defaults", func() {
		_, f := writeFixture("config.hcl", fullBaseHCL())
		cfg, err := config.LoadAndValidate(f)
		Expect(err).NotTo(HaveOccurred())

		bot := cfg.Bot
		Expect(bot.TextModel).To(Equal("openai.gpt_4o"))
		Expect(bot.ImageModel).To(Equal("dall-e-3"))
		Expect(bot.ImageSize).To(Equal("1024x1024"))
		Expect(bot.ImageQuality).To(Equal("hd"))
		Expect(bot.ImageStyle).To(Equal("vivid"))
		Expect(bot.VideoDuration).To(Equal(5))
		Expect(bot.MaxContextChars).To(Equal(4000))
		Expect(bot.Cursor).To(Equal(":robot_face:"))
		Expect(bot.MaxMessageLen).To(Equal(3000))
		Expect(bot.ChunkSize).To(Equal(800))
		Expect(bot.Temperature).To(BeNil())
	})

	It("requires a bot block", func() {
		_, f := writeFixture("config.hcl", minimalVarsHCL()+minimalModelHCL())
		_, err := config.LoadAndValidate(f)
		Expect(err).To(MatchError(ContainSubstring("bot block is required")))
	})

	It("rejects references to unknown model blocks", func() {
		_, f := writeFixture("config.hcl", minimalVarsHCL()+minimalModelHCL()+`
bot {
  reasoning_model = "missing.gpt_4o"
}
`)
		_, err := config.LoadAndValidate(f)
		Expect(err).To(MatchError(ContainSubstring("unknown model block")))
	})

	It("rejects an undeclared models reference at load time", func() {
		_, f := writeFixture("config.hcl", minimalVarsHCL()+minimalModelHCL()+`
bot {
  reasoning_model = models.openai.o3_mini
}
`)
		_, err := config.LoadFile(f)
		Expect(err).To(HaveOccurred())
	})

	It("requires gemini_model to be a gemini model", func() {
		_, f := writeFixture("config.hcl", minimalVarsHCL()+minimalModelHCL()+`
bot {
  reasoning_model = models.openai.gpt_4o
  gemini_model    = models.openai.gpt_4o_mini
}
`)
		_, err := config.LoadAndValidate(f)
		Expect(err).To(MatchError(ContainSubstring("expected gemini")))
	})

	It("accepts a full gemini setup", func() {
		_, f := writeFixture("config.hcl", minimalVarsHCL()+minimalModelHCL()+geminiModelHCL+`
bot {
  reasoning_model    = models.openai.gpt_4o
  text_model         = models.openai.gpt_4o_mini
  gemini_model       = models.gemini.gemini_2_5_flash
  gemini_image_model = "imagen-4.0-generate-preview-06-06"
  gemini_video_model = "veo-2.0-generate-001"
  temperature        = 0.7
}
`)
		cfg, err := config.LoadAndValidate(f)
		Expect(err).NotTo(HaveOccurred())
		Expect(*cfg.Bot.Temperature).To(Equal(0.7))

		ref, err := cfg.ResolveModel(cfg.Bot.GeminiModel)
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.Model.Provider).To(Equal(config.ProviderGemini))
		Expect(ref.APIName).To(Equal("gemini-2.5-flash"))
	})

	It("requires a gemini model block for gemini media", func() {
		_, f := writeFixture("config.hcl", fullBaseHCL())
		cfg, err := config.LoadFile(f)
		Expect(err).NotTo(HaveOccurred())
		cfg.Bot.GeminiVideoModel = "veo-2.0-generate-001"
		Expect(cfg.Validate()).To(MatchError(ContainSubstring("gemini model block")))
	})

	It("rejects out of range settings", func() {
		_, f := writeFixture("config.hcl", minimalVarsHCL()+minimalModelHCL()+`
bot {
  reasoning_model = models.openai.gpt_4o
  chunk_size      = 5000
}
`)
		_, err := config.LoadAndValidate(f)
		Expect(err).To(MatchError(ContainSubstring("chunk_size")))
	})
})

var _ = Describe("Model", func() {
	It("resolves references to API model names", func() {
		_, f := writeFixture("config.hcl", fullBaseHCL())
		cfg, err := config.LoadAndValidate(f)
		Expect(err).NotTo(HaveOccurred())

		ref, err := cfg.ResolveModel("openai.gpt_4o_mini")
		Expect(err).NotTo(HaveOccurred())
		Expect(ref.APIName).To(Equal("gpt-4o-mini"))
		Expect(ref.Model.APIKey).To(Equal("test-key-123"))

		_, err = cfg.ResolveModel("gpt_4o")
		Expect(err).To(HaveOccurred())
		_, err = cfg.ResolveModel("openai.o3_mini")
		Expect(err).To(MatchError(ContainSubstring("allowed_models")))
	})

	It("rejects unsupported providers and models", func() {
		m := config.Model{Name: "x", Provider: "mistral"}
		Expect(m.Validate()).To(MatchError(ContainSubstring("Unsupported provider")))

		m = config.Model{Name: "x", Provider: config.ProviderOpenAI, AllowedModels: []string{"gpt_9"}}
		Expect(m.Validate()).To(MatchError(ContainSubstring("Unsupported model")))
	})

	It("rejects duplicate model blocks", func() {
		_, f := writeFixture("config.hcl", minimalVarsHCL()+minimalModelHCL()+minimalModelHCL()+minimalBotHCL())
		_, err := config.LoadAndValidate(f)
		Expect(err).To(MatchError(ContainSubstring("declared more than once")))
	})

	It("finds the first model of a provider", func() {
		_, f := writeFixture("config.hcl", minimalVarsHCL()+minimalModelHCL()+geminiModelHCL+minimalBotHCL())
		cfg, err := config.LoadAndValidate(f)
		Expect(err).NotTo(HaveOccurred())

		m, ok := cfg.ModelForProvider(config.ProviderGemini)
		Expect(ok).To(BeTrue())
		Expect(m.Name).To(Equal("gemini"))
		_, ok = cfg.ModelForProvider(config.ProviderAnthropic)
		Expect(ok).To(BeFalse())
	})
})

var _ = Describe("Plugin", func() {
	It("parses source, version, task types and settings", func() {
		_, f := writeFixture("config.hcl", fullBaseHCL()+`
plugin "echo" {
  source     = "github.com/example/echo"
  version    = "v1.2.0"
  task_types = ["text_generation"]

  settings {
    prefix  = "echo: "
    upper   = true
    repeats = 2
  }
}
`)
		cfg, err := config.LoadAndValidate(f)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Plugins).To(HaveLen(1))

		p := cfg.Plugins[0]
		Expect(p.Name).To(Equal("echo"))
		Expect(p.IsLocal()).To(BeFalse())
		Expect(p.TaskTypes).To(Equal([]string{"text_generation"}))
		Expect(p.Settings).To(Equal(map[string]string{"prefix": "echo: ", "upper": "true", "repeats": "2"}))
	})

	It("accepts local versions", func() {
		p := config.Plugin{Name: "echo", Source: "./bin", Version: "local"}
		Expect(p.Validate()).To(Succeed())
		Expect(p.IsLocal()).To(BeTrue())
	})

	It("rejects invalid versions and task types", func() {
		p := config.Plugin{Name: "echo", Source: "s", Version: "latest"}
		Expect(p.Validate()).To(MatchError(ContainSubstring("invalid version")))

		p = config.Plugin{Name: "echo", Source: "s", Version: "v1.0.0", TaskTypes: []string{"music"}}
		Expect(p.Validate()).To(MatchError(ContainSubstring("unknown task type")))
	})

	It("requires source and version attributes", func() {
		_, f := writeFixture("config.hcl", fullBaseHCL()+`plugin "echo" { version = "local" }`)
		_, err := config.LoadFile(f)
		Expect(err).To(HaveOccurred())
	})
})
