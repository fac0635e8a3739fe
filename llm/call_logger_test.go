package llm_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"threadpilot/llm"
)

type cannedProvider struct {
	content string
	err     error
}

func (c *cannedProvider) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if c.err != nil {
		return nil, c.err
	}
	return &llm.ChatResponse{Content: c.content, Usage: llm.Usage{InputTokens: 3, OutputTokens: 5}}, nil
}

func (c *cannedProvider) ChatStream(ctx context.Context, req *llm.ChatRequest) (<-chan llm.StreamChunk, error) {
	ch := make(chan llm.StreamChunk, 2)
	ch <- llm.StreamChunk{Content: c.content}
	ch <- llm.StreamChunk{Done: true}
	close(ch)
	return ch, nil
}

func decodeLines(buf *bytes.Buffer) []map[string]any {
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var m map[string]any
		Expect(json.Unmarshal([]byte(line), &m)).To(Succeed())
		out = append(out, m)
	}
	return out
}

var _ = Describe("CallLogger", func() {
	It("writes one line per chat call with a message snapshot", func() {
		buf := &bytes.Buffer{}
		provider := llm.NewCallLoggerWriter(buf).Wrap(&cannedProvider{content: "hello there"})

		_, err := provider.Chat(context.Background(), &llm.ChatRequest{
			Model: "gpt-4o",
			Messages: []llm.Message{
				llm.NewTextMessage(llm.RoleUser, "hi"),
				llm.NewVisionMessage("what is this", &llm.ImageBlock{Data: "QUJD", MediaType: "image/jpeg"}),
			},
		})
		Expect(err).NotTo(HaveOccurred())

		lines := decodeLines(buf)
		Expect(lines).To(HaveLen(1))
		Expect(lines[0]["call"]).To(BeEquivalentTo(1))
		Expect(lines[0]["model"]).To(Equal("gpt-4o"))
		Expect(lines[0]["response_preview"]).To(Equal("hello there"))
		messages := lines[0]["messages"].([]any)
		Expect(messages[1].(map[string]any)["has_image"]).To(BeTrue())
		Expect(messages[1].(map[string]any)["image_media_type"]).To(Equal("image/jpeg"))
		Expect(lines[0]["cost_usd"]).To(BeNumerically(">", 0))
	})

	It("records errors and keeps counting", func() {
		buf := &bytes.Buffer{}
		logger := llm.NewCallLoggerWriter(buf)
		failing := logger.Wrap(&cannedProvider{err: errors.New("quota exceeded")})

		_, err := failing.Chat(context.Background(), &llm.ChatRequest{Model: "m"})
		Expect(err).To(MatchError("quota exceeded"))
		_, _ = failing.Chat(context.Background(), &llm.ChatRequest{Model: "m"})

		lines := decodeLines(buf)
		Expect(lines).To(HaveLen(2))
		Expect(lines[0]["error"]).To(Equal("quota exceeded"))
		Expect(lines[1]["call"]).To(BeEquivalentTo(2))
	})
})

var _ = Describe("CalculateCost", func() {
	It("prices known models per million tokens", func() {
		cost := llm.CalculateCost("gpt-4o", llm.Usage{InputTokens: 1_000_000, OutputTokens: 500_000})
		Expect(cost).To(BeNumerically("~", 7.5, 1e-9))
	})

	It("returns zero for unknown models", func() {
		Expect(llm.CalculateCost("mystery", llm.Usage{InputTokens: 10})).To(BeZero())
	})
})

var _ = Describe("CollectStream", func() {
	It("concatenates chunks and reports each one", func() {
		ch := make(chan llm.StreamChunk, 3)
		ch <- llm.StreamChunk{Content: "Hel"}
		ch <- llm.StreamChunk{Content: "lo"}
		ch <- llm.StreamChunk{Done: true}
		close(ch)

		var seen []string
		text, err := llm.CollectStream(ch, func(s string) { seen = append(seen, s) })
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Hello"))
		Expect(seen).To(Equal([]string{"Hel", "lo"}))
	})

	It("returns the partial text with the stream error", func() {
		ch := make(chan llm.StreamChunk, 2)
		ch <- llm.StreamChunk{Content: "par"}
		ch <- llm.StreamChunk{Error: errors.New("reset"), Done: true}
		close(ch)

		text, err := llm.CollectStream(ch, nil)
		Expect(err).To(MatchError("reset"))
		Expect(text).To(Equal("par"))
	})
})
