package streamers_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"threadpilot/streamers"
)

var _ = Describe("StreamText", func() {
	var (
		ctx    context.Context
		poster *fakePoster
		start  streamers.Handle
	)

	BeforeEach(func() {
		ctx = context.Background()
		poster = newFakePoster()
		var err error
		start, err = poster.Post(ctx, "thinking...")
		Expect(err).NotTo(HaveOccurred())
	})

	It("edits the message chunk by chunk and drops the cursor at the end", func() {
		content := strings.Repeat("a", 2000)
		last, err := streamers.StreamText(ctx, poster, start, content, streamers.StreamOptions{Cursor: streamers.DefaultCursor})
		Expect(err).NotTo(HaveOccurred())
		Expect(last).To(Equal(start))
		Expect(poster.edits).To(Equal(4))
		Expect(poster.final()).To(Equal([]string{content}))
	})

	It("continues in new messages past the length limit", func() {
		content := strings.Repeat("a", 5000)
		last, err := streamers.StreamText(ctx, poster, start, content, streamers.StreamOptions{Cursor: streamers.DefaultCursor})
		Expect(err).NotTo(HaveOccurred())
		Expect(last).NotTo(Equal(start))

		final := poster.final()
		Expect(final).To(HaveLen(2))
		Expect(final[0]).To(Equal(strings.Repeat("a", 3000)))
		Expect(final[1]).To(Equal(strings.Repeat("a", 2000)))
	})

	It("never leaves the cursor behind and loses no text", func() {
		content := strings.Repeat("paragraph text goes here.\n\n", 300)
		_, err := streamers.StreamText(ctx, poster, start, content, streamers.StreamOptions{
			ChunkSize: 100,
			MaxLen:    500,
			Cursor:    streamers.DefaultCursor,
		})
		Expect(err).NotTo(HaveOccurred())

		final := poster.final()
		Expect(len(final)).To(BeNumerically(">", 1))
		Expect(strings.Join(final, "")).To(Equal(content))
		for _, text := range final {
			Expect(text).NotTo(ContainSubstring(streamers.DefaultCursor))
		}
	})

	It("returns edit failures", func() {
		poster.editErr = errors.New("rate limited")
		_, err := streamers.StreamText(ctx, poster, start, "hello", streamers.StreamOptions{})
		Expect(err).To(MatchError("rate limited"))
	})
})
