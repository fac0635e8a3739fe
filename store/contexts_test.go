package store_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"threadpilot/store"
)

var _ = Describe("EventStore", func() {
	backends(time.Hour, func(newBundle func() (*store.Bundle, func())) {
		var (
			bundle  *store.Bundle
			cleanup func()
		)

		BeforeEach(func() {
			bundle, cleanup = newBundle()
		})

		AfterEach(func() {
			cleanup()
		})

		It("reports an event as new only the first time", func() {
			seen, err := bundle.Events.Seen("msg-1", "U1", "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(BeFalse())

			seen, err = bundle.Events.Seen("msg-1", "U1", "hello")
			Expect(err).NotTo(HaveOccurred())
			Expect(seen).To(BeTrue())
		})

		It("tracks tokens independently", func() {
			Expect(bundle.Events.Seen("msg-1", "U1", "a")).To(BeFalse())
			Expect(bundle.Events.Seen("msg-2", "U1", "b")).To(BeFalse())
		})

		It("never deduplicates an empty token", func() {
			Expect(bundle.Events.Seen("", "U1", "a")).To(BeFalse())
			Expect(bundle.Events.Seen("", "U1", "a")).To(BeFalse())
		})
	})

	backends(50*time.Millisecond, func(newBundle func() (*store.Bundle, func())) {
		It("forgets tokens after the ttl", func() {
			bundle, cleanup := newBundle()
			defer cleanup()

			Expect(bundle.Events.Seen("msg-1", "U1", "a")).To(BeFalse())
			time.Sleep(120 * time.Millisecond)
			Expect(bundle.Events.Seen("msg-1", "U1", "a")).To(BeFalse())
			Expect(bundle.Events.Seen("msg-1", "U1", "a")).To(BeTrue())
		})
	})
})

var _ = Describe("ThreadStore", func() {
	It("keys threads by timestamp and direct messages by user", func() {
		Expect(store.ThreadKey("1700000000.0001", "U1")).To(Equal("1700000000.0001"))
		Expect(store.ThreadKey("", "U1")).To(Equal("dm_U1"))
	})

	backends(time.Hour, func(newBundle func() (*store.Bundle, func())) {
		var (
			bundle  *store.Bundle
			cleanup func()
		)

		BeforeEach(func() {
			bundle, cleanup = newBundle()
		})

		AfterEach(func() {
			cleanup()
		})

		It("returns ok=false for unknown keys", func() {
			_, ok, err := bundle.Threads.Get("missing")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})

		It("stores and overwrites conversations", func() {
			Expect(bundle.Threads.Put("t1", "U1", "first")).To(Succeed())
			Expect(bundle.Threads.Put("t1", "U1", "second")).To(Succeed())

			conversation, ok, err := bundle.Threads.Get("t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(conversation).To(Equal("second"))
		})

		It("rejects an empty key", func() {
			Expect(bundle.Threads.Put("", "U1", "x")).NotTo(Succeed())
		})
	})

	backends(50*time.Millisecond, func(newBundle func() (*store.Bundle, func())) {
		It("expires conversations after the ttl", func() {
			bundle, cleanup := newBundle()
			defer cleanup()

			Expect(bundle.Threads.Put("t1", "U1", "hello")).To(Succeed())
			time.Sleep(120 * time.Millisecond)

			_, ok, err := bundle.Threads.Get("t1")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeFalse())
		})
	})
})
