package wsbridge_test

import (
	"context"
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"threadpilot/config"
	"threadpilot/store"
	"threadpilot/streamers"
	"threadpilot/task"
	"threadpilot/wsbridge"
)

var _ = Describe("Client", func() {
	var (
		mg      *mockGateway
		handler *fakeHandler
		stores  *store.Bundle
		gateway *config.GatewayConfig
		ctx     context.Context
	)

	newClient := func() *wsbridge.Client {
		client := wsbridge.NewClient(wsbridge.Options{
			Gateway:      gateway,
			Stores:       stores,
			Handler:      handler,
			Stream:       streamers.StreamOptions{Cursor: streamers.DefaultCursor},
			Version:      "1.2.3",
			Capabilities: []string{"text_generation", "image_generation"},
		})
		DeferCleanup(client.Close)
		return client
	}

	connect := func() *wsbridge.Client {
		client := newClient()
		Expect(client.Connect(ctx)).To(Succeed())
		return client
	}

	BeforeEach(func() {
		ctx = context.Background()
		mg = newMockGateway()
		handler = &fakeHandler{}
		stores = store.NewMemoryBundle(store.DefaultTTL)
		DeferCleanup(stores.Close)
		gateway = &config.GatewayConfig{URL: mg.wsURL(), InstanceName: "test-instance", Token: "secret", ReconnectDelay: "50ms"}
		gateway.Defaults()
	})

	Describe("registration", func() {
		It("registers with instance name, version and capabilities", func() {
			client := connect()
			Expect(client.InstanceID()).To(Equal("inst-1"))

			registers := mg.byType(wsbridge.TypeRegister)
			Expect(registers).To(HaveLen(1))
			var payload wsbridge.RegisterPayload
			Expect(wsbridge.DecodePayload(registers[0], &payload)).To(Succeed())
			Expect(payload.InstanceName).To(Equal("test-instance"))
			Expect(payload.Version).To(Equal("1.2.3"))
			Expect(payload.Capabilities).To(ConsistOf("text_generation", "image_generation"))
		})

		It("sends the gateway token when dialing", func() {
			connect()
			mg.mu.Lock()
			defer mg.mu.Unlock()
			Expect(mg.auth).To(Equal("Bearer secret"))
		})

		It("fails when the gateway rejects registration", func() {
			mg.reject = "unknown instance"
			err := newClient().Connect(ctx)
			Expect(err).To(MatchError(ContainSubstring("registration rejected: unknown instance")))
		})

		It("fails to dial a closed gateway", func() {
			mg.srv.Close()
			Expect(newClient().Connect(ctx)).To(MatchError(ContainSubstring("dial gateway")))
		})
	})

	It("acknowledges heartbeats", func() {
		connect()
		mg.send(&wsbridge.Envelope{Type: wsbridge.TypeHeartbeat, RequestID: "hb-1"})

		Eventually(func() []*wsbridge.Envelope {
			return mg.byType(wsbridge.TypeHeartbeatAck)
		}).Should(ContainElement(HaveField("RequestID", "hb-1")))
	})

	Describe("message events", func() {
		message := func(id, text string) *wsbridge.MessagePayload {
			return &wsbridge.MessagePayload{
				ClientMsgID: id,
				Channel:     "C1",
				User:        "U1",
				UserName:    "alice",
				Text:        text,
				TS:          "1700000000.000100",
			}
		}

		It("hands cleaned messages to the handler with the request context", func() {
			connect()
			mg.sendMessage(message("m1", "<@UBOT> draw a cat"))

			Eventually(handler.count).Should(Equal(1))
			call := handler.call(0)
			Expect(call.message).To(Equal("draw a cat"))
			Expect(call.reqCtx.UserID).To(Equal("U1"))
			Expect(call.reqCtx.UserName).To(Equal("alice"))
			Expect(call.reqCtx.Channel).To(Equal("C1"))
		})

		It("ignores bot messages and the bot's own user", func() {
			connect()
			bot := message("m1", "hello")
			bot.BotID = "B1"
			mg.sendMessage(bot)

			own := message("m2", "hello")
			own.User = "UBOT"
			mg.sendMessage(own)

			Consistently(handler.count, "200ms").Should(Equal(0))
		})

		It("ignores empty messages", func() {
			connect()
			mg.sendMessage(message("m1", "<@UBOT>  "))
			Consistently(handler.count, "200ms").Should(Equal(0))
		})

		It("processes a duplicated client message id once", func() {
			connect()
			mg.sendMessage(message("m1", "hello"))
			mg.sendMessage(message("m1", "hello"))

			Eventually(handler.count).Should(Equal(1))
			Consistently(handler.count, "200ms").Should(Equal(1))
		})

		It("restores the stored conversation when the event has no thread", func() {
			stored, err := json.Marshal([]task.ThreadMessage{
				{UserID: "U1", Text: "draw a dog"},
				{UserName: "assistant", Text: "🎨 [dall-e-3] a dog", FromBot: true},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(stores.Threads.Put("dm_U1", "U1", string(stored))).To(Succeed())

			connect()
			mg.sendMessage(message("m1", "make it blue"))

			Eventually(handler.count).Should(Equal(1))
			thread := handler.call(0).reqCtx.Thread
			Expect(thread).To(HaveLen(2))
			Expect(thread[1].FromBot).To(BeTrue())
		})

		It("keeps the thread sent by the gateway", func() {
			connect()
			msg := message("m1", "and now?")
			msg.ThreadTS = "1699999999.000001"
			msg.Thread = []wsbridge.ThreadEntry{{User: "U1", Text: "first"}, {User: "UBOT", Text: "answer"}}
			mg.sendMessage(msg)

			Eventually(handler.count).Should(Equal(1))
			thread := handler.call(0).reqCtx.Thread
			Expect(thread).To(HaveLen(2))
			Expect(thread[0].FromBot).To(BeFalse())
			Expect(thread[1].FromBot).To(BeTrue())
		})

		It("streams results into the thread and stores the conversation", func() {
			handler.respond = func(ctx context.Context, out streamers.ThreadHandler) {
				h, err := out.Start(ctx, "🤖 analyzing your request...")
				Expect(err).NotTo(HaveOccurred())
				Expect(out.Update(ctx, h, "✅ done")).To(Succeed())
				out.Deliver(ctx, h, &task.Result{Kind: task.ResultText, Content: "hello world"}, &task.Record{ID: "task_1", Type: task.TypeTextGeneration})
			}
			connect()
			mg.sendMessage(message("m1", "say hello"))

			Eventually(mg.messages).Should(Equal([]string{"✅ done", "💭 hello world"}))

			posts := mg.byType(wsbridge.TypePost)
			var post wsbridge.PostPayload
			Expect(wsbridge.DecodePayload(posts[0], &post)).To(Succeed())
			Expect(post.Channel).To(Equal("C1"))
			Expect(post.ThreadTS).To(Equal("1700000000.000100"))

			Eventually(func() ([]task.ThreadMessage, error) {
				return streamers.LoadThread(stores.Threads, "dm_U1")
			}).Should(Equal([]task.ThreadMessage{
				{UserID: "U1", UserName: "alice", Text: "say hello"},
				{UserName: "assistant", Text: "hello world", FromBot: true},
			}))
		})
	})

	It("reconnects after the gateway drops the connection", func() {
		client := newClient()
		done := make(chan error, 1)
		go func() { done <- client.Serve(ctx) }()

		Eventually(mg.registerCount).Should(Equal(1))
		mg.dropConnection()
		Eventually(mg.registerCount, "2s").Should(Equal(2))

		client.Close()
		Eventually(done).Should(Receive(BeNil()))
	})

	It("returns from Serve when reconnecting is disabled", func() {
		off := false
		gateway.AutoReconnect = &off
		client := newClient()
		done := make(chan error, 1)
		go func() { done <- client.Serve(ctx) }()

		Eventually(mg.registerCount).Should(Equal(1))
		mg.dropConnection()
		Eventually(done, "2s").Should(Receive(MatchError("connection closed")))
	})
})
