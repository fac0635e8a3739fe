package wsbridge

import (
	"fmt"

	"threadpilot/store"
	"threadpilot/streamers"
	"threadpilot/task"
)

func (c *Client) registerHandlers() {
	c.handlers[TypeHeartbeat] = c.handleHeartbeat
	c.handlers[TypeMessage] = c.handleMessage
}

func (c *Client) handleHeartbeat(env *Envelope) (*Envelope, error) {
	return NewResponse(env.RequestID, TypeHeartbeatAck, &HeartbeatAckPayload{})
}

// handleMessage filters and deduplicates a chat message, then hands it to the
// Handler on its own goroutine so the read pump keeps serving responses.
func (c *Client) handleMessage(env *Envelope) (*Envelope, error) {
	var msg MessagePayload
	if err := DecodePayload(env, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	c.mu.Lock()
	botUser := c.botUserID
	c.mu.Unlock()

	log := c.log.With("channel", msg.Channel, "user_id", msg.User, "ts", msg.TS)
	if isFromBot(&msg, botUser) {
		log.Debug("ignoring bot message")
		return nil, nil
	}

	text := CleanText(msg.Text)
	if text == "" && len(msg.Files) == 0 {
		log.Debug("ignoring empty message")
		return nil, nil
	}

	seen, err := c.opts.Stores.Events.Seen(dedupToken(&msg), msg.User, msg.Text)
	if err != nil {
		log.Warn("dedup check failed, processing anyway", "error", err)
	} else if seen {
		log.Info("ignoring duplicate message", "client_msg_id", msg.ClientMsgID)
		return nil, nil
	}

	reqCtx := RequestContext(&msg, botUser)
	key := store.ThreadKey(msg.ThreadTS, msg.User)
	if len(reqCtx.Thread) == 0 {
		history, err := streamers.LoadThread(c.opts.Stores.Threads, key)
		if err != nil {
			log.Warn("failed to load stored conversation", "key", key, "error", err)
		}
		reqCtx.Thread = history
	}

	out := streamers.NewStoringHandler(
		NewThreadHandler(c, msg.Channel, replyTS(&msg), c.opts.Stream, log),
		streamers.StoringOptions{
			Threads:     c.opts.Stores.Threads,
			Key:         key,
			Request:     task.ThreadMessage{UserID: msg.User, UserName: msg.UserName, Text: text},
			MaxMessages: c.opts.History,
			Logger:      log,
		},
	)

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		c.opts.Handler.Handle(c.ctx, text, reqCtx, out)
	}()
	return nil, nil
}
