package wsbridge

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"threadpilot/streamers"
	"threadpilot/task"
)

// requester sends a request over the gateway connection and waits for the response
type requester interface {
	Request(ctx context.Context, t MessageType, payload any) (*Envelope, error)
}

// ThreadHandler implements streamers.ThreadHandler for one chat thread on the gateway.
// Message handles are the gateway's message timestamps.
type ThreadHandler struct {
	client   requester
	channel  string
	threadTS string
	stream   streamers.StreamOptions
	log      hclog.Logger
}

// NewThreadHandler creates a handler replying in channel under threadTS.
func NewThreadHandler(client requester, channel, threadTS string, stream streamers.StreamOptions, log hclog.Logger) *ThreadHandler {
	if log == nil {
		log = hclog.NewNullLogger()
	}
	return &ThreadHandler{
		client:   client,
		channel:  channel,
		threadTS: threadTS,
		stream:   stream,
		log:      log,
	}
}

// Post posts a new message to the thread
func (h *ThreadHandler) Post(ctx context.Context, text string) (streamers.Handle, error) {
	resp, err := h.client.Request(ctx, TypePost, &PostPayload{
		Channel:  h.channel,
		ThreadTS: h.threadTS,
		Text:     text,
	})
	if err != nil {
		return "", err
	}
	var result PostResultPayload
	if err := DecodePayload(resp, &result); err != nil {
		return "", fmt.Errorf("decode post result: %w", err)
	}
	if result.TS == "" {
		return "", fmt.Errorf("gateway returned no message ts")
	}
	return streamers.Handle(result.TS), nil
}

// Edit replaces the text of a posted message
func (h *ThreadHandler) Edit(ctx context.Context, handle streamers.Handle, text string) error {
	_, err := h.client.Request(ctx, TypeUpdate, &UpdatePayload{
		Channel: h.channel,
		TS:      string(handle),
		Text:    text,
	})
	return err
}

func (h *ThreadHandler) Start(ctx context.Context, text string) (streamers.Handle, error) {
	return h.Post(ctx, text)
}

func (h *ThreadHandler) Update(ctx context.Context, handle streamers.Handle, text string) error {
	return h.Edit(ctx, handle, text)
}

func (h *ThreadHandler) Say(ctx context.Context, text string) error {
	_, err := h.Post(ctx, text)
	return err
}

// Deliver streams text results into a new message and uploads media results.
// Failures are reported in the thread.
func (h *ThreadHandler) Deliver(ctx context.Context, _ streamers.Handle, result *task.Result, rec *task.Record) {
	var err error
	if streamers.IsMedia(result) {
		err = h.upload(ctx, result)
	} else {
		err = h.streamText(ctx, result)
	}
	if err == nil {
		return
	}

	h.log.Error("failed to deliver task result", "task_id", rec.ID, "task_type", rec.Type, "error", err)
	if sayErr := h.Say(ctx, streamers.DeliveryFailed(err)); sayErr != nil {
		h.log.Error("failed to report delivery failure", "task_id", rec.ID, "error", sayErr)
	}
}

func (h *ThreadHandler) streamText(ctx context.Context, result *task.Result) error {
	placeholder := h.stream.Cursor
	if placeholder == "" {
		placeholder = streamers.TextPrefix
	}
	handle, err := h.Post(ctx, placeholder)
	if err != nil {
		return err
	}
	_, err = streamers.StreamText(ctx, h, handle, streamers.ResultText(result), h.stream)
	return err
}

func (h *ThreadHandler) upload(ctx context.Context, result *task.Result) error {
	media := result.Media
	if media == nil {
		return fmt.Errorf("result has no media")
	}
	if len(media.Data) == 0 && media.URL == "" {
		return fmt.Errorf("result media has neither data nor url")
	}

	_, err := h.client.Request(ctx, TypeUpload, &UploadPayload{
		Channel:  h.channel,
		ThreadTS: h.threadTS,
		Filename: media.Filename,
		MimeType: media.MimeType,
		Title:    streamers.Caption(result),
		Data:     media.Data,
		URL:      media.URL,
	})
	return err
}
