package streamers

import (
	"context"
	"unicode/utf8"
)

const (
	// DefaultChunkSize is roughly how many characters are added between message edits
	DefaultChunkSize = 800

	// DefaultCursor marks a message that is still being written
	DefaultCursor = ":robot_face:"
)

// Poster posts and edits plain messages in a thread
type Poster interface {
	Post(ctx context.Context, text string) (Handle, error)
	Edit(ctx context.Context, h Handle, text string) error
}

// StreamOptions controls StreamText
type StreamOptions struct {
	ChunkSize int    // defaults to DefaultChunkSize
	MaxLen    int    // defaults to DefaultMaxMessageLen
	Cursor    string // appended while more text follows; empty disables
}

// StreamText writes content into the message h a chunk at a time, continuing
// in new messages whenever the current one grows past MaxLen. It returns the
// handle of the last message written.
func StreamText(ctx context.Context, p Poster, h Handle, content string, opts StreamOptions) (Handle, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.MaxLen <= 0 {
		opts.MaxLen = DefaultMaxMessageLen
	}

	w := &streamWriter{p: p, h: h, opts: opts}
	for _, chunk := range chunks(content, opts.ChunkSize) {
		w.message += chunk
		if err := w.flush(ctx, true); err != nil {
			return w.h, err
		}
	}
	if err := w.flush(ctx, false); err != nil {
		return w.h, err
	}
	return w.h, nil
}

type streamWriter struct {
	p       Poster
	h       Handle
	opts    StreamOptions
	message string
}

func (w *streamWriter) decorate(text string, more bool) string {
	if more && w.opts.Cursor != "" {
		return text + " " + w.opts.Cursor
	}
	return text
}

// flush edits the current message, rolling over to new messages while it is too long
func (w *streamWriter) flush(ctx context.Context, more bool) error {
	for utf8.RuneCountInString(w.message) > w.opts.MaxLen {
		head, rest := SplitMessage(w.message, w.opts.MaxLen)
		if err := w.p.Edit(ctx, w.h, head); err != nil {
			return err
		}
		h, err := w.p.Post(ctx, w.decorate(rest, true))
		if err != nil {
			return err
		}
		w.h = h
		w.message = rest
	}
	return w.p.Edit(ctx, w.h, w.decorate(w.message, more))
}

// chunks cuts s into pieces of at most size runes
func chunks(s string, size int) []string {
	var out []string
	runes := []rune(s)
	for len(runes) > size {
		out = append(out, string(runes[:size]))
		runes = runes[size:]
	}
	if len(runes) > 0 {
		out = append(out, string(runes))
	}
	return out
}
