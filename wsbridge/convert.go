package wsbridge

import (
	"regexp"
	"strings"

	"threadpilot/task"
)

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

// CleanText strips user mentions and surrounding whitespace from message text
func CleanText(text string) string {
	return strings.TrimSpace(mentionPattern.ReplaceAllString(text, ""))
}

func isFromBot(msg *MessagePayload, botUser string) bool {
	if msg.BotID != "" || msg.Subtype == "bot_message" {
		return true
	}
	return botUser != "" && msg.User == botUser
}

// dedupToken is the client message ID, or channel and ts for messages without one
func dedupToken(msg *MessagePayload) string {
	if msg.ClientMsgID != "" {
		return msg.ClientMsgID
	}
	return msg.Channel + ":" + msg.TS
}

// replyTS is the thread replies go to: the existing thread, or a new one under the message
func replyTS(msg *MessagePayload) string {
	if msg.ThreadTS != "" {
		return msg.ThreadTS
	}
	return msg.TS
}

// RequestContext converts a gateway message into the request context of the workflow
func RequestContext(msg *MessagePayload, botUser string) *task.RequestContext {
	reqCtx := &task.RequestContext{
		UserID:   msg.User,
		UserName: msg.UserName,
		Channel:  msg.Channel,
		ThreadTS: msg.ThreadTS,
		Media:    firstImage(msg.Files),
	}
	for _, e := range msg.Thread {
		reqCtx.Thread = append(reqCtx.Thread, task.ThreadMessage{
			UserID:   e.User,
			UserName: e.UserName,
			Text:     CleanText(e.Text),
			FromBot:  e.BotID != "" || (botUser != "" && e.User == botUser),
		})
	}
	return reqCtx
}

func firstImage(files []FileReference) *task.Media {
	for _, f := range files {
		if !strings.HasPrefix(f.MimeType, "image/") {
			continue
		}
		return &task.Media{
			URL:      f.URL,
			MimeType: f.MimeType,
			Filename: f.Name,
			Base64:   f.Base64,
		}
	}
	return nil
}
