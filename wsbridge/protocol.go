package wsbridge

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// MessageType names an envelope on the gateway connection
type MessageType string

const (
	TypeRegister     MessageType = "register"
	TypeRegisterAck  MessageType = "register_ack"
	TypeHeartbeat    MessageType = "heartbeat"
	TypeHeartbeatAck MessageType = "heartbeat_ack"
	TypeMessage      MessageType = "message"
	TypePost         MessageType = "post"
	TypePostResult   MessageType = "post_result"
	TypeUpdate       MessageType = "update"
	TypeUpdateResult MessageType = "update_result"
	TypeUpload       MessageType = "upload"
	TypeUploadResult MessageType = "upload_result"
	TypeError        MessageType = "error"
)

// Envelope is the frame of every websocket message. Requests and their
// responses share a RequestID; events carry none.
type Envelope struct {
	Type      MessageType     `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewRequest builds a request envelope with a fresh request ID
func NewRequest(t MessageType, payload any) (*Envelope, error) {
	return newEnvelope(t, uuid.New().String(), payload)
}

// NewResponse builds the response to the request with requestID
func NewResponse(requestID string, t MessageType, payload any) (*Envelope, error) {
	return newEnvelope(t, requestID, payload)
}

// NewEvent builds a one-way envelope
func NewEvent(t MessageType, payload any) (*Envelope, error) {
	return newEnvelope(t, "", payload)
}

// NewError builds an error response
func NewError(requestID, code, message string) (*Envelope, error) {
	return newEnvelope(TypeError, requestID, &ErrorPayload{Code: code, Message: message})
}

func newEnvelope(t MessageType, requestID string, payload any) (*Envelope, error) {
	env := &Envelope{Type: t, RequestID: requestID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", t, err)
		}
		env.Payload = raw
	}
	return env, nil
}

// DecodePayload unmarshals the envelope payload into v
func DecodePayload(env *Envelope, v any) error {
	if len(env.Payload) == 0 {
		return fmt.Errorf("%s envelope has no payload", env.Type)
	}
	return json.Unmarshal(env.Payload, v)
}

type RegisterPayload struct {
	InstanceName string   `json:"instance_name"`
	Version      string   `json:"version"`
	Capabilities []string `json:"capabilities,omitempty"`
}

type RegisterAckPayload struct {
	Accepted   bool   `json:"accepted"`
	Reason     string `json:"reason,omitempty"`
	InstanceID string `json:"instance_id,omitempty"`
	BotUserID  string `json:"bot_user_id,omitempty"` // used to ignore the bot's own messages
}

type HeartbeatAckPayload struct{}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MessagePayload is a chat message received by the gateway
type MessagePayload struct {
	ClientMsgID string          `json:"client_msg_id,omitempty"`
	Channel     string          `json:"channel"`
	User        string          `json:"user"`
	UserName    string          `json:"user_name,omitempty"`
	Text        string          `json:"text"`
	TS          string          `json:"ts"`
	ThreadTS    string          `json:"thread_ts,omitempty"`
	BotID       string          `json:"bot_id,omitempty"`
	Subtype     string          `json:"subtype,omitempty"`
	Thread      []ThreadEntry   `json:"thread,omitempty"`
	Files       []FileReference `json:"files,omitempty"`
}

// ThreadEntry is an earlier message of the thread, oldest first
type ThreadEntry struct {
	User     string `json:"user"`
	UserName string `json:"user_name,omitempty"`
	Text     string `json:"text"`
	BotID    string `json:"bot_id,omitempty"`
}

// FileReference is an attachment. URL may require the file bearer token.
type FileReference struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimetype,omitempty"`
	URL      string `json:"url_private,omitempty"`
	Base64   string `json:"base64,omitempty"`
}

type PostPayload struct {
	Channel  string `json:"channel"`
	ThreadTS string `json:"thread_ts,omitempty"`
	Text     string `json:"text"`
}

type PostResultPayload struct {
	TS string `json:"ts"`
}

type UpdatePayload struct {
	Channel string `json:"channel"`
	TS      string `json:"ts"`
	Text    string `json:"text"`
}

type UploadPayload struct {
	Channel  string `json:"channel"`
	ThreadTS string `json:"thread_ts,omitempty"`
	Filename string `json:"filename"`
	MimeType string `json:"mimetype,omitempty"`
	Title    string `json:"title,omitempty"`
	Data     []byte `json:"data,omitempty"` // base64 in JSON
	URL      string `json:"url,omitempty"`  // when only a remote copy exists
}

type UploadResultPayload struct {
	FileID string `json:"file_id,omitempty"`
}
