package task

import "time"

// Status is the lifecycle state of a Record
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Media is an attached or generated image/video
type Media struct {
	URL      string
	MimeType string
	Filename string
	Data     []byte // Raw bytes, when already downloaded
	Base64   string // Base64-encoded data (without data URL prefix), when provided by the host
}

// ThreadMessage is one message of the conversation thread the request came from
type ThreadMessage struct {
	UserID   string
	UserName string
	Text     string
	FromBot  bool
}

// RequestContext carries what the host knows about the incoming message
type RequestContext struct {
	RequestID string
	UserID    string
	UserName  string
	Channel   string
	ThreadTS  string
	Thread    []ThreadMessage
	Media     *Media
}

// ThreadLength returns the number of messages in the thread
func (c *RequestContext) ThreadLength() int {
	if c == nil {
		return 0
	}
	return len(c.Thread)
}

// HasMedia reports whether an image was attached to the request
func (c *RequestContext) HasMedia() bool {
	return c != nil && c.Media != nil
}

// ResultKind tags a Result
type ResultKind string

const (
	ResultText     ResultKind = "text"
	ResultImage    ResultKind = "image"
	ResultVideo    ResultKind = "video"
	ResultAnalysis ResultKind = "analysis"
)

// Result is the output of executing one task.
// Content is set for text and analysis results; Media, Prompt and
// RevisedPrompt for images; Media, Prompt and Duration for videos.
type Result struct {
	Kind          ResultKind
	Content       string
	Model         string
	Prompt        string
	RevisedPrompt string
	Media         *Media
	Duration      int // seconds, video only
}

// Record is the runtime instance of a task. It is owned by the execution loop.
type Record struct {
	ID          string
	Type        Type
	Description string
	Input       string
	Priority    int
	DependsOn   []string

	UserID string // requesting user, forwarded to model providers
	Thread []ThreadMessage
	Media  *Media

	Status  Status
	Result  *Result
	Err     string
	Elapsed time.Duration
}
