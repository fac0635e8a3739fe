package wsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"

	"threadpilot/config"
	"threadpilot/store"
	"threadpilot/streamers"
	"threadpilot/task"
)

const (
	writeWait      = 10 * time.Second
	requestTimeout = 30 * time.Second
)

// ErrNotConnected is returned when sending without a live connection
var ErrNotConnected = errors.New("not connected to gateway")

// Handler processes one chat message. workflow.Controller satisfies it.
type Handler interface {
	Handle(ctx context.Context, message string, reqCtx *task.RequestContext, out streamers.ThreadHandler)
}

// RequestHandler processes an incoming request from the gateway and returns the response.
type RequestHandler func(env *Envelope) (*Envelope, error)

// Options configures a Client
type Options struct {
	Gateway      *config.GatewayConfig
	Stores       *store.Bundle
	Handler      Handler
	Stream       streamers.StreamOptions
	History      int // messages kept per stored conversation
	Version      string
	Capabilities []string // advertised on register, e.g. task types
	Logger       hclog.Logger
}

// Client manages the websocket connection from the bot to the chat gateway.
type Client struct {
	opts Options
	log  hclog.Logger

	mu         sync.Mutex
	conn       *conn
	pending    map[string]chan *Envelope // requestID → response channel
	instanceID string
	botUserID  string

	handlers map[MessageType]RequestHandler
	inflight sync.WaitGroup

	ctx  context.Context
	stop context.CancelFunc
}

// conn is the state of a single websocket connection
type conn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
}

// NewClient creates a new gateway client.
func NewClient(opts Options) *Client {
	if opts.Logger == nil {
		opts.Logger = hclog.NewNullLogger()
	}
	ctx, stop := context.WithCancel(context.Background())
	c := &Client{
		opts:     opts,
		log:      opts.Logger,
		pending:  make(map[string]chan *Envelope),
		handlers: make(map[MessageType]RequestHandler),
		ctx:      ctx,
		stop:     stop,
	}
	c.registerHandlers()
	return c
}

// Connect dials the gateway, starts the read/write pumps and registers.
func (c *Client) Connect(ctx context.Context) error {
	url := c.opts.Gateway.URL
	c.log.Info("connecting to gateway", "url", url)

	header := http.Header{}
	if c.opts.Gateway.Token != "" {
		header.Set("Authorization", "Bearer "+c.opts.Gateway.Token)
	}
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}

	cn := &conn{ws: ws, send: make(chan []byte, 256), done: make(chan struct{})}
	c.mu.Lock()
	c.conn = cn
	c.mu.Unlock()

	// Pumps first: register needs them to send and receive
	go c.readPump(cn)
	go c.writePump(cn)

	if err := c.register(ctx); err != nil {
		ws.Close()
		return fmt.Errorf("register: %w", err)
	}

	c.log.Info("registered with gateway", "instance_id", c.InstanceID())
	return nil
}

// Run blocks until the connection drops or the client is closed.
func (c *Client) Run() error {
	c.mu.Lock()
	cn := c.conn
	c.mu.Unlock()
	if cn == nil {
		return ErrNotConnected
	}
	select {
	case <-cn.done:
		return fmt.Errorf("connection closed")
	case <-c.ctx.Done():
		return nil
	}
}

// Serve connects and runs until ctx is cancelled, redialing after dropped
// connections when the gateway config enables it.
func (c *Client) Serve(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.ctx.Done():
		}
	}()

	delay := c.opts.Gateway.ReconnectDelayDuration()
	for {
		err := c.Connect(ctx)
		if err == nil {
			err = c.Run()
		}
		if c.ctx.Err() != nil {
			return nil
		}
		if !c.opts.Gateway.Reconnect() {
			return err
		}

		c.log.Warn("gateway connection lost, reconnecting", "error", err, "delay", delay)
		select {
		case <-time.After(delay):
		case <-c.ctx.Done():
			return nil
		}
	}
}

// Close shuts down the client and waits for in-flight requests to finish.
func (c *Client) Close() {
	c.stop()
	c.mu.Lock()
	cn := c.conn
	c.mu.Unlock()
	if cn != nil {
		cn.ws.Close()
	}
	c.inflight.Wait()
}

// InstanceID returns the ID assigned by the gateway.
func (c *Client) InstanceID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instanceID
}

func (c *Client) register(ctx context.Context) error {
	resp, err := c.Request(ctx, TypeRegister, &RegisterPayload{
		InstanceName: c.opts.Gateway.InstanceName,
		Version:      c.opts.Version,
		Capabilities: c.opts.Capabilities,
	})
	if err != nil {
		return err
	}

	var ack RegisterAckPayload
	if err := DecodePayload(resp, &ack); err != nil {
		return fmt.Errorf("decode register ack: %w", err)
	}
	if !ack.Accepted {
		return fmt.Errorf("registration rejected: %s", ack.Reason)
	}

	c.mu.Lock()
	c.instanceID = ack.InstanceID
	c.botUserID = ack.BotUserID
	c.mu.Unlock()
	return nil
}

func (c *Client) readPump(cn *conn) {
	defer func() {
		close(cn.done)
		cn.ws.Close()
	}()

	pongWait := 2 * c.opts.Gateway.HeartbeatDuration()
	cn.ws.SetReadDeadline(time.Now().Add(pongWait))
	cn.ws.SetPongHandler(func(string) error {
		cn.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := cn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("websocket read error", "error", err)
			}
			return
		}
		cn.ws.SetReadDeadline(time.Now().Add(pongWait))

		var env Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.log.Warn("invalid message from gateway", "error", err)
			continue
		}

		c.dispatch(&env)
	}
}

func (c *Client) writePump(cn *conn) {
	ticker := time.NewTicker(c.opts.Gateway.HeartbeatDuration())
	defer func() {
		ticker.Stop()
		cn.ws.Close()
	}()

	for {
		select {
		case message := <-cn.send:
			cn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cn.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			cn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-cn.done:
			return
		case <-c.ctx.Done():
			cn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			cn.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) dispatch(env *Envelope) {
	// Responses to our own requests
	if env.RequestID != "" {
		c.mu.Lock()
		ch, ok := c.pending[env.RequestID]
		c.mu.Unlock()
		if ok {
			ch <- env
			return
		}
	}

	handler, ok := c.handlers[env.Type]
	if !ok {
		c.log.Debug("unhandled message type from gateway", "type", env.Type)
		return
	}
	resp, err := handler(env)
	if err != nil {
		c.log.Warn("gateway request failed", "type", env.Type, "error", err)
		if env.RequestID == "" {
			return
		}
		errResp, _ := NewError(env.RequestID, "handler_error", err.Error())
		c.sendEnvelope(errResp)
		return
	}
	if resp != nil {
		c.sendEnvelope(resp)
	}
}

func (c *Client) sendEnvelope(env *Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}

	c.mu.Lock()
	cn := c.conn
	c.mu.Unlock()
	if cn == nil {
		return ErrNotConnected
	}

	select {
	case cn.send <- data:
		return nil
	case <-cn.done:
		return ErrNotConnected
	}
}

// SendEvent sends a one-way event to the gateway (no response expected).
func (c *Client) SendEvent(env *Envelope) error {
	return c.sendEnvelope(env)
}

// Request sends a typed request and waits for its response. Error
// responses from the gateway are returned as errors.
func (c *Client) Request(ctx context.Context, t MessageType, payload any) (*Envelope, error) {
	env, err := NewRequest(t, payload)
	if err != nil {
		return nil, err
	}
	resp, err := c.sendRequest(ctx, env)
	if err != nil {
		return nil, err
	}
	if resp.Type == TypeError {
		var e ErrorPayload
		if err := DecodePayload(resp, &e); err != nil {
			return nil, fmt.Errorf("%s failed", t)
		}
		return nil, fmt.Errorf("%s failed: %s: %s", t, e.Code, e.Message)
	}
	return resp, nil
}

func (c *Client) sendRequest(ctx context.Context, env *Envelope) (*Envelope, error) {
	ch := make(chan *Envelope, 1)

	c.mu.Lock()
	c.pending[env.RequestID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, env.RequestID)
		c.mu.Unlock()
	}()

	if err := c.sendEnvelope(env); err != nil {
		return nil, err
	}

	timer := time.NewTimer(requestTimeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		return resp, nil
	case <-timer.C:
		return nil, fmt.Errorf("%s request timed out", env.Type)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
