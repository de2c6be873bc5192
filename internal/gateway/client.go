// Package gateway maintains the WebSocket session to the remote gateway
// service. The gateway protocol itself lives elsewhere; this client only
// exposes a generic request/response RPC and a channel of pushed events.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/openclaw/voiced/internal/types"
	"github.com/openclaw/voiced/internal/util"
)

// Sentinel errors for gateway operations.
var (
	ErrNotConnected = errors.New("gateway not connected")
	ErrClosed       = errors.New("gateway client closed")
)

const (
	dialTimeout    = 10 * time.Second
	requestTimeout = 30 * time.Second
	eventBuffer    = 32
)

// Config holds gateway connection settings.
type Config struct {
	URL   string // ws:// or wss:// endpoint
	Token string // static bearer token, used when OAuth is not configured

	// OAuth2 client-credentials settings. When TokenURL is set, tokens are
	// fetched and refreshed automatically and take precedence over Token.
	TokenURL     string
	ClientID     string
	ClientSecret string
}

// Event is a notification pushed by the gateway.
type Event struct {
	Name    string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// frame is the wire format in both directions.
type frame struct {
	Type    string          `json:"type"` // "req", "res", "event"
	ID      uint64          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client is a reconnecting gateway session. It is safe for concurrent use.
type Client struct {
	cfg    Config
	tokens oauth2.TokenSource

	mu        sync.Mutex
	conn      *websocket.Conn
	pending   map[uint64]chan frame
	nextID    uint64
	connected bool
	closed    bool

	writeMu sync.Mutex // gorilla conns allow only one concurrent writer
	events  chan Event
	stopCh  chan struct{}
	backoff *util.Backoff
}

// New creates a gateway client. Call Start to begin connecting.
func New(cfg Config) *Client {
	c := &Client{
		cfg:     cfg,
		pending: make(map[uint64]chan frame),
		events:  make(chan Event, eventBuffer),
		stopCh:  make(chan struct{}),
		backoff: util.NewBackoff(types.InitialRetryDelay, types.MaxRetryDelay),
	}

	if cfg.TokenURL != "" {
		cc := &clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		c.tokens = cc.TokenSource(context.Background())
	}

	return c
}

// Start launches the connect/reconnect loop. No-op when the URL is empty.
func (c *Client) Start() {
	if c.cfg.URL == "" {
		slog.Info("gateway URL not configured, running detached")
		return
	}
	go c.run()
}

// run dials the gateway and reads frames until closed, reconnecting with
// exponential backoff.
func (c *Client) run() {
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		if err := c.connect(); err != nil {
			delay := c.backoff.Next()
			slog.Warn("gateway connect failed", "error", err, "retry_in", delay)
			select {
			case <-time.After(delay):
				continue
			case <-c.stopCh:
				return
			}
		}

		c.backoff.Reset()
		c.readLoop()
	}
}

// connect dials the gateway and installs the connection.
func (c *Client) connect() error {
	header := http.Header{}
	if token, err := c.bearerToken(); err != nil {
		return util.WrapError("fetch gateway token", err)
	} else if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, resp, err := dialer.Dial(c.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	slog.Info("gateway connected", "url", c.cfg.URL)
	return nil
}

// bearerToken returns the OAuth2 access token when configured, falling back
// to the static token.
func (c *Client) bearerToken() (string, error) {
	if c.tokens == nil {
		return c.cfg.Token, nil
	}
	tok, err := c.tokens.Token()
	if err != nil {
		return "", err
	}
	return tok.AccessToken, nil
}

// readLoop dispatches incoming frames until the connection drops.
func (c *Client) readLoop() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			c.dropConnection(err)
			return
		}

		switch f.Type {
		case "res":
			c.mu.Lock()
			ch, ok := c.pending[f.ID]
			if ok {
				delete(c.pending, f.ID)
			}
			c.mu.Unlock()
			if ok {
				ch <- f
			}
		case "event":
			select {
			case c.events <- Event{Name: f.Event, Payload: f.Payload}:
			default:
				slog.Warn("gateway event dropped: listener too slow", "event", f.Event)
			}
		default:
			slog.Debug("ignoring unknown gateway frame", "type", f.Type)
		}
	}
}

// dropConnection tears down the current connection and fails all pending
// requests.
func (c *Client) dropConnection(cause error) {
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.connected = false
	pending := c.pending
	c.pending = make(map[uint64]chan frame)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- frame{Type: "res", Error: ErrNotConnected.Error()}
	}

	if !errors.Is(cause, ErrClosed) {
		slog.Warn("gateway connection lost", "error", cause)
	}
}

// Request performs one RPC round trip. Params may be any JSON-marshalable
// value or nil.
func (c *Client) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, util.WrapError("marshal request params", err)
	}

	c.mu.Lock()
	if !c.connected || c.conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.nextID++
	id := c.nextID
	ch := make(chan frame, 1)
	c.pending[id] = ch
	conn := c.conn
	c.mu.Unlock()

	req := frame{Type: "req", ID: id, Method: method, Params: raw}

	c.writeMu.Lock()
	err = conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, util.WrapError("send gateway request", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, requestTimeout)
		defer cancel()
	}

	select {
	case f := <-ch:
		if f.Error != "" {
			return nil, fmt.Errorf("gateway error for %s: %s", method, f.Error)
		}
		return f.Result, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	case <-c.stopCh:
		return nil, ErrClosed
	}
}

// Events returns the channel of gateway-pushed events.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Connected reports whether a gateway session is currently established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close shuts the client down. Idempotent.
func (c *Client) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	close(c.stopCh)
	c.dropConnection(ErrClosed)
}
