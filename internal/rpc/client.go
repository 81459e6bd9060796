package rpc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sony/gobreaker"
)

var (
	ErrNotConnected = errors.New("gateway is not connected")
	ErrClosed       = errors.New("rpc client closed")
)

// Caller issues one request and waits for its response frame.
type Caller interface {
	Call(ctx context.Context, method string, params any) (Response, error)
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.dialer.HandshakeTimeout = d
		}
	}
}

func WithBreaker(settings gobreaker.Settings) Option {
	return func(c *Client) {
		c.breakerSettings = &settings
	}
}

// Client is a WebSocket RPC client. Calls may be issued from any goroutine; a
// single reader goroutine per connection routes response frames by id.
type Client struct {
	url    string
	dialer websocket.Dialer
	logger *slog.Logger

	breakerSettings *gobreaker.Settings

	mu      sync.Mutex
	breaker *gobreaker.CircuitBreaker
	conn    *websocket.Conn
	pending map[string]chan Response
	closed  bool

	writeMu sync.Mutex
	changes chan struct{}
}

func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:     strings.TrimSpace(url),
		dialer:  websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		logger:  slog.Default(),
		pending: make(map[string]chan Response),
		changes: make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breakerSettings == nil {
		settings := defaultBreakerSettings(c.url)
		c.breakerSettings = &settings
	}
	c.breaker = gobreaker.NewCircuitBreaker(*c.breakerSettings)
	return c
}

func defaultBreakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
}

func (c *Client) URL() string {
	return c.url
}

func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Changes fires after every connect or disconnect. Bursts coalesce, so
// receivers should read Connected for the current state.
func (c *Client) Changes() <-chan struct{} {
	return c.changes
}

func (c *Client) notify() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.conn != nil {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	if c.url == "" {
		return errors.New("gateway url is empty")
	}
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial gateway %s: %w", c.url, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClosed
	}
	if c.conn != nil {
		c.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	c.conn = conn
	// A fresh connection starts with a closed breaker.
	c.breaker = gobreaker.NewCircuitBreaker(*c.breakerSettings)
	c.mu.Unlock()

	c.logger.Info("gateway connected", "url", c.url)
	c.notify()
	go c.readLoop(conn)
	return nil
}

// Maintain keeps the connection up until ctx ends or the client is closed.
func (c *Client) Maintain(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if !c.Connected() {
			dialCtx, cancel := context.WithTimeout(ctx, interval)
			err := c.Connect(dialCtx)
			cancel()
			if errors.Is(err, ErrClosed) {
				return
			}
			if err != nil && ctx.Err() == nil {
				c.logger.Debug("gateway dial failed", "url", c.url, "error", err)
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *Client) Call(ctx context.Context, method string, params any) (Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	breaker, connected := c.breaker, c.conn != nil
	c.mu.Unlock()
	if !connected {
		return Response{}, fmt.Errorf("%s: %w", method, ErrNotConnected)
	}
	out, err := breaker.Execute(func() (interface{}, error) {
		return c.call(ctx, method, params)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Response{}, fmt.Errorf("%s: %w", method, err)
		}
		return Response{}, err
	}
	return out.(Response), nil
}

func (c *Client) call(ctx context.Context, method string, params any) (Response, error) {
	raw, err := encodeParams(params)
	if err != nil {
		return Response{}, err
	}
	req := Request{
		Type:   FrameRequest,
		ID:     uuid.NewString(),
		Method: method,
		Params: raw,
	}
	data, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("encode %s request: %w", method, err)
	}

	ch := make(chan Response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Response{}, ErrClosed
	}
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return Response{}, fmt.Errorf("%s: %w", method, ErrNotConnected)
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	deadline, _ := ctx.Deadline()
	_ = conn.SetWriteDeadline(deadline)
	err = conn.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(req.ID)
		return Response{}, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return Response{}, fmt.Errorf("%s: %w", method, ErrNotConnected)
		}
		return resp, nil
	case <-ctx.Done():
		c.forget(req.ID)
		return Response{}, fmt.Errorf("%s: %w", method, ctx.Err())
	}
}

func (c *Client) forget(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.drop(conn, err)
			return
		}
		var resp Response
		if err := json.Unmarshal(data, &resp); err != nil {
			c.logger.Warn("discarding malformed frame", "error", err)
			continue
		}
		if resp.Type != FrameResponse {
			continue
		}
		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()
		if ok {
			ch <- resp
		}
	}
}

func (c *Client) drop(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	pending := c.pending
	c.pending = make(map[string]chan Response)
	closed := c.closed
	c.mu.Unlock()

	for _, ch := range pending {
		close(ch)
	}
	_ = conn.Close()
	if !closed {
		c.logger.Warn("gateway disconnected", "url", c.url, "error", cause)
	}
	c.notify()
}

func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return conn.Close()
}
