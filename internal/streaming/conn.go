// Package streaming is the WebSocket transport behind streaming synthesis
// sessions.
//
// Each Conn wraps one gorilla/websocket connection. A single reader goroutine
// owns the socket's read side and hands frames to Receive over a channel,
// which lets a caller abandon Receive through its context without leaving a
// second reader behind.
package streaming

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	skerrors "github.com/AltairaLabs/speechkit/errors"
	"github.com/AltairaLabs/speechkit/logger"
)

const (
	DefaultDialTimeout      = 10 * time.Second
	DefaultWriteWait        = 10 * time.Second
	DefaultMaxMessageSize   = 16 << 20
	DefaultCloseGracePeriod = 5 * time.Second
	DefaultInboundBuffer    = 64
)

var (
	// ErrNotConnected is returned by writes on a Conn that is not open.
	ErrNotConnected = errors.New("websocket is not connected")
	// ErrClosed is returned by Connect once Close has been called.
	ErrClosed = errors.New("websocket connection is closed")
)

// MessageType distinguishes text frames from binary frames.
type MessageType int

const (
	TextMessage   MessageType = websocket.TextMessage
	BinaryMessage MessageType = websocket.BinaryMessage
)

// Message is one inbound data frame.
type Message struct {
	Type MessageType
	Data []byte
}

// ConnConfig holds dial and I/O settings. Zero values take the defaults above.
type ConnConfig struct {
	URL              string
	Headers          http.Header // sent with the handshake
	DialTimeout      time.Duration
	WriteWait        time.Duration // per-frame write deadline
	MaxMessageSize   int64
	CloseGracePeriod time.Duration
	InboundBuffer    int
	Logger           *slog.Logger // defaults to logger.Default()
}

func (c ConnConfig) withDefaults() ConnConfig {
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.WriteWait <= 0 {
		c.WriteWait = DefaultWriteWait
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = DefaultMaxMessageSize
	}
	if c.CloseGracePeriod <= 0 {
		c.CloseGracePeriod = DefaultCloseGracePeriod
	}
	if c.InboundBuffer <= 0 {
		c.InboundBuffer = DefaultInboundBuffer
	}
	if c.Logger == nil {
		c.Logger = logger.Default()
	}
	return c
}

// link is the state of one established socket.
type link struct {
	ws      *websocket.Conn
	frames  chan Message
	stopped chan struct{} // closed when the reader exits
	err     error         // reader's terminal error, valid after stopped
}

func (l *link) alive() bool {
	select {
	case <-l.stopped:
		return false
	default:
		return true
	}
}

// Conn is a single WebSocket connection. It is not reconnectable: once closed
// or broken, callers dial a new one.
type Conn struct {
	cfg ConnConfig

	mu     sync.Mutex
	link   *link
	closed bool
	quit   chan struct{}

	writeMu sync.Mutex
}

// NewConn returns an unconnected Conn.
func NewConn(cfg *ConnConfig) *Conn {
	return &Conn{cfg: cfg.withDefaults(), quit: make(chan struct{})}
}

// Dial returns a connected Conn.
func Dial(ctx context.Context, cfg *ConnConfig) (*Conn, error) {
	c := NewConn(cfg)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect performs the handshake and starts the reader. Connecting an already
// connected Conn is a no-op. Dial failures are retryable ContextualErrors
// carrying the handshake status when the server answered.
func (c *Conn) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return ErrClosed
	case c.link != nil:
		return nil
	}

	log := c.cfg.Logger
	log.DebugContext(ctx, "dialing websocket", "url", logger.RedactSensitiveData(c.cfg.URL))

	d := websocket.Dialer{
		HandshakeTimeout: c.cfg.DialTimeout,
		TLSClientConfig:  &tls.Config{MinVersion: tls.VersionTLS12},
	}
	ws, resp, err := d.DialContext(ctx, c.cfg.URL, c.cfg.Headers)
	status := 0
	if resp != nil {
		status = resp.StatusCode
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
	}
	if err != nil {
		if status != 0 {
			log.WarnContext(ctx, "websocket handshake rejected", "status", status, "error", err)
		}
		return skerrors.Newf(skerrors.ComponentTransport, "connect", "failed to connect: %w", err).
			WithStatusCode(status).
			WithRetryable(true)
	}
	ws.SetReadLimit(c.cfg.MaxMessageSize)

	l := &link{
		ws:      ws,
		frames:  make(chan Message, c.cfg.InboundBuffer),
		stopped: make(chan struct{}),
	}
	c.link = l
	go c.read(l)

	log.DebugContext(ctx, "websocket connected")
	return nil
}

func (c *Conn) read(l *link) {
	defer close(l.stopped)
	for {
		kind, data, err := l.ws.ReadMessage()
		if err != nil {
			l.err = err
			return
		}
		if kind != websocket.TextMessage && kind != websocket.BinaryMessage {
			continue
		}
		select {
		case l.frames <- Message{Type: MessageType(kind), Data: data}:
		case <-c.quit:
			return
		}
	}
}

func (c *Conn) active() *link {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.link
}

// Send JSON-encodes v into a text frame.
func (c *Conn) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return c.SendRaw(data)
}

// SendRaw writes data as a text frame.
func (c *Conn) SendRaw(data []byte) error {
	l := c.active()
	if l == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = l.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	if err := l.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Receive blocks for the next data frame. Frames already read are delivered
// before the connection's end is reported: io.EOF for a normal close by
// either side, the read error otherwise. ctx.Err() is returned if ctx ends
// first.
func (c *Conn) Receive(ctx context.Context) (Message, error) {
	c.mu.Lock()
	l, closed := c.link, c.closed
	c.mu.Unlock()
	switch {
	case closed:
		return Message{}, io.EOF
	case l == nil:
		return Message{}, ErrNotConnected
	}

	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case <-c.quit:
		return Message{}, io.EOF
	case m := <-l.frames:
		return m, nil
	case <-l.stopped:
	}

	select {
	case m := <-l.frames:
		return m, nil
	case <-c.quit:
		return Message{}, io.EOF
	default:
	}
	if l.err == nil || websocket.IsCloseError(l.err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return Message{}, io.EOF
	}
	return Message{}, l.err
}

// Close sends a close frame and tears the socket down. Repeated calls return nil.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.quit)
	l := c.link
	c.mu.Unlock()

	if l == nil {
		return nil
	}

	c.writeMu.Lock()
	_ = l.ws.SetWriteDeadline(time.Now().Add(c.cfg.CloseGracePeriod))
	_ = l.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()

	return l.ws.Close()
}

// IsOpen reports whether the socket is connected, not closed locally and its
// reader is still running.
func (c *Conn) IsOpen() bool {
	l := c.active()
	return l != nil && l.alive()
}

// IsClosed reports whether Close was called.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
