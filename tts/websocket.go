package tts

import (
	"context"
	"time"

	"github.com/AltairaLabs/speechkit/internal/streaming"
)

// WebSocketTransport dials the speech service over WebSocket.
type WebSocketTransport struct {
	// DialTimeout bounds the handshake. Zero uses the streaming default.
	DialTimeout time.Duration
}

// Dial connects to url.
func (t *WebSocketTransport) Dial(ctx context.Context, url string) (Connection, error) {
	conn, err := streaming.Dial(ctx, &streaming.ConnConfig{
		URL:         url,
		DialTimeout: t.DialTimeout,
	})
	if err != nil {
		return nil, err
	}
	return &wsConnection{conn: conn}, nil
}

type wsConnection struct {
	conn *streaming.Conn
}

func (c *wsConnection) SendJSON(v any) error {
	return c.conn.Send(v)
}

// Receive passes streaming's io.EOF through unchanged.
func (c *wsConnection) Receive(ctx context.Context) (Message, error) {
	msg, err := c.conn.Receive(ctx)
	if err != nil {
		return Message{}, err
	}
	return Message{Binary: msg.Type == streaming.BinaryMessage, Data: msg.Data}, nil
}

func (c *wsConnection) Close() error {
	return c.conn.Close()
}

func (c *wsConnection) IsOpen() bool {
	return c.conn.IsOpen()
}
