// Package client talks to a chat session served by "chatterm serve".
package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/chatterm/internal/chat"
	"github.com/raphaelgruber/chatterm/internal/models"
)

// ErrServer is wrapped by errors the server reports over the socket.
var ErrServer = errors.New("server error")

// Client connects to the websocket endpoint of a served session.
type Client struct {
	endpoint string
	dialer   websocket.Dialer
}

// New creates a client.
// If endpoint is empty, uses CHATTERM_SERVER_URL or defaults to ws://localhost:8585/ws.
// http and https endpoints are rewritten to ws and wss.
func New(endpoint string) *Client {
	if endpoint == "" {
		endpoint = os.Getenv("CHATTERM_SERVER_URL")
	}
	if endpoint == "" {
		endpoint = "ws://localhost:8585/ws"
	}
	endpoint = strings.Replace(endpoint, "http://", "ws://", 1)
	endpoint = strings.Replace(endpoint, "https://", "wss://", 1)

	return &Client{
		endpoint: endpoint,
		dialer: websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Endpoint returns the websocket URL the client dials.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// wsMessage mirrors the server's outbound frames.
type wsMessage struct {
	Type     string           `json:"type"`
	Snapshot *models.Snapshot `json:"snapshot,omitempty"`
	Reply    *models.Message  `json:"reply,omitempty"`
	Code     string           `json:"code,omitempty"`
	Message  string           `json:"message,omitempty"`
}

type wsCommand struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// conn is one websocket connection that closes when ctx ends.
type conn struct {
	ws        *websocket.Conn
	closeOnce sync.Once
	done      chan struct{}
}

func (c *Client) dial(ctx context.Context) (*conn, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	ws, _, err := c.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("websocket connect: %w", err)
	}

	cn := &conn{ws: ws, done: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			cn.close()
		case <-cn.done:
		}
	}()
	return cn, nil
}

func (cn *conn) close() {
	cn.closeOnce.Do(func() {
		close(cn.done)
		cn.ws.Close()
	})
}

// read returns the next snapshot, reply or error frame. Server errors are
// returned as errors.
func (cn *conn) read(ctx context.Context) (wsMessage, error) {
	for {
		var msg wsMessage
		if err := cn.ws.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return wsMessage{}, ctx.Err()
			}
			return wsMessage{}, fmt.Errorf("read message: %w", err)
		}

		switch {
		case msg.Type == "snapshot" && msg.Snapshot != nil, msg.Type == "reply" && msg.Reply != nil:
			return msg, nil
		case msg.Type == "error":
			return wsMessage{}, serverError(msg)
		default:
			// pong and unknown frames
			continue
		}
	}
}

// next reads frames until a snapshot arrives.
func (cn *conn) next(ctx context.Context) (models.Snapshot, error) {
	for {
		msg, err := cn.read(ctx)
		if err != nil {
			return models.Snapshot{}, err
		}
		if msg.Snapshot != nil {
			return *msg.Snapshot, nil
		}
	}
}

func serverError(msg wsMessage) error {
	switch msg.Code {
	case "busy":
		return chat.ErrBusy
	case "empty_input":
		return chat.ErrEmptyInput
	case "reset":
		return chat.ErrReset
	default:
		return fmt.Errorf("%w: %s: %s", ErrServer, msg.Code, msg.Message)
	}
}

// Snapshot returns the current state of the served session.
func (c *Client) Snapshot(ctx context.Context) (models.Snapshot, error) {
	cn, err := c.dial(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}
	defer cn.close()

	return cn.next(ctx)
}

// Ask submits text and blocks until the server reports the model message
// produced for it. onUpdate, if set, receives every snapshot seen while
// waiting. Returns chat.ErrReset if the conversation was reset before the
// reply arrived.
func (c *Client) Ask(ctx context.Context, text string, onUpdate func(models.Snapshot)) (models.Message, error) {
	cn, err := c.dial(ctx)
	if err != nil {
		return models.Message{}, err
	}
	defer cn.close()

	initial, err := cn.next(ctx)
	if err != nil {
		return models.Message{}, fmt.Errorf("read initial snapshot: %w", err)
	}
	if initial.IsLoading {
		return models.Message{}, chat.ErrBusy
	}

	if err := cn.ws.WriteJSON(wsCommand{Type: "submit", Text: text}); err != nil {
		return models.Message{}, fmt.Errorf("send submit: %w", err)
	}

	for {
		msg, err := cn.read(ctx)
		if err != nil {
			return models.Message{}, err
		}
		if msg.Reply != nil {
			return *msg.Reply, nil
		}
		if onUpdate != nil {
			onUpdate(*msg.Snapshot)
		}
	}
}

// Reset clears the served conversation and returns the new snapshot.
func (c *Client) Reset(ctx context.Context) (models.Snapshot, error) {
	cn, err := c.dial(ctx)
	if err != nil {
		return models.Snapshot{}, err
	}
	defer cn.close()

	if _, err := cn.next(ctx); err != nil {
		return models.Snapshot{}, fmt.Errorf("read initial snapshot: %w", err)
	}
	if err := cn.ws.WriteJSON(wsCommand{Type: "reset"}); err != nil {
		return models.Snapshot{}, fmt.Errorf("send reset: %w", err)
	}
	return cn.next(ctx)
}
