package client_test

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/raphaelgruber/chatterm/internal/chat"
	"github.com/raphaelgruber/chatterm/internal/client"
	"github.com/raphaelgruber/chatterm/internal/llm"
	"github.com/raphaelgruber/chatterm/internal/models"
	"github.com/raphaelgruber/chatterm/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startServer(t *testing.T) *client.Client {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	session := chat.NewController(llm.NewEcho(time.Millisecond), chat.WithLogger(logger))

	srv := httptest.NewServer(server.NewHTTP(session, nil, logger).Handler())
	t.Cleanup(srv.Close)

	return client.New(srv.URL + "/ws")
}

func TestNewEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		env      string
		want     string
	}{
		{"default", "", "", "ws://localhost:8585/ws"},
		{"env", "", "ws://chat.local/ws", "ws://chat.local/ws"},
		{"http rewritten", "http://127.0.0.1:9000/ws", "", "ws://127.0.0.1:9000/ws"},
		{"https rewritten", "https://chat.example.com/ws", "", "wss://chat.example.com/ws"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("CHATTERM_SERVER_URL", tt.env)
			assert.Equal(t, tt.want, client.New(tt.endpoint).Endpoint())
		})
	}
}

func TestAsk(t *testing.T) {
	c := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var updates int
	reply, err := c.Ask(ctx, "hello", func(models.Snapshot) { updates++ })
	require.NoError(t, err)
	assert.Equal(t, models.RoleModel, reply.Role)
	assert.Equal(t, "(turn 1) You said: hello", reply.Text)
	assert.Positive(t, updates)

	snap, err := c.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, snap.Messages, 3)
}

func TestAskRejectsBlank(t *testing.T) {
	c := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.Ask(ctx, "   ", nil)
	assert.ErrorIs(t, err, chat.ErrEmptyInput)
}

func TestReset(t *testing.T) {
	c := startServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.Ask(ctx, "hello", nil)
	require.NoError(t, err)

	snap, err := c.Reset(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, chat.DefaultTexts().ResetNotice, snap.Messages[0].Text)
}

func TestDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := client.New("ws://127.0.0.1:1/ws").Snapshot(ctx)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "websocket connect"))
}

func TestAskReturnsResetWhenDetached(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	remote := &gatedRemote{started: make(chan struct{}, 1), release: make(chan struct{})}
	session := chat.NewController(remote, chat.WithLogger(logger))

	srv := httptest.NewServer(server.NewHTTP(session, nil, logger).Handler())
	t.Cleanup(srv.Close)
	c := client.New(srv.URL + "/ws")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.Ask(ctx, "slow question", nil)
		done <- err
	}()

	<-remote.started
	session.Reset()
	close(remote.release)

	assert.ErrorIs(t, <-done, chat.ErrReset)
}

// gatedRemote holds every text stream until release is closed.
type gatedRemote struct {
	started chan struct{}
	release chan struct{}
}

func (g *gatedRemote) StreamText(ctx context.Context, _ string, _ func(string)) error {
	g.started <- struct{}{}
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *gatedRemote) GenerateImage(context.Context, string) (string, error) { return "", nil }
func (g *gatedRemote) ResetConversation()                                   {}
