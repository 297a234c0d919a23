package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raphaelgruber/chatterm/internal/chat"
	"github.com/raphaelgruber/chatterm/internal/models"
)

const (
	wsPongWait   = 60 * time.Second
	wsPingEvery  = 30 * time.Second
	wsWriteWait  = 10 * time.Second
	wsOutboxSize = 32
)

type wsInbound struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type wsOutbound struct {
	Type     string           `json:"type"`
	Snapshot *models.Snapshot `json:"snapshot,omitempty"`
	Reply    *models.Message  `json:"reply,omitempty"`
	Code     string           `json:"code,omitempty"`
	Message  string           `json:"message,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// changed coalesces transitions: the writer always sends the latest snapshot.
	changed := make(chan struct{}, 1)
	notify := func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	}

	outbox := make(chan wsOutbound, wsOutboxSize)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(ctx, conn, changed, outbox)
	}()

	unsubscribe := s.session.Subscribe(func(models.Snapshot) { notify() })
	defer unsubscribe()
	notify()

	s.logger.Debug("websocket client connected", "remote", r.RemoteAddr)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Debug("websocket client disconnected", "remote", r.RemoteAddr, "error", err)
			cancel()
			<-writerDone
			return
		}

		var in wsInbound
		if err := json.Unmarshal(data, &in); err != nil {
			s.logger.Debug("websocket frame rejected", "remote", r.RemoteAddr, "error", err)
			push(ctx, outbox, wsOutbound{Type: "error", Code: "invalid_argument", Message: "malformed frame: " + err.Error()})
			continue
		}

		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "submit":
			text := in.Text
			go func() {
				reply, err := s.session.Ask(s.ctx, text)
				if err != nil {
					push(ctx, outbox, submitError(err))
					return
				}
				push(ctx, outbox, wsOutbound{Type: "reply", Reply: &reply})
			}()
		case "reset":
			s.session.Reset()
		case "ping":
			push(ctx, outbox, wsOutbound{Type: "pong"})
		case "":
			push(ctx, outbox, wsOutbound{Type: "error", Code: "invalid_argument", Message: "type is required"})
		default:
			push(ctx, outbox, wsOutbound{Type: "error", Code: "invalid_argument", Message: "unknown type " + in.Type})
		}
	}
}

func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, changed <-chan struct{}, outbox <-chan wsOutbound) {
	ticker := time.NewTicker(wsPingEvery)
	defer ticker.Stop()

	write := func(out wsOutbound) bool {
		if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
			return false
		}
		return conn.WriteJSON(out) == nil
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-changed:
			snap := s.session.Snapshot()
			if !write(wsOutbound{Type: "snapshot", Snapshot: &snap}) {
				return
			}
		case out := <-outbox:
			if !write(out) {
				return
			}
		case <-ticker.C:
			if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func push(ctx context.Context, outbox chan<- wsOutbound, out wsOutbound) {
	select {
	case outbox <- out:
	case <-ctx.Done():
	}
}

func submitError(err error) wsOutbound {
	out := wsOutbound{Type: "error", Message: err.Error()}
	switch {
	case errors.Is(err, chat.ErrBusy):
		out.Code = "busy"
	case errors.Is(err, chat.ErrEmptyInput):
		out.Code = "empty_input"
	case errors.Is(err, chat.ErrReset):
		out.Code = "reset"
	default:
		out.Code = "internal"
	}
	return out
}
