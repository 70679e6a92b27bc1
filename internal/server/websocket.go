package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout   = 10 * time.Second
	wsReadTimeout    = 60 * time.Second
	wsPingInterval   = 30 * time.Second
	wsMaxMessageSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// origin checks are left to the CORS layer
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSelectMessage is the only message a client may send.
type wsSelectMessage struct {
	PoolID *int `json:"pool_id"`
}

// handleWebSocket streams snapshots over a WebSocket and accepts
// {"pool_id": N} messages to change the selection.
//
// The connection is written only from this goroutine; a reader goroutine
// handles pongs and selection messages and signals when the peer goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	connID := uuid.New().String()
	logger := s.logger.With("connection_id", connID)
	logger.Debug("websocket connected", "remote", r.RemoteAddr)

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		s.readPump(conn, logger)
	}()

	write := func(msgType int, data []byte) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		return conn.WriteMessage(msgType, data)
	}

	writeSnapshot := func(resp stateResponse) error {
		data, err := json.Marshal(resp)
		if err != nil {
			return nil
		}
		return write(websocket.TextMessage, data)
	}

	if err := writeSnapshot(newStateResponse(s.store.Latest())); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				_ = write(websocket.CloseMessage, []byte{})
				return
			}
			if err := writeSnapshot(newStateResponse(snap)); err != nil {
				logger.Debug("websocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			if err := write(websocket.PingMessage, nil); err != nil {
				logger.Debug("websocket ping failed", "error", err)
				return
			}

		case <-readDone:
			logger.Debug("websocket disconnected")
			return

		case <-r.Context().Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = write(websocket.CloseMessage, msg)
			return
		}
	}
}

// readPump reads client messages until the connection fails or closes.
func (s *Server) readPump(conn *websocket.Conn, logger *slog.Logger) {
	conn.SetReadLimit(wsMaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var msg wsSelectMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.PoolID == nil {
			logger.Debug("ignoring websocket message", "size", len(data))
			continue
		}
		if s.selector == nil {
			continue
		}
		if err := s.selector.Select(*msg.PoolID); err != nil {
			logger.Warn("websocket selection failed", "pool_id", *msg.PoolID, "error", err)
			continue
		}
		logger.Debug("pool selected", "pool_id", *msg.PoolID, "source", "websocket")
	}
}
