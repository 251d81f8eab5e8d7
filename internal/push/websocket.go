package push

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/doublesclub/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool { return true },
}

func connectedMessage(clubID model.ClubID) Message {
	msg, _ := NewMessage("connected", map[string]string{
		"status": "connected",
		"clubId": string(clubID),
	})
	return msg
}

// ServeWS upgrades the request and streams a club's events to one client
// over a WebSocket. Incoming messages are read only to process control
// frames and are otherwise ignored.
func ServeWS(w http.ResponseWriter, r *http.Request, manager *HubManager, clubID model.ClubID, userID model.UserID, logger *slog.Logger) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		logger.Warn("websocket upgrade failed",
			slog.String("club_id", string(clubID)),
			slog.Any("error", err))
		return
	}

	client := NewClient(userID, TransportWebSocket)
	client.send <- connectedMessage(clubID)
	hub := manager.Attach(clubID, client)

	go client.writePump(conn, logger)
	go client.readPump(conn, hub, logger)
}

func (c *Client) readPump(conn *websocket.Conn, hub *Hub, logger *slog.Logger) {
	defer func() {
		hub.Unregister(c)
		_ = conn.Close()
	}()
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket closed unexpectedly",
					slog.String("user_id", string(c.userID)),
					slog.Any("error", err))
			}
			return
		}
	}
}

func (c *Client) writePump(conn *websocket.Conn, logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			payload, err := json.Marshal(message)
			if err != nil {
				logger.Error("websocket message encode failed", slog.Any("error", err))
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
