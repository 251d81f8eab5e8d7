package push

import (
	"net/http"
	"time"

	"github.com/mcoot/doublesclub/internal/model"
)

const (
	// Time between SSE keepalive comments
	keepalivePeriod = 30 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Transport names how a client is connected
type Transport string

const (
	TransportSSE       Transport = "sse"
	TransportWebSocket Transport = "websocket"
)

// Client is one connected viewer of a club
type Client struct {
	hub         *Hub
	userID      model.UserID
	transport   Transport
	send        chan Message
	connectedAt time.Time
}

// NewClient creates a client that is not yet attached to a hub
func NewClient(userID model.UserID, transport Transport) *Client {
	return &Client{
		userID:      userID,
		transport:   transport,
		send:        make(chan Message, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// Attach registers the client with the club's hub. A hub closed by cleanup
// between lookup and registration is replaced by a fresh one.
func (m *HubManager) Attach(clubID model.ClubID, client *Client) *Hub {
	for {
		hub := m.GetOrCreateHub(clubID)
		if hub.Register(client) {
			client.hub = hub
			return hub
		}
	}
}

// ServeSSE streams a club's events to one client as server-sent events
func ServeSSE(w http.ResponseWriter, r *http.Request, manager *HubManager, clubID model.ClubID, userID model.UserID) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := NewClient(userID, TransportSSE)
	hub := manager.Attach(clubID, client)
	defer hub.Unregister(client)

	hello := connectedMessage(clubID)
	_, _ = w.Write(formatSSEMessage(hello.Event, string(hello.Data)))
	flusher.Flush()

	ticker := time.NewTicker(keepalivePeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			if _, err := w.Write(formatSSEMessage(message.Event, string(message.Data))); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
