package server

import (
	"encoding/json"
	"net/http"

	"coindash/src/models"
	"coindash/src/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop. Events go only to clients
// subscribed to the event's topic.
func (s *EdgeServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			// Drop every connection so the pumps unwind.
			s.clientsMu.Lock()
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			s.clientsMu.Unlock()
			return

		case client := <-s.register:
			s.clientsMu.Lock()
			s.clients[client] = struct{}{}
			s.clientsMu.Unlock()

		case client := <-s.unregister:
			s.clientsMu.Lock()
			if _, exists := s.clients[client]; exists {
				delete(s.clients, client)
				close(client.send)
			}
			s.clientsMu.Unlock()

		case event := <-s.broadcast:
			topic := utils.TopicKey(event.AssetID, event.Range, event.Currency)

			s.clientsMu.Lock()
			for client := range s.clients {
				if !client.Subscribed(topic) {
					continue
				}
				select {
				case client.send <- event:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
			s.clientsMu.Unlock()
		}
	}
}

// -----------------------------------------------------------------------------
// Broadcaster Interface Implementation
// -----------------------------------------------------------------------------

// BroadcastSeries queues a series-update event for fan-out. Synthetic
// series are dropped here as a second line of defense.
func (s *EdgeServer) BroadcastSeries(series *models.MMarketSeries) {
	if series == nil || series.IsSynthetic {
		return
	}

	event := &models.MSeriesEvent{
		Event:    "series-update",
		AssetID:  series.AssetID,
		Range:    series.Range,
		Currency: series.Currency,
		Series:   series,
	}

	// Non-blocking send: with the hub stopped or the buffer full, dropping
	// a broadcast is safe because polling catches consumers up.
	select {
	case <-s.done:
	case s.broadcast <- event:
	default:
		s.Logger.Warning("Broadcast buffer full, dropping event for %s/%s/%s",
			series.AssetID, series.Range, series.Currency)
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *EdgeServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send:   make(chan *models.MSeriesEvent, 256),
		topics: make(map[string]struct{}),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *EdgeServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.AssetID == "" || cmd.Range == "" || cmd.Currency == "" {
		return
	}
	topic := utils.TopicKey(cmd.AssetID, cmd.Range, cmd.Currency)

	switch cmd.Command {
	case "subscribe":
		client.AddTopic(topic)
		s.Logger.Debug("Client subscribed to %s", topic)
	case "unsubscribe":
		client.RemoveTopic(topic)
		s.Logger.Debug("Client unsubscribed from %s", topic)
	}
}
