package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"startpage-sync/src/models"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

func (s *APIServer) startHub() {
	s.hubOnce.Do(func() { go s.runHub() })
}

// -----------------------------------------------------------------------------

// runHub is the only goroutine touching s.clients.
func (s *APIServer) runHub() {
	for {
		select {
		case <-s.done:
			for client := range s.clients {
				s.dropClient(client)
			}
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.connCount.Add(1)
			// Send initial state on connect
			client.trySend(s.snapshot(client))

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				s.dropClient(client)
			}

		case sub := <-s.subscribe:
			if _, ok := s.clients[sub.client]; ok {
				sub.client.setSymbols(sub.symbols)
				sub.client.trySend(s.snapshot(sub.client))
			}

		case message := <-s.broadcast:
			if message.Type == models.MessageMarketUpdate {
				s.stateMutex.Lock()
				s.latestQuotes = message.Quotes
				s.latestUpdate = message.Timestamp
				s.stateMutex.Unlock()
			}

			for client := range s.clients {
				if !client.trySend(client.filter(message)) {
					// Client too slow, disconnect to prevent Hub blocking
					s.dropClient(client)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (s *APIServer) dropClient(client *Client) {
	delete(s.clients, client)
	close(client.send)
	s.connCount.Add(-1)
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues msg for every client. It never blocks; when the queue is
// full the message is dropped.
func (s *APIServer) Broadcast(msg models.MHubMessage) {
	select {
	case s.broadcast <- msg:
	default:
		s.Logger.Warning("Broadcast queue full, dropping %s message", msg.Type)
	}
}

// -----------------------------------------------------------------------------

// snapshot builds the INITIAL message for a client from the last market update.
func (s *APIServer) snapshot(client *Client) models.MHubMessage {
	s.stateMutex.RLock()
	msg := models.MHubMessage{
		Type:      models.MessageInitial,
		Quotes:    s.latestQuotes,
		Timestamp: s.latestUpdate,
	}
	s.stateMutex.RUnlock()

	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	return client.filter(msg)
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

func (s *APIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan models.MHubMessage, 64),
	}

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

// HandleClientMessage hands a subscribe command to the hub, which answers
// with the filtered snapshot. Malformed commands close the connection.
func (s *APIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	select {
	case s.subscribe <- subscription{client: client, symbols: cmd.Symbols}:
	case <-s.done:
	}
}
