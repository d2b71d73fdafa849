package server

import (
	"encoding/json"
	"net/http"

	"live-stats/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *FastAPIServer) handleWebsockets() {
	for {
		select {
		case <-s.done:
			for client := range s.clients {
				s.dropClient(client)
			}
			return

		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.setConnections(len(s.clients))
			// Send the current view on connect
			client.send <- s.Sync.View()
			s.rendererAttached()

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				s.dropClient(client)
			}

		case r := <-s.replies:
			if _, ok := s.clients[r.client]; ok {
				select {
				case r.client.send <- r.view:
				default:
				}
			}

		case view := <-s.broadcast:
			for client := range s.clients {
				select {
				case client.send <- view:
				default:
					// Client too slow, disconnect to prevent Hub blocking
					s.dropClient(client)
				}
			}
		}
	}
}

// dropClient must only run on the hub goroutine.
func (s *FastAPIServer) dropClient(client *Client) {
	delete(s.clients, client)
	close(client.send)
	s.setConnections(len(s.clients))
	s.rendererDetached()
}

func (s *FastAPIServer) setConnections(n int) {
	s.clientsMutex.Lock()
	s.connections = n
	s.clientsMutex.Unlock()
}

// -----------------------------------------------------------------------------
// Renderer visibility
// -----------------------------------------------------------------------------

func (s *FastAPIServer) followClients() bool {
	return s.Visibility != nil && s.Config.Visibility.FollowClients
}

func (s *FastAPIServer) rendererAttached() {
	if s.followClients() {
		s.Visibility.RendererAttached()
	}
}

func (s *FastAPIServer) rendererDetached() {
	if s.followClients() {
		s.Visibility.RendererDetached()
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues a view for every attached renderer. It drops the view once
// the server is stopped.
func (s *FastAPIServer) Broadcast(view models.MLiveView) {
	select {
	case s.broadcast <- view:
	case <-s.done:
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

func (s *FastAPIServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan models.MLiveView, 16),
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

// clientReply goes through the hub, which owns every send channel.
type clientReply struct {
	client *Client
	view   models.MLiveView
}

// HandleClientMessage answers renderer commands. "view" re-sends the current
// view; "visibility" forwards an explicit foreground/background signal.
func (s *FastAPIServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MClientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("Failed to parse client command: %v, disconnecting client", err)
		client.conn.Close()
		return
	}

	switch cmd.Command {
	case "view":
		select {
		case s.replies <- clientReply{client: client, view: s.Sync.View()}:
		case <-s.done:
		}
	case "visibility":
		if cmd.Visible != nil {
			s.setVisible(*cmd.Visible)
		}
	}
}
