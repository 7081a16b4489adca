package websocket

import (
	"context"

	"go.uber.org/zap"

	"github.com/satriahrh/client-talk/utils/log"
)

type broadcast struct {
	sessionID string
	message   []byte
}

// Hub tracks observers per session. All map access happens on the Run
// goroutine.
type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcast
	count      chan chan int
	done       chan struct{}
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcast, 256),
		count:      make(chan chan int),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is done, then closes every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.sessionID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.sessionID] = set
			}
			set[client] = struct{}{}
			log.WithCtx(client.ctx).Debug("Observer registered", zap.Int("observers", len(set)))

		case client := <-h.unregister:
			h.remove(client)

		case b := <-h.broadcast:
			for client := range h.clients[b.sessionID] {
				if err := client.SendMessage(b.message); err != nil {
					h.remove(client)
				}
			}

		case reply := <-h.count:
			n := 0
			for _, set := range h.clients {
				n += len(set)
			}
			reply <- n

		case <-ctx.Done():
			for _, set := range h.clients {
				for client := range set {
					client.Close()
				}
			}
			h.clients = make(map[string]map[*Client]struct{})
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	set, ok := h.clients[client.sessionID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.sessionID)
	}
	client.Close()
	log.WithCtx(client.ctx).Debug("Observer unregistered")
}

// Register adds a client to the hub. A stopped hub closes the client.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes a client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Broadcast queues message for every observer of sessionID.
func (h *Hub) Broadcast(sessionID string, message []byte) {
	select {
	case h.broadcast <- broadcast{sessionID: sessionID, message: message}:
	case <-h.done:
	}
}

// ClientCount returns the number of connected observers.
func (h *Hub) ClientCount() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}
