package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/client-talk/domain"
	"github.com/satriahrh/client-talk/utils/log"
)

// TokenVerifier resolves a watch token to the session it grants access to.
type TokenVerifier interface {
	Verify(token string) (sessionID string, err error)
}

// Server streams session events to observers of that session.
type Server struct {
	upgrader      websocket.Upgrader
	messageBroker domain.MessageBroker
	tokens        TokenVerifier
	hub           *Hub
}

func NewServer(messageBroker domain.MessageBroker, tokens TokenVerifier) *Server {
	return &Server{
		upgrader:      websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		messageBroker: messageBroker,
		tokens:        tokens,
		hub:           NewHub(),
	}
}

func (s *Server) GetHub() *Hub {
	return s.hub
}

// Run starts the hub and forwards session events to it until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run(ctx)

	events, err := s.messageBroker.Subscribe(ctx, domain.SessionEventsTopic, "")
	if err != nil {
		return fmt.Errorf("subscribe to session events: %w", err)
	}
	log.With(zap.String("topic", domain.SessionEventsTopic)).Info("WebSocket server listening to session events")

	for env := range events {
		payload, err := observerPayload(env.Payload)
		if err != nil {
			log.With(zap.Error(err)).Warn("Dropping malformed session event")
			continue
		}
		s.hub.Broadcast(env.RoutingKey, payload)
	}
	log.With(zap.Error(ctx.Err())).Info("Session event listener stopped")
	return nil
}

// observerPayload strips what the trainee must not see.
func observerPayload(raw []byte) ([]byte, error) {
	var event domain.SessionEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, err
	}
	event.HiddenRequirements = nil
	return json.Marshal(event)
}
