package websocket

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/satriahrh/client-talk/domain"
	"github.com/satriahrh/client-talk/utils/log"
)

// Handler upgrades GET /ws for the holder of a watch token and keeps the
// connection registered until it closes.
func (s *Server) Handler(c echo.Context) error {
	sessionID, err := s.tokens.Verify(tokenFromRequest(c.Request()))
	if err != nil {
		return fmt.Errorf("watch token: %w: %w", domain.ErrUnauthorized, err)
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader has already written the response
		log.WithCtx(c.Request().Context()).Debug("WebSocket upgrade failed")
		return nil
	}

	client := NewClient(c.Request().Context(), conn, sessionID)
	s.hub.Register(client)
	defer s.hub.Unregister(client)

	client.Run()
	<-client.Context().Done()
	return nil
}

func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return token
	}
	return ""
}
