package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/client-talk/adapters/message_broker"
	"github.com/satriahrh/client-talk/domain"
)

type staticVerifier map[string]string

func (v staticVerifier) Verify(token string) (string, error) {
	if id, ok := v[token]; ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

func startServer(t *testing.T) (*Server, *message_broker.ChannelMessageBroker, string) {
	t.Helper()
	broker := message_broker.NewChannelMessageBroker()
	server := NewServer(broker, staticVerifier{"token-s1": "s1"})

	ctx, cancel := context.WithCancel(context.Background())
	go server.Run(ctx)
	require.Eventually(t, func() bool { return broker.SubscriberCount() == 1 }, time.Second, 10*time.Millisecond)

	e := echo.New()
	e.GET("/ws", server.Handler)
	ts := httptest.NewServer(e)

	t.Cleanup(func() {
		cancel()
		ts.Close()
		broker.Close()
	})
	return server, broker, "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func publish(t *testing.T, broker domain.MessageBroker, event domain.SessionEvent) {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	require.NoError(t, broker.Publish(context.Background(), domain.SessionEventsTopic, event.SessionID, payload))
}

func TestServer_StreamsOwnSessionOnly(t *testing.T) {
	server, broker, url := startServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(url+"?token=token-s1", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.Eventually(t, func() bool { return server.GetHub().ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	publish(t, broker, domain.SessionEvent{Type: domain.EventSessionMessages, SessionID: "s2"})
	publish(t, broker, domain.SessionEvent{
		Type:               domain.EventSessionMessages,
		SessionID:          "s1",
		HiddenRequirements: []string{"秘密"},
		Messages:           []domain.Message{{ID: "m1", Role: domain.UserRole, Content: "こんにちは"}},
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event domain.SessionEvent
	require.NoError(t, json.Unmarshal(data, &event))
	assert.Equal(t, "s1", event.SessionID)
	assert.Equal(t, domain.EventSessionMessages, event.Type)
	assert.Nil(t, event.HiddenRequirements)
	require.Len(t, event.Messages, 1)
	assert.Equal(t, "こんにちは", event.Messages[0].Content)
	assert.NotContains(t, string(data), "秘密")
}

func TestServer_BearerToken(t *testing.T) {
	server, _, url := startServer(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer token-s1")
	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool { return server.GetHub().ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return server.GetHub().ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_RejectsMissingToken(t *testing.T) {
	server := NewServer(message_broker.NewChannelMessageBroker(), staticVerifier{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws?token=nope", nil)
	rec := httptest.NewRecorder()

	err := server.Handler(e.NewContext(req, rec))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestTokenFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws?token=q", nil)
	req.Header.Set("Authorization", "Bearer h")
	assert.Equal(t, "q", tokenFromRequest(req))

	req = httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer h")
	assert.Equal(t, "h", tokenFromRequest(req))

	req = httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Basic h")
	assert.Empty(t, tokenFromRequest(req))
}
