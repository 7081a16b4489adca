package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/satriahrh/client-talk/domain"
)

// watchURL turns the API base URL into the observer stream URL.
func watchURL(serverURL, token string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	u.RawQuery = url.Values{"token": {token}}.Encode()
	return u.String(), nil
}

// watch prints the session's events until ctx is done or the server closes
// the stream.
func watch(ctx context.Context, serverURL, token string) error {
	target, err := watchURL(serverURL, token)
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return fmt.Errorf("connect to event stream: %w", err)
	}

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		defer conn.Close()
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var event domain.SessionEvent
			if err := json.Unmarshal(message, &event); err != nil {
				continue
			}
			fmt.Fprintln(os.Stderr, infoStyle.Render(describeEvent(event)))
		}
	}()
	return nil
}

func describeEvent(e domain.SessionEvent) string {
	switch e.Type {
	case domain.EventSessionMessages:
		return fmt.Sprintf("[event] %d messages recorded", len(e.Messages))
	case domain.EventSessionEvaluated:
		if e.Evaluation != nil {
			return fmt.Sprintf("[event] evaluated: %d", e.Evaluation.OverallScore)
		}
	case domain.EventSessionAbandoned:
		return "[event] session abandoned after inactivity"
	}
	return "[event] " + string(e.Type)
}
