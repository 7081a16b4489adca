// Package client talks to the training service and holds the state of the
// trainee's current session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/satriahrh/client-talk/domain"
)

const defaultTimeout = 2 * time.Minute

// Error is a failure reported by the service.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

// API is a typed client for the session endpoints.
type API struct {
	baseURL    string
	httpClient *http.Client
}

type APIOption func(*API)

func WithHTTPClient(c *http.Client) APIOption {
	return func(a *API) { a.httpClient = c }
}

func NewAPI(baseURL string, opts ...APIOption) *API {
	a := &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// StartedSession is a new session plus the token for watching its events.
type StartedSession struct {
	domain.SessionState
	WatchToken string `json:"watchToken"`
}

type ChatResult struct {
	UserMessage   domain.Message `json:"userMessage"`
	ClientMessage domain.Message `json:"clientMessage"`
	Emotion       domain.Emotion `json:"emotion"`
	Hints         []string       `json:"hints,omitempty"`
}

func (a *API) Categories(ctx context.Context) ([]domain.CategoryInfo, error) {
	var out struct {
		Categories []domain.CategoryInfo `json:"categories"`
	}
	if err := a.call(ctx, http.MethodGet, "/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// CreateSession starts a session. An empty category lets the server pick.
func (a *API) CreateSession(ctx context.Context, category domain.Category, difficulty int) (*StartedSession, error) {
	req := map[string]any{"difficulty": difficulty}
	if category != "" {
		req["category"] = category
	}
	var out StartedSession
	if err := a.call(ctx, http.MethodPost, "/sessions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Chat(ctx context.Context, sessionID string, scenario domain.ScenarioInfo, messages []domain.Message, userMessage string) (*ChatResult, error) {
	req := map[string]any{
		"sessionId":   sessionID,
		"scenario":    scenario,
		"messages":    messages,
		"userMessage": userMessage,
	}
	var out ChatResult
	if err := a.call(ctx, http.MethodPost, "/chat", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (a *API) Evaluate(ctx context.Context, sessionID string, scenario domain.ScenarioInfo, messages []domain.Message) (*domain.SessionEvaluation, error) {
	req := map[string]any{
		"sessionId": sessionID,
		"scenario":  scenario,
		"messages":  messages,
	}
	var out domain.SessionEvaluation
	if err := a.call(ctx, http.MethodPost, "/evaluate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Synthesize fetches MP3 audio for text.
func (a *API) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	resp, err := a.send(ctx, http.MethodPost, "/speech/synthesize", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeError(resp)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	return audio, nil
}

// Transcribe converts raw LINEAR16 16 kHz audio to text.
func (a *API) Transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := a.send(ctx, http.MethodPost, "/speech/transcribe", "application/octet-stream", bytes.NewReader(audio))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out struct {
		Text string `json:"text"`
	}
	if err := decodeEnvelope(resp, &out); err != nil {
		return "", err
	}
	return out.Text, nil
}

func (a *API) call(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	resp, err := a.send(ctx, method, path, "application/json", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return decodeEnvelope(resp, out)
}

func (a *API) send(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func decodeEnvelope(resp *http.Response, out any) error {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{Status: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}
	if !env.Success || resp.StatusCode >= http.StatusBadRequest {
		return &Error{Status: resp.StatusCode, Message: env.Error}
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	err := decodeEnvelope(resp, nil)
	if err == nil {
		err = &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return err
}
