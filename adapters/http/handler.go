package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/client-talk/adapters/hasher"
	"github.com/satriahrh/client-talk/domain"
	"github.com/satriahrh/client-talk/usecase"
	"github.com/satriahrh/client-talk/utils/log"
)

const serviceName = "client-talk"

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SessionHandler serves the training session endpoints.
type SessionHandler struct {
	sessions *usecase.SessionService
	tokens   *WatchTokens
	archive  Pinger

	categoriesBody []byte
	categoriesETag string
}

type HandlerOption func(*SessionHandler)

// WithArchive reports the archive's health on GET /health.
func WithArchive(archive Pinger) HandlerOption {
	return func(h *SessionHandler) { h.archive = archive }
}

func NewSessionHandler(sessions *usecase.SessionService, tokens *WatchTokens, hash domain.Hasher, opts ...HandlerOption) (*SessionHandler, error) {
	body, err := json.Marshal(Envelope{
		Success: true,
		Data:    categoriesResponse{Categories: sessions.Categories()},
	})
	if err != nil {
		return nil, fmt.Errorf("encoding categories: %w", err)
	}

	h := &SessionHandler{
		sessions:       sessions,
		tokens:         tokens,
		categoriesBody: body,
		categoriesETag: hasher.ETag(hash, body),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register mounts the session routes on e.
func (h *SessionHandler) Register(e *echo.Echo) {
	e.GET("/sessions", h.ListCategories)
	e.POST("/sessions", h.CreateSession)
	e.POST("/chat", h.Chat)
	e.POST("/evaluate", h.Evaluate)
	e.GET("/health", h.HealthCheck)
}

type categoriesResponse struct {
	Categories []domain.CategoryInfo `json:"categories"`
}

// ListCategories serves the same bytes on every call.
func (h *SessionHandler) ListCategories(c echo.Context) error {
	c.Response().Header().Set("ETag", h.categoriesETag)
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	if c.Request().Header.Get("If-None-Match") == h.categoriesETag {
		return c.NoContent(http.StatusNotModified)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, h.categoriesBody)
}

type createSessionRequest struct {
	Category   string          `json:"category"`
	Difficulty json.RawMessage `json:"difficulty"`
}

// difficulty accepts a number or a numeric string. Anything else means the
// default difficulty.
func (r createSessionRequest) difficulty() *float64 {
	raw := bytes.TrimSpace(r.Difficulty)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			return &f
		}
	}
	return nil
}

type createSessionResponse struct {
	*domain.SessionState
	WatchToken string `json:"watchToken"`
}

func (h *SessionHandler) CreateSession(c echo.Context) error {
	var req createSessionRequest
	if err := decodeBody(c, &req); err != nil {
		return toAPIError(err, msgMalformedBody, msgSessionStartFailed)
	}

	ctx := c.Request().Context()
	session, err := h.sessions.CreateSession(ctx, usecase.CreateSessionInput{
		Category:   domain.Category(req.Category),
		Difficulty: req.difficulty(),
	})
	if err != nil {
		return toAPIError(err, msgMalformedBody, msgSessionStartFailed)
	}

	token, err := h.tokens.Issue(session.SessionID)
	if err != nil {
		return toAPIError(err, msgMalformedBody, msgSessionStartFailed)
	}

	return c.JSON(http.StatusOK, Envelope{
		Success: true,
		Data:    createSessionResponse{SessionState: session, WatchToken: token},
	})
}

type chatRequest struct {
	SessionID   string               `json:"sessionId"`
	Scenario    *domain.ScenarioInfo `json:"scenario"`
	Messages    []domain.Message     `json:"messages"`
	UserMessage string               `json:"userMessage"`
}

func (h *SessionHandler) Chat(c echo.Context) error {
	var req chatRequest
	if err := decodeBody(c, &req); err != nil {
		return toAPIError(err, msgChatInvalid, msgChatFailed)
	}

	result, err := h.sessions.Continue(c.Request().Context(), usecase.ContinueInput{
		SessionID:   req.SessionID,
		Scenario:    req.Scenario,
		Messages:    req.Messages,
		UserMessage: req.UserMessage,
	})
	if err != nil {
		return toAPIError(err, msgChatInvalid, msgChatFailed)
	}

	return c.JSON(http.StatusOK, Envelope{Success: true, Data: result})
}

type evaluateRequest struct {
	SessionID string               `json:"sessionId"`
	Scenario  *domain.ScenarioInfo `json:"scenario"`
	Messages  []domain.Message     `json:"messages"`
}

func (h *SessionHandler) Evaluate(c echo.Context) error {
	var req evaluateRequest
	if err := decodeBody(c, &req); err != nil {
		return toAPIError(err, msgEvaluateInvalid, msgEvaluateFailed)
	}

	evaluation, err := h.sessions.Evaluate(c.Request().Context(), usecase.EvaluateInput{
		SessionID: req.SessionID,
		Scenario:  req.Scenario,
		Messages:  req.Messages,
	})
	if err != nil {
		return toAPIError(err, msgEvaluateInvalid, msgEvaluateFailed)
	}

	return c.JSON(http.StatusOK, Envelope{Success: true, Data: evaluation})
}

// HealthCheck reports liveness and, when configured, archive reachability.
func (h *SessionHandler) HealthCheck(c echo.Context) error {
	data := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   serviceName,
	}
	if h.archive != nil {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := h.archive.Ping(ctx); err != nil {
			log.WithCtx(ctx).Warn("Archive ping failed", zap.Error(err))
			data["archive"] = "unavailable"
		} else {
			data["archive"] = "ok"
		}
	}
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: data})
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(c echo.Context, v any) error {
	err := json.NewDecoder(c.Request().Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: %w", errMalformedBody, err)
}
