package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/client-talk/domain"
	"github.com/satriahrh/client-talk/usecase"
)

type sessionData struct {
	domain.SessionState
	WatchToken string `json:"watchToken"`
}

func startSession(t *testing.T, body string) (sessionData, *WatchTokens) {
	t.Helper()
	e, tokens := newTestEcho(t, happyLlm())
	rec, resp := do(t, e, http.MethodPost, "/sessions", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data sessionData
	decodeData(t, resp, &data)
	return data, tokens
}

func TestListCategories(t *testing.T) {
	e, _ := newTestEcho(t, happyLlm())

	first, resp := do(t, e, http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, first.Code)

	var data struct {
		Categories []domain.CategoryInfo `json:"categories"`
	}
	decodeData(t, resp, &data)
	require.Len(t, data.Categories, 5)
	assert.Equal(t, domain.RequirementConfirmation, data.Categories[0].ID)
	assert.Equal(t, "要件確認", data.Categories[0].NameJa)

	second, _ := do(t, e, http.MethodGet, "/sessions", "")
	assert.True(t, bytes.Equal(first.Body.Bytes(), second.Body.Bytes()))

	etag := first.Header().Get("ETag")
	require.NotEmpty(t, etag)
	assert.Equal(t, etag, second.Header().Get("ETag"))

	req, rec := newRequest(http.MethodGet, "/sessions", "")
	req.Header.Set("If-None-Match", etag)
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Zero(t, rec.Body.Len())
}

func TestCreateSession(t *testing.T) {
	data, tokens := startSession(t, `{"category":"consensus_building","difficulty":3}`)

	assert.NotEmpty(t, data.SessionID)
	assert.Equal(t, domain.StatusInProgress, data.Status)
	assert.Equal(t, domain.ConsensusBuilding, data.Scenario.Category)
	assert.Equal(t, 3, data.Scenario.Difficulty)
	assert.Equal(t, "ECサイト構築", data.Scenario.Title)

	require.Len(t, data.Messages, 2)
	assert.Equal(t, domain.SystemRole, data.Messages[0].Role)
	assert.Equal(t, "【シナリオ開始】\n\nアパレルのネットショップを作りたい", data.Messages[0].Content)
	assert.Equal(t, domain.ClientRole, data.Messages[1].Role)
	assert.Equal(t, "ネットで服を売りたいんです。", data.Messages[1].Content)

	sessionID, err := tokens.Verify(data.WatchToken)
	require.NoError(t, err)
	assert.Equal(t, data.SessionID, sessionID)
}

func TestCreateSession_HiddenRequirementsNotReturned(t *testing.T) {
	e, _ := newTestEcho(t, happyLlm())
	rec, _ := do(t, e, http.MethodPost, "/sessions", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "在庫連携")
	assert.NotContains(t, rec.Body.String(), "hiddenRequirements")
}

func TestCreateSession_Difficulty(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"absent", `{}`, 2},
		{"empty body", ``, 2},
		{"zero", `{"difficulty":0}`, 1},
		{"six", `{"difficulty":6}`, 5},
		{"ten", `{"difficulty":10}`, 5},
		{"negative", `{"difficulty":-3}`, 1},
		{"fraction", `{"difficulty":2.6}`, 3},
		{"numeric string", `{"difficulty":"4"}`, 4},
		{"non numeric string", `{"difficulty":"hard"}`, 2},
		{"null", `{"difficulty":null}`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, _ := startSession(t, tt.body)
			assert.Equal(t, tt.want, data.Scenario.Difficulty)
		})
	}
}

func TestCreateSession_Errors(t *testing.T) {
	tests := []struct {
		name    string
		gen     *scriptedLlm
		body    string
		code    int
		message string
	}{
		{"unknown category", happyLlm(), `{"category":"sales_pitch"}`, http.StatusBadRequest, msgUnknownCategory},
		{"malformed body", happyLlm(), `{"category":`, http.StatusBadRequest, msgMalformedBody},
		{"non JSON scenario", &scriptedLlm{scenario: "ごめんなさい", opening: "x"}, `{}`, http.StatusInternalServerError, msgSessionStartFailed},
		{"model down", &scriptedLlm{err: errUpstream}, `{}`, http.StatusInternalServerError, msgSessionStartFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEcho(t, tt.gen)
			rec, resp := do(t, e, http.MethodPost, "/sessions", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.message, resp.Error)
		})
	}
}

func chatBody(t *testing.T, scenario *domain.ScenarioInfo, messages []domain.Message, userMessage string) string {
	t.Helper()
	b, err := json.Marshal(chatRequest{Scenario: scenario, Messages: messages, UserMessage: userMessage})
	require.NoError(t, err)
	return string(b)
}

func TestChat(t *testing.T) {
	session, _ := startSession(t, `{}`)
	e, _ := newTestEcho(t, happyLlm())

	rec, resp := do(t, e, http.MethodPost, "/chat",
		chatBody(t, &session.Scenario, session.Messages, "ご予算はどのくらいでしょうか？"))
	require.Equal(t, http.StatusOK, rec.Code)

	var result usecase.ContinueResult
	decodeData(t, resp, &result)
	assert.Equal(t, domain.UserRole, result.UserMessage.Role)
	assert.Equal(t, "ご予算はどのくらいでしょうか？", result.UserMessage.Content)
	assert.Equal(t, domain.ClientRole, result.ClientMessage.Role)
	assert.Equal(t, "予算は300万円くらいです。", result.ClientMessage.Content)
	assert.Equal(t, domain.Satisfied, result.Emotion)
	require.NotNil(t, result.ClientMessage.Metadata)
	assert.Equal(t, result.Emotion, result.ClientMessage.Metadata.IntentDetected)
	assert.Equal(t, []string{"納期も確認しましょう"}, result.Hints)
}

func TestChat_FallbackOnNonJSONReply(t *testing.T) {
	gen := happyLlm()
	gen.reply = "すみません、うまく答えられません"
	e, _ := newTestEcho(t, gen)

	rec, resp := do(t, e, http.MethodPost, "/chat", chatBody(t, &domain.ScenarioInfo{Title: "x"}, nil, "こんにちは"))
	require.Equal(t, http.StatusOK, rec.Code)

	var result usecase.ContinueResult
	decodeData(t, resp, &result)
	assert.Equal(t, usecase.FallbackReply, result.ClientMessage.Content)
	assert.Equal(t, domain.Confused, result.Emotion)
	assert.Equal(t, domain.Confused, result.ClientMessage.Metadata.IntentDetected)
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"missing scenario", `{"messages":[],"userMessage":"こんにちは"}`, msgChatInvalid},
		{"missing user message", `{"scenario":{"title":"x"},"messages":[]}`, msgChatInvalid},
		{"empty user message", `{"scenario":{"title":"x"},"userMessage":""}`, msgChatInvalid},
		{"malformed body", `not json`, msgMalformedBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEcho(t, happyLlm())
			rec, resp := do(t, e, http.MethodPost, "/chat", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.message, resp.Error)
		})
	}
}

func evaluateBody(t *testing.T, sessionID string, scenario *domain.ScenarioInfo, messages []domain.Message) string {
	t.Helper()
	b, err := json.Marshal(evaluateRequest{SessionID: sessionID, Scenario: scenario, Messages: messages})
	require.NoError(t, err)
	return string(b)
}

func TestEvaluate(t *testing.T) {
	session, _ := startSession(t, `{}`)
	e, _ := newTestEcho(t, happyLlm())

	rec, resp := do(t, e, http.MethodPost, "/evaluate", evaluateBody(t, session.SessionID, &session.Scenario, session.Messages))
	require.Equal(t, http.StatusOK, rec.Code)

	var eval domain.SessionEvaluation
	decodeData(t, resp, &eval)
	assert.Equal(t, session.SessionID, eval.SessionID)
	assert.Equal(t, 78, eval.OverallScore)
	require.Len(t, eval.Results, 1)
	assert.Equal(t, 80, eval.Results[0].Score)
	assert.Equal(t, []string{"具体的"}, eval.Strengths)
}

func TestEvaluate_Errors(t *testing.T) {
	one := []domain.Message{{ID: "m1", Role: domain.ClientRole, Content: "こんにちは"}}
	two := append(one, domain.Message{ID: "m2", Role: domain.UserRole, Content: "はい"})
	scenario := &domain.ScenarioInfo{Title: "x"}

	tests := []struct {
		name    string
		gen     *scriptedLlm
		body    string
		code    int
		message string
	}{
		{"no messages", happyLlm(), evaluateBody(t, "s1", scenario, nil), http.StatusBadRequest, msgEvaluateInvalid},
		{"one message", happyLlm(), evaluateBody(t, "s1", scenario, one), http.StatusBadRequest, msgEvaluateInvalid},
		{"missing scenario", happyLlm(), evaluateBody(t, "s1", nil, two), http.StatusBadRequest, msgEvaluateInvalid},
		{"non JSON evaluation", &scriptedLlm{evaluation: "評価できません"}, evaluateBody(t, "s1", scenario, two), http.StatusInternalServerError, msgEvaluateFailed},
		{"model down", &scriptedLlm{err: errUpstream}, evaluateBody(t, "s1", scenario, two), http.StatusInternalServerError, msgEvaluateFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEcho(t, tt.gen)
			rec, resp := do(t, e, http.MethodPost, "/evaluate", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.message, resp.Error)
		})
	}
}

// A full practice round: start, three exchanges, evaluation.
func TestTrainingRound(t *testing.T) {
	e, _ := newTestEcho(t, happyLlm())

	rec, resp := do(t, e, http.MethodPost, "/sessions", `{"category":"technical_translation","difficulty":"1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var session sessionData
	decodeData(t, resp, &session)

	history := session.Messages
	for _, msg := range []string{"目的を教えてください", "ご予算は？", "納期はいつですか？"} {
		rec, resp := do(t, e, http.MethodPost, "/chat", chatBody(t, &session.Scenario, history, msg))
		require.Equal(t, http.StatusOK, rec.Code)
		var result usecase.ContinueResult
		decodeData(t, resp, &result)
		history = append(history, result.UserMessage, result.ClientMessage)
	}
	assert.Len(t, history, 8)
	assert.Equal(t, 3, domain.CountRole(history, domain.UserRole))

	rec, resp = do(t, e, http.MethodPost, "/evaluate", evaluateBody(t, session.SessionID, &session.Scenario, history))
	require.Equal(t, http.StatusOK, rec.Code)
	var eval domain.SessionEvaluation
	decodeData(t, resp, &eval)
	assert.Equal(t, session.SessionID, eval.SessionID)
}

func TestHealthCheck(t *testing.T) {
	e, _ := newTestEcho(t, happyLlm())
	rec, resp := do(t, e, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var data map[string]any
	decodeData(t, resp, &data)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, serviceName, data["service"])
	assert.NotContains(t, data, "archive")

	e, _ = newTestEcho(t, happyLlm(), WithArchive(fakePinger{err: errUpstream}))
	_, resp = do(t, e, http.MethodGet, "/health", "")
	decodeData(t, resp, &data)
	assert.Equal(t, "unavailable", data["archive"])
}

func TestUnknownRoute(t *testing.T) {
	e, _ := newTestEcho(t, happyLlm())
	rec, resp := do(t, e, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}
