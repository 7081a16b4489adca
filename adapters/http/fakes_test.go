package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/client-talk/adapters/hasher"
	"github.com/satriahrh/client-talk/usecase"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// scriptedLlm answers each prompt kind with its own canned reply.
type scriptedLlm struct {
	scenario   string
	opening    string
	reply      string
	evaluation string
	err        error
}

func (s *scriptedLlm) Generate(context.Context, string) (string, error) {
	return s.opening, s.err
}

func (s *scriptedLlm) GenerateJSON(_ context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	switch {
	case strings.HasPrefix(prompt, "Web受託開発におけるコミュニケーション訓練用"):
		return s.scenario, nil
	case strings.Contains(prompt, "評価する専門家"):
		return s.evaluation, nil
	default:
		return s.reply, nil
	}
}

func happyLlm() *scriptedLlm {
	return &scriptedLlm{
		scenario: "```json\n" + `{"title":"ECサイト構築","description":"アパレルのネットショップを作りたい","clientPersona":"中小アパレルの社長","projectContext":"店舗販売のみ","hiddenRequirements":["在庫連携"]}` + "\n```",
		opening:  "ネットで服を売りたいんです。",
		reply:    `{"message":"予算は300万円くらいです。","emotion":"satisfied","hints":["納期も確認しましょう"]}`,
		evaluation: `{"overallScore":78.4,"results":[{"criteriaType":"requirement_decomposition","criteriaName":"要件分解・具体化","score":80,"feedback":"良い質問","examples":["予算は？"]}],` +
			`"strengths":["具体的"],"improvements":["合意確認"],"recommendations":["議事録"]}`,
	}
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestEcho(t *testing.T, gen *scriptedLlm, opts ...HandlerOption) (*echo.Echo, *WatchTokens) {
	t.Helper()
	tokens := NewWatchTokens(testSecret, time.Hour)
	svc := usecase.NewSessionService(usecase.NewGateway(gen))
	h, err := NewSessionHandler(svc, tokens, hasher.New(), opts...)
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	h.Register(e)
	return e, tokens
}

func newRequest(method, path, body string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, httptest.NewRecorder()
}

func do(t *testing.T, e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req, rec := newRequest(method, path, body)
	e.ServeHTTP(rec, req)

	var resp response
	if rec.Code != http.StatusNotModified && rec.Body.Len() > 0 &&
		strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func decodeData(t *testing.T, resp response, v any) {
	t.Helper()
	require.True(t, resp.Success, resp.Error)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

type fakeSynthesizer struct {
	audio []byte
	err   error
}

func (f fakeSynthesizer) Synthesize(context.Context, string) ([]byte, error) {
	return f.audio, f.err
}

type fakeTranscriber struct {
	text string
	err  error
	got  []byte
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audio []byte) (string, error) {
	f.got = audio
	return f.text, f.err
}

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

var errUpstream = errors.New("upstream unavailable")
