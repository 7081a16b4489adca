package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/client-talk/domain"
	"github.com/satriahrh/client-talk/utils/log"
)

const (
	msgSessionStartFailed = "セッションの開始に失敗しました"
	msgChatInvalid        = "シナリオとメッセージが必要です"
	msgChatFailed         = "メッセージの送信に失敗しました"
	msgEvaluateInvalid    = "評価には十分な会話履歴が必要です"
	msgEvaluateFailed     = "セッションの評価に失敗しました"
	msgUnknownCategory    = "不明なカテゴリです"
	msgMalformedBody      = "リクエストの形式が正しくありません"
	msgUnauthorized       = "認証に失敗しました"
	msgSynthesizeInvalid  = "テキストが必要です"
	msgSynthesizeFailed   = "音声合成に失敗しました"
	msgTranscribeInvalid  = "音声データが必要です"
	msgTranscribeFailed   = "音声認識に失敗しました"
	msgInternal           = "サーバーエラーが発生しました"
)

var errMalformedBody = fmt.Errorf("%w: malformed request body", domain.ErrValidation)

// Envelope wraps every JSON response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// APIError is an error with the status and user-facing message it renders as.
type APIError struct {
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%d: %s: %v", e.Status, e.Message, e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// toAPIError maps err using the endpoint's messages for invalid input and
// internal failure.
func toAPIError(err error, invalid, failed string) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, errMalformedBody):
		return &APIError{Status: http.StatusBadRequest, Message: msgMalformedBody, Err: err}
	case errors.Is(err, domain.ErrUnknownCategory):
		return &APIError{Status: http.StatusBadRequest, Message: msgUnknownCategory, Err: err}
	case errors.Is(err, domain.ErrValidation):
		return &APIError{Status: http.StatusBadRequest, Message: invalid, Err: err}
	case errors.Is(err, domain.ErrUnauthorized):
		return &APIError{Status: http.StatusUnauthorized, Message: msgUnauthorized, Err: err}
	default:
		return &APIError{Status: http.StatusInternalServerError, Message: failed, Err: err}
	}
}

// ErrorHandler renders every failure as an Envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		apiErr  *APIError
		httpErr *echo.HTTPError
	)
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{Status: httpErr.Code, Message: fmt.Sprint(httpErr.Message), Err: err}
	default:
		apiErr = toAPIError(err, msgMalformedBody, msgInternal)
	}

	logger := log.WithCtx(c.Request().Context()).With(
		zap.Int("status", apiErr.Status),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Error("Request failed")
	} else {
		logger.Debug("Request rejected")
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(apiErr.Status)
	} else {
		err = c.JSON(apiErr.Status, Envelope{Success: false, Error: apiErr.Message})
	}
	if err != nil {
		log.WithCtx(c.Request().Context()).Error("Error writing error response", zap.Error(err))
	}
}
