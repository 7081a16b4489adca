package http

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/satriahrh/client-talk/domain"
)

// VoiceHandler serves the optional speech endpoints. Each route exists only
// when its backend is configured.
type VoiceHandler struct {
	synthesizer domain.Synthesizer
	transcriber domain.Transcriber
}

func NewVoiceHandler(synthesizer domain.Synthesizer, transcriber domain.Transcriber) *VoiceHandler {
	return &VoiceHandler{synthesizer: synthesizer, transcriber: transcriber}
}

func (h *VoiceHandler) Register(e *echo.Echo) {
	if h.synthesizer != nil {
		e.POST("/speech/synthesize", h.Synthesize)
	}
	if h.transcriber != nil {
		e.POST("/speech/transcribe", h.Transcribe)
	}
}

type synthesizeRequest struct {
	Text string `json:"text"`
}

// Synthesize voices a client reply as MP3.
func (h *VoiceHandler) Synthesize(c echo.Context) error {
	var req synthesizeRequest
	if err := decodeBody(c, &req); err != nil {
		return toAPIError(err, msgSynthesizeInvalid, msgSynthesizeFailed)
	}
	if strings.TrimSpace(req.Text) == "" {
		return toAPIError(fmt.Errorf("empty text: %w", domain.ErrValidation), msgSynthesizeInvalid, msgSynthesizeFailed)
	}

	audio, err := h.synthesizer.Synthesize(c.Request().Context(), req.Text)
	if err != nil {
		return toAPIError(err, msgSynthesizeInvalid, msgSynthesizeFailed)
	}
	return c.Blob(http.StatusOK, "audio/mpeg", audio)
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// Transcribe turns a raw LINEAR16 clip into the trainee's message text.
func (h *VoiceHandler) Transcribe(c echo.Context) error {
	audio, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return toAPIError(fmt.Errorf("reading audio: %w", err), msgTranscribeInvalid, msgTranscribeFailed)
	}
	if len(audio) == 0 {
		return toAPIError(fmt.Errorf("empty audio: %w", domain.ErrValidation), msgTranscribeInvalid, msgTranscribeFailed)
	}

	text, err := h.transcriber.Transcribe(c.Request().Context(), audio)
	if err != nil {
		return toAPIError(err, msgTranscribeInvalid, msgTranscribeFailed)
	}
	return c.JSON(http.StatusOK, Envelope{Success: true, Data: transcribeResponse{Text: text}})
}
