package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"eli5/handler"
	"eli5/internal/speech"
	"eli5/internal/usecase"
)

const defaultMaxAudioBytes = 10 << 20

type AskService interface {
	Ask(ctx context.Context, in usecase.AskInput) (usecase.AskOutput, error)
	Health() usecase.Health
}

// Transcriber turns raw LINEAR16 audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

type Deps struct {
	Ask            AskService
	Transcriber    Transcriber // optional; /api/transcribe is not mounted without it
	Logger         *slog.Logger
	AllowedOrigins []string
	MaxAudioBytes  int64
}

type TranscribeResponse struct {
	Transcript string `json:"transcript"`
}

type routes struct {
	ask         AskService
	transcriber Transcriber
	logger      *slog.Logger
	maxAudio    int64
}

func NewRouter(d Deps) (*gin.Engine, error) {
	if d.Ask == nil {
		return nil, errors.New("server: ask service must not be nil")
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxAudio := d.MaxAudioBytes
	if maxAudio <= 0 {
		maxAudio = defaultMaxAudioBytes
	}
	h := &routes{ask: d.Ask, transcriber: d.Transcriber, logger: logger, maxAudio: maxAudio}

	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(logger), CORS(d.AllowedOrigins))

	api := r.Group("/api")
	api.GET("/health", h.health)
	api.POST("/ask", h.askQuestion)
	if d.Transcriber != nil {
		api.POST("/transcribe", h.transcribe)
	}
	return r, nil
}

func (h *routes) health(c *gin.Context) {
	health := h.ask.Health()
	c.JSON(http.StatusOK, handler.HealthResponse{
		Status:      "healthy",
		Synthesizer: health.Synthesizer,
		Model:       health.Model,
	})
}

func (h *routes) askQuestion(c *gin.Context) {
	var req handler.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, usecase.InvalidInput("invalid_json", err))
		return
	}
	in, err := req.ToInput()
	if err != nil {
		writeError(c, err)
		return
	}
	out, err := h.ask.Ask(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewAskResponse(out))
}

func (h *routes) transcribe(c *gin.Context) {
	audio, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, h.maxAudio))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, handler.ErrorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "audio_too_large"})
			return
		}
		writeError(c, usecase.InvalidInput("unreadable_body", err))
		return
	}

	text, err := h.transcriber.Transcribe(c.Request.Context(), speech.StripWAVHeader(audio))
	if err != nil {
		_ = c.Error(err)
		if code, ok := speech.AsRecognitionError(err); ok {
			status := http.StatusUnprocessableEntity
			if code == speech.ErrCodeNetwork {
				status = http.StatusBadGateway
			}
			c.JSON(status, handler.ErrorResponse{Error: "RECOGNITION_FAILED", Reason: string(code)})
			return
		}
		c.JSON(http.StatusInternalServerError, handler.ErrorResponse{Error: string(usecase.ErrorInternal)})
		return
	}
	c.JSON(http.StatusOK, TranscribeResponse{Transcript: text})
}

func writeError(c *gin.Context, err error) {
	status, body := handler.StatusFor(err)
	_ = c.Error(err)
	c.JSON(status, body)
}
