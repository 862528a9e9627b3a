package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"eli5/handler"
	"eli5/internal/domain"
	"eli5/internal/speech"
	"eli5/internal/usecase"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAsk struct {
	out usecase.AskOutput
	err error
	in  usecase.AskInput
}

func (s *stubAsk) Ask(_ context.Context, in usecase.AskInput) (usecase.AskOutput, error) {
	s.in = in
	return s.out, s.err
}

func (s *stubAsk) Health() usecase.Health { return usecase.Health{Synthesizer: "template"} }

type stubTranscriber struct {
	text  string
	err   error
	audio []byte
}

func (s *stubTranscriber) Transcribe(_ context.Context, audio []byte) (string, error) {
	s.audio = audio
	return s.text, s.err
}

func newTestRouter(t *testing.T, d Deps) (*gin.Engine, *bytes.Buffer) {
	t.Helper()
	var logs bytes.Buffer
	d.Logger = slog.New(slog.NewJSONHandler(&logs, nil))
	r, err := NewRouter(d)
	require.NoError(t, err)
	return r, &logs
}

func do(r http.Handler, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestNewRouter_RequiresAskService(t *testing.T) {
	_, err := NewRouter(Deps{})
	require.Error(t, err)
}

func TestAsk_HappyPath(t *testing.T) {
	ask := &stubAsk{out: usecase.AskOutput{Answer: "Wings!", Summary: "An airplane...", HasSummary: true}}
	r, logs := newTestRouter(t, Deps{Ask: ask})

	rec := do(r, http.MethodPost, "/api/ask",
		strings.NewReader(`{"question":"How do airplanes fly?","difficulty":"ELI5 (Child)","format_option":"Technical Breakdown"}`),
		map[string]string{"Content-Type": "application/json", handler.CorrelationHeader: "corr-9"})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "corr-9", rec.Header().Get(handler.CorrelationHeader))
	out := decode[handler.AskResponse](t, rec)
	require.Equal(t, "Wings!", out.Answer)
	require.Equal(t, "An airplane...", *out.WikipediaSummary)
	require.Equal(t, domain.LevelChild, ask.in.Level)
	require.Equal(t, domain.StyleTechnical, ask.in.Style)
	require.True(t, ask.in.UseWikipedia)

	require.Contains(t, logs.String(), `"correlation_id":"corr-9"`)
	require.Contains(t, logs.String(), `"path":"/api/ask"`)
}

func TestAsk_Errors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
		reason string
	}{
		{name: "bad json", body: `{`, status: http.StatusBadRequest, reason: "invalid_json"},
		{name: "bad level", body: `{"question":"q","difficulty":"baby","format_option":"standard"}`, status: http.StatusBadRequest, reason: "invalid_difficulty"},
		{name: "empty question", body: `{"question":" ","difficulty":"child","format_option":"standard"}`, err: usecase.InvalidInput("empty_question", nil), status: http.StatusBadRequest, reason: "empty_question"},
		{name: "rate limited", body: `{"question":"q","difficulty":"child","format_option":"standard"}`, err: &usecase.Error{Code: usecase.ErrorRateLimited, Reason: "synthesis_rate_limited"}, status: http.StatusTooManyRequests, reason: "synthesis_rate_limited"},
		{name: "upstream", body: `{"question":"q","difficulty":"child","format_option":"standard"}`, err: &usecase.Error{Code: usecase.ErrorUpstream, Reason: "synthesis_error"}, status: http.StatusBadGateway, reason: "synthesis_error"},
		{name: "unknown", body: `{"question":"q","difficulty":"child","format_option":"standard"}`, err: errors.New("boom"), status: http.StatusInternalServerError},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			r, _ := newTestRouter(t, Deps{Ask: &stubAsk{err: tc.err}})
			rec := do(r, http.MethodPost, "/api/ask", strings.NewReader(tc.body), map[string]string{"Content-Type": "application/json"})
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, tc.reason, decode[handler.ErrorResponse](t, rec).Reason)
		})
	}
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, Deps{Ask: &stubAsk{}})
	rec := do(r, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, handler.HealthResponse{Status: "healthy", Synthesizer: "template"}, decode[handler.HealthResponse](t, rec))
	require.NotEmpty(t, rec.Header().Get(handler.CorrelationHeader))
}

func TestCORS(t *testing.T) {
	r, _ := newTestRouter(t, Deps{Ask: &stubAsk{}, AllowedOrigins: []string{"http://localhost:8080"}})

	rec := do(r, http.MethodOptions, "/api/ask", nil, map[string]string{"Origin": "http://localhost:8080"})
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "http://localhost:8080", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(r, http.MethodGet, "/api/health", nil, map[string]string{"Origin": "http://evil.test"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestTranscribe(t *testing.T) {
	r, _ := newTestRouter(t, Deps{Ask: &stubAsk{}})
	rec := do(r, http.MethodPost, "/api/transcribe", bytes.NewReader([]byte{1}), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	tr := &stubTranscriber{text: "How do airplanes fly?"}
	r, _ = newTestRouter(t, Deps{Ask: &stubAsk{}, Transcriber: tr})
	rec = do(r, http.MethodPost, "/api/transcribe", bytes.NewReader([]byte{1, 2, 3}), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "How do airplanes fly?", decode[TranscribeResponse](t, rec).Transcript)
	require.Equal(t, []byte{1, 2, 3}, tr.audio)
}

func TestTranscribe_Errors(t *testing.T) {
	tr := &stubTranscriber{err: &speech.RecognitionError{Code: speech.ErrCodeNoSpeech}}
	r, _ := newTestRouter(t, Deps{Ask: &stubAsk{}, Transcriber: tr})
	rec := do(r, http.MethodPost, "/api/transcribe", bytes.NewReader([]byte{1}), nil)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Equal(t, handler.ErrorResponse{Error: "RECOGNITION_FAILED", Reason: "no-speech"}, decode[handler.ErrorResponse](t, rec))

	tr.err = &speech.RecognitionError{Code: speech.ErrCodeNetwork}
	rec = do(r, http.MethodPost, "/api/transcribe", bytes.NewReader([]byte{1}), nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	r, _ = newTestRouter(t, Deps{Ask: &stubAsk{}, Transcriber: &stubTranscriber{}, MaxAudioBytes: 2})
	rec = do(r, http.MethodPost, "/api/transcribe", bytes.NewReader([]byte{1, 2, 3, 4}), nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
