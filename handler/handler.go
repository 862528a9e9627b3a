package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"eli5/internal/domain"
	"eli5/internal/usecase"
)

// CorrelationHeader is echoed back on every response.
const CorrelationHeader = "X-Correlation-Id"

type AskUseCase interface {
	Ask(ctx context.Context, in usecase.AskInput) (usecase.AskOutput, error)
}

type healthReporter interface {
	Health() usecase.Health
}

// AskRequest is the body of POST /api/ask.
type AskRequest struct {
	Question     string `json:"question"`
	Difficulty   string `json:"difficulty"`
	FormatOption string `json:"format_option"`
	// UseWikipedia defaults to true when omitted.
	UseWikipedia *bool `json:"use_wikipedia,omitempty"`
}

type AskResponse struct {
	Answer           string  `json:"answer"`
	WikipediaSummary *string `json:"wikipedia_summary,omitempty"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Synthesizer string `json:"synthesizer,omitempty"`
	Model       string `json:"model,omitempty"`
}

// ToInput converts the wire request into a validated-enum AskInput.
func (r AskRequest) ToInput() (usecase.AskInput, error) {
	level, err := domain.ParseLevel(r.Difficulty)
	if err != nil {
		return usecase.AskInput{}, usecase.InvalidInput("invalid_difficulty", err)
	}
	style, err := domain.ParseStyle(r.FormatOption)
	if err != nil {
		return usecase.AskInput{}, usecase.InvalidInput("invalid_format_option", err)
	}
	useWiki := true
	if r.UseWikipedia != nil {
		useWiki = *r.UseWikipedia
	}
	return usecase.AskInput{
		Question:     r.Question,
		Level:        level,
		Style:        style,
		UseWikipedia: useWiki,
	}, nil
}

// NewAskResponse omits wikipedia_summary when Wikipedia was not consulted.
func NewAskResponse(out usecase.AskOutput) AskResponse {
	resp := AskResponse{Answer: out.Answer}
	if out.HasSummary {
		summary := out.Summary
		resp.WikipediaSummary = &summary
	}
	return resp
}

// StatusFor maps a usecase error to its HTTP status and error body.
// Anything that is not a *usecase.Error is an internal error.
func StatusFor(err error) (int, ErrorResponse) {
	var ucErr *usecase.Error
	if !errors.As(err, &ucErr) {
		return http.StatusInternalServerError, ErrorResponse{Error: string(usecase.ErrorInternal)}
	}
	body := ErrorResponse{Error: string(ucErr.Code), Reason: ucErr.Reason}
	switch ucErr.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, body
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests, body
	case usecase.ErrorUpstream:
		return http.StatusBadGateway, body
	default:
		return http.StatusInternalServerError, body
	}
}

// CorrelationID returns the first non-empty candidate or a fresh UUID.
func CorrelationID(candidates ...string) string {
	for _, c := range candidates {
		if c = strings.TrimSpace(c); c != "" {
			return c
		}
	}
	return uuid.NewString()
}

// Handler serves API Gateway proxy events.
type Handler struct {
	uc     AskUseCase
	logger *slog.Logger
}

type Option func(*Handler)

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

func NewHandler(uc AskUseCase, opts ...Option) (*Handler, error) {
	if uc == nil {
		return nil, errors.New("handler: use case must not be nil")
	}
	h := &Handler{uc: uc, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	corrID := CorrelationID(headerValue(event.Headers, CorrelationHeader), event.RequestContext.RequestID)
	logger := h.logger.With("correlation_id", corrID)

	route := strings.TrimSuffix(event.Path, "/")
	switch {
	case event.HTTPMethod == http.MethodOptions:
		return respond(http.StatusNoContent, corrID, nil), nil
	case event.HTTPMethod == http.MethodGet && (route == "/api/health" || route == "/health"):
		return respond(http.StatusOK, corrID, h.health()), nil
	case event.HTTPMethod == http.MethodPost && (route == "/api/ask" || route == "/ask"):
		return h.ask(ctx, logger, corrID, event.Body), nil
	case route == "/api/ask" || route == "/ask" || route == "/api/health" || route == "/health":
		return respond(http.StatusMethodNotAllowed, corrID, ErrorResponse{Error: "METHOD_NOT_ALLOWED"}), nil
	default:
		return respond(http.StatusNotFound, corrID, ErrorResponse{Error: "NOT_FOUND"}), nil
	}
}

func (h *Handler) ask(ctx context.Context, logger *slog.Logger, corrID, body string) events.APIGatewayProxyResponse {
	var req AskRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		logger.WarnContext(ctx, "invalid request body", "err", err)
		status, resp := StatusFor(usecase.InvalidInput("invalid_json", err))
		return respond(status, corrID, resp)
	}
	in, err := req.ToInput()
	if err != nil {
		status, resp := StatusFor(err)
		return respond(status, corrID, resp)
	}

	out, err := h.uc.Ask(ctx, in)
	if err != nil {
		status, resp := StatusFor(err)
		if status >= http.StatusInternalServerError {
			logger.ErrorContext(ctx, "ask failed", "status", status, "err", err)
		} else {
			logger.WarnContext(ctx, "ask rejected", "status", status, "err", err)
		}
		return respond(status, corrID, resp)
	}
	return respond(http.StatusOK, corrID, NewAskResponse(out))
}

func (h *Handler) health() HealthResponse {
	resp := HealthResponse{Status: "healthy"}
	if hr, ok := h.uc.(healthReporter); ok {
		health := hr.Health()
		resp.Synthesizer = health.Synthesizer
		resp.Model = health.Model
	}
	return resp
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return ""
}

func respond(status int, corrID string, body any) events.APIGatewayProxyResponse {
	headers := map[string]string{
		"Content-Type":                 "application/json",
		CorrelationHeader:              corrID,
		"Access-Control-Allow-Origin":  "*",
		"Access-Control-Allow-Headers": "Content-Type," + CorrelationHeader,
		"Access-Control-Allow-Methods": "GET,POST,OPTIONS",
	}
	if body == nil {
		return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    headers,
			Body:       `{"error":"INTERNAL_ERROR"}`,
		}
	}
	return events.APIGatewayProxyResponse{StatusCode: status, Headers: headers, Body: string(raw)}
}
