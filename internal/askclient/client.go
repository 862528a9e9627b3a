package askclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"eli5/handler"
	"eli5/internal/usecase"
)

// DefaultBaseURL is the local development backend.
const DefaultBaseURL = "http://127.0.0.1:8000"

const defaultTimeout = 60 * time.Second

// StatusError is a non-2xx reply from the backend.
type StatusError struct {
	StatusCode int
	Code       string
	Reason     string
}

func (e *StatusError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("askclient: backend returned %d %s", e.StatusCode, e.Code)
	}
	return fmt.Sprintf("askclient: backend returned %d %s (%s)", e.StatusCode, e.Code, e.Reason)
}

func (e *StatusError) HTTPStatusCode() int { return e.StatusCode }

// Client calls a remote /api/ask backend.
type Client struct {
	baseURL string
	http    *resty.Client
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

func WithCorrelationID(id string) Option {
	return func(c *Client) {
		c.http.SetHeader(handler.CorrelationHeader, id)
	}
}

func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http: resty.New().
			SetTimeout(defaultTimeout).
			SetHeader("Accept", "application/json"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask posts the question and returns the backend's answer. Stage callbacks
// are not reported since the backend runs the whole pipeline in one call.
func (c *Client) Ask(ctx context.Context, in usecase.AskInput) (usecase.AskOutput, error) {
	useWiki := in.UseWikipedia
	body := handler.AskRequest{
		Question:     in.Question,
		Difficulty:   in.Level.String(),
		FormatOption: in.Style.String(),
		UseWikipedia: &useWiki,
	}

	var out handler.AskResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		Post(c.baseURL + "/api/ask")
	if err != nil {
		return usecase.AskOutput{}, fmt.Errorf("askclient: request failed: %w", err)
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		return usecase.AskOutput{}, statusError(res)
	}

	result := usecase.AskOutput{Answer: out.Answer}
	if out.WikipediaSummary != nil {
		result.Summary = *out.WikipediaSummary
		result.HasSummary = true
	}
	return result, nil
}

// Health fetches GET /api/health.
func (c *Client) Health(ctx context.Context) (handler.HealthResponse, error) {
	var out handler.HealthResponse
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(c.baseURL + "/api/health")
	if err != nil {
		return handler.HealthResponse{}, fmt.Errorf("askclient: request failed: %w", err)
	}
	if res.StatusCode() != 200 {
		return handler.HealthResponse{}, statusError(res)
	}
	return out, nil
}

func statusError(res *resty.Response) *StatusError {
	e := &StatusError{StatusCode: res.StatusCode()}
	var body handler.ErrorResponse
	if err := json.Unmarshal(res.Body(), &body); err == nil {
		e.Code = body.Error
		e.Reason = body.Reason
	}
	if e.Code == "" {
		e.Code = "HTTP_ERROR"
	}
	return e
}
