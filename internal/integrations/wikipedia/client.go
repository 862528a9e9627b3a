package wikipedia

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL   = "https://en.wikipedia.org/api/rest_v1/page/summary"
	defaultTimeout   = 10 * time.Second
	defaultUserAgent = "eli5-explainer/1.0 (+https://github.com/eli5-ai)"
)

// ErrNoExtract is returned when the page exists but carries no usable extract.
var ErrNoExtract = errors.New("wikipedia: no extract in summary")

// summaryResponse is the subset of the REST summary payload we read.
type summaryResponse struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

// HTTPStatusError captures non-2xx responses from the summary endpoint.
type HTTPStatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("wikipedia: unexpected status %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client reads page summaries from the Wikipedia REST API.
type Client struct {
	baseURL string
	http    *resty.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if s := strings.TrimSpace(baseURL); s != "" {
			c.baseURL = s
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.SetTimeout(d)
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.http.SetHeader("User-Agent", ua)
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http: resty.New().
			SetTimeout(defaultTimeout).
			SetHeader("Accept", "application/json").
			SetHeader("User-Agent", defaultUserAgent),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func summaryURL(baseURL, topic string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	return base + "/" + url.PathEscape(topic)
}

// Summary returns the plain-text extract for topic.
func (c *Client) Summary(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", errors.New("wikipedia: topic must not be empty")
	}

	target := summaryURL(c.baseURL, topic)
	res, err := c.http.R().
		SetContext(ctx).
		Get(target)
	if err != nil {
		return "", fmt.Errorf("wikipedia: request failed: %w", err)
	}
	if res.StatusCode() < 200 || res.StatusCode() >= 300 {
		body := res.Body()
		if len(body) > 4096 {
			body = body[:4096]
		}
		return "", &HTTPStatusError{
			StatusCode: res.StatusCode(),
			URL:        target,
			Body:       string(body),
		}
	}

	var payload summaryResponse
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		return "", fmt.Errorf("wikipedia: decode response: %w", err)
	}
	extract := strings.TrimSpace(payload.Extract)
	if extract == "" {
		return "", ErrNoExtract
	}
	return extract, nil
}
