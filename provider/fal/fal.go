// Package fal is a provider.Strategy for queue-style generation APIs in
// the shape of fal.ai: a job is submitted with POST {base}/{model} and the
// result arrives later on a webhook.
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/provider"
)

var _ provider.Strategy = (*Client)(nil)

// Name is the strategy name reported in dispatch results.
const Name = "fal"

// DefaultBaseURL is the public queue endpoint.
const DefaultBaseURL = "https://queue.fal.run"

var errNoRequestID = errors.New("fal: response carried no request_id")

// APIError is a non-2xx answer from the queue API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fal: status %d: %s", e.Status, e.Body)
}

// Client submits generation jobs.
type Client struct {
	http       *http.Client
	baseURL    string
	apiKey     string
	webhookURL string
	models     []string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithWebhookURL sets the callback URL used when the input carries none.
func WithWebhookURL(u string) Option {
	return func(c *Client) { c.webhookURL = u }
}

// WithModels restricts CanHandle to the given model ids. Empty accepts all.
func WithModels(models ...string) Option {
	return func(c *Client) { c.models = models }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a Client authenticated with apiKey. timeout bounds each
// request.
func New(apiKey string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements provider.Strategy.
func (c *Client) Name() string { return Name }

// CanHandle accepts configured models that have a prompt or a source image.
func (c *Client) CanHandle(in *clip.DispatchInput) bool {
	if in.Prompt == "" && len(in.SourceImageURLs) == 0 {
		return false
	}
	return len(c.models) == 0 || slices.Contains(c.models, in.Model)
}

type submitRequest struct {
	Prompt      string `json:"prompt,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	Duration    string `json:"duration,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
}

type submitResponse struct {
	RequestID string `json:"request_id"`
}

// Dispatch implements provider.Strategy.
func (c *Client) Dispatch(ctx context.Context, in *clip.DispatchInput) (*clip.DispatchResult, error) {
	body := submitRequest{
		Prompt:      in.Prompt,
		AspectRatio: aspectRatio(in.Orientation),
	}
	if len(in.SourceImageURLs) > 0 {
		body.ImageURL = in.SourceImageURLs[0]
	}
	if in.DurationSeconds > 0 {
		body.Duration = strconv.Itoa(int(in.DurationSeconds))
	}
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/" + strings.TrimLeft(in.Model, "/")
	hook := in.WebhookURL
	if hook == "" {
		hook = c.webhookURL
	}
	if hook != "" {
		endpoint += "?fal_webhook=" + url.QueryEscape(hook)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fal: submit: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("fal: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out submitResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("fal: decode response: %w", err)
	}
	if out.RequestID == "" {
		return nil, errNoRequestID
	}
	return &clip.DispatchResult{RequestID: out.RequestID, Provider: Name, Model: in.Model}, nil
}

func aspectRatio(o clip.Orientation) string {
	switch o {
	case clip.OrientationVertical:
		return "9:16"
	case clip.OrientationHorizontal:
		return "16:9"
	case clip.OrientationSquare:
		return "1:1"
	default:
		return ""
	}
}
