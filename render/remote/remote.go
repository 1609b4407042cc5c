// Package remote is a render.Provider that delegates to an HTTP render
// service. A render is submitted, polled until it settles and deleted
// when the caller cancels.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/cladams7905/zencourt-sub006/backoff"
	"github.com/cladams7905/zencourt-sub006/render"
)

var _ render.Provider = (*Client)(nil)

// Remote render states.
const (
	statusCompleted = "completed"
	statusFailed    = "failed"
	statusCanceled  = "canceled"
)

// maxBody caps every response body read into memory, rendered video
// included.
const maxBody = 512 << 20

// Client talks to the render service.
type Client struct {
	http         *http.Client
	baseURL      string
	token        string
	pollInterval time.Duration
	logger       *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithPollInterval sets the delay between status polls.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		http: &http.Client{
			Timeout:   2 * time.Minute,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		baseURL:      strings.TrimRight(baseURL, "/"),
		pollInterval: 2 * time.Second,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type submitBody struct {
	JobID              string        `json:"jobId"`
	Clips              []render.Clip `json:"clips"`
	Orientation        string        `json:"orientation,omitempty"`
	TransitionDuration float64       `json:"transitionDuration,omitempty"`
}

type statusBody struct {
	ID              string  `json:"id"`
	Status          string  `json:"status"`
	Progress        float64 `json:"progress"`
	Error           string  `json:"error,omitempty"`
	VideoURL        string  `json:"videoUrl,omitempty"`
	ThumbnailURL    string  `json:"thumbnailUrl,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	FileSize        int64   `json:"fileSize,omitempty"`
}

// Render implements render.Provider.
func (c *Client) Render(ctx context.Context, req *render.Request) (*render.Result, error) {
	remoteID, err := c.submit(ctx, req)
	if err != nil {
		return nil, err
	}

	for {
		if err := backoff.Sleep(ctx, c.pollInterval); err != nil {
			c.cancelRemote(remoteID)
			return nil, err
		}

		st, err := c.status(ctx, remoteID)
		if err != nil {
			if ctx.Err() != nil {
				c.cancelRemote(remoteID)
				return nil, ctx.Err()
			}
			return nil, err
		}
		if req.OnProgress != nil {
			req.OnProgress(st.Progress)
		}

		switch st.Status {
		case statusCompleted:
			return c.collect(ctx, st)
		case statusFailed, statusCanceled:
			msg := st.Error
			if msg == "" {
				msg = "render " + st.Status
			}
			return nil, fmt.Errorf("remote render %s: %s", remoteID, msg)
		}
	}
}

func (c *Client) submit(ctx context.Context, req *render.Request) (string, error) {
	body, err := json.Marshal(submitBody{
		JobID:              req.JobID,
		Clips:              req.Clips,
		Orientation:        string(req.Orientation),
		TransitionDuration: req.TransitionDuration,
	})
	if err != nil {
		return "", err
	}

	var st statusBody
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/v1/renders", body, &st); err != nil {
		return "", fmt.Errorf("remote render: submit: %w", err)
	}
	if st.ID == "" {
		return "", errors.New("remote render: submit returned no id")
	}
	c.logger.Debug("remote render submitted",
		slog.String("render_id", req.JobID),
		slog.String("remote_id", st.ID),
	)
	return st.ID, nil
}

func (c *Client) status(ctx context.Context, remoteID string) (*statusBody, error) {
	var st statusBody
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/v1/renders/"+remoteID, nil, &st); err != nil {
		return nil, fmt.Errorf("remote render: status: %w", err)
	}
	return &st, nil
}

// cancelRemote asks the service to stop. The caller's context is already
// done, so a short detached deadline is used.
func (c *Client) cancelRemote(remoteID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.do(ctx, http.MethodDelete, c.baseURL+"/v1/renders/"+remoteID, nil, nil); err != nil {
		c.logger.Warn("remote render cancel failed",
			slog.String("remote_id", remoteID),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Client) collect(ctx context.Context, st *statusBody) (*render.Result, error) {
	res := &render.Result{
		VideoURL:        st.VideoURL,
		ThumbnailURL:    st.ThumbnailURL,
		DurationSeconds: st.DurationSeconds,
		FileSize:        st.FileSize,
	}
	if st.VideoURL == "" {
		return nil, errors.New("remote render: completed without a video url")
	}

	video, err := c.fetch(ctx, st.VideoURL)
	if err != nil {
		return nil, fmt.Errorf("remote render: fetch video: %w", err)
	}
	res.Video = video
	if res.FileSize == 0 {
		res.FileSize = int64(len(video))
	}

	if st.ThumbnailURL != "" {
		thumb, err := c.fetch(ctx, st.ThumbnailURL)
		if err != nil {
			c.logger.Warn("remote render thumbnail unavailable",
				slog.String("remote_id", st.ID),
				slog.String("error", err.Error()),
			)
		} else {
			res.Thumbnail = thumb
		}
	}
	return res, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBody))
}

func (c *Client) do(ctx context.Context, method, url string, body []byte, out any) error {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}
