package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/backoff"
)

// Downloader defaults.
const (
	DefaultDownloadAttempts = 3
	DefaultDownloadTimeout  = 60 * time.Second
	maxDownloadSize         = 1 << 30
)

// statusError is a non-2xx download response.
type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("download status %d", e.code) }

// Downloader fetches URLs into memory with bounded retries.
type Downloader struct {
	http     *http.Client
	attempts int
	delay    backoff.Strategy
	logger   *slog.Logger
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithAttempts sets the total number of tries.
func WithAttempts(n int) DownloaderOption {
	return func(d *Downloader) {
		if n > 0 {
			d.attempts = n
		}
	}
}

// WithRetryDelay sets the delay between tries.
func WithRetryDelay(s backoff.Strategy) DownloaderOption {
	return func(d *Downloader) { d.delay = s }
}

// WithDownloadTimeout bounds each try.
func WithDownloadTimeout(t time.Duration) DownloaderOption {
	return func(d *Downloader) {
		if t > 0 {
			d.http.Timeout = t
		}
	}
}

// WithDownloadClient replaces the HTTP client.
func WithDownloadClient(h *http.Client) DownloaderOption {
	return func(d *Downloader) { d.http = h }
}

// WithDownloadLogger sets the logger.
func WithDownloadLogger(l *slog.Logger) DownloaderOption {
	return func(d *Downloader) { d.logger = l }
}

// NewDownloader creates a Downloader.
func NewDownloader(opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		http: &http.Client{
			Timeout:   DefaultDownloadTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		attempts: DefaultDownloadAttempts,
		delay:    backoff.NewExponential(time.Second, 10*time.Second),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Download fetches url, retrying network errors, retryable statuses and
// size mismatches. A non-retryable status fails at once.
func (d *Downloader) Download(ctx context.Context, url string, opts DownloadOptions) (*Download, error) {
	var lastErr error
	for attempt := 1; attempt <= d.attempts; attempt++ {
		if attempt > 1 {
			if err := backoff.Sleep(ctx, d.delay.Delay(attempt-1)); err != nil {
				return nil, err
			}
		}

		dl, err := d.fetch(ctx, url, opts)
		if err == nil {
			return dl, nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && !backoff.IsRetryableHTTPStatus(se.code) {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		d.logger.Warn("download attempt failed",
			slog.String("url", url),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	}
	return nil, fmt.Errorf("download %s: %w", url, lastErr)
}

func (d *Downloader) fetch(ctx context.Context, url string, opts DownloadOptions) (*Download, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := d.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		return nil, err
	}
	if opts.ExpectedSize > 0 && int64(len(body)) != opts.ExpectedSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d",
			zencourt.ErrSizeMismatch, len(body), opts.ExpectedSize)
	}

	sum := sha256.Sum256(body)
	return &Download{
		Body:        body,
		Checksum:    hex.EncodeToString(sum[:]),
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}
