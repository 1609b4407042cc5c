package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/backoff"
	"github.com/cladams7905/zencourt-sub006/dlq"
	"github.com/cladams7905/zencourt-sub006/id"
)

// Header names set on every delivery.
const (
	HeaderSignature  = "X-Webhook-Signature"
	HeaderAttempt    = "X-Webhook-Delivery-Attempt"
	HeaderTimestamp  = "X-Webhook-Timestamp"
	HeaderDeliveryID = "X-Webhook-Delivery-Id"
)

// Defaults applied to zero-valued Options fields.
const (
	DefaultMaxRetries = 5
	DefaultBackoff    = time.Second
	DefaultTimeout    = 10 * time.Second
	// DefaultMultiplier scales the base backoff before doubling.
	DefaultMultiplier = 60.0
)

const meterName = "github.com/cladams7905/zencourt-sub006/webhook"

// DeadLetterSink receives deliveries that exhausted their retries.
// dlq.Service satisfies it.
type DeadLetterSink interface {
	Push(ctx context.Context, f dlq.Failure) error
}

// Options describes one delivery.
type Options struct {
	URL string
	// Secret overrides the service secret when set.
	Secret string
	// Payload is marshaled to JSON unless it is already []byte or
	// json.RawMessage.
	Payload any
	// MaxRetries is the number of retries after the first attempt.
	// Zero means DefaultMaxRetries; negative disables retries.
	MaxRetries int
	// Backoff is the base delay. Zero means DefaultBackoff.
	Backoff time.Duration
	// Timeout bounds each HTTP attempt. Zero means the service timeout.
	Timeout time.Duration
	// Timestamp is sent in X-Webhook-Timestamp. Zero means now.
	Timestamp time.Time

	// JobID and VideoID annotate logs and dead letters.
	JobID   string
	VideoID string
}

// Delivery reports a successful delivery.
type Delivery struct {
	ID         id.DeliveryID
	Attempts   int
	StatusCode int
}

// Service delivers signed webhooks.
type Service struct {
	client     *http.Client
	secret     string
	timeout    time.Duration
	multiplier float64
	maxRetries int
	backoff    time.Duration
	sink       DeadLetterSink
	logger     *slog.Logger

	deliveries metric.Int64Counter
	attempts   metric.Int64Counter
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient sets the HTTP client used for deliveries.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.client = c }
}

// WithSecret sets the default signing secret.
func WithSecret(secret string) Option {
	return func(s *Service) { s.secret = secret }
}

// WithTimeout sets the default per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) { s.timeout = d }
}

// WithMultiplier sets the constant the base backoff is scaled by.
func WithMultiplier(m float64) Option {
	return func(s *Service) { s.multiplier = m }
}

// WithRetryPolicy sets the retries and base backoff used when Options
// leaves them zero. A maxRetries of zero disables retries.
func WithRetryPolicy(maxRetries int, base time.Duration) Option {
	return func(s *Service) {
		if maxRetries >= 0 {
			s.maxRetries = maxRetries
		}
		if base > 0 {
			s.backoff = base
		}
	}
}

// WithDeadLetterSink parks exhausted deliveries in sink.
func WithDeadLetterSink(sink DeadLetterSink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMeter records delivery counters on meter instead of the global one.
func WithMeter(meter metric.Meter) Option {
	return func(s *Service) { s.initInstruments(meter) }
}

// NewService creates a webhook delivery service.
func NewService(opts ...Option) *Service {
	s := &Service{
		client:     &http.Client{},
		timeout:    DefaultTimeout,
		multiplier: DefaultMultiplier,
		maxRetries: DefaultMaxRetries,
		backoff:    DefaultBackoff,
		logger:     slog.Default(),
	}
	s.initInstruments(otel.Meter(meterName))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) initInstruments(meter metric.Meter) {
	s.deliveries, _ = meter.Int64Counter(
		"zencourt.webhook.deliveries",
		metric.WithDescription("Webhook deliveries by final outcome"),
		metric.WithUnit("{delivery}"),
	)
	s.attempts, _ = meter.Int64Counter(
		"zencourt.webhook.attempts",
		metric.WithDescription("Webhook HTTP attempts"),
		metric.WithUnit("{attempt}"),
	)
}

// Deliver signs and posts opts.Payload to opts.URL, retrying per the
// package rules. Failures are returned as *DeliveryError.
func (s *Service) Deliver(ctx context.Context, opts Options) (*Delivery, error) {
	return s.deliver(ctx, opts, true)
}

// Resend delivers an already encoded payload with the service secret and
// default retry settings. Exhaustion is not dead-lettered again. It lets a
// dlq.Service replay parked entries.
func (s *Service) Resend(ctx context.Context, url string, payload []byte) error {
	_, err := s.deliver(ctx, Options{URL: url, Payload: json.RawMessage(payload)}, false)
	return err
}

func (s *Service) deliver(ctx context.Context, opts Options, deadLetter bool) (*Delivery, error) {
	if opts.URL == "" {
		return nil, zencourt.ErrMissingWebhookURL
	}
	secret := opts.Secret
	if secret == "" {
		secret = s.secret
	}
	if secret == "" {
		return nil, zencourt.ErrMissingWebhookToken
	}

	body, err := encode(opts.Payload)
	if err != nil {
		return nil, fmt.Errorf("webhook: encode payload: %w", err)
	}

	maxRetries := opts.MaxRetries
	switch {
	case maxRetries == 0:
		maxRetries = s.maxRetries
	case maxRetries < 0:
		maxRetries = 0
	}
	base := opts.Backoff
	if base <= 0 {
		base = s.backoff
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}
	ts := opts.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	deliveryID := id.NewDeliveryID()
	signature := Sign(body, secret)
	strategy := backoff.WebhookStrategy(base, s.multiplier)

	var lastErr error
	attempt := 0
	for attempt < maxRetries+1 {
		attempt++

		code, err := s.post(ctx, opts.URL, body, timeout, header{
			signature:  signature,
			attempt:    attempt,
			timestamp:  ts,
			deliveryID: deliveryID,
		})
		if err == nil {
			s.record(ctx, "delivered")
			s.logger.Debug("webhook delivered",
				slog.String("delivery_id", deliveryID.String()),
				slog.String("url", opts.URL),
				slog.Int("attempt", attempt),
				slog.Int("status", code),
			)
			return &Delivery{ID: deliveryID, Attempts: attempt, StatusCode: code}, nil
		}
		lastErr = err

		var statusErr *StatusError
		if errors.As(err, &statusErr) && !backoff.IsRetryableHTTPStatus(statusErr.Code) {
			s.record(ctx, "rejected")
			s.logger.Warn("webhook rejected",
				slog.String("delivery_id", deliveryID.String()),
				slog.String("url", opts.URL),
				slog.Int("status", statusErr.Code),
			)
			return nil, &DeliveryError{URL: opts.URL, Attempts: attempt, Err: err}
		}
		if ctx.Err() != nil {
			break
		}
		if attempt > maxRetries {
			break
		}

		delay := strategy.Delay(attempt)
		s.logger.Debug("webhook attempt failed, retrying",
			slog.String("delivery_id", deliveryID.String()),
			slog.String("url", opts.URL),
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
		if err := backoff.Sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	s.record(ctx, "exhausted")
	derr := &DeliveryError{URL: opts.URL, Attempts: attempt, Err: lastErr}
	s.logger.Error("webhook delivery exhausted",
		slog.String("delivery_id", deliveryID.String()),
		slog.String("url", opts.URL),
		slog.Int("attempts", attempt),
		slog.String("error", lastErr.Error()),
	)

	if deadLetter && s.sink != nil {
		f := dlq.Failure{
			DeliveryID: deliveryID,
			URL:        opts.URL,
			Payload:    body,
			Attempts:   attempt,
			JobID:      opts.JobID,
			VideoID:    opts.VideoID,
			Err:        lastErr,
		}
		if err := s.sink.Push(context.WithoutCancel(ctx), f); err != nil {
			s.logger.Error("dead-letter push failed",
				slog.String("delivery_id", deliveryID.String()),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil, derr
}

type header struct {
	signature  string
	attempt    int
	timestamp  time.Time
	deliveryID id.DeliveryID
}

func (s *Service) post(ctx context.Context, url string, body []byte, timeout time.Duration, h header) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderSignature, h.signature)
	req.Header.Set(HeaderAttempt, strconv.Itoa(h.attempt))
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(h.timestamp.UnixMilli(), 10))
	req.Header.Set(HeaderDeliveryID, h.deliveryID.String())

	s.attempts.Add(ctx, 1)
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &StatusError{Code: resp.StatusCode}
	}
	return resp.StatusCode, nil
}

func (s *Service) record(ctx context.Context, outcome string) {
	s.deliveries.Add(context.WithoutCancel(ctx), 1,
		metric.WithAttributes(attribute.String("outcome", outcome)))
}

func encode(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return p, nil
	case []byte:
		return p, nil
	default:
		return json.Marshal(payload)
	}
}
