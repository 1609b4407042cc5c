// Package inbound authenticates provider-to-system webhooks before any
// business logic sees them.
//
// Checks run in a fixed order: signature header present, timestamp header
// present, timestamp parses, secret configured, HMAC matches, timestamp
// fresh. Only then is the body decoded as JSON, so a forged request and a
// corrupted payload produce different errors.
package inbound

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Header names read by the verifier. Lookups are case-insensitive.
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderTimestamp = "X-Webhook-Timestamp"
)

// DefaultTolerance is the accepted clock skew in either direction.
const DefaultTolerance = 5 * time.Minute

// millisThreshold separates unix seconds from unix milliseconds.
const millisThreshold = 1_000_000_000_000

// Kind classifies a verification failure.
type Kind string

const (
	KindUnauthorized  Kind = "unauthorized"
	KindBadRequest    Kind = "bad_request"
	KindMisconfigured Kind = "misconfigured"
	KindStale         Kind = "stale"
)

// Error is a verification failure with the HTTP status to answer with.
type Error struct {
	Kind   Kind
	Status int
	Msg    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("inbound: %s: %s", e.Kind, e.Msg)
}

func newError(kind Kind, msg string) *Error {
	status := http.StatusUnauthorized
	switch kind {
	case KindBadRequest:
		status = http.StatusBadRequest
	case KindMisconfigured:
		status = http.StatusInternalServerError
	}
	return &Error{Kind: kind, Status: status, Msg: msg}
}

// Verifier checks signature and freshness of inbound webhooks.
type Verifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures a Verifier.
type Option func(*Verifier)

// WithTolerance sets the accepted clock skew.
func WithTolerance(d time.Duration) Option {
	return func(v *Verifier) { v.tolerance = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

// NewVerifier creates a Verifier. An empty secret is accepted here and
// rejected on every request as a misconfiguration.
func NewVerifier(secret string, opts ...Option) *Verifier {
	v := &Verifier{
		secret:    secret,
		tolerance: DefaultTolerance,
		now:       time.Now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify authenticates body against the headers and returns it as raw JSON.
// Failures are *Error.
func (v *Verifier) Verify(header http.Header, body []byte) (json.RawMessage, error) {
	signature := strings.TrimSpace(header.Get(HeaderSignature))
	if signature == "" {
		return nil, newError(KindUnauthorized, "missing signature")
	}
	rawTS := strings.TrimSpace(header.Get(HeaderTimestamp))
	if rawTS == "" {
		return nil, newError(KindUnauthorized, "missing timestamp")
	}
	ts, err := parseTimestamp(rawTS)
	if err != nil {
		return nil, newError(KindBadRequest, "malformed timestamp")
	}
	if v.secret == "" {
		v.logger.Error("inbound webhook secret is not configured")
		return nil, newError(KindMisconfigured, "webhook secret not configured")
	}

	got, err := hex.DecodeString(signature)
	if err != nil {
		return nil, newError(KindUnauthorized, "invalid signature")
	}
	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return nil, newError(KindUnauthorized, "invalid signature")
	}

	skew := v.now().Sub(ts)
	if skew < 0 {
		skew = -skew
	}
	if skew > v.tolerance {
		return nil, newError(KindStale, fmt.Sprintf("timestamp outside tolerance by %s", (skew-v.tolerance).Round(time.Second)))
	}

	if !json.Valid(body) {
		return nil, newError(KindBadRequest, "body is not valid JSON")
	}
	return json.RawMessage(body), nil
}

// VerifyInto verifies body and decodes it into a T.
func VerifyInto[T any](v *Verifier, header http.Header, body []byte) (*T, error) {
	raw, err := v.Verify(header, body)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, newError(KindBadRequest, "body does not match the expected shape")
	}
	return &out, nil
}

// parseTimestamp accepts unix seconds or unix milliseconds.
func parseTimestamp(raw string) (time.Time, error) {
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}, fmt.Errorf("inbound: bad timestamp %q", raw)
	}
	if n >= millisThreshold {
		return time.UnixMilli(n), nil
	}
	return time.Unix(n, 0), nil
}
