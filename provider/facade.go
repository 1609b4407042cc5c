package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/backoff"
	"github.com/cladams7905/zencourt-sub006/clip"
	"github.com/cladams7905/zencourt-sub006/middleware"
)

// Defaults used when no option overrides them.
const (
	DefaultMaxAttempts      = 2
	DefaultFailureThreshold = 3
	DefaultCooldown         = 60 * time.Second
)

var errEmptyResult = errors.New("zencourt: provider returned no result")

// Facade picks an eligible strategy and dispatches through it with retry
// and per-provider circuit breaking. It is safe for concurrent use.
type Facade struct {
	strategies []Strategy
	breakers   map[string]*breaker
	limiters   map[string]*rate.Limiter

	maxAttempts      int
	failureThreshold int
	cooldown         time.Duration
	attemptTimeout   time.Duration
	rateLimit        float64
	rateBurst        int
	retryDelay       backoff.Strategy
	chain            middleware.Middleware
	mws              []middleware.Middleware
	logger           *slog.Logger
}

// Option configures a Facade.
type Option func(*Facade)

// WithMaxAttempts sets the calls made to one strategy before moving on.
func WithMaxAttempts(n int) Option {
	return func(f *Facade) { f.maxAttempts = n }
}

// WithFailureThreshold sets the consecutive failures that open a circuit.
func WithFailureThreshold(n int) Option {
	return func(f *Facade) { f.failureThreshold = n }
}

// WithCooldown sets how long an open circuit skips its provider.
func WithCooldown(d time.Duration) Option {
	return func(f *Facade) { f.cooldown = d }
}

// WithAttemptTimeout bounds each provider call.
func WithAttemptTimeout(d time.Duration) Option {
	return func(f *Facade) { f.attemptTimeout = d }
}

// WithRateLimit caps calls per second to each provider. A zero limit
// disables rate limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(f *Facade) {
		f.rateLimit = perSecond
		f.rateBurst = burst
	}
}

// WithRetryDelay waits strategy.Delay(attempt) between attempts against
// the same provider. By default attempts are immediate.
func WithRetryDelay(s backoff.Strategy) Option {
	return func(f *Facade) { f.retryDelay = s }
}

// WithMiddleware appends attempt middleware. The first is outermost.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(f *Facade) { f.mws = append(f.mws, mws...) }
}

// WithConfig applies a DispatchConfig.
func WithConfig(cfg zencourt.DispatchConfig) Option {
	return func(f *Facade) {
		f.maxAttempts = cfg.MaxAttempts
		f.failureThreshold = cfg.FailureThreshold
		f.cooldown = cfg.Cooldown
		f.attemptTimeout = cfg.AttemptTimeout
		f.rateLimit = cfg.RateLimit
		f.rateBurst = cfg.RateBurst
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Facade) { f.logger = l }
}

// New creates a Facade over strategies in priority order.
func New(strategies []Strategy, opts ...Option) (*Facade, error) {
	if len(strategies) == 0 {
		return nil, zencourt.ErrNoStrategies
	}

	f := &Facade{
		strategies:       strategies,
		breakers:         make(map[string]*breaker, len(strategies)),
		limiters:         make(map[string]*rate.Limiter, len(strategies)),
		maxAttempts:      DefaultMaxAttempts,
		failureThreshold: DefaultFailureThreshold,
		cooldown:         DefaultCooldown,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.maxAttempts < 1 {
		f.maxAttempts = 1
	}
	if f.failureThreshold < 1 {
		f.failureThreshold = 1
	}

	for _, s := range strategies {
		name := s.Name()
		if _, dup := f.breakers[name]; dup {
			return nil, fmt.Errorf("provider: duplicate strategy name %q", name)
		}
		f.breakers[name] = newBreaker(name, f.failureThreshold, f.cooldown, f.logger)
		if f.rateLimit > 0 {
			burst := f.rateBurst
			if burst <= 0 {
				burst = 1
			}
			f.limiters[name] = rate.NewLimiter(rate.Limit(f.rateLimit), burst)
		}
	}
	f.chain = middleware.Chain(f.mws...)
	return f, nil
}

// Dispatch sends in to the first eligible provider that succeeds.
func (f *Facade) Dispatch(ctx context.Context, in *clip.DispatchInput) (*clip.DispatchResult, error) {
	var (
		lastErr  error
		eligible int
	)

	for _, s := range f.strategies {
		if !s.CanHandle(in) {
			continue
		}
		eligible++

		res, err := f.dispatchTo(ctx, s, in)
		if err == nil {
			return res, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if eligible == 0 {
		return nil, zencourt.ErrNoEligibleProvider
	}
	return nil, lastErr
}

// dispatchTo makes up to maxAttempts calls to one strategy.
func (f *Facade) dispatchTo(ctx context.Context, s Strategy, in *clip.DispatchInput) (*clip.DispatchResult, error) {
	name := s.Name()
	b := f.breakers[name]

	var lastErr error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if attempt > 1 && f.retryDelay != nil {
			if err := backoff.Sleep(ctx, f.retryDelay.Delay(attempt-1)); err != nil {
				return nil, err
			}
		}
		if lim := f.limiters[name]; lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return nil, err
			}
		}

		res, err := f.attempt(ctx, b, s, in, attempt)
		switch {
		case err == nil:
			return res, nil
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			b.circuitSkips.Add(1)
			f.logger.Warn("provider circuit open, skipping",
				slog.String("provider", name),
				slog.String("job_id", in.JobID),
			)
			return nil, &CircuitOpenError{Provider: name}
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, err
		}
		if b.cb.State() == gobreaker.StateOpen {
			// This attempt tripped the breaker; report what the provider
			// said rather than a skip.
			f.logger.Warn("provider circuit opened, abandoning retries",
				slog.String("provider", name),
				slog.String("job_id", in.JobID),
				slog.Int("attempt", attempt),
			)
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (f *Facade) attempt(ctx context.Context, b *breaker, s Strategy, in *clip.DispatchInput, n int) (*clip.DispatchResult, error) {
	a := &middleware.Attempt{
		Provider: s.Name(),
		JobID:    in.JobID,
		VideoID:  in.VideoID,
		Model:    in.Model,
		Number:   n,
		Timeout:  f.attemptTimeout,
	}

	var res *clip.DispatchResult
	_, err := b.cb.Execute(func() (interface{}, error) {
		b.attempts.Add(1)
		err := f.chain(ctx, a, func(ctx context.Context) error {
			r, err := s.Dispatch(ctx, in)
			if err != nil {
				return err
			}
			if r == nil || r.RequestID == "" {
				return errEmptyResult
			}
			res = r
			return nil
		})
		if err != nil {
			b.recordFailure()
			return nil, err
		}
		b.recordSuccess()
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	if res.Provider == "" {
		res.Provider = s.Name()
	}
	if res.Model == "" {
		res.Model = in.Model
	}
	return res, nil
}

// Breaker returns a snapshot of the named provider's breaker.
func (f *Facade) Breaker(name string) (BreakerSnapshot, bool) {
	b, ok := f.breakers[name]
	if !ok {
		return BreakerSnapshot{}, false
	}
	return b.snapshot(), true
}

// Stats returns the named provider's counters.
func (f *Facade) Stats(name string) (Stats, bool) {
	b, ok := f.breakers[name]
	if !ok {
		return Stats{}, false
	}
	return b.stats(), true
}

// Providers returns strategy names in priority order.
func (f *Facade) Providers() []string {
	names := make([]string, len(f.strategies))
	for i, s := range f.strategies {
		names[i] = s.Name()
	}
	return names
}
