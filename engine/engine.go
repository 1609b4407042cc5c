package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	zencourt "github.com/cladams7905/zencourt-sub006"
	"github.com/cladams7905/zencourt-sub006/callback"
	"github.com/cladams7905/zencourt-sub006/completion"
	"github.com/cladams7905/zencourt-sub006/cron"
	"github.com/cladams7905/zencourt-sub006/dlq"
	"github.com/cladams7905/zencourt-sub006/ext"
	"github.com/cladams7905/zencourt-sub006/generation"
	"github.com/cladams7905/zencourt-sub006/inbound"
	mw "github.com/cladams7905/zencourt-sub006/middleware"
	"github.com/cladams7905/zencourt-sub006/observability"
	"github.com/cladams7905/zencourt-sub006/provider"
	"github.com/cladams7905/zencourt-sub006/provider/fal"
	"github.com/cladams7905/zencourt-sub006/render"
	"github.com/cladams7905/zencourt-sub006/render/remote"
	"github.com/cladams7905/zencourt-sub006/storage"
	"github.com/cladams7905/zencourt-sub006/storage/s3"
	"github.com/cladams7905/zencourt-sub006/store"
	"github.com/cladams7905/zencourt-sub006/stream"
	"github.com/cladams7905/zencourt-sub006/webhook"
)

const instrumentationName = "github.com/cladams7905/zencourt-sub006"

// Engine holds every orchestration component built from one Config.
type Engine struct {
	cfg        zencourt.Config
	store      store.Store
	extensions *ext.Registry
	broker     *stream.Broker
	logger     *slog.Logger

	dlqService *dlq.Service
	webhooks   *webhook.Service
	notifier   *webhook.Notifier
	facade     *provider.Facade
	verifier   *inbound.Verifier
	storage    storage.Storage
	completer  *completion.Orchestrator
	callbacks  *callback.Handler
	generator  *generation.Orchestrator
	renders    *render.Queue
	scheduler  *cron.Scheduler

	// Build inputs.
	exts           []ext.Extension
	strategies     []provider.Strategy
	renderProvider render.Provider
	mws            []mw.Middleware
	callbackURL    generation.CallbackURLFunc
	httpClient     *http.Client

	// OpenTelemetry providers (optional; nil means use global).
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

// Option configures an Engine.
type Option func(*Engine)

// WithExtension registers an extension with the engine.
func WithExtension(e ext.Extension) Option {
	return func(eng *Engine) {
		eng.exts = append(eng.exts, e)
	}
}

// WithStrategy adds a generation provider. Strategies added here take
// priority over the ones built from the config.
func WithStrategy(s provider.Strategy) Option {
	return func(eng *Engine) {
		eng.strategies = append(eng.strategies, s)
	}
}

// WithRenderProvider sets the render backend, overriding Render.ServiceURL.
func WithRenderProvider(p render.Provider) Option {
	return func(eng *Engine) {
		eng.renderProvider = p
	}
}

// WithStorage sets the object store, overriding the Storage section.
func WithStorage(s storage.Storage) Option {
	return func(eng *Engine) {
		eng.storage = s
	}
}

// WithMiddleware appends provider attempt middleware after the defaults.
func WithMiddleware(m mw.Middleware) Option {
	return func(eng *Engine) {
		eng.mws = append(eng.mws, m)
	}
}

// WithCallbackURL sets the per-job webhook URL handed to providers.
func WithCallbackURL(fn generation.CallbackURLFunc) Option {
	return func(eng *Engine) {
		eng.callbackURL = fn
	}
}

// WithHTTPClient sets the client used for outbound status webhooks.
func WithHTTPClient(c *http.Client) Option {
	return func(eng *Engine) {
		eng.httpClient = c
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(eng *Engine) {
		eng.logger = l
	}
}

// WithTracerProvider sets a custom OTel TracerProvider for the provider
// tracing middleware. If not set, the global one is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(eng *Engine) {
		eng.tracerProvider = tp
	}
}

// WithMeterProvider sets a custom OTel MeterProvider for the provider
// metrics middleware and webhook delivery metrics. If not set, the
// global one is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(eng *Engine) {
		eng.meterProvider = mp
	}
}

// Build wires every component on top of st.
func Build(ctx context.Context, cfg zencourt.Config, st store.Store, opts ...Option) (*Engine, error) {
	if st == nil {
		return nil, zencourt.ErrNoStore
	}

	eng := &Engine{
		cfg:    cfg,
		store:  st,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(eng)
	}
	logger := eng.logger

	eng.extensions = ext.NewRegistry(logger)
	eng.broker = stream.NewBroker(logger)
	eng.extensions.Register(eng.broker)
	eng.extensions.Register(observability.NewMetricsExtension())
	for _, e := range eng.exts {
		eng.extensions.Register(e)
	}

	// Dead letters and outbound webhooks.
	eng.dlqService = dlq.NewService(st, nil, logger)
	whOpts := []webhook.Option{
		webhook.WithSecret(cfg.Webhook.Secret),
		webhook.WithTimeout(cfg.Webhook.Timeout),
		webhook.WithRetryPolicy(cfg.Webhook.MaxRetries, cfg.Webhook.Backoff),
		webhook.WithDeadLetterSink(eng.dlqService),
		webhook.WithLogger(logger),
	}
	if eng.httpClient == nil {
		eng.httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	whOpts = append(whOpts, webhook.WithHTTPClient(eng.httpClient))
	if eng.meterProvider != nil {
		whOpts = append(whOpts, webhook.WithMeter(eng.meterProvider.Meter(instrumentationName+"/webhook")))
	}
	eng.webhooks = webhook.NewService(whOpts...)
	eng.dlqService.SetSender(eng.webhooks)
	eng.notifier = webhook.NewNotifier(eng.webhooks, st, logger)

	// Provider facade.
	if cfg.Fal.APIKey != "" {
		falOpts := []fal.Option{fal.WithBaseURL(cfg.Fal.BaseURL)}
		if cfg.Fal.WebhookURL != "" {
			falOpts = append(falOpts, fal.WithWebhookURL(cfg.Fal.WebhookURL))
		}
		if len(cfg.Fal.Models) > 0 {
			falOpts = append(falOpts, fal.WithModels(cfg.Fal.Models...))
		}
		eng.strategies = append(eng.strategies, fal.New(cfg.Fal.APIKey, cfg.Fal.HTTPTimeout, falOpts...))
	}
	facade, err := provider.New(eng.strategies,
		provider.WithConfig(cfg.Dispatch),
		provider.WithMiddleware(eng.middlewares()...),
		provider.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("build provider facade: %w", err)
	}
	eng.facade = facade

	eng.verifier = inbound.NewVerifier(cfg.Inbound.Secret,
		inbound.WithTolerance(cfg.Inbound.Tolerance),
		inbound.WithLogger(logger),
	)

	// Storage and the completion path.
	if eng.storage == nil && cfg.Storage.Bucket != "" {
		s3Store, s3Err := s3.New(ctx, cfg.Storage)
		if s3Err != nil {
			return nil, fmt.Errorf("build storage: %w", s3Err)
		}
		eng.storage = s3Store
	}
	eng.completer, err = completion.New(st, eng.storage,
		completion.WithNotifier(eng.notifier),
		completion.WithExtensions(eng.extensions),
		completion.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("build completion: %w", err)
	}
	eng.callbacks = callback.NewHandler(st, eng.completer,
		callback.WithNotifier(eng.notifier),
		callback.WithExtensions(eng.extensions),
		callback.WithLogger(logger),
	)

	eng.generator = generation.New(st,
		generation.FacadeDispatch(eng.facade, st, eng.callbackURL),
		generation.WithConcurrency(cfg.Generation.Concurrency),
		generation.WithExtensions(eng.extensions),
		generation.WithLogger(logger),
	)

	// Render queue is optional.
	if eng.renderProvider == nil && cfg.Render.ServiceURL != "" {
		eng.renderProvider = remote.New(cfg.Render.ServiceURL,
			remote.WithToken(cfg.Render.ServiceToken),
			remote.WithPollInterval(cfg.Render.PollInterval),
			remote.WithLogger(logger),
		)
	}
	if eng.renderProvider != nil {
		eng.renders, err = render.NewQueue(eng.renderProvider,
			render.WithExtensions(eng.extensions),
			render.WithLogger(logger),
		)
		if err != nil {
			return nil, fmt.Errorf("build render queue: %w", err)
		}
	}

	// Maintenance tasks.
	eng.scheduler = cron.NewScheduler(cron.WithLogger(logger))
	if cfg.Webhook.DLQRetention > 0 && cfg.Webhook.DLQPurgeSchedule != "" {
		if err := eng.scheduler.Register(cron.DLQPurge(cfg.Webhook.DLQPurgeSchedule, eng.dlqService, cfg.Webhook.DLQRetention, logger)); err != nil {
			return nil, fmt.Errorf("register dlq purge: %w", err)
		}
	}
	if eng.renders != nil && cfg.Render.Retention > 0 && cfg.Render.SweepSchedule != "" {
		if err := eng.scheduler.Register(cron.RenderSweep(cfg.Render.SweepSchedule, eng.renders, cfg.Render.Retention, logger)); err != nil {
			return nil, fmt.Errorf("register render sweep: %w", err)
		}
	}

	return eng, nil
}

// middlewares builds the provider attempt chain:
// recover, tracing, metrics, logging, timeout, then user middleware.
func (eng *Engine) middlewares() []mw.Middleware {
	var tracingMw mw.Middleware
	if eng.tracerProvider != nil {
		tracingMw = mw.TracingWithTracer(eng.tracerProvider.Tracer(instrumentationName))
	} else {
		tracingMw = mw.Tracing()
	}

	var metricsMw mw.Middleware
	if eng.meterProvider != nil {
		metricsMw = mw.MetricsWithMeter(eng.meterProvider.Meter(instrumentationName))
	} else {
		metricsMw = mw.Metrics()
	}

	all := []mw.Middleware{
		mw.Recover(eng.logger),
		tracingMw,
		metricsMw,
		mw.Logging(eng.logger),
		mw.Timeout(),
	}
	return append(all, eng.mws...)
}

// Start runs the maintenance scheduler.
func (eng *Engine) Start(ctx context.Context) error {
	if err := eng.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	eng.logger.Info("engine started",
		slog.Any("providers", eng.facade.Providers()),
		slog.Bool("renders", eng.renders != nil),
	)
	return nil
}

// Stop halts the scheduler, cancels in-flight renders, drains pending
// webhooks and fires the shutdown hook.
func (eng *Engine) Stop(ctx context.Context) error {
	var errs []error
	if err := eng.scheduler.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
	}
	if eng.renders != nil {
		if err := eng.renders.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close render queue: %w", err))
		}
	}

	drained := make(chan struct{})
	go func() {
		eng.notifier.Close()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		errs = append(errs, fmt.Errorf("drain webhooks: %w", ctx.Err()))
	}

	eng.extensions.EmitShutdown(ctx)
	return errors.Join(errs...)
}

// Config returns the configuration the engine was built from.
func (eng *Engine) Config() zencourt.Config { return eng.cfg }

// Store returns the backing store.
func (eng *Engine) Store() store.Store { return eng.store }

// Extensions returns the extension registry.
func (eng *Engine) Extensions() *ext.Registry { return eng.extensions }

// Broker returns the event stream broker.
func (eng *Engine) Broker() *stream.Broker { return eng.broker }

// Logger returns the engine logger.
func (eng *Engine) Logger() *slog.Logger { return eng.logger }

// DLQService returns the dead letter service for replay and inspection.
func (eng *Engine) DLQService() *dlq.Service { return eng.dlqService }

// Webhooks returns the outbound webhook service.
func (eng *Engine) Webhooks() *webhook.Service { return eng.webhooks }

// Notifier returns the status webhook notifier.
func (eng *Engine) Notifier() *webhook.Notifier { return eng.notifier }

// Providers returns the provider facade.
func (eng *Engine) Providers() *provider.Facade { return eng.facade }

// Verifier returns the inbound webhook verifier.
func (eng *Engine) Verifier() *inbound.Verifier { return eng.verifier }

// Completion returns the completion orchestrator.
func (eng *Engine) Completion() *completion.Orchestrator { return eng.completer }

// Callbacks returns the provider callback handler.
func (eng *Engine) Callbacks() *callback.Handler { return eng.callbacks }

// CallbackHandler returns the verified HTTP endpoint for provider
// callbacks.
func (eng *Engine) CallbackHandler() http.Handler {
	return callback.NewHTTPHandler(eng.verifier, eng.callbacks, eng.logger)
}

// Generation returns the generation orchestrator.
func (eng *Engine) Generation() *generation.Orchestrator { return eng.generator }

// Renders returns the render queue, or nil when no render backend is
// configured.
func (eng *Engine) Renders() *render.Queue { return eng.renders }

// Scheduler returns the maintenance scheduler.
func (eng *Engine) Scheduler() *cron.Scheduler { return eng.scheduler }
