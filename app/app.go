// Package app assembles the login service from its configuration: the
// provider registry, key resolution, token verification, sessions, the
// login orchestrator and the HTTP server with its routes.
package app

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/authflow/auth/flow"
	"github.com/kbukum/authflow/auth/oidc"
	"github.com/kbukum/authflow/auth/session"
	"github.com/kbukum/authflow/httpclient"
	"github.com/kbukum/authflow/logger"
	"github.com/kbukum/authflow/observability"
	"github.com/kbukum/authflow/redis"
	"github.com/kbukum/authflow/server"
	"github.com/kbukum/authflow/server/endpoint"
	"github.com/kbukum/authflow/server/handler"
)

// Service is the assembled login service.
type Service struct {
	Server       *server.Server
	Orchestrator *flow.Orchestrator
	Keys         *oidc.KeyResolver
	Health       *observability.HealthRegistry
}

type options struct {
	log   *logger.Logger
	tp    trace.TracerProvider
	mp    metric.MeterProvider
	redis *redis.Client
	clock func() time.Time
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger. Defaults to the global logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tp = tp }
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.mp = mp }
}

// WithRedis shares fetched signing keys through client and adds it to the
// health checks.
func WithRedis(client *redis.Client) Option {
	return func(o *options) { o.redis = client }
}

// WithClock overrides time.Now for sessions, the flow and cookies.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.clock = now }
}

// New builds the service from cfg. cfg must have defaults applied and be
// valid.
func New(cfg *Config, opts ...Option) (*Service, error) {
	o := options{
		log:   logger.GetGlobalLogger(),
		tp:    otel.GetTracerProvider(),
		mp:    otel.GetMeterProvider(),
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log

	registry, err := oidc.NewRegistry(cfg.Auth.Providers)
	if err != nil {
		return nil, fmt.Errorf("app: providers: %w", err)
	}
	client, err := httpclient.New(cfg.HTTP)
	if err != nil {
		return nil, fmt.Errorf("app: http client: %w", err)
	}

	resolverOpts := []oidc.KeyResolverOption{
		oidc.WithResolverLogger(log),
		oidc.WithResolverTracerProvider(o.tp),
		oidc.WithResolverClock(o.clock),
	}
	if o.redis != nil {
		resolverOpts = append(resolverOpts, oidc.WithKeySetStore(redis.NewKeySetStore(o.redis)))
	}
	keys := oidc.NewKeyResolver(registry, client, cfg.Auth.Keys, resolverOpts...)

	verifier := oidc.NewVerifier(registry, keys, cfg.Auth.Verifier,
		oidc.WithVerifierClock(o.clock),
		oidc.WithVerifierTracerProvider(o.tp),
	)
	codec, err := session.NewCodec(cfg.Auth.Session, session.WithClock(o.clock))
	if err != nil {
		return nil, fmt.Errorf("app: session: %w", err)
	}
	orch := flow.New(registry, verifier, codec, cfg.Auth.Flow,
		flow.WithExchanger(flow.OAuth2Exchanger{Client: client.Unwrap()}),
		flow.WithLogger(log),
		flow.WithClock(o.clock),
		flow.WithTracerProvider(o.tp),
		flow.WithMeterProvider(o.mp),
	)

	metrics, err := observability.NewMetrics(o.mp.Meter(observability.TracerName))
	if err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}

	health := observability.NewHealthRegistry(cfg.Name, cfg.Version, 0)
	if o.redis != nil {
		health.Register("redis", observability.PingCheck(o.redis.Ping))
	}
	for _, name := range registry.Names() {
		health.Register("keys."+name, keySetCheck(keys, name))
	}

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware(cfg.Name, o.tp.Tracer(observability.TracerName), metrics)
	engine := srv.Engine()
	engine.GET("/health", endpoint.Health(health))
	engine.GET("/version", endpoint.Version())
	handler.NewAuthHandler(orch, cfg.Cookies, cfg.FrontURL, log,
		handler.WithHandlerClock(o.clock),
	).Register(engine)

	log.Info("Login service assembled", logger.Fields(
		"auth", cfg.Auth.Describe(),
		"shared_keys", o.redis != nil,
	))

	return &Service{Server: srv, Orchestrator: orch, Keys: keys, Health: health}, nil
}

// keySetCheck reports degraded when a provider's keys cannot be resolved.
// Sessions keep working; only logins through that provider fail.
func keySetCheck(keys *oidc.KeyResolver, provider string) observability.HealthCheck {
	return func(ctx context.Context) observability.Health {
		set, err := keys.KeySet(ctx, provider)
		if err != nil {
			return observability.Health{Status: observability.HealthStatusDegraded, Message: err.Error()}
		}
		return observability.Health{
			Status: observability.HealthStatusUp,
			Details: map[string]string{
				"keys":       fmt.Sprint(len(set.Keys)),
				"fetched_at": set.FetchedAt.UTC().Format(time.RFC3339),
			},
		}
	}
}
