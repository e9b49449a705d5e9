// Package flow drives the two-phase OAuth2 authorization code login and
// answers "who is calling" for later requests.
//
// Initiate returns the provider URL and a state value the caller must keep
// out of band (a cookie). CompleteCallback checks that state, exchanges the
// code, verifies the ID token and issues a session token. The orchestrator
// holds no per-attempt state between the two calls.
package flow

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"

	"github.com/kbukum/authflow/auth/identity"
	"github.com/kbukum/authflow/auth/oidc"
	"github.com/kbukum/authflow/errors"
	"github.com/kbukum/authflow/logger"
)

const instrumentationName = "github.com/kbukum/authflow/auth/flow"

// Status is the terminal state of a login attempt.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusFailed    Status = "failed"
)

// IDTokenVerifier verifies provider ID tokens. *oidc.Verifier implements it.
type IDTokenVerifier interface {
	Verify(ctx context.Context, provider, rawIDToken string) (identity.Identity, error)
}

// SessionCodec issues and verifies session tokens. *session.Codec implements it.
type SessionCodec interface {
	Issue(id identity.Identity, ttl time.Duration) (string, time.Time, error)
	Verify(raw string) (identity.Identity, error)
}

// Authorization is the outcome of Initiate: where to send the user and
// which state to keep for the callback.
type Authorization struct {
	AttemptID string
	Provider  string
	URL       string
	State     string
	ExpiresAt time.Time
}

// Callback is what the HTTP layer received from the provider plus the
// state it kept from Initiate.
type Callback struct {
	Provider    string
	Code        string
	State       string
	StoredState string
	AttemptID   string
	// Error is the provider's error parameter, if any. Logged only.
	Error string
}

// Result is the outcome of CompleteCallback.
type Result struct {
	Status       Status
	AttemptID    string
	Provider     string
	Identity     identity.Identity
	SessionToken string
	ExpiresAt    time.Time
}

// Orchestrator composes state guard, token exchange, ID token verification
// and session issuance.
type Orchestrator struct {
	providers *oidc.Registry
	verifier  IDTokenVerifier
	sessions  SessionCodec
	exchanger Exchanger
	state     oidc.StateGuard
	config    Config
	now       func() time.Time
	newID     func() string
	log       *logger.Logger
	tracer    trace.Tracer
	outcomes  metric.Int64Counter
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithExchanger replaces the default x/oauth2 exchanger.
func WithExchanger(e Exchanger) Option {
	return func(o *Orchestrator) { o.exchanger = e }
}

// WithStateGuard replaces the state guard.
func WithStateGuard(g oidc.StateGuard) Option {
	return func(o *Orchestrator) { o.state = g }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *Orchestrator) { o.log = l.WithComponent("flow") }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) { o.tracer = tp.Tracer(instrumentationName) }
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *Orchestrator) { o.outcomes = newOutcomeCounter(mp) }
}

// New creates an orchestrator.
func New(providers *oidc.Registry, verifier IDTokenVerifier, sessions SessionCodec, cfg Config, opts ...Option) *Orchestrator {
	cfg.ApplyDefaults()
	o := &Orchestrator{
		providers: providers,
		verifier:  verifier,
		sessions:  sessions,
		exchanger: OAuth2Exchanger{},
		config:    cfg,
		now:       time.Now,
		newID:     uuid.NewString,
		log:       logger.GetGlobalLogger().WithComponent("flow"),
		tracer:    otel.Tracer(instrumentationName),
		outcomes:  newOutcomeCounter(otel.GetMeterProvider()),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func newOutcomeCounter(mp metric.MeterProvider) metric.Int64Counter {
	counter, err := mp.Meter(instrumentationName).Int64Counter("authflow.login.outcomes",
		metric.WithDescription("Login attempts by provider and terminal status"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		logger.Warn("failed to create login outcome counter", logger.ErrorFields("metrics", err))
	}
	return counter
}

// Initiate starts a login with provider. The caller must persist the
// returned State out of band and pass it back as Callback.StoredState.
func (o *Orchestrator) Initiate(ctx context.Context, provider string) (*Authorization, error) {
	_, span := o.tracer.Start(ctx, "flow.Initiate", trace.WithAttributes(attribute.String("oidc.provider", provider)))
	defer span.End()

	cfg, ok := o.providers.Get(provider)
	if !ok {
		err := errors.NotFound("provider", provider)
		span.SetStatus(codes.Error, string(err.Code))
		return nil, err
	}

	state, err := o.state.Issue()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "state")
		return nil, err
	}

	attemptID := o.newID()
	span.SetAttributes(attribute.String("flow.attempt_id", attemptID))

	opts := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("response_mode", cfg.ResponseMode)}
	if cfg.Prompt != "" {
		opts = append(opts, oauth2.SetAuthURLParam("prompt", cfg.Prompt))
	}
	for k, v := range cfg.ExtraAuthParams {
		opts = append(opts, oauth2.SetAuthURLParam(k, v))
	}

	o.log.WithAttempt(provider, attemptID).Debug("login initiated")
	return &Authorization{
		AttemptID: attemptID,
		Provider:  provider,
		URL:       oauth2Config(cfg).AuthCodeURL(state, opts...),
		State:     state,
		ExpiresAt: o.now().Add(o.config.StateTTL),
	}, nil
}

// CompleteCallback finishes a login. A callback without a code is a
// cancellation and returns StatusCancelled with a nil error. Every other
// failure returns StatusFailed and an *errors.AppError tagged with the
// provider and attempt id. No step is retried.
func (o *Orchestrator) CompleteCallback(ctx context.Context, cb Callback) (*Result, error) {
	if cb.AttemptID == "" {
		cb.AttemptID = o.newID()
	}
	ctx, span := o.tracer.Start(ctx, "flow.CompleteCallback", trace.WithAttributes(
		attribute.String("oidc.provider", cb.Provider),
		attribute.String("flow.attempt_id", cb.AttemptID),
	))
	defer span.End()

	log := o.log.WithAttempt(cb.Provider, cb.AttemptID)
	res := &Result{AttemptID: cb.AttemptID, Provider: cb.Provider}

	id, err := o.complete(ctx, cb, res)
	switch {
	case err != nil:
		appErr, ok := errors.AsAppError(err)
		if !ok {
			appErr = errors.Internal(err)
		}
		appErr = appErr.WithProvider(cb.Provider).WithAttempt(cb.AttemptID)
		res.Status = StatusFailed
		span.RecordError(appErr)
		span.SetStatus(codes.Error, string(appErr.Code))
		log.Warn("login failed", logger.Fields(logger.FieldCode, string(appErr.Code), logger.FieldOutcome, string(res.Status)))
		o.record(ctx, cb.Provider, res.Status, appErr.Code)
		return res, appErr
	case res.Status == StatusCancelled:
		log.Info("login cancelled", logger.Fields(logger.FieldOutcome, string(res.Status), "provider_error", cb.Error))
		o.record(ctx, cb.Provider, res.Status, "")
		return res, nil
	default:
		res.Status = StatusCompleted
		res.Identity = id
		log.Info("login completed", logger.Fields(logger.FieldOutcome, string(res.Status), logger.FieldSubject, id.Subject()))
		o.record(ctx, cb.Provider, res.Status, "")
		return res, nil
	}
}

func (o *Orchestrator) complete(ctx context.Context, cb Callback, res *Result) (identity.Identity, error) {
	cfg, ok := o.providers.Get(cb.Provider)
	if !ok {
		return identity.Identity{}, errors.NotFound("provider", cb.Provider)
	}
	if cb.Code == "" {
		res.Status = StatusCancelled
		return identity.Identity{}, nil
	}
	if err := o.state.Verify(cb.State, cb.StoredState); err != nil {
		return identity.Identity{}, err
	}

	rawIDToken, err := o.exchanger.Exchange(ctx, cfg, cb.Code)
	if err != nil {
		if _, ok := errors.AsAppError(err); !ok {
			err = errors.TokenExchangeFailed(cfg.Name, err)
		}
		return identity.Identity{}, err
	}

	id, err := o.verifier.Verify(ctx, cfg.Name, rawIDToken)
	if err != nil {
		return identity.Identity{}, err
	}

	token, expiresAt, err := o.sessions.Issue(id, 0)
	if err != nil {
		return identity.Identity{}, err
	}
	res.SessionToken = token
	res.ExpiresAt = expiresAt
	return id, nil
}

// Authenticate resolves the caller of a later request from its session
// token. An empty token is UNAUTHORIZED.
func (o *Orchestrator) Authenticate(_ context.Context, rawSessionToken string) (identity.Identity, error) {
	if rawSessionToken == "" {
		return identity.Identity{}, errors.Unauthorized("")
	}
	return o.sessions.Verify(rawSessionToken)
}

func (o *Orchestrator) record(ctx context.Context, provider string, status Status, code errors.ErrorCode) {
	if o.outcomes == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("provider", provider),
		attribute.String("status", string(status)),
	}
	if code != "" {
		attrs = append(attrs, attribute.String("code", string(code)))
	}
	o.outcomes.Add(ctx, 1, metric.WithAttributes(attrs...))
}
