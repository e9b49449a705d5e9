package oidc

import (
	"context"
	"crypto"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	jose "github.com/go-jose/go-jose/v4"
	"golang.org/x/sync/singleflight"

	apperrors "github.com/kbukum/authflow/errors"
	"github.com/kbukum/authflow/httpclient"
	"github.com/kbukum/authflow/logger"
	"github.com/kbukum/authflow/resilience"
)

const tracerName = "github.com/kbukum/authflow/auth/oidc"

// KeySetStore is an optional shared cache tier for fetched key sets, so
// replicas do not each hit the provider on a cold start. Load returns
// (nil, nil) when nothing is stored.
type KeySetStore interface {
	Load(ctx context.Context, provider string) (*SigningKeySet, error)
	Save(ctx context.Context, provider string, set *SigningKeySet, ttl time.Duration) error
}

// KeyResolverConfig configures key caching.
type KeyResolverConfig struct {
	// CacheTTL is how long a fetched key set is served before refetching. Defaults to 1h.
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`

	// MinRefreshInterval is the floor between two forced refreshes of one
	// provider. An unknown kid inside the window fails without a fetch.
	// Defaults to 10s; negative disables the floor.
	MinRefreshInterval time.Duration `yaml:"min_refresh_interval" mapstructure:"min_refresh_interval"`

	// CircuitBreaker guards each provider's discovery and JWKS endpoints.
	CircuitBreaker resilience.CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
}

// ApplyDefaults fills zero values.
func (c *KeyResolverConfig) ApplyDefaults() {
	if c.CacheTTL <= 0 {
		c.CacheTTL = time.Hour
	}
	if c.MinRefreshInterval == 0 {
		c.MinRefreshInterval = 10 * time.Second
	}
	d := resilience.DefaultCircuitBreakerConfig("")
	if c.CircuitBreaker.MaxFailures <= 0 {
		c.CircuitBreaker.MaxFailures = d.MaxFailures
	}
	if c.CircuitBreaker.Timeout <= 0 {
		c.CircuitBreaker.Timeout = d.Timeout
	}
	if c.CircuitBreaker.HalfOpenMaxCalls <= 0 {
		c.CircuitBreaker.HalfOpenMaxCalls = d.HalfOpenMaxCalls
	}
}

// cachedKeySet pairs a fetched set with its parsed public keys.
type cachedKeySet struct {
	set    *SigningKeySet
	public map[string]crypto.PublicKey
}

// KeyResolver fetches and caches provider signing keys.
//
// Reads are served from an in-memory cache under a read lock. A refresh
// runs at most once per provider at a time: concurrent callers that need
// keys while a refresh is in flight wait for it and share its result.
type KeyResolver struct {
	providers *Registry
	client    *httpclient.Client
	config    KeyResolverConfig
	store     KeySetStore
	now       func() time.Time
	log       *logger.Logger
	tracer    trace.Tracer

	mu         sync.RWMutex
	cache      map[string]*cachedKeySet
	lastForced map[string]time.Time
	group      singleflight.Group

	breakersMu sync.Mutex
	breakers   map[string]*resilience.CircuitBreaker
}

// KeyResolverOption configures a KeyResolver.
type KeyResolverOption func(*KeyResolver)

// WithKeySetStore adds a shared cache tier consulted on cold starts.
func WithKeySetStore(store KeySetStore) KeyResolverOption {
	return func(r *KeyResolver) { r.store = store }
}

// WithResolverClock overrides time.Now.
func WithResolverClock(now func() time.Time) KeyResolverOption {
	return func(r *KeyResolver) { r.now = now }
}

// WithResolverLogger sets the logger.
func WithResolverLogger(log *logger.Logger) KeyResolverOption {
	return func(r *KeyResolver) { r.log = log.WithComponent("oidc.keys") }
}

// WithResolverTracerProvider sets the tracer provider. Defaults to the global one.
func WithResolverTracerProvider(tp trace.TracerProvider) KeyResolverOption {
	return func(r *KeyResolver) { r.tracer = tp.Tracer(tracerName) }
}

// NewKeyResolver creates a resolver for the providers in reg, fetching over client.
func NewKeyResolver(reg *Registry, client *httpclient.Client, cfg KeyResolverConfig, opts ...KeyResolverOption) *KeyResolver {
	cfg.ApplyDefaults()
	r := &KeyResolver{
		providers:  reg,
		client:     client,
		config:     cfg,
		now:        time.Now,
		log:        logger.GetGlobalLogger().WithComponent("oidc.keys"),
		tracer:     otel.Tracer(tracerName),
		cache:      make(map[string]*cachedKeySet),
		lastForced: make(map[string]time.Time),
		breakers:   make(map[string]*resilience.CircuitBreaker),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the public key with id kid for provider. A kid missing
// from a cached set triggers one forced refresh before failing with
// UNKNOWN_KEY. Fetch failures fail with PROVIDER_UNAVAILABLE.
func (r *KeyResolver) Resolve(ctx context.Context, provider, kid string) (crypto.PublicKey, error) {
	entry, fetched, err := r.current(ctx, provider)
	if err != nil {
		return nil, err
	}
	if key, ok := entry.public[kid]; ok {
		return key, nil
	}
	if !fetched && r.allowForced(provider) {
		r.log.Debug("unknown key id, forcing refresh", logger.Fields(logger.FieldProvider, provider, logger.FieldKeyID, kid))
		entry, err = r.refresh(ctx, provider, true)
		if err != nil {
			return nil, err
		}
		if key, ok := entry.public[kid]; ok {
			return key, nil
		}
	}
	return nil, apperrors.UnknownKey(kid).WithProvider(provider)
}

// allowForced claims the provider's forced refresh slot, reporting false
// while the previous forced refresh is younger than MinRefreshInterval.
func (r *KeyResolver) allowForced(provider string) bool {
	if r.config.MinRefreshInterval < 0 {
		return true
	}
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	if last, ok := r.lastForced[provider]; ok && now.Sub(last) < r.config.MinRefreshInterval {
		r.log.Debug("forced refresh suppressed", logger.Fields(logger.FieldProvider, provider))
		return false
	}
	r.lastForced[provider] = now
	return true
}

// Issuer returns the issuer advertised by the provider's discovery document.
func (r *KeyResolver) Issuer(ctx context.Context, provider string) (string, error) {
	entry, _, err := r.current(ctx, provider)
	if err != nil {
		return "", err
	}
	return entry.set.Issuer, nil
}

// KeySet returns a copy of the provider's current key set, fetching it if needed.
func (r *KeyResolver) KeySet(ctx context.Context, provider string) (SigningKeySet, error) {
	entry, _, err := r.current(ctx, provider)
	if err != nil {
		return SigningKeySet{}, err
	}
	snapshot := *entry.set
	snapshot.Keys = make(map[string]jose.JSONWebKey, len(entry.set.Keys))
	for kid, k := range entry.set.Keys {
		snapshot.Keys[kid] = k
	}
	return snapshot, nil
}

// Invalidate drops the cached key set for provider. The shared store, if
// any, is left alone; the next Resolve goes to the network.
func (r *KeyResolver) Invalidate(provider string) {
	r.mu.Lock()
	delete(r.cache, provider)
	r.mu.Unlock()
}

// current returns a fresh cache entry for provider. fetched reports whether
// this call waited for a network refresh.
func (r *KeyResolver) current(ctx context.Context, provider string) (*cachedKeySet, bool, error) {
	if _, ok := r.providers.Get(provider); !ok {
		return nil, false, apperrors.NotFound("provider", provider)
	}

	r.mu.RLock()
	entry, ok := r.cache[provider]
	r.mu.RUnlock()

	if ok && r.now().Sub(entry.set.FetchedAt) < r.config.CacheTTL {
		return entry, false, nil
	}
	if !ok && r.store != nil {
		if entry := r.loadStored(ctx, provider); entry != nil {
			return entry, false, nil
		}
	}

	entry, err := r.refresh(ctx, provider, false)
	return entry, err == nil, err
}

func (r *KeyResolver) loadStored(ctx context.Context, provider string) *cachedKeySet {
	set, err := r.store.Load(ctx, provider)
	if err != nil {
		r.log.Warn("key set store load failed", logger.ErrorFields("store.load", err))
		return nil
	}
	if set == nil || r.now().Sub(set.FetchedAt) >= r.config.CacheTTL {
		return nil
	}

	cfg, _ := r.providers.Get(provider)
	entry := &cachedKeySet{set: set, public: r.parseKeys(provider, cfg.SigningAlgorithm, set.Keys)}

	r.mu.Lock()
	if existing, ok := r.cache[provider]; ok && existing.set.FetchedAt.After(set.FetchedAt) {
		entry = existing
	} else {
		r.cache[provider] = entry
	}
	r.mu.Unlock()
	return entry
}

// refresh fetches provider metadata and keys once for all concurrent
// callers. Each caller stops waiting when its own ctx is done; the shared
// fetch is bounded by the HTTP client timeout.
func (r *KeyResolver) refresh(ctx context.Context, provider string, forced bool) (*cachedKeySet, error) {
	ch := r.group.DoChan(provider, func() (any, error) {
		if !forced {
			// Another flight may have filled the cache since the caller looked.
			r.mu.RLock()
			entry, ok := r.cache[provider]
			r.mu.RUnlock()
			if ok && r.now().Sub(entry.set.FetchedAt) < r.config.CacheTTL {
				return entry, nil
			}
		}
		return r.fetch(context.WithoutCancel(ctx), provider, forced)
	})

	select {
	case <-ctx.Done():
		return nil, apperrors.ProviderUnavailable(provider, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*cachedKeySet), nil
	}
}

func (r *KeyResolver) fetch(ctx context.Context, provider string, forced bool) (*cachedKeySet, error) {
	ctx, span := r.tracer.Start(ctx, "oidc.KeyResolver.refresh", trace.WithAttributes(
		attribute.String("oidc.provider", provider),
		attribute.Bool("oidc.forced", forced),
	))
	defer span.End()

	cfg, _ := r.providers.Get(provider)
	start := r.now()

	var set *SigningKeySet
	err := r.breaker(provider).Execute(func() error {
		var fetchErr error
		set, fetchErr = r.fetchKeySet(ctx, cfg)
		return fetchErr
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "key set fetch failed")
		r.log.Warn("key set fetch failed", logger.Fields(
			logger.FieldProvider, provider,
			logger.FieldError, err.Error(),
		))
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, apperrors.ProviderUnavailable(provider, err)
		}
		return nil, err
	}

	entry := &cachedKeySet{set: set, public: r.parseKeys(provider, cfg.SigningAlgorithm, set.Keys)}
	span.SetAttributes(attribute.Int("oidc.keys", len(entry.public)))

	r.mu.Lock()
	r.cache[provider] = entry
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.Save(ctx, provider, set, r.config.CacheTTL); err != nil {
			r.log.Warn("key set store save failed", logger.ErrorFields("store.save", err))
		}
	}

	r.log.Debug("key set refreshed", logger.Fields(
		logger.FieldProvider, provider,
		"keys", len(entry.public),
		"forced", forced,
		logger.FieldDuration, r.now().Sub(start).Milliseconds(),
	))
	return entry, nil
}

type discoveryDocument struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

func (r *KeyResolver) fetchKeySet(ctx context.Context, cfg ProviderConfig) (*SigningKeySet, error) {
	doc, err := httpclient.GetJSON[discoveryDocument](ctx, r.client, cfg.DiscoveryEndpoint)
	if err != nil {
		return nil, apperrors.ProviderUnavailable(cfg.Name, fmt.Errorf("discovery: %w", err))
	}
	if doc.Issuer == "" || doc.JWKSURI == "" {
		return nil, apperrors.ProviderUnavailable(cfg.Name, errors.New("discovery: document lacks issuer or jwks_uri"))
	}

	jwks, err := httpclient.GetJSON[jwksDocument](ctx, r.client, doc.JWKSURI)
	if err != nil {
		return nil, apperrors.ProviderUnavailable(cfg.Name, fmt.Errorf("jwks: %w", err))
	}

	keys, skipped := decodeKeys(jwks.Keys)
	for _, err := range skipped {
		r.log.Debug("skipping undecodable key", logger.Fields(
			logger.FieldProvider, cfg.Name,
			logger.FieldError, err.Error(),
		))
	}
	return &SigningKeySet{
		Provider:  cfg.Name,
		Issuer:    doc.Issuer,
		JWKSURI:   doc.JWKSURI,
		Keys:      keys,
		FetchedAt: r.now(),
	}, nil
}

// parseKeys keeps the keys usable with the provider's pinned algorithm.
func (r *KeyResolver) parseKeys(provider, alg string, keys map[string]jose.JSONWebKey) map[string]crypto.PublicKey {
	out := make(map[string]crypto.PublicKey, len(keys))
	for kid, k := range keys {
		pub, err := verificationKey(k, alg)
		if err != nil {
			r.log.Debug("skipping key", logger.Fields(
				logger.FieldProvider, provider,
				logger.FieldKeyID, kid,
				logger.FieldError, err.Error(),
			))
			continue
		}
		out[kid] = pub
	}
	return out
}

func (r *KeyResolver) breaker(provider string) *resilience.CircuitBreaker {
	r.breakersMu.Lock()
	defer r.breakersMu.Unlock()

	cb, ok := r.breakers[provider]
	if !ok {
		cfg := r.config.CircuitBreaker
		cfg.Name = provider
		cfg.Now = r.now
		cfg.OnStateChange = func(name string, from, to resilience.State) {
			r.log.Warn("provider circuit breaker state changed", logger.Fields(
				logger.FieldProvider, name,
				"from", from.String(),
				"to", to.String(),
			))
		}
		cb = resilience.NewCircuitBreaker(cfg)
		r.breakers[provider] = cb
	}
	return cb
}
