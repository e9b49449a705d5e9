// Package resilience guards calls to identity providers.
//
//   - CircuitBreaker fails fast while a provider keeps failing, so a dead
//     JWKS endpoint does not hold every login for the full HTTP timeout.
//   - Retry re-runs an operation with exponential backoff. Provider calls
//     use a single attempt unless configured otherwise.
//
//	cb := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("google"))
//	err := cb.Execute(func() error {
//	    return resilience.RetryFunc(ctx, cfg, fetchKeys)
//	})
package resilience
