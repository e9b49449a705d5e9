// Package observability wires OpenTelemetry tracing and metrics export and
// provides the request scope and health registry used by the HTTP server.
//
//	tp, err := observability.InitTracer(ctx, cfg.TracerConfig("authflow", version, env))
//	defer tp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(otel.Meter("authflow"))
//	scope := observability.NewRequestScope(nil, metrics, "authflow", "GET", "/users/me", reqID)
//	ctx = scope.Begin(ctx)
//	defer scope.End(ctx, status, "")
package observability
