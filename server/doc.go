// Package server provides the authflow HTTP server: a Gin engine served
// through h2c with recovery, request id, tracing, logging and CORS
// middleware (see server/middleware).
//
//	srv := server.New(cfg.Server, log)
//	srv.ApplyMiddleware("authflow", nil, metrics)
//	srv.Engine().GET("/health", endpoint.Health(registry))
//	handler.NewAuthHandler(orch, cookies, frontURL, log).Register(srv.Engine())
//	_ = srv.Start(ctx)
//	defer srv.Stop(ctx)
package server
