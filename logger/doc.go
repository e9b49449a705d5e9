// Package logger provides structured logging for authflow using zerolog.
//
// It supports JSON and console output, level configuration and
// component-scoped loggers. Login-flow code tags entries with the provider
// name and the attempt id so a single sign-in can be followed across log
// lines. Secrets and raw tokens are never passed to the logger.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.New(&cfg, "authflow").WithComponent("flow")
//	log.Info("login completed", logger.Fields(logger.FieldProvider, "google"))
package logger
