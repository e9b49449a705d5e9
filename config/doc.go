// Package config loads service configuration from a YAML file, a .env file
// and environment variables using Viper.
//
// Every key present in the YAML file or declared through a mapstructure tag
// on the target struct can be overridden by the upper-cased, underscore
// separated environment variable (providers.google.client_id becomes
// PROVIDERS_GOOGLE_CLIENT_ID). Extra variable names can be bound to a key
// with WithEnvAliases.
//
// # Usage
//
//	var cfg app.Config
//	err := config.LoadConfig("authflow", &cfg)
package config
