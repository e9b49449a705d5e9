// Package redis provides a go-redis client and the Redis-backed tier of
// the signing key cache.
package redis
