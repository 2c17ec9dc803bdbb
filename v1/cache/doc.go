// Package cache provides the caches used in front of account lookups. The
// in-memory cache spawns a background goroutine that periodically sweeps
// expired entries; Close stops it.
package cache
