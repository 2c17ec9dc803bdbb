// Package lock provides the leases that serialize edits to one resource.
//
// A Coordinator hands out named leases with an automatic expiry. The Redis
// implementation is shared by every worker pointed at the same Redis, the
// in-memory one only by goroutines of a single process. Gate wraps a
// Coordinator with a single acquisition attempt and guaranteed release.
//
// Expiry bounds how long a crashed or stuck holder blocks others. A holder that
// resumes after its lease expired may overlap with the next holder; callers
// must pick a TTL comfortably longer than the protected work.
package lock
