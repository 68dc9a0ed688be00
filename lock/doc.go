// Package lock implements the cluster-wide mutual-exclusion primitive that
// serializes envelope-key creation across process instances. One Redis key
// per resource, SET NX with a lease TTL, and a compare-and-delete release so
// a holder whose lease expired cannot free a successor's lock.
package lock
