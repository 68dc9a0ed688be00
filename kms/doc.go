// Package kms defines the key-store adapter contract the provisioning engine
// consumes, plus the AWS KMS implementation with per-region client caching.
// The adapter is stateless and region-scoped; provisioning decisions (when a
// key is created and recorded) stay with the engine.
package kms
