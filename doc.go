// Package goVault provides the trust-establishment and key-provisioning core
// of a secrets-management broker: credential and MFA authentication against a
// federated identity provider, signed short-lived bearer tokens with
// Redis-backed revocation, request-time security-context validation, and
// at-most-once envelope-key provisioning per (principal, region) pair.
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// goVault is the public surface. It exposes [Engine], [Builder], [Config],
// the collaborator contracts ([IdentityProvider], [RoleKeyRepository]), and
// value types (AuthResult, SecurityContext, ProvisionedKeyRecord). The
// distributed lock, token codec, and key-store adapter live in the lock, jwt,
// and kms subpackages; request-time guarding lives in middleware.
//
// # What this package must NOT do
//
//   - Interpret identity-provider wire formats; it dispatches only on the
//     states the [IdentityProvider] contract reports.
//   - Persist safe-deposit-box content or IAM policy; those belong to the
//     callers consuming [SecurityContext] and ResolveKey.
//   - Retry key-store calls on its own. Lock timeouts surface as retryable
//     errors and the caller owns the backoff policy.
//
// # Provisioning contract
//
// ResolveKey is linearizable per (principal, region) pair: all concurrent
// resolvers converge on one key identifier and the key store sees at most one
// creation call, across goroutines and across process instances.
package goVault
