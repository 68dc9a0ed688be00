package goVault

import "errors"

var (
	// ErrBadCredentials is returned when the Basic authorization header is
	// absent, malformed, or the decoded credentials are empty.
	ErrBadCredentials = errors.New("invalid or missing credentials")
	// ErrAuthFailed is returned when the identity provider reports a terminal
	// failure state. The wrapped message carries the user-facing remediation.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrMFASetupRequired is returned when MFA is required but the principal
	// has no usable factor enrolled.
	ErrMFASetupRequired = errors.New("mfa setup required")
	// ErrMFAChallengeInvalid is returned for an unknown or expired MFA state token.
	ErrMFAChallengeInvalid = errors.New("mfa challenge invalid")
	// ErrMFAChallengeFailed is returned when a factor verification or trigger
	// dispatch is rejected for the current attempt.
	ErrMFAChallengeFailed = errors.New("mfa challenge failed")
	// ErrMFAChallengeAttemptsExceeded is returned when the per-challenge
	// verification attempt budget is exhausted.
	ErrMFAChallengeAttemptsExceeded = errors.New("mfa challenge attempts exceeded")
	// ErrMFAFactorUnsupported is returned when the selected factor is not in
	// the supported set.
	ErrMFAFactorUnsupported = errors.New("mfa factor not supported")
	// ErrLoginRateLimited is returned when the username/IP pair exceeds
	// the failed-login budget.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrProviderUnavailable is returned when the identity provider exchange
	// fails at the transport level.
	ErrProviderUnavailable = errors.New("identity provider unavailable")

	// ErrTokenInvalid is returned for tokens that fail signature, structure,
	// or revocation checks.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned for well-formed tokens past their expiry.
	ErrTokenExpired = errors.New("token expired")

	// ErrProvisioningUnavailable signals a retryable key-provisioning failure,
	// typically a lock acquisition timeout. Callers should back off and retry.
	ErrProvisioningUnavailable = errors.New("key provisioning unavailable, retry")
	// ErrKeyStoreFailure is returned when the key store rejects a creation or
	// encryption call. A held lock is always released before this surfaces.
	ErrKeyStoreFailure = errors.New("key store operation failed")
	// ErrKeyRecordNotFound is returned by RoleKeyRepository.Find for an
	// unprovisioned (principal, region) pair.
	ErrKeyRecordNotFound = errors.New("key record not found")
	// ErrKeyRecordExists is returned by RoleKeyRepository.Insert when a record
	// for the pair already exists. Resolved locally by re-reading.
	ErrKeyRecordExists = errors.New("key record already exists")
	// ErrKeyRecordIntegrity is returned when an insert conflict is followed by
	// a re-read miss. This is a fatal inconsistency, not a retryable race.
	ErrKeyRecordIntegrity = errors.New("key record integrity violation")

	// ErrStoreUnavailable is returned when the Redis coordination backend
	// cannot be reached.
	ErrStoreUnavailable = errors.New("coordination store unavailable")
	// ErrEngineNotReady is returned when an Engine method is invoked before
	// Build wired its dependencies.
	ErrEngineNotReady = errors.New("engine not ready")
)
