package goVault

import (
	"context"
	"time"
)

// AuthStatus is the terminal classification of an authentication attempt.
type AuthStatus string

const (
	// AuthStatusSuccess means credentials (and MFA, when required) were
	// accepted and a token was issued.
	AuthStatusSuccess AuthStatus = "SUCCESS"
	// AuthStatusMFARequired means primary credentials were accepted but a
	// factor verification must complete before a token is issued.
	AuthStatusMFARequired AuthStatus = "MFA_REQUIRED"
)

// Principal is the authenticated identity a token is issued for: a human
// user, an IAM role ARN, or a federated machine identity. The identifier is
// immutable once resolved.
type Principal struct {
	ID       string
	Username string
	Groups   []string
	IsAdmin  bool

	// Regions lists the regions where this principal's envelope keys should
	// exist. Empty means the configured default region.
	Regions []string
}

// MfaFactor is one registered MFA method, annotated with the catalog-derived
// label and trigger flag the client needs to drive the challenge.
type MfaFactor struct {
	ID       string
	Provider string
	Type     string
	Key      string
	Label    string
	// TriggerRequired is true for push/call/SMS-style factors that need an
	// explicit send-code step before verification.
	TriggerRequired bool
	Enrolled        bool
}

// AuthResult is the outcome of Authenticate or MfaCheck. Status determines
// which fields are populated: SUCCESS carries Principal, Token, and ExpiresAt;
// MFA_REQUIRED carries StateToken and the usable Factors.
type AuthResult struct {
	Status     AuthStatus
	Principal  *Principal
	Token      string
	ExpiresAt  time.Time
	StateToken string
	Factors    []MfaFactor
	Message    string
}

// SecurityContext is the request-scoped authorization context produced by
// Validate for a syntactically valid, non-expired, non-revoked token.
type SecurityContext struct {
	Principal Principal
	Token     string
	ExpiresAt time.Time
	// RefreshNeeded is set when the token's remaining lifetime is below the
	// configured refresh threshold.
	RefreshNeeded bool
}

// ProvisionedKeyRecord is the durable mapping of a (principal, region) pair to
// its envelope-encryption key. Exactly one record exists per pair; KeyID is
// immutable once written.
type ProvisionedKeyRecord struct {
	PrincipalID string
	Region      string
	KeyID       string
	CreatedBy   string
	CreatedAt   time.Time
}

// RoleKeyRepository is the durable source of truth for provisioned keys.
// Find returns ErrKeyRecordNotFound for an unprovisioned pair. Insert returns
// ErrKeyRecordExists when two writers raced; callers resolve that by
// re-reading, never by overwriting.
type RoleKeyRepository interface {
	Find(ctx context.Context, principalID, region string) (*ProvisionedKeyRecord, error)
	Insert(ctx context.Context, record ProvisionedKeyRecord) error
}

// ProviderState is the raw status reported by the identity provider during
// the multi-step login exchange.
type ProviderState string

const (
	// StateSuccess is the provider's terminal success state.
	StateSuccess ProviderState = "SUCCESS"
	// StateMFARequired means the provider demands factor verification.
	StateMFARequired ProviderState = "MFA_REQUIRED"
	// StateMFAChallenge means a factor challenge is in flight.
	StateMFAChallenge ProviderState = "MFA_CHALLENGE"
)

// ProviderUser is the identity resolved by the provider on success.
type ProviderUser struct {
	ID       string
	Login    string
	Groups   []string
	IsAdmin  bool
	Regions  []string
}

// ProviderFactor is a factor as enumerated by the identity provider,
// before catalog annotation and support filtering.
type ProviderFactor struct {
	ID       string
	Provider string
	Type     string
	Status   string
}

// ProviderResponse is one step of the provider exchange. State selects which
// fields are meaningful: SUCCESS carries User, MFA states carry StateToken
// and Factors, everything else is a terminal failure state.
type ProviderResponse struct {
	State      ProviderState
	StateToken string
	User       *ProviderUser
	Factors    []ProviderFactor
}

// IdentityProvider abstracts the federated-login protocol client. The engine
// never interprets provider wire formats; it only dispatches on the states
// these calls report.
type IdentityProvider interface {
	Authenticate(ctx context.Context, username string, password []byte) (*ProviderResponse, error)
	TriggerFactor(ctx context.Context, stateToken, factorID string) error
	VerifyFactor(ctx context.Context, stateToken, factorID, passcode string) (*ProviderResponse, error)
}
