package goVault

import (
	"errors"
	"time"
)

// TokenConfig controls minting and validation of issued bearer tokens.
type TokenConfig struct {
	// TTL is the issued token lifetime. Tokens are not refreshed in place;
	// validation reports RefreshNeeded when the remaining lifetime drops
	// below RefreshThreshold.
	TTL              time.Duration
	RefreshThreshold time.Duration

	// SigningMethod is "ed25519" or "hs256".
	SigningMethod string
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string

	RedisPrefix string
}

// MFAConfig controls the challenge window between Authenticate reporting
// MFA_REQUIRED and MfaCheck completing it.
type MFAConfig struct {
	ChallengeTTL time.Duration
	MaxAttempts  int
}

// KMSConfig controls envelope-key provisioning.
type KMSConfig struct {
	// DefaultRegion is used when a principal carries no region list.
	DefaultRegion string
	// KeyDescriptionPrefix is prepended to the provisioned key description so
	// operators can attribute keys in the cloud console.
	KeyDescriptionPrefix string
	// CreatedBy is stamped on repository records written by this instance.
	CreatedBy string
}

// LockConfig controls the distributed lock that serializes key creation
// across process instances.
type LockConfig struct {
	// LeaseTTL must cover key-creation latency plus margin; an expired lease
	// lets another holder proceed.
	LeaseTTL time.Duration
	// MaxWait bounds acquisition. Exceeding it is a retryable provisioning
	// failure, never a fatal one.
	MaxWait       time.Duration
	RetryInterval time.Duration
	RedisPrefix   string
}

// SecurityConfig controls login throttling.
type SecurityConfig struct {
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// Config is the full engine configuration tree. Zero values are filled from
// defaultConfig by Builder; Validate rejects inconsistent combinations.
type Config struct {
	Token    TokenConfig
	MFA      MFAConfig
	KMS      KMSConfig
	Lock     LockConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			TTL:              1 * time.Hour,
			RefreshThreshold: 10 * time.Minute,
			SigningMethod:    "ed25519",
			RedisPrefix:      "vtk",
		},
		MFA: MFAConfig{
			ChallengeTTL: 10 * time.Minute,
			MaxAttempts:  5,
		},
		KMS: KMSConfig{
			DefaultRegion:        "us-west-2",
			KeyDescriptionPrefix: "goVault envelope key for ",
			CreatedBy:            "goVault",
		},
		Lock: LockConfig{
			LeaseTTL:      30 * time.Second,
			MaxWait:       10 * time.Second,
			RetryInterval: 100 * time.Millisecond,
			RedisPrefix:   "vlk",
		},
		Security: SecurityConfig{
			EnableIPThrottle:      true,
			MaxLoginAttempts:      10,
			LoginCooldownDuration: 15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for internally inconsistent values.
func (c Config) Validate() error {
	if c.Token.TTL <= 0 {
		return errors.New("Token.TTL must be positive")
	}
	if c.Token.RefreshThreshold < 0 || c.Token.RefreshThreshold >= c.Token.TTL {
		return errors.New("Token.RefreshThreshold must be non-negative and below Token.TTL")
	}
	if c.Token.SigningMethod != "ed25519" && c.Token.SigningMethod != "hs256" {
		return errors.New("Token.SigningMethod must be ed25519 or hs256")
	}
	if c.Token.RedisPrefix == "" {
		return errors.New("Token.RedisPrefix must not be empty")
	}
	if c.MFA.ChallengeTTL <= 0 {
		return errors.New("MFA.ChallengeTTL must be positive")
	}
	if c.MFA.MaxAttempts <= 0 {
		return errors.New("MFA.MaxAttempts must be positive")
	}
	if c.KMS.DefaultRegion == "" {
		return errors.New("KMS.DefaultRegion must not be empty")
	}
	if c.Lock.LeaseTTL <= 0 || c.Lock.MaxWait <= 0 || c.Lock.RetryInterval <= 0 {
		return errors.New("Lock durations must be positive")
	}
	if c.Lock.RetryInterval > c.Lock.MaxWait {
		return errors.New("Lock.RetryInterval must not exceed Lock.MaxWait")
	}
	if c.Lock.RedisPrefix == "" || c.Lock.RedisPrefix == c.Token.RedisPrefix {
		return errors.New("Lock.RedisPrefix must be non-empty and distinct from Token.RedisPrefix")
	}
	if c.Security.MaxLoginAttempts <= 0 {
		return errors.New("Security.MaxLoginAttempts must be positive")
	}
	if c.Security.LoginCooldownDuration <= 0 {
		return errors.New("Security.LoginCooldownDuration must be positive")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.PrivateKey = cloneBytes(cfg.Token.PrivateKey)
	out.Token.PublicKey = cloneBytes(cfg.Token.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
