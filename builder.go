package goVault

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goVault/internal/rate"
	"github.com/MrEthical07/goVault/jwt"
	"github.com/MrEthical07/goVault/kms"
	"github.com/MrEthical07/goVault/lock"
)

// Builder assembles an [Engine]. Configure it during initialization, call
// Build once, and discard it.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	identityProvider IdentityProvider
	keyStore         kms.KeyStore
	repository       RoleKeyRepository
	auditSink        AuditSink

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the entire configuration tree.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client used for tokens, challenges, locks, and
// rate limiting.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithIdentityProvider sets the federated-login protocol client.
func (b *Builder) WithIdentityProvider(ip IdentityProvider) *Builder {
	b.identityProvider = ip
	return b
}

// WithKeyStore sets the envelope-key backend. Use [kms.NewAWS] for AWS KMS.
func (b *Builder) WithKeyStore(ks kms.KeyStore) *Builder {
	b.keyStore = ks
	return b
}

// WithRoleKeyRepository sets the durable record of provisioned keys.
func (b *Builder) WithRoleKeyRepository(repo RoleKeyRepository) *Builder {
	b.repository = repo
	return b
}

// WithAuditSink sets the destination for audit events. Defaults to NoOpSink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles validation latency histograms.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wiring and returns the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.identityProvider == nil {
		return nil, errors.New("identity provider required")
	}
	if b.keyStore == nil {
		return nil, errors.New("key store required")
	}
	if b.repository == nil {
		return nil, errors.New("role key repository required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// -------- TOKEN SIGNING --------
	jwtManager, err := jwt.NewManager(jwt.Config{
		TokenTTL:      cfg.Token.TTL,
		SigningMethod: jwt.SigningMethod(cfg.Token.SigningMethod),
		PrivateKey:    cfg.Token.PrivateKey,
		PublicKey:     cfg.Token.PublicKey,
		Issuer:        cfg.Token.Issuer,
	})
	if err != nil {
		return nil, err
	}

	// -------- COORDINATION STORES --------
	tokens := newTokenStore(b.redis, cfg.Token.RedisPrefix)
	challenges := newMFAChallengeStore(b.redis)
	locks := lock.New(b.redis, cfg.Lock.RedisPrefix, lock.Config{
		RetryInterval: cfg.Lock.RetryInterval,
	})
	limiter := rate.New(b.redis, rate.Config{
		EnableIPThrottle:      cfg.Security.EnableIPThrottle,
		MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
		LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
	})

	// -------- OBSERVABILITY --------
	sink := b.auditSink
	if sink == nil {
		sink = NoOpSink{}
	}
	dispatcher := newAuditDispatcher(cfg.Audit, sink)
	metrics := NewMetrics(cfg.Metrics)

	b.built = true

	return &Engine{
		config:           cfg,
		redis:            b.redis,
		identityProvider: b.identityProvider,
		keyStore:         b.keyStore,
		repository:       b.repository,
		tokenStore:       tokens,
		challengeStore:   challenges,
		lockService:      locks,
		rateLimiter:      limiter,
		jwtManager:       jwtManager,
		audit:            dispatcher,
		metrics:          metrics,
	}, nil
}
