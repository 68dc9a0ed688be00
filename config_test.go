package goVault

import (
	"testing"
	"time"
)

func validBaseConfig(t *testing.T) Config {
	t.Helper()
	return testConfig(t)
}

func TestConfigValidateAcceptsDefaults(t *testing.T) {
	if err := validBaseConfig(t).Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestConfigValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero token ttl", func(c *Config) { c.Token.TTL = 0 }},
		{"refresh threshold above ttl", func(c *Config) { c.Token.RefreshThreshold = c.Token.TTL }},
		{"unknown signing method", func(c *Config) { c.Token.SigningMethod = "rs256" }},
		{"empty token prefix", func(c *Config) { c.Token.RedisPrefix = "" }},
		{"zero challenge ttl", func(c *Config) { c.MFA.ChallengeTTL = 0 }},
		{"zero mfa attempts", func(c *Config) { c.MFA.MaxAttempts = 0 }},
		{"empty default region", func(c *Config) { c.KMS.DefaultRegion = "" }},
		{"zero lock lease", func(c *Config) { c.Lock.LeaseTTL = 0 }},
		{"retry above max wait", func(c *Config) { c.Lock.RetryInterval = c.Lock.MaxWait + time.Second }},
		{"colliding prefixes", func(c *Config) { c.Lock.RedisPrefix = c.Token.RedisPrefix }},
		{"zero login attempts", func(c *Config) { c.Security.MaxLoginAttempts = 0 }},
		{"zero cooldown", func(c *Config) { c.Security.LoginCooldownDuration = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validBaseConfig(t)
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestBuilderRequiresDependencies(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	if _, err := New().WithConfig(testConfig(t)).Build(); err == nil {
		t.Fatal("expected error without redis")
	}
	if _, err := New().WithConfig(testConfig(t)).WithRedis(rdb).Build(); err == nil {
		t.Fatal("expected error without identity provider")
	}
	if _, err := New().
		WithConfig(testConfig(t)).
		WithRedis(rdb).
		WithIdentityProvider(&fakeProvider{}).
		Build(); err == nil {
		t.Fatal("expected error without key store")
	}
	if _, err := New().
		WithConfig(testConfig(t)).
		WithRedis(rdb).
		WithIdentityProvider(&fakeProvider{}).
		WithKeyStore(&fakeKeyStore{}).
		Build(); err == nil {
		t.Fatal("expected error without repository")
	}
}

func TestBuilderSingleUse(t *testing.T) {
	mr, rdb := newTestRedis(t)
	defer mr.Close()

	b := New().
		WithConfig(testConfig(t)).
		WithRedis(rdb).
		WithIdentityProvider(&fakeProvider{}).
		WithKeyStore(&fakeKeyStore{}).
		WithRoleKeyRepository(newMemoryRepo())

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected error on second Build")
	}
}
