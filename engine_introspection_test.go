package goVault

import (
	"context"
	"errors"
	"testing"
)

func TestHealthReportsRedisAvailability(t *testing.T) {
	env, cleanup := buildTestEngine(t, testConfig(t), scriptedSuccessProvider(ProviderUser{ID: "u", Login: "u"}))
	defer cleanup()

	status := env.engine.Health(context.Background())
	if !status.RedisAvailable {
		t.Fatal("RedisAvailable = false with a live backend")
	}
	if status.RedisLatency <= 0 {
		t.Fatalf("RedisLatency = %v, want > 0", status.RedisLatency)
	}

	env.mr.Close()
	status = env.engine.Health(context.Background())
	if status.RedisAvailable {
		t.Fatal("RedisAvailable = true after backend shutdown")
	}
}

func TestLoginAttemptsTracksFailures(t *testing.T) {
	provider := &fakeProvider{
		authenticateFn: func(context.Context, string, []byte) (*ProviderResponse, error) {
			return &ProviderResponse{State: "UNAUTHENTICATED"}, nil
		},
	}
	env, cleanup := buildTestEngine(t, testConfig(t), provider)
	defer cleanup()

	attempts, err := env.engine.LoginAttempts(context.Background(), "carol")
	if err != nil || attempts != 0 {
		t.Fatalf("LoginAttempts = %d, %v; want 0, nil", attempts, err)
	}

	header := basicHeader("carol", "wrong")
	for i := 0; i < 2; i++ {
		if _, err := env.engine.Authenticate(context.Background(), header); !errors.Is(err, ErrAuthFailed) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}

	attempts, err = env.engine.LoginAttempts(context.Background(), "carol")
	if err != nil {
		t.Fatalf("LoginAttempts failed: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts = %d, want 2", attempts)
	}
}

func TestLoginAttemptsEmptyUsername(t *testing.T) {
	env, cleanup := buildTestEngine(t, testConfig(t), scriptedSuccessProvider(ProviderUser{ID: "u", Login: "u"}))
	defer cleanup()

	attempts, err := env.engine.LoginAttempts(context.Background(), "")
	if err != nil || attempts != 0 {
		t.Fatalf("LoginAttempts = %d, %v; want 0, nil", attempts, err)
	}
}
