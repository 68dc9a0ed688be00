package goVault

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func scriptedSuccessProvider(user ProviderUser) *fakeProvider {
	return &fakeProvider{
		authenticateFn: func(context.Context, string, []byte) (*ProviderResponse, error) {
			return successResponse(user), nil
		},
	}
}

func TestAuthenticateSuccessIssuesToken(t *testing.T) {
	provider := scriptedSuccessProvider(ProviderUser{
		ID:      "user-1",
		Login:   "carol",
		Groups:  []string{"eng", "ops"},
		IsAdmin: true,
	})
	env, cleanup := buildTestEngine(t, testConfig(t), provider)
	defer cleanup()

	res, err := env.engine.Authenticate(context.Background(), basicHeader("carol", "hunter2"))
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if res.Status != AuthStatusSuccess {
		t.Fatalf("status = %s, want SUCCESS", res.Status)
	}
	if res.Token == "" {
		t.Fatal("expected a token")
	}
	if res.Principal == nil || res.Principal.ID != "user-1" {
		t.Fatalf("principal = %+v", res.Principal)
	}

	sc, err := env.engine.Validate(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if sc.Principal.Username != "carol" || !sc.Principal.IsAdmin {
		t.Fatalf("security context principal = %+v", sc.Principal)
	}
	if len(sc.Principal.Groups) != 2 {
		t.Fatalf("groups = %v", sc.Principal.Groups)
	}
}

func TestAuthenticateWarmsKeysForDefaultRegion(t *testing.T) {
	provider := scriptedSuccessProvider(ProviderUser{ID: "user-1", Login: "carol"})
	env, cleanup := buildTestEngine(t, testConfig(t), provider)
	defer cleanup()

	if _, err := env.engine.Authenticate(context.Background(), basicHeader("carol", "hunter2")); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	// Close waits for background provisioning.
	env.engine.Close()

	if got := env.keyStore.CreateCalls(); got != 1 {
		t.Fatalf("CreateKey calls = %d, want 1", got)
	}
	record, err := env.repo.Find(context.Background(), "user-1", "us-west-2")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if record.CreatedBy != "goVault" {
		t.Fatalf("CreatedBy = %q", record.CreatedBy)
	}
}

func TestAuthenticateWarmsKeysPerPrincipalRegion(t *testing.T) {
	provider := scriptedSuccessProvider(ProviderUser{
		ID:      "user-1",
		Login:   "carol",
		Regions: []string{"us-east-1", "eu-west-1"},
	})
	env, cleanup := buildTestEngine(t, testConfig(t), provider)
	defer cleanup()

	if _, err := env.engine.Authenticate(context.Background(), basicHeader("carol", "hunter2")); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	env.engine.Close()

	if got := env.repo.count(); got != 2 {
		t.Fatalf("provisioned records = %d, want 2", got)
	}
	if got := env.keyStore.CreateCalls(); got != 2 {
		t.Fatalf("CreateKey calls = %d, want 2", got)
	}
}

func TestAuthenticateRejectsMalformedHeader(t *testing.T) {
	env, cleanup := buildTestEngine(t, testConfig(t), &fakeProvider{})
	defer cleanup()

	_, err := env.engine.Authenticate(context.Background(), "Bearer nope")
	if !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("err = %v, want ErrBadCredentials", err)
	}
}

func TestAuthenticateFailureStateCarriesCatalogMessage(t *testing.T) {
	provider := &fakeProvider{
		authenticateFn: func(context.Context, string, []byte) (*ProviderResponse, error) {
			return &ProviderResponse{State: "LOCKED_OUT"}, nil
		},
	}
	env, cleanup := buildTestEngine(t, testConfig(t), provider)
	defer cleanup()

	_, err := env.engine.Authenticate(context.Background(), basicHeader("carol", "wrong"))
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("err = %v, want ErrAuthFailed", err)
	}
	if !strings.Contains(err.Error(), "Your user account is locked.") {
		t.Fatalf("err message = %q", err)
	}
}

func TestAuthenticateUnknownStateFallsBackToMFAHint(t *testing.T) {
	provider := &fakeProvider{
		authenticateFn: func(context.Context, string, []byte) (*ProviderResponse, error) {
			return &ProviderResponse{State: "SOMETHING_NEW"}, nil
		},
	}
	env, cleanup := buildTestEngine(t, testConfig(t), provider)
	defer cleanup()

	_, err := env.engine.Authenticate(context.Background(), basicHeader("carol", "pw"))
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("err = %v, want ErrAuthFailed", err)
	}
	if !strings.Contains(err.Error(), defaultUnknownStateMessage) {
		t.Fatalf("err message = %q", err)
	}
}

func TestAuthenticateMFARequired(t *testing.T) {
	provider := &fakeProvider{
		authenticateFn: func(context.Context, string, []byte) (*ProviderResponse, error) {
			return mfaResponse("st-1",
				ProviderFactor{ID: "f1", Provider: "OKTA", Type: "push", Status: "ACTIVE"},
				ProviderFactor{ID: "f2", Provider: "OKTA", Type: "token:software:totp", Status: "ACTIVE"},
			), nil
		},
	}
	env, cleanup := buildTestEngine(t, testConfig(t), provider)
	defer cleanup()

	res, err := env.engine.Authenticate(context.Background(), basicHeader("carol", "pw"))
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if res.Status != AuthStatusMFARequired {
		t.Fatalf("status = %s", res.Status)
	}
	if res.StateToken != "st-1" {
		t.Fatalf("state token = %q", res.StateToken)
	}
	if res.Token != "" {
		t.Fatal("no token should be issued before MFA completes")
	}
	if len(res.Factors) != 1 || res.Factors[0].ID != "f2" {
		t.Fatalf("factors = %+v", res.Factors)
	}
}

func TestAuthenticateMFAWithoutUsableFactor(t *testing.T) {
	provider := &fakeProvider{
		authenticateFn: func(context.Context, string, []byte) (*ProviderResponse, error) {
			return mfaResponse("st-1",
				ProviderFactor{ID: "f1", Provider: "OKTA", Type: "push", Status: "ACTIVE"},
				ProviderFactor{ID: "f2", Provider: "OKTA", Type: "sms", Status: "NOT_SETUP"},
			), nil
		},
	}
	env, cleanup := buildTestEngine(t, testConfig(t), provider)
	defer cleanup()

	_, err := env.engine.Authenticate(context.Background(), basicHeader("carol", "pw"))
	if !errors.Is(err, ErrMFASetupRequired) {
		t.Fatalf("err = %v, want ErrMFASetupRequired", err)
	}
}

func TestAuthenticateRateLimitsAfterRepeatedFailures(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.MaxLoginAttempts = 2

	provider := &fakeProvider{
		authenticateFn: func(context.Context, string, []byte) (*ProviderResponse, error) {
			return &ProviderResponse{State: "UNAUTHENTICATED"}, nil
		},
	}
	env, cleanup := buildTestEngine(t, cfg, provider)
	defer cleanup()

	header := basicHeader("carol", "wrong")
	for i := 0; i < 3; i++ {
		_, err := env.engine.Authenticate(context.Background(), header)
		if !errors.Is(err, ErrAuthFailed) {
			t.Fatalf("attempt %d: err = %v, want ErrAuthFailed", i, err)
		}
	}

	_, err := env.engine.Authenticate(context.Background(), header)
	if !errors.Is(err, ErrLoginRateLimited) {
		t.Fatalf("err = %v, want ErrLoginRateLimited", err)
	}
}

func TestAuthenticateSuccessResetsLoginCounter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.MaxLoginAttempts = 2

	failing := true
	provider := &fakeProvider{
		authenticateFn: func(context.Context, string, []byte) (*ProviderResponse, error) {
			if failing {
				return &ProviderResponse{State: "UNAUTHENTICATED"}, nil
			}
			return successResponse(ProviderUser{ID: "user-1", Login: "carol"}), nil
		},
	}
	env, cleanup := buildTestEngine(t, cfg, provider)
	defer cleanup()

	header := basicHeader("carol", "pw")
	for i := 0; i < 2; i++ {
		if _, err := env.engine.Authenticate(context.Background(), header); !errors.Is(err, ErrAuthFailed) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}

	failing = false
	if _, err := env.engine.Authenticate(context.Background(), header); err != nil {
		t.Fatalf("successful login failed: %v", err)
	}

	failing = true
	// Window reset: the next failure starts a fresh count instead of tripping
	// the limiter.
	if _, err := env.engine.Authenticate(context.Background(), header); !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("post-reset failure: %v", err)
	}
}
