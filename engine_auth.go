package goVault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goVault/internal/rate"
	"github.com/MrEthical07/goVault/jwt"
)

// Authenticate exchanges an HTTP Basic authorization header for a bearer
// token, or for an MFA challenge when the identity provider demands factor
// verification. Failed attempts count against the login throttle; successful
// ones clear it.
func (e *Engine) Authenticate(ctx context.Context, authorizationHeader string) (*AuthResult, error) {
	if e == nil || e.identityProvider == nil {
		return nil, ErrEngineNotReady
	}

	username, password, err := decodeBasicCredentials(authorizationHeader)
	if err != nil {
		e.metricInc(MetricAuthFailure)
		e.emitAudit(ctx, auditEventAuthFailure, false, "", "", "", err, nil)
		return nil, err
	}
	defer zeroBytes(password)

	ip := clientIPFromContext(ctx)
	if err := e.rateLimiter.CheckLogin(ctx, username, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitRateLimit(ctx, "login", func() map[string]string {
				return map[string]string{"username": username}
			})
			e.emitAudit(ctx, auditEventLoginRateLimited, false, "", username, "", ErrLoginRateLimited, nil)
			return nil, ErrLoginRateLimited
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	resp, err := e.identityProvider.Authenticate(ctx, username, password)
	if err != nil {
		e.recordLoginFailure(ctx, username, ip, err)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	reply := &authReply{}
	e.dispatchProviderState(ctx, username, resp, reply)
	result, err := reply.outcome()
	if err != nil {
		e.recordLoginFailure(ctx, username, ip, err)
		return nil, err
	}

	switch result.Status {
	case AuthStatusMFARequired:
		e.metricInc(MetricMFARequired)
		e.emitAudit(ctx, auditEventMFARequired, true, "", username, "", nil, func() map[string]string {
			return map[string]string{"factors": fmt.Sprintf("%d", len(result.Factors))}
		})
	case AuthStatusSuccess:
		// A stale failure window must not fail the login; the counter TTL
		// clears it anyway.
		_ = e.rateLimiter.ResetLogin(ctx, username, ip)
	}

	return result, nil
}

func (e *Engine) recordLoginFailure(ctx context.Context, username, ip string, cause error) {
	e.metricInc(MetricAuthFailure)
	if errors.Is(cause, ErrMFASetupRequired) {
		e.metricInc(MetricMFASetupRequired)
	}
	e.emitAudit(ctx, auditEventAuthFailure, false, "", username, "", cause, nil)
	_ = e.rateLimiter.IncrementLogin(ctx, username, ip)
}

// TriggerChallenge asks the identity provider to dispatch a one-time code for
// a trigger-style factor (push, call, SMS). The state token must belong to an
// open challenge and the factor must have been offered with it.
func (e *Engine) TriggerChallenge(ctx context.Context, stateToken, factorID string) error {
	if e == nil || e.identityProvider == nil {
		return ErrEngineNotReady
	}

	challenge, err := e.loadChallenge(ctx, stateToken)
	if err != nil {
		return err
	}
	if !challenge.HasFactor(factorID) {
		return fmt.Errorf("%w: factor %s was not offered for this challenge", ErrMFAFactorUnsupported, factorID)
	}

	if err := e.identityProvider.TriggerFactor(ctx, stateToken, factorID); err != nil {
		e.emitAudit(ctx, auditEventMFATrigger, false, "", challenge.Username, "", ErrMFAChallengeFailed, nil)
		return fmt.Errorf("%w: %v", ErrMFAChallengeFailed, err)
	}

	e.metricInc(MetricMFATrigger)
	e.emitAudit(ctx, auditEventMFATrigger, true, "", challenge.Username, "", nil, func() map[string]string {
		return map[string]string{"factor_id": factorID}
	})
	return nil
}

// MfaCheck completes an open MFA challenge. An empty passcode is the trigger
// convention: it dispatches the factor's one-time code instead of verifying,
// and leaves the challenge open. Verification failures consume one attempt
// from the challenge budget; exhausting it closes the challenge.
func (e *Engine) MfaCheck(ctx context.Context, stateToken, factorID, passcode string) (*AuthResult, error) {
	if e == nil || e.identityProvider == nil {
		return nil, ErrEngineNotReady
	}

	challenge, err := e.loadChallenge(ctx, stateToken)
	if err != nil {
		return nil, err
	}
	if !challenge.HasFactor(factorID) {
		return nil, fmt.Errorf("%w: factor %s was not offered for this challenge", ErrMFAFactorUnsupported, factorID)
	}

	if passcode == "" {
		if err := e.TriggerChallenge(ctx, stateToken, factorID); err != nil {
			return nil, err
		}
		return &AuthResult{
			Status:     AuthStatusMFARequired,
			StateToken: stateToken,
			Message:    "Challenge sent. Re-submit with the one-time code.",
		}, nil
	}

	resp, err := e.identityProvider.VerifyFactor(ctx, stateToken, factorID, passcode)
	if err != nil {
		return nil, e.recordChallengeFailure(ctx, stateToken, challenge.Username, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty provider response", ErrProviderUnavailable)
	}
	if resp.State != StateSuccess {
		return nil, e.recordChallengeFailure(ctx, stateToken, challenge.Username,
			fmt.Errorf("provider reported state %s", resp.State))
	}

	// Verified. The challenge is single-use.
	_, _ = e.challengeStore.Delete(ctx, stateToken)

	reply := &authReply{}
	e.dispatchProviderState(ctx, challenge.Username, resp, reply)
	result, err := reply.outcome()
	if err != nil {
		e.metricInc(MetricMFAFailure)
		e.emitAudit(ctx, auditEventMFAFailure, false, "", challenge.Username, "", err, nil)
		return nil, err
	}

	e.metricInc(MetricMFASuccess)
	e.emitAudit(ctx, auditEventMFASuccess, true, result.Principal.ID, challenge.Username, "", nil, nil)
	return result, nil
}

func (e *Engine) loadChallenge(ctx context.Context, stateToken string) (*mfaChallenge, error) {
	challenge, err := e.challengeStore.Get(ctx, stateToken)
	if err != nil {
		switch {
		case errors.Is(err, errMFAChallengeNotFound), errors.Is(err, errMFAChallengeExpired):
			return nil, fmt.Errorf("%w: unknown or expired state token", ErrMFAChallengeInvalid)
		default:
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return challenge, nil
}

func (e *Engine) recordChallengeFailure(ctx context.Context, stateToken, username string, cause error) error {
	exceeded, err := e.challengeStore.RecordFailure(ctx, stateToken, e.config.MFA.MaxAttempts)
	if err != nil {
		switch {
		case errors.Is(err, errMFAChallengeNotFound), errors.Is(err, errMFAChallengeExpired):
			return fmt.Errorf("%w: unknown or expired state token", ErrMFAChallengeInvalid)
		default:
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	e.metricInc(MetricMFAFailure)
	if exceeded {
		e.emitAudit(ctx, auditEventMFAAttemptsExceeded, false, "", username, "", ErrMFAChallengeAttemptsExceeded, nil)
		return ErrMFAChallengeAttemptsExceeded
	}
	e.emitAudit(ctx, auditEventMFAFailure, false, "", username, "", ErrMFAChallengeFailed, nil)
	return fmt.Errorf("%w: %v", ErrMFAChallengeFailed, cause)
}

// Validate checks a bearer token and produces the request security context.
// A token passes only if its signature verifies, it has not expired, and its
// session record still exists (revocation removes the record).
func (e *Engine) Validate(ctx context.Context, token string) (*SecurityContext, error) {
	if e == nil || e.jwtManager == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	secCtx, err := e.validate(ctx, token)
	if e.metrics != nil {
		e.metrics.Observe(MetricValidateLatency, time.Since(start))
	}
	if err != nil {
		e.metricInc(MetricValidateFailure)
		e.emitAudit(ctx, auditEventValidateFailure, false, "", "", "", err, nil)
		return nil, err
	}

	e.metricInc(MetricValidateSuccess)
	return secCtx, nil
}

func (e *Engine) validate(ctx context.Context, token string) (*SecurityContext, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", ErrTokenInvalid)
	}

	claims, err := e.jwtManager.Parse(token)
	if err != nil {
		if jwt.IsExpired(err) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	record, err := e.tokenStore.Get(ctx, claims.SID)
	if err != nil {
		switch {
		case errors.Is(err, errTokenRecordNotFound):
			return nil, fmt.Errorf("%w: session revoked or unknown", ErrTokenInvalid)
		case errors.Is(err, errTokenRecordExpired):
			return nil, ErrTokenExpired
		default:
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	expiresAt := time.Unix(record.ExpiresAt, 0)
	return &SecurityContext{
		Principal: Principal{
			ID:       record.PrincipalID,
			Username: record.Username,
			Groups:   append([]string(nil), record.Groups...),
			IsAdmin:  record.IsAdmin,
		},
		Token:         token,
		ExpiresAt:     expiresAt,
		RefreshNeeded: time.Until(expiresAt) < e.config.Token.RefreshThreshold,
	}, nil
}

// Revoke invalidates a token before its natural expiry by deleting its
// session record. Revoking an already-revoked token is not an error.
func (e *Engine) Revoke(ctx context.Context, token string) error {
	if e == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}

	claims, err := e.jwtManager.Parse(token)
	if err != nil {
		if jwt.IsExpired(err) {
			return ErrTokenExpired
		}
		return fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if _, err := e.tokenStore.Delete(ctx, claims.SID); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricTokenRevoked)
	e.emitAudit(ctx, auditEventTokenRevoked, true, claims.PID, claims.Username, claims.SID, nil, nil)
	return nil
}

// finalizeSuccess mints a token for an authenticated principal, records the
// session, and schedules envelope-key provisioning for the principal's
// regions. Provisioning failures never fail the login; they surface through
// audit and later ResolveKey calls.
func (e *Engine) finalizeSuccess(ctx context.Context, principal Principal) (*AuthResult, error) {
	sid := uuid.NewString()

	token, expiresAt, err := e.jwtManager.Create(
		principal.ID, principal.Username, principal.Groups, principal.IsAdmin, sid)
	if err != nil {
		return nil, fmt.Errorf("%w: token mint: %v", ErrEngineNotReady, err)
	}

	record := &tokenRecord{
		PrincipalID: principal.ID,
		Username:    principal.Username,
		Groups:      principal.Groups,
		IsAdmin:     principal.IsAdmin,
		IssuedAt:    time.Now().Unix(),
		ExpiresAt:   expiresAt.Unix(),
	}
	if err := e.tokenStore.Save(ctx, sid, record, time.Until(expiresAt)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricAuthSuccess)
	e.metricInc(MetricTokenIssued)
	e.emitAudit(ctx, auditEventAuthSuccess, true, principal.ID, principal.Username, sid, nil, nil)
	e.emitAudit(ctx, auditEventTokenIssued, true, principal.ID, principal.Username, sid, nil, nil)

	e.provisionRegionsAsync(ctx, principal)

	return &AuthResult{
		Status:    AuthStatusSuccess,
		Principal: &principal,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// provisionRegionsAsync warms the principal's envelope keys in the
// background so the first secret write does not pay key-creation latency.
func (e *Engine) provisionRegionsAsync(ctx context.Context, principal Principal) {
	if e.keyStore == nil || e.repository == nil {
		return
	}

	regions := principal.Regions
	if len(regions) == 0 {
		regions = []string{e.config.KMS.DefaultRegion}
	}

	// The request context ends with the login; provisioning must not.
	bgCtx := context.WithoutCancel(ctx)
	for _, region := range regions {
		region := region
		e.provisionWG.Add(1)
		go func() {
			defer e.provisionWG.Done()
			if _, err := e.ResolveKey(bgCtx, principal.ID, region); err != nil {
				e.emitAudit(bgCtx, auditEventKeyProvisionFailed, false,
					principal.ID, principal.Username, "", err, func() map[string]string {
						return map[string]string{"region": region}
					})
			}
		}()
	}
}
