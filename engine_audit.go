package goVault

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventAuthSuccess         = "auth_success"
	auditEventAuthFailure         = "auth_failure"
	auditEventLoginRateLimited    = "login_rate_limited"
	auditEventMFARequired         = "mfa_required"
	auditEventMFATrigger          = "mfa_trigger"
	auditEventMFASuccess          = "mfa_success"
	auditEventMFAFailure          = "mfa_failure"
	auditEventMFAAttemptsExceeded = "mfa_attempts_exceeded"
	auditEventTokenIssued         = "token_issued"
	auditEventTokenRevoked        = "token_revoked"
	auditEventValidateFailure     = "validate_failure"
	auditEventKeyProvisioned      = "key_provisioned"
	auditEventKeyProvisionFailed  = "key_provision_failed"
	auditEventRateLimitTriggered  = "rate_limit_triggered"
)

// AuditErrorCode is the stable, low-cardinality error classification stamped
// on audit events.
type AuditErrorCode string

const (
	auditErrBadCredentials      AuditErrorCode = "bad_credentials"
	auditErrAuthFailed          AuditErrorCode = "auth_failed"
	auditErrRateLimited         AuditErrorCode = "rate_limited"
	auditErrMFASetupRequired    AuditErrorCode = "mfa_setup_required"
	auditErrMFAInvalid          AuditErrorCode = "mfa_invalid"
	auditErrMFAAttemptsExceeded AuditErrorCode = "mfa_attempts_exceeded"
	auditErrInvalidToken        AuditErrorCode = "invalid_token"
	auditErrExpiredToken        AuditErrorCode = "expired_token"
	auditErrProvisioningRetry   AuditErrorCode = "provisioning_retryable"
	auditErrKeyStore            AuditErrorCode = "key_store_failure"
	auditErrKeyRecordIntegrity  AuditErrorCode = "key_record_integrity"
	auditErrUnavailable         AuditErrorCode = "backend_unavailable"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	principalID string,
	username string,
	sessionID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:   time.Now().UTC(),
		EventType:   eventType,
		PrincipalID: principalID,
		Username:    username,
		SessionID:   sessionID,
		RequestID:   requestIDFromContext(ctx),
		IP:          clientIPFromContext(ctx),
		Success:     success,
		Metadata:    metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func (e *Engine) emitRateLimit(ctx context.Context, scope string, metadataBuilder func() map[string]string) {
	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", "", "", ErrLoginRateLimited, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrBadCredentials):
		return auditErrBadCredentials
	case errors.Is(err, ErrAuthFailed):
		return auditErrAuthFailed
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrMFASetupRequired):
		return auditErrMFASetupRequired
	case errors.Is(err, ErrMFAChallengeInvalid),
		errors.Is(err, ErrMFAChallengeFailed),
		errors.Is(err, ErrMFAFactorUnsupported):
		return auditErrMFAInvalid
	case errors.Is(err, ErrMFAChallengeAttemptsExceeded):
		return auditErrMFAAttemptsExceeded
	case errors.Is(err, ErrTokenExpired):
		return auditErrExpiredToken
	case errors.Is(err, ErrTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrProvisioningUnavailable):
		return auditErrProvisioningRetry
	case errors.Is(err, ErrKeyStoreFailure):
		return auditErrKeyStore
	case errors.Is(err, ErrKeyRecordIntegrity):
		return auditErrKeyRecordIntegrity
	case errors.Is(err, ErrProviderUnavailable),
		errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
