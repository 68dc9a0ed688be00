package goVault

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// authReply is the completion sink for one provider exchange. Resolve wins
// exactly once no matter how many state branches race to report an outcome;
// later calls are dropped.
type authReply struct {
	once   sync.Once
	result *AuthResult
	err    error
}

func (r *authReply) resolve(result *AuthResult, err error) {
	r.once.Do(func() {
		r.result = result
		r.err = err
	})
}

func (r *authReply) outcome() (*AuthResult, error) {
	return r.result, r.err
}

// dispatchProviderState routes one provider response to its state handler and
// resolves the reply. Every branch resolves; no state leaves the reply open.
func (e *Engine) dispatchProviderState(
	ctx context.Context,
	username string,
	resp *ProviderResponse,
	reply *authReply,
) {
	if resp == nil {
		reply.resolve(nil, fmt.Errorf("%w: empty provider response", ErrProviderUnavailable))
		return
	}

	switch resp.State {
	case StateSuccess:
		e.handleProviderSuccess(ctx, resp, reply)
	case StateMFARequired, StateMFAChallenge:
		e.handleMFARequired(ctx, username, resp, reply)
	default:
		reply.resolve(nil, fmt.Errorf("%w: %s", ErrAuthFailed, statusMessage(string(resp.State))))
	}
}

func (e *Engine) handleProviderSuccess(ctx context.Context, resp *ProviderResponse, reply *authReply) {
	if resp.User == nil || resp.User.ID == "" {
		reply.resolve(nil, fmt.Errorf("%w: success response carries no user", ErrProviderUnavailable))
		return
	}

	principal := Principal{
		ID:       resp.User.ID,
		Username: resp.User.Login,
		Groups:   append([]string(nil), resp.User.Groups...),
		IsAdmin:  resp.User.IsAdmin,
		Regions:  append([]string(nil), resp.User.Regions...),
	}

	result, err := e.finalizeSuccess(ctx, principal)
	reply.resolve(result, err)
}

// handleMFARequired opens a challenge window for the provider's state token.
// Principals with no usable factor cannot proceed; they must enroll first.
func (e *Engine) handleMFARequired(
	ctx context.Context,
	username string,
	resp *ProviderResponse,
	reply *authReply,
) {
	factors := usableFactors(resp.Factors)
	if len(factors) == 0 {
		reply.resolve(nil, fmt.Errorf(
			"%w: MFA is required, but no usable device is enrolled", ErrMFASetupRequired))
		return
	}
	if resp.StateToken == "" {
		reply.resolve(nil, fmt.Errorf("%w: MFA response carries no state token", ErrProviderUnavailable))
		return
	}

	factorIDs := make([]string, len(factors))
	for i, f := range factors {
		factorIDs[i] = f.ID
	}
	challenge := &mfaChallenge{
		Username:  username,
		ExpiresAt: time.Now().Add(e.config.MFA.ChallengeTTL).Unix(),
		FactorIDs: factorIDs,
	}
	if err := e.challengeStore.Save(ctx, resp.StateToken, challenge, e.config.MFA.ChallengeTTL); err != nil {
		reply.resolve(nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
		return
	}

	reply.resolve(&AuthResult{
		Status:     AuthStatusMFARequired,
		StateToken: resp.StateToken,
		Factors:    factors,
		Message:    defaultUnknownStateMessage,
	}, nil)
}
