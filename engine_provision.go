package goVault

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goVault/lock"
)

// ResolveKey returns the envelope-encryption key record for a
// (principal, region) pair, creating the key when the pair has never been
// provisioned. At most one key is ever created per pair: concurrent callers
// in this process share one flight, and callers across processes serialize
// on a distributed lock with a double-checked repository read inside it.
//
// ErrProvisioningUnavailable is retryable; ErrKeyRecordIntegrity is not.
func (e *Engine) ResolveKey(ctx context.Context, principalID, region string) (*ProvisionedKeyRecord, error) {
	if e == nil || e.repository == nil || e.keyStore == nil {
		return nil, ErrEngineNotReady
	}
	if principalID == "" || region == "" {
		return nil, fmt.Errorf("%w: principal and region are required", ErrKeyRecordNotFound)
	}

	// Fast path: almost every call after first login finds the record.
	record, err := e.repository.Find(ctx, principalID, region)
	if err == nil {
		e.metricInc(MetricKeyResolveFastPath)
		return record, nil
	}
	if !errors.Is(err, ErrKeyRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	flightKey := principalID + "/" + region
	v, err, _ := e.provisionGroup.Do(flightKey, func() (interface{}, error) {
		return e.provisionKey(ctx, principalID, region)
	})
	if err != nil {
		return nil, err
	}
	return v.(*ProvisionedKeyRecord), nil
}

// provisionKey runs the slow path under the distributed lock. The repository
// is re-read after acquisition: a peer may have provisioned while this
// process waited, and the key store must never be called twice for one pair.
func (e *Engine) provisionKey(ctx context.Context, principalID, region string) (*ProvisionedKeyRecord, error) {
	held, err := e.lockService.Acquire(ctx,
		"key:"+principalID+":"+region, e.config.Lock.LeaseTTL, e.config.Lock.MaxWait)
	if err != nil {
		if errors.Is(err, lock.ErrAcquireTimeout) {
			e.metricInc(MetricKeyLockTimeout)
			return nil, fmt.Errorf("%w: lock wait exhausted for %s/%s",
				ErrProvisioningUnavailable, principalID, region)
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	defer func() {
		releaseCtx := context.WithoutCancel(ctx)
		_ = held.Release(releaseCtx)
	}()

	// Double-check under the lock.
	record, err := e.repository.Find(ctx, principalID, region)
	if err == nil {
		e.metricInc(MetricKeyResolveRaceLost)
		return record, nil
	}
	if !errors.Is(err, ErrKeyRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	keyID, err := e.keyStore.CreateKey(ctx, region, e.config.KMS.KeyDescriptionPrefix+principalID)
	if err != nil {
		e.metricInc(MetricKeyStoreFailure)
		return nil, fmt.Errorf("%w: %v", ErrKeyStoreFailure, err)
	}

	newRecord := ProvisionedKeyRecord{
		PrincipalID: principalID,
		Region:      region,
		KeyID:       keyID,
		CreatedBy:   e.config.KMS.CreatedBy,
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.repository.Insert(ctx, newRecord); err != nil {
		if errors.Is(err, ErrKeyRecordExists) {
			// Lost an insert race despite the lock (a lease expired under a
			// slow holder). The stored record wins; ours is orphaned.
			existing, findErr := e.repository.Find(ctx, principalID, region)
			if findErr != nil {
				if errors.Is(findErr, ErrKeyRecordNotFound) {
					return nil, fmt.Errorf(
						"%w: insert conflict for %s/%s but re-read found nothing",
						ErrKeyRecordIntegrity, principalID, region)
				}
				return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, findErr)
			}
			e.metricInc(MetricKeyResolveRaceLost)
			return existing, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricKeyCreated)
	e.emitAudit(ctx, auditEventKeyProvisioned, true, principalID, "", "", nil, func() map[string]string {
		return map[string]string{"region": region, "key_id": keyID}
	})
	return &newRecord, nil
}
