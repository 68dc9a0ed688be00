package goVault

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goVault/kms"
)

// fakeProvider scripts the identity-provider exchange per test.
type fakeProvider struct {
	authenticateFn func(ctx context.Context, username string, password []byte) (*ProviderResponse, error)
	triggerFn      func(ctx context.Context, stateToken, factorID string) error
	verifyFn       func(ctx context.Context, stateToken, factorID, passcode string) (*ProviderResponse, error)

	triggerCalls atomic.Int64
	verifyCalls  atomic.Int64
}

func (p *fakeProvider) Authenticate(ctx context.Context, username string, password []byte) (*ProviderResponse, error) {
	if p.authenticateFn == nil {
		return nil, errors.New("authenticate not scripted")
	}
	return p.authenticateFn(ctx, username, password)
}

func (p *fakeProvider) TriggerFactor(ctx context.Context, stateToken, factorID string) error {
	p.triggerCalls.Add(1)
	if p.triggerFn == nil {
		return nil
	}
	return p.triggerFn(ctx, stateToken, factorID)
}

func (p *fakeProvider) VerifyFactor(ctx context.Context, stateToken, factorID, passcode string) (*ProviderResponse, error) {
	p.verifyCalls.Add(1)
	if p.verifyFn == nil {
		return nil, errors.New("verify not scripted")
	}
	return p.verifyFn(ctx, stateToken, factorID, passcode)
}

// fakeKeyStore counts creations so tests can assert at-most-once semantics.
type fakeKeyStore struct {
	mu          sync.Mutex
	createCalls int
	createErr   error
	createDelay time.Duration
	nextKeyID   int
}

func (k *fakeKeyStore) CreateKey(_ context.Context, region, _ string) (string, error) {
	k.mu.Lock()
	k.createCalls++
	k.nextKeyID++
	id := k.nextKeyID
	err := k.createErr
	delay := k.createDelay
	k.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("arn:test:%s:key/%d", region, id), nil
}

func (k *fakeKeyStore) Encrypt(context.Context, string, string, []byte) ([]byte, error) {
	return nil, errors.New("not implemented")
}

func (k *fakeKeyStore) DescribeKey(context.Context, string, string) (*kms.KeyMetadata, error) {
	return nil, errors.New("not implemented")
}

func (k *fakeKeyStore) CreateCalls() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.createCalls
}

// memoryRepo is an in-memory RoleKeyRepository with first-writer-wins
// insert semantics, matching the unique-constraint behavior of a real table.
type memoryRepo struct {
	mu        sync.Mutex
	records   map[string]ProvisionedKeyRecord
	findErr   error
	insertErr error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{records: make(map[string]ProvisionedKeyRecord)}
}

func repoKey(principalID, region string) string {
	return principalID + "/" + region
}

func (r *memoryRepo) Find(_ context.Context, principalID, region string) (*ProvisionedKeyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	record, ok := r.records[repoKey(principalID, region)]
	if !ok {
		return nil, ErrKeyRecordNotFound
	}
	out := record
	return &out, nil
}

func (r *memoryRepo) Insert(_ context.Context, record ProvisionedKeyRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	key := repoKey(record.PrincipalID, record.Region)
	if _, exists := r.records[key]; exists {
		return ErrKeyRecordExists
	}
	r.records[key] = record
	return nil
}

func (r *memoryRepo) put(record ProvisionedKeyRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[repoKey(record.PrincipalID, record.Region)] = record
}

func (r *memoryRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, client
}

func testConfig(t *testing.T) Config {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("ed25519.GenerateKey failed: %v", err)
	}

	cfg := defaultConfig()
	cfg.Token.PrivateKey = priv
	cfg.Token.PublicKey = pub
	cfg.Lock.MaxWait = 2 * time.Second
	cfg.Lock.RetryInterval = 5 * time.Millisecond
	return cfg
}

type testEnv struct {
	engine   *Engine
	mr       *miniredis.Miniredis
	provider *fakeProvider
	keyStore *fakeKeyStore
	repo     *memoryRepo
}

func buildTestEngine(t *testing.T, cfg Config, provider *fakeProvider) (*testEnv, func()) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	keyStore := &fakeKeyStore{}
	repo := newMemoryRepo()

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithIdentityProvider(provider).
		WithKeyStore(keyStore).
		WithRoleKeyRepository(repo).
		Build()
	if err != nil {
		mr.Close()
		t.Fatalf("Build failed: %v", err)
	}

	env := &testEnv{
		engine:   engine,
		mr:       mr,
		provider: provider,
		keyStore: keyStore,
		repo:     repo,
	}
	return env, func() {
		engine.Close()
		mr.Close()
	}
}

func basicHeader(username, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(username+":"+password))
}

func successResponse(user ProviderUser) *ProviderResponse {
	u := user
	return &ProviderResponse{State: StateSuccess, User: &u}
}

func mfaResponse(stateToken string, factors ...ProviderFactor) *ProviderResponse {
	return &ProviderResponse{
		State:      StateMFARequired,
		StateToken: stateToken,
		Factors:    factors,
	}
}
