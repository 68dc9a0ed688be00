package kms

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awskms "github.com/aws/aws-sdk-go-v2/service/kms"
	kmstypes "github.com/aws/aws-sdk-go-v2/service/kms/types"
)

// ErrKeyStoreUnavailable wraps transport and service failures from the
// backing key-management service. Retryable at the caller's discretion.
var ErrKeyStoreUnavailable = errors.New("key store unavailable")

// KeyMetadata is the subset of key state the broker inspects.
type KeyMetadata struct {
	KeyID   string
	Enabled bool
	State   string
}

// KeyStore is the thin, stateless adapter to the cloud key-management
// service. Key identifiers are opaque strings (ARNs for the AWS
// implementation); callers never parse them.
type KeyStore interface {
	CreateKey(ctx context.Context, region, description string) (string, error)
	Encrypt(ctx context.Context, region, keyID string, plaintext []byte) ([]byte, error)
	DescribeKey(ctx context.Context, region, keyID string) (*KeyMetadata, error)
}

// AWSKeyStore implements [KeyStore] against AWS KMS, caching one client per
// region. Safe for concurrent use.
type AWSKeyStore struct {
	mu      sync.RWMutex
	clients map[string]*awskms.Client
}

// NewAWS returns an AWS-backed key store. Credentials and shared config come
// from the default chain; clients are created lazily per region.
func NewAWS() *AWSKeyStore {
	return &AWSKeyStore{
		clients: make(map[string]*awskms.Client),
	}
}

func (a *AWSKeyStore) client(ctx context.Context, region string) (*awskms.Client, error) {
	a.mu.RLock()
	client, ok := a.clients[region]
	a.mu.RUnlock()
	if ok {
		return client, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if client, ok := a.clients[region]; ok {
		return client, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyStoreUnavailable, err)
	}

	client = awskms.NewFromConfig(cfg)
	a.clients[region] = client
	return client, nil
}

// CreateKey creates a symmetric encryption key in the target region and
// returns its ARN.
func (a *AWSKeyStore) CreateKey(ctx context.Context, region, description string) (string, error) {
	client, err := a.client(ctx, region)
	if err != nil {
		return "", err
	}

	out, err := client.CreateKey(ctx, &awskms.CreateKeyInput{
		Description: aws.String(description),
		KeyUsage:    kmstypes.KeyUsageTypeEncryptDecrypt,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrKeyStoreUnavailable, err)
	}
	if out.KeyMetadata == nil || out.KeyMetadata.Arn == nil {
		return "", fmt.Errorf("%w: create key returned no metadata", ErrKeyStoreUnavailable)
	}

	return aws.ToString(out.KeyMetadata.Arn), nil
}

// Encrypt encrypts plaintext under the given key.
func (a *AWSKeyStore) Encrypt(ctx context.Context, region, keyID string, plaintext []byte) ([]byte, error) {
	client, err := a.client(ctx, region)
	if err != nil {
		return nil, err
	}

	out, err := client.Encrypt(ctx, &awskms.EncryptInput{
		KeyId:     aws.String(keyID),
		Plaintext: plaintext,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyStoreUnavailable, err)
	}

	return out.CiphertextBlob, nil
}

// DescribeKey reports the key's current state.
func (a *AWSKeyStore) DescribeKey(ctx context.Context, region, keyID string) (*KeyMetadata, error) {
	client, err := a.client(ctx, region)
	if err != nil {
		return nil, err
	}

	out, err := client.DescribeKey(ctx, &awskms.DescribeKeyInput{
		KeyId: aws.String(keyID),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyStoreUnavailable, err)
	}
	if out.KeyMetadata == nil {
		return nil, fmt.Errorf("%w: describe key returned no metadata", ErrKeyStoreUnavailable)
	}

	return &KeyMetadata{
		KeyID:   aws.ToString(out.KeyMetadata.Arn),
		Enabled: out.KeyMetadata.Enabled,
		State:   string(out.KeyMetadata.KeyState),
	}, nil
}
