package goVault

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	mfaChallengeKeyPrefix      = "vmc"
	mfaChallengeRecordVersion1 = 1
)

var (
	errMFAChallengeNotFound = errors.New("mfa challenge not found")
	errMFAChallengeExpired  = errors.New("mfa challenge expired")
	errMFAChallengeBackend  = errors.New("mfa challenge backend unavailable")
)

// mfaChallenge pins a provider state token to the username that opened it.
// Trigger and verify calls must present a state token that is known, not
// expired, and under the attempt budget.
type mfaChallenge struct {
	Username  string
	ExpiresAt int64
	Attempts  uint16

	// FactorIDs are the factors offered when the challenge opened. Trigger
	// and verify calls must select one of these.
	FactorIDs []string
}

func (c *mfaChallenge) HasFactor(factorID string) bool {
	for _, id := range c.FactorIDs {
		if id == factorID {
			return true
		}
	}
	return false
}

type mfaChallengeStore struct {
	redis redis.UniversalClient
}

func newMFAChallengeStore(redisClient redis.UniversalClient) *mfaChallengeStore {
	return &mfaChallengeStore{redis: redisClient}
}

func (s *mfaChallengeStore) key(stateToken string) string {
	return mfaChallengeKeyPrefix + ":" + stateToken
}

func (s *mfaChallengeStore) Save(
	ctx context.Context,
	stateToken string,
	record *mfaChallenge,
	ttl time.Duration,
) error {
	encoded, err := encodeMFAChallenge(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(stateToken), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errMFAChallengeBackend, err)
	}
	return nil
}

func (s *mfaChallengeStore) Get(ctx context.Context, stateToken string) (*mfaChallenge, error) {
	data, err := s.redis.Get(ctx, s.key(stateToken)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errMFAChallengeNotFound
		}
		return nil, fmt.Errorf("%w: %v", errMFAChallengeBackend, err)
	}

	record, err := decodeMFAChallenge(data)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() > record.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(stateToken)).Result()
		return nil, errMFAChallengeExpired
	}
	return record, nil
}

func (s *mfaChallengeStore) Delete(ctx context.Context, stateToken string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(stateToken)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errMFAChallengeBackend, err)
	}
	return n > 0, nil
}

// RecordFailure bumps the attempt counter transactionally, deleting the
// challenge once maxAttempts is reached. Returns true when the budget is
// exhausted by this failure.
func (s *mfaChallengeStore) RecordFailure(
	ctx context.Context,
	stateToken string,
	maxAttempts int,
) (bool, error) {
	const maxRetries = 4
	key := s.key(stateToken)

	for i := 0; i < maxRetries; i++ {
		var exceeded bool
		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeMFAChallenge(data)
			if err != nil {
				return err
			}
			if time.Now().Unix() > record.ExpiresAt {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return errMFAChallengeExpired
			}

			record.Attempts++
			if int(record.Attempts) >= maxAttempts {
				exceeded = true
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return nil
			}

			ttl := time.Until(time.Unix(record.ExpiresAt, 0))
			if ttl <= 0 {
				_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
					pipe.Del(ctx, key)
					return nil
				})
				if err != nil {
					return err
				}
				return errMFAChallengeExpired
			}

			updated, err := encodeMFAChallenge(record)
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, updated, ttl)
				return nil
			})
			return err
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return false, errMFAChallengeNotFound
			}
			if errors.Is(err, errMFAChallengeExpired) {
				return false, err
			}
			return false, fmt.Errorf("%w: %v", errMFAChallengeBackend, err)
		}
		return exceeded, nil
	}

	return false, errMFAChallengeNotFound
}

func encodeMFAChallenge(record *mfaChallenge) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(mfaChallengeRecordVersion1)

	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.Username) > 65535 {
		return nil, errors.New("mfa challenge username length exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.Username))); err != nil {
		return nil, err
	}
	buf.WriteString(record.Username)

	if len(record.FactorIDs) > 65535 {
		return nil, errors.New("mfa challenge factor count exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.FactorIDs))); err != nil {
		return nil, err
	}
	for _, id := range record.FactorIDs {
		if len(id) > 65535 {
			return nil, errors.New("mfa challenge factor id length exceeded")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(id))); err != nil {
			return nil, err
		}
		buf.WriteString(id)
	}

	return buf.Bytes(), nil
}

func decodeMFAChallenge(data []byte) (*mfaChallenge, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != mfaChallengeRecordVersion1 {
		return nil, errors.New("invalid mfa challenge version")
	}

	record := &mfaChallenge{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var userLen uint16
	if err := binary.Read(reader, binary.BigEndian, &userLen); err != nil {
		return nil, err
	}
	user := make([]byte, userLen)
	if _, err := io.ReadFull(reader, user); err != nil {
		return nil, err
	}
	record.Username = string(user)

	var factorCount uint16
	if err := binary.Read(reader, binary.BigEndian, &factorCount); err != nil {
		return nil, err
	}
	if factorCount > 0 {
		record.FactorIDs = make([]string, 0, factorCount)
		for i := uint16(0); i < factorCount; i++ {
			var idLen uint16
			if err := binary.Read(reader, binary.BigEndian, &idLen); err != nil {
				return nil, err
			}
			id := make([]byte, idLen)
			if _, err := io.ReadFull(reader, id); err != nil {
				return nil, err
			}
			record.FactorIDs = append(record.FactorIDs, string(id))
		}
	}

	return record, nil
}
