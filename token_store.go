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

const tokenRecordVersion1 = 1

var (
	errTokenRecordNotFound = errors.New("token record not found")
	errTokenRecordExpired  = errors.New("token record expired")
	errTokenRecordBackend  = errors.New("token record backend unavailable")
)

// tokenRecord is the Redis-side liveness record for one issued token. The
// signed token carries the same identity claims; the record's existence is
// what makes the token revocable before its expiry.
type tokenRecord struct {
	PrincipalID string
	Username    string
	Groups      []string
	IsAdmin     bool
	IssuedAt    int64
	ExpiresAt   int64
}

type tokenStore struct {
	redis  redis.UniversalClient
	prefix string
}

func newTokenStore(redisClient redis.UniversalClient, prefix string) *tokenStore {
	return &tokenStore{redis: redisClient, prefix: prefix}
}

func (s *tokenStore) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

func (s *tokenStore) Save(ctx context.Context, sessionID string, record *tokenRecord, ttl time.Duration) error {
	encoded, err := encodeTokenRecord(record)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, s.key(sessionID), encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", errTokenRecordBackend, err)
	}
	return nil
}

func (s *tokenStore) Get(ctx context.Context, sessionID string) (*tokenRecord, error) {
	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errTokenRecordNotFound
		}
		return nil, fmt.Errorf("%w: %v", errTokenRecordBackend, err)
	}

	record, err := decodeTokenRecord(data)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() > record.ExpiresAt {
		_, _ = s.redis.Del(ctx, s.key(sessionID)).Result()
		return nil, errTokenRecordExpired
	}
	return record, nil
}

func (s *tokenStore) Delete(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.redis.Del(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", errTokenRecordBackend, err)
	}
	return n > 0, nil
}

func encodeTokenRecord(record *tokenRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte(tokenRecordVersion1)

	var flags uint8
	if record.IsAdmin {
		flags |= 1
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if err := writeString(&buf, record.PrincipalID); err != nil {
		return nil, err
	}
	if err := writeString(&buf, record.Username); err != nil {
		return nil, err
	}

	if len(record.Groups) > 65535 {
		return nil, errors.New("token record group count exceeded")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.Groups))); err != nil {
		return nil, err
	}
	for _, group := range record.Groups {
		if err := writeString(&buf, group); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

func decodeTokenRecord(data []byte) (*tokenRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != tokenRecordVersion1 {
		return nil, errors.New("invalid token record version")
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &tokenRecord{IsAdmin: flags&1 != 0}
	if err := binary.Read(reader, binary.BigEndian, &record.IssuedAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	if record.PrincipalID, err = readString(reader); err != nil {
		return nil, err
	}
	if record.Username, err = readString(reader); err != nil {
		return nil, err
	}

	var groupCount uint16
	if err := binary.Read(reader, binary.BigEndian, &groupCount); err != nil {
		return nil, err
	}
	if groupCount > 0 {
		record.Groups = make([]string, 0, groupCount)
		for i := uint16(0); i < groupCount; i++ {
			group, err := readString(reader)
			if err != nil {
				return nil, err
			}
			record.Groups = append(record.Groups, group)
		}
	}

	return record, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 65535 {
		return errors.New("token record field length exceeded")
	}
	if err := binary.Write(buf, binary.BigEndian, uint16(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(reader *bytes.Reader) (string, error) {
	var length uint16
	if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
		return "", err
	}
	raw := make([]byte, length)
	if _, err := io.ReadFull(reader, raw); err != nil {
		return "", err
	}
	return string(raw), nil
}
