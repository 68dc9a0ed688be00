package goVault

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// decodeBasicCredentials extracts a username and password from an HTTP Basic
// authorization header. The password is returned as bytes so callers can zero
// it after the provider exchange.
func decodeBasicCredentials(header string) (string, []byte, error) {
	const prefix = "Basic "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", nil, fmt.Errorf("%w: authorization header is not Basic", ErrBadCredentials)
	}

	decoded, err := base64.StdEncoding.DecodeString(header[len(prefix):])
	if err != nil {
		return "", nil, fmt.Errorf("%w: malformed base64 payload", ErrBadCredentials)
	}

	idx := strings.IndexByte(string(decoded), ':')
	if idx < 0 {
		return "", nil, fmt.Errorf("%w: missing credential separator", ErrBadCredentials)
	}

	username := string(decoded[:idx])
	password := decoded[idx+1:]
	if username == "" || len(password) == 0 {
		return "", nil, fmt.Errorf("%w: empty username or password", ErrBadCredentials)
	}
	return username, password, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
