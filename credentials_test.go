package goVault

import (
	"encoding/base64"
	"errors"
	"testing"
)

func TestDecodeBasicCredentials(t *testing.T) {
	username, password, err := decodeBasicCredentials(basicHeader("carol", "s3cret:with:colons"))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if username != "carol" {
		t.Fatalf("username = %q, want carol", username)
	}
	if string(password) != "s3cret:with:colons" {
		t.Fatalf("password = %q", password)
	}
}

func TestDecodeBasicCredentialsRejectsMalformed(t *testing.T) {
	cases := []struct {
		name   string
		header string
	}{
		{"empty", ""},
		{"wrong scheme", "Bearer abcdef"},
		{"bad base64", "Basic $$$$"},
		{"no separator", "Basic " + base64.StdEncoding.EncodeToString([]byte("carolnopassword"))},
		{"empty username", basicHeader("", "pass")},
		{"empty password", basicHeader("carol", "")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := decodeBasicCredentials(tc.header)
			if !errors.Is(err, ErrBadCredentials) {
				t.Fatalf("err = %v, want ErrBadCredentials", err)
			}
		})
	}
}

func TestDecodeBasicCredentialsSchemeCaseInsensitive(t *testing.T) {
	header := "basic " + base64.StdEncoding.EncodeToString([]byte("carol:pw"))
	username, _, err := decodeBasicCredentials(header)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if username != "carol" {
		t.Fatalf("username = %q", username)
	}
}
