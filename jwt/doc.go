// Package jwt wraps github.com/golang-jwt/jwt/v5 with the broker's token
// shape: principal identity claims plus a session ID that binds each token to
// its Redis liveness record. Keys are Ed25519 (raw or PEM) or an HS256 shared
// secret; signing configuration is fixed at construction.
package jwt
