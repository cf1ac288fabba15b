// Package bridge is the Remote Session Bridge: a long-lived HTTP/WebSocket
// server exposing authenticated session listings, chat-mode and
// terminal-mode live streams, and a push-subscription surface.
package bridge

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// tokenTTL is how long a minted token remains valid.
const tokenTTL = 7 * 24 * time.Hour

var (
	// ErrUnauthorized is returned for a bad password, a malformed token, an
	// expired token, or a signature mismatch.
	ErrUnauthorized = errors.New("bridge: unauthorized")
)

// tokenPayload is the compact encoding signed by a token's HMAC.
type tokenPayload struct {
	IssuedAt  int64 `json:"iat"`
	ExpiresAt int64 `json:"exp"`
}

// Authenticator mints and verifies bearer tokens against a single shared
// password hash, using a process-local HMAC secret generated on first
// setup.
type Authenticator struct {
	passwordHash []byte
	secret       []byte
}

// NewAuthenticator builds an Authenticator from a bcrypt password hash and
// an HMAC secret. Both are normally loaded from the server configuration
// file (see internal/bridge.Config); GenerateSecret produces a fresh
// secret the first time a bridge is configured.
func NewAuthenticator(passwordHash, secret []byte) *Authenticator {
	return &Authenticator{passwordHash: passwordHash, secret: secret}
}

// HashPassword hashes a plaintext password at bcrypt cost 12, per the
// spec's "cost >= 12 or equivalent" requirement.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// GenerateSecret produces a fresh 32-byte HMAC secret.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate token secret: %w", err)
	}
	return secret, nil
}

// Login verifies password against the configured hash and, on success,
// mints a fresh token.
func (a *Authenticator) Login(password string) (string, time.Time, error) {
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil {
		return "", time.Time{}, ErrUnauthorized
	}
	return a.mint(time.Now().UTC())
}

// mint builds a token of the form base64url(payload-json).base64url(hmac).
func (a *Authenticator) mint(now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(tokenTTL)
	payload, err := json.Marshal(tokenPayload{IssuedAt: now.Unix(), ExpiresAt: expiresAt.Unix()})
	if err != nil {
		return "", time.Time{}, fmt.Errorf("encode token payload: %w", err)
	}

	encodedPayload := base64.RawURLEncoding.EncodeToString(payload)
	sig := a.sign(encodedPayload)
	token := encodedPayload + "." + base64.RawURLEncoding.EncodeToString(sig)
	return token, expiresAt, nil
}

func (a *Authenticator) sign(encodedPayload string) []byte {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(encodedPayload))
	return mac.Sum(nil)
}

// Verify checks a token's signature and expiry, returning ErrUnauthorized
// for any malformed, unsigned, or expired token.
func (a *Authenticator) Verify(token string) error {
	dot := strings.IndexByte(token, '.')
	if dot < 0 {
		return ErrUnauthorized
	}
	encodedPayload, encodedSig := token[:dot], token[dot+1:]

	sig, err := base64.RawURLEncoding.DecodeString(encodedSig)
	if err != nil {
		return ErrUnauthorized
	}
	expected := a.sign(encodedPayload)
	if !hmac.Equal(sig, expected) {
		return ErrUnauthorized
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(encodedPayload)
	if err != nil {
		return ErrUnauthorized
	}
	var payload tokenPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return ErrUnauthorized
	}
	if time.Now().UTC().Unix() > payload.ExpiresAt {
		return ErrUnauthorized
	}
	return nil
}

// ConstantTimeEqual compares two strings without leaking timing
// information.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

