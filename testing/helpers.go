// Package testing provides test utilities for attrcrypt.
package testing

import (
	"context"
	"sync/atomic"

	attrcrypt "github.com/contently/attr-encrypted"
)

// TestKey returns a valid 32-byte AES key for testing.
func TestKey() []byte {
	return []byte("32-byte-key-for-aes-256-encrypt!")
}

// TestKey16 returns a valid 16-byte AES key for testing.
func TestKey16() []byte {
	return []byte("16-byte-aes-key!")
}

// CountingProvider wraps a CipherProvider and counts calls. Tests use it to
// assert that absent values and denied gates never reach the provider.
type CountingProvider struct {
	Inner    attrcrypt.CipherProvider
	Encrypts atomic.Int64
	Decrypts atomic.Int64
}

// NewCountingProvider wraps the built-in AES provider.
func NewCountingProvider() *CountingProvider {
	return &CountingProvider{Inner: attrcrypt.NewAESProvider()}
}

// Encrypt counts the call and delegates.
func (p *CountingProvider) Encrypt(ctx context.Context, req attrcrypt.CipherRequest) ([]byte, error) {
	p.Encrypts.Add(1)
	return p.Inner.Encrypt(ctx, req)
}

// Decrypt counts the call and delegates.
func (p *CountingProvider) Decrypt(ctx context.Context, req attrcrypt.CipherRequest) ([]byte, error) {
	p.Decrypts.Add(1)
	return p.Inner.Decrypt(ctx, req)
}

// Deterministic forwards the inner provider's determinism report so wrapped
// attributes keep their queryability.
func (p *CountingProvider) Deterministic(extra map[string]any) bool {
	d, ok := p.Inner.(interface{ Deterministic(map[string]any) bool })
	return ok && d.Deterministic(extra)
}

// SecretUser is a test type with crypt tags for scan tests.
type SecretUser struct {
	ID             string
	EncryptedEmail string `crypt:"email" crypt.encode:"base64"`
	EncryptedSSN   string `crypt:"ssn" crypt.encode:"base64"`
}

// KeyedUser is a test type whose key and gate come from instance methods.
type KeyedUser struct {
	Legacy         bool
	Key            string
	EncryptedToken string `crypt:"token" crypt.key_method:"EncryptionKey" crypt.unless_method:"IsLegacy" crypt.encode:"base64"`
}

// EncryptionKey returns the per-instance key.
func (u *KeyedUser) EncryptionKey() string {
	if u.Key != "" {
		return u.Key
	}
	return string(TestKey())
}

// IsLegacy reports whether encryption should be skipped.
func (u *KeyedUser) IsLegacy() bool {
	return u.Legacy
}
