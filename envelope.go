package attrcrypt

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
)

const envelopeDataKeySize = 32

// EnvelopeProvider is a CipherProvider implementing envelope encryption.
// Each call seals the value under a fresh random data key and seals the
// data key under the master key from the request, so the master key never
// touches bulk data. Output framing is a two-byte sealed-key length, the
// sealed data key, then the sealed value; both layers are AES-GCM with the
// nonce prepended, and data keys are always 32 bytes.
//
// The declared algorithm is ignored. Ciphertext is randomized per call, so
// envelope attributes are never Queryable; pair them with a BlindIndexer
// when equality lookups are needed.
type EnvelopeProvider struct{}

// NewEnvelopeProvider returns an envelope encryption provider. The master
// key arrives per request and must be 16, 24, or 32 bytes.
func NewEnvelopeProvider() *EnvelopeProvider {
	return &EnvelopeProvider{}
}

// Deterministic reports false: every call draws a fresh data key.
func (p *EnvelopeProvider) Deterministic(extra map[string]any) bool {
	return false
}

// Encrypt seals the value under a fresh data key.
func (p *EnvelopeProvider) Encrypt(ctx context.Context, req CipherRequest) ([]byte, error) {
	master, err := p.masterKey(req)
	if err != nil {
		return nil, err
	}

	dataKey := make([]byte, envelopeDataKeySize)
	if _, err := io.ReadFull(rand.Reader, dataKey); err != nil {
		return nil, err
	}

	sealedValue, err := envelopeSeal(dataKey, req.Value)
	if err != nil {
		return nil, err
	}
	sealedKey, err := envelopeSeal(master, dataKey)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 2+len(sealedKey)+len(sealedValue))
	out[0] = byte(len(sealedKey) >> 8)
	out[1] = byte(len(sealedKey))
	copy(out[2:], sealedKey)
	copy(out[2+len(sealedKey):], sealedValue)
	return out, nil
}

// Decrypt recovers the data key with the master key, then opens the value.
func (p *EnvelopeProvider) Decrypt(ctx context.Context, req CipherRequest) ([]byte, error) {
	master, err := p.masterKey(req)
	if err != nil {
		return nil, err
	}

	data := req.Value
	if len(data) < 2 {
		return nil, fmt.Errorf("ciphertext too short: %d bytes", len(data))
	}
	keyLen := int(data[0])<<8 | int(data[1])
	if len(data) < 2+keyLen {
		return nil, fmt.Errorf("ciphertext too short: sealed key claims %d bytes", keyLen)
	}

	dataKey, err := envelopeOpen(master, data[2:2+keyLen])
	if err != nil {
		return nil, fmt.Errorf("open data key: %w", err)
	}
	return envelopeOpen(dataKey, data[2+keyLen:])
}

func (p *EnvelopeProvider) masterKey(req CipherRequest) ([]byte, error) {
	key, err := req.Key()
	if err != nil {
		return nil, err
	}
	switch len(key) {
	case 16, 24, 32:
		return key, nil
	}
	return nil, fmt.Errorf("%w: master key must be 16, 24, or 32 bytes, got %d", ErrBadKeyMaterial, len(key))
}

// envelopeSeal encrypts with AES-GCM under a random nonce, nonce prepended.
func envelopeSeal(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// envelopeOpen reverses envelopeSeal.
func envelopeOpen(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	if len(data) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short: %d bytes", len(data))
	}
	nonce, body := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	return gcm.Open(nil, nonce, body, nil)
}
