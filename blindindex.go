package attrcrypt

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// BlindIndexParams configures slow blind-index hashing.
type BlindIndexParams struct {
	Time     uint32 // Number of iterations
	Memory   uint32 // Memory usage in KiB
	Threads  uint8  // Parallelism factor
	TokenLen uint32 // Raw token length before encoding
}

// DefaultBlindIndexParams returns recommended Argon2id parameters.
// Based on OWASP recommendations for password hashing.
func DefaultBlindIndexParams() BlindIndexParams {
	return BlindIndexParams{
		Time:     1,
		Memory:   64 * 1024, // 64 MiB
		Threads:  4,
		TokenLen: 32,
	}
}

// BlindIndexer computes deterministic keyed tokens of plaintext values.
// Applications store a token next to the ciphertext to regain equality
// lookups on attributes whose ciphertext is randomized, such as iv_mode
// "random" declarations or the EnvelopeProvider. The engine only computes
// tokens; where they live is the application's schema concern.
//
// Fast mode is an HMAC-SHA256 of the value and suits high-entropy data.
// Slow mode runs the value through Argon2id with a key-derived salt, which
// resists offline guessing of low-entropy values like email addresses.
// Both modes produce the same token for the same key and value.
type BlindIndexer struct {
	key    []byte
	slow   bool
	params BlindIndexParams
	format string
}

// NewBlindIndexer returns a fast HMAC-SHA256 indexer. The key must be at
// least 16 bytes and should be distinct from any encryption key.
func NewBlindIndexer(key []byte) (*BlindIndexer, error) {
	return newBlindIndexer(key, false, BlindIndexParams{})
}

// NewSlowBlindIndexer returns an Argon2id indexer with default parameters.
func NewSlowBlindIndexer(key []byte) (*BlindIndexer, error) {
	return NewSlowBlindIndexerWithParams(key, DefaultBlindIndexParams())
}

// NewSlowBlindIndexerWithParams returns an Argon2id indexer with custom
// parameters.
func NewSlowBlindIndexerWithParams(key []byte, params BlindIndexParams) (*BlindIndexer, error) {
	if params.TokenLen == 0 {
		params.TokenLen = 32
	}
	return newBlindIndexer(key, true, params)
}

func newBlindIndexer(key []byte, slow bool, params BlindIndexParams) (*BlindIndexer, error) {
	if len(key) == 0 {
		return nil, ErrMissingKey
	}
	if len(key) < 16 {
		return nil, fmt.Errorf("%w: index key must be at least 16 bytes, got %d", ErrBadKeyMaterial, len(key))
	}
	return &BlindIndexer{key: key, slow: slow, params: params, format: DefaultEncoding}, nil
}

// Index computes the token for a value. Values follow the pipeline's
// coercion rules: strings and byte slices index directly, and absent values
// yield an empty token.
func (b *BlindIndexer) Index(value any) (string, error) {
	var data []byte
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return "", fmt.Errorf("cannot index %T, want string or bytes", value)
	}
	if len(data) == 0 {
		return "", nil
	}

	var sum []byte
	if b.slow {
		salt := sha256.Sum256(b.key)
		sum = argon2.IDKey(data, salt[:16], b.params.Time, b.params.Memory, b.params.Threads, b.params.TokenLen)
	} else {
		mac := hmac.New(sha256.New, b.key)
		mac.Write(data)
		sum = mac.Sum(nil)
	}
	return encodeBytes(b.format, sum)
}
