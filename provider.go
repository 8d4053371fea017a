package attrcrypt

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"reflect"
	"sort"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// CipherProvider turns plaintext bytes into ciphertext bytes and back. The
// built-in AESProvider covers the aes-*-cbc and aes-*-gcm algorithms; swap in
// another implementation with WithProvider. Errors returned by a provider
// propagate to callers untouched.
type CipherProvider interface {
	Encrypt(ctx context.Context, req CipherRequest) ([]byte, error)
	Decrypt(ctx context.Context, req CipherRequest) ([]byte, error)
}

// CipherRequest carries one encrypt or decrypt call: the value, the
// algorithm, and the resolved params. The secret key sits in Params under
// KeyParam; everything else in Params is the declaration's extra params.
type CipherRequest struct {
	Value     []byte         // Plaintext on encrypt, ciphertext on decrypt
	Algorithm string         // Algorithm name from the declaration
	Params    map[string]any // Resolved key plus extra params
	KeyParam  string         // Params key holding the secret
}

// Key extracts the secret from Params and coerces it to bytes.
func (r CipherRequest) Key() ([]byte, error) {
	raw, ok := r.Params[r.KeyParam]
	if !ok || raw == nil {
		return nil, ErrMissingKey
	}
	var key []byte
	switch v := raw.(type) {
	case string:
		key = []byte(v)
	case []byte:
		key = v
	default:
		return nil, fmt.Errorf("%w: %T", ErrBadKeyMaterial, raw)
	}
	if len(key) == 0 {
		return nil, ErrMissingKey
	}
	return key, nil
}

// Param returns a raw extra param.
func (r CipherRequest) Param(name string) (any, bool) {
	v, ok := r.Params[name]
	return v, ok
}

// StringParam returns an extra param coerced to string.
func (r CipherRequest) StringParam(name string) (string, bool) {
	raw, ok := r.Params[name]
	if !ok {
		return "", false
	}
	s, ok := raw.(string)
	return s, ok
}

// BytesParam returns an extra param coerced to bytes; strings convert.
func (r CipherRequest) BytesParam(name string) ([]byte, bool) {
	raw, ok := r.Params[name]
	if !ok {
		return nil, false
	}
	switch v := raw.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	}
	return nil, false
}

// IntParam returns an extra param coerced to int.
func (r CipherRequest) IntParam(name string) (int, bool) {
	raw, ok := r.Params[name]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case int:
		return v, true
	case int32:
		return int(v), true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}

// Supported algorithm names for the built-in provider.
const (
	AlgorithmAES128CBC = "aes-128-cbc"
	AlgorithmAES192CBC = "aes-192-cbc"
	AlgorithmAES256CBC = "aes-256-cbc"
	AlgorithmAES128GCM = "aes-128-gcm"
	AlgorithmAES192GCM = "aes-192-gcm"
	AlgorithmAES256GCM = "aes-256-gcm"
)

const (
	modeCBC = "cbc"
	modeGCM = "gcm"

	gcmNonceSize = 12

	// KDF params understood by the built-in provider.
	paramKDF           = "kdf"
	paramKDFSalt       = "kdf_salt"
	paramKDFIterations = "kdf_iterations"

	// IV control params.
	paramIV     = "iv"
	paramIVMode = "iv_mode"

	ivModeRandom = "random"

	defaultPBKDF2Iterations = 65536
	scryptN                 = 32768
	scryptR                 = 8
	scryptP                 = 1
)

type aesAlgorithm struct {
	keySize int
	mode    string
}

var aesAlgorithms = map[string]aesAlgorithm{
	AlgorithmAES128CBC: {keySize: 16, mode: modeCBC},
	AlgorithmAES192CBC: {keySize: 24, mode: modeCBC},
	AlgorithmAES256CBC: {keySize: 32, mode: modeCBC},
	AlgorithmAES128GCM: {keySize: 16, mode: modeGCM},
	AlgorithmAES192GCM: {keySize: 24, mode: modeGCM},
	AlgorithmAES256GCM: {keySize: 32, mode: modeGCM},
}

// AESProvider is the built-in CipherProvider. CBC output is IV||ciphertext
// with PKCS#7 padding; GCM output is nonce||sealed. IVs and nonces derive
// deterministically from the key and plaintext via HMAC-SHA256, so equal
// inputs produce equal ciphertext and encrypted attributes stay queryable.
// Pass Param("iv_mode", "random") to randomize them instead.
type AESProvider struct{}

// NewAESProvider returns the built-in AES provider.
func NewAESProvider() *AESProvider {
	return &AESProvider{}
}

// Algorithms lists supported algorithm names, sorted.
func (p *AESProvider) Algorithms() []string {
	names := make([]string, 0, len(aesAlgorithms))
	for name := range aesAlgorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Deterministic reports whether equal plaintext yields equal ciphertext
// under the given extra params.
func (p *AESProvider) Deterministic(extra map[string]any) bool {
	mode, _ := extra[paramIVMode].(string)
	return mode != ivModeRandom
}

// Encrypt seals plaintext under the requested algorithm.
func (p *AESProvider) Encrypt(ctx context.Context, req CipherRequest) ([]byte, error) {
	alg, block, err := p.prepare(req)
	if err != nil {
		return nil, err
	}
	switch alg.mode {
	case modeGCM:
		return p.sealGCM(req, block)
	default:
		return p.sealCBC(req, block)
	}
}

// Decrypt opens ciphertext produced by Encrypt.
func (p *AESProvider) Decrypt(ctx context.Context, req CipherRequest) ([]byte, error) {
	alg, block, err := p.prepare(req)
	if err != nil {
		return nil, err
	}
	switch alg.mode {
	case modeGCM:
		return p.openGCM(req, block)
	default:
		return p.openCBC(req, block)
	}
}

func (p *AESProvider) prepare(req CipherRequest) (aesAlgorithm, cipher.Block, error) {
	alg, ok := aesAlgorithms[req.Algorithm]
	if !ok {
		return aesAlgorithm{}, nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, req.Algorithm)
	}
	key, err := p.deriveKey(req, alg.keySize)
	if err != nil {
		return aesAlgorithm{}, nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return aesAlgorithm{}, nil, err
	}
	return alg, block, nil
}

// deriveKey sizes the raw key material for the algorithm. Without a kdf
// param the key must already be long enough and is truncated to fit. With
// one, the material is stretched through pbkdf2, scrypt or a plain sha256
// digest.
func (p *AESProvider) deriveKey(req CipherRequest, size int) ([]byte, error) {
	raw, err := req.Key()
	if err != nil {
		return nil, err
	}
	kdf, _ := req.StringParam(paramKDF)
	switch kdf {
	case "":
		if len(raw) < size {
			return nil, fmt.Errorf("%w: need at least %d bytes, got %d", ErrBadKeyMaterial, size, len(raw))
		}
		return raw[:size], nil
	case "sha256":
		sum := sha256.Sum256(raw)
		return sum[:size], nil
	case "pbkdf2":
		salt, _ := req.BytesParam(paramKDFSalt)
		iterations, ok := req.IntParam(paramKDFIterations)
		if !ok {
			iterations = defaultPBKDF2Iterations
		}
		return pbkdf2.Key(raw, salt, iterations, size, sha256.New), nil
	case "scrypt":
		salt, _ := req.BytesParam(paramKDFSalt)
		return scrypt.Key(raw, salt, scryptN, scryptR, scryptP, size)
	}
	return nil, fmt.Errorf("%w: kdf %q", ErrInvalidOption, kdf)
}

// vectorFor produces the IV or nonce for one encryption. An explicit iv
// param wins; iv_mode "random" draws fresh bytes; otherwise the vector is
// an HMAC-SHA256 of the plaintext keyed by the encryption key, truncated.
func (p *AESProvider) vectorFor(req CipherRequest, size int) ([]byte, error) {
	if raw, ok := req.Param(paramIV); ok && raw != nil {
		iv, ok := req.BytesParam(paramIV)
		if !ok {
			return nil, fmt.Errorf("%w: iv param is %T", ErrInvalidOption, raw)
		}
		if len(iv) != size {
			return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", ErrInvalidOption, size, len(iv))
		}
		return iv, nil
	}
	if mode, _ := req.StringParam(paramIVMode); mode == ivModeRandom {
		iv := make([]byte, size)
		if _, err := io.ReadFull(rand.Reader, iv); err != nil {
			return nil, err
		}
		return iv, nil
	}
	key, err := req.Key()
	if err != nil {
		return nil, err
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(req.Value)
	return mac.Sum(nil)[:size], nil
}

func (p *AESProvider) sealCBC(req CipherRequest, block cipher.Block) ([]byte, error) {
	iv, err := p.vectorFor(req, aes.BlockSize)
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(req.Value, aes.BlockSize)
	out := make([]byte, aes.BlockSize+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return out, nil
}

func (p *AESProvider) openCBC(req CipherRequest, block cipher.Block) ([]byte, error) {
	data := req.Value
	if len(data) < 2*aes.BlockSize {
		return nil, fmt.Errorf("ciphertext too short: %d bytes", len(data))
	}
	iv, body := data[:aes.BlockSize], data[aes.BlockSize:]
	if len(body)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext is not block-aligned: %d bytes", len(body))
	}
	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, body)
	return pkcs7Unpad(plain, aes.BlockSize)
}

func (p *AESProvider) sealGCM(req CipherRequest, block cipher.Block) ([]byte, error) {
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	nonce, err := p.vectorFor(req, gcmNonceSize)
	if err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, req.Value, nil), nil
}

func (p *AESProvider) openGCM(req CipherRequest, block cipher.Block) ([]byte, error) {
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	data := req.Value
	if len(data) < gcmNonceSize {
		return nil, fmt.Errorf("ciphertext too short: %d bytes", len(data))
	}
	return gcm.Open(nil, data[:gcmNonceSize], data[gcmNonceSize:], nil)
}

func pkcs7Pad(data []byte, size int) []byte {
	n := size - len(data)%size
	out := make([]byte, len(data)+n)
	copy(out, data)
	copy(out[len(data):], bytes.Repeat([]byte{byte(n)}, n))
	return out
}

func pkcs7Unpad(data []byte, size int) ([]byte, error) {
	if len(data) == 0 || len(data)%size != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > size {
		return nil, fmt.Errorf("invalid padding")
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("invalid padding")
		}
	}
	return data[:len(data)-n], nil
}

// cipherRequestType is the shape required of provider entry points reached
// through encrypt_method and decrypt_method.
var (
	ctxType           = reflect.TypeFor[context.Context]()
	cipherRequestType = reflect.TypeFor[CipherRequest]()
	bytesType         = reflect.TypeFor[[]byte]()
)

// callProvider dispatches a CipherRequest to a named entry point on the
// provider. The default names are Encrypt and Decrypt; declarations may
// rename them to target providers with richer surfaces.
func callProvider(ctx context.Context, provider CipherProvider, method string, req CipherRequest) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	switch method {
	case "Encrypt":
		return provider.Encrypt(ctx, req)
	case "Decrypt":
		return provider.Decrypt(ctx, req)
	}
	m := reflect.ValueOf(provider).MethodByName(method)
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %s.%s", ErrMethodMissing, reflect.TypeOf(provider), method)
	}
	mt := m.Type()
	if mt.NumIn() != 2 || mt.In(0) != ctxType || mt.In(1) != cipherRequestType ||
		mt.NumOut() != 2 || mt.Out(0) != bytesType || mt.Out(1) != errType {
		return nil, fmt.Errorf("%w: %s.%s must be func(context.Context, CipherRequest) ([]byte, error)",
			ErrBadMethodShape, reflect.TypeOf(provider), method)
	}
	results := m.Call([]reflect.Value{reflect.ValueOf(ctx), reflect.ValueOf(req)})
	out, _ := results[0].Interface().([]byte)
	if errv := results[1].Interface(); errv != nil {
		return out, errv.(error)
	}
	return out, nil
}
