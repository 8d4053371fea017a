package attrcrypt

// Option keys. Layers store options in maps under these names so merging is
// uniform and unknown keys can be reported by name at declaration time.
const (
	optKey            = "key"
	optSecretKeyParam = "secret_key_param"
	optPrefix         = "prefix"
	optSuffix         = "suffix"
	optAttribute      = "attribute"
	optIf             = "if"
	optUnless         = "unless"
	optProvider       = "provider"
	optEncryptMethod  = "encrypt_method"
	optDecryptMethod  = "decrypt_method"
	optAlgorithm      = "algorithm"
	optEncode         = "encode"
	optMarshal        = "marshal"
	optMarshaler      = "marshaler"
	optEvaluator      = "evaluator"
	optParams         = "params"
)

// Option mutates one layer of declaration options.
type Option func(*layerOptions)

// WithKey sets the encryption key. A Dynamic is used as given; any other
// value is treated as Literal key material.
func WithKey(key any) Option {
	return func(l *layerOptions) {
		if d, ok := key.(Dynamic); ok {
			l.set(optKey, d)
			return
		}
		l.set(optKey, Literal(key))
	}
}

// WithSecretKeyParam renames the provider parameter that carries the
// resolved key. Default is "key".
func WithSecretKeyParam(name string) Option {
	return func(l *layerOptions) { l.set(optSecretKeyParam, name) }
}

// WithPrefix sets the storage attribute prefix. Default is "encrypted_".
func WithPrefix(prefix string) Option {
	return func(l *layerOptions) { l.set(optPrefix, prefix) }
}

// WithSuffix sets the storage attribute suffix. Default is none.
func WithSuffix(suffix string) Option {
	return func(l *layerOptions) { l.set(optSuffix, suffix) }
}

// WithAttribute names the storage attribute directly, overriding prefix and
// suffix composition.
func WithAttribute(name string) Option {
	return func(l *layerOptions) { l.set(optAttribute, name) }
}

// If gates the transform on a predicate. Encryption and decryption run only
// when the predicate resolves true.
func If(pred Dynamic) Option {
	return func(l *layerOptions) { l.set(optIf, pred) }
}

// Unless gates the transform on a negated predicate. Encryption and
// decryption run only when the predicate resolves false.
func Unless(pred Dynamic) Option {
	return func(l *layerOptions) { l.set(optUnless, pred) }
}

// WithProvider swaps the cipher provider for this layer.
func WithProvider(p CipherProvider) Option {
	return func(l *layerOptions) { l.set(optProvider, p) }
}

// WithEncryptMethod renames the provider entry point used to encrypt.
// Default is "Encrypt".
func WithEncryptMethod(name string) Option {
	return func(l *layerOptions) { l.set(optEncryptMethod, name) }
}

// WithDecryptMethod renames the provider entry point used to decrypt.
// Default is "Decrypt".
func WithDecryptMethod(name string) Option {
	return func(l *layerOptions) { l.set(optDecryptMethod, name) }
}

// WithAlgorithm selects the cipher algorithm passed to the provider.
// Default is "aes-256-cbc".
func WithAlgorithm(algorithm string) Option {
	return func(l *layerOptions) { l.set(optAlgorithm, algorithm) }
}

// WithEncode toggles ciphertext encoding using the default format, base64.
func WithEncode(on bool) Option {
	return func(l *layerOptions) { l.set(optEncode, on) }
}

// WithEncodeFormat enables ciphertext encoding with an explicit format:
// base64, base64url, base32 or hex.
func WithEncodeFormat(format string) Option {
	return func(l *layerOptions) { l.set(optEncode, format) }
}

// WithMarshal toggles marshaling of values before encryption. Non-string
// values require it.
func WithMarshal(on bool) Option {
	return func(l *layerOptions) { l.set(optMarshal, on) }
}

// WithMarshaler swaps the marshaler used when marshaling is enabled.
// Default is the JSON codec.
func WithMarshaler(m Marshaler) Option {
	return func(l *layerOptions) { l.set(optMarshaler, m) }
}

// WithEvaluator swaps the engine that executes Expression dynamics.
// Default is the expr-lang evaluator.
func WithEvaluator(ev Evaluator) Option {
	return func(l *layerOptions) { l.set(optEvaluator, ev) }
}

// Param adds one extra parameter forwarded to the provider on every call.
// Params from different layers merge key by key.
func Param(key string, value any) Option {
	return func(l *layerOptions) { l.mergeParams(map[string]any{key: value}) }
}

// Params adds extra parameters forwarded to the provider on every call.
func Params(params map[string]any) Option {
	return func(l *layerOptions) { l.mergeParams(params) }
}
