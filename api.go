// Package attrcrypt provides transparently encrypted attributes for arbitrary
// records.
//
// A class declares named attributes once; every declared attribute gets a
// synthesized getter/setter pair that encrypts on write and decrypts on read.
// The storage layer only ever sees the derived storage attribute (by default
// "encrypted_" + name) holding ciphertext, so databases, caches, and wire
// formats need no encryption awareness.
//
// # Declarations
//
// Attributes are declared against a Class, which owns the option layers and
// the accessor table:
//
//	users := attrcrypt.NewClass("User",
//	    attrcrypt.WithKey(attrcrypt.Literal("0123456789abcdef0123456789abcdef")),
//	)
//	if _, err := users.Declare("ssn", attrcrypt.WithEncode(true)); err != nil {
//	    log.Fatal(err)
//	}
//
//	rec := attrcrypt.MapRecord{}
//	acc, _ := users.Accessor("ssn")
//	acc.Set(ctx, rec, "123-45-6789")  // rec["encrypted_ssn"] now holds encoded ciphertext
//	v, _ := acc.Get(ctx, rec)         // "123-45-6789"
//
// Struct types can declare attributes through tags instead (see ScanClass):
//
//	type Account struct {
//	    EncryptedEmail string `crypt:"email" crypt.encode:"base64"`
//	}
//
// # Option layers
//
// Options merge across three layers with fixed precedence: per-attribute
// overrides class defaults, class defaults override registry (global)
// defaults, and a builtin baseline sits underneath. Merge order never depends
// on the order options were written within a layer.
//
// # Dynamic keys and predicates
//
// The key and the if/unless gates accept a Dynamic value: a literal, a named
// zero-argument method on the instance, a callable receiving the instance, or
// an expression evaluated against an instance snapshot. Resolution happens on
// every accessor call, so key material may depend on instance state:
//
//	users.Declare("email", attrcrypt.WithKey(attrcrypt.MethodRef("EncryptionKey")))
//	users.Declare("notes",
//	    attrcrypt.WithKey(attrcrypt.Literal(key)),
//	    attrcrypt.If(attrcrypt.Expression(`plan == "premium"`)),
//	)
//
// When a gate denies, the pipeline is bypassed entirely: the setter stores the
// raw value and the getter returns it unchanged.
//
// # Transform pipeline
//
// Write path: marshal (optional) -> encrypt -> encode (optional). Read path is
// the exact inverse. Absent values (nil, empty string, empty byte slice) pass
// through both paths untouched without invoking the provider. Failures carry
// the stage that failed (see TransformError); provider errors propagate as-is.
//
// # Class-level helpers
//
// When an attribute's key is a literal and its gates are unconditional, the
// class exposes EncryptValue/DecryptValue helpers that run the pipeline
// without an instance. Combined with the deterministic IV policy of the
// built-in provider, helper output is byte-identical to accessor output,
// which makes query-by-encrypted-value against stored ciphertext possible.
// StorageMapping and Queryable expose the naming contract that persistence
// adapters need.
//
// # Providers
//
// The cipher itself lives behind CipherProvider. The built-in AES provider
// supports CBC (default, aes-256-cbc) and GCM modes plus PBKDF2/scrypt key
// derivation; any value with compatible Encrypt/Decrypt entry points can be
// swapped in per attribute, including under alternate method names.
package attrcrypt

// Record is the minimal storage surface an instance must expose. Accessors
// read and write storage attributes through it; instances that are pointers to
// scanned struct types (see ScanClass) participate without implementing it.
type Record interface {
	// Attribute returns the stored value for a storage attribute name.
	// The boolean reports whether the attribute has ever been set.
	Attribute(name string) (any, bool)

	// SetAttribute stores a value under a storage attribute name.
	SetAttribute(name string, value any)
}

// Marshaler converts logical values to bytes before encryption and back after
// decryption. It is only consulted for attributes declared with the marshal
// option.
type Marshaler interface {
	// ContentType returns the MIME type for this marshaler (e.g., "application/json").
	ContentType() string

	// Marshal encodes v into bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes data into v.
	Unmarshal(data []byte, v any) error
}
