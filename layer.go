package attrcrypt

import (
	"fmt"

	"github.com/google/uuid"
)

// layerOptions is one layer of declaration options. Layers merge with fixed
// precedence: built-in defaults, then registry defaults, then class defaults,
// then per-attribute options. Within a merge, params union key by key while
// every other option is replaced wholesale.
type layerOptions struct {
	values map[string]any
}

func newLayerOptions() *layerOptions {
	return &layerOptions{values: map[string]any{}}
}

func (l *layerOptions) set(key string, value any) {
	l.values[key] = value
}

func (l *layerOptions) mergeParams(params map[string]any) {
	existing, _ := l.values[optParams].(map[string]any)
	merged := make(map[string]any, len(existing)+len(params))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	l.values[optParams] = merged
}

func (l *layerOptions) clone() *layerOptions {
	out := newLayerOptions()
	for k, v := range l.values {
		if k == optParams {
			out.mergeParams(v.(map[string]any))
			continue
		}
		out.values[k] = v
	}
	return out
}

// applyOptions runs option funcs against a fresh layer.
func applyOptions(opts []Option) *layerOptions {
	layer := newLayerOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(layer)
		}
	}
	return layer
}

// mergeLayers folds layers lowest precedence first.
func mergeLayers(layers ...*layerOptions) *layerOptions {
	out := newLayerOptions()
	for _, layer := range layers {
		if layer == nil {
			continue
		}
		for k, v := range layer.values {
			if k == optParams {
				if params, ok := v.(map[string]any); ok {
					out.mergeParams(params)
				}
				continue
			}
			out.values[k] = v
		}
	}
	return out
}

var knownOptions = map[string]struct{}{
	optKey:            {},
	optSecretKeyParam: {},
	optPrefix:         {},
	optSuffix:         {},
	optAttribute:      {},
	optIf:             {},
	optUnless:         {},
	optProvider:       {},
	optEncryptMethod:  {},
	optDecryptMethod:  {},
	optAlgorithm:      {},
	optEncode:         {},
	optMarshal:        {},
	optMarshaler:      {},
	optEvaluator:      {},
	optParams:         {},
}

var (
	builtinProvider  CipherProvider = NewAESProvider()
	builtinEvaluator Evaluator      = NewExprEvaluator()
)

// builtinDefaults is the lowest precedence layer.
func builtinDefaults() *layerOptions {
	layer := newLayerOptions()
	layer.set(optSecretKeyParam, "key")
	layer.set(optPrefix, "encrypted_")
	layer.set(optSuffix, "")
	layer.set(optAlgorithm, AlgorithmAES256CBC)
	layer.set(optEncryptMethod, "Encrypt")
	layer.set(optDecryptMethod, "Decrypt")
	layer.set(optEncode, false)
	layer.set(optMarshal, false)
	layer.set(optProvider, builtinProvider)
	layer.set(optEvaluator, builtinEvaluator)
	return layer
}

// AttributeSpec is the frozen result of merging option layers for one
// declared attribute. Specs are created at declaration time and never
// mutated afterwards; redeclaring an attribute installs a fresh spec with a
// new ID.
type AttributeSpec struct {
	ID             uuid.UUID      // Snapshot identity, unique per declaration
	Class          string         // Owning class name
	Attribute      string         // Logical attribute name
	Storage        string         // Storage attribute holding the ciphertext
	Key            Dynamic        // Key strategy; zero value resolves to nil
	SecretKeyParam string         // Params key carrying the resolved key
	If             *Dynamic       // Optional positive gate
	Unless         *Dynamic       // Optional negative gate
	Provider       CipherProvider // Cipher provider
	EncryptMethod  string         // Provider entry point for encryption
	DecryptMethod  string         // Provider entry point for decryption
	Algorithm      string         // Algorithm name handed to the provider
	Encode         bool           // Whether ciphertext is string-encoded
	Encoding       string         // Encoding format when Encode is set
	Marshal        bool           // Whether values are marshaled first
	Marshaler      Marshaler      // Marshaler when Marshal is set
	Evaluator      Evaluator      // Engine for Expression dynamics
	Extra          map[string]any // Extra params forwarded to the provider
}

// algorithmLister is implemented by providers that can enumerate their
// algorithms. Declaration validates the algorithm option against it.
type algorithmLister interface {
	Algorithms() []string
}

func optionValue[T any](l *layerOptions, key string) (value T, present bool, typed bool) {
	raw, ok := l.values[key]
	if !ok {
		return value, false, true
	}
	if raw == nil {
		return value, true, false
	}
	v, ok := raw.(T)
	if !ok {
		return value, true, false
	}
	return v, true, true
}

// freezeSpec validates a merged layer and produces the immutable spec.
func freezeSpec(class, name string, merged *layerOptions) (*AttributeSpec, error) {
	if name == "" {
		return nil, newDeclarationError(ErrInvalidOption, class, name, "attribute name must not be empty")
	}
	for key := range merged.values {
		if _, ok := knownOptions[key]; !ok {
			return nil, newDeclarationError(ErrUnknownOption, class, name, fmt.Sprintf("option %q", key))
		}
	}

	badValue := func(key string) error {
		return newDeclarationError(ErrInvalidOption, class, name,
			fmt.Sprintf("option %q holds %T", key, merged.values[key]))
	}

	spec := &AttributeSpec{
		ID:        uuid.New(),
		Class:     class,
		Attribute: name,
	}

	if key, present, typed := optionValue[Dynamic](merged, optKey); present {
		if !typed {
			return nil, badValue(optKey)
		}
		spec.Key = key
	}
	if v, present, typed := optionValue[string](merged, optSecretKeyParam); present {
		if !typed || v == "" {
			return nil, badValue(optSecretKeyParam)
		}
		spec.SecretKeyParam = v
	}
	if pred, present, typed := optionValue[Dynamic](merged, optIf); present {
		if !typed {
			return nil, badValue(optIf)
		}
		spec.If = &pred
	}
	if pred, present, typed := optionValue[Dynamic](merged, optUnless); present {
		if !typed {
			return nil, badValue(optUnless)
		}
		spec.Unless = &pred
	}
	if p, present, typed := optionValue[CipherProvider](merged, optProvider); present {
		if !typed || p == nil {
			return nil, newDeclarationError(ErrInvalidOption, class, name, "provider must not be nil")
		}
		spec.Provider = p
	}
	if v, present, typed := optionValue[string](merged, optEncryptMethod); present {
		if !typed || v == "" {
			return nil, badValue(optEncryptMethod)
		}
		spec.EncryptMethod = v
	}
	if v, present, typed := optionValue[string](merged, optDecryptMethod); present {
		if !typed || v == "" {
			return nil, badValue(optDecryptMethod)
		}
		spec.DecryptMethod = v
	}
	if v, present, typed := optionValue[string](merged, optAlgorithm); present {
		if !typed || v == "" {
			return nil, badValue(optAlgorithm)
		}
		spec.Algorithm = v
	}
	if v, present, typed := optionValue[bool](merged, optMarshal); present {
		if !typed {
			return nil, badValue(optMarshal)
		}
		spec.Marshal = v
	}
	if m, present, typed := optionValue[Marshaler](merged, optMarshaler); present {
		if !typed || m == nil {
			return nil, badValue(optMarshaler)
		}
		spec.Marshaler = m
	}
	if ev, present, typed := optionValue[Evaluator](merged, optEvaluator); present {
		if !typed || ev == nil {
			return nil, badValue(optEvaluator)
		}
		spec.Evaluator = ev
	}
	if params, present, typed := optionValue[map[string]any](merged, optParams); present {
		if !typed {
			return nil, badValue(optParams)
		}
		spec.Extra = make(map[string]any, len(params))
		for k, v := range params {
			spec.Extra[k] = v
		}
	}

	// Encode accepts a bool toggle or an explicit format name.
	if raw, present := merged.values[optEncode]; present {
		switch v := raw.(type) {
		case bool:
			spec.Encode = v
			if v {
				spec.Encoding = DefaultEncoding
			}
		case string:
			if v == "" {
				return nil, badValue(optEncode)
			}
			spec.Encode = true
			spec.Encoding = v
		default:
			return nil, badValue(optEncode)
		}
		if spec.Encode && !validEncoding(spec.Encoding) {
			return nil, newDeclarationError(ErrUnknownEncoding, class, name,
				fmt.Sprintf("format %q", spec.Encoding))
		}
	}

	if spec.Marshal && spec.Marshaler == nil {
		spec.Marshaler = defaultMarshaler
	}
	if spec.Provider == nil {
		spec.Provider = builtinProvider
	}
	if spec.Evaluator == nil {
		spec.Evaluator = builtinEvaluator
	}

	if lister, ok := spec.Provider.(algorithmLister); ok && spec.Algorithm != "" {
		known := false
		for _, alg := range lister.Algorithms() {
			if alg == spec.Algorithm {
				known = true
				break
			}
		}
		if !known {
			return nil, newDeclarationError(ErrUnknownAlgorithm, class, name, spec.Algorithm)
		}
	}

	storage, err := storageName(class, name, merged)
	if err != nil {
		return nil, err
	}
	spec.Storage = storage
	return spec, nil
}

// storageName composes the storage attribute from an explicit attribute
// option or from prefix and suffix around the logical name.
func storageName(class, name string, merged *layerOptions) (string, error) {
	if v, present, typed := optionValue[string](merged, optAttribute); present {
		if !typed || v == "" {
			return "", newDeclarationError(ErrInvalidOption, class, name,
				fmt.Sprintf("option %q holds %T", optAttribute, merged.values[optAttribute]))
		}
		if v == name {
			return "", newDeclarationError(ErrStorageCollision, class, name,
				fmt.Sprintf("storage attribute %q shadows the attribute itself", v))
		}
		return v, nil
	}
	prefix, _, typedPrefix := optionValue[string](merged, optPrefix)
	if !typedPrefix {
		return "", newDeclarationError(ErrInvalidOption, class, name,
			fmt.Sprintf("option %q holds %T", optPrefix, merged.values[optPrefix]))
	}
	suffix, _, typedSuffix := optionValue[string](merged, optSuffix)
	if !typedSuffix {
		return "", newDeclarationError(ErrInvalidOption, class, name,
			fmt.Sprintf("option %q holds %T", optSuffix, merged.values[optSuffix]))
	}
	storage := prefix + name + suffix
	if storage == name {
		return "", newDeclarationError(ErrStorageCollision, class, name,
			"empty prefix and suffix leave storage equal to the attribute")
	}
	return storage, nil
}
