package attrcrypt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// jsonMarshaler is the built-in Marshaler used when marshal is enabled
// without an explicit marshaler. The codec subpackages provide msgpack and
// yaml alternatives.
type jsonMarshaler struct{}

func (jsonMarshaler) ContentType() string { return "application/json" }

func (jsonMarshaler) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonMarshaler) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

var defaultMarshaler Marshaler = jsonMarshaler{}

// absent reports the pass-through marker. Absent values skip the pipeline in
// both directions without touching the provider.
func absent(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []byte:
		return len(v) == 0
	}
	return false
}

// encryptValue runs the write pipeline: marshal when enabled, encrypt, then
// encode when enabled. The result is a string when encoding is on, raw bytes
// otherwise.
func encryptValue(ctx context.Context, r *ResolvedOptions, value any) (out any, err error) {
	spec := r.Spec
	if absent(value) {
		return value, nil
	}
	emitEncryptStart(ctx, spec)
	start := time.Now()
	defer func() { emitEncryptDone(ctx, spec, time.Since(start), err) }()

	plain, err := marshalStage(spec, value)
	if err != nil {
		return nil, err
	}
	sealed, err := providerStage(ctx, r, StageEncrypt, spec.EncryptMethod, plain)
	if err != nil {
		return nil, err
	}
	if !spec.Encode {
		return sealed, nil
	}
	encoded, err := encodeBytes(spec.Encoding, sealed)
	if err != nil {
		return nil, newTransformError(StageEncode, spec.Class, spec.Attribute, err)
	}
	return encoded, nil
}

// decryptValue runs the read pipeline: decode when enabled, decrypt, then
// unmarshal when enabled. Without marshal the plaintext comes back as a
// string.
func decryptValue(ctx context.Context, r *ResolvedOptions, stored any) (out any, err error) {
	spec := r.Spec
	if absent(stored) {
		return stored, nil
	}
	emitDecryptStart(ctx, spec)
	start := time.Now()
	defer func() { emitDecryptDone(ctx, spec, time.Since(start), err) }()

	data, err := decodeStage(spec, stored)
	if err != nil {
		return nil, err
	}
	plain, err := providerStage(ctx, r, StageDecrypt, spec.DecryptMethod, data)
	if err != nil {
		return nil, err
	}
	if !spec.Marshal {
		return string(plain), nil
	}
	var value any
	if err := spec.Marshaler.Unmarshal(plain, &value); err != nil {
		return nil, newTransformError(StageUnmarshal, spec.Class, spec.Attribute, err)
	}
	return value, nil
}

// marshalStage produces the plaintext bytes handed to the provider. Without
// marshal only strings and byte slices are accepted.
func marshalStage(spec *AttributeSpec, value any) ([]byte, error) {
	if spec.Marshal {
		data, err := spec.Marshaler.Marshal(value)
		if err != nil {
			return nil, newTransformError(StageMarshal, spec.Class, spec.Attribute, err)
		}
		return data, nil
	}
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	}
	return nil, newTransformError(StageMarshal, spec.Class, spec.Attribute,
		fmt.Errorf("cannot encrypt %T without marshal", value))
}

// decodeStage recovers ciphertext bytes from the stored representation.
func decodeStage(spec *AttributeSpec, stored any) ([]byte, error) {
	var text string
	switch v := stored.(type) {
	case string:
		if !spec.Encode {
			return []byte(v), nil
		}
		text = v
	case []byte:
		if !spec.Encode {
			return v, nil
		}
		text = string(v)
	default:
		return nil, newTransformError(StageDecode, spec.Class, spec.Attribute,
			fmt.Errorf("stored value is %T, want string or bytes", stored))
	}
	data, err := decodeString(spec.Encoding, text)
	if err != nil {
		return nil, newTransformError(StageDecode, spec.Class, spec.Attribute, err)
	}
	return data, nil
}

// providerStage dispatches one provider call. Dispatch failures are tagged
// with the stage; errors raised by the provider itself propagate untouched.
func providerStage(ctx context.Context, r *ResolvedOptions, stage Stage, method string, value []byte) ([]byte, error) {
	out, err := callProvider(ctx, r.Spec.Provider, method, r.request(value))
	if err != nil {
		if errors.Is(err, ErrMethodMissing) || errors.Is(err, ErrBadMethodShape) {
			return nil, newTransformError(stage, r.Spec.Class, r.Spec.Attribute, err)
		}
		return nil, err
	}
	return out, nil
}
