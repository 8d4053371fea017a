package attrcrypt

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrStorageCollision indicates two attributes on one class derived the
	// same storage attribute name.
	ErrStorageCollision = errors.New("storage attribute collision")

	// ErrMissingKey indicates a declaration has no usable key strategy while
	// the resolved provider requires one.
	ErrMissingKey = errors.New("missing key")

	// ErrUnknownOption indicates an option name no layer recognizes.
	ErrUnknownOption = errors.New("unknown option")

	// ErrInvalidOption indicates a recognized option carried an unusable
	// value.
	ErrInvalidOption = errors.New("invalid option value")

	// ErrUnknownAlgorithm indicates an algorithm name the built-in provider
	// does not implement.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrUnknownEncoding indicates an encode format name outside the
	// supported set.
	ErrUnknownEncoding = errors.New("unknown encoding")

	// ErrUnknownAttribute indicates an operation referenced an attribute the
	// class never declared.
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrMethodMissing indicates a MethodRef named a method the instance does
	// not expose.
	ErrMethodMissing = errors.New("method missing")

	// ErrBadMethodShape indicates a MethodRef target exists but is not a
	// zero-argument method returning a value or (value, error).
	ErrBadMethodShape = errors.New("unsupported method shape")

	// ErrNotBool indicates a predicate resolved to a non-boolean value.
	ErrNotBool = errors.New("predicate is not a bool")

	// ErrNoStorage indicates an instance exposes no storage surface for the
	// attribute (neither Record nor a scanned struct field).
	ErrNoStorage = errors.New("no storage attribute surface")

	// ErrBadKeyMaterial indicates key material of an unusable type or size.
	ErrBadKeyMaterial = errors.New("bad key material")

	// ErrExpression indicates an Expression variant failed to evaluate.
	ErrExpression = errors.New("expression evaluation failed")

	// ErrInstanceDependent indicates a class-level helper was invoked for an
	// attribute whose key or gates depend on instance state.
	ErrInstanceDependent = errors.New("attribute options are instance-dependent")

	// Per-stage pipeline sentinels.
	ErrMarshal   = errors.New("marshal failed")
	ErrEncrypt   = errors.New("encrypt failed")
	ErrEncode    = errors.New("encode failed")
	ErrDecode    = errors.New("decode failed")
	ErrDecrypt   = errors.New("decrypt failed")
	ErrUnmarshal = errors.New("unmarshal failed")
)

// Stage identifies a transform pipeline step for error tagging.
type Stage string

const (
	StageMarshal   Stage = "marshal"
	StageEncrypt   Stage = "encrypt"
	StageEncode    Stage = "encode"
	StageDecode    Stage = "decode"
	StageDecrypt   Stage = "decrypt"
	StageUnmarshal Stage = "unmarshal"
)

// sentinel returns the sentinel error paired with a stage.
func (s Stage) sentinel() error {
	switch s {
	case StageMarshal:
		return ErrMarshal
	case StageEncrypt:
		return ErrEncrypt
	case StageEncode:
		return ErrEncode
	case StageDecode:
		return ErrDecode
	case StageDecrypt:
		return ErrDecrypt
	case StageUnmarshal:
		return ErrUnmarshal
	}
	return fmt.Errorf("unknown stage %q", string(s))
}

// DeclarationError reports a problem detected while declaring an attribute:
// storage name collisions, missing key strategies, or malformed options.
type DeclarationError struct {
	Err       error  // Underlying sentinel error (ErrStorageCollision, etc.)
	Class     string // Class the declaration belongs to
	Attribute string // Logical attribute name being declared
	Detail    string // Optional free-form context
}

func (e *DeclarationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("declare %s.%s: %s: %s", e.Class, e.Attribute, e.Err.Error(), e.Detail)
	}
	return fmt.Sprintf("declare %s.%s: %s", e.Class, e.Attribute, e.Err.Error())
}

func (e *DeclarationError) Unwrap() error {
	return e.Err
}

// ResolutionError reports a dynamic key or predicate that could not be
// resolved against the instance at call time.
type ResolutionError struct {
	Err       error  // Underlying sentinel error (ErrMethodMissing, etc.)
	Class     string // Class owning the attribute
	Attribute string // Logical attribute name
	Ref       string // Method name or expression that failed, when applicable
	Cause     error  // Original error from the evaluator, when available
}

func (e *ResolutionError) Error() string {
	if e.Ref != "" && e.Cause != nil {
		return fmt.Sprintf("resolve %s.%s: %s: %q: %v", e.Class, e.Attribute, e.Err.Error(), e.Ref, e.Cause)
	}
	if e.Ref != "" {
		return fmt.Sprintf("resolve %s.%s: %s: %q", e.Class, e.Attribute, e.Err.Error(), e.Ref)
	}
	return fmt.Sprintf("resolve %s.%s: %s", e.Class, e.Attribute, e.Err.Error())
}

// Unwrap exposes both the sentinel and the evaluator's original error, so
// errors.Is can match either.
func (e *ResolutionError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// TransformError reports a pipeline step failure, tagged with the stage that
// failed. Provider-raised encrypt/decrypt errors are never wrapped in a
// TransformError; they propagate to the caller untouched.
type TransformError struct {
	Err       error  // Stage sentinel (ErrDecode, ErrUnmarshal, ...)
	Stage     Stage  // Pipeline stage that failed
	Class     string // Class owning the attribute
	Attribute string // Logical attribute name
	Cause     error  // Original error from the stage, when available
}

func (e *TransformError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s.%s: %v", e.Stage, e.Class, e.Attribute, e.Cause)
	}
	return fmt.Sprintf("%s %s.%s: %s", e.Stage, e.Class, e.Attribute, e.Err.Error())
}

// Unwrap exposes both the stage sentinel and the stage's original error, so
// errors.Is can match either.
func (e *TransformError) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Err, e.Cause}
	}
	return []error{e.Err}
}

// newDeclarationError creates a DeclarationError with optional detail.
func newDeclarationError(sentinel error, class, attribute, detail string) error {
	return &DeclarationError{
		Err:       sentinel,
		Class:     class,
		Attribute: attribute,
		Detail:    detail,
	}
}

// newResolutionError creates a ResolutionError for a failed dynamic lookup.
func newResolutionError(sentinel error, class, attribute, ref string, cause error) error {
	return &ResolutionError{
		Err:       sentinel,
		Class:     class,
		Attribute: attribute,
		Ref:       ref,
		Cause:     cause,
	}
}

// newTransformError creates a stage-tagged TransformError.
func newTransformError(stage Stage, class, attribute string, cause error) error {
	return &TransformError{
		Err:       stage.sentinel(),
		Stage:     stage,
		Class:     class,
		Attribute: attribute,
		Cause:     cause,
	}
}
