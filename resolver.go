package attrcrypt

import "errors"

// ResolvedOptions is one call's view of a spec: the key and predicate gate
// resolved against a concrete instance. It is built fresh for every encrypt
// or decrypt and discarded afterwards.
type ResolvedOptions struct {
	Spec    *AttributeSpec
	Key     any  // Resolved key material; nil when the spec has none
	Allowed bool // Predicate gate outcome
}

// resolveSpec materializes a spec for an instance. The key resolves first,
// then the gate; a declaration's key method runs even when the gate later
// denies the transform.
func resolveSpec(spec *AttributeSpec, instance any) (*ResolvedOptions, error) {
	key, err := spec.Key.resolve(instance, spec.Evaluator)
	if err != nil {
		return nil, resolutionError(spec, err)
	}
	allowed, err := evalGate(spec, instance)
	if err != nil {
		return nil, resolutionError(spec, err)
	}
	return &ResolvedOptions{Spec: spec, Key: key, Allowed: allowed}, nil
}

// resolutionError tags dynamic resolution failures with the spec's class and
// attribute. Errors raised by user callables and methods pass through
// untouched.
func resolutionError(spec *AttributeSpec, err error) error {
	var failure *resolveFailure
	if errors.As(err, &failure) {
		return newResolutionError(failure.sentinel, spec.Class, spec.Attribute, failure.ref, failure.cause)
	}
	return err
}

// Params builds the provider params: the spec's extra params plus the
// algorithm and the resolved key under the spec's secret key param.
func (r *ResolvedOptions) Params() map[string]any {
	params := make(map[string]any, len(r.Spec.Extra)+2)
	for k, v := range r.Spec.Extra {
		params[k] = v
	}
	params["algorithm"] = r.Spec.Algorithm
	params[r.Spec.SecretKeyParam] = r.Key
	return params
}

// request shapes one provider call for the given value.
func (r *ResolvedOptions) request(value []byte) CipherRequest {
	return CipherRequest{
		Value:     value,
		Algorithm: r.Spec.Algorithm,
		Params:    r.Params(),
		KeyParam:  r.Spec.SecretKeyParam,
	}
}
