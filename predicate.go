package attrcrypt

// evalGate decides whether the transform runs: the if predicate must hold
// and the unless predicate must not. A missing if counts as true, a missing
// unless as false. The unless predicate is only evaluated when the if side
// passes.
func evalGate(spec *AttributeSpec, instance any) (bool, error) {
	allowed := true
	if spec.If != nil {
		v, err := spec.If.resolveBool(instance, spec.Evaluator)
		if err != nil {
			return false, err
		}
		allowed = v
	}
	if allowed && spec.Unless != nil {
		v, err := spec.Unless.resolveBool(instance, spec.Evaluator)
		if err != nil {
			return false, err
		}
		allowed = !v
	}
	return allowed, nil
}
