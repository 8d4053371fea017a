package attrcrypt

import (
	"fmt"
	"reflect"
)

// CallableFunc computes a value from the owning instance. It backs the
// Callable variant of Dynamic for both keys and predicates.
type CallableFunc func(instance any) (any, error)

// dynamicKind tags the active variant of a Dynamic value.
type dynamicKind uint8

const (
	dynamicLiteral dynamicKind = iota
	dynamicMethodRef
	dynamicCallable
	dynamicExpression
)

// Dynamic is a key or predicate value resolved per accessor call. The four
// variants form a tagged union; resolution is a single switch over the kind.
type Dynamic struct {
	kind   dynamicKind
	value  any
	method string
	fn     CallableFunc
	expr   string
}

// Literal wraps a fixed value. Literal keys make an attribute eligible for
// the class-level helper pair and the persistence name mapping.
func Literal(value any) Dynamic {
	return Dynamic{kind: dynamicLiteral, value: value}
}

// MethodRef names a zero-argument method resolved on the instance at call
// time. The method may return a single value or (value, error). A missing
// method surfaces as a ResolutionError wrapping ErrMethodMissing.
func MethodRef(name string) Dynamic {
	return Dynamic{kind: dynamicMethodRef, method: name}
}

// Callable wraps a function invoked with the instance as its sole argument.
func Callable(fn CallableFunc) Dynamic {
	return Dynamic{kind: dynamicCallable, fn: fn}
}

// Expression wraps a rule string evaluated against an instance snapshot by
// the class's Evaluator (expr-lang by default, see NewCELEvaluator for the
// alternate engine).
func Expression(expr string) Dynamic {
	return Dynamic{kind: dynamicExpression, expr: expr}
}

// IsLiteral reports whether d carries a fixed value.
func (d Dynamic) IsLiteral() bool {
	return d.kind == dynamicLiteral
}

func (d Dynamic) String() string {
	switch d.kind {
	case dynamicMethodRef:
		return fmt.Sprintf("method(%s)", d.method)
	case dynamicCallable:
		return "callable"
	case dynamicExpression:
		return fmt.Sprintf("expr(%s)", d.expr)
	default:
		return fmt.Sprintf("literal(%v)", d.value)
	}
}

// resolveFailure carries the sentinel and the failing reference so callers
// can attach class and attribute context.
type resolveFailure struct {
	sentinel error
	ref      string
	cause    error
}

func (e *resolveFailure) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %q: %v", e.sentinel.Error(), e.ref, e.cause)
	}
	return fmt.Sprintf("%s: %q", e.sentinel.Error(), e.ref)
}

func (e *resolveFailure) Unwrap() error {
	return e.sentinel
}

// resolve evaluates the variant against instance. Errors raised by Callable
// functions and by MethodRef targets propagate untouched; structural
// failures (missing method, bad shape, evaluator errors) come back as
// *resolveFailure for the resolver to contextualize.
func (d Dynamic) resolve(instance any, ev Evaluator) (any, error) {
	switch d.kind {
	case dynamicLiteral:
		return d.value, nil
	case dynamicMethodRef:
		return callMethod(instance, d.method)
	case dynamicCallable:
		if d.fn == nil {
			return nil, nil
		}
		return d.fn(instance)
	case dynamicExpression:
		if ev == nil {
			ev = NewExprEvaluator()
		}
		out, err := ev.Evaluate(snapshotInstance(instance), d.expr)
		if err != nil {
			return nil, &resolveFailure{sentinel: ErrExpression, ref: d.expr, cause: err}
		}
		return out, nil
	}
	return nil, nil
}

// resolveBool resolves the variant and coerces the result for predicate use:
// booleans pass through, nil is false, anything else is a failure.
func (d Dynamic) resolveBool(instance any, ev Evaluator) (bool, error) {
	out, err := d.resolve(instance, ev)
	if err != nil {
		return false, err
	}
	switch v := out.(type) {
	case nil:
		return false, nil
	case bool:
		return v, nil
	default:
		return false, &resolveFailure{sentinel: ErrNotBool, ref: d.String()}
	}
}

var errType = reflect.TypeFor[error]()

// callMethod invokes the named zero-argument method on instance by
// reflection. Methods with pointer receivers resolve when the caller passes
// a pointer, matching Go method sets.
func callMethod(instance any, name string) (any, error) {
	if instance == nil {
		return nil, &resolveFailure{sentinel: ErrMethodMissing, ref: name}
	}
	m := reflect.ValueOf(instance).MethodByName(name)
	if !m.IsValid() {
		return nil, &resolveFailure{sentinel: ErrMethodMissing, ref: name}
	}

	mt := m.Type()
	if mt.NumIn() != 0 {
		return nil, &resolveFailure{sentinel: ErrBadMethodShape, ref: name}
	}
	switch mt.NumOut() {
	case 1:
		return m.Call(nil)[0].Interface(), nil
	case 2:
		if mt.Out(1) != errType {
			return nil, &resolveFailure{sentinel: ErrBadMethodShape, ref: name}
		}
		out := m.Call(nil)
		if err, _ := out[1].Interface().(error); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	default:
		return nil, &resolveFailure{sentinel: ErrBadMethodShape, ref: name}
	}
}
