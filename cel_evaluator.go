package attrcrypt

import (
	"fmt"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator. Programs
// are keyed by expression text and the snapshot's identifier set, since CEL
// environments declare their variables up front.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// celEvaluator executes expressions using github.com/google/cel-go.
type celEvaluator struct {
	cache ProgramCache
}

// NewCELEvaluator constructs an Evaluator backed by CEL. Every snapshot key
// is declared as a dyn variable, so expressions may reference any attribute
// or field the instance exposes.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(snapshot map[string]any, expression string) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	if snapshot == nil {
		snapshot = map[string]any{}
	}
	program, err := e.loadOrBuild(snapshot, expression)
	if err != nil {
		return nil, err
	}
	out, _, err := program.Eval(snapshot)
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

func (e *celEvaluator) loadOrBuild(snapshot map[string]any, expression string) (celgo.Program, error) {
	names := make([]string, 0, len(snapshot))
	for name := range snapshot {
		names = append(names, name)
	}
	sort.Strings(names)

	var key string
	if e.cache != nil {
		key = expression + "\x00" + strings.Join(names, "\x00")
		if cached, ok := e.cache.Get(key); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}

	declarations := make([]celgo.EnvOption, 0, len(names))
	for _, name := range names {
		declarations = append(declarations, celgo.Variable(name, celgo.DynType))
	}
	env, err := celgo.NewEnv(declarations...)
	if err != nil {
		return nil, fmt.Errorf("cel environment: %w", err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("cel compile: %w", issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("cel program: %w", err)
	}
	if e.cache != nil {
		e.cache.Set(key, program)
	}
	return program, nil
}
