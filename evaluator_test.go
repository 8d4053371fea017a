package attrcrypt

import (
	"testing"
)

// countingCache is a ProgramCache that tallies its traffic.
type countingCache struct {
	store map[string]any
	hits  int
	sets  int
}

func newCountingCache() *countingCache {
	return &countingCache{store: map[string]any{}}
}

func (c *countingCache) Get(key string) (any, bool) {
	v, ok := c.store[key]
	if ok {
		c.hits++
	}
	return v, ok
}

func (c *countingCache) Set(key string, value any) {
	c.sets++
	c.store[key] = value
}

func TestExprEvaluator_Arithmetic(t *testing.T) {
	ev := NewExprEvaluator()
	out, err := ev.Evaluate(nil, "1 + 2")
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if out != 3 {
		t.Errorf("Evaluate() = %v (%T), want 3", out, out)
	}
}

func TestExprEvaluator_Snapshot(t *testing.T) {
	ev := NewExprEvaluator()
	snapshot := map[string]any{"plan": "pro", "age": 21}

	out, err := ev.Evaluate(snapshot, `plan == "pro" && age >= 18`)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if out != true {
		t.Errorf("Evaluate() = %v, want true", out)
	}
}

func TestExprEvaluator_UndefinedIdentifier(t *testing.T) {
	ev := NewExprEvaluator()

	out, err := ev.Evaluate(map[string]any{}, "missing_flag")
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if out != nil {
		t.Errorf("undefined identifier = %v, want nil", out)
	}

	out, err = ev.Evaluate(map[string]any{}, `missing_flag == "x"`)
	if err != nil {
		t.Fatalf("Evaluate() error: %v", err)
	}
	if out != false {
		t.Errorf("comparison against undefined = %v, want false", out)
	}
}

func TestExprEvaluator_EmptyExpression(t *testing.T) {
	ev := NewExprEvaluator()
	if _, err := ev.Evaluate(nil, ""); err == nil {
		t.Error("empty expression should fail")
	}
}

func TestExprEvaluator_SyntaxError(t *testing.T) {
	ev := NewExprEvaluator()
	if _, err := ev.Evaluate(nil, "1 +"); err == nil {
		t.Error("malformed expression should fail")
	}
}

func TestExprEvaluator_ProgramCache(t *testing.T) {
	cache := newCountingCache()
	ev := NewExprEvaluator(ExprWithProgramCache(cache))
	snapshot := map[string]any{"n": 2}

	for i := 0; i < 3; i++ {
		out, err := ev.Evaluate(snapshot, "n * 2")
		if err != nil {
			t.Fatalf("Evaluate() error: %v", err)
		}
		if out != 4 {
			t.Errorf("Evaluate() = %v, want 4", out)
		}
	}
	if cache.sets != 1 {
		t.Errorf("cache sets = %d, want 1", cache.sets)
	}
	if cache.hits != 2 {
		t.Errorf("cache hits = %d, want 2", cache.hits)
	}
}
