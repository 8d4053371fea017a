package yaml

import (
	"context"
	"strings"
	"testing"

	attrcrypt "github.com/contently/attr-encrypted"
)

func TestNew(t *testing.T) {
	m := New()
	if m == nil {
		t.Error("New() should return non-nil marshaler")
	}
}

func TestContentType(t *testing.T) {
	m := New()
	if m.ContentType() != "application/yaml" {
		t.Errorf("ContentType() = %q, want %q", m.ContentType(), "application/yaml")
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	m := New()

	type TestStruct struct {
		Name  string `yaml:"name"`
		Value int    `yaml:"value"`
	}

	original := TestStruct{Name: "test", Value: 42}

	data, err := m.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	if !strings.Contains(string(data), "name: test") {
		t.Errorf("Marshal() = %q, want yaml document", data)
	}

	var restored TestStruct
	if err := m.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}

	if restored.Name != original.Name || restored.Value != original.Value {
		t.Errorf("round-trip failed: got %+v, want %+v", restored, original)
	}
}

func TestUnmarshalInvalid(t *testing.T) {
	m := New()

	var v struct{ A string }
	err := m.Unmarshal([]byte(":\n\t- bad"), &v)
	if err == nil {
		t.Error("Unmarshal(invalid) should return error")
	}
}

func TestEncryptedAttribute(t *testing.T) {
	ctx := context.Background()
	registry := attrcrypt.NewRegistry()
	users := registry.NewClass("User",
		attrcrypt.WithKey(attrcrypt.Literal("32-byte-key-for-aes-256-encrypt!")))
	if _, err := users.Declare("profile",
		attrcrypt.WithMarshal(true),
		attrcrypt.WithMarshaler(New())); err != nil {
		t.Fatalf("Declare() error: %v", err)
	}

	sealed, err := users.EncryptValue(ctx, "profile", map[string]any{"name": "sam"})
	if err != nil {
		t.Fatalf("EncryptValue() error: %v", err)
	}
	back, err := users.DecryptValue(ctx, "profile", sealed)
	if err != nil {
		t.Fatalf("DecryptValue() error: %v", err)
	}
	got, ok := back.(map[string]any)
	if !ok || got["name"] != "sam" {
		t.Errorf("DecryptValue() = %v, want the profile map", back)
	}
}
