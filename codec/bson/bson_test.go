package bson

import (
	"context"
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"

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
	if m.ContentType() != "application/bson" {
		t.Errorf("ContentType() = %q, want %q", m.ContentType(), "application/bson")
	}
}

func TestMarshalUnmarshal(t *testing.T) {
	m := New()

	type TestStruct struct {
		Name  string `bson:"name"`
		Value int    `bson:"value"`
	}

	original := TestStruct{Name: "test", Value: 42}

	data, err := m.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
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

	var v struct{}
	err := m.Unmarshal([]byte("invalid bson"), &v)
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

	value := map[string]any{"name": "sam", "plan": "premium"}
	sealed, err := users.EncryptValue(ctx, "profile", value)
	if err != nil {
		t.Fatalf("EncryptValue() error: %v", err)
	}
	back, err := users.DecryptValue(ctx, "profile", sealed)
	if err != nil {
		t.Fatalf("DecryptValue() error: %v", err)
	}

	// The driver decodes untyped documents as primitive.D.
	doc, ok := back.(primitive.D)
	if !ok {
		t.Fatalf("DecryptValue() = %T, want primitive.D", back)
	}
	var name any
	for _, el := range doc {
		if el.Key == "name" {
			name = el.Value
		}
	}
	if name != "sam" {
		t.Errorf("decoded name = %v, want %q", name, "sam")
	}
}
