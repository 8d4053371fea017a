package attrcrypt

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

type documentRow struct {
	ID            int
	OwnerName     string
	EncryptedBody []byte `crypt:"body"`
	internal      string
}

type KeyColumns struct {
	EncryptedKey []byte
}

type derivedRow struct {
	*KeyColumns
	Name string
}

func TestMapRecord_Basics(t *testing.T) {
	rec := MapRecord{"email": "a@b.c"}

	v, ok := rec.Attribute("email")
	if !ok || v != "a@b.c" {
		t.Errorf("Attribute() = %v/%v, want a@b.c/true", v, ok)
	}
	if _, ok := rec.Attribute("missing"); ok {
		t.Error("Attribute() reported a missing key as present")
	}

	rec.SetAttribute("phone", "555")
	if v, _ := rec.Attribute("phone"); v != "555" {
		t.Errorf("SetAttribute() stored %v", v)
	}

	copied := rec.Attributes()
	copied["email"] = "tampered"
	if v, _ := rec.Attribute("email"); v != "a@b.c" {
		t.Error("Attributes() should return a copy")
	}
}

func TestSnapshotInstance(t *testing.T) {
	doc := documentRow{ID: 7, OwnerName: "sam", EncryptedBody: []byte("x"), internal: "hidden"}

	tests := []struct {
		name     string
		instance any
		want     map[string]any
	}{
		{"nil", nil, map[string]any{}},
		{"plain map", map[string]any{"a": 1}, map[string]any{"a": 1}},
		{"map record", MapRecord{"b": 2}, map[string]any{"b": 2}},
		{"scalar", 42, map[string]any{}},
		{
			"struct", doc,
			map[string]any{
				"ID": 7, "id": 7,
				"OwnerName": "sam", "owner_name": "sam",
				"EncryptedBody": []byte("x"), "encrypted_body": []byte("x"),
				"body": []byte("x"),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := snapshotInstance(tt.instance)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("snapshotInstance() = %v, want %v", got, tt.want)
			}
		})
	}

	// Pointers snapshot like their element.
	byPtr := snapshotInstance(&doc)
	if byPtr["owner_name"] != "sam" {
		t.Errorf("pointer snapshot = %v", byPtr)
	}

	// Embedded structs promote their fields.
	nested := derivedRow{KeyColumns: &KeyColumns{EncryptedKey: []byte("k")}, Name: "n"}
	snap := snapshotInstance(nested)
	if !bytes.Equal(snap["encrypted_key"].([]byte), []byte("k")) || snap["Name"] != "n" {
		t.Errorf("embedded snapshot = %v", snap)
	}
}

func TestLoadAttribute_Record(t *testing.T) {
	rec := MapRecord{"encrypted_email": "sealed"}

	v, err := loadAttribute(rec, "encrypted_email")
	if err != nil || v != "sealed" {
		t.Errorf("loadAttribute() = %v, %v", v, err)
	}
	v, err = loadAttribute(rec, "encrypted_phone")
	if err != nil {
		t.Fatalf("loadAttribute() missing-key error: %v", err)
	}
	if v != nil {
		t.Errorf("missing record entry = %v, want nil", v)
	}
}

func TestLoadAttribute_Struct(t *testing.T) {
	doc := documentRow{EncryptedBody: []byte("sealed")}

	for _, name := range []string{"body", "encrypted_body", "EncryptedBody"} {
		v, err := loadAttribute(doc, name)
		if err != nil {
			t.Fatalf("loadAttribute(%q) error: %v", name, err)
		}
		if !bytes.Equal(v.([]byte), []byte("sealed")) {
			t.Errorf("loadAttribute(%q) = %v", name, v)
		}
	}

	if _, err := loadAttribute(doc, "nope"); !errors.Is(err, ErrNoStorage) {
		t.Errorf("unknown field error = %v, want ErrNoStorage", err)
	}
	if _, err := loadAttribute(42, "x"); !errors.Is(err, ErrNoStorage) {
		t.Errorf("scalar instance error = %v, want ErrNoStorage", err)
	}
	if _, err := loadAttribute(nil, "x"); !errors.Is(err, ErrNoStorage) {
		t.Errorf("nil instance error = %v, want ErrNoStorage", err)
	}
}

func TestLoadAttribute_NilEmbedded(t *testing.T) {
	row := derivedRow{}
	v, err := loadAttribute(row, "encrypted_key")
	if err != nil {
		t.Fatalf("loadAttribute() error: %v", err)
	}
	if v != nil {
		t.Errorf("nil embedded pointer should read as nil, got %v", v)
	}
}

func TestStoreAttribute_Record(t *testing.T) {
	rec := MapRecord{}
	if err := storeAttribute(rec, "encrypted_email", "sealed"); err != nil {
		t.Fatalf("storeAttribute() error: %v", err)
	}
	if v, _ := rec.Attribute("encrypted_email"); v != "sealed" {
		t.Errorf("stored value = %v", v)
	}
}

func TestStoreAttribute_Struct(t *testing.T) {
	doc := &documentRow{}
	if err := storeAttribute(doc, "body", []byte("sealed")); err != nil {
		t.Fatalf("storeAttribute() error: %v", err)
	}
	if !bytes.Equal(doc.EncryptedBody, []byte("sealed")) {
		t.Errorf("EncryptedBody = %v", doc.EncryptedBody)
	}

	// Strings convert into byte-slice storage.
	if err := storeAttribute(doc, "body", "text"); err != nil {
		t.Fatalf("storeAttribute() convert error: %v", err)
	}
	if string(doc.EncryptedBody) != "text" {
		t.Errorf("EncryptedBody = %q", doc.EncryptedBody)
	}

	// Nil clears to the zero value.
	if err := storeAttribute(doc, "body", nil); err != nil {
		t.Fatalf("storeAttribute(nil) error: %v", err)
	}
	if doc.EncryptedBody != nil {
		t.Errorf("EncryptedBody = %v, want nil", doc.EncryptedBody)
	}

	if err := storeAttribute(doc, "body", 42); err == nil {
		t.Error("storing an int into a byte slice should fail")
	}
	if err := storeAttribute(documentRow{}, "body", "x"); !errors.Is(err, ErrNoStorage) {
		t.Errorf("value-struct store error = %v, want ErrNoStorage", err)
	}
	if err := storeAttribute(doc, "nope", "x"); !errors.Is(err, ErrNoStorage) {
		t.Errorf("unknown field store error = %v, want ErrNoStorage", err)
	}
	if err := storeAttribute(nil, "body", "x"); !errors.Is(err, ErrNoStorage) {
		t.Errorf("nil instance store error = %v, want ErrNoStorage", err)
	}
}

func TestStoreAttribute_AllocatesEmbedded(t *testing.T) {
	row := &derivedRow{}
	if err := storeAttribute(row, "encrypted_key", []byte("k")); err != nil {
		t.Fatalf("storeAttribute() error: %v", err)
	}
	if row.KeyColumns == nil || !bytes.Equal(row.EncryptedKey, []byte("k")) {
		t.Errorf("embedded pointer not allocated: %+v", row)
	}
}

func TestFieldTable_Cached(t *testing.T) {
	rt := reflect.TypeOf(documentRow{})
	if tableFor(rt) != tableFor(rt) {
		t.Error("tableFor() should return the cached table")
	}
}
