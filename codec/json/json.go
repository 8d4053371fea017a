// Package json provides a JSON marshaler implementation.
package json

import (
	"encoding/json"

	attrcrypt "github.com/contently/attr-encrypted"
)

// jsonMarshaler implements attrcrypt.Marshaler for JSON.
type jsonMarshaler struct{}

// New returns a JSON marshaler.
func New() attrcrypt.Marshaler {
	return &jsonMarshaler{}
}

// ContentType returns the MIME type for JSON.
func (m *jsonMarshaler) ContentType() string {
	return "application/json"
}

// Marshal encodes v as JSON.
func (m *jsonMarshaler) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes JSON data into v.
func (m *jsonMarshaler) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
