// Package yaml provides a YAML marshaler implementation.
package yaml

import (
	"gopkg.in/yaml.v3"

	attrcrypt "github.com/contently/attr-encrypted"
)

// yamlMarshaler implements attrcrypt.Marshaler for YAML.
type yamlMarshaler struct{}

// New returns a YAML marshaler.
func New() attrcrypt.Marshaler {
	return &yamlMarshaler{}
}

// ContentType returns the MIME type for YAML.
func (m *yamlMarshaler) ContentType() string {
	return "application/yaml"
}

// Marshal encodes v as YAML.
func (m *yamlMarshaler) Marshal(v any) ([]byte, error) {
	return yaml.Marshal(v)
}

// Unmarshal decodes YAML data into v.
func (m *yamlMarshaler) Unmarshal(data []byte, v any) error {
	return yaml.Unmarshal(data, v)
}
