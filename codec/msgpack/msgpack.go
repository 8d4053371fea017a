// Package msgpack provides a MessagePack marshaler implementation.
package msgpack

import (
	"github.com/vmihailenco/msgpack/v5"

	attrcrypt "github.com/contently/attr-encrypted"
)

// msgpackMarshaler implements attrcrypt.Marshaler for MessagePack.
type msgpackMarshaler struct{}

// New returns a MessagePack marshaler.
func New() attrcrypt.Marshaler {
	return &msgpackMarshaler{}
}

// ContentType returns the MIME type for MessagePack.
func (m *msgpackMarshaler) ContentType() string {
	return "application/msgpack"
}

// Marshal encodes v as MessagePack.
func (m *msgpackMarshaler) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

// Unmarshal decodes MessagePack data into v.
func (m *msgpackMarshaler) Unmarshal(data []byte, v any) error {
	return msgpack.Unmarshal(data, v)
}
