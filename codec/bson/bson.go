// Package bson provides a BSON marshaler implementation.
package bson

import (
	"go.mongodb.org/mongo-driver/bson"

	attrcrypt "github.com/contently/attr-encrypted"
)

// bsonMarshaler implements attrcrypt.Marshaler for BSON.
type bsonMarshaler struct{}

// New returns a BSON marshaler. BSON encodes documents, so attribute values
// must be maps or structs rather than bare scalars.
func New() attrcrypt.Marshaler {
	return &bsonMarshaler{}
}

// ContentType returns the MIME type for BSON.
func (m *bsonMarshaler) ContentType() string {
	return "application/bson"
}

// Marshal encodes v as BSON.
func (m *bsonMarshaler) Marshal(v any) ([]byte, error) {
	return bson.Marshal(v)
}

// Unmarshal decodes BSON data into v.
func (m *bsonMarshaler) Unmarshal(data []byte, v any) error {
	return bson.Unmarshal(data, v)
}
