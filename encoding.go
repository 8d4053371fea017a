package attrcrypt

import (
	"encoding/base32"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"sort"
)

// Encoding format names accepted by WithEncodeFormat.
const (
	EncodingBase64    = "base64"
	EncodingBase64URL = "base64url"
	EncodingBase32    = "base32"
	EncodingHex       = "hex"

	// DefaultEncoding is used when encoding is enabled without a format.
	DefaultEncoding = EncodingBase64
)

type encodingScheme struct {
	encode func([]byte) string
	decode func(string) ([]byte, error)
}

var encodings = map[string]encodingScheme{
	EncodingBase64: {
		encode: base64.StdEncoding.EncodeToString,
		decode: base64.StdEncoding.DecodeString,
	},
	EncodingBase64URL: {
		encode: base64.URLEncoding.EncodeToString,
		decode: base64.URLEncoding.DecodeString,
	},
	EncodingBase32: {
		encode: base32.StdEncoding.EncodeToString,
		decode: base32.StdEncoding.DecodeString,
	},
	EncodingHex: {
		encode: hex.EncodeToString,
		decode: hex.DecodeString,
	},
}

func validEncoding(format string) bool {
	_, ok := encodings[format]
	return ok
}

// Encodings lists the supported encode formats, sorted.
func Encodings() []string {
	names := make([]string, 0, len(encodings))
	for name := range encodings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func encodeBytes(format string, data []byte) (string, error) {
	scheme, ok := encodings[format]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, format)
	}
	return scheme.encode(data), nil
}

func decodeString(format, data string) ([]byte, error) {
	scheme, ok := encodings[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, format)
	}
	return scheme.decode(data)
}
