package attrcrypt

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestEncodings_RoundTrip(t *testing.T) {
	payload := []byte{0x00, 0x01, 0xfe, 0xff, 'a', 'b'}
	for _, format := range Encodings() {
		t.Run(format, func(t *testing.T) {
			text, err := encodeBytes(format, payload)
			if err != nil {
				t.Fatalf("encodeBytes() error: %v", err)
			}
			back, err := decodeString(format, text)
			if err != nil {
				t.Fatalf("decodeString() error: %v", err)
			}
			if !bytes.Equal(back, payload) {
				t.Errorf("round trip = %v, want %v", back, payload)
			}
		})
	}
}

func TestEncodings_List(t *testing.T) {
	want := []string{EncodingBase32, EncodingBase64, EncodingBase64URL, EncodingHex}
	if got := Encodings(); !reflect.DeepEqual(got, want) {
		t.Errorf("Encodings() = %v, want %v", got, want)
	}
}

func TestEncodings_UnknownFormat(t *testing.T) {
	if _, err := encodeBytes("base58", []byte("x")); !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("encodeBytes() error = %v, want ErrUnknownEncoding", err)
	}
	if _, err := decodeString("base58", "x"); !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("decodeString() error = %v, want ErrUnknownEncoding", err)
	}
}

func TestEncodings_BadInput(t *testing.T) {
	if _, err := decodeString(EncodingHex, "zz-not-hex"); err == nil {
		t.Error("decodeString() should fail on malformed input")
	}
}
