package attrcrypt

import (
	"errors"
	"testing"
)

func TestMergeLayers_Precedence(t *testing.T) {
	low := applyOptions([]Option{WithPrefix("low_"), WithAlgorithm(AlgorithmAES128CBC)})
	mid := applyOptions([]Option{WithPrefix("mid_")})
	high := applyOptions([]Option{WithSuffix("_high")})

	merged := mergeLayers(low, mid, high)
	if got := merged.values[optPrefix]; got != "mid_" {
		t.Errorf("prefix = %v, want mid_", got)
	}
	if got := merged.values[optSuffix]; got != "_high" {
		t.Errorf("suffix = %v, want _high", got)
	}
	if got := merged.values[optAlgorithm]; got != AlgorithmAES128CBC {
		t.Errorf("algorithm = %v, want %s", got, AlgorithmAES128CBC)
	}
}

func TestMergeLayers_ParamsUnion(t *testing.T) {
	low := applyOptions([]Option{Param("kdf", "pbkdf2"), Param("kdf_iterations", 1000)})
	high := applyOptions([]Option{Param("kdf_iterations", 2000), Param("kdf_salt", "s")})

	merged := mergeLayers(low, high)
	params := merged.values[optParams].(map[string]any)
	if params["kdf"] != "pbkdf2" {
		t.Errorf("kdf = %v, want pbkdf2 (from lower layer)", params["kdf"])
	}
	if params["kdf_iterations"] != 2000 {
		t.Errorf("kdf_iterations = %v, want 2000 (higher layer wins)", params["kdf_iterations"])
	}
	if params["kdf_salt"] != "s" {
		t.Errorf("kdf_salt = %v, want s", params["kdf_salt"])
	}
}

func TestLayerClone_Isolation(t *testing.T) {
	original := applyOptions([]Option{WithPrefix("p_"), Param("a", 1)})
	clone := original.clone()
	clone.set(optPrefix, "q_")
	clone.mergeParams(map[string]any{"a": 2})

	if original.values[optPrefix] != "p_" {
		t.Error("clone mutation leaked into original prefix")
	}
	if original.values[optParams].(map[string]any)["a"] != 1 {
		t.Error("clone mutation leaked into original params")
	}
}

func TestFreezeSpec_Defaults(t *testing.T) {
	merged := mergeLayers(builtinDefaults(), applyOptions([]Option{WithKey(Literal("k"))}))
	spec, err := freezeSpec("User", "email", merged)
	if err != nil {
		t.Fatalf("freezeSpec() error: %v", err)
	}
	if spec.Storage != "encrypted_email" {
		t.Errorf("Storage = %q, want encrypted_email", spec.Storage)
	}
	if spec.Algorithm != AlgorithmAES256CBC {
		t.Errorf("Algorithm = %q, want %s", spec.Algorithm, AlgorithmAES256CBC)
	}
	if spec.SecretKeyParam != "key" {
		t.Errorf("SecretKeyParam = %q, want key", spec.SecretKeyParam)
	}
	if spec.EncryptMethod != "Encrypt" || spec.DecryptMethod != "Decrypt" {
		t.Errorf("entry points = %q/%q, want Encrypt/Decrypt", spec.EncryptMethod, spec.DecryptMethod)
	}
	if spec.Encode || spec.Marshal {
		t.Error("encode and marshal should default off")
	}
	if spec.Provider == nil || spec.Evaluator == nil {
		t.Error("provider and evaluator should default non-nil")
	}
	if spec.ID.String() == "00000000-0000-0000-0000-000000000000" {
		t.Error("spec should get a fresh ID")
	}
}

func TestFreezeSpec_UnknownOption(t *testing.T) {
	merged := mergeLayers(builtinDefaults())
	merged.set("allow_empty_value", true)
	_, err := freezeSpec("User", "email", merged)
	if !errors.Is(err, ErrUnknownOption) {
		t.Fatalf("freezeSpec() error = %v, want ErrUnknownOption", err)
	}
	var decl *DeclarationError
	if !errors.As(err, &decl) {
		t.Fatal("error should be a DeclarationError")
	}
	if decl.Class != "User" || decl.Attribute != "email" {
		t.Errorf("DeclarationError context = %s.%s, want User.email", decl.Class, decl.Attribute)
	}
}

func TestFreezeSpec_EncodeVariants(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		wantOn     bool
		wantFormat string
	}{
		{"bool toggle", []Option{WithEncode(true)}, true, EncodingBase64},
		{"explicit format", []Option{WithEncodeFormat(EncodingHex)}, true, EncodingHex},
		{"off", []Option{WithEncode(false)}, false, ""},
		{"format overrides toggle", []Option{WithEncode(true), WithEncodeFormat(EncodingBase32)}, true, EncodingBase32},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := mergeLayers(builtinDefaults(), applyOptions(tt.opts))
			spec, err := freezeSpec("User", "ssn", merged)
			if err != nil {
				t.Fatalf("freezeSpec() error: %v", err)
			}
			if spec.Encode != tt.wantOn || spec.Encoding != tt.wantFormat {
				t.Errorf("encode = %v/%q, want %v/%q", spec.Encode, spec.Encoding, tt.wantOn, tt.wantFormat)
			}
		})
	}
}

func TestFreezeSpec_UnknownEncoding(t *testing.T) {
	merged := mergeLayers(builtinDefaults(), applyOptions([]Option{WithEncodeFormat("base58")}))
	_, err := freezeSpec("User", "ssn", merged)
	if !errors.Is(err, ErrUnknownEncoding) {
		t.Errorf("freezeSpec() error = %v, want ErrUnknownEncoding", err)
	}
}

func TestFreezeSpec_UnknownAlgorithm(t *testing.T) {
	merged := mergeLayers(builtinDefaults(), applyOptions([]Option{WithAlgorithm("rot13")}))
	_, err := freezeSpec("User", "ssn", merged)
	if !errors.Is(err, ErrUnknownAlgorithm) {
		t.Errorf("freezeSpec() error = %v, want ErrUnknownAlgorithm", err)
	}
}

func TestFreezeSpec_MarshalDefaultsToJSON(t *testing.T) {
	merged := mergeLayers(builtinDefaults(), applyOptions([]Option{WithMarshal(true)}))
	spec, err := freezeSpec("User", "prefs", merged)
	if err != nil {
		t.Fatalf("freezeSpec() error: %v", err)
	}
	if spec.Marshaler == nil || spec.Marshaler.ContentType() != "application/json" {
		t.Error("marshal without marshaler should default to JSON")
	}
}

func TestFreezeSpec_StorageNaming(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		want    string
		wantErr error
	}{
		{"default prefix", nil, "encrypted_email", nil},
		{"custom prefix", []Option{WithPrefix("secret_")}, "secret_email", nil},
		{"prefix and suffix", []Option{WithPrefix("secret_"), WithSuffix("_crypted")}, "secret_email_crypted", nil},
		{"explicit attribute", []Option{WithAttribute("email_cipher")}, "email_cipher", nil},
		{"explicit equals name", []Option{WithAttribute("email")}, "", ErrStorageCollision},
		{"empty affixes collide", []Option{WithPrefix(""), WithSuffix("")}, "", ErrStorageCollision},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged := mergeLayers(builtinDefaults(), applyOptions(tt.opts))
			spec, err := freezeSpec("User", "email", merged)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("freezeSpec() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("freezeSpec() error: %v", err)
			}
			if spec.Storage != tt.want {
				t.Errorf("Storage = %q, want %q", spec.Storage, tt.want)
			}
		})
	}
}

func TestFreezeSpec_EmptyName(t *testing.T) {
	_, err := freezeSpec("User", "", mergeLayers(builtinDefaults()))
	if !errors.Is(err, ErrInvalidOption) {
		t.Errorf("freezeSpec() error = %v, want ErrInvalidOption", err)
	}
}

func TestFreezeSpec_ExtraIsolation(t *testing.T) {
	params := map[string]any{"kdf": "sha256"}
	merged := mergeLayers(builtinDefaults(), applyOptions([]Option{Params(params)}))
	spec, err := freezeSpec("User", "email", merged)
	if err != nil {
		t.Fatalf("freezeSpec() error: %v", err)
	}
	params["kdf"] = "mutated"
	if spec.Extra["kdf"] != "sha256" {
		t.Error("caller mutation of params map leaked into frozen spec")
	}
}
