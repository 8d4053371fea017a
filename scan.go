package attrcrypt

import (
	"fmt"
	"strconv"

	strcase "github.com/stoewer/go-strcase"
	"github.com/zoobzio/sentinel"
)

func init() {
	// Register crypt tags with sentinel
	sentinel.Tag(storageTag)
	sentinel.Tag("crypt.algorithm")
	sentinel.Tag("crypt.encode")
	sentinel.Tag("crypt.marshal")
	sentinel.Tag("crypt.key_method")
	sentinel.Tag("crypt.if_method")
	sentinel.Tag("crypt.unless_method")
	sentinel.Tag("crypt.if_expr")
	sentinel.Tag("crypt.unless_expr")
}

// ScanClass declares encrypted attributes from crypt struct tags. The tagged
// field is the storage attribute and the tag value names the virtual
// attribute it backs:
//
//	type User struct {
//	    EncryptedEmail string `crypt:"email" crypt.encode:"base64"`
//	}
//
// The class is registered under the struct's type name; opts become its
// class defaults. Scanning covers top level fields only.
func ScanClass[T any](registry *Registry, opts ...Option) (*Class, error) {
	if registry == nil {
		registry = DefaultRegistry
	}
	meta := sentinel.Scan[T]()
	class := registry.NewClass(meta.TypeName, opts...)

	for _, field := range meta.Fields {
		name, ok := field.Tags[storageTag]
		if !ok {
			continue
		}
		if name == "" || name == "-" {
			return nil, newDeclarationError(ErrInvalidOption, meta.TypeName, field.Name,
				"crypt tag must name the attribute")
		}
		fieldOpts, err := tagOptions(meta.TypeName, name, field.Tags)
		if err != nil {
			return nil, err
		}
		fieldOpts = append(fieldOpts, WithAttribute(strcase.SnakeCase(field.Name)))
		if _, err := class.Declare(name, fieldOpts...); err != nil {
			return nil, err
		}
	}
	return class, nil
}

// tagOptions translates crypt.* tags into declaration options.
func tagOptions(class, name string, tags map[string]string) ([]Option, error) {
	var opts []Option
	if v, ok := tags["crypt.algorithm"]; ok {
		opts = append(opts, WithAlgorithm(v))
	}
	if v, ok := tags["crypt.encode"]; ok {
		switch v {
		case "true":
			opts = append(opts, WithEncode(true))
		case "false":
			opts = append(opts, WithEncode(false))
		default:
			opts = append(opts, WithEncodeFormat(v))
		}
	}
	if v, ok := tags["crypt.marshal"]; ok {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return nil, newDeclarationError(ErrInvalidOption, class, name,
				fmt.Sprintf("crypt.marshal %q is not a bool", v))
		}
		opts = append(opts, WithMarshal(on))
	}
	if v, ok := tags["crypt.key_method"]; ok {
		opts = append(opts, WithKey(MethodRef(v)))
	}
	if v, ok := tags["crypt.if_method"]; ok {
		opts = append(opts, If(MethodRef(v)))
	}
	if v, ok := tags["crypt.unless_method"]; ok {
		opts = append(opts, Unless(MethodRef(v)))
	}
	if v, ok := tags["crypt.if_expr"]; ok {
		opts = append(opts, If(Expression(v)))
	}
	if v, ok := tags["crypt.unless_expr"]; ok {
		opts = append(opts, Unless(Expression(v)))
	}
	return opts, nil
}
