package attrcrypt

import (
	"fmt"
	"reflect"
	"sync"

	strcase "github.com/stoewer/go-strcase"
)

// MapRecord is a map-backed Record. It is the simplest storage shape: every
// attribute, encrypted or plain, lives under its name.
type MapRecord map[string]any

// Attribute returns the stored value for name.
func (m MapRecord) Attribute(name string) (any, bool) {
	v, ok := m[name]
	return v, ok
}

// SetAttribute stores value under name.
func (m MapRecord) SetAttribute(name string, value any) {
	m[name] = value
}

// Attributes returns a copy of the underlying map.
func (m MapRecord) Attributes() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// attributeEnumerator is implemented by records that can list their
// attributes. MapRecord satisfies it; custom Record implementations may too,
// which lets Expression predicates see their state.
type attributeEnumerator interface {
	Attributes() map[string]any
}

// snapshotInstance flattens an instance into the environment map handed to
// an Evaluator. Maps and enumerable records contribute their entries; structs
// contribute exported fields under both their Go name and its snake_case
// form.
func snapshotInstance(instance any) map[string]any {
	switch v := instance.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[k] = val
		}
		return out
	}
	if enum, ok := instance.(attributeEnumerator); ok {
		return enum.Attributes()
	}

	rv := reflect.ValueOf(instance)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return map[string]any{}
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return map[string]any{}
	}

	out := map[string]any{}
	snapshotStruct(rv, out)
	return out
}

func snapshotStruct(rv reflect.Value, out map[string]any) {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := rv.Field(i)
		if field.Anonymous {
			ev := fv
			for ev.Kind() == reflect.Pointer {
				if ev.IsNil() {
					ev = reflect.Value{}
					break
				}
				ev = ev.Elem()
			}
			if ev.IsValid() && ev.Kind() == reflect.Struct {
				snapshotStruct(ev, out)
				continue
			}
		}
		val := fv.Interface()
		out[field.Name] = val
		if snake := strcase.SnakeCase(field.Name); snake != field.Name {
			out[snake] = val
		}
		if tag, ok := field.Tag.Lookup(storageTag); ok && tag != "" && tag != "-" {
			out[tag] = val
		}
	}
}

// storageTag is the struct tag that names an attribute's storage field.
const storageTag = "crypt"

// fieldTable maps attribute names to struct field index paths. Tables are
// built once per type and cached.
type fieldTable struct {
	fields map[string][]int
}

var fieldTables sync.Map // reflect.Type -> *fieldTable

func tableFor(rt reflect.Type) *fieldTable {
	if cached, ok := fieldTables.Load(rt); ok {
		return cached.(*fieldTable)
	}
	table := &fieldTable{fields: map[string][]int{}}
	buildFieldTable(rt, nil, table)
	actual, _ := fieldTables.LoadOrStore(rt, table)
	return actual.(*fieldTable)
}

func buildFieldTable(rt reflect.Type, prefix []int, table *fieldTable) {
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		path := append(append([]int{}, prefix...), i)
		if field.Anonymous {
			et := field.Type
			for et.Kind() == reflect.Pointer {
				et = et.Elem()
			}
			if et.Kind() == reflect.Struct {
				buildFieldTable(et, path, table)
				continue
			}
		}
		register := func(name string) {
			if name == "" || name == "-" {
				return
			}
			if _, exists := table.fields[name]; !exists {
				table.fields[name] = path
			}
		}
		if tag, ok := field.Tag.Lookup(storageTag); ok {
			register(tag)
		}
		register(field.Name)
		register(strcase.SnakeCase(field.Name))
	}
}

func (t *fieldTable) lookup(name string) ([]int, bool) {
	path, ok := t.fields[name]
	return path, ok
}

// loadAttribute reads the named attribute from an instance: Record first,
// then struct field reflection. A missing Record entry reads as nil; a
// struct without a matching field has no storage surface at all.
func loadAttribute(instance any, name string) (any, error) {
	if instance == nil {
		return nil, fmt.Errorf("%w: nil instance", ErrNoStorage)
	}
	if rec, ok := instance.(Record); ok {
		v, _ := rec.Attribute(name)
		return v, nil
	}
	rv := reflect.ValueOf(instance)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil instance", ErrNoStorage)
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %T is not a struct record", ErrNoStorage, instance)
	}
	path, ok := tableFor(rv.Type()).lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: no field for attribute %q on %s", ErrNoStorage, name, rv.Type())
	}
	fv, err := fieldByPath(rv, path, false)
	if err != nil {
		return nil, err
	}
	if !fv.IsValid() {
		return nil, nil
	}
	return fv.Interface(), nil
}

// storeAttribute writes the named attribute on an instance: Record first,
// then settable struct field reflection. Struct writes require a pointer.
func storeAttribute(instance any, name string, value any) error {
	if instance == nil {
		return ErrNoStorage
	}
	if rec, ok := instance.(Record); ok {
		rec.SetAttribute(name, value)
		return nil
	}
	rv := reflect.ValueOf(instance)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: %T is not an addressable record", ErrNoStorage, instance)
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %T is not a struct record", ErrNoStorage, instance)
	}
	path, ok := tableFor(rv.Type()).lookup(name)
	if !ok {
		return fmt.Errorf("%w: no field for attribute %q on %s", ErrNoStorage, name, rv.Type())
	}
	fv, err := fieldByPath(rv, path, true)
	if err != nil {
		return err
	}
	return assignValue(fv, value, name)
}

// fieldByPath walks an index path. When alloc is set, nil pointers along the
// path are allocated so the leaf is addressable.
func fieldByPath(rv reflect.Value, path []int, alloc bool) (reflect.Value, error) {
	for step, i := range path {
		for rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				if !alloc {
					return reflect.Value{}, nil
				}
				if !rv.CanSet() {
					return reflect.Value{}, fmt.Errorf("nil embedded pointer at step %d is not settable", step)
				}
				rv.Set(reflect.New(rv.Type().Elem()))
			}
			rv = rv.Elem()
		}
		rv = rv.Field(i)
	}
	return rv, nil
}

func assignValue(fv reflect.Value, value any, name string) error {
	if !fv.CanSet() {
		return fmt.Errorf("field for attribute %q is not settable", name)
	}
	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	vv := reflect.ValueOf(value)
	switch {
	case vv.Type().AssignableTo(fv.Type()):
		fv.Set(vv)
	case vv.Type().ConvertibleTo(fv.Type()):
		fv.Set(vv.Convert(fv.Type()))
	default:
		return fmt.Errorf("cannot store %T in attribute %q (%s)", value, name, fv.Type())
	}
	return nil
}
