package attrcrypt

import "context"

// Accessor is the synthesized getter and setter pair for one declared
// attribute. It holds the attribute name, not the spec, so a redeclaration
// takes effect on the next call.
type Accessor struct {
	class *Class
	name  string
}

// Accessor returns the getter/setter pair for a declared attribute.
func (c *Class) Accessor(name string) (*Accessor, error) {
	if _, err := c.spec(name); err != nil {
		return nil, err
	}
	return &Accessor{class: c, name: name}, nil
}

// Accessors returns pairs for every declared attribute, keyed by name.
func (c *Class) Accessors() map[string]*Accessor {
	out := map[string]*Accessor{}
	for _, name := range c.Attributes() {
		out[name] = &Accessor{class: c, name: name}
	}
	return out
}

// Name returns the logical attribute name.
func (a *Accessor) Name() string {
	return a.name
}

// Storage returns the current storage attribute name.
func (a *Accessor) Storage() (string, error) {
	return a.class.StorageAttribute(a.name)
}

// Get reads the storage attribute from the instance and decrypts it.
func (a *Accessor) Get(ctx context.Context, instance any) (any, error) {
	return a.class.ReadAttribute(ctx, instance, a.name)
}

// Set encrypts the value and writes it to the instance's storage attribute.
func (a *Accessor) Set(ctx context.Context, instance any, value any) error {
	return a.class.WriteAttribute(ctx, instance, a.name, value)
}

// Bind fixes the accessor to one instance.
func (a *Accessor) Bind(instance any) *BoundAccessor {
	return &BoundAccessor{accessor: a, instance: instance}
}

// BoundAccessor is an accessor fixed to one instance, mirroring how
// synthesized attribute methods behave on a model object.
type BoundAccessor struct {
	accessor *Accessor
	instance any
}

// Get decrypts the bound instance's stored value.
func (b *BoundAccessor) Get(ctx context.Context) (any, error) {
	return b.accessor.Get(ctx, b.instance)
}

// Set encrypts and stores a value on the bound instance.
func (b *BoundAccessor) Set(ctx context.Context, value any) error {
	return b.accessor.Set(ctx, b.instance, value)
}
