package attrcrypt

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Class groups encrypted attribute declarations under one name, the way a
// model class would. Declarations merge the class's option layers into
// immutable specs; instance operations run the transform pipeline against
// those specs.
type Class struct {
	name     string
	registry *Registry

	mu       sync.RWMutex
	defaults *layerOptions
	specs    map[string]*AttributeSpec
	storage  map[string]string // storage attribute -> logical attribute
}

func newClass(name string, registry *Registry, opts []Option) *Class {
	return &Class{
		name:     name,
		registry: registry,
		defaults: applyOptions(opts),
		specs:    map[string]*AttributeSpec{},
		storage:  map[string]string{},
	}
}

// Name returns the class name.
func (c *Class) Name() string {
	return c.name
}

// SetDefaults merges options into the class defaults layer. Only later
// declarations see the change; existing specs stay frozen.
func (c *Class) SetDefaults(opts ...Option) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defaults = mergeLayers(c.defaults, applyOptions(opts))
}

// Declare registers an encrypted attribute. Options merge over the class,
// registry and built-in layers; the result freezes into an AttributeSpec.
// Redeclaring a name replaces its spec.
func (c *Class) Declare(name string, opts ...Option) (*AttributeSpec, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	merged := mergeLayers(
		builtinDefaults(),
		c.registry.defaultsClone(),
		c.defaults,
		applyOptions(opts),
	)
	spec, err := freezeSpec(c.name, name, merged)
	if err != nil {
		return nil, err
	}

	if prior, ok := c.specs[name]; ok {
		delete(c.storage, prior.Storage)
	}
	if owner, ok := c.storage[spec.Storage]; ok && owner != name {
		return nil, newDeclarationError(ErrStorageCollision, c.name, name,
			fmt.Sprintf("storage attribute %q already backs %q", spec.Storage, owner))
	}
	if _, ok := c.specs[spec.Storage]; ok {
		return nil, newDeclarationError(ErrStorageCollision, c.name, name,
			fmt.Sprintf("storage attribute %q is itself a declared attribute", spec.Storage))
	}
	if _, ok := c.storage[name]; ok {
		return nil, newDeclarationError(ErrStorageCollision, c.name, name,
			fmt.Sprintf("attribute %q is the storage attribute of %q", name, c.storage[name]))
	}

	c.specs[name] = spec
	c.storage[spec.Storage] = name
	emitAttributeDeclared(context.Background(), spec)
	return spec, nil
}

// DeclareEach registers several attributes with the same options. The first
// failing declaration aborts; earlier ones stay registered.
func (c *Class) DeclareEach(names []string, opts ...Option) ([]*AttributeSpec, error) {
	specs := make([]*AttributeSpec, 0, len(names))
	for _, name := range names {
		spec, err := c.Declare(name, opts...)
		if err != nil {
			return specs, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// Spec returns the frozen spec for an attribute.
func (c *Class) Spec(name string) (*AttributeSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	spec, ok := c.specs[name]
	return spec, ok
}

// Declared reports whether an attribute has been declared.
func (c *Class) Declared(name string) bool {
	_, ok := c.Spec(name)
	return ok
}

// Attributes lists declared attribute names, sorted.
func (c *Class) Attributes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.specs))
	for name := range c.specs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs lists frozen specs, sorted by attribute name.
func (c *Class) Specs() []*AttributeSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()
	specs := make([]*AttributeSpec, 0, len(c.specs))
	for _, spec := range c.specs {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Attribute < specs[j].Attribute })
	return specs
}

// StorageAttribute returns the storage attribute backing a declared
// attribute.
func (c *Class) StorageAttribute(name string) (string, error) {
	spec, err := c.spec(name)
	if err != nil {
		return "", err
	}
	return spec.Storage, nil
}

// AttributeForStorage reverses StorageAttribute.
func (c *Class) AttributeForStorage(storage string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.storage[storage]
	return name, ok
}

// StorageMapping returns a copy of the attribute to storage attribute map.
func (c *Class) StorageMapping() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.storage))
	for storage, name := range c.storage {
		out[name] = storage
	}
	return out
}

// EffectiveOptions returns a copy of the merged options an attribute froze
// with. Mutating the copy has no effect on the declaration.
func (c *Class) EffectiveOptions(name string) (AttributeSpec, error) {
	spec, err := c.spec(name)
	if err != nil {
		return AttributeSpec{}, err
	}
	out := *spec
	out.Extra = make(map[string]any, len(spec.Extra))
	for k, v := range spec.Extra {
		out.Extra[k] = v
	}
	return out, nil
}

func (c *Class) spec(name string) (*AttributeSpec, error) {
	spec, ok := c.Spec(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, c.name, name)
	}
	return spec, nil
}

// Encrypt transforms a value for an attribute against an instance: options
// resolve, the gate decides, and the pipeline runs. A denied gate returns
// the value unchanged. Nothing is stored; see WriteAttribute.
func (c *Class) Encrypt(ctx context.Context, instance any, name string, value any) (any, error) {
	spec, err := c.spec(name)
	if err != nil {
		return nil, err
	}
	resolved, err := resolveSpec(spec, instance)
	if err != nil {
		return nil, err
	}
	if !resolved.Allowed {
		return value, nil
	}
	return encryptValue(ctx, resolved, value)
}

// Decrypt reverses Encrypt for a stored value against an instance. A denied
// gate returns the stored value unchanged.
func (c *Class) Decrypt(ctx context.Context, instance any, name string, stored any) (any, error) {
	spec, err := c.spec(name)
	if err != nil {
		return nil, err
	}
	resolved, err := resolveSpec(spec, instance)
	if err != nil {
		return nil, err
	}
	if !resolved.Allowed {
		return stored, nil
	}
	return decryptValue(ctx, resolved, stored)
}

// WriteAttribute encrypts a value and stores the result in the instance's
// storage attribute. With a denied gate the raw value lands in storage.
func (c *Class) WriteAttribute(ctx context.Context, instance any, name string, value any) error {
	spec, err := c.spec(name)
	if err != nil {
		return err
	}
	resolved, err := resolveSpec(spec, instance)
	if err != nil {
		return err
	}
	out := value
	if resolved.Allowed {
		out, err = encryptValue(ctx, resolved, value)
		if err != nil {
			return err
		}
	}
	return storeAttribute(instance, spec.Storage, out)
}

// ReadAttribute loads the storage attribute and decrypts it. With a denied
// gate the stored value returns unchanged.
func (c *Class) ReadAttribute(ctx context.Context, instance any, name string) (any, error) {
	spec, err := c.spec(name)
	if err != nil {
		return nil, err
	}
	resolved, err := resolveSpec(spec, instance)
	if err != nil {
		return nil, err
	}
	stored, err := loadAttribute(instance, spec.Storage)
	if err != nil {
		return nil, err
	}
	if !resolved.Allowed {
		return stored, nil
	}
	return decryptValue(ctx, resolved, stored)
}

// helperEligible rejects specs whose key or gates depend on instance state.
func helperEligible(spec *AttributeSpec) error {
	if !spec.Key.IsLiteral() {
		return newResolutionError(ErrInstanceDependent, spec.Class, spec.Attribute, spec.Key.String(), nil)
	}
	if spec.If != nil && !spec.If.IsLiteral() {
		return newResolutionError(ErrInstanceDependent, spec.Class, spec.Attribute, spec.If.String(), nil)
	}
	if spec.Unless != nil && !spec.Unless.IsLiteral() {
		return newResolutionError(ErrInstanceDependent, spec.Class, spec.Attribute, spec.Unless.String(), nil)
	}
	return nil
}

// EncryptValue encrypts without an instance. It works only when the key and
// gates are literal; otherwise it reports ErrInstanceDependent. Given equal
// input and a deterministic provider it produces exactly what an instance
// write would store.
func (c *Class) EncryptValue(ctx context.Context, name string, value any) (any, error) {
	spec, err := c.spec(name)
	if err != nil {
		return nil, err
	}
	if err := helperEligible(spec); err != nil {
		return nil, err
	}
	resolved, err := resolveSpec(spec, nil)
	if err != nil {
		return nil, err
	}
	if !resolved.Allowed {
		return value, nil
	}
	return encryptValue(ctx, resolved, value)
}

// DecryptValue decrypts without an instance, under the same eligibility
// rules as EncryptValue.
func (c *Class) DecryptValue(ctx context.Context, name string, stored any) (any, error) {
	spec, err := c.spec(name)
	if err != nil {
		return nil, err
	}
	if err := helperEligible(spec); err != nil {
		return nil, err
	}
	resolved, err := resolveSpec(spec, nil)
	if err != nil {
		return nil, err
	}
	if !resolved.Allowed {
		return stored, nil
	}
	return decryptValue(ctx, resolved, stored)
}

// deterministicProvider is implemented by providers whose ciphertext is a
// pure function of key and plaintext.
type deterministicProvider interface {
	Deterministic(extra map[string]any) bool
}

// Queryable reports whether stored ciphertext for an attribute can be
// computed without an instance: literal key, static allowing gate, and a
// deterministic provider.
func (c *Class) Queryable(name string) bool {
	spec, ok := c.Spec(name)
	if !ok {
		return false
	}
	if helperEligible(spec) != nil {
		return false
	}
	resolved, err := resolveSpec(spec, nil)
	if err != nil || !resolved.Allowed {
		return false
	}
	p, ok := spec.Provider.(deterministicProvider)
	return ok && p.Deterministic(spec.Extra)
}
