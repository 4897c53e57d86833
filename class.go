package gojabind

import (
	"errors"
	"fmt"
	"runtime"
	"sort"

	"github.com/dop251/goja"
)

// Attribute flags for data properties installed through DefineProperty and
// class value entries.
const (
	PropertyWritable = 1 << iota
	PropertyConfigurable
	PropertyEnumerable

	PropertyDefault = PropertyWritable | PropertyConfigurable | PropertyEnumerable
)

func propertyFlag(flags, bit int) goja.Flag {
	if flags&bit != 0 {
		return goja.FLAG_TRUE
	}
	return goja.FLAG_FALSE
}

// =============================================================================
// CLASS DESCRIPTOR CONFIGURATION
// =============================================================================

// MethodEntry describes one method of a class.
type MethodEntry struct {
	Name   string
	Func   MethodFunc
	Static bool // lives on the constructor instead of the prototype
}

// AccessorEntry describes one accessor property of a class. At least one of
// Getter and Setter must be set.
type AccessorEntry struct {
	Name   string
	Getter GetterFunc
	Setter SetterFunc
	Static bool
}

// ValueEntry describes a constant data property shared by every instance.
// The value is a native Go value, converted when the class is materialized
// into a context.
type ValueEntry struct {
	Name  string
	Value interface{}
	Flags int
}

// ClassBuilder assembles an immutable wrapper class descriptor through a
// fluent interface:
//
//	cls, err := gojabind.NewClassBuilder("Point").
//		Constructor(newPoint).
//		Method("norm", pointNorm).
//		Accessor("x", getX, setX).
//		Build()
type ClassBuilder struct {
	name          string
	constructor   ConstructorFunc
	finalizer     FinalizerFunc
	getter        PropertyGetterFunc
	setter        PropertySetterFunc
	indexedGetter IndexedGetterFunc
	indexedSetter IndexedSetterFunc
	propertyNames PropertyNamesFunc
	methods       []MethodEntry
	accessors     []AccessorEntry
	values        []ValueEntry
	parent        *Class
}

// NewClassBuilder starts a class descriptor with the given script-visible
// name.
func NewClassBuilder(name string) *ClassBuilder {
	return &ClassBuilder{name: name}
}

// Constructor sets the native constructor. A class without one rejects
// script-side construction with "Illegal constructor" while remaining
// instantiable host-side through Class.New.
func (cb *ClassBuilder) Constructor(fn ConstructorFunc) *ClassBuilder {
	cb.constructor = fn
	return cb
}

// Finalizer sets the release hook for instance payloads.
func (cb *ClassBuilder) Finalizer(fn FinalizerFunc) *ClassBuilder {
	cb.finalizer = fn
	return cb
}

// Getter installs a catch-all named-property getter.
func (cb *ClassBuilder) Getter(fn PropertyGetterFunc) *ClassBuilder {
	cb.getter = fn
	return cb
}

// Setter installs a catch-all named-property setter.
func (cb *ClassBuilder) Setter(fn PropertySetterFunc) *ClassBuilder {
	cb.setter = fn
	return cb
}

// IndexedGetter installs the element read hook for array-like classes.
func (cb *ClassBuilder) IndexedGetter(fn IndexedGetterFunc) *ClassBuilder {
	cb.indexedGetter = fn
	return cb
}

// IndexedSetter installs the element store hook for array-like classes.
func (cb *ClassBuilder) IndexedSetter(fn IndexedSetterFunc) *ClassBuilder {
	cb.indexedSetter = fn
	return cb
}

// PropertyNames installs the synthetic property enumerator.
func (cb *ClassBuilder) PropertyNames(fn PropertyNamesFunc) *ClassBuilder {
	cb.propertyNames = fn
	return cb
}

// Method adds an instance method.
func (cb *ClassBuilder) Method(name string, fn MethodFunc) *ClassBuilder {
	cb.methods = append(cb.methods, MethodEntry{Name: name, Func: fn})
	return cb
}

// StaticMethod adds a method on the constructor itself.
func (cb *ClassBuilder) StaticMethod(name string, fn MethodFunc) *ClassBuilder {
	cb.methods = append(cb.methods, MethodEntry{Name: name, Func: fn, Static: true})
	return cb
}

// Accessor adds an accessor property. Either fn may be nil for a read-only
// or write-only property, but not both.
func (cb *ClassBuilder) Accessor(name string, getter GetterFunc, setter SetterFunc) *ClassBuilder {
	cb.accessors = append(cb.accessors, AccessorEntry{Name: name, Getter: getter, Setter: setter})
	return cb
}

// StaticAccessor adds an accessor property on the constructor.
func (cb *ClassBuilder) StaticAccessor(name string, getter GetterFunc, setter SetterFunc) *ClassBuilder {
	cb.accessors = append(cb.accessors, AccessorEntry{Name: name, Getter: getter, Setter: setter, Static: true})
	return cb
}

// Value adds a constant data property shared by every instance.
func (cb *ClassBuilder) Value(name string, value interface{}) *ClassBuilder {
	cb.values = append(cb.values, ValueEntry{Name: name, Value: value, Flags: PropertyEnumerable})
	return cb
}

// Parent sets the class whose prototype this class delegates to. Methods
// not found on the child resolve through the parent chain.
func (cb *ClassBuilder) Parent(parent *Class) *ClassBuilder {
	cb.parent = parent
	return cb
}

// Build validates the descriptor and freezes it into a Class.
func (cb *ClassBuilder) Build() (*Class, error) {
	if cb.name == "" {
		return nil, errors.New("class name cannot be empty")
	}
	if cb.setter != nil && cb.getter == nil {
		return nil, fmt.Errorf("class %s: property setter requires a property getter", cb.name)
	}
	if cb.indexedSetter != nil && cb.indexedGetter == nil {
		return nil, fmt.Errorf("class %s: indexed setter requires an indexed getter", cb.name)
	}

	type memberKey struct {
		name   string
		static bool
	}
	seen := make(map[memberKey]bool)
	claim := func(name string, static bool) error {
		if name == "" {
			return fmt.Errorf("class %s: member name cannot be empty", cb.name)
		}
		key := memberKey{name: name, static: static}
		if seen[key] {
			return fmt.Errorf("class %s: duplicate member name: %s", cb.name, name)
		}
		seen[key] = true
		return nil
	}
	for _, m := range cb.methods {
		if m.Func == nil {
			return nil, fmt.Errorf("class %s: method %s has no implementation", cb.name, m.Name)
		}
		if err := claim(m.Name, m.Static); err != nil {
			return nil, err
		}
	}
	for _, a := range cb.accessors {
		if a.Getter == nil && a.Setter == nil {
			return nil, fmt.Errorf("class %s: accessor %s has neither getter nor setter", cb.name, a.Name)
		}
		if err := claim(a.Name, a.Static); err != nil {
			return nil, err
		}
	}
	for _, v := range cb.values {
		if err := claim(v.Name, false); err != nil {
			return nil, err
		}
	}

	cls := &Class{
		name:          cb.name,
		constructor:   cb.constructor,
		finalizer:     cb.finalizer,
		getter:        cb.getter,
		setter:        cb.setter,
		indexedGetter: cb.indexedGetter,
		indexedSetter: cb.indexedSetter,
		propertyNames: cb.propertyNames,
		methods:       append([]MethodEntry(nil), cb.methods...),
		accessors:     append([]AccessorEntry(nil), cb.accessors...),
		values:        append([]ValueEntry(nil), cb.values...),
		parent:        cb.parent,
	}
	return cls, nil
}

// Class is an immutable wrapper class descriptor. It is engine-independent:
// the same descriptor can be materialized into any number of contexts.
type Class struct {
	name          string
	constructor   ConstructorFunc
	finalizer     FinalizerFunc
	getter        PropertyGetterFunc
	setter        PropertySetterFunc
	indexedGetter IndexedGetterFunc
	indexedSetter IndexedSetterFunc
	propertyNames PropertyNamesFunc
	methods       []MethodEntry
	accessors     []AccessorEntry
	values        []ValueEntry
	parent        *Class
}

// Name returns the script-visible class name.
func (c *Class) Name() string { return c.name }

// Parent returns the parent class, or nil.
func (c *Class) Parent() *Class { return c.parent }

// dynamic reports whether instances need a property-access proxy.
func (c *Class) dynamic() bool {
	return c.getter != nil || c.setter != nil ||
		c.indexedGetter != nil || c.indexedSetter != nil ||
		c.propertyNames != nil
}

// New instantiates the class host-side, bypassing the script-visible
// constructor, and attaches payload as the instance's native data.
func (c *Class) New(ctx *Context, payload interface{}) (Value, error) {
	bound, ok := ctx.classes[c.name]
	if !ok || bound.class != c {
		return Value{}, fmt.Errorf("class %q is not registered in this context", c.name)
	}
	instance, dyn := ctx.newInstanceObject(c, bound.proto)
	ctx.attachHandle(instance, dyn, c, payload)
	return instance, nil
}

// =============================================================================
// CLASS REGISTRY
// =============================================================================

// ClassRegistry is a table of class descriptors, populated once during
// startup registration and read-only afterward. A registry handed to
// NewContext via WithClassRegistry materializes every class into the new
// context in registration order.
type ClassRegistry struct {
	order  []*Class
	byName map[string]*Class
}

// NewClassRegistry returns an empty registry.
func NewClassRegistry() *ClassRegistry {
	return &ClassRegistry{byName: make(map[string]*Class)}
}

// Register adds a class descriptor. Names must be unique.
func (r *ClassRegistry) Register(cls *Class) error {
	if cls == nil {
		return errors.New("class cannot be nil")
	}
	if _, ok := r.byName[cls.name]; ok {
		return fmt.Errorf("class %q already registered", cls.name)
	}
	r.byName[cls.name] = cls
	r.order = append(r.order, cls)
	return nil
}

// Lookup returns the class registered under name.
func (r *ClassRegistry) Lookup(name string) (*Class, bool) {
	cls, ok := r.byName[name]
	return cls, ok
}

// Classes returns the registered classes in registration order.
func (r *ClassRegistry) Classes() []*Class {
	return append([]*Class(nil), r.order...)
}

// =============================================================================
// MATERIALIZATION
// =============================================================================

// boundClass is one class materialized into one context: the shared
// prototype/constructor pair every instance of the class uses there.
type boundClass struct {
	class *Class
	ctor  *goja.Object
	proto *goja.Object
}

// RegisterClass materializes the class descriptor in this context and
// returns its constructor, which is also installed on the global object
// under the class name. Each adapter is generated exactly once and shared
// by all instances through the prototype. An unregistered parent is
// registered first so prototype delegation lines up.
func (ctx *Context) RegisterClass(cls *Class) (Value, error) {
	if cls == nil {
		return Value{}, errors.New("class cannot be nil")
	}
	if _, ok := ctx.classes[cls.name]; ok {
		return Value{}, fmt.Errorf("class %q already registered", cls.name)
	}
	if cls.parent != nil {
		if bound, ok := ctx.classes[cls.parent.name]; !ok {
			if _, err := ctx.RegisterClass(cls.parent); err != nil {
				return Value{}, err
			}
		} else if bound.class != cls.parent {
			return Value{}, fmt.Errorf("class %q: parent name %q is bound to a different class", cls.name, cls.parent.name)
		}
	}

	proto := ctx.vm.NewObject()
	for _, m := range cls.methods {
		if m.Static {
			continue
		}
		adapter := ctx.MethodAdapter(cls.name+m.Name, m.Func)
		if err := proto.Set(m.Name, adapter.engine()); err != nil {
			return Value{}, err
		}
	}
	for _, a := range cls.accessors {
		if a.Static {
			continue
		}
		if err := ctx.defineAccessor(proto, cls.name, a); err != nil {
			return Value{}, err
		}
	}
	for _, v := range cls.values {
		err := proto.DefineDataProperty(v.Name, ctx.vm.ToValue(v.Value),
			propertyFlag(v.Flags, PropertyWritable),
			propertyFlag(v.Flags, PropertyConfigurable),
			propertyFlag(v.Flags, PropertyEnumerable))
		if err != nil {
			return Value{}, err
		}
	}
	if cls.parent != nil {
		if err := proto.SetPrototype(ctx.classes[cls.parent.name].proto); err != nil {
			return Value{}, err
		}
	}

	ctorImpl := func(call goja.ConstructorCall) *goja.Object {
		if cls.constructor == nil {
			panic(ctx.vm.NewTypeError("Illegal constructor"))
		}
		instance, dyn := ctx.constructorInstance(cls, proto, call)
		payload, err := cls.constructor(ctx, instance, ctx.wrapArgs(call.Arguments))
		if err != nil {
			panic(ctx.errorValue(err))
		}
		ctx.attachHandle(instance, dyn, cls, payload)
		return instance.ref.(*goja.Object)
	}
	ctorObj, ok := ctx.vm.ToValue(ctorImpl).(*goja.Object)
	if !ok {
		return Value{}, fmt.Errorf("class %q: constructor adapter is not an object", cls.name)
	}
	_ = ctorObj.DefineDataProperty("name", ctx.vm.ToValue(cls.name),
		goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE)
	if err := ctorObj.Set("prototype", proto); err != nil {
		return Value{}, err
	}
	_ = proto.DefineDataProperty("constructor", ctorObj,
		goja.FLAG_TRUE, goja.FLAG_TRUE, goja.FLAG_FALSE)

	for _, m := range cls.methods {
		if !m.Static {
			continue
		}
		adapter := ctx.MethodAdapter(cls.name+m.Name, m.Func)
		if err := ctorObj.Set(m.Name, adapter.engine()); err != nil {
			return Value{}, err
		}
	}
	for _, a := range cls.accessors {
		if !a.Static {
			continue
		}
		if err := ctx.defineAccessor(ctorObj, cls.name, a); err != nil {
			return Value{}, err
		}
	}

	if err := ctx.vm.GlobalObject().Set(cls.name, ctorObj); err != nil {
		return Value{}, err
	}

	ctx.classes[cls.name] = &boundClass{class: cls, ctor: ctorObj, proto: proto}
	return Value{ctx: ctx, ref: ctorObj}, nil
}

func (ctx *Context) defineAccessor(target *goja.Object, className string, a AccessorEntry) error {
	var getter, setter goja.Value
	if a.Getter != nil {
		getter = ctx.GetterAdapter(className+a.Name, a.Getter).engine()
	}
	if a.Setter != nil {
		setter = ctx.SetterAdapter(className+a.Name, a.Setter).engine()
	}
	return target.DefineAccessorProperty(a.Name, getter, setter, goja.FLAG_FALSE, goja.FLAG_TRUE)
}

// ClassConstructor returns the constructor the class is bound to in this
// context.
func (ctx *Context) ClassConstructor(cls *Class) (Value, bool) {
	if bound, ok := ctx.classes[cls.name]; ok && bound.class == cls {
		return Value{ctx: ctx, ref: bound.ctor}, true
	}
	return Value{}, false
}

// IsInstanceOf reports whether v is an instance of the registered class,
// including through parent delegation.
func (ctx *Context) IsInstanceOf(v Value, cls *Class) bool {
	bound, ok := ctx.classes[cls.name]
	if !ok || bound.class != cls || !v.IsObject() {
		return false
	}
	return ctx.vm.InstanceOf(v.engine(), bound.ctor)
}

// constructorInstance picks the object a script-side construction attaches
// to: the engine-provided this for plain classes, a fresh dynamic proxy for
// classes that hook property access.
func (ctx *Context) constructorInstance(cls *Class, proto *goja.Object, call goja.ConstructorCall) (Value, *dynamicInstance) {
	if !cls.dynamic() && call.This != nil {
		return Value{ctx: ctx, ref: call.This}, nil
	}
	return ctx.newInstanceObject(cls, proto)
}

// newInstanceObject creates an unattached instance carrying the class
// prototype.
func (ctx *Context) newInstanceObject(cls *Class, proto *goja.Object) (Value, *dynamicInstance) {
	if !cls.dynamic() {
		obj := ctx.vm.NewObject()
		_ = obj.SetPrototype(proto)
		return Value{ctx: ctx, ref: obj}, nil
	}
	d := &dynamicInstance{ctx: ctx, cls: cls, values: make(map[string]goja.Value)}
	obj := ctx.vm.NewDynamicObject(d)
	_ = obj.SetPrototype(proto)
	d.self = Value{ctx: ctx, ref: obj}
	return d.self, d
}

// =============================================================================
// INSTANCE DATA
// =============================================================================

// slotToken is what actually sits in an instance's private slot. The engine
// object holds the only reference, so the Go collector observing the token
// as unreachable means the script counterpart is gone too.
type slotToken struct {
	store *handleStore
	id    int32
}

// finalizeSlot runs when the engine has dropped the wrapping object.
// release is idempotent, so racing an explicit release or Close is safe.
func finalizeSlot(tok *slotToken) {
	tok.store.release(tok.id)
}

func (ctx *Context) attachHandle(instance Value, dyn *dynamicInstance, cls *Class, payload interface{}) *Handle {
	h := &Handle{class: cls, payload: payload}
	ctx.handles.store(h)
	tok := &slotToken{store: ctx.handles, id: h.id}
	runtime.SetFinalizer(tok, finalizeSlot)
	if dyn != nil {
		dyn.token = tok
	} else if obj, ok := instance.ref.(*goja.Object); ok {
		_ = obj.SetSymbol(ctx.slot, ctx.vm.ToValue(tok))
	}
	return h
}

func (ctx *Context) instanceToken(v Value) (*slotToken, bool) {
	obj, ok := v.ref.(*goja.Object)
	if !ok {
		return nil, false
	}
	tokVal := obj.GetSymbol(ctx.slot)
	if tokVal == nil {
		tokVal = obj.Get(handleSlotKey)
	}
	if tokVal == nil {
		return nil, false
	}
	tok, ok := tokVal.Export().(*slotToken)
	return tok, ok
}

// InstanceHandle returns the live native handle attached to a wrapped
// instance.
func (ctx *Context) InstanceHandle(v Value) (*Handle, bool) {
	tok, ok := ctx.instanceToken(v)
	if !ok {
		return nil, false
	}
	return ctx.handles.load(tok.id)
}

// InstancePayload returns the native payload attached to a wrapped
// instance.
func (ctx *Context) InstancePayload(v Value) (interface{}, error) {
	h, ok := ctx.InstanceHandle(v)
	if !ok {
		return nil, errors.New("no instance data found")
	}
	return h.payload, nil
}

// ReleaseInstance finalizes the instance's handle now instead of waiting
// for the collector or Close. It reports whether the finalizer ran; a
// second release of the same instance reports false.
func (ctx *Context) ReleaseInstance(v Value) bool {
	tok, ok := ctx.instanceToken(v)
	if !ok {
		return false
	}
	return ctx.handles.release(tok.id)
}

// =============================================================================
// DYNAMIC INSTANCES
// =============================================================================

// handleSlotKey carries the handle token on dynamic instances, where symbol
// properties are not available. The proxy keeps it out of enumeration.
const handleSlotKey = "_gojabindHandle"

// dynamicInstance backs instances of classes that hook property access. It
// implements the engine's dynamic object protocol and applies the three-way
// index classification: a name that does not parse as an integer falls
// through to named handling, a negative index raises a range error, a valid
// index dispatches to the indexed accessors.
type dynamicInstance struct {
	ctx    *Context
	cls    *Class
	self   Value
	token  *slotToken
	values map[string]goja.Value // fallback store for ordinary named properties
}

func (d *dynamicInstance) Get(key string) goja.Value {
	if key == handleSlotKey {
		if d.token == nil {
			return nil
		}
		return d.ctx.vm.ToValue(d.token)
	}
	idx, ok, err := ParseIndex(key)
	if err != nil {
		panic(d.ctx.errorValue(err))
	}
	if ok && d.cls.indexedGetter != nil {
		res, err := d.cls.indexedGetter(d.ctx, d.self, idx)
		if err != nil {
			var rangeErr *OutOfRangeError
			if errors.As(err, &rangeErr) {
				// Reading past the end behaves like an absent array element.
				return goja.Undefined()
			}
			panic(d.ctx.errorValue(err))
		}
		return res.engine()
	}
	if d.cls.getter != nil {
		res, err := d.cls.getter(d.ctx, d.self, key)
		if err != nil {
			panic(d.ctx.errorValue(err))
		}
		if res.ref != nil {
			return res.ref
		}
	}
	if v, present := d.values[key]; present {
		return v
	}
	return nil // absent here; the engine continues with the prototype chain
}

func (d *dynamicInstance) Set(key string, val goja.Value) bool {
	idx, ok, err := ParseIndex(key)
	if err != nil {
		panic(d.ctx.errorValue(err))
	}
	if ok && d.cls.indexedSetter != nil {
		if err := d.cls.indexedSetter(d.ctx, d.self, idx, Value{ctx: d.ctx, ref: val}); err != nil {
			panic(d.ctx.errorValue(err))
		}
		return true
	}
	if d.cls.setter != nil {
		handled, err := d.cls.setter(d.ctx, d.self, key, Value{ctx: d.ctx, ref: val})
		if err != nil {
			panic(d.ctx.errorValue(err))
		}
		if handled {
			return true
		}
	}
	d.values[key] = val
	return true
}

func (d *dynamicInstance) Has(key string) bool {
	if key == handleSlotKey {
		return false
	}
	idx, ok, err := ParseIndex(key)
	if err != nil {
		return false
	}
	if ok && d.cls.indexedGetter != nil {
		res, err := d.cls.indexedGetter(d.ctx, d.self, idx)
		return err == nil && res.ref != nil && !goja.IsUndefined(res.ref)
	}
	if d.cls.getter != nil {
		if res, err := d.cls.getter(d.ctx, d.self, key); err == nil && res.ref != nil {
			return true
		}
	}
	_, present := d.values[key]
	return present
}

func (d *dynamicInstance) Delete(key string) bool {
	delete(d.values, key)
	return true
}

func (d *dynamicInstance) Keys() []string {
	var keys []string
	if d.cls.propertyNames != nil {
		keys = append(keys, d.cls.propertyNames(d.ctx, d.self)...)
	}
	for k := range d.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
