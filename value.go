package gojabind

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/dop251/goja"
)

// Value pairs a script-engine value with the Context it belongs to. The
// engine owns the value; this layer only borrows it for the duration of a
// call. The zero Value reads as undefined.
type Value struct {
	ctx *Context
	ref goja.Value
}

// Context returns the context the value belongs to.
func (v Value) Context() *Context { return v.ctx }

// Raw returns the underlying engine value.
func (v Value) Raw() goja.Value { return v.ref }

// engine returns the underlying value, mapping the zero Value to undefined
// so adapters can hand it straight back to the engine.
func (v Value) engine() goja.Value {
	if v.ref == nil {
		return goja.Undefined()
	}
	return v.ref
}

// String returns the unvalidated string rendering of the value.
// This method implements the fmt.Stringer interface.
func (v Value) String() string {
	if v.ref == nil {
		return "undefined"
	}
	return v.ref.String()
}

// =============================================================================
// TYPE PREDICATES
// =============================================================================

func (v Value) IsUndefined() bool { return v.ref == nil || goja.IsUndefined(v.ref) }
func (v Value) IsNull() bool      { return v.ref != nil && goja.IsNull(v.ref) }

func (v Value) IsBool() bool   { return v.kindIs(reflect.Bool) }
func (v Value) IsString() bool { return v.kindIs(reflect.String) }

func (v Value) IsNumber() bool {
	if v.ref == nil || v.IsObject() {
		return false
	}
	t := v.ref.ExportType()
	return t != nil && (t.Kind() == reflect.Int64 || t.Kind() == reflect.Float64)
}

func (v Value) IsObject() bool {
	_, ok := v.ref.(*goja.Object)
	return ok
}

func (v Value) IsFunction() bool {
	if v.ref == nil {
		return false
	}
	_, ok := goja.AssertFunction(v.ref)
	return ok
}

func (v Value) IsArray() bool       { return v.GlobalInstanceof("Array") }
func (v Value) IsArrayBuffer() bool { return v.GlobalInstanceof("ArrayBuffer") }
func (v Value) IsDate() bool        { return v.GlobalInstanceof("Date") }
func (v Value) IsError() bool       { return v.GlobalInstanceof("Error") }

func (v Value) kindIs(k reflect.Kind) bool {
	if v.ref == nil || v.IsObject() {
		return false
	}
	t := v.ref.ExportType()
	return t != nil && t.Kind() == k
}

// GlobalInstanceof reports whether the value is an instance of the named
// global constructor.
func (v Value) GlobalInstanceof(name string) bool {
	if v.ctx == nil || !v.IsObject() {
		return false
	}
	ctor, ok := v.ctx.vm.Get(name).(*goja.Object)
	if !ok {
		return false
	}
	return v.ctx.vm.InstanceOf(v.ref, ctor)
}

// IsObjectOfType reports whether the value is an instance of the named
// global constructor, bridging any exception the lookup raises.
func (v Value) IsObjectOfType(name string) (bool, error) {
	if v.ctx == nil {
		return false, &ConversionError{Message: "Value is not an object."}
	}
	ctorVal, err := v.ctx.Globals().Get(name)
	if err != nil {
		return false, err
	}
	ctor, ok := ctorVal.ref.(*goja.Object)
	if !ok {
		return false, &ConversionError{Message: fmt.Sprintf("Value is not an object of type: %s", name)}
	}
	var result bool
	if err := v.ctx.tryCatch(func() { result = v.ctx.vm.InstanceOf(v.engine(), ctor) }); err != nil {
		return false, err
	}
	return result, nil
}

// =============================================================================
// VALIDATED CONVERSIONS
// =============================================================================

// ToNumber returns the numeric form of the value. null is rejected
// explicitly rather than coerced to 0, and a coercion that produces NaN is
// an error.
func (v Value) ToNumber() (float64, error) {
	if v.IsNull() {
		return 0, &ConversionError{Message: "`null` is not a number."}
	}
	var f float64
	if err := v.tryCtx(func() { f = v.engine().ToFloat() }); err != nil {
		return 0, err
	}
	if math.IsNaN(f) {
		return 0, &ConversionError{Message: "Value not convertible to a number."}
	}
	return f, nil
}

// ToBoolean returns the boolean form of the value. Only genuine booleans
// qualify; no truthiness coercion is applied.
func (v Value) ToBoolean() (bool, error) {
	if !v.IsBool() {
		return false, &ConversionError{Message: "Value is not a boolean."}
	}
	return v.ref.ToBoolean(), nil
}

// ToString returns the validated string form of the value. An optional name
// labels the failing property in error messages. null and undefined are
// rejected; everything else converts through the engine, so a throwing
// toString surfaces as a ScriptException.
func (v Value) ToString(name ...string) (string, error) {
	if v.IsUndefined() || v.IsNull() {
		if len(name) > 0 && name[0] != "" {
			return "", &ConversionError{Message: fmt.Sprintf("Property '%s' must be a string.", name[0])}
		}
		return "", &ConversionError{Message: "Value is not a string."}
	}
	var s string
	if err := v.tryCtx(func() { s = v.engine().ToString().String() }); err != nil {
		return "", err
	}
	return s, nil
}

// ToObject validates the value as an object. The optional message replaces
// the default error text.
func (v Value) ToObject(message ...string) (Value, error) {
	if !v.IsObject() {
		return Value{}, &ConversionError{Message: conversionMessage("Value is not an object.", message)}
	}
	return v, nil
}

// ToFunction validates the value as a callable object.
func (v Value) ToFunction(message ...string) (Value, error) {
	if !v.IsFunction() {
		return Value{}, &ConversionError{Message: conversionMessage("Value is not a function.", message)}
	}
	return v, nil
}

// ToDate validates the value as a Date object and returns its native time.
func (v Value) ToDate(message ...string) (time.Time, error) {
	if !v.IsDate() {
		return time.Time{}, &ConversionError{Message: conversionMessage("Value is not a date.", message)}
	}
	t, ok := v.ref.Export().(time.Time)
	if !ok {
		return time.Time{}, &ConversionError{Message: conversionMessage("Value is not a date.", message)}
	}
	return t, nil
}

func conversionMessage(fallback string, message []string) string {
	if len(message) > 0 && message[0] != "" {
		return message[0]
	}
	return fallback
}

func (v Value) object() (*goja.Object, error) {
	obj, ok := v.ref.(*goja.Object)
	if !ok {
		return nil, &ConversionError{Message: "Value is not an object."}
	}
	return obj, nil
}

func (v Value) tryCtx(fn func()) error {
	if v.ctx != nil {
		return v.ctx.tryCatch(fn)
	}
	fn()
	return nil
}

// =============================================================================
// PROPERTY ACCESS
// =============================================================================

// Get returns the named property. An exception raised by the engine (a
// throwing getter or proxy trap) is reported as a ScriptException.
func (v Value) Get(name string) (Value, error) {
	obj, err := v.object()
	if err != nil {
		return Value{}, err
	}
	var ref goja.Value
	if err := v.tryCtx(func() { ref = obj.Get(name) }); err != nil {
		return Value{}, err
	}
	if ref == nil {
		ref = goja.Undefined()
	}
	return Value{ctx: v.ctx, ref: ref}, nil
}

// GetIdx returns the property at the given index.
func (v Value) GetIdx(idx int64) (Value, error) {
	return v.Get(strconv.FormatInt(idx, 10))
}

// Set assigns the named property.
func (v Value) Set(name string, value Value) error {
	obj, err := v.object()
	if err != nil {
		return err
	}
	var setErr error
	if err := v.tryCtx(func() { setErr = obj.Set(name, value.engine()) }); err != nil {
		return err
	}
	return v.wrapEngine(setErr)
}

func (v Value) wrapEngine(err error) error {
	if err == nil {
		return nil
	}
	if v.ctx != nil {
		return v.ctx.wrapEngineError(err)
	}
	return err
}

// SetIdx assigns the property at the given index.
func (v Value) SetIdx(idx int64, value Value) error {
	return v.Set(strconv.FormatInt(idx, 10), value)
}

// Has reports whether the named property is present and defined.
func (v Value) Has(name string) bool {
	prop, err := v.Get(name)
	return err == nil && !prop.IsUndefined()
}

// Delete removes the named property.
func (v Value) Delete(name string) error {
	obj, err := v.object()
	if err != nil {
		return err
	}
	var delErr error
	if err := v.tryCtx(func() { delErr = obj.Delete(name) }); err != nil {
		return err
	}
	return v.wrapEngine(delErr)
}

// DefineProperty installs the named property with explicit attribute flags.
func (v Value) DefineProperty(name string, value Value, flags int) error {
	obj, err := v.object()
	if err != nil {
		return err
	}
	var defErr error
	if err := v.tryCtx(func() {
		defErr = obj.DefineDataProperty(name, value.engine(),
			propertyFlag(flags, PropertyWritable),
			propertyFlag(flags, PropertyConfigurable),
			propertyFlag(flags, PropertyEnumerable))
	}); err != nil {
		return err
	}
	return v.wrapEngine(defErr)
}

// PropertyNames returns the enumerable own property names of the object.
func (v Value) PropertyNames() ([]string, error) {
	obj, err := v.object()
	if err != nil {
		return nil, err
	}
	var keys []string
	if err := v.tryCtx(func() { keys = obj.Keys() }); err != nil {
		return nil, err
	}
	return keys, nil
}

// =============================================================================
// VALIDATED PROPERTY HELPERS
// =============================================================================

// ObjectProperty returns the named property, requiring it to be a defined
// object. An undefined property is a PropertyMissingError, a defined
// non-object a ConversionError.
func (v Value) ObjectProperty(name string, message ...string) (Value, error) {
	prop, err := v.Get(name)
	if err != nil {
		return Value{}, err
	}
	if prop.IsUndefined() {
		if len(message) > 0 && message[0] != "" {
			return Value{}, &PropertyMissingError{Message: message[0]}
		}
		return Value{}, &PropertyMissingError{Message: fmt.Sprintf("Object property '%s' is undefined", name)}
	}
	return prop.ToObject(message...)
}

// ObjectAtIndex returns the element at the given index, requiring it to be
// an object.
func (v Value) ObjectAtIndex(idx int64) (Value, error) {
	prop, err := v.GetIdx(idx)
	if err != nil {
		return Value{}, err
	}
	return prop.ToObject()
}

// StringProperty returns the named property validated as a string, with the
// property name woven into the error message on failure.
func (v Value) StringProperty(name string) (string, error) {
	prop, err := v.Get(name)
	if err != nil {
		return "", err
	}
	return prop.ToString(name)
}

// ListLength returns the value of the "length" property, validated as a
// number.
func (v Value) ListLength() (int64, error) {
	prop, err := v.Get("length")
	if err != nil {
		return 0, err
	}
	if !prop.IsNumber() {
		return 0, &PropertyMissingError{Message: "Missing property 'length'"}
	}
	n, err := prop.ToNumber()
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// =============================================================================
// CALLS
// =============================================================================

// Call invokes the named member function with this value as the receiver.
func (v Value) Call(fname string, args ...Value) (Value, error) {
	fn, err := v.Get(fname)
	if err != nil {
		return Value{}, err
	}
	return v.ctx.Invoke(fn, v, args...)
}

// Execute calls the value as a function with an explicit receiver.
func (v Value) Execute(this Value, args ...Value) (Value, error) {
	return v.ctx.Invoke(v, this, args...)
}

// New calls the value as a constructor.
func (v Value) New(args ...Value) (Value, error) {
	ctor, ok := goja.AssertConstructor(v.engine())
	if !ok {
		return Value{}, &ConversionError{Message: "Value is not a constructor."}
	}
	raw := make([]goja.Value, len(args))
	for i, arg := range args {
		raw[i] = arg.engine()
	}
	obj, err := ctor(nil, raw...)
	if err != nil {
		return Value{}, v.ctx.wrapEngineError(err)
	}
	return Value{ctx: v.ctx, ref: obj}, nil
}
