package gojabind

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/quarrydb/gojabind/schema"
)

// Marshaler is the interface implemented by types that can marshal
// themselves into a script value.
type Marshaler interface {
	MarshalJS(ctx *Context) (Value, error)
}

// Unmarshaler is the interface implemented by types that can unmarshal a
// script value into themselves.
type Unmarshaler interface {
	UnmarshalJS(ctx *Context, val Value) error
}

// =============================================================================
// GO -> SCRIPT
// =============================================================================

// Marshal converts a Go value to a script value.
//
// Types are mapped as follows: booleans, strings and numeric kinds map to
// their primitive counterparts (uint64 goes through float64, the engine has
// no big integer form), []byte maps to ArrayBuffer, time.Time to a Date
// object, slices and arrays to arrays, maps with string keys and structs to
// objects. Struct fields honor `js` tags, falling back to `json` tags, with
// the usual rename, "-" and "omitempty" forms. A type implementing
// Marshaler takes over its own conversion.
func (ctx *Context) Marshal(v interface{}) (Value, error) {
	if v == nil {
		return ctx.Null(), nil
	}
	return ctx.marshalValue(reflect.ValueOf(v))
}

func (ctx *Context) marshalValue(rv reflect.Value) (Value, error) {
	if !rv.IsValid() {
		return ctx.Null(), nil
	}

	if rv.CanInterface() {
		switch iv := rv.Interface().(type) {
		case Marshaler:
			return iv.MarshalJS(ctx)
		case Value:
			return iv, nil
		case time.Time:
			return ctx.Date(iv)
		}
	}

	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return ctx.Null(), nil
		}
		return ctx.marshalValue(rv.Elem())
	case reflect.Bool:
		return ctx.Bool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ctx.Int64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return ctx.Float64(float64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return ctx.Float64(rv.Float()), nil
	case reflect.String:
		return ctx.String(rv.String()), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return ctx.ArrayBuffer(rv.Bytes()), nil
		}
		return ctx.marshalSequence(rv)
	case reflect.Array:
		return ctx.marshalSequence(rv)
	case reflect.Map:
		return ctx.marshalMap(rv)
	case reflect.Struct:
		return ctx.marshalStruct(rv)
	default:
		return Value{}, &ConversionError{Message: fmt.Sprintf("unsupported type for marshal: %s", rv.Type())}
	}
}

func (ctx *Context) marshalSequence(rv reflect.Value) (Value, error) {
	elements := make([]Value, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem, err := ctx.marshalValue(rv.Index(i))
		if err != nil {
			return Value{}, err
		}
		elements[i] = elem
	}
	return ctx.Array(elements...), nil
}

func (ctx *Context) marshalMap(rv reflect.Value) (Value, error) {
	if rv.Type().Key().Kind() != reflect.String {
		return Value{}, &ConversionError{Message: fmt.Sprintf("unsupported map key type for marshal: %s", rv.Type().Key())}
	}
	obj := ctx.Object()
	iter := rv.MapRange()
	for iter.Next() {
		elem, err := ctx.marshalValue(iter.Value())
		if err != nil {
			return Value{}, err
		}
		if err := obj.Set(iter.Key().String(), elem); err != nil {
			return Value{}, err
		}
	}
	return obj, nil
}

func (ctx *Context) marshalStruct(rv reflect.Value) (Value, error) {
	obj := ctx.Object()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name, omitempty, skip := fieldName(field)
		if skip {
			continue
		}
		fv := rv.Field(i)
		if omitempty && fv.IsZero() {
			continue
		}
		elem, err := ctx.marshalValue(fv)
		if err != nil {
			return Value{}, err
		}
		if err := obj.Set(name, elem); err != nil {
			return Value{}, err
		}
	}
	return obj, nil
}

// fieldName resolves the script-visible name of a struct field from its
// `js` tag, then its `json` tag, then the field name itself.
func fieldName(field reflect.StructField) (name string, omitempty, skip bool) {
	tag := field.Tag.Get("js")
	if tag == "" {
		tag = field.Tag.Get("json")
	}
	if tag == "-" {
		return "", false, true
	}
	name = field.Name
	if tag != "" {
		parts := strings.Split(tag, ",")
		if parts[0] != "" {
			name = parts[0]
		}
		for _, opt := range parts[1:] {
			if opt == "omitempty" {
				omitempty = true
			}
		}
	}
	return name, omitempty, false
}

// =============================================================================
// SCRIPT -> GO
// =============================================================================

// Unmarshal converts a script value into the Go value pointed to by dest,
// applying the inverse of the Marshal mapping. dest must be a non-nil
// pointer.
func (ctx *Context) Unmarshal(val Value, dest interface{}) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return &ConversionError{Message: "unmarshal destination must be a non-nil pointer"}
	}
	if u, ok := dest.(Unmarshaler); ok {
		return u.UnmarshalJS(ctx, val)
	}
	return ctx.unmarshalValue(val, rv.Elem())
}

func (ctx *Context) unmarshalValue(val Value, rv reflect.Value) error {
	if rv.CanAddr() {
		if u, ok := rv.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalJS(ctx, val)
		}
	}

	if val.IsNull() || val.IsUndefined() {
		rv.Set(reflect.Zero(rv.Type()))
		return nil
	}

	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			rv.Set(reflect.New(rv.Type().Elem()))
		}
		return ctx.unmarshalValue(val, rv.Elem())
	case reflect.Interface:
		if rv.NumMethod() == 0 {
			native, err := ctx.exportValue(val)
			if err != nil {
				return err
			}
			if native == nil {
				rv.Set(reflect.Zero(rv.Type()))
			} else {
				rv.Set(reflect.ValueOf(native))
			}
			return nil
		}
		return &ConversionError{Message: fmt.Sprintf("unsupported type for unmarshal: %s", rv.Type())}
	case reflect.Bool:
		b, err := val.ToBoolean()
		if err != nil {
			return err
		}
		rv.SetBool(b)
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		f, err := val.ToNumber()
		if err != nil {
			return err
		}
		rv.SetInt(int64(f))
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		f, err := val.ToNumber()
		if err != nil {
			return err
		}
		if f < 0 {
			return &ConversionError{Message: fmt.Sprintf("Cannot convert negative number %d to %s.", int64(f), rv.Type())}
		}
		rv.SetUint(uint64(f))
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := val.ToNumber()
		if err != nil {
			return err
		}
		rv.SetFloat(f)
		return nil
	case reflect.String:
		s, err := val.ToString()
		if err != nil {
			return err
		}
		rv.SetString(s)
		return nil
	case reflect.Slice:
		return ctx.unmarshalSlice(val, rv)
	case reflect.Map:
		return ctx.unmarshalMap(val, rv)
	case reflect.Struct:
		if rv.Type() == reflect.TypeOf(time.Time{}) {
			t, err := val.ToDate()
			if err != nil {
				return err
			}
			rv.Set(reflect.ValueOf(t))
			return nil
		}
		return ctx.unmarshalStruct(val, rv)
	default:
		return &ConversionError{Message: fmt.Sprintf("unsupported type for unmarshal: %s", rv.Type())}
	}
}

func (ctx *Context) unmarshalSlice(val Value, rv reflect.Value) error {
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		if !val.IsArrayBuffer() {
			return &ConversionError{Message: "Value is not an ArrayBuffer."}
		}
		data, err := exportArrayBuffer(val)
		if err != nil {
			return err
		}
		rv.SetBytes(append([]byte(nil), data...))
		return nil
	}
	length, err := val.ListLength()
	if err != nil {
		return err
	}
	slice := reflect.MakeSlice(rv.Type(), int(length), int(length))
	for i := int64(0); i < length; i++ {
		elem, err := val.GetIdx(i)
		if err != nil {
			return err
		}
		if err := ctx.unmarshalValue(elem, slice.Index(int(i))); err != nil {
			return err
		}
	}
	rv.Set(slice)
	return nil
}

func (ctx *Context) unmarshalMap(val Value, rv reflect.Value) error {
	if rv.Type().Key().Kind() != reflect.String {
		return &ConversionError{Message: fmt.Sprintf("unsupported map key type for unmarshal: %s", rv.Type().Key())}
	}
	obj, err := val.ToObject()
	if err != nil {
		return err
	}
	names, err := obj.PropertyNames()
	if err != nil {
		return err
	}
	m := reflect.MakeMapWithSize(rv.Type(), len(names))
	for _, name := range names {
		prop, err := obj.Get(name)
		if err != nil {
			return err
		}
		elem := reflect.New(rv.Type().Elem()).Elem()
		if err := ctx.unmarshalValue(prop, elem); err != nil {
			return err
		}
		m.SetMapIndex(reflect.ValueOf(name), elem)
	}
	rv.Set(m)
	return nil
}

func (ctx *Context) unmarshalStruct(val Value, rv reflect.Value) error {
	obj, err := val.ToObject()
	if err != nil {
		return err
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, skip := fieldName(field)
		if skip {
			continue
		}
		prop, err := obj.Get(name)
		if err != nil {
			return err
		}
		if prop.IsUndefined() {
			continue
		}
		if err := ctx.unmarshalValue(prop, rv.Field(i)); err != nil {
			return err
		}
	}
	return nil
}

// exportValue reduces a script value to a plain Go value for interface{}
// destinations.
func (ctx *Context) exportValue(val Value) (interface{}, error) {
	switch {
	case val.IsNull() || val.IsUndefined():
		return nil, nil
	case val.IsBool():
		return val.Raw().ToBoolean(), nil
	case val.IsString():
		return val.Raw().String(), nil
	case val.IsNumber():
		return val.Raw().ToFloat(), nil
	case val.IsDate():
		return val.ToDate()
	case val.IsArrayBuffer():
		return exportArrayBuffer(val)
	case val.IsArray():
		length, err := val.ListLength()
		if err != nil {
			return nil, err
		}
		out := make([]interface{}, length)
		for i := int64(0); i < length; i++ {
			elem, err := val.GetIdx(i)
			if err != nil {
				return nil, err
			}
			if out[i], err = ctx.exportValue(elem); err != nil {
				return nil, err
			}
		}
		return out, nil
	case val.IsFunction():
		return nil, &ConversionError{Message: "unsupported type for unmarshal: function"}
	case val.IsObject():
		names, err := val.PropertyNames()
		if err != nil {
			return nil, err
		}
		out := make(map[string]interface{}, len(names))
		for _, name := range names {
			prop, err := val.Get(name)
			if err != nil {
				return nil, err
			}
			if out[name], err = ctx.exportValue(prop); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return val.Raw().Export(), nil
	}
}

func exportArrayBuffer(val Value) ([]byte, error) {
	type bytesProvider interface {
		Bytes() []byte
	}
	if buf, ok := val.Raw().Export().(bytesProvider); ok {
		return buf.Bytes(), nil
	}
	return nil, &ConversionError{Message: "Value is not an ArrayBuffer."}
}

// =============================================================================
// SCHEMA-DRIVEN CONVERSION
// =============================================================================

// DictForPropertyArray converts a positional value array into a dictionary
// keyed by the schema's property names, pairing elements with properties in
// declaration order.
func DictForPropertyArray(ctx *Context, objectSchema *schema.ObjectSchema, array Value) (Value, error) {
	length, err := array.ListLength()
	if err != nil {
		return Value{}, err
	}
	if length != int64(len(objectSchema.Properties)) {
		return Value{}, &SchemaMismatchError{Message: "Array must contain values for all object properties"}
	}
	dict := ctx.Object()
	for i, prop := range objectSchema.Properties {
		elem, err := array.GetIdx(int64(i))
		if err != nil {
			return Value{}, err
		}
		if err := dict.Set(prop.Name, elem); err != nil {
			return Value{}, err
		}
	}
	return dict, nil
}
