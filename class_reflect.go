package gojabind

import (
	"fmt"
	"reflect"
)

// ClassFinalizer is implemented by bound Go types that hold resources. The
// generated class finalizer calls Finalize when the instance handle is
// released.
type ClassFinalizer interface {
	Finalize()
}

// ReflectOption configures reflection-driven class binding.
type ReflectOption func(*reflectOptions)

type reflectOptions struct {
	name           string
	ignoredFields  map[string]bool
	ignoredMethods map[string]bool
}

// WithReflectName overrides the script-visible class name, which defaults
// to the Go type name.
func WithReflectName(name string) ReflectOption {
	return func(o *reflectOptions) { o.name = name }
}

// WithIgnoredFields excludes struct fields from the generated accessors.
func WithIgnoredFields(names ...string) ReflectOption {
	return func(o *reflectOptions) {
		for _, n := range names {
			o.ignoredFields[n] = true
		}
	}
}

// WithIgnoredMethods excludes methods from the generated bindings.
func WithIgnoredMethods(names ...string) ReflectOption {
	return func(o *reflectOptions) {
		for _, n := range names {
			o.ignoredMethods[n] = true
		}
	}
}

// BindClass derives a wrapper class from a Go struct type, registers it in
// ctx and returns its constructor. template carries only the type, its
// field values are ignored:
//
//	ctor, cls, err := ctx.BindClass(&Point{})
func (ctx *Context) BindClass(template interface{}, opts ...ReflectOption) (Value, *Class, error) {
	builder, err := BindClassBuilder(template, opts...)
	if err != nil {
		return Value{}, nil, err
	}
	cls, err := builder.Build()
	if err != nil {
		return Value{}, nil, err
	}
	ctor, err := ctx.RegisterClass(cls)
	if err != nil {
		return Value{}, nil, err
	}
	return ctor, cls, nil
}

// BindClassBuilder derives a ClassBuilder from a Go struct type without
// building or registering it, so callers can add hand-written members on
// top of the generated ones.
func BindClassBuilder(template interface{}, opts ...ReflectOption) (*ClassBuilder, error) {
	options := reflectOptions{
		ignoredFields:  make(map[string]bool),
		ignoredMethods: make(map[string]bool),
	}
	for _, fn := range opts {
		fn(&options)
	}

	rt := reflect.TypeOf(template)
	ptrType := rt
	if ptrType.Kind() != reflect.Ptr {
		ptrType = reflect.PtrTo(rt)
	}
	structType := ptrType.Elem()
	if structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("bind class: %s is not a struct type", structType)
	}

	name := options.name
	if name == "" {
		name = structType.Name()
	}
	builder := NewClassBuilder(name).
		Constructor(reflectConstructor(structType))

	if ptrType.Implements(reflect.TypeOf((*ClassFinalizer)(nil)).Elem()) {
		builder.Finalizer(func(payload interface{}) {
			if f, ok := payload.(ClassFinalizer); ok {
				f.Finalize()
			}
		})
	}

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if !field.IsExported() || options.ignoredFields[field.Name] {
			continue
		}
		propName, _, skip := fieldName(field)
		if skip {
			continue
		}
		builder.Accessor(propName, reflectFieldGetter(i), reflectFieldSetter(i))
	}

	for i := 0; i < ptrType.NumMethod(); i++ {
		method := ptrType.Method(i)
		if !method.IsExported() || options.ignoredMethods[method.Name] || isSpecialMethod(method.Name) {
			continue
		}
		builder.Method(scriptMethodName(method.Name), reflectMethod(method))
	}
	return builder, nil
}

// isSpecialMethod filters methods the binding layer itself consumes.
func isSpecialMethod(name string) bool {
	switch name {
	case "Finalize", "MarshalJS", "UnmarshalJS":
		return true
	}
	return false
}

// scriptMethodName lowers the first rune, mapping Go method names onto the
// usual script casing.
func scriptMethodName(name string) string {
	if name == "" {
		return name
	}
	return string(name[0]|0x20) + name[1:]
}

// reflectConstructor builds instances of structType. A single object
// argument is unmarshalled field-wise; positional arguments fill exported
// fields in declaration order.
func reflectConstructor(structType reflect.Type) ConstructorFunc {
	return func(ctx *Context, instance Value, args []Value) (interface{}, error) {
		payload := reflect.New(structType)

		if len(args) == 1 && args[0].IsObject() && !args[0].IsArray() && !args[0].IsFunction() {
			if err := ctx.unmarshalStruct(args[0], payload.Elem()); err != nil {
				return nil, err
			}
			return payload.Interface(), nil
		}

		argIdx := 0
		for i := 0; i < structType.NumField() && argIdx < len(args); i++ {
			field := structType.Field(i)
			if !field.IsExported() {
				continue
			}
			if _, _, skip := fieldName(field); skip {
				continue
			}
			if err := ctx.unmarshalValue(args[argIdx], payload.Elem().Field(i)); err != nil {
				return nil, err
			}
			argIdx++
		}
		if argIdx < len(args) {
			return nil, &ArgumentError{Message: "Invalid arguments"}
		}
		return payload.Interface(), nil
	}
}

func reflectFieldGetter(fieldIdx int) GetterFunc {
	return func(ctx *Context, this Value) (Value, error) {
		payload, err := reflectPayload(ctx, this)
		if err != nil {
			return Value{}, err
		}
		return ctx.marshalValue(payload.Field(fieldIdx))
	}
}

func reflectFieldSetter(fieldIdx int) SetterFunc {
	return func(ctx *Context, this Value, value Value) error {
		payload, err := reflectPayload(ctx, this)
		if err != nil {
			return err
		}
		return ctx.unmarshalValue(value, payload.Field(fieldIdx))
	}
}

func reflectPayload(ctx *Context, this Value) (reflect.Value, error) {
	payload, err := ctx.InstancePayload(this)
	if err != nil {
		return reflect.Value{}, err
	}
	rv := reflect.ValueOf(payload)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return reflect.Value{}, &ConversionError{Message: "instance data is not a struct pointer"}
	}
	return rv.Elem(), nil
}

// reflectMethod adapts a Go method to the boundary calling convention. A
// method already matching MethodFunc minus the receiver is bound directly;
// otherwise arguments are unmarshalled positionally and the results
// marshalled back, with a trailing error return passed through.
func reflectMethod(method reflect.Method) MethodFunc {
	mt := method.Func.Type()

	if isNativeMethodShape(mt) {
		return func(ctx *Context, this Value, args []Value) (Value, error) {
			payload, err := ctx.InstancePayload(this)
			if err != nil {
				return Value{}, err
			}
			out := method.Func.Call([]reflect.Value{
				reflect.ValueOf(payload),
				reflect.ValueOf(ctx),
				reflect.ValueOf(this),
				reflect.ValueOf(args),
			})
			res := out[0].Interface().(Value)
			if errVal := out[1].Interface(); errVal != nil {
				return Value{}, errVal.(error)
			}
			return res, nil
		}
	}

	numIn := mt.NumIn() - 1 // receiver excluded
	return func(ctx *Context, this Value, args []Value) (Value, error) {
		if err := ValidateArgumentCount(len(args), numIn); err != nil {
			return Value{}, err
		}
		payload, err := ctx.InstancePayload(this)
		if err != nil {
			return Value{}, err
		}
		in := make([]reflect.Value, 0, mt.NumIn())
		in = append(in, reflect.ValueOf(payload))
		for i := 0; i < numIn; i++ {
			arg := reflect.New(mt.In(i + 1)).Elem()
			if err := ctx.unmarshalValue(args[i], arg); err != nil {
				return Value{}, err
			}
			in = append(in, arg)
		}
		out := method.Func.Call(in)
		return marshalMethodResults(ctx, mt, out)
	}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// isNativeMethodShape reports whether the method (including receiver)
// already has the MethodFunc shape.
func isNativeMethodShape(mt reflect.Type) bool {
	return mt.NumIn() == 4 &&
		mt.In(1) == reflect.TypeOf((*Context)(nil)) &&
		mt.In(2) == reflect.TypeOf(Value{}) &&
		mt.In(3) == reflect.TypeOf([]Value(nil)) &&
		mt.NumOut() == 2 &&
		mt.Out(0) == reflect.TypeOf(Value{}) &&
		mt.Out(1) == errorType
}

func marshalMethodResults(ctx *Context, mt reflect.Type, out []reflect.Value) (Value, error) {
	switch mt.NumOut() {
	case 0:
		return ctx.Undefined(), nil
	case 1:
		if mt.Out(0) == errorType {
			if errVal := out[0].Interface(); errVal != nil {
				return Value{}, errVal.(error)
			}
			return ctx.Undefined(), nil
		}
		return ctx.marshalValue(out[0])
	case 2:
		if mt.Out(1) != errorType {
			return Value{}, &ConversionError{Message: fmt.Sprintf("unsupported method result shape: %s", mt)}
		}
		if errVal := out[1].Interface(); errVal != nil {
			return Value{}, errVal.(error)
		}
		return ctx.marshalValue(out[0])
	default:
		return Value{}, &ConversionError{Message: fmt.Sprintf("unsupported method result shape: %s", mt)}
	}
}
