package gojabind

import (
	"github.com/dop251/goja"
)

// =============================================================================
// NATIVE CALLBACK SIGNATURES
// =============================================================================

// MethodFunc is a native method implementation. this is the receiver the
// script invoked the method on.
type MethodFunc func(ctx *Context, this Value, args []Value) (Value, error)

// ConstructorFunc builds the native payload for a new instance. instance is
// the script object under construction, already carrying the class
// prototype; the returned payload is attached to it as instance data.
type ConstructorFunc func(ctx *Context, instance Value, args []Value) (interface{}, error)

// GetterFunc and SetterFunc exchange exactly one value with the engine.
type GetterFunc func(ctx *Context, this Value) (Value, error)
type SetterFunc func(ctx *Context, this Value, value Value) error

// IndexedGetterFunc and IndexedSetterFunc handle element access on classes
// with array-like semantics. They only ever see non-negative indexes; the
// boundary classifies the raw property name first.
type IndexedGetterFunc func(ctx *Context, this Value, index int64) (Value, error)
type IndexedSetterFunc func(ctx *Context, this Value, index int64, value Value) error

// PropertyGetterFunc is a catch-all named-property hook. Returning the zero
// Value means the name is not handled and lookup falls through to ordinary
// property resolution.
type PropertyGetterFunc func(ctx *Context, this Value, name string) (Value, error)

// PropertySetterFunc is a catch-all named-property store hook. Returning
// false means the name is not handled and the assignment falls through.
type PropertySetterFunc func(ctx *Context, this Value, name string, value Value) (bool, error)

// PropertyNamesFunc enumerates the synthetic property names of an instance.
type PropertyNamesFunc func(ctx *Context, this Value) []string

// =============================================================================
// ARGUMENT VALIDATION
// =============================================================================

// ValidateArgumentCount checks an exact argument count. The check runs
// before the implementation body, so a failing call has no side effects.
func ValidateArgumentCount(actual, expected int, message ...string) error {
	if actual != expected {
		return &ArgumentError{Message: argumentMessage(message)}
	}
	return nil
}

// ValidateArgumentCountIsAtLeast checks a minimum argument count.
func ValidateArgumentCountIsAtLeast(actual, expected int, message ...string) error {
	if actual < expected {
		return &ArgumentError{Message: argumentMessage(message)}
	}
	return nil
}

// ValidateArgumentRange checks an inclusive argument count range.
func ValidateArgumentRange(actual, min, max int, message ...string) error {
	if actual < min || actual > max {
		return &ArgumentError{Message: argumentMessage(message)}
	}
	return nil
}

func argumentMessage(message []string) string {
	if len(message) > 0 && message[0] != "" {
		return message[0]
	}
	return "Invalid arguments"
}

// =============================================================================
// ADAPTER GENERATORS
// =============================================================================

// MethodAdapter wraps a native method behind the engine's calling
// convention. name becomes the function's diagnostic name; generated class
// members use the <ClassName><MethodName> form.
func (ctx *Context) MethodAdapter(name string, fn MethodFunc) Value {
	impl := func(call goja.FunctionCall) goja.Value {
		res, err := fn(ctx, Value{ctx: ctx, ref: call.This}, ctx.wrapArgs(call.Arguments))
		if err != nil {
			panic(ctx.errorValue(err))
		}
		return res.engine()
	}
	return ctx.nameAdapter(name, ctx.vm.ToValue(impl))
}

// GetterAdapter wraps a native property getter.
func (ctx *Context) GetterAdapter(name string, fn GetterFunc) Value {
	impl := func(call goja.FunctionCall) goja.Value {
		res, err := fn(ctx, Value{ctx: ctx, ref: call.This})
		if err != nil {
			panic(ctx.errorValue(err))
		}
		return res.engine()
	}
	return ctx.nameAdapter(name, ctx.vm.ToValue(impl))
}

// SetterAdapter wraps a native property setter.
func (ctx *Context) SetterAdapter(name string, fn SetterFunc) Value {
	impl := func(call goja.FunctionCall) goja.Value {
		err := fn(ctx, Value{ctx: ctx, ref: call.This}, Value{ctx: ctx, ref: call.Argument(0)})
		if err != nil {
			panic(ctx.errorValue(err))
		}
		return goja.Undefined()
	}
	return ctx.nameAdapter(name, ctx.vm.ToValue(impl))
}

// nameAdapter installs the diagnostic name on a generated function.
func (ctx *Context) nameAdapter(name string, fnVal goja.Value) Value {
	if name != "" {
		if obj, ok := fnVal.(*goja.Object); ok {
			_ = obj.DefineDataProperty("name", ctx.vm.ToValue(name),
				goja.FLAG_FALSE, goja.FLAG_TRUE, goja.FLAG_FALSE)
		}
	}
	return Value{ctx: ctx, ref: fnVal}
}

// wrapArgs borrows the engine's raw call arguments.
func (ctx *Context) wrapArgs(raw []goja.Value) []Value {
	args := make([]Value, len(raw))
	for i, r := range raw {
		args[i] = Value{ctx: ctx, ref: r}
	}
	return args
}

// =============================================================================
// NATIVE ERROR -> SCRIPT ERROR MAPPING
// =============================================================================

// errorValue maps a native error to the script error value delivered to the
// engine. A ScriptException re-surfaces its retained raw value unchanged;
// the taxonomy maps onto the engine's standard error classes.
func (ctx *Context) errorValue(err error) goja.Value {
	switch e := err.(type) {
	case *ScriptException:
		if e.value.ref != nil {
			return e.value.ref
		}
		return ctx.newEngineError("Error", e.Message)
	case *OutOfRangeError:
		return ctx.newEngineError("RangeError", e.Message)
	case *ArgumentError:
		return ctx.vm.NewTypeError(e.Message)
	case *ConversionError:
		return ctx.vm.NewTypeError(e.Message)
	default:
		return ctx.newEngineError("Error", err.Error())
	}
}
