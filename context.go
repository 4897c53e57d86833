package gojabind

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dop251/goja"
)

// Context wraps one script engine runtime together with the handle store
// for natively-owned instance data and the classes materialized into it.
// A Context is single-threaded: every entry into the engine runs
// synchronously to completion, so no locking is layered on top.
type Context struct {
	vm      *goja.Runtime
	handles *handleStore
	classes map[string]*boundClass
	slot    *goja.Symbol // private slot carrying the instance handle token
	timeout time.Duration
}

// Option configures a Context at creation time.
type Option func(*contextOptions)

type contextOptions struct {
	maxCallStackSize int
	timeout          time.Duration
	registry         *ClassRegistry
}

// WithMaxCallStackSize bounds the engine's call stack depth.
func WithMaxCallStackSize(n int) Option {
	return func(o *contextOptions) { o.maxCallStackSize = n }
}

// WithExecuteTimeout interrupts any single evaluation or invocation that
// runs longer than d.
func WithExecuteTimeout(d time.Duration) Option {
	return func(o *contextOptions) { o.timeout = d }
}

// WithClassRegistry materializes every class in the registry into the new
// context, in registration order.
func WithClassRegistry(registry *ClassRegistry) Option {
	return func(o *contextOptions) { o.registry = registry }
}

// NewContext creates a script context with a fresh engine runtime.
func NewContext(opts ...Option) (*Context, error) {
	options := contextOptions{}
	for _, fn := range opts {
		fn(&options)
	}

	ctx := &Context{
		vm:      goja.New(),
		handles: newHandleStore(),
		classes: make(map[string]*boundClass),
		slot:    goja.NewSymbol("gojabind.handle"),
		timeout: options.timeout,
	}
	if options.maxCallStackSize > 0 {
		ctx.vm.SetMaxCallStackSize(options.maxCallStackSize)
	}
	if options.registry != nil {
		for _, cls := range options.registry.Classes() {
			if _, err := ctx.RegisterClass(cls); err != nil {
				return nil, err
			}
		}
	}
	return ctx, nil
}

// Runtime returns the underlying engine runtime.
func (ctx *Context) Runtime() *goja.Runtime { return ctx.vm }

// Close releases every live native handle, running each class finalizer at
// most once. The engine itself is reclaimed by the garbage collector.
func (ctx *Context) Close() {
	ctx.handles.clear()
}

// HandleCount returns the number of live native handles.
func (ctx *Context) HandleCount() int { return ctx.handles.count() }

// =============================================================================
// VALUE FACTORIES
// =============================================================================

func (ctx *Context) Null() Value      { return Value{ctx: ctx, ref: goja.Null()} }
func (ctx *Context) Undefined() Value { return Value{ctx: ctx, ref: goja.Undefined()} }

func (ctx *Context) Bool(b bool) Value      { return Value{ctx: ctx, ref: ctx.vm.ToValue(b)} }
func (ctx *Context) Int32(n int32) Value    { return Value{ctx: ctx, ref: ctx.vm.ToValue(n)} }
func (ctx *Context) Int64(n int64) Value    { return Value{ctx: ctx, ref: ctx.vm.ToValue(n)} }
func (ctx *Context) Uint32(n uint32) Value  { return Value{ctx: ctx, ref: ctx.vm.ToValue(n)} }
func (ctx *Context) Float64(f float64) Value { return Value{ctx: ctx, ref: ctx.vm.ToValue(f)} }
func (ctx *Context) String(s string) Value  { return Value{ctx: ctx, ref: ctx.vm.ToValue(s)} }

// Object creates an empty object.
func (ctx *Context) Object() Value { return Value{ctx: ctx, ref: ctx.vm.NewObject()} }

// Array creates an array from the given elements.
func (ctx *Context) Array(elements ...Value) Value {
	items := make([]interface{}, len(elements))
	for i, e := range elements {
		items[i] = e.engine()
	}
	return Value{ctx: ctx, ref: ctx.vm.NewArray(items...)}
}

// ArrayBuffer creates an ArrayBuffer backed by a copy of data.
func (ctx *Context) ArrayBuffer(data []byte) Value {
	buf := make([]byte, len(data))
	copy(buf, data)
	return Value{ctx: ctx, ref: ctx.vm.ToValue(ctx.vm.NewArrayBuffer(buf))}
}

// Date creates a Date object for the given native time.
func (ctx *Context) Date(t time.Time) (Value, error) {
	ctorVal, err := ctx.Globals().Get("Date")
	if err != nil {
		return Value{}, err
	}
	return ctorVal.New(ctx.Float64(float64(t.UnixMilli())))
}

// Function wraps a native method behind the engine's calling convention.
func (ctx *Context) Function(fn MethodFunc) Value {
	return ctx.MethodAdapter("", fn)
}

// Globals returns the global object.
func (ctx *Context) Globals() Value {
	return Value{ctx: ctx, ref: ctx.vm.GlobalObject()}
}

// ParseJSON parses a JSON document into a script value.
func (ctx *Context) ParseJSON(s string) (Value, error) {
	jsonVal, err := ctx.Globals().Get("JSON")
	if err != nil {
		return Value{}, err
	}
	return jsonVal.Call("parse", ctx.String(s))
}

// NewError builds the script error value native err maps to, without
// raising it.
func (ctx *Context) NewError(err error) Value {
	return Value{ctx: ctx, ref: ctx.errorValue(err)}
}

// NewErrorString builds a plain script Error with the given message.
func (ctx *Context) NewErrorString(format string, args ...interface{}) Value {
	return Value{ctx: ctx, ref: ctx.newEngineError("Error", fmt.Sprintf(format, args...))}
}

// =============================================================================
// EVALUATION
// =============================================================================

// EvalOptions holds the per-evaluation settings.
type EvalOptions struct {
	filename string
}

// EvalOption configures a single evaluation.
type EvalOption func(*EvalOptions)

// WithFilename sets the script name used in stack traces and error
// positions.
func WithFilename(name string) EvalOption {
	return func(o *EvalOptions) { o.filename = name }
}

// Eval evaluates source code and returns its completion value. A script
// exception is reported as a ScriptException retaining the thrown value.
func (ctx *Context) Eval(code string, opts ...EvalOption) (Value, error) {
	options := EvalOptions{filename: "<eval>"}
	for _, fn := range opts {
		fn(&options)
	}
	stop := ctx.armInterrupt()
	defer stop()
	val, err := ctx.vm.RunScript(options.filename, code)
	if err != nil {
		return Value{}, ctx.wrapEngineError(err)
	}
	return Value{ctx: ctx, ref: val}, nil
}

// EvalFile evaluates the script file at path.
func (ctx *Context) EvalFile(path string, opts ...EvalOption) (Value, error) {
	code, err := os.ReadFile(path)
	if err != nil {
		return Value{}, err
	}
	return ctx.Eval(string(code), append([]EvalOption{WithFilename(path)}, opts...)...)
}

// Invoke calls fn with the given receiver and arguments. An exception
// raised by the script is reported as a ScriptException retaining the raw
// thrown value.
func (ctx *Context) Invoke(fn Value, this Value, args ...Value) (Value, error) {
	callable, ok := goja.AssertFunction(fn.engine())
	if !ok {
		return Value{}, &ConversionError{Message: "Value is not a function."}
	}
	raw := make([]goja.Value, len(args))
	for i, arg := range args {
		raw[i] = arg.engine()
	}
	stop := ctx.armInterrupt()
	defer stop()
	val, err := callable(this.engine(), raw...)
	if err != nil {
		return Value{}, ctx.wrapEngineError(err)
	}
	return Value{ctx: ctx, ref: val}, nil
}

// armInterrupt starts the watchdog for one engine entry when an execute
// timeout is configured.
func (ctx *Context) armInterrupt() func() {
	if ctx.timeout <= 0 {
		return func() {}
	}
	timer := time.AfterFunc(ctx.timeout, func() {
		ctx.vm.Interrupt("execution timeout")
	})
	return func() {
		timer.Stop()
		ctx.vm.ClearInterrupt()
	}
}

// =============================================================================
// EXCEPTION BRIDGING
// =============================================================================

// Throw raises err into the engine as the script error it maps to. It
// never returns and must only be called from inside a native callback.
func (ctx *Context) Throw(err error) {
	panic(ctx.errorValue(err))
}

// ThrowError raises a plain Error with a formatted message.
func (ctx *Context) ThrowError(format string, args ...interface{}) {
	panic(ctx.newEngineError("Error", fmt.Sprintf(format, args...)))
}

// ThrowTypeError raises a TypeError with a formatted message.
func (ctx *Context) ThrowTypeError(format string, args ...interface{}) {
	panic(ctx.vm.NewTypeError(fmt.Sprintf(format, args...)))
}

// ThrowRangeError raises a RangeError with a formatted message.
func (ctx *Context) ThrowRangeError(format string, args ...interface{}) {
	panic(ctx.newEngineError("RangeError", fmt.Sprintf(format, args...)))
}

// wrapEngineError converts an error returned from the engine into the
// boundary's error discipline.
func (ctx *Context) wrapEngineError(err error) error {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return ctx.newScriptException(ex.Value())
	}
	return err
}

func (ctx *Context) newScriptException(raw goja.Value) *ScriptException {
	return &ScriptException{
		Message: renderException(raw),
		value:   Value{ctx: ctx, ref: raw},
	}
}

func renderException(raw goja.Value) (s string) {
	if raw == nil {
		return "exception"
	}
	// Rendering can itself throw (a poisoned toString); fall back to a
	// generic message rather than letting the panic escape.
	defer func() {
		if recover() != nil {
			s = "exception"
		}
	}()
	return raw.String()
}

// tryCatch runs fn and converts an engine exception escaping it into a
// ScriptException. Panics that are not engine exceptions propagate.
func (ctx *Context) tryCatch(fn func()) (err error) {
	defer func() {
		if x := recover(); x != nil {
			if ex, ok := x.(*goja.Exception); ok {
				err = ctx.newScriptException(ex.Value())
				return
			}
			panic(x)
		}
	}()
	fn()
	return nil
}

// newEngineError constructs one of the engine's standard error classes.
func (ctx *Context) newEngineError(name, msg string) goja.Value {
	if ctor, ok := goja.AssertConstructor(ctx.vm.Get(name)); ok {
		if obj, err := ctor(nil, ctx.vm.ToValue(msg)); err == nil {
			return obj
		}
	}
	return ctx.vm.NewGoError(errors.New(msg))
}
