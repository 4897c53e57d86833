// Package gojabind is a binding boundary between native Go code and an
// embedded ECMAScript engine. It layers validated, error-returning
// conversions, wrapper classes with natively-owned instance data, and a
// uniform calling convention for native callbacks on top of the engine's
// raw value surface.
//
// The three core ideas:
//
//   - Validated conversion. Every ToX accessor checks the dynamic kind of
//     the value before converting and reports a typed error instead of
//     silently coercing. Exceptions thrown by the script are carried
//     across as ScriptException values retaining the raw thrown value.
//
//   - Wrapper classes. A ClassBuilder describes a script-visible class
//     whose instances carry a native payload in a private slot. Adapters
//     generated at registration time translate between the engine's
//     calling convention and plain Go functions; the payload is released
//     through a class finalizer exactly once.
//
//   - Indexed access. Classes with array-like semantics classify raw
//     property names three ways: names that aren't integers fall through
//     to named lookup, negative indexes raise a range error, and valid
//     indexes dispatch to the indexed accessors.
//
// A Context is single-threaded, matching the engine underneath. Use one
// Context per goroutine, or serialize access externally.
package gojabind
