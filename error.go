package gojabind

// =============================================================================
// ERROR TAXONOMY
// =============================================================================

// ArgumentError reports a call made with the wrong number of arguments or an
// argument outside the accepted range. Argument validation runs before any
// side effects, so a failing call leaves no partial state behind.
type ArgumentError struct {
	Message string
}

func (e *ArgumentError) Error() string { return e.Message }

// ConversionError reports a value whose dynamic kind does not match the
// native type requested from it.
type ConversionError struct {
	Message string
}

func (e *ConversionError) Error() string { return e.Message }

// OutOfRangeError reports an index outside the valid range of an indexed
// collection, negative indexes in particular.
type OutOfRangeError struct {
	Message string
}

func (e *OutOfRangeError) Error() string { return e.Message }

// PropertyMissingError reports a required property that is absent or
// undefined on the object it was requested from.
type PropertyMissingError struct {
	Message string
}

func (e *PropertyMissingError) Error() string { return e.Message }

// SchemaMismatchError reports an array whose length does not match the
// property count of the object schema it is being marshalled against.
type SchemaMismatchError struct {
	Message string
}

func (e *SchemaMismatchError) Error() string { return e.Message }

// ScriptException wraps an exception raised by the script engine so native
// code can handle failures from both sides of the boundary with a single
// error discipline. The thrown value is retained as-is: when the error
// crosses back into the engine it is re-surfaced unchanged rather than
// re-rendered, preserving identity for script-side handlers.
type ScriptException struct {
	Message string
	value   Value
}

func (e *ScriptException) Error() string { return e.Message }

// Exception returns the raw script value that was thrown.
func (e *ScriptException) Exception() Value { return e.value }
