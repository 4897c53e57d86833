package gojabind

import "fmt"

// Array is a validated view over a script array value. Every accessor
// bounds-checks before touching the engine.
type Array struct {
	value Value
}

// NewArray wraps value as an array view, validating that it actually is
// one.
func NewArray(value Value) (Array, error) {
	if !value.IsArray() {
		return Array{}, &ConversionError{Message: "Value is not an array."}
	}
	return Array{value: value}, nil
}

// ToValue returns the underlying array value.
func (a Array) ToValue() Value { return a.value }

// Len returns the array length.
func (a Array) Len() (int64, error) {
	return a.value.ListLength()
}

// Get returns the element at index.
func (a Array) Get(index int64) (Value, error) {
	if err := a.checkIndex(index); err != nil {
		return Value{}, err
	}
	return a.value.GetIdx(index)
}

// Set assigns the element at index. The index must already be within
// bounds; growing the array goes through Push.
func (a Array) Set(index int64, value Value) error {
	if err := a.checkIndex(index); err != nil {
		return err
	}
	return a.value.SetIdx(index, value)
}

// Has reports whether index is within bounds and holds a defined element.
func (a Array) Has(index int64) bool {
	elem, err := a.Get(index)
	return err == nil && !elem.IsUndefined()
}

// Push appends elements and returns the new length.
func (a Array) Push(elements ...Value) (int64, error) {
	res, err := a.value.Call("push", elements...)
	if err != nil {
		return 0, err
	}
	n, err := res.ToNumber()
	if err != nil {
		return 0, err
	}
	return int64(n), nil
}

// Pop removes and returns the last element.
func (a Array) Pop() (Value, error) {
	return a.value.Call("pop")
}

// Delete removes the element at index, shifting the remainder down.
func (a Array) Delete(index int64) error {
	if err := a.checkIndex(index); err != nil {
		return err
	}
	_, err := a.value.Call("splice", a.value.ctx.Int64(index), a.value.ctx.Int64(1))
	return err
}

func (a Array) checkIndex(index int64) error {
	if index < 0 {
		return &OutOfRangeError{Message: fmt.Sprintf("Index %d cannot be less than zero.", index)}
	}
	length, err := a.Len()
	if err != nil {
		return err
	}
	if index >= length {
		return &OutOfRangeError{Message: fmt.Sprintf("Index %d is out of range (length %d).", index, length)}
	}
	return nil
}
