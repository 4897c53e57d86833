package gojabind

import (
	"fmt"
	"strconv"
)

// ParseIndex converts a property name to a non-negative integer index using
// a strict full-string parse ("1.5", " 1" and "0x10" are not indexes). The
// classification is three-way: a name that does not parse reports ok=false
// with a nil error, so callers can fall through to ordinary named-property
// handling; a name that parses to a negative number reports an
// OutOfRangeError; anything else is a valid index.
func ParseIndex(name string) (int64, bool, error) {
	idx, err := strconv.ParseInt(name, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	if idx < 0 {
		return 0, false, &OutOfRangeError{Message: fmt.Sprintf("Index %s cannot be less than zero.", name)}
	}
	return idx, true, nil
}

// ValidatedPositiveIndex is the strict form of ParseIndex: a name that does
// not parse is a ConversionError instead of a benign miss.
func ValidatedPositiveIndex(name string) (int64, error) {
	idx, ok, err := ParseIndex(name)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &ConversionError{Message: fmt.Sprintf("Cannot convert string '%s'", name)}
	}
	return idx, nil
}
