// Package convert turns untyped wire values into statically requested Go types.
//
// Values delivered by a proxy are whatever the wire codec produced: strings,
// bools, json.Number or float64 numbers, []any, map[string]any and so on.
// To and At reshape such a value into T:
//
//   - an absent value (nil, or an index past the end of the arguments)
//     yields the zero value of T without error
//   - a value whose dynamic type already is T (or implements interface T) is
//     returned unchanged; for T = any this is a plain passthrough
//   - anything else is encoded with the Codec and decoded into T, giving
//     structural conversion: number to number, string to string, objects to
//     structs or maps by field name, arrays to slices, recursively
//
// A value that cannot be reshaped yields a *ConversionError.
//
// Usage:
//
//	// Default JSON structural conversion
//	name, err := convert.At[string](nil, args, 0)
//
//	// MessagePack structural conversion
//	pos, err := convert.At[Position](convert.MsgPack{}, args, 1)
package convert

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrConversion is wrapped by every *ConversionError.
var ErrConversion = errors.New("conversion failed")

// ConversionError reports a value that could not be converted to the
// requested type.
type ConversionError struct {
	// Index is the argument position, or -1 for a standalone value.
	Index  int
	Value  any
	Target reflect.Type
	Err    error
}

func (e *ConversionError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("argument %d: cannot convert %T to %v: %v", e.Index, e.Value, e.Target, e.Err)
	}
	return fmt.Sprintf("cannot convert %T to %v: %v", e.Value, e.Target, e.Err)
}

func (e *ConversionError) Unwrap() []error {
	return []error{ErrConversion, e.Err}
}

// IsConversionError checks if an error is a conversion failure.
func IsConversionError(err error) bool {
	var convErr *ConversionError
	return errors.As(err, &convErr)
}

// To converts value to T using c. A nil c uses Default().
func To[T any](c Codec, value any) (T, error) {
	return convert[T](c, value, -1)
}

// At converts args[index] to T using c. A missing index yields the zero
// value of T. A nil c uses Default().
func At[T any](c Codec, args []any, index int) (T, error) {
	if index < 0 || index >= len(args) {
		var zero T
		return zero, nil
	}
	return convert[T](c, args[index], index)
}

func convert[T any](c Codec, value any, index int) (T, error) {
	var out T
	if value == nil {
		return out, nil
	}
	if v, ok := value.(T); ok {
		return v, nil
	}

	if c == nil {
		c = Default()
	}
	data, err := c.Encode(value)
	if err != nil {
		return out, newError[T](value, index, err)
	}
	if err := c.Decode(data, &out); err != nil {
		var zero T
		return zero, newError[T](value, index, err)
	}
	return out, nil
}

func newError[T any](value any, index int, err error) *ConversionError {
	return &ConversionError{
		Index:  index,
		Value:  value,
		Target: reflect.TypeFor[T](),
		Err:    err,
	}
}
