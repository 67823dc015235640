package task

import (
	"bytes"
	"encoding/json"
)

// FieldState is the state of a Field.
type FieldState uint8

const (
	FieldUnset FieldState = iota // absent from the request
	FieldNull                    // explicitly null
	FieldValue                   // set to Value
)

// Field is a tri-state optional: unset, null, or a value.
// The zero value is unset, so a struct field that is absent from a JSON
// document stays unset after decoding.
type Field[T any] struct {
	State FieldState
	Value T
}

// SetField returns a Field holding v.
func SetField[T any](v T) Field[T] {
	return Field[T]{State: FieldValue, Value: v}
}

// NullField returns an explicitly null Field.
func NullField[T any]() Field[T] {
	return Field[T]{State: FieldNull}
}

// IsSet reports whether the field was provided, null or not.
func (f Field[T]) IsSet() bool {
	return f.State != FieldUnset
}

// Ptr returns nil for unset and null fields.
func (f Field[T]) Ptr() *T {
	if f.State != FieldValue {
		return nil
	}
	v := f.Value
	return &v
}

// UnmarshalJSON is only invoked for keys present in the document,
// which is what separates null from absent.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.State = FieldNull
		f.Value = zero
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.State = FieldValue
	f.Value = v
	return nil
}
