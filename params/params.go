package params

import (
	"errors"
	"fmt"
)

// ErrInvalidParameter is matched by every validation failure.
var ErrInvalidParameter = errors.New("invalid parameter")

// Error names the parameter that failed validation and the range it must fall in.
type Error struct {
	Name  string
	Value any
	Range string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: must be %s", e.Name, e.Value, e.Range)
}

func (e *Error) Unwrap() error {
	return ErrInvalidParameter
}

// AtLeast rejects v < min.
func AtLeast(name string, v, min int) error {
	if v < min {
		return &Error{Name: name, Value: v, Range: fmt.Sprintf(">= %d", min)}
	}
	return nil
}

// Between rejects v outside [lo, hi].
func Between(name string, v, lo, hi int) error {
	if v < lo || v > hi {
		return &Error{Name: name, Value: v, Range: fmt.Sprintf("in [%d, %d]", lo, hi)}
	}
	return nil
}

// Unit rejects v outside [0, 1]. NaN is rejected as well.
func Unit(name string, v float64) error {
	if !(v >= 0 && v <= 1) {
		return &Error{Name: name, Value: v, Range: "in [0, 1]"}
	}
	return nil
}

// NonNegative rejects v < 0 and NaN.
func NonNegative(name string, v float64) error {
	if !(v >= 0) {
		return &Error{Name: name, Value: v, Range: ">= 0"}
	}
	return nil
}

// Positive rejects v <= 0 and NaN.
func Positive(name string, v float64) error {
	if !(v > 0) {
		return &Error{Name: name, Value: v, Range: "> 0"}
	}
	return nil
}

// First returns the first non-nil error, so callers can list checks in order.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
