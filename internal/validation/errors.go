package validation

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is wrapped by every hard validation failure so callers can test
// the whole class with errors.Is.
var ErrInvalid = errors.New("invalid input")

// RangeError reports an integer outside its allowed window.
type RangeError struct {
	Field string
	Value int
	Min   int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s must be in range %d..%d, got %d", e.Field, e.Min, e.Max, e.Value)
}

func (e *RangeError) Unwrap() error { return ErrInvalid }

// TypeError reports input of the wrong kind, e.g. a fractional minute.
type TypeError struct {
	Field string
	Raw   string
	Want  string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s must be %s, got %q", e.Field, e.Want, e.Raw)
}

func (e *TypeError) Unwrap() error { return ErrInvalid }

// ValueError reports a value that is not numeric or breaks a domain rule.
type ValueError struct {
	Field  string
	Raw    string
	Reason string
}

func (e *ValueError) Error() string {
	if e.Raw == "" {
		return fmt.Sprintf("%s %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %s, got %q", e.Field, e.Reason, e.Raw)
}

func (e *ValueError) Unwrap() error { return ErrInvalid }

// SpecOverrideWarning flags spec bounds that widen the factory envelope of
// the device model. It does not wrap ErrInvalid: the caller decides whether
// to block the edit or accept it with a visible flag.
type SpecOverrideWarning struct {
	Row        string
	Bounds     []string // "min", "max"
	FactoryMin *float64
	FactoryMax *float64
	Min        *float64
	Max        *float64
}

func (w *SpecOverrideWarning) Error() string {
	return fmt.Sprintf("spec override for %s widens the factory %s (factory %s..%s, requested %s..%s)",
		w.Row, strings.Join(w.Bounds, " and "),
		FormatBound(w.FactoryMin), FormatBound(w.FactoryMax),
		FormatBound(w.Min), FormatBound(w.Max))
}

// IsWarning reports whether err carries a SpecOverrideWarning.
func IsWarning(err error) bool {
	var w *SpecOverrideWarning
	return errors.As(err, &w)
}

// FormatBound renders an optional bound, "--" when absent.
func FormatBound(v *float64) string {
	if v == nil {
		return "--"
	}
	return fmt.Sprintf("%g", *v)
}
