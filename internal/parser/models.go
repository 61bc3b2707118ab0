package parser

import (
	"fmt"
	"strings"

	"github.com/user/testpad_go/internal/device"
)

// Column names one logical CSV field: the canonical header written on export
// and the aliases accepted on import.
type Column struct {
	Canonical string
	Aliases   []string
}

// accepts reports whether a normalized header names this column.
func (c Column) accepts(normalized string) bool {
	if normalized == device.NormalizeHeader(c.Canonical) {
		return true
	}
	for _, a := range c.Aliases {
		if normalized == device.NormalizeHeader(a) {
			return true
		}
	}
	return false
}

func (c Column) expected() []string {
	out := []string{c.Canonical}
	for _, a := range c.Aliases {
		if !strings.EqualFold(a, c.Canonical) {
			out = append(out, a)
		}
	}
	return out
}

// Schema is the column vocabulary of a device's time-series CSV.
type Schema struct {
	Index   Column
	Reading Column
	Ambient Column
}

// SchemaFor builds the CSV schema of a device model.
func SchemaFor(spec *device.Spec) Schema {
	return Schema{
		Index:   Column{Canonical: spec.Index.Column, Aliases: spec.Index.Aliases},
		Reading: Column{Canonical: spec.Reading.Column, Aliases: spec.Reading.Aliases},
		Ambient: Column{Canonical: spec.Ambient.Column, Aliases: spec.Ambient.Aliases},
	}
}

// Record is one data row. Values are kept as parsed numbers so the model can
// apply its own validation; Line is the 1-based file line for error reports.
type Record struct {
	Line    int
	Index   float64
	Reading float64
}

// ParsedSeries is the result of reading a time-series CSV.
type ParsedSeries struct {
	Records []Record
	// HasAmbientColumn is false when the file carries no ambient column at all,
	// in which case Ambient says nothing about the recorded ambient value.
	HasAmbientColumn bool
	Ambient          *float64
	Headers          []string
	Ignored          []string
}

// Row is one (index, value) pair to be exported.
type Row struct {
	Index int
	Value float64
}

// FormatError reports a structurally unusable file: no header row, a
// missing required column, or malformed CSV quoting.
type FormatError struct {
	Reason   string
	Expected []string
	Err      error
}

func (e *FormatError) Error() string {
	msg := "CSV format error: " + e.Reason
	if len(e.Expected) > 0 {
		msg += fmt.Sprintf("; expected one of: %s", strings.Join(e.Expected, ", "))
	}
	if e.Err != nil {
		msg += fmt.Sprintf(" (%v)", e.Err)
	}
	return msg
}

func (e *FormatError) Unwrap() error { return e.Err }

// ParseError addresses a bad cell by line and column.
type ParseError struct {
	Line   int
	Column string
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	if e.Raw == "" {
		return fmt.Sprintf("line %d, column %q: %s", e.Line, e.Column, e.Reason)
	}
	return fmt.Sprintf("line %d, column %q: %s: %q", e.Line, e.Column, e.Reason, e.Raw)
}
