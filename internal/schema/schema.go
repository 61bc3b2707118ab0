// Package schema defines the versioned persisted-state record and the chain
// of migrations that upgrades older records to the current version.
package schema

import (
	"encoding/json"
	"fmt"
	"math"
)

// CurrentVersion is the schema version written by this build.
const CurrentVersion = 2

// VersionKey is the top-level key carrying the schema version.
const VersionKey = "schema_version"

// Record is the JSON-shaped persisted form of a measurement session.
type Record map[string]any

// SchemaVersionError reports a missing, malformed or unsupported version.
type SchemaVersionError struct {
	Found     any
	Supported int
	Reason    string
}

func (e *SchemaVersionError) Error() string {
	return fmt.Sprintf("unsupported schema version %v (supported 0..%d): %s", e.Found, e.Supported, e.Reason)
}

// FieldError reports a persisted field that cannot be interpreted.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("persisted state field %q: %s", e.Field, e.Reason)
}

// Migration upgrades a record by exactly one version. It must not modify
// its input.
type Migration func(Record) (Record, error)

// migrations[v] upgrades version v to v+1.
var migrations = map[int]Migration{
	0: migrateV0ToV1,
	1: migrateV1ToV2,
}

// Version extracts the schema version of rec.
func Version(rec Record) (int, error) {
	raw, ok := rec[VersionKey]
	if !ok {
		return 0, &SchemaVersionError{Found: nil, Supported: CurrentVersion, Reason: "missing " + VersionKey}
	}
	f, ok := ToFloat(raw)
	if !ok || f != math.Trunc(f) {
		return 0, &SchemaVersionError{Found: raw, Supported: CurrentVersion, Reason: "version must be an integer"}
	}
	v := int(f)
	if v < 0 || v > CurrentVersion {
		return 0, &SchemaVersionError{Found: raw, Supported: CurrentVersion, Reason: "unknown version"}
	}
	return v, nil
}

// Migrate validates the version first, then applies the migration chain in
// version order. The result is always a fresh record at CurrentVersion.
// Records without a device field are tagged with device.
func Migrate(rec Record, device string) (Record, error) {
	v, err := Version(rec)
	if err != nil {
		return nil, err
	}
	out := Clone(rec)
	for ; v < CurrentVersion; v++ {
		step, ok := migrations[v]
		if !ok {
			return nil, &SchemaVersionError{Found: v, Supported: CurrentVersion, Reason: "no migration registered"}
		}
		if out, err = step(out); err != nil {
			return nil, fmt.Errorf("migrating schema %d to %d: %w", v, v+1, err)
		}
		out[VersionKey] = v + 1
	}
	if _, ok := out["device"]; !ok && device != "" {
		out["device"] = device
	}
	return out, nil
}

// Clone deep-copies the map and slice structure of rec.
func Clone(rec Record) Record {
	if rec == nil {
		return nil
	}
	return Record(cloneValue(map[string]any(rec)).(map[string]any))
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case Record:
		return map[string]any(Clone(t))
	case []any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	case []map[string]any:
		s := make([]any, len(t))
		for i, val := range t {
			s[i] = cloneValue(val)
		}
		return s
	default:
		return v
	}
}

// ToFloat converts the numeric shapes a record may hold.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Encode renders rec as indented JSON.
func Encode(rec Record) ([]byte, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode persisted state: %w", err)
	}
	return data, nil
}

// Decode parses JSON into a record.
func Decode(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, &FieldError{Field: "$", Reason: err.Error()}
	}
	if rec == nil {
		return nil, &FieldError{Field: "$", Reason: "expected a JSON object"}
	}
	return rec, nil
}
