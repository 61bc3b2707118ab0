package schema

import "strings"

// v0 records are the original flat dump: an optional temperature_c and no
// ambient_value. v1 introduces ambient_value.
func migrateV0ToV1(in Record) (Record, error) {
	out := Clone(in)
	ambient, ok := out["temperature_c"]
	if !ok {
		ambient = nil
	}
	if ambient != nil {
		if _, isNum := ToFloat(ambient); !isNum {
			return nil, &FieldError{Field: "temperature_c", Reason: "must be a number or null"}
		}
	}
	delete(out, "temperature_c")
	if _, exists := out["ambient_value"]; !exists {
		out["ambient_value"] = ambient
	}
	return out, nil
}

// v2 renames test_table to test_rows with normalized pass/fail strings,
// renames device-specific metadata keys. The device model is filled in
// by Migrate.
func migrateV1ToV2(in Record) (Record, error) {
	out := Clone(in)

	if table, ok := out["test_table"]; ok {
		rows, isList := table.([]any)
		if !isList && table != nil {
			return nil, &FieldError{Field: "test_table", Reason: "must be a list"}
		}
		migrated := make([]any, 0, len(rows))
		for i, r := range rows {
			row, isMap := r.(map[string]any)
			if !isMap {
				return nil, &FieldError{Field: "test_table", Reason: "row entries must be objects"}
			}
			delete(row, "description")
			if pf, ok := row["pass_fail"].(string); ok {
				row["pass_fail"] = strings.ToLower(strings.TrimSpace(pf))
			}
			row["position"] = i
			migrated = append(migrated, row)
		}
		delete(out, "test_table")
		out["test_rows"] = migrated
	}

	if meta, ok := out["metadata"].(map[string]any); ok {
		renameKey(meta, "tester_name", "operator")
		renameKey(meta, "ds50_serial", "serial_number")
	}
	return out, nil
}

func renameKey(m map[string]any, from, to string) {
	v, ok := m[from]
	if !ok {
		return
	}
	delete(m, from)
	if _, exists := m[to]; !exists {
		m[to] = v
	}
}
