package model

import "fmt"

// KeyError reports an unknown test row or metadata field.
type KeyError struct {
	Kind string
	Key  string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Key)
}

// ImportError attaches the file line to a validation failure raised while
// applying an import.
type ImportError struct {
	Path string
	Line int
	Err  error
}

func (e *ImportError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	if e.Path == "" {
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("%s line %d: %v", e.Path, e.Line, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }
