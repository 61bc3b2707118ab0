// Package state persists measurement sessions as versioned JSON records.
// The on-disk format evolves through schema migrations independently of the
// CSV layout.
package state

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/user/testpad_go/internal/device"
	"github.com/user/testpad_go/internal/model"
	"github.com/user/testpad_go/internal/schema"
	"github.com/user/testpad_go/internal/storage"
)

// Serialize returns the persisted record of m.
func Serialize(m *model.Model) schema.Record {
	return m.ToDict()
}

// Deserialize validates the record version, migrates older records and
// builds a new session from the result.
func Deserialize(spec *device.Spec, rec schema.Record, opts ...model.Option) (*model.Model, error) {
	return model.FromDict(spec, rec, opts...)
}

// Save writes the session to path through a temp file.
func Save(fs afero.Fs, path string, m *model.Model) error {
	data, err := schema.Encode(Serialize(m))
	if err != nil {
		return err
	}
	return storage.WriteFileAtomic(fs, path, data)
}

// Load reads and decodes the record at path. ok is false when no state file
// exists yet.
func Load(fs afero.Fs, path string) (rec schema.Record, ok bool, err error) {
	data, err := storage.ReadFile(fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	rec, err = schema.Decode(data)
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", path, err)
	}
	return rec, true, nil
}

// Migrate upgrades the state file at in to the current schema and writes
// the result to out. Records older than the device field are tagged with
// device.
func Migrate(fs afero.Fs, in, out, device string) (from int, err error) {
	rec, ok, err := Load(fs, in)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, &storage.IOError{Op: "open", Path: in, Err: os.ErrNotExist}
	}
	if from, err = schema.Version(rec); err != nil {
		return 0, err
	}
	migrated, err := schema.Migrate(rec, device)
	if err != nil {
		return from, err
	}
	data, err := schema.Encode(migrated)
	if err != nil {
		return from, err
	}
	return from, storage.WriteFileAtomic(fs, out, data)
}
