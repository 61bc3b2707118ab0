// Package storage wraps file output so callers never leave a half-written
// file at the destination path.
package storage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// IOError is returned for any file-system failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ErrExists is returned by the no-replace writers when path is taken.
var ErrExists = os.ErrExist

// WriteAtomic streams content into a temp file next to path and renames it
// into place once write and close both succeed. On failure the temp file is
// removed and path is left untouched.
func WriteAtomic(fs afero.Fs, path string, write func(io.Writer) error) error {
	return writeAtomic(fs, path, write, false)
}

// WriteAtomicNew is WriteAtomic that refuses to replace an existing file.
// path is checked again right before the rename; a file created after that
// check by another process is still replaced, so callers own their
// directory.
func WriteAtomicNew(fs afero.Fs, path string, write func(io.Writer) error) error {
	return writeAtomic(fs, path, write, true)
}

func writeAtomic(fs afero.Fs, path string, write func(io.Writer) error, noReplace bool) error {
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return &IOError{Op: "create directory", Path: dir, Err: err}
	}
	tmp, err := afero.TempFile(fs, dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &IOError{Op: "create temp file", Path: path, Err: err}
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = fs.Remove(tmpName) }

	buf := bufio.NewWriter(tmp)
	if err := write(buf); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := buf.Flush(); err != nil {
		_ = tmp.Close()
		cleanup()
		return &IOError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return &IOError{Op: "close", Path: path, Err: err}
	}
	if noReplace {
		taken, err := Exists(fs, path)
		if err == nil && taken {
			err = &IOError{Op: "create", Path: path, Err: ErrExists}
		}
		if err != nil {
			cleanup()
			return err
		}
	}
	if err := fs.Rename(tmpName, path); err != nil {
		cleanup()
		return &IOError{Op: "rename", Path: path, Err: err}
	}
	return nil
}

// WriteFileAtomic is WriteAtomic for an in-memory payload.
func WriteFileAtomic(fs afero.Fs, path string, data []byte) error {
	return WriteAtomic(fs, path, writeBytes(path, data))
}

// WriteFileNew is WriteAtomicNew for an in-memory payload.
func WriteFileNew(fs afero.Fs, path string, data []byte) error {
	return WriteAtomicNew(fs, path, writeBytes(path, data))
}

func writeBytes(path string, data []byte) func(io.Writer) error {
	return func(w io.Writer) error {
		if _, err := w.Write(data); err != nil {
			return &IOError{Op: "write", Path: path, Err: err}
		}
		return nil
	}
}

// ReadFile reads path, mapping failures to IOError.
func ReadFile(fs afero.Fs, path string) ([]byte, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	return data, nil
}

// Exists reports whether path exists.
func Exists(fs afero.Fs, path string) (bool, error) {
	_, err := fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, &IOError{Op: "stat", Path: path, Err: err}
}
