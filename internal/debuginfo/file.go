package debuginfo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"
)

// EnvDebugFile names the environment variable consulted for the default
// debug-info file path when the embedder does not set one explicitly.
const EnvDebugFile = "EMBER_DEBUG_FILE"

// FileExt is the conventional extension for debug-info files.
const FileExt = ".edb"

// Write serializes the table to path atomically (temp file + rename).
func Write(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(path), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name()) //nolint:errcheck // gone after rename on success

	enc := msgpack.NewEncoder(f)
	if err := enc.Encode(t); err != nil {
		f.Close() //nolint:errcheck,gosec // write error takes precedence
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

// Read deserializes a table from path, rejecting unknown schema versions.
func Read(path string) (*Table, error) {
	f, err := os.Open(path) // #nosec G304 -- path is provided by the caller
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only handle

	var t Table
	dec := msgpack.NewDecoder(f)
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("corrupt debug info %q: %w", path, err)
	}
	if t.Schema != tableSchemaVersion {
		return nil, fmt.Errorf("debug info %q: schema %d, want %d", path, t.Schema, tableSchemaVersion)
	}
	return &t, nil
}
