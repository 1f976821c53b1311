package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const (
	// Default file names of the two documents inside the data directory.
	CredentialsFile = "users_database.json"
	SessionsFile    = "active_sessions.json"

	filePerm = 0o600
	dirPerm  = 0o700
)

// FileDocument stores the mapping as one JSON object in a single file.
//
// Every operation reads the file in full; every mutation rewrites it in full.
// The rewrite goes through a temp file in the same directory followed by rename,
// so a crash mid-write leaves either the old or the new document, never a torn one.
type FileDocument struct {
	name string
	path string

	mu sync.Mutex
}

// OpenFile opens (and if absent creates as "{}") a JSON document at path.
func OpenFile(name, path string) (*FileDocument, error) {
	if !validName(name) {
		return nil, ErrInvalidName
	}
	if path == "" {
		return nil, opErr(name, "open", errors.New("empty path"))
	}

	d := &FileDocument{name: name, path: path}

	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, opErr(name, "open", err)
	}

	_, err := os.Stat(path)
	switch {
	case err == nil:
		// Decode once so a corrupt document fails at startup instead of on first request.
		if _, err := d.read(); err != nil {
			return nil, err
		}
	case errors.Is(err, fs.ErrNotExist):
		if err := d.write(map[string]string{}); err != nil {
			return nil, err
		}
	default:
		return nil, opErr(name, "open", err)
	}

	return d, nil
}

// Path returns the file backing this document.
func (d *FileDocument) Path() string { return d.path }

func (d *FileDocument) Name() string { return d.name }

func (d *FileDocument) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	m, err := d.read()
	if err != nil {
		return "", false, err
	}
	v, ok := m[key]
	return v, ok, nil
}

func (d *FileDocument) Insert(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	m, err := d.read()
	if err != nil {
		return err
	}
	if _, ok := m[key]; ok {
		return ErrExists
	}
	m[key] = value
	return d.write(m)
}

func (d *FileDocument) Put(ctx context.Context, key, value string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	m, err := d.read()
	if err != nil {
		return "", false, err
	}
	prev, had := m[key]
	if had && prev == value {
		return prev, had, nil
	}
	m[key] = value
	if err := d.write(m); err != nil {
		return "", false, err
	}
	return prev, had, nil
}

func (d *FileDocument) CompareAndSwap(ctx context.Context, key, old, value string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	m, err := d.read()
	if err != nil {
		return false, err
	}
	cur, ok := m[key]
	if !ok || cur != old {
		return false, nil
	}
	m[key] = value
	if err := d.write(m); err != nil {
		return false, err
	}
	return true, nil
}

func (d *FileDocument) Delete(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	m, err := d.read()
	if err != nil {
		return false, err
	}
	if _, ok := m[key]; !ok {
		return false, nil
	}
	delete(m, key)
	if err := d.write(m); err != nil {
		return false, err
	}
	return true, nil
}

func (d *FileDocument) DeleteIf(ctx context.Context, key, value string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	m, err := d.read()
	if err != nil {
		return false, err
	}
	cur, ok := m[key]
	if !ok || cur != value {
		return false, nil
	}
	delete(m, key)
	if err := d.write(m); err != nil {
		return false, err
	}
	return true, nil
}

func (d *FileDocument) Len(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	m, err := d.read()
	if err != nil {
		return 0, err
	}
	return len(m), nil
}

func (d *FileDocument) Snapshot(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.read()
}

// Ping checks that the document is still readable and decodable.
func (d *FileDocument) Ping(ctx context.Context) error {
	_, err := d.Len(ctx)
	return err
}

// read must be called with d.mu held (or before d is shared).
func (d *FileDocument) read() (map[string]string, error) {
	b, err := os.ReadFile(d.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, opErr(d.name, "read", err)
	}
	return decodeDocument(d.name, b)
}

// write must be called with d.mu held (or before d is shared).
func (d *FileDocument) write(m map[string]string) error {
	b, err := encodeDocument(m)
	if err != nil {
		return opErr(d.name, "write", err)
	}

	dir := filepath.Dir(d.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return opErr(d.name, "write", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return opErr(d.name, "write", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return opErr(d.name, "write", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return opErr(d.name, "write", err)
	}
	if err := os.Chmod(tmpName, filePerm); err != nil {
		cleanup()
		return opErr(d.name, "write", err)
	}
	if err := os.Rename(tmpName, d.path); err != nil {
		cleanup()
		return opErr(d.name, "write", err)
	}
	return nil
}

func decodeDocument(name string, b []byte) (map[string]string, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return map[string]string{}, nil
	}
	m := map[string]string{}
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, opErr(name, "decode", fmt.Errorf("%w: %v", ErrCorrupt, err))
	}
	if m == nil {
		// A literal "null" document.
		m = map[string]string{}
	}
	return m, nil
}

// encodeDocument writes keys in sorted order (encoding/json sorts map keys) with
// two-space indentation so the document stays human-diffable.
func encodeDocument(m map[string]string) ([]byte, error) {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// ReadJSONFile decodes a flat JSON document without opening it for writes.
func ReadJSONFile(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeDocument(filepath.Base(path), b)
}
