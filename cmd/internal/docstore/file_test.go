package docstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileDocument_Contract(t *testing.T) {
	t.Parallel()

	runDocumentContract(t, func(t *testing.T, name string) Document {
		d, err := OpenFile(name, filepath.Join(t.TempDir(), name+".json"))
		require.NoError(t, err)
		return d
	})
}

func TestOpenFile_CreatesEmptyObject(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "data", SessionsFile)
	_, err := OpenFile("sessions", path)
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var m map[string]string
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Empty(t, m)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(filePerm), info.Mode().Perm())
}

func TestFileDocument_ReadsExistingFlatDocument(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), CredentialsFile)
	// Compact form, as written by other tools.
	require.NoError(t, os.WriteFile(path, []byte(`{"Mohammed": "5e884898da28047151d0e56f8dc6292773603d0d6aabbdd62a11ef721d1542d8"}`), 0o600))

	d, err := OpenFile("credentials", path)
	require.NoError(t, err)

	ctx := testCtx(t)
	v, ok, err := d.Get(ctx, "Mohammed")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Len(t, v, 64)
}

func TestFileDocument_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	path := filepath.Join(t.TempDir(), SessionsFile)
	d1, err := OpenFile("sessions", path)
	require.NoError(t, err)
	_, _, err = d1.Put(ctx, "alice", "deviceA")
	require.NoError(t, err)

	d2, err := OpenFile("sessions", path)
	require.NoError(t, err)
	v, ok, err := d2.Get(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "deviceA", v)

	m, err := ReadJSONFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"alice": "deviceA"}, m)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFileDocument_CorruptDocument(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), CredentialsFile)
	require.NoError(t, os.WriteFile(path, []byte(`{"alice": `), 0o600))

	_, err := OpenFile("credentials", path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorrupt)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "credentials", opErr.Document)
}

func TestFileDocument_CorruptionAfterOpenSurfacesOnAccess(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	path := filepath.Join(t.TempDir(), SessionsFile)
	d, err := OpenFile("sessions", path)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, _, err = d.Put(ctx, "alice", "deviceA")
	assert.ErrorIs(t, err, ErrCorrupt)
	assert.ErrorIs(t, d.Ping(ctx), ErrCorrupt)
}

func TestOpenFile_InvalidName(t *testing.T) {
	t.Parallel()

	_, err := OpenFile("Bad Name", filepath.Join(t.TempDir(), "x.json"))
	assert.ErrorIs(t, err, ErrInvalidName)
}
