//go:build cgo

package docstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteDocument_Contract(t *testing.T) {
	t.Parallel()

	runDocumentContract(t, func(t *testing.T, name string) Document {
		db, err := OpenSQLite(filepath.Join(t.TempDir(), "aya.db"))
		require.NoError(t, err)
		t.Cleanup(func() { _ = db.Close() })

		d, err := db.Document(name)
		require.NoError(t, err)
		return d
	})
}

func TestSQLiteDocument_DocumentsAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := testCtx(t)

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "aya.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	creds, err := db.Document("credentials")
	require.NoError(t, err)
	sessions, err := db.Document("sessions")
	require.NoError(t, err)

	require.NoError(t, creds.Insert(ctx, "alice", "digest"))
	_, ok, err := sessions.Get(ctx, "alice")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, db.Ping(ctx))
}
