// Package docstore persists flat string-to-string documents.
//
// Aya keeps two such documents: credentials (username -> password digest) and
// sessions (username -> device id). Every backend serializes access internally so
// read-modify-write sequences on one document never interleave:
//   - FileDocument: one JSON object per file, read in full before each operation and
//     rewritten in full (temp file + fsync + rename) after each mutation, under a mutex.
//   - PostgresDocument: rows in aya.document_entries, swaps guarded by a per-key
//     advisory transaction lock.
//   - SQLiteDocument: the same table through gorm, single connection plus a mutex.
//   - MemoryDocument: a map under a mutex, for tests and ephemeral runs.
package docstore
