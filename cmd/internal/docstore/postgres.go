package docstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultSchema is the schema created by the embedded migrations.
const DefaultSchema = "aya"

const entriesTable = "document_entries"

var pgIdentRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresDocument is a Document backed by rows of aya.document_entries.
//
// Ownership model:
//   - PostgresDocument does NOT own the pgx pool. The caller must close the pool.
//
// Concurrency model:
//   - Single-statement operations rely on row-level atomicity.
//   - Put runs in a transaction holding a per-(document, key) advisory lock so the
//     returned previous value is exactly the one it replaced.
type PostgresDocument struct {
	name   string
	pool   *pgxpool.Pool
	schema string
	table  string
}

// PostgresOption configures PostgresDocument behavior.
type PostgresOption func(*PostgresDocument) error

// WithSchema sets the DB schema used by this document (default: "aya").
// The schema name is validated and safely quoted in queries.
func WithSchema(schema string) PostgresOption {
	return func(d *PostgresDocument) error {
		schema = strings.TrimSpace(schema)
		if schema == "" {
			return errors.New("docstore: empty schema")
		}
		if !pgIdentRE.MatchString(schema) {
			return errors.New("docstore: invalid schema identifier")
		}
		d.schema = schema
		return nil
	}
}

// NewPostgresDocument constructs a Postgres-backed document.
func NewPostgresDocument(pool *pgxpool.Pool, name string, opts ...PostgresOption) (*PostgresDocument, error) {
	if !validName(name) {
		return nil, ErrInvalidName
	}
	d := &PostgresDocument{
		name:   name,
		pool:   pool,
		schema: DefaultSchema,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(d); err != nil {
			return nil, err
		}
	}
	if d.pool == nil {
		return nil, errors.New("docstore: nil pool")
	}
	d.table = pgx.Identifier{d.schema, entriesTable}.Sanitize()
	return d, nil
}

func (d *PostgresDocument) Name() string { return d.name }

func (d *PostgresDocument) Get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := d.pool.QueryRow(ctx,
		`SELECT entry_value FROM `+d.table+` WHERE document = $1 AND entry_key = $2`,
		d.name, key,
	).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, opErr(d.name, "get", err)
	}
	return v, true, nil
}

func (d *PostgresDocument) Insert(ctx context.Context, key, value string) error {
	tag, err := d.pool.Exec(ctx, `
		INSERT INTO `+d.table+` (document, entry_key, entry_value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (document, entry_key) DO NOTHING
	`, d.name, key, value)
	if err != nil {
		return opErr(d.name, "insert", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrExists
	}
	return nil
}

func (d *PostgresDocument) Put(ctx context.Context, key, value string) (string, bool, error) {
	tx, err := d.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", false, opErr(d.name, "put", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, d.name+"/"+key); err != nil {
		return "", false, opErr(d.name, "put", fmt.Errorf("advisory lock: %w", err))
	}

	var (
		prev string
		had  = true
	)
	err = tx.QueryRow(ctx,
		`SELECT entry_value FROM `+d.table+` WHERE document = $1 AND entry_key = $2 FOR UPDATE`,
		d.name, key,
	).Scan(&prev)
	if errors.Is(err, pgx.ErrNoRows) {
		had = false
	} else if err != nil {
		return "", false, opErr(d.name, "put", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO `+d.table+` (document, entry_key, entry_value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (document, entry_key)
		DO UPDATE SET entry_value = EXCLUDED.entry_value, updated_at = EXCLUDED.updated_at
	`, d.name, key, value); err != nil {
		return "", false, opErr(d.name, "put", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", false, opErr(d.name, "put", err)
	}
	return prev, had, nil
}

func (d *PostgresDocument) CompareAndSwap(ctx context.Context, key, old, value string) (bool, error) {
	tag, err := d.pool.Exec(ctx, `
		UPDATE `+d.table+`
		SET entry_value = $4, updated_at = now()
		WHERE document = $1 AND entry_key = $2 AND entry_value = $3
	`, d.name, key, old, value)
	if err != nil {
		return false, opErr(d.name, "cas", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (d *PostgresDocument) Delete(ctx context.Context, key string) (bool, error) {
	tag, err := d.pool.Exec(ctx,
		`DELETE FROM `+d.table+` WHERE document = $1 AND entry_key = $2`,
		d.name, key,
	)
	if err != nil {
		return false, opErr(d.name, "delete", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (d *PostgresDocument) DeleteIf(ctx context.Context, key, value string) (bool, error) {
	tag, err := d.pool.Exec(ctx,
		`DELETE FROM `+d.table+` WHERE document = $1 AND entry_key = $2 AND entry_value = $3`,
		d.name, key, value,
	)
	if err != nil {
		return false, opErr(d.name, "delete_if", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (d *PostgresDocument) Len(ctx context.Context) (int, error) {
	var n int
	if err := d.pool.QueryRow(ctx,
		`SELECT count(*) FROM `+d.table+` WHERE document = $1`, d.name,
	).Scan(&n); err != nil {
		return 0, opErr(d.name, "len", err)
	}
	return n, nil
}

func (d *PostgresDocument) Snapshot(ctx context.Context) (map[string]string, error) {
	rows, err := d.pool.Query(ctx,
		`SELECT entry_key, entry_value FROM `+d.table+` WHERE document = $1`, d.name,
	)
	if err != nil {
		return nil, opErr(d.name, "snapshot", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, opErr(d.name, "snapshot", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, opErr(d.name, "snapshot", err)
	}
	return out, nil
}

// Ping checks that a connection can be acquired.
func (d *PostgresDocument) Ping(ctx context.Context) error {
	conn, err := d.pool.Acquire(ctx)
	if err != nil {
		return opErr(d.name, "ping", err)
	}
	conn.Release()
	return nil
}
