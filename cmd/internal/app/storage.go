package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"aya/cmd/internal/docstore"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Storage holds the credentials and sessions documents of the selected backend.
type Storage struct {
	Backend     string
	Credentials docstore.Document
	Sessions    docstore.Document

	pingers []docstore.Pinger
	closers []func() error
}

// OpenStorage opens both documents on the backend named by cfg.Storage.
// For postgres the embedded migrations run first when cfg.AutoMigrate is set.
func OpenStorage(ctx context.Context, cfg Config, log Logger) (*Storage, error) {
	st := &Storage{Backend: cfg.Storage}

	switch cfg.Storage {
	case StorageMemory:
		st.Credentials = docstore.NewMemoryDocument(docstore.CredentialsName)
		st.Sessions = docstore.NewMemoryDocument(docstore.SessionsName)
		log.Warn("storage.memory", "note", "credentials and sessions are lost on restart")

	case StorageFile:
		creds, err := docstore.OpenFile(docstore.CredentialsName, filepath.Join(cfg.DataDir, docstore.CredentialsFile))
		if err != nil {
			return nil, err
		}
		sessions, err := docstore.OpenFile(docstore.SessionsName, filepath.Join(cfg.DataDir, docstore.SessionsFile))
		if err != nil {
			return nil, err
		}
		st.Credentials, st.Sessions = creds, sessions
		st.pingers = append(st.pingers, creds, sessions)
		log.Info("storage.file", "credentials", creds.Path(), "sessions", sessions.Path())

	case StorageSQLite:
		db, err := docstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("storage: sqlite: %w", err)
		}
		st.closers = append(st.closers, db.Close)
		st.pingers = append(st.pingers, db)

		creds, err := db.Document(docstore.CredentialsName)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		sessions, err := db.Document(docstore.SessionsName)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		st.Credentials, st.Sessions = creds, sessions
		log.Info("storage.sqlite", "path", cfg.SQLitePath)

	case StoragePostgres:
		pool, err := NewDBPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("storage: postgres: %w", err)
		}
		st.closers = append(st.closers, func() error { pool.Close(); return nil })
		st.pingers = append(st.pingers, poolPinger{pool: pool})

		if cfg.AutoMigrate {
			if err := docstore.MigratePostgres(ctx, pool); err != nil {
				_ = st.Close()
				return nil, err
			}
			log.Info("storage.postgres.migrated")
		}

		var opts []docstore.PostgresOption
		if cfg.DatabaseSchema != "" {
			opts = append(opts, docstore.WithSchema(cfg.DatabaseSchema))
		}
		creds, err := docstore.NewPostgresDocument(pool, docstore.CredentialsName, opts...)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		sessions, err := docstore.NewPostgresDocument(pool, docstore.SessionsName, opts...)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		st.Credentials, st.Sessions = creds, sessions
		log.Info("storage.postgres", "schema", cfg.DatabaseSchema, "max_conns", pool.Config().MaxConns)

	default:
		return nil, fmt.Errorf("%w: unknown storage %q", ErrConfig, cfg.Storage)
	}

	return st, nil
}

// Ping reports whether every backing resource is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	for _, p := range s.pingers {
		if err := p.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close releases pools and database handles. It is safe to call more than once.
func (s *Storage) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

type poolPinger struct{ pool *pgxpool.Pool }

func (p poolPinger) Ping(ctx context.Context) error { return PingDB(ctx, p.pool, 2*time.Second) }

// NewDBPool builds a pgxpool with the configured bounds and validates connectivity.
func NewDBPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if cfg.DBMaxConns > 0 {
		pcfg.MaxConns = cfg.DBMaxConns
	}
	if cfg.DBMinConns >= 0 {
		pcfg.MinConns = cfg.DBMinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}

	if err := PingDB(ctx, pool, nonZeroDuration(cfg.DBStartupTimeout, 5*time.Second)); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// PingDB checks if we can acquire a connection within timeout.
func PingDB(parent context.Context, pool *pgxpool.Pool, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	conn.Release()
	return nil
}
