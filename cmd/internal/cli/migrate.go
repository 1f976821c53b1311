package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"aya/cmd/internal/app"
	"aya/cmd/internal/docstore"

	"github.com/spf13/cobra"
)

func newMigrateCommand(e *env) *cobra.Command {
	var importDir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Prepare the storage backend and optionally import JSON documents",
		Long: `Apply the PostgreSQL schema migrations (storage=postgres) or create the
SQLite table (storage=sqlite). With --import-dir, users_database.json and
active_sessions.json found in that directory are copied into the configured
backend; keys that already exist are left untouched.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := e.config()
			if err != nil {
				return err
			}
			if cfg.Storage == app.StorageMemory {
				return errors.New("migrate: storage=memory has nothing to migrate")
			}
			cfg.AutoMigrate = true

			st, err := app.OpenStorage(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()
			fmt.Fprintf(e.out, "Storage %q is ready.\n", cfg.Storage)

			if importDir == "" {
				return nil
			}
			if cfg.Storage == app.StorageFile && filepath.Clean(importDir) == filepath.Clean(cfg.DataDir) {
				return errors.New("migrate: import dir is the data dir")
			}

			for _, job := range []struct {
				file string
				dst  docstore.Document
			}{
				{file: docstore.CredentialsFile, dst: st.Credentials},
				{file: docstore.SessionsFile, dst: st.Sessions},
			} {
				res, err := importDocument(cmd.Context(), filepath.Join(importDir, job.file), job.dst)
				if errors.Is(err, fs.ErrNotExist) {
					fmt.Fprintf(e.out, "%s: not found, skipped\n", job.file)
					continue
				}
				if err != nil {
					return fmt.Errorf("migrate: import %s: %w", job.file, err)
				}
				fmt.Fprintf(e.out, "%s: %d imported, %d already present\n", job.file, res.Copied, res.Skipped)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&importDir, "import-dir", "", "directory with users_database.json and active_sessions.json to import")
	return cmd
}

func importDocument(ctx context.Context, path string, dst docstore.Document) (docstore.CopyResult, error) {
	m, err := docstore.ReadJSONFile(path)
	if err != nil {
		return docstore.CopyResult{}, err
	}

	src := docstore.NewMemoryDocument(dst.Name())
	for k, v := range m {
		if err := src.Insert(ctx, k, v); err != nil {
			return docstore.CopyResult{}, err
		}
	}
	return docstore.Copy(ctx, dst, src)
}
