// Package cli implements the aya command line: serve (default), enroll, migrate and hash.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"aya/cmd/internal/app"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// env carries the shared state every subcommand reads.
type env struct {
	v          *viper.Viper
	configFile string

	in     io.Reader
	out    io.Writer
	errOut io.Writer

	// isTerminal and readSecret are test seams over golang.org/x/term.
	isTerminal func() bool
	readSecret func() ([]byte, error)
}

// NewRootCommand builds the command tree. Flags are bound to a private viper
// instance so env vars (AYA_*), the config file and flags resolve in one place.
func NewRootCommand() *cobra.Command {
	e := &env{
		v:          app.NewViper(),
		in:         os.Stdin,
		out:        os.Stdout,
		errOut:     os.Stderr,
		isTerminal: stdinIsTerminal,
		readSecret: readStdinSecret,
	}
	return newRootCommand(e)
}

func newRootCommand(e *env) *cobra.Command {
	root := &cobra.Command{
		Use:   "aya",
		Short: "Aya problem-solving assistant server",
		Long: `Aya serves a login-gated problem solver:
- credential store with admin-gated enrollment
- one active session per user, newer logins displace older devices
- text, image and PDF questions answered by an OpenAI-compatible provider`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			used, err := app.ReadConfigFile(e.v, e.configFile)
			if err != nil {
				return err
			}
			if used != "" {
				fmt.Fprintln(e.errOut, "Using config file:", used)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), e)
		},
	}
	root.SetIn(e.in)
	root.SetOut(e.out)
	root.SetErr(e.errOut)

	pf := root.PersistentFlags()
	pf.StringVar(&e.configFile, "config", "", "config file (default is ./aya.yaml)")
	pf.String("storage", app.StorageFile, "storage backend: file, memory, sqlite or postgres")
	pf.String("data-dir", "./data", "directory holding the JSON documents and the SQLite database")
	pf.String("database-url", "", "PostgreSQL connection URL (storage=postgres)")
	pf.String("log-level", "info", "log level: debug, info, warn or error")
	pf.String("log-format", "json", "log format: json or pretty")

	_ = e.v.BindPFlag("storage", pf.Lookup("storage"))
	_ = e.v.BindPFlag("data_dir", pf.Lookup("data-dir"))
	_ = e.v.BindPFlag("database.url", pf.Lookup("database-url"))
	_ = e.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = e.v.BindPFlag("log.format", pf.Lookup("log-format"))

	root.AddCommand(
		newServeCommand(e),
		newEnrollCommand(e),
		newMigrateCommand(e),
		newHashCommand(e),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func (e *env) config() (app.Config, app.Logger, error) {
	cfg, err := app.LoadConfig(e.v)
	if err != nil {
		return app.Config{}, nil, err
	}
	return cfg, app.NewLogger(cfg.LogLevel, cfg.LogFormat, e.errOut), nil
}
