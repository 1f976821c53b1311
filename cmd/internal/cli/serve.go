package cli

import (
	"context"

	"aya/cmd/internal/app"

	"github.com/spf13/cobra"
)

func newServeCommand(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long:  `Start the HTTP server: auth API, problem solver, realtime session channel, web page and metrics.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), e)
		},
	}
	cmd.Flags().String("addr", "0.0.0.0:8080", "HTTP listen address")
	_ = e.v.BindPFlag("http.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func runServe(ctx context.Context, e *env) error {
	cfg, log, err := e.config()
	if err != nil {
		return err
	}
	if err := app.Run(ctx, cfg, log); err != nil {
		log.Error("server.fail", "err", err)
		return err
	}
	return nil
}
