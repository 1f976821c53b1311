package cli

import (
	"errors"
	"fmt"

	"aya/cmd/security/password"

	"github.com/spf13/cobra"
)

func newHashCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "hash",
		Short: "Print the stored digest for a password",
		Long: `Read a password and print the digest the credential store would persist for it
under the configured scheme (AYA_PASSWORD_SCHEME). Useful for hand-editing the
credentials document.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := password.FromEnv()
			if err != nil {
				return err
			}

			pw, err := newPrompter(e).Secret("Password")
			if err != nil {
				return err
			}
			if pw == "" {
				return errors.New("hash: empty password")
			}

			digest, err := cfg.Hash(pw)
			if err != nil {
				return err
			}
			fmt.Fprintln(e.out, digest)
			return nil
		},
	}
}
