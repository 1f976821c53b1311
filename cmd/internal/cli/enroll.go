package cli

import (
	"errors"
	"fmt"

	"aya/cmd/identity"
	"aya/cmd/internal/app"

	"github.com/spf13/cobra"
)

func newEnrollCommand(e *env) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "enroll",
		Short: "Create a user account",
		Long: `Create a user account in the configured storage backend.
The admin secret and the password are prompted for; the password twice.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := e.config()
			if err != nil {
				return err
			}

			p := newPrompter(e)
			if username == "" {
				if username, err = p.Text("Username"); err != nil {
					return err
				}
			}
			secret, err := p.Secret("Admin secret key")
			if err != nil {
				return err
			}
			pw, err := p.Secret("Password")
			if err != nil {
				return err
			}
			confirm, err := p.Secret("Confirm password")
			if err != nil {
				return err
			}

			st, err := app.OpenStorage(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			creds, err := app.NewCredentialStore(cfg, log, st)
			if err != nil {
				return err
			}

			err = creds.Enroll(cmd.Context(), identity.EnrollInput{
				AdminSecret: secret,
				Username:    username,
				Password:    pw,
				Confirm:     &confirm,
			})
			if err != nil {
				return enrollFailure(err)
			}

			fmt.Fprintf(e.out, "User %q created.\n", username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username to create (prompted when empty)")
	return cmd
}

func enrollFailure(err error) error {
	switch {
	case errors.Is(err, identity.ErrEnrollmentDisabled):
		return errors.New("enroll: enrollment is disabled (set AYA_ADMIN_SECRET)")
	case errors.Is(err, identity.ErrAdminSecret):
		return errors.New("enroll: invalid admin secret key")
	case errors.Is(err, identity.ErrPasswordMismatch):
		return errors.New("enroll: passwords don't match")
	case identity.IsConflict(err):
		return errors.New("enroll: username already exists")
	default:
		return fmt.Errorf("enroll: %w", err)
	}
}
