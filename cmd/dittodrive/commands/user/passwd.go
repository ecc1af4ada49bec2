package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/dittodrive/internal/cli/prompt"
	"github.com/marmos91/dittodrive/pkg/identity"
	"github.com/spf13/cobra"
)

var passwdCmd = &cobra.Command{
	Use:   "passwd <email>",
	Short: "Change a user's password",
	Long: `Prompt for a new password and store it. Existing sessions stay valid
until they expire.

Examples:
  dittodrive user passwd alice@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: runPasswd,
}

func runPasswd(cmd *cobra.Command, args []string) error {
	email := args[0]

	password, err := prompt.NewPassword(identity.ValidatePassword)
	if err != nil {
		if prompt.IsAborted(err) {
			return nil
		}
		return err
	}

	return withIdentity(func(ctx context.Context, ids *identity.Service) error {
		if err := ids.SetPassword(ctx, email, password); err != nil {
			if errors.Is(err, identity.ErrUserNotFound) {
				return fmt.Errorf("user %q not found", email)
			}
			return fmt.Errorf("failed to set password: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", email)
		return nil
	})
}
