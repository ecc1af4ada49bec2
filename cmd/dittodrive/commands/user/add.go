package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/dittodrive/internal/cli/prompt"
	"github.com/marmos91/dittodrive/pkg/identity"
	"github.com/spf13/cobra"
)

var (
	addDisplayName string
	addPassword    string
	addPhotoURL    string
)

var addCmd = &cobra.Command{
	Use:   "add <email>",
	Short: "Create a user",
	Long: `Create a user that can sign in to DittoDrive.

The password is prompted for unless --password is given.

Examples:
  # Create a user interactively
  dittodrive user add alice@example.com

  # Create a user non-interactively
  dittodrive user add alice@example.com --name "Alice" --password s3cretpass`,
	Args: cobra.ExactArgs(1),
	RunE: runAdd,
}

func init() {
	addCmd.Flags().StringVar(&addDisplayName, "name", "", "Display name")
	addCmd.Flags().StringVar(&addPassword, "password", "", "Password (prompted when omitted)")
	addCmd.Flags().StringVar(&addPhotoURL, "photo-url", "", "Avatar URL (default: generated)")
}

func runAdd(cmd *cobra.Command, args []string) error {
	email := args[0]

	password := addPassword
	if password == "" {
		var err error
		password, err = prompt.NewPassword(identity.ValidatePassword)
		if err != nil {
			if prompt.IsAborted(err) {
				return nil
			}
			return err
		}
	} else if err := identity.ValidatePassword(password); err != nil {
		return err
	}

	return withIdentity(func(ctx context.Context, ids *identity.Service) error {
		u, err := ids.CreateUser(ctx, identity.NewUser{
			Email:       email,
			Password:    password,
			DisplayName: addDisplayName,
			PhotoURL:    addPhotoURL,
		})
		if err != nil {
			if errors.Is(err, identity.ErrDuplicateUser) {
				return fmt.Errorf("user %q already exists", email)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "User %s created (%s)\n", u.Email, u.ID)
		return nil
	})
}
