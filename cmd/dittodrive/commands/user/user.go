// Package user implements user management subcommands.
package user

import (
	"context"
	"fmt"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/pkg/identity"
	"github.com/spf13/cobra"
)

// Cmd is the user subcommand.
var Cmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users",
	Long: `Manage the accounts that can sign in to DittoDrive.

The commands work directly on the configured identity database, so they can
run while the server is stopped.

Subcommands:
  add     Create a user
  list    List users
  passwd  Change a user's password`,
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(passwdCmd)
}

// openIdentity loads the configuration and opens only the identity database.
func openIdentity() (*identity.Service, error) {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return nil, err
	}
	ids, err := identity.New(cfg.IdentityServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open identity database: %w", err)
	}
	return ids, nil
}

func withIdentity(fn func(ctx context.Context, ids *identity.Service) error) error {
	ids, err := openIdentity()
	if err != nil {
		return err
	}
	defer func() { _ = ids.Close() }()
	return fn(context.Background(), ids)
}
