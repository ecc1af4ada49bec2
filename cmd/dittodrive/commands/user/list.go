package user

import (
	"context"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/pkg/identity"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List users",
	RunE:    runList,
}

// UserList renders users as a table.
type UserList []*identity.User

func (l UserList) Headers() []string {
	return []string{"ID", "EMAIL", "NAME", "CREATED", "LAST LOGIN"}
}

func (l UserList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, u := range l {
		lastLogin := "-"
		if u.LastLogin != nil {
			lastLogin = cmdutil.FormatTime(*u.LastLogin)
		}
		rows = append(rows, []string{u.ID, u.Email, u.GetDisplayName(), cmdutil.FormatTime(u.CreatedAt), lastLogin})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	return withIdentity(func(ctx context.Context, ids *identity.Service) error {
		users, err := ids.ListUsers(ctx)
		if err != nil {
			return err
		}
		return cmdutil.PrintOutput(cmd.OutOrStdout(), UserList(users))
	})
}
