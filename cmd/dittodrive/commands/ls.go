package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/internal/bytesize"
	"github.com/marmos91/dittodrive/internal/cli/output"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/spf13/cobra"
)

var lsOwner string

var lsCmd = &cobra.Command{
	Use:   "ls [folder-id]",
	Short: "List the contents of a folder",
	Long: `List the folders and files directly inside a folder, together with the
breadcrumb trail leading to it. Without an argument the root folder is listed.
A folder that does not exist falls back to the root.

Examples:
  # List the root
  dittodrive ls

  # List a folder, only showing one user's items
  dittodrive ls 0b6f... --as test@example.com

  # Print the listing as JSON
  dittodrive ls 0b6f... -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

func init() {
	lsCmd.Flags().StringVar(&lsOwner, "as", "", "Only show items owned by this user (email)")
}

// listing is the printable result of ls.
type listing struct {
	Path string            `json:"path" yaml:"path"`
	Nav  *drive.Navigation `json:"navigation" yaml:"navigation"`
}

func (l *listing) Headers() []string {
	return []string{"TYPE", "NAME", "ID", "SIZE", "CREATED"}
}

func (l *listing) Rows() [][]string {
	rows := make([][]string, 0, len(l.Nav.Contents.Folders)+len(l.Nav.Contents.Files))
	for _, f := range l.Nav.Contents.Folders {
		rows = append(rows, []string{"folder", f.Name, f.ID, "-", cmdutil.FormatTime(f.CreatedAt)})
	}
	for _, f := range l.Nav.Contents.Files {
		rows = append(rows, []string{"file", f.Name, f.ID, bytesize.Human(f.Size), cmdutil.FormatTime(f.CreatedAt)})
	}
	return rows
}

func runLs(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	svc, err := cmdutil.OpenServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	folderID := drive.RootFolderID
	if len(args) == 1 {
		folderID = args[0]
	}

	nav, err := svc.Drive.Navigate(ctx, folderID)
	if err != nil {
		return err
	}

	if lsOwner != "" {
		owner, err := cmdutil.ResolveOwner(ctx, svc.Identity, lsOwner)
		if err != nil {
			return err
		}
		nav.Contents = ownedBy(nav.Contents, owner.ID)
	}

	l := &listing{Path: breadcrumbPath(nav.Breadcrumbs), Nav: nav}

	format, err := output.ParseFormat(cmdutil.Flags.Output)
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		out := cmd.OutOrStdout()
		if nav.Redirected {
			_, _ = fmt.Fprintf(out, "Folder %q not found, showing %s\n", folderID, drive.RootFolderName)
		}
		_, _ = fmt.Fprintln(out, l.Path)
		if len(l.Rows()) == 0 {
			_, _ = fmt.Fprintln(out, "(empty)")
			return nil
		}
	}
	return output.Print(cmd.OutOrStdout(), format, l)
}

func breadcrumbPath(crumbs []drive.Breadcrumb) string {
	names := make([]string, len(crumbs))
	for i, c := range crumbs {
		names[i] = c.Name
	}
	return strings.Join(names, " / ")
}

func ownedBy(c *drive.Contents, ownerID string) *drive.Contents {
	out := &drive.Contents{Folders: []*drive.Folder{}, Files: []*drive.File{}}
	for _, f := range c.Folders {
		if f.OwnerID == ownerID {
			out.Folders = append(out.Folders, f)
		}
	}
	for _, f := range c.Files {
		if f.OwnerID == ownerID {
			out.Files = append(out.Files, f)
		}
	}
	return out
}
