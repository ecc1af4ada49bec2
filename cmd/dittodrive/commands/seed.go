package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/marmos91/dittodrive/cmd/dittodrive/cmdutil"
	"github.com/marmos91/dittodrive/internal/bytesize"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/spf13/cobra"
)

var seedOwner string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demo folder tree",
	Long: `Create the demo tree for a user: "Work Documents" with "Project X"
inside it, "Vacation Photos", and three sample files uploaded through the
configured blob store.

The owner defaults to the configured initial user. Folders that already
exist under the same parent are reused; files are always uploaded.

Examples:
  # Seed the initial user's drive
  dittodrive seed

  # Seed another user's drive
  dittodrive seed --as alice@example.com`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedOwner, "as", "", "Owner email (default: identity.initial_user.email)")
}

type seedFolder struct {
	key    string
	name   string
	parent string
}

type seedFile struct {
	name     string
	parent   string
	mimeType string
	size     int
}

var (
	demoFolders = []seedFolder{
		{key: "work", name: "Work Documents", parent: drive.RootFolderID},
		{key: "photos", name: "Vacation Photos", parent: drive.RootFolderID},
		{key: "projectx", name: "Project X", parent: "work"},
	}

	demoFiles = []seedFile{
		{name: "quarterly-report.pdf", parent: "work", mimeType: "application/pdf", size: 1234567},
		{name: "logo.png", parent: drive.RootFolderID, mimeType: "image/png", size: 87654},
		{name: "beach.jpg", parent: "photos", mimeType: "image/jpeg", size: 2345678},
	}
)

func runSeed(cmd *cobra.Command, args []string) error {
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

	if _, err := cmdutil.EnsureInitialUser(ctx, cfg, svc.Identity); err != nil {
		return fmt.Errorf("failed to ensure initial user: %w", err)
	}

	email := seedOwner
	if email == "" {
		email = cfg.Identity.InitialUser.Email
	}
	owner, err := cmdutil.ResolveOwner(ctx, svc.Identity, email)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ids := map[string]string{drive.RootFolderID: drive.RootFolderID}

	for _, f := range demoFolders {
		parentID := ids[f.parent]
		folder, created, err := ensureFolder(ctx, svc.Drive, f.name, parentID, owner.ID)
		if err != nil {
			return fmt.Errorf("failed to create folder %q: %w", f.name, err)
		}
		ids[f.key] = folder.ID
		if created {
			_, _ = fmt.Fprintf(out, "Created folder %s (%s)\n", folder.Name, folder.ID)
		} else {
			_, _ = fmt.Fprintf(out, "Folder %s already exists (%s)\n", folder.Name, folder.ID)
		}
	}

	for _, f := range demoFiles {
		file, err := uploadAndWait(ctx, svc.Uploads, drive.UploadRequest{
			Name:     f.name,
			ParentID: ids[f.parent],
			OwnerID:  owner.ID,
			MimeType: f.mimeType,
			Data:     bytes.Repeat([]byte{0}, f.size),
		}, out)
		if err != nil {
			return fmt.Errorf("failed to upload %q: %w", f.name, err)
		}
		_, _ = fmt.Fprintf(out, "Uploaded %s (%s, %s)\n", file.Name, file.ID, bytesize.Human(file.Size))
	}

	logger.Info("Demo tree seeded", logger.KeyUserID, owner.ID, logger.KeyFolders, len(demoFolders), logger.KeyFiles, len(demoFiles))
	return nil
}

// ensureFolder returns the owner's folder called name under parentID,
// creating it when missing.
func ensureFolder(ctx context.Context, svc *drive.Service, name, parentID, ownerID string) (*drive.Folder, bool, error) {
	contents, err := svc.ListFolderContents(ctx, parentID)
	if err != nil {
		return nil, false, err
	}
	for _, f := range contents.Folders {
		if f.Name == name && f.OwnerID == ownerID {
			return f, false, nil
		}
	}
	folder, err := svc.CreateFolder(ctx, name, parentID, ownerID)
	return folder, err == nil, err
}

// uploadAndWait starts an upload and reports its progress on w until it
// finishes.
func uploadAndWait(ctx context.Context, uploads *drive.UploadManager, req drive.UploadRequest, w io.Writer) (*drive.File, error) {
	u, err := uploads.Start(ctx, req)
	if err != nil {
		return nil, err
	}
	for pct := range u.Progress() {
		_, _ = fmt.Fprintf(w, "\r  %s %3d%%", req.Name, pct)
	}
	_, _ = fmt.Fprintln(w)

	file, err := u.Result()
	if err != nil {
		return nil, err
	}
	if err := uploads.Dismiss(u.ID()); err != nil {
		logger.Debug("Upload task already gone", logger.KeyUploadID, u.ID(), logger.KeyError, err)
	}
	return file, nil
}
