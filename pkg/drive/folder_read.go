package drive

import (
	"context"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/telemetry"
	drerrors "github.com/marmos91/dittodrive/pkg/drive/errors"
)

// GetFolder returns the folder with the given id.
func (s *Service) GetFolder(ctx context.Context, id string) (folder *Folder, err error) {
	ctx, span := telemetry.StartDriveSpan(ctx, OpGetFolder, telemetry.FolderID(id))
	defer span.End()
	start := time.Now()
	defer func() { s.finish(ctx, OpGetFolder, start, err) }()

	return s.store.GetFolder(ctx, id)
}

// ListFolderContents returns the direct children of folderID, sorted by name.
func (s *Service) ListFolderContents(ctx context.Context, folderID string) (contents *Contents, err error) {
	ctx, span := telemetry.StartDriveSpan(ctx, OpListFolderContents, telemetry.FolderID(folderID))
	defer span.End()
	start := time.Now()
	defer func() { s.finish(ctx, OpListFolderContents, start, err) }()

	return s.store.ListChildren(ctx, folderID)
}

// Navigate opens a folder: its contents and its breadcrumbs, read in one
// transaction. When folderID does not exist the root is opened instead and
// the result is marked Redirected.
func (s *Service) Navigate(ctx context.Context, folderID string) (nav *Navigation, err error) {
	ctx, span := telemetry.StartDriveSpan(ctx, OpNavigate, telemetry.FolderID(folderID))
	defer span.End()
	start := time.Now()
	defer func() { s.finish(ctx, OpNavigate, start, err) }()

	if folderID == "" {
		folderID = RootFolderID
	}

	nav, err = s.open(ctx, folderID)
	if err == nil || !drerrors.IsNotFoundError(err) || folderID == RootFolderID {
		return nav, err
	}

	logger.InfoCtx(ctx, "Folder not found, redirecting to root",
		logger.KeyFolderID, folderID)

	nav, err = s.open(ctx, RootFolderID)
	if err != nil {
		return nil, err
	}
	nav.Redirected = true
	return nav, nil
}

func (s *Service) open(ctx context.Context, folderID string) (*Navigation, error) {
	nav := &Navigation{FolderID: folderID}
	err := s.store.WithTransaction(ctx, func(tx Transaction) error {
		contents, err := tx.ListChildren(ctx, folderID)
		if err != nil {
			return err
		}
		crumbs, err := resolveBreadcrumbs(ctx, tx, folderID)
		if err != nil {
			return err
		}
		nav.Contents = contents
		nav.Breadcrumbs = crumbs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return nav, nil
}
