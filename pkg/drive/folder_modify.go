package drive

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/telemetry"
	drerrors "github.com/marmos91/dittodrive/pkg/drive/errors"
)

// CreateFolder creates a folder named name under parentID.
//
// The name is trimmed and must not be empty. Siblings may share a name;
// folders are identified by id only. The parent is checked inside the same
// transaction as the insert, so a create racing a recursive delete of the
// parent either lands before the delete (and is swept by it) or fails with
// NotFound.
func (s *Service) CreateFolder(ctx context.Context, name, parentID, ownerID string) (folder *Folder, err error) {
	ctx, span := telemetry.StartDriveSpan(ctx, OpCreateFolder,
		telemetry.ParentID(parentID), telemetry.Name(name))
	defer span.End()
	start := time.Now()
	defer func() { s.finish(ctx, OpCreateFolder, start, err) }()

	trimmed, err := validateName(name)
	if err != nil {
		return nil, err
	}

	folder = &Folder{
		ID:        uuid.New().String(),
		Name:      trimmed,
		ParentID:  parentID,
		OwnerID:   ownerID,
		CreatedAt: time.Now().UTC(),
	}

	err = s.store.WithTransaction(ctx, func(tx Transaction) error {
		if _, err := tx.GetFolder(ctx, parentID); err != nil {
			return err
		}
		return tx.InsertFolder(ctx, folder)
	})
	if err != nil {
		return nil, err
	}

	logger.DebugCtx(ctx, "Folder created",
		logger.KeyFolderID, folder.ID,
		logger.KeyParentID, parentID,
		logger.KeyName, folder.Name)

	return folder.Clone(), nil
}

// RenameFolder changes a folder's display name. Renaming to the current
// name is a no-op. The root cannot be renamed.
func (s *Service) RenameFolder(ctx context.Context, id, newName string) (folder *Folder, err error) {
	ctx, span := telemetry.StartDriveSpan(ctx, OpRenameFolder,
		telemetry.FolderID(id), telemetry.Name(newName))
	defer span.End()
	start := time.Now()
	defer func() { s.finish(ctx, OpRenameFolder, start, err) }()

	trimmed, err := validateName(newName)
	if err != nil {
		return nil, err
	}
	if id == RootFolderID {
		return nil, drerrors.NewPermissionDeniedError(id, "the root folder cannot be renamed")
	}

	err = s.store.WithTransaction(ctx, func(tx Transaction) error {
		current, err := tx.GetFolder(ctx, id)
		if err != nil {
			return err
		}
		folder = current
		if current.Name == trimmed {
			return nil
		}
		folder.Name = trimmed
		return tx.UpdateFolder(ctx, folder)
	})
	if err != nil {
		return nil, err
	}
	return folder, nil
}

// MoveFolder re-parents a folder under newParentID.
//
// Moving a folder into itself or into one of its descendants fails with
// InvalidMove. The root cannot be moved. Moving to the current parent is a
// no-op.
func (s *Service) MoveFolder(ctx context.Context, id, newParentID string) (folder *Folder, err error) {
	ctx, span := telemetry.StartDriveSpan(ctx, OpMoveFolder,
		telemetry.FolderID(id), telemetry.ParentID(newParentID))
	defer span.End()
	start := time.Now()
	defer func() { s.finish(ctx, OpMoveFolder, start, err) }()

	if id == RootFolderID {
		return nil, drerrors.NewPermissionDeniedError(id, "the root folder cannot be moved")
	}

	err = s.store.WithTransaction(ctx, func(tx Transaction) error {
		current, err := tx.GetFolder(ctx, id)
		if err != nil {
			return err
		}
		if newParentID == id {
			return drerrors.NewInvalidMoveError(id, newParentID, "a folder cannot contain itself")
		}

		// The target's ancestry includes the target itself, so this also
		// catches moves into a descendant.
		ancestry, err := resolveBreadcrumbs(ctx, tx, newParentID)
		if err != nil {
			return err
		}
		for _, crumb := range ancestry {
			if crumb.ID == id {
				return drerrors.NewInvalidMoveError(id, newParentID, "target is a descendant of the folder")
			}
		}

		folder = current
		if current.ParentID == newParentID {
			return nil
		}
		folder.ParentID = newParentID
		return tx.UpdateFolder(ctx, folder)
	})
	if err != nil {
		return nil, err
	}

	logger.DebugCtx(ctx, "Folder moved",
		logger.KeyFolderID, id,
		logger.KeyTargetID, newParentID)

	return folder, nil
}
