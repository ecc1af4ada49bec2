package drive

import (
	"context"
	"time"

	"github.com/marmos91/dittodrive/internal/telemetry"
)

// GetFile returns the file with the given id.
func (s *Service) GetFile(ctx context.Context, id string) (file *File, err error) {
	ctx, span := telemetry.StartDriveSpan(ctx, OpGetFile, telemetry.FileID(id))
	defer span.End()
	start := time.Now()
	defer func() { s.finish(ctx, OpGetFile, start, err) }()

	return s.store.GetFile(ctx, id)
}

// RenameFile changes a file's display name. The blob and its URL are
// untouched. Renaming to the current name is a no-op.
func (s *Service) RenameFile(ctx context.Context, id, newName string) (file *File, err error) {
	ctx, span := telemetry.StartDriveSpan(ctx, OpRenameFile,
		telemetry.FileID(id), telemetry.Name(newName))
	defer span.End()
	start := time.Now()
	defer func() { s.finish(ctx, OpRenameFile, start, err) }()

	trimmed, err := validateName(newName)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTransaction(ctx, func(tx Transaction) error {
		current, err := tx.GetFile(ctx, id)
		if err != nil {
			return err
		}
		file = current
		if current.Name == trimmed {
			return nil
		}
		file.Name = trimmed
		return tx.UpdateFile(ctx, file)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateShare(id)
	return file, nil
}

// MoveFile re-parents a file under newParentID, which must exist.
func (s *Service) MoveFile(ctx context.Context, id, newParentID string) (file *File, err error) {
	ctx, span := telemetry.StartDriveSpan(ctx, OpMoveFile,
		telemetry.FileID(id), telemetry.ParentID(newParentID))
	defer span.End()
	start := time.Now()
	defer func() { s.finish(ctx, OpMoveFile, start, err) }()

	err = s.store.WithTransaction(ctx, func(tx Transaction) error {
		current, err := tx.GetFile(ctx, id)
		if err != nil {
			return err
		}
		if _, err := tx.GetFolder(ctx, newParentID); err != nil {
			return err
		}
		file = current
		if current.ParentID == newParentID {
			return nil
		}
		file.ParentID = newParentID
		return tx.UpdateFile(ctx, file)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateShare(id)
	return file, nil
}
