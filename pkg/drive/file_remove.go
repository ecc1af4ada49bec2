package drive

import (
	"context"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/telemetry"
)

// DeleteFile removes a file record, then its blob.
//
// A missing id fails with NotFound; deleting the same file twice is
// reported to the second caller rather than silently accepted. The blob
// delete happens after the commit and is best effort: a leftover blob is
// unreachable once its record is gone.
func (s *Service) DeleteFile(ctx context.Context, id string) (err error) {
	ctx, span := telemetry.StartDriveSpan(ctx, OpDeleteFile, telemetry.FileID(id))
	defer span.End()
	start := time.Now()
	defer func() { s.finish(ctx, OpDeleteFile, start, err) }()

	var removed *File
	err = s.store.WithTransaction(ctx, func(tx Transaction) error {
		file, err := tx.GetFile(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.RemoveFile(ctx, id); err != nil {
			return err
		}
		removed = file
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidateShare(id)
	s.deleteBlobs(ctx, []string{removed.BlobKey})

	logger.DebugCtx(ctx, "File deleted",
		logger.KeyFileID, id,
		logger.KeyParentID, removed.ParentID)

	return nil
}
