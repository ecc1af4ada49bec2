package drive

import (
	"context"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/telemetry"
	drerrors "github.com/marmos91/dittodrive/pkg/drive/errors"
)

// maxDeleteAttempts bounds retries of a recursive delete that lost a race
// with a concurrent insert under the subtree.
const maxDeleteAttempts = 3

// subtree is the result of a depth-first walk below a folder.
type subtree struct {
	// folders in discovery order: every folder appears after its parent.
	folders []string
	files   []*File
}

// DeleteFolder removes a folder together with everything below it.
//
// The walk and the removals run in one transaction: either the whole
// subtree is gone afterwards or nothing changed. Files are removed first,
// then folders in reverse discovery order so no folder is removed while it
// still has children. Blobs of removed files are deleted after the commit,
// best effort. The root cannot be deleted.
func (s *Service) DeleteFolder(ctx context.Context, id string) (result DeleteResult, err error) {
	ctx, span := telemetry.StartDriveSpan(ctx, OpDeleteFolder, telemetry.FolderID(id))
	defer span.End()
	start := time.Now()
	defer func() { s.finish(ctx, OpDeleteFolder, start, err) }()

	if id == RootFolderID {
		return DeleteResult{}, drerrors.NewPermissionDeniedError(id, "the root folder cannot be deleted")
	}

	var tree *subtree
	for attempt := 1; ; attempt++ {
		err = s.store.WithTransaction(ctx, func(tx Transaction) error {
			if _, err := tx.GetFolder(ctx, id); err != nil {
				return err
			}

			t, err := collectSubtree(ctx, tx, id)
			if err != nil {
				return err
			}

			for _, f := range t.files {
				if err := tx.RemoveFile(ctx, f.ID); err != nil {
					return err
				}
			}
			for i := len(t.folders) - 1; i >= 0; i-- {
				if err := tx.RemoveFolder(ctx, t.folders[i]); err != nil {
					return err
				}
			}

			tree = t
			return nil
		})

		// NotEmpty means a child was linked after the walk read the
		// folder. Walk again; the new child is part of the subtree now.
		if err != nil && drerrors.IsNotEmptyError(err) && attempt < maxDeleteAttempts {
			logger.DebugCtx(ctx, "Subtree changed during delete, retrying",
				logger.KeyFolderID, id,
				logger.KeyAttempt, attempt)
			continue
		}
		break
	}
	if err != nil {
		return DeleteResult{}, err
	}

	result = DeleteResult{Folders: len(tree.folders), Files: len(tree.files)}
	span.SetAttributes(telemetry.Folders(result.Folders), telemetry.Files(result.Files))

	keys := make([]string, 0, len(tree.files))
	for _, f := range tree.files {
		s.invalidateShare(f.ID)
		keys = append(keys, f.BlobKey)
	}
	s.deleteBlobs(ctx, keys)

	logger.InfoCtx(ctx, "Folder deleted",
		logger.KeyFolderID, id,
		logger.KeyFolders, result.Folders,
		logger.KeyFiles, result.Files)

	return result, nil
}

// collectSubtree walks every folder below rootID, rootID included, with an
// explicit stack. A folder reached twice means the parent links form a
// cycle.
func collectSubtree(ctx context.Context, tx Transaction, rootID string) (*subtree, error) {
	t := &subtree{}
	seen := map[string]struct{}{rootID: {}}
	stack := []string{rootID}

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		t.folders = append(t.folders, id)

		contents, err := tx.ListChildren(ctx, id)
		if err != nil {
			return nil, err
		}
		t.files = append(t.files, contents.Files...)

		for _, child := range contents.Folders {
			if _, dup := seen[child.ID]; dup {
				logger.ErrorCtx(ctx, "Folder reached twice during subtree walk",
					logger.KeyFolderID, child.ID,
					logger.KeyParentID, id)
				return nil, drerrors.NewCorruptHierarchyError(rootID, "subtree contains a cycle")
			}
			seen[child.ID] = struct{}{}
			stack = append(stack, child.ID)
		}
	}

	return t, nil
}
