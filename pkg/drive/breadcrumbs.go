package drive

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/internal/telemetry"
	drerrors "github.com/marmos91/dittodrive/pkg/drive/errors"
)

// GetBreadcrumbs returns the trail from the root to folderID, both ends
// included. The root alone yields a single entry.
//
// The walk is bounded by the number of folders in the store: a parent chain
// longer than that must contain a cycle. Both a cycle and an ancestor that
// no longer exists fail with CorruptHierarchy. A missing folderID fails
// with NotFound.
func (s *Service) GetBreadcrumbs(ctx context.Context, folderID string) (crumbs []Breadcrumb, err error) {
	ctx, span := telemetry.StartDriveSpan(ctx, OpGetBreadcrumbs, telemetry.FolderID(folderID))
	defer span.End()
	start := time.Now()
	defer func() { s.finish(ctx, OpGetBreadcrumbs, start, err) }()

	err = s.store.WithTransaction(ctx, func(tx Transaction) error {
		var txErr error
		crumbs, txErr = resolveBreadcrumbs(ctx, tx, folderID)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return crumbs, nil
}

// resolveBreadcrumbs walks ParentID links upward from folderID.
func resolveBreadcrumbs(ctx context.Context, tx Transaction, folderID string) ([]Breadcrumb, error) {
	folder, err := tx.GetFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}

	root := Breadcrumb{ID: RootFolderID, Name: RootFolderName}
	if folder.IsRoot() {
		return []Breadcrumb{root}, nil
	}

	bound, err := tx.CountFolders(ctx)
	if err != nil {
		return nil, err
	}

	// Collected leaf first, reversed at the end.
	trail := []Breadcrumb{{ID: folder.ID, Name: folder.Name}}
	current := folder

	for steps := 0; ; steps++ {
		if steps >= bound {
			logger.ErrorCtx(ctx, "Ancestor walk exceeded folder count",
				logger.KeyFolderID, folderID,
				logger.KeyDepth, steps)
			return nil, drerrors.NewCorruptHierarchyError(folderID,
				fmt.Sprintf("ancestor walk exceeded %d steps", bound))
		}

		parentID := current.ParentID
		if parentID == "" {
			logger.ErrorCtx(ctx, "Non-root folder has no parent",
				logger.KeyFolderID, current.ID)
			return nil, drerrors.NewCorruptHierarchyError(folderID,
				fmt.Sprintf("folder %s has no parent", current.ID))
		}
		if parentID == RootFolderID {
			break
		}

		parent, err := tx.GetFolder(ctx, parentID)
		if err != nil {
			if drerrors.IsNotFoundError(err) {
				logger.ErrorCtx(ctx, "Dangling parent reference",
					logger.KeyFolderID, current.ID,
					logger.KeyParentID, parentID)
				return nil, drerrors.NewCorruptHierarchyError(folderID,
					fmt.Sprintf("ancestor %s of %s does not exist", parentID, current.ID))
			}
			return nil, err
		}

		trail = append(trail, Breadcrumb{ID: parent.ID, Name: parent.Name})
		current = parent
	}

	crumbs := make([]Breadcrumb, 0, len(trail)+1)
	crumbs = append(crumbs, root)
	for i := len(trail) - 1; i >= 0; i-- {
		crumbs = append(crumbs, trail[i])
	}
	return crumbs, nil
}
