package drive_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/marmos91/dittodrive/pkg/drive"
	drerrors "github.com/marmos91/dittodrive/pkg/drive/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeleteFolder(t *testing.T) {
	t.Parallel()

	t.Run("removes the whole subtree", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t)

		// Work/{a.txt, Reports/{b.txt, Q1/{c.txt}}, Empty}
		work := fx.folder("Work", drive.RootFolderID)
		reports := fx.folder("Reports", work.ID)
		q1 := fx.folder("Q1", reports.ID)
		empty := fx.folder("Empty", work.ID)
		other := fx.folder("Other", drive.RootFolderID)
		fa := fx.file("a.txt", work.ID, []byte("a"))
		fb := fx.file("b.txt", reports.ID, []byte("b"))
		fc := fx.file("c.txt", q1.ID, []byte("c"))
		keep := fx.file("keep.txt", other.ID, []byte("k"))

		result, err := fx.service.DeleteFolder(fx.ctx, work.ID)
		require.NoError(t, err)
		assert.Equal(t, drive.DeleteResult{Folders: 4, Files: 3}, result)

		for _, id := range []string{work.ID, reports.ID, q1.ID, empty.ID} {
			_, err := fx.service.GetFolder(fx.ctx, id)
			assert.True(t, drerrors.IsNotFoundError(err), "folder %s", id)
		}
		for _, f := range []*drive.File{fa, fb, fc} {
			_, err := fx.service.GetFile(fx.ctx, f.ID)
			assert.True(t, drerrors.IsNotFoundError(err), "file %s", f.ID)
			_, err = fx.blobs.Get(f.BlobKey)
			assert.Error(t, err, "blob %s", f.BlobKey)
		}

		_, err = fx.service.GetFile(fx.ctx, keep.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, fx.blobs.Len())

		count, err := fx.store.CountFolders(fx.ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("empty folder", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t)
		work := fx.folder("Work", drive.RootFolderID)

		result, err := fx.service.DeleteFolder(fx.ctx, work.ID)
		require.NoError(t, err)
		assert.Equal(t, drive.DeleteResult{Folders: 1}, result)
	})

	t.Run("root cannot be deleted", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t)
		fx.folder("Work", drive.RootFolderID)

		_, err := fx.service.DeleteFolder(fx.ctx, drive.RootFolderID)
		assert.True(t, drerrors.IsPermissionDeniedError(err))

		contents, err := fx.service.ListFolderContents(fx.ctx, drive.RootFolderID)
		require.NoError(t, err)
		assert.Len(t, contents.Folders, 1)
	})

	t.Run("missing folder is NotFound", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t)

		_, err := fx.service.DeleteFolder(fx.ctx, "missing")
		assert.True(t, drerrors.IsNotFoundError(err))
	})

	t.Run("cycle is CorruptHierarchy and removes nothing", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t)

		a := fx.folder("A", drive.RootFolderID)
		b := fx.folder("B", a.ID)
		a.ParentID = b.ID
		require.NoError(t, fx.store.UpdateFolder(fx.ctx, a))

		_, err := fx.service.DeleteFolder(fx.ctx, a.ID)
		assert.True(t, drerrors.IsCorruptHierarchyError(err))

		_, err = fx.store.GetFolder(fx.ctx, b.ID)
		assert.NoError(t, err)
	})
}

// A create under a folder racing the recursive delete of an ancestor either
// lands before the delete (and is removed with the subtree) or fails with
// NotFound. It never leaves a record whose parent is gone.
func TestDeleteFolder_ConcurrentCreateLeavesNoOrphans(t *testing.T) {
	t.Parallel()

	for round := 0; round < 20; round++ {
		fx := newTestFixture(t)

		work := fx.folder("Work", drive.RootFolderID)
		reports := fx.folder("Reports", work.ID)

		var wg sync.WaitGroup
		created := make(chan *drive.Folder, 16)
		errs := make(chan error, 16)

		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				parent := work.ID
				if i%2 == 1 {
					parent = reports.ID
				}
				f, err := fx.service.CreateFolder(fx.ctx, fmt.Sprintf("new-%d", i), parent, testOwner)
				if err != nil {
					errs <- err
					return
				}
				created <- f
			}(i)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.service.DeleteFolder(fx.ctx, work.ID)
			assert.NoError(t, err)
		}()

		wg.Wait()
		close(created)
		close(errs)

		for err := range errs {
			assert.True(t, drerrors.IsNotFoundError(err), "round %d: %v", round, err)
		}
		for f := range created {
			_, err := fx.store.GetFolder(fx.ctx, f.ID)
			assert.True(t, drerrors.IsNotFoundError(err), "round %d: orphan %s survived", round, f.ID)
		}

		count, err := fx.store.CountFolders(fx.ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "round %d", round)
	}
}
