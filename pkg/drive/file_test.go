package drive_test

import (
	"testing"

	"github.com/marmos91/dittodrive/pkg/drive"
	drerrors "github.com/marmos91/dittodrive/pkg/drive/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenameFile(t *testing.T) {
	t.Parallel()
	fx := newTestFixture(t)
	f := fx.file("draft.txt", drive.RootFolderID, []byte("x"))

	renamed, err := fx.service.RenameFile(fx.ctx, f.ID, " final.txt ")
	require.NoError(t, err)
	assert.Equal(t, "final.txt", renamed.Name)
	assert.Equal(t, f.URL, renamed.URL)

	_, err = fx.service.RenameFile(fx.ctx, f.ID, "v2.txt")
	require.NoError(t, err)
	contents, err := fx.service.ListFolderContents(fx.ctx, drive.RootFolderID)
	require.NoError(t, err)
	require.Len(t, contents.Files, 1)
	assert.Equal(t, "v2.txt", contents.Files[0].Name)

	_, err = fx.service.RenameFile(fx.ctx, f.ID, "")
	assert.True(t, drerrors.IsInvalidNameError(err))

	_, err = fx.service.RenameFile(fx.ctx, "missing", "x")
	assert.True(t, drerrors.IsNotFoundError(err))
}

func TestMoveFile(t *testing.T) {
	t.Parallel()
	fx := newTestFixture(t)

	work := fx.folder("Work", drive.RootFolderID)
	f := fx.file("a.txt", drive.RootFolderID, []byte("x"))

	moved, err := fx.service.MoveFile(fx.ctx, f.ID, work.ID)
	require.NoError(t, err)
	assert.Equal(t, work.ID, moved.ParentID)

	contents, err := fx.service.ListFolderContents(fx.ctx, work.ID)
	require.NoError(t, err)
	require.Len(t, contents.Files, 1)

	root, err := fx.service.ListFolderContents(fx.ctx, drive.RootFolderID)
	require.NoError(t, err)
	assert.Empty(t, root.Files)

	_, err = fx.service.MoveFile(fx.ctx, f.ID, "missing")
	assert.True(t, drerrors.IsNotFoundError(err))

	_, err = fx.service.MoveFile(fx.ctx, "missing", work.ID)
	assert.True(t, drerrors.IsNotFoundError(err))
}

func TestDeleteFile(t *testing.T) {
	t.Parallel()

	t.Run("removes record and blob", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t)
		f := fx.file("a.txt", drive.RootFolderID, []byte("x"))

		require.NoError(t, fx.service.DeleteFile(fx.ctx, f.ID))

		_, err := fx.service.GetFile(fx.ctx, f.ID)
		assert.True(t, drerrors.IsNotFoundError(err))
		assert.Equal(t, 0, fx.blobs.Len())
	})

	t.Run("missing file is NotFound", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t)

		err := fx.service.DeleteFile(fx.ctx, "missing")
		assert.True(t, drerrors.IsNotFoundError(err))
	})
}
