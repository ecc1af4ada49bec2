package drive_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	blobmemory "github.com/marmos91/dittodrive/pkg/blob/memory"
	"github.com/marmos91/dittodrive/pkg/drive"
	drerrors "github.com/marmos91/dittodrive/pkg/drive/errors"
	"github.com/marmos91/dittodrive/pkg/drive/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withShareCache(o *drive.Options) {
	o.ShareCacheSize = 128
	o.ShareCacheTTL = time.Minute
}

func TestGetSharedFile(t *testing.T) {
	t.Parallel()

	t.Run("returns metadata regardless of folder", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t)

		deep := fx.folder("Private", fx.folder("Work", drive.RootFolderID).ID)
		f := fx.file("plan.pdf", deep.ID, []byte("pdf"))

		got, err := fx.service.GetSharedFile(fx.ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, f.Name, got.Name)
		assert.Equal(t, f.URL, got.URL)
	})

	t.Run("unknown id is NotFound", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t, withShareCache)

		_, err := fx.service.GetSharedFile(fx.ctx, "missing")
		assert.True(t, drerrors.IsNotFoundError(err))
	})

	t.Run("policy can deny", func(t *testing.T) {
		t.Parallel()
		denied := errors.New("sharing disabled")
		fx := newTestFixture(t, func(o *drive.Options) {
			o.SharePolicy = drive.SharePolicyFunc(func(_ context.Context, f *drive.File) error {
				if f.MimeType == "text/plain" {
					return drerrors.NewPermissionDeniedError(f.ID, denied.Error())
				}
				return nil
			})
		})
		f := fx.file("secret.txt", drive.RootFolderID, []byte("x"))

		_, err := fx.service.GetSharedFile(fx.ctx, f.ID)
		assert.True(t, drerrors.IsPermissionDeniedError(err))
	})

	t.Run("policy consulted on cache hits", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int32
		fx := newTestFixture(t, withShareCache, func(o *drive.Options) {
			o.SharePolicy = drive.SharePolicyFunc(func(context.Context, *drive.File) error {
				calls.Add(1)
				return nil
			})
		})
		f := fx.file("a.txt", drive.RootFolderID, []byte("x"))

		for i := 0; i < 3; i++ {
			_, err := fx.service.GetSharedFile(fx.ctx, f.ID)
			require.NoError(t, err)
		}
		assert.Equal(t, int32(3), calls.Load())

		hits, misses := fx.metrics.cacheLookups()
		assert.Equal(t, 2, hits)
		assert.Equal(t, 1, misses)
	})

	t.Run("rename invalidates cache", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t, withShareCache)
		f := fx.file("a.txt", drive.RootFolderID, []byte("x"))

		_, err := fx.service.GetSharedFile(fx.ctx, f.ID)
		require.NoError(t, err)

		_, err = fx.service.RenameFile(fx.ctx, f.ID, "b.txt")
		require.NoError(t, err)

		got, err := fx.service.GetSharedFile(fx.ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, "b.txt", got.Name)
	})

	t.Run("delete invalidates cache", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t, withShareCache)
		f := fx.file("a.txt", drive.RootFolderID, []byte("x"))

		_, err := fx.service.GetSharedFile(fx.ctx, f.ID)
		require.NoError(t, err)
		require.NoError(t, fx.service.DeleteFile(fx.ctx, f.ID))

		_, err = fx.service.GetSharedFile(fx.ctx, f.ID)
		assert.True(t, drerrors.IsNotFoundError(err))
	})

	t.Run("folder delete invalidates cache", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t, withShareCache)
		work := fx.folder("Work", drive.RootFolderID)
		f := fx.file("a.txt", work.ID, []byte("x"))

		_, err := fx.service.GetSharedFile(fx.ctx, f.ID)
		require.NoError(t, err)
		_, err = fx.service.DeleteFolder(fx.ctx, work.ID)
		require.NoError(t, err)

		_, err = fx.service.GetSharedFile(fx.ctx, f.ID)
		assert.True(t, drerrors.IsNotFoundError(err))
	})

	t.Run("returned record is a copy", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t, withShareCache)
		f := fx.file("a.txt", drive.RootFolderID, []byte("x"))

		got, err := fx.service.GetSharedFile(fx.ctx, f.ID)
		require.NoError(t, err)
		got.Name = "mutated"

		again, err := fx.service.GetSharedFile(fx.ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, "a.txt", again.Name)
	})
}

// stallingStore parks the first GetFile after it read the record, until
// release is closed.
type stallingStore struct {
	drive.Store
	armed   atomic.Bool
	read    chan struct{}
	release chan struct{}
}

func (s *stallingStore) GetFile(ctx context.Context, id string) (*drive.File, error) {
	file, err := s.Store.GetFile(ctx, id)
	if s.armed.CompareAndSwap(true, false) {
		close(s.read)
		<-s.release
	}
	return file, err
}

func TestGetSharedFileRacingDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := &stallingStore{
		Store:   memory.NewMemoryDriveStore(),
		read:    make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := drive.New(store, drive.Options{
		Blobs:          blobmemory.New(""),
		ShareCacheSize: 16,
		ShareCacheTTL:  time.Minute,
	})
	t.Cleanup(svc.Close)

	f := &drive.File{ID: "f1", Name: "a.txt", ParentID: drive.RootFolderID, OwnerID: testOwner}
	require.NoError(t, store.InsertFile(ctx, f))

	store.armed.Store(true)
	done := make(chan error, 1)
	go func() {
		_, err := svc.GetSharedFile(ctx, f.ID)
		done <- err
	}()

	<-store.read
	require.NoError(t, svc.DeleteFile(ctx, f.ID))
	close(store.release)
	require.NoError(t, <-done)

	_, err := svc.GetSharedFile(ctx, f.ID)
	assert.True(t, drerrors.IsNotFoundError(err), "got %v", err)
}
