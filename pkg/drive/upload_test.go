package drive_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/dittodrive/pkg/blob"
	"github.com/marmos91/dittodrive/pkg/drive"
	drerrors "github.com/marmos91/dittodrive/pkg/drive/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedBlobs is a blob store whose uploads can be held open or failed.
type scriptedBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string

	// started receives one value per Upload call once the bytes are read.
	started chan string
	// release, when set, holds every upload until closed or cancelled.
	release chan struct{}
	err     error
}

func newScriptedBlobs() *scriptedBlobs {
	return &scriptedBlobs{
		objects: make(map[string][]byte),
		started: make(chan string, 16),
	}
}

func (b *scriptedBlobs) Upload(ctx context.Context, key string, data io.Reader, size int64, onProgress blob.ProgressFunc) (string, error) {
	pr := blob.NewProgressReader(data, size, onProgress)
	buf, err := io.ReadAll(pr)
	if err != nil {
		return "", err
	}
	b.started <- key

	if b.release != nil {
		select {
		case <-b.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if b.err != nil {
		return "", b.err
	}

	b.mu.Lock()
	b.objects[key] = buf
	b.mu.Unlock()

	pr.Complete()
	return "mem://" + key, nil
}

func (b *scriptedBlobs) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	b.deleted = append(b.deleted, key)
	return nil
}

func (b *scriptedBlobs) Healthcheck(context.Context) error { return nil }
func (b *scriptedBlobs) Close() error                      { return nil }

func (b *scriptedBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.objects)
}

func (b *scriptedBlobs) deletedKeys() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.deleted...)
}

// uploadFixture is a testFixture plus an UploadManager over scripted blobs.
type uploadFixture struct {
	*testFixture
	blobs   *scriptedBlobs
	uploads *drive.UploadManager
}

func newUploadFixture(t *testing.T, cfg drive.UploadConfig) *uploadFixture {
	t.Helper()

	blobs := newScriptedBlobs()
	fx := newTestFixture(t, func(o *drive.Options) { o.Blobs = blobs })
	uploads := drive.NewUploadManager(fx.service, cfg)
	t.Cleanup(uploads.Close)

	return &uploadFixture{testFixture: fx, blobs: blobs, uploads: uploads}
}

func (f *uploadFixture) start(name, parentID, data string) *drive.Upload {
	f.t.Helper()
	u, err := f.uploads.Start(f.ctx, drive.UploadRequest{
		Name:     name,
		ParentID: parentID,
		OwnerID:  testOwner,
		MimeType: "text/plain",
		Data:     []byte(data),
	})
	require.NoError(f.t, err)
	return u
}

func drainProgress(u *drive.Upload) []int {
	var values []int
	for p := range u.Progress() {
		values = append(values, p)
	}
	return values
}

func TestUpload_Success(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t, drive.UploadConfig{})
	work := fx.folder("Work", drive.RootFolderID)

	u := fx.start(" report.txt ", work.ID, strings.Repeat("x", 4096))
	assert.Contains(t, u.ID(), "-report.txt")

	progress := drainProgress(u)
	file, err := u.Result()
	require.NoError(t, err)

	assert.Equal(t, "report.txt", file.Name)
	assert.Equal(t, work.ID, file.ParentID)
	assert.Equal(t, int64(4096), file.Size)
	assert.True(t, strings.HasPrefix(file.URL, "mem://"+testOwner+"/"))

	require.NotEmpty(t, progress)
	assert.Equal(t, 100, progress[len(progress)-1])
	for i := 1; i < len(progress); i++ {
		assert.LessOrEqual(t, progress[i-1], progress[i])
	}

	contents, err := fx.service.ListFolderContents(fx.ctx, work.ID)
	require.NoError(t, err)
	require.Len(t, contents.Files, 1)
	assert.Equal(t, file.ID, contents.Files[0].ID)
	assert.Equal(t, 1, fx.blobs.count())

	snap := u.Snapshot()
	assert.True(t, snap.IsComplete)
	assert.Equal(t, 100, snap.Progress)
	assert.Empty(t, snap.Error)
	require.NotNil(t, snap.File)
	assert.Equal(t, file.ID, snap.File.ID)

	started, finished := fx.metrics.uploads()
	assert.Equal(t, 1, started)
	assert.Equal(t, []string{drive.OutcomeOK}, finished)
}

func TestUpload_Validation(t *testing.T) {
	t.Parallel()

	t.Run("blank name", func(t *testing.T) {
		t.Parallel()
		fx := newUploadFixture(t, drive.UploadConfig{})

		_, err := fx.uploads.Start(fx.ctx, drive.UploadRequest{Name: " ", ParentID: drive.RootFolderID, Data: []byte("x")})
		assert.True(t, drerrors.IsInvalidNameError(err))
		assert.Empty(t, fx.uploads.List())
	})

	t.Run("missing parent", func(t *testing.T) {
		t.Parallel()
		fx := newUploadFixture(t, drive.UploadConfig{})

		_, err := fx.uploads.Start(fx.ctx, drive.UploadRequest{Name: "a", ParentID: "missing", Data: []byte("x")})
		assert.True(t, drerrors.IsNotFoundError(err))
		assert.Empty(t, fx.uploads.List())
	})

	t.Run("too large", func(t *testing.T) {
		t.Parallel()
		fx := newUploadFixture(t, drive.UploadConfig{MaxSize: 4})

		_, err := fx.uploads.Start(fx.ctx, drive.UploadRequest{Name: "a", ParentID: drive.RootFolderID, Data: []byte("12345")})
		assert.ErrorIs(t, err, drive.ErrUploadTooLarge)
	})

	t.Run("no blob store", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t, func(o *drive.Options) { o.Blobs = nil })
		uploads := drive.NewUploadManager(fx.service, drive.UploadConfig{})
		defer uploads.Close()

		_, err := uploads.Start(fx.ctx, drive.UploadRequest{Name: "a", ParentID: drive.RootFolderID})
		assert.ErrorIs(t, err, drive.ErrNoBlobStore)
	})
}

func TestUpload_BlobFailureKeepsTask(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t, drive.UploadConfig{CompletedRetention: 10 * time.Millisecond})
	fx.blobs.err = errors.New("bucket unavailable")

	u := fx.start("a.txt", drive.RootFolderID, "data")
	_, err := u.Result()
	require.Error(t, err)
	assert.True(t, drerrors.IsUpstreamError(err))

	contents, err := fx.service.ListFolderContents(fx.ctx, drive.RootFolderID)
	require.NoError(t, err)
	assert.Empty(t, contents.Files)

	// Failed tasks outlive the retention window.
	time.Sleep(50 * time.Millisecond)
	tasks := fx.uploads.List()
	require.Len(t, tasks, 1)
	assert.Equal(t, u.ID(), tasks[0].ID)
	assert.Contains(t, tasks[0].Error, "bucket unavailable")
	assert.Equal(t, "UpstreamFailure", tasks[0].ErrorCode)
	assert.False(t, tasks[0].IsComplete)

	require.NoError(t, fx.uploads.Dismiss(u.ID()))
	assert.Empty(t, fx.uploads.List())

	_, finished := fx.metrics.uploads()
	assert.Equal(t, []string{"UpstreamFailure"}, finished)
}

func TestUpload_Cancel(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t, drive.UploadConfig{})
	fx.blobs.release = make(chan struct{})

	u := fx.start("big.bin", drive.RootFolderID, "data")
	<-fx.blobs.started

	assert.ErrorIs(t, fx.uploads.Dismiss(u.ID()), drive.ErrUploadRunning)
	require.NoError(t, fx.uploads.Cancel(u.ID()))

	_, err := u.Result()
	assert.True(t, drerrors.IsUpstreamError(err))

	snap := u.Snapshot()
	assert.True(t, snap.IsCancelled)
	assert.NotEmpty(t, snap.Error)

	contents, err := fx.service.ListFolderContents(fx.ctx, drive.RootFolderID)
	require.NoError(t, err)
	assert.Empty(t, contents.Files)
	assert.Len(t, fx.uploads.List(), 1)

	assert.True(t, drerrors.IsNotFoundError(fx.uploads.Cancel("missing")))
}

func TestUpload_Timeout(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t, drive.UploadConfig{Timeout: 20 * time.Millisecond})
	fx.blobs.release = make(chan struct{})

	u := fx.start("slow.bin", drive.RootFolderID, "data")
	_, err := u.Result()
	assert.True(t, drerrors.IsUpstreamError(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, u.Snapshot().IsCancelled)
}

func TestUpload_CompletedTaskExpires(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t, drive.UploadConfig{CompletedRetention: 20 * time.Millisecond})

	u := fx.start("a.txt", drive.RootFolderID, "data")
	_, err := u.Result()
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(fx.uploads.List()) == 0
	}, time.Second, 5*time.Millisecond)

	_, ok := fx.uploads.Get(u.ID())
	assert.False(t, ok)
}

func TestUpload_ParentDeletedDuringTransfer(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t, drive.UploadConfig{})
	fx.blobs.release = make(chan struct{})
	work := fx.folder("Work", drive.RootFolderID)

	u := fx.start("a.txt", work.ID, "data")
	key := <-fx.blobs.started

	_, err := fx.service.DeleteFolder(fx.ctx, work.ID)
	require.NoError(t, err)
	close(fx.blobs.release)

	_, err = u.Result()
	assert.True(t, drerrors.IsNotFoundError(err))
	assert.Contains(t, fx.blobs.deletedKeys(), key)
	assert.Equal(t, 0, fx.blobs.count())

	count, err := fx.store.CountFolders(fx.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpload_IndependentTasks(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t, drive.UploadConfig{})

	a := fx.start("same.txt", drive.RootFolderID, "a")
	b := fx.start("same.txt", drive.RootFolderID, "b")
	assert.NotEqual(t, a.ID(), b.ID())

	fa, err := a.Result()
	require.NoError(t, err)
	fb, err := b.Result()
	require.NoError(t, err)
	assert.NotEqual(t, fa.ID, fb.ID)

	tasks := fx.uploads.ListByOwner(testOwner)
	assert.Len(t, tasks, 2)
	assert.Empty(t, fx.uploads.ListByOwner("someone-else"))
}

func TestUploadManager_Close(t *testing.T) {
	t.Parallel()
	fx := newUploadFixture(t, drive.UploadConfig{})
	fx.blobs.release = make(chan struct{})

	u := fx.start("a.txt", drive.RootFolderID, "data")
	<-fx.blobs.started

	fx.uploads.Close()

	select {
	case <-u.Done():
	default:
		t.Fatal("upload still running after Close")
	}
	_, err := u.Result()
	assert.True(t, drerrors.IsUpstreamError(err))

	_, err = fx.uploads.Start(fx.ctx, drive.UploadRequest{Name: "b", ParentID: drive.RootFolderID})
	assert.ErrorIs(t, err, drive.ErrUploadsClosed)
}
