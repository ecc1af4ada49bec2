package drive_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	blobmemory "github.com/marmos91/dittodrive/pkg/blob/memory"
	"github.com/marmos91/dittodrive/pkg/drive"
	drerrors "github.com/marmos91/dittodrive/pkg/drive/errors"
	"github.com/marmos91/dittodrive/pkg/drive/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Fixtures
// ============================================================================

const testOwner = "user-1"

// testFixture provides a Service over a memory store and a memory blob store.
type testFixture struct {
	t       *testing.T
	ctx     context.Context
	service *drive.Service
	store   *memory.MemoryDriveStore
	blobs   *blobmemory.Store
	metrics *recordingMetrics
}

func newTestFixture(t *testing.T, opts ...func(*drive.Options)) *testFixture {
	t.Helper()

	store := memory.NewMemoryDriveStore()
	blobs := blobmemory.New("")
	metrics := &recordingMetrics{}

	options := drive.Options{Blobs: blobs, Metrics: metrics}
	for _, opt := range opts {
		opt(&options)
	}

	svc := drive.New(store, options)
	t.Cleanup(svc.Close)

	return &testFixture{
		t:       t,
		ctx:     context.Background(),
		service: svc,
		store:   store,
		blobs:   blobs,
		metrics: metrics,
	}
}

// folder creates a folder and fails the test on error.
func (f *testFixture) folder(name, parentID string) *drive.Folder {
	f.t.Helper()
	folder, err := f.service.CreateFolder(f.ctx, name, parentID, testOwner)
	require.NoError(f.t, err)
	return folder
}

// file stores a blob and its record directly, bypassing the upload path.
func (f *testFixture) file(name, parentID string, data []byte) *drive.File {
	f.t.Helper()

	key := testOwner + "/" + name
	url, err := f.blobs.Upload(f.ctx, key, bytes.NewReader(data), int64(len(data)), nil)
	require.NoError(f.t, err)

	file := &drive.File{
		ID:        "file-" + name + "-" + parentID,
		Name:      name,
		ParentID:  parentID,
		OwnerID:   testOwner,
		URL:       url,
		Size:      int64(len(data)),
		MimeType:  "text/plain",
		BlobKey:   key,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(f.t, f.store.InsertFile(f.ctx, file))
	return file
}

// recordingMetrics counts operation outcomes.
type recordingMetrics struct {
	mu       sync.Mutex
	outcomes map[string][]string
	started  int
	finished []string
	hits     int
	misses   int
}

func (m *recordingMetrics) ObserveOperation(operation, outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = make(map[string][]string)
	}
	m.outcomes[operation] = append(m.outcomes[operation], outcome)
}

func (m *recordingMetrics) UploadStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started++
}

func (m *recordingMetrics) UploadFinished(outcome string, _ int64, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, outcome)
}

func (m *recordingMetrics) ShareCacheLookup(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func (m *recordingMetrics) cacheLookups() (hits, misses int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}

func (m *recordingMetrics) outcomesOf(operation string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.outcomes[operation]...)
}

func (m *recordingMetrics) uploads() (int, []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started, append([]string(nil), m.finished...)
}

// hidingStore makes one folder invisible to reads, simulating a dangling
// parent reference.
type hidingStore struct {
	drive.Store
	hidden string
}

func (s *hidingStore) GetFolder(ctx context.Context, id string) (*drive.Folder, error) {
	if id == s.hidden {
		return nil, drerrors.NewNotFoundError(id, "folder")
	}
	return s.Store.GetFolder(ctx, id)
}

func (s *hidingStore) WithTransaction(ctx context.Context, fn func(tx drive.Transaction) error) error {
	return s.Store.WithTransaction(ctx, func(tx drive.Transaction) error {
		return fn(&hidingTx{Transaction: tx, hidden: s.hidden})
	})
}

type hidingTx struct {
	drive.Transaction
	hidden string
}

func (tx *hidingTx) GetFolder(ctx context.Context, id string) (*drive.Folder, error) {
	if id == tx.hidden {
		return nil, drerrors.NewNotFoundError(id, "folder")
	}
	return tx.Transaction.GetFolder(ctx, id)
}

// ============================================================================
// Reads
// ============================================================================

func TestService_GetFolder(t *testing.T) {
	t.Parallel()

	t.Run("root always exists", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t)

		root, err := fx.service.GetFolder(fx.ctx, drive.RootFolderID)
		require.NoError(t, err)
		assert.Equal(t, drive.RootFolderName, root.Name)
		assert.Empty(t, root.ParentID)
	})

	t.Run("missing id is NotFound", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t)

		_, err := fx.service.GetFolder(fx.ctx, "nope")
		assert.True(t, drerrors.IsNotFoundError(err))
		assert.Equal(t, []string{"NotFound"}, fx.metrics.outcomesOf(drive.OpGetFolder))
	})
}

func TestService_ListFolderContents(t *testing.T) {
	t.Parallel()
	fx := newTestFixture(t)

	work := fx.folder("Work", drive.RootFolderID)
	fx.folder("Archive", drive.RootFolderID)
	fx.folder("Reports", work.ID)
	fx.file("notes.txt", drive.RootFolderID, []byte("hi"))

	contents, err := fx.service.ListFolderContents(fx.ctx, drive.RootFolderID)
	require.NoError(t, err)

	require.Len(t, contents.Folders, 2)
	assert.Equal(t, "Archive", contents.Folders[0].Name)
	assert.Equal(t, "Work", contents.Folders[1].Name)
	require.Len(t, contents.Files, 1)
	assert.Equal(t, "notes.txt", contents.Files[0].Name)

	_, err = fx.service.ListFolderContents(fx.ctx, "missing")
	assert.True(t, drerrors.IsNotFoundError(err))
}

func TestService_Navigate(t *testing.T) {
	t.Parallel()

	t.Run("opens the folder with breadcrumbs", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t)

		work := fx.folder("Work", drive.RootFolderID)
		reports := fx.folder("Reports", work.ID)
		fx.file("q1.pdf", reports.ID, []byte("pdf"))

		nav, err := fx.service.Navigate(fx.ctx, reports.ID)
		require.NoError(t, err)
		assert.False(t, nav.Redirected)
		assert.Equal(t, reports.ID, nav.FolderID)
		assert.Len(t, nav.Contents.Files, 1)
		assert.Equal(t, []drive.Breadcrumb{
			{ID: drive.RootFolderID, Name: drive.RootFolderName},
			{ID: work.ID, Name: "Work"},
			{ID: reports.ID, Name: "Reports"},
		}, nav.Breadcrumbs)
	})

	t.Run("empty id opens the root", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t)

		nav, err := fx.service.Navigate(fx.ctx, "")
		require.NoError(t, err)
		assert.Equal(t, drive.RootFolderID, nav.FolderID)
		assert.False(t, nav.Redirected)
	})

	t.Run("missing folder redirects to root", func(t *testing.T) {
		t.Parallel()
		fx := newTestFixture(t)
		fx.folder("Work", drive.RootFolderID)

		nav, err := fx.service.Navigate(fx.ctx, "deleted-folder")
		require.NoError(t, err)
		assert.True(t, nav.Redirected)
		assert.Equal(t, drive.RootFolderID, nav.FolderID)
		assert.Equal(t, []drive.Breadcrumb{{ID: drive.RootFolderID, Name: drive.RootFolderName}}, nav.Breadcrumbs)
		assert.Len(t, nav.Contents.Folders, 1)
	})
}

func TestService_Healthcheck(t *testing.T) {
	t.Parallel()
	fx := newTestFixture(t)

	require.NoError(t, fx.service.Healthcheck(fx.ctx))

	require.NoError(t, fx.blobs.Close())
	err := fx.service.Healthcheck(fx.ctx)
	assert.True(t, drerrors.IsUpstreamError(err))
}
