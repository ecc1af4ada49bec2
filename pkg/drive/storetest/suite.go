package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/drive"
)

// StoreFactory creates a fresh drive.Store instance for each test.
// The factory receives *testing.T so it can use t.TempDir() for stores
// that need filesystem paths and t.Cleanup() for teardown.
type StoreFactory func(t *testing.T) drive.Store

// RunConformanceSuite runs the full conformance test suite against the provided
// store factory. Each test gets a fresh store instance to ensure isolation.
//
// The suite covers three categories:
//   - FolderOps: root record, folder CRUD, listing, non-empty removal
//   - FileOps: file CRUD, re-parenting, missing parents
//   - Transactions: commit visibility, rollback on error, insert racing remove
func RunConformanceSuite(t *testing.T, factory StoreFactory) {
	t.Helper()

	t.Run("FolderOps", func(t *testing.T) {
		runFolderOpsTests(t, factory)
	})

	t.Run("FileOps", func(t *testing.T) {
		runFileOpsTests(t, factory)
	})

	t.Run("Transactions", func(t *testing.T) {
		runTransactionTests(t, factory)
	})
}

// createTestFolder is a helper that inserts a folder under parentID.
func createTestFolder(t *testing.T, store drive.Store, parentID, name string) *drive.Folder {
	t.Helper()

	folder := &drive.Folder{
		ID:        uuid.NewString(),
		Name:      name,
		ParentID:  parentID,
		OwnerID:   "user1",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := store.InsertFolder(t.Context(), folder); err != nil {
		t.Fatalf("InsertFolder(%q) failed: %v", name, err)
	}
	return folder
}

// createTestFile is a helper that inserts a file under parentID.
func createTestFile(t *testing.T, store drive.Store, parentID, name string) *drive.File {
	t.Helper()

	file := &drive.File{
		ID:        uuid.NewString(),
		Name:      name,
		ParentID:  parentID,
		OwnerID:   "user1",
		URL:       "https://blobs.example.com/" + name,
		Size:      1234,
		MimeType:  "application/octet-stream",
		BlobKey:   "blobs/" + name,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	if err := store.InsertFile(t.Context(), file); err != nil {
		t.Fatalf("InsertFile(%q) failed: %v", name, err)
	}
	return file
}

func folderNames(contents *drive.Contents) []string {
	names := make([]string, len(contents.Folders))
	for i, f := range contents.Folders {
		names[i] = f.Name
	}
	return names
}

func fileNames(contents *drive.Contents) []string {
	names := make([]string, len(contents.Files))
	for i, f := range contents.Files {
		names[i] = f.Name
	}
	return names
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func contextWithCancel(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithCancel(t.Context())
}
