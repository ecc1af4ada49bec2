package storetest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/drive"
)

// runFileOpsTests runs all file operation conformance tests.
func runFileOpsTests(t *testing.T, factory StoreFactory) {
	t.Run("InsertAndGetFile", func(t *testing.T) { testInsertAndGetFile(t, factory) })
	t.Run("InsertFileMissingParent", func(t *testing.T) { testInsertFileMissingParent(t, factory) })
	t.Run("UpdateFile", func(t *testing.T) { testUpdateFile(t, factory) })
	t.Run("RemoveFile", func(t *testing.T) { testRemoveFile(t, factory) })
	t.Run("GetMissingFile", func(t *testing.T) { testGetMissingFile(t, factory) })
}

func testInsertAndGetFile(t *testing.T, factory StoreFactory) {
	store := factory(t)
	want := createTestFile(t, store, drive.RootFolderID, "logo.png")

	got, err := store.GetFile(t.Context(), want.ID)
	if err != nil {
		t.Fatalf("GetFile() failed: %v", err)
	}
	if got.Name != want.Name || got.ParentID != want.ParentID || got.URL != want.URL ||
		got.Size != want.Size || got.MimeType != want.MimeType || got.BlobKey != want.BlobKey {
		t.Errorf("GetFile() = %+v, want %+v", got, want)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

func testInsertFileMissingParent(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	id := uuid.NewString()
	err := store.InsertFile(ctx, &drive.File{ID: id, Name: "x", ParentID: uuid.NewString()})
	if !drive.IsNotFoundError(err) {
		t.Fatalf("InsertFile() error = %v, want NotFound", err)
	}
	if _, err := store.GetFile(ctx, id); !drive.IsNotFoundError(err) {
		t.Errorf("GetFile() error = %v, want NotFound", err)
	}
}

func testUpdateFile(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	folder := createTestFolder(t, store, drive.RootFolderID, "Work")
	file := createTestFile(t, store, drive.RootFolderID, "draft.txt")

	file.Name = "final.txt"
	file.ParentID = folder.ID
	if err := store.UpdateFile(ctx, file); err != nil {
		t.Fatalf("UpdateFile() failed: %v", err)
	}

	rootContents, err := store.ListChildren(ctx, drive.RootFolderID)
	if err != nil {
		t.Fatalf("ListChildren(root) failed: %v", err)
	}
	if len(rootContents.Files) != 0 {
		t.Errorf("root still lists %v", fileNames(rootContents))
	}

	workContents, err := store.ListChildren(ctx, folder.ID)
	if err != nil {
		t.Fatalf("ListChildren(Work) failed: %v", err)
	}
	if got, want := fileNames(workContents), []string{"final.txt"}; !equalStrings(got, want) {
		t.Errorf("Work files = %v, want %v", got, want)
	}

	missing := file.Clone()
	missing.ID = uuid.NewString()
	if err := store.UpdateFile(ctx, missing); !drive.IsNotFoundError(err) {
		t.Errorf("UpdateFile(missing) error = %v, want NotFound", err)
	}
}

func testRemoveFile(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	file := createTestFile(t, store, drive.RootFolderID, "old.txt")

	if err := store.RemoveFile(ctx, file.ID); err != nil {
		t.Fatalf("RemoveFile() failed: %v", err)
	}
	if _, err := store.GetFile(ctx, file.ID); !drive.IsNotFoundError(err) {
		t.Errorf("GetFile() after remove error = %v, want NotFound", err)
	}
	if err := store.RemoveFile(ctx, file.ID); !drive.IsNotFoundError(err) {
		t.Errorf("second RemoveFile() error = %v, want NotFound", err)
	}

	contents, err := store.ListChildren(ctx, drive.RootFolderID)
	if err != nil {
		t.Fatalf("ListChildren() failed: %v", err)
	}
	if len(contents.Files) != 0 {
		t.Errorf("root still lists %v", fileNames(contents))
	}
}

func testGetMissingFile(t *testing.T, factory StoreFactory) {
	store := factory(t)

	if _, err := store.GetFile(t.Context(), "nonexistent"); !drive.IsNotFoundError(err) {
		t.Errorf("GetFile() error = %v, want NotFound", err)
	}
}
