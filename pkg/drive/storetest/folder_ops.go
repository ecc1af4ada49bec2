package storetest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/drive"
)

// runFolderOpsTests runs all folder operation conformance tests.
func runFolderOpsTests(t *testing.T, factory StoreFactory) {
	t.Run("RootExists", func(t *testing.T) { testRootExists(t, factory) })
	t.Run("InsertAndGetFolder", func(t *testing.T) { testInsertAndGetFolder(t, factory) })
	t.Run("InsertFolderMissingParent", func(t *testing.T) { testInsertFolderMissingParent(t, factory) })
	t.Run("InsertFolderDuplicateID", func(t *testing.T) { testInsertFolderDuplicateID(t, factory) })
	t.Run("ListChildrenSorted", func(t *testing.T) { testListChildrenSorted(t, factory) })
	t.Run("ListChildrenMissingFolder", func(t *testing.T) { testListChildrenMissingFolder(t, factory) })
	t.Run("UpdateFolderReparents", func(t *testing.T) { testUpdateFolderReparents(t, factory) })
	t.Run("RemoveEmptyFolder", func(t *testing.T) { testRemoveEmptyFolder(t, factory) })
	t.Run("RemoveNonEmptyFolder", func(t *testing.T) { testRemoveNonEmptyFolder(t, factory) })
	t.Run("CountFolders", func(t *testing.T) { testCountFolders(t, factory) })
	t.Run("ReturnedRecordsAreCopies", func(t *testing.T) { testReturnedRecordsAreCopies(t, factory) })
}

// testRootExists verifies that a fresh store already holds the root folder.
func testRootExists(t *testing.T, factory StoreFactory) {
	store := factory(t)

	root, err := store.GetFolder(t.Context(), drive.RootFolderID)
	if err != nil {
		t.Fatalf("GetFolder(root) failed: %v", err)
	}
	if root.Name != drive.RootFolderName {
		t.Errorf("root name = %q, want %q", root.Name, drive.RootFolderName)
	}
	if root.ParentID != "" {
		t.Errorf("root parent = %q, want empty", root.ParentID)
	}

	contents, err := store.ListChildren(t.Context(), drive.RootFolderID)
	if err != nil {
		t.Fatalf("ListChildren(root) failed: %v", err)
	}
	if len(contents.Folders) != 0 || len(contents.Files) != 0 {
		t.Errorf("fresh root has %d folders and %d files, want none", len(contents.Folders), len(contents.Files))
	}
}

func testInsertAndGetFolder(t *testing.T, factory StoreFactory) {
	store := factory(t)
	want := createTestFolder(t, store, drive.RootFolderID, "Work")

	got, err := store.GetFolder(t.Context(), want.ID)
	if err != nil {
		t.Fatalf("GetFolder() failed: %v", err)
	}
	if got.Name != want.Name || got.ParentID != want.ParentID || got.OwnerID != want.OwnerID {
		t.Errorf("GetFolder() = %+v, want %+v", got, want)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
}

func testInsertFolderMissingParent(t *testing.T, factory StoreFactory) {
	store := factory(t)

	err := store.InsertFolder(t.Context(), &drive.Folder{
		ID:       uuid.NewString(),
		Name:     "orphan",
		ParentID: uuid.NewString(),
	})
	if !drive.IsNotFoundError(err) {
		t.Fatalf("InsertFolder() error = %v, want NotFound", err)
	}

	count, err := store.CountFolders(t.Context())
	if err != nil {
		t.Fatalf("CountFolders() failed: %v", err)
	}
	if count != 1 {
		t.Errorf("CountFolders() = %d, want 1", count)
	}
}

func testInsertFolderDuplicateID(t *testing.T, factory StoreFactory) {
	store := factory(t)
	folder := createTestFolder(t, store, drive.RootFolderID, "Work")

	dup := folder.Clone()
	dup.Name = "Other"
	err := store.InsertFolder(t.Context(), dup)
	if err == nil {
		t.Fatal("InsertFolder() with duplicate id succeeded, want error")
	}

	got, err := store.GetFolder(t.Context(), folder.ID)
	if err != nil {
		t.Fatalf("GetFolder() failed: %v", err)
	}
	if got.Name != "Work" {
		t.Errorf("name = %q, want %q", got.Name, "Work")
	}
}

// testListChildrenSorted verifies that listing returns direct children only,
// sorted by name, with duplicate sibling names allowed.
func testListChildrenSorted(t *testing.T, factory StoreFactory) {
	store := factory(t)
	work := createTestFolder(t, store, drive.RootFolderID, "Work")
	createTestFolder(t, store, drive.RootFolderID, "Photos")
	createTestFolder(t, store, drive.RootFolderID, "Photos")
	createTestFolder(t, store, work.ID, "Nested")
	createTestFile(t, store, drive.RootFolderID, "logo.png")
	createTestFile(t, store, drive.RootFolderID, "a.txt")
	createTestFile(t, store, work.ID, "report.pdf")

	contents, err := store.ListChildren(t.Context(), drive.RootFolderID)
	if err != nil {
		t.Fatalf("ListChildren() failed: %v", err)
	}

	if got, want := folderNames(contents), []string{"Photos", "Photos", "Work"}; !equalStrings(got, want) {
		t.Errorf("folders = %v, want %v", got, want)
	}
	if got, want := fileNames(contents), []string{"a.txt", "logo.png"}; !equalStrings(got, want) {
		t.Errorf("files = %v, want %v", got, want)
	}
	if contents.Folders[0].ID > contents.Folders[1].ID {
		t.Error("folders with equal names must be ordered by id")
	}
}

func testListChildrenMissingFolder(t *testing.T, factory StoreFactory) {
	store := factory(t)

	_, err := store.ListChildren(t.Context(), "does-not-exist")
	if !drive.IsNotFoundError(err) {
		t.Fatalf("ListChildren() error = %v, want NotFound", err)
	}
}

func testUpdateFolderReparents(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	a := createTestFolder(t, store, drive.RootFolderID, "A")
	b := createTestFolder(t, store, drive.RootFolderID, "B")

	moved := a.Clone()
	moved.ParentID = b.ID
	moved.Name = "A2"
	if err := store.UpdateFolder(ctx, moved); err != nil {
		t.Fatalf("UpdateFolder() failed: %v", err)
	}

	rootContents, err := store.ListChildren(ctx, drive.RootFolderID)
	if err != nil {
		t.Fatalf("ListChildren(root) failed: %v", err)
	}
	if got, want := folderNames(rootContents), []string{"B"}; !equalStrings(got, want) {
		t.Errorf("root folders = %v, want %v", got, want)
	}

	bContents, err := store.ListChildren(ctx, b.ID)
	if err != nil {
		t.Fatalf("ListChildren(B) failed: %v", err)
	}
	if got, want := folderNames(bContents), []string{"A2"}; !equalStrings(got, want) {
		t.Errorf("B folders = %v, want %v", got, want)
	}

	missing := a.Clone()
	missing.ID = uuid.NewString()
	if err := store.UpdateFolder(ctx, missing); !drive.IsNotFoundError(err) {
		t.Errorf("UpdateFolder(missing) error = %v, want NotFound", err)
	}

	badParent := moved.Clone()
	badParent.ParentID = uuid.NewString()
	if err := store.UpdateFolder(ctx, badParent); !drive.IsNotFoundError(err) {
		t.Errorf("UpdateFolder(bad parent) error = %v, want NotFound", err)
	}
}

func testRemoveEmptyFolder(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	folder := createTestFolder(t, store, drive.RootFolderID, "empty")

	if err := store.RemoveFolder(ctx, folder.ID); err != nil {
		t.Fatalf("RemoveFolder() failed: %v", err)
	}
	if _, err := store.GetFolder(ctx, folder.ID); !drive.IsNotFoundError(err) {
		t.Errorf("GetFolder() after remove error = %v, want NotFound", err)
	}
	if err := store.RemoveFolder(ctx, folder.ID); !drive.IsNotFoundError(err) {
		t.Errorf("second RemoveFolder() error = %v, want NotFound", err)
	}
}

// testRemoveNonEmptyFolder verifies that a store never orphans children.
func testRemoveNonEmptyFolder(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	withFolder := createTestFolder(t, store, drive.RootFolderID, "parent1")
	createTestFolder(t, store, withFolder.ID, "child")
	withFile := createTestFolder(t, store, drive.RootFolderID, "parent2")
	createTestFile(t, store, withFile.ID, "child.txt")

	for _, id := range []string{withFolder.ID, withFile.ID} {
		err := store.RemoveFolder(ctx, id)
		if err == nil {
			t.Fatalf("RemoveFolder(%s) on non-empty folder succeeded", id)
		}
		if _, err := store.GetFolder(ctx, id); err != nil {
			t.Errorf("folder %s should survive failed removal: %v", id, err)
		}
	}
}

func testCountFolders(t *testing.T, factory StoreFactory) {
	store := factory(t)
	a := createTestFolder(t, store, drive.RootFolderID, "A")
	createTestFolder(t, store, a.ID, "B")
	createTestFile(t, store, a.ID, "c.txt")

	count, err := store.CountFolders(t.Context())
	if err != nil {
		t.Fatalf("CountFolders() failed: %v", err)
	}
	if count != 3 {
		t.Errorf("CountFolders() = %d, want 3", count)
	}
}

func testReturnedRecordsAreCopies(t *testing.T, factory StoreFactory) {
	store := factory(t)
	folder := createTestFolder(t, store, drive.RootFolderID, "Work")

	got, err := store.GetFolder(t.Context(), folder.ID)
	if err != nil {
		t.Fatalf("GetFolder() failed: %v", err)
	}
	got.Name = "mutated"

	again, err := store.GetFolder(t.Context(), folder.ID)
	if err != nil {
		t.Fatalf("GetFolder() failed: %v", err)
	}
	if again.Name != "Work" {
		t.Errorf("stored name = %q after mutating a returned copy, want %q", again.Name, "Work")
	}
}
