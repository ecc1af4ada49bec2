package storetest

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/marmos91/dittodrive/pkg/drive"
)

// runTransactionTests runs all transaction conformance tests.
func runTransactionTests(t *testing.T, factory StoreFactory) {
	t.Run("CommitIsVisible", func(t *testing.T) { testCommitIsVisible(t, factory) })
	t.Run("RollbackOnError", func(t *testing.T) { testRollbackOnError(t, factory) })
	t.Run("ReadYourWrites", func(t *testing.T) { testReadYourWrites(t, factory) })
	t.Run("CancelledContext", func(t *testing.T) { testCancelledContext(t, factory) })
	t.Run("InsertRacingRemove", func(t *testing.T) { testInsertRacingRemove(t, factory) })
}

func testCommitIsVisible(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	folderID := uuid.NewString()
	fileID := uuid.NewString()

	err := store.WithTransaction(ctx, func(tx drive.Transaction) error {
		if err := tx.InsertFolder(ctx, &drive.Folder{ID: folderID, Name: "tx", ParentID: drive.RootFolderID}); err != nil {
			return err
		}
		return tx.InsertFile(ctx, &drive.File{ID: fileID, Name: "f", ParentID: folderID})
	})
	if err != nil {
		t.Fatalf("WithTransaction() failed: %v", err)
	}

	if _, err := store.GetFolder(ctx, folderID); err != nil {
		t.Errorf("committed folder not visible: %v", err)
	}
	if _, err := store.GetFile(ctx, fileID); err != nil {
		t.Errorf("committed file not visible: %v", err)
	}
}

// testRollbackOnError verifies that a failed transaction leaves the tree
// exactly as it was, including removals and renames made before the failure.
func testRollbackOnError(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	parent := createTestFolder(t, store, drive.RootFolderID, "parent")
	child := createTestFolder(t, store, parent.ID, "child")
	file := createTestFile(t, store, child.ID, "data.bin")

	boom := errors.New("boom")
	err := store.WithTransaction(ctx, func(tx drive.Transaction) error {
		if err := tx.RemoveFile(ctx, file.ID); err != nil {
			return err
		}
		if err := tx.RemoveFolder(ctx, child.ID); err != nil {
			return err
		}
		renamed := parent.Clone()
		renamed.Name = "renamed"
		if err := tx.UpdateFolder(ctx, renamed); err != nil {
			return err
		}
		if err := tx.InsertFolder(ctx, &drive.Folder{ID: uuid.NewString(), Name: "new", ParentID: drive.RootFolderID}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTransaction() error = %v, want %v", err, boom)
	}

	if _, err := store.GetFile(ctx, file.ID); err != nil {
		t.Errorf("file should be restored: %v", err)
	}
	if _, err := store.GetFolder(ctx, child.ID); err != nil {
		t.Errorf("child folder should be restored: %v", err)
	}
	got, err := store.GetFolder(ctx, parent.ID)
	if err != nil {
		t.Fatalf("GetFolder(parent) failed: %v", err)
	}
	if got.Name != "parent" {
		t.Errorf("parent name = %q, want %q", got.Name, "parent")
	}

	rootContents, err := store.ListChildren(ctx, drive.RootFolderID)
	if err != nil {
		t.Fatalf("ListChildren(root) failed: %v", err)
	}
	if got, want := folderNames(rootContents), []string{"parent"}; !equalStrings(got, want) {
		t.Errorf("root folders = %v, want %v", got, want)
	}

	childContents, err := store.ListChildren(ctx, child.ID)
	if err != nil {
		t.Fatalf("ListChildren(child) failed: %v", err)
	}
	if got, want := fileNames(childContents), []string{"data.bin"}; !equalStrings(got, want) {
		t.Errorf("child files = %v, want %v", got, want)
	}
}

func testReadYourWrites(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()
	folderID := uuid.NewString()

	err := store.WithTransaction(ctx, func(tx drive.Transaction) error {
		if err := tx.InsertFolder(ctx, &drive.Folder{ID: folderID, Name: "inside", ParentID: drive.RootFolderID}); err != nil {
			return err
		}
		got, err := tx.GetFolder(ctx, folderID)
		if err != nil {
			return err
		}
		if got.Name != "inside" {
			t.Errorf("name inside transaction = %q, want %q", got.Name, "inside")
		}
		contents, err := tx.ListChildren(ctx, drive.RootFolderID)
		if err != nil {
			return err
		}
		if got, want := folderNames(contents), []string{"inside"}; !equalStrings(got, want) {
			t.Errorf("root folders inside transaction = %v, want %v", got, want)
		}
		count, err := tx.CountFolders(ctx)
		if err != nil {
			return err
		}
		if count != 2 {
			t.Errorf("CountFolders() inside transaction = %d, want 2", count)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTransaction() failed: %v", err)
	}
}

func testCancelledContext(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx, cancel := contextWithCancel(t)
	cancel()

	if _, err := store.GetFolder(ctx, drive.RootFolderID); err == nil {
		t.Error("GetFolder() with cancelled context succeeded, want error")
	}
	called := false
	err := store.WithTransaction(ctx, func(tx drive.Transaction) error {
		called = true
		return nil
	})
	if err == nil {
		t.Error("WithTransaction() with cancelled context succeeded, want error")
	}
	if called {
		t.Error("transaction callback ran with a cancelled context")
	}
}

// testInsertRacingRemove races a file insert under a folder against a
// transaction that empties and removes that folder. Whichever commits
// second must observe the first: the file either lands in a live folder
// or is swept with it, never orphaned.
func testInsertRacingRemove(t *testing.T, factory StoreFactory) {
	store := factory(t)
	ctx := t.Context()

	for round := 0; round < 20; round++ {
		folder := createTestFolder(t, store, drive.RootFolderID, "doomed")
		fileID := uuid.NewString()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.WithTransaction(ctx, func(tx drive.Transaction) error {
				if _, err := tx.GetFolder(ctx, folder.ID); err != nil {
					return err
				}
				return tx.InsertFile(ctx, &drive.File{ID: fileID, Name: "late.txt", ParentID: folder.ID})
			})
		}()
		go func() {
			defer wg.Done()
			_ = store.WithTransaction(ctx, func(tx drive.Transaction) error {
				contents, err := tx.ListChildren(ctx, folder.ID)
				if err != nil {
					return err
				}
				for _, f := range contents.Files {
					if err := tx.RemoveFile(ctx, f.ID); err != nil {
						return err
					}
				}
				return tx.RemoveFolder(ctx, folder.ID)
			})
		}()
		wg.Wait()

		_, folderErr := store.GetFolder(ctx, folder.ID)
		file, fileErr := store.GetFile(ctx, fileID)
		if folderErr != nil && fileErr == nil {
			t.Fatalf("round %d: file %s orphaned under removed folder %s", round, file.ID, file.ParentID)
		}
		if folderErr == nil {
			if fileErr == nil {
				if err := store.RemoveFile(ctx, fileID); err != nil {
					t.Fatalf("round %d: cleanup RemoveFile() failed: %v", round, err)
				}
			}
			if err := store.RemoveFolder(ctx, folder.ID); err != nil {
				t.Fatalf("round %d: cleanup RemoveFolder() failed: %v", round, err)
			}
		}
	}
}
