package memory

import (
	"context"
	"sort"

	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/drive/errors"
)

// ============================================================================
// Transaction Support
// ============================================================================

// memoryTransaction operates on the store maps while the caller holds the
// store lock. When journal is non-nil every write records its inverse so the
// transaction can be rolled back.
type memoryTransaction struct {
	store   *MemoryDriveStore
	journal []func()
}

// WithTransaction executes fn while holding the write lock.
//
// Writes are applied to the maps directly. If fn returns an error (or
// panics) the undo journal is replayed in reverse, restoring the exact
// prior state before the lock is released.
func (s *MemoryDriveStore) WithTransaction(ctx context.Context, fn func(tx drive.Transaction) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryTransaction{store: s, journal: make([]func(), 0, 8)}

	defer func() {
		if r := recover(); r != nil {
			tx.rollback()
			panic(r)
		}
		if err != nil {
			tx.rollback()
		}
	}()

	return fn(tx)
}

func (tx *memoryTransaction) rollback() {
	for i := len(tx.journal) - 1; i >= 0; i-- {
		tx.journal[i]()
	}
	tx.journal = nil
}

func (tx *memoryTransaction) record(undo func()) {
	tx.journal = append(tx.journal, undo)
}

// ============================================================================
// Reads
// ============================================================================

func (tx *memoryTransaction) GetFolder(ctx context.Context, id string) (*drive.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	folder, ok := tx.store.folders[id]
	if !ok {
		return nil, errors.NewNotFoundError(id, "folder")
	}
	return folder.Clone(), nil
}

func (tx *memoryTransaction) GetFile(ctx context.Context, id string) (*drive.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, ok := tx.store.files[id]
	if !ok {
		return nil, errors.NewNotFoundError(id, "file")
	}
	return file.Clone(), nil
}

func (tx *memoryTransaction) ListChildren(ctx context.Context, folderID string) (*drive.Contents, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, ok := tx.store.folders[folderID]; !ok {
		return nil, errors.NewNotFoundError(folderID, "folder")
	}

	contents := &drive.Contents{
		Folders: make([]*drive.Folder, 0, len(tx.store.childFolders[folderID])),
		Files:   make([]*drive.File, 0, len(tx.store.childFiles[folderID])),
	}
	for id := range tx.store.childFolders[folderID] {
		contents.Folders = append(contents.Folders, tx.store.folders[id].Clone())
	}
	for id := range tx.store.childFiles[folderID] {
		contents.Files = append(contents.Files, tx.store.files[id].Clone())
	}

	sort.Slice(contents.Folders, func(i, j int) bool {
		a, b := contents.Folders[i], contents.Folders[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	sort.Slice(contents.Files, func(i, j int) bool {
		a, b := contents.Files[i], contents.Files[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	return contents, nil
}

func (tx *memoryTransaction) CountFolders(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(tx.store.folders), nil
}

// ============================================================================
// Writes
// ============================================================================

func (tx *memoryTransaction) InsertFolder(ctx context.Context, folder *drive.Folder) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, ok := tx.store.folders[folder.ID]; ok {
		return errors.NewAlreadyExistsError(folder.ID)
	}
	if _, ok := tx.store.folders[folder.ParentID]; !ok {
		return errors.NewNotFoundError(folder.ParentID, "folder")
	}

	tx.putFolder(folder.Clone())
	return nil
}

func (tx *memoryTransaction) InsertFile(ctx context.Context, file *drive.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, ok := tx.store.files[file.ID]; ok {
		return errors.NewAlreadyExistsError(file.ID)
	}
	if _, ok := tx.store.folders[file.ParentID]; !ok {
		return errors.NewNotFoundError(file.ParentID, "folder")
	}

	tx.putFile(file.Clone())
	return nil
}

func (tx *memoryTransaction) UpdateFolder(ctx context.Context, folder *drive.Folder) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	old, ok := tx.store.folders[folder.ID]
	if !ok {
		return errors.NewNotFoundError(folder.ID, "folder")
	}
	if folder.ParentID != old.ParentID {
		if _, ok := tx.store.folders[folder.ParentID]; !ok {
			return errors.NewNotFoundError(folder.ParentID, "folder")
		}
	}

	tx.deleteFolder(old)
	tx.putFolder(folder.Clone())
	return nil
}

func (tx *memoryTransaction) UpdateFile(ctx context.Context, file *drive.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	old, ok := tx.store.files[file.ID]
	if !ok {
		return errors.NewNotFoundError(file.ID, "file")
	}
	if file.ParentID != old.ParentID {
		if _, ok := tx.store.folders[file.ParentID]; !ok {
			return errors.NewNotFoundError(file.ParentID, "folder")
		}
	}

	tx.deleteFile(old)
	tx.putFile(file.Clone())
	return nil
}

func (tx *memoryTransaction) RemoveFolder(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	folder, ok := tx.store.folders[id]
	if !ok {
		return errors.NewNotFoundError(id, "folder")
	}
	if len(tx.store.childFolders[id]) > 0 || len(tx.store.childFiles[id]) > 0 {
		return errors.NewNotEmptyError(id)
	}

	tx.deleteFolder(folder)
	return nil
}

func (tx *memoryTransaction) RemoveFile(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file, ok := tx.store.files[id]
	if !ok {
		return errors.NewNotFoundError(id, "file")
	}

	tx.deleteFile(file)
	return nil
}

// ============================================================================
// Map primitives (journaled)
// ============================================================================

func (tx *memoryTransaction) putFolder(folder *drive.Folder) {
	s := tx.store
	s.folders[folder.ID] = folder
	if folder.ParentID != "" {
		addIndex(s.childFolders, folder.ParentID, folder.ID)
	}
	tx.record(func() {
		delete(s.folders, folder.ID)
		if folder.ParentID != "" {
			removeIndex(s.childFolders, folder.ParentID, folder.ID)
		}
	})
}

func (tx *memoryTransaction) deleteFolder(folder *drive.Folder) {
	s := tx.store
	delete(s.folders, folder.ID)
	if folder.ParentID != "" {
		removeIndex(s.childFolders, folder.ParentID, folder.ID)
	}
	tx.record(func() {
		s.folders[folder.ID] = folder
		if folder.ParentID != "" {
			addIndex(s.childFolders, folder.ParentID, folder.ID)
		}
	})
}

func (tx *memoryTransaction) putFile(file *drive.File) {
	s := tx.store
	s.files[file.ID] = file
	addIndex(s.childFiles, file.ParentID, file.ID)
	tx.record(func() {
		delete(s.files, file.ID)
		removeIndex(s.childFiles, file.ParentID, file.ID)
	})
}

func (tx *memoryTransaction) deleteFile(file *drive.File) {
	s := tx.store
	delete(s.files, file.ID)
	removeIndex(s.childFiles, file.ParentID, file.ID)
	tx.record(func() {
		s.files[file.ID] = file
		addIndex(s.childFiles, file.ParentID, file.ID)
	})
}

func addIndex(index map[string]map[string]struct{}, parent, child string) {
	set, ok := index[parent]
	if !ok {
		set = make(map[string]struct{})
		index[parent] = set
	}
	set[child] = struct{}{}
}

func removeIndex(index map[string]map[string]struct{}, parent, child string) {
	set, ok := index[parent]
	if !ok {
		return
	}
	delete(set, child)
	if len(set) == 0 {
		delete(index, parent)
	}
}
