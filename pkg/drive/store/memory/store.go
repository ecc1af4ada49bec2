// Package memory implements an in-memory drive.Store.
//
// Records live in id-keyed maps with a parent -> children index, all guarded
// by a single RWMutex. Transactions hold the write lock for their whole
// duration and keep an undo journal so a failed transaction leaves the maps
// exactly as they were.
package memory

import (
	"context"
	"sync"

	"github.com/marmos91/dittodrive/pkg/drive"
)

// MemoryDriveStore is an in-memory implementation of drive.Store.
// Data is lost when the process exits.
type MemoryDriveStore struct {
	mu sync.RWMutex

	folders map[string]*drive.Folder
	files   map[string]*drive.File

	// children maps a folder id to the set of its child folder ids
	// and child file ids.
	childFolders map[string]map[string]struct{}
	childFiles   map[string]map[string]struct{}
}

// NewMemoryDriveStore creates an empty store holding only the root folder.
func NewMemoryDriveStore() *MemoryDriveStore {
	s := &MemoryDriveStore{
		folders:      make(map[string]*drive.Folder),
		files:        make(map[string]*drive.File),
		childFolders: make(map[string]map[string]struct{}),
		childFiles:   make(map[string]map[string]struct{}),
	}
	root := drive.NewRootFolder()
	s.folders[root.ID] = root
	return s
}

// ============================================================================
// Direct (non-transactional) operations
// ============================================================================

func (s *MemoryDriveStore) read() *memoryTransaction {
	return &memoryTransaction{store: s}
}

// GetFolder retrieves a folder by id.
func (s *MemoryDriveStore) GetFolder(ctx context.Context, id string) (*drive.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetFolder(ctx, id)
}

// GetFile retrieves a file by id.
func (s *MemoryDriveStore) GetFile(ctx context.Context, id string) (*drive.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().GetFile(ctx, id)
}

// ListChildren returns the direct children of a folder.
func (s *MemoryDriveStore) ListChildren(ctx context.Context, folderID string) (*drive.Contents, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().ListChildren(ctx, folderID)
}

// CountFolders returns the number of folders, root included.
func (s *MemoryDriveStore) CountFolders(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.read().CountFolders(ctx)
}

// InsertFolder stores a new folder.
func (s *MemoryDriveStore) InsertFolder(ctx context.Context, folder *drive.Folder) error {
	return s.WithTransaction(ctx, func(tx drive.Transaction) error {
		return tx.InsertFolder(ctx, folder)
	})
}

// InsertFile stores a new file.
func (s *MemoryDriveStore) InsertFile(ctx context.Context, file *drive.File) error {
	return s.WithTransaction(ctx, func(tx drive.Transaction) error {
		return tx.InsertFile(ctx, file)
	})
}

// UpdateFolder replaces a stored folder.
func (s *MemoryDriveStore) UpdateFolder(ctx context.Context, folder *drive.Folder) error {
	return s.WithTransaction(ctx, func(tx drive.Transaction) error {
		return tx.UpdateFolder(ctx, folder)
	})
}

// UpdateFile replaces a stored file.
func (s *MemoryDriveStore) UpdateFile(ctx context.Context, file *drive.File) error {
	return s.WithTransaction(ctx, func(tx drive.Transaction) error {
		return tx.UpdateFile(ctx, file)
	})
}

// RemoveFolder deletes an empty folder.
func (s *MemoryDriveStore) RemoveFolder(ctx context.Context, id string) error {
	return s.WithTransaction(ctx, func(tx drive.Transaction) error {
		return tx.RemoveFolder(ctx, id)
	})
}

// RemoveFile deletes a file.
func (s *MemoryDriveStore) RemoveFile(ctx context.Context, id string) error {
	return s.WithTransaction(ctx, func(tx drive.Transaction) error {
		return tx.RemoveFile(ctx, id)
	})
}

// ============================================================================
// Lifecycle
// ============================================================================

// Healthcheck always succeeds unless the context is done.
func (s *MemoryDriveStore) Healthcheck(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *MemoryDriveStore) Close() error {
	return nil
}

var _ drive.Store = (*MemoryDriveStore)(nil)
