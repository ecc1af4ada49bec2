package drive

import (
	"context"
)

// ============================================================================
// Transaction Interface (Record CRUD Operations)
// ============================================================================

// Transaction defines the CRUD operations on folder and file records.
//
// This interface is embedded by Store for direct (non-transactional) calls,
// and is what WithTransaction hands to its callback for atomic operations.
//
// Implementations vary by store:
//   - Memory store: Uses mutex locking with an undo journal
//   - BadgerDB: Uses native Badger transactions
//   - PostgreSQL: Uses SERIALIZABLE SQL transactions
//
// Thread Safety:
// Transaction objects from WithTransaction are NOT safe for concurrent use.
type Transaction interface {
	// ========================================================================
	// Reads
	// ========================================================================

	// GetFolder retrieves a folder by id.
	// Returns ErrNotFound if the id doesn't exist.
	GetFolder(ctx context.Context, id string) (*Folder, error)

	// GetFile retrieves a file by id.
	// Returns ErrNotFound if the id doesn't exist.
	GetFile(ctx context.Context, id string) (*File, error)

	// ListChildren returns the direct subfolders and files of a folder,
	// sorted by name then id.
	// Returns ErrNotFound if the folder doesn't exist.
	ListChildren(ctx context.Context, folderID string) (*Contents, error)

	// CountFolders returns the number of folders, root included.
	CountFolders(ctx context.Context) (int, error)

	// ========================================================================
	// Writes
	// ========================================================================

	// InsertFolder stores a new folder.
	// Returns ErrNotFound if the parent doesn't exist and ErrAlreadyExists
	// if the id is taken.
	InsertFolder(ctx context.Context, folder *Folder) error

	// InsertFile stores a new file.
	// Returns ErrNotFound if the parent doesn't exist and ErrAlreadyExists
	// if the id is taken.
	InsertFile(ctx context.Context, file *File) error

	// UpdateFolder replaces a stored folder, re-indexing it if the parent changed.
	// Returns ErrNotFound if the folder or its new parent doesn't exist.
	UpdateFolder(ctx context.Context, folder *Folder) error

	// UpdateFile replaces a stored file, re-indexing it if the parent changed.
	// Returns ErrNotFound if the file or its new parent doesn't exist.
	UpdateFile(ctx context.Context, file *File) error

	// RemoveFolder deletes an empty folder.
	// Returns ErrNotFound if it doesn't exist and ErrNotEmpty if it still
	// has children.
	RemoveFolder(ctx context.Context, id string) error

	// RemoveFile deletes a file.
	// Returns ErrNotFound if it doesn't exist.
	RemoveFile(ctx context.Context, id string) error
}

// ============================================================================
// Transactor Interface
// ============================================================================

// Transactor provides transaction support for record operations.
//
// Usage pattern:
//
//	err := store.WithTransaction(ctx, func(tx Transaction) error {
//	    folder, err := tx.GetFolder(ctx, id)
//	    if err != nil {
//	        return err  // Transaction will be rolled back
//	    }
//	    folder.Name = "Reports"
//	    return tx.UpdateFolder(ctx, folder)  // Success = commit, error = rollback
//	})
type Transactor interface {
	// WithTransaction executes fn within a transaction.
	//
	// If fn returns an error, the transaction is rolled back and none of its
	// writes are visible. If fn returns nil, the transaction is committed.
	//
	// The Transaction passed to fn must only be used within fn.
	// Nested transactions are NOT supported.
	WithTransaction(ctx context.Context, fn func(tx Transaction) error) error
}

// ============================================================================
// Store Interface
// ============================================================================

// Store is the metadata store: the single owner and writer of Folder and
// File records.
//
// Design Principles:
//   - The root folder record always exists once the store is opened
//   - A record's parent always exists (no orphans, ever)
//   - Consistent error handling: business errors are *errors.DriveError
//   - Context-aware: all operations respect context cancellation
//   - Returned records are copies owned by the caller
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	Transaction
	Transactor

	// Healthcheck verifies the store is operational.
	Healthcheck(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
