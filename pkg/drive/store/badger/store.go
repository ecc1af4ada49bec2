// Package badger implements a persistent drive.Store on BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/drive"
)

// maxConflictRetries bounds how often a transaction is replayed after an
// optimistic concurrency conflict.
const maxConflictRetries = 5

// BadgerDriveStoreConfig configures the BadgerDB store.
type BadgerDriveStoreConfig struct {
	// DBPath is the directory BadgerDB keeps its files in.
	DBPath string

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64

	// IndexCacheSizeMB is BadgerDB's index cache size in MB (default: 32)
	IndexCacheSizeMB int64

	// SyncWrites makes every commit fsync before returning.
	SyncWrites bool
}

// BadgerDriveStore is a drive.Store backed by BadgerDB.
type BadgerDriveStore struct {
	db *badgerdb.DB
}

// NewBadgerDriveStore opens (or creates) the database at config.DBPath and
// makes sure the root folder exists.
func NewBadgerDriveStore(ctx context.Context, config BadgerDriveStoreConfig) (*BadgerDriveStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	opts := badgerdb.DefaultOptions(config.DBPath)
	opts = opts.WithLoggingLevel(badgerdb.WARNING)
	opts = opts.WithCompression(options.None)
	opts = opts.WithSyncWrites(config.SyncWrites)

	blockCacheMB := config.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	indexCacheMB := config.IndexCacheSizeMB
	if indexCacheMB == 0 {
		indexCacheMB = 32
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)
	opts = opts.WithIndexCacheSize(indexCacheMB << 20)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", config.DBPath, err)
	}

	store := &BadgerDriveStore{db: db}
	if err := store.ensureRoot(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize root folder: %w", err)
	}

	logger.Debug("badger drive store opened", logger.KeyPath, config.DBPath)
	return store, nil
}

// NewBadgerDriveStoreWithDefaults opens a store at dbPath with default tuning.
func NewBadgerDriveStoreWithDefaults(ctx context.Context, dbPath string) (*BadgerDriveStore, error) {
	return NewBadgerDriveStore(ctx, BadgerDriveStoreConfig{DBPath: dbPath})
}

func (s *BadgerDriveStore) ensureRoot() error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(keyFolder(drive.RootFolderID))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return err
		}

		data, err := encodeFolder(drive.NewRootFolder())
		if err != nil {
			return err
		}
		if err := txn.Set(keyFolder(drive.RootFolderID), data); err != nil {
			return err
		}
		return txn.Set([]byte(keyFolderCnt), encodeCount(1))
	})
}

// ============================================================================
// Transaction Support
// ============================================================================

// WithTransaction executes fn within a BadgerDB read-write transaction.
//
// If fn returns an error, the transaction is discarded. If fn returns nil,
// the transaction is committed. Commits that lose an optimistic concurrency
// race (badger.ErrConflict) are replayed from scratch.
func (s *BadgerDriveStore) WithTransaction(ctx context.Context, fn func(tx drive.Transaction) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = s.db.Update(func(txn *badgerdb.Txn) error {
			return fn(&badgerTransaction{txn: txn})
		})
		if !errors.Is(err, badgerdb.ErrConflict) {
			return err
		}

		logger.Debug("badger transaction conflict, retrying", logger.KeyAttempt, attempt+1)
		time.Sleep(time.Duration(attempt+1) * time.Millisecond)
	}
	return fmt.Errorf("transaction aborted after %d conflicts: %w", maxConflictRetries, err)
}

func (s *BadgerDriveStore) view(ctx context.Context, fn func(tx *badgerTransaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badgerdb.Txn) error {
		return fn(&badgerTransaction{txn: txn})
	})
}

// ============================================================================
// Direct (non-transactional) operations
// ============================================================================

// GetFolder retrieves a folder by id.
func (s *BadgerDriveStore) GetFolder(ctx context.Context, id string) (*drive.Folder, error) {
	var folder *drive.Folder
	err := s.view(ctx, func(tx *badgerTransaction) error {
		var err error
		folder, err = tx.GetFolder(ctx, id)
		return err
	})
	return folder, err
}

// GetFile retrieves a file by id.
func (s *BadgerDriveStore) GetFile(ctx context.Context, id string) (*drive.File, error) {
	var file *drive.File
	err := s.view(ctx, func(tx *badgerTransaction) error {
		var err error
		file, err = tx.GetFile(ctx, id)
		return err
	})
	return file, err
}

// ListChildren returns the direct children of a folder.
func (s *BadgerDriveStore) ListChildren(ctx context.Context, folderID string) (*drive.Contents, error) {
	var contents *drive.Contents
	err := s.view(ctx, func(tx *badgerTransaction) error {
		var err error
		contents, err = tx.ListChildren(ctx, folderID)
		return err
	})
	return contents, err
}

// CountFolders returns the number of folders, root included.
func (s *BadgerDriveStore) CountFolders(ctx context.Context) (int, error) {
	var count int
	err := s.view(ctx, func(tx *badgerTransaction) error {
		var err error
		count, err = tx.CountFolders(ctx)
		return err
	})
	return count, err
}

// InsertFolder stores a new folder.
func (s *BadgerDriveStore) InsertFolder(ctx context.Context, folder *drive.Folder) error {
	return s.WithTransaction(ctx, func(tx drive.Transaction) error {
		return tx.InsertFolder(ctx, folder)
	})
}

// InsertFile stores a new file.
func (s *BadgerDriveStore) InsertFile(ctx context.Context, file *drive.File) error {
	return s.WithTransaction(ctx, func(tx drive.Transaction) error {
		return tx.InsertFile(ctx, file)
	})
}

// UpdateFolder replaces a stored folder.
func (s *BadgerDriveStore) UpdateFolder(ctx context.Context, folder *drive.Folder) error {
	return s.WithTransaction(ctx, func(tx drive.Transaction) error {
		return tx.UpdateFolder(ctx, folder)
	})
}

// UpdateFile replaces a stored file.
func (s *BadgerDriveStore) UpdateFile(ctx context.Context, file *drive.File) error {
	return s.WithTransaction(ctx, func(tx drive.Transaction) error {
		return tx.UpdateFile(ctx, file)
	})
}

// RemoveFolder deletes an empty folder.
func (s *BadgerDriveStore) RemoveFolder(ctx context.Context, id string) error {
	return s.WithTransaction(ctx, func(tx drive.Transaction) error {
		return tx.RemoveFolder(ctx, id)
	})
}

// RemoveFile deletes a file.
func (s *BadgerDriveStore) RemoveFile(ctx context.Context, id string) error {
	return s.WithTransaction(ctx, func(tx drive.Transaction) error {
		return tx.RemoveFile(ctx, id)
	})
}

// ============================================================================
// Lifecycle
// ============================================================================

// Healthcheck verifies the database can serve a read.
func (s *BadgerDriveStore) Healthcheck(ctx context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	_, err := s.GetFolder(ctx, drive.RootFolderID)
	return err
}

// Close closes the database.
func (s *BadgerDriveStore) Close() error {
	return s.db.Close()
}

var _ drive.Store = (*BadgerDriveStore)(nil)
