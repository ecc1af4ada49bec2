package badger

import (
	"context"
	"errors"
	"sort"
	"strings"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/dittodrive/pkg/drive"
	driveerrors "github.com/marmos91/dittodrive/pkg/drive/errors"
)

// badgerTransaction wraps a BadgerDB transaction for the drive.Transaction
// interface. Read-only (View) transactions only ever call the read methods.
type badgerTransaction struct {
	txn *badgerdb.Txn
}

// ============================================================================
// Reads
// ============================================================================

func (tx *badgerTransaction) GetFolder(ctx context.Context, id string) (*drive.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item, err := tx.txn.Get(keyFolder(id))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, driveerrors.NewNotFoundError(id, "folder")
	}
	if err != nil {
		return nil, err
	}

	var folder *drive.Folder
	err = item.Value(func(val []byte) error {
		f, decErr := decodeFolder(val)
		if decErr != nil {
			return decErr
		}
		folder = f
		return nil
	})
	return folder, err
}

func (tx *badgerTransaction) GetFile(ctx context.Context, id string) (*drive.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	item, err := tx.txn.Get(keyFile(id))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, driveerrors.NewNotFoundError(id, "file")
	}
	if err != nil {
		return nil, err
	}

	var file *drive.File
	err = item.Value(func(val []byte) error {
		f, decErr := decodeFile(val)
		if decErr != nil {
			return decErr
		}
		file = f
		return nil
	})
	return file, err
}

func (tx *badgerTransaction) ListChildren(ctx context.Context, folderID string) (*drive.Contents, error) {
	if _, err := tx.GetFolder(ctx, folderID); err != nil {
		return nil, err
	}
	if err := tx.readStamp(folderID); err != nil {
		return nil, err
	}

	folderIDs, err := tx.scanIDs(ctx, prefixChildFolders(folderID))
	if err != nil {
		return nil, err
	}
	fileIDs, err := tx.scanIDs(ctx, prefixChildFiles(folderID))
	if err != nil {
		return nil, err
	}

	contents := &drive.Contents{
		Folders: make([]*drive.Folder, 0, len(folderIDs)),
		Files:   make([]*drive.File, 0, len(fileIDs)),
	}
	for _, id := range folderIDs {
		folder, err := tx.GetFolder(ctx, id)
		if err != nil {
			return nil, err
		}
		contents.Folders = append(contents.Folders, folder)
	}
	for _, id := range fileIDs {
		file, err := tx.GetFile(ctx, id)
		if err != nil {
			return nil, err
		}
		contents.Files = append(contents.Files, file)
	}

	sort.SliceStable(contents.Folders, func(i, j int) bool {
		return contents.Folders[i].Name < contents.Folders[j].Name
	})
	sort.SliceStable(contents.Files, func(i, j int) bool {
		return contents.Files[i].Name < contents.Files[j].Name
	})

	return contents, nil
}

// scanIDs returns the trailing id of every key under prefix, in key order
// (which is id order).
func (tx *badgerTransaction) scanIDs(ctx context.Context, prefix []byte) ([]string, error) {
	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false

	it := tx.txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Rewind(); it.Valid(); it.Next() {
		if len(ids)%100 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		ids = append(ids, strings.TrimPrefix(string(it.Item().Key()), string(prefix)))
	}
	return ids, nil
}

// readStamp adds the folder's child stamp to the read set.
func (tx *badgerTransaction) readStamp(folderID string) error {
	_, err := tx.txn.Get(keyStamp(folderID))
	if err != nil && !errors.Is(err, badgerdb.ErrKeyNotFound) {
		return err
	}
	return nil
}

func (tx *badgerTransaction) hasChildren(parentID string) bool {
	_ = tx.readStamp(parentID)

	opts := badgerdb.DefaultIteratorOptions
	opts.Prefix = prefixChildren(parentID)
	opts.PrefetchValues = false

	it := tx.txn.NewIterator(opts)
	defer it.Close()

	it.Rewind()
	return it.Valid()
}

func (tx *badgerTransaction) CountFolders(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	n, err := tx.folderCount()
	return int(n), err
}

func (tx *badgerTransaction) folderCount() (uint64, error) {
	item, err := tx.txn.Get([]byte(keyFolderCnt))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	var n uint64
	err = item.Value(func(val []byte) error {
		var decErr error
		n, decErr = decodeCount(val)
		return decErr
	})
	return n, err
}

func (tx *badgerTransaction) addFolderCount(delta int64) error {
	n, err := tx.folderCount()
	if err != nil {
		return err
	}
	return tx.txn.Set([]byte(keyFolderCnt), encodeCount(uint64(int64(n)+delta)))
}

func (tx *badgerTransaction) exists(key []byte) (bool, error) {
	_, err := tx.txn.Get(key)
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// requireFolder checks that id exists and stamps it, since every caller is
// about to link a child under it.
func (tx *badgerTransaction) requireFolder(id string) error {
	ok, err := tx.exists(keyFolder(id))
	if err != nil {
		return err
	}
	if !ok {
		return driveerrors.NewNotFoundError(id, "folder")
	}
	return tx.txn.Set(keyStamp(id), nil)
}

// ============================================================================
// Writes
// ============================================================================

func (tx *badgerTransaction) InsertFolder(ctx context.Context, folder *drive.Folder) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ok, err := tx.exists(keyFolder(folder.ID)); err != nil {
		return err
	} else if ok {
		return driveerrors.NewAlreadyExistsError(folder.ID)
	}
	if err := tx.requireFolder(folder.ParentID); err != nil {
		return err
	}

	if err := tx.putFolder(folder); err != nil {
		return err
	}
	return tx.addFolderCount(1)
}

func (tx *badgerTransaction) InsertFile(ctx context.Context, file *drive.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ok, err := tx.exists(keyFile(file.ID)); err != nil {
		return err
	} else if ok {
		return driveerrors.NewAlreadyExistsError(file.ID)
	}
	if err := tx.requireFolder(file.ParentID); err != nil {
		return err
	}

	return tx.putFile(file)
}

func (tx *badgerTransaction) UpdateFolder(ctx context.Context, folder *drive.Folder) error {
	old, err := tx.GetFolder(ctx, folder.ID)
	if err != nil {
		return err
	}

	if folder.ParentID != old.ParentID {
		if err := tx.requireFolder(folder.ParentID); err != nil {
			return err
		}
		if err := tx.txn.Delete(keyChildFolder(old.ParentID, old.ID)); err != nil {
			return err
		}
	}
	return tx.putFolder(folder)
}

func (tx *badgerTransaction) UpdateFile(ctx context.Context, file *drive.File) error {
	old, err := tx.GetFile(ctx, file.ID)
	if err != nil {
		return err
	}

	if file.ParentID != old.ParentID {
		if err := tx.requireFolder(file.ParentID); err != nil {
			return err
		}
		if err := tx.txn.Delete(keyChildFile(old.ParentID, old.ID)); err != nil {
			return err
		}
	}
	return tx.putFile(file)
}

func (tx *badgerTransaction) RemoveFolder(ctx context.Context, id string) error {
	folder, err := tx.GetFolder(ctx, id)
	if err != nil {
		return err
	}
	if tx.hasChildren(id) {
		return driveerrors.NewNotEmptyError(id)
	}

	if err := tx.txn.Delete(keyFolder(id)); err != nil {
		return err
	}
	if err := tx.txn.Delete(keyStamp(id)); err != nil {
		return err
	}
	if folder.ParentID != "" {
		if err := tx.txn.Delete(keyChildFolder(folder.ParentID, id)); err != nil {
			return err
		}
	}
	return tx.addFolderCount(-1)
}

func (tx *badgerTransaction) RemoveFile(ctx context.Context, id string) error {
	file, err := tx.GetFile(ctx, id)
	if err != nil {
		return err
	}

	if err := tx.txn.Delete(keyFile(id)); err != nil {
		return err
	}
	return tx.txn.Delete(keyChildFile(file.ParentID, id))
}

func (tx *badgerTransaction) putFolder(folder *drive.Folder) error {
	data, err := encodeFolder(folder)
	if err != nil {
		return err
	}
	if err := tx.txn.Set(keyFolder(folder.ID), data); err != nil {
		return err
	}
	if folder.ParentID == "" {
		return nil
	}
	return tx.txn.Set(keyChildFolder(folder.ParentID, folder.ID), nil)
}

func (tx *badgerTransaction) putFile(file *drive.File) error {
	data, err := encodeFile(file)
	if err != nil {
		return err
	}
	if err := tx.txn.Set(keyFile(file.ID), data); err != nil {
		return err
	}
	return tx.txn.Set(keyChildFile(file.ParentID, file.ID), nil)
}
