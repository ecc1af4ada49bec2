package badger

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/marmos91/dittodrive/pkg/drive"
)

// ============================================================================
// Database Key Namespace Design
// ============================================================================
//
// BadgerDB is a key-value store, so prefixed keys organize the record types
// into logical namespaces and let a folder listing be a single prefix scan.
//
// Data Type             Prefix   Key Format                     Value Type
// ==========================================================================
// Folder                "fo:"    fo:<id>                       Folder (JSON)
// File                  "fi:"    fi:<id>                       File (JSON)
// Child folder index    "c:"     c:<parentID>:fo:<childID>     empty
// Child file index      "c:"     c:<parentID>:fi:<childID>     empty
// Child stamp           "s:"     s:<parentID>                  empty
// Folder counter        "meta:"  meta:folders                  uint64 (binary)
//
// The child stamp is written whenever a child is linked under a folder and
// read by every listing of that folder. Badger only detects conflicts on keys
// a transaction read, so without it a recursive delete would not notice a
// child inserted after its prefix scan.

const (
	prefixFolder = "fo:"
	prefixFile   = "fi:"
	prefixChild  = "c:"
	prefixStamp  = "s:"
	keyFolderCnt = "meta:folders"
)

func keyFolder(id string) []byte {
	return []byte(prefixFolder + id)
}

func keyFile(id string) []byte {
	return []byte(prefixFile + id)
}

func keyStamp(folderID string) []byte {
	return []byte(prefixStamp + folderID)
}

func keyChildFolder(parentID, childID string) []byte {
	return []byte(prefixChild + parentID + ":" + prefixFolder + childID)
}

func keyChildFile(parentID, childID string) []byte {
	return []byte(prefixChild + parentID + ":" + prefixFile + childID)
}

func prefixChildFolders(parentID string) []byte {
	return []byte(prefixChild + parentID + ":" + prefixFolder)
}

func prefixChildFiles(parentID string) []byte {
	return []byte(prefixChild + parentID + ":" + prefixFile)
}

// prefixChildren matches both child folders and child files of parentID.
func prefixChildren(parentID string) []byte {
	return []byte(prefixChild + parentID + ":")
}

// ============================================================================
// Value Encoding
// ============================================================================

// fileRecord is the persisted form of drive.File. BlobKey is excluded from
// the API JSON but must survive a round-trip through the store.
type fileRecord struct {
	drive.File
	BlobKey string `json:"blobKey"`
}

func encodeFolder(folder *drive.Folder) ([]byte, error) {
	data, err := json.Marshal(folder)
	if err != nil {
		return nil, fmt.Errorf("failed to encode folder: %w", err)
	}
	return data, nil
}

func decodeFolder(data []byte) (*drive.Folder, error) {
	var folder drive.Folder
	if err := json.Unmarshal(data, &folder); err != nil {
		return nil, fmt.Errorf("failed to decode folder: %w", err)
	}
	return &folder, nil
}

func encodeFile(file *drive.File) ([]byte, error) {
	data, err := json.Marshal(fileRecord{File: *file, BlobKey: file.BlobKey})
	if err != nil {
		return nil, fmt.Errorf("failed to encode file: %w", err)
	}
	return data, nil
}

func decodeFile(data []byte) (*drive.File, error) {
	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode file: %w", err)
	}
	file := rec.File
	file.BlobKey = rec.BlobKey
	return &file, nil
}

func encodeCount(n uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return buf
}

func decodeCount(data []byte) (uint64, error) {
	if len(data) != 8 {
		return 0, fmt.Errorf("invalid counter length %d", len(data))
	}
	return binary.BigEndian.Uint64(data), nil
}
