package drive

import (
	"strings"
	"time"
)

const (
	// RootFolderID is the fixed id of the root folder.
	RootFolderID = "root"

	// RootFolderName is the display name of the root folder.
	RootFolderName = "My Drive"
)

// Folder is a node of the tree. ParentID is empty only for the root.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parentId,omitempty"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}

// IsRoot reports whether f is the root folder.
func (f *Folder) IsRoot() bool {
	return f.ID == RootFolderID
}

// Clone returns a copy of f.
func (f *Folder) Clone() *Folder {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

// File is a leaf of the tree. A file always lives in exactly one folder.
type File struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ParentID  string    `json:"parentId"`
	OwnerID   string    `json:"ownerId"`
	URL       string    `json:"url"`
	Size      int64     `json:"size"`
	MimeType  string    `json:"mimeType"`
	BlobKey   string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a copy of f.
func (f *File) Clone() *File {
	if f == nil {
		return nil
	}
	c := *f
	return &c
}

// Breadcrumb is one step of the root-to-leaf trail shown above a listing.
type Breadcrumb struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Contents holds the direct children of a folder.
type Contents struct {
	Folders []*Folder `json:"folders"`
	Files   []*File   `json:"files"`
}

// Navigation is the result of opening a folder.
// Redirected is set when the requested folder was missing and the root was
// opened instead.
type Navigation struct {
	FolderID    string       `json:"folderId"`
	Contents    *Contents    `json:"contents"`
	Breadcrumbs []Breadcrumb `json:"breadcrumbs"`
	Redirected  bool         `json:"redirected"`
}

// DeleteResult reports what a recursive folder delete removed.
type DeleteResult struct {
	Folders int `json:"folders"`
	Files   int `json:"files"`
}

// NewRootFolder returns the root folder record.
func NewRootFolder() *Folder {
	return &Folder{
		ID:        RootFolderID,
		Name:      RootFolderName,
		CreatedAt: time.Unix(0, 0).UTC(),
	}
}

// NormalizeName trims surrounding whitespace from a user supplied name.
func NormalizeName(name string) string {
	return strings.TrimSpace(name)
}
