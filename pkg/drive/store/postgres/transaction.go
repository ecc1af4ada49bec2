package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/marmos91/dittodrive/pkg/drive"
	driveerrors "github.com/marmos91/dittodrive/pkg/drive/errors"
)

// postgresTransaction runs drive.Transaction operations against either a
// pgx.Tx (inside WithTransaction) or the pool (single statements).
type postgresTransaction struct {
	q querier
}

const folderColumns = `id, name, COALESCE(parent_id, ''), owner_id, created_at`

const fileColumns = `id, name, parent_id, owner_id, url, size, mime_type, blob_key, created_at`

func scanFolder(row pgx.Row) (*drive.Folder, error) {
	var f drive.Folder
	if err := row.Scan(&f.ID, &f.Name, &f.ParentID, &f.OwnerID, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.CreatedAt = f.CreatedAt.UTC()
	return &f, nil
}

func scanFile(row pgx.Row) (*drive.File, error) {
	var f drive.File
	if err := row.Scan(&f.ID, &f.Name, &f.ParentID, &f.OwnerID, &f.URL, &f.Size, &f.MimeType, &f.BlobKey, &f.CreatedAt); err != nil {
		return nil, err
	}
	f.CreatedAt = f.CreatedAt.UTC()
	return &f, nil
}

func nullableParent(parentID string) any {
	if parentID == "" {
		return nil
	}
	return parentID
}

// ============================================================================
// Reads
// ============================================================================

func (tx *postgresTransaction) GetFolder(ctx context.Context, id string) (*drive.Folder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	row := tx.q.QueryRow(ctx, `SELECT `+folderColumns+` FROM folders WHERE id = $1`, id)
	folder, err := scanFolder(row)
	if err != nil {
		return nil, mapPgError(err, "GetFolder", "folder", id)
	}
	return folder, nil
}

func (tx *postgresTransaction) GetFile(ctx context.Context, id string) (*drive.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	row := tx.q.QueryRow(ctx, `SELECT `+fileColumns+` FROM files WHERE id = $1`, id)
	file, err := scanFile(row)
	if err != nil {
		return nil, mapPgError(err, "GetFile", "file", id)
	}
	return file, nil
}

func (tx *postgresTransaction) ListChildren(ctx context.Context, folderID string) (*drive.Contents, error) {
	if _, err := tx.GetFolder(ctx, folderID); err != nil {
		return nil, err
	}

	contents := &drive.Contents{
		Folders: []*drive.Folder{},
		Files:   []*drive.File{},
	}

	rows, err := tx.q.Query(ctx,
		`SELECT `+folderColumns+` FROM folders WHERE parent_id = $1 ORDER BY name COLLATE "C", id COLLATE "C"`,
		folderID)
	if err != nil {
		return nil, mapPgError(err, "ListChildren", "folder", folderID)
	}
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			rows.Close()
			return nil, mapPgError(err, "ListChildren", "folder", folderID)
		}
		contents.Folders = append(contents.Folders, folder)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "ListChildren", "folder", folderID)
	}

	rows, err = tx.q.Query(ctx,
		`SELECT `+fileColumns+` FROM files WHERE parent_id = $1 ORDER BY name COLLATE "C", id COLLATE "C"`,
		folderID)
	if err != nil {
		return nil, mapPgError(err, "ListChildren", "folder", folderID)
	}
	defer rows.Close()
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, mapPgError(err, "ListChildren", "folder", folderID)
		}
		contents.Files = append(contents.Files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err, "ListChildren", "folder", folderID)
	}

	return contents, nil
}

func (tx *postgresTransaction) CountFolders(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int
	if err := tx.q.QueryRow(ctx, `SELECT count(*) FROM folders`).Scan(&count); err != nil {
		return 0, mapPgError(err, "CountFolders", "folder", "")
	}
	return count, nil
}

// ============================================================================
// Writes
// ============================================================================

func (tx *postgresTransaction) InsertFolder(ctx context.Context, folder *drive.Folder) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := tx.q.Exec(ctx,
		`INSERT INTO folders (id, name, parent_id, owner_id, created_at) VALUES ($1, $2, $3, $4, $5)`,
		folder.ID, folder.Name, nullableParent(folder.ParentID), folder.OwnerID, folder.CreatedAt)
	return mapInsertError(err, "InsertFolder", folder.ID, folder.ParentID)
}

func (tx *postgresTransaction) InsertFile(ctx context.Context, file *drive.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := tx.q.Exec(ctx,
		`INSERT INTO files (id, name, parent_id, owner_id, url, size, mime_type, blob_key, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		file.ID, file.Name, file.ParentID, file.OwnerID, file.URL, file.Size, file.MimeType, file.BlobKey, file.CreatedAt)
	return mapInsertError(err, "InsertFile", file.ID, file.ParentID)
}

func (tx *postgresTransaction) UpdateFolder(ctx context.Context, folder *drive.Folder) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tag, err := tx.q.Exec(ctx,
		`UPDATE folders SET name = $2, parent_id = $3, owner_id = $4 WHERE id = $1`,
		folder.ID, folder.Name, nullableParent(folder.ParentID), folder.OwnerID)
	if err != nil {
		return mapPgError(err, "UpdateFolder", "folder", folder.ParentID)
	}
	if tag.RowsAffected() == 0 {
		return driveerrors.NewNotFoundError(folder.ID, "folder")
	}
	return nil
}

func (tx *postgresTransaction) UpdateFile(ctx context.Context, file *drive.File) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tag, err := tx.q.Exec(ctx,
		`UPDATE files SET name = $2, parent_id = $3, owner_id = $4, url = $5, size = $6, mime_type = $7, blob_key = $8
		 WHERE id = $1`,
		file.ID, file.Name, file.ParentID, file.OwnerID, file.URL, file.Size, file.MimeType, file.BlobKey)
	if err != nil {
		return mapPgError(err, "UpdateFile", "file", file.ParentID)
	}
	if tag.RowsAffected() == 0 {
		return driveerrors.NewNotFoundError(file.ID, "file")
	}
	return nil
}

func (tx *postgresTransaction) RemoveFolder(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var hasChildren bool
	err := tx.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM folders WHERE parent_id = $1)
		    OR EXISTS (SELECT 1 FROM files WHERE parent_id = $1)`, id).Scan(&hasChildren)
	if err != nil {
		return mapPgError(err, "RemoveFolder", "folder", id)
	}
	if hasChildren {
		return driveerrors.NewNotEmptyError(id)
	}

	tag, err := tx.q.Exec(ctx, `DELETE FROM folders WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err, "RemoveFolder", "folder", id)
	}
	if tag.RowsAffected() == 0 {
		return driveerrors.NewNotFoundError(id, "folder")
	}
	return nil
}

func (tx *postgresTransaction) RemoveFile(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	tag, err := tx.q.Exec(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err, "RemoveFile", "file", id)
	}
	if tag.RowsAffected() == 0 {
		return driveerrors.NewNotFoundError(id, "file")
	}
	return nil
}
