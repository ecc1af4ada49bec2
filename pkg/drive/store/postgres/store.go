// Package postgres implements a drive.Store on PostgreSQL.
//
// Parent links are foreign keys with ON DELETE RESTRICT, so the database
// itself refuses to orphan a record. Mutations run in SERIALIZABLE
// transactions and are replayed on serialization failures.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/drive"
)

// querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresDriveStore is a drive.Store backed by PostgreSQL.
type PostgresDriveStore struct {
	pool   *pgxpool.Pool
	config *PostgresDriveStoreConfig
}

// NewPostgresDriveStore connects to PostgreSQL, optionally applies the
// schema migrations, and makes sure the root folder exists.
func NewPostgresDriveStore(ctx context.Context, cfg *PostgresDriveStoreConfig) (*PostgresDriveStore, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	pool, err := openPool(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		version, err := migrateUp(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("Drive schema migrated", "version", version)
	}

	store := &PostgresDriveStore{pool: pool, config: cfg}
	if err := store.ensureRoot(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize root folder: %w", err)
	}

	return store, nil
}

func (s *PostgresDriveStore) ensureRoot(ctx context.Context) error {
	root := drive.NewRootFolder()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO folders (id, name, parent_id, owner_id, created_at)
		VALUES ($1, $2, NULL, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		root.ID, root.Name, root.OwnerID, root.CreatedAt)
	return err
}

// ============================================================================
// Transaction Support
// ============================================================================

// WithTransaction executes fn within a SERIALIZABLE transaction.
//
// If fn returns an error, the transaction is rolled back. If fn returns nil,
// the transaction is committed. Serialization failures and deadlocks replay
// fn from scratch, up to MaxTxRetries times.
func (s *PostgresDriveStore) WithTransaction(ctx context.Context, fn func(tx drive.Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 5 * time.Millisecond
	policy.MaxInterval = 200 * time.Millisecond

	bounded := backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(s.config.MaxTxRetries)), ctx)

	return backoff.Retry(func() error {
		err := s.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if isRetryable(err) {
			logger.Debug("postgres transaction serialization failure, retrying", logger.KeyError, err)
			return err
		}
		return backoff.Permanent(err)
	}, bounded)
}

func (s *PostgresDriveStore) runTx(ctx context.Context, fn func(tx drive.Transaction) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }() // No-op if committed

	if err := fn(&postgresTransaction{q: tx}); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *PostgresDriveStore) direct() *postgresTransaction {
	return &postgresTransaction{q: s.pool}
}

// ============================================================================
// Direct (non-transactional) operations
// ============================================================================

// GetFolder retrieves a folder by id.
func (s *PostgresDriveStore) GetFolder(ctx context.Context, id string) (*drive.Folder, error) {
	return s.direct().GetFolder(ctx, id)
}

// GetFile retrieves a file by id.
func (s *PostgresDriveStore) GetFile(ctx context.Context, id string) (*drive.File, error) {
	return s.direct().GetFile(ctx, id)
}

// ListChildren returns the direct children of a folder. It runs in a
// transaction so the existence check and both listings see one snapshot.
func (s *PostgresDriveStore) ListChildren(ctx context.Context, folderID string) (*drive.Contents, error) {
	var contents *drive.Contents
	err := s.WithTransaction(ctx, func(tx drive.Transaction) error {
		var err error
		contents, err = tx.ListChildren(ctx, folderID)
		return err
	})
	return contents, err
}

// CountFolders returns the number of folders, root included.
func (s *PostgresDriveStore) CountFolders(ctx context.Context) (int, error) {
	return s.direct().CountFolders(ctx)
}

// InsertFolder stores a new folder.
func (s *PostgresDriveStore) InsertFolder(ctx context.Context, folder *drive.Folder) error {
	return s.direct().InsertFolder(ctx, folder)
}

// InsertFile stores a new file.
func (s *PostgresDriveStore) InsertFile(ctx context.Context, file *drive.File) error {
	return s.direct().InsertFile(ctx, file)
}

// UpdateFolder replaces a stored folder.
func (s *PostgresDriveStore) UpdateFolder(ctx context.Context, folder *drive.Folder) error {
	return s.direct().UpdateFolder(ctx, folder)
}

// UpdateFile replaces a stored file.
func (s *PostgresDriveStore) UpdateFile(ctx context.Context, file *drive.File) error {
	return s.direct().UpdateFile(ctx, file)
}

// RemoveFolder deletes an empty folder.
func (s *PostgresDriveStore) RemoveFolder(ctx context.Context, id string) error {
	return s.WithTransaction(ctx, func(tx drive.Transaction) error {
		return tx.RemoveFolder(ctx, id)
	})
}

// RemoveFile deletes a file.
func (s *PostgresDriveStore) RemoveFile(ctx context.Context, id string) error {
	return s.direct().RemoveFile(ctx, id)
}

// ============================================================================
// Lifecycle
// ============================================================================

// Healthcheck pings the database.
func (s *PostgresDriveStore) Healthcheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PostgresDriveStore) Close() error {
	logger.Info("Closing PostgreSQL connection pool...")
	s.pool.Close()
	return nil
}

var _ drive.Store = (*PostgresDriveStore)(nil)
