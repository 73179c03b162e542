package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"dressline/internal/domain"
	ebookRepo "dressline/internal/domain/repositories/ebook"
)

// KVOptions bounds the backup medium. Zero means unlimited.
type KVOptions struct {
	// MaxValueBytes rejects any single value larger than this
	MaxValueBytes int64
	// QuotaBytes rejects writes that would grow keys plus values beyond this
	QuotaBytes int64
}

// KVStore is a BackupStore kept in its own SQLite database. It never joins a
// transaction carried in ctx, since those belong to the local store database.
type KVStore struct {
	db     *sql.DB
	opts   KVOptions
	logger *slog.Logger
	now    func() time.Time
}

// NewKVStore creates a backup medium on a database opened with OpenBackupStore
func NewKVStore(config *RepositoryConfig, opts KVOptions) *KVStore {
	return &KVStore{
		db:     config.DB,
		opts:   opts,
		logger: config.Logger,
		now:    time.Now,
	}
}

var _ ebookRepo.BackupStore = (*KVStore)(nil)

// Get returns the value stored under key
func (s *KVStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM backup_entries WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if IsNoRowsError(err) {
			return "", fmt.Errorf("backup key %q: %w", key, domain.ErrNotFound)
		}
		return "", domain.NewStorageError("get "+key, err)
	}
	return value, nil
}

// Set writes key, enforcing the value limit and the total quota
func (s *KVStore) Set(ctx context.Context, key, value string) error {
	size := int64(len(key) + len(value))
	if s.opts.MaxValueBytes > 0 && int64(len(value)) > s.opts.MaxValueBytes {
		return &domain.StorageError{
			Op:  "set " + key,
			Err: fmt.Errorf("%w: value of %d bytes exceeds limit of %d", domain.ErrQuotaExceeded, len(value), s.opts.MaxValueBytes),
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("set "+key, err)
	}
	defer tx.Rollback()

	if s.opts.QuotaBytes > 0 {
		var total, existing int64
		err := tx.QueryRowContext(ctx, `
			SELECT
				COALESCE(SUM(length(CAST(key AS BLOB)) + length(CAST(value AS BLOB))), 0),
				COALESCE(SUM(CASE WHEN key = ? THEN length(CAST(key AS BLOB)) + length(CAST(value AS BLOB)) ELSE 0 END), 0)
			FROM backup_entries
		`, key).Scan(&total, &existing)
		if err != nil {
			return domain.NewStorageError("measure usage", err)
		}
		if total-existing+size > s.opts.QuotaBytes {
			return &domain.StorageError{
				Op:  "set " + key,
				Err: fmt.Errorf("%w: %d of %d bytes in use, write needs %d", domain.ErrQuotaExceeded, total-existing, s.opts.QuotaBytes, size),
			}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO backup_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return domain.NewStorageError("set "+key, err)
	}
	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("set "+key, err)
	}
	return nil
}

// Delete removes key
func (s *KVStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM backup_entries WHERE key = ?`, key); err != nil {
		return domain.NewStorageError("delete "+key, err)
	}
	return nil
}

// Keys lists keys starting with prefix, sorted
func (s *KVStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	// substr instead of LIKE: backup keys contain '_', a LIKE wildcard
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM backup_entries WHERE substr(key, 1, ?) = ? ORDER BY key`, len(prefix), prefix)
	if err != nil {
		return nil, domain.NewStorageError("list keys", err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, domain.NewStorageError("list keys", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list keys", err)
	}
	return keys, nil
}

// Usage returns the bytes currently held, as counted against the quota
func (s *KVStore) Usage(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(length(CAST(key AS BLOB)) + length(CAST(value AS BLOB))), 0) FROM backup_entries`).Scan(&total)
	if err != nil {
		return 0, domain.NewStorageError("measure usage", err)
	}
	return total, nil
}
