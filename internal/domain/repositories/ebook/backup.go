package ebook

import "context"

// BackupStore is the durable key-value medium holding attachment backups and
// the snapshot mirror. It is separate from the primary store and may enforce
// its own, smaller quota.
type BackupStore interface {
	// Get returns the value for key or an error matching domain.ErrNotFound
	Get(ctx context.Context, key string) (string, error)

	// Set writes key. A write over quota returns an error matching domain.ErrQuotaExceeded.
	Set(ctx context.Context, key, value string) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error

	// Keys lists the keys starting with prefix
	Keys(ctx context.Context, prefix string) ([]string, error)
}
