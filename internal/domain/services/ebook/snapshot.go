package ebook

import (
	"context"
	"io"

	"dressline/internal/domain/models/ebook"
)

// SnapshotService exports and imports full store snapshots
type SnapshotService interface {
	// ExportSnapshot serializes the given collections; it does not touch the store
	ExportSnapshot(books []ebook.Book, modules []ebook.Module) ([]byte, error)

	// Export serializes the current store contents
	Export(ctx context.Context) ([]byte, error)

	// PersistSnapshot replaces the store contents with the given collections in
	// one transaction and mirrors the JSON into the backup medium
	PersistSnapshot(ctx context.Context, books []ebook.Book, modules []ebook.Module) ([]byte, error)

	// LoadPersistedSnapshot re-applies the mirrored snapshot; nil when none is stored
	LoadPersistedSnapshot(ctx context.Context) (*ebook.Snapshot, error)

	// ImportSnapshot parses r completely and then persists it
	ImportSnapshot(ctx context.Context, r io.Reader, mode ebook.ImportMode) (*ebook.Snapshot, error)

	// ExportMarkdown renders the active book as Markdown
	ExportMarkdown(ctx context.Context) (string, error)
}
