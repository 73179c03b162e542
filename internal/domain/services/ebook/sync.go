package ebook

import (
	"context"

	"dressline/internal/domain/models/ebook"
)

// SyncService reconciles the local store with the remote document mirror
type SyncService interface {
	// PushAll creates remote copies of the given books and of the modules
	// whose book was pushed in the same call. Each call creates new remote
	// documents; repeated pushes duplicate.
	PushAll(ctx context.Context, books []ebook.Book, modules []ebook.Module) (*ebook.PushResult, error)

	// PushLocal pushes the current store contents
	PushLocal(ctx context.Context) (*ebook.PushResult, error)

	// PullAll replaces the local store with the first remote book and its
	// modules. It is a no-op when the remote holds no books.
	PullAll(ctx context.Context) (*ebook.PullResult, error)

	// DeleteRemoteBook deletes a remote book and all its remote modules
	DeleteRemoteBook(ctx context.Context, remoteID string) error

	ListRemoteBooks(ctx context.Context) ([]ebook.RemoteBookSummary, error)
}
