package ebook

import (
	"context"

	"dressline/internal/domain/models/ebook"
)

// RemoteStore is the cloud document mirror. Identifiers are remote-assigned strings.
type RemoteStore interface {
	// CreateBook stores a book and returns its remote ID
	CreateBook(ctx context.Context, book *ebook.RemoteBook) (string, error)

	// CreateModule stores a module and returns its remote ID
	CreateModule(ctx context.Context, module *ebook.RemoteModule) (string, error)

	// ListBooks returns at most limit books, oldest first
	ListBooks(ctx context.Context, limit int) ([]ebook.RemoteBook, error)

	// ListModulesByBook returns the modules whose BookID equals bookID, ascending by order
	ListModulesByBook(ctx context.Context, bookID string) ([]ebook.RemoteModule, error)

	DeleteBook(ctx context.Context, id string) error
	DeleteModule(ctx context.Context, id string) error
}
