package ebook

import (
	"context"

	"dressline/internal/domain/models/ebook"
)

// BookRepository defines data access operations for books in the local store
type BookRepository interface {
	// Create inserts a book and sets its store-assigned ID
	Create(ctx context.Context, book *ebook.Book) error

	// GetByID retrieves a book by ID
	GetByID(ctx context.Context, id int64) (*ebook.Book, error)

	// Update merges the non-nil patch fields into the book
	Update(ctx context.Context, id int64, patch ebook.BookPatch) (*ebook.Book, error)

	// Delete removes a book. Its modules are left in place.
	Delete(ctx context.Context, id int64) error

	// List returns all books in insertion order
	List(ctx context.Context) ([]ebook.Book, error)

	// First returns the book with the lowest ID
	First(ctx context.Context) (*ebook.Book, error)

	Count(ctx context.Context) (int, error)

	// DeleteAll clears the collection
	DeleteAll(ctx context.Context) error

	// BulkInsert inserts books, keeping non-zero caller-supplied IDs
	BulkInsert(ctx context.Context, books []ebook.Book) error

	// GetOrCreateDefault returns the first book, creating the placeholder book if none exists
	GetOrCreateDefault(ctx context.Context) (*ebook.Book, error)
}
