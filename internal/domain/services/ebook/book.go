package ebook

import (
	"context"

	"dressline/internal/domain/models/ebook"
)

// CreateBookRequest represents a request to create a book
type CreateBookRequest struct {
	Title          string `json:"title"`
	WelcomeContent string `json:"welcomeContent"`
	Bibliography   string `json:"bibliography"`
}

// UpdateBookRequest represents a partial book update; nil fields are unchanged
type UpdateBookRequest struct {
	Title          *string `json:"title,omitempty"`
	WelcomeContent *string `json:"welcomeContent,omitempty"`
	Bibliography   *string `json:"bibliography,omitempty"`
}

// BookService defines business logic operations for books
type BookService interface {
	// GetActiveBook returns the first book, creating the default book when the store is empty
	GetActiveBook(ctx context.Context) (*ebook.Book, error)

	GetBook(ctx context.Context, id int64) (*ebook.Book, error)
	ListBooks(ctx context.Context) ([]ebook.Book, error)
	CreateBook(ctx context.Context, req *CreateBookRequest) (*ebook.Book, error)
	UpdateBook(ctx context.Context, id int64, req *UpdateBookRequest) (*ebook.Book, error)

	// DeleteBook removes a book together with its modules
	DeleteBook(ctx context.Context, id int64) error
}
