package ebook

import (
	"context"

	"dressline/internal/domain/models/ebook"
)

// ModuleRepository defines data access operations for modules in the local store
type ModuleRepository interface {
	// Create inserts a module and sets its ID.
	// Returns *domain.OrphanedModuleError if the book does not exist.
	Create(ctx context.Context, module *ebook.Module) error

	GetByID(ctx context.Context, id int64) (*ebook.Module, error)

	// Update merges the non-nil patch fields. Changing BookID validates the new book.
	Update(ctx context.Context, id int64, patch ebook.ModulePatch) (*ebook.Module, error)

	// SetAttachment replaces the attachment; nil clears it
	SetAttachment(ctx context.Context, id int64, attachment *ebook.Attachment) error

	Delete(ctx context.Context, id int64) error

	// ListByBook returns the modules of a book sorted by order, then ID
	ListByBook(ctx context.Context, bookID int64) ([]ebook.Module, error)

	// ListAll returns every module, orphans included, by ID
	ListAll(ctx context.Context) ([]ebook.Module, error)

	Count(ctx context.Context) (int, error)

	// MaxOrder returns the highest order among a book's modules, 0 when it has none
	MaxOrder(ctx context.Context, bookID int64) (int, error)

	// UpdateOrders sets the order of each module ID in the map
	UpdateOrders(ctx context.Context, orders map[int64]int) error

	DeleteAll(ctx context.Context) error

	// BulkInsert inserts modules as given, keeping non-zero IDs. Book references
	// are not validated so snapshots with orphans import faithfully.
	BulkInsert(ctx context.Context, modules []ebook.Module) error
}
