package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"dressline/internal/domain"
	models "dressline/internal/domain/models/ebook"
	ebookRepo "dressline/internal/domain/repositories/ebook"
)

const moduleColumns = "id, book_id, title, content, sort_order, attachment_kind, attachment_name, attachment_data"

// SQLiteModuleRepository implements the ModuleRepository interface
type SQLiteModuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewModuleRepository creates a new module repository
func NewModuleRepository(config *RepositoryConfig) ebookRepo.ModuleRepository {
	return &SQLiteModuleRepository{
		db:     config.DB,
		logger: config.Logger,
	}
}

func scanModule(row interface{ Scan(...any) error }) (*models.Module, error) {
	var (
		module     models.Module
		kind       string
		name, data string
	)
	err := row.Scan(&module.ID, &module.BookID, &module.Title, &module.Content, &module.Order, &kind, &name, &data)
	if err != nil {
		return nil, err
	}
	module.PDFAttachment = attachmentFromColumns(models.AttachmentKind(kind), name, data)
	return &module, nil
}

// attachmentFromColumns resolves the stored columns into the tagged variant.
func attachmentFromColumns(kind models.AttachmentKind, name, data string) *models.Attachment {
	switch kind {
	case models.AttachmentInline:
		return models.NewInlineAttachment(name, data)
	case models.AttachmentLegacy:
		return models.NewLegacyAttachment(data)
	default:
		return nil
	}
}

// attachmentColumns is the inverse of attachmentFromColumns.
func attachmentColumns(a *models.Attachment) (kind, name, data string) {
	if a == nil {
		return "", "", ""
	}
	switch a.Kind {
	case models.AttachmentLegacy:
		return string(models.AttachmentLegacy), "", a.Reference
	default:
		return string(models.AttachmentInline), a.Name, a.Data
	}
}

func (r *SQLiteModuleRepository) ensureBook(ctx context.Context, moduleID, bookID int64) error {
	var exists int
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM books WHERE id = ?`, bookID).Scan(&exists)
	if err != nil {
		return domain.NewStorageError("check book", err)
	}
	if exists == 0 {
		return &domain.OrphanedModuleError{ModuleID: moduleID, BookID: bookID}
	}
	return nil
}

// Create inserts a module after checking its book exists
func (r *SQLiteModuleRepository) Create(ctx context.Context, module *models.Module) error {
	return inTx(ctx, r.db, func(ctx context.Context) error {
		if err := r.ensureBook(ctx, 0, module.BookID); err != nil {
			return err
		}

		kind, name, data := attachmentColumns(module.PDFAttachment)
		err := GetExecutor(ctx, r.db).QueryRowContext(ctx, `
			INSERT INTO modules (book_id, title, content, sort_order, attachment_kind, attachment_name, attachment_data)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`, module.BookID, module.Title, module.Content, module.Order, kind, name, data).Scan(&module.ID)
		if err != nil {
			return domain.NewStorageError("create module", err)
		}
		return nil
	})
}

// GetByID retrieves a module by ID
func (r *SQLiteModuleRepository) GetByID(ctx context.Context, id int64) (*models.Module, error) {
	query := `SELECT ` + moduleColumns + ` FROM modules WHERE id = ?`

	module, err := scanModule(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if IsNoRowsError(err) {
			return nil, fmt.Errorf("module %d: %w", id, domain.ErrNotFound)
		}
		return nil, domain.NewStorageError("get module", err)
	}
	return module, nil
}

// Update merges the non-nil patch fields into the module
func (r *SQLiteModuleRepository) Update(ctx context.Context, id int64, patch models.ModulePatch) (*models.Module, error) {
	if patch.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	var module *models.Module
	err := inTx(ctx, r.db, func(ctx context.Context) error {
		var sets []string
		var args []any
		if patch.BookID != nil {
			if err := r.ensureBook(ctx, id, *patch.BookID); err != nil {
				return err
			}
			sets = append(sets, "book_id = ?")
			args = append(args, *patch.BookID)
		}
		if patch.Title != nil {
			sets = append(sets, "title = ?")
			args = append(args, *patch.Title)
		}
		if patch.Content != nil {
			sets = append(sets, "content = ?")
			args = append(args, *patch.Content)
		}
		if patch.Order != nil {
			sets = append(sets, "sort_order = ?")
			args = append(args, *patch.Order)
		}
		args = append(args, id)

		query := fmt.Sprintf(`UPDATE modules SET %s WHERE id = ? RETURNING %s`, strings.Join(sets, ", "), moduleColumns)
		updated, err := scanModule(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, args...))
		if err != nil {
			if IsNoRowsError(err) {
				return fmt.Errorf("module %d: %w", id, domain.ErrNotFound)
			}
			return domain.NewStorageError("update module", err)
		}
		module = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return module, nil
}

// SetAttachment replaces the attachment; nil clears it
func (r *SQLiteModuleRepository) SetAttachment(ctx context.Context, id int64, attachment *models.Attachment) error {
	kind, name, data := attachmentColumns(attachment)
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, `
		UPDATE modules SET attachment_kind = ?, attachment_name = ?, attachment_data = ?
		WHERE id = ?
	`, kind, name, data, id)
	if err != nil {
		return domain.NewStorageError("set attachment", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("module %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Delete removes a module
func (r *SQLiteModuleRepository) Delete(ctx context.Context, id int64) error {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM modules WHERE id = ?`, id)
	if err != nil {
		return domain.NewStorageError("delete module", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("module %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *SQLiteModuleRepository) list(ctx context.Context, op, query string, args ...any) ([]models.Module, error) {
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	defer rows.Close()

	modules := []models.Module{}
	for rows.Next() {
		module, err := scanModule(rows)
		if err != nil {
			return nil, domain.NewStorageError(op, err)
		}
		modules = append(modules, *module)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError(op, err)
	}
	return modules, nil
}

// ListByBook returns a book's modules sorted by order, then ID
func (r *SQLiteModuleRepository) ListByBook(ctx context.Context, bookID int64) ([]models.Module, error) {
	return r.list(ctx, "list modules by book",
		`SELECT `+moduleColumns+` FROM modules WHERE book_id = ? ORDER BY sort_order, id`, bookID)
}

// ListAll returns every module by ID
func (r *SQLiteModuleRepository) ListAll(ctx context.Context) ([]models.Module, error) {
	return r.list(ctx, "list modules", `SELECT `+moduleColumns+` FROM modules ORDER BY id`)
}

func (r *SQLiteModuleRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM modules`).Scan(&n); err != nil {
		return 0, domain.NewStorageError("count modules", err)
	}
	return n, nil
}

// MaxOrder returns the highest order among a book's modules
func (r *SQLiteModuleRepository) MaxOrder(ctx context.Context, bookID int64) (int, error) {
	var n int
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sort_order), 0) FROM modules WHERE book_id = ?`, bookID).Scan(&n)
	if err != nil {
		return 0, domain.NewStorageError("max module order", err)
	}
	return n, nil
}

// UpdateOrders sets the order of each module in one transaction
func (r *SQLiteModuleRepository) UpdateOrders(ctx context.Context, orders map[int64]int) error {
	if len(orders) == 0 {
		return nil
	}

	return inTx(ctx, r.db, func(ctx context.Context) error {
		executor := GetExecutor(ctx, r.db)
		for id, order := range orders {
			result, err := executor.ExecContext(ctx, `UPDATE modules SET sort_order = ? WHERE id = ?`, order, id)
			if err != nil {
				return domain.NewStorageError("update module order", err)
			}
			if n, _ := result.RowsAffected(); n == 0 {
				return fmt.Errorf("module %d: %w", id, domain.ErrNotFound)
			}
		}
		return nil
	})
}

// DeleteAll clears the collection
func (r *SQLiteModuleRepository) DeleteAll(ctx context.Context) error {
	if _, err := GetExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM modules`); err != nil {
		return domain.NewStorageError("clear modules", err)
	}
	return nil
}

// BulkInsert inserts modules atomically, keeping non-zero IDs. Book
// references are not checked.
func (r *SQLiteModuleRepository) BulkInsert(ctx context.Context, modules []models.Module) error {
	if len(modules) == 0 {
		return nil
	}

	return inTx(ctx, r.db, func(ctx context.Context) error {
		executor := GetExecutor(ctx, r.db)
		for i := range modules {
			module := &modules[i]
			var id any
			if module.ID != 0 {
				id = module.ID
			}
			kind, name, data := attachmentColumns(module.PDFAttachment)
			err := executor.QueryRowContext(ctx, `
				INSERT INTO modules (id, book_id, title, content, sort_order, attachment_kind, attachment_name, attachment_data)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
				RETURNING id
			`, id, module.BookID, module.Title, module.Content, module.Order, kind, name, data).Scan(&module.ID)
			if err != nil {
				if IsDuplicateError(err) {
					return &domain.ConflictError{
						Message:      fmt.Sprintf("module %d already exists", module.ID),
						ResourceType: "module",
						ResourceID:   fmt.Sprint(module.ID),
					}
				}
				return domain.NewStorageError("bulk insert modules", err)
			}
		}
		return nil
	})
}
