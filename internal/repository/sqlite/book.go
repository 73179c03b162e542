package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"dressline/internal/domain"
	models "dressline/internal/domain/models/ebook"
	ebookRepo "dressline/internal/domain/repositories/ebook"
)

const bookColumns = "id, title, welcome_content, bibliography"

// SQLiteBookRepository implements the BookRepository interface
type SQLiteBookRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewBookRepository creates a new book repository
func NewBookRepository(config *RepositoryConfig) ebookRepo.BookRepository {
	return &SQLiteBookRepository{
		db:     config.DB,
		logger: config.Logger,
	}
}

func scanBook(row interface{ Scan(...any) error }) (*models.Book, error) {
	var book models.Book
	if err := row.Scan(&book.ID, &book.Title, &book.WelcomeContent, &book.Bibliography); err != nil {
		return nil, err
	}
	return &book, nil
}

// Create inserts a book and sets its ID
func (r *SQLiteBookRepository) Create(ctx context.Context, book *models.Book) error {
	query := `
		INSERT INTO books (title, welcome_content, bibliography)
		VALUES (?, ?, ?)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query, book.Title, book.WelcomeContent, book.Bibliography).Scan(&book.ID)
	if err != nil {
		return domain.NewStorageError("create book", err)
	}
	return nil
}

// GetByID retrieves a book by ID
func (r *SQLiteBookRepository) GetByID(ctx context.Context, id int64) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE id = ?`

	book, err := scanBook(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if IsNoRowsError(err) {
			return nil, fmt.Errorf("book %d: %w", id, domain.ErrNotFound)
		}
		return nil, domain.NewStorageError("get book", err)
	}
	return book, nil
}

// Update merges the non-nil patch fields into the book
func (r *SQLiteBookRepository) Update(ctx context.Context, id int64, patch models.BookPatch) (*models.Book, error) {
	if patch.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	var sets []string
	var args []any
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.WelcomeContent != nil {
		sets = append(sets, "welcome_content = ?")
		args = append(args, *patch.WelcomeContent)
	}
	if patch.Bibliography != nil {
		sets = append(sets, "bibliography = ?")
		args = append(args, *patch.Bibliography)
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE books SET %s WHERE id = ? RETURNING %s`, strings.Join(sets, ", "), bookColumns)

	book, err := scanBook(GetExecutor(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if IsNoRowsError(err) {
			return nil, fmt.Errorf("book %d: %w", id, domain.ErrNotFound)
		}
		return nil, domain.NewStorageError("update book", err)
	}
	return book, nil
}

// Delete removes a book
func (r *SQLiteBookRepository) Delete(ctx context.Context, id int64) error {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return domain.NewStorageError("delete book", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("book %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// List returns all books in insertion order
func (r *SQLiteBookRepository) List(ctx context.Context) ([]models.Book, error) {
	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, `SELECT `+bookColumns+` FROM books ORDER BY id`)
	if err != nil {
		return nil, domain.NewStorageError("list books", err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, domain.NewStorageError("scan book", err)
		}
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStorageError("list books", err)
	}
	return books, nil
}

// First returns the book with the lowest ID
func (r *SQLiteBookRepository) First(ctx context.Context) (*models.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books ORDER BY id LIMIT 1`

	book, err := scanBook(GetExecutor(ctx, r.db).QueryRowContext(ctx, query))
	if err != nil {
		if IsNoRowsError(err) {
			return nil, fmt.Errorf("first book: %w", domain.ErrNotFound)
		}
		return nil, domain.NewStorageError("first book", err)
	}
	return book, nil
}

func (r *SQLiteBookRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, `SELECT COUNT(*) FROM books`).Scan(&n); err != nil {
		return 0, domain.NewStorageError("count books", err)
	}
	return n, nil
}

// DeleteAll clears the collection
func (r *SQLiteBookRepository) DeleteAll(ctx context.Context) error {
	if _, err := GetExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM books`); err != nil {
		return domain.NewStorageError("clear books", err)
	}
	return nil
}

// BulkInsert inserts books atomically, keeping non-zero IDs
func (r *SQLiteBookRepository) BulkInsert(ctx context.Context, books []models.Book) error {
	if len(books) == 0 {
		return nil
	}

	return inTx(ctx, r.db, func(ctx context.Context) error {
		executor := GetExecutor(ctx, r.db)
		for i := range books {
			book := &books[i]
			var id any
			if book.ID != 0 {
				id = book.ID
			}
			err := executor.QueryRowContext(ctx, `
				INSERT INTO books (id, title, welcome_content, bibliography)
				VALUES (?, ?, ?, ?)
				RETURNING id
			`, id, book.Title, book.WelcomeContent, book.Bibliography).Scan(&book.ID)
			if err != nil {
				if IsDuplicateError(err) {
					return &domain.ConflictError{
						Message:      fmt.Sprintf("book %d already exists", book.ID),
						ResourceType: "book",
						ResourceID:   fmt.Sprint(book.ID),
					}
				}
				return domain.NewStorageError("bulk insert books", err)
			}
		}
		return nil
	})
}

// GetOrCreateDefault returns the first book, creating the placeholder book when the collection is empty
func (r *SQLiteBookRepository) GetOrCreateDefault(ctx context.Context) (*models.Book, error) {
	var book *models.Book
	err := inTx(ctx, r.db, func(ctx context.Context) error {
		first, err := r.First(ctx)
		if err == nil {
			book = first
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		book = models.NewDefaultBook()
		if err := r.Create(ctx, book); err != nil {
			return err
		}
		r.logger.Info("default book created", "id", book.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}
