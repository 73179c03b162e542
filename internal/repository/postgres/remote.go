package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"dressline/internal/domain"
	models "dressline/internal/domain/models/ebook"
	"dressline/internal/domain/repositories"
	ebookRepo "dressline/internal/domain/repositories/ebook"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRemoteStore implements the RemoteStore interface. Remote IDs are UUID strings.
type PostgresRemoteStore struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewRemoteStore creates a new remote store
func NewRemoteStore(config *RepositoryConfig) *PostgresRemoteStore {
	return &PostgresRemoteStore{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

var _ ebookRepo.RemoteStore = (*PostgresRemoteStore)(nil)

// EnsureSchema creates the mirror tables if they do not exist.
func (r *PostgresRemoteStore) EnsureSchema(ctx context.Context, tm repositories.TransactionManager) error {
	statements := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id              TEXT PRIMARY KEY,
			title           TEXT NOT NULL DEFAULT '',
			welcome_content TEXT NOT NULL DEFAULT '',
			bibliography    TEXT NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, r.tables.Books),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id             TEXT PRIMARY KEY,
			book_id        TEXT NOT NULL,
			title          TEXT NOT NULL DEFAULT '',
			content        TEXT NOT NULL DEFAULT '',
			sort_order     INTEGER,
			pdf_attachment JSONB,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, r.tables.Modules),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_book_order_idx ON %s (book_id, sort_order)`,
			r.tables.Modules, r.tables.Modules),
	}

	return tm.ExecTx(ctx, func(ctx context.Context) error {
		executor := GetExecutor(ctx, r.pool)
		for _, stmt := range statements {
			if _, err := executor.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("create remote schema: %w", err)
			}
		}
		r.logger.Info("remote schema ready", "books", r.tables.Books, "modules", r.tables.Modules)
		return nil
	})
}

// DropSchema drops both mirror tables with everything in them.
func (r *PostgresRemoteStore) DropSchema(ctx context.Context) error {
	executor := GetExecutor(ctx, r.pool)
	stmt := fmt.Sprintf(`DROP TABLE IF EXISTS %s, %s CASCADE`, r.tables.Modules, r.tables.Books)
	if _, err := executor.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("drop remote schema: %w", err)
	}
	r.logger.Warn("remote schema dropped", "books", r.tables.Books, "modules", r.tables.Modules)
	return nil
}

func remoteErr(op string, err error) error {
	if IsPgUndefinedTableError(err) {
		err = fmt.Errorf("%w (remote schema missing, run the seed command)", err)
	}
	return domain.NewRemoteError(op, err)
}

// CreateBook stores a book under a new UUID
func (r *PostgresRemoteStore) CreateBook(ctx context.Context, book *models.RemoteBook) (string, error) {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, title, welcome_content, bibliography)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, r.tables.Books)

	err := GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		uuid.NewString(),
		book.Title,
		book.WelcomeContent,
		book.Bibliography,
	).Scan(&book.ID, &book.CreatedAt)
	if err != nil {
		return "", remoteErr("create book", err)
	}
	return book.ID, nil
}

// CreateModule stores a module under a new UUID
func (r *PostgresRemoteStore) CreateModule(ctx context.Context, module *models.RemoteModule) (string, error) {
	attachment, err := encodeAttachment(module.PDFAttachment)
	if err != nil {
		return "", err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, book_id, title, content, sort_order, pdf_attachment)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb)
		RETURNING id, created_at
	`, r.tables.Modules)

	err = GetExecutor(ctx, r.pool).QueryRow(ctx, query,
		uuid.NewString(),
		module.BookID,
		module.Title,
		module.Content,
		module.Order,
		attachment,
	).Scan(&module.ID, &module.CreatedAt)
	if err != nil {
		return "", remoteErr("create module", err)
	}
	return module.ID, nil
}

// ListBooks returns at most limit books, oldest first
func (r *PostgresRemoteStore) ListBooks(ctx context.Context, limit int) ([]models.RemoteBook, error) {
	query := fmt.Sprintf(`
		SELECT id, title, welcome_content, bibliography, created_at
		FROM %s
		ORDER BY created_at, id
		LIMIT $1
	`, r.tables.Books)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, limit)
	if err != nil {
		return nil, remoteErr("list books", err)
	}
	defer rows.Close()

	books := []models.RemoteBook{}
	for rows.Next() {
		var book models.RemoteBook
		if err := rows.Scan(&book.ID, &book.Title, &book.WelcomeContent, &book.Bibliography, &book.CreatedAt); err != nil {
			return nil, remoteErr("scan book", err)
		}
		books = append(books, book)
	}
	if err := rows.Err(); err != nil {
		return nil, remoteErr("list books", err)
	}
	return books, nil
}

// ListModulesByBook returns a book's modules ascending by order. A missing order sorts as 0.
func (r *PostgresRemoteStore) ListModulesByBook(ctx context.Context, bookID string) ([]models.RemoteModule, error) {
	query := fmt.Sprintf(`
		SELECT id, book_id, title, content, sort_order, pdf_attachment::text, created_at
		FROM %s
		WHERE book_id = $1
		ORDER BY COALESCE(sort_order, 0), created_at, id
	`, r.tables.Modules)

	rows, err := GetExecutor(ctx, r.pool).Query(ctx, query, bookID)
	if err != nil {
		return nil, remoteErr("list modules", err)
	}
	defer rows.Close()

	modules := []models.RemoteModule{}
	for rows.Next() {
		module, err := scanRemoteModule(rows)
		if err != nil {
			return nil, remoteErr("scan module", err)
		}
		modules = append(modules, *module)
	}
	if err := rows.Err(); err != nil {
		return nil, remoteErr("list modules", err)
	}
	return modules, nil
}

func scanRemoteModule(row pgx.Row) (*models.RemoteModule, error) {
	var (
		module     models.RemoteModule
		attachment *string
	)
	err := row.Scan(&module.ID, &module.BookID, &module.Title, &module.Content, &module.Order, &attachment, &module.CreatedAt)
	if err != nil {
		return nil, err
	}
	if attachment != nil {
		var a models.Attachment
		if err := json.Unmarshal([]byte(*attachment), &a); err != nil {
			return nil, fmt.Errorf("module %s attachment: %w", module.ID, err)
		}
		module.PDFAttachment = &a
	}
	return &module, nil
}

func encodeAttachment(a *models.Attachment) (*string, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode attachment: %w", err)
	}
	s := string(b)
	return &s, nil
}

// DeleteBook removes a book. Deleting a missing book is not an error so a
// partially failed delete can be retried.
func (r *PostgresRemoteStore) DeleteBook(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Books)
	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id); err != nil {
		return remoteErr("delete book", err)
	}
	return nil
}

// DeleteModule removes a module
func (r *PostgresRemoteStore) DeleteModule(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Modules)
	if _, err := GetExecutor(ctx, r.pool).Exec(ctx, query, id); err != nil {
		return remoteErr("delete module", err)
	}
	return nil
}
