package ebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dressline/internal/config"
	"dressline/internal/domain"
	models "dressline/internal/domain/models/ebook"
	"dressline/internal/domain/repositories"
	ebookRepo "dressline/internal/domain/repositories/ebook"
	ebookSvc "dressline/internal/domain/services/ebook"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// snapshotService implements the SnapshotService interface
type snapshotService struct {
	bookRepo    ebookRepo.BookRepository
	moduleRepo  ebookRepo.ModuleRepository
	txManager   repositories.TransactionManager
	mirror      ebookRepo.BackupStore
	backup      ebookSvc.BackupTrigger
	mdConverter *converter.Converter
	now         func() time.Time
	logger      *slog.Logger
}

// NewSnapshotService creates a snapshot service. mirror receives a copy of
// every persisted snapshot; trigger may be nil.
func NewSnapshotService(
	bookRepo ebookRepo.BookRepository,
	moduleRepo ebookRepo.ModuleRepository,
	txManager repositories.TransactionManager,
	mirror ebookRepo.BackupStore,
	trigger ebookSvc.BackupTrigger,
	logger *slog.Logger,
) ebookSvc.SnapshotService {
	if trigger == nil {
		trigger = noopTrigger{}
	}
	return &snapshotService{
		bookRepo:   bookRepo,
		moduleRepo: moduleRepo,
		txManager:  txManager,
		mirror:     mirror,
		backup:     trigger,
		mdConverter: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		now:    time.Now,
		logger: logger,
	}
}

// ExportSnapshot wraps both collections with the export time
func (s *snapshotService) ExportSnapshot(books []models.Book, modules []models.Module) ([]byte, error) {
	if books == nil {
		books = []models.Book{}
	}
	if modules == nil {
		modules = []models.Module{}
	}

	data, err := json.MarshalIndent(models.Snapshot{
		Books:      books,
		Modules:    modules,
		ExportDate: s.now().UTC().Truncate(time.Millisecond),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// Export serializes the current store contents
func (s *snapshotService) Export(ctx context.Context) ([]byte, error) {
	books, modules, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.ExportSnapshot(books, modules)
}

func (s *snapshotService) readAll(ctx context.Context) ([]models.Book, []models.Module, error) {
	books, err := s.bookRepo.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	modules, err := s.moduleRepo.ListAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	return books, modules, nil
}

// PersistSnapshot replaces the store contents keeping the given identifiers
func (s *snapshotService) PersistSnapshot(ctx context.Context, books []models.Book, modules []models.Module) ([]byte, error) {
	data, _, err := s.persist(ctx, books, modules, models.ImportPreserve)
	return data, err
}

// persist clears and refills the store in one transaction, then mirrors the
// stored contents. A failed mirror write is logged only.
func (s *snapshotService) persist(ctx context.Context, books []models.Book, modules []models.Module, mode models.ImportMode) ([]byte, *models.Snapshot, error) {
	if err := validateSnapshot(books, modules, mode); err != nil {
		return nil, nil, err
	}

	// BulkInsert writes assigned ids back into its argument
	books = append([]models.Book(nil), books...)
	modules = append([]models.Module(nil), modules...)

	var storedBooks []models.Book
	var storedModules []models.Module
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.moduleRepo.DeleteAll(ctx); err != nil {
			return err
		}
		if err := s.bookRepo.DeleteAll(ctx); err != nil {
			return err
		}

		if mode == models.ImportReassign {
			remap := make(map[int64]int64, len(books))
			for i := range books {
				oldID := books[i].ID
				books[i].ID = 0
				if err := s.bookRepo.Create(ctx, &books[i]); err != nil {
					return err
				}
				remap[oldID] = books[i].ID
			}
			for i := range modules {
				modules[i].ID = 0
				if newID, ok := remap[modules[i].BookID]; ok {
					modules[i].BookID = newID
				}
			}
		} else if err := s.bookRepo.BulkInsert(ctx, books); err != nil {
			return err
		}

		if err := s.moduleRepo.BulkInsert(ctx, modules); err != nil {
			return err
		}

		var err error
		storedBooks, storedModules, err = s.readAll(ctx)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	data, err := s.ExportSnapshot(storedBooks, storedModules)
	if err != nil {
		return nil, nil, err
	}
	if err := s.mirror.Set(ctx, models.SnapshotMirrorKey, string(data)); err != nil {
		s.logger.Warn("snapshot mirror not written", "error", err)
	}

	s.logger.Info("snapshot persisted",
		"books", len(storedBooks),
		"modules", len(storedModules),
		"mode", mode,
	)
	s.backup.Trigger()

	return data, &models.Snapshot{Books: storedBooks, Modules: storedModules}, nil
}

// LoadPersistedSnapshot re-applies the mirrored snapshot. It returns nil, nil
// when no snapshot has been mirrored.
func (s *snapshotService) LoadPersistedSnapshot(ctx context.Context) (*models.Snapshot, error) {
	raw, err := s.mirror.Get(ctx, models.SnapshotMirrorKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	snapshot, err := parseSnapshot([]byte(raw))
	if err != nil {
		return nil, err
	}
	if _, _, err := s.persist(ctx, snapshot.Books, snapshot.Modules, models.ImportPreserve); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// ImportSnapshot reads and parses r completely before touching the store
func (s *snapshotService) ImportSnapshot(ctx context.Context, r io.Reader, mode models.ImportMode) (*models.Snapshot, error) {
	if mode == "" {
		mode = models.ImportPreserve
	}
	if mode != models.ImportPreserve && mode != models.ImportReassign {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown import mode %q", mode)}
	}

	raw, err := io.ReadAll(io.LimitReader(r, config.MaxSnapshotBytes+1))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("%w: snapshot exceeds %d bytes", domain.ErrTooLarge, maxErr.Limit)
		}
		return nil, &domain.ValidationError{Message: fmt.Sprintf("read snapshot: %v", err)}
	}
	if len(raw) > config.MaxSnapshotBytes {
		return nil, fmt.Errorf("%w: snapshot exceeds %d bytes", domain.ErrTooLarge, config.MaxSnapshotBytes)
	}

	snapshot, err := parseSnapshot(raw)
	if err != nil {
		return nil, err
	}

	_, stored, err := s.persist(ctx, snapshot.Books, snapshot.Modules, mode)
	if err != nil {
		return nil, err
	}
	stored.ExportDate = snapshot.ExportDate
	return stored, nil
}

// parseSnapshot decodes a snapshot document. Both collections must be present;
// exportDate is informational and ignored when it cannot be read.
func parseSnapshot(raw []byte) (*models.Snapshot, error) {
	var doc struct {
		Books      *[]models.Book   `json:"books"`
		Modules    *[]models.Module `json:"modules"`
		ExportDate json.RawMessage  `json:"exportDate"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("invalid snapshot: %v", err)}
	}
	if doc.Books == nil || doc.Modules == nil {
		return nil, &domain.ValidationError{Message: "invalid snapshot: books and modules are required"}
	}

	return &models.Snapshot{
		Books:      *doc.Books,
		Modules:    *doc.Modules,
		ExportDate: parseExportDate(doc.ExportDate),
	}, nil
}

var exportDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseExportDate returns the zero time for missing or unreadable dates
func parseExportDate(raw json.RawMessage) time.Time {
	var value string
	if len(raw) == 0 || json.Unmarshal(raw, &value) != nil {
		return time.Time{}
	}
	for _, layout := range exportDateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// validateSnapshot rejects duplicate identifiers that would fail half way through the insert.
func validateSnapshot(books []models.Book, modules []models.Module, mode models.ImportMode) error {
	bookIDs := make([]int64, len(books))
	for i, b := range books {
		bookIDs[i] = b.ID
	}
	if dups := duplicateIDs(bookIDs); len(dups) > 0 {
		return &domain.ValidationError{Message: fmt.Sprintf("snapshot repeats book ids %v", dups)}
	}
	if mode == models.ImportReassign {
		return nil
	}

	moduleIDs := make([]int64, len(modules))
	for i, m := range modules {
		moduleIDs[i] = m.ID
	}
	if dups := duplicateIDs(moduleIDs); len(dups) > 0 {
		return &domain.ValidationError{Message: fmt.Sprintf("snapshot repeats module ids %v", dups)}
	}
	return nil
}

// ExportMarkdown renders the active book with its modules in order
func (s *snapshotService) ExportMarkdown(ctx context.Context) (string, error) {
	book, err := s.bookRepo.First(ctx)
	if err != nil {
		return "", err
	}
	modules, err := s.moduleRepo.ListByBook(ctx, book.ID)
	if err != nil {
		return "", err
	}

	var doc strings.Builder
	fmt.Fprintf(&doc, "<h1>%s</h1>\n%s\n", html.EscapeString(book.Title), book.WelcomeContent)
	for _, m := range modules {
		fmt.Fprintf(&doc, "<h2>%s</h2>\n%s\n", html.EscapeString(m.Title), m.Content)
		if m.PDFAttachment != nil && m.PDFAttachment.Kind == models.AttachmentInline {
			fmt.Fprintf(&doc, "<p><em>PDF: %s</em></p>\n", html.EscapeString(m.PDFAttachment.Name))
		}
	}
	doc.WriteString(book.Bibliography)

	markdown, err := s.mdConverter.ConvertString(doc.String())
	if err != nil {
		return "", fmt.Errorf("convert book to markdown: %w", err)
	}

	s.logger.Debug("book exported as markdown",
		"book_id", book.ID,
		"modules", len(modules),
	)
	return markdown, nil
}
