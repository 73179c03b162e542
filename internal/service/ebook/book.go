package ebook

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"dressline/internal/config"
	"dressline/internal/domain"
	models "dressline/internal/domain/models/ebook"
	"dressline/internal/domain/repositories"
	ebookRepo "dressline/internal/domain/repositories/ebook"
	ebookSvc "dressline/internal/domain/services/ebook"
	"dressline/internal/service/sanitizer"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// bookService implements the BookService interface
type bookService struct {
	bookRepo   ebookRepo.BookRepository
	moduleRepo ebookRepo.ModuleRepository
	txManager  repositories.TransactionManager
	sanitizer  *sanitizer.HTMLSanitizer
	backup     ebookSvc.BackupTrigger
	logger     *slog.Logger
}

// NewBookService creates a new book service. trigger may be nil.
func NewBookService(
	bookRepo ebookRepo.BookRepository,
	moduleRepo ebookRepo.ModuleRepository,
	txManager repositories.TransactionManager,
	htmlSanitizer *sanitizer.HTMLSanitizer,
	trigger ebookSvc.BackupTrigger,
	logger *slog.Logger,
) ebookSvc.BookService {
	if trigger == nil {
		trigger = noopTrigger{}
	}
	return &bookService{
		bookRepo:   bookRepo,
		moduleRepo: moduleRepo,
		txManager:  txManager,
		sanitizer:  htmlSanitizer,
		backup:     trigger,
		logger:     logger,
	}
}

// GetActiveBook returns the first book, creating the placeholder book on an empty store
func (s *bookService) GetActiveBook(ctx context.Context) (*models.Book, error) {
	return s.bookRepo.GetOrCreateDefault(ctx)
}

// GetBook retrieves a book by ID
func (s *bookService) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	return s.bookRepo.GetByID(ctx, id)
}

// ListBooks retrieves all books in insertion order
func (s *bookService) ListBooks(ctx context.Context) ([]models.Book, error) {
	return s.bookRepo.List(ctx)
}

// CreateBook creates a new book
func (s *bookService) CreateBook(ctx context.Context, req *ebookSvc.CreateBookRequest) (*models.Book, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	book := &models.Book{
		Title:          strings.TrimSpace(req.Title),
		WelcomeContent: s.sanitizer.Sanitize(req.WelcomeContent),
		Bibliography:   s.sanitizer.Sanitize(req.Bibliography),
	}
	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, err
	}

	s.logger.Info("book created",
		"id", book.ID,
		"title", book.Title,
	)

	return book, nil
}

// UpdateBook merges the supplied fields into the book
func (s *bookService) UpdateBook(ctx context.Context, id int64, req *ebookSvc.UpdateBookRequest) (*models.Book, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var patch models.BookPatch
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		patch.Title = &title
	}
	if req.WelcomeContent != nil {
		welcome := s.sanitizer.Sanitize(*req.WelcomeContent)
		patch.WelcomeContent = &welcome
	}
	if req.Bibliography != nil {
		bibliography := s.sanitizer.Sanitize(*req.Bibliography)
		patch.Bibliography = &bibliography
	}

	book, err := s.bookRepo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("book updated", "id", id)
	return book, nil
}

// DeleteBook removes a book and its modules in one transaction
func (s *bookService) DeleteBook(ctx context.Context, id int64) error {
	var removed int
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if _, err := s.bookRepo.GetByID(ctx, id); err != nil {
			return err
		}

		modules, err := s.moduleRepo.ListByBook(ctx, id)
		if err != nil {
			return err
		}
		for _, m := range modules {
			if err := s.moduleRepo.Delete(ctx, m.ID); err != nil {
				return err
			}
		}
		removed = len(modules)

		return s.bookRepo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.logger.Info("book deleted",
		"id", id,
		"modules_deleted", removed,
	)
	if removed > 0 {
		s.backup.Trigger()
	}
	return nil
}

// validateCreateRequest validates a create book request
func (s *bookService) validateCreateRequest(req *ebookSvc.CreateBookRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.Required,
			validation.Length(1, config.MaxBookTitleLength),
			validation.By(notBlank),
		),
	)
}

// validateUpdateRequest validates an update book request
func (s *bookService) validateUpdateRequest(req *ebookSvc.UpdateBookRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.NilOrNotEmpty,
			validation.Length(1, config.MaxBookTitleLength),
			validation.By(notBlank),
		),
	)
}
