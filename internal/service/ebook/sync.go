package ebook

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"dressline/internal/domain"
	models "dressline/internal/domain/models/ebook"
	"dressline/internal/domain/repositories"
	ebookRepo "dressline/internal/domain/repositories/ebook"
	ebookSvc "dressline/internal/domain/services/ebook"

	"github.com/sourcegraph/conc/pool"
)

// maxConcurrentDeletes bounds the remote module deletes issued at once.
const maxConcurrentDeletes = 8

// syncService implements the SyncService interface
type syncService struct {
	bookRepo   ebookRepo.BookRepository
	moduleRepo ebookRepo.ModuleRepository
	txManager  repositories.TransactionManager
	remote     ebookRepo.RemoteStore
	backup     ebookSvc.BackupTrigger
	logger     *slog.Logger
}

// NewSyncService creates a sync service against the remote store. trigger may be nil.
func NewSyncService(
	bookRepo ebookRepo.BookRepository,
	moduleRepo ebookRepo.ModuleRepository,
	txManager repositories.TransactionManager,
	remote ebookRepo.RemoteStore,
	trigger ebookSvc.BackupTrigger,
	logger *slog.Logger,
) ebookSvc.SyncService {
	if trigger == nil {
		trigger = noopTrigger{}
	}
	return &syncService{
		bookRepo:   bookRepo,
		moduleRepo: moduleRepo,
		txManager:  txManager,
		remote:     remote,
		backup:     trigger,
		logger:     logger,
	}
}

// remoteFailure makes sure err carries ErrRemote
func remoteFailure(op string, err error) error {
	if errors.Is(err, domain.ErrRemote) {
		return err
	}
	return domain.NewRemoteError(op, err)
}

// PushAll creates remote books first, then the modules whose book was pushed.
// On failure the result describes what was written before it.
func (s *syncService) PushAll(ctx context.Context, books []models.Book, modules []models.Module) (*models.PushResult, error) {
	result := &models.PushResult{BookIDs: make(map[int64]string, len(books))}

	for _, b := range books {
		remoteID, err := s.remote.CreateBook(ctx, &models.RemoteBook{
			Title:          b.Title,
			WelcomeContent: b.WelcomeContent,
			Bibliography:   b.Bibliography,
		})
		if err != nil {
			return result, remoteFailure("push book", err)
		}
		result.BookIDs[b.ID] = remoteID
	}

	for _, m := range modules {
		remoteBookID, ok := result.BookIDs[m.BookID]
		if !ok {
			result.ModulesSkipped++
			s.logger.Debug("skipping orphaned module",
				"module_id", m.ID,
				"book_id", m.BookID,
			)
			continue
		}

		order := m.Order
		_, err := s.remote.CreateModule(ctx, &models.RemoteModule{
			BookID:        remoteBookID,
			Title:         m.Title,
			Content:       m.Content,
			Order:         &order,
			PDFAttachment: m.PDFAttachment,
		})
		if err != nil {
			return result, remoteFailure("push module", err)
		}
		result.ModulesPushed++
	}

	s.logger.Info("pushed to remote",
		"books", len(result.BookIDs),
		"modules", result.ModulesPushed,
		"skipped", result.ModulesSkipped,
	)
	return result, nil
}

// PushLocal pushes the current store contents
func (s *syncService) PushLocal(ctx context.Context) (*models.PushResult, error) {
	books, err := s.bookRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	modules, err := s.moduleRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.PushAll(ctx, books, modules)
}

// PullAll replaces the local store with the first remote book and its
// modules. All remote reads finish before the local store is touched.
func (s *syncService) PullAll(ctx context.Context) (*models.PullResult, error) {
	remoteBooks, err := s.remote.ListBooks(ctx, models.RemoteBookPageSize)
	if err != nil {
		return nil, remoteFailure("list books", err)
	}
	if len(remoteBooks) == 0 {
		s.logger.Info("remote holds no books, pull skipped")
		return &models.PullResult{Skipped: true}, nil
	}
	first := remoteBooks[0]

	remoteModules, err := s.remote.ListModulesByBook(ctx, first.ID)
	if err != nil {
		return nil, remoteFailure("list modules", err)
	}
	remoteModules = slices.DeleteFunc(remoteModules, func(m models.RemoteModule) bool {
		return m.BookID != first.ID
	})
	slices.SortStableFunc(remoteModules, func(a, b models.RemoteModule) int {
		return cmp.Compare(remoteOrder(a), remoteOrder(b))
	})

	result := &models.PullResult{RemoteBookID: first.ID}
	err = s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.moduleRepo.DeleteAll(ctx); err != nil {
			return err
		}
		if err := s.bookRepo.DeleteAll(ctx); err != nil {
			return err
		}

		book := &models.Book{
			Title:          first.Title,
			WelcomeContent: first.WelcomeContent,
			Bibliography:   first.Bibliography,
		}
		if err := s.bookRepo.Create(ctx, book); err != nil {
			return err
		}
		result.LocalBookID = book.ID

		// remote orders only rank the modules; local ones are renumbered 1..N
		modules := make([]models.Module, 0, len(remoteModules))
		for i, rm := range remoteModules {
			modules = append(modules, models.Module{
				BookID:        book.ID,
				Title:         rm.Title,
				Content:       rm.Content,
				Order:         i + 1,
				PDFAttachment: rm.PDFAttachment,
			})
		}
		if err := s.moduleRepo.BulkInsert(ctx, modules); err != nil {
			return err
		}
		result.Modules = len(modules)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("pulled from remote",
		"remote_book_id", first.ID,
		"local_book_id", result.LocalBookID,
		"modules", result.Modules,
		"remote_books", len(remoteBooks),
	)
	s.backup.Trigger()

	return result, nil
}

func remoteOrder(m models.RemoteModule) int {
	if m.Order == nil {
		return 0
	}
	return *m.Order
}

// DeleteRemoteBook deletes the remote book, then deletes its modules
// concurrently. Module failures are joined into one error.
func (s *syncService) DeleteRemoteBook(ctx context.Context, remoteID string) error {
	if strings.TrimSpace(remoteID) == "" {
		return &domain.ValidationError{Message: "remote book id is required"}
	}

	if err := s.remote.DeleteBook(ctx, remoteID); err != nil {
		return remoteFailure("delete book", err)
	}

	modules, err := s.remote.ListModulesByBook(ctx, remoteID)
	if err != nil {
		return remoteFailure("list modules", err)
	}

	p := pool.New().WithContext(ctx).WithMaxGoroutines(maxConcurrentDeletes)
	for _, m := range modules {
		p.Go(func(ctx context.Context) error {
			if err := s.remote.DeleteModule(ctx, m.ID); err != nil {
				return fmt.Errorf("module %s: %w", m.ID, err)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		s.logger.Error("remote modules left behind",
			"remote_book_id", remoteID,
			"error", err,
		)
		return remoteFailure("delete modules", err)
	}

	s.logger.Info("remote book deleted",
		"remote_book_id", remoteID,
		"modules", len(modules),
	)
	return nil
}

// ListRemoteBooks returns the first page of remote books
func (s *syncService) ListRemoteBooks(ctx context.Context) ([]models.RemoteBookSummary, error) {
	books, err := s.remote.ListBooks(ctx, models.RemoteBookPageSize)
	if err != nil {
		return nil, remoteFailure("list books", err)
	}

	summaries := make([]models.RemoteBookSummary, 0, len(books))
	for _, b := range books {
		summaries = append(summaries, models.RemoteBookSummary{ID: b.ID, Title: b.Title})
	}
	return summaries, nil
}
