package ebook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"dressline/internal/attachment"
	"dressline/internal/config"
	"dressline/internal/domain"
	models "dressline/internal/domain/models/ebook"
	"dressline/internal/domain/repositories"
	ebookRepo "dressline/internal/domain/repositories/ebook"
	ebookSvc "dressline/internal/domain/services/ebook"
	"dressline/internal/service/sanitizer"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type noopTrigger struct{}

func (noopTrigger) Trigger() {}

// moduleService implements the ModuleService interface
type moduleService struct {
	moduleRepo ebookRepo.ModuleRepository
	txManager  repositories.TransactionManager
	sanitizer  *sanitizer.HTMLSanitizer
	backup     ebookSvc.BackupTrigger
	logger     *slog.Logger
}

// NewModuleService creates a new module service. trigger may be nil.
func NewModuleService(
	moduleRepo ebookRepo.ModuleRepository,
	txManager repositories.TransactionManager,
	htmlSanitizer *sanitizer.HTMLSanitizer,
	trigger ebookSvc.BackupTrigger,
	logger *slog.Logger,
) ebookSvc.ModuleService {
	if trigger == nil {
		trigger = noopTrigger{}
	}
	return &moduleService{
		moduleRepo: moduleRepo,
		txManager:  txManager,
		sanitizer:  htmlSanitizer,
		backup:     trigger,
		logger:     logger,
	}
}

// CreateModule appends a module after the book's last module
func (s *moduleService) CreateModule(ctx context.Context, req *ebookSvc.CreateModuleRequest) (*models.Module, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	module := &models.Module{
		BookID:  req.BookID,
		Title:   strings.TrimSpace(req.Title),
		Content: s.sanitizer.Sanitize(req.Content),
	}

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		// siblings written by a pull or an import may not be numbered 1..N yet
		if err := s.reindex(ctx, req.BookID); err != nil {
			return err
		}
		maxOrder, err := s.moduleRepo.MaxOrder(ctx, req.BookID)
		if err != nil {
			return err
		}
		module.Order = maxOrder + 1
		return s.moduleRepo.Create(ctx, module)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("module created",
		"id", module.ID,
		"book_id", module.BookID,
		"order", module.Order,
	)
	s.backup.Trigger()

	return module, nil
}

// GetModule retrieves a module by ID
func (s *moduleService) GetModule(ctx context.Context, id int64) (*models.Module, error) {
	return s.moduleRepo.GetByID(ctx, id)
}

// ListModules retrieves a book's modules in order
func (s *moduleService) ListModules(ctx context.Context, bookID int64) ([]models.Module, error) {
	return s.moduleRepo.ListByBook(ctx, bookID)
}

// UpdateModule merges the supplied fields into the module
func (s *moduleService) UpdateModule(ctx context.Context, id int64, req *ebookSvc.UpdateModuleRequest) (*models.Module, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var patch models.ModulePatch
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		patch.Title = &title
	}
	if req.Content != nil {
		content := s.sanitizer.Sanitize(*req.Content)
		patch.Content = &content
	}

	module, err := s.moduleRepo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	s.logger.Info("module updated", "id", id)
	return module, nil
}

// DeleteModule removes a module and closes the gap in its book's order
func (s *moduleService) DeleteModule(ctx context.Context, id int64) error {
	var bookID int64
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		module, err := s.moduleRepo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		bookID = module.BookID

		if err := s.moduleRepo.Delete(ctx, id); err != nil {
			return err
		}
		return s.reindex(ctx, bookID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("module deleted",
		"id", id,
		"book_id", bookID,
	)
	s.backup.Trigger()
	return nil
}

// ReorderModules assigns orders 1..N following req.ModuleIDs
func (s *moduleService) ReorderModules(ctx context.Context, bookID int64, req *ebookSvc.ReorderModulesRequest) ([]models.Module, error) {
	var modules []models.Module
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		current, err := s.moduleRepo.ListByBook(ctx, bookID)
		if err != nil {
			return err
		}
		if err := validatePermutation(current, req.ModuleIDs); err != nil {
			return err
		}

		orders := make(map[int64]int, len(req.ModuleIDs))
		for i, id := range req.ModuleIDs {
			orders[id] = i + 1
		}
		if err := s.moduleRepo.UpdateOrders(ctx, orders); err != nil {
			return err
		}

		modules, err = s.moduleRepo.ListByBook(ctx, bookID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("modules reordered",
		"book_id", bookID,
		"count", len(modules),
	)
	return modules, nil
}

// ReindexModules rewrites a book's orders to 1..N
func (s *moduleService) ReindexModules(ctx context.Context, bookID int64) error {
	return s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		return s.reindex(ctx, bookID)
	})
}

// reindex must run inside a transaction
func (s *moduleService) reindex(ctx context.Context, bookID int64) error {
	modules, err := s.moduleRepo.ListByBook(ctx, bookID)
	if err != nil {
		return err
	}

	orders := make(map[int64]int)
	for i, m := range modules {
		if m.Order != i+1 {
			orders[m.ID] = i + 1
		}
	}
	if len(orders) == 0 {
		return nil
	}

	s.logger.Debug("reindexing modules",
		"book_id", bookID,
		"changed", len(orders),
	)
	return s.moduleRepo.UpdateOrders(ctx, orders)
}

// AttachPDF checks the declared type and size, encodes the body, stores it
// and decodes the stored copy to confirm it survived the round trip.
func (s *moduleService) AttachPDF(ctx context.Context, id int64, req *ebookSvc.AttachPDFRequest) (*ebookSvc.AttachPDFResult, error) {
	name := filepath.Base(strings.TrimSpace(req.FileName))
	if name == "." || name == string(filepath.Separator) {
		name = ""
	}
	info := attachment.FileInfo{Name: name, MIMEType: req.MIMEType, Size: req.Size}

	if name == "" {
		return nil, &domain.ValidationError{Message: "attachment file name is required"}
	}
	if !attachment.ValidateType(info) {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("attachment must be %s, got %q", models.PDFMimeType, req.MIMEType)}
	}
	if !attachment.ValidateSize(info, config.MaxPDFBytes) {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("attachment exceeds %s", attachment.FormatSize(config.MaxPDFBytes))}
	}

	if _, err := s.moduleRepo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	// read one byte past the limit so an understated size is still caught
	var raw bytes.Buffer
	text, err := attachment.Encode(io.TeeReader(io.LimitReader(req.Body, config.MaxPDFBytes+1), &raw))
	if err != nil {
		return nil, err
	}
	if raw.Len() > config.MaxPDFBytes {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("attachment exceeds %s", attachment.FormatSize(config.MaxPDFBytes))}
	}
	if raw.Len() == 0 {
		return nil, &domain.ValidationError{Message: "attachment is empty"}
	}

	result := &ebookSvc.AttachPDFResult{
		EncodedSize: len(text),
		DisplaySize: attachment.FormatSize(int64(raw.Len())),
	}
	if pdf, err := attachment.InspectPDF(raw.Bytes()); err != nil {
		s.logger.Warn("uploaded attachment is not a readable PDF",
			"module_id", id,
			"name", name,
			"error", err,
		)
	} else {
		result.PageCount = pdf.PageCount
	}

	if err := s.moduleRepo.SetAttachment(ctx, id, models.NewInlineAttachment(name, text)); err != nil {
		return nil, err
	}

	module, err := s.moduleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !module.HasInlineAttachment() {
		return nil, domain.NewStorageError("verify attachment", fmt.Errorf("module %d lost its attachment", id))
	}
	blob, err := attachment.Decode(module.PDFAttachment.Data, models.PDFMimeType)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(blob.Data, raw.Bytes()) {
		return nil, domain.NewStorageError("verify attachment", fmt.Errorf("stored payload differs from upload for module %d", id))
	}
	result.Module = module

	s.logger.Info("attachment stored",
		"module_id", id,
		"name", name,
		"size", result.DisplaySize,
		"pages", result.PageCount,
	)
	s.backup.Trigger()

	return result, nil
}

// ClearAttachment removes a module's attachment
func (s *moduleService) ClearAttachment(ctx context.Context, id int64) error {
	if err := s.moduleRepo.SetAttachment(ctx, id, nil); err != nil {
		return err
	}

	s.logger.Info("attachment cleared", "module_id", id)
	s.backup.Trigger()
	return nil
}

// validateCreateRequest validates a create module request
func (s *moduleService) validateCreateRequest(req *ebookSvc.CreateModuleRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.BookID, validation.Required, validation.Min(int64(1))),
		validation.Field(&req.Title,
			validation.Required,
			validation.Length(1, config.MaxModuleTitleLength),
			validation.By(notBlank),
		),
	)
}

// validateUpdateRequest validates an update module request
func (s *moduleService) validateUpdateRequest(req *ebookSvc.UpdateModuleRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.NilOrNotEmpty,
			validation.Length(1, config.MaxModuleTitleLength),
			validation.By(notBlank),
		),
	)
}
