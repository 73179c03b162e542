package ebook

import (
	"context"
	"io"

	"dressline/internal/domain/models/ebook"
)

// CreateModuleRequest represents a request to append a module to a book
type CreateModuleRequest struct {
	BookID  int64  `json:"bookId"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateModuleRequest represents a partial module update; nil fields are unchanged
type UpdateModuleRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// ReorderModulesRequest lists every module of a book in its new order
type ReorderModulesRequest struct {
	ModuleIDs []int64 `json:"moduleIds"`
}

// AttachPDFRequest carries an uploaded PDF. Size and MIMEType are the values
// declared by the client and are checked before the body is read.
type AttachPDFRequest struct {
	FileName string
	MIMEType string
	Size     int64
	Body     io.Reader
}

// AttachPDFResult reports a stored attachment
type AttachPDFResult struct {
	Module      *ebook.Module `json:"module"`
	EncodedSize int           `json:"encodedSize"`
	DisplaySize string        `json:"displaySize"`
	PageCount   int           `json:"pageCount,omitempty"`
}

// ModuleService defines business logic operations for modules. Every
// mutation keeps sibling order dense from 1 and notifies the backup trigger.
type ModuleService interface {
	CreateModule(ctx context.Context, req *CreateModuleRequest) (*ebook.Module, error)
	GetModule(ctx context.Context, id int64) (*ebook.Module, error)

	// ListModules returns a book's modules in order
	ListModules(ctx context.Context, bookID int64) ([]ebook.Module, error)

	UpdateModule(ctx context.Context, id int64, req *UpdateModuleRequest) (*ebook.Module, error)

	// DeleteModule removes a module and reindexes its siblings
	DeleteModule(ctx context.Context, id int64) error

	// ReorderModules assigns orders 1..N following the given ID sequence
	ReorderModules(ctx context.Context, bookID int64, req *ReorderModulesRequest) ([]ebook.Module, error)

	// ReindexModules rewrites a book's orders to 1..N keeping their relative order
	ReindexModules(ctx context.Context, bookID int64) error

	// AttachPDF validates, encodes and stores a PDF, then reads it back to verify it
	AttachPDF(ctx context.Context, id int64, req *AttachPDFRequest) (*AttachPDFResult, error)

	// ClearAttachment removes a module's attachment
	ClearAttachment(ctx context.Context, id int64) error
}

// BackupTrigger is notified after mutations that may affect attachments
type BackupTrigger interface {
	Trigger()
}
