package handler

import (
	"log/slog"
	"net/http"

	ebookSvc "dressline/internal/domain/services/ebook"
	"dressline/internal/httputil"
)

// BookHandler handles book HTTP requests
type BookHandler struct {
	bookService   ebookSvc.BookService
	moduleService ebookSvc.ModuleService
	logger        *slog.Logger
}

// NewBookHandler creates a new book handler
func NewBookHandler(bookService ebookSvc.BookService, moduleService ebookSvc.ModuleService, logger *slog.Logger) *BookHandler {
	return &BookHandler{
		bookService:   bookService,
		moduleService: moduleService,
		logger:        logger,
	}
}

// GetActiveBook returns the book the reader opens, creating the default one
// GET /api/book
func (h *BookHandler) GetActiveBook(w http.ResponseWriter, r *http.Request) {
	book, err := h.bookService.GetActiveBook(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, book)
}

// ListBooks returns every book
// GET /api/books
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	books, err := h.bookService.ListBooks(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, books)
}

// CreateBook creates a book
// POST /api/books
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var req ebookSvc.CreateBookRequest
	if !parseBody(w, r, &req) {
		return
	}

	book, err := h.bookService.CreateBook(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, book)
}

// GetBook retrieves a book by ID
// GET /api/books/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	book, err := h.bookService.GetBook(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, book)
}

// UpdateBook applies a partial update
// PATCH /api/books/{id}
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ebookSvc.UpdateBookRequest
	if !parseBody(w, r, &req) {
		return
	}

	book, err := h.bookService.UpdateBook(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, book)
}

// DeleteBook deletes a book and its modules
// DELETE /api/books/{id}
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.bookService.DeleteBook(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	h.logger.Info("book deleted", "id", id)
	httputil.RespondNoContent(w)
}

// ListModules returns a book's modules in reading order
// GET /api/books/{id}/modules
func (h *BookHandler) ListModules(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.bookService.GetBook(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}

	modules, err := h.moduleService.ListModules(r.Context(), id)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, modules)
}

// CreateModule appends a module to the book
// POST /api/books/{id}/modules
func (h *BookHandler) CreateModule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ebookSvc.CreateModuleRequest
	if !parseBody(w, r, &req) {
		return
	}
	req.BookID = id

	module, err := h.moduleService.CreateModule(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, module)
}

// ReorderModules assigns a new order to every module of the book
// PUT /api/books/{id}/modules/order
func (h *BookHandler) ReorderModules(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ebookSvc.ReorderModulesRequest
	if !parseBody(w, r, &req) {
		return
	}

	modules, err := h.moduleService.ReorderModules(r.Context(), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, modules)
}
