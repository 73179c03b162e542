package handler

import (
	"log/slog"
	"net/http"

	ebookSvc "dressline/internal/domain/services/ebook"
	"dressline/internal/httputil"
)

// SyncHandler handles remote mirror requests. A nil service means no remote
// is configured and every route answers 503.
type SyncHandler struct {
	syncService ebookSvc.SyncService
	logger      *slog.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(syncService ebookSvc.SyncService, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{
		syncService: syncService,
		logger:      logger,
	}
}

func (h *SyncHandler) available(w http.ResponseWriter) bool {
	if h.syncService == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "remote sync is not configured")
		return false
	}
	return true
}

// Push copies the local store to the remote mirror
// POST /api/sync/push
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	result, err := h.syncService.PushLocal(r.Context())
	if err != nil {
		if result != nil {
			httputil.RespondErrorWithExtras(w, statusFromError(err), err.Error(), map[string]interface{}{
				"push": result,
			})
			return
		}
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// Pull replaces the local store with the first remote book
// POST /api/sync/pull
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	result, err := h.syncService.PullAll(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, result)
}

// ListRemoteBooks lists the books held by the remote mirror
// GET /api/remote/books
func (h *SyncHandler) ListRemoteBooks(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	books, err := h.syncService.ListRemoteBooks(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, books)
}

// DeleteRemoteBook deletes a remote book with all its modules
// DELETE /api/remote/books/{id}
func (h *SyncHandler) DeleteRemoteBook(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	id := r.PathValue("id")
	if err := h.syncService.DeleteRemoteBook(r.Context(), id); err != nil {
		handleError(w, err)
		return
	}
	h.logger.Info("remote book deleted", "remote_id", id)
	httputil.RespondNoContent(w)
}
