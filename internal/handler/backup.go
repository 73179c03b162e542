package handler

import (
	"log/slog"
	"net/http"

	models "dressline/internal/domain/models/ebook"
	ebookSvc "dressline/internal/domain/services/ebook"
	"dressline/internal/httputil"
)

// BackupHandler exposes the attachment backup subsystem
type BackupHandler struct {
	backupService ebookSvc.BackupService
	logger        *slog.Logger
}

// NewBackupHandler creates a new backup handler
func NewBackupHandler(backupService ebookSvc.BackupService, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{
		backupService: backupService,
		logger:        logger,
	}
}

// RunBackup runs a backup pass synchronously
// POST /api/backup
func (h *BackupHandler) RunBackup(w http.ResponseWriter, r *http.Request) {
	report, err := h.backupService.BackupAll(r.Context())
	if err != nil {
		// the report still records what was written before the failure
		httputil.RespondErrorWithExtras(w, statusFromError(err), err.Error(), map[string]interface{}{
			"backup": report,
		})
		return
	}
	httputil.RespondJSON(w, http.StatusOK, report)
}

// GetStatus returns the state recorded by the last pass
// GET /api/backup
func (h *BackupHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	report, err := h.backupService.Status(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, report)
}

// VerifyResponse lists modules whose attachment failed verification
type VerifyResponse struct {
	Problems []models.ProblemModule `json:"problems"`
}

// Verify checks every stored attachment
// GET /api/backup/verify
func (h *BackupHandler) Verify(w http.ResponseWriter, r *http.Request) {
	problems := h.backupService.VerifyAll(r.Context())
	resp := VerifyResponse{Problems: make([]models.ProblemModule, 0, len(problems))}
	resp.Problems = append(resp.Problems, problems...)
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// RestoreResponse reports a restore pass
type RestoreResponse struct {
	Restored int `json:"restored"`
}

// Restore copies backup data into modules whose attachment is missing or invalid
// POST /api/backup/restore
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	restored := h.backupService.RestoreAll(r.Context())
	if restored > 0 {
		h.logger.Info("attachments restored from backup", "count", restored)
	}
	httputil.RespondJSON(w, http.StatusOK, RestoreResponse{Restored: restored})
}
