package jobs

import (
	"context"
	"log/slog"

	ebookSvc "dressline/internal/domain/services/ebook"
)

// BackupJobID identifies the attachment backup pass.
const BackupJobID = "attachment_backup"

// BackupJob repairs broken attachments from the existing backup, then runs a
// full backup pass over the repaired store.
type BackupJob struct {
	backup ebookSvc.BackupService
	logger *slog.Logger
}

// NewBackupJob creates the backup job
func NewBackupJob(backup ebookSvc.BackupService, logger *slog.Logger) *BackupJob {
	return &BackupJob{backup: backup, logger: logger}
}

// ID implements Job
func (j *BackupJob) ID() string { return BackupJobID }

// Run implements Job. Failures are recorded in the backup status by the
// service, so they are only logged here.
func (j *BackupJob) Run(ctx context.Context) {
	// restore has to read the backup before this pass rewrites it
	if problems := j.backup.VerifyAll(ctx); len(problems) > 0 {
		j.logger.Warn("attachments failed verification", "count", len(problems))
		if restored := j.backup.RestoreAll(ctx); restored > 0 {
			j.logger.Info("attachments restored from backup", "count", restored)
		}
	}

	report, err := j.backup.BackupAll(ctx)
	if err != nil {
		j.logger.Error("scheduled backup failed", "error", err)
		return
	}
	j.logger.Debug("scheduled backup done",
		"status", report.Status,
		"items", report.Items,
		"carried", len(report.Carried),
	)
}
