package ebook

import (
	"context"

	"dressline/internal/domain/models/ebook"
)

// BackupService maintains the secondary copy of module attachments
type BackupService interface {
	// BackupAll writes every attachment to the backup medium. The returned
	// report always carries the final status; err is non-nil only for status error.
	BackupAll(ctx context.Context) (*ebook.BackupReport, error)

	// VerifyAll lists modules whose attachment cannot be decoded, is empty or has no name
	VerifyAll(ctx context.Context) []ebook.ProblemModule

	// RestoreAll copies backup data into modules whose attachment is missing or
	// invalid and returns how many were restored
	RestoreAll(ctx context.Context) int

	// Status reads the state recorded by the last pass
	Status(ctx context.Context) (*ebook.BackupReport, error)
}
