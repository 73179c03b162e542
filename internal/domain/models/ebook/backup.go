package ebook

import "time"

// BackupStatus records which strategy the last backup pass ended with.
type BackupStatus string

const (
	BackupEmpty    BackupStatus = "empty"
	BackupComplete BackupStatus = "complete"
	BackupChunked  BackupStatus = "chunked"
	BackupPartial  BackupStatus = "partial"
	BackupError    BackupStatus = "error"
)

// Backup medium keys.
const (
	BackupMetadataKey  = "pdf_backup_metadata"
	BackupTimestampKey = "pdf_backup_timestamp"
	BackupStatusKey    = "pdf_backup_status"
	BackupDataKey      = "pdf_backup_data"
	BackupErrorKey     = "pdf_backup_error"
	BackupItemPrefix   = "pdf_backup_"
	BackupMetaPrefix   = "pdf_backup_meta_"
	SnapshotMirrorKey  = "dressline-backup"
)

// BackupMeta is the lightweight per-module entry stored in pdf_backup_metadata.
type BackupMeta struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

// BackupItemMeta is written instead of the payload when a chunked item write fails.
type BackupItemMeta struct {
	Name      string `json:"name"`
	Size      int    `json:"size"`
	Timestamp string `json:"timestamp"`
}

// BackupItem is a shadow copy of one module attachment.
type BackupItem struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// BackupReport summarises a backup pass or the current backup state. Carried
// lists modules whose attachment was unusable and whose previous backup copy
// was kept instead.
type BackupReport struct {
	Status    BackupStatus          `json:"status"`
	Timestamp time.Time             `json:"timestamp"`
	Items     int                   `json:"items"`
	TotalSize int                   `json:"totalSize"`
	Failed    []int64               `json:"failed,omitempty"`
	Carried   []int64               `json:"carried,omitempty"`
	Error     string                `json:"error,omitempty"`
	Metadata  map[string]BackupMeta `json:"metadata,omitempty"`
}

// ProblemModule identifies a module whose attachment failed verification.
type ProblemModule struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}
