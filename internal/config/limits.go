package config

const (
	// MaxPDFBytes is the largest PDF accepted as a module attachment.
	MaxPDFBytes = 10 << 20

	// MaxImageBytes is the largest image accepted for inline content.
	MaxImageBytes = 5 << 20

	// BackupChunkThreshold is the total encoded attachment size above which
	// backups are written one key per module instead of one combined value.
	BackupChunkThreshold = 3 << 20

	// MaxBookTitleLength and MaxModuleTitleLength bound display names.
	MaxBookTitleLength   = 255
	MaxModuleTitleLength = 255

	// MaxSnapshotBytes bounds snapshot uploads. Attachments travel inline as
	// base64, so this is much larger than the JSON API limit.
	MaxSnapshotBytes = 256 << 20
)
