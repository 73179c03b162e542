package ebook

import "time"

// DefaultSnapshotFilename is used when a download does not name its file.
const DefaultSnapshotFilename = "dressline-data.json"

// Snapshot is the portable export/import payload.
type Snapshot struct {
	Books      []Book    `json:"books"`
	Modules    []Module  `json:"modules"`
	ExportDate time.Time `json:"exportDate"`
}

// ImportMode controls identifier handling on import.
type ImportMode string

const (
	// ImportPreserve keeps the identifiers found in the snapshot.
	ImportPreserve ImportMode = "preserve"
	// ImportReassign lets the store assign identifiers and remaps module book ids.
	ImportReassign ImportMode = "reassign"
)
