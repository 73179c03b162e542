package ebook

import "time"

// RemoteBookPageSize bounds how many remote books are fetched per listing.
const RemoteBookPageSize = 10

// RemoteBook is the cloud mirror of a book, keyed by a remote string id.
type RemoteBook struct {
	ID             string    `json:"id" db:"id"`
	Title          string    `json:"title" db:"title"`
	WelcomeContent string    `json:"welcomeContent" db:"welcome_content"`
	Bibliography   string    `json:"bibliography" db:"bibliography"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// RemoteModule is the cloud mirror of a module. BookID is always the remote book id.
type RemoteModule struct {
	ID            string      `json:"id" db:"id"`
	BookID        string      `json:"bookId" db:"book_id"`
	Title         string      `json:"title" db:"title"`
	Content       string      `json:"content" db:"content"`
	Order         *int        `json:"order,omitempty" db:"sort_order"`
	PDFAttachment *Attachment `json:"pdfAttachment,omitempty"`
	CreatedAt     time.Time   `json:"createdAt" db:"created_at"`
}

// RemoteBookSummary is the lightweight listing entry.
type RemoteBookSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// PushResult reports a push pass. BookIDs maps local book ids to the remote ids created.
type PushResult struct {
	BookIDs        map[int64]string `json:"bookIds"`
	ModulesPushed  int              `json:"modulesPushed"`
	ModulesSkipped int              `json:"modulesSkipped"`
}

// PullResult reports a pull pass. Skipped is true when the remote held no books.
type PullResult struct {
	Skipped      bool   `json:"skipped"`
	RemoteBookID string `json:"remoteBookId,omitempty"`
	LocalBookID  int64  `json:"localBookId,omitempty"`
	Modules      int    `json:"modules"`
}
