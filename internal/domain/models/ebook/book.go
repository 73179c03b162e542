package ebook

// Default placeholder content for a lazily created book.
const (
	DefaultBookTitle        = "Yangi kitob"
	DefaultBookWelcome      = "<p>Xush kelibsiz!</p>"
	DefaultBookBibliography = "<p>Adabiyotlar ro'yxati</p>"
)

// Book is the top-level document. The first book in insertion order is the active one.
type Book struct {
	ID             int64  `json:"id,omitempty" db:"id"`
	Title          string `json:"title" db:"title"`
	WelcomeContent string `json:"welcomeContent" db:"welcome_content"`
	Bibliography   string `json:"bibliography" db:"bibliography"`
}

// NewDefaultBook returns the placeholder book created on first run.
func NewDefaultBook() *Book {
	return &Book{
		Title:          DefaultBookTitle,
		WelcomeContent: DefaultBookWelcome,
		Bibliography:   DefaultBookBibliography,
	}
}

// BookPatch carries a partial update; nil fields are left untouched.
type BookPatch struct {
	Title          *string `json:"title,omitempty"`
	WelcomeContent *string `json:"welcomeContent,omitempty"`
	Bibliography   *string `json:"bibliography,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p BookPatch) IsEmpty() bool {
	return p.Title == nil && p.WelcomeContent == nil && p.Bibliography == nil
}
