package ebook

// Module is an ordered chapter of a book.
type Module struct {
	ID            int64       `json:"id,omitempty" db:"id"`
	BookID        int64       `json:"bookId" db:"book_id"`
	Title         string      `json:"title" db:"title"`
	Content       string      `json:"content" db:"content"`
	Order         int         `json:"order" db:"sort_order"`
	PDFAttachment *Attachment `json:"pdfAttachment,omitempty"`
}

// HasInlineAttachment reports whether the module carries inline PDF data.
func (m *Module) HasInlineAttachment() bool {
	return m.PDFAttachment != nil && m.PDFAttachment.Kind == AttachmentInline && m.PDFAttachment.Data != ""
}

// ModulePatch carries a partial update of the text fields. The attachment is
// set and cleared through its own operation.
type ModulePatch struct {
	BookID  *int64  `json:"bookId,omitempty"`
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
	Order   *int    `json:"order,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ModulePatch) IsEmpty() bool {
	return p.BookID == nil && p.Title == nil && p.Content == nil && p.Order == nil
}
