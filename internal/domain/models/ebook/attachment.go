package ebook

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// PDFMimeType is the only MIME type accepted for module attachments.
const PDFMimeType = "application/pdf"

// AttachmentKind discriminates the attachment variant.
type AttachmentKind string

const (
	// AttachmentLegacy is a bare string reference left over from older data.
	AttachmentLegacy AttachmentKind = "legacy"
	// AttachmentInline carries the PDF bytes as base64 text.
	AttachmentInline AttachmentKind = "inline"
)

// Attachment is either a legacy string reference or an inline {name, data}
// payload. A nil *Attachment means the module has no attachment.
type Attachment struct {
	Kind      AttachmentKind
	Name      string
	Data      string
	Reference string
}

// NewInlineAttachment builds an inline attachment.
func NewInlineAttachment(name, data string) *Attachment {
	return &Attachment{Kind: AttachmentInline, Name: name, Data: data}
}

// NewLegacyAttachment builds a legacy reference.
func NewLegacyAttachment(ref string) *Attachment {
	return &Attachment{Kind: AttachmentLegacy, Reference: ref}
}

type inlineAttachmentJSON struct {
	Name string `json:"name"`
	Data string `json:"data"`
}

// MarshalJSON writes legacy references as a JSON string and inline
// attachments as {"name","data"}.
func (a Attachment) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AttachmentLegacy:
		return json.Marshal(a.Reference)
	case AttachmentInline:
		return json.Marshal(inlineAttachmentJSON{Name: a.Name, Data: a.Data})
	default:
		return nil, fmt.Errorf("unknown attachment kind %q", a.Kind)
	}
}

// UnmarshalJSON accepts both the string and the object form.
func (a *Attachment) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var ref string
		if err := json.Unmarshal(b, &ref); err != nil {
			return err
		}
		*a = Attachment{Kind: AttachmentLegacy, Reference: ref}
		return nil
	}

	var in inlineAttachmentJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return fmt.Errorf("pdfAttachment: %w", err)
	}
	*a = Attachment{Kind: AttachmentInline, Name: in.Name, Data: in.Data}
	return nil
}
