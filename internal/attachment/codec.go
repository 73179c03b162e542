// Package attachment converts PDF payloads to and from the base64 text stored
// on modules, validates uploads and hands out revocable in-memory handles.
package attachment

import (
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"dressline/internal/domain"
	"dressline/internal/domain/models/ebook"
)

// decodeChunkSize is the number of base64 characters decoded per step. It
// must stay a multiple of 4.
const decodeChunkSize = 64 << 10

var errTruncated = errors.New("truncated base64 quantum")

// Blob is a decoded payload tagged with its MIME type.
type Blob struct {
	MIMEType string
	Data     []byte
}

// Size returns the decoded length in bytes.
func (b *Blob) Size() int { return len(b.Data) }

// FileInfo describes an upload as declared by the client.
type FileInfo struct {
	Name     string
	MIMEType string
	Size     int64
}

// Encode reads r to the end and returns its base64 encoding.
func Encode(r io.Reader) (string, error) {
	var sb strings.Builder
	enc := base64.NewEncoder(base64.StdEncoding, &sb)
	if _, err := io.Copy(enc, r); err != nil {
		return "", &domain.EncodingError{Err: err}
	}
	if err := enc.Close(); err != nil {
		return "", &domain.EncodingError{Err: err}
	}
	return sb.String(), nil
}

// EncodeBytes returns the base64 encoding of data.
func EncodeBytes(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// Decode reverses Encode. It accepts an optional data URL prefix, embedded
// whitespace and missing padding. An empty mimeType means application/pdf.
func Decode(text, mimeType string) (*Blob, error) {
	if mimeType == "" {
		mimeType = ebook.PDFMimeType
	}

	clean := normalize(text)
	if len(clean)%4 == 1 {
		return nil, &domain.DecodingError{Offset: int64(len(clean) - 1), Err: errTruncated}
	}

	enc := base64.RawStdEncoding
	out := make([]byte, 0, enc.DecodedLen(len(clean)))
	buf := make([]byte, enc.DecodedLen(decodeChunkSize))
	for off := 0; off < len(clean); off += decodeChunkSize {
		end := min(off+decodeChunkSize, len(clean))
		n, err := enc.Decode(buf, []byte(clean[off:end]))
		if err != nil {
			offset := int64(off)
			var corrupt base64.CorruptInputError
			if errors.As(err, &corrupt) {
				offset += int64(corrupt)
			}
			return nil, &domain.DecodingError{Offset: offset, Err: err}
		}
		out = append(out, buf[:n]...)
	}

	return &Blob{MIMEType: mimeType, Data: out}, nil
}

// normalize strips a data URL header, ASCII whitespace and trailing padding.
func normalize(text string) string {
	if strings.HasPrefix(text, "data:") {
		if i := strings.IndexByte(text, ','); i >= 0 {
			text = text[i+1:]
		}
	}
	if strings.ContainsAny(text, " \t\r\n\f") {
		text = strings.Map(func(r rune) rune {
			switch r {
			case ' ', '\t', '\r', '\n', '\f':
				return -1
			}
			return r
		}, text)
	}
	for i := 0; i < 2 && strings.HasSuffix(text, "="); i++ {
		text = text[:len(text)-1]
	}
	return text
}

// ValidateType reports whether the declared MIME type is exactly application/pdf.
// The file extension is ignored.
func ValidateType(f FileInfo) bool {
	return f.MIMEType == ebook.PDFMimeType
}

// ValidateSize reports whether the declared size is within maxBytes.
func ValidateSize(f FileInfo, maxBytes int64) bool {
	return f.Size >= 0 && f.Size <= maxBytes
}

// EstimateDecodedSize approximates the decoded length of text without decoding it.
func EstimateDecodedSize(text string) int64 {
	return (int64(len(text))*3 + 3) / 4
}
