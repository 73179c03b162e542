package attachment

import (
	"sync"

	"github.com/google/uuid"
)

// Handle is a process-local reference to a decoded payload.
type Handle struct {
	Token    string `json:"token"`
	MIMEType string `json:"mimeType"`
	Size     int    `json:"size"`
}

// Handles keeps decoded payloads alive until they are released. Nothing is
// collected implicitly; every Create must be paired with a Release.
type Handles struct {
	mu    sync.RWMutex
	blobs map[string]*Blob
}

func NewHandles() *Handles {
	return &Handles{blobs: make(map[string]*Blob)}
}

// Create decodes text and registers the result under a new token.
func (h *Handles) Create(text, mimeType string) (Handle, error) {
	blob, err := Decode(text, mimeType)
	if err != nil {
		return Handle{}, err
	}

	token := uuid.NewString()
	h.mu.Lock()
	h.blobs[token] = blob
	h.mu.Unlock()

	return Handle{Token: token, MIMEType: blob.MIMEType, Size: blob.Size()}, nil
}

// Open returns the payload behind token.
func (h *Handles) Open(token string) (*Blob, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	blob, ok := h.blobs[token]
	return blob, ok
}

// Release frees the payload. It reports whether token was live.
func (h *Handles) Release(token string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.blobs[token]; !ok {
		return false
	}
	delete(h.blobs, token)
	return true
}

// Len returns the number of live handles.
func (h *Handles) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.blobs)
}
