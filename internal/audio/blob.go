package audio

import (
	"encoding/base64"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Blob is one encoded recording held in memory.
type Blob struct {
	Data     []byte
	MIMEType string
	Duration time.Duration
}

// Size returns the encoded size in bytes.
func (b *Blob) Size() int {
	if b == nil {
		return 0
	}
	return len(b.Data)
}

// Base64 returns the standard base64 encoding of the blob, the text-safe
// form scoring backends accept.
func (b *Blob) Base64() string {
	if b == nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(b.Data)
}

const objectURLPrefix = "blob:cclprep/"

// IsObjectURL reports whether url was minted by an ObjectURLs registry.
func IsObjectURL(url string) bool {
	return strings.HasPrefix(url, objectURLPrefix)
}

// ObjectURLs hands out revocable URLs for in-memory blobs so a recording can
// be played back through the same path as remote audio. Every URL must be
// revoked once its recording is discarded.
type ObjectURLs struct {
	mu    sync.Mutex
	blobs map[string]*Blob
}

// NewObjectURLs creates an empty registry.
func NewObjectURLs() *ObjectURLs {
	return &ObjectURLs{blobs: make(map[string]*Blob)}
}

// Create registers b and returns its URL.
func (o *ObjectURLs) Create(b *Blob) string {
	url := objectURLPrefix + uuid.New().String()
	o.mu.Lock()
	o.blobs[url] = b
	o.mu.Unlock()
	return url
}

// Resolve returns the blob behind url, or false if it was revoked or never
// existed.
func (o *ObjectURLs) Resolve(url string) (*Blob, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	b, ok := o.blobs[url]
	return b, ok
}

// Revoke releases url. Revoking an unknown URL is a no-op.
func (o *ObjectURLs) Revoke(url string) {
	if url == "" {
		return
	}
	o.mu.Lock()
	delete(o.blobs, url)
	o.mu.Unlock()
}

// Len returns the number of live URLs.
func (o *ObjectURLs) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.blobs)
}
