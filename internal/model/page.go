package model

import (
	"crypto/sha256"
	"encoding/hex"
	"mime"
	"time"
)

// MaxSnapshotSize is the maximum size of the text snapshot in bytes.
const MaxSnapshotSize = 64 * 1024 // 64 KB

// Page is a crawled web page.
type Page struct {
	// URL is the requested URL.
	URL string `json:"url"`

	// FinalURL is the URL after redirects. Empty when equal to URL.
	FinalURL string `json:"final_url,omitempty"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the media type of the response without parameters.
	ContentType string `json:"content_type"`

	// Headers are the response headers in canonical form.
	Headers map[string][]string `json:"headers,omitempty"`

	// Title is the content of the <title> element.
	Title string `json:"title,omitempty"`

	// Description is the content of <meta name="description">.
	Description string `json:"description,omitempty"`

	// Links are the absolute URLs of the page's anchors, in document order
	// and without duplicates.
	Links []string `json:"links,omitempty"`

	// Snapshot is the visible text of the page, truncated to MaxSnapshotSize.
	Snapshot string `json:"snapshot,omitempty"`

	// Hash is the hex SHA-256 digest of the response body.
	Hash string `json:"hash"`

	// Size is the number of body bytes read.
	Size int `json:"size"`

	// FetchedAt is when the response was received.
	FetchedAt time.Time `json:"fetched_at"`
}

// SetBody records the size and digest of body.
func (p *Page) SetBody(body []byte) {
	p.Size = len(body)
	if len(body) == 0 {
		p.Hash = ""
		return
	}
	sum := sha256.Sum256(body)
	p.Hash = hex.EncodeToString(sum[:])
}

// SetContentType stores the media type of a Content-Type header value.
func (p *Page) SetContentType(header string) {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil {
		p.ContentType = header
		return
	}
	p.ContentType = mediaType
}

// GetHeader returns the first value of the named header.
func (p *Page) GetHeader(name string) string {
	if values := p.Headers[name]; len(values) > 0 {
		return values[0]
	}
	return ""
}

// IsHTML reports whether the page is an HTML document.
func (p *Page) IsHTML() bool {
	return p.ContentType == "text/html" || p.ContentType == "application/xhtml+xml"
}

// TruncateSnapshot cuts the snapshot to MaxSnapshotSize bytes.
func (p *Page) TruncateSnapshot() {
	if len(p.Snapshot) > MaxSnapshotSize {
		p.Snapshot = p.Snapshot[:MaxSnapshotSize]
	}
}
