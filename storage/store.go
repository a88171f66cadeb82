// Package storage persists uploaded paper documents and hands back a stable,
// fetchable reference for each one.
package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// DocumentRef identifies a stored document.
type DocumentRef struct {
	URL  string `json:"url"`
	Name string `json:"name"`
	Key  string `json:"key"`
}

// DocumentStore is implemented by every storage backend.
type DocumentStore interface {
	Store(ctx context.Context, data []byte, fileName, mimeType string) (DocumentRef, error)
	Delete(ctx context.Context, ref DocumentRef) error
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeFilename keeps the base name readable while dropping path
// separators and characters object stores handle badly.
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if base == "." || base == "/" || base == "" {
		return "document"
	}
	cleaned := strings.Trim(unsafeNameChars.ReplaceAllString(base, "_"), "._")
	if cleaned == "" {
		return "document"
	}
	if len(cleaned) > 120 {
		ext := filepath.Ext(cleaned)
		cleaned = cleaned[:120-len(ext)] + ext
	}
	return cleaned
}

// BuildKey returns papers/<yyyy>/<mm>/<ulid>-<name>.
func BuildKey(now time.Time, fileName string) string {
	id := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy())
	return fmt.Sprintf("papers/%04d/%02d/%s-%s", now.Year(), int(now.Month()), strings.ToLower(id.String()), SanitizeFilename(fileName))
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
