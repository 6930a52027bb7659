// Package storage puts uploaded record files into object storage and
// returns the URL they are served from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// MaxFileSize is the default per-file limit (10 MB).
const MaxFileSize = 10 << 20

var (
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrFileTooLarge      = errors.New("file exceeds maximum allowed size")
	ErrObjectExists      = errors.New("object already exists")
)

// AllowedExtensions lists the accepted upload formats, in display order.
var AllowedExtensions = []string{"jpg", "jpeg", "png", "pdf"}

// Uploader stores a file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, objectName, contentType string, body io.Reader) (string, error)
}

// CheckFile validates an upload's name and size before any bytes are sent.
func CheckFile(name string, size, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}
	if size > maxSize {
		return ErrFileTooLarge
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return ErrUnsupportedFormat
}

// ContentType guesses the MIME type from the file extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectName builds "<kind>s/<kind>-<unix millis>-<sanitized name>".
func ObjectName(kind, original string, now time.Time) string {
	base := unsafeChars.ReplaceAllString(filepath.Base(original), "-")
	base = strings.Trim(base, "-.")
	if base == "" {
		base = "file"
	}
	return fmt.Sprintf("%ss/%s-%d-%s", kind, kind, now.UnixMilli(), base)
}

// PublicURL joins base, bucket and object with each object segment escaped.
func PublicURL(baseURL, bucket, object string) string {
	segments := strings.Split(object, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(baseURL, "/") + "/" + path.Join(bucket, strings.Join(segments, "/"))
}
