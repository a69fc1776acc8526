package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/kassslll/learnhub/internal/models"
)

// File is an upload waiting to be stored.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
	// Duration is the media length in seconds when the caller already knows it.
	Duration float64
}

// Object is what the blob store hands back after an upload.
type Object struct {
	PublicID string
	URL      string
	Duration float64
}

func (o *Object) Media() models.Media {
	return models.Media{PublicID: o.PublicID, URL: o.URL}
}

type BlobStore interface {
	Upload(ctx context.Context, kind models.MediaKind, f File) (*Object, error)
	Delete(ctx context.Context, publicID string, kind models.MediaKind) error
}

// IsImage and IsVideo decide by content type, falling back to the extension.
func IsImage(f *File) bool {
	return strings.HasPrefix(contentTypeOf(f), "image/")
}

func IsVideo(f *File) bool {
	return strings.HasPrefix(contentTypeOf(f), "video/")
}

// CheckKind rejects a file that does not match the expected media kind.
func CheckKind(f *File, kind models.MediaKind, field string) error {
	switch kind {
	case models.MediaImage:
		if !IsImage(f) {
			return fmt.Errorf("%s must be an image", field)
		}
	case models.MediaVideo:
		if !IsVideo(f) {
			return fmt.Errorf("%s must be a video", field)
		}
	}
	return nil
}

func contentTypeOf(f *File) string {
	if f == nil {
		return ""
	}
	if ct := strings.ToLower(strings.TrimSpace(f.ContentType)); ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return contentTypeForKey(f.Name)
}

func contentTypeForKey(key string) string {
	switch strings.ToLower(path.Ext(strings.TrimSpace(key))) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".svg":
		return "image/svg+xml"
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".webm":
		return "video/webm"
	case ".mov":
		return "video/quicktime"
	case ".pdf":
		return "application/pdf"
	default:
		return ""
	}
}
