package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/kassslll/learnhub/internal/logger"
	"github.com/kassslll/learnhub/internal/models"
)

type gcsStore struct {
	log       *logger.Logger
	client    *gcs.Client
	bucket    string
	cdnDomain string
}

// NewGCSStore keeps every object in one bucket, prefixed by media kind.
func NewGCSStore(ctx context.Context, log *logger.Logger, bucket, cdnDomain string) (BlobStore, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, errors.New("missing env var GCS_BUCKET_NAME")
	}
	opts := append(clientOptionsFromEnv(), option.WithScopes(gcs.ScopeReadWrite))
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &gcsStore{
		log:       log.With("service", "GCSBlobStore"),
		client:    client,
		bucket:    bucket,
		cdnDomain: cdnDomain,
	}, nil
}

func clientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func (s *gcsStore) Upload(ctx context.Context, kind models.MediaKind, f File) (*Object, error) {
	if f.Body == nil {
		return nil, errors.New("upload: empty file")
	}
	key := objectKey(kind, f.Name)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if ct := contentTypeOf(&f); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, f.Body); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to close GCS writer: %w", err)
	}

	s.log.Debug("uploaded object", "key", key, "kind", kind, "size", f.Size)
	return &Object{PublicID: key, URL: s.publicURL(key), Duration: f.Duration}, nil
}

// Delete treats an already missing object as deleted.
func (s *gcsStore) Delete(ctx context.Context, publicID string, kind models.MediaKind) error {
	if publicID == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	err := s.client.Bucket(s.bucket).Object(publicID).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %q (%s): %w", publicID, kind, err)
	}
	return nil
}

func (s *gcsStore) publicURL(key string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}

func objectKey(kind models.MediaKind, name string) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(name)))
	if kind == "" {
		kind = models.MediaRaw
	}
	return fmt.Sprintf("%s/%s%s", kind, uuid.NewString(), ext)
}
