package services

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/logger"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/storage"
)

const releaseConcurrency = 4

// uploadSet tracks every blob uploaded during one mutation so a failure can
// delete all of them before the error is returned.
type uploadSet struct {
	store storage.BlobStore
	log   *logger.Logger
	done  []models.OwnedMedia
}

func newUploadSet(store storage.BlobStore, log *logger.Logger) *uploadSet {
	return &uploadSet{store: store, log: log}
}

// put checks the file kind and uploads it. A nil file is not an error and
// yields a zero Media.
func (u *uploadSet) put(ctx context.Context, kind models.MediaKind, f *storage.File, field string) (models.Media, float64, error) {
	if f == nil {
		return models.Media{}, 0, nil
	}
	if err := storage.CheckKind(f, kind, field); err != nil {
		return models.Media{}, 0, apperr.Validation(err.Error())
	}
	obj, err := u.store.Upload(ctx, kind, *f)
	if err != nil {
		return models.Media{}, 0, apperr.Upstream("failed to upload "+field, err)
	}
	m := obj.Media()
	u.done = append(u.done, models.OwnedMedia{Media: m, Kind: kind})
	return m, obj.Duration, nil
}

// rollback deletes every tracked upload. It uses a fresh context so a
// cancelled request still cleans up.
func (u *uploadSet) rollback(ctx context.Context) {
	if len(u.done) == 0 {
		return
	}
	cleanupCtx := context.WithoutCancel(ctx)
	if err := releaseMedia(cleanupCtx, u.store, u.done); err != nil {
		u.log.Error("failed to delete uploads after failed mutation", "error", err)
	} else {
		u.log.Debug("deleted uploads after failed mutation", "count", len(u.done))
	}
	u.done = nil
}

// releaseMedia deletes media concurrently and keeps going on failure. The
// returned error joins every individual failure.
func releaseMedia(ctx context.Context, store storage.BlobStore, media []models.OwnedMedia) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(releaseConcurrency)
	for _, m := range media {
		if m.IsZero() {
			continue
		}
		m := m
		g.Go(func() error {
			if err := store.Delete(gctx, m.PublicID, m.Kind); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// releaseBestEffort is used after a successful commit: failures are logged,
// never returned.
func releaseBestEffort(ctx context.Context, store storage.BlobStore, log *logger.Logger, media []models.OwnedMedia, what string) {
	if len(media) == 0 {
		return
	}
	if err := releaseMedia(context.WithoutCancel(ctx), store, media); err != nil {
		log.Warn("media cleanup incomplete", "target", what, "error", err)
	}
}
