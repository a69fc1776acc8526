package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/logger"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/storage"
	"github.com/kassslll/learnhub/internal/utils"
)

type BannerService interface {
	Create(ctx context.Context, title string, image *storage.File) (*models.Banner, error)
	List(ctx context.Context, page utils.Page) ([]models.Banner, utils.Pagination, error)
	Get(ctx context.Context, id uint) (*models.Banner, error)
	Update(ctx context.Context, id uint, title *string, image *storage.File) (*models.Banner, error)
	Delete(ctx context.Context, id uint) error
}

type bannerService struct {
	db    *gorm.DB
	log   *logger.Logger
	blobs storage.BlobStore
}

func NewBannerService(db *gorm.DB, baseLog *logger.Logger, blobs storage.BlobStore) BannerService {
	return &bannerService{db: db, log: baseLog.With("service", "BannerService"), blobs: blobs}
}

func (s *bannerService) Create(ctx context.Context, title string, image *storage.File) (*models.Banner, error) {
	if image == nil {
		return nil, apperr.Validation("Image file is required")
	}
	uploads := newUploadSet(s.blobs, s.log)
	img, _, err := uploads.put(ctx, models.MediaImage, image, "Image")
	if err != nil {
		return nil, err
	}
	banner := models.Banner{Title: strings.TrimSpace(title), Image: img}
	if err := s.db.WithContext(ctx).Create(&banner).Error; err != nil {
		uploads.rollback(ctx)
		return nil, apperr.Internal(err)
	}
	return &banner, nil
}

func (s *bannerService) List(ctx context.Context, page utils.Page) ([]models.Banner, utils.Pagination, error) {
	var out []models.Banner
	pg, err := paged(s.db.WithContext(ctx).Model(&models.Banner{}), page, "created_at DESC, id DESC", &out)
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	return out, pg, nil
}

func (s *bannerService) Get(ctx context.Context, id uint) (*models.Banner, error) {
	var banner models.Banner
	if err := s.db.WithContext(ctx).First(&banner, id).Error; err != nil {
		return nil, storeErr(err, apperr.NotFound("Banner not found"))
	}
	return &banner, nil
}

func (s *bannerService) Update(ctx context.Context, id uint, title *string, image *storage.File) (*models.Banner, error) {
	banner, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if title != nil {
		fields["title"] = strings.TrimSpace(*title)
	}

	uploads := newUploadSet(s.blobs, s.log)
	var stale []models.OwnedMedia
	if image != nil {
		img, _, err := uploads.put(ctx, models.MediaImage, image, "Image")
		if err != nil {
			return nil, err
		}
		fields["image_public_id"], fields["image_url"] = img.PublicID, img.URL
		stale = append(stale, models.OwnedMedia{Media: banner.Image, Kind: models.MediaImage})
	}
	if len(fields) == 0 {
		return banner, nil
	}
	if err := s.db.WithContext(ctx).Model(&models.Banner{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		uploads.rollback(ctx)
		return nil, apperr.Internal(err)
	}
	releaseBestEffort(ctx, s.blobs, s.log, stale, "banner image")
	return s.Get(ctx, id)
}

func (s *bannerService) Delete(ctx context.Context, id uint) error {
	banner, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	releaseBestEffort(ctx, s.blobs, s.log,
		[]models.OwnedMedia{{Media: banner.Image, Kind: models.MediaImage}}, "banner image")
	if err := s.db.WithContext(ctx).Delete(&models.Banner{}, id).Error; err != nil {
		return apperr.Internal(err)
	}
	return nil
}
