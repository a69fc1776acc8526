package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/logger"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/storage"
	"github.com/kassslll/learnhub/internal/utils"
)

type InterestService interface {
	Create(ctx context.Context, name string, image *storage.File) (*models.Interest, error)
	List(ctx context.Context, page utils.Page) ([]models.Interest, utils.Pagination, error)
	All(ctx context.Context) ([]models.Interest, error)
	Get(ctx context.Context, id uint) (*models.Interest, error)
	Update(ctx context.Context, id uint, name *string, image *storage.File) (*models.Interest, error)
	Delete(ctx context.Context, id uint) error
}

type interestService struct {
	db    *gorm.DB
	log   *logger.Logger
	blobs storage.BlobStore
}

func NewInterestService(db *gorm.DB, baseLog *logger.Logger, blobs storage.BlobStore) InterestService {
	return &interestService{db: db, log: baseLog.With("service", "InterestService"), blobs: blobs}
}

var errInterestExists = apperr.Conflict("Interest with this name already exists")

func (s *interestService) nameTaken(ctx context.Context, name string, exceptID uint) error {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Interest{}).
		Where("LOWER(name) = ? AND id <> ?", name, exceptID).
		Count(&n).Error
	if err != nil {
		return apperr.Internal(err)
	}
	if n > 0 {
		return errInterestExists
	}
	return nil
}

func (s *interestService) Create(ctx context.Context, name string, image *storage.File) (*models.Interest, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, apperr.Validation("Name is required")
	}
	if image == nil {
		return nil, apperr.Validation("Image file is required")
	}
	if err := s.nameTaken(ctx, name, 0); err != nil {
		return nil, err
	}

	uploads := newUploadSet(s.blobs, s.log)
	img, _, err := uploads.put(ctx, models.MediaImage, image, "Image")
	if err != nil {
		return nil, err
	}
	interest := models.Interest{Name: name, Image: img}
	if err := s.db.WithContext(ctx).Create(&interest).Error; err != nil {
		uploads.rollback(ctx)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errInterestExists
		}
		return nil, apperr.Internal(err)
	}
	return &interest, nil
}

func (s *interestService) List(ctx context.Context, page utils.Page) ([]models.Interest, utils.Pagination, error) {
	var out []models.Interest
	pg, err := paged(s.db.WithContext(ctx).Model(&models.Interest{}), page, "name ASC", &out)
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	return out, pg, nil
}

func (s *interestService) All(ctx context.Context) ([]models.Interest, error) {
	var out []models.Interest
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&out).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *interestService) Get(ctx context.Context, id uint) (*models.Interest, error) {
	var interest models.Interest
	if err := s.db.WithContext(ctx).First(&interest, id).Error; err != nil {
		return nil, storeErr(err, apperr.NotFound("Interest not found"))
	}
	return &interest, nil
}

func (s *interestService) Update(ctx context.Context, id uint, name *string, image *storage.File) (*models.Interest, error) {
	interest, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := map[string]interface{}{}
	if name != nil {
		n := strings.ToLower(strings.TrimSpace(*name))
		if n == "" {
			return nil, apperr.Validation("Name cannot be empty")
		}
		if n != interest.Name {
			if err := s.nameTaken(ctx, n, id); err != nil {
				return nil, err
			}
			fields["name"] = n
		}
	}

	uploads := newUploadSet(s.blobs, s.log)
	var stale []models.OwnedMedia
	if image != nil {
		img, _, err := uploads.put(ctx, models.MediaImage, image, "Image")
		if err != nil {
			return nil, err
		}
		fields["image_public_id"], fields["image_url"] = img.PublicID, img.URL
		stale = append(stale, models.OwnedMedia{Media: interest.Image, Kind: models.MediaImage})
	}
	if len(fields) == 0 {
		return interest, nil
	}
	if err := s.db.WithContext(ctx).Model(&models.Interest{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		uploads.rollback(ctx)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errInterestExists
		}
		return nil, apperr.Internal(err)
	}
	releaseBestEffort(ctx, s.blobs, s.log, stale, "interest image")
	return s.Get(ctx, id)
}

// Delete releases the image, then removes the row. Courses and accounts
// pointing at the interest are detached.
func (s *interestService) Delete(ctx context.Context, id uint) error {
	interest, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	releaseBestEffort(ctx, s.blobs, s.log,
		[]models.OwnedMedia{{Media: interest.Image, Kind: models.MediaImage}}, "interest image")

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Course{}).Where("interest_id = ?", id).Update("interest_id", nil).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Account{}).Where("interest_id = ?", id).Update("interest_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Interest{}, id).Error
	})
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}
