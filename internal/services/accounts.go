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

// ProfileUpdate carries the optional profile changes. Nil fields are left alone.
type ProfileUpdate struct {
	Name        *string
	Email       *string
	SkillLevel  *string
	InterestID  *uint
	OldPassword string
	NewPassword string
	Picture     *storage.File
}

type AccountService interface {
	Me(ctx context.Context, id uint) (*models.Account, error)
	UpdateProfile(ctx context.Context, id uint, in ProfileUpdate) (*models.Account, error)
	SoftDelete(ctx context.Context, id uint) error
	List(ctx context.Context, page utils.Page, search string) ([]models.Account, utils.Pagination, error)
	Get(ctx context.Context, id uint) (*models.Account, error)
	HardDelete(ctx context.Context, id uint) error
}

type accountService struct {
	db     *gorm.DB
	log    *logger.Logger
	blobs  storage.BlobStore
	hasher utils.PasswordHasher
}

func NewAccountService(db *gorm.DB, baseLog *logger.Logger, blobs storage.BlobStore, hasher utils.PasswordHasher) AccountService {
	return &accountService{
		db:     db,
		log:    baseLog.With("service", "AccountService"),
		blobs:  blobs,
		hasher: hasher,
	}
}

func (s *accountService) Me(ctx context.Context, id uint) (*models.Account, error) {
	var acct models.Account
	err := s.db.WithContext(ctx).
		Preload("Interest").
		Preload("CompletedCourses").
		First(&acct, id).Error
	if err != nil {
		return nil, storeErr(err, apperr.ErrAccountNotFound)
	}
	return &acct, nil
}

func (s *accountService) UpdateProfile(ctx context.Context, id uint, in ProfileUpdate) (*models.Account, error) {
	var acct models.Account
	if err := s.db.WithContext(ctx).First(&acct, id).Error; err != nil {
		return nil, storeErr(err, apperr.ErrAccountNotFound)
	}

	fields := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("Name cannot be empty")
		}
		fields["name"] = name
	}
	if in.SkillLevel != nil {
		level := models.SkillLevel(strings.ToLower(strings.TrimSpace(*in.SkillLevel)))
		if !level.Valid() {
			return nil, apperr.Validation("Skill level must be one of beginner, intermediate, advanced")
		}
		fields["skill_level"] = level
	}
	if in.InterestID != nil {
		var n int64
		if err := s.db.WithContext(ctx).Model(&models.Interest{}).Where("id = ?", *in.InterestID).Count(&n).Error; err != nil {
			return nil, apperr.Internal(err)
		}
		if n == 0 {
			return nil, apperr.NotFound("Interest not found")
		}
		fields["interest_id"] = *in.InterestID
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" {
			return nil, apperr.Validation("Email cannot be empty")
		}
		if acct.Email == nil || *acct.Email != email {
			var n int64
			err := s.db.WithContext(ctx).Model(&models.Account{}).
				Where("email = ? AND id <> ?", email, id).
				Count(&n).Error
			if err != nil {
				return nil, apperr.Internal(err)
			}
			if n > 0 {
				return nil, apperr.Conflict("Email is already in use")
			}
			fields["email"] = email
		}
	}
	if in.NewPassword != "" {
		if in.OldPassword == "" || !s.hasher.Verify(in.OldPassword, acct.PasswordHash) {
			return nil, apperr.Validation("Old password is incorrect")
		}
		hash, err := s.hasher.Hash(in.NewPassword)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		fields["password_hash"] = hash
	}

	uploads := newUploadSet(s.blobs, s.log)
	var stale []models.OwnedMedia
	if in.Picture != nil {
		pic, _, err := uploads.put(ctx, models.MediaImage, in.Picture, "Profile picture")
		if err != nil {
			return nil, err
		}
		fields["picture_public_id"] = pic.PublicID
		fields["picture_url"] = pic.URL
		if !acct.ProfilePicture.IsZero() {
			stale = append(stale, models.OwnedMedia{Media: acct.ProfilePicture, Kind: models.MediaImage})
		}
	}

	if len(fields) == 0 {
		return s.Me(ctx, id)
	}
	if err := s.db.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		uploads.rollback(ctx)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("Email is already in use")
		}
		return nil, apperr.Internal(err)
	}
	releaseBestEffort(ctx, s.blobs, s.log, stale, "profile picture")

	return s.Me(ctx, id)
}

func (s *accountService) SoftDelete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Account{}, id)
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrAccountNotFound
	}
	s.log.Info("account soft deleted", "account_id", id)
	return nil
}

func (s *accountService) List(ctx context.Context, page utils.Page, search string) ([]models.Account, utils.Pagination, error) {
	q := s.db.WithContext(ctx).Model(&models.Account{})
	if strings.TrimSpace(search) != "" {
		p := likePattern(search)
		q = q.Where(
			`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\' OR LOWER(phone) LIKE ? ESCAPE '\'`,
			p, p, p,
		)
	}
	var accounts []models.Account
	pg, err := paged(q, page, "created_at DESC", &accounts)
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	return accounts, pg, nil
}

func (s *accountService) Get(ctx context.Context, id uint) (*models.Account, error) {
	var acct models.Account
	err := s.db.WithContext(ctx).
		Preload("Interest").
		Preload("Enrollments").
		Preload("CompletedCourses").
		First(&acct, id).Error
	if err != nil {
		return nil, storeErr(err, apperr.ErrAccountNotFound)
	}
	return &acct, nil
}

// HardDelete removes the account row, including a soft-deleted one, with
// everything that hangs off it.
func (s *accountService) HardDelete(ctx context.Context, id uint) error {
	var acct models.Account
	if err := s.db.WithContext(ctx).Unscoped().Preload("Enrollments").First(&acct, id).Error; err != nil {
		return storeErr(err, apperr.ErrAccountNotFound)
	}

	media := make([]models.OwnedMedia, 0, 1+len(acct.Enrollments))
	if !acct.ProfilePicture.IsZero() {
		media = append(media, models.OwnedMedia{Media: acct.ProfilePicture, Kind: models.MediaImage})
	}
	for _, e := range acct.Enrollments {
		if !e.Contract.IsZero() {
			media = append(media, models.OwnedMedia{Media: e.Contract, Kind: models.MediaRaw})
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("account_id = ?", id).Delete(&models.FavoriteCourse{}).Error; err != nil {
			return err
		}
		if err := tx.Where("viewer_id = ?", id).Delete(&models.CourseView{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", id).Delete(&models.Review{}).Error; err != nil {
			return err
		}
		if err := tx.Where("account_id = ?", id).Delete(&models.CompletedCourse{}).Error; err != nil {
			return err
		}
		asked := tx.Model(&models.Question{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("user_id = ? OR question_id IN (?)", id, asked).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&models.Question{}).Error; err != nil {
			return err
		}
		var enrollmentIDs []uint
		if err := tx.Model(&models.Enrollment{}).Where("account_id = ?", id).Pluck("id", &enrollmentIDs).Error; err != nil {
			return err
		}
		if len(enrollmentIDs) > 0 {
			if err := tx.Where("enrollment_id IN ?", enrollmentIDs).Delete(&models.EnrollmentLesson{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", enrollmentIDs).Delete(&models.Enrollment{}).Error; err != nil {
				return err
			}
		}
		return tx.Unscoped().Delete(&models.Account{}, id).Error
	})
	if err != nil {
		return apperr.Internal(err)
	}

	releaseBestEffort(ctx, s.blobs, s.log, media, "account")
	s.log.Info("account hard deleted", "account_id", id)
	return nil
}
