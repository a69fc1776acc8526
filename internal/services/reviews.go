package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/logger"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/utils"
)

type ReviewService interface {
	Submit(ctx context.Context, accountID, courseID uint, rating int, comment string) (*models.Review, error)
	List(ctx context.Context, page utils.Page) ([]models.Review, utils.Pagination, error)
	SetApproval(ctx context.Context, courseID, reviewID uint, approved bool) (*models.Review, error)
}

type reviewService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReviewService(db *gorm.DB, baseLog *logger.Logger) ReviewService {
	return &reviewService{db: db, log: baseLog.With("service", "ReviewService")}
}

// Submit stores an unapproved review. Only accounts that completed the
// course may review it.
func (s *reviewService) Submit(ctx context.Context, accountID, courseID uint, rating int, comment string) (*models.Review, error) {
	var course models.Course
	if err := s.db.WithContext(ctx).Select("id").First(&course, courseID).Error; err != nil {
		return nil, storeErr(err, apperr.NotFound("Course not found"))
	}
	var done int64
	err := s.db.WithContext(ctx).Model(&models.CompletedCourse{}).
		Where("account_id = ? AND course_id = ?", accountID, courseID).
		Count(&done).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if done == 0 {
		return nil, apperr.ErrNotCompleted
	}

	comment = strings.TrimSpace(comment)
	if rating < 1 || rating > 5 {
		return nil, apperr.Validation("Rating must be between 1 and 5")
	}
	if comment == "" {
		return nil, apperr.Validation("Comment is required")
	}

	review := models.Review{CourseID: courseID, AccountID: accountID, Rating: rating, Comment: comment}
	if err := s.db.WithContext(ctx).Omit("Account").Create(&review).Error; err != nil {
		return nil, storeErr(err, nil)
	}
	s.log.Info("review submitted", "course_id", courseID, "review_id", review.ID)
	return &review, nil
}

func (s *reviewService) List(ctx context.Context, page utils.Page) ([]models.Review, utils.Pagination, error) {
	var reviews []models.Review
	pg, err := paged(s.db.WithContext(ctx).Model(&models.Review{}), page, "created_at DESC, id DESC", &reviews,
		func(db *gorm.DB) *gorm.DB {
			return db.Preload("Account", func(db *gorm.DB) *gorm.DB {
				return db.Select("id", "name", "email", "picture_public_id", "picture_url")
			})
		})
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	return reviews, pg, nil
}

func (s *reviewService) SetApproval(ctx context.Context, courseID, reviewID uint, approved bool) (*models.Review, error) {
	res := s.db.WithContext(ctx).Model(&models.Review{}).
		Where("id = ? AND course_id = ?", reviewID, courseID).
		Update("is_approved", approved)
	if res.Error != nil {
		return nil, apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.NotFound("Review not found")
	}
	var review models.Review
	if err := s.db.WithContext(ctx).First(&review, reviewID).Error; err != nil {
		return nil, storeErr(err, apperr.NotFound("Review not found"))
	}
	s.log.Info("review moderated", "review_id", reviewID, "approved", approved)
	return &review, nil
}
