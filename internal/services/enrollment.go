package services

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/logger"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/storage"
	"github.com/kassslll/learnhub/internal/utils"
)

type ProgressResult struct {
	Progress    int  `json:"progress"`
	IsCompleted bool `json:"isCompleted"`
}

type EnrollmentService interface {
	Enroll(ctx context.Context, accountID, courseID uint, contract *storage.File, signed bool) (*models.Enrollment, error)
	Unenroll(ctx context.Context, accountID, courseID uint) error
	MarkLessonComplete(ctx context.Context, accountID, enrollmentID, lessonID uint) (*ProgressResult, error)
	List(ctx context.Context, accountID uint, page utils.Page) ([]models.Enrollment, utils.Pagination, error)
	Get(ctx context.Context, accountID, courseID uint) (*models.Enrollment, error)
}

type enrollmentService struct {
	db    *gorm.DB
	log   *logger.Logger
	blobs storage.BlobStore
}

func NewEnrollmentService(db *gorm.DB, baseLog *logger.Logger, blobs storage.BlobStore) EnrollmentService {
	return &enrollmentService{db: db, log: baseLog.With("service", "EnrollmentService"), blobs: blobs}
}

func (s *enrollmentService) account(ctx context.Context, id uint) (*models.Account, error) {
	var acct models.Account
	if err := s.db.WithContext(ctx).Select("id", "version").First(&acct, id).Error; err != nil {
		return nil, storeErr(err, apperr.ErrAccountNotFound)
	}
	return &acct, nil
}

func (s *enrollmentService) Enroll(ctx context.Context, accountID, courseID uint, contract *storage.File, signed bool) (*models.Enrollment, error) {
	acct, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	var course models.Course
	if err := s.db.WithContext(ctx).Select("id").First(&course, courseID).Error; err != nil {
		return nil, storeErr(err, apperr.NotFound("Course not found"))
	}
	var existing int64
	err = s.db.WithContext(ctx).Model(&models.Enrollment{}).
		Where("account_id = ? AND course_id = ?", accountID, courseID).
		Count(&existing).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if existing > 0 {
		return nil, apperr.ErrAlreadyEnrolled
	}

	uploads := newUploadSet(s.blobs, s.log)
	doc, _, err := uploads.put(ctx, models.MediaRaw, contract, "Contract")
	if err != nil {
		return nil, err
	}

	enrollment := models.Enrollment{
		AccountID: accountID,
		CourseID:  courseID,
		Contract:  doc,
		IsSign:    signed,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bumpVersion(ctx, tx, acct.ID, acct.Version); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(&enrollment).Error
	})
	if err != nil {
		uploads.rollback(ctx)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.ErrAlreadyEnrolled
		}
		return nil, storeErr(err, nil)
	}
	s.log.Info("enrolled", "account_id", accountID, "course_id", courseID)
	return &enrollment, nil
}

func (s *enrollmentService) Unenroll(ctx context.Context, accountID, courseID uint) error {
	acct, err := s.account(ctx, accountID)
	if err != nil {
		return err
	}
	var enrollment models.Enrollment
	err = s.db.WithContext(ctx).Where("account_id = ? AND course_id = ?", accountID, courseID).First(&enrollment).Error
	if err != nil {
		return storeErr(err, apperr.ErrNotEnrolled)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bumpVersion(ctx, tx, acct.ID, acct.Version); err != nil {
			return err
		}
		return removeEnrollment(tx, enrollment.ID)
	})
	if err != nil {
		return storeErr(err, nil)
	}
	releaseBestEffort(ctx, s.blobs, s.log, contractMedia(&enrollment), "enrollment contract")
	s.log.Info("unenrolled", "account_id", accountID, "course_id", courseID)
	return nil
}

func removeEnrollment(tx *gorm.DB, enrollmentID uint) error {
	if err := tx.Where("enrollment_id = ?", enrollmentID).Delete(&models.EnrollmentLesson{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Enrollment{}, enrollmentID).Error
}

func contractMedia(e *models.Enrollment) []models.OwnedMedia {
	if e.Contract.IsZero() {
		return nil
	}
	return []models.OwnedMedia{{Media: e.Contract, Kind: models.MediaRaw}}
}

// MarkLessonComplete sets the lesson flag and recomputes progress against the
// course's current lesson count. At 100 the course moves to the account's
// completed courses and the active enrollment is dropped.
func (s *enrollmentService) MarkLessonComplete(ctx context.Context, accountID, enrollmentID, lessonID uint) (*ProgressResult, error) {
	acct, err := s.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	var enrollment models.Enrollment
	err = s.db.WithContext(ctx).Where("id = ? AND account_id = ?", enrollmentID, accountID).First(&enrollment).Error
	if err != nil {
		return nil, storeErr(err, apperr.ErrNotEnrolled.WithMessage("Enrollment not found"))
	}
	var lesson models.Lesson
	err = s.db.WithContext(ctx).Select("id").Where("id = ? AND course_id = ?", lessonID, enrollment.CourseID).First(&lesson).Error
	if err != nil {
		return nil, storeErr(err, apperr.NotFound("Lesson not found in this course"))
	}

	var result ProgressResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := bumpVersion(ctx, tx, acct.ID, acct.Version); err != nil {
			return err
		}
		flag := models.EnrollmentLesson{EnrollmentID: enrollment.ID, LessonID: lesson.ID, Completed: true}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "enrollment_id"}, {Name: "lesson_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"completed", "updated_at"}),
		}).Create(&flag).Error
		if err != nil {
			return err
		}

		var total, completed int64
		if err := tx.Model(&models.Lesson{}).Where("course_id = ?", enrollment.CourseID).Count(&total).Error; err != nil {
			return err
		}
		err = tx.Model(&models.EnrollmentLesson{}).
			Joins("JOIN lessons ON lessons.id = enrollment_lessons.lesson_id").
			Where("enrollment_lessons.enrollment_id = ? AND enrollment_lessons.completed = ? AND lessons.course_id = ?",
				enrollment.ID, true, enrollment.CourseID).
			Count(&completed).Error
		if err != nil {
			return err
		}

		result.Progress = models.ProgressPercent(completed, total)
		if result.Progress < 100 {
			return tx.Model(&models.Enrollment{}).Where("id = ?", enrollment.ID).
				Update("progress", result.Progress).Error
		}

		result.IsCompleted = true
		err = tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.CompletedCourse{AccountID: accountID, CourseID: enrollment.CourseID}).Error
		if err != nil {
			return err
		}
		return removeEnrollment(tx, enrollment.ID)
	})
	if err != nil {
		return nil, storeErr(err, nil)
	}

	if result.IsCompleted {
		releaseBestEffort(ctx, s.blobs, s.log, contractMedia(&enrollment), "enrollment contract")
		s.log.Info("course completed", "account_id", accountID, "course_id", enrollment.CourseID)
	}
	return &result, nil
}

func (s *enrollmentService) List(ctx context.Context, accountID uint, page utils.Page) ([]models.Enrollment, utils.Pagination, error) {
	query := s.db.WithContext(ctx).Model(&models.Enrollment{}).Where("account_id = ?", accountID)
	var out []models.Enrollment
	pg, err := paged(query, page, "created_at DESC, id DESC", &out, func(db *gorm.DB) *gorm.DB {
		return db.Preload("Course").Preload("LessonsProgress")
	})
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	return out, pg, nil
}

func (s *enrollmentService) Get(ctx context.Context, accountID, courseID uint) (*models.Enrollment, error) {
	var enrollment models.Enrollment
	err := s.db.WithContext(ctx).
		Preload("Course").
		Preload("Course.Lessons", lessonOrder).
		Preload("LessonsProgress").
		Where("account_id = ? AND course_id = ?", accountID, courseID).
		First(&enrollment).Error
	if err != nil {
		return nil, storeErr(err, apperr.ErrNotEnrolled)
	}
	return &enrollment, nil
}
