package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/utils"
)

type SortOrder string

const (
	SortDefault SortOrder = "default"
	SortPopular SortOrder = "popular"
	SortLatest  SortOrder = "latest"
)

func (o SortOrder) clause() string {
	switch o {
	case SortPopular:
		return "views DESC, id DESC"
	case SortLatest:
		return "created_at DESC, id DESC"
	}
	return "id ASC"
}

type ListQuery struct {
	Sort       SortOrder
	InterestID *uint
	Language   string
	MaxPrice   *float64
	Search     string
	// ViewerID annotates each course with the viewer's favourite flag.
	ViewerID *uint
}

// CourseListing is a course as shown in listings.
type CourseListing struct {
	models.Course
	EnrollmentCount int64 `json:"enrollmentCount"`
	IsFavourite     bool  `json:"is_favourite"`
}

type ScheduledLesson struct {
	models.Lesson
	CourseName string `json:"course_name"`
}

func approvedReviews(db *gorm.DB) *gorm.DB {
	return db.Where("is_approved = ?", true).Order("created_at DESC")
}

func lessonOrder(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }

func withInterest(db *gorm.DB) *gorm.DB { return db.Preload("Interest") }
func withLessons(db *gorm.DB) *gorm.DB { return db.Preload("Lessons", lessonOrder) }
func withAllReviews(db *gorm.DB) *gorm.DB { return db.Preload("Reviews") }
func withApprovedReviews(db *gorm.DB) *gorm.DB { return db.Preload("Reviews", approvedReviews) }

func (s *catalogService) List(ctx context.Context, q ListQuery, page utils.Page) ([]CourseListing, utils.Pagination, error) {
	query := s.db.WithContext(ctx).Model(&models.Course{})
	if q.InterestID != nil {
		query = query.Where("interest_id = ?", *q.InterestID)
	}
	if lang := strings.TrimSpace(q.Language); lang != "" {
		query = query.Where("language = ?", lang)
	}
	if q.MaxPrice != nil {
		query = query.Where("price <= ?", *q.MaxPrice)
	}
	if strings.TrimSpace(q.Search) != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, likePattern(q.Search))
	}

	var courses []models.Course
	pg, err := paged(query, page, q.Sort.clause(), &courses, withInterest, withApprovedReviews)
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	out, err := s.annotate(ctx, courses, q.ViewerID)
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	return out, pg, nil
}

func (s *catalogService) ListAdmin(ctx context.Context, search, interestName string, page utils.Page) ([]CourseListing, utils.Pagination, error) {
	query := s.db.WithContext(ctx).Model(&models.Course{})
	if strings.TrimSpace(search) != "" {
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\'`, likePattern(search))
	}
	if strings.TrimSpace(interestName) != "" {
		interests := s.db.WithContext(ctx).Model(&models.Interest{}).
			Select("id").
			Where(`LOWER(name) LIKE ? ESCAPE '\'`, likePattern(interestName))
		query = query.Where("interest_id IN (?)", interests)
	}

	var courses []models.Course
	pg, err := paged(query, page, "created_at DESC, id DESC", &courses, withInterest, withLessons, withAllReviews)
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	out, err := s.annotate(ctx, courses, nil)
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	return out, pg, nil
}

// Get returns one course. An authenticated viewer is counted as a view.
func (s *catalogService) Get(ctx context.Context, courseID uint, viewerID *uint) (*CourseListing, error) {
	if viewerID != nil {
		if _, err := s.RecordView(ctx, courseID, *viewerID); err != nil {
			return nil, err
		}
	}
	var course models.Course
	err := s.db.WithContext(ctx).
		Preload("Interest").
		Preload("Lessons", lessonOrder).
		Preload("Reviews", approvedReviews).
		Preload("Reviews.Account").
		First(&course, courseID).Error
	if err != nil {
		return nil, storeErr(err, apperr.NotFound("Course not found"))
	}
	out, err := s.annotate(ctx, []models.Course{course}, viewerID)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// annotate attaches enrollment counts and, for a viewer, favourite flags.
func (s *catalogService) annotate(ctx context.Context, courses []models.Course, viewerID *uint) ([]CourseListing, error) {
	out := make([]CourseListing, len(courses))
	if len(courses) == 0 {
		return out, nil
	}
	ids := make([]uint, len(courses))
	for i := range courses {
		ids[i] = courses[i].ID
	}

	var counts []struct {
		CourseID uint
		Total    int64
	}
	err := s.db.WithContext(ctx).Model(&models.Enrollment{}).
		Select("course_id, COUNT(*) AS total").
		Where("course_id IN ?", ids).
		Group("course_id").
		Scan(&counts).Error
	if err != nil {
		return nil, apperr.Internal(err)
	}
	byCourse := make(map[uint]int64, len(counts))
	for _, c := range counts {
		byCourse[c.CourseID] = c.Total
	}

	favs := map[uint]bool{}
	if viewerID != nil {
		var favIDs []uint
		err := s.db.WithContext(ctx).Model(&models.FavoriteCourse{}).
			Where("account_id = ? AND course_id IN ?", *viewerID, ids).
			Pluck("course_id", &favIDs).Error
		if err != nil {
			return nil, apperr.Internal(err)
		}
		for _, id := range favIDs {
			favs[id] = true
		}
	}

	for i := range courses {
		out[i] = CourseListing{
			Course:          courses[i],
			EnrollmentCount: byCourse[courses[i].ID],
			IsFavourite:     favs[courses[i].ID],
		}
	}
	return out, nil
}

func (s *catalogService) ListLessons(ctx context.Context, courseID uint, page utils.Page) ([]models.Lesson, utils.Pagination, error) {
	if err := s.courseExists(ctx, courseID); err != nil {
		return nil, utils.Pagination{}, err
	}
	var lessons []models.Lesson
	query := s.db.WithContext(ctx).Model(&models.Lesson{}).Where("course_id = ?", courseID)
	pg, err := paged(query, page, "id ASC", &lessons)
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	return lessons, pg, nil
}

func (s *catalogService) GetLesson(ctx context.Context, courseID, lessonID uint) (*models.Lesson, error) {
	if err := s.courseExists(ctx, courseID); err != nil {
		return nil, err
	}
	return s.findLesson(ctx, courseID, lessonID)
}

// ListScheduledOnlineLessons lists scheduled online lessons across all
// courses, soonest first.
func (s *catalogService) ListScheduledOnlineLessons(ctx context.Context, page utils.Page) ([]ScheduledLesson, utils.Pagination, error) {
	query := s.db.WithContext(ctx).Model(&models.Lesson{}).
		Where("type = ? AND scheduled_at IS NOT NULL", models.LessonOnline)

	var lessons []models.Lesson
	pg, err := paged(query, page, "scheduled_at ASC, id ASC", &lessons)
	if err != nil {
		return nil, utils.Pagination{}, err
	}

	courseIDs := make([]uint, 0, len(lessons))
	for _, l := range lessons {
		courseIDs = append(courseIDs, l.CourseID)
	}
	names := map[uint]string{}
	if len(courseIDs) > 0 {
		var courses []models.Course
		if err := s.db.WithContext(ctx).Select("id", "name").Where("id IN ?", courseIDs).Find(&courses).Error; err != nil {
			return nil, utils.Pagination{}, apperr.Internal(err)
		}
		for _, c := range courses {
			names[c.ID] = c.Name
		}
	}

	out := make([]ScheduledLesson, len(lessons))
	for i, l := range lessons {
		out[i] = ScheduledLesson{Lesson: l, CourseName: names[l.CourseID]}
	}
	return out, pg, nil
}

func (s *catalogService) ListFavorites(ctx context.Context, accountID uint, page utils.Page) ([]CourseListing, utils.Pagination, error) {
	favs := s.db.WithContext(ctx).Model(&models.FavoriteCourse{}).
		Select("course_id").
		Where("account_id = ?", accountID)
	query := s.db.WithContext(ctx).Model(&models.Course{}).Where("id IN (?)", favs)

	var courses []models.Course
	pg, err := paged(query, page, "id ASC", &courses, withInterest, withApprovedReviews)
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	out, err := s.annotate(ctx, courses, &accountID)
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	return out, pg, nil
}
