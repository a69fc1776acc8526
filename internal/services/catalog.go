package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/logger"
	"github.com/kassslll/learnhub/internal/meeting"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/storage"
	"github.com/kassslll/learnhub/internal/utils"
)

type CourseInput struct {
	Name        string
	Description string
	Price       float64
	InterestID  *uint
	Language    string
}

type CourseUpdate struct {
	Name        *string
	Description *string
	Price       *float64
	InterestID  *uint
	Language    *string
}

type CourseMedia struct {
	Thumbnail *storage.File
	Intro     *storage.File
}

// LessonInput holds the fields of every lesson type; which ones matter
// depends on Type.
type LessonInput struct {
	Type        string
	Name        string
	Location    string
	StartDate   *time.Time
	EndDate     *time.Time
	MeetingType string
	StartTime   *time.Time
	MeetingURL  string
	MeetingID   string
	// Duration is used for video lessons when the blob store reports none.
	Duration float64
}

type LessonMedia struct {
	Video     *storage.File
	Thumbnail *storage.File
}

// LessonDraft is a lesson created together with its course.
type LessonDraft struct {
	Input LessonInput
	Media LessonMedia
}

// LessonUpdate patches a lesson. A Type different from the stored one
// replaces the payload entirely and needs the full set of fields.
type LessonUpdate struct {
	Type        *string
	Name        *string
	Location    *string
	StartDate   *time.Time
	EndDate     *time.Time
	MeetingType *string
	StartTime   *time.Time
	MeetingURL  *string
	// Duration is used for a replaced video when the blob store reports none.
	Duration *float64
}

type CatalogService interface {
	CreateCourse(ctx context.Context, in CourseInput, media CourseMedia, first *LessonDraft) (*models.Course, error)
	UpdateCourse(ctx context.Context, courseID uint, in CourseUpdate, media CourseMedia) (*models.Course, error)
	DeleteCourse(ctx context.Context, courseID uint) error
	AddLesson(ctx context.Context, courseID uint, in LessonInput, media LessonMedia) (*models.Lesson, error)
	UpdateLesson(ctx context.Context, courseID, lessonID uint, in LessonUpdate, media LessonMedia) (*models.Lesson, error)
	DeleteLesson(ctx context.Context, courseID, lessonID uint) error
	RecordView(ctx context.Context, courseID, viewerID uint) (bool, error)
	ToggleFavorite(ctx context.Context, courseID, accountID uint) (bool, error)

	List(ctx context.Context, q ListQuery, page utils.Page) ([]CourseListing, utils.Pagination, error)
	ListAdmin(ctx context.Context, search, interestName string, page utils.Page) ([]CourseListing, utils.Pagination, error)
	Get(ctx context.Context, courseID uint, viewerID *uint) (*CourseListing, error)
	ListLessons(ctx context.Context, courseID uint, page utils.Page) ([]models.Lesson, utils.Pagination, error)
	GetLesson(ctx context.Context, courseID, lessonID uint) (*models.Lesson, error)
	ListScheduledOnlineLessons(ctx context.Context, page utils.Page) ([]ScheduledLesson, utils.Pagination, error)
	ListFavorites(ctx context.Context, accountID uint, page utils.Page) ([]CourseListing, utils.Pagination, error)
}

type catalogService struct {
	db       *gorm.DB
	log      *logger.Logger
	blobs    storage.BlobStore
	meetings meeting.Provider
}

// NewCatalogService builds the catalog. meetings may be nil, in which case
// online lessons must carry their own join URL.
func NewCatalogService(db *gorm.DB, baseLog *logger.Logger, blobs storage.BlobStore, meetings meeting.Provider) CatalogService {
	return &catalogService{
		db:       db,
		log:      baseLog.With("service", "CatalogService"),
		blobs:    blobs,
		meetings: meetings,
	}
}

func parseLanguage(s string) (models.Language, error) {
	if strings.TrimSpace(s) == "" {
		return models.LanguageEnglish, nil
	}
	lang := models.Language(strings.TrimSpace(s))
	if !lang.Valid() {
		return "", apperr.Validation("Language must be one of English, French, Other")
	}
	return lang, nil
}

func (s *catalogService) interestExists(ctx context.Context, id uint) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Interest{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return apperr.Internal(err)
	}
	if n == 0 {
		return apperr.NotFound("Interest not found")
	}
	return nil
}

func (s *catalogService) CreateCourse(ctx context.Context, in CourseInput, media CourseMedia, first *LessonDraft) (*models.Course, error) {
	name := strings.TrimSpace(in.Name)
	desc := strings.TrimSpace(in.Description)
	if name == "" || desc == "" {
		return nil, apperr.Validation("Name and description are required")
	}
	if in.Price < 0 {
		return nil, apperr.Validation("Price cannot be negative")
	}
	lang, err := parseLanguage(in.Language)
	if err != nil {
		return nil, err
	}
	if in.InterestID != nil {
		if err := s.interestExists(ctx, *in.InterestID); err != nil {
			return nil, err
		}
	}

	course := models.Course{
		Name:        name,
		Description: desc,
		Price:       in.Price,
		InterestID:  in.InterestID,
		Language:    lang,
	}

	uploads := newUploadSet(s.blobs, s.log)
	fail := func(err error) (*models.Course, error) {
		uploads.rollback(ctx)
		return nil, err
	}

	if course.Thumbnail, _, err = uploads.put(ctx, models.MediaImage, media.Thumbnail, "Thumbnail"); err != nil {
		return fail(err)
	}
	if course.Intro, _, err = uploads.put(ctx, models.MediaVideo, media.Intro, "Course intro"); err != nil {
		return fail(err)
	}

	var lesson *models.Lesson
	if first != nil {
		if lesson, err = s.buildLesson(ctx, uploads, 0, first.Input, first.Media); err != nil {
			return fail(err)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&course).Error; err != nil {
			return err
		}
		if lesson != nil {
			lesson.CourseID = course.ID
			if err := tx.Create(lesson).Error; err != nil {
				return err
			}
			course.Lessons = []models.Lesson{*lesson}
		}
		return nil
	})
	if err != nil {
		return fail(storeErr(err, nil))
	}

	s.log.Info("course created", "course_id", course.ID, "with_lesson", lesson != nil)
	return &course, nil
}

// buildLesson validates the input, uploads the lesson media through uploads
// and, for online lessons without a join URL, books a meeting.
func (s *catalogService) buildLesson(ctx context.Context, uploads *uploadSet, courseID uint, in LessonInput, media LessonMedia) (*models.Lesson, error) {
	kind := models.LessonType(strings.ToLower(strings.TrimSpace(in.Type)))
	if !kind.Valid() {
		return nil, apperr.Validation("Lesson type must be one of video, physical, online")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("Lesson name is required")
	}

	var (
		lesson *models.Lesson
		err    error
	)
	switch kind {
	case models.LessonVideo:
		if media.Video == nil {
			return nil, apperr.Validation("Video file required for video lesson")
		}
		thumb, _, err := uploads.put(ctx, models.MediaImage, media.Thumbnail, "Lesson thumbnail")
		if err != nil {
			return nil, err
		}
		video, duration, err := uploads.put(ctx, models.MediaVideo, media.Video, "Lesson video")
		if err != nil {
			return nil, err
		}
		if duration == 0 {
			duration = in.Duration
		}
		lesson, err = models.NewVideoLesson(courseID, models.VideoDetails{
			Name:      name,
			Video:     video,
			Duration:  duration,
			Thumbnail: thumb,
		})
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
	case models.LessonPhysical:
		if in.StartDate == nil || in.EndDate == nil {
			return nil, apperr.Validation("Start and end dates are required for physical lesson")
		}
		if !in.EndDate.After(*in.StartDate) {
			return nil, apperr.Validation("End date must be after start date")
		}
		thumb, _, err := uploads.put(ctx, models.MediaImage, media.Thumbnail, "Lesson thumbnail")
		if err != nil {
			return nil, err
		}
		lesson, err = models.NewPhysicalLesson(courseID, models.PhysicalDetails{
			Name:      name,
			Location:  strings.TrimSpace(in.Location),
			StartTime: *in.StartDate,
			EndTime:   *in.EndDate,
			Thumbnail: thumb,
		})
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
	case models.LessonOnline:
		details := models.OnlineDetails{
			Name:        name,
			MeetingType: models.MeetingType(strings.ToLower(strings.TrimSpace(in.MeetingType))),
			StartTime:   in.StartTime,
			MeetingURL:  strings.TrimSpace(in.MeetingURL),
			MeetingID:   strings.TrimSpace(in.MeetingID),
		}
		if details.MeetingType == "" {
			details.MeetingType = models.MeetingInstant
		}
		if details.MeetingURL == "" {
			if err := s.bookMeeting(ctx, &details); err != nil {
				return nil, err
			}
		}
		lesson, err = models.NewOnlineLesson(courseID, details)
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
	}
	return lesson, nil
}

func (s *catalogService) bookMeeting(ctx context.Context, d *models.OnlineDetails) error {
	if s.meetings == nil {
		return apperr.Validation("Meeting URL is required for online lesson")
	}
	req := meeting.Request{Topic: d.Name, Kind: meeting.KindInstant}
	if d.MeetingType == models.MeetingSchedule {
		req.Kind = meeting.KindScheduled
		req.StartTime = d.StartTime
	}
	req, err := req.Normalize()
	if err != nil {
		return apperr.Validation(err.Error())
	}
	m, err := s.meetings.CreateMeeting(ctx, req)
	if err != nil {
		return apperr.Upstream("Failed to create meeting", err)
	}
	d.MeetingURL = m.JoinURL
	d.MeetingID = m.MeetingID
	return nil
}

func (s *catalogService) AddLesson(ctx context.Context, courseID uint, in LessonInput, media LessonMedia) (*models.Lesson, error) {
	if err := s.courseExists(ctx, courseID); err != nil {
		return nil, err
	}
	uploads := newUploadSet(s.blobs, s.log)
	lesson, err := s.buildLesson(ctx, uploads, courseID, in, media)
	if err != nil {
		uploads.rollback(ctx)
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(lesson).Error; err != nil {
		uploads.rollback(ctx)
		return nil, storeErr(err, nil)
	}
	s.log.Info("lesson added", "course_id", courseID, "lesson_id", lesson.ID, "type", lesson.Type)
	return lesson, nil
}

func (s *catalogService) courseExists(ctx context.Context, courseID uint) error {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Course{}).Where("id = ?", courseID).Count(&n).Error; err != nil {
		return apperr.Internal(err)
	}
	if n == 0 {
		return apperr.NotFound("Course not found")
	}
	return nil
}

func (s *catalogService) UpdateCourse(ctx context.Context, courseID uint, in CourseUpdate, media CourseMedia) (*models.Course, error) {
	var course models.Course
	if err := s.db.WithContext(ctx).First(&course, courseID).Error; err != nil {
		return nil, storeErr(err, apperr.NotFound("Course not found"))
	}

	fields := map[string]interface{}{}
	if in.Name != nil {
		if v := strings.TrimSpace(*in.Name); v != "" {
			fields["name"] = v
		}
	}
	if in.Description != nil {
		if v := strings.TrimSpace(*in.Description); v != "" {
			fields["description"] = v
		}
	}
	if in.Price != nil {
		if *in.Price < 0 {
			return nil, apperr.Validation("Price cannot be negative")
		}
		fields["price"] = *in.Price
	}
	if in.Language != nil && strings.TrimSpace(*in.Language) != "" {
		lang, err := parseLanguage(*in.Language)
		if err != nil {
			return nil, err
		}
		fields["language"] = lang
	}
	if in.InterestID != nil {
		if err := s.interestExists(ctx, *in.InterestID); err != nil {
			return nil, err
		}
		fields["interest_id"] = *in.InterestID
	}

	uploads := newUploadSet(s.blobs, s.log)
	var stale []models.OwnedMedia
	if media.Thumbnail != nil {
		m, _, err := uploads.put(ctx, models.MediaImage, media.Thumbnail, "Thumbnail")
		if err != nil {
			return nil, err
		}
		fields["thumbnail_public_id"], fields["thumbnail_url"] = m.PublicID, m.URL
		stale = append(stale, models.OwnedMedia{Media: course.Thumbnail, Kind: models.MediaImage})
	}
	if media.Intro != nil {
		m, _, err := uploads.put(ctx, models.MediaVideo, media.Intro, "Course intro")
		if err != nil {
			uploads.rollback(ctx)
			return nil, err
		}
		fields["intro_public_id"], fields["intro_url"] = m.PublicID, m.URL
		stale = append(stale, models.OwnedMedia{Media: course.Intro, Kind: models.MediaVideo})
	}

	if len(fields) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.Course{}).Where("id = ?", courseID).Updates(fields).Error; err != nil {
			uploads.rollback(ctx)
			return nil, storeErr(err, nil)
		}
	}
	releaseBestEffort(ctx, s.blobs, s.log, stale, "course media")

	if err := s.db.WithContext(ctx).Preload("Interest").First(&course, courseID).Error; err != nil {
		return nil, storeErr(err, apperr.NotFound("Course not found"))
	}
	return &course, nil
}

func (s *catalogService) findLesson(ctx context.Context, courseID, lessonID uint) (*models.Lesson, error) {
	var lesson models.Lesson
	err := s.db.WithContext(ctx).Where("id = ? AND course_id = ?", lessonID, courseID).First(&lesson).Error
	if err != nil {
		return nil, storeErr(err, apperr.NotFound("Lesson not found"))
	}
	return &lesson, nil
}

func (s *catalogService) UpdateLesson(ctx context.Context, courseID, lessonID uint, in LessonUpdate, media LessonMedia) (*models.Lesson, error) {
	if err := s.courseExists(ctx, courseID); err != nil {
		return nil, err
	}
	lesson, err := s.findLesson(ctx, courseID, lessonID)
	if err != nil {
		return nil, err
	}

	uploads := newUploadSet(s.blobs, s.log)
	var updated *models.Lesson
	if in.Type != nil && models.LessonType(strings.ToLower(strings.TrimSpace(*in.Type))) != lesson.Type {
		updated, err = s.buildLesson(ctx, uploads, courseID, in.asInput(lesson), media)
	} else {
		updated, err = s.patchLesson(ctx, uploads, lesson, in, media)
	}
	if err != nil {
		uploads.rollback(ctx)
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(&models.Lesson{}).
		Where("id = ? AND course_id = ?", lesson.ID, courseID).
		Select("type", "video", "physical", "online", "scheduled_at", "updated_at").
		Updates(updated).Error
	if err != nil {
		uploads.rollback(ctx)
		return nil, storeErr(err, nil)
	}

	releaseBestEffort(ctx, s.blobs, s.log, staleMedia(lesson.Media(), updated.Media()), "lesson media")
	s.log.Info("lesson updated", "course_id", courseID, "lesson_id", lesson.ID)
	return s.findLesson(ctx, courseID, lessonID)
}

// asInput flattens an update onto the stored lesson for a type change.
func (in LessonUpdate) asInput(cur *models.Lesson) LessonInput {
	out := LessonInput{Type: *in.Type, Name: cur.Name()}
	if in.Name != nil {
		out.Name = *in.Name
	}
	if in.Location != nil {
		out.Location = *in.Location
	}
	out.StartDate, out.EndDate, out.StartTime = in.StartDate, in.EndDate, in.StartTime
	if in.MeetingType != nil {
		out.MeetingType = *in.MeetingType
	}
	if in.MeetingURL != nil {
		out.MeetingURL = *in.MeetingURL
	}
	if in.Duration != nil {
		out.Duration = *in.Duration
	}
	return out
}

// patchLesson keeps the lesson type and applies the given fields to a copy of
// the stored payload.
func (s *catalogService) patchLesson(ctx context.Context, uploads *uploadSet, cur *models.Lesson, in LessonUpdate, media LessonMedia) (*models.Lesson, error) {
	name := cur.Name()
	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		name = strings.TrimSpace(*in.Name)
	}

	switch cur.Type {
	case models.LessonVideo:
		d := *cur.Video
		d.Name = name
		if media.Thumbnail != nil {
			thumb, _, err := uploads.put(ctx, models.MediaImage, media.Thumbnail, "Lesson thumbnail")
			if err != nil {
				return nil, err
			}
			d.Thumbnail = thumb
		}
		if media.Video != nil {
			video, duration, err := uploads.put(ctx, models.MediaVideo, media.Video, "Lesson video")
			if err != nil {
				return nil, err
			}
			d.Video = video
			if duration > 0 {
				d.Duration = duration
			} else if in.Duration != nil {
				d.Duration = *in.Duration
			}
		} else if in.Duration != nil {
			d.Duration = *in.Duration
		}
		l, err := models.NewVideoLesson(cur.CourseID, d)
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
		return l, nil

	case models.LessonPhysical:
		d := *cur.Physical
		d.Name = name
		if in.Location != nil {
			d.Location = strings.TrimSpace(*in.Location)
		}
		if in.StartDate != nil {
			d.StartTime = *in.StartDate
		}
		if in.EndDate != nil {
			d.EndTime = *in.EndDate
		}
		if !d.EndTime.After(d.StartTime) {
			return nil, apperr.Validation("End date must be after start date")
		}
		if media.Thumbnail != nil {
			thumb, _, err := uploads.put(ctx, models.MediaImage, media.Thumbnail, "Lesson thumbnail")
			if err != nil {
				return nil, err
			}
			d.Thumbnail = thumb
		}
		l, err := models.NewPhysicalLesson(cur.CourseID, d)
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
		return l, nil

	default:
		d := *cur.Online
		d.Name = name
		if in.MeetingType != nil && strings.TrimSpace(*in.MeetingType) != "" {
			d.MeetingType = models.MeetingType(strings.ToLower(strings.TrimSpace(*in.MeetingType)))
		}
		if in.StartTime != nil {
			d.StartTime = in.StartTime
		}
		if in.MeetingURL != nil && strings.TrimSpace(*in.MeetingURL) != "" {
			d.MeetingURL = strings.TrimSpace(*in.MeetingURL)
		}
		if d.MeetingType == models.MeetingInstant {
			d.StartTime = nil
		}
		l, err := models.NewOnlineLesson(cur.CourseID, d)
		if err != nil {
			return nil, apperr.Validation(err.Error())
		}
		return l, nil
	}
}

// staleMedia returns the entries of before that are not referenced by after.
func staleMedia(before, after []models.OwnedMedia) []models.OwnedMedia {
	keep := make(map[string]bool, len(after))
	for _, m := range after {
		keep[m.PublicID] = true
	}
	var out []models.OwnedMedia
	for _, m := range before {
		if !keep[m.PublicID] {
			out = append(out, m)
		}
	}
	return out
}

func (s *catalogService) DeleteLesson(ctx context.Context, courseID, lessonID uint) error {
	lesson, err := s.findLesson(ctx, courseID, lessonID)
	if err != nil {
		return err
	}
	releaseBestEffort(ctx, s.blobs, s.log, lesson.Media(), "lesson")

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lesson_id = ?", lesson.ID).Delete(&models.EnrollmentLesson{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Lesson{}, lesson.ID).Error
	})
	if err != nil {
		return apperr.Internal(err)
	}
	s.log.Info("lesson deleted", "course_id", courseID, "lesson_id", lessonID)
	return nil
}

func (s *catalogService) DeleteCourse(ctx context.Context, courseID uint) error {
	var course models.Course
	if err := s.db.WithContext(ctx).Preload("Lessons").First(&course, courseID).Error; err != nil {
		return storeErr(err, apperr.NotFound("Course not found"))
	}
	var contracts []models.Enrollment
	if err := s.db.WithContext(ctx).Where("course_id = ?", courseID).Find(&contracts).Error; err != nil {
		return apperr.Internal(err)
	}

	media := course.Media()
	for _, e := range contracts {
		if !e.Contract.IsZero() {
			media = append(media, models.OwnedMedia{Media: e.Contract, Kind: models.MediaRaw})
		}
	}
	releaseBestEffort(ctx, s.blobs, s.log, media, "course")

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		enrollments := tx.Model(&models.Enrollment{}).Select("id").Where("course_id = ?", courseID)
		steps := []struct {
			model interface{}
			where string
			arg   interface{}
		}{
			{&models.EnrollmentLesson{}, "enrollment_id IN (?)", enrollments},
			{&models.Enrollment{}, "course_id = ?", courseID},
			{&models.FavoriteCourse{}, "course_id = ?", courseID},
			{&models.CourseView{}, "course_id = ?", courseID},
			{&models.CompletedCourse{}, "course_id = ?", courseID},
			{&models.Review{}, "course_id = ?", courseID},
			{&models.Lesson{}, "course_id = ?", courseID},
		}
		for _, st := range steps {
			if err := tx.Where(st.where, st.arg).Delete(st.model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&models.Course{}, courseID).Error
	})
	if err != nil {
		return apperr.Internal(err)
	}
	s.log.Info("course deleted", "course_id", courseID, "media", len(media))
	return nil
}

// RecordView counts viewerID once per course. It reports whether this call
// was the counted one.
func (s *catalogService) RecordView(ctx context.Context, courseID, viewerID uint) (bool, error) {
	if err := s.courseExists(ctx, courseID); err != nil {
		return false, err
	}
	counted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.CourseView{CourseID: courseID, ViewerID: viewerID})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		counted = true
		return tx.Model(&models.Course{}).Where("id = ?", courseID).
			UpdateColumn("views", gorm.Expr("views + 1")).Error
	})
	if err != nil {
		return false, apperr.Internal(err)
	}
	return counted, nil
}

// ToggleFavorite flips the membership row and returns the new state.
func (s *catalogService) ToggleFavorite(ctx context.Context, courseID, accountID uint) (bool, error) {
	if err := s.courseExists(ctx, courseID); err != nil {
		return false, err
	}
	favourite := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("account_id = ? AND course_id = ?", accountID, courseID).Delete(&models.FavoriteCourse{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return nil
		}
		favourite = true
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.FavoriteCourse{AccountID: accountID, CourseID: courseID}).Error
	})
	if err != nil {
		return false, apperr.Internal(err)
	}
	return favourite, nil
}
