package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kassslll/learnhub/internal/services"
	"github.com/kassslll/learnhub/internal/utils"
)

type CourseAdminController struct {
	Catalog services.CatalogService
}

func NewCourseAdminController(catalog services.CatalogService) *CourseAdminController {
	return &CourseAdminController{Catalog: catalog}
}

type courseRequest struct {
	Name        string  `json:"name" form:"name" validate:"required,max=200"`
	Description string  `json:"description" form:"description" validate:"required"`
	Price       float64 `json:"price" form:"price" validate:"gte=0"`
	Language    string  `json:"language" form:"language" validate:"omitempty,oneof=English French Other"`
	InterestID  *uint   `json:"interest" form:"interest"`
}

// firstLessonRequest carries the optional lesson created with a course. Its
// fields are prefixed so they do not clash with the course's own.
type firstLessonRequest struct {
	Type        string  `json:"lessonType" form:"lessonType"`
	Name        string  `json:"lessonName" form:"lessonName"`
	Location    string  `json:"lessonLocation" form:"lessonLocation"`
	StartDate   string  `json:"lessonStartDate" form:"lessonStartDate"`
	EndDate     string  `json:"lessonEndDate" form:"lessonEndDate"`
	MeetingType string  `json:"lessonMeetingType" form:"lessonMeetingType"`
	StartTime   string  `json:"lessonStartTime" form:"lessonStartTime"`
	MeetingURL  string  `json:"lessonMeetingUrl" form:"lessonMeetingUrl"`
	Duration    float64 `json:"lessonDuration" form:"lessonDuration"`
}

func (r firstLessonRequest) lesson() lessonRequest {
	return lessonRequest{
		Type:        r.Type,
		Name:        r.Name,
		Location:    r.Location,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		MeetingType: r.MeetingType,
		StartTime:   r.StartTime,
		MeetingURL:  r.MeetingURL,
		Duration:    r.Duration,
	}
}

type courseUpdateRequest struct {
	Name        *string  `json:"name" form:"name" validate:"omitempty,max=200"`
	Description *string  `json:"description" form:"description"`
	Price       *float64 `json:"price" form:"price" validate:"omitempty,gte=0"`
	Language    *string  `json:"language" form:"language" validate:"omitempty,oneof=English French Other"`
	InterestID  *uint    `json:"interest" form:"interest"`
}

type lessonRequest struct {
	Type        string  `json:"type" form:"type" validate:"required,oneof=video physical online"`
	Name        string  `json:"name" form:"name" validate:"required,max=200"`
	Location    string  `json:"location" form:"location"`
	StartDate   string  `json:"startDate" form:"startDate"`
	EndDate     string  `json:"endDate" form:"endDate"`
	MeetingType string  `json:"meetingType" form:"meetingType" validate:"omitempty,oneof=instant schedule"`
	StartTime   string  `json:"startTime" form:"startTime"`
	MeetingURL  string  `json:"meetingUrl" form:"meetingUrl" validate:"omitempty,url"`
	MeetingID   string  `json:"meetingId" form:"meetingId"`
	Duration    float64 `json:"duration" form:"duration" validate:"gte=0"`
}

func (r lessonRequest) input() (services.LessonInput, error) {
	in := services.LessonInput{
		Type:        r.Type,
		Name:        r.Name,
		Location:    r.Location,
		MeetingType: r.MeetingType,
		MeetingURL:  r.MeetingURL,
		MeetingID:   r.MeetingID,
		Duration:    r.Duration,
	}
	var err error
	if in.StartDate, err = parseTime("startDate", r.StartDate); err != nil {
		return in, err
	}
	if in.EndDate, err = parseTime("endDate", r.EndDate); err != nil {
		return in, err
	}
	if in.StartTime, err = parseTime("startTime", r.StartTime); err != nil {
		return in, err
	}
	return in, nil
}

type lessonUpdateRequest struct {
	Type        *string  `json:"type" form:"type" validate:"omitempty,oneof=video physical online"`
	Name        *string  `json:"name" form:"name" validate:"omitempty,max=200"`
	Location    *string  `json:"location" form:"location"`
	StartDate   string   `json:"startDate" form:"startDate"`
	EndDate     string   `json:"endDate" form:"endDate"`
	MeetingType *string  `json:"meetingType" form:"meetingType" validate:"omitempty,oneof=instant schedule"`
	StartTime   string   `json:"startTime" form:"startTime"`
	MeetingURL  *string  `json:"meetingUrl" form:"meetingUrl" validate:"omitempty,url"`
	Duration    *float64 `json:"duration" form:"duration" validate:"omitempty,gte=0"`
}

func (r lessonUpdateRequest) update() (services.LessonUpdate, error) {
	up := services.LessonUpdate{
		Type:        r.Type,
		Name:        trimmed(r.Name),
		Location:    r.Location,
		MeetingType: r.MeetingType,
		MeetingURL:  r.MeetingURL,
		Duration:    r.Duration,
	}
	var err error
	if up.StartDate, err = parseTime("startDate", r.StartDate); err != nil {
		return up, err
	}
	if up.EndDate, err = parseTime("endDate", r.EndDate); err != nil {
		return up, err
	}
	if up.StartTime, err = parseTime("startTime", r.StartTime); err != nil {
		return up, err
	}
	return up, nil
}

func courseMedia(files *uploads) (services.CourseMedia, error) {
	var media services.CourseMedia
	var err error
	if media.Thumbnail, err = files.file("thumbnail"); err != nil {
		return media, err
	}
	if media.Intro, err = files.file("intro"); err != nil {
		return media, err
	}
	return media, nil
}

func lessonMedia(files *uploads, thumbnailField string) (services.LessonMedia, error) {
	var media services.LessonMedia
	var err error
	if media.Video, err = files.file("video"); err != nil {
		return media, err
	}
	if media.Thumbnail, err = files.file(thumbnailField); err != nil {
		return media, err
	}
	return media, nil
}

func (ac *CourseAdminController) GetCourses(c *fiber.Ctx) error {
	courses, pg, err := ac.Catalog.ListAdmin(c.UserContext(), c.Query("search"), c.Query("interest"), utils.ParsePage(c))
	if err != nil {
		return err
	}
	return utils.Paginate(c, "Courses fetched successfully", courses, pg)
}

// CreateCourse takes "thumbnail" and "intro" files. When lessonType is sent
// the first lesson is created in the same step, its files under "video" and
// "lessonThumbnail".
func (ac *CourseAdminController) CreateCourse(c *fiber.Ctx) error {
	var req courseRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	var first firstLessonRequest
	if err := parseBody(c, &first); err != nil {
		return err
	}

	files := newUploads(c)
	defer files.Close()
	media, err := courseMedia(files)
	if err != nil {
		return err
	}

	var draft *services.LessonDraft
	if strings.TrimSpace(first.Type) != "" {
		lr := first.lesson()
		if err := validateStruct(&lr); err != nil {
			return err
		}
		in, err := lr.input()
		if err != nil {
			return err
		}
		lm, err := lessonMedia(files, "lessonThumbnail")
		if err != nil {
			return err
		}
		draft = &services.LessonDraft{Input: in, Media: lm}
	}

	course, err := ac.Catalog.CreateCourse(c.UserContext(), services.CourseInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		InterestID:  req.InterestID,
		Language:    req.Language,
	}, media, draft)
	if err != nil {
		return err
	}
	return utils.Created(c, "Course created successfully", course)
}

func (ac *CourseAdminController) UpdateCourse(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req courseUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	files := newUploads(c)
	defer files.Close()
	media, err := courseMedia(files)
	if err != nil {
		return err
	}
	course, err := ac.Catalog.UpdateCourse(c.UserContext(), id, services.CourseUpdate{
		Name:        trimmed(req.Name),
		Description: req.Description,
		Price:       req.Price,
		InterestID:  req.InterestID,
		Language:    req.Language,
	}, media)
	if err != nil {
		return err
	}
	return utils.OK(c, "Course updated successfully", course)
}

func (ac *CourseAdminController) DeleteCourse(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := ac.Catalog.DeleteCourse(c.UserContext(), id); err != nil {
		return err
	}
	return utils.OK(c, "Course deleted successfully", nil)
}

func (ac *CourseAdminController) AddLesson(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req lessonRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	in, err := req.input()
	if err != nil {
		return err
	}
	files := newUploads(c)
	defer files.Close()
	media, err := lessonMedia(files, "thumbnail")
	if err != nil {
		return err
	}
	lesson, err := ac.Catalog.AddLesson(c.UserContext(), id, in, media)
	if err != nil {
		return err
	}
	return utils.Created(c, "Lesson added successfully", lesson)
}

func (ac *CourseAdminController) UpdateLesson(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	lessonID, err := paramID(c, "lessonId")
	if err != nil {
		return err
	}
	var req lessonUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	up, err := req.update()
	if err != nil {
		return err
	}
	files := newUploads(c)
	defer files.Close()
	media, err := lessonMedia(files, "thumbnail")
	if err != nil {
		return err
	}
	lesson, err := ac.Catalog.UpdateLesson(c.UserContext(), id, lessonID, up, media)
	if err != nil {
		return err
	}
	return utils.OK(c, "Lesson updated successfully", lesson)
}

func (ac *CourseAdminController) DeleteLesson(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	lessonID, err := paramID(c, "lessonId")
	if err != nil {
		return err
	}
	if err := ac.Catalog.DeleteLesson(c.UserContext(), id, lessonID); err != nil {
		return err
	}
	return utils.OK(c, "Lesson deleted successfully", nil)
}
