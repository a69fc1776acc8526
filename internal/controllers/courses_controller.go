package controllers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/middleware"
	"github.com/kassslll/learnhub/internal/services"
	"github.com/kassslll/learnhub/internal/utils"
)

type CoursesController struct {
	Catalog     services.CatalogService
	Enrollments services.EnrollmentService
	Reviews     services.ReviewService
}

func NewCoursesController(catalog services.CatalogService, enrollments services.EnrollmentService, reviews services.ReviewService) *CoursesController {
	return &CoursesController{Catalog: catalog, Enrollments: enrollments, Reviews: reviews}
}

func viewerID(c *fiber.Ctx) *uint {
	if acct, ok := middleware.Account(c); ok {
		return &acct.ID
	}
	return nil
}

func (cc *CoursesController) list(c *fiber.Ctx, q services.ListQuery, message string) error {
	q.ViewerID = viewerID(c)
	courses, pg, err := cc.Catalog.List(c.UserContext(), q, utils.ParsePage(c))
	if err != nil {
		return err
	}
	return utils.Paginate(c, message, courses, pg)
}

func (cc *CoursesController) GetCourses(c *fiber.Ctx) error {
	return cc.list(c, services.ListQuery{Sort: services.SortDefault}, "Courses fetched successfully")
}

func (cc *CoursesController) GetPopularCourses(c *fiber.Ctx) error {
	return cc.list(c, services.ListQuery{Sort: services.SortPopular}, "Popular courses fetched successfully")
}

func (cc *CoursesController) GetLatestCourses(c *fiber.Ctx) error {
	return cc.list(c, services.ListQuery{Sort: services.SortLatest}, "Latest courses fetched successfully")
}

// FilterCourses narrows by ?interest=<id>, ?language= and ?price=<max>.
func (cc *CoursesController) FilterCourses(c *fiber.Ctx) error {
	q := services.ListQuery{Language: strings.TrimSpace(c.Query("language"))}
	if raw := c.Query("interest"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return apperr.Validation("Invalid interest")
		}
		interestID := uint(id)
		q.InterestID = &interestID
	}
	if raw := c.Query("price"); raw != "" {
		price, err := strconv.ParseFloat(raw, 64)
		if err != nil || price < 0 {
			return apperr.Validation("Invalid price")
		}
		q.MaxPrice = &price
	}
	return cc.list(c, q, "Filtered courses fetched successfully")
}

func (cc *CoursesController) SearchCourses(c *fiber.Ctx) error {
	term := strings.TrimSpace(c.Query("q"))
	if term == "" {
		return apperr.Validation("Search query is required")
	}
	return cc.list(c, services.ListQuery{Search: term}, "Search results fetched successfully")
}

func (cc *CoursesController) GetOnlineLessons(c *fiber.Ctx) error {
	lessons, pg, err := cc.Catalog.ListScheduledOnlineLessons(c.UserContext(), utils.ParsePage(c))
	if err != nil {
		return err
	}
	return utils.Paginate(c, "Online lessons fetched successfully", lessons, pg)
}

// GetCourse counts a view for a signed-in viewer.
func (cc *CoursesController) GetCourse(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	course, err := cc.Catalog.Get(c.UserContext(), id, viewerID(c))
	if err != nil {
		return err
	}
	return utils.OK(c, "Course fetched successfully", course)
}

func (cc *CoursesController) GetLessons(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	lessons, pg, err := cc.Catalog.ListLessons(c.UserContext(), id, utils.ParsePage(c))
	if err != nil {
		return err
	}
	return utils.Paginate(c, "Lessons fetched successfully", lessons, pg)
}

func (cc *CoursesController) GetLesson(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	lessonID, err := paramID(c, "lessonId")
	if err != nil {
		return err
	}
	lesson, err := cc.Catalog.GetLesson(c.UserContext(), id, lessonID)
	if err != nil {
		return err
	}
	return utils.OK(c, "Lesson fetched successfully", lesson)
}

func (cc *CoursesController) ToggleFavourite(c *fiber.Ctx) error {
	acct, err := currentAccount(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	added, err := cc.Catalog.ToggleFavorite(c.UserContext(), id, acct.ID)
	if err != nil {
		return err
	}
	message := "Course removed from favourites"
	if added {
		message = "Course added to favourites"
	}
	return utils.OK(c, message, fiber.Map{"is_favourite": added})
}

type enrollRequest struct {
	IsSign bool `json:"is_sign" form:"is_sign"`
}

// Enroll takes an optional signed contract under "file".
func (cc *CoursesController) Enroll(c *fiber.Ctx) error {
	acct, err := currentAccount(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req enrollRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	files := newUploads(c)
	defer files.Close()
	contract, err := files.file("file")
	if err != nil {
		return err
	}
	enrollment, err := cc.Enrollments.Enroll(c.UserContext(), acct.ID, id, contract, req.IsSign)
	if err != nil {
		return err
	}
	return utils.Created(c, "Enrolled in course successfully", enrollment)
}

func (cc *CoursesController) Unenroll(c *fiber.Ctx) error {
	acct, err := currentAccount(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := cc.Enrollments.Unenroll(c.UserContext(), acct.ID, id); err != nil {
		return err
	}
	return utils.OK(c, "Unenrolled from course successfully", nil)
}

type reviewRequest struct {
	Rating  int    `json:"rating" form:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" form:"comment" validate:"required,max=2000"`
}

func (cc *CoursesController) SubmitReview(c *fiber.Ctx) error {
	acct, err := currentAccount(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req reviewRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	review, err := cc.Reviews.Submit(c.UserContext(), acct.ID, id, req.Rating, req.Comment)
	if err != nil {
		return err
	}
	return utils.Created(c, "Review submitted for approval", review)
}
