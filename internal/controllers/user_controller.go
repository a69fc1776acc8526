package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/middleware"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/services"
	"github.com/kassslll/learnhub/internal/utils"
)

type UserController struct {
	Accounts    services.AccountService
	Catalog     services.CatalogService
	Enrollments services.EnrollmentService
}

func NewUserController(accounts services.AccountService, catalog services.CatalogService, enrollments services.EnrollmentService) *UserController {
	return &UserController{Accounts: accounts, Catalog: catalog, Enrollments: enrollments}
}

func currentAccount(c *fiber.Ctx) (*models.Account, error) {
	acct, ok := middleware.Account(c)
	if !ok {
		return nil, apperr.Auth("Unauthorized")
	}
	return acct, nil
}

type profileRequest struct {
	Name        *string `json:"name" form:"name" validate:"omitempty,max=120"`
	Email       *string `json:"email" form:"email" validate:"omitempty,email"`
	SkillLevel  *string `json:"skillLevel" form:"skillLevel"`
	InterestID  *uint   `json:"interestId" form:"interestId"`
	OldPassword string  `json:"oldPassword" form:"oldPassword"`
	NewPassword string  `json:"newPassword" form:"newPassword" validate:"omitempty,min=6,max=72"`
}

func (uc *UserController) GetMe(c *fiber.Ctx) error {
	acct, err := currentAccount(c)
	if err != nil {
		return err
	}
	me, err := uc.Accounts.Me(c.UserContext(), acct.ID)
	if err != nil {
		return err
	}
	return utils.OK(c, "User details fetched successfully", me)
}

// UpdateProfile accepts json or a multipart form with the picture under "file".
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	acct, err := currentAccount(c)
	if err != nil {
		return err
	}
	var req profileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	files := newUploads(c)
	defer files.Close()
	picture, err := files.file("file")
	if err != nil {
		return err
	}

	updated, err := uc.Accounts.UpdateProfile(c.UserContext(), acct.ID, services.ProfileUpdate{
		Name:        req.Name,
		Email:       req.Email,
		SkillLevel:  req.SkillLevel,
		InterestID:  req.InterestID,
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
		Picture:     picture,
	})
	if err != nil {
		return err
	}
	return utils.OK(c, "Profile updated successfully", updated)
}

func (uc *UserController) DeleteMe(c *fiber.Ctx) error {
	acct, err := currentAccount(c)
	if err != nil {
		return err
	}
	if err := uc.Accounts.SoftDelete(c.UserContext(), acct.ID); err != nil {
		return err
	}
	return utils.OK(c, "Account deleted successfully", nil)
}

func (uc *UserController) GetFavourites(c *fiber.Ctx) error {
	acct, err := currentAccount(c)
	if err != nil {
		return err
	}
	courses, pg, err := uc.Catalog.ListFavorites(c.UserContext(), acct.ID, utils.ParsePage(c))
	if err != nil {
		return err
	}
	return utils.Paginate(c, "Favourite courses fetched successfully", courses, pg)
}

func (uc *UserController) GetEnrollments(c *fiber.Ctx) error {
	acct, err := currentAccount(c)
	if err != nil {
		return err
	}
	enrollments, pg, err := uc.Enrollments.List(c.UserContext(), acct.ID, utils.ParsePage(c))
	if err != nil {
		return err
	}
	return utils.Paginate(c, "Enrolled courses fetched successfully", enrollments, pg)
}

func (uc *UserController) GetEnrollment(c *fiber.Ctx) error {
	acct, err := currentAccount(c)
	if err != nil {
		return err
	}
	courseID, err := paramID(c, "courseId")
	if err != nil {
		return err
	}
	enrollment, err := uc.Enrollments.Get(c.UserContext(), acct.ID, courseID)
	if err != nil {
		return err
	}
	return utils.OK(c, "Enrolled course fetched successfully", enrollment)
}

func (uc *UserController) CompleteLesson(c *fiber.Ctx) error {
	acct, err := currentAccount(c)
	if err != nil {
		return err
	}
	enrollmentID, err := paramID(c, "enrollmentId")
	if err != nil {
		return err
	}
	lessonID, err := paramID(c, "lessonId")
	if err != nil {
		return err
	}
	res, err := uc.Enrollments.MarkLessonComplete(c.UserContext(), acct.ID, enrollmentID, lessonID)
	if err != nil {
		return err
	}
	message := "Lesson marked as completed"
	if res.IsCompleted {
		message = "Course completed"
	}
	return utils.OK(c, message, res)
}
