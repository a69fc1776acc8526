package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/middleware"
	"github.com/kassslll/learnhub/internal/services"
	"github.com/kassslll/learnhub/internal/utils"
)

type AdminController struct {
	Admins   services.AdminService
	Accounts services.AccountService
	Reviews  services.ReviewService
	Meetings services.MeetingService
}

func NewAdminController(admins services.AdminService, accounts services.AccountService, reviews services.ReviewService, meetings services.MeetingService) *AdminController {
	return &AdminController{Admins: admins, Accounts: accounts, Reviews: reviews, Meetings: meetings}
}

type adminRegisterRequest struct {
	Name     string `json:"name" form:"name" validate:"required,max=120"`
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required,min=6,max=72"`
}

type adminLoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

func (ac *AdminController) Register(c *fiber.Ctx) error {
	var req adminRegisterRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := ac.Admins.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return utils.Created(c, "Admin created successfully", res)
}

func (ac *AdminController) Login(c *fiber.Ctx) error {
	var req adminLoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := ac.Admins.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return utils.OK(c, "Admin logged in successfully", res)
}

func (ac *AdminController) Logout(c *fiber.Ctx) error {
	if err := ac.Admins.Logout(c.UserContext(), middleware.Token(c)); err != nil {
		return err
	}
	return utils.OK(c, "Admin logged out successfully", nil)
}

func (ac *AdminController) GetMe(c *fiber.Ctx) error {
	admin, ok := middleware.Admin(c)
	if !ok {
		return apperr.Auth("Unauthorized")
	}
	return utils.OK(c, "Admin details fetched successfully", admin)
}

func (ac *AdminController) GetUsers(c *fiber.Ctx) error {
	users, pg, err := ac.Accounts.List(c.UserContext(), utils.ParsePage(c), c.Query("search"))
	if err != nil {
		return err
	}
	return utils.Paginate(c, "Users fetched successfully", users, pg)
}

func (ac *AdminController) GetUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	user, err := ac.Accounts.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return utils.OK(c, "User fetched successfully", user)
}

// DeleteUser removes the account for good, unlike the user's own delete.
func (ac *AdminController) DeleteUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := ac.Accounts.HardDelete(c.UserContext(), id); err != nil {
		return err
	}
	return utils.OK(c, "User deleted successfully", nil)
}

func (ac *AdminController) GetReviews(c *fiber.Ctx) error {
	reviews, pg, err := ac.Reviews.List(c.UserContext(), utils.ParsePage(c))
	if err != nil {
		return err
	}
	return utils.Paginate(c, "Reviews fetched successfully", reviews, pg)
}

type approvalRequest struct {
	Approved *bool `json:"approved" form:"approved" validate:"required"`
}

func (ac *AdminController) SetReviewApproval(c *fiber.Ctx) error {
	courseID, err := paramID(c, "id")
	if err != nil {
		return err
	}
	reviewID, err := paramID(c, "reviewId")
	if err != nil {
		return err
	}
	var req approvalRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	review, err := ac.Reviews.SetApproval(c.UserContext(), courseID, reviewID, *req.Approved)
	if err != nil {
		return err
	}
	return utils.OK(c, "Review status updated successfully", review)
}

type meetingRequest struct {
	Topic     string `json:"topic" form:"topic" validate:"max=200"`
	Type      string `json:"type" form:"type" validate:"omitempty,oneof=instant scheduled"`
	StartTime string `json:"startTime" form:"startTime"`
}

func (ac *AdminController) CreateMeeting(c *fiber.Ctx) error {
	var req meetingRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	start, err := parseTime("startTime", req.StartTime)
	if err != nil {
		return err
	}
	m, err := ac.Meetings.Create(c.UserContext(), req.Topic, req.Type, start)
	if err != nil {
		return err
	}
	return utils.Created(c, "Meeting created successfully", m)
}
