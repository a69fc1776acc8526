package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kassslll/learnhub/internal/middleware"
	"github.com/kassslll/learnhub/internal/services"
	"github.com/kassslll/learnhub/internal/utils"
)

type AuthController struct {
	Auth services.AuthService
}

func NewAuthController(auth services.AuthService) *AuthController {
	return &AuthController{Auth: auth}
}

type handleRequest struct {
	Email string `json:"email" form:"email" validate:"omitempty,email"`
	Phone string `json:"phone" form:"phone" validate:"omitempty,max=32"`
}

func (r handleRequest) handle() services.Handle {
	return services.Handle{Email: r.Email, Phone: r.Phone}
}

type verifyRequest struct {
	handleRequest
	OTP string `json:"otp" form:"otp" validate:"required,len=6,numeric"`
}

type registerRequest struct {
	handleRequest
	Name     string `json:"name" form:"name" validate:"required,max=120"`
	Password string `json:"password" form:"password" validate:"required,min=6,max=72"`
}

type loginRequest struct {
	handleRequest
	Password string `json:"password" form:"password" validate:"required"`
}

type resetRequest struct {
	handleRequest
	NewPassword string `json:"newPassword" form:"newPassword" validate:"required,min=6,max=72"`
}

// RequestOTP godoc
// @Summary Send a one-time code
// @Description Creates the account shell on first use and mails a 6 digit code
// @Tags users
// @Accept json
// @Produce json
// @Success 201 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Router /users/otp [post]
func (ac *AuthController) RequestOTP(c *fiber.Ctx) error {
	var req handleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := ac.Auth.RequestChallenge(c.UserContext(), req.handle()); err != nil {
		return err
	}
	return utils.Created(c, "OTP generated and sent successfully", nil)
}

// VerifyOTP godoc
// @Summary Verify a one-time code
// @Tags users
// @Accept json
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 400 {object} utils.ErrorResponse
// @Router /users/verify-otp [post]
func (ac *AuthController) VerifyOTP(c *fiber.Ctx) error {
	var req verifyRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := ac.Auth.VerifyChallenge(c.UserContext(), req.handle(), req.OTP); err != nil {
		return err
	}
	return utils.OK(c, "OTP verified successfully", nil)
}

// Register godoc
// @Summary Complete registration of a verified account
// @Tags users
// @Accept json
// @Produce json
// @Success 201 {object} utils.SuccessResponse
// @Failure 403 {object} utils.ErrorResponse
// @Failure 409 {object} utils.ErrorResponse
// @Router /users/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := ac.Auth.Register(c.UserContext(), services.RegisterInput{
		Handle:   req.handle(),
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return utils.Created(c, "User registered successfully", res)
}

// Login godoc
// @Summary User login
// @Tags users
// @Accept json
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /users/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	res, err := ac.Auth.Login(c.UserContext(), req.handle(), req.Password)
	if err != nil {
		return err
	}
	return utils.OK(c, "Login successful", res)
}

func (ac *AuthController) ForgotPassword(c *fiber.Ctx) error {
	var req handleRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := ac.Auth.ForgotPassword(c.UserContext(), req.handle()); err != nil {
		return err
	}
	return utils.OK(c, "OTP sent for password reset", nil)
}

func (ac *AuthController) ResetPassword(c *fiber.Ctx) error {
	var req resetRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := ac.Auth.ResetPassword(c.UserContext(), req.handle(), req.NewPassword); err != nil {
		return err
	}
	return utils.OK(c, "Password reset successfully", nil)
}

func (ac *AuthController) Logout(c *fiber.Ctx) error {
	if err := ac.Auth.Logout(c.UserContext(), middleware.Token(c)); err != nil {
		return err
	}
	return utils.OK(c, "Logged out successfully", nil)
}
