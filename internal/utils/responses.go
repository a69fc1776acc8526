package utils

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/logger"
)

// SuccessResponse структура для успешных ответов
type SuccessResponse struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// ErrorResponse структура для ошибок
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Success создает успешный JSON ответ
func Success(c *fiber.Ctx, status int, message string, data interface{}) error {
	return c.Status(status).JSON(SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Created отправляет ответ 201 Created
func Created(c *fiber.Ctx, message string, data interface{}) error {
	return Success(c, fiber.StatusCreated, message, data)
}

// OK отправляет ответ 200 OK
func OK(c *fiber.Ctx, message string, data interface{}) error {
	return Success(c, fiber.StatusOK, message, data)
}

// Paginate создает пагинированный JSON ответ
func Paginate(c *fiber.Ctx, message string, data interface{}, page Pagination) error {
	return c.Status(fiber.StatusOK).JSON(SuccessResponse{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: &page,
	})
}

// Fail writes the error envelope for err.
func Fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	resp := ErrorResponse{Success: false}

	var fe *fiber.Error
	if ae, ok := apperr.As(err); ok {
		status = ae.Status
		resp.Code = ae.Code
		resp.Message = ae.Message
		if resp.Message == "" {
			resp.Message = ae.Error()
		}
	} else if errors.As(err, &fe) {
		status = fe.Code
		resp.Message = fe.Message
	} else {
		resp.Message = "internal server error"
	}
	resp.Error = http.StatusText(status)

	return c.Status(status).JSON(resp)
}

// ErrorHandler is installed as fiber's ErrorHandler so handlers can simply
// return service errors. 5xx responses are logged with their cause.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := apperr.StatusOf(err)
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		if status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"status", status,
				"error", err.Error(),
			)
		}
		return Fail(c, err)
	}
}
