package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/logger"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/utils"
)

type stubUsers map[string]uint

func (s stubUsers) Authenticate(_ context.Context, token string) (*models.Account, error) {
	if id, ok := s[token]; ok {
		return &models.Account{ID: id}, nil
	}
	return nil, apperr.Auth("Invalid token")
}

type stubAdmins map[string]uint

func (s stubAdmins) Authenticate(_ context.Context, token string) (*models.Admin, error) {
	if id, ok := s[token]; ok {
		return &models.Admin{ID: id}, nil
	}
	return nil, apperr.Auth("Invalid token")
}

func whoami(c *fiber.Ctx) error {
	a, ok := Author(c)
	if !ok {
		return c.JSON(fiber.Map{"kind": "anonymous"})
	}
	if a.UserID != nil {
		return c.JSON(fiber.Map{"kind": "user", "id": *a.UserID, "token": Token(c)})
	}
	return c.JSON(fiber.Map{"kind": "admin", "id": *a.AdminID, "token": Token(c)})
}

func newApp(handlers ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: utils.ErrorHandler(logger.Nop())})
	app.Get("/", append(handlers, whoami)...)
	return app
}

func call(t *testing.T, app *fiber.App, token string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestRequireUser(t *testing.T) {
	app := newApp(RequireUser(stubUsers{"u1": 1}))

	status, _ := call(t, app, "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, app, "bogus")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body := call(t, app, "u1")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"kind":"user","id":1,"token":"u1"}`, body)
}

func TestRequireAnyAcceptsEitherRole(t *testing.T) {
	app := newApp(RequireAny(stubUsers{"u7": 7}, stubAdmins{"a7": 7}))

	_, body := call(t, app, "u7")
	assert.JSONEq(t, `{"kind":"user","id":7,"token":"u7"}`, body)

	_, body = call(t, app, "a7")
	assert.JSONEq(t, `{"kind":"admin","id":7,"token":"a7"}`, body)

	status, _ := call(t, app, "nobody")
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestOptionalUserLetsAnonymousThrough(t *testing.T) {
	app := newApp(OptionalUser(stubUsers{"u2": 2}))

	status, body := call(t, app, "")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"kind":"anonymous"}`, body)

	status, body = call(t, app, "expired")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"kind":"anonymous"}`, body)

	_, body = call(t, app, "u2")
	assert.JSONEq(t, `{"kind":"user","id":2,"token":"u2"}`, body)
}
