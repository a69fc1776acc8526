package utils

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/logger"
)

func TestTokenSignersAreDisjoint(t *testing.T) {
	users := NewTokenSigner(RoleUser, "user-secret", time.Hour)
	admins := NewTokenSigner(RoleAdmin, "admin-secret", time.Hour)

	token, err := users.Sign(42)
	require.NoError(t, err)

	claims, err := users.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.ID)
	assert.Equal(t, RoleUser, claims.Role)

	_, err = admins.Verify(token)
	assert.Error(t, err)
}

func TestTokenSignerExpiry(t *testing.T) {
	s := NewTokenSigner(RoleUser, "user-secret", time.Minute)
	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, err := s.Sign(1)
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.Verify(token)
	assert.Error(t, err)
}

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher()
	hash, err := h.Hash("s3cret")
	require.NoError(t, err)

	assert.True(t, h.Verify("s3cret", hash))
	assert.False(t, h.Verify("wrong", hash))
	assert.False(t, h.Verify("s3cret", ""))
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateOTP()
		require.NoError(t, err)
		require.Len(t, code, 6)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestPaginate(t *testing.T) {
	p := NewPage(2, 10).Paginate(25)
	assert.Equal(t, 3, p.TotalPages)
	assert.True(t, p.HasNextPage)
	assert.True(t, p.HasPrevPage)

	last := NewPage(3, 10).Paginate(25)
	assert.False(t, last.HasNextPage)

	clamped := NewPage(0, 1000)
	assert.Equal(t, 1, clamped.Page)
	assert.Equal(t, MaxPageSize, clamped.Limit)
	assert.Equal(t, 0, clamped.Offset())

	empty := NewPage(1, 10).Paginate(0)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNextPage)
}

func TestErrorHandlerEnvelope(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger.Nop())})
	app.Get("/conflict", func(c *fiber.Ctx) error { return apperr.ErrAlreadyEnrolled })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("db is down") })
	app.Get("/token", func(c *fiber.Ctx) error {
		token, err := ExtractToken(c)
		if err != nil {
			return Fail(c, apperr.Auth(err.Error()))
		}
		return OK(c, "ok", token)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/conflict", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	var body ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "Already enrolled in this course", body.Message)
	assert.Equal(t, "already_enrolled", body.Code)

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "internal server error", body.Message)

	req := httptest.NewRequest("GET", "/token", nil)
	req.Header.Set("Authorization", "Bearer abc.def")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	var ok SuccessResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ok))
	assert.Equal(t, "abc.def", ok.Data)

	resp, err = app.Test(httptest.NewRequest("GET", "/token", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
