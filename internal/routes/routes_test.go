package routes_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kassslll/learnhub/internal/blacklist"
	"github.com/kassslll/learnhub/internal/routes"
	"github.com/kassslll/learnhub/internal/services"
	"github.com/kassslll/learnhub/internal/testutil"
	"github.com/kassslll/learnhub/internal/utils"
)

const otp = "123456"

type envelope struct {
	Success    bool              `json:"success"`
	Message    string            `json:"message"`
	Code       string            `json:"code"`
	Data       json.RawMessage   `json:"data"`
	Pagination *utils.Pagination `json:"pagination"`
}

type server struct {
	t     *testing.T
	app   *fiber.App
	blobs *testutil.Blobs
}

func newServer(t *testing.T) *server {
	t.Helper()
	log := testutil.Logger(t)
	db := testutil.DB(t)
	blobs := testutil.NewBlobs()
	meetings := &testutil.Meetings{}
	hasher := utils.NewBcryptHasher()
	bl := blacklist.NewGorm(db)
	admins := utils.NewTokenSigner(utils.RoleAdmin, "admin-secret", time.Hour)

	svc := routes.Services{
		Auth: services.NewAuthService(db, log, services.AuthDeps{
			Notifier:     &testutil.Mailer{},
			Hasher:       hasher,
			Signer:       utils.NewTokenSigner(utils.RoleUser, "user-secret", time.Hour),
			Blacklist:    bl,
			BlacklistTTL: time.Hour,
			GenerateOTP:  func() (string, error) { return otp, nil },
		}),
		Admin:       services.NewAdminService(db, log, hasher, admins, bl, time.Hour),
		Accounts:    services.NewAccountService(db, log, blobs, hasher),
		Catalog:     services.NewCatalogService(db, log, blobs, meetings),
		Enrollments: services.NewEnrollmentService(db, log, blobs),
		Reviews:     services.NewReviewService(db, log),
		Questions:   services.NewQuestionService(db, log),
		Interests:   services.NewInterestService(db, log, blobs),
		Banners:     services.NewBannerService(db, log, blobs),
		Contacts:    services.NewContactService(db, log),
		Meetings:    services.NewMeetingService(log, meetings),
	}

	app := fiber.New(fiber.Config{ErrorHandler: utils.ErrorHandler(log)})
	routes.SetupRoutes(app, svc)
	return &server{t: t, app: app, blobs: blobs}
}

func (s *server) send(req *http.Request, token string) (int, envelope) {
	s.t.Helper()
	if token != "" {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(s.t, err)
	var env envelope
	require.NoError(s.t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

func (s *server) json(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		buf = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, buf)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	return s.send(req, token)
}

func (s *server) multipart(method, path, token string, fields map[string]string, files map[string]string) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(s.t, w.WriteField(k, v))
	}
	for field, name := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(s.t, err)
		_, err = part.Write([]byte("blob"))
		require.NoError(s.t, err)
	}
	require.NoError(s.t, w.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(fiber.HeaderContentType, w.FormDataContentType())
	return s.send(req, token)
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	return out
}

type tokenData struct {
	Token string `json:"jwtToken"`
}

func (s *server) userToken(email string) string {
	s.t.Helper()
	status, _ := s.json(http.MethodPost, "/api/users/otp", "", fiber.Map{"email": email})
	require.Equal(s.t, http.StatusCreated, status)
	status, _ = s.json(http.MethodPost, "/api/users/verify-otp", "", fiber.Map{"email": email, "otp": otp})
	require.Equal(s.t, http.StatusOK, status)
	status, env := s.json(http.MethodPost, "/api/users/register", "", fiber.Map{
		"email": email, "name": "Learner", "password": "pa55word",
	})
	require.Equal(s.t, http.StatusCreated, status, env.Message)
	return decode[tokenData](s.t, env).Token
}

func (s *server) adminToken() string {
	s.t.Helper()
	status, env := s.json(http.MethodPost, "/api/admin/register", "", fiber.Map{
		"name": "Root", "email": "root@example.com", "password": "adminpass",
	})
	require.Equal(s.t, http.StatusCreated, status, env.Message)
	return decode[tokenData](s.t, env).Token
}

func TestUserAuthFlow(t *testing.T) {
	s := newServer(t)

	status, env := s.json(http.MethodPost, "/api/users/verify-otp", "", fiber.Map{"email": "x@example.com"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)
	assert.Equal(t, "validation_error", env.Code)

	token := s.userToken("flow@example.com")

	status, env = s.json(http.MethodGet, "/api/users/me", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	me := decode[struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}](t, env)
	assert.Equal(t, "flow@example.com", me.Email)

	status, _ = s.json(http.MethodPost, "/api/users/login", "", fiber.Map{"email": "flow@example.com", "password": "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.json(http.MethodPost, "/api/users/logout", token, nil)
	require.Equal(t, http.StatusOK, status)
	status, env = s.json(http.MethodGet, "/api/users/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "token_revoked", env.Code)

	status, _ = s.json(http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestAdminRoutesRejectUserTokens(t *testing.T) {
	s := newServer(t)
	userToken := s.userToken("u@example.com")
	adminToken := s.adminToken()

	status, _ := s.json(http.MethodGet, "/api/admin/users", userToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := s.json(http.MethodGet, "/api/admin/users?search=u@", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(1), env.Pagination.TotalItems)

	status, _ = s.json(http.MethodGet, "/api/users/me", adminToken, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

type idData struct {
	ID uint `json:"id"`
}

func TestCourseEnrollmentOverHTTP(t *testing.T) {
	s := newServer(t)
	admin := s.adminToken()
	user := s.userToken("student@example.com")

	status, env := s.multipart(http.MethodPost, "/api/admin/interests", admin,
		map[string]string{"name": "Go"}, map[string]string{"file": "go.png"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	interest := decode[idData](t, env)

	status, env = s.multipart(http.MethodPost, "/api/admin/courses", admin, map[string]string{
		"name":            "Concurrency",
		"description":     "channels and friends",
		"price":           "25",
		"interest":        "1",
		"lessonType":      "physical",
		"lessonName":      "Kickoff",
		"lessonLocation":  "Hall A",
		"lessonStartDate": "2030-01-10T09:00:00Z",
		"lessonEndDate":   "2030-01-10T11:00:00Z",
	}, map[string]string{"thumbnail": "cover.png"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	course := decode[struct {
		ID         uint `json:"id"`
		InterestID uint `json:"interest_id"`
		Lessons    []idData
	}](t, env)
	assert.Equal(t, interest.ID, course.InterestID)
	require.Len(t, course.Lessons, 1)

	status, env = s.json(http.MethodGet, "/api/courses?limit=5", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, 5, env.Pagination.PerPage)
	assert.Equal(t, int64(1), env.Pagination.TotalItems)

	status, _ = s.json(http.MethodGet, "/api/courses/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	path := "/api/courses/" + itoa(course.ID)
	status, env = s.json(http.MethodPost, path+"/enroll", user, fiber.Map{"is_sign": true})
	require.Equal(t, http.StatusCreated, status, env.Message)
	enrollment := decode[idData](t, env)

	status, env = s.json(http.MethodPost, path+"/enroll", user, fiber.Map{"is_sign": true})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "already_enrolled", env.Code)

	status, env = s.json(http.MethodPatch,
		"/api/users/enrollments/"+itoa(enrollment.ID)+"/lessons/"+itoa(course.Lessons[0].ID), user, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	progress := decode[services.ProgressResult](t, env)
	assert.Equal(t, services.ProgressResult{Progress: 100, IsCompleted: true}, progress)

	status, env = s.json(http.MethodPost, path+"/reviews", user, fiber.Map{"rating": 5, "comment": "loved it"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	review := decode[idData](t, env)

	status, env = s.json(http.MethodPatch, "/api/admin/courses/"+itoa(course.ID)+"/reviews/"+itoa(review.ID), admin, fiber.Map{"approved": true})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = s.json(http.MethodGet, path, user, nil)
	require.Equal(t, http.StatusOK, status)
	shown := decode[struct {
		Views   int      `json:"views"`
		Reviews []idData `json:"reviews"`
	}](t, env)
	assert.Equal(t, 1, shown.Views)
	assert.Len(t, shown.Reviews, 1)

	status, _ = s.json(http.MethodDelete, "/api/admin/courses/"+itoa(course.ID), admin, nil)
	require.Equal(t, http.StatusOK, status)
	status, env = s.json(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "not_found", env.Code)
	assert.Len(t, s.blobs.Retained(), 1)
}

func TestScheduledOnlineLessonOverHTTP(t *testing.T) {
	s := newServer(t)
	admin := s.adminToken()

	status, env := s.json(http.MethodPost, "/api/admin/courses", admin, fiber.Map{
		"name": "Live Go", "description": "weekly sessions", "price": 0,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	course := decode[idData](t, env)
	lessons := "/api/admin/courses/" + itoa(course.ID) + "/lessons"

	status, _ = s.json(http.MethodPost, lessons, admin, fiber.Map{
		"type": "online", "name": "Typo", "meetingType": "scheduled", "startTime": "2030-02-01T10:00:00Z",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = s.json(http.MethodPost, lessons, admin, fiber.Map{
		"type": "online", "name": "Q&A", "meetingType": "schedule", "startTime": "2030-02-01T10:00:00Z",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	lesson := decode[struct {
		ID     uint `json:"id"`
		Online struct {
			MeetingType string `json:"meeting_type"`
			MeetingURL  string `json:"meeting_url"`
		} `json:"online_meeting_details"`
	}](t, env)
	assert.Equal(t, "schedule", lesson.Online.MeetingType)
	assert.NotEmpty(t, lesson.Online.MeetingURL)

	status, env = s.json(http.MethodPost, lessons, admin, fiber.Map{
		"type": "online", "name": "Drop-in", "meetingType": "instant", "meetingUrl": "https://meet.test/j/1",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	status, env = s.json(http.MethodPut, lessons+"/"+itoa(lesson.ID), admin, fiber.Map{
		"meetingType": "schedule", "startTime": "2030-03-01T10:00:00Z",
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = s.json(http.MethodGet, "/api/courses/online-lessons", "", nil)
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(1), env.Pagination.TotalItems)
	listed := decode[[]struct {
		ID         uint   `json:"id"`
		CourseName string `json:"course_name"`
	}](t, env)
	require.Len(t, listed, 1)
	assert.Equal(t, lesson.ID, listed[0].ID)
	assert.Equal(t, "Live Go", listed[0].CourseName)
}

func TestQuestionsAcceptBothRoles(t *testing.T) {
	s := newServer(t)
	admin := s.adminToken()
	user := s.userToken("asker@example.com")

	status, _ := s.json(http.MethodPost, "/api/questions", "", fiber.Map{"question": "anyone?"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env := s.json(http.MethodPost, "/api/questions", user, fiber.Map{"question": "Is there a certificate?"})
	require.Equal(t, http.StatusCreated, status, env.Message)
	q := decode[idData](t, env)

	status, _ = s.json(http.MethodPost, "/api/questions/"+itoa(q.ID)+"/answers", admin, fiber.Map{"answer": "Yes"})
	require.Equal(t, http.StatusCreated, status)

	status, _ = s.json(http.MethodDelete, "/api/questions/"+itoa(q.ID), admin, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = s.json(http.MethodPost, "/api/admin/questions", admin, fiber.Map{"question": "How do refunds work?"})
	require.Equal(t, http.StatusCreated, status, env.Message)

	status, env = s.json(http.MethodGet, "/api/faqs", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), env.Pagination.TotalItems)

	status, env = s.json(http.MethodGet, "/api/questions", user, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), env.Pagination.TotalItems)
}

func TestContactAndMeeting(t *testing.T) {
	s := newServer(t)
	admin := s.adminToken()

	status, env := s.json(http.MethodPost, "/api/contact", "", fiber.Map{"name": "Ann", "email": "not-an-email", "message": "hi"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Message, "email")

	status, _ = s.json(http.MethodPost, "/api/contact", "", fiber.Map{"name": "Ann", "email": "ann@example.com", "message": "hi"})
	require.Equal(t, http.StatusCreated, status)

	status, env = s.json(http.MethodGet, "/api/admin/contacts?search=ann", admin, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), env.Pagination.TotalItems)

	status, _ = s.json(http.MethodPost, "/api/admin/meetings", admin, fiber.Map{"type": "scheduled"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = s.json(http.MethodPost, "/api/admin/meetings", admin, fiber.Map{})
	require.Equal(t, http.StatusCreated, status, env.Message)
	m := decode[struct {
		Topic string `json:"topic"`
		Link  string `json:"meetingLink"`
	}](t, env)
	assert.Equal(t, "Instant Meeting", m.Topic)
	assert.NotEmpty(t, m.Link)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
