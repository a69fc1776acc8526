package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/blacklist"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/testutil"
	"github.com/kassslll/learnhub/internal/utils"
)

const testOTP = "123456"

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type env struct {
	ctx      context.Context
	db       *gorm.DB
	blobs    *testutil.Blobs
	mailer   *testutil.Mailer
	meetings *testutil.Meetings
	clock    *clock
	hasher   utils.PasswordHasher
	users    *utils.TokenSigner
	admins   *utils.TokenSigner

	auth        AuthService
	admin       AdminService
	accounts    AccountService
	catalog     CatalogService
	enrollments EnrollmentService
	reviews     ReviewService
	questions   QuestionService
	interests   InterestService
	banners     BannerService
	contacts    ContactService
	meeting     MeetingService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	log := testutil.Logger(t)
	db := testutil.DB(t)
	e := &env{
		ctx:      context.Background(),
		db:       db,
		blobs:    testutil.NewBlobs(),
		mailer:   &testutil.Mailer{},
		meetings: &testutil.Meetings{},
		clock:    &clock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)},
		hasher:   utils.NewBcryptHasher(),
		users:    utils.NewTokenSigner(utils.RoleUser, "user-secret", time.Hour),
		admins:   utils.NewTokenSigner(utils.RoleAdmin, "admin-secret", time.Hour),
	}
	bl := blacklist.NewGorm(db)

	e.auth = NewAuthService(db, log, AuthDeps{
		Notifier:     e.mailer,
		Hasher:       e.hasher,
		Signer:       e.users,
		Blacklist:    bl,
		BlacklistTTL: time.Hour,
		Now:          e.clock.Now,
		GenerateOTP:  func() (string, error) { return testOTP, nil },
	})
	e.admin = NewAdminService(db, log, e.hasher, e.admins, bl, time.Hour)
	e.accounts = NewAccountService(db, log, e.blobs, e.hasher)
	e.catalog = NewCatalogService(db, log, e.blobs, e.meetings)
	e.enrollments = NewEnrollmentService(db, log, e.blobs)
	e.reviews = NewReviewService(db, log)
	e.questions = NewQuestionService(db, log)
	e.interests = NewInterestService(db, log, e.blobs)
	e.banners = NewBannerService(db, log, e.blobs)
	e.contacts = NewContactService(db, log)
	e.meeting = NewMeetingService(log, e.meetings)
	return e
}

// registeredUser walks the OTP flow and returns the account with its token.
func (e *env) registeredUser(t *testing.T, email string) (*models.Account, string) {
	t.Helper()
	h := Handle{Email: email}
	require.NoError(t, e.auth.RequestChallenge(e.ctx, h))
	require.NoError(t, e.auth.VerifyChallenge(e.ctx, h, testOTP))
	res, err := e.auth.Register(e.ctx, RegisterInput{Handle: h, Name: "Student", Password: "pa55word"})
	require.NoError(t, err)
	return res.Account, res.Token
}

func (e *env) course(t *testing.T, name string) *models.Course {
	t.Helper()
	c, err := e.catalog.CreateCourse(e.ctx, CourseInput{Name: name, Description: "about " + name, Price: 10}, CourseMedia{}, nil)
	require.NoError(t, err)
	return c
}

func (e *env) physicalLessons(t *testing.T, courseID uint, n int) []models.Lesson {
	t.Helper()
	start := e.clock.Now().Add(24 * time.Hour)
	out := make([]models.Lesson, 0, n)
	for i := 0; i < n; i++ {
		end := start.Add(time.Hour)
		l, err := e.catalog.AddLesson(e.ctx, courseID, LessonInput{
			Type:      "physical",
			Name:      "Session",
			Location:  "Room 1",
			StartDate: &start,
			EndDate:   &end,
		}, LessonMedia{})
		require.NoError(t, err)
		out = append(out, *l)
	}
	return out
}

func pageOf(page, limit int) utils.Page { return utils.NewPage(page, limit) }

func assertCode(t *testing.T, want *apperr.Error, err error) {
	t.Helper()
	require.Error(t, err)
	assert.ErrorIs(t, err, want, "got %v", err)
}

func TestBumpVersionRejectsStaleVersion(t *testing.T) {
	e := newEnv(t)
	acct, _ := e.registeredUser(t, "v@example.com")

	var fresh models.Account
	require.NoError(t, e.db.First(&fresh, acct.ID).Error)

	require.NoError(t, bumpVersion(e.ctx, e.db, acct.ID, fresh.Version))
	assertCode(t, apperr.ErrConcurrentUpdate, bumpVersion(e.ctx, e.db, acct.ID, fresh.Version))
}

func TestLikePatternEscapesWildcards(t *testing.T) {
	assert.Equal(t, `%go\_lang%`, likePattern(" Go_Lang "))
	assert.Equal(t, `%100\%%`, likePattern("100%"))
	assert.Equal(t, `%a\\b%`, likePattern(`a\b`))
}
