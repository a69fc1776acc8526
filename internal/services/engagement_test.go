package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/meeting"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/testutil"
)

func TestQuestionsAndAnswers(t *testing.T) {
	e := newEnv(t)
	alice, bob := models.UserAuthor(1), models.UserAuthor(2)
	admin := models.AdminAuthor(1)

	_, err := e.questions.Create(e.ctx, alice, "   ")
	assertCode(t, apperr.Validation(""), err)
	_, err = e.questions.Create(e.ctx, models.Author{}, "who?")
	assertCode(t, apperr.Validation(""), err)

	q, err := e.questions.Create(e.ctx, alice, "How long is a lesson?")
	require.NoError(t, err)
	faq, err := e.questions.Create(e.ctx, admin, "Do you offer refunds?")
	require.NoError(t, err)

	q, err = e.questions.Answer(e.ctx, q.ID, admin, "About an hour")
	require.NoError(t, err)
	q, err = e.questions.Answer(e.ctx, q.ID, bob, "Mine ran longer")
	require.NoError(t, err)
	require.Len(t, q.Answers, 2)
	assert.Equal(t, "About an hour", q.Answers[0].Content)

	_, err = e.questions.Answer(e.ctx, 404, bob, "hello")
	assertCode(t, apperr.NotFound(""), err)

	users, _, err := e.questions.ListUserQuestions(e.ctx, pageOf(1, 10))
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, q.ID, users[0].ID)
	assert.Len(t, users[0].Answers, 2)

	faqs, _, err := e.questions.ListFAQs(e.ctx, pageOf(1, 10))
	require.NoError(t, err)
	require.Len(t, faqs, 1)
	assert.Equal(t, faq.ID, faqs[0].ID)

	mine, _, err := e.questions.ListAdmin(e.ctx, 1, "REFUND", pageOf(1, 10))
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	mine, _, err = e.questions.ListAdmin(e.ctx, 2, "", pageOf(1, 10))
	require.NoError(t, err)
	assert.Empty(t, mine)

	_, err = e.questions.DeleteAnswer(e.ctx, q.ID, q.Answers[0].ID, bob)
	assertCode(t, apperr.Forbidden(""), err)
	q, err = e.questions.DeleteAnswer(e.ctx, q.ID, q.Answers[1].ID, bob)
	require.NoError(t, err)
	assert.Len(t, q.Answers, 1)

	// an admin id never owns a user's entry with the same number
	assertCode(t, apperr.Forbidden(""), e.questions.Delete(e.ctx, q.ID, admin))
	assertCode(t, apperr.Forbidden(""), e.questions.Delete(e.ctx, q.ID, bob))
	require.NoError(t, e.questions.Delete(e.ctx, q.ID, alice))

	var answers int64
	require.NoError(t, e.db.Model(&models.Answer{}).Where("question_id = ?", q.ID).Count(&answers).Error)
	assert.Zero(t, answers)
}

func TestQuestionAdminEdit(t *testing.T) {
	e := newEnv(t)
	admin := models.AdminAuthor(7)
	q, err := e.questions.Create(e.ctx, admin, "Old wording")
	require.NoError(t, err)
	q, err = e.questions.Answer(e.ctx, q.ID, admin, "Old answer")
	require.NoError(t, err)

	q, err = e.questions.Update(e.ctx, q.ID, QuestionEdit{
		Question: testutil.Ptr(" New wording "),
		AnswerID: &q.Answers[0].ID,
		Answer:   testutil.Ptr("New answer"),
	})
	require.NoError(t, err)
	assert.Equal(t, "New wording", q.Question)
	assert.Equal(t, "New answer", q.Answers[0].Content)

	_, err = e.questions.Update(e.ctx, q.ID, QuestionEdit{AnswerID: testutil.Ptr(uint(999)), Answer: testutil.Ptr("x")})
	assertCode(t, apperr.NotFound(""), err)
	_, err = e.questions.Update(e.ctx, 999, QuestionEdit{})
	assertCode(t, apperr.NotFound(""), err)
}

func TestInterests(t *testing.T) {
	e := newEnv(t)

	_, err := e.interests.Create(e.ctx, "Go", nil)
	assertCode(t, apperr.Validation(""), err)
	_, err = e.interests.Create(e.ctx, " ", testutil.Image("x.png"))
	assertCode(t, apperr.Validation(""), err)

	golang, err := e.interests.Create(e.ctx, " Go ", testutil.Image("go.png"))
	require.NoError(t, err)
	assert.Equal(t, "go", golang.Name)

	_, err = e.interests.Create(e.ctx, "GO", testutil.Image("dup.png"))
	assertCode(t, apperr.Conflict(""), err)
	assert.Len(t, e.blobs.Retained(), 1)

	art, err := e.interests.Create(e.ctx, "art", testutil.Image("art.png"))
	require.NoError(t, err)
	_, err = e.interests.Update(e.ctx, art.ID, testutil.Ptr("Go"), nil)
	assertCode(t, apperr.Conflict(""), err)

	art, err = e.interests.Update(e.ctx, art.ID, testutil.Ptr("Painting"), testutil.Image("paint.png"))
	require.NoError(t, err)
	assert.Equal(t, "painting", art.Name)
	assert.Len(t, e.blobs.Retained(), 2)

	all, err := e.interests.All(e.ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "go", all[0].Name)

	c, err := e.catalog.CreateCourse(e.ctx, CourseInput{Name: "Gophers", Description: "d", InterestID: &golang.ID}, CourseMedia{}, nil)
	require.NoError(t, err)
	acct, _ := e.registeredUser(t, "fan@example.com")
	_, err = e.accounts.UpdateProfile(e.ctx, acct.ID, ProfileUpdate{InterestID: &golang.ID})
	require.NoError(t, err)

	require.NoError(t, e.interests.Delete(e.ctx, golang.ID))
	assert.False(t, e.blobs.Has(golang.Image.PublicID))
	_, err = e.interests.Get(e.ctx, golang.ID)
	assertCode(t, apperr.NotFound(""), err)

	var course models.Course
	require.NoError(t, e.db.First(&course, c.ID).Error)
	assert.Nil(t, course.InterestID)
	me, err := e.accounts.Me(e.ctx, acct.ID)
	require.NoError(t, err)
	assert.Nil(t, me.InterestID)
}

func TestBanners(t *testing.T) {
	e := newEnv(t)

	_, err := e.banners.Create(e.ctx, "Spring", nil)
	assertCode(t, apperr.Validation(""), err)

	b, err := e.banners.Create(e.ctx, " Spring ", testutil.Image("spring.png"))
	require.NoError(t, err)
	assert.Equal(t, "Spring", b.Title)
	first := b.Image.PublicID

	b, err = e.banners.Update(e.ctx, b.ID, testutil.Ptr("Summer"), testutil.Image("summer.png"))
	require.NoError(t, err)
	assert.Equal(t, "Summer", b.Title)
	assert.False(t, e.blobs.Has(first))
	assert.True(t, e.blobs.Has(b.Image.PublicID))

	list, pg, err := e.banners.List(e.ctx, pageOf(1, 10))
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, int64(1), pg.TotalItems)

	require.NoError(t, e.banners.Delete(e.ctx, b.ID))
	assert.Empty(t, e.blobs.Retained())
	assertCode(t, apperr.NotFound(""), e.banners.Delete(e.ctx, b.ID))
}

func TestContacts(t *testing.T) {
	e := newEnv(t)

	_, err := e.contacts.Create(e.ctx, "Ann", "", "hi")
	assertCode(t, apperr.Validation(""), err)

	ann, err := e.contacts.Create(e.ctx, "Ann", " Ann@Example.com ", "Need an invoice")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", ann.Email)
	_, err = e.contacts.Create(e.ctx, "Ben", "ben@example.org", "Question about pricing")
	require.NoError(t, err)

	found, _, err := e.contacts.List(e.ctx, "example.com", pageOf(1, 10))
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, ann.ID, found[0].ID)

	all, pg, err := e.contacts.List(e.ctx, "", pageOf(1, 1))
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.Equal(t, int64(2), pg.TotalItems)

	require.NoError(t, e.contacts.Delete(e.ctx, ann.ID))
	assertCode(t, apperr.NotFound(""), e.contacts.Delete(e.ctx, ann.ID))
}

func TestMeetingService(t *testing.T) {
	e := newEnv(t)

	m, err := e.meeting.Create(e.ctx, "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, meeting.DefaultTopic, m.Topic)
	assert.NotEmpty(t, m.JoinURL)

	_, err = e.meeting.Create(e.ctx, "Office hours", string(meeting.KindScheduled), nil)
	assertCode(t, apperr.Validation(""), err)

	start := e.clock.Now().Add(48 * time.Hour)
	m, err = e.meeting.Create(e.ctx, "Office hours", string(meeting.KindScheduled), &start)
	require.NoError(t, err)
	require.NotNil(t, m.StartTime)
	assert.True(t, start.Equal(*m.StartTime))

	e.meetings.Err = errors.New("zoom unavailable")
	_, err = e.meeting.Create(e.ctx, "", "", nil)
	assertCode(t, apperr.Upstream("", nil), err)

	_, err = NewMeetingService(testutil.Logger(t), nil).Create(e.ctx, "", "", nil)
	assertCode(t, apperr.Upstream("", nil), err)
}
