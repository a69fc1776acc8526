package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/testutil"
	"github.com/kassslll/learnhub/internal/utils"
)

func TestRequestChallengeLockout(t *testing.T) {
	e := newEnv(t)
	h := Handle{Email: "Lock@Example.com "}

	for i := 0; i < 3; i++ {
		require.NoError(t, e.auth.RequestChallenge(e.ctx, h), "request %d", i+1)
	}
	assert.Len(t, e.mailer.Sent, 3)
	assert.Equal(t, "lock@example.com", e.mailer.Sent[0].To)

	err := e.auth.RequestChallenge(e.ctx, h)
	assertCode(t, apperr.ErrOTPLimit, err)
	assert.Contains(t, err.Error(), "after 120 minutes")
	assert.Len(t, e.mailer.Sent, 3)

	e.clock.Advance(90 * time.Minute)
	err = e.auth.RequestChallenge(e.ctx, h)
	assertCode(t, apperr.ErrOTPLimit, err)
	assert.Contains(t, err.Error(), "after 30 minutes")

	e.clock.Advance(31 * time.Minute)
	require.NoError(t, e.auth.RequestChallenge(e.ctx, h))

	var acct models.Account
	require.NoError(t, e.db.Where("email = ?", "lock@example.com").First(&acct).Error)
	assert.Equal(t, 1, acct.OtpCount)
	assert.Nil(t, acct.OtpRestrictedUntil)
	assert.Equal(t, models.StateOTPPending, acct.State())
}

func TestRequestChallengeSendFailurePersistsNothing(t *testing.T) {
	e := newEnv(t)
	e.mailer.Err = errors.New("smtp down")

	err := e.auth.RequestChallenge(e.ctx, Handle{Email: "nobody@example.com"})
	assertCode(t, apperr.Upstream("", nil), err)

	var n int64
	require.NoError(t, e.db.Model(&models.Account{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestRequestChallengePhoneHandle(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, e.auth.RequestChallenge(e.ctx, Handle{Phone: " +15550100 "}))
	assert.Empty(t, e.mailer.Sent)

	var acct models.Account
	require.NoError(t, e.db.Where("phone = ?", "+15550100").First(&acct).Error)
	assert.Nil(t, acct.Email)

	assertCode(t, apperr.Validation(""), e.auth.RequestChallenge(e.ctx, Handle{}))
}

func TestVerifyChallenge(t *testing.T) {
	e := newEnv(t)
	h := Handle{Email: "verify@example.com"}

	assertCode(t, apperr.ErrAccountNotFound, e.auth.VerifyChallenge(e.ctx, h, testOTP))

	require.NoError(t, e.auth.RequestChallenge(e.ctx, h))
	assertCode(t, apperr.ErrInvalidOrExpired, e.auth.VerifyChallenge(e.ctx, h, "000000"))

	e.clock.Advance(11 * time.Minute)
	assertCode(t, apperr.ErrInvalidOrExpired, e.auth.VerifyChallenge(e.ctx, h, testOTP))

	require.NoError(t, e.auth.RequestChallenge(e.ctx, h))
	require.NoError(t, e.auth.VerifyChallenge(e.ctx, h, testOTP))

	var acct models.Account
	require.NoError(t, e.db.Where("email = ?", h.Email).First(&acct).Error)
	assert.Equal(t, models.StateVerifiedUnregistered, acct.State())
	assert.Zero(t, acct.OtpCount)
	assert.Empty(t, acct.Otp)

	// the code is single use
	assertCode(t, apperr.ErrInvalidOrExpired, e.auth.VerifyChallenge(e.ctx, h, testOTP))
}

func TestRegisterAndLogin(t *testing.T) {
	e := newEnv(t)
	h := Handle{Email: "reg@example.com", Phone: "+15550101"}
	in := RegisterInput{Handle: h, Name: "Ada", Password: "pa55word"}

	_, err := e.auth.Register(e.ctx, in)
	assertCode(t, apperr.ErrNotVerified, err)

	require.NoError(t, e.auth.RequestChallenge(e.ctx, h))
	_, err = e.auth.Register(e.ctx, in)
	assertCode(t, apperr.ErrNotVerified, err)

	_, err = e.auth.Login(e.ctx, h, "pa55word")
	assertCode(t, apperr.ErrNotRegistered, err)

	require.NoError(t, e.auth.VerifyChallenge(e.ctx, h, testOTP))
	res, err := e.auth.Register(e.ctx, in)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "Ada", res.Account.Name)
	require.NotNil(t, res.Account.Phone)
	assert.Equal(t, "+15550101", *res.Account.Phone)
	assert.Equal(t, models.StateRegistered, res.Account.State())

	_, err = e.auth.Register(e.ctx, in)
	assertCode(t, apperr.ErrAlreadyRegistered, err)

	_, err = e.auth.Login(e.ctx, Handle{Email: "missing@example.com"}, "x")
	assertCode(t, apperr.ErrAccountNotFound, err)
	_, err = e.auth.Login(e.ctx, h, "wrong")
	assertCode(t, apperr.ErrInvalidCredentials, err)

	login, err := e.auth.Login(e.ctx, Handle{Phone: "+15550101"}, "pa55word")
	require.NoError(t, err)

	acct, err := e.auth.Authenticate(e.ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Account.ID, acct.ID)
}

func TestLogoutRevokesToken(t *testing.T) {
	e := newEnv(t)
	_, token := e.registeredUser(t, "logout@example.com")

	_, err := e.auth.Authenticate(e.ctx, token)
	require.NoError(t, err)

	require.NoError(t, e.auth.Logout(e.ctx, token))
	_, err = e.auth.Authenticate(e.ctx, token)
	assertCode(t, apperr.ErrTokenRevoked, err)

	assertCode(t, apperr.Auth(""), e.auth.Logout(e.ctx, " "))
}

func TestAuthenticateRejectsForeignAndDeleted(t *testing.T) {
	e := newEnv(t)
	acct, token := e.registeredUser(t, "gone@example.com")

	adminToken, err := e.admins.Sign(acct.ID)
	require.NoError(t, err)
	_, err = e.auth.Authenticate(e.ctx, adminToken)
	assertCode(t, apperr.Auth(""), err)

	_, err = e.auth.Authenticate(e.ctx, "not-a-token")
	assertCode(t, apperr.Auth(""), err)

	require.NoError(t, e.accounts.SoftDelete(e.ctx, acct.ID))
	_, err = e.auth.Authenticate(e.ctx, token)
	assertCode(t, apperr.Auth(""), err)

	// the handle is free again once the account is soft deleted
	require.NoError(t, e.auth.RequestChallenge(e.ctx, Handle{Email: "gone@example.com"}))
	var live int64
	require.NoError(t, e.db.Model(&models.Account{}).Where("email = ?", "gone@example.com").Count(&live).Error)
	assert.Equal(t, int64(1), live)
}

func TestForgotAndResetPassword(t *testing.T) {
	e := newEnv(t)
	h := Handle{Email: "reset@example.com"}

	assertCode(t, apperr.NotFound(""), e.auth.ForgotPassword(e.ctx, h))
	e.registeredUser(t, h.Email)

	assertCode(t, apperr.NotFound(""), e.auth.ResetPassword(e.ctx, h, "newpass1"))

	require.NoError(t, e.auth.ForgotPassword(e.ctx, h))
	last := e.mailer.Sent[len(e.mailer.Sent)-1]
	assert.Contains(t, last.HTML, testOTP)

	assertCode(t, apperr.ErrNotVerified, e.auth.ResetPassword(e.ctx, h, "newpass1"))

	require.NoError(t, e.auth.VerifyChallenge(e.ctx, h, testOTP))
	require.NoError(t, e.auth.ResetPassword(e.ctx, h, "newpass1"))

	_, err := e.auth.Login(e.ctx, h, "pa55word")
	assertCode(t, apperr.ErrInvalidCredentials, err)
	_, err = e.auth.Login(e.ctx, h, "newpass1")
	require.NoError(t, err)

	// the grant is consumed
	assertCode(t, apperr.NotFound(""), e.auth.ResetPassword(e.ctx, h, "again123"))
}

func TestAdminAccounts(t *testing.T) {
	e := newEnv(t)

	res, err := e.admin.Register(e.ctx, "Root", "Root@Example.com", "adminpass")
	require.NoError(t, err)
	assert.Equal(t, "root@example.com", res.Admin.Email)

	_, err = e.admin.Register(e.ctx, "Other", "root@example.com", "x")
	assertCode(t, apperr.Conflict(""), err)

	_, err = e.admin.Login(e.ctx, "root@example.com", "nope")
	assertCode(t, apperr.ErrInvalidCredentials, err)

	login, err := e.admin.Login(e.ctx, "root@example.com", "adminpass")
	require.NoError(t, err)

	admin, err := e.admin.Authenticate(e.ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Admin.ID, admin.ID)

	// user tokens never pass as admin tokens
	userToken, err := e.users.Sign(admin.ID)
	require.NoError(t, err)
	_, err = e.admin.Authenticate(e.ctx, userToken)
	assertCode(t, apperr.Auth(""), err)

	require.NoError(t, e.admin.Logout(e.ctx, login.Token))
	_, err = e.admin.Authenticate(e.ctx, login.Token)
	assertCode(t, apperr.ErrTokenRevoked, err)
}

// expiringStore is a blacklist with its own clock.
type expiringStore struct {
	mu      sync.Mutex
	clock   *clock
	expires map[string]time.Time
}

func (s *expiringStore) Add(_ context.Context, token string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expires[token] = s.clock.Now().Add(ttl)
	return nil
}

func (s *expiringStore) Contains(_ context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.expires[token]
	return ok && s.clock.Now().Before(exp), nil
}

func TestLogoutOutlivesBlacklistTTL(t *testing.T) {
	e := newEnv(t)
	log := testutil.Logger(t)
	store := &expiringStore{clock: &clock{t: time.Now()}, expires: map[string]time.Time{}}
	tokenTTL := 5 * 24 * time.Hour

	users := NewAuthService(e.db, log, AuthDeps{
		Notifier:     e.mailer,
		Hasher:       e.hasher,
		Signer:       utils.NewTokenSigner(utils.RoleUser, "user-secret", tokenTTL),
		Blacklist:    store,
		BlacklistTTL: 24 * time.Hour,
	})
	e.registeredUser(t, "long@example.com")
	login, err := users.Login(e.ctx, Handle{Email: "long@example.com"}, "pa55word")
	require.NoError(t, err)

	admins := NewAdminService(e.db, log, e.hasher,
		utils.NewTokenSigner(utils.RoleAdmin, "admin-secret", tokenTTL), store, 24*time.Hour)
	admin, err := admins.Register(e.ctx, "Root", "root@example.com", "adminpass")
	require.NoError(t, err)

	require.NoError(t, users.Logout(e.ctx, login.Token))
	require.NoError(t, admins.Logout(e.ctx, admin.Token))

	store.clock.Advance(25 * time.Hour)
	_, err = users.Authenticate(e.ctx, login.Token)
	assertCode(t, apperr.ErrTokenRevoked, err)
	_, err = admins.Authenticate(e.ctx, admin.Token)
	assertCode(t, apperr.ErrTokenRevoked, err)
}
