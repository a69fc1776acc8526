package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/blacklist"
	"github.com/kassslll/learnhub/internal/logger"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/notify"
	"github.com/kassslll/learnhub/internal/utils"
)

const (
	otpTTL         = 10 * time.Minute
	otpMaxRequests = 3
	otpLockout     = 2 * time.Hour
)

// Handle is the contact handle an account is looked up by. Email wins when
// both are present; the other one is attached to the account.
type Handle struct {
	Email string
	Phone string
}

func (h Handle) normalize() (Handle, error) {
	h.Email = normalizeEmail(h.Email)
	h.Phone = normalizePhone(h.Phone)
	if h.Email == "" && h.Phone == "" {
		return h, apperr.Validation("Phone or email must be provided")
	}
	return h, nil
}

func (h Handle) where(db *gorm.DB) *gorm.DB {
	if h.Email != "" {
		return db.Where("email = ?", h.Email)
	}
	return db.Where("phone = ?", h.Phone)
}

type RegisterInput struct {
	Handle
	Name     string
	Password string
}

type AuthResult struct {
	Token   string          `json:"jwtToken"`
	Account *models.Account `json:"user"`
}

type AuthService interface {
	RequestChallenge(ctx context.Context, h Handle) error
	VerifyChallenge(ctx context.Context, h Handle, code string) error
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, h Handle, password string) (*AuthResult, error)
	ForgotPassword(ctx context.Context, h Handle) error
	ResetPassword(ctx context.Context, h Handle, newPassword string) error
	Logout(ctx context.Context, token string) error
	Authenticate(ctx context.Context, token string) (*models.Account, error)
}

type AuthDeps struct {
	Notifier     notify.Notifier
	Hasher       utils.PasswordHasher
	Signer       *utils.TokenSigner
	Blacklist    blacklist.Store
	BlacklistTTL time.Duration
	// Now and GenerateOTP default to time.Now and utils.GenerateOTP.
	Now         func() time.Time
	GenerateOTP func() (string, error)
}

type authService struct {
	db   *gorm.DB
	log  *logger.Logger
	deps AuthDeps
}

func NewAuthService(db *gorm.DB, baseLog *logger.Logger, deps AuthDeps) AuthService {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.GenerateOTP == nil {
		deps.GenerateOTP = utils.GenerateOTP
	}
	if deps.BlacklistTTL <= 0 {
		deps.BlacklistTTL = 24 * time.Hour
	}
	return &authService{db: db, log: baseLog.With("service", "AuthService"), deps: deps}
}

// findByHandle returns nil, nil when no live account carries the handle.
func (s *authService) findByHandle(ctx context.Context, h Handle) (*models.Account, error) {
	var acct models.Account
	err := h.where(s.db.WithContext(ctx)).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &acct, nil
}

// issuance is the counter state written alongside a new OTP.
type issuance struct {
	count           int
	restrictedUntil *time.Time
}

// nextIssuance applies the three-strikes rule. The request that brings the
// counter to the limit is still served and starts the lockout.
func nextIssuance(acct *models.Account, now time.Time) (issuance, error) {
	count := acct.OtpCount
	if acct.OtpRestrictedUntil != nil {
		if now.Before(*acct.OtpRestrictedUntil) {
			left := acct.OtpRestrictedUntil.Sub(now)
			minutes := int(math.Ceil(left.Minutes()))
			return issuance{}, apperr.ErrOTPLimit.WithMessage(fmt.Sprintf(
				"You have reached the limit of %d OTP requests. Please try again after %d minutes.", otpMaxRequests, minutes))
		}
		count = 0
	}
	next := issuance{count: count + 1}
	if next.count >= otpMaxRequests {
		until := now.Add(otpLockout)
		next.restrictedUntil = &until
	}
	return next, nil
}

func (s *authService) deliver(ctx context.Context, h Handle, code string, purpose notify.Purpose) error {
	if h.Email == "" {
		// phone delivery is not wired
		s.log.Debug("otp issued for phone handle", "phone", h.Phone)
		return nil
	}
	subject, html, err := notify.OTPEmail(code, purpose)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.deps.Notifier.SendEmail(ctx, h.Email, subject, html); err != nil {
		s.log.Error("failed to send otp email", "purpose", purpose, "error", err)
		return apperr.Upstream("Failed to send OTP email", err)
	}
	return nil
}

func (s *authService) RequestChallenge(ctx context.Context, h Handle) error {
	h, err := h.normalize()
	if err != nil {
		return err
	}
	acct, err := s.findByHandle(ctx, h)
	if err != nil {
		return err
	}

	now := s.deps.Now()
	code, err := s.deps.GenerateOTP()
	if err != nil {
		return apperr.Internal(err)
	}
	expiry := now.Add(otpTTL)

	if acct == nil {
		shell := models.Account{Otp: code, OtpExpiry: &expiry, OtpCount: 1}
		if h.Email != "" {
			shell.Email = &h.Email
		}
		if h.Phone != "" {
			shell.Phone = &h.Phone
		}
		if err := s.deliver(ctx, h, code, notify.PurposeSignup); err != nil {
			return err
		}
		if err := s.db.WithContext(ctx).Create(&shell).Error; err != nil {
			return storeErr(err, nil)
		}
		s.log.Info("created shell account", "account_id", shell.ID)
		return nil
	}

	next, err := nextIssuance(acct, now)
	if err != nil {
		return err
	}
	if err := s.deliver(ctx, h, code, notify.PurposeReturning); err != nil {
		return err
	}
	return s.saveIssuance(ctx, acct, next, map[string]interface{}{
		"otp":             code,
		"otp_expiry":      expiry,
		"is_otp_verified": false,
	})
}

// saveIssuance writes the OTP fields conditionally on the counter value that
// was read, so two concurrent requests cannot both pass the limit check.
func (s *authService) saveIssuance(ctx context.Context, acct *models.Account, next issuance, fields map[string]interface{}) error {
	fields["otp_count"] = next.count
	fields["otp_restricted_until"] = next.restrictedUntil

	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND otp_count = ?", acct.ID, acct.OtpCount).
		Updates(fields)
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.Conflict("Another OTP request is in progress, try again")
	}
	if next.restrictedUntil != nil {
		s.log.Info("otp limit reached, lockout started", "account_id", acct.ID, "until", next.restrictedUntil)
	}
	return nil
}

func (s *authService) VerifyChallenge(ctx context.Context, h Handle, code string) error {
	h, err := h.normalize()
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	acct, err := s.findByHandle(ctx, h)
	if err != nil {
		return err
	}
	if acct == nil {
		return apperr.ErrAccountNotFound
	}
	if acct.Otp == "" || acct.Otp != code || acct.OtpExpiry == nil || s.deps.Now().After(*acct.OtpExpiry) {
		return apperr.ErrInvalidOrExpired
	}

	fields := map[string]interface{}{
		"is_otp_verified": true,
		"otp":             "",
		"otp_expiry":      nil,
		"otp_count":       0,
	}
	if acct.ResetPasswordRequest {
		fields["reset_password_request"] = false
		fields["reset_password_verified"] = true
	}
	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND otp = ?", acct.ID, code).
		Updates(fields)
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrInvalidOrExpired
	}
	return nil
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	h, err := in.Handle.normalize()
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Password == "" {
		return nil, apperr.Validation("Name, password and email or phone are required")
	}

	acct, err := s.findByHandle(ctx, h)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, apperr.ErrNotVerified.WithMessage("Please verify your email or phone before registering")
	}
	if acct.IsRegistered || acct.PasswordHash != "" {
		return nil, apperr.ErrAlreadyRegistered
	}
	if !acct.IsOtpVerified {
		return nil, apperr.ErrNotVerified
	}

	hash, err := s.deps.Hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	fields := map[string]interface{}{
		"name":          name,
		"password_hash": hash,
		"is_registered": true,
	}
	if h.Email != "" && h.Phone != "" && acct.Phone == nil {
		fields["phone"] = h.Phone
	}
	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND is_registered = ?", acct.ID, false).
		Updates(fields)
	if res.Error != nil {
		return nil, storeErr(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return nil, apperr.ErrAlreadyRegistered
	}

	return s.issue(ctx, acct.ID)
}

func (s *authService) Login(ctx context.Context, h Handle, password string) (*AuthResult, error) {
	h, err := h.normalize()
	if err != nil {
		return nil, err
	}
	acct, err := s.findByHandle(ctx, h)
	if err != nil {
		return nil, err
	}
	switch {
	case acct == nil:
		return nil, apperr.ErrAccountNotFound.WithMessage("User not found. Please register first.")
	case !acct.IsRegistered:
		return nil, apperr.ErrNotRegistered
	case !acct.IsOtpVerified:
		return nil, apperr.ErrNotVerified
	case !s.deps.Hasher.Verify(password, acct.PasswordHash):
		return nil, apperr.ErrInvalidCredentials
	}
	return s.issue(ctx, acct.ID)
}

func (s *authService) issue(ctx context.Context, accountID uint) (*AuthResult, error) {
	token, err := s.deps.Signer.Sign(accountID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	var acct models.Account
	if err := s.db.WithContext(ctx).First(&acct, accountID).Error; err != nil {
		return nil, storeErr(err, apperr.ErrAccountNotFound)
	}
	return &AuthResult{Token: token, Account: &acct}, nil
}

func (s *authService) ForgotPassword(ctx context.Context, h Handle) error {
	h, err := h.normalize()
	if err != nil {
		return err
	}
	acct, err := s.findByHandle(ctx, h)
	if err != nil {
		return err
	}
	if acct == nil || !acct.IsRegistered {
		return apperr.NotFound("No registered account found with this email/phone")
	}

	now := s.deps.Now()
	next, err := nextIssuance(acct, now)
	if err != nil {
		return err
	}
	code, err := s.deps.GenerateOTP()
	if err != nil {
		return apperr.Internal(err)
	}
	if err := s.deliver(ctx, h, code, notify.PurposeResetPassword); err != nil {
		return err
	}
	return s.saveIssuance(ctx, acct, next, map[string]interface{}{
		"otp":                     code,
		"otp_expiry":              now.Add(otpTTL),
		"reset_password_request":  true,
		"reset_password_verified": false,
	})
}

// ResetPassword consumes the grant left by verifying a forgot-password OTP.
func (s *authService) ResetPassword(ctx context.Context, h Handle, newPassword string) error {
	h, err := h.normalize()
	if err != nil {
		return err
	}
	if newPassword == "" {
		return apperr.Validation("Email/phone and new password are required")
	}
	acct, err := s.findByHandle(ctx, h)
	if err != nil {
		return err
	}
	if acct == nil || (!acct.ResetPasswordRequest && !acct.ResetPasswordVerified) {
		return apperr.NotFound("No password reset request found")
	}
	if !acct.ResetPasswordVerified {
		return apperr.ErrNotVerified.WithMessage("Verify the password reset OTP first")
	}

	hash, err := s.deps.Hasher.Hash(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	res := s.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND reset_password_verified = ?", acct.ID, true).
		Updates(map[string]interface{}{
			"password_hash":           hash,
			"reset_password_request":  false,
			"reset_password_verified": false,
		})
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("No password reset request found")
	}
	s.log.Info("password reset", "account_id", acct.ID)
	return nil
}

func (s *authService) Logout(ctx context.Context, token string) error {
	return revoke(ctx, s.deps.Blacklist, s.deps.Signer, token, s.deps.BlacklistTTL)
}

func (s *authService) Authenticate(ctx context.Context, token string) (*models.Account, error) {
	claims, err := verifyToken(ctx, s.deps.Blacklist, s.deps.Signer, token)
	if err != nil {
		return nil, err
	}
	var acct models.Account
	if err := s.db.WithContext(ctx).First(&acct, claims.ID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Auth("Account not found or deleted")
		}
		return nil, apperr.Internal(err)
	}
	return &acct, nil
}

// revoke blacklists token for at least ttl and never for less than the
// token's own remaining lifetime.
func revoke(ctx context.Context, store blacklist.Store, signer *utils.TokenSigner, token string, ttl time.Duration) error {
	if strings.TrimSpace(token) == "" {
		return apperr.Auth("missing authorization token")
	}
	if claims, err := signer.Verify(token); err == nil {
		if left := signer.Remaining(claims); left > ttl {
			ttl = left
		}
	}
	if err := store.Add(ctx, token, ttl); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// verifyToken checks the blacklist before the signature: a revoked token is
// rejected even while it is still cryptographically valid.
func verifyToken(ctx context.Context, store blacklist.Store, signer *utils.TokenSigner, token string) (*utils.Claims, error) {
	revoked, err := store.Contains(ctx, token)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if revoked {
		return nil, apperr.ErrTokenRevoked
	}
	claims, err := signer.Verify(token)
	if err != nil {
		return nil, apperr.Auth("Invalid or expired token")
	}
	return claims, nil
}
