package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/blacklist"
	"github.com/kassslll/learnhub/internal/logger"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/utils"
)

type AdminAuthResult struct {
	Token string        `json:"jwtToken"`
	Admin *models.Admin `json:"admin"`
}

type AdminService interface {
	Register(ctx context.Context, name, email, password string) (*AdminAuthResult, error)
	Login(ctx context.Context, email, password string) (*AdminAuthResult, error)
	Authenticate(ctx context.Context, token string) (*models.Admin, error)
	Get(ctx context.Context, id uint) (*models.Admin, error)
	Logout(ctx context.Context, token string) error
}

type adminService struct {
	db           *gorm.DB
	log          *logger.Logger
	hasher       utils.PasswordHasher
	signer       *utils.TokenSigner
	blacklist    blacklist.Store
	blacklistTTL time.Duration
}

func NewAdminService(db *gorm.DB, baseLog *logger.Logger, hasher utils.PasswordHasher, signer *utils.TokenSigner, bl blacklist.Store, blacklistTTL time.Duration) AdminService {
	return &adminService{
		db:           db,
		log:          baseLog.With("service", "AdminService"),
		hasher:       hasher,
		signer:       signer,
		blacklist:    bl,
		blacklistTTL: blacklistTTL,
	}
}

func (s *adminService) Register(ctx context.Context, name, email, password string) (*AdminAuthResult, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, apperr.Validation("Name, email and password are required")
	}

	var existing int64
	if err := s.db.WithContext(ctx).Model(&models.Admin{}).Where("email = ?", email).Count(&existing).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if existing > 0 {
		return nil, apperr.Conflict("Admin with this email already exists")
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	admin := models.Admin{Name: name, Email: email, PasswordHash: hash}
	if err := s.db.WithContext(ctx).Create(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("Admin with this email already exists")
		}
		return nil, apperr.Internal(err)
	}
	s.log.Info("admin registered", "admin_id", admin.ID)
	return s.issue(&admin)
}

func (s *adminService) Login(ctx context.Context, email, password string) (*AdminAuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperr.Validation("Email and password are required")
	}
	var admin models.Admin
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, apperr.Internal(err)
	}
	if !s.hasher.Verify(password, admin.PasswordHash) {
		return nil, apperr.ErrInvalidCredentials
	}
	return s.issue(&admin)
}

func (s *adminService) issue(admin *models.Admin) (*AdminAuthResult, error) {
	token, err := s.signer.Sign(admin.ID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &AdminAuthResult{Token: token, Admin: admin}, nil
}

func (s *adminService) Authenticate(ctx context.Context, token string) (*models.Admin, error) {
	claims, err := verifyToken(ctx, s.blacklist, s.signer, token)
	if err != nil {
		return nil, err
	}
	admin, err := s.Get(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, apperr.NotFound("")) {
			return nil, apperr.Auth("Admin not found")
		}
		return nil, err
	}
	return admin, nil
}

func (s *adminService) Get(ctx context.Context, id uint) (*models.Admin, error) {
	var admin models.Admin
	if err := s.db.WithContext(ctx).First(&admin, id).Error; err != nil {
		return nil, storeErr(err, apperr.NotFound("Admin not found"))
	}
	return &admin, nil
}

func (s *adminService) Logout(ctx context.Context, token string) error {
	return revoke(ctx, s.blacklist, s.signer, token, s.blacklistTTL)
}
