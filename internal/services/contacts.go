package services

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/logger"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/utils"
)

type ContactService interface {
	Create(ctx context.Context, name, email, message string) (*models.Contact, error)
	List(ctx context.Context, search string, page utils.Page) ([]models.Contact, utils.Pagination, error)
	Delete(ctx context.Context, id uint) error
}

type contactService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContactService(db *gorm.DB, baseLog *logger.Logger) ContactService {
	return &contactService{db: db, log: baseLog.With("service", "ContactService")}
}

func (s *contactService) Create(ctx context.Context, name, email, message string) (*models.Contact, error) {
	c := models.Contact{
		Name:    strings.TrimSpace(name),
		Email:   normalizeEmail(email),
		Message: strings.TrimSpace(message),
	}
	if c.Name == "" || c.Email == "" || c.Message == "" {
		return nil, apperr.Validation("Name, email and message are required")
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	s.log.Info("contact submitted", "contact_id", c.ID)
	return &c, nil
}

func (s *contactService) List(ctx context.Context, search string, page utils.Page) ([]models.Contact, utils.Pagination, error) {
	query := s.db.WithContext(ctx).Model(&models.Contact{})
	if strings.TrimSpace(search) != "" {
		p := likePattern(search)
		query = query.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'`, p, p)
	}
	var out []models.Contact
	pg, err := paged(query, page, "created_at DESC, id DESC", &out)
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	return out, pg, nil
}

func (s *contactService) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Contact{}, id)
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Contact not found")
	}
	return nil
}
