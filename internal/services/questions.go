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

// QuestionEdit is an admin edit of a question and optionally one answer.
type QuestionEdit struct {
	Question *string
	AnswerID *uint
	Answer   *string
}

type QuestionService interface {
	Create(ctx context.Context, author models.Author, text string) (*models.Question, error)
	Answer(ctx context.Context, questionID uint, author models.Author, text string) (*models.Question, error)
	ListUserQuestions(ctx context.Context, page utils.Page) ([]models.Question, utils.Pagination, error)
	ListFAQs(ctx context.Context, page utils.Page) ([]models.Question, utils.Pagination, error)
	ListAdmin(ctx context.Context, adminID uint, search string, page utils.Page) ([]models.Question, utils.Pagination, error)
	Update(ctx context.Context, questionID uint, edit QuestionEdit) (*models.Question, error)
	Delete(ctx context.Context, questionID uint, author models.Author) error
	DeleteAnswer(ctx context.Context, questionID, answerID uint, author models.Author) (*models.Question, error)
}

type questionService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewQuestionService(db *gorm.DB, baseLog *logger.Logger) QuestionService {
	return &questionService{db: db, log: baseLog.With("service", "QuestionService")}
}

func withAnswers(db *gorm.DB) *gorm.DB {
	return db.Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") })
}

func (s *questionService) get(ctx context.Context, id uint) (*models.Question, error) {
	var q models.Question
	if err := withAnswers(s.db.WithContext(ctx)).First(&q, id).Error; err != nil {
		return nil, storeErr(err, apperr.NotFound("Question not found"))
	}
	return &q, nil
}

func (s *questionService) Create(ctx context.Context, author models.Author, text string) (*models.Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("Question is required")
	}
	if err := author.Validate(); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	q := models.Question{Question: text, Author: author}
	if err := s.db.WithContext(ctx).Create(&q).Error; err != nil {
		return nil, storeErr(err, nil)
	}
	return s.get(ctx, q.ID)
}

func (s *questionService) Answer(ctx context.Context, questionID uint, author models.Author, text string) (*models.Question, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation("Answer is required")
	}
	if err := author.Validate(); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	if _, err := s.get(ctx, questionID); err != nil {
		return nil, err
	}
	a := models.Answer{QuestionID: questionID, Content: text, Author: author}
	if err := s.db.WithContext(ctx).Create(&a).Error; err != nil {
		return nil, storeErr(err, nil)
	}
	return s.get(ctx, questionID)
}

func (s *questionService) list(query *gorm.DB, page utils.Page) ([]models.Question, utils.Pagination, error) {
	var out []models.Question
	pg, err := paged(query, page, "created_at DESC, id DESC", &out, withAnswers)
	if err != nil {
		return nil, utils.Pagination{}, err
	}
	return out, pg, nil
}

// ListUserQuestions lists community questions, newest first.
func (s *questionService) ListUserQuestions(ctx context.Context, page utils.Page) ([]models.Question, utils.Pagination, error) {
	return s.list(s.db.WithContext(ctx).Model(&models.Question{}).Where("user_id IS NOT NULL"), page)
}

// ListFAQs lists admin-authored questions.
func (s *questionService) ListFAQs(ctx context.Context, page utils.Page) ([]models.Question, utils.Pagination, error) {
	return s.list(s.db.WithContext(ctx).Model(&models.Question{}).Where("admin_id IS NOT NULL"), page)
}

func (s *questionService) ListAdmin(ctx context.Context, adminID uint, search string, page utils.Page) ([]models.Question, utils.Pagination, error) {
	query := s.db.WithContext(ctx).Model(&models.Question{}).Where("admin_id = ?", adminID)
	if strings.TrimSpace(search) != "" {
		query = query.Where(`LOWER(question) LIKE ? ESCAPE '\'`, likePattern(search))
	}
	return s.list(query, page)
}

func (s *questionService) Update(ctx context.Context, questionID uint, edit QuestionEdit) (*models.Question, error) {
	if _, err := s.get(ctx, questionID); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if edit.Question != nil && strings.TrimSpace(*edit.Question) != "" {
			err := tx.Model(&models.Question{}).Where("id = ?", questionID).
				Update("question", strings.TrimSpace(*edit.Question)).Error
			if err != nil {
				return err
			}
		}
		if edit.AnswerID == nil || edit.Answer == nil || strings.TrimSpace(*edit.Answer) == "" {
			return nil
		}
		res := tx.Model(&models.Answer{}).
			Where("id = ? AND question_id = ?", *edit.AnswerID, questionID).
			Update("content", strings.TrimSpace(*edit.Answer))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NotFound("Answer not found")
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, nil)
	}
	return s.get(ctx, questionID)
}

func (s *questionService) Delete(ctx context.Context, questionID uint, author models.Author) error {
	q, err := s.get(ctx, questionID)
	if err != nil {
		return err
	}
	if !author.Owns(q.Author) {
		return apperr.Forbidden("You are not allowed to delete this question")
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("question_id = ?", questionID).Delete(&models.Answer{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Question{}, questionID).Error
	})
	if err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *questionService) DeleteAnswer(ctx context.Context, questionID, answerID uint, author models.Author) (*models.Question, error) {
	var a models.Answer
	err := s.db.WithContext(ctx).Where("id = ? AND question_id = ?", answerID, questionID).First(&a).Error
	if err != nil {
		return nil, storeErr(err, apperr.NotFound("Answer not found"))
	}
	if !author.Owns(a.Author) {
		return nil, apperr.Forbidden("You are not allowed to delete this answer")
	}
	if err := s.db.WithContext(ctx).Delete(&models.Answer{}, a.ID).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return s.get(ctx, questionID)
}
