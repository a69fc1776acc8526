package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kassslll/learnhub/internal/apperr"
	"github.com/kassslll/learnhub/internal/middleware"
	"github.com/kassslll/learnhub/internal/models"
	"github.com/kassslll/learnhub/internal/services"
	"github.com/kassslll/learnhub/internal/utils"
)

type QuestionController struct {
	Questions services.QuestionService
}

func NewQuestionController(questions services.QuestionService) *QuestionController {
	return &QuestionController{Questions: questions}
}

type questionRequest struct {
	Question string `json:"question" form:"question" validate:"required,max=2000"`
}

type answerRequest struct {
	Answer string `json:"answer" form:"answer" validate:"required,max=4000"`
}

type questionEditRequest struct {
	Question *string `json:"question" form:"question" validate:"omitempty,max=2000"`
	AnswerID *uint   `json:"answerId" form:"answerId"`
	Answer   *string `json:"answer" form:"answer" validate:"omitempty,max=4000"`
}

func author(c *fiber.Ctx) (models.Author, error) {
	a, ok := middleware.Author(c)
	if !ok {
		return a, apperr.Auth("Unauthorized")
	}
	return a, nil
}

func (qc *QuestionController) Create(c *fiber.Ctx) error {
	a, err := author(c)
	if err != nil {
		return err
	}
	var req questionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	q, err := qc.Questions.Create(c.UserContext(), a, req.Question)
	if err != nil {
		return err
	}
	return utils.Created(c, "Question created successfully", q)
}

func (qc *QuestionController) Answer(c *fiber.Ctx) error {
	a, err := author(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req answerRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	q, err := qc.Questions.Answer(c.UserContext(), id, a, req.Answer)
	if err != nil {
		return err
	}
	return utils.Created(c, "Answer added successfully", q)
}

func (qc *QuestionController) GetQuestions(c *fiber.Ctx) error {
	questions, pg, err := qc.Questions.ListUserQuestions(c.UserContext(), utils.ParsePage(c))
	if err != nil {
		return err
	}
	return utils.Paginate(c, "Questions fetched successfully", questions, pg)
}

func (qc *QuestionController) GetFAQs(c *fiber.Ctx) error {
	questions, pg, err := qc.Questions.ListFAQs(c.UserContext(), utils.ParsePage(c))
	if err != nil {
		return err
	}
	return utils.Paginate(c, "FAQs fetched successfully", questions, pg)
}

func (qc *QuestionController) GetAdminQuestions(c *fiber.Ctx) error {
	admin, ok := middleware.Admin(c)
	if !ok {
		return apperr.Auth("Unauthorized")
	}
	questions, pg, err := qc.Questions.ListAdmin(c.UserContext(), admin.ID, c.Query("search"), utils.ParsePage(c))
	if err != nil {
		return err
	}
	return utils.Paginate(c, "Questions fetched successfully", questions, pg)
}

func (qc *QuestionController) Update(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req questionEditRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	q, err := qc.Questions.Update(c.UserContext(), id, services.QuestionEdit{
		Question: req.Question,
		AnswerID: req.AnswerID,
		Answer:   req.Answer,
	})
	if err != nil {
		return err
	}
	return utils.OK(c, "Question updated successfully", q)
}

func (qc *QuestionController) Delete(c *fiber.Ctx) error {
	a, err := author(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := qc.Questions.Delete(c.UserContext(), id, a); err != nil {
		return err
	}
	return utils.OK(c, "Question deleted successfully", nil)
}

func (qc *QuestionController) DeleteAnswer(c *fiber.Ctx) error {
	a, err := author(c)
	if err != nil {
		return err
	}
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	answerID, err := paramID(c, "answerId")
	if err != nil {
		return err
	}
	q, err := qc.Questions.DeleteAnswer(c.UserContext(), id, answerID, a)
	if err != nil {
		return err
	}
	return utils.OK(c, "Answer deleted successfully", q)
}
