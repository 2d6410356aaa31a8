package handlers

import (
	"fmt"
	"net/http"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/services"
	"github.com/SAP-F-2025/quiz-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

type QuizHandler struct {
	BaseHandler
	quizService   services.QuizService
	exportService services.ExportService
}

func NewQuizHandler(
	quizService services.QuizService,
	exportService services.ExportService,
	logger utils.Logger,
) *QuizHandler {
	return &QuizHandler{
		BaseHandler:   NewBaseHandler(logger),
		quizService:   quizService,
		exportService: exportService,
	}
}

// CreateQuiz creates a new quiz
// @Summary Create quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Success 201 {object} models.Quiz
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /quizzes [post]
func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}

	var quiz models.Quiz
	if err := c.ShouldBindJSON(&quiz); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "invalid_payload", "Invalid request payload", err.Error())
		return
	}

	created, err := h.quizService.Create(c.Request.Context(), &quiz, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Quiz created", "quiz_id", created.ID, "lesson_id", created.LessonID)
	c.JSON(http.StatusCreated, created)
}

// GetQuiz returns the full definition to staff and the redacted view to students
// @Summary Get quiz
// @Tags quizzes
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} services.QuizView
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id} [get]
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	if principal.CanManageQuizzes() {
		quiz, err := h.quizService.Get(c.Request.Context(), id)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		c.JSON(http.StatusOK, quiz)
		return
	}

	view, err := h.quizService.GetForStudent(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateQuiz replaces a quiz definition
// @Summary Update quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} models.Quiz
// @Router /quizzes/{id} [put]
func (h *QuizHandler) UpdateQuiz(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	var quiz models.Quiz
	if err := c.ShouldBindJSON(&quiz); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "invalid_payload", "Invalid request payload", err.Error())
		return
	}

	updated, err := h.quizService.Update(c.Request.Context(), id, &quiz, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Quiz updated", "quiz_id", id)
	c.JSON(http.StatusOK, updated)
}

// DeleteQuiz removes a quiz with no attempt left to grade
// @Summary Delete quiz
// @Tags quizzes
// @Param id path string true "Quiz ID"
// @Success 204
// @Failure 409 {object} ErrorResponse
// @Router /quizzes/{id} [delete]
func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	if err := h.quizService.Delete(c.Request.Context(), id, principal); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Quiz deleted", "quiz_id", id)
	c.Status(http.StatusNoContent)
}

// ValidateQuiz checks a quiz definition without storing it
// @Summary Validate quiz
// @Tags quizzes
// @Accept json
// @Produce json
// @Success 200 {object} map[string]bool
// @Failure 422 {object} ErrorResponse
// @Router /quizzes/validate [post]
func (h *QuizHandler) ValidateQuiz(c *gin.Context) {
	var quiz models.Quiz
	if err := c.ShouldBindJSON(&quiz); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "invalid_payload", "Invalid request payload", err.Error())
		return
	}

	if err := h.quizService.Validate(c.Request.Context(), &quiz); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// ListLessonQuizzes lists the quizzes of a lesson
// @Summary List lesson quizzes
// @Tags quizzes
// @Produce json
// @Param lesson_id path string true "Lesson ID"
// @Router /lessons/{lesson_id}/quizzes [get]
func (h *QuizHandler) ListLessonQuizzes(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	lessonID := ParseStringIDParam(c, "lesson_id")
	if lessonID == "" {
		return
	}

	quizzes, err := h.quizService.ListByLesson(c.Request.Context(), lessonID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if principal.CanManageQuizzes() {
		c.JSON(http.StatusOK, gin.H{"quizzes": quizzes, "total": len(quizzes)})
		return
	}

	views := make([]*services.QuizView, 0, len(quizzes))
	for _, quiz := range quizzes {
		view, err := h.quizService.GetForStudent(c.Request.Context(), quiz.ID)
		if err != nil {
			h.handleServiceError(c, err)
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, gin.H{"quizzes": views, "total": len(views)})
}

// ExportResults downloads the graded results of a quiz
// @Summary Export quiz results
// @Tags quizzes
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Quiz ID"
// @Param format query string false "xlsx or csv"
// @Router /quizzes/{id}/results/export [get]
func (h *QuizHandler) ExportResults(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	format := services.ExportFormat(c.DefaultQuery("format", string(services.ExportFormatXLSX)))
	file, err := h.exportService.ExportQuizResults(c.Request.Context(), id, format, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
