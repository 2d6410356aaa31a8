package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/quiz-engine/internal/services"
	"github.com/SAP-F-2025/quiz-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

// RecordAnswerRequest carries one answer in the shape of its question type
type RecordAnswerRequest struct {
	Answer interface{} `json:"answer" binding:"required"`
}

type AttemptHandler struct {
	BaseHandler
	attemptService services.AttemptService
}

func NewAttemptHandler(attemptService services.AttemptService, logger utils.Logger) *AttemptHandler {
	return &AttemptHandler{
		BaseHandler:    NewBaseHandler(logger),
		attemptService: attemptService,
	}
}

// StartAttempt starts a new attempt for the caller
// @Summary Start attempt
// @Tags attempts
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 201 {object} services.AttemptView
// @Failure 409 {object} ErrorResponse
// @Router /quizzes/{id}/attempts [post]
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	quizID := ParseStringIDParam(c, "id")
	if quizID == "" {
		return
	}

	attempt, err := h.attemptService.Start(c.Request.Context(), quizID, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Attempt started", "attempt_id", attempt.ID, "quiz_id", quizID)
	c.JSON(http.StatusCreated, attempt)
}

// ListAttempts lists attempts of a quiz. Students only see their own.
// @Summary List attempts
// @Tags attempts
// @Produce json
// @Param id path string true "Quiz ID"
// @Success 200 {object} services.AttemptListResponse
// @Router /quizzes/{id}/attempts [get]
func (h *AttemptHandler) ListAttempts(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	quizID := ParseStringIDParam(c, "id")
	if quizID == "" {
		return
	}

	resp, err := h.attemptService.ListAttempts(c.Request.Context(), quizID, parseAttemptFilters(c), principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetAttempt returns the attempt in the order it was presented
// @Summary Get attempt
// @Tags attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} services.AttemptView
// @Router /attempts/{id} [get]
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	attempt, err := h.attemptService.GetAttempt(c.Request.Context(), id, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, attempt)
}

// RecordAnswer saves the answer to one question; the last write wins
// @Summary Record answer
// @Tags attempts
// @Accept json
// @Produce json
// @Param id path string true "Attempt ID"
// @Param question_id path string true "Question ID"
// @Success 200 {object} models.QuizAnswer
// @Failure 409 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /attempts/{id}/answers/{question_id} [put]
func (h *AttemptHandler) RecordAnswer(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}
	questionID := ParseStringIDParam(c, "question_id")
	if questionID == "" {
		return
	}

	var req RecordAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "invalid_payload", "Invalid request payload", err.Error())
		return
	}

	answer, err := h.attemptService.RecordAnswer(c.Request.Context(), id, questionID, req.Answer, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, answer)
}

// SubmitAttempt closes the attempt and returns its graded result
// @Summary Submit attempt
// @Tags attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} services.ResultView
// @Failure 409 {object} ErrorResponse
// @Router /attempts/{id}/submit [post]
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	result, err := h.attemptService.Submit(c.Request.Context(), id, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "Attempt submitted", "attempt_id", id, "percentage", result.Percentage, "passed", result.Passed)
	c.JSON(http.StatusOK, result)
}

// GetResult returns the result of a graded attempt
// @Summary Get result
// @Tags attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} services.ResultView
// @Router /attempts/{id}/result [get]
func (h *AttemptHandler) GetResult(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	result, err := h.attemptService.GetResult(c.Request.Context(), id, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetReview returns the attempt together with its result once graded
// @Summary Review attempt
// @Tags attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} services.ReviewView
// @Router /attempts/{id}/review [get]
func (h *AttemptHandler) GetReview(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	review, err := h.attemptService.GetReview(c.Request.Context(), id, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, review)
}

// GetTimeRemaining reports the server side countdown
// @Summary Time remaining
// @Tags attempts
// @Produce json
// @Param id path string true "Attempt ID"
// @Success 200 {object} services.TimeRemainingResponse
// @Router /attempts/{id}/time-remaining [get]
func (h *AttemptHandler) GetTimeRemaining(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	id := ParseStringIDParam(c, "id")
	if id == "" {
		return
	}

	remaining, err := h.attemptService.GetTimeRemaining(c.Request.Context(), id, principal)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, remaining)
}
