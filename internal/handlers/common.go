package handlers

import (
	"errors"
	"net/http"

	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/services"
	"github.com/SAP-F-2025/quiz-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Code    string      `json:"code,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides logging and error mapping shared by all handlers
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) log(c *gin.Context) utils.Logger {
	return utils.GetLoggerFromContext(c, h.logger)
}

// LogRequest logs an incoming request with the caller attached
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := append([]interface{}{"user_id", c.GetString(userIDKey)}, additionalFields...)
	h.log(c).Info(message, fields...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, message string, additionalFields ...interface{}) {
	fields := append([]interface{}{"user_id", c.GetString(userIDKey)}, additionalFields...)
	h.log(c).LogError(err, message, fields...)
}

// RespondWithError sends a consistent error response
func (h *BaseHandler) RespondWithError(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Message: message,
		Code:    code,
		Details: details,
	})
}

// principal returns the authenticated caller, or answers 401 and reports false.
func (h *BaseHandler) principal(c *gin.Context) (models.Principal, bool) {
	p, ok := PrincipalFromContext(c)
	if !ok {
		h.RespondWithError(c, http.StatusUnauthorized, "unauthenticated", "User not authenticated", nil)
	}
	return p, ok
}

// handleServiceError maps service and engine errors to HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var invalidQuiz *apperrors.InvalidQuizError
	if errors.As(err, &invalidQuiz) {
		h.RespondWithError(c, http.StatusUnprocessableEntity, "invalid_quiz", "Quiz is invalid", invalidQuiz.Problems)
		return
	}

	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusUnprocessableEntity, "validation_failed", "Validation failed", validationErrors)
		return
	}

	var retake *apperrors.RetakeLimitError
	if errors.As(err, &retake) {
		h.RespondWithError(c, http.StatusConflict, "retake_limit", "Retake limit reached", map[string]interface{}{
			"attempts": retake.Attempts,
			"limit":    retake.Limit,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		h.RespondWithError(c, http.StatusForbidden, "forbidden", "Access denied", map[string]interface{}{
			"resource": permissionError.Resource,
			"action":   permissionError.Action,
			"reason":   permissionError.Reason,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrQuizNotFound):
		h.RespondWithError(c, http.StatusNotFound, "quiz_not_found", "Quiz not found", nil)
	case errors.Is(err, services.ErrAttemptNotFound):
		h.RespondWithError(c, http.StatusNotFound, "attempt_not_found", "Attempt not found", nil)
	case services.IsNotFound(err):
		h.RespondWithError(c, http.StatusNotFound, "not_found", "Resource not found", nil)
	case services.IsUnauthorized(err):
		h.RespondWithError(c, http.StatusForbidden, "forbidden", "Access denied", nil)
	case errors.Is(err, apperrors.ErrActiveAttemptExists):
		h.RespondWithError(c, http.StatusConflict, "active_attempt", "An attempt for this quiz is already in progress", nil)
	case errors.Is(err, services.ErrAttemptAlreadySubmitted):
		h.RespondWithError(c, http.StatusConflict, "already_submitted", "Attempt already submitted", nil)
	case errors.Is(err, services.ErrAttemptNotGraded):
		h.RespondWithError(c, http.StatusConflict, "not_graded", "Attempt has not been graded yet", nil)
	case apperrors.IsInvalidStateTransition(err):
		h.LogError(c, err, "Attempt lifecycle violated")
		h.RespondWithError(c, http.StatusConflict, "invalid_transition", "Attempt is not in a state that allows this action", nil)
	case errors.Is(err, services.ErrAttemptTimeExpired):
		h.RespondWithError(c, http.StatusUnprocessableEntity, "time_expired", "Attempt time has expired", nil)
	case errors.Is(err, apperrors.ErrUnknownQuestion):
		h.RespondWithError(c, http.StatusUnprocessableEntity, "unknown_question", "Question is not part of this attempt", nil)
	case services.IsValidation(err):
		h.RespondWithError(c, http.StatusUnprocessableEntity, "validation_failed", err.Error(), nil)
	case services.IsConflict(err):
		h.RespondWithError(c, http.StatusConflict, "conflict", err.Error(), nil)
	default:
		h.LogError(c, err, "Unhandled service error")
		h.RespondWithError(c, http.StatusInternalServerError, "internal_error", "Internal server error", nil)
	}
}
