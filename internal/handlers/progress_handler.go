package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/quiz-engine/internal/services"
	"github.com/SAP-F-2025/quiz-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

type ProgressHandler struct {
	BaseHandler
	progressService services.ProgressService
}

func NewProgressHandler(progressService services.ProgressService, logger utils.Logger) *ProgressHandler {
	return &ProgressHandler{
		BaseHandler:     NewBaseHandler(logger),
		progressService: progressService,
	}
}

// GetLessonProgress returns the caller's quiz progress in a lesson. Staff may
// pass user_id to look at another user.
// @Summary Lesson progress
// @Tags progress
// @Produce json
// @Param lesson_id path string true "Lesson ID"
// @Param user_id query string false "User ID (staff only)"
// @Success 200 {object} services.LessonProgressResponse
// @Router /progress/lessons/{lesson_id} [get]
func (h *ProgressHandler) GetLessonProgress(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	lessonID := ParseStringIDParam(c, "lesson_id")
	if lessonID == "" {
		return
	}

	userID := principal.UserID
	if requested := c.Query("user_id"); requested != "" && requested != userID {
		if !principal.CanReviewOthers() {
			h.handleServiceError(c, services.NewPermissionError(principal.UserID, lessonID, "progress", "read", "students only see their own progress"))
			return
		}
		userID = requested
	}

	progress, err := h.progressService.GetLessonProgress(c.Request.Context(), userID, lessonID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, progress)
}
