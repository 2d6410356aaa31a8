package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/quiz-engine/internal/metrics"
	"github.com/SAP-F-2025/quiz-engine/internal/services"
	"github.com/SAP-F-2025/quiz-engine/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	quizHandler     *QuizHandler
	attemptHandler  *AttemptHandler
	progressHandler *ProgressHandler
	logger          utils.Logger
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		quizHandler:     NewQuizHandler(serviceManager.Quiz(), serviceManager.Export(), logger),
		attemptHandler:  NewAttemptHandler(serviceManager.Attempt(), logger),
		progressHandler: NewProgressHandler(serviceManager.Progress(), logger),
		logger:          logger,
	}
}

// SetupRoutes registers every route. auth resolves the caller for /api/v1;
// m may be nil, in which case /metrics is not served.
func (hm *HandlerManager) SetupRoutes(router *gin.Engine, auth gin.HandlerFunc, m *metrics.Metrics) {
	router.Use(utils.RequestContext(hm.logger), utils.LoggerMiddleware(hm.logger))
	if m != nil {
		router.Use(m.Middleware())
		router.GET("/metrics", m.Handler())
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "quiz-engine",
		})
	})

	v1 := router.Group("/api/v1", auth)
	{
		quizzes := v1.Group("/quizzes")
		{
			quizzes.POST("", hm.quizHandler.CreateQuiz)
			quizzes.POST("/validate", hm.quizHandler.ValidateQuiz)
			quizzes.GET("/:id", hm.quizHandler.GetQuiz)
			quizzes.PUT("/:id", hm.quizHandler.UpdateQuiz)
			quizzes.DELETE("/:id", hm.quizHandler.DeleteQuiz)
			quizzes.GET("/:id/results/export", hm.quizHandler.ExportResults)

			quizzes.POST("/:id/attempts", hm.attemptHandler.StartAttempt)
			quizzes.GET("/:id/attempts", hm.attemptHandler.ListAttempts)
		}

		v1.GET("/lessons/:lesson_id/quizzes", hm.quizHandler.ListLessonQuizzes)

		attempts := v1.Group("/attempts")
		{
			attempts.GET("/:id", hm.attemptHandler.GetAttempt)
			attempts.PUT("/:id/answers/:question_id", hm.attemptHandler.RecordAnswer)
			attempts.POST("/:id/submit", hm.attemptHandler.SubmitAttempt)
			attempts.GET("/:id/result", hm.attemptHandler.GetResult)
			attempts.GET("/:id/review", hm.attemptHandler.GetReview)
			attempts.GET("/:id/time-remaining", hm.attemptHandler.GetTimeRemaining)
		}

		v1.GET("/progress/lessons/:lesson_id", hm.progressHandler.GetLessonProgress)
	}
}
