package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
)

type progressService struct {
	repo   repositories.Repository
	logger *slog.Logger
	ops    *ServiceLogger
}

func NewProgressService(repo repositories.Repository, logger *slog.Logger) ProgressService {
	return &progressService{
		repo:   repo,
		logger: logger,
		ops:    NewServiceLogger(logger, "progress"),
	}
}

// RecordResult folds a graded result into the user's lesson progress.
// Redelivered results for the same attempt are ignored.
func (s *progressService) RecordResult(ctx context.Context, summary models.ResultSummary) (err error) {
	start := time.Now()
	defer func() {
		s.ops.LogOperation(ctx, "record_result", summary.UserID, summary.AttemptID, "attempt", time.Since(start), err)
	}()

	if summary.AttemptID == "" || summary.UserID == "" || summary.QuizID == "" {
		return fmt.Errorf("result summary is incomplete: %w", ErrValidationFailed)
	}

	progress, applied, err := s.repo.Progress().Apply(ctx, summary)
	if err != nil {
		return fmt.Errorf("failed to apply result to progress: %w", err)
	}
	if !applied {
		s.logger.Debug("Result already counted", "attempt_id", summary.AttemptID)
		return nil
	}

	s.logger.Info("Lesson quiz progress updated",
		"user_id", progress.UserID,
		"quiz_id", progress.QuizID,
		"lesson_id", progress.LessonID,
		"attempts", progress.Attempts,
		"best_score", progress.BestScore,
		"passed", progress.Passed)
	return nil
}

func (s *progressService) GetLessonProgress(ctx context.Context, userID, lessonID string) (*LessonProgressResponse, error) {
	quizzes, err := s.repo.Progress().ListByLesson(ctx, userID, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}

	resp := &LessonProgressResponse{
		UserID:   userID,
		LessonID: lessonID,
		Quizzes:  quizzes,
		Total:    len(quizzes),
	}
	if resp.Quizzes == nil {
		resp.Quizzes = []*models.LessonQuizProgress{}
	}
	for _, p := range quizzes {
		if p.Passed {
			resp.Passed++
		}
	}
	return resp, nil
}
