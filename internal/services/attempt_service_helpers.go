package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/cache"
	"github.com/SAP-F-2025/quiz-engine/internal/engine"
	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ===== LIFECYCLE HELPERS =====

// create runs the retake guard against the stored history and inserts the
// attempt in one repository call.
func (s *attemptService) create(ctx context.Context, quiz *models.Quiz, userID string, now time.Time) (*models.QuizAttempt, error) {
	attempt, err := s.repo.Attempt().CreateWithHistory(ctx, userID, quiz.ID, func(history []*models.QuizAttempt) (*models.QuizAttempt, error) {
		return s.engine.CreateAttempt(quiz, userID, history, now)
	})
	switch {
	case err == nil:
		return attempt, nil
	case errors.Is(err, repositories.ErrDuplicate):
		return nil, apperrors.ErrActiveAttemptExists
	case IsValidation(err), IsBusinessRule(err), IsConflict(err):
		return nil, err
	default:
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}
}

// settleStale finishes live attempts that only block a new one because
// nobody closed or graded them yet. It reports whether anything changed.
func (s *attemptService) settleStale(ctx context.Context, userID, quizID string, now time.Time) bool {
	history, err := s.repo.Attempt().ListByUserAndQuiz(ctx, userID, quizID)
	if err != nil {
		return false
	}

	settled := false
	for _, a := range history {
		overdue := a.Status == models.AttemptInProgress && engine.IsExpired(a, now)
		closed := a.Status == models.AttemptSubmitted || a.Status == models.AttemptExpired
		if !overdue && !closed {
			continue
		}

		full, err := s.loadAttempt(ctx, a.ID)
		if err != nil {
			return false
		}
		if overdue {
			_, err = s.closeAndGrade(ctx, full, now)
		} else {
			_, err = s.grade(ctx, full)
		}
		if err != nil {
			s.logger.Warn("Could not settle stale attempt", "attempt_id", a.ID, "error", err)
			return false
		}
		settled = true
	}
	return settled
}

// closeAndGrade moves an in-progress attempt to submitted or expired, then
// grades the stored answers. Losing the close race yields
// ErrAttemptAlreadySubmitted.
func (s *attemptService) closeAndGrade(ctx context.Context, attempt *models.QuizAttempt, now time.Time) (*models.QuizResult, error) {
	closed, err := s.engine.SubmitAttempt(attempt, now)
	if err != nil {
		s.ops.LogTransitionDefect(ctx, err)
		return nil, err
	}

	if err := s.repo.Attempt().Close(ctx, closed); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			s.metrics.StaleWrite("close")
			return nil, ErrAttemptAlreadySubmitted
		}
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to close attempt: %w", err)
	}

	// answers saved between our read and the close are part of the attempt
	stored, err := s.loadAttempt(ctx, closed.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.AttemptClosed(string(stored.Status))
	s.notifier.AttemptClosed(ctx, stored)

	return s.grade(ctx, stored)
}

// grade scores a closed attempt and stores the result. When another caller
// stored it first, that stored result is returned instead.
func (s *attemptService) grade(ctx context.Context, attempt *models.QuizAttempt) (*models.QuizResult, error) {
	quiz, err := s.quizzes.Get(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.engine.GradeAttempt(attempt, quiz)
	if err != nil {
		s.ops.LogTransitionDefect(ctx, err)
		return nil, err
	}

	if err := s.repo.Attempt().MarkGraded(ctx, result); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			s.metrics.StaleWrite("grade")
			current, loadErr := s.loadAttempt(ctx, attempt.ID)
			if loadErr != nil {
				return nil, loadErr
			}
			return s.storedResult(ctx, current)
		}
		return nil, fmt.Errorf("failed to store graded attempt: %w", err)
	}

	s.metrics.AttemptGraded(result.Passed, time.Since(start))
	s.cacheResult(ctx, result.Record())
	s.notifier.AttemptGraded(ctx, result)

	s.logger.Info("Quiz attempt graded",
		"attempt_id", attempt.ID,
		"quiz_id", attempt.QuizID,
		"user_id", attempt.UserID,
		"status", attempt.Status,
		"percentage", result.Percentage,
		"passed", result.Passed)

	return result, nil
}

// storedResult rebuilds the result of a graded attempt, cache first.
func (s *attemptService) storedResult(ctx context.Context, attempt *models.QuizAttempt) (*models.QuizResult, error) {
	var record models.QuizResultRecord
	if err := s.cache.Get(ctx, cache.ResultKey(attempt.ID), &record); err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Result cache unavailable, reading from store", "attempt_id", attempt.ID, "error", err)
		}
		stored, err := s.repo.Result().GetByAttemptID(ctx, attempt.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return nil, ErrResultNotFound
			}
			return nil, fmt.Errorf("failed to get result: %w", err)
		}
		record = *stored
		s.cacheResult(ctx, &record)
	}

	quiz, err := s.quizzes.Get(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	return record.Result(attempt, quiz), nil
}

func (s *attemptService) cacheResult(ctx context.Context, record *models.QuizResultRecord) {
	if err := s.cache.Set(ctx, cache.ResultKey(record.AttemptID), record, s.cacheTTL); err != nil {
		s.logger.Warn("Failed to cache result", "attempt_id", record.AttemptID, "error", err)
	}
}

// ===== LOADING & ACCESS =====

func (s *attemptService) loadAttempt(ctx context.Context, attemptID string) (*models.QuizAttempt, error) {
	attempt, err := s.repo.Attempt().GetByID(ctx, attemptID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to get attempt: %w", err)
	}
	return attempt, nil
}

// loadVisible loads an attempt the caller may read. An attempt found past
// its deadline is expired and graded before it is returned.
func (s *attemptService) loadVisible(ctx context.Context, attemptID string, principal models.Principal) (*models.QuizAttempt, *models.Quiz, error) {
	attempt, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, nil, err
	}
	if attempt.UserID != principal.UserID && !principal.CanReviewOthers() {
		return nil, nil, ErrAttemptAccessDenied
	}

	now := s.now()
	if attempt.Status == models.AttemptInProgress && engine.IsExpired(attempt, now) {
		if _, err := s.closeAndGrade(ctx, attempt, now); err != nil && !errors.Is(err, ErrAttemptAlreadySubmitted) {
			return nil, nil, err
		}
		if attempt, err = s.loadAttempt(ctx, attemptID); err != nil {
			return nil, nil, err
		}
	}

	quiz, err := s.quizzes.Get(ctx, attempt.QuizID)
	if err != nil {
		return nil, nil, err
	}
	return attempt, quiz, nil
}

func authorizeOwner(attempt *models.QuizAttempt, principal models.Principal) error {
	if attempt.UserID != principal.UserID {
		return ErrAttemptAccessDenied
	}
	return nil
}

// canReveal reports whether answer keys may be shown: always to staff, and
// to students once graded if the quiz allows it.
func (s *attemptService) canReveal(quiz *models.Quiz, attempt *models.QuizAttempt, principal models.Principal) bool {
	if principal.CanReviewOthers() {
		return true
	}
	return quiz != nil && quiz.ShowCorrectAnswers && attempt.Status == models.AttemptGraded
}

func rejectReason(err error) string {
	switch {
	case apperrors.IsRetakeLimit(err):
		return "retake_limit"
	case errors.Is(err, apperrors.ErrActiveAttemptExists):
		return "active_attempt"
	case apperrors.IsInvalidQuiz(err):
		return "invalid_quiz"
	default:
		return "error"
	}
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ===== VIEW MAPPING =====

// toAttemptView renders the attempt in the order the student saw it. Only
// questions frozen into the presentation are shown.
func toAttemptView(attempt *models.QuizAttempt, quiz *models.Quiz, now time.Time, reveal bool) *AttemptView {
	view := &AttemptView{
		ID:          attempt.ID,
		QuizID:      attempt.QuizID,
		UserID:      attempt.UserID,
		Status:      attempt.Status,
		StartedAt:   attempt.StartedAt,
		CompletedAt: attempt.CompletedAt,
		ExpiresAt:   attempt.ExpiresAt,
		Answers:     make(map[string]interface{}, len(attempt.Answers)),
	}

	for id, answer := range attempt.Answers {
		view.Answers[id] = answer.Answer
	}

	if remaining, timed := engine.TimeRemaining(attempt, now); timed && attempt.Status == models.AttemptInProgress {
		seconds := int64(remaining / time.Second)
		view.TimeRemaining = &seconds
	}

	if attempt.Status == models.AttemptGraded {
		score, passed := attempt.Score, attempt.Passed
		view.Score = &score
		view.Passed = &passed
	}

	if quiz != nil {
		for _, q := range engine.Render(quiz, attempt.Presentation) {
			if !attempt.HasQuestion(q.ID) {
				continue
			}
			if reveal {
				view.Questions = append(view.Questions, engine.Reveal(q))
			} else {
				view.Questions = append(view.Questions, engine.Redact(q))
			}
		}
	}

	return view
}

func toResultView(result *models.QuizResult, reveal bool) *ResultView {
	view := &ResultView{
		TotalPoints:         result.TotalPoints,
		EarnedPoints:        result.EarnedPoints,
		Percentage:          result.Percentage,
		Passed:              result.Passed,
		GradedAt:            result.GradedAt,
		CorrectAnswersShown: reveal,
		Feedback:            make([]models.QuestionFeedback, len(result.Feedback)),
	}
	if result.Attempt != nil {
		view.AttemptID = result.Attempt.ID
		view.QuizID = result.Attempt.QuizID
		view.UserID = result.Attempt.UserID
		view.Status = result.Attempt.Status
	}
	if result.Quiz != nil {
		view.PassingScore = result.Quiz.PassingScore
	}

	copy(view.Feedback, result.Feedback)
	if !reveal {
		for i := range view.Feedback {
			view.Feedback[i].CorrectAnswer = nil
			view.Feedback[i].Explanation = nil
		}
	}
	return view
}
