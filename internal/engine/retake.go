package engine

import (
	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// AttemptCounts summarises one user's history for one quiz.
type AttemptCounts struct {
	Graded int
	Live   int
}

// CountAttempts counts the history entries that belong to userID and the quiz.
func CountAttempts(quizID, userID string, history []*models.QuizAttempt) AttemptCounts {
	var counts AttemptCounts
	for _, a := range history {
		if a == nil || a.QuizID != quizID || a.UserID != userID {
			continue
		}
		if a.Status == models.AttemptGraded {
			counts.Graded++
		} else {
			counts.Live++
		}
	}
	return counts
}

// CheckRetake decides whether userID may start another attempt. Only graded
// attempts consume the retake budget; an attempt that is not graded yet
// blocks a second concurrent one with ErrActiveAttemptExists.
func (e *Engine) CheckRetake(quiz *models.Quiz, userID string, history []*models.QuizAttempt) error {
	counts := CountAttempts(quiz.ID, userID, history)

	if counts.Live > 0 {
		return apperrors.ErrActiveAttemptExists
	}
	if limit, limited := RetakeLimit(quiz); limited && counts.Graded >= limit {
		return &apperrors.RetakeLimitError{
			QuizID:   quiz.ID,
			UserID:   userID,
			Attempts: counts.Graded,
			Limit:    limit,
		}
	}
	return nil
}

// RetakeLimit returns the maximum number of graded attempts, or false when
// retakes are unlimited.
func RetakeLimit(quiz *models.Quiz) (int, bool) {
	if !quiz.AllowRetake {
		return 1, true
	}
	if quiz.MaxAttempts != nil {
		return *quiz.MaxAttempts, true
	}
	return 0, false
}
