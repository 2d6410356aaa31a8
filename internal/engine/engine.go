// Package engine grades quizzes. It models the attempt lifecycle, seeded
// presentation order, per-variant answer scoring and result aggregation.
// Every function is a computation over the quiz and attempt values passed in:
// the engine reads no clock of its own for lifecycle decisions and keeps no
// state between calls. Persistence and concurrency control belong to callers.
package engine

import (
	"time"

	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/validator"
	"github.com/google/uuid"
)

type Engine struct {
	newID     func() string
	clock     func() time.Time
	validator *validator.Validator
}

type Option func(*Engine)

// WithIDGenerator overrides how attempt ids are minted. Ids feed the shuffle
// seed, so a fixed generator gives a fixed presentation.
func WithIDGenerator(fn func() string) Option { return func(e *Engine) { e.newID = fn } }

// WithValidator shares a validator instance with the rest of the service.
func WithValidator(v *validator.Validator) Option { return func(e *Engine) { e.validator = v } }

// WithClock sets the clock used to stamp AnsweredAt. Lifecycle decisions use
// the time passed by the caller, never this clock.
func WithClock(fn func() time.Time) Option { return func(e *Engine) { e.clock = fn } }

func New(opts ...Option) *Engine {
	e := &Engine{
		newID: uuid.NewString,
		clock: time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	if e.validator == nil {
		e.validator = validator.New()
	}
	return e
}

// ValidateQuiz checks every structural invariant a quiz must satisfy before
// an attempt can be created. It returns an *apperrors.InvalidQuizError.
func (e *Engine) ValidateQuiz(quiz *models.Quiz) error {
	if quiz == nil {
		return apperrors.NewInvalidQuizError("", apperrors.ValidationErrors{
			*apperrors.NewValidationError("quiz", "is required", nil),
		})
	}
	if problems := e.validator.ValidateQuiz(quiz); len(problems) > 0 {
		return apperrors.NewInvalidQuizError(quiz.ID, problems)
	}
	if quiz.TotalPoints() <= 0 {
		return apperrors.NewInvalidQuizError(quiz.ID, apperrors.ValidationErrors{
			*apperrors.NewValidationErrorWithRule("questions", "total points must be greater than 0", "gt", quiz.TotalPoints()),
		})
	}
	return nil
}

// IsExpired reports whether a timed attempt is past its deadline at now.
// Reaching the deadline exactly is still in time.
func IsExpired(attempt *models.QuizAttempt, now time.Time) bool {
	return attempt.ExpiresAt != nil && now.After(*attempt.ExpiresAt)
}

// TimeRemaining returns the time left before the deadline, zero once it has
// passed, and ok=false for untimed attempts.
func TimeRemaining(attempt *models.QuizAttempt, now time.Time) (time.Duration, bool) {
	if attempt.ExpiresAt == nil {
		return 0, false
	}
	remaining := attempt.ExpiresAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}
