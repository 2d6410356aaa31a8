package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrActiveAttemptExists is returned when the user already has an attempt
	// for the quiz that has not been graded yet.
	ErrActiveAttemptExists = errors.New("an attempt for this quiz is already in progress")
	ErrUnknownQuestion     = errors.New("question is not part of this attempt")
)

// InvalidQuizError reports a quiz that breaks a structural invariant. It is
// raised before any attempt is created, never during grading.
type InvalidQuizError struct {
	QuizID   string           `json:"quiz_id"`
	Problems ValidationErrors `json:"problems"`
}

func NewInvalidQuizError(quizID string, problems ValidationErrors) *InvalidQuizError {
	return &InvalidQuizError{QuizID: quizID, Problems: problems}
}

func (e *InvalidQuizError) Error() string {
	switch len(e.Problems) {
	case 0:
		return fmt.Sprintf("invalid quiz %s", e.QuizID)
	case 1:
		return fmt.Sprintf("invalid quiz %s: %s %s", e.QuizID, e.Problems[0].Field, e.Problems[0].Message)
	default:
		return fmt.Sprintf("invalid quiz %s: %d problems", e.QuizID, len(e.Problems))
	}
}

func (e *InvalidQuizError) Unwrap() error {
	if len(e.Problems) == 0 {
		return nil
	}
	return e.Problems
}

// RetakeLimitError is returned when the retake policy rejects a new attempt.
type RetakeLimitError struct {
	QuizID   string `json:"quiz_id"`
	UserID   string `json:"user_id"`
	Attempts int    `json:"attempts"`
	Limit    int    `json:"limit"`
}

func (e *RetakeLimitError) Error() string {
	return fmt.Sprintf("retake limit reached for quiz %s: %d of %d attempts used", e.QuizID, e.Attempts, e.Limit)
}

// InvalidStateTransitionError means a caller broke the attempt lifecycle
// contract. It is a defect on the caller side, not a user facing condition.
type InvalidStateTransitionError struct {
	AttemptID string `json:"attempt_id"`
	Status    string `json:"status"`
	Action    string `json:"action"`
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("cannot %s attempt %s in status %s", e.Action, e.AttemptID, e.Status)
}

func IsInvalidQuiz(err error) bool {
	var target *InvalidQuizError
	return errors.As(err, &target)
}

func IsRetakeLimit(err error) bool {
	var target *RetakeLimitError
	return errors.As(err, &target)
}

func IsInvalidStateTransition(err error) bool {
	var target *InvalidStateTransitionError
	return errors.As(err, &target)
}
