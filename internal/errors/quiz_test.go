package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInvalidQuizError(t *testing.T) {
	single := NewInvalidQuizError("quiz-1", ValidationErrors{
		*NewValidationError("passing_score", "must be at most 100", 150),
	})
	assert.Equal(t, "invalid quiz quiz-1: passing_score must be at most 100", single.Error())

	many := NewInvalidQuizError("quiz-1", ValidationErrors{
		*NewValidationError("title", "is required", nil),
		*NewValidationError("questions", "must not be empty", nil),
	})
	assert.Equal(t, "invalid quiz quiz-1: 2 problems", many.Error())

	wrapped := fmt.Errorf("create: %w", many)
	assert.True(t, IsInvalidQuiz(wrapped))

	var problems ValidationErrors
	assert.True(t, stderrors.As(wrapped, &problems))
	assert.Len(t, problems, 2)

	assert.Nil(t, NewInvalidQuizError("quiz-1", nil).Unwrap())
}

func TestRetakeAndTransitionErrors(t *testing.T) {
	retake := &RetakeLimitError{QuizID: "quiz-1", UserID: "student-1", Attempts: 3, Limit: 3}
	assert.Equal(t, "retake limit reached for quiz quiz-1: 3 of 3 attempts used", retake.Error())
	assert.True(t, IsRetakeLimit(fmt.Errorf("start: %w", retake)))
	assert.False(t, IsRetakeLimit(ErrActiveAttemptExists))

	transition := &InvalidStateTransitionError{AttemptID: "attempt-1", Status: "graded", Action: "submit"}
	assert.Equal(t, "cannot submit attempt attempt-1 in status graded", transition.Error())
	assert.True(t, IsInvalidStateTransition(fmt.Errorf("submit: %w", transition)))
	assert.False(t, IsInvalidStateTransition(ErrUnknownQuestion))
}
