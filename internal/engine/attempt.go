package engine

import (
	"errors"
	"time"

	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// ErrQuizMismatch is returned when an attempt is graded against another quiz.
var ErrQuizMismatch = errors.New("attempt does not belong to this quiz")

const (
	ActionAnswer = "answer"
	ActionSubmit = "submit"
	ActionGrade  = "grade"
)

// ===== TRANSITIONS =====
// Each transition returns a new attempt and leaves its input untouched.

// CreateAttempt validates the quiz, applies the retake policy against history
// and returns a new in-progress attempt with its presentation frozen.
func (e *Engine) CreateAttempt(quiz *models.Quiz, userID string, history []*models.QuizAttempt, now time.Time) (*models.QuizAttempt, error) {
	if err := e.ValidateQuiz(quiz); err != nil {
		return nil, err
	}
	if err := e.CheckRetake(quiz, userID, history); err != nil {
		return nil, err
	}

	id := e.newID()
	attempt := &models.QuizAttempt{
		ID:           id,
		QuizID:       quiz.ID,
		UserID:       userID,
		Status:       models.AttemptInProgress,
		Presentation: BuildPresentation(quiz, SeedFromAttemptID(id)),
		Answers:      make(map[string]models.QuizAnswer),
		StartedAt:    now,
	}
	if quiz.TimeLimit != nil {
		limit := *quiz.TimeLimit
		expiresAt := now.Add(quiz.TimeLimitDuration())
		attempt.TimeLimit = &limit
		attempt.ExpiresAt = &expiresAt
	}

	return attempt, nil
}

// RecordAnswer upserts the answer for one question; the last write wins.
// Scoring happens at grading time, not here.
func (e *Engine) RecordAnswer(attempt *models.QuizAttempt, questionID string, answer interface{}) (*models.QuizAttempt, error) {
	if attempt.Status != models.AttemptInProgress {
		return nil, transitionError(attempt, ActionAnswer)
	}
	if !attempt.HasQuestion(questionID) {
		return nil, apperrors.ErrUnknownQuestion
	}

	next := attempt.Clone()
	next.Answers[questionID] = models.QuizAnswer{
		AttemptID:  attempt.ID,
		QuestionID: questionID,
		Answer:     answer,
		AnsweredAt: e.clock(),
	}
	return next, nil
}

// SubmitAttempt closes an in-progress attempt. Past the deadline the attempt
// becomes expired and is completed at the deadline itself.
func (e *Engine) SubmitAttempt(attempt *models.QuizAttempt, now time.Time) (*models.QuizAttempt, error) {
	if attempt.Status != models.AttemptInProgress {
		return nil, transitionError(attempt, ActionSubmit)
	}

	next := attempt.Clone()
	if IsExpired(attempt, now) {
		completedAt := *attempt.ExpiresAt
		next.Status = models.AttemptExpired
		next.CompletedAt = &completedAt
	} else {
		next.Status = models.AttemptSubmitted
		next.CompletedAt = &now
	}
	return next, nil
}

// GradeAttempt scores a submitted or expired attempt. The result carries the
// graded attempt; grading the same pair twice yields identical results.
func (e *Engine) GradeAttempt(attempt *models.QuizAttempt, quiz *models.Quiz) (*models.QuizResult, error) {
	if attempt.Status != models.AttemptSubmitted && attempt.Status != models.AttemptExpired {
		return nil, transitionError(attempt, ActionGrade)
	}
	if attempt.QuizID != quiz.ID {
		return nil, ErrQuizMismatch
	}

	result, err := aggregate(attempt, quiz)
	if err != nil {
		return nil, err
	}

	graded := result.Attempt
	graded.Status = models.AttemptGraded
	gradedAt := result.GradedAt
	graded.GradedAt = &gradedAt
	return result, nil
}

// Preview grades any attempt, open ones included, without changing its status.
func (e *Engine) Preview(attempt *models.QuizAttempt, quiz *models.Quiz) (*models.QuizResult, error) {
	if attempt.QuizID != quiz.ID {
		return nil, ErrQuizMismatch
	}
	return aggregate(attempt, quiz)
}

func transitionError(attempt *models.QuizAttempt, action string) error {
	return &apperrors.InvalidStateTransitionError{
		AttemptID: attempt.ID,
		Status:    string(attempt.Status),
		Action:    action,
	}
}
