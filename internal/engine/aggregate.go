package engine

import (
	"math"

	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// Percentage rounds half away from zero, so 69.5 passes a threshold of 70.
func Percentage(earned, total float64) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(100 * earned / total))
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// aggregate scores every question the attempt was shown and folds the scores
// into a result. Unanswered questions stay in the total and earn nothing.
func aggregate(attempt *models.QuizAttempt, quiz *models.Quiz) (*models.QuizResult, error) {
	questions := gradedQuestions(attempt, quiz)

	var total float64
	for _, q := range questions {
		total += q.Points
	}
	if total <= 0 {
		return nil, apperrors.NewInvalidQuizError(quiz.ID, apperrors.ValidationErrors{
			*apperrors.NewValidationErrorWithRule("questions", "total points must be greater than 0", "gt", total),
		})
	}

	next := attempt.Clone()
	feedback := make([]models.QuestionFeedback, 0, len(questions))
	var earned float64
	for _, q := range questions {
		fb := models.QuestionFeedback{
			QuestionID:    q.ID,
			Type:          q.Type,
			Points:        q.Points,
			CorrectAnswer: CorrectAnswer(q),
			Explanation:   q.Explanation,
		}

		if answer, ok := next.Answers[q.ID]; ok {
			score := ScoreAnswer(q, answer.Answer)
			answer.IsCorrect = score.IsCorrect
			answer.PointsEarned = score.PointsEarned(q)
			next.Answers[q.ID] = answer

			fb.IsCorrect = score.IsCorrect
			fb.Fraction = score.Fraction
			fb.PointsEarned = answer.PointsEarned
			fb.UserAnswer = answer.Answer
		}

		earned += fb.PointsEarned
		feedback = append(feedback, fb)
	}

	percentage := Percentage(earned, total)
	passed := percentage >= quiz.PassingScore
	next.Score = percentage
	next.Passed = passed

	gradedAt := attempt.StartedAt
	if attempt.CompletedAt != nil {
		gradedAt = *attempt.CompletedAt
	}

	return &models.QuizResult{
		Attempt:      next,
		Quiz:         quiz,
		TotalPoints:  total,
		EarnedPoints: earned,
		Percentage:   percentage,
		Passed:       passed,
		Feedback:     feedback,
		GradedAt:     gradedAt,
	}, nil
}

// gradedQuestions returns, in canonical order, the quiz questions that were
// part of the attempt's presentation. Questions added to the quiz after the
// attempt started are not graded against it.
func gradedQuestions(attempt *models.QuizAttempt, quiz *models.Quiz) []models.Question {
	canonical := canonicalOrder(quiz.Questions)
	if len(attempt.Presentation.QuestionOrder) == 0 {
		return canonical
	}

	out := canonical[:0]
	for _, q := range canonical {
		if attempt.HasQuestion(q.ID) {
			out = append(out, q)
		}
	}
	return out
}
