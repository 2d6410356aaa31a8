package engine

import (
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func intPtr(n int) *int { return &n }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("attempt-%d", n)
	}
}

func newTestEngine() *Engine {
	return New(WithIDGenerator(sequentialIDs()), WithClock(func() time.Time { return t0 }))
}

func single(id string, order int, points float64, correct string) models.Question {
	return models.Question{
		ID: id, Type: models.SingleChoice, Question: "question " + id, Points: points, Order: order,
		Content: models.SingleChoiceContent{Options: []models.ChoiceOption{
			{ID: "A", Text: "a", IsCorrect: correct == "A"},
			{ID: "B", Text: "b", IsCorrect: correct == "B"},
			{ID: "C", Text: "c", IsCorrect: correct == "C"},
		}},
	}
}

func threeQuestionQuiz() *models.Quiz {
	return &models.Quiz{
		ID: "quiz-1", LessonID: "lesson-1", Title: "Three", PassingScore: 70,
		Questions: []models.Question{
			single("q1", 1, 10, "A"),
			single("q2", 2, 10, "B"),
			single("q3", 3, 10, "C"),
		},
	}
}

func shuffledQuiz() *models.Quiz {
	quiz := &models.Quiz{
		ID: "quiz-shuffle", LessonID: "lesson-1", Title: "Shuffled", PassingScore: 50,
		ShuffleQuestions: true, ShuffleOptions: true,
	}
	for i := 0; i < 12; i++ {
		quiz.Questions = append(quiz.Questions, single(fmt.Sprintf("q%02d", i), i, float64(i+1), "A"))
	}
	quiz.Questions = append(quiz.Questions, dragDropQuestion())
	quiz.Questions[len(quiz.Questions)-1].Order = 99
	return quiz
}

func answerAll(t *testing.T, e *Engine, attempt *models.QuizAttempt, answers map[string]interface{}) *models.QuizAttempt {
	t.Helper()
	for id, answer := range answers {
		var err error
		attempt, err = e.RecordAnswer(attempt, id, answer)
		require.NoError(t, err)
	}
	return attempt
}

// ===== CREATE =====

func TestCreateAttempt(t *testing.T) {
	e := newTestEngine()
	quiz := threeQuestionQuiz()
	quiz.TimeLimit = intPtr(600)

	attempt, err := e.CreateAttempt(quiz, "user-1", nil, t0)
	require.NoError(t, err)

	assert.Equal(t, "attempt-1", attempt.ID)
	assert.Equal(t, models.AttemptInProgress, attempt.Status)
	assert.Equal(t, t0, attempt.StartedAt)
	assert.Equal(t, []string{"q1", "q2", "q3"}, attempt.Presentation.QuestionOrder)
	assert.Equal(t, SeedFromAttemptID("attempt-1"), attempt.Presentation.Seed)
	require.NotNil(t, attempt.ExpiresAt)
	assert.Equal(t, t0.Add(10*time.Minute), *attempt.ExpiresAt)
	assert.Equal(t, 600, *attempt.TimeLimit)
	assert.Empty(t, attempt.Answers)
}

func TestCreateAttempt_InvalidQuiz(t *testing.T) {
	e := newTestEngine()

	empty := threeQuestionQuiz()
	empty.Questions = nil
	_, err := e.CreateAttempt(empty, "user-1", nil, t0)
	assert.True(t, apperrors.IsInvalidQuiz(err))

	twoCorrect := threeQuestionQuiz()
	twoCorrect.Questions[0].Content = models.SingleChoiceContent{Options: []models.ChoiceOption{
		{ID: "A", Text: "a", IsCorrect: true},
		{ID: "B", Text: "b", IsCorrect: true},
	}}
	_, err = e.CreateAttempt(twoCorrect, "user-1", nil, t0)
	var invalid *apperrors.InvalidQuizError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "quiz-1", invalid.QuizID)
	assert.NotEmpty(t, invalid.Problems)
}

// ===== RETAKE POLICY =====

func graded(id, userID, quizID string) *models.QuizAttempt {
	return &models.QuizAttempt{ID: id, UserID: userID, QuizID: quizID, Status: models.AttemptGraded}
}

func TestCreateAttempt_RetakeDisallowed(t *testing.T) {
	e := newTestEngine()
	quiz := threeQuestionQuiz()

	history := []*models.QuizAttempt{graded("old", "user-1", quiz.ID)}
	_, err := e.CreateAttempt(quiz, "user-1", history, t0)

	var limit *apperrors.RetakeLimitError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, 1, limit.Attempts)
	assert.Equal(t, 1, limit.Limit)
}

func TestCreateAttempt_MaxAttempts(t *testing.T) {
	e := newTestEngine()
	quiz := threeQuestionQuiz()
	quiz.AllowRetake = true
	quiz.MaxAttempts = intPtr(2)

	history := []*models.QuizAttempt{graded("a1", "user-1", quiz.ID)}
	_, err := e.CreateAttempt(quiz, "user-1", history, t0)
	require.NoError(t, err)

	history = append(history, graded("a2", "user-1", quiz.ID))
	_, err = e.CreateAttempt(quiz, "user-1", history, t0)
	var limit *apperrors.RetakeLimitError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, 2, limit.Attempts)
	assert.Equal(t, 2, limit.Limit)
}

func TestCheckRetake(t *testing.T) {
	e := newTestEngine()

	tests := []struct {
		name    string
		allow   bool
		max     *int
		history []*models.QuizAttempt
		wantErr error
		limited bool
	}{
		{name: "first attempt"},
		{
			name:    "other users and quizzes ignored",
			history: []*models.QuizAttempt{graded("x", "user-2", "quiz-1"), graded("y", "user-1", "quiz-2")},
		},
		{
			name:    "live attempt blocks a second one",
			allow:   true,
			history: []*models.QuizAttempt{{ID: "live", UserID: "user-1", QuizID: "quiz-1", Status: models.AttemptSubmitted}},
			wantErr: apperrors.ErrActiveAttemptExists,
		},
		{
			name:    "unlimited retakes",
			allow:   true,
			history: []*models.QuizAttempt{graded("a", "user-1", "quiz-1"), graded("b", "user-1", "quiz-1")},
		},
		{
			name:    "in progress does not consume budget but blocks",
			allow:   true,
			max:     intPtr(1),
			history: []*models.QuizAttempt{{ID: "live", UserID: "user-1", QuizID: "quiz-1", Status: models.AttemptInProgress}},
			wantErr: apperrors.ErrActiveAttemptExists,
		},
		{
			name:    "limit reached",
			allow:   true,
			max:     intPtr(1),
			history: []*models.QuizAttempt{graded("a", "user-1", "quiz-1")},
			limited: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quiz := threeQuestionQuiz()
			quiz.AllowRetake = tt.allow
			quiz.MaxAttempts = tt.max

			err := e.CheckRetake(quiz, "user-1", tt.history)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.limited:
				assert.True(t, apperrors.IsRetakeLimit(err))
			default:
				assert.NoError(t, err)
			}
		})
	}
}

// ===== ANSWERS & SUBMISSION =====

func TestRecordAnswer_LastWriteWins(t *testing.T) {
	e := newTestEngine()
	attempt, err := e.CreateAttempt(threeQuestionQuiz(), "user-1", nil, t0)
	require.NoError(t, err)

	first, err := e.RecordAnswer(attempt, "q1", "B")
	require.NoError(t, err)
	second, err := e.RecordAnswer(first, "q1", "A")
	require.NoError(t, err)

	assert.Empty(t, attempt.Answers, "input attempt must not be mutated")
	assert.Equal(t, "B", first.Answers["q1"].Answer)
	assert.Equal(t, "A", second.Answers["q1"].Answer)
	assert.Equal(t, t0, second.Answers["q1"].AnsweredAt)
	assert.Len(t, second.Answers, 1)
}

func TestRecordAnswer_UnknownQuestion(t *testing.T) {
	e := newTestEngine()
	attempt, err := e.CreateAttempt(threeQuestionQuiz(), "user-1", nil, t0)
	require.NoError(t, err)

	_, err = e.RecordAnswer(attempt, "q9", "A")
	assert.ErrorIs(t, err, apperrors.ErrUnknownQuestion)
}

func TestRecordAnswer_AfterSubmit(t *testing.T) {
	e := newTestEngine()
	attempt, err := e.CreateAttempt(threeQuestionQuiz(), "user-1", nil, t0)
	require.NoError(t, err)
	submitted, err := e.SubmitAttempt(attempt, t0.Add(time.Minute))
	require.NoError(t, err)

	_, err = e.RecordAnswer(submitted, "q1", "A")
	var transition *apperrors.InvalidStateTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, ActionAnswer, transition.Action)
	assert.Equal(t, "submitted", transition.Status)
}

func TestSubmitAttempt(t *testing.T) {
	e := newTestEngine()
	quiz := threeQuestionQuiz()
	quiz.TimeLimit = intPtr(300)
	attempt, err := e.CreateAttempt(quiz, "user-1", nil, t0)
	require.NoError(t, err)

	t.Run("in time", func(t *testing.T) {
		now := t0.Add(2 * time.Minute)
		submitted, err := e.SubmitAttempt(attempt, now)
		require.NoError(t, err)
		assert.Equal(t, models.AttemptSubmitted, submitted.Status)
		assert.Equal(t, now, *submitted.CompletedAt)
		assert.Equal(t, models.AttemptInProgress, attempt.Status)
	})

	t.Run("exactly at the deadline", func(t *testing.T) {
		submitted, err := e.SubmitAttempt(attempt, t0.Add(5*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, models.AttemptSubmitted, submitted.Status)
	})

	t.Run("past the deadline", func(t *testing.T) {
		expired, err := e.SubmitAttempt(attempt, t0.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, models.AttemptExpired, expired.Status)
		assert.Equal(t, t0.Add(5*time.Minute), *expired.CompletedAt)
	})

	t.Run("twice", func(t *testing.T) {
		submitted, err := e.SubmitAttempt(attempt, t0.Add(time.Minute))
		require.NoError(t, err)
		_, err = e.SubmitAttempt(submitted, t0.Add(2*time.Minute))
		assert.True(t, apperrors.IsInvalidStateTransition(err))
	})
}

func TestTimeRemaining(t *testing.T) {
	untimed := &models.QuizAttempt{}
	_, ok := TimeRemaining(untimed, t0)
	assert.False(t, ok)

	expiresAt := t0.Add(time.Minute)
	timed := &models.QuizAttempt{ExpiresAt: &expiresAt}
	remaining, ok := TimeRemaining(timed, t0.Add(20*time.Second))
	assert.True(t, ok)
	assert.Equal(t, 40*time.Second, remaining)

	remaining, _ = TimeRemaining(timed, t0.Add(time.Hour))
	assert.Zero(t, remaining)
}

// ===== GRADING =====

func TestGradeAttempt_UnansweredQuestion(t *testing.T) {
	e := newTestEngine()
	quiz := threeQuestionQuiz()
	quiz.PassingScore = 60

	attempt, err := e.CreateAttempt(quiz, "user-1", nil, t0)
	require.NoError(t, err)
	attempt = answerAll(t, e, attempt, map[string]interface{}{"q1": "A", "q2": "B"})
	attempt, err = e.SubmitAttempt(attempt, t0.Add(time.Minute))
	require.NoError(t, err)

	result, err := e.GradeAttempt(attempt, quiz)
	require.NoError(t, err)

	assert.Equal(t, 30.0, result.TotalPoints)
	assert.Equal(t, 20.0, result.EarnedPoints)
	assert.Equal(t, 67, result.Percentage)
	assert.True(t, result.Passed)

	require.Len(t, result.Feedback, 3)
	unanswered := result.Feedback[2]
	assert.Equal(t, "q3", unanswered.QuestionID)
	assert.False(t, unanswered.IsCorrect)
	assert.Zero(t, unanswered.Fraction)
	assert.Nil(t, unanswered.UserAnswer)
	assert.Equal(t, "C", unanswered.CorrectAnswer)

	assert.Equal(t, models.AttemptGraded, result.Attempt.Status)
	assert.Equal(t, 67, result.Attempt.Score)
	assert.Equal(t, 10.0, result.Attempt.Answers["q1"].PointsEarned)
	assert.True(t, result.Attempt.Answers["q1"].IsCorrect)
	assert.Equal(t, models.AttemptSubmitted, attempt.Status)
}

func TestGradeAttempt_EndToEnd(t *testing.T) {
	e := newTestEngine()
	quiz := &models.Quiz{
		ID: "quiz-e2e", LessonID: "lesson-1", Title: "Two", PassingScore: 60,
		Questions: []models.Question{single("q1", 1, 5, "A"), single("q2", 2, 5, "B")},
	}

	attempt, err := e.CreateAttempt(quiz, "user-1", nil, t0)
	require.NoError(t, err)
	attempt = answerAll(t, e, attempt, map[string]interface{}{"q1": "A", "q2": "C"})
	attempt, err = e.SubmitAttempt(attempt, t0.Add(time.Minute))
	require.NoError(t, err)

	result, err := e.GradeAttempt(attempt, quiz)
	require.NoError(t, err)
	assert.Equal(t, 5.0, result.EarnedPoints)
	assert.Equal(t, 10.0, result.TotalPoints)
	assert.Equal(t, 50, result.Percentage)
	assert.False(t, result.Passed)
}

func TestGradeAttempt_PassBoundary(t *testing.T) {
	e := newTestEngine()
	quiz := &models.Quiz{ID: "quiz-b", LessonID: "l", Title: "Boundary", PassingScore: 70}
	for i := 0; i < 100; i++ {
		quiz.Questions = append(quiz.Questions, models.Question{
			ID: fmt.Sprintf("q%03d", i), Type: models.TrueFalse, Question: "?", Points: 1, Order: i,
			Content: models.TrueFalseContent{CorrectAnswer: true},
		})
	}

	grade := func(correct int) *models.QuizResult {
		attempt, err := e.CreateAttempt(quiz, "user-1", nil, t0)
		require.NoError(t, err)
		for i := 0; i < correct; i++ {
			attempt, err = e.RecordAnswer(attempt, fmt.Sprintf("q%03d", i), true)
			require.NoError(t, err)
		}
		attempt, err = e.SubmitAttempt(attempt, t0)
		require.NoError(t, err)
		result, err := e.GradeAttempt(attempt, quiz)
		require.NoError(t, err)
		return result
	}

	at := grade(70)
	assert.Equal(t, 70, at.Percentage)
	assert.True(t, at.Passed)

	below := grade(69)
	assert.Equal(t, 69, below.Percentage)
	assert.False(t, below.Passed)
}

func TestGradeAttempt_PartialCreditAdds(t *testing.T) {
	e := newTestEngine()
	quiz := &models.Quiz{
		ID: "quiz-p", LessonID: "l", Title: "Partial", PassingScore: 50,
		Questions: []models.Question{fillBlankQuestion()},
	}
	attempt, err := e.CreateAttempt(quiz, "user-1", nil, t0)
	require.NoError(t, err)
	attempt = answerAll(t, e, attempt, map[string]interface{}{
		"fill": map[string]string{"b1": "Paris", "b2": "Seine", "b3": "x", "b4": "y"},
	})
	attempt, err = e.SubmitAttempt(attempt, t0)
	require.NoError(t, err)

	result, err := e.GradeAttempt(attempt, quiz)
	require.NoError(t, err)
	assert.Equal(t, 0.5, result.Feedback[0].Fraction)
	assert.Equal(t, 4.0, result.Feedback[0].PointsEarned)
	assert.Equal(t, 4.0, result.EarnedPoints)
	assert.Equal(t, 50, result.Percentage)
	assert.True(t, result.Passed)
}

func TestGradeAttempt_ExpiredScoresUnansweredAsWrong(t *testing.T) {
	e := newTestEngine()
	quiz := threeQuestionQuiz()
	quiz.TimeLimit = intPtr(60)

	attempt, err := e.CreateAttempt(quiz, "user-1", nil, t0)
	require.NoError(t, err)
	attempt = answerAll(t, e, attempt, map[string]interface{}{"q1": "A"})
	attempt, err = e.SubmitAttempt(attempt, t0.Add(2*time.Minute))
	require.NoError(t, err)
	require.Equal(t, models.AttemptExpired, attempt.Status)

	result, err := e.GradeAttempt(attempt, quiz)
	require.NoError(t, err)
	assert.Equal(t, 30.0, result.TotalPoints)
	assert.Equal(t, 10.0, result.EarnedPoints)
	assert.Equal(t, 33, result.Percentage)
	assert.Equal(t, t0.Add(time.Minute), result.GradedAt)
}

func TestGradeAttempt_ShapeMismatchIsWrong(t *testing.T) {
	e := newTestEngine()
	quiz := threeQuestionQuiz()
	attempt, err := e.CreateAttempt(quiz, "user-1", nil, t0)
	require.NoError(t, err)
	attempt = answerAll(t, e, attempt, map[string]interface{}{"q1": true, "q2": []string{"B"}, "q3": "C"})
	attempt, err = e.SubmitAttempt(attempt, t0)
	require.NoError(t, err)

	result, err := e.GradeAttempt(attempt, quiz)
	require.NoError(t, err)
	assert.Equal(t, 10.0, result.EarnedPoints)
}

func TestGradeAttempt_RequiresClosedAttempt(t *testing.T) {
	e := newTestEngine()
	quiz := threeQuestionQuiz()
	attempt, err := e.CreateAttempt(quiz, "user-1", nil, t0)
	require.NoError(t, err)

	_, err = e.GradeAttempt(attempt, quiz)
	var transition *apperrors.InvalidStateTransitionError
	require.ErrorAs(t, err, &transition)
	assert.Equal(t, ActionGrade, transition.Action)

	attempt, err = e.SubmitAttempt(attempt, t0)
	require.NoError(t, err)
	result, err := e.GradeAttempt(attempt, quiz)
	require.NoError(t, err)

	_, err = e.GradeAttempt(result.Attempt, quiz)
	assert.True(t, apperrors.IsInvalidStateTransition(err), "graded is terminal")
	_, err = e.RecordAnswer(result.Attempt, "q1", "A")
	assert.True(t, apperrors.IsInvalidStateTransition(err))
}

func TestGradeAttempt_QuizMismatch(t *testing.T) {
	e := newTestEngine()
	attempt, err := e.CreateAttempt(threeQuestionQuiz(), "user-1", nil, t0)
	require.NoError(t, err)
	attempt, err = e.SubmitAttempt(attempt, t0)
	require.NoError(t, err)

	other := threeQuestionQuiz()
	other.ID = "quiz-2"
	_, err = e.GradeAttempt(attempt, other)
	assert.True(t, errors.Is(err, ErrQuizMismatch))
}

func TestGradeAttempt_Deterministic(t *testing.T) {
	e := newTestEngine()
	quiz := shuffledQuiz()
	attempt, err := e.CreateAttempt(quiz, "user-1", nil, t0)
	require.NoError(t, err)
	attempt = answerAll(t, e, attempt, map[string]interface{}{
		"q00":  "A",
		"q03":  "B",
		"q07":  "A",
		"sort": map[string][]string{"animals": {"cat"}, "plants": {"oak", "fern", "dog"}},
	})
	attempt, err = e.SubmitAttempt(attempt, t0)
	require.NoError(t, err)

	first, err := e.GradeAttempt(attempt, quiz)
	require.NoError(t, err)
	second, err := e.GradeAttempt(attempt, quiz)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGradeAttempt_FeedbackInCanonicalOrder(t *testing.T) {
	e := newTestEngine()
	quiz := shuffledQuiz()
	attempt, err := e.CreateAttempt(quiz, "user-1", nil, t0)
	require.NoError(t, err)
	attempt, err = e.SubmitAttempt(attempt, t0)
	require.NoError(t, err)

	result, err := e.GradeAttempt(attempt, quiz)
	require.NoError(t, err)

	var ids []string
	for _, fb := range result.Feedback {
		ids = append(ids, fb.QuestionID)
	}
	var canonical []string
	for _, q := range quiz.Questions {
		canonical = append(canonical, q.ID)
	}
	assert.Equal(t, canonical, ids)
	assert.NotEqual(t, canonical, attempt.Presentation.QuestionOrder)
}

func TestPreview_DoesNotChangeStatus(t *testing.T) {
	e := newTestEngine()
	quiz := threeQuestionQuiz()
	attempt, err := e.CreateAttempt(quiz, "user-1", nil, t0)
	require.NoError(t, err)
	attempt = answerAll(t, e, attempt, map[string]interface{}{"q1": "A"})

	result, err := e.Preview(attempt, quiz)
	require.NoError(t, err)
	assert.Equal(t, 10.0, result.EarnedPoints)
	assert.Equal(t, models.AttemptInProgress, result.Attempt.Status)
	assert.Zero(t, attempt.Answers["q1"].PointsEarned)
}

func TestTotalPoints_ShuffleInvariant(t *testing.T) {
	quiz := shuffledQuiz()
	want := quiz.TotalPoints()

	for _, id := range []string{"a", "b", "c", "d"} {
		e := New(WithIDGenerator(func() string { return id }))
		attempt, err := e.CreateAttempt(quiz, "user-"+id, nil, t0)
		require.NoError(t, err)
		attempt, err = e.SubmitAttempt(attempt, t0)
		require.NoError(t, err)

		result, err := e.GradeAttempt(attempt, quiz)
		require.NoError(t, err)
		assert.Equal(t, want, result.TotalPoints)
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 0, Percentage(0, 0))
	assert.Equal(t, 67, Percentage(2, 3))
	assert.Equal(t, 33, Percentage(1, 3))
	assert.Equal(t, 100, Percentage(3, 3))
	assert.Equal(t, 70, Percentage(69.5, 100))
}
