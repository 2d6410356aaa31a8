package repositories

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAttempt(id string) *models.QuizAttempt {
	return &models.QuizAttempt{
		ID:        id,
		QuizID:    "quiz-1",
		UserID:    "user-1",
		Status:    models.AttemptInProgress,
		StartedAt: time.Now().UTC(),
		Presentation: models.Presentation{
			QuestionOrder: []string{"q1"},
		},
		Answers: map[string]models.QuizAnswer{},
	}
}

func TestMemoryStore_CreateWithHistory_SingleLiveAttempt(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	created, rejected := 0, 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Attempt().CreateWithHistory(ctx, "user-1", "quiz-1", func(history []*models.QuizAttempt) (*models.QuizAttempt, error) {
				return newAttempt(fmt.Sprintf("attempt-%d", i)), nil
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
			} else {
				assert.ErrorIs(t, err, ErrDuplicate)
				rejected++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Equal(t, 19, rejected)
}

func TestMemoryStore_CreateWithHistory_PassesHistory(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	first := newAttempt("a1")
	first.Status = models.AttemptGraded
	_, err := store.Attempt().CreateWithHistory(ctx, "user-1", "quiz-1", func(h []*models.QuizAttempt) (*models.QuizAttempt, error) {
		assert.Empty(t, h)
		return first, nil
	})
	require.NoError(t, err)

	builderErr := fmt.Errorf("limit")
	_, err = store.Attempt().CreateWithHistory(ctx, "user-1", "quiz-1", func(h []*models.QuizAttempt) (*models.QuizAttempt, error) {
		require.Len(t, h, 1)
		assert.Equal(t, "a1", h[0].ID)
		return nil, builderErr
	})
	assert.ErrorIs(t, err, builderErr)
}

func TestMemoryStore_AttemptLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	attempts := store.Attempt()

	_, err := attempts.CreateWithHistory(ctx, "user-1", "quiz-1", func([]*models.QuizAttempt) (*models.QuizAttempt, error) {
		return newAttempt("a1"), nil
	})
	require.NoError(t, err)

	require.NoError(t, attempts.UpsertAnswer(ctx, &models.QuizAnswer{AttemptID: "a1", QuestionID: "q1", Answer: "A"}))
	require.NoError(t, attempts.UpsertAnswer(ctx, &models.QuizAnswer{AttemptID: "a1", QuestionID: "q1", Answer: "B"}))
	stored, err := attempts.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "B", stored.Answers["q1"].Answer)

	now := time.Now().UTC()
	closed := stored.Clone()
	closed.Status = models.AttemptSubmitted
	closed.CompletedAt = &now
	require.NoError(t, attempts.Close(ctx, closed))
	assert.ErrorIs(t, attempts.Close(ctx, closed), ErrStaleState)
	assert.ErrorIs(t, attempts.UpsertAnswer(ctx, &models.QuizAnswer{AttemptID: "a1", QuestionID: "q1", Answer: "C"}), ErrStaleState)

	graded := closed.Clone()
	graded.Status = models.AttemptGraded
	graded.Score = 100
	result := &models.QuizResult{
		Attempt:    graded,
		Quiz:       &models.Quiz{ID: "quiz-1", LessonID: "lesson-1"},
		Percentage: 100,
		Passed:     true,
		GradedAt:   now,
	}
	require.NoError(t, attempts.MarkGraded(ctx, result))
	assert.ErrorIs(t, attempts.MarkGraded(ctx, result), ErrStaleState)

	rec, err := store.Result().GetByAttemptID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "lesson-1", rec.LessonID)
	assert.Equal(t, 100, rec.Percentage)

	stored, err = attempts.GetByID(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, models.AttemptGraded, stored.Status)
}

func TestMemoryStore_NotFound(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Attempt().GetByID(ctx, "missing")
	assert.True(t, IsNotFoundError(err))
	_, err = store.Quiz().GetByID(ctx, "missing")
	assert.True(t, IsNotFoundError(err))
	_, err = store.Result().GetByAttemptID(ctx, "missing")
	assert.True(t, IsNotFoundError(err))
	assert.True(t, IsNotFoundError(store.Attempt().UpsertAnswer(ctx, &models.QuizAnswer{AttemptID: "missing"})))
}

func TestMemoryStore_ListOverdue(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	now := time.Now().UTC()

	for i, offset := range []time.Duration{-time.Minute, time.Minute} {
		a := newAttempt(fmt.Sprintf("a%d", i))
		a.UserID = fmt.Sprintf("user-%d", i)
		expiresAt := now.Add(offset)
		a.ExpiresAt = &expiresAt
		_, err := store.Attempt().CreateWithHistory(ctx, a.UserID, a.QuizID, func([]*models.QuizAttempt) (*models.QuizAttempt, error) {
			return a, nil
		})
		require.NoError(t, err)
	}

	overdue, err := store.Attempt().ListOverdue(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "a0", overdue[0].ID)
}

func TestMemoryStore_ProgressApplyIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	progress := store.Progress()

	summary := models.ResultSummary{AttemptID: "a1", QuizID: "quiz-1", LessonID: "lesson-1", UserID: "user-1", Percentage: 55, GradedAt: time.Now().UTC()}
	p, applied, err := progress.Apply(ctx, summary)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 1, p.Attempts)

	_, applied, err = progress.Apply(ctx, summary)
	require.NoError(t, err)
	assert.False(t, applied)

	summary.AttemptID, summary.Percentage, summary.Passed = "a2", 90, true
	p, applied, err = progress.Apply(ctx, summary)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, 2, p.Attempts)
	assert.Equal(t, 90, p.BestScore)
	assert.True(t, p.Passed)

	list, err := progress.ListByLesson(ctx, "user-1", "lesson-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMemoryStore_ListByQuizPagination(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	base := time.Now().UTC()

	for i := 0; i < 5; i++ {
		a := newAttempt(fmt.Sprintf("a%d", i))
		a.UserID = fmt.Sprintf("user-%d", i)
		a.StartedAt = base.Add(time.Duration(i) * time.Minute)
		_, err := store.Attempt().CreateWithHistory(ctx, a.UserID, a.QuizID, func([]*models.QuizAttempt) (*models.QuizAttempt, error) {
			return a, nil
		})
		require.NoError(t, err)
	}

	page, total, err := store.Attempt().ListByQuiz(ctx, "quiz-1", AttemptFilters{Limit: 2, Offset: 1, SortOrder: "desc"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.Equal(t, "a3", page[0].ID)
	assert.Equal(t, "a2", page[1].ID)
}
