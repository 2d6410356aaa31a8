package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/cache"
	"github.com/SAP-F-2025/quiz-engine/internal/engine"
	"github.com/SAP-F-2025/quiz-engine/internal/events"
	"github.com/SAP-F-2025/quiz-engine/internal/metrics"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	student = models.Principal{UserID: "student-1", Name: "Sam", Role: models.RoleStudent}
	other   = models.Principal{UserID: "student-2", Name: "Ola", Role: models.RoleStudent}
	teacher = models.Principal{UserID: "teacher-1", Name: "Tess", Role: models.RoleTeacher}

	t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
)

func intPtr(n int) *int { return &n }

// testClock is a settable clock shared by the services under test.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	store     *repositories.MemoryStore
	publisher *events.MockEventPublisher
	metrics   *metrics.Metrics
	clock     *testClock
	services  ServiceManager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithCache(t, nil)
}

func newHarnessWithCache(t *testing.T, cacheService cache.CacheService) *harness {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	n := 0
	h := &harness{
		store:     repositories.NewMemoryStore(),
		publisher: events.NewMockEventPublisher(logger),
		metrics:   metrics.New(),
		clock:     &testClock{now: t0},
	}
	h.services = NewServiceManager(Dependencies{
		Repo: h.store,
		Engine: engine.New(
			engine.WithIDGenerator(func() string { n++; return fmt.Sprintf("attempt-%d", n) }),
			engine.WithClock(h.clock.Now),
		),
		Cache:     cacheService,
		Publisher: h.publisher,
		Metrics:   h.metrics,
		Logger:    logger,
		Clock:     h.clock.Now,
	})
	return h
}

func (h *harness) createQuiz(t *testing.T, quiz *models.Quiz) *models.Quiz {
	t.Helper()
	created, err := h.services.Quiz().Create(context.Background(), quiz, teacher)
	require.NoError(t, err)
	return created
}

func singleChoice(id string, order int, points float64, correct string) models.Question {
	explanation := "because " + correct
	return models.Question{
		ID: id, Type: models.SingleChoice, Question: "question " + id, Points: points, Order: order,
		Explanation: &explanation,
		Content: models.SingleChoiceContent{Options: []models.ChoiceOption{
			{ID: "A", Text: "a", IsCorrect: correct == "A"},
			{ID: "B", Text: "b", IsCorrect: correct == "B"},
		}},
	}
}

func trueFalse(id string, order int, points float64, answer bool) models.Question {
	return models.Question{
		ID: id, Type: models.TrueFalse, Question: "statement " + id, Points: points, Order: order,
		Content: models.TrueFalseContent{CorrectAnswer: answer},
	}
}

// sampleQuiz has 20 points in total and passes at 70%.
func sampleQuiz() *models.Quiz {
	return &models.Quiz{
		ID:           "quiz-1",
		LessonID:     "lesson-1",
		Title:        "Basics",
		PassingScore: 70,
		Questions: []models.Question{
			singleChoice("q1", 1, 10, "A"),
			trueFalse("q2", 2, 10, true),
		},
	}
}

// ===== CACHE MOCK =====

type MockCache struct {
	mock.Mock
}

func (m *MockCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCache) Get(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCache) DeletePattern(ctx context.Context, pattern string) error {
	args := m.Called(ctx, pattern)
	return args.Error(0)
}
