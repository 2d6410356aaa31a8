package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleResult(passed bool) *models.QuizResult {
	gradedAt := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	percentage := 50
	if passed {
		percentage = 80
	}
	return &models.QuizResult{
		Attempt:      &models.QuizAttempt{ID: "attempt-1", QuizID: "quiz-1", UserID: "user-1"},
		Quiz:         &models.Quiz{ID: "quiz-1", LessonID: "lesson-1", Title: "Fractions", PassingScore: 60},
		TotalPoints:  10,
		EarnedPoints: float64(percentage) / 10,
		Percentage:   percentage,
		Passed:       passed,
		GradedAt:     gradedAt,
	}
}

type recordingHandler struct {
	mu       sync.Mutex
	received []models.ResultSummary
	fail     int
	once     sync.Once
	done     chan struct{}
}

func (h *recordingHandler) RecordResult(ctx context.Context, summary models.ResultSummary) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fail > 0 {
		h.fail--
		return errors.New("progress store unavailable")
	}
	h.received = append(h.received, summary)
	h.once.Do(func() { close(h.done) })
	return nil
}

func TestTopics_RoutesResultEvents(t *testing.T) {
	topics := Topics{Notifications: "notifications", Results: "quiz.result"}

	assert.Equal(t, "quiz.result", topics.For(NewQuizResultEvent(sampleResult(true))))
	assert.Equal(t, "notifications", topics.For(NewQuizNotificationEvent(sampleResult(true))))
	assert.Equal(t, "notifications", topics.For(NewAttemptGradedEvent(sampleResult(false))))
}

func TestNewQuizNotificationEvent(t *testing.T) {
	passed := NewQuizNotificationEvent(sampleResult(true))
	assert.Equal(t, EventQuizPassed, passed.Type)
	payload := passed.Data.(QuizNotificationEvent)
	assert.Equal(t, models.NotificationQuizPassed, payload.Type)
	assert.Equal(t, "user-1", payload.RecipientID)
	assert.Equal(t, 80, payload.Percentage)

	failed := NewQuizNotificationEvent(sampleResult(false))
	assert.Equal(t, EventQuizFailed, failed.Type)
	payload = failed.Data.(QuizNotificationEvent)
	assert.Equal(t, models.NotificationQuizFailed, payload.Type)
	assert.Contains(t, payload.Message, "60%")

	assert.NotEmpty(t, failed.ID)
	assert.NotEqual(t, passed.ID, failed.ID)
	assert.Equal(t, "quiz-engine", failed.Source)
}

func TestNewAttemptClosedEvent(t *testing.T) {
	completed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	attempt := &models.QuizAttempt{ID: "a", Status: models.AttemptExpired, CompletedAt: &completed}

	event := NewAttemptClosedEvent(attempt)
	assert.Equal(t, EventAttemptExpired, event.Type)
	assert.Equal(t, completed, event.Data.(AttemptClosedEvent).CompletedAt)

	attempt.Status = models.AttemptSubmitted
	assert.Equal(t, EventAttemptSubmitted, NewAttemptClosedEvent(attempt).Type)
}

func TestDecodeResultEvent(t *testing.T) {
	payload, err := json.Marshal(NewQuizResultEvent(sampleResult(true)))
	require.NoError(t, err)

	summary, err := DecodeResultEvent(payload)
	require.NoError(t, err)
	assert.Equal(t, "attempt-1", summary.AttemptID)
	assert.Equal(t, "lesson-1", summary.LessonID)
	assert.Equal(t, 80, summary.Percentage)
	assert.True(t, summary.Passed)

	other, err := json.Marshal(NewAttemptGradedEvent(sampleResult(true)))
	require.NoError(t, err)
	_, err = DecodeResultEvent(other)
	assert.Error(t, err)

	_, err = DecodeResultEvent([]byte("not json"))
	assert.Error(t, err)
}

func TestMockEventPublisher(t *testing.T) {
	publisher := NewMockEventPublisher(quietLogger())
	ctx := context.Background()

	require.NoError(t, publisher.PublishEvent(ctx, NewQuizResultEvent(sampleResult(true))))
	require.NoError(t, publisher.PublishEvent(ctx, NewQuizNotificationEvent(sampleResult(true))))

	assert.Len(t, publisher.GetPublishedEvents(), 2)
	assert.Len(t, publisher.EventsOfType(EventQuizResult), 1)

	publisher.ClearEvents()
	assert.Empty(t, publisher.GetPublishedEvents())
}

func TestGoChannelBus_DeliversResultsToListener(t *testing.T) {
	logger := quietLogger()
	transport := NewGoChannelTransport(logger)
	defer transport.Close()

	topics := Topics{Notifications: "notifications", Results: "quiz.result"}
	publisher := NewWatermillEventPublisher(transport.Publisher, topics, logger)

	// the first delivery fails and must be redelivered after the nack
	handler := &recordingHandler{fail: 1, done: make(chan struct{})}
	listener := NewResultListener(transport.Subscriber, topics.Results, handler, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopped := make(chan error, 1)
	go func() { stopped <- listener.Run(ctx) }()

	require.True(t, waitClosed(listener.Subscribed(), 5*time.Second), "listener never subscribed")
	require.NoError(t, publisher.PublishEvent(ctx, NewQuizResultEvent(sampleResult(true))))
	require.True(t, waitClosed(handler.done, 5*time.Second), "result was not redelivered")

	handler.mu.Lock()
	require.NotEmpty(t, handler.received)
	assert.Equal(t, "attempt-1", handler.received[0].AttemptID)
	handler.mu.Unlock()

	cancel()
	select {
	case err := <-stopped:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestResultListener_AcksMalformedMessages(t *testing.T) {
	handler := &recordingHandler{done: make(chan struct{})}
	listener := NewResultListener(nil, "quiz.result", handler, quietLogger())

	msg := message.NewMessage("m-1", []byte(`{"type":"quiz.result","data":{}}`))
	listener.handle(context.Background(), msg)

	select {
	case <-msg.Acked():
	default:
		t.Fatal("malformed message should be acked")
	}
	assert.Empty(t, handler.received)
}

func waitClosed(ch <-chan struct{}, d time.Duration) bool {
	select {
	case <-ch:
		return true
	case <-time.After(d):
		return false
	}
}
