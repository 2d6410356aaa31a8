package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/google/uuid"
)

// EventType represents the kinds of events the quiz engine emits
type EventType string

const (
	// Attempt lifecycle events
	EventAttemptStarted   EventType = "attempt.started"
	EventAttemptSubmitted EventType = "attempt.submitted"
	EventAttemptExpired   EventType = "attempt.expired"
	EventAttemptGraded    EventType = "attempt.graded"

	// Consumed by the progress tracker
	EventQuizResult EventType = "quiz.result"

	// Consumed by the notification collaborator
	EventQuizPassed EventType = "quiz_passed"
	EventQuizFailed EventType = "quiz_failed"
)

const (
	eventSource  = "quiz-engine"
	eventVersion = "1.0"
)

// Event is the envelope for every published message
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Data      interface{}            `json:"data"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// IsResult reports whether the event goes to the result topic.
func (e *Event) IsResult() bool {
	return e.Type == EventQuizResult
}

// ===== PAYLOADS =====

type AttemptStartedEvent struct {
	AttemptID string     `json:"attempt_id"`
	QuizID    string     `json:"quiz_id"`
	QuizTitle string     `json:"quiz_title"`
	UserID    string     `json:"user_id"`
	StartedAt time.Time  `json:"started_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type AttemptClosedEvent struct {
	AttemptID   string               `json:"attempt_id"`
	QuizID      string               `json:"quiz_id"`
	UserID      string               `json:"user_id"`
	Status      models.AttemptStatus `json:"status"`
	CompletedAt time.Time            `json:"completed_at"`
	Answered    int                  `json:"answered"`
}

type AttemptGradedEvent struct {
	AttemptID    string    `json:"attempt_id"`
	QuizID       string    `json:"quiz_id"`
	UserID       string    `json:"user_id"`
	GradedAt     time.Time `json:"graded_at"`
	EarnedPoints float64   `json:"earned_points"`
	TotalPoints  float64   `json:"total_points"`
	Percentage   int       `json:"percentage"`
	Passed       bool      `json:"passed"`
}

// QuizNotificationEvent is handed to the notification collaborator, which
// owns delivery.
type QuizNotificationEvent struct {
	RecipientID string                      `json:"recipient_id"`
	Type        models.NotificationType     `json:"type"`
	Title       string                      `json:"title"`
	Message     string                      `json:"message"`
	Priority    models.NotificationPriority `json:"priority"`
	AttemptID   string                      `json:"attempt_id"`
	QuizID      string                      `json:"quiz_id"`
	LessonID    string                      `json:"lesson_id"`
	Percentage  int                         `json:"percentage"`
}

// ===== FACTORIES =====

func newEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Source:    eventSource,
		Version:   eventVersion,
		Data:      data,
	}
}

func NewAttemptStartedEvent(attempt *models.QuizAttempt, quiz *models.Quiz) *Event {
	return newEvent(EventAttemptStarted, AttemptStartedEvent{
		AttemptID: attempt.ID,
		QuizID:    attempt.QuizID,
		QuizTitle: quiz.Title,
		UserID:    attempt.UserID,
		StartedAt: attempt.StartedAt,
		ExpiresAt: attempt.ExpiresAt,
	})
}

// NewAttemptClosedEvent returns attempt.submitted or attempt.expired
// depending on how the attempt left in_progress.
func NewAttemptClosedEvent(attempt *models.QuizAttempt) *Event {
	eventType := EventAttemptSubmitted
	if attempt.Status == models.AttemptExpired {
		eventType = EventAttemptExpired
	}
	var completedAt time.Time
	if attempt.CompletedAt != nil {
		completedAt = *attempt.CompletedAt
	}
	return newEvent(eventType, AttemptClosedEvent{
		AttemptID:   attempt.ID,
		QuizID:      attempt.QuizID,
		UserID:      attempt.UserID,
		Status:      attempt.Status,
		CompletedAt: completedAt,
		Answered:    len(attempt.Answers),
	})
}

func NewAttemptGradedEvent(result *models.QuizResult) *Event {
	s := result.Summary()
	return newEvent(EventAttemptGraded, AttemptGradedEvent{
		AttemptID:    s.AttemptID,
		QuizID:       s.QuizID,
		UserID:       s.UserID,
		GradedAt:     s.GradedAt,
		EarnedPoints: s.EarnedPoints,
		TotalPoints:  s.TotalPoints,
		Percentage:   s.Percentage,
		Passed:       s.Passed,
	})
}

func NewQuizResultEvent(result *models.QuizResult) *Event {
	return newEvent(EventQuizResult, result.Summary())
}

// NewQuizNotificationEvent builds the quiz_passed or quiz_failed notification.
func NewQuizNotificationEvent(result *models.QuizResult) *Event {
	s := result.Summary()
	title := ""
	if result.Quiz != nil {
		title = result.Quiz.Title
	}

	payload := QuizNotificationEvent{
		RecipientID: s.UserID,
		Type:        models.ResultNotificationType(s.Passed),
		Priority:    models.PriorityNormal,
		AttemptID:   s.AttemptID,
		QuizID:      s.QuizID,
		LessonID:    s.LessonID,
		Percentage:  s.Percentage,
	}
	eventType := EventQuizFailed
	if s.Passed {
		eventType = EventQuizPassed
		payload.Title = fmt.Sprintf("You passed %s", title)
		payload.Message = fmt.Sprintf("You scored %d%% on %s.", s.Percentage, title)
	} else {
		payload.Title = fmt.Sprintf("%s not passed yet", title)
		payload.Message = fmt.Sprintf("You scored %d%% on %s. The passing score is %d%%.", s.Percentage, title, passingScore(result))
		payload.Priority = models.PriorityHigh
	}
	return newEvent(eventType, payload)
}

func passingScore(result *models.QuizResult) int {
	if result.Quiz == nil {
		return 0
	}
	return result.Quiz.PassingScore
}

// DecodeResultEvent parses a quiz.result message payload.
func DecodeResultEvent(payload []byte) (*models.ResultSummary, error) {
	var envelope struct {
		Type EventType            `json:"type"`
		Data models.ResultSummary `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode event: %w", err)
	}
	if envelope.Type != EventQuizResult {
		return nil, fmt.Errorf("unexpected event type %q", envelope.Type)
	}
	if envelope.Data.AttemptID == "" || envelope.Data.UserID == "" || envelope.Data.QuizID == "" {
		return nil, fmt.Errorf("result event is missing attempt, user or quiz id")
	}
	return &envelope.Data, nil
}
