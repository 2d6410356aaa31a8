package services

import (
	"context"
	"log/slog"

	"github.com/SAP-F-2025/quiz-engine/internal/events"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

type notificationEventService struct {
	eventPublisher events.EventPublisher
	logger         *slog.Logger
}

func NewNotificationEventService(eventPublisher events.EventPublisher, logger *slog.Logger) NotificationEventService {
	return &notificationEventService{
		eventPublisher: eventPublisher,
		logger:         logger,
	}
}

// ===== ATTEMPT EVENTS =====

func (s *notificationEventService) AttemptStarted(ctx context.Context, attempt *models.QuizAttempt, quiz *models.Quiz) {
	s.publish(ctx, events.NewAttemptStartedEvent(attempt, quiz))
}

func (s *notificationEventService) AttemptClosed(ctx context.Context, attempt *models.QuizAttempt) {
	s.publish(ctx, events.NewAttemptClosedEvent(attempt))
}

// AttemptGraded emits the result for the progress tracker, the graded
// lifecycle event and the quiz_passed or quiz_failed notification.
func (s *notificationEventService) AttemptGraded(ctx context.Context, result *models.QuizResult) {
	s.publish(ctx, events.NewQuizResultEvent(result))
	s.publish(ctx, events.NewAttemptGradedEvent(result))
	s.publish(ctx, events.NewQuizNotificationEvent(result))
}

func (s *notificationEventService) publish(ctx context.Context, event *events.Event) {
	if err := s.eventPublisher.PublishEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
	}
}
