package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/ThreeDotsLabs/watermill/message"
)

// ResultHandler receives graded results from the quiz.result topic.
type ResultHandler interface {
	RecordResult(ctx context.Context, summary models.ResultSummary) error
}

// ResultListener feeds quiz.result messages to the progress tracker.
// Malformed messages are acked and dropped; handler failures are nacked so
// the transport redelivers them.
type ResultListener struct {
	subscriber message.Subscriber
	topic      string
	handler    ResultHandler
	logger     *slog.Logger
	subscribed chan struct{}
}

func NewResultListener(subscriber message.Subscriber, topic string, handler ResultHandler, logger *slog.Logger) *ResultListener {
	return &ResultListener{
		subscriber: subscriber,
		topic:      topic,
		handler:    handler,
		logger:     logger,
		subscribed: make(chan struct{}),
	}
}

// Subscribed is closed once Run holds its subscription. In-process
// transports drop messages published before that point.
func (l *ResultListener) Subscribed() <-chan struct{} {
	return l.subscribed
}

// Run blocks until ctx is cancelled or the subscription ends. It must only
// be called once.
func (l *ResultListener) Run(ctx context.Context) error {
	messages, err := l.subscriber.Subscribe(ctx, l.topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", l.topic, err)
	}

	l.logger.Info("Result listener started", "topic", l.topic)
	close(l.subscribed)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			l.handle(ctx, msg)
		}
	}
}

func (l *ResultListener) handle(ctx context.Context, msg *message.Message) {
	summary, err := DecodeResultEvent(msg.Payload)
	if err != nil {
		l.logger.Warn("Dropping malformed result event", "message_id", msg.UUID, "error", err)
		msg.Ack()
		return
	}

	if err := l.handler.RecordResult(ctx, *summary); err != nil {
		l.logger.Error("Failed to record quiz result",
			"message_id", msg.UUID,
			"attempt_id", summary.AttemptID,
			"error", err)
		msg.Nack()
		return
	}
	msg.Ack()
}
