package config

import (
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/quiz-engine/internal/events"
)

const (
	PublisherKafka     = "kafka"
	PublisherGoChannel = "gochannel"
	PublisherMock      = "mock"
)

// EventConfig holds configuration for event publishing and consumption
type EventConfig struct {
	Enabled           bool
	Publisher         string // kafka, gochannel or mock
	KafkaBrokers      string
	NotificationTopic string
	ResultTopic       string
	ConsumerGroup     string
}

func LoadEventConfig() EventConfig {
	return EventConfig{
		Enabled:           getEnvBool("EVENTS_ENABLED", true),
		Publisher:         strings.ToLower(getEnv("EVENTS_PUBLISHER", PublisherKafka)),
		KafkaBrokers:      getEnv("KAFKA_BROKERS", "localhost:9092"),
		NotificationTopic: getEnv("NOTIFICATION_TOPIC", "notifications"),
		ResultTopic:       getEnv("RESULT_TOPIC", "quiz.result"),
		ConsumerGroup:     getEnv("CONSUMER_GROUP", "quiz-engine-progress"),
	}
}

// GetKafkaBrokers returns Kafka brokers as a slice
func (c *EventConfig) GetKafkaBrokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (c *EventConfig) Topics() events.Topics {
	return events.Topics{
		Notifications: c.NotificationTopic,
		Results:       c.ResultTopic,
	}
}

// CreateEventBus creates the event publisher and, unless events are mocked,
// the transport whose subscriber feeds the result listener.
func (c *EventConfig) CreateEventBus(logger *slog.Logger) (events.EventPublisher, *events.Transport, error) {
	if !c.Enabled {
		logger.Info("Event publishing disabled, using mock publisher")
		return events.NewMockEventPublisher(logger), nil, nil
	}

	switch c.Publisher {
	case PublisherKafka:
		logger.Info("Creating Kafka event bus",
			"brokers", c.KafkaBrokers,
			"notification_topic", c.NotificationTopic,
			"result_topic", c.ResultTopic)

		transport, err := events.NewKafkaTransport(events.KafkaConfig{
			Brokers:       c.GetKafkaBrokers(),
			ConsumerGroup: c.ConsumerGroup,
			Logger:        logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return events.NewWatermillEventPublisher(transport.Publisher, c.Topics(), logger), transport, nil
	case PublisherGoChannel:
		logger.Info("Using in-process event bus")
		transport := events.NewGoChannelTransport(logger)
		return events.NewWatermillEventPublisher(transport.Publisher, c.Topics(), logger), transport, nil
	case PublisherMock:
		logger.Info("Using mock event publisher")
		return events.NewMockEventPublisher(logger), nil, nil
	default:
		logger.Warn("Unknown event publisher type, falling back to mock", "publisher", c.Publisher)
		return events.NewMockEventPublisher(logger), nil, nil
	}
}
