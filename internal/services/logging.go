package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// WithRequestID stores the request id so service logs can be correlated.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// ServiceLogger provides structured logging for service layer operations
type ServiceLogger struct {
	logger *slog.Logger
}

func NewServiceLogger(logger *slog.Logger, service string) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", service),
	}
}

// ===== OPERATION LOGGING =====

// LogOperation writes one line per operation. The level follows the error
// class: caller mistakes are warnings, missing resources are info and
// everything unexpected is an error.
func (l *ServiceLogger) LogOperation(ctx context.Context, operation, userID, resourceID, resourceType string, duration time.Duration, err error) {
	level, status := classify(err)

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.String("resource_id", resourceID),
		slog.String("resource_type", resourceType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		var validationErrs ValidationErrors
		var invalidQuiz *apperrors.InvalidQuizError
		var retake *apperrors.RetakeLimitError
		var permErr *PermissionError
		switch {
		case errors.As(err, &invalidQuiz):
			attrs = append(attrs, slog.Int("validation_errors_count", len(invalidQuiz.Problems)))
		case errors.As(err, &validationErrs):
			attrs = append(attrs, slog.Int("validation_errors_count", len(validationErrs)))
		case errors.As(err, &retake):
			attrs = append(attrs, slog.Int("attempts", retake.Attempts), slog.Int("limit", retake.Limit))
		case errors.As(err, &permErr):
			attrs = append(attrs, slog.String("permission_action", permErr.Action))
		}
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}

	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

func classify(err error) (slog.Level, string) {
	switch {
	case err == nil:
		return slog.LevelInfo, "success"
	case apperrors.IsInvalidStateTransition(err):
		return slog.LevelError, "invalid_transition"
	case IsValidation(err):
		return slog.LevelWarn, "validation_error"
	case IsBusinessRule(err):
		return slog.LevelWarn, "rule_violation"
	case IsConflict(err):
		return slog.LevelWarn, "conflict"
	case IsUnauthorized(err):
		return slog.LevelWarn, "unauthorized"
	case IsNotFound(err):
		return slog.LevelInfo, "not_found"
	default:
		return slog.LevelError, "error"
	}
}

// LogTransitionDefect records a lifecycle contract violation with the
// attempt details the engine reported.
func (l *ServiceLogger) LogTransitionDefect(ctx context.Context, err error) {
	var transition *apperrors.InvalidStateTransitionError
	if !errors.As(err, &transition) {
		return
	}
	l.logger.ErrorContext(ctx, "Invalid attempt state transition",
		"attempt_id", transition.AttemptID,
		"status", transition.Status,
		"action", transition.Action,
		"request_id", RequestIDFromContext(ctx))
}

func (l *ServiceLogger) Logger() *slog.Logger {
	return l.logger
}
