package models

type NotificationType string
type NotificationPriority int

const (
	NotificationQuizPassed      NotificationType = "quiz_passed"
	NotificationQuizFailed      NotificationType = "quiz_failed"
	NotificationResultAvailable NotificationType = "result_available"
	NotificationAttemptExpired  NotificationType = "attempt_expired"

	PriorityLow      NotificationPriority = 1
	PriorityNormal   NotificationPriority = 2
	PriorityHigh     NotificationPriority = 3
	PriorityCritical NotificationPriority = 4
)

// ResultNotificationType picks the quiz_passed / quiz_failed notification for a result.
func ResultNotificationType(passed bool) NotificationType {
	if passed {
		return NotificationQuizPassed
	}
	return NotificationQuizFailed
}
