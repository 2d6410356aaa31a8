package postgres

import (
	"fmt"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"gorm.io/gorm"
)

// liveAttemptIndex allows at most one attempt per (user, quiz) that has not
// been graded yet. It is the storage side of the single live attempt rule.
const liveAttemptIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_quiz_attempts_one_live
	ON quiz_attempts (user_id, quiz_id) WHERE status <> 'graded'`

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Quiz{},
		&models.QuizAttempt{},
		&models.QuizAnswer{},
		&models.QuizResultRecord{},
		&models.LessonQuizProgress{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := db.Exec(liveAttemptIndex).Error; err != nil {
		return fmt.Errorf("create live attempt index: %w", err)
	}
	return nil
}
