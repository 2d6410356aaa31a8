package postgres

import (
	"context"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptPostgreSQL struct {
	db      *gorm.DB
	helpers *SharedHelpers
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{
		db:      db,
		helpers: NewSharedHelpers(db),
	}
}

func (a AttemptPostgreSQL) CreateWithHistory(ctx context.Context, userID, quizID string, build repositories.AttemptBuilder) (*models.QuizAttempt, error) {
	var created *models.QuizAttempt

	err := a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serialise creators for the same pair so the history read and the
		// insert cannot interleave. The partial unique index backs this up.
		if err := tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", userID+"/"+quizID).Error; err != nil {
			return err
		}

		var history []*models.QuizAttempt
		if err := tx.
			Where("user_id = ? AND quiz_id = ?", userID, quizID).
			Order("started_at ASC").
			Find(&history).Error; err != nil {
			return err
		}

		attempt, err := build(history)
		if err != nil {
			return err
		}
		if err := tx.Create(attempt).Error; err != nil {
			return translateError(err)
		}
		created = attempt
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (a AttemptPostgreSQL) GetByID(ctx context.Context, id string) (*models.QuizAttempt, error) {
	var attempt models.QuizAttempt
	if err := a.db.WithContext(ctx).First(&attempt, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}

	var answers []models.QuizAnswer
	if err := a.db.WithContext(ctx).Where("attempt_id = ?", id).Find(&answers).Error; err != nil {
		return nil, err
	}
	attempt.Answers = make(map[string]models.QuizAnswer, len(answers))
	for _, answer := range answers {
		attempt.Answers[answer.QuestionID] = answer
	}

	return &attempt, nil
}

func (a AttemptPostgreSQL) ListByUserAndQuiz(ctx context.Context, userID, quizID string) ([]*models.QuizAttempt, error) {
	var attempts []*models.QuizAttempt
	if err := a.db.WithContext(ctx).
		Where("user_id = ? AND quiz_id = ?", userID, quizID).
		Order("started_at ASC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

// ListByQuiz returns attempts without their answers.
func (a AttemptPostgreSQL) ListByQuiz(ctx context.Context, quizID string, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	var attempts []*models.QuizAttempt
	var total int64

	// apply filter first
	query := a.db.WithContext(ctx).Model(&models.QuizAttempt{}).Where("quiz_id = ?", quizID)
	query = a.helpers.ApplyAttemptFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = a.helpers.ApplyPaginationAndSort(query, "started_at", filters.SortOrder, filters.Limit, filters.Offset)

	if err := query.Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a AttemptPostgreSQL) UpsertAnswer(ctx context.Context, answer *models.QuizAnswer) error {
	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A share lock lets concurrent autosaves proceed together while a
		// submit, which updates the row, waits for them or they for it.
		var attempt models.QuizAttempt
		if err := tx.
			Clauses(clause.Locking{Strength: "SHARE"}).
			Select("id", "status").
			First(&attempt, "id = ?", answer.AttemptID).Error; err != nil {
			return translateError(err)
		}
		if attempt.Status != models.AttemptInProgress {
			return repositories.ErrStaleState
		}

		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "attempt_id"}, {Name: "question_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"answer", "answered_at"}),
		}).Create(answer).Error
	})
}

func (a AttemptPostgreSQL) Close(ctx context.Context, attempt *models.QuizAttempt) error {
	result := a.db.WithContext(ctx).
		Model(&models.QuizAttempt{}).
		Where("id = ? AND status = ?", attempt.ID, models.AttemptInProgress).
		Updates(map[string]interface{}{
			"status":       attempt.Status,
			"completed_at": attempt.CompletedAt,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return staleOrMissing(a.db.WithContext(ctx), attempt.ID)
	}
	return nil
}

func (a AttemptPostgreSQL) MarkGraded(ctx context.Context, result *models.QuizResult) error {
	graded := result.Attempt

	return a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.
			Model(&models.QuizAttempt{}).
			Where("id = ? AND status IN ?", graded.ID, []models.AttemptStatus{models.AttemptSubmitted, models.AttemptExpired}).
			Updates(map[string]interface{}{
				"status":     models.AttemptGraded,
				"score":      graded.Score,
				"passed":     graded.Passed,
				"graded_at":  graded.GradedAt,
				"updated_at": time.Now().UTC(),
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return staleOrMissing(tx, graded.ID)
		}

		for _, answer := range graded.Answers {
			if err := tx.
				Model(&models.QuizAnswer{}).
				Where("attempt_id = ? AND question_id = ?", graded.ID, answer.QuestionID).
				Updates(map[string]interface{}{
					"is_correct":    answer.IsCorrect,
					"points_earned": answer.PointsEarned,
				}).Error; err != nil {
				return err
			}
		}

		return translateError(tx.Create(result.Record()).Error)
	})
}

func (a AttemptPostgreSQL) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*models.QuizAttempt, error) {
	var attempts []*models.QuizAttempt
	query := a.db.WithContext(ctx).
		Where("status = ? AND expires_at < ?", models.AttemptInProgress, now).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (a AttemptPostgreSQL) ListClosed(ctx context.Context, limit int) ([]*models.QuizAttempt, error) {
	var attempts []*models.QuizAttempt
	query := a.db.WithContext(ctx).
		Where("status IN ?", []models.AttemptStatus{models.AttemptSubmitted, models.AttemptExpired}).
		Order("completed_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

// staleOrMissing explains a conditional update that matched no row. Inside a
// transaction db must be the transaction handle.
func staleOrMissing(db *gorm.DB, id string) error {
	var count int64
	if err := db.Model(&models.QuizAttempt{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return repositories.ErrRecordNotFound
	}
	return repositories.ErrStaleState
}
