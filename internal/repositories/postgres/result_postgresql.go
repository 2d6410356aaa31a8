package postgres

import (
	"context"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ResultPostgreSQL struct {
	db *gorm.DB
}

func NewResultPostgreSQL(db *gorm.DB) repositories.ResultRepository {
	return &ResultPostgreSQL{db: db}
}

func (r ResultPostgreSQL) GetByAttemptID(ctx context.Context, attemptID string) (*models.QuizResultRecord, error) {
	var record models.QuizResultRecord
	if err := r.db.WithContext(ctx).First(&record, "attempt_id = ?", attemptID).Error; err != nil {
		return nil, translateError(err)
	}
	return &record, nil
}

func (r ResultPostgreSQL) ListByQuiz(ctx context.Context, quizID string) ([]*models.QuizResultRecord, error) {
	var records []*models.QuizResultRecord
	if err := r.db.WithContext(ctx).
		Where("quiz_id = ?", quizID).
		Order("graded_at ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

type ProgressPostgreSQL struct {
	db *gorm.DB
}

func NewProgressPostgreSQL(db *gorm.DB) repositories.ProgressRepository {
	return &ProgressPostgreSQL{db: db}
}

func (p ProgressPostgreSQL) Get(ctx context.Context, userID, quizID string) (*models.LessonQuizProgress, error) {
	var progress models.LessonQuizProgress
	if err := p.db.WithContext(ctx).First(&progress, "user_id = ? AND quiz_id = ?", userID, quizID).Error; err != nil {
		return nil, translateError(err)
	}
	return &progress, nil
}

func (p ProgressPostgreSQL) ListByLesson(ctx context.Context, userID, lessonID string) ([]*models.LessonQuizProgress, error) {
	var progress []*models.LessonQuizProgress
	if err := p.db.WithContext(ctx).
		Where("user_id = ? AND lesson_id = ?", userID, lessonID).
		Order("quiz_id ASC").
		Find(&progress).Error; err != nil {
		return nil, err
	}
	return progress, nil
}

func (p ProgressPostgreSQL) Apply(ctx context.Context, summary models.ResultSummary) (*models.LessonQuizProgress, bool, error) {
	var progress models.LessonQuizProgress
	var applied bool

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := models.LessonQuizProgress{
			UserID:     summary.UserID,
			QuizID:     summary.QuizID,
			LessonID:   summary.LessonID,
			AttemptIDs: []string{},
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&progress, "user_id = ? AND quiz_id = ?", summary.UserID, summary.QuizID).Error; err != nil {
			return translateError(err)
		}

		applied = progress.Apply(summary)
		if !applied {
			return nil
		}
		return tx.Save(&progress).Error
	})
	if err != nil {
		return nil, false, err
	}
	return &progress, applied, nil
}
