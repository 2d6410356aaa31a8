package models

import (
	"time"

	"gorm.io/datatypes"
)

// LessonQuizProgress is the progress tracker's view of one user's quiz history
// within a lesson.
type LessonQuizProgress struct {
	UserID        string     `json:"user_id" gorm:"primaryKey;size:255"`
	QuizID        string     `json:"quiz_id" gorm:"primaryKey;size:64"`
	LessonID      string     `json:"lesson_id" gorm:"not null;size:64;index"`
	Attempts      int        `json:"attempts"`
	BestScore     int        `json:"best_score"`
	Passed        bool       `json:"passed"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`

	// Attempt ids already applied, so redelivered events are ignored.
	AttemptIDs datatypes.JSONSlice[string] `json:"-" gorm:"type:jsonb"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (LessonQuizProgress) TableName() string {
	return "lesson_quiz_progress"
}

func (p *LessonQuizProgress) HasAttempt(attemptID string) bool {
	for _, id := range p.AttemptIDs {
		if id == attemptID {
			return true
		}
	}
	return false
}

// Apply folds one graded result into the progress record. It returns false
// when the attempt was already counted.
func (p *LessonQuizProgress) Apply(summary ResultSummary) bool {
	if p.HasAttempt(summary.AttemptID) {
		return false
	}

	p.AttemptIDs = append(p.AttemptIDs, summary.AttemptID)
	p.Attempts++
	if summary.Percentage > p.BestScore {
		p.BestScore = summary.Percentage
	}
	p.Passed = p.Passed || summary.Passed
	if p.LastAttemptAt == nil || summary.GradedAt.After(*p.LastAttemptAt) {
		gradedAt := summary.GradedAt
		p.LastAttemptAt = &gradedAt
	}
	return true
}
