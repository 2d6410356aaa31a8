package models

import (
	"time"
)

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptExpired    AttemptStatus = "expired"
	AttemptGraded     AttemptStatus = "graded"
)

func (s AttemptStatus) IsValid() bool {
	switch s {
	case AttemptInProgress, AttemptSubmitted, AttemptExpired, AttemptGraded:
		return true
	}
	return false
}

// IsLive reports whether an attempt in this status still blocks a new attempt
// for the same user and quiz.
func (s AttemptStatus) IsLive() bool {
	return s != AttemptGraded
}

// IsClosed reports whether answers can no longer be recorded.
func (s AttemptStatus) IsClosed() bool {
	return s != AttemptInProgress
}

// Presentation is the order a student saw for one attempt. It is captured once
// at attempt creation and never recomputed from the live quiz.
type Presentation struct {
	Seed          uint64              `json:"seed"`
	QuestionOrder []string            `json:"question_order"`
	OptionOrder   map[string][]string `json:"option_order,omitempty"` // question id -> option/item ids
}

type QuizAttempt struct {
	ID     string        `json:"id" gorm:"primaryKey;size:64"`
	QuizID string        `json:"quiz_id" gorm:"not null;size:64;index:idx_attempt_user_quiz"`
	UserID string        `json:"user_id" gorm:"not null;size:255;index:idx_attempt_user_quiz"`
	Status AttemptStatus `json:"status" gorm:"not null;size:20;index" validate:"required,attempt_status"`

	Presentation Presentation `json:"presentation" gorm:"type:jsonb;serializer:json"`

	// Time limit snapshot, so later quiz edits cannot move the deadline.
	TimeLimit *int       `json:"time_limit,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" gorm:"index"`

	Answers map[string]QuizAnswer `json:"answers" gorm:"-"`

	Score       int        `json:"score"`
	Passed      bool       `json:"passed"`
	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	GradedAt    *time.Time `json:"graded_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}

// Clone returns a copy whose answer map can be modified independently.
func (a *QuizAttempt) Clone() *QuizAttempt {
	out := *a
	out.Answers = make(map[string]QuizAnswer, len(a.Answers))
	for k, v := range a.Answers {
		out.Answers[k] = v
	}
	out.Presentation.QuestionOrder = append([]string(nil), a.Presentation.QuestionOrder...)
	if a.Presentation.OptionOrder != nil {
		out.Presentation.OptionOrder = make(map[string][]string, len(a.Presentation.OptionOrder))
		for k, v := range a.Presentation.OptionOrder {
			out.Presentation.OptionOrder[k] = append([]string(nil), v...)
		}
	}
	return &out
}

// HasQuestion reports whether the question was part of this attempt's presentation.
func (a *QuizAttempt) HasQuestion(questionID string) bool {
	for _, id := range a.Presentation.QuestionOrder {
		if id == questionID {
			return true
		}
	}
	return false
}

// QuizAnswer holds one recorded answer. Answer carries a string, []string, bool
// or a string keyed map depending on the question variant.
type QuizAnswer struct {
	AttemptID    string      `json:"-" gorm:"primaryKey;size:64"`
	QuestionID   string      `json:"question_id" gorm:"primaryKey;size:64"`
	Answer       interface{} `json:"answer" gorm:"type:jsonb;serializer:json"`
	IsCorrect    bool        `json:"is_correct"`
	PointsEarned float64     `json:"points_earned"`
	AnsweredAt   time.Time   `json:"answered_at"`
}

func (QuizAnswer) TableName() string {
	return "quiz_answers"
}
