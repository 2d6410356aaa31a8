package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuestionFeedback is emitted per question in canonical quiz order.
type QuestionFeedback struct {
	QuestionID    string       `json:"question_id"`
	Type          QuestionType `json:"type"`
	IsCorrect     bool         `json:"is_correct"`
	Fraction      float64      `json:"fraction"`
	PointsEarned  float64      `json:"points_earned"`
	Points        float64      `json:"points"`
	CorrectAnswer interface{}  `json:"correct_answer"`
	UserAnswer    interface{}  `json:"user_answer"`
	Explanation   *string      `json:"explanation,omitempty"`
}

// QuizResult is produced once when an attempt is graded and never mutated.
type QuizResult struct {
	Attempt      *QuizAttempt       `json:"attempt"`
	Quiz         *Quiz              `json:"quiz"`
	TotalPoints  float64            `json:"total_points"`
	EarnedPoints float64            `json:"earned_points"`
	Percentage   int                `json:"percentage"`
	Passed       bool               `json:"passed"`
	Feedback     []QuestionFeedback `json:"feedback"`
	GradedAt     time.Time          `json:"graded_at"`
}

// ResultSummary is the compact form handed to collaborators that do not need
// the full attempt and quiz.
type ResultSummary struct {
	AttemptID    string    `json:"attempt_id"`
	QuizID       string    `json:"quiz_id"`
	LessonID     string    `json:"lesson_id"`
	UserID       string    `json:"user_id"`
	TotalPoints  float64   `json:"total_points"`
	EarnedPoints float64   `json:"earned_points"`
	Percentage   int       `json:"percentage"`
	Passed       bool      `json:"passed"`
	GradedAt     time.Time `json:"graded_at"`
}

func (r *QuizResult) Summary() ResultSummary {
	s := ResultSummary{
		TotalPoints:  r.TotalPoints,
		EarnedPoints: r.EarnedPoints,
		Percentage:   r.Percentage,
		Passed:       r.Passed,
		GradedAt:     r.GradedAt,
	}
	if r.Attempt != nil {
		s.AttemptID = r.Attempt.ID
		s.QuizID = r.Attempt.QuizID
		s.UserID = r.Attempt.UserID
	}
	if r.Quiz != nil {
		s.QuizID = r.Quiz.ID
		s.LessonID = r.Quiz.LessonID
	}
	return s
}

// QuizResultRecord is the stored form of a QuizResult. It is written once, in
// the same transaction that moves the attempt to graded.
type QuizResultRecord struct {
	AttemptID    string                                `json:"attempt_id" gorm:"primaryKey;size:64"`
	QuizID       string                                `json:"quiz_id" gorm:"not null;size:64;index"`
	LessonID     string                                `json:"lesson_id" gorm:"size:64"`
	UserID       string                                `json:"user_id" gorm:"not null;size:255;index"`
	TotalPoints  float64                               `json:"total_points"`
	EarnedPoints float64                               `json:"earned_points"`
	Percentage   int                                   `json:"percentage"`
	Passed       bool                                  `json:"passed"`
	Feedback     datatypes.JSONSlice[QuestionFeedback] `json:"feedback" gorm:"type:jsonb"`
	GradedAt     time.Time                             `json:"graded_at" gorm:"not null"`
}

func (QuizResultRecord) TableName() string {
	return "quiz_results"
}

// Record converts a result to its stored form.
func (r *QuizResult) Record() *QuizResultRecord {
	s := r.Summary()
	return &QuizResultRecord{
		AttemptID:    s.AttemptID,
		QuizID:       s.QuizID,
		LessonID:     s.LessonID,
		UserID:       s.UserID,
		TotalPoints:  s.TotalPoints,
		EarnedPoints: s.EarnedPoints,
		Percentage:   s.Percentage,
		Passed:       s.Passed,
		Feedback:     append(datatypes.JSONSlice[QuestionFeedback]{}, r.Feedback...),
		GradedAt:     s.GradedAt,
	}
}

// Result rebuilds the full result from the stored record and its attempt and quiz.
func (rec *QuizResultRecord) Result(attempt *QuizAttempt, quiz *Quiz) *QuizResult {
	return &QuizResult{
		Attempt:      attempt,
		Quiz:         quiz,
		TotalPoints:  rec.TotalPoints,
		EarnedPoints: rec.EarnedPoints,
		Percentage:   rec.Percentage,
		Passed:       rec.Passed,
		Feedback:     []QuestionFeedback(rec.Feedback),
		GradedAt:     rec.GradedAt,
	}
}

func (rec *QuizResultRecord) Summary() ResultSummary {
	return ResultSummary{
		AttemptID:    rec.AttemptID,
		QuizID:       rec.QuizID,
		LessonID:     rec.LessonID,
		UserID:       rec.UserID,
		TotalPoints:  rec.TotalPoints,
		EarnedPoints: rec.EarnedPoints,
		Percentage:   rec.Percentage,
		Passed:       rec.Passed,
		GradedAt:     rec.GradedAt,
	}
}
