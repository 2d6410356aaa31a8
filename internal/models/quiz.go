package models

import (
	"time"

	"gorm.io/gorm"
)

type Quiz struct {
	ID       string `json:"id" gorm:"primaryKey;size:64"`
	LessonID string `json:"lesson_id" gorm:"not null;size:64;index" validate:"required"`
	Title    string `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`

	PassingScore int  `json:"passing_score" gorm:"not null" validate:"min=0,max=100"`
	TimeLimit    *int `json:"time_limit,omitempty" validate:"omitempty,min=1"` // seconds

	ShuffleQuestions   bool `json:"shuffle_questions" gorm:"default:false"`
	ShuffleOptions     bool `json:"shuffle_options" gorm:"default:false"`
	ShowCorrectAnswers bool `json:"show_correct_answers" gorm:"default:false"`
	AllowRetake        bool `json:"allow_retake" gorm:"default:false"`
	MaxAttempts        *int `json:"max_attempts,omitempty" validate:"omitempty,min=1"`

	Questions []Question `json:"questions" gorm:"type:jsonb;serializer:json" validate:"required,min=1,dive"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// TotalPoints sums question points over the canonical question set.
func (q *Quiz) TotalPoints() float64 {
	var total float64
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// QuestionByID returns the canonical question with the given id.
func (q *Quiz) QuestionByID(id string) (Question, bool) {
	for _, question := range q.Questions {
		if question.ID == id {
			return question, true
		}
	}
	return Question{}, false
}

// TimeLimitDuration returns the time limit, or zero when the quiz is untimed.
func (q *Quiz) TimeLimitDuration() time.Duration {
	if q.TimeLimit == nil {
		return 0
	}
	return time.Duration(*q.TimeLimit) * time.Second
}
