package postgres

import (
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"gorm.io/gorm"
)

type repository struct {
	quiz     repositories.QuizRepository
	attempt  repositories.AttemptRepository
	result   repositories.ResultRepository
	progress repositories.ProgressRepository
}

// NewRepository wires every postgres store onto one connection pool.
func NewRepository(db *gorm.DB) repositories.Repository {
	return &repository{
		quiz:     NewQuizPostgreSQL(db),
		attempt:  NewAttemptPostgreSQL(db),
		result:   NewResultPostgreSQL(db),
		progress: NewProgressPostgreSQL(db),
	}
}

func (r *repository) Quiz() repositories.QuizRepository         { return r.quiz }
func (r *repository) Attempt() repositories.AttemptRepository   { return r.attempt }
func (r *repository) Result() repositories.ResultRepository     { return r.result }
func (r *repository) Progress() repositories.ProgressRepository { return r.progress }
