package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/cache"
	"github.com/SAP-F-2025/quiz-engine/internal/engine"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"github.com/google/uuid"
)

type quizService struct {
	repo     repositories.Repository
	engine   *engine.Engine
	cache    cache.CacheService
	cacheTTL time.Duration
	logger   *slog.Logger
	ops      *ServiceLogger
}

func NewQuizService(repo repositories.Repository, eng *engine.Engine, cacheService cache.CacheService, cacheTTL time.Duration, logger *slog.Logger) QuizService {
	return &quizService{
		repo:     repo,
		engine:   eng,
		cache:    cacheService,
		cacheTTL: cacheTTL,
		logger:   logger,
		ops:      NewServiceLogger(logger, "quiz"),
	}
}

// ===== CRUD =====

func (s *quizService) Create(ctx context.Context, quiz *models.Quiz, principal models.Principal) (result *models.Quiz, err error) {
	start := time.Now()
	defer func() { s.ops.LogOperation(ctx, "create_quiz", principal.UserID, quiz.ID, "quiz", time.Since(start), err) }()

	if !principal.CanManageQuizzes() {
		return nil, NewPermissionError(principal.UserID, quiz.ID, "quiz", "create", "only teachers and admins author quizzes")
	}
	if quiz.ID == "" {
		quiz.ID = uuid.NewString()
	}
	if err := s.engine.ValidateQuiz(quiz); err != nil {
		return nil, err
	}

	if err := s.repo.Quiz().Create(ctx, quiz); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("quiz %s: %w", quiz.ID, ErrConflict)
		}
		return nil, fmt.Errorf("failed to create quiz: %w", err)
	}

	s.cacheQuiz(ctx, quiz)
	return quiz, nil
}

// Get reads through the cache.
func (s *quizService) Get(ctx context.Context, id string) (*models.Quiz, error) {
	var cached models.Quiz
	err := s.cache.Get(ctx, cache.QuizKey(id), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Quiz cache unavailable, reading from store", "quiz_id", id, "error", err)
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	s.cacheQuiz(ctx, quiz)
	return quiz, nil
}

func (s *quizService) GetForStudent(ctx context.Context, id string) (*QuizView, error) {
	quiz, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	questions := engine.Render(quiz, models.Presentation{})
	views := make([]engine.QuestionView, len(questions))
	for i, q := range questions {
		views[i] = engine.Redact(q)
	}

	return &QuizView{
		ID:                 quiz.ID,
		LessonID:           quiz.LessonID,
		Title:              quiz.Title,
		PassingScore:       quiz.PassingScore,
		TimeLimit:          quiz.TimeLimit,
		AllowRetake:        quiz.AllowRetake,
		MaxAttempts:        quiz.MaxAttempts,
		ShowCorrectAnswers: quiz.ShowCorrectAnswers,
		TotalPoints:        quiz.TotalPoints(),
		Questions:          views,
	}, nil
}

// Update replaces the quiz definition. Attempts already started keep their
// frozen presentation.
func (s *quizService) Update(ctx context.Context, id string, quiz *models.Quiz, principal models.Principal) (result *models.Quiz, err error) {
	start := time.Now()
	defer func() { s.ops.LogOperation(ctx, "update_quiz", principal.UserID, id, "quiz", time.Since(start), err) }()

	if !principal.CanManageQuizzes() {
		return nil, NewPermissionError(principal.UserID, id, "quiz", "update", "only teachers and admins author quizzes")
	}

	existing, err := s.repo.Quiz().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	quiz.ID = id
	quiz.CreatedAt = existing.CreatedAt
	if err := s.engine.ValidateQuiz(quiz); err != nil {
		return nil, err
	}

	if err := s.repo.Quiz().Update(ctx, quiz); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to update quiz: %w", err)
	}

	s.evictQuiz(ctx, id)
	return quiz, nil
}

// Delete removes a quiz that has no attempt waiting to be graded.
func (s *quizService) Delete(ctx context.Context, id string, principal models.Principal) (err error) {
	start := time.Now()
	defer func() { s.ops.LogOperation(ctx, "delete_quiz", principal.UserID, id, "quiz", time.Since(start), err) }()

	if !principal.CanManageQuizzes() {
		return NewPermissionError(principal.UserID, id, "quiz", "delete", "only teachers and admins author quizzes")
	}

	_, live, err := s.repo.Attempt().ListByQuiz(ctx, id, repositories.AttemptFilters{LiveOnly: true, Limit: 1})
	if err != nil {
		return fmt.Errorf("failed to check live attempts: %w", err)
	}
	if live > 0 {
		return fmt.Errorf("quiz %s has %d attempts still open or awaiting grading: %w", id, live, ErrConflict)
	}

	if err := s.repo.Quiz().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrQuizNotFound
		}
		return fmt.Errorf("failed to delete quiz: %w", err)
	}

	s.evictQuiz(ctx, id)
	return nil
}

func (s *quizService) ListByLesson(ctx context.Context, lessonID string) ([]*models.Quiz, error) {
	quizzes, err := s.repo.Quiz().ListByLesson(ctx, lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}
	return quizzes, nil
}

func (s *quizService) Validate(ctx context.Context, quiz *models.Quiz) error {
	return s.engine.ValidateQuiz(quiz)
}

// ===== CACHE HELPERS =====

func (s *quizService) cacheQuiz(ctx context.Context, quiz *models.Quiz) {
	if err := s.cache.Set(ctx, cache.QuizKey(quiz.ID), quiz, s.cacheTTL); err != nil {
		s.logger.Warn("Failed to cache quiz", "quiz_id", quiz.ID, "error", err)
	}
}

func (s *quizService) evictQuiz(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, cache.QuizKey(id)); err != nil {
		s.logger.Warn("Failed to evict quiz from cache", "quiz_id", id, "error", err)
	}
}
