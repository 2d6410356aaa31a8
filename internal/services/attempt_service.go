package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/cache"
	"github.com/SAP-F-2025/quiz-engine/internal/engine"
	apperrors "github.com/SAP-F-2025/quiz-engine/internal/errors"
	"github.com/SAP-F-2025/quiz-engine/internal/metrics"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
)

const defaultSweepBatch = 100

type attemptService struct {
	repo     repositories.Repository
	quizzes  QuizService
	engine   *engine.Engine
	cache    cache.CacheService
	cacheTTL time.Duration
	notifier NotificationEventService
	metrics  *metrics.Metrics
	logger   *slog.Logger
	ops      *ServiceLogger
	now      func() time.Time

	sweepBatch int
}

func NewAttemptService(
	repo repositories.Repository,
	quizzes QuizService,
	eng *engine.Engine,
	cacheService cache.CacheService,
	cacheTTL time.Duration,
	notifier NotificationEventService,
	m *metrics.Metrics,
	logger *slog.Logger,
	now func() time.Time,
	sweepBatch int,
) AttemptService {
	if sweepBatch <= 0 {
		sweepBatch = defaultSweepBatch
	}
	return &attemptService{
		repo:     repo,
		quizzes:  quizzes,
		engine:   eng,
		cache:    cacheService,
		cacheTTL: cacheTTL,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		ops:      NewServiceLogger(logger, "attempt"),
		now:      now,

		sweepBatch: sweepBatch,
	}
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) Start(ctx context.Context, quizID string, principal models.Principal) (view *AttemptView, err error) {
	start := time.Now()
	defer func() { s.ops.LogOperation(ctx, "start_attempt", principal.UserID, quizID, "quiz", time.Since(start), err) }()

	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	attempt, err := s.create(ctx, quiz, principal.UserID, now)
	if errors.Is(err, apperrors.ErrActiveAttemptExists) && s.settleStale(ctx, principal.UserID, quizID, now) {
		attempt, err = s.create(ctx, quiz, principal.UserID, now)
	}
	if err != nil {
		s.metrics.AttemptRejected(rejectReason(err))
		return nil, err
	}

	s.metrics.AttemptStarted()
	s.notifier.AttemptStarted(ctx, attempt, quiz)
	s.logger.Info("Quiz attempt started",
		"attempt_id", attempt.ID,
		"quiz_id", quizID,
		"user_id", principal.UserID,
		"expires_at", attempt.ExpiresAt)

	return toAttemptView(attempt, quiz, now, false), nil
}

func (s *attemptService) RecordAnswer(ctx context.Context, attemptID, questionID string, answer interface{}, principal models.Principal) (saved *models.QuizAnswer, err error) {
	start := time.Now()
	defer func() { s.ops.LogOperation(ctx, "record_answer", principal.UserID, attemptID, "attempt", time.Since(start), err) }()

	attempt, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(attempt, principal); err != nil {
		return nil, err
	}

	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptAlreadySubmitted
	}

	now := s.now()
	if engine.IsExpired(attempt, now) {
		if _, err := s.closeAndGrade(ctx, attempt, now); err != nil && !errors.Is(err, ErrAttemptAlreadySubmitted) {
			s.logger.Error("Failed to expire overdue attempt", "attempt_id", attemptID, "error", err)
		}
		return nil, ErrAttemptTimeExpired
	}

	next, err := s.engine.RecordAnswer(attempt, questionID, answer)
	if err != nil {
		s.ops.LogTransitionDefect(ctx, err)
		return nil, err
	}

	recorded := next.Answers[questionID]
	if err := s.repo.Attempt().UpsertAnswer(ctx, &recorded); err != nil {
		if errors.Is(err, repositories.ErrStaleState) {
			s.metrics.StaleWrite("answer")
			return nil, ErrAttemptAlreadySubmitted
		}
		if repositories.IsNotFoundError(err) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("failed to save answer: %w", err)
	}

	return &recorded, nil
}

// Submit closes the attempt and grades it. Of two concurrent submits (or a
// submit racing the expiry sweep) only one closes the attempt; the other gets
// ErrAttemptAlreadySubmitted and grades nothing.
func (s *attemptService) Submit(ctx context.Context, attemptID string, principal models.Principal) (view *ResultView, err error) {
	start := time.Now()
	defer func() { s.ops.LogOperation(ctx, "submit_attempt", principal.UserID, attemptID, "attempt", time.Since(start), err) }()

	attempt, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOwner(attempt, principal); err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptInProgress {
		return nil, ErrAttemptAlreadySubmitted
	}

	result, err := s.closeAndGrade(ctx, attempt, s.now())
	if err != nil {
		return nil, err
	}
	return toResultView(result, s.canReveal(result.Quiz, result.Attempt, principal)), nil
}

// Grade grades a closed attempt. Grading an attempt that is already graded
// returns the stored result.
func (s *attemptService) Grade(ctx context.Context, attemptID string) (result *models.QuizResult, err error) {
	start := time.Now()
	defer func() { s.ops.LogOperation(ctx, "grade_attempt", "", attemptID, "attempt", time.Since(start), err) }()

	attempt, err := s.loadAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.Status == models.AttemptGraded {
		return s.storedResult(ctx, attempt)
	}
	return s.grade(ctx, attempt)
}

// ===== READS =====

func (s *attemptService) GetAttempt(ctx context.Context, attemptID string, principal models.Principal) (*AttemptView, error) {
	attempt, quiz, err := s.loadVisible(ctx, attemptID, principal)
	if err != nil {
		return nil, err
	}
	return toAttemptView(attempt, quiz, s.now(), s.canReveal(quiz, attempt, principal)), nil
}

func (s *attemptService) GetReview(ctx context.Context, attemptID string, principal models.Principal) (*ReviewView, error) {
	attempt, quiz, err := s.loadVisible(ctx, attemptID, principal)
	if err != nil {
		return nil, err
	}

	reveal := s.canReveal(quiz, attempt, principal)
	review := &ReviewView{Attempt: *toAttemptView(attempt, quiz, s.now(), reveal)}
	if attempt.Status == models.AttemptGraded {
		result, err := s.storedResult(ctx, attempt)
		if err != nil {
			return nil, err
		}
		review.Result = toResultView(result, reveal)
	}
	return review, nil
}

func (s *attemptService) GetResult(ctx context.Context, attemptID string, principal models.Principal) (*ResultView, error) {
	attempt, quiz, err := s.loadVisible(ctx, attemptID, principal)
	if err != nil {
		return nil, err
	}
	if attempt.Status != models.AttemptGraded {
		return nil, ErrAttemptNotGraded
	}

	result, err := s.storedResult(ctx, attempt)
	if err != nil {
		return nil, err
	}
	return toResultView(result, s.canReveal(quiz, attempt, principal)), nil
}

func (s *attemptService) ListAttempts(ctx context.Context, quizID string, filters repositories.AttemptFilters, principal models.Principal) (*AttemptListResponse, error) {
	if !principal.CanReviewOthers() {
		filters.UserID = principal.UserID
	}
	filters.Limit, filters.Offset = normalizePage(filters.Limit, filters.Offset)

	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return nil, err
	}

	attempts, total, err := s.repo.Attempt().ListByQuiz(ctx, quizID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	now := s.now()
	views := make([]AttemptView, 0, len(attempts))
	for _, a := range attempts {
		v := toAttemptView(a, quiz, now, false)
		v.Questions = nil
		views = append(views, *v)
	}

	return &AttemptListResponse{
		Attempts: views,
		Total:    total,
		Limit:    filters.Limit,
		Offset:   filters.Offset,
	}, nil
}

func (s *attemptService) GetTimeRemaining(ctx context.Context, attemptID string, principal models.Principal) (*TimeRemainingResponse, error) {
	attempt, _, err := s.loadVisible(ctx, attemptID, principal)
	if err != nil {
		return nil, err
	}

	resp := &TimeRemainingResponse{
		AttemptID: attempt.ID,
		Status:    attempt.Status,
		ExpiresAt: attempt.ExpiresAt,
	}
	remaining, timed := engine.TimeRemaining(attempt, s.now())
	resp.Timed = timed
	if timed && attempt.Status == models.AttemptInProgress {
		resp.Remaining = int64(remaining / time.Second)
	}
	return resp, nil
}

// ===== SWEEPER =====

func (s *attemptService) ExpireOverdue(ctx context.Context, now time.Time) (*SweepReport, error) {
	report := &SweepReport{}

	overdue, err := s.repo.Attempt().ListOverdue(ctx, now, s.sweepBatch)
	if err != nil {
		return nil, fmt.Errorf("failed to list overdue attempts: %w", err)
	}
	for _, attempt := range overdue {
		full, err := s.loadAttempt(ctx, attempt.ID)
		if err == nil {
			_, err = s.closeAndGrade(ctx, full, now)
		}
		switch {
		case err == nil:
			report.Expired++
			report.Graded++
		case errors.Is(err, ErrAttemptAlreadySubmitted):
			// closed by the student in the meantime
		default:
			report.Failed++
			s.logger.Error("Failed to expire attempt", "attempt_id", attempt.ID, "error", err)
		}
	}

	closed, err := s.repo.Attempt().ListClosed(ctx, s.sweepBatch)
	if err != nil {
		return nil, fmt.Errorf("failed to list closed attempts: %w", err)
	}
	for _, attempt := range closed {
		full, err := s.loadAttempt(ctx, attempt.ID)
		if err == nil {
			_, err = s.grade(ctx, full)
		}
		if err != nil {
			report.Failed++
			s.logger.Error("Failed to grade closed attempt", "attempt_id", attempt.ID, "error", err)
			continue
		}
		report.Graded++
	}

	if report.Expired > 0 || report.Graded > 0 || report.Failed > 0 {
		s.logger.Info("Attempt sweep finished",
			"expired", report.Expired,
			"graded", report.Graded,
			"failed", report.Failed)
	}
	return report, nil
}
