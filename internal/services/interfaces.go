package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/cache"
	"github.com/SAP-F-2025/quiz-engine/internal/engine"
	"github.com/SAP-F-2025/quiz-engine/internal/events"
	"github.com/SAP-F-2025/quiz-engine/internal/metrics"
	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/repositories"
	"github.com/SAP-F-2025/quiz-engine/internal/validator"
)

// ===== SERVICE INTERFACES =====

type QuizService interface {
	Create(ctx context.Context, quiz *models.Quiz, principal models.Principal) (*models.Quiz, error)
	Get(ctx context.Context, id string) (*models.Quiz, error)
	// GetForStudent returns the quiz with answer keys removed.
	GetForStudent(ctx context.Context, id string) (*QuizView, error)
	Update(ctx context.Context, id string, quiz *models.Quiz, principal models.Principal) (*models.Quiz, error)
	Delete(ctx context.Context, id string, principal models.Principal) error
	ListByLesson(ctx context.Context, lessonID string) ([]*models.Quiz, error)
	Validate(ctx context.Context, quiz *models.Quiz) error
}

type AttemptService interface {
	Start(ctx context.Context, quizID string, principal models.Principal) (*AttemptView, error)
	RecordAnswer(ctx context.Context, attemptID, questionID string, answer interface{}, principal models.Principal) (*models.QuizAnswer, error)
	Submit(ctx context.Context, attemptID string, principal models.Principal) (*ResultView, error)
	Grade(ctx context.Context, attemptID string) (*models.QuizResult, error)

	GetAttempt(ctx context.Context, attemptID string, principal models.Principal) (*AttemptView, error)
	GetReview(ctx context.Context, attemptID string, principal models.Principal) (*ReviewView, error)
	GetResult(ctx context.Context, attemptID string, principal models.Principal) (*ResultView, error)
	ListAttempts(ctx context.Context, quizID string, filters repositories.AttemptFilters, principal models.Principal) (*AttemptListResponse, error)
	GetTimeRemaining(ctx context.Context, attemptID string, principal models.Principal) (*TimeRemainingResponse, error)

	// ExpireOverdue closes and grades in-progress attempts past their deadline,
	// then grades any closed attempt that was left ungraded.
	ExpireOverdue(ctx context.Context, now time.Time) (*SweepReport, error)
}

type ProgressService interface {
	RecordResult(ctx context.Context, summary models.ResultSummary) error
	GetLessonProgress(ctx context.Context, userID, lessonID string) (*LessonProgressResponse, error)
}

type ExportService interface {
	ExportQuizResults(ctx context.Context, quizID string, format ExportFormat, principal models.Principal) (*ExportFile, error)
}

// NotificationEventService publishes attempt lifecycle events. Publishing is
// best effort: failures are logged and never fail the operation.
type NotificationEventService interface {
	AttemptStarted(ctx context.Context, attempt *models.QuizAttempt, quiz *models.Quiz)
	AttemptClosed(ctx context.Context, attempt *models.QuizAttempt)
	AttemptGraded(ctx context.Context, result *models.QuizResult)
}

// ===== RESPONSES =====

type QuizView struct {
	ID                 string                `json:"id"`
	LessonID           string                `json:"lesson_id"`
	Title              string                `json:"title"`
	PassingScore       int                   `json:"passing_score"`
	TimeLimit          *int                  `json:"time_limit,omitempty"`
	AllowRetake        bool                  `json:"allow_retake"`
	MaxAttempts        *int                  `json:"max_attempts,omitempty"`
	ShowCorrectAnswers bool                  `json:"show_correct_answers"`
	TotalPoints        float64               `json:"total_points"`
	Questions          []engine.QuestionView `json:"questions"`
}

type AttemptView struct {
	ID            string                 `json:"id"`
	QuizID        string                 `json:"quiz_id"`
	UserID        string                 `json:"user_id"`
	Status        models.AttemptStatus   `json:"status"`
	StartedAt     time.Time              `json:"started_at"`
	CompletedAt   *time.Time             `json:"completed_at,omitempty"`
	ExpiresAt     *time.Time             `json:"expires_at,omitempty"`
	TimeRemaining *int64                 `json:"time_remaining,omitempty"` // seconds
	Questions     []engine.QuestionView  `json:"questions,omitempty"`
	Answers       map[string]interface{} `json:"answers"`
	Score         *int                   `json:"score,omitempty"`
	Passed        *bool                  `json:"passed,omitempty"`
}

type ResultView struct {
	AttemptID           string                    `json:"attempt_id"`
	QuizID              string                    `json:"quiz_id"`
	UserID              string                    `json:"user_id"`
	Status              models.AttemptStatus      `json:"status"`
	TotalPoints         float64                   `json:"total_points"`
	EarnedPoints        float64                   `json:"earned_points"`
	Percentage          int                       `json:"percentage"`
	Passed              bool                      `json:"passed"`
	PassingScore        int                       `json:"passing_score"`
	GradedAt            time.Time                 `json:"graded_at"`
	CorrectAnswersShown bool                      `json:"correct_answers_shown"`
	Feedback            []models.QuestionFeedback `json:"feedback"`
}

type ReviewView struct {
	Attempt AttemptView `json:"attempt"`
	Result  *ResultView `json:"result,omitempty"`
}

type AttemptListResponse struct {
	Attempts []AttemptView `json:"attempts"`
	Total    int64         `json:"total"`
	Limit    int           `json:"limit"`
	Offset   int           `json:"offset"`
}

type TimeRemainingResponse struct {
	AttemptID string               `json:"attempt_id"`
	Status    models.AttemptStatus `json:"status"`
	Timed     bool                 `json:"timed"`
	Remaining int64                `json:"remaining_seconds"`
	ExpiresAt *time.Time           `json:"expires_at,omitempty"`
}

type SweepReport struct {
	Expired int `json:"expired"`
	Graded  int `json:"graded"`
	Failed  int `json:"failed"`
}

type LessonProgressResponse struct {
	UserID   string                       `json:"user_id"`
	LessonID string                       `json:"lesson_id"`
	Quizzes  []*models.LessonQuizProgress `json:"quizzes"`
	Passed   int                          `json:"passed"`
	Total    int                          `json:"total"`
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Quiz() QuizService
	Attempt() AttemptService
	Progress() ProgressService
	Export() ExportService
}

// Dependencies carries everything the services are built from. Cache,
// Publisher, Metrics and Clock are optional. SweepBatch caps how many
// attempts one ExpireOverdue pass handles per phase.
type Dependencies struct {
	Repo      repositories.Repository
	Engine    *engine.Engine
	Validator *validator.Validator
	Cache     cache.CacheService
	CacheTTL  time.Duration
	Publisher events.EventPublisher
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Clock     func() time.Time

	SweepBatch int
}

type serviceManager struct {
	quiz     QuizService
	attempt  AttemptService
	progress ProgressService
	export   ExportService
}

func NewServiceManager(deps Dependencies) ServiceManager {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Engine == nil {
		deps.Engine = engine.New(engine.WithValidator(deps.Validator))
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewNoopCache()
	}
	if deps.CacheTTL <= 0 {
		deps.CacheTTL = 10 * time.Minute
	}
	if deps.Publisher == nil {
		deps.Publisher = events.NewMockEventPublisher(deps.Logger)
	}
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Now().UTC() }
	}

	quizzes := NewQuizService(deps.Repo, deps.Engine, deps.Cache, deps.CacheTTL, deps.Logger)
	notifier := NewNotificationEventService(deps.Publisher, deps.Logger)
	return &serviceManager{
		quiz:     quizzes,
		attempt:  NewAttemptService(deps.Repo, quizzes, deps.Engine, deps.Cache, deps.CacheTTL, notifier, deps.Metrics, deps.Logger, deps.Clock, deps.SweepBatch),
		progress: NewProgressService(deps.Repo, deps.Logger),
		export:   NewExportService(deps.Repo, deps.Logger),
	}
}

func (m *serviceManager) Quiz() QuizService         { return m.quiz }
func (m *serviceManager) Attempt() AttemptService   { return m.attempt }
func (m *serviceManager) Progress() ProgressService { return m.progress }
func (m *serviceManager) Export() ExportService     { return m.export }
