package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// ===== SHARED ERRORS =====

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrDuplicate      = errors.New("record already exists")
	// ErrStaleState means a conditional write found the row in another state,
	// usually because a concurrent request changed it first.
	ErrStaleState = errors.New("record state changed concurrently")
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrRecordNotFound)
}

// ===== SHARED FILTER STRUCTS =====

type AttemptFilters struct {
	UserID    string               `json:"user_id"`
	Status    models.AttemptStatus `json:"status"`
	LiveOnly  bool                 `json:"live_only"` // not graded yet
	DateFrom  *time.Time           `json:"date_from"`
	DateTo    *time.Time           `json:"date_to"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortOrder string               `json:"sort_order"` // "asc", "desc" on started_at
}

// AttemptBuilder receives the user's existing attempts for a quiz and returns
// the attempt to insert, or an error to abort creation.
type AttemptBuilder func(history []*models.QuizAttempt) (*models.QuizAttempt, error)

// ===== REPOSITORIES =====

// Repository groups the stores the services work with.
type Repository interface {
	Quiz() QuizRepository
	Attempt() AttemptRepository
	Result() ResultRepository
	Progress() ProgressRepository
}

type QuizRepository interface {
	Create(ctx context.Context, quiz *models.Quiz) error
	GetByID(ctx context.Context, id string) (*models.Quiz, error)
	Update(ctx context.Context, quiz *models.Quiz) error
	Delete(ctx context.Context, id string) error
	ListByLesson(ctx context.Context, lessonID string) ([]*models.Quiz, error)
}

// AttemptRepository owns attempts and their answers. Its writes are the
// serialisation points for concurrent requests on the same attempt.
type AttemptRepository interface {
	// CreateWithHistory loads the user's attempts for the quiz, lets build
	// decide, and inserts the result in one atomic step. A concurrent live
	// attempt for the same (user, quiz) yields ErrDuplicate.
	CreateWithHistory(ctx context.Context, userID, quizID string, build AttemptBuilder) (*models.QuizAttempt, error)

	// GetByID returns the attempt with its answers.
	GetByID(ctx context.Context, id string) (*models.QuizAttempt, error)
	ListByUserAndQuiz(ctx context.Context, userID, quizID string) ([]*models.QuizAttempt, error)
	ListByQuiz(ctx context.Context, quizID string, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)

	// UpsertAnswer writes one answer, last write wins. It fails with
	// ErrStaleState once the attempt is no longer in progress.
	UpsertAnswer(ctx context.Context, answer *models.QuizAnswer) error

	// Close moves an in-progress attempt to submitted or expired. Only one
	// caller can win; the others get ErrStaleState.
	Close(ctx context.Context, attempt *models.QuizAttempt) error

	// MarkGraded moves a submitted or expired attempt to graded, stores the
	// scored answers and the result record. A second call gets ErrStaleState.
	MarkGraded(ctx context.Context, result *models.QuizResult) error

	// ListOverdue returns in-progress attempts whose deadline is before now.
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]*models.QuizAttempt, error)
	// ListClosed returns submitted or expired attempts still waiting for grading.
	ListClosed(ctx context.Context, limit int) ([]*models.QuizAttempt, error)
}

type ResultRepository interface {
	GetByAttemptID(ctx context.Context, attemptID string) (*models.QuizResultRecord, error)
	ListByQuiz(ctx context.Context, quizID string) ([]*models.QuizResultRecord, error)
}

type ProgressRepository interface {
	Get(ctx context.Context, userID, quizID string) (*models.LessonQuizProgress, error)
	ListByLesson(ctx context.Context, userID, lessonID string) ([]*models.LessonQuizProgress, error)
	// Apply folds a graded result into the user's progress. It reports false
	// when that attempt had already been applied.
	Apply(ctx context.Context, summary models.ResultSummary) (*models.LessonQuizProgress, bool, error)
}
