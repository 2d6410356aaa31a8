package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// MemoryStore implements every repository in this package behind one mutex.
// It gives the same atomicity guarantees as the postgres implementation and
// is used for development and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	quizzes  map[string]*models.Quiz
	attempts map[string]*models.QuizAttempt
	results  map[string]*models.QuizResultRecord
	progress map[string]*models.LessonQuizProgress
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		quizzes:  map[string]*models.Quiz{},
		attempts: map[string]*models.QuizAttempt{},
		results:  map[string]*models.QuizResultRecord{},
		progress: map[string]*models.LessonQuizProgress{},
	}
}

var _ Repository = (*MemoryStore)(nil)

func (m *MemoryStore) Quiz() QuizRepository         { return memoryQuizzes{m} }
func (m *MemoryStore) Attempt() AttemptRepository   { return memoryAttempts{m} }
func (m *MemoryStore) Result() ResultRepository     { return memoryResults{m} }
func (m *MemoryStore) Progress() ProgressRepository { return memoryProgress{m} }

func copyQuiz(q *models.Quiz) *models.Quiz {
	out := *q
	out.Questions = append([]models.Question(nil), q.Questions...)
	return &out
}

// ===== QUIZZES =====

type memoryQuizzes struct{ m *MemoryStore }

func (r memoryQuizzes) Create(ctx context.Context, quiz *models.Quiz) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.quizzes[quiz.ID]; ok {
		return ErrDuplicate
	}
	now := time.Now().UTC()
	quiz.CreatedAt, quiz.UpdatedAt = now, now
	r.m.quizzes[quiz.ID] = copyQuiz(quiz)
	return nil
}

func (r memoryQuizzes) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	q, ok := r.m.quizzes[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return copyQuiz(q), nil
}

func (r memoryQuizzes) Update(ctx context.Context, quiz *models.Quiz) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	existing, ok := r.m.quizzes[quiz.ID]
	if !ok {
		return ErrRecordNotFound
	}
	quiz.CreatedAt = existing.CreatedAt
	quiz.UpdatedAt = time.Now().UTC()
	r.m.quizzes[quiz.ID] = copyQuiz(quiz)
	return nil
}

func (r memoryQuizzes) Delete(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.quizzes[id]; !ok {
		return ErrRecordNotFound
	}
	delete(r.m.quizzes, id)
	return nil
}

func (r memoryQuizzes) ListByLesson(ctx context.Context, lessonID string) ([]*models.Quiz, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*models.Quiz
	for _, q := range r.m.quizzes {
		if q.LessonID == lessonID {
			out = append(out, copyQuiz(q))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ===== ATTEMPTS =====

type memoryAttempts struct{ m *MemoryStore }

func (r memoryAttempts) history(userID, quizID string) []*models.QuizAttempt {
	var out []*models.QuizAttempt
	for _, a := range r.m.attempts {
		if a.UserID == userID && a.QuizID == quizID {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

func (r memoryAttempts) CreateWithHistory(ctx context.Context, userID, quizID string, build AttemptBuilder) (*models.QuizAttempt, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	history := r.history(userID, quizID)
	attempt, err := build(history)
	if err != nil {
		return nil, err
	}
	for _, a := range history {
		if a.Status.IsLive() {
			return nil, ErrDuplicate
		}
	}
	if _, ok := r.m.attempts[attempt.ID]; ok {
		return nil, ErrDuplicate
	}

	now := time.Now().UTC()
	attempt.CreatedAt, attempt.UpdatedAt = now, now
	r.m.attempts[attempt.ID] = attempt.Clone()
	return attempt, nil
}

func (r memoryAttempts) GetByID(ctx context.Context, id string) (*models.QuizAttempt, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	a, ok := r.m.attempts[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return a.Clone(), nil
}

func (r memoryAttempts) ListByUserAndQuiz(ctx context.Context, userID, quizID string) ([]*models.QuizAttempt, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return r.history(userID, quizID), nil
}

func (r memoryAttempts) ListByQuiz(ctx context.Context, quizID string, filters AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	var out []*models.QuizAttempt
	for _, a := range r.m.attempts {
		if a.QuizID != quizID ||
			(filters.UserID != "" && a.UserID != filters.UserID) ||
			(filters.Status != "" && a.Status != filters.Status) ||
			(filters.LiveOnly && !a.Status.IsLive()) ||
			(filters.DateFrom != nil && a.StartedAt.Before(*filters.DateFrom)) ||
			(filters.DateTo != nil && a.StartedAt.After(*filters.DateTo)) {
			continue
		}
		out = append(out, a.Clone())
	}

	desc := filters.SortOrder == "desc"
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].StartedAt.Before(out[j].StartedAt)
	})

	total := int64(len(out))
	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			return nil, total, nil
		}
		out = out[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(out) {
		out = out[:filters.Limit]
	}
	return out, total, nil
}

func (r memoryAttempts) UpsertAnswer(ctx context.Context, answer *models.QuizAnswer) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.attempts[answer.AttemptID]
	if !ok {
		return ErrRecordNotFound
	}
	if a.Status != models.AttemptInProgress {
		return ErrStaleState
	}
	if a.Answers == nil {
		a.Answers = map[string]models.QuizAnswer{}
	}
	a.Answers[answer.QuestionID] = *answer
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r memoryAttempts) Close(ctx context.Context, attempt *models.QuizAttempt) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	a, ok := r.m.attempts[attempt.ID]
	if !ok {
		return ErrRecordNotFound
	}
	if a.Status != models.AttemptInProgress {
		return ErrStaleState
	}
	a.Status = attempt.Status
	a.CompletedAt = attempt.CompletedAt
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r memoryAttempts) MarkGraded(ctx context.Context, result *models.QuizResult) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	graded := result.Attempt
	a, ok := r.m.attempts[graded.ID]
	if !ok {
		return ErrRecordNotFound
	}
	if a.Status != models.AttemptSubmitted && a.Status != models.AttemptExpired {
		return ErrStaleState
	}

	next := graded.Clone()
	next.CreatedAt = a.CreatedAt
	next.UpdatedAt = time.Now().UTC()
	r.m.attempts[graded.ID] = next
	r.m.results[graded.ID] = result.Record()
	return nil
}

func (r memoryAttempts) ListOverdue(ctx context.Context, now time.Time, limit int) ([]*models.QuizAttempt, error) {
	return r.list(limit, func(a *models.QuizAttempt) bool {
		return a.Status == models.AttemptInProgress && a.ExpiresAt != nil && a.ExpiresAt.Before(now)
	}), nil
}

func (r memoryAttempts) ListClosed(ctx context.Context, limit int) ([]*models.QuizAttempt, error) {
	return r.list(limit, func(a *models.QuizAttempt) bool {
		return a.Status == models.AttemptSubmitted || a.Status == models.AttemptExpired
	}), nil
}

func (r memoryAttempts) list(limit int, keep func(*models.QuizAttempt) bool) []*models.QuizAttempt {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*models.QuizAttempt
	for _, a := range r.m.attempts {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// ===== RESULTS =====

type memoryResults struct{ m *MemoryStore }

func (r memoryResults) GetByAttemptID(ctx context.Context, attemptID string) (*models.QuizResultRecord, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	rec, ok := r.m.results[attemptID]
	if !ok {
		return nil, ErrRecordNotFound
	}
	out := *rec
	return &out, nil
}

func (r memoryResults) ListByQuiz(ctx context.Context, quizID string) ([]*models.QuizResultRecord, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*models.QuizResultRecord
	for _, rec := range r.m.results {
		if rec.QuizID == quizID {
			c := *rec
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GradedAt.Before(out[j].GradedAt) })
	return out, nil
}

// ===== PROGRESS =====

type memoryProgress struct{ m *MemoryStore }

func progressKey(userID, quizID string) string {
	return userID + "\x00" + quizID
}

func copyProgress(p *models.LessonQuizProgress) *models.LessonQuizProgress {
	out := *p
	out.AttemptIDs = append(out.AttemptIDs[:0:0], p.AttemptIDs...)
	return &out
}

func (r memoryProgress) Get(ctx context.Context, userID, quizID string) (*models.LessonQuizProgress, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	p, ok := r.m.progress[progressKey(userID, quizID)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return copyProgress(p), nil
}

func (r memoryProgress) ListByLesson(ctx context.Context, userID, lessonID string) ([]*models.LessonQuizProgress, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	var out []*models.LessonQuizProgress
	for _, p := range r.m.progress {
		if p.UserID == userID && p.LessonID == lessonID {
			out = append(out, copyProgress(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuizID < out[j].QuizID })
	return out, nil
}

func (r memoryProgress) Apply(ctx context.Context, summary models.ResultSummary) (*models.LessonQuizProgress, bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	key := progressKey(summary.UserID, summary.QuizID)
	p, ok := r.m.progress[key]
	if !ok {
		p = &models.LessonQuizProgress{UserID: summary.UserID, QuizID: summary.QuizID, LessonID: summary.LessonID}
		r.m.progress[key] = p
	}
	applied := p.Apply(summary)
	if applied {
		p.UpdatedAt = time.Now().UTC()
	}
	return copyProgress(p), applied, nil
}
