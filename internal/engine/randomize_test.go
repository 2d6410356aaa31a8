package engine

import (
	"sort"
	"testing"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sorted(ids []string) []string {
	out := append([]string(nil), ids...)
	sort.Strings(out)
	return out
}

func TestSeedFromAttemptID(t *testing.T) {
	assert.Equal(t, SeedFromAttemptID("attempt-1"), SeedFromAttemptID("attempt-1"))
	assert.NotEqual(t, SeedFromAttemptID("attempt-1"), SeedFromAttemptID("attempt-2"))
}

func TestBuildPresentation_Reproducible(t *testing.T) {
	quiz := shuffledQuiz()
	seed := SeedFromAttemptID("attempt-42")

	first := BuildPresentation(quiz, seed)
	second := BuildPresentation(quiz, seed)
	assert.Equal(t, first, second)

	other := BuildPresentation(quiz, SeedFromAttemptID("attempt-43"))
	assert.NotEqual(t, first.QuestionOrder, other.QuestionOrder)
}

func TestBuildPresentation_IsPermutation(t *testing.T) {
	quiz := shuffledQuiz()
	p := BuildPresentation(quiz, 7)

	var ids []string
	for _, q := range quiz.Questions {
		ids = append(ids, q.ID)
		if want := optionIDs(q); want != nil {
			assert.Equal(t, sorted(want), sorted(p.OptionOrder[q.ID]), q.ID)
		}
	}
	assert.Equal(t, sorted(ids), sorted(p.QuestionOrder))
}

func TestBuildPresentation_NoShuffle(t *testing.T) {
	quiz := shuffledQuiz()
	quiz.ShuffleQuestions = false
	quiz.ShuffleOptions = false
	// authored order differs from list order
	quiz.Questions[0].Order, quiz.Questions[1].Order = 1, 0

	p := BuildPresentation(quiz, 99)
	require.GreaterOrEqual(t, len(p.QuestionOrder), 2)
	assert.Equal(t, []string{"q01", "q00"}, p.QuestionOrder[:2])
	assert.Equal(t, []string{"A", "B", "C"}, p.OptionOrder["q00"])
	assert.Equal(t, []string{"cat", "dog", "oak", "fern", "rock"}, p.OptionOrder["sort"])
}

func TestBuildPresentation_OptionOrderIndependentOfQuestionShuffle(t *testing.T) {
	quiz := shuffledQuiz()
	withQuestions := BuildPresentation(quiz, 11)

	quiz.ShuffleQuestions = false
	withoutQuestions := BuildPresentation(quiz, 11)

	assert.Equal(t, withQuestions.OptionOrder, withoutQuestions.OptionOrder)
}

func TestBuildPresentation_SkipsVariantsWithoutOptions(t *testing.T) {
	quiz := &models.Quiz{
		ID: "q", ShuffleOptions: true,
		Questions: []models.Question{
			{ID: "tf", Type: models.TrueFalse, Points: 1, Content: models.TrueFalseContent{}},
			fillBlankQuestion(),
		},
	}
	p := BuildPresentation(quiz, 1)
	assert.Empty(t, p.OptionOrder)
}

func TestShuffle_FisherYatesDistribution(t *testing.T) {
	counts := map[string]int{}
	for seed := uint64(0); seed < 6000; seed++ {
		ids := []string{"a", "b", "c"}
		shuffle(ids, newRand(seed, 0))
		counts[ids[0]+ids[1]+ids[2]]++
	}

	require.Len(t, counts, 6)
	for perm, n := range counts {
		assert.InDelta(t, 1000, n, 150, perm)
	}
}

// ===== RENDER =====

func TestRender_ReproducesPresentation(t *testing.T) {
	quiz := shuffledQuiz()
	p := BuildPresentation(quiz, SeedFromAttemptID("attempt-review"))

	first := Render(quiz, p)
	second := Render(quiz, p)
	assert.Equal(t, first, second)

	for i, q := range first {
		assert.Equal(t, p.QuestionOrder[i], q.ID)
		if order := p.OptionOrder[q.ID]; order != nil {
			assert.Equal(t, order, optionIDs(q))
		}
	}
}

func TestRender_FrozenAgainstDrift(t *testing.T) {
	quiz := threeQuestionQuiz()
	p := models.Presentation{
		QuestionOrder: []string{"q3", "q1", "q2"},
		OptionOrder:   map[string][]string{"q1": {"C", "A", "B"}},
	}

	// the live quiz changed after the snapshot
	quiz.Questions = quiz.Questions[:2]
	quiz.Questions = append(quiz.Questions, single("q4", 4, 5, "A"))
	c := quiz.Questions[0].Content.(models.SingleChoiceContent)
	c.Options = append(c.Options, models.ChoiceOption{ID: "D", Text: "d"})
	quiz.Questions[0].Content = c

	rendered := Render(quiz, p)
	ids := make([]string, len(rendered))
	for i, q := range rendered {
		ids[i] = q.ID
	}
	assert.Equal(t, []string{"q1", "q2", "q4"}, ids)
	assert.Equal(t, []string{"C", "A", "B", "D"}, optionIDs(rendered[0]))
}

func TestRedact(t *testing.T) {
	explanation := "because"
	q := choiceQuestion(models.SingleChoice, "B")
	q.Explanation = &explanation

	view := Redact(q)
	assert.Nil(t, view.Explanation)
	choice, ok := view.Content.(ChoiceView)
	require.True(t, ok)
	assert.Equal(t, []OptionView{{"A", "alpha"}, {"B", "beta"}, {"C", "gamma"}, {"D", "delta"}}, choice.Options)

	tf := Redact(models.Question{ID: "tf", Type: models.TrueFalse, Content: models.TrueFalseContent{CorrectAnswer: true}})
	assert.Nil(t, tf.Content)

	fill, ok := Redact(fillBlankQuestion()).Content.(FillBlankView)
	require.True(t, ok)
	assert.Equal(t, []BlankView{{"b1"}, {"b2"}, {"b3"}, {"b4"}}, fill.Blanks)

	sortView, ok := Redact(dragDropQuestion()).Content.(DragDropView)
	require.True(t, ok)
	assert.Len(t, sortView.Items, 5)
	assert.Equal(t, CategoryView{ID: "animals", Name: "Animals"}, sortView.Categories[0])

	revealed := Reveal(q)
	assert.Equal(t, &explanation, revealed.Explanation)
	assert.Equal(t, q.Content, revealed.Content)
}
