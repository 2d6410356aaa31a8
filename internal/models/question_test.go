package models_test

import (
	"encoding/json"
	"testing"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/SAP-F-2025/quiz-engine/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQuestion_RoundTripsEveryType(t *testing.T) {
	for _, qt := range models.QuestionTypes {
		t.Run(string(qt), func(t *testing.T) {
			q, err := models.NewQuestion(qt, "q-"+string(qt))
			require.NoError(t, err)
			require.NotNil(t, q.Content)
			assert.Equal(t, qt, q.Content.QuestionType())

			data, err := json.Marshal(q)
			require.NoError(t, err)

			var decoded models.Question
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, q, decoded)
		})
	}
}

func TestNewQuestion_UnknownType(t *testing.T) {
	_, err := models.NewQuestion("essay", "q1")
	assert.EqualError(t, err, "unsupported question type: essay")
}

func TestQuestion_UnmarshalJSON(t *testing.T) {
	t.Run("unknown type", func(t *testing.T) {
		var q models.Question
		err := json.Unmarshal([]byte(`{"id":"q1","type":"essay","content":{}}`), &q)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `question "q1"`)
		assert.Contains(t, err.Error(), "unsupported question type: essay")
	})

	t.Run("null content", func(t *testing.T) {
		var q models.Question
		require.NoError(t, json.Unmarshal([]byte(`{"id":"q1","type":"true_false","points":1,"content":null}`), &q))
		assert.Equal(t, models.TrueFalse, q.Type)
		assert.Nil(t, q.Content)
	})

	t.Run("missing content", func(t *testing.T) {
		var q models.Question
		require.NoError(t, json.Unmarshal([]byte(`{"id":"q1","type":"fill_blank"}`), &q))
		assert.Nil(t, q.Content)
	})

	t.Run("content decoded by type", func(t *testing.T) {
		var q models.Question
		raw := `{"id":"q1","type":"drag_fill","question":"Fill","points":2,
			"content":{"text_with_blanks":"{z1}","items":[{"id":"i1","text":"A"}],"drop_zones":[{"id":"z1","correct_item_id":"i1"}]}}`
		require.NoError(t, json.Unmarshal([]byte(raw), &q))

		content, ok := q.Content.(models.DragFillContent)
		require.True(t, ok, "expected DragFillContent, got %T", q.Content)
		assert.Equal(t, "i1", content.DropZones[0].CorrectItemID)
	})

	t.Run("malformed content", func(t *testing.T) {
		var q models.Question
		err := json.Unmarshal([]byte(`{"id":"q1","type":"single_choice","content":{"options":"a"}}`), &q)
		require.Error(t, err)
		assert.Contains(t, err.Error(), `question "q1"`)
	})
}

func TestQuestion_ContentMustMatchType(t *testing.T) {
	q := models.Question{
		ID: "q1", Type: models.SingleChoice, Question: "Pick one", Points: 1,
		Content: models.TrueFalseContent{CorrectAnswer: true},
	}

	problems := validator.New().Question().ValidateQuestion(q)
	require.Len(t, problems, 1)
	assert.Equal(t, "question.content", problems[0].Field)
	assert.Equal(t, "question_type", problems[0].Rule)
	assert.Equal(t, "does not match question type single_choice", problems[0].Message)
	assert.Equal(t, models.TrueFalse, problems[0].Value)
}
