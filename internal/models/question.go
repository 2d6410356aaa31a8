package models

import (
	"encoding/json"
	"fmt"
)

type QuestionType string

const (
	SingleChoice   QuestionType = "single_choice"
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	FillBlank      QuestionType = "fill_blank"
	DragFill       QuestionType = "drag_fill"
	DragDrop       QuestionType = "drag_drop"
)

// QuestionTypes lists every supported variant. Consumers that switch on
// QuestionType must handle all of them.
var QuestionTypes = []QuestionType{
	SingleChoice,
	MultipleChoice,
	TrueFalse,
	FillBlank,
	DragFill,
	DragDrop,
}

func (t QuestionType) IsValid() bool {
	for _, qt := range QuestionTypes {
		if qt == t {
			return true
		}
	}
	return false
}

// Question is the common shape of every question variant. The variant specific
// part lives in Content, whose concrete type always matches Type.
type Question struct {
	ID          string          `json:"id" validate:"required,max=64"`
	Type        QuestionType    `json:"type" validate:"required,question_type"`
	Question    string          `json:"question" validate:"required"`
	Points      float64         `json:"points" validate:"gt=0"`
	Order       int             `json:"order" validate:"min=0"`
	Explanation *string         `json:"explanation,omitempty"`
	Content     QuestionContent `json:"content" validate:"required"`
}

// QuestionContent is implemented only by the six content types in this file.
type QuestionContent interface {
	QuestionType() QuestionType
}

type ChoiceOption struct {
	ID        string `json:"id" validate:"required"`
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

type SingleChoiceContent struct {
	Options []ChoiceOption `json:"options" validate:"min=2,dive"`
}

type MultipleChoiceContent struct {
	Options       []ChoiceOption `json:"options" validate:"min=2,dive"`
	MinSelections *int           `json:"min_selections,omitempty" validate:"omitempty,min=0"`
	MaxSelections *int           `json:"max_selections,omitempty" validate:"omitempty,min=1"`
}

type TrueFalseContent struct {
	CorrectAnswer bool `json:"correct_answer"`
}

type BlankItem struct {
	ID                string   `json:"id" validate:"required"`
	CorrectAnswer     string   `json:"correct_answer" validate:"required"`
	AcceptableAnswers []string `json:"acceptable_answers,omitempty"`
	CaseSensitive     *bool    `json:"case_sensitive,omitempty"`
}

type FillBlankContent struct {
	TextWithBlanks string      `json:"text_with_blanks" validate:"required"`
	Blanks         []BlankItem `json:"blanks" validate:"min=1,dive"`
}

type DragItem struct {
	ID   string `json:"id" validate:"required"`
	Text string `json:"text" validate:"required"`
}

type DropZone struct {
	ID            string  `json:"id" validate:"required"`
	CorrectItemID string  `json:"correct_item_id" validate:"required"`
	Label         *string `json:"label,omitempty"`
}

type DragFillContent struct {
	TextWithBlanks string     `json:"text_with_blanks" validate:"required"`
	Items          []DragItem `json:"items" validate:"min=1,dive"`
	DropZones      []DropZone `json:"drop_zones" validate:"min=1,dive"`
}

type DragCategory struct {
	ID             string   `json:"id" validate:"required"`
	Name           string   `json:"name" validate:"required"`
	CorrectItemIDs []string `json:"correct_item_ids"`
}

type DragDropContent struct {
	Items      []DragItem     `json:"items" validate:"min=1,dive"`
	Categories []DragCategory `json:"categories" validate:"min=1,dive"`
}

func (SingleChoiceContent) QuestionType() QuestionType   { return SingleChoice }
func (MultipleChoiceContent) QuestionType() QuestionType { return MultipleChoice }
func (TrueFalseContent) QuestionType() QuestionType      { return TrueFalse }
func (FillBlankContent) QuestionType() QuestionType      { return FillBlank }
func (DragFillContent) QuestionType() QuestionType       { return DragFill }
func (DragDropContent) QuestionType() QuestionType       { return DragDrop }

// UnmarshalJSON decodes the content according to the "type" discriminant.
func (q *Question) UnmarshalJSON(data []byte) error {
	type questionAlias Question
	aux := struct {
		*questionAlias
		Content json.RawMessage `json:"content"`
	}{questionAlias: (*questionAlias)(q)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	content, err := decodeContent(q.Type, aux.Content)
	if err != nil {
		return fmt.Errorf("question %q: %w", q.ID, err)
	}
	q.Content = content
	return nil
}

func decodeContent(t QuestionType, raw json.RawMessage) (QuestionContent, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	switch t {
	case SingleChoice:
		var c SingleChoiceContent
		return c, json.Unmarshal(raw, &c)
	case MultipleChoice:
		var c MultipleChoiceContent
		return c, json.Unmarshal(raw, &c)
	case TrueFalse:
		var c TrueFalseContent
		return c, json.Unmarshal(raw, &c)
	case FillBlank:
		var c FillBlankContent
		return c, json.Unmarshal(raw, &c)
	case DragFill:
		var c DragFillContent
		return c, json.Unmarshal(raw, &c)
	case DragDrop:
		var c DragDropContent
		return c, json.Unmarshal(raw, &c)
	default:
		return nil, fmt.Errorf("unsupported question type: %s", t)
	}
}

// NewQuestion returns the minimally valid empty instance of a variant, as used
// by authoring tools. Callers fill in prompt text and answer keys.
func NewQuestion(t QuestionType, id string) (Question, error) {
	q := Question{ID: id, Type: t, Points: 1}

	switch t {
	case SingleChoice:
		q.Content = SingleChoiceContent{Options: []ChoiceOption{
			{ID: "a", IsCorrect: true},
			{ID: "b"},
		}}
	case MultipleChoice:
		q.Content = MultipleChoiceContent{Options: []ChoiceOption{
			{ID: "a", IsCorrect: true},
			{ID: "b"},
		}}
	case TrueFalse:
		q.Content = TrueFalseContent{CorrectAnswer: true}
	case FillBlank:
		q.Content = FillBlankContent{Blanks: []BlankItem{{ID: "blank-1"}}}
	case DragFill:
		q.Content = DragFillContent{
			Items:     []DragItem{{ID: "item-1"}},
			DropZones: []DropZone{{ID: "zone-1", CorrectItemID: "item-1"}},
		}
	case DragDrop:
		q.Content = DragDropContent{
			Items:      []DragItem{{ID: "item-1"}},
			Categories: []DragCategory{{ID: "category-1", CorrectItemIDs: []string{"item-1"}}},
		}
	default:
		return Question{}, fmt.Errorf("unsupported question type: %s", t)
	}

	return q, nil
}
