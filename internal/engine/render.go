package engine

import (
	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// Render applies a frozen presentation to the live quiz. Questions or options
// removed since the snapshot are dropped; ones added after it are appended in
// canonical order, so review stays stable even when the quiz drifted.
func Render(quiz *models.Quiz, p models.Presentation) []models.Question {
	canonical := canonicalOrder(quiz.Questions)
	byID := make(map[string]models.Question, len(canonical))
	for _, q := range canonical {
		byID[q.ID] = q
	}

	out := make([]models.Question, 0, len(canonical))
	seen := make(map[string]bool, len(canonical))
	for _, id := range p.QuestionOrder {
		q, ok := byID[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, reorderOptions(q, p.OptionOrder[id]))
	}
	for _, q := range canonical {
		if !seen[q.ID] {
			out = append(out, reorderOptions(q, p.OptionOrder[q.ID]))
		}
	}
	return out
}

func reorderOptions(q models.Question, order []string) models.Question {
	if len(order) == 0 {
		return q
	}
	switch c := q.Content.(type) {
	case models.SingleChoiceContent:
		c.Options = arrange(c.Options, order, func(o models.ChoiceOption) string { return o.ID })
		q.Content = c
	case models.MultipleChoiceContent:
		c.Options = arrange(c.Options, order, func(o models.ChoiceOption) string { return o.ID })
		q.Content = c
	case models.DragFillContent:
		c.Items = arrange(c.Items, order, func(i models.DragItem) string { return i.ID })
		q.Content = c
	case models.DragDropContent:
		c.Items = arrange(c.Items, order, func(i models.DragItem) string { return i.ID })
		q.Content = c
	}
	return q
}

// arrange returns a new slice ordered by ids, followed by values whose id is
// not listed. Unknown ids are skipped.
func arrange[T any](values []T, ids []string, id func(T) string) []T {
	index := make(map[string]int, len(values))
	for i, v := range values {
		index[id(v)] = i
	}

	out := make([]T, 0, len(values))
	used := make(map[int]bool, len(values))
	for _, key := range ids {
		i, ok := index[key]
		if !ok || used[i] {
			continue
		}
		used[i] = true
		out = append(out, values[i])
	}
	for i, v := range values {
		if !used[i] {
			out = append(out, v)
		}
	}
	return out
}

// ===== VIEWS =====

// QuestionView is what a client sees for one question. Content is either the
// full answer-bearing content or one of the redacted view types below.
type QuestionView struct {
	ID          string              `json:"id"`
	Type        models.QuestionType `json:"type"`
	Question    string              `json:"question"`
	Points      float64             `json:"points"`
	Order       int                 `json:"order"`
	Explanation *string             `json:"explanation,omitempty"`
	Content     interface{}         `json:"content,omitempty"`
}

type OptionView struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type ChoiceView struct {
	Options       []OptionView `json:"options"`
	MinSelections *int         `json:"min_selections,omitempty"`
	MaxSelections *int         `json:"max_selections,omitempty"`
}

type BlankView struct {
	ID string `json:"id"`
}

type FillBlankView struct {
	TextWithBlanks string      `json:"text_with_blanks"`
	Blanks         []BlankView `json:"blanks"`
}

type DropZoneView struct {
	ID    string  `json:"id"`
	Label *string `json:"label,omitempty"`
}

type DragFillView struct {
	TextWithBlanks string            `json:"text_with_blanks"`
	Items          []models.DragItem `json:"items"`
	DropZones      []DropZoneView    `json:"drop_zones"`
}

type CategoryView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type DragDropView struct {
	Items      []models.DragItem `json:"items"`
	Categories []CategoryView    `json:"categories"`
}

// Redact strips every answer key and the explanation, for attempts that are
// still open or whose quiz hides correct answers.
func Redact(q models.Question) QuestionView {
	view := QuestionView{
		ID:       q.ID,
		Type:     q.Type,
		Question: q.Question,
		Points:   q.Points,
		Order:    q.Order,
	}

	switch c := q.Content.(type) {
	case models.SingleChoiceContent:
		view.Content = ChoiceView{Options: optionViews(c.Options)}
	case models.MultipleChoiceContent:
		view.Content = ChoiceView{
			Options:       optionViews(c.Options),
			MinSelections: c.MinSelections,
			MaxSelections: c.MaxSelections,
		}
	case models.TrueFalseContent:
		// nothing left once the answer is removed
	case models.FillBlankContent:
		blanks := make([]BlankView, len(c.Blanks))
		for i, b := range c.Blanks {
			blanks[i] = BlankView{ID: b.ID}
		}
		view.Content = FillBlankView{TextWithBlanks: c.TextWithBlanks, Blanks: blanks}
	case models.DragFillContent:
		zones := make([]DropZoneView, len(c.DropZones))
		for i, z := range c.DropZones {
			zones[i] = DropZoneView{ID: z.ID, Label: z.Label}
		}
		view.Content = DragFillView{
			TextWithBlanks: c.TextWithBlanks,
			Items:          append([]models.DragItem(nil), c.Items...),
			DropZones:      zones,
		}
	case models.DragDropContent:
		categories := make([]CategoryView, len(c.Categories))
		for i, cat := range c.Categories {
			categories[i] = CategoryView{ID: cat.ID, Name: cat.Name}
		}
		view.Content = DragDropView{
			Items:      append([]models.DragItem(nil), c.Items...),
			Categories: categories,
		}
	}

	return view
}

// Reveal returns the full question including answer keys and explanation.
func Reveal(q models.Question) QuestionView {
	return QuestionView{
		ID:          q.ID,
		Type:        q.Type,
		Question:    q.Question,
		Points:      q.Points,
		Order:       q.Order,
		Explanation: q.Explanation,
		Content:     q.Content,
	}
}

func optionViews(options []models.ChoiceOption) []OptionView {
	out := make([]OptionView, len(options))
	for i, o := range options {
		out[i] = OptionView{ID: o.ID, Text: o.Text}
	}
	return out
}
