package engine

import (
	"strings"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"golang.org/x/text/unicode/norm"
)

// Score is the verdict for one answer. Fraction is always within [0, 1].
type Score struct {
	IsCorrect bool    `json:"is_correct"`
	Fraction  float64 `json:"fraction"`
}

// PointsEarned scales the question's weight by the fraction.
func (s Score) PointsEarned(q models.Question) float64 {
	return q.Points * s.Fraction
}

var wrong = Score{}

// ScoreAnswer grades a submitted answer against the canonical answer key.
// It never fails: a nil answer or one whose shape does not fit the question
// variant is simply wrong.
func ScoreAnswer(q models.Question, answer interface{}) Score {
	if answer == nil {
		return wrong
	}

	switch c := q.Content.(type) {
	case models.SingleChoiceContent:
		return scoreSingleChoice(c, answer)
	case models.MultipleChoiceContent:
		return scoreMultipleChoice(c, answer)
	case models.TrueFalseContent:
		return scoreTrueFalse(c, answer)
	case models.FillBlankContent:
		return scoreFillBlank(c, answer)
	case models.DragFillContent:
		return scoreDragFill(c, answer)
	case models.DragDropContent:
		return scoreDragDrop(c, answer)
	default:
		// Content is checked against the type when the quiz is validated.
		return wrong
	}
}

func scoreSingleChoice(c models.SingleChoiceContent, answer interface{}) Score {
	selected, ok := asString(answer)
	if !ok {
		return wrong
	}
	for _, option := range c.Options {
		if option.IsCorrect && option.ID == selected {
			return Score{IsCorrect: true, Fraction: 1}
		}
	}
	return wrong
}

// scoreMultipleChoice is all-or-nothing: the selection must equal the
// correct set exactly, a superset or subset scores zero.
func scoreMultipleChoice(c models.MultipleChoiceContent, answer interface{}) Score {
	selected, ok := asStringSlice(answer)
	if !ok {
		return wrong
	}
	if sameSet(selected, correctOptionIDs(c.Options)) {
		return Score{IsCorrect: true, Fraction: 1}
	}
	return wrong
}

func scoreTrueFalse(c models.TrueFalseContent, answer interface{}) Score {
	value, ok := asBool(answer)
	if !ok || value != c.CorrectAnswer {
		return wrong
	}
	return Score{IsCorrect: true, Fraction: 1}
}

func scoreFillBlank(c models.FillBlankContent, answer interface{}) Score {
	submitted, ok := asStringMap(answer)
	if !ok {
		return wrong
	}
	return partialCredit(c.Blanks, func(blank models.BlankItem) bool {
		value, present := submitted[blank.ID]
		return present && blankAccepts(blank, value)
	})
}

func scoreDragFill(c models.DragFillContent, answer interface{}) Score {
	submitted, ok := asStringMap(answer)
	if !ok {
		return wrong
	}
	return partialCredit(c.DropZones, func(zone models.DropZone) bool {
		itemID, present := submitted[zone.ID]
		return present && matchText(zone.CorrectItemID, itemID, false)
	})
}

// scoreDragDrop awards one unit per item that belongs to a category and was
// placed in that category only. Full correctness additionally requires every
// category to hold exactly its correct item set, so stray distractors count.
func scoreDragDrop(c models.DragDropContent, answer interface{}) Score {
	submitted, ok := asStringSliceMap(answer)
	if !ok {
		return wrong
	}

	placed := make(map[string]map[string]bool)
	for categoryID, items := range submitted {
		for _, itemID := range items {
			if placed[itemID] == nil {
				placed[itemID] = make(map[string]bool)
			}
			placed[itemID][categoryID] = true
		}
	}

	exact := true
	known := make(map[string]bool, len(c.Categories))
	var units []placement
	for _, category := range c.Categories {
		known[category.ID] = true
		if !sameSet(submitted[category.ID], category.CorrectItemIDs) {
			exact = false
		}
		for _, itemID := range category.CorrectItemIDs {
			units = append(units, placement{itemID: itemID, categoryID: category.ID})
		}
	}
	for categoryID, items := range submitted {
		if !known[categoryID] && len(items) > 0 {
			exact = false
		}
	}

	if len(units) == 0 {
		if exact {
			return Score{IsCorrect: true, Fraction: 1}
		}
		return wrong
	}

	score := partialCredit(units, func(p placement) bool {
		categories := placed[p.itemID]
		return len(categories) == 1 && categories[p.categoryID]
	})
	score.IsCorrect = score.IsCorrect && exact
	return score
}

type placement struct {
	itemID     string
	categoryID string
}

// partialCredit is the shared reduction for the map shaped variants: the
// fraction of sub-units accepted by correct. All units correct means the
// question is correct.
func partialCredit[U any](units []U, correct func(U) bool) Score {
	if len(units) == 0 {
		return wrong
	}
	n := 0
	for _, unit := range units {
		if correct(unit) {
			n++
		}
	}
	return Score{IsCorrect: n == len(units), Fraction: float64(n) / float64(len(units))}
}

func blankAccepts(blank models.BlankItem, value string) bool {
	caseSensitive := blank.CaseSensitive != nil && *blank.CaseSensitive
	if matchText(blank.CorrectAnswer, value, caseSensitive) {
		return true
	}
	for _, accepted := range blank.AcceptableAnswers {
		if matchText(accepted, value, caseSensitive) {
			return true
		}
	}
	return false
}

func matchText(expected, actual string, caseSensitive bool) bool {
	if caseSensitive {
		return foldable(expected) == foldable(actual)
	}
	return strings.EqualFold(foldable(expected), foldable(actual))
}

// foldable trims surrounding whitespace and composes the string so that
// precomposed and decomposed accents compare equal.
func foldable(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func correctOptionIDs(options []models.ChoiceOption) []string {
	var ids []string
	for _, option := range options {
		if option.IsCorrect {
			ids = append(ids, option.ID)
		}
	}
	return ids
}

// CorrectAnswer returns the answer key in the same shape a client submits.
func CorrectAnswer(q models.Question) interface{} {
	switch c := q.Content.(type) {
	case models.SingleChoiceContent:
		if ids := correctOptionIDs(c.Options); len(ids) > 0 {
			return ids[0]
		}
		return nil
	case models.MultipleChoiceContent:
		return correctOptionIDs(c.Options)
	case models.TrueFalseContent:
		return c.CorrectAnswer
	case models.FillBlankContent:
		key := make(map[string]string, len(c.Blanks))
		for _, blank := range c.Blanks {
			key[blank.ID] = blank.CorrectAnswer
		}
		return key
	case models.DragFillContent:
		key := make(map[string]string, len(c.DropZones))
		for _, zone := range c.DropZones {
			key[zone.ID] = zone.CorrectItemID
		}
		return key
	case models.DragDropContent:
		key := make(map[string][]string, len(c.Categories))
		for _, category := range c.Categories {
			key[category.ID] = append([]string{}, category.CorrectItemIDs...)
		}
		return key
	default:
		return nil
	}
}
