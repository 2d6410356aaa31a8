package validator

import (
	"fmt"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
)

// QuestionValidator handles the structural invariants that struct tags cannot express:
// answer keys, id uniqueness and cross references inside a question.
type QuestionValidator struct{}

// NewQuestionValidator creates a new question validator
func NewQuestionValidator() *QuestionValidator {
	return &QuestionValidator{}
}

// ValidateQuestions validates a quiz's question list as a whole
func (v *QuestionValidator) ValidateQuestions(questions []models.Question) ValidationErrors {
	var problems ValidationErrors

	if len(questions) == 0 {
		return append(problems, problem("questions", "must contain at least one question", "min", 0))
	}

	ids := make(map[string]int, len(questions))
	orders := make(map[int]int, len(questions))
	for i, q := range questions {
		field := fmt.Sprintf("questions[%d]", i)

		if prev, ok := ids[q.ID]; ok {
			problems = append(problems, problem(field+".id",
				fmt.Sprintf("duplicates the id of questions[%d]", prev), "unique", q.ID))
		} else {
			ids[q.ID] = i
		}
		if prev, ok := orders[q.Order]; ok {
			problems = append(problems, problem(field+".order",
				fmt.Sprintf("duplicates the order of questions[%d]", prev), "unique", q.Order))
		} else {
			orders[q.Order] = i
		}

		problems = append(problems, v.validate(field, q)...)
	}

	return problems
}

// ValidateQuestion validates a single question
func (v *QuestionValidator) ValidateQuestion(q models.Question) ValidationErrors {
	return v.validate("question", q)
}

func (v *QuestionValidator) validate(field string, q models.Question) ValidationErrors {
	var problems ValidationErrors

	if q.Points <= 0 {
		problems = append(problems, problem(field+".points", "must be greater than 0", "gt", q.Points))
	}
	if q.Content == nil {
		return append(problems, problem(field+".content", "is required", "required", nil))
	}
	if q.Content.QuestionType() != q.Type {
		return append(problems, problem(field+".content",
			fmt.Sprintf("does not match question type %s", q.Type), "question_type", q.Content.QuestionType()))
	}

	content := field + ".content"
	switch c := q.Content.(type) {
	case models.SingleChoiceContent:
		problems = append(problems, v.validateSingleChoice(content, c)...)
	case models.MultipleChoiceContent:
		problems = append(problems, v.validateMultipleChoice(content, c)...)
	case models.TrueFalseContent:
		// any boolean is a valid answer key
	case models.FillBlankContent:
		problems = append(problems, v.validateFillBlank(content, c)...)
	case models.DragFillContent:
		problems = append(problems, v.validateDragFill(content, c)...)
	case models.DragDropContent:
		problems = append(problems, v.validateDragDrop(content, c)...)
	default:
		problems = append(problems, problem(content, fmt.Sprintf("unsupported content %T", q.Content), "question_type", q.Type))
	}

	return problems
}

// Private validation methods for each question type

func (v *QuestionValidator) validateSingleChoice(field string, c models.SingleChoiceContent) ValidationErrors {
	problems := uniqueIDs(field+".options", c.Options, func(o models.ChoiceOption) string { return o.ID })

	correct := 0
	for _, option := range c.Options {
		if option.IsCorrect {
			correct++
		}
	}
	if correct != 1 {
		problems = append(problems, problem(field+".options",
			fmt.Sprintf("must have exactly one correct option, found %d", correct), "single_correct", correct))
	}

	return problems
}

func (v *QuestionValidator) validateMultipleChoice(field string, c models.MultipleChoiceContent) ValidationErrors {
	problems := uniqueIDs(field+".options", c.Options, func(o models.ChoiceOption) string { return o.ID })

	correct := 0
	for _, option := range c.Options {
		if option.IsCorrect {
			correct++
		}
	}
	if correct == 0 {
		problems = append(problems, problem(field+".options", "must have at least one correct option", "min_correct", 0))
	}

	if c.MinSelections != nil && c.MaxSelections != nil && *c.MinSelections > *c.MaxSelections {
		problems = append(problems, problem(field+".min_selections",
			"cannot be greater than max_selections", "lte_max", *c.MinSelections))
	}
	if c.MaxSelections != nil && *c.MaxSelections > len(c.Options) {
		problems = append(problems, problem(field+".max_selections",
			"cannot exceed the number of options", "lte_options", *c.MaxSelections))
	}

	return problems
}

func (v *QuestionValidator) validateFillBlank(field string, c models.FillBlankContent) ValidationErrors {
	problems := uniqueIDs(field+".blanks", c.Blanks, func(b models.BlankItem) string { return b.ID })

	if len(c.Blanks) == 0 {
		problems = append(problems, problem(field+".blanks", "must have at least 1 blank", "min", 0))
	}

	return problems
}

func (v *QuestionValidator) validateDragFill(field string, c models.DragFillContent) ValidationErrors {
	problems := uniqueIDs(field+".items", c.Items, func(i models.DragItem) string { return i.ID })
	problems = append(problems, uniqueIDs(field+".drop_zones", c.DropZones, func(z models.DropZone) string { return z.ID })...)

	if len(c.DropZones) == 0 {
		problems = append(problems, problem(field+".drop_zones", "must have at least 1 drop zone", "min", 0))
	}

	items := idSet(c.Items)
	for i, zone := range c.DropZones {
		if !items[zone.CorrectItemID] {
			problems = append(problems, problem(fmt.Sprintf("%s.drop_zones[%d].correct_item_id", field, i),
				"references an item that does not exist", "item_exists", zone.CorrectItemID))
		}
	}

	return problems
}

func (v *QuestionValidator) validateDragDrop(field string, c models.DragDropContent) ValidationErrors {
	problems := uniqueIDs(field+".items", c.Items, func(i models.DragItem) string { return i.ID })
	problems = append(problems, uniqueIDs(field+".categories", c.Categories, func(cat models.DragCategory) string { return cat.ID })...)

	if len(c.Categories) == 0 {
		problems = append(problems, problem(field+".categories", "must have at least 1 category", "min", 0))
	}

	items := idSet(c.Items)
	owner := make(map[string]string)
	for i, category := range c.Categories {
		for _, itemID := range category.CorrectItemIDs {
			path := fmt.Sprintf("%s.categories[%d].correct_item_ids", field, i)
			if !items[itemID] {
				problems = append(problems, problem(path, "references an item that does not exist", "item_exists", itemID))
				continue
			}
			if prev, ok := owner[itemID]; ok {
				problems = append(problems, problem(path,
					fmt.Sprintf("item already belongs to category %s", prev), "single_category", itemID))
				continue
			}
			owner[itemID] = category.ID
		}
	}

	return problems
}

func uniqueIDs[T any](field string, values []T, id func(T) string) ValidationErrors {
	var problems ValidationErrors
	seen := make(map[string]bool, len(values))
	for i, value := range values {
		key := id(value)
		if key == "" {
			problems = append(problems, problem(fmt.Sprintf("%s[%d].id", field, i), "is required", "required", key))
			continue
		}
		if seen[key] {
			problems = append(problems, problem(fmt.Sprintf("%s[%d].id", field, i), "must be unique within the question", "unique", key))
		}
		seen[key] = true
	}
	return problems
}

func idSet(items []models.DragItem) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item.ID] = true
	}
	return set
}
