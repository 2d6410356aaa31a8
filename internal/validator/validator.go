package validator

import (
	"reflect"
	"strings"

	"github.com/SAP-F-2025/quiz-engine/internal/models"
	"github.com/go-playground/validator/v10"
)

// Validator is the main validator instance that combines all validation types
type Validator struct {
	structValidator   *validator.Validate
	questionValidator *QuestionValidator
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()

	// Register all custom validators once
	registerCustomValidators(structValidator)

	return &Validator{
		structValidator:   structValidator,
		questionValidator: NewQuestionValidator(),
	}
}

// ValidateStruct validates struct tags only
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.structValidator.Struct(s)
}

// Validate validates struct tags and converts failures into ValidationErrors.
func (v *Validator) Validate(s interface{}) error {
	if err := v.ValidateStruct(s); err != nil {
		if errs := ToValidationErrors(err); len(errs) > 0 {
			return errs
		}
		return err
	}
	return nil
}

// ValidateQuiz runs struct rules and the structural invariants of every question.
// All problems are collected so authors can fix them in one pass.
func (v *Validator) ValidateQuiz(quiz *models.Quiz) ValidationErrors {
	var problems ValidationErrors

	if err := v.ValidateStruct(quiz); err != nil {
		problems = append(problems, ToValidationErrors(err)...)
	}
	for _, p := range v.questionValidator.ValidateQuestions(quiz.Questions) {
		if !contains(problems, p) {
			problems = append(problems, p)
		}
	}

	return problems
}

func contains(problems ValidationErrors, p ValidationError) bool {
	for _, existing := range problems {
		if existing.Field == p.Field && existing.Rule == p.Rule {
			return true
		}
	}
	return false
}

// Question returns the question validator
func (v *Validator) Question() *QuestionValidator {
	return v.questionValidator
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("question_type", validateQuestionType)
	validate.RegisterValidation("attempt_status", validateAttemptStatus)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateQuestionType(fl validator.FieldLevel) bool {
	return models.QuestionType(fl.Field().String()).IsValid()
}

func validateAttemptStatus(fl validator.FieldLevel) bool {
	return models.AttemptStatus(fl.Field().String()).IsValid()
}
