package renderer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/openmeet-team/surveystudio/internal/models"
)

// DateLayout is the accepted format for date answers
const DateLayout = "2006-01-02"

var validate = validator.New()

// CheckAnswer verifies that a non-empty answer has the shape the question
// type expects
func CheckAnswer(q *models.Question, a models.Answer) error {
	field := q.ID
	switch q.Type {
	case models.QuestionTypeShortText, models.QuestionTypeLongText:
		text, ok := a.Text()
		if !ok {
			return models.NewValidationError(field, "expected a text answer")
		}
		if len(text) > models.MaxTextAnswerLength {
			return models.NewValidationError(field, fmt.Sprintf("answer too long: %d characters exceeds maximum of %d", len(text), models.MaxTextAnswerLength))
		}

	case models.QuestionTypeEmail:
		text, ok := a.Text()
		if !ok {
			return models.NewValidationError(field, "expected an email address")
		}
		if err := validate.Var(strings.TrimSpace(text), "required,email"); err != nil {
			return models.NewValidationError(field, fmt.Sprintf("'%s' is not a valid email address", text))
		}

	case models.QuestionTypeDate:
		text, ok := a.Text()
		if !ok {
			return models.NewValidationError(field, "expected a date")
		}
		if _, err := time.Parse(DateLayout, strings.TrimSpace(text)); err != nil {
			return models.NewValidationError(field, fmt.Sprintf("'%s' is not a date in YYYY-MM-DD form", text))
		}

	case models.QuestionTypeSingleChoice:
		text, ok := a.Text()
		if !ok {
			return models.NewValidationError(field, "expected a single option")
		}
		if !q.HasOption(text) {
			return models.NewValidationError(field, fmt.Sprintf("'%s' is not one of the options", text))
		}

	case models.QuestionTypeMultiChoice:
		list, ok := a.List()
		if !ok {
			return models.NewValidationError(field, "expected a list of options")
		}
		seen := make(map[string]bool, len(list))
		for _, v := range list {
			if !q.HasOption(v) {
				return models.NewValidationError(field, fmt.Sprintf("'%s' is not one of the options", v))
			}
			if seen[v] {
				return models.NewValidationError(field, fmt.Sprintf("'%s' selected more than once", v))
			}
			seen[v] = true
		}

	case models.QuestionTypeRating:
		n, ok := a.Number()
		if !ok || !a.IsWholeNumber() {
			return models.NewValidationError(field, "expected a whole number rating")
		}
		if q.Scale == nil || n < float64(q.Scale.Min) || n > float64(q.Scale.Max) {
			return models.NewValidationError(field, "rating is outside the scale")
		}

	default:
		return models.NewValidationError(field, fmt.Sprintf("unsupported question type '%s'", q.Type))
	}
	return nil
}

// checkTextRules applies the question's optional length and pattern rules
func checkTextRules(q models.Question, a models.Answer) error {
	if q.Validation == nil || !q.Type.IsTextLike() {
		return nil
	}
	text, ok := a.Text()
	if !ok {
		return nil
	}

	n := utf8.RuneCountInString(text)
	if v := q.Validation.MinLength; v != nil && n < *v {
		return models.NewValidationError(q.ID, fmt.Sprintf("%s: must be at least %d characters", q.Text, *v))
	}
	if v := q.Validation.MaxLength; v != nil && n > *v {
		return models.NewValidationError(q.ID, fmt.Sprintf("%s: must be at most %d characters", q.Text, *v))
	}
	if q.Validation.Pattern != "" {
		re, err := regexp.Compile(q.Validation.Pattern)
		if err != nil {
			return models.NewValidationError(q.ID, "invalid validation pattern")
		}
		if !re.MatchString(text) {
			return models.NewValidationError(q.ID, fmt.Sprintf("%s: answer does not match the required format", q.Text))
		}
	}
	return nil
}

// conditionMet evaluates a skip condition against a non-empty answer
func conditionMet(c models.SkipCondition, a models.Answer) bool {
	switch c.Operator {
	case models.SkipEquals:
		for _, v := range a.Values() {
			if v == c.Value {
				return true
			}
		}
		return false

	case models.SkipNotEquals:
		for _, v := range a.Values() {
			if v == c.Value {
				return false
			}
		}
		return true

	case models.SkipContains:
		if list, ok := a.List(); ok {
			for _, v := range list {
				if v == c.Value {
					return true
				}
			}
			return false
		}
		return strings.Contains(a.String(), c.Value)

	case models.SkipGreaterThan, models.SkipLessThan:
		want, err := strconv.ParseFloat(strings.TrimSpace(c.Value), 64)
		if err != nil {
			return false
		}
		got, ok := numeric(a)
		if !ok {
			return false
		}
		if c.Operator == models.SkipGreaterThan {
			return got > want
		}
		return got < want
	}
	return false
}

func numeric(a models.Answer) (float64, bool) {
	if n, ok := a.Number(); ok {
		return n, true
	}
	if text, ok := a.Text(); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
		return n, err == nil
	}
	return 0, false
}
