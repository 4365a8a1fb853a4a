package models

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// QuestionType represents the type of question
type QuestionType string

const (
	QuestionTypeShortText    QuestionType = "short-text"
	QuestionTypeLongText     QuestionType = "long-text"
	QuestionTypeSingleChoice QuestionType = "single-choice"
	QuestionTypeMultiChoice  QuestionType = "multi-choice"
	QuestionTypeRating       QuestionType = "rating-scale"
	QuestionTypeDate         QuestionType = "date"
	QuestionTypeEmail        QuestionType = "email"
)

// QuestionTypes lists every supported question type in display order
var QuestionTypes = []QuestionType{
	QuestionTypeShortText,
	QuestionTypeLongText,
	QuestionTypeSingleChoice,
	QuestionTypeMultiChoice,
	QuestionTypeRating,
	QuestionTypeDate,
	QuestionTypeEmail,
}

// Valid reports whether t is one of the supported question types
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeShortText, QuestionTypeLongText, QuestionTypeSingleChoice,
		QuestionTypeMultiChoice, QuestionTypeRating, QuestionTypeDate, QuestionTypeEmail:
		return true
	}
	return false
}

// IsChoice reports whether questions of this type carry an options list
func (t QuestionType) IsChoice() bool {
	return t == QuestionTypeSingleChoice || t == QuestionTypeMultiChoice
}

// IsTextLike reports whether answers of this type are free-form strings
func (t QuestionType) IsTextLike() bool {
	switch t {
	case QuestionTypeShortText, QuestionTypeLongText, QuestionTypeEmail, QuestionTypeDate:
		return true
	}
	return false
}

// Label returns the human-readable name used for default question text
func (t QuestionType) Label() string {
	switch t {
	case QuestionTypeShortText:
		return "Short Text"
	case QuestionTypeLongText:
		return "Long Text"
	case QuestionTypeSingleChoice:
		return "Single Choice"
	case QuestionTypeMultiChoice:
		return "Multiple Choice"
	case QuestionTypeRating:
		return "Rating Scale"
	case QuestionTypeDate:
		return "Date"
	case QuestionTypeEmail:
		return "Email"
	}
	return string(t)
}

// SkipOperator is the comparison used by a skip-logic condition
type SkipOperator string

const (
	SkipEquals      SkipOperator = "equals"
	SkipNotEquals   SkipOperator = "not_equals"
	SkipContains    SkipOperator = "contains"
	SkipGreaterThan SkipOperator = "greater_than"
	SkipLessThan    SkipOperator = "less_than"
)

// Valid reports whether op is a supported operator
func (op SkipOperator) Valid() bool {
	switch op {
	case SkipEquals, SkipNotEquals, SkipContains, SkipGreaterThan, SkipLessThan:
		return true
	}
	return false
}

// Question represents one prompt within a survey.
// Options is populated only for choice types and Scale only for rating
// questions; Validate rejects any other combination.
type Question struct {
	ID         string          `json:"id" yaml:"id" bson:"id"`
	Type       QuestionType    `json:"type" yaml:"type" bson:"type"`
	Text       string          `json:"text" yaml:"text" bson:"text"`
	HelpText   string          `json:"helpText,omitempty" yaml:"helpText,omitempty" bson:"helpText,omitempty"`
	Required   bool            `json:"required" yaml:"required" bson:"required"`
	Order      int             `json:"order" yaml:"order" bson:"order"`
	Options    []string        `json:"options,omitempty" yaml:"options,omitempty" bson:"options,omitempty"`
	Scale      *Scale          `json:"scale,omitempty" yaml:"scale,omitempty" bson:"scale,omitempty"`
	Validation *TextValidation `json:"validation,omitempty" yaml:"validation,omitempty" bson:"validation,omitempty"`
	SkipLogic  []SkipCondition `json:"skipLogic,omitempty" yaml:"skipLogic,omitempty" bson:"skipLogic,omitempty"`
}

// Scale describes the numeric range of a rating question
type Scale struct {
	Min      int    `json:"min" yaml:"min" bson:"min"`
	Max      int    `json:"max" yaml:"max" bson:"max"`
	MinLabel string `json:"minLabel,omitempty" yaml:"minLabel,omitempty" bson:"minLabel,omitempty"`
	MaxLabel string `json:"maxLabel,omitempty" yaml:"maxLabel,omitempty" bson:"maxLabel,omitempty"`
}

// Points returns every integer in [Min, Max]
func (s Scale) Points() []int {
	if s.Max < s.Min {
		return nil
	}
	points := make([]int, 0, s.Max-s.Min+1)
	for v := s.Min; v <= s.Max; v++ {
		points = append(points, v)
	}
	return points
}

// TextValidation holds optional rules for text-like answers
type TextValidation struct {
	MinLength *int   `json:"minLength,omitempty" yaml:"minLength,omitempty" bson:"minLength,omitempty"`
	MaxLength *int   `json:"maxLength,omitempty" yaml:"maxLength,omitempty" bson:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty" yaml:"pattern,omitempty" bson:"pattern,omitempty"`
}

// SkipCondition hides the owning question when the referenced answer matches
type SkipCondition struct {
	QuestionID string       `json:"questionId" yaml:"questionId" bson:"questionId"`
	Operator   SkipOperator `json:"operator" yaml:"operator" bson:"operator"`
	Value      string       `json:"value" yaml:"value" bson:"value"`
}

// Default option and scale values seeded for new questions
var (
	DefaultOptions = []string{"Option 1", "Option 2"}
	DefaultScale   = Scale{Min: 1, Max: 5}
)

// NewQuestion returns a question of the given type with a fresh id and
// the type's default text, options and scale.
func NewQuestion(t QuestionType, order int) Question {
	q := Question{
		ID:    uuid.New().String(),
		Type:  t,
		Text:  fmt.Sprintf("New %s Question", t.Label()),
		Order: order,
	}
	switch {
	case t.IsChoice():
		q.Options = append([]string(nil), DefaultOptions...)
	case t == QuestionTypeRating:
		scale := DefaultScale
		q.Scale = &scale
	}
	return q
}

// Clone returns a deep copy of q
func (q Question) Clone() Question {
	c := q
	if q.Options != nil {
		c.Options = append([]string(nil), q.Options...)
	}
	if q.Scale != nil {
		scale := *q.Scale
		c.Scale = &scale
	}
	if q.Validation != nil {
		v := *q.Validation
		if v.MinLength != nil {
			n := *v.MinLength
			v.MinLength = &n
		}
		if v.MaxLength != nil {
			n := *v.MaxLength
			v.MaxLength = &n
		}
		c.Validation = &v
	}
	if q.SkipLogic != nil {
		c.SkipLogic = append([]SkipCondition(nil), q.SkipLogic...)
	}
	return c
}

// HasOption reports whether value is one of the question's options
func (q *Question) HasOption(value string) bool {
	for _, opt := range q.Options {
		if opt == value {
			return true
		}
	}
	return false
}

// Validate checks the field-presence rules for the question's type
func (q *Question) Validate() error {
	if strings.TrimSpace(q.ID) == "" {
		return NewValidationError("id", "question ID is required")
	}
	if strings.TrimSpace(q.Text) == "" {
		return NewValidationError("text", "question text is required")
	}
	if len(q.Text) > MaxQuestionTextLength {
		return NewValidationError("text", fmt.Sprintf("question text too long: %d characters exceeds maximum of %d", len(q.Text), MaxQuestionTextLength))
	}

	switch q.Type {
	case QuestionTypeSingleChoice, QuestionTypeMultiChoice:
		if len(q.Options) == 0 {
			return NewValidationError("options", "choice questions must have at least one option")
		}
		if len(q.Options) > MaxOptionsPerQuestion {
			return NewValidationError("options", fmt.Sprintf("too many options: %d exceeds maximum of %d", len(q.Options), MaxOptionsPerQuestion))
		}
		seen := make(map[string]bool, len(q.Options))
		for i, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				return NewValidationError("options", fmt.Sprintf("option %d: option text is required", i))
			}
			if len(opt) > MaxOptionTextLength {
				return NewValidationError("options", fmt.Sprintf("option %d: option text too long", i))
			}
			if seen[opt] {
				return NewValidationError("options", fmt.Sprintf("duplicate option '%s'", opt))
			}
			seen[opt] = true
		}
		if q.Scale != nil {
			return NewValidationError("scale", "scale is only allowed on rating questions")
		}
	case QuestionTypeRating:
		if q.Scale == nil {
			return NewValidationError("scale", "rating questions must define a scale")
		}
		if q.Scale.Min >= q.Scale.Max {
			return NewValidationError("scale", fmt.Sprintf("scale min (%d) must be less than max (%d)", q.Scale.Min, q.Scale.Max))
		}
		if q.Scale.Max-q.Scale.Min > MaxScalePoints {
			return NewValidationError("scale", fmt.Sprintf("scale may span at most %d points", MaxScalePoints))
		}
		if len(q.Options) > 0 {
			return NewValidationError("options", "options are only allowed on choice questions")
		}
	case QuestionTypeShortText, QuestionTypeLongText, QuestionTypeDate, QuestionTypeEmail:
		if len(q.Options) > 0 {
			return NewValidationError("options", "options are only allowed on choice questions")
		}
		if q.Scale != nil {
			return NewValidationError("scale", "scale is only allowed on rating questions")
		}
	default:
		return NewValidationError("type", fmt.Sprintf("invalid question type '%s'", q.Type))
	}

	if q.Validation != nil {
		if !q.Type.IsTextLike() {
			return NewValidationError("validation", "validation rules are only allowed on text questions")
		}
		v := q.Validation
		if v.MinLength != nil && *v.MinLength < 0 {
			return NewValidationError("validation", "minLength must not be negative")
		}
		if v.MaxLength != nil && *v.MaxLength < 0 {
			return NewValidationError("validation", "maxLength must not be negative")
		}
		if v.MinLength != nil && v.MaxLength != nil && *v.MinLength > *v.MaxLength {
			return NewValidationError("validation", "minLength must not exceed maxLength")
		}
		if v.Pattern != "" {
			if _, err := regexp.Compile(v.Pattern); err != nil {
				return NewValidationError("validation", fmt.Sprintf("invalid pattern: %v", err))
			}
		}
	}

	for i, cond := range q.SkipLogic {
		if cond.QuestionID == "" {
			return NewValidationError("skipLogic", fmt.Sprintf("condition %d: questionId is required", i))
		}
		if cond.QuestionID == q.ID {
			return NewValidationError("skipLogic", fmt.Sprintf("condition %d: a question cannot depend on itself", i))
		}
		if !cond.Operator.Valid() {
			return NewValidationError("skipLogic", fmt.Sprintf("condition %d: invalid operator '%s'", i, cond.Operator))
		}
	}

	return nil
}
