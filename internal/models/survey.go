package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// SurveyStatus is the lifecycle state of a survey
type SurveyStatus string

const (
	StatusDraft     SurveyStatus = "draft"
	StatusActive    SurveyStatus = "active"
	StatusCompleted SurveyStatus = "completed"
	StatusArchived  SurveyStatus = "archived"
)

// Valid reports whether s is a known status
func (s SurveyStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusCompleted, StatusArchived:
		return true
	}
	return false
}

// Survey represents a survey definition stored by a persistence backend
type Survey struct {
	ID            uuid.UUID    `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	CreatedBy     string       `json:"createdBy"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	Status        SurveyStatus `json:"status"`
	Questions     []Question   `json:"questions"`
	Settings      Settings     `json:"settings"`
	ResponseCount int          `json:"responseCount"`
	Version       int          `json:"version"`
}

// Settings controls who may respond and how the form is presented
type Settings struct {
	AllowAnonymous      bool       `json:"allowAnonymous" yaml:"allowAnonymous" bson:"allowAnonymous"`
	RequireAuth         bool       `json:"requireAuth" yaml:"requireAuth" bson:"requireAuth"`
	MultipleSubmissions bool       `json:"multipleSubmissions" yaml:"multipleSubmissions" bson:"multipleSubmissions"`
	ShowProgressBar     bool       `json:"showProgressBar" yaml:"showProgressBar" bson:"showProgressBar"`
	SubmissionLimit     *int       `json:"submissionLimit,omitempty" yaml:"submissionLimit,omitempty" bson:"submissionLimit,omitempty"`
	StartDate           *time.Time `json:"startDate,omitempty" yaml:"startDate,omitempty" bson:"startDate,omitempty"`
	EndDate             *time.Time `json:"endDate,omitempty" yaml:"endDate,omitempty" bson:"endDate,omitempty"`
}

// DefaultSettings returns the settings applied to new surveys
func DefaultSettings() Settings {
	return Settings{
		AllowAnonymous:      true,
		RequireAuth:         false,
		MultipleSubmissions: false,
		ShowProgressBar:     true,
	}
}

// UnmarshalJSON starts from DefaultSettings so omitted flags keep their defaults
func (s *Settings) UnmarshalJSON(data []byte) error {
	type plain Settings
	p := plain(DefaultSettings())
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = Settings(p)
	return nil
}

// UnmarshalYAML starts from DefaultSettings so omitted flags keep their defaults
func (s *Settings) UnmarshalYAML(value *yaml.Node) error {
	type plain Settings
	p := plain(DefaultSettings())
	if err := value.Decode(&p); err != nil {
		return err
	}
	*s = Settings(p)
	return nil
}

// Validate checks settings consistency
func (s Settings) Validate() error {
	if s.SubmissionLimit != nil && *s.SubmissionLimit <= 0 {
		return NewValidationError("settings.submissionLimit", "submission limit must be positive")
	}
	if s.StartDate != nil && s.EndDate != nil && !s.EndDate.After(*s.StartDate) {
		return NewValidationError("settings.endDate", "end date must be after start date")
	}
	return nil
}

// SurveyPatch holds the fields to merge into an existing survey.
// Nil fields are left untouched.
type SurveyPatch struct {
	Title       *string
	Description *string
	Status      *SurveyStatus
	Questions   []Question
	Settings    *Settings

	// ExpectedVersion enables optimistic concurrency: when set, the update
	// fails with a conflict unless the stored version matches.
	ExpectedVersion *int
}

// Security limits for definition size
const (
	MaxSurveyDefinitionSize = 100 * 1024 // 100KB
	MaxQuestions            = 100
	MaxOptionsPerQuestion   = 50
	MaxQuestionTextLength   = 1000
	MaxOptionTextLength     = 500
	MaxTitleLength          = 200
	MaxTextAnswerLength     = 5000
	MaxScalePoints          = 10
)

// Regex patterns for sanitization (compiled once for performance)
var (
	// Matches dangerous HTML tags (script, iframe, object, embed, link, style, img)
	dangerousTagsRegex = regexp.MustCompile(`(?i)<\s*(script|iframe|object|embed|link|style|img)(\s+[^>]*)?>(.*?)</\s*(script|iframe|object|embed|link|style|img)\s*>|<\s*(script|iframe|object|embed|link|style|img)(\s+[^>]*)?>`)
)

// SanitizeText removes dangerous HTML tags and control characters from user input.
// Newlines, tabs and carriage returns are preserved; surrounding whitespace is trimmed.
func SanitizeText(input string) string {
	sanitized := dangerousTagsRegex.ReplaceAllString(input, "")

	sanitized = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) {
			return r
		}
		if r == '\n' || r == '\t' || r == '\r' {
			return r
		}
		return -1
	}, sanitized)

	return strings.TrimSpace(sanitized)
}

// NewSurvey fills in identity, ownership, timestamps and lifecycle defaults
// for a draft about to be persisted for the first time.
func NewSurvey(draft *Survey, ownerID string, now time.Time) *Survey {
	s := draft.Clone()
	s.ID = uuid.New()
	s.CreatedBy = ownerID
	s.CreatedAt = now
	s.UpdatedAt = now
	s.Status = StatusDraft
	s.ResponseCount = 0
	s.Version = 1
	if s.Questions == nil {
		s.Questions = []Question{}
	}
	s.NormalizeOrder()
	return s
}

// Apply merges the patch into s, refreshing UpdatedAt and bumping Version.
// It returns a conflict error when ExpectedVersion does not match.
func (p SurveyPatch) Apply(s *Survey, now time.Time) error {
	if p.ExpectedVersion != nil && *p.ExpectedVersion != s.Version {
		return &VersionConflictError{Expected: *p.ExpectedVersion, Actual: s.Version}
	}
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Status != nil {
		s.Status = *p.Status
	}
	if p.Questions != nil {
		s.Questions = make([]Question, len(p.Questions))
		for i, q := range p.Questions {
			s.Questions[i] = q.Clone()
		}
		s.NormalizeOrder()
	}
	if p.Settings != nil {
		s.Settings = *p.Settings
	}
	s.UpdatedAt = now
	s.Version++
	return nil
}

// VersionConflictError is returned when an update was based on a stale version
type VersionConflictError struct {
	Expected int
	Actual   int
}

// Error implements error
func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("version conflict: expected %d, found %d", e.Expected, e.Actual)
}

// Clone returns a deep copy of s
func (s *Survey) Clone() *Survey {
	c := *s
	if s.Questions != nil {
		c.Questions = make([]Question, len(s.Questions))
		for i, q := range s.Questions {
			c.Questions[i] = q.Clone()
		}
	}
	if s.Settings.SubmissionLimit != nil {
		n := *s.Settings.SubmissionLimit
		c.Settings.SubmissionLimit = &n
	}
	if s.Settings.StartDate != nil {
		t := *s.Settings.StartDate
		c.Settings.StartDate = &t
	}
	if s.Settings.EndDate != nil {
		t := *s.Settings.EndDate
		c.Settings.EndDate = &t
	}
	return &c
}

// NormalizeOrder sets every question's Order to its index in Questions
func (s *Survey) NormalizeOrder() {
	for i := range s.Questions {
		s.Questions[i].Order = i
	}
}

// Question returns the question with the given id
func (s *Survey) Question(id string) (*Question, bool) {
	for i := range s.Questions {
		if s.Questions[i].ID == id {
			return &s.Questions[i], true
		}
	}
	return nil, false
}

// Validate checks the survey title, settings and every question
func (s *Survey) Validate() error {
	if strings.TrimSpace(s.Title) == "" {
		return NewValidationError("title", "survey title is required")
	}
	if len(s.Title) > MaxTitleLength {
		return NewValidationError("title", fmt.Sprintf("survey title too long: %d characters exceeds maximum of %d", len(s.Title), MaxTitleLength))
	}
	if len(s.Questions) > MaxQuestions {
		return NewValidationError("questions", fmt.Sprintf("too many questions: %d exceeds maximum of %d", len(s.Questions), MaxQuestions))
	}
	if err := s.Settings.Validate(); err != nil {
		return err
	}

	position := make(map[string]int, len(s.Questions))
	for i := range s.Questions {
		q := &s.Questions[i]
		if err := q.Validate(); err != nil {
			return prefixed(fmt.Sprintf("questions[%d]", i), err)
		}
		if _, dup := position[q.ID]; dup {
			return NewValidationError(fmt.Sprintf("questions[%d].id", i), fmt.Sprintf("duplicate question ID '%s'", q.ID))
		}
		position[q.ID] = i
	}

	// Skip conditions may only look back at earlier questions
	for i, q := range s.Questions {
		for j, cond := range q.SkipLogic {
			ref, ok := position[cond.QuestionID]
			if !ok {
				return NewValidationError(fmt.Sprintf("questions[%d].skipLogic[%d]", i, j), fmt.Sprintf("unknown question '%s'", cond.QuestionID))
			}
			if ref >= i {
				return NewValidationError(fmt.Sprintf("questions[%d].skipLogic[%d]", i, j), "condition must reference an earlier question")
			}
		}
	}

	return nil
}

// Transition moves the survey to the next lifecycle status
func (s *Survey) Transition(to SurveyStatus) error {
	if !to.Valid() {
		return NewValidationError("status", fmt.Sprintf("invalid status '%s'", to))
	}
	allowed := false
	switch s.Status {
	case StatusDraft:
		allowed = to == StatusActive || to == StatusArchived
	case StatusActive:
		allowed = to == StatusCompleted || to == StatusArchived
	case StatusCompleted:
		allowed = to == StatusActive || to == StatusArchived
	case StatusArchived:
		allowed = to == StatusDraft
	}
	if !allowed {
		return NewValidationError("status", fmt.Sprintf("cannot change status from %s to %s", s.Status, to))
	}
	if to == StatusActive && len(s.Questions) == 0 {
		return NewValidationError("questions", "a survey needs at least one question before it can be published")
	}
	s.Status = to
	return nil
}

// Availability reasons returned by AcceptingResponses
var (
	ErrSurveyNotActive  = errors.New("survey is not accepting responses")
	ErrSurveyNotStarted = errors.New("survey has not started yet")
	ErrSurveyEnded      = errors.New("survey has ended")
	ErrSubmissionLimit  = errors.New("survey has reached its submission limit")
)

// AcceptingResponses reports whether a public respondent may submit at now
func (s *Survey) AcceptingResponses(now time.Time) error {
	if s.Status != StatusActive {
		return ErrSurveyNotActive
	}
	if s.Settings.StartDate != nil && now.Before(*s.Settings.StartDate) {
		return ErrSurveyNotStarted
	}
	if s.Settings.EndDate != nil && !now.Before(*s.Settings.EndDate) {
		return ErrSurveyEnded
	}
	if s.Settings.SubmissionLimit != nil && s.ResponseCount >= *s.Settings.SubmissionLimit {
		return ErrSubmissionLimit
	}
	return nil
}

// SurveyDefinition is the importable shape of a survey, written as JSON or YAML
type SurveyDefinition struct {
	Title       string     `json:"title" yaml:"title"`
	Description string     `json:"description" yaml:"description"`
	Settings    *Settings  `json:"settings,omitempty" yaml:"settings,omitempty"`
	Questions   []Question `json:"questions" yaml:"questions"`
}

// ParseSurveyDefinition parses a survey definition from JSON or YAML
func ParseSurveyDefinition(data []byte) (*SurveyDefinition, error) {
	if len(data) > MaxSurveyDefinitionSize {
		return nil, fmt.Errorf("survey definition too large: %d bytes exceeds maximum of 100KB", len(data))
	}

	var def SurveyDefinition

	// Try JSON first
	if err := json.Unmarshal(data, &def); err == nil {
		return &def, nil
	}

	// Try YAML with strict unmarshaling
	def = SurveyDefinition{}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&def); err != nil {
		return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", err)
	}

	return &def, nil
}

// ToDraft converts the definition into an unsaved survey. Missing question
// ids are generated, text is sanitized and order is taken from position.
func (d *SurveyDefinition) ToDraft() (*Survey, error) {
	s := &Survey{
		Title:       SanitizeText(d.Title),
		Description: SanitizeText(d.Description),
		Status:      StatusDraft,
		Settings:    DefaultSettings(),
		Questions:   make([]Question, len(d.Questions)),
	}
	if d.Settings != nil {
		s.Settings = *d.Settings
	}
	for i, q := range d.Questions {
		q = q.Clone()
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		q.Text = SanitizeText(q.Text)
		q.HelpText = SanitizeText(q.HelpText)
		for j, opt := range q.Options {
			q.Options[j] = SanitizeText(opt)
		}
		s.Questions[i] = q
	}
	s.NormalizeOrder()

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
