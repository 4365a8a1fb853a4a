package api

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/openmeet-team/surveystudio/internal/analytics"
	"github.com/openmeet-team/surveystudio/internal/builder"
	"github.com/openmeet-team/surveystudio/internal/models"
	"github.com/openmeet-team/surveystudio/internal/renderer"
)

// CreateSurveyRequest creates a survey from structured fields
type CreateSurveyRequest struct {
	Title       string            `json:"title" validate:"required,max=200"`
	Description string            `json:"description"`
	Settings    *models.Settings  `json:"settings,omitempty"`
	Questions   []models.Question `json:"questions"`
}

// ImportSurveyRequest creates a survey from a JSON or YAML definition document
type ImportSurveyRequest struct {
	Definition string `json:"definition" validate:"required"`
}

// UpdateSurveyRequest replaces the given fields of a survey. Version must be
// the version the client last read.
type UpdateSurveyRequest struct {
	Title       *string           `json:"title,omitempty"`
	Description *string           `json:"description,omitempty"`
	Settings    *models.Settings  `json:"settings,omitempty"`
	Questions   []models.Question `json:"questions,omitempty"`
	Version     int               `json:"version" validate:"required,gt=0"`
}

// StatusRequest moves a survey through its lifecycle
type StatusRequest struct {
	Status  models.SurveyStatus `json:"status" validate:"required,oneof=draft active completed archived"`
	Version *int                `json:"version,omitempty" validate:"omitempty,gt=0"`
}

// QuestionFields are the editable question fields; absent fields are unchanged
type QuestionFields struct {
	Type            *models.QuestionType   `json:"type,omitempty"`
	Text            *string                `json:"text,omitempty" validate:"omitempty,max=1000"`
	HelpText        *string                `json:"helpText,omitempty"`
	Required        *bool                  `json:"required,omitempty"`
	Options         []string               `json:"options,omitempty" validate:"omitempty,max=50"`
	Scale           *models.Scale          `json:"scale,omitempty"`
	Validation      *models.TextValidation `json:"validation,omitempty"`
	SkipLogic       []models.SkipCondition `json:"skipLogic,omitempty"`
	ClearValidation bool                   `json:"clearValidation,omitempty"`
	ClearSkipLogic  bool                   `json:"clearSkipLogic,omitempty"`
}

func (f QuestionFields) empty() bool {
	return f.Type == nil && f.Text == nil && f.HelpText == nil && f.Required == nil &&
		f.Options == nil && f.Scale == nil && f.Validation == nil && f.SkipLogic == nil &&
		!f.ClearValidation && !f.ClearSkipLogic
}

func (f QuestionFields) toPatch() builder.QuestionPatch {
	p := builder.QuestionPatch{
		Type:            f.Type,
		Required:        f.Required,
		Options:         f.Options,
		Scale:           f.Scale,
		Validation:      f.Validation,
		SkipLogic:       f.SkipLogic,
		ClearValidation: f.ClearValidation,
		ClearSkipLogic:  f.ClearSkipLogic,
	}
	if f.Text != nil {
		text := models.SanitizeText(*f.Text)
		p.Text = &text
	}
	if f.HelpText != nil {
		help := models.SanitizeText(*f.HelpText)
		p.HelpText = &help
	}
	for i, opt := range p.Options {
		p.Options[i] = models.SanitizeText(opt)
	}
	return p
}

// AddQuestionRequest appends a question of Type, optionally setting other
// fields in the same call
type AddQuestionRequest struct {
	QuestionFields
	Type models.QuestionType `json:"type" validate:"required"`
}

// MoveQuestionRequest moves a question to a zero-based position
type MoveQuestionRequest struct {
	Index *int `json:"index" validate:"required,gte=0"`
}

// QuestionResponse returns the affected question with the saved survey
type QuestionResponse struct {
	Question models.Question `json:"question"`
	Survey   *models.Survey  `json:"survey"`
}

// SurveyListItem is a survey in list responses (without questions)
type SurveyListItem struct {
	ID            uuid.UUID           `json:"id"`
	Title         string              `json:"title"`
	Description   string              `json:"description,omitempty"`
	Status        models.SurveyStatus `json:"status"`
	QuestionCount int                 `json:"questionCount"`
	ResponseCount int                 `json:"responseCount"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

func toSurveyListItem(s *models.Survey) SurveyListItem {
	return SurveyListItem{
		ID:            s.ID,
		Title:         s.Title,
		Description:   s.Description,
		Status:        s.Status,
		QuestionCount: len(s.Questions),
		ResponseCount: s.ResponseCount,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// PublicSurveyResponse is the respondent's view of a survey
type PublicSurveyResponse struct {
	ID              uuid.UUID         `json:"id"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	Questions       []models.Question `json:"questions"`
	ShowProgressBar bool              `json:"showProgressBar"`
	PageSize        int               `json:"pageSize"`
	TotalPages      int               `json:"totalPages"`
	EndDate         *time.Time        `json:"endDate,omitempty"`
}

func toPublicSurvey(s *renderer.Session) PublicSurveyResponse {
	survey := s.Survey()
	questions := make([]models.Question, len(survey.Questions))
	copy(questions, survey.Questions)
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].Order < questions[j].Order })

	return PublicSurveyResponse{
		ID:              survey.ID,
		Title:           survey.Title,
		Description:     survey.Description,
		Questions:       questions,
		ShowProgressBar: survey.Settings.ShowProgressBar,
		PageSize:        renderer.PageSize,
		TotalPages:      s.TotalPages(),
		EndDate:         survey.Settings.EndDate,
	}
}

// SubmitResponseRequest is a complete set of answers keyed by question id.
// CompletionTime is the seconds the respondent spent, measured client-side.
type SubmitResponseRequest struct {
	Answers        map[string]models.Answer `json:"responses" validate:"required"`
	CompletionTime *int                     `json:"completionTime,omitempty" validate:"omitempty,gte=0"`
}

// ResponseSubmittedResponse acknowledges a stored (or previewed) response
type ResponseSubmittedResponse struct {
	ID             uuid.UUID `json:"id"`
	SurveyID       uuid.UUID `json:"surveyId"`
	SubmittedAt    time.Time `json:"submittedAt"`
	CompletionTime *int      `json:"completionTime,omitempty"`
	Preview        bool      `json:"preview,omitempty"`
}

// ResponseListResponse lists a survey's responses, newest first
type ResponseListResponse struct {
	Responses []*models.Response `json:"responses"`
	Total     int                `json:"total"`
}

// LiveMessage is sent on the analytics websocket
type LiveMessage struct {
	Type   string           `json:"type"` // snapshot or update
	Report analytics.Report `json:"report"`
}

// GenerateSurveyRequest asks the LLM for a draft, or a revision of Existing
type GenerateSurveyRequest struct {
	Description string                   `json:"description" validate:"required"`
	Consent     bool                     `json:"consent"`
	Existing    *models.SurveyDefinition `json:"existing,omitempty"`
}

// GenerateSurveyResponse carries the generated definition and the draft it
// produces; nothing is saved until the client creates the survey
type GenerateSurveyResponse struct {
	Definition *models.SurveyDefinition `json:"definition"`
	Draft      *models.Survey           `json:"draft"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details string   `json:"details,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}
