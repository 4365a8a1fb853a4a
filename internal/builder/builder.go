// Package builder implements the survey editor: an in-memory draft with
// question mutations that is persisted on an explicit Save.
package builder

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/openmeet-team/surveystudio/internal/models"
	"github.com/openmeet-team/surveystudio/internal/telemetry"
)

// ErrQuestionNotFound is returned by mutations that reference an unknown question id
var ErrQuestionNotFound = errors.New("question not found")

// Saver is the persistence the builder needs
type Saver interface {
	CreateSurvey(ctx context.Context, draft *models.Survey, ownerID string) (*models.Survey, error)
	UpdateSurvey(ctx context.Context, id uuid.UUID, patch models.SurveyPatch) (*models.Survey, error)
}

// QuestionPatch holds the question fields to change; nil fields are left alone.
// Changing Type reseeds or drops the type-specific fields.
type QuestionPatch struct {
	Type       *models.QuestionType
	Text       *string
	HelpText   *string
	Required   *bool
	Options    []string
	Scale      *models.Scale
	Validation *models.TextValidation
	SkipLogic  []models.SkipCondition

	ClearValidation bool
	ClearSkipLogic  bool
}

// Builder edits one survey draft. It is not safe for concurrent use.
type Builder struct {
	saver    Saver
	ownerID  string
	draft    *models.Survey
	selected string
	dirty    bool
}

// New returns a builder over an empty, unsaved draft owned by ownerID
func New(saver Saver, ownerID string) *Builder {
	return &Builder{
		saver:   saver,
		ownerID: ownerID,
		draft: &models.Survey{
			Status:    models.StatusDraft,
			Settings:  models.DefaultSettings(),
			Questions: []models.Question{},
		},
	}
}

// Load replaces the draft with a copy of an existing survey
func (b *Builder) Load(s *models.Survey) {
	b.draft = s.Clone()
	if b.draft.Questions == nil {
		b.draft.Questions = []models.Question{}
	}
	b.selected = ""
	b.dirty = false
}

// Draft returns a copy of the current draft
func (b *Builder) Draft() *models.Survey {
	return b.draft.Clone()
}

// Dirty reports whether the draft has unsaved changes
func (b *Builder) Dirty() bool {
	return b.dirty
}

// Selected returns the question currently targeted for editing
func (b *Builder) Selected() (models.Question, bool) {
	if b.selected == "" {
		return models.Question{}, false
	}
	i := b.index(b.selected)
	if i < 0 {
		return models.Question{}, false
	}
	return b.draft.Questions[i].Clone(), true
}

// Select makes id the active edit target
func (b *Builder) Select(id string) error {
	if b.index(id) < 0 {
		return fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}
	b.selected = id
	return nil
}

// SetTitle changes the draft title; it is checked on Save
func (b *Builder) SetTitle(title string) {
	b.draft.Title = title
	b.dirty = true
}

// SetDescription changes the draft description
func (b *Builder) SetDescription(description string) {
	b.draft.Description = description
	b.dirty = true
}

// SetSettings replaces the survey settings after checking them
func (b *Builder) SetSettings(settings models.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	b.draft.Settings = settings
	b.dirty = true
	return nil
}

// Transition changes the draft's lifecycle status; it is persisted by Save
func (b *Builder) Transition(to models.SurveyStatus) error {
	if err := b.draft.Transition(to); err != nil {
		return err
	}
	b.dirty = true
	return nil
}

// AddQuestion appends a question of type t with default text, options and
// scale, and selects it.
func (b *Builder) AddQuestion(t models.QuestionType) (models.Question, error) {
	if !t.Valid() {
		return models.Question{}, models.NewValidationError("type", fmt.Sprintf("invalid question type '%s'", t))
	}
	if len(b.draft.Questions) >= models.MaxQuestions {
		return models.Question{}, models.NewValidationError("questions", fmt.Sprintf("a survey may have at most %d questions", models.MaxQuestions))
	}

	q := models.NewQuestion(t, len(b.draft.Questions))
	b.draft.Questions = append(b.draft.Questions, q)
	b.selected = q.ID
	b.dirty = true
	return q.Clone(), nil
}

// UpdateQuestion merges patch into the question with the given id
func (b *Builder) UpdateQuestion(id string, patch QuestionPatch) (models.Question, error) {
	i := b.index(id)
	if i < 0 {
		return models.Question{}, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}

	q := b.draft.Questions[i].Clone()
	if patch.Type != nil && *patch.Type != q.Type {
		if !patch.Type.Valid() {
			return models.Question{}, models.NewValidationError("type", fmt.Sprintf("invalid question type '%s'", *patch.Type))
		}
		retype(&q, *patch.Type)
	}
	if patch.Text != nil {
		q.Text = *patch.Text
	}
	if patch.HelpText != nil {
		q.HelpText = *patch.HelpText
	}
	if patch.Required != nil {
		q.Required = *patch.Required
	}
	if patch.Options != nil {
		q.Options = append([]string(nil), patch.Options...)
	}
	if patch.Scale != nil {
		scale := *patch.Scale
		q.Scale = &scale
	}
	if patch.ClearValidation {
		q.Validation = nil
	} else if patch.Validation != nil {
		v := *patch.Validation
		q.Validation = &v
	}
	if patch.ClearSkipLogic {
		q.SkipLogic = nil
	} else if patch.SkipLogic != nil {
		q.SkipLogic = append([]models.SkipCondition(nil), patch.SkipLogic...)
	}

	b.draft.Questions[i] = q
	b.dirty = true
	return q.Clone(), nil
}

// retype switches q to t, seeding defaults for fields the new type needs and
// dropping the ones it cannot carry
func retype(q *models.Question, t models.QuestionType) {
	q.Type = t
	if t.IsChoice() {
		if len(q.Options) == 0 {
			q.Options = append([]string(nil), models.DefaultOptions...)
		}
	} else {
		q.Options = nil
	}
	if t == models.QuestionTypeRating {
		if q.Scale == nil {
			scale := models.DefaultScale
			q.Scale = &scale
		}
	} else {
		q.Scale = nil
	}
	if !t.IsTextLike() {
		q.Validation = nil
	}
}

// DeleteQuestion removes the question and any skip conditions that pointed
// at it. The selection is cleared when it was the removed question.
func (b *Builder) DeleteQuestion(id string) error {
	i := b.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}

	b.draft.Questions = append(b.draft.Questions[:i], b.draft.Questions[i+1:]...)
	for j := range b.draft.Questions {
		q := &b.draft.Questions[j]
		if len(q.SkipLogic) == 0 {
			continue
		}
		kept := q.SkipLogic[:0]
		for _, c := range q.SkipLogic {
			if c.QuestionID != id {
				kept = append(kept, c)
			}
		}
		if len(kept) == 0 {
			kept = nil
		}
		q.SkipLogic = kept
	}
	b.draft.NormalizeOrder()

	if b.selected == id {
		b.selected = ""
	}
	b.dirty = true
	return nil
}

// DuplicateQuestion appends a copy of the question with a new id and
// " (Copy)" added to its text, and selects the copy.
func (b *Builder) DuplicateQuestion(id string) (models.Question, error) {
	i := b.index(id)
	if i < 0 {
		return models.Question{}, fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}
	if len(b.draft.Questions) >= models.MaxQuestions {
		return models.Question{}, models.NewValidationError("questions", fmt.Sprintf("a survey may have at most %d questions", models.MaxQuestions))
	}

	dup := b.draft.Questions[i].Clone()
	dup.ID = uuid.New().String()
	dup.Text = dup.Text + " (Copy)"
	dup.Order = len(b.draft.Questions)
	b.draft.Questions = append(b.draft.Questions, dup)

	b.selected = dup.ID
	b.dirty = true
	return dup.Clone(), nil
}

// MoveQuestion moves the question to position to, clamped to the list bounds
func (b *Builder) MoveQuestion(id string, to int) error {
	i := b.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrQuestionNotFound, id)
	}
	if to < 0 {
		to = 0
	}
	if last := len(b.draft.Questions) - 1; to > last {
		to = last
	}
	if to == i {
		return nil
	}

	q := b.draft.Questions[i]
	qs := append(b.draft.Questions[:i], b.draft.Questions[i+1:]...)
	qs = append(qs[:to], append([]models.Question{q}, qs[to:]...)...)
	b.draft.Questions = qs
	b.draft.NormalizeOrder()
	b.dirty = true
	return nil
}

// Save validates the draft and persists it, creating the survey on first
// save and updating it (guarded by the loaded version) afterwards. On
// failure the draft is kept so the save can be retried.
func (b *Builder) Save(ctx context.Context) (*models.Survey, error) {
	b.draft.NormalizeOrder()
	if err := b.draft.Validate(); err != nil {
		return nil, err
	}

	var (
		saved *models.Survey
		err   error
	)
	operation := "update"
	if b.draft.ID == uuid.Nil {
		operation = "create"
		saved, err = b.saver.CreateSurvey(ctx, b.draft, b.ownerID)
	} else {
		title, description, status, settings := b.draft.Title, b.draft.Description, b.draft.Status, b.draft.Settings
		version := b.draft.Version
		saved, err = b.saver.UpdateSurvey(ctx, b.draft.ID, models.SurveyPatch{
			Title:           &title,
			Description:     &description,
			Status:          &status,
			Questions:       b.draft.Questions,
			Settings:        &settings,
			ExpectedVersion: &version,
		})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save survey: %w", err)
	}
	telemetry.SurveysSavedTotal.WithLabelValues(operation).Inc()

	b.draft = saved.Clone()
	if b.draft.Questions == nil {
		b.draft.Questions = []models.Question{}
	}
	b.dirty = false
	return saved, nil
}

func (b *Builder) index(id string) int {
	for i := range b.draft.Questions {
		if b.draft.Questions[i].ID == id {
			return i
		}
	}
	return -1
}
