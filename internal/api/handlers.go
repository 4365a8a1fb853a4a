package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/openmeet-team/surveystudio/internal/auth"
	"github.com/openmeet-team/surveystudio/internal/builder"
	"github.com/openmeet-team/surveystudio/internal/generator"
	"github.com/openmeet-team/surveystudio/internal/jobs"
	"github.com/openmeet-team/surveystudio/internal/live"
	"github.com/openmeet-team/surveystudio/internal/models"
	"github.com/openmeet-team/surveystudio/internal/store"
)

// GeneratorInterface defines the AI drafting the handlers need
type GeneratorInterface interface {
	Generate(ctx context.Context, prompt string) (*generator.Result, error)
	Refine(ctx context.Context, existing *models.SurveyDefinition, instruction string) (*generator.Result, error)
	CostLimiter() *generator.CostLimiter
}

// GenerationLimiter enforces the per-user and per-IP generation quotas
type GenerationLimiter interface {
	AllowAnonymous(ctx context.Context, ip string) (bool, error)
	AllowAuthenticated(ctx context.Context, userID string) (bool, error)
}

// Handlers holds the HTTP handlers and dependencies
type Handlers struct {
	store     store.Store
	hub       *live.Hub
	scheduler jobs.Scheduler

	generator     GeneratorInterface
	generatorRL   GenerationLimiter
	generationLog *generator.GenerationLogger

	now func() time.Time
}

// NewHandlers creates a new Handlers instance
func NewHandlers(s store.Store, hub *live.Hub) *Handlers {
	if hub == nil {
		hub = live.NewHub()
	}
	return &Handlers{store: s, hub: hub, now: time.Now}
}

// SetScheduler enables closing surveys automatically at their end date
func (h *Handlers) SetScheduler(s jobs.Scheduler) {
	h.scheduler = s
}

// SetGenerator sets the AI generator, its rate limiter and audit logger
func (h *Handlers) SetGenerator(gen GeneratorInterface, rl GenerationLimiter, logger *generator.GenerationLogger) {
	h.generator = gen
	h.generatorRL = rl
	h.generationLog = logger
}

func parseSurveyID(c echo.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	return id, err == nil
}

func invalidSurveyID(c echo.Context) error {
	return ValidationError(c, "Invalid survey id", "survey id must be a UUID")
}

// ownedSurvey loads the survey named in the path and checks that the caller
// created it
func (h *Handlers) ownedSurvey(c echo.Context, id uuid.UUID) (*models.Survey, error) {
	user := auth.GetUser(c)
	if user == nil {
		return nil, errAuthRequired
	}
	survey, err := h.store.GetSurvey(c.Request().Context(), id)
	if err != nil {
		return nil, err
	}
	if survey.CreatedBy != user.ID {
		return nil, errForbidden
	}
	return survey, nil
}

// CreateSurvey creates a draft survey
// POST /api/v1/surveys
func (h *Handlers) CreateSurvey(c echo.Context) error {
	var req CreateSurveyRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	def := &models.SurveyDefinition{
		Title:       req.Title,
		Description: req.Description,
		Settings:    req.Settings,
		Questions:   req.Questions,
	}
	return h.createFromDefinition(c, def)
}

// ImportSurvey creates a draft survey from a JSON or YAML definition
// POST /api/v1/surveys/import
func (h *Handlers) ImportSurvey(c echo.Context) error {
	var req ImportSurveyRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	def, err := models.ParseSurveyDefinition([]byte(req.Definition))
	if err != nil {
		return ValidationError(c, "Invalid survey definition", err.Error())
	}
	return h.createFromDefinition(c, def)
}

func (h *Handlers) createFromDefinition(c echo.Context, def *models.SurveyDefinition) error {
	draft, err := def.ToDraft()
	if err != nil {
		return respondError(c, "Invalid survey definition", err)
	}

	b := builder.New(h.store, auth.GetUser(c).ID)
	b.Load(draft)
	saved, err := b.Save(c.Request().Context())
	if err != nil {
		return respondError(c, "Failed to create survey", err)
	}
	return c.JSON(http.StatusCreated, saved)
}

// ListSurveys lists the caller's surveys, most recently updated first
// GET /api/v1/surveys
func (h *Handlers) ListSurveys(c echo.Context) error {
	surveys, err := h.store.ListSurveys(c.Request().Context(), auth.GetUser(c).ID)
	if err != nil {
		return respondError(c, "Failed to retrieve surveys", err)
	}

	items := make([]SurveyListItem, 0, len(surveys))
	for _, s := range surveys {
		items = append(items, toSurveyListItem(s))
	}
	return c.JSON(http.StatusOK, items)
}

// GetSurvey returns the full survey to its owner
// GET /api/v1/surveys/:id
func (h *Handlers) GetSurvey(c echo.Context) error {
	id, ok := parseSurveyID(c)
	if !ok {
		return invalidSurveyID(c)
	}
	survey, err := h.ownedSurvey(c, id)
	if err != nil {
		return respondError(c, "Failed to retrieve survey", err)
	}
	return c.JSON(http.StatusOK, survey)
}

// UpdateSurvey replaces title, description, settings or questions
// PUT /api/v1/surveys/:id
func (h *Handlers) UpdateSurvey(c echo.Context) error {
	id, ok := parseSurveyID(c)
	if !ok {
		return invalidSurveyID(c)
	}
	var req UpdateSurveyRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	survey, err := h.ownedSurvey(c, id)
	if err != nil {
		return respondError(c, "Failed to update survey", err)
	}

	draft := survey.Clone()
	draft.Version = req.Version
	if req.Questions != nil {
		draft.Questions = sanitizeQuestions(req.Questions)
	}

	b := builder.New(h.store, survey.CreatedBy)
	b.Load(draft)
	if req.Title != nil {
		b.SetTitle(models.SanitizeText(*req.Title))
	}
	if req.Description != nil {
		b.SetDescription(models.SanitizeText(*req.Description))
	}
	if req.Settings != nil {
		if err := b.SetSettings(*req.Settings); err != nil {
			return respondError(c, "Invalid settings", err)
		}
	}

	saved, err := b.Save(c.Request().Context())
	if err != nil {
		return respondError(c, "Failed to update survey", err)
	}
	if req.Settings != nil && saved.Status == models.StatusActive {
		h.scheduleClose(c, saved)
	}
	return c.JSON(http.StatusOK, saved)
}

func sanitizeQuestions(in []models.Question) []models.Question {
	out := make([]models.Question, len(in))
	for i, q := range in {
		q = q.Clone()
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		q.Text = models.SanitizeText(q.Text)
		q.HelpText = models.SanitizeText(q.HelpText)
		for j, opt := range q.Options {
			q.Options[j] = models.SanitizeText(opt)
		}
		out[i] = q
	}
	return out
}

// DeleteSurvey removes a survey and all of its responses
// DELETE /api/v1/surveys/:id
func (h *Handlers) DeleteSurvey(c echo.Context) error {
	id, ok := parseSurveyID(c)
	if !ok {
		return invalidSurveyID(c)
	}
	survey, err := h.ownedSurvey(c, id)
	if err != nil {
		return respondError(c, "Failed to delete survey", err)
	}

	if err := h.store.DeleteSurvey(c.Request().Context(), id); err != nil {
		return respondError(c, "Failed to delete survey", err)
	}
	h.cancelClose(c, survey)
	return c.NoContent(http.StatusNoContent)
}

// ChangeStatus publishes, closes, reopens, archives or restores a survey
// POST /api/v1/surveys/:id/status
func (h *Handlers) ChangeStatus(c echo.Context) error {
	id, ok := parseSurveyID(c)
	if !ok {
		return invalidSurveyID(c)
	}
	var req StatusRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	survey, err := h.ownedSurvey(c, id)
	if err != nil {
		return respondError(c, "Failed to change survey status", err)
	}
	if req.Version != nil {
		survey.Version = *req.Version
	}

	b := builder.New(h.store, survey.CreatedBy)
	b.Load(survey)
	if err := b.Transition(req.Status); err != nil {
		return respondError(c, "Invalid status change", err)
	}
	saved, err := b.Save(c.Request().Context())
	if err != nil {
		return respondError(c, "Failed to change survey status", err)
	}

	if saved.Status == models.StatusActive {
		h.scheduleClose(c, saved)
	} else {
		h.cancelClose(c, saved)
	}
	return c.JSON(http.StatusOK, saved)
}

// Scheduling failures do not undo the status change; the survey can still
// be closed by hand.
func (h *Handlers) scheduleClose(c echo.Context, s *models.Survey) {
	if h.scheduler == nil {
		return
	}
	if err := h.scheduler.ScheduleClose(c.Request().Context(), s); err != nil {
		c.Logger().Warnf("Failed to schedule close of survey %s: %v", s.ID, err)
	}
}

func (h *Handlers) cancelClose(c echo.Context, s *models.Survey) {
	if h.scheduler == nil {
		return
	}
	if err := h.scheduler.CancelClose(c.Request().Context(), s); err != nil {
		c.Logger().Warnf("Failed to cancel close of survey %s: %v", s.ID, err)
	}
}
