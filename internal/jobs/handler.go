package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/openmeet-team/surveystudio/internal/models"
	"github.com/openmeet-team/surveystudio/internal/store"
	"github.com/openmeet-team/surveystudio/internal/telemetry"
)

// Handler executes survey tasks against a store
type Handler struct {
	store store.Store
	now   func() time.Time
}

// NewHandler creates a task handler that updates surveys in s
func NewHandler(s store.Store) *Handler {
	return &Handler{store: s, now: time.Now}
}

// Register installs the task handlers on mux
func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeCloseSurvey, h.HandleCloseSurvey)
}

// HandleCloseSurvey moves an active survey to completed once its end date
// has passed. Deleted, already closed and rescheduled surveys are skipped.
func (h *Handler) HandleCloseSurvey(ctx context.Context, t *asynq.Task) error {
	var payload CloseSurveyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		telemetry.SurveysClosedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("invalid payload: %v: %w", err, asynq.SkipRetry)
	}
	id, err := uuid.Parse(payload.SurveyID)
	if err != nil {
		telemetry.SurveysClosedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("invalid survey id %q: %v: %w", payload.SurveyID, err, asynq.SkipRetry)
	}

	survey, err := h.store.GetSurvey(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("Survey %s not found, possibly deleted. Skipping close task", id)
		telemetry.SurveysClosedTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	if err != nil {
		telemetry.SurveysClosedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to load survey: %w", err)
	}

	if survey.Status != models.StatusActive {
		telemetry.SurveysClosedTotal.WithLabelValues("skipped").Inc()
		return nil
	}
	// The end date may have moved since the task was queued
	if end := survey.Settings.EndDate; end == nil || h.now().Before(*end) {
		telemetry.SurveysClosedTotal.WithLabelValues("skipped").Inc()
		return nil
	}

	status := models.StatusCompleted
	_, err = h.store.UpdateSurvey(ctx, id, models.SurveyPatch{Status: &status, ExpectedVersion: &survey.Version})
	if err != nil {
		telemetry.SurveysClosedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to close survey: %w", err)
	}

	log.Printf("Survey closed after end date: %s", id)
	telemetry.SurveysClosedTotal.WithLabelValues("closed").Inc()
	return nil
}
