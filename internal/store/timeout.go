package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openmeet-team/surveystudio/internal/models"
	"github.com/openmeet-team/surveystudio/internal/telemetry"
)

// DefaultTimeout bounds a single persistence call
const DefaultTimeout = 5 * time.Second

// timeoutStore bounds every call of the wrapped Store
type timeoutStore struct {
	next    Store
	timeout time.Duration
	backend string
}

// WithTimeout wraps s so that every call is cancelled after timeout and a
// deadline expiry surfaces as ErrTimeout. Call durations are recorded under
// the backend label.
func WithTimeout(s Store, backend string, timeout time.Duration) Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &timeoutStore{next: s, timeout: timeout, backend: backend}
}

func (t *timeoutStore) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	status := "ok"
	if err != nil {
		status = "error"
	}
	telemetry.StoreOperationDuration.WithLabelValues(t.backend, op, status).Observe(time.Since(start).Seconds())

	if err != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	return err
}

func (t *timeoutStore) CreateSurvey(ctx context.Context, draft *models.Survey, ownerID string) (*models.Survey, error) {
	var out *models.Survey
	err := t.call(ctx, "create_survey", func(ctx context.Context) (err error) {
		out, err = t.next.CreateSurvey(ctx, draft, ownerID)
		return err
	})
	return out, err
}

func (t *timeoutStore) UpdateSurvey(ctx context.Context, id uuid.UUID, patch models.SurveyPatch) (*models.Survey, error) {
	var out *models.Survey
	err := t.call(ctx, "update_survey", func(ctx context.Context) (err error) {
		out, err = t.next.UpdateSurvey(ctx, id, patch)
		return err
	})
	return out, err
}

func (t *timeoutStore) GetSurvey(ctx context.Context, id uuid.UUID) (*models.Survey, error) {
	var out *models.Survey
	err := t.call(ctx, "get_survey", func(ctx context.Context) (err error) {
		out, err = t.next.GetSurvey(ctx, id)
		return err
	})
	return out, err
}

func (t *timeoutStore) ListSurveys(ctx context.Context, ownerID string) ([]*models.Survey, error) {
	var out []*models.Survey
	err := t.call(ctx, "list_surveys", func(ctx context.Context) (err error) {
		out, err = t.next.ListSurveys(ctx, ownerID)
		return err
	})
	return out, err
}

func (t *timeoutStore) DeleteSurvey(ctx context.Context, id uuid.UUID) error {
	return t.call(ctx, "delete_survey", func(ctx context.Context) error {
		return t.next.DeleteSurvey(ctx, id)
	})
}

func (t *timeoutStore) CreateResponse(ctx context.Context, r *models.Response) (*models.Response, error) {
	var out *models.Response
	err := t.call(ctx, "create_response", func(ctx context.Context) (err error) {
		out, err = t.next.CreateResponse(ctx, r)
		return err
	})
	return out, err
}

func (t *timeoutStore) ListResponses(ctx context.Context, surveyID uuid.UUID) ([]*models.Response, error) {
	var out []*models.Response
	err := t.call(ctx, "list_responses", func(ctx context.Context) (err error) {
		out, err = t.next.ListResponses(ctx, surveyID)
		return err
	})
	return out, err
}
