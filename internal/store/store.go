// Package store defines the persistence contract shared by every survey backend.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/openmeet-team/surveystudio/internal/models"
)

// Store persists surveys and their responses.
//
// Implementations must assign ids and timestamps on create, bump the
// survey's responseCount atomically with every stored response and delete
// a survey's responses along with the survey.
type Store interface {
	CreateSurvey(ctx context.Context, draft *models.Survey, ownerID string) (*models.Survey, error)
	UpdateSurvey(ctx context.Context, id uuid.UUID, patch models.SurveyPatch) (*models.Survey, error)
	GetSurvey(ctx context.Context, id uuid.UUID) (*models.Survey, error)
	// ListSurveys returns surveys ordered by updatedAt descending; an empty
	// ownerID lists every survey.
	ListSurveys(ctx context.Context, ownerID string) ([]*models.Survey, error)
	DeleteSurvey(ctx context.Context, id uuid.UUID) error

	CreateResponse(ctx context.Context, r *models.Response) (*models.Response, error)
	// ListResponses returns a survey's responses ordered by submittedAt descending
	ListResponses(ctx context.Context, surveyID uuid.UUID) ([]*models.Response, error)
}

// Sentinel errors shared by all backends
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
	ErrTimeout  = errors.New("persistence call timed out")
)

// PersistenceError reports a failed backend call. The operation can be retried
// and callers keep their in-memory state.
type PersistenceError struct {
	Op  string
	Err error
}

// Error implements error
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the backend error
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Wrap annotates err with op as a PersistenceError, leaving not-found,
// conflict, timeout and validation errors recognisable through errors.Is.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

// IsRetryable reports whether err is a transient persistence failure
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, models.ErrValidation) {
		return false
	}
	if errors.Is(err, ErrTimeout) {
		return true
	}
	var pe *PersistenceError
	return errors.As(err, &pe)
}

// ConflictFromVersion converts a models.VersionConflictError into ErrConflict
func ConflictFromVersion(err error) error {
	var vc *models.VersionConflictError
	if errors.As(err, &vc) {
		return fmt.Errorf("%w: %s", ErrConflict, vc.Error())
	}
	return err
}
