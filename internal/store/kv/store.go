package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/openmeet-team/surveystudio/internal/models"
	"github.com/openmeet-team/surveystudio/internal/store"
)

const (
	surveyPrefix   = "survey:"
	responsePrefix = "response:"
)

func surveyKey(id uuid.UUID) string {
	return surveyPrefix + id.String()
}

func responsesPrefix(surveyID uuid.UUID) string {
	return responsePrefix + surveyID.String() + ":"
}

func responseKey(surveyID, id uuid.UUID) string {
	return responsesPrefix(surveyID) + id.String()
}

// Store implements store.Store over any KV backend. Surveys and responses
// are stored as JSON documents under "survey:<id>" and
// "response:<surveyID>:<id>".
type Store struct {
	kv  KV
	now func() time.Time
}

var _ store.Store = (*Store)(nil)

// New creates a Store over kv
func New(kv KV) *Store {
	return &Store{kv: kv, now: func() time.Time { return time.Now().UTC() }}
}

// Close releases the underlying KV
func (s *Store) Close() error {
	return s.kv.Close()
}

// CreateSurvey stores a new survey owned by ownerID
func (s *Store) CreateSurvey(ctx context.Context, draft *models.Survey, ownerID string) (*models.Survey, error) {
	survey := models.NewSurvey(draft, ownerID, s.now())
	data, err := json.Marshal(survey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal survey: %w", err)
	}

	key := surveyKey(survey.ID)
	err = s.kv.Update(ctx, []string{key}, func(tx Txn) error {
		return tx.Set(key, data)
	})
	if err != nil {
		return nil, store.Wrap("create survey", err)
	}
	return survey, nil
}

// UpdateSurvey applies patch, failing with store.ErrConflict on a stale version
func (s *Store) UpdateSurvey(ctx context.Context, id uuid.UUID, patch models.SurveyPatch) (*models.Survey, error) {
	key := surveyKey(id)
	var updated *models.Survey
	err := s.kv.Update(ctx, []string{key}, func(tx Txn) error {
		survey, err := getSurvey(tx.Get, key)
		if err != nil {
			return err
		}
		if err := patch.Apply(survey, s.now()); err != nil {
			return store.ConflictFromVersion(err)
		}
		data, err := json.Marshal(survey)
		if err != nil {
			return fmt.Errorf("failed to marshal survey: %w", err)
		}
		updated = survey
		return tx.Set(key, data)
	})
	if err != nil {
		return nil, wrapErr("update survey", err)
	}
	return updated, nil
}

// GetSurvey returns the survey or store.ErrNotFound
func (s *Store) GetSurvey(ctx context.Context, id uuid.UUID) (*models.Survey, error) {
	survey, err := getSurvey(func(key string) ([]byte, error) {
		return s.kv.Get(ctx, key)
	}, surveyKey(id))
	if err != nil {
		return nil, wrapErr("get survey", err)
	}
	return survey, nil
}

// ListSurveys returns the owner's surveys, most recently updated first
func (s *Store) ListSurveys(ctx context.Context, ownerID string) ([]*models.Survey, error) {
	values, err := s.kv.Scan(ctx, surveyPrefix)
	if err != nil {
		return nil, store.Wrap("list surveys", err)
	}

	surveys := make([]*models.Survey, 0, len(values))
	for _, v := range values {
		var survey models.Survey
		if err := json.Unmarshal(v, &survey); err != nil {
			return nil, fmt.Errorf("failed to unmarshal survey: %w", err)
		}
		if ownerID != "" && survey.CreatedBy != ownerID {
			continue
		}
		surveys = append(surveys, &survey)
	}

	sort.SliceStable(surveys, func(i, j int) bool {
		return surveys[i].UpdatedAt.After(surveys[j].UpdatedAt)
	})
	return surveys, nil
}

// DeleteSurvey removes the survey and its responses in one transaction
func (s *Store) DeleteSurvey(ctx context.Context, id uuid.UUID) error {
	key := surveyKey(id)
	err := s.kv.Update(ctx, []string{key}, func(tx Txn) error {
		if _, err := tx.Get(key); err != nil {
			return err
		}
		keys, err := tx.Keys(responsesPrefix(id))
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := tx.Delete(k); err != nil {
				return err
			}
		}
		return tx.Delete(key)
	})
	return wrapErr("delete survey", err)
}

// CreateResponse stores the response and bumps the survey's count in the same transaction
func (s *Store) CreateResponse(ctx context.Context, r *models.Response) (*models.Response, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	resp := *r
	resp.ID = uuid.New()
	resp.SubmittedAt = s.now()
	data, err := json.Marshal(&resp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	sKey := surveyKey(resp.SurveyID)
	rKey := responseKey(resp.SurveyID, resp.ID)
	err = s.kv.Update(ctx, []string{sKey}, func(tx Txn) error {
		survey, err := getSurvey(tx.Get, sKey)
		if err != nil {
			return err
		}
		survey.ResponseCount++
		surveyData, err := json.Marshal(survey)
		if err != nil {
			return fmt.Errorf("failed to marshal survey: %w", err)
		}
		if err := tx.Set(sKey, surveyData); err != nil {
			return err
		}
		return tx.Set(rKey, data)
	})
	if err != nil {
		return nil, wrapErr("create response", err)
	}
	return &resp, nil
}

// ListResponses returns a survey's responses, newest first
func (s *Store) ListResponses(ctx context.Context, surveyID uuid.UUID) ([]*models.Response, error) {
	if _, err := s.kv.Get(ctx, surveyKey(surveyID)); err != nil {
		return nil, wrapErr("list responses", err)
	}

	values, err := s.kv.Scan(ctx, responsesPrefix(surveyID))
	if err != nil {
		return nil, store.Wrap("list responses", err)
	}

	responses := make([]*models.Response, 0, len(values))
	for _, v := range values {
		var r models.Response
		if err := json.Unmarshal(v, &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal response: %w", err)
		}
		responses = append(responses, &r)
	}

	sort.SliceStable(responses, func(i, j int) bool {
		return responses[i].SubmittedAt.After(responses[j].SubmittedAt)
	})
	return responses, nil
}

func getSurvey(get func(key string) ([]byte, error), key string) (*models.Survey, error) {
	data, err := get(key)
	if err != nil {
		return nil, err
	}
	var survey models.Survey
	if err := json.Unmarshal(data, &survey); err != nil {
		return nil, fmt.Errorf("failed to unmarshal survey: %w", err)
	}
	return &survey, nil
}

// wrapErr maps KV errors onto the store error taxonomy
func wrapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrKeyNotFound):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case errors.Is(err, store.ErrConflict), errors.Is(err, ErrTxnConflict):
		return fmt.Errorf("%s: %w", op, store.ErrConflict)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	}
	return store.Wrap(op, err)
}
