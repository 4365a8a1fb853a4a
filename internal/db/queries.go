package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/openmeet-team/surveystudio/internal/models"
	"github.com/openmeet-team/surveystudio/internal/store"
)

// Querier interface represents a database connection or transaction
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// txBeginner is implemented by *sql.DB; a *sql.Tx is used as-is
type txBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Queries provides database query methods and implements store.Store
type Queries struct {
	db  Querier
	now func() time.Time
}

var _ store.Store = (*Queries)(nil)

// NewQueries creates a new Queries instance
func NewQueries(db Querier) *Queries {
	return &Queries{db: db, now: func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }}
}

// GetDB returns the underlying database connection
func (q *Queries) GetDB() Querier {
	return q.db
}

// withTx runs fn inside a transaction when the connection supports one
func (q *Queries) withTx(ctx context.Context, fn func(tx Querier) error) error {
	b, ok := q.db.(txBeginner)
	if !ok {
		return fn(q.db)
	}
	tx, err := b.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const surveyColumns = `id, title, description, created_by, status, questions, settings, response_count, version, created_at, updated_at`

// Survey Queries

// CreateSurvey inserts a new draft survey
func (q *Queries) CreateSurvey(ctx context.Context, draft *models.Survey, ownerID string) (*models.Survey, error) {
	s := models.NewSurvey(draft, ownerID, q.now())

	questionsJSON, settingsJSON, err := marshalSurveyDocs(s)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO surveys (id, title, description, created_by, status, questions, settings, response_count, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = q.db.ExecContext(
		ctx,
		query,
		s.ID,
		s.Title,
		s.Description,
		s.CreatedBy,
		string(s.Status),
		string(questionsJSON),
		string(settingsJSON),
		s.ResponseCount,
		s.Version,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return nil, store.Wrap("create survey", fmt.Errorf("failed to insert survey: %w", err))
	}

	return s, nil
}

// UpdateSurvey merges patch into the stored survey under a row lock
func (q *Queries) UpdateSurvey(ctx context.Context, id uuid.UUID, patch models.SurveyPatch) (*models.Survey, error) {
	var updated *models.Survey
	err := q.withTx(ctx, func(tx Querier) error {
		s, err := scanSurvey(tx.QueryRowContext(ctx,
			`SELECT `+surveyColumns+` FROM surveys WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		if err := patch.Apply(s, q.now()); err != nil {
			return store.ConflictFromVersion(err)
		}

		questionsJSON, settingsJSON, err := marshalSurveyDocs(s)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE surveys
			SET title = $2, description = $3, status = $4, questions = $5, settings = $6, version = $7, updated_at = $8
			WHERE id = $1
		`, s.ID, s.Title, s.Description, string(s.Status), string(questionsJSON), string(settingsJSON), s.Version, s.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to update survey: %w", err)
		}
		updated = s
		return nil
	})
	if err != nil {
		return nil, wrapErr("update survey", err)
	}
	return updated, nil
}

// GetSurvey retrieves a survey by its ID
func (q *Queries) GetSurvey(ctx context.Context, id uuid.UUID) (*models.Survey, error) {
	s, err := scanSurvey(q.db.QueryRowContext(ctx,
		`SELECT `+surveyColumns+` FROM surveys WHERE id = $1`, id))
	if err != nil {
		return nil, wrapErr("get survey", err)
	}
	return s, nil
}

// ListSurveys retrieves surveys ordered by most recently updated
func (q *Queries) ListSurveys(ctx context.Context, ownerID string) ([]*models.Survey, error) {
	query := `SELECT ` + surveyColumns + ` FROM surveys`
	var args []interface{}
	if ownerID != "" {
		query += ` WHERE created_by = $1`
		args = append(args, ownerID)
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, store.Wrap("list surveys", fmt.Errorf("failed to query surveys: %w", err))
	}
	defer rows.Close()

	surveys := []*models.Survey{}
	for rows.Next() {
		s, err := scanSurvey(rows)
		if err != nil {
			return nil, err
		}
		surveys = append(surveys, s)
	}

	if err := rows.Err(); err != nil {
		return nil, store.Wrap("list surveys", fmt.Errorf("error iterating surveys: %w", err))
	}

	return surveys, nil
}

// DeleteSurvey removes a survey; its responses go with it via ON DELETE CASCADE
func (q *Queries) DeleteSurvey(ctx context.Context, id uuid.UUID) error {
	result, err := q.db.ExecContext(ctx, `DELETE FROM surveys WHERE id = $1`, id)
	if err != nil {
		return store.Wrap("delete survey", fmt.Errorf("failed to delete survey: %w", err))
	}
	n, err := result.RowsAffected()
	if err != nil {
		return store.Wrap("delete survey", err)
	}
	if n == 0 {
		return fmt.Errorf("delete survey: %w", store.ErrNotFound)
	}
	return nil
}

// Response Queries

// CreateResponse inserts a response and bumps the survey's response_count in one transaction
func (q *Queries) CreateResponse(ctx context.Context, r *models.Response) (*models.Response, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	resp := *r
	resp.ID = uuid.New()
	resp.SubmittedAt = q.now()

	answersJSON, err := json.Marshal(resp.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal answers: %w", err)
	}

	err = q.withTx(ctx, func(tx Querier) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE surveys SET response_count = response_count + 1 WHERE id = $1`, resp.SurveyID)
		if err != nil {
			return fmt.Errorf("failed to increment response count: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO responses (id, survey_id, respondent_id, voter_session, answers, submitted_at, completion_time, is_complete)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			resp.ID,
			resp.SurveyID,
			resp.RespondentID,
			resp.VoterSession,
			string(answersJSON),
			resp.SubmittedAt,
			resp.CompletionTime,
			resp.IsComplete,
		)
		if err != nil {
			return fmt.Errorf("failed to insert response: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("create response", err)
	}

	return &resp, nil
}

// ListResponses retrieves a survey's responses, newest first
func (q *Queries) ListResponses(ctx context.Context, surveyID uuid.UUID) ([]*models.Response, error) {
	var exists bool
	if err := q.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM surveys WHERE id = $1)`, surveyID).Scan(&exists); err != nil {
		return nil, store.Wrap("list responses", err)
	}
	if !exists {
		return nil, fmt.Errorf("list responses: %w", store.ErrNotFound)
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT id, survey_id, respondent_id, voter_session, answers, submitted_at, completion_time, is_complete
		FROM responses
		WHERE survey_id = $1
		ORDER BY submitted_at DESC
	`, surveyID)
	if err != nil {
		return nil, store.Wrap("list responses", fmt.Errorf("failed to query responses: %w", err))
	}
	defer rows.Close()

	responses := []*models.Response{}
	for rows.Next() {
		r := &models.Response{}
		var answersJSON []byte
		if err := rows.Scan(
			&r.ID,
			&r.SurveyID,
			&r.RespondentID,
			&r.VoterSession,
			&answersJSON,
			&r.SubmittedAt,
			&r.CompletionTime,
			&r.IsComplete,
		); err != nil {
			return nil, fmt.Errorf("failed to scan response: %w", err)
		}
		if err := json.Unmarshal(answersJSON, &r.Answers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
		}
		r.SubmittedAt = r.SubmittedAt.UTC()
		responses = append(responses, r)
	}

	if err := rows.Err(); err != nil {
		return nil, store.Wrap("list responses", fmt.Errorf("error iterating responses: %w", err))
	}

	return responses, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSurvey(row rowScanner) (*models.Survey, error) {
	s := &models.Survey{}
	var questionsJSON, settingsJSON []byte

	err := row.Scan(
		&s.ID,
		&s.Title,
		&s.Description,
		&s.CreatedBy,
		&s.Status,
		&questionsJSON,
		&settingsJSON,
		&s.ResponseCount,
		&s.Version,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(questionsJSON, &s.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal survey questions: %w", err)
	}
	if err := json.Unmarshal(settingsJSON, &s.Settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal survey settings: %w", err)
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()

	return s, nil
}

func marshalSurveyDocs(s *models.Survey) (questionsJSON, settingsJSON []byte, err error) {
	questionsJSON, err = json.Marshal(s.Questions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal survey questions: %w", err)
	}
	settingsJSON, err = json.Marshal(s.Settings)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal survey settings: %w", err)
	}
	return questionsJSON, settingsJSON, nil
}

// wrapErr maps database errors onto the store error taxonomy
func wrapErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("%s: %w", op, store.ErrNotFound)
	case errors.Is(err, store.ErrConflict), errors.Is(err, models.ErrValidation):
		return fmt.Errorf("%s: %w", op, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return err
	}
	return store.Wrap(op, err)
}
