package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/openmeet-team/surveystudio/internal/builder"
)

// questionEdit applies one builder mutation and returns the affected question
// id, or "" when the question no longer exists
type questionEdit func(b *builder.Builder) (string, error)

// withBuilder loads the caller's survey into a builder, runs edit and saves.
// version, when set, replaces the loaded version so a stale client gets 409.
func (h *Handlers) withBuilder(c echo.Context, status int, version *int, edit questionEdit) error {
	id, ok := parseSurveyID(c)
	if !ok {
		return invalidSurveyID(c)
	}
	survey, err := h.ownedSurvey(c, id)
	if err != nil {
		return respondError(c, "Failed to edit survey", err)
	}
	if version != nil {
		survey.Version = *version
	}

	b := builder.New(h.store, survey.CreatedBy)
	b.Load(survey)
	questionID, err := edit(b)
	if err != nil {
		return respondError(c, "Failed to edit question", err)
	}
	saved, err := b.Save(c.Request().Context())
	if err != nil {
		return respondError(c, "Failed to save survey", err)
	}

	if questionID == "" {
		return c.JSON(status, saved)
	}
	resp := QuestionResponse{Survey: saved}
	if q, ok := saved.Question(questionID); ok {
		resp.Question = q.Clone()
	}
	return c.JSON(status, resp)
}

func versionParam(c echo.Context) *int {
	v, err := strconv.Atoi(c.QueryParam("version"))
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

// AddQuestion appends a question with the type's defaults
// POST /api/v1/surveys/:id/questions
func (h *Handlers) AddQuestion(c echo.Context) error {
	var req AddQuestionRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	return h.withBuilder(c, http.StatusCreated, versionParam(c), func(b *builder.Builder) (string, error) {
		q, err := b.AddQuestion(req.Type)
		if err != nil {
			return "", err
		}
		fields := req.QuestionFields
		fields.Type = nil
		if !fields.empty() {
			if _, err := b.UpdateQuestion(q.ID, fields.toPatch()); err != nil {
				return "", err
			}
		}
		return q.ID, nil
	})
}

// UpdateQuestion changes the given fields of one question
// PATCH /api/v1/surveys/:id/questions/:qid
func (h *Handlers) UpdateQuestion(c echo.Context) error {
	var req QuestionFields
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if req.empty() {
		return ValidationError(c, "Invalid request", "no question fields to update")
	}
	qid := c.Param("qid")
	return h.withBuilder(c, http.StatusOK, versionParam(c), func(b *builder.Builder) (string, error) {
		q, err := b.UpdateQuestion(qid, req.toPatch())
		return q.ID, err
	})
}

// DeleteQuestion removes a question and the skip conditions that reference it
// DELETE /api/v1/surveys/:id/questions/:qid
func (h *Handlers) DeleteQuestion(c echo.Context) error {
	qid := c.Param("qid")
	return h.withBuilder(c, http.StatusOK, versionParam(c), func(b *builder.Builder) (string, error) {
		return "", b.DeleteQuestion(qid)
	})
}

// DuplicateQuestion appends a copy of a question
// POST /api/v1/surveys/:id/questions/:qid/duplicate
func (h *Handlers) DuplicateQuestion(c echo.Context) error {
	qid := c.Param("qid")
	return h.withBuilder(c, http.StatusCreated, versionParam(c), func(b *builder.Builder) (string, error) {
		q, err := b.DuplicateQuestion(qid)
		return q.ID, err
	})
}

// MoveQuestion moves a question to a new position
// POST /api/v1/surveys/:id/questions/:qid/move
func (h *Handlers) MoveQuestion(c echo.Context) error {
	var req MoveQuestionRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	qid := c.Param("qid")
	return h.withBuilder(c, http.StatusOK, versionParam(c), func(b *builder.Builder) (string, error) {
		if err := b.MoveQuestion(qid, *req.Index); err != nil {
			return "", err
		}
		return qid, nil
	})
}
