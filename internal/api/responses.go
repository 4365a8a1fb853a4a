package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/openmeet-team/surveystudio/internal/analytics"
	"github.com/openmeet-team/surveystudio/internal/auth"
	"github.com/openmeet-team/surveystudio/internal/models"
	"github.com/openmeet-team/surveystudio/internal/renderer"
	"github.com/openmeet-team/surveystudio/internal/telemetry"
)

// Response sources recorded on SurveyResponsesTotal
const (
	sourceAPI = "api"
	sourceWeb = "web"
)

// openSession starts a respondent session. Preview is reserved for the
// survey's owner and skips the availability and respondent checks.
func (h *Handlers) openSession(c echo.Context, survey *models.Survey, preview bool, startedAt time.Time) (*renderer.Session, error) {
	user := auth.GetUser(c)
	opts := []renderer.Option{renderer.WithClock(h.now)}
	if !startedAt.IsZero() {
		opts = append(opts, renderer.WithStartedAt(startedAt))
	}

	if preview {
		if user == nil {
			return nil, errAuthRequired
		}
		if user.ID != survey.CreatedBy {
			return nil, errForbidden
		}
		return renderer.NewSession(survey, append(opts, renderer.WithPreview())...)
	}

	voterSession := models.GenerateVoterSession(survey.ID, getClientIP(c), c.Request().UserAgent())
	if user != nil {
		opts = append(opts, renderer.WithRespondent(user.ID))
	} else {
		opts = append(opts, renderer.WithVoterSession(voterSession))
	}

	sess, err := renderer.NewSession(survey, opts...)
	if err != nil {
		return nil, err
	}
	if err := h.checkRespondent(c, survey, user, voterSession); err != nil {
		return nil, err
	}
	return sess, nil
}

// checkRespondent applies the survey's sign-in and duplicate submission
// settings. Signed-in respondents are matched by user id, anonymous ones by
// voter session.
func (h *Handlers) checkRespondent(c echo.Context, survey *models.Survey, user *auth.User, voterSession string) error {
	if user == nil && (survey.Settings.RequireAuth || !survey.Settings.AllowAnonymous) {
		return errAuthRequired
	}
	if survey.Settings.MultipleSubmissions {
		return nil
	}

	responses, err := h.store.ListResponses(c.Request().Context(), survey.ID)
	if err != nil {
		return err
	}
	for _, r := range responses {
		if user != nil {
			if r.RespondentID != nil && *r.RespondentID == user.ID {
				return errAlreadyResponded
			}
			continue
		}
		if r.RespondentID == nil && r.VoterSession != nil && *r.VoterSession == voterSession {
			return errAlreadyResponded
		}
	}
	return nil
}

// submit stores the session's response and pushes fresh analytics to live
// subscribers. Preview submissions are neither stored nor counted.
func (h *Handlers) submit(c echo.Context, sess *renderer.Session, preview bool, source string) (*models.Response, error) {
	resp, err := sess.Submit(c.Request().Context(), h.store)
	if err != nil {
		return nil, err
	}
	if preview {
		return resp, nil
	}

	telemetry.SurveyResponsesTotal.WithLabelValues(source).Inc()
	h.broadcast(c, resp.SurveyID)
	return resp, nil
}

func (h *Handlers) broadcast(c echo.Context, surveyID uuid.UUID) {
	if h.hub.Subscribers(surveyID) == 0 {
		return
	}
	report, err := h.report(c, surveyID)
	if err != nil {
		c.Logger().Warnf("Failed to build live analytics for survey %s: %v", surveyID, err)
		return
	}
	if err := h.hub.Publish(surveyID, LiveMessage{Type: "update", Report: report}); err != nil {
		c.Logger().Warnf("Failed to publish live analytics for survey %s: %v", surveyID, err)
	}
}

func (h *Handlers) report(c echo.Context, surveyID uuid.UUID) (analytics.Report, error) {
	ctx := c.Request().Context()
	survey, err := h.store.GetSurvey(ctx, surveyID)
	if err != nil {
		return analytics.Report{}, err
	}
	responses, err := h.store.ListResponses(ctx, surveyID)
	if err != nil {
		return analytics.Report{}, err
	}
	return analytics.Analyze(survey, responses), nil
}

func previewRequested(c echo.Context) bool {
	v := c.QueryParam("preview")
	return v == "1" || v == "true"
}

// GetPublicSurvey returns the respondent view of a survey
// GET /api/v1/public/surveys/:id
func (h *Handlers) GetPublicSurvey(c echo.Context) error {
	id, ok := parseSurveyID(c)
	if !ok {
		return invalidSurveyID(c)
	}
	survey, err := h.store.GetSurvey(c.Request().Context(), id)
	if err != nil {
		return respondError(c, "Failed to retrieve survey", err)
	}

	sess, err := h.openSession(c, survey, previewRequested(c), time.Time{})
	if err != nil {
		return respondError(c, "Survey is not available", err)
	}
	return c.JSON(http.StatusOK, toPublicSurvey(sess))
}

// SubmitResponse stores a complete response
// POST /api/v1/public/surveys/:id/responses
func (h *Handlers) SubmitResponse(c echo.Context) error {
	id, ok := parseSurveyID(c)
	if !ok {
		return invalidSurveyID(c)
	}
	var req SubmitResponseRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}

	survey, err := h.store.GetSurvey(c.Request().Context(), id)
	if err != nil {
		return respondError(c, "Failed to submit response", err)
	}

	var startedAt time.Time
	if req.CompletionTime != nil {
		startedAt = h.now().Add(-time.Duration(*req.CompletionTime) * time.Second)
	}
	preview := previewRequested(c)
	sess, err := h.openSession(c, survey, preview, startedAt)
	if err != nil {
		return respondError(c, "Survey is not accepting responses", err)
	}

	for questionID, answer := range req.Answers {
		if err := sess.SetAnswer(questionID, answer); err != nil {
			if errors.Is(err, renderer.ErrUnknownQuestion) {
				return ValidationError(c, "Invalid response", err.Error())
			}
			return respondError(c, "Invalid response", err)
		}
	}

	resp, err := h.submit(c, sess, preview, sourceAPI)
	if err != nil {
		return respondError(c, "Failed to submit response", err)
	}
	return c.JSON(http.StatusCreated, ResponseSubmittedResponse{
		ID:             resp.ID,
		SurveyID:       resp.SurveyID,
		SubmittedAt:    resp.SubmittedAt,
		CompletionTime: resp.CompletionTime,
		Preview:        preview,
	})
}

// ListResponses returns every response to the caller's survey
// GET /api/v1/surveys/:id/responses
func (h *Handlers) ListResponses(c echo.Context) error {
	id, ok := parseSurveyID(c)
	if !ok {
		return invalidSurveyID(c)
	}
	if _, err := h.ownedSurvey(c, id); err != nil {
		return respondError(c, "Failed to retrieve responses", err)
	}

	responses, err := h.store.ListResponses(c.Request().Context(), id)
	if err != nil {
		return respondError(c, "Failed to retrieve responses", err)
	}
	if responses == nil {
		responses = []*models.Response{}
	}
	return c.JSON(http.StatusOK, ResponseListResponse{Responses: responses, Total: len(responses)})
}

// GetAnalytics returns the summary and per-question breakdown
// GET /api/v1/surveys/:id/analytics
func (h *Handlers) GetAnalytics(c echo.Context) error {
	id, ok := parseSurveyID(c)
	if !ok {
		return invalidSurveyID(c)
	}
	survey, err := h.ownedSurvey(c, id)
	if err != nil {
		return respondError(c, "Failed to retrieve analytics", err)
	}

	responses, err := h.store.ListResponses(c.Request().Context(), id)
	if err != nil {
		return respondError(c, "Failed to retrieve analytics", err)
	}
	return c.JSON(http.StatusOK, analytics.Analyze(survey, responses))
}

// ExportCSV downloads every response as CSV
// GET /api/v1/surveys/:id/export
func (h *Handlers) ExportCSV(c echo.Context) error {
	id, ok := parseSurveyID(c)
	if !ok {
		return invalidSurveyID(c)
	}
	survey, err := h.ownedSurvey(c, id)
	if err != nil {
		return respondError(c, "Failed to export responses", err)
	}

	responses, err := h.store.ListResponses(c.Request().Context(), id)
	if err != nil {
		return respondError(c, "Failed to export responses", err)
	}

	var buf bytes.Buffer
	if err := analytics.WriteCSV(&buf, survey, responses); err != nil {
		return InternalServerError(c, "Failed to export responses", err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", analytics.ExportFilename(survey.Title)))
	return c.Blob(http.StatusOK, analytics.CSVContentType, buf.Bytes())
}

// LiveAnalytics streams analytics updates over a websocket, starting with a
// snapshot
// GET /api/v1/surveys/:id/live
func (h *Handlers) LiveAnalytics(c echo.Context) error {
	id, ok := parseSurveyID(c)
	if !ok {
		return invalidSurveyID(c)
	}
	if _, err := h.ownedSurvey(c, id); err != nil {
		return respondError(c, "Failed to open live analytics", err)
	}

	report, err := h.report(c, id)
	if err != nil {
		return respondError(c, "Failed to open live analytics", err)
	}
	if err := h.hub.ServeWS(c.Response(), c.Request(), id, LiveMessage{Type: "snapshot", Report: report}); err != nil {
		c.Logger().Warnf("Live analytics stream for survey %s ended: %v", id, err)
	}
	return nil
}
