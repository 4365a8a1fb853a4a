package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/openmeet-team/surveystudio/internal/models"
	"github.com/openmeet-team/surveystudio/internal/renderer"
	"github.com/openmeet-team/surveystudio/internal/store"
	"github.com/openmeet-team/surveystudio/internal/templates"
)

func render(c echo.Context, status int, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return component.Render(c.Request().Context(), c.Response())
}

// renderError shows an error page with the status respondError would use
func renderError(c echo.Context, err error) error {
	status, title, message := http.StatusInternalServerError, "Something went wrong", "Please try again later."
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, models.ErrSurveyNotActive):
		status, title, message = http.StatusNotFound, "Survey not found", "This survey does not exist or has been deleted."
	case errors.Is(err, errAuthRequired):
		status, title, message = http.StatusUnauthorized, "Sign in required", "Please sign in to respond to this survey."
	case errors.Is(err, errForbidden):
		status, title, message = http.StatusForbidden, "Access denied", "You do not have access to this survey."
	case errors.Is(err, errAlreadyResponded):
		status, title, message = http.StatusConflict, "Already responded", "You have already submitted a response to this survey."
	case errors.Is(err, renderer.ErrSurveyUnavailable):
		status, title, message = http.StatusForbidden, "Survey unavailable", unavailableReason(err)
	case store.IsRetryable(err):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		c.Logger().Errorf("%s: %v", title, err)
	}
	return render(c, status, templates.ErrorPage(title, message))
}

// ShowSurveyForm renders the first page of a survey
// GET /s/:id
func (h *Handlers) ShowSurveyForm(c echo.Context) error {
	id, ok := parseSurveyID(c)
	if !ok {
		return renderError(c, store.ErrNotFound)
	}
	survey, err := h.store.GetSurvey(c.Request().Context(), id)
	if err != nil {
		return renderError(c, err)
	}

	preview := previewRequested(c)
	sess, err := h.openSession(c, survey, preview, time.Time{})
	if err != nil {
		return renderError(c, err)
	}
	return h.renderPage(c, http.StatusOK, sess, preview, h.now(), nil)
}

// SubmitSurveyForm captures the current page and moves back, forward or
// submits. Answers from earlier pages travel in the hidden state field.
// POST /s/:id
func (h *Handlers) SubmitSurveyForm(c echo.Context) error {
	id, ok := parseSurveyID(c)
	if !ok {
		return renderError(c, store.ErrNotFound)
	}
	survey, err := h.store.GetSurvey(c.Request().Context(), id)
	if err != nil {
		return renderError(c, err)
	}

	startedAt := h.now()
	if unix, err := strconv.ParseInt(c.FormValue(templates.FieldStartedAt), 10, 64); err == nil && unix > 0 {
		startedAt = time.Unix(unix, 0)
	}
	preview := previewRequested(c)
	sess, err := h.openSession(c, survey, preview, startedAt)
	if err != nil {
		return renderError(c, err)
	}

	restoreState(sess, c.FormValue(templates.FieldState))
	page, _ := strconv.Atoi(c.FormValue(templates.FieldPage))
	for sess.Page() < page {
		if sess.Next() != nil {
			break
		}
	}

	var problems []string
	form, err := c.FormParams()
	if err != nil {
		return renderError(c, err)
	}
	for _, q := range sess.PageQuestions() {
		answer, err := formAnswer(q, form[templates.AnswerField(q.ID)])
		if err == nil {
			err = sess.SetAnswer(q.ID, answer)
		}
		if err != nil {
			problems = append(problems, q.Text+": "+problemText(err))
		}
	}
	if len(problems) > 0 {
		return h.renderPage(c, http.StatusUnprocessableEntity, sess, preview, startedAt, problems)
	}

	switch c.FormValue(templates.FieldAction) {
	case templates.ActionPrevious:
		_ = sess.Previous()
	case templates.ActionSubmit:
		if !sess.IsLastPage() {
			_ = sess.Next()
			break
		}
		if _, err := h.submit(c, sess, preview, sourceWeb); err != nil {
			var missing *renderer.MissingAnswersError
			if errors.As(err, &missing) {
				return h.renderPage(c, http.StatusUnprocessableEntity, sess, preview, startedAt,
					[]string{missing.Error()})
			}
			if errors.Is(err, models.ErrValidation) {
				return h.renderPage(c, http.StatusUnprocessableEntity, sess, preview, startedAt,
					[]string{err.Error()})
			}
			if store.IsRetryable(err) {
				c.Logger().Warnf("Failed to store response to survey %s: %v", survey.ID, err)
				return h.renderPage(c, http.StatusServiceUnavailable, sess, preview, startedAt,
					[]string{"Your response could not be saved. Please try again."})
			}
			return renderError(c, err)
		}
		return render(c, http.StatusOK, templates.ThankYou(sess.Survey(), preview))
	default:
		_ = sess.Next()
	}
	return h.renderPage(c, http.StatusOK, sess, preview, startedAt, nil)
}

func (h *Handlers) renderPage(c echo.Context, status int, sess *renderer.Session, preview bool, startedAt time.Time, problems []string) error {
	state, err := json.Marshal(sess.Answers())
	if err != nil {
		return renderError(c, err)
	}
	progress, showProgress := sess.Progress()
	return render(c, status, templates.SurveyForm(templates.FormView{
		Survey:       sess.Survey(),
		Questions:    sess.PageQuestions(),
		Answers:      sess.Answers(),
		Page:         sess.Page(),
		TotalPages:   sess.TotalPages(),
		Progress:     progress,
		ShowProgress: showProgress,
		IsFirst:      sess.IsFirstPage(),
		IsLast:       sess.IsLastPage(),
		State:        string(state),
		StartedAt:    startedAt.Unix(),
		Errors:       problems,
		Preview:      preview,
	}))
}

// restoreState replays answers carried from earlier pages. Entries that no
// longer fit the survey are dropped.
func restoreState(sess *renderer.Session, raw string) {
	if raw == "" {
		return
	}
	var answers map[string]models.Answer
	if err := json.Unmarshal([]byte(raw), &answers); err != nil {
		return
	}
	for id, a := range answers {
		_ = sess.SetAnswer(id, a)
	}
}

// formAnswer converts the submitted values of one question's inputs
func formAnswer(q models.Question, values []string) (models.Answer, error) {
	if q.Type == models.QuestionTypeMultiChoice {
		return models.ListAnswer(values...), nil
	}
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return models.Answer{}, nil
	}
	if q.Type == models.QuestionTypeRating {
		n, err := strconv.ParseFloat(strings.TrimSpace(values[0]), 64)
		if err != nil {
			return models.Answer{}, errors.New("rating must be a number")
		}
		return models.NumberAnswer(n), nil
	}
	return models.TextAnswer(values[0]), nil
}

func problemText(err error) string {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return err.Error()
}
