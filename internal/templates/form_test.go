package templates

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/openmeet-team/surveystudio/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSurvey() *models.Survey {
	return &models.Survey{
		ID:          uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		Title:       "Team <Pulse>",
		Description: "Weekly check-in",
		Status:      models.StatusActive,
		Settings:    models.DefaultSettings(),
		Questions: []models.Question{
			{ID: "mood", Type: models.QuestionTypeRating, Text: "Mood?", Required: true, Scale: &models.Scale{Min: 1, Max: 3, MinLabel: "Low", MaxLabel: "High"}},
			{ID: "tools", Type: models.QuestionTypeMultiChoice, Text: "Tools", Options: []string{"Go", "Rust"}},
			{ID: "notes", Type: models.QuestionTypeLongText, Text: "Notes", HelpText: "Anything else"},
		},
	}
}

func render(t *testing.T, v FormView) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, SurveyForm(v).Render(context.Background(), &buf))
	return buf.String()
}

func TestSurveyForm(t *testing.T) {
	s := testSurvey()

	html := render(t, FormView{
		Survey:       s,
		Questions:    s.Questions,
		Answers:      map[string]models.Answer{"mood": models.NumberAnswer(2), "tools": models.ListAnswer("Rust"), "notes": models.TextAnswer("<b>hi</b>")},
		TotalPages:   2,
		Progress:     50,
		ShowProgress: true,
		IsFirst:      true,
		State:        `{"x":"y"}`,
		StartedAt:    1700000000,
		Errors:       []string{"please answer the required questions: Mood?"},
	})

	assert.Contains(t, html, "<title>Team &lt;Pulse&gt;</title>")
	assert.Contains(t, html, `action="/s/11111111-2222-3333-4444-555555555555"`)
	assert.Contains(t, html, `aria-valuenow="50"`)
	assert.Contains(t, html, "Page 1 of 2")
	assert.Contains(t, html, "please answer the required questions: Mood?")
	assert.Contains(t, html, `name="q_mood" value="2" checked required`)
	assert.Contains(t, html, `name="q_tools" value="Rust" checked`)
	assert.NotContains(t, html, `name="q_tools" value="Go" checked`)
	assert.Contains(t, html, "&lt;b&gt;hi&lt;/b&gt;</textarea>")
	assert.Contains(t, html, `value="{&#34;x&#34;:&#34;y&#34;}"`)
	assert.Contains(t, html, `name="started_at" value="1700000000"`)
	assert.Contains(t, html, `value="next"`)
	assert.NotContains(t, html, `value="previous"`)
	assert.Contains(t, html, "Weekly check-in")
}

func TestSurveyFormLastPage(t *testing.T) {
	s := testSurvey()
	html := render(t, FormView{
		Survey:     s,
		Questions:  s.Questions[2:],
		Page:       1,
		TotalPages: 2,
		IsLast:     true,
		Preview:    true,
	})

	assert.Contains(t, html, `value="submit"`)
	assert.Contains(t, html, `value="previous"`)
	assert.Contains(t, html, "Preview mode")
	assert.Contains(t, html, "?preview=1")
	assert.NotContains(t, html, "Weekly check-in")
	assert.NotContains(t, html, "progressbar")
}

func TestThankYouAndErrorPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ThankYou(testSurvey(), false).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "Your response has been recorded.")

	buf.Reset()
	require.NoError(t, ErrorPage("Survey closed", "survey has ended").Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "<h1>Survey closed</h1>")
	assert.Contains(t, buf.String(), "survey has ended")
}
