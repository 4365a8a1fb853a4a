package analytics

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmeet-team/surveystudio/internal/models"
)

func intPtr(n int) *int { return &n }

func testSurvey() *models.Survey {
	return &models.Survey{
		ID:    uuid.New(),
		Title: "Q1 Check-In!",
		Questions: []models.Question{
			{ID: "color", Type: models.QuestionTypeSingleChoice, Text: "Favorite color?", Order: 0, Options: []string{"Red", "Blue"}},
			{ID: "mood", Type: models.QuestionTypeRating, Text: "Mood", Order: 1, Scale: &models.Scale{Min: 1, Max: 5}},
			{ID: "days", Type: models.QuestionTypeMultiChoice, Text: "Office days", Order: 2, Options: []string{"Mon", "Tue", "Wed"}},
			{ID: "notes", Type: models.QuestionTypeLongText, Text: "Notes", Order: 3},
		},
	}
}

func response(complete bool, seconds *int, answers map[string]models.Answer) *models.Response {
	return &models.Response{
		ID:             uuid.New(),
		Answers:        answers,
		SubmittedAt:    time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC),
		CompletionTime: seconds,
		IsComplete:     complete,
	}
}

func TestSummarize(t *testing.T) {
	responses := []*models.Response{
		response(true, intPtr(60), nil),
		response(true, intPtr(90), nil),
		response(true, nil, nil),
		response(false, intPtr(31), nil),
	}

	s := Summarize(responses)
	assert.Equal(t, 4, s.TotalResponses)
	assert.Equal(t, 3, s.CompletedResponses)
	assert.Equal(t, 75, s.CompletionRate)
	// (60+90+0+31)/4, the untimed response counts as zero
	assert.Equal(t, 45, s.AverageCompletionSeconds)
}

func TestSummarize_UntimedCountsAsZero(t *testing.T) {
	s := Summarize([]*models.Response{
		response(true, intPtr(60), nil),
		response(true, intPtr(90), nil),
		response(true, nil, nil),
	})
	assert.Equal(t, 50, s.AverageCompletionSeconds)

	s = Summarize([]*models.Response{response(true, nil, nil)})
	assert.Equal(t, 0, s.AverageCompletionSeconds)
}

func TestSummarize_Empty(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestAnalyzeQuestion_Rating(t *testing.T) {
	survey := testSurvey()
	responses := []*models.Response{
		response(true, nil, map[string]models.Answer{"mood": models.NumberAnswer(5)}),
		response(true, nil, map[string]models.Answer{"mood": models.NumberAnswer(4)}),
		response(true, nil, map[string]models.Answer{"mood": models.NumberAnswer(5)}),
		response(true, nil, map[string]models.Answer{}),
	}

	qa := AnalyzeQuestion(&survey.Questions[1], responses)
	assert.Equal(t, 3, qa.AnsweredCount)
	assert.Equal(t, 75, qa.ResponseRate)
	require.NotNil(t, qa.Rating)
	assert.Equal(t, 4.7, qa.Rating.Average)

	require.Len(t, qa.Rating.Distribution, 5)
	total := 0
	for i, b := range qa.Rating.Distribution {
		assert.Equal(t, i+1, b.Value)
		total += b.Count
	}
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, qa.Rating.Distribution[4].Count)
	assert.Equal(t, 1, qa.Rating.Distribution[3].Count)
}

func TestAnalyzeQuestion_Choice(t *testing.T) {
	survey := testSurvey()
	responses := []*models.Response{
		response(true, nil, map[string]models.Answer{"color": models.TextAnswer("Red"), "days": models.ListAnswer("Mon", "Tue")}),
		response(true, nil, map[string]models.Answer{"color": models.TextAnswer("Blue"), "days": models.ListAnswer("Mon")}),
		response(true, nil, map[string]models.Answer{"color": models.TextAnswer("Red"), "days": models.ListAnswer()}),
	}

	color := AnalyzeQuestion(&survey.Questions[0], responses)
	assert.Equal(t, []OptionCount{
		{Option: "Red", Count: 2, Percentage: 67},
		{Option: "Blue", Count: 1, Percentage: 33},
	}, color.Options)

	days := AnalyzeQuestion(&survey.Questions[2], responses)
	assert.Equal(t, 2, days.AnsweredCount)
	assert.Equal(t, 67, days.ResponseRate)
	assert.Equal(t, []OptionCount{
		{Option: "Mon", Count: 2, Percentage: 100},
		{Option: "Tue", Count: 1, Percentage: 50},
		{Option: "Wed", Count: 0, Percentage: 0},
	}, days.Options)
}

func TestAnalyzeQuestion_TextSamples(t *testing.T) {
	survey := testSurvey()
	long := strings.Repeat("x", 150)
	var responses []*models.Response
	responses = append(responses, response(true, nil, map[string]models.Answer{"notes": models.TextAnswer(long)}))
	for i := 0; i < 6; i++ {
		responses = append(responses, response(true, nil, map[string]models.Answer{"notes": models.TextAnswer("ok")}))
	}
	responses = append(responses, response(true, nil, map[string]models.Answer{"notes": models.TextAnswer("  ")}))

	qa := AnalyzeQuestion(&survey.Questions[3], responses)
	assert.Equal(t, 7, qa.AnsweredCount)
	require.Len(t, qa.Samples, 5)
	assert.Equal(t, strings.Repeat("x", 100)+"...", qa.Samples[0])
	assert.Equal(t, 2, qa.MoreCount)
	assert.Nil(t, qa.Options)
	assert.Nil(t, qa.Rating)
}

func TestAnalyze_OrdersQuestions(t *testing.T) {
	survey := testSurvey()
	survey.Questions[0].Order, survey.Questions[3].Order = 3, 0

	report := Analyze(survey, nil)
	require.Len(t, report.Questions, 4)
	assert.Equal(t, "notes", report.Questions[0].QuestionID)
	assert.Equal(t, "color", report.Questions[3].QuestionID)
	assert.Equal(t, 0, report.Questions[1].ResponseRate)
}

func TestExportFilename(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Q1 Check-In!", "q1_checkin_responses.csv"},
		{"Team   Pulse", "team_pulse_responses.csv"},
		{"snake_case title", "snake_case_title_responses.csv"},
		{"Café ☕", "caf_responses.csv"},
		{"!!!", "survey_responses.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, ExportFilename(tt.title))
		})
	}
}

func TestWriteCSV(t *testing.T) {
	survey := testSurvey()
	r := response(true, intPtr(42), map[string]models.Answer{
		"color": models.TextAnswer("Red"),
		"mood":  models.NumberAnswer(4),
		"days":  models.ListAnswer("Mon", "Wed"),
		"notes": models.TextAnswer(`said "hi", then left`),
	})
	untimed := response(false, nil, map[string]models.Answer{"color": models.TextAnswer("Blue")})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, survey, []*models.Response{r, untimed}))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, `"Response ID","Submitted At","Completion Time (s)","Complete","Favorite color?","Mood","Office days","Notes"`, lines[0])
	assert.Equal(t,
		`"`+r.ID.String()+`","2025-04-01T10:00:00.000Z","42","true","Red","4","Mon; Wed","said ""hi"", then left"`,
		lines[1])
	assert.Equal(t,
		`"`+untimed.ID.String()+`","2025-04-01T10:00:00.000Z","","false","Blue","","",""`,
		lines[2])
}
