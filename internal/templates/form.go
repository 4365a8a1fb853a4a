package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/openmeet-team/surveystudio/internal/models"
)

// Form field names shared with the form handler
const (
	FieldState     = "state"
	FieldStartedAt = "started_at"
	FieldPage      = "page"
	FieldAction    = "action"

	ActionNext     = "next"
	ActionPrevious = "previous"
	ActionSubmit   = "submit"
)

// AnswerField is the form field name holding the answer to questionID
func AnswerField(questionID string) string {
	return "q_" + questionID
}

// FormView is one page of a survey as shown to a respondent
type FormView struct {
	Survey       *models.Survey
	Questions    []models.Question
	Answers      map[string]models.Answer
	Page         int
	TotalPages   int
	Progress     int
	ShowProgress bool
	IsFirst      bool
	IsLast       bool
	// State carries the answers from other pages as JSON
	State     string
	StartedAt int64
	Errors    []string
	Preview   bool
}

// SurveyForm renders the current page of the survey as a form that posts
// back to itself
func SurveyForm(v FormView) templ.Component {
	return Layout(v.Survey.Title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		b := &strings.Builder{}

		b.WriteString(`<main>`)
		if v.Preview {
			b.WriteString(`<p class="preview">Preview mode: responses are not saved.</p>`)
		}
		fmt.Fprintf(b, `<h1>%s</h1>`, templ.EscapeString(v.Survey.Title))
		if v.Survey.Description != "" && v.IsFirst {
			fmt.Fprintf(b, `<p>%s</p>`, templ.EscapeString(v.Survey.Description))
		}
		if v.ShowProgress {
			fmt.Fprintf(b, `<div class="progress" role="progressbar" aria-valuenow="%d" aria-valuemin="0" aria-valuemax="100"><div style="width:%d%%"></div></div>`, v.Progress, v.Progress)
			fmt.Fprintf(b, `<p class="help">Page %d of %d</p>`, v.Page+1, v.TotalPages)
		}
		if len(v.Errors) > 0 {
			b.WriteString(`<div class="errors" role="alert"><ul>`)
			for _, e := range v.Errors {
				fmt.Fprintf(b, `<li>%s</li>`, templ.EscapeString(e))
			}
			b.WriteString(`</ul></div>`)
		}

		action := "/s/" + v.Survey.ID.String()
		if v.Preview {
			action += "?preview=1"
		}
		fmt.Fprintf(b, `<form method="post" action="%s">`, templ.EscapeString(action))
		fmt.Fprintf(b, `<input type="hidden" name="%s" value="%s">`, FieldState, templ.EscapeString(v.State))
		fmt.Fprintf(b, `<input type="hidden" name="%s" value="%d">`, FieldStartedAt, v.StartedAt)
		fmt.Fprintf(b, `<input type="hidden" name="%s" value="%d">`, FieldPage, v.Page)

		for _, q := range v.Questions {
			writeQuestion(b, q, v.Answers[q.ID])
		}

		b.WriteString(`<div class="actions">`)
		if !v.IsFirst {
			fmt.Fprintf(b, `<button type="submit" name="%s" value="%s" formnovalidate>Previous</button>`, FieldAction, ActionPrevious)
		}
		if v.IsLast {
			fmt.Fprintf(b, `<button type="submit" name="%s" value="%s">Submit</button>`, FieldAction, ActionSubmit)
		} else {
			fmt.Fprintf(b, `<button type="submit" name="%s" value="%s">Next</button>`, FieldAction, ActionNext)
		}
		b.WriteString(`</div></form></main>`)

		_, err := io.WriteString(w, b.String())
		return err
	}))
}

func writeQuestion(b *strings.Builder, q models.Question, a models.Answer) {
	name := templ.EscapeString(AnswerField(q.ID))
	id := "q-" + templ.EscapeString(q.ID)

	b.WriteString(`<fieldset class="question">`)
	fmt.Fprintf(b, `<legend>%s`, templ.EscapeString(q.Text))
	if q.Required {
		b.WriteString(` <span class="required" aria-label="required">*</span>`)
	}
	b.WriteString(`</legend>`)
	if q.HelpText != "" {
		fmt.Fprintf(b, `<p class="help">%s</p>`, templ.EscapeString(q.HelpText))
	}

	required := ""
	if q.Required {
		required = " required"
	}

	switch q.Type {
	case models.QuestionTypeShortText:
		fmt.Fprintf(b, `<input type="text" id="%s" name="%s" value="%s"%s>`, id, name, templ.EscapeString(a.String()), required)
	case models.QuestionTypeEmail:
		fmt.Fprintf(b, `<input type="email" id="%s" name="%s" value="%s"%s>`, id, name, templ.EscapeString(a.String()), required)
	case models.QuestionTypeDate:
		fmt.Fprintf(b, `<input type="date" id="%s" name="%s" value="%s"%s>`, id, name, templ.EscapeString(a.String()), required)
	case models.QuestionTypeLongText:
		fmt.Fprintf(b, `<textarea id="%s" name="%s" rows="4"%s>%s</textarea>`, id, name, required, templ.EscapeString(a.String()))
	case models.QuestionTypeSingleChoice:
		for i, opt := range q.Options {
			checked := ""
			if a.String() == opt {
				checked = " checked"
			}
			fmt.Fprintf(b, `<label><input type="radio" id="%s-%d" name="%s" value="%s"%s%s> %s</label><br>`,
				id, i, name, templ.EscapeString(opt), checked, required, templ.EscapeString(opt))
		}
	case models.QuestionTypeMultiChoice:
		selected := make(map[string]bool)
		for _, v := range a.Values() {
			selected[v] = true
		}
		for i, opt := range q.Options {
			checked := ""
			if selected[opt] {
				checked = " checked"
			}
			fmt.Fprintf(b, `<label><input type="checkbox" id="%s-%d" name="%s" value="%s"%s> %s</label><br>`,
				id, i, name, templ.EscapeString(opt), checked, templ.EscapeString(opt))
		}
	case models.QuestionTypeRating:
		if q.Scale == nil {
			break
		}
		if q.Scale.MinLabel != "" {
			fmt.Fprintf(b, `<span class="help">%s</span> `, templ.EscapeString(q.Scale.MinLabel))
		}
		for _, p := range q.Scale.Points() {
			v := strconv.Itoa(p)
			checked := ""
			if a.String() == v {
				checked = " checked"
			}
			fmt.Fprintf(b, `<label><input type="radio" id="%s-%s" name="%s" value="%s"%s%s> %s</label> `,
				id, v, name, v, checked, required, v)
		}
		if q.Scale.MaxLabel != "" {
			fmt.Fprintf(b, ` <span class="help">%s</span>`, templ.EscapeString(q.Scale.MaxLabel))
		}
	}
	b.WriteString(`</fieldset>`)
}

// ThankYou is shown after a successful submission
func ThankYou(survey *models.Survey, preview bool) templ.Component {
	return Layout(survey.Title, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		msg := "Your response has been recorded."
		if preview {
			msg = "Preview complete. Nothing was saved."
		}
		_, err := fmt.Fprintf(w, `<main><h1>Thank you!</h1><p>%s</p><p class="help">%s</p></main>`,
			templ.EscapeString(msg), templ.EscapeString(survey.Title))
		return err
	}))
}
