// Package renderer drives a respondent through a survey: fixed-size pages,
// answer capture with per-type checks, skip logic and submission.
package renderer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/openmeet-team/surveystudio/internal/models"
)

// PageSize is the number of questions shown per page
const PageSize = 3

var (
	ErrFirstPage         = errors.New("already on the first page")
	ErrLastPage          = errors.New("already on the last page")
	ErrAlreadySubmitted  = errors.New("response already submitted")
	ErrSurveyUnavailable = errors.New("survey unavailable")
	ErrUnknownQuestion   = errors.New("unknown question")
)

// MissingAnswersError blocks a submission that lacks required answers
type MissingAnswersError struct {
	IDs   []string
	Texts []string
}

// Error lists the unanswered questions by text
func (e *MissingAnswersError) Error() string {
	return "please answer the required questions: " + strings.Join(e.Texts, ", ")
}

// Is makes the error match models.ErrValidation
func (e *MissingAnswersError) Is(target error) bool {
	return target == models.ErrValidation
}

// Sink stores a finished response
type Sink interface {
	CreateResponse(ctx context.Context, r *models.Response) (*models.Response, error)
}

// Option configures a Session
type Option func(*Session)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithStartedAt sets the start of the completion timer instead of starting it
// when the session is created
func WithStartedAt(t time.Time) Option {
	return func(s *Session) { s.startedAt = t }
}

// WithPreview renders surveys in any status and never persists submissions
func WithPreview() Option {
	return func(s *Session) { s.preview = true }
}

// WithRespondent attributes the response to an authenticated user
func WithRespondent(id string) Option {
	return func(s *Session) {
		if id != "" {
			s.respondentID = &id
		}
	}
}

// WithVoterSession attaches an anonymous respondent fingerprint
func WithVoterSession(session string) Option {
	return func(s *Session) {
		if session != "" {
			s.voterSession = &session
		}
	}
}

// Session is one respondent's pass through a survey. It is not safe for
// concurrent use.
type Session struct {
	survey    *models.Survey
	questions []models.Question
	answers   map[string]models.Answer
	page      int

	now          func() time.Time
	startedAt    time.Time
	preview      bool
	submitted    bool
	respondentID *string
	voterSession *string
}

// NewSession opens survey for a respondent. Outside preview mode the survey
// must be accepting responses, otherwise the error wraps ErrSurveyUnavailable.
func NewSession(survey *models.Survey, opts ...Option) (*Session, error) {
	s := &Session{
		survey:  survey.Clone(),
		answers: make(map[string]models.Answer),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if !s.preview {
		if err := survey.AcceptingResponses(s.now()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSurveyUnavailable, err)
		}
	}

	s.questions = make([]models.Question, len(s.survey.Questions))
	copy(s.questions, s.survey.Questions)
	sort.SliceStable(s.questions, func(i, j int) bool {
		return s.questions[i].Order < s.questions[j].Order
	})

	if s.startedAt.IsZero() {
		s.startedAt = s.now()
	}
	return s, nil
}

// Survey returns the survey being answered
func (s *Session) Survey() *models.Survey {
	return s.survey
}

// TotalPages is ceil(questions / PageSize), and at least one
func (s *Session) TotalPages() int {
	n := (len(s.questions) + PageSize - 1) / PageSize
	if n < 1 {
		return 1
	}
	return n
}

// Page returns the zero-based current page
func (s *Session) Page() int {
	return s.page
}

// IsFirstPage reports whether Previous would fail
func (s *Session) IsFirstPage() bool { return s.page == 0 }

// IsLastPage reports whether the current page is where Submit is offered
func (s *Session) IsLastPage() bool { return s.page == s.TotalPages()-1 }

// Next advances one page
func (s *Session) Next() error {
	if s.IsLastPage() {
		return ErrLastPage
	}
	s.page++
	return nil
}

// Previous goes back one page
func (s *Session) Previous() error {
	if s.IsFirstPage() {
		return ErrFirstPage
	}
	s.page--
	return nil
}

// Progress returns the completion percentage of the current page, and false
// when the survey hides the progress bar or fits on one page
func (s *Session) Progress() (int, bool) {
	total := s.TotalPages()
	if !s.survey.Settings.ShowProgressBar || total <= 1 {
		return 0, false
	}
	return int(math.Round(float64(s.page+1) * 100 / float64(total))), true
}

// PageQuestions returns the visible questions on the current page
func (s *Session) PageQuestions() []models.Question {
	start := s.page * PageSize
	end := start + PageSize
	if end > len(s.questions) {
		end = len(s.questions)
	}
	hidden := s.hiddenSet()
	var out []models.Question
	for _, q := range s.questions[start:end] {
		if !hidden[q.ID] {
			out = append(out, q)
		}
	}
	return out
}

// Visible reports whether the question is currently shown, given the skip
// logic and the answers captured so far
func (s *Session) Visible(questionID string) bool {
	return !s.hiddenSet()[questionID]
}

// SetAnswer records an answer after checking it against the question type.
// An empty answer clears the question.
func (s *Session) SetAnswer(questionID string, a models.Answer) error {
	if s.submitted {
		return ErrAlreadySubmitted
	}
	q, ok := s.question(questionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownQuestion, questionID)
	}
	if a.IsEmpty() {
		delete(s.answers, questionID)
		return nil
	}
	if err := CheckAnswer(q, a); err != nil {
		return err
	}
	s.answers[questionID] = a
	return nil
}

// Answer returns the captured answer for a question
func (s *Session) Answer(questionID string) (models.Answer, bool) {
	a, ok := s.answers[questionID]
	return a, ok
}

// Answers returns a copy of every captured answer
func (s *Session) Answers() map[string]models.Answer {
	out := make(map[string]models.Answer, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Missing returns the visible required questions without an answer, in order
func (s *Session) Missing() []models.Question {
	hidden := s.hiddenSet()
	var missing []models.Question
	for _, q := range s.questions {
		if !q.Required || hidden[q.ID] {
			continue
		}
		if a, ok := s.answers[q.ID]; !ok || a.IsEmpty() {
			missing = append(missing, q)
		}
	}
	return missing
}

// Validate runs the submission gate: required answers first, then the text
// rules of every visible answered question
func (s *Session) Validate() error {
	if missing := s.Missing(); len(missing) > 0 {
		err := &MissingAnswersError{}
		for _, q := range missing {
			err.IDs = append(err.IDs, q.ID)
			err.Texts = append(err.Texts, q.Text)
		}
		return err
	}

	hidden := s.hiddenSet()
	for _, q := range s.questions {
		if hidden[q.ID] {
			continue
		}
		a, ok := s.answers[q.ID]
		if !ok {
			continue
		}
		if err := checkTextRules(q, a); err != nil {
			return err
		}
	}
	return nil
}

// Submit validates the captured answers and persists the response. On any
// error the captured state is kept so the respondent can retry. In preview
// mode the response is built but not stored.
func (s *Session) Submit(ctx context.Context, sink Sink) (*models.Response, error) {
	if s.submitted {
		return nil, ErrAlreadySubmitted
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	seconds := int(math.Round(now.Sub(s.startedAt).Seconds()))
	if seconds < 0 {
		seconds = 0
	}

	hidden := s.hiddenSet()
	answers := make(map[string]models.Answer, len(s.answers))
	for id, a := range s.answers {
		if !hidden[id] {
			answers[id] = a
		}
	}

	resp := &models.Response{
		SurveyID:       s.survey.ID,
		RespondentID:   s.respondentID,
		VoterSession:   s.voterSession,
		Answers:        answers,
		SubmittedAt:    now,
		CompletionTime: &seconds,
		IsComplete:     true,
	}

	if s.preview {
		s.submitted = true
		return resp, nil
	}

	saved, err := sink.CreateResponse(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("failed to submit response: %w", err)
	}
	s.submitted = true
	return saved, nil
}

// Submitted reports whether the session has been submitted
func (s *Session) Submitted() bool {
	return s.submitted
}

func (s *Session) question(id string) (*models.Question, bool) {
	for i := range s.questions {
		if s.questions[i].ID == id {
			return &s.questions[i], true
		}
	}
	return nil, false
}

// hiddenSet evaluates skip logic in question order. A hidden question's
// answer is treated as absent by later conditions.
func (s *Session) hiddenSet() map[string]bool {
	hidden := make(map[string]bool)
	for _, q := range s.questions {
		for _, c := range q.SkipLogic {
			if hidden[c.QuestionID] {
				continue
			}
			a, ok := s.answers[c.QuestionID]
			if !ok || a.IsEmpty() {
				continue
			}
			if conditionMet(c, a) {
				hidden[q.ID] = true
				break
			}
		}
	}
	return hidden
}
