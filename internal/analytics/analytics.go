// Package analytics aggregates survey responses into display-ready
// statistics and exports them as CSV.
package analytics

import (
	"math"
	"sort"

	"github.com/openmeet-team/surveystudio/internal/models"
)

const (
	// MaxSamples is the number of raw text answers shown per question
	MaxSamples = 5
	// MaxSampleLength is the rune length after which samples are truncated
	MaxSampleLength = 100
)

// Summary holds the survey-wide figures
type Summary struct {
	TotalResponses           int `json:"totalResponses"`
	CompletedResponses       int `json:"completedResponses"`
	CompletionRate           int `json:"completionRate"`
	AverageCompletionSeconds int `json:"averageCompletionSeconds"`
}

// OptionCount is the tally for one choice option
type OptionCount struct {
	Option     string `json:"option"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// RatingBucket is the number of answers for one scale point
type RatingBucket struct {
	Value int `json:"value"`
	Count int `json:"count"`
}

// RatingStats describes the answers to a rating question
type RatingStats struct {
	Average      float64        `json:"average"`
	Distribution []RatingBucket `json:"distribution"`
}

// QuestionAnalysis is the per-question breakdown. Which of Options, Rating
// and Samples is set depends on the question type.
type QuestionAnalysis struct {
	QuestionID    string              `json:"questionId"`
	Text          string              `json:"text"`
	Type          models.QuestionType `json:"type"`
	AnsweredCount int                 `json:"answeredCount"`
	ResponseRate  int                 `json:"responseRate"`
	Options       []OptionCount       `json:"options,omitempty"`
	Rating        *RatingStats        `json:"rating,omitempty"`
	Samples       []string            `json:"samples,omitempty"`
	MoreCount     int                 `json:"moreCount,omitempty"`
}

// Report combines the summary with every question's analysis in survey order
type Report struct {
	SurveyID  string             `json:"surveyId"`
	Summary   Summary            `json:"summary"`
	Questions []QuestionAnalysis `json:"questions"`
}

// Analyze builds the full report for a survey
func Analyze(survey *models.Survey, responses []*models.Response) Report {
	report := Report{
		SurveyID:  survey.ID.String(),
		Summary:   Summarize(responses),
		Questions: make([]QuestionAnalysis, 0, len(survey.Questions)),
	}
	for _, q := range orderedQuestions(survey) {
		report.Questions = append(report.Questions, AnalyzeQuestion(&q, responses))
	}
	return report
}

// Summarize computes the totals. A response without a completion time counts
// as zero seconds in the average, which pulls it down when some respondents
// were not timed.
func Summarize(responses []*models.Response) Summary {
	var s Summary
	s.TotalResponses = len(responses)
	if s.TotalResponses == 0 {
		return s
	}

	var seconds int
	for _, r := range responses {
		if r.IsComplete {
			s.CompletedResponses++
		}
		if r.CompletionTime != nil {
			seconds += *r.CompletionTime
		}
	}

	s.CompletionRate = percent(s.CompletedResponses, s.TotalResponses)
	s.AverageCompletionSeconds = int(math.Round(float64(seconds) / float64(s.TotalResponses)))
	return s
}

// AnalyzeQuestion breaks down the non-empty answers to one question
func AnalyzeQuestion(q *models.Question, responses []*models.Response) QuestionAnalysis {
	var answers []models.Answer
	for _, r := range responses {
		if a, ok := r.Answers[q.ID]; ok && !a.IsEmpty() {
			answers = append(answers, a)
		}
	}

	qa := QuestionAnalysis{
		QuestionID:    q.ID,
		Text:          q.Text,
		Type:          q.Type,
		AnsweredCount: len(answers),
		ResponseRate:  percent(len(answers), len(responses)),
	}

	switch {
	case q.Type.IsChoice():
		qa.Options = tallyOptions(q.Options, answers)
	case q.Type == models.QuestionTypeRating:
		qa.Rating = ratingStats(q.Scale, answers)
	default:
		qa.Samples, qa.MoreCount = samples(answers)
	}
	return qa
}

func tallyOptions(options []string, answers []models.Answer) []OptionCount {
	counts := make(map[string]int, len(options))
	for _, a := range answers {
		for _, v := range a.Values() {
			counts[v]++
		}
	}

	out := make([]OptionCount, 0, len(options))
	for _, opt := range options {
		out = append(out, OptionCount{
			Option:     opt,
			Count:      counts[opt],
			Percentage: percent(counts[opt], len(answers)),
		})
	}
	return out
}

func ratingStats(scale *models.Scale, answers []models.Answer) *RatingStats {
	stats := &RatingStats{}
	buckets := make(map[int]int)

	var sum float64
	var n int
	for _, a := range answers {
		v, ok := a.Number()
		if !ok {
			continue
		}
		sum += v
		n++
		if a.IsWholeNumber() {
			buckets[int(v)]++
		}
	}
	if n > 0 {
		stats.Average = math.Round(sum/float64(n)*10) / 10
	}

	if scale != nil {
		for _, p := range scale.Points() {
			stats.Distribution = append(stats.Distribution, RatingBucket{Value: p, Count: buckets[p]})
		}
	}
	return stats
}

func samples(answers []models.Answer) ([]string, int) {
	n := len(answers)
	if n > MaxSamples {
		n = MaxSamples
	}
	out := make([]string, 0, n)
	for _, a := range answers[:n] {
		out = append(out, truncate(a.String(), MaxSampleLength))
	}
	return out, len(answers) - n
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(100 * float64(part) / float64(whole)))
}

func orderedQuestions(survey *models.Survey) []models.Question {
	qs := make([]models.Question, len(survey.Questions))
	copy(qs, survey.Questions)
	sort.SliceStable(qs, func(i, j int) bool { return qs[i].Order < qs[j].Order })
	return qs
}
