package analytics

import (
	"bufio"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/openmeet-team/surveystudio/internal/models"
)

// CSVContentType is the MIME type of exported files
const CSVContentType = "text/csv"

// timestampLayout renders submission times as ISO-8601 UTC with milliseconds
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ExportFilename derives the download name from the survey title: lower-cased,
// whitespace runs become underscores and anything outside [a-z0-9_] is dropped.
// Leading and trailing underscores are trimmed.
func ExportFilename(title string) string {
	var b strings.Builder
	space := false
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsSpace(r):
			if !space {
				b.WriteByte('_')
			}
			space = true
			continue
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		}
		space = false
	}

	slug := strings.Trim(b.String(), "_")
	if slug == "" {
		slug = "survey"
	}
	return slug + "_responses.csv"
}

// WriteCSV writes one row per response with a column per question in survey
// order. Every field is quoted; list answers are joined with "; ".
func WriteCSV(w io.Writer, survey *models.Survey, responses []*models.Response) error {
	questions := orderedQuestions(survey)
	bw := bufio.NewWriter(w)

	header := []string{"Response ID", "Submitted At", "Completion Time (s)", "Complete"}
	for _, q := range questions {
		header = append(header, q.Text)
	}
	writeRow(bw, header)

	for _, r := range responses {
		completion := ""
		if r.CompletionTime != nil {
			completion = strconv.Itoa(*r.CompletionTime)
		}
		row := []string{
			r.ID.String(),
			r.SubmittedAt.UTC().Format(timestampLayout),
			completion,
			strconv.FormatBool(r.IsComplete),
		}
		for _, q := range questions {
			row = append(row, r.Answers[q.ID].String())
		}
		writeRow(bw, row)
	}

	return bw.Flush()
}

func writeRow(w *bufio.Writer, fields []string) {
	for i, f := range fields {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(f, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}
