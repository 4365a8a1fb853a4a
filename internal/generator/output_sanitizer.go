package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openmeet-team/surveystudio/internal/models"
)

// SanitizeOutput parses LLM output into a validated, sanitized draft.
// Markdown code fences around the JSON are tolerated.
func SanitizeOutput(llmOutput string) (*models.SurveyDefinition, *models.Survey, error) {
	def, err := models.ParseSurveyDefinition([]byte(stripFences(llmOutput)))
	if err != nil {
		return nil, nil, err
	}
	draft, err := def.ToDraft()
	if err != nil {
		return nil, nil, err
	}
	return def, draft, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		// drop the language tag line
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func marshalDefinition(def *models.SurveyDefinition) (string, error) {
	if def == nil {
		return "", fmt.Errorf("existing definition is required")
	}
	data, err := json.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("failed to encode existing definition: %w", err)
	}
	return string(data), nil
}
