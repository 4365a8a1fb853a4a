// Package generator drafts surveys from natural-language prompts with an LLM.
package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/openmeet-team/surveystudio/internal/models"
)

var (
	// ErrEmptyResponse is returned when the LLM returns no content
	ErrEmptyResponse = errors.New("LLM returned empty response")

	// ErrCostLimitExceeded is returned when the daily budget is spent
	ErrCostLimitExceeded = errors.New("daily cost limit exceeded")

	// ErrInvalidOutput is returned when the LLM output is not a usable survey
	ErrInvalidOutput = errors.New("invalid LLM output")
)

const (
	// DefaultDailyBudget is the default spending cap in USD
	DefaultDailyBudget = 10.0

	// estimatedOutputTokens is the output size assumed when pricing a request
	estimatedOutputTokens = 800
)

// Result is a generated survey draft plus usage accounting
type Result struct {
	Definition    *models.SurveyDefinition
	Draft         *models.Survey
	SystemPrompt  string
	RawResponse   string
	InputTokens   int
	OutputTokens  int
	EstimatedCost float64
}

// Generator turns prompts into survey drafts
type Generator struct {
	llm         llms.Model
	model       string
	costLimiter *CostLimiter
}

// New creates a generator using model on llm with the given daily budget
func New(llm llms.Model, model string, dailyBudget float64) *Generator {
	if dailyBudget <= 0 {
		dailyBudget = DefaultDailyBudget
	}
	return &Generator{
		llm:         llm,
		model:       model,
		costLimiter: NewCostLimiter(dailyBudget),
	}
}

// CostLimiter exposes the generator's budget tracker
func (g *Generator) CostLimiter() *CostLimiter {
	return g.costLimiter
}

// Generate drafts a new survey from prompt
func (g *Generator) Generate(ctx context.Context, prompt string) (*Result, error) {
	if err := ValidatePrompt(prompt); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	return g.run(ctx, strings.TrimSpace(prompt))
}

// Refine asks the LLM to modify an existing definition. Only the instruction
// is user input; the definition has already been validated.
func (g *Generator) Refine(ctx context.Context, existing *models.SurveyDefinition, instruction string) (*Result, error) {
	if err := ValidatePrompt(instruction); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	current, err := marshalDefinition(existing)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("Existing survey JSON: %s\n\nModification request: %s", current, strings.TrimSpace(instruction))
	return g.run(ctx, prompt)
}

func (g *Generator) run(ctx context.Context, prompt string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inputTokens := estimateTokens(systemPrompt + prompt)
	estimatedCost := EstimateTokenCost(inputTokens, estimatedOutputTokens)
	if !g.costLimiter.AllowRequest(estimatedCost) {
		return nil, ErrCostLimitExceeded
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}

	resp, err := g.llm.GenerateContent(ctx, messages, llms.WithModel(g.model), llms.WithTemperature(0.2))
	if err != nil {
		return nil, fmt.Errorf("LLM generation failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return nil, ErrEmptyResponse
	}

	raw := resp.Choices[0].Content
	result := &Result{
		SystemPrompt:  systemPrompt,
		RawResponse:   raw,
		InputTokens:   inputTokens,
		OutputTokens:  estimateTokens(raw),
		EstimatedCost: estimatedCost,
	}

	def, draft, err := SanitizeOutput(raw)
	if err != nil {
		// the partial result carries the raw output for logging
		return result, fmt.Errorf("%w: %w", ErrInvalidOutput, err)
	}
	result.Definition = def
	result.Draft = draft
	return result, nil
}

const systemPrompt = `You are a helpful assistant that creates survey definitions in JSON format.

Given a natural language description of a survey, generate a valid JSON object with this structure:

{
  "title": "Survey title",
  "description": "Optional description",
  "questions": [
    {
      "id": "q1",
      "type": "single-choice",
      "text": "Question text here",
      "helpText": "Optional hint",
      "required": false,
      "options": ["Option A", "Option B"]
    },
    {
      "id": "q2",
      "type": "rating-scale",
      "text": "How satisfied are you?",
      "required": true,
      "scale": {"min": 1, "max": 5, "minLabel": "Poor", "maxLabel": "Great"}
    }
  ]
}

Question types:
- "short-text": one-line free text
- "long-text": paragraph free text
- "single-choice": pick exactly one of "options"
- "multi-choice": pick any of "options"
- "rating-scale": a number between scale.min and scale.max (at most 10 points apart)
- "date": a calendar date
- "email": an email address

Rules:
1. Return ONLY valid JSON, no markdown, no additional text
2. Use unique question ids (q1, q2, q3...)
3. "options" only on single-choice and multi-choice questions, 2-20 distinct options
4. "scale" only on rating-scale questions, with min less than max
5. Keep question text under 300 characters and options under 150 characters
6. At most 50 questions; typically 3-10
7. Set "required" to false unless the description asks otherwise
8. Keep all text safe and appropriate`

// estimateTokens approximates one token per four characters
func estimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && text != "" {
		n = 1
	}
	return n
}
