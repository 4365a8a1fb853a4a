package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openmeet-team/surveystudio/internal/auth"
	"github.com/openmeet-team/surveystudio/internal/generator"
	"github.com/openmeet-team/surveystudio/internal/telemetry"
)

// GenerateSurvey drafts a survey (or revises an existing definition) with
// the LLM. Nothing is persisted.
// POST /api/v1/generate
func (h *Handlers) GenerateSurvey(c echo.Context) error {
	var req GenerateSurveyRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	if !req.Consent {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "AI generation requires explicit consent for OpenAI processing",
		})
	}
	if h.generator == nil || h.generatorRL == nil {
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "AI survey generation is not available",
		})
	}

	ctx := c.Request().Context()
	userID, userType := getClientIP(c), "anonymous"
	var allowed bool
	var err error
	if user := auth.GetUser(c); user != nil {
		userID, userType = user.ID, "authenticated"
		allowed, err = h.generatorRL.AllowAuthenticated(ctx, userID)
	} else {
		allowed, err = h.generatorRL.AllowAnonymous(ctx, userID)
	}
	if err != nil {
		return ServiceUnavailable(c, "AI survey generation is not available", err)
	}
	if !allowed {
		telemetry.AIRateLimitHitsTotal.WithLabelValues(userType).Inc()
		telemetry.AIGenerationsTotal.WithLabelValues(generator.StatusRateLimited).Inc()
		h.generationLog.Log(ctx, generator.NewGenerationLog(userID, userType, req.Description,
			generator.StatusRateLimited, nil, errors.New("rate limit exceeded"), 0))
		return c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error: "Rate limit exceeded for AI generation. Please try again later.",
		})
	}

	start := time.Now()
	var result *generator.Result
	if req.Existing != nil {
		result, err = h.generator.Refine(ctx, req.Existing, req.Description)
	} else {
		result, err = h.generator.Generate(ctx, req.Description)
	}
	elapsed := time.Since(start)
	telemetry.AIGenerationDuration.Observe(elapsed.Seconds())

	status := generator.StatusSuccess
	switch {
	case err == nil:
	case generator.IsInputError(err):
		status = generator.StatusValidationFailed
	case errors.Is(err, generator.ErrCostLimitExceeded):
		status = generator.StatusBudgetExceeded
	default:
		status = generator.StatusError
	}
	telemetry.AIGenerationsTotal.WithLabelValues(status).Inc()
	if result != nil {
		telemetry.AITokensTotal.WithLabelValues("input").Add(float64(result.InputTokens))
		telemetry.AITokensTotal.WithLabelValues("output").Add(float64(result.OutputTokens))
	}
	telemetry.AIDailyCostUSD.Set(h.generator.CostLimiter().Spent())
	h.generationLog.Log(ctx, generator.NewGenerationLog(userID, userType, req.Description, status, result, err, elapsed))

	switch status {
	case generator.StatusSuccess:
		return c.JSON(http.StatusOK, GenerateSurveyResponse{Definition: result.Definition, Draft: result.Draft})
	case generator.StatusValidationFailed:
		return ValidationError(c, "Invalid description", err.Error())
	case generator.StatusBudgetExceeded:
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "AI generation budget exceeded. Please try again later.",
		})
	}
	if errors.Is(err, generator.ErrInvalidOutput) || errors.Is(err, generator.ErrEmptyResponse) {
		c.Logger().Warnf("AI generation produced unusable output: %v", err)
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error: "The AI returned an unusable survey. Please try rephrasing your description.",
		})
	}
	return InternalServerError(c, "Failed to generate survey", err)
}
