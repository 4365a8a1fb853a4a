package generator

import (
	"context"
	"log/slog"
	"time"
)

// Generation outcomes recorded in the audit log and metrics
const (
	StatusSuccess          = "success"
	StatusError            = "error"
	StatusRateLimited      = "rate_limited"
	StatusValidationFailed = "validation_failed"
	StatusBudgetExceeded   = "budget_exceeded"
)

// GenerationLog is one audited generation attempt
type GenerationLog struct {
	UserID       string
	UserType     string
	InputPrompt  string
	RawResponse  string
	Status       string
	ErrorMessage string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Duration     time.Duration
}

// NewGenerationLog fills token and cost fields from a (possibly partial) result
func NewGenerationLog(userID, userType, prompt, status string, result *Result, err error, d time.Duration) GenerationLog {
	l := GenerationLog{
		UserID:      userID,
		UserType:    userType,
		InputPrompt: prompt,
		Status:      status,
		Duration:    d,
	}
	if err != nil {
		l.ErrorMessage = err.Error()
	}
	if result != nil {
		l.RawResponse = result.RawResponse
		l.InputTokens = result.InputTokens
		l.OutputTokens = result.OutputTokens
		l.CostUSD = result.EstimatedCost
	}
	return l
}

// GenerationLogger writes generation attempts as structured log records
type GenerationLogger struct {
	logger *slog.Logger
}

// NewGenerationLogger logs to logger, or slog.Default when nil
func NewGenerationLogger(logger *slog.Logger) *GenerationLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &GenerationLogger{logger: logger.With("component", "ai_generation")}
}

// Log records one attempt. A nil logger is a no-op.
func (l *GenerationLogger) Log(ctx context.Context, entry GenerationLog) {
	if l == nil {
		return
	}

	level := slog.LevelInfo
	if entry.Status != StatusSuccess {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("user_id", entry.UserID),
		slog.String("user_type", entry.UserType),
		slog.String("status", entry.Status),
		slog.Int("input_tokens", entry.InputTokens),
		slog.Int("output_tokens", entry.OutputTokens),
		slog.Float64("cost_usd", entry.CostUSD),
		slog.Int64("duration_ms", entry.Duration.Milliseconds()),
		slog.Int("prompt_length", len(entry.InputPrompt)),
	}
	if entry.ErrorMessage != "" {
		attrs = append(attrs, slog.String("error", entry.ErrorMessage))
	}
	if entry.RawResponse != "" && entry.Status != StatusSuccess {
		attrs = append(attrs, slog.String("raw_response", truncateForLog(entry.RawResponse, 2000)))
	}
	l.logger.LogAttrs(ctx, level, "ai generation", attrs...)
}

func truncateForLog(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
