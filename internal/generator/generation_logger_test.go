package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogger() (*GenerationLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewGenerationLogger(slog.New(slog.NewJSONHandler(&buf, nil))), &buf
}

func TestGenerationLogger_Success(t *testing.T) {
	logger, buf := captureLogger()
	result := &Result{RawResponse: `{"title":"x"}`, InputTokens: 100, OutputTokens: 50, EstimatedCost: 0.0025}

	logger.Log(context.Background(), NewGenerationLog("user-1", "authenticated", "make a poll", StatusSuccess, result, nil, 1500*time.Millisecond))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "ai_generation", rec["component"])
	assert.Equal(t, "user-1", rec["user_id"])
	assert.Equal(t, "success", rec["status"])
	assert.Equal(t, float64(100), rec["input_tokens"])
	assert.Equal(t, float64(1500), rec["duration_ms"])
	assert.NotContains(t, rec, "raw_response")
	assert.NotContains(t, rec, "error")
}

func TestGenerationLogger_Error(t *testing.T) {
	logger, buf := captureLogger()
	partial := &Result{RawResponse: "not json", InputTokens: 10}

	logger.Log(context.Background(), NewGenerationLog("10.0.0.1", "anonymous", "poll", StatusError, partial, errors.New("invalid LLM output"), time.Second))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "invalid LLM output", rec["error"])
	assert.Equal(t, "not json", rec["raw_response"])
}

func TestGenerationLogger_NilIsNoop(t *testing.T) {
	var logger *GenerationLogger
	assert.NotPanics(t, func() {
		logger.Log(context.Background(), GenerationLog{Status: StatusRateLimited})
	})
}

func TestTruncateForLog(t *testing.T) {
	assert.Equal(t, "abc", truncateForLog("abc", 5))
	assert.Equal(t, "ab...(truncated)", truncateForLog("abcdef", 2))
}
