package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel/trace"

	"github.com/openmeet-team/surveystudio/internal/auth"
	"github.com/openmeet-team/surveystudio/internal/builder"
	"github.com/openmeet-team/surveystudio/internal/models"
	"github.com/openmeet-team/surveystudio/internal/renderer"
	"github.com/openmeet-team/surveystudio/internal/store"
)

// Errors raised by the handlers themselves
var (
	errForbidden        = errors.New("forbidden")
	errAuthRequired     = errors.New("this survey requires you to sign in")
	errAlreadyResponded = errors.New("you have already submitted a response to this survey")
)

// getTraceID extracts the trace ID from the OpenTelemetry span context
// Returns empty string if no active span exists
func getTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return ""
	}
	return span.SpanContext().TraceID().String()
}

// InternalServerError returns a sanitized 500 error response to the client
// and logs the full error details server-side with the trace ID for debugging
//
// Client sees: {"error": "Failed to retrieve surveys", "details": "Reference: abc123..."}
// Server logs: [abc123...] Failed to retrieve surveys: pq: connection refused
func InternalServerError(c echo.Context, userMessage string, err error) error {
	return sanitizedError(c, http.StatusInternalServerError, userMessage, err)
}

// ServiceUnavailable is the 503 counterpart of InternalServerError, used for
// timeouts and other retryable persistence failures
func ServiceUnavailable(c echo.Context, userMessage string, err error) error {
	return sanitizedError(c, http.StatusServiceUnavailable, userMessage, err)
}

func sanitizedError(c echo.Context, status int, userMessage string, err error) error {
	traceID := getTraceID(c.Request().Context())
	if traceID != "" {
		c.Logger().Errorf("[%s] %s: %v", traceID, userMessage, err)
	} else {
		c.Logger().Errorf("%s: %v", userMessage, err)
	}

	response := ErrorResponse{Error: userMessage}
	if traceID != "" {
		response.Details = fmt.Sprintf("Reference: %s", traceID)
	}
	return c.JSON(status, response)
}

// ValidationError returns a 400 error response with full details
// Validation errors are safe to show because they're controlled messages
func ValidationError(c echo.Context, message string, details string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Details: details,
	})
}

// respondError maps domain errors onto HTTP statuses. Anything it does not
// recognise is logged and returned as a sanitized 500.
func respondError(c echo.Context, userMessage string, err error) error {
	var missing *renderer.MissingAnswersError
	var vErr *models.ValidationError

	switch {
	case errors.As(err, &missing):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "Missing required answers",
			Details: missing.Error(),
			Fields:  missing.IDs,
		})
	case errors.As(err, &vErr):
		resp := ErrorResponse{Error: userMessage, Details: vErr.Error()}
		if vErr.Field != "" {
			resp.Fields = []string{vErr.Field}
		}
		return c.JSON(http.StatusBadRequest, resp)
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidResponse):
		return ValidationError(c, userMessage, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "Survey not found"})
	case errors.Is(err, builder.ErrQuestionNotFound), errors.Is(err, renderer.ErrUnknownQuestion):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "Question not found", Details: err.Error()})
	case errors.Is(err, store.ErrConflict):
		return c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "Survey was modified by someone else",
			Details: "Reload the survey and apply your changes again",
		})
	case errors.Is(err, errAlreadyResponded), errors.Is(err, renderer.ErrAlreadySubmitted):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "Already responded", Details: err.Error()})
	case errors.Is(err, errAuthRequired), errors.Is(err, auth.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "Authentication required", Details: err.Error()})
	case errors.Is(err, errForbidden):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "You do not have access to this survey"})
	case errors.Is(err, models.ErrSurveyNotActive):
		// unpublished and closed surveys are hidden from respondents
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "Survey not found"})
	case errors.Is(err, renderer.ErrSurveyUnavailable):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "Survey is not accepting responses", Details: unavailableReason(err)})
	case store.IsRetryable(err):
		return ServiceUnavailable(c, userMessage, err)
	}
	return InternalServerError(c, userMessage, err)
}

// unavailableReason returns the availability check that failed
func unavailableReason(err error) string {
	for _, reason := range []error{models.ErrSurveyNotActive, models.ErrSurveyNotStarted, models.ErrSurveyEnded, models.ErrSubmissionLimit} {
		if errors.Is(err, reason) {
			return reason.Error()
		}
	}
	return err.Error()
}
