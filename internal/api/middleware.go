package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/openmeet-team/surveystudio/internal/telemetry"
)

// RequestIDMiddleware adds a unique request ID to each request
func RequestIDMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.New().String()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)
			c.Set("request_id", rid)
			return next(c)
		}
	}
}

// MetricsMiddleware records HTTP request metrics for Prometheus
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			// Route pattern, not the raw path, to bound label cardinality
			route := c.Path()
			if route == "" {
				route = "unknown"
			}
			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok && !c.Response().Committed {
				status = he.Code
			}

			telemetry.HTTPRequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// BodyLimitConfig defines body size limits for different route types
type BodyLimitConfig struct {
	SurveyAuthoring    string
	ResponseSubmission string
	GeneralAPI         string
}

// DefaultBodyLimitConfig returns the default body size limits
func DefaultBodyLimitConfig() BodyLimitConfig {
	return BodyLimitConfig{
		SurveyAuthoring:    "128KB", // definitions are capped at 100KB before JSON wrapping
		ResponseSubmission: "64KB",
		GeneralAPI:         "1MB",
	}
}

// NewBodyLimitMiddleware creates a body limit middleware with the given limit
func NewBodyLimitMiddleware(limit string) echo.MiddlewareFunc {
	return middleware.BodyLimit(limit)
}

// requestValidator plugs go-playground/validator into echo's c.Validate
type requestValidator struct {
	validate *validator.Validate
}

func newRequestValidator() *requestValidator {
	return &requestValidator{validate: validator.New()}
}

// Validate runs the struct tags of a bound request body
func (rv *requestValidator) Validate(i interface{}) error {
	if err := rv.validate.Struct(i); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			fe := errs[0]
			return echo.NewHTTPError(http.StatusBadRequest, fieldMessage(fe))
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	case "max":
		return fe.Field() + " must be at most " + fe.Param()
	case "gt", "gte":
		return fe.Field() + " is out of range"
	}
	return fe.Field() + " is invalid"
}

// bindAndValidate decodes the body into req and checks its struct tags,
// writing a 400 response and returning ok=false when either fails
func bindAndValidate(c echo.Context, req interface{}) (bool, error) {
	if err := c.Bind(req); err != nil {
		return false, ValidationError(c, "Invalid request body", httpErrorMessage(err))
	}
	if err := c.Validate(req); err != nil {
		return false, ValidationError(c, "Invalid request", httpErrorMessage(err))
	}
	return true, nil
}

func httpErrorMessage(err error) string {
	if he, ok := err.(*echo.HTTPError); ok {
		if msg, ok := he.Message.(string); ok {
			return msg
		}
	}
	return err.Error()
}
