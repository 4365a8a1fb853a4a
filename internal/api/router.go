package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openmeet-team/surveystudio/internal/auth"
	"github.com/openmeet-team/surveystudio/internal/templates"
)

// SetupRoutes configures all API routes. verifier and limits may be nil,
// which disables token checking and rate limiting respectively.
func SetupRoutes(e *echo.Echo, h *Handlers, hh *HealthHandlers, verifier *auth.Verifier, limits *RateLimiterConfig) {
	e.Validator = newRequestValidator()

	// Health check and metrics endpoints (no middleware)
	e.GET("/health", hh.Health)
	e.GET("/health/ready", hh.Readiness)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Apply middleware to all other routes
	e.Use(RequestIDMiddleware())
	e.Use(MetricsMiddleware())
	e.Use(SecurityHeadersMiddleware())
	e.Use(auth.Middleware(verifier))

	bodyLimits := DefaultBodyLimitConfig()
	limit := func(rl *IPRateLimiter) echo.MiddlewareFunc {
		if rl == nil {
			return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
		}
		return rl.Middleware()
	}
	limitWhen := func(rl *IPRateLimiter, charge func(echo.Context) bool) echo.MiddlewareFunc {
		if rl == nil {
			return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
		}
		return rl.MiddlewareWhen(charge)
	}
	if limits == nil {
		limits = &RateLimiterConfig{}
	}

	// JSON API routes - v1
	api := e.Group("/api/v1", limit(limits.GeneralAPI))

	// Survey authoring (owner only)
	owner := api.Group("/surveys", auth.RequireUser())
	authoring := []echo.MiddlewareFunc{limit(limits.Authoring), NewBodyLimitMiddleware(bodyLimits.SurveyAuthoring)}
	owner.POST("", h.CreateSurvey, authoring...)
	owner.POST("/import", h.ImportSurvey, authoring...)
	owner.GET("", h.ListSurveys)
	owner.GET("/:id", h.GetSurvey)
	owner.PUT("/:id", h.UpdateSurvey, authoring...)
	owner.DELETE("/:id", h.DeleteSurvey)
	owner.POST("/:id/status", h.ChangeStatus, authoring...)

	owner.POST("/:id/questions", h.AddQuestion, authoring...)
	owner.PATCH("/:id/questions/:qid", h.UpdateQuestion, authoring...)
	owner.DELETE("/:id/questions/:qid", h.DeleteQuestion, authoring...)
	owner.POST("/:id/questions/:qid/duplicate", h.DuplicateQuestion, authoring...)
	owner.POST("/:id/questions/:qid/move", h.MoveQuestion, authoring...)

	// Results
	owner.GET("/:id/responses", h.ListResponses)
	owner.GET("/:id/analytics", h.GetAnalytics)
	owner.GET("/:id/export", h.ExportCSV)
	owner.GET("/:id/live", h.LiveAnalytics)

	// Respondent API
	public := api.Group("/public/surveys")
	public.GET("/:id", h.GetPublicSurvey)
	public.POST("/:id/responses", h.SubmitResponse,
		limit(limits.ResponseSubmission), NewBodyLimitMiddleware(bodyLimits.ResponseSubmission))

	// AI drafting
	api.POST("/generate", h.GenerateSurvey, NewBodyLimitMiddleware(bodyLimits.SurveyAuthoring))

	// HTML routes (Templ handlers). Page steps share the general limit; only
	// the final submit counts against the submission limit.
	web := e.Group("/s", limit(limits.GeneralAPI))
	web.GET("/:id", h.ShowSurveyForm)
	web.POST("/:id", h.SubmitSurveyForm,
		NewBodyLimitMiddleware(bodyLimits.ResponseSubmission), limitWhen(limits.ResponseSubmission, isFormSubmit))

	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Service: serviceName})
	})
}

// isFormSubmit reports whether a respondent form post is the final submit
// rather than a page step
func isFormSubmit(c echo.Context) bool {
	return c.FormValue(templates.FieldAction) == templates.ActionSubmit
}
