package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/rollcall-app/rollcall/internal/handlers"
	"github.com/rollcall-app/rollcall/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(router chi.Router, flowHandler *handlers.FlowHandler) {
	// Code sends trigger outbound email and verifies burn attempt
	// budgets, so both are rate limited by IP.
	rateLimitConfig := middleware.DefaultCodeRateLimit()

	router.Get("/flow", flowHandler.State)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/flow/email", flowHandler.SubmitEmail)
	router.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/flow/code", flowHandler.SubmitCode)
	router.Post("/flow/startover", flowHandler.StartOver)
	router.Post("/flow/reset", flowHandler.Reset)
	router.Post("/flow/signout", flowHandler.SignOut)
	router.Post("/flow/copy", flowHandler.Copy)

	// Admin endpoints: the flow controller ignores these for
	// non-admin identities; real enforcement is the table's
	// row-level security.
	router.Post("/flow/admin/open", flowHandler.AdminOpen)
	router.Post("/flow/admin/rows", flowHandler.AdminAddRow)
	router.Put("/flow/admin/rows", flowHandler.AdminSave)
	router.Post("/flow/admin/toggle", flowHandler.AdminToggle)
}
