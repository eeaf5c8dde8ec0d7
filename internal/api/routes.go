package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// requestTimeout bounds synchronous handlers. Campaign sends run in the
// background and are not affected.
const requestTimeout = 30 * time.Second

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", h.health.HandleHealth)
	r.Get("/health/live", h.health.HandleLiveness)
	r.Get("/health/ready", h.health.HandleReadiness)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Route("/campaigns", func(r chi.Router) {
			r.Get("/running", h.GetRunningCampaigns)
			r.Post("/{id}/launch", h.LaunchCampaign)
			r.Get("/{id}/status", h.GetCampaignStatus)
			r.Post("/{id}/stop", h.StopCampaign)
		})

		r.Route("/conversations/{id}", func(r chi.Router) {
			r.Post("/evaluate", h.EvaluateHandover)
			r.Post("/handover", h.ExecuteHandover)
			r.Post("/replies", h.HandleInboundReply)
		})

		r.Route("/watchdog", func(r chi.Router) {
			r.Post("/validate", h.ValidateOutboundEmail)
			r.Get("/quarantine", h.GetQuarantinedEmails)
			r.Get("/approvals", h.GetPendingApprovalEmails)
			r.Post("/emails/{id}/approve", h.ApproveEmail)
			r.Post("/emails/{id}/block", h.BlockEmail)
			r.Get("/rules", h.GetBlockRules)
			r.Post("/rules", h.AddBlockRule)
			r.Delete("/rules/{id}", h.RemoveBlockRule)
			r.Patch("/rules/{id}", h.SetRuleEnabled)
		})
	})

	return r
}
