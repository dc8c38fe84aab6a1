package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/debriefhub/debriefhub/internal/services"
	"github.com/debriefhub/debriefhub/internal/ws"
)

// NewRouter assembles the full API surface. Everything under /api/v1 except
// login, register, and the external status report requires a bearer token.
func NewRouter(
	auth *services.AuthService,
	authHandler *AuthHandler,
	meetingHandler *MeetingHandler,
	debriefingHandler *DebriefingHandler,
	syncHandler *SyncHandler,
	emailHandler *EmailHandler,
	analyticsHandler *AnalyticsHandler,
	wsHandler *ws.DebriefingHandler,
) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// External workers report terminal sync states here without auth.
		r.Post("/sync-records/{id}/status", syncHandler.ReportStatus)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(auth))

			r.Post("/auth/logout", authHandler.Logout)
			r.Post("/auth/logout-all", authHandler.LogoutAll)

			r.Post("/meetings", meetingHandler.Create)
			r.Get("/meetings", meetingHandler.List)
			r.Get("/meetings/{id}", meetingHandler.Get)
			r.Put("/meetings/{id}", meetingHandler.Update)
			r.Get("/meetings/{id}/sync-status", syncHandler.MeetingStatus)

			r.Post("/debriefings", debriefingHandler.Schedule)
			r.Get("/debriefings/{id}", debriefingHandler.Get)
			r.Post("/debriefings/{id}/start", debriefingHandler.Start)
			r.Post("/debriefings/{id}/answer", debriefingHandler.Answer)
			r.Get("/debriefings/{id}/insights", debriefingHandler.Insights)
			r.Get("/debriefings/ws", wsHandler.ServeHTTP)

			r.Put("/validations/{id}", syncHandler.SubmitReview)
			r.Post("/validations/{id}/approve", syncHandler.Approve)
			r.Post("/validations/{id}/reject", syncHandler.Reject)
			r.Get("/validations/{id}/sync-records", syncHandler.ListBySession)
			r.Post("/validations/{id}/sync", syncHandler.BulkSync)

			r.Post("/sync-records/{id}/retry", syncHandler.Retry)
			r.Get("/sync/health", syncHandler.Health)
			r.Get("/sync/failed", syncHandler.FailedOperations)

			r.Get("/leads/{id}/opportunity/{system}", syncHandler.OpportunityDetails)
			r.Put("/leads/{id}/opportunity/{system}/stage", syncHandler.UpdateOpportunityStage)

			r.Post("/emails", emailHandler.Draft)
			r.Get("/emails/{id}", emailHandler.Get)
			r.Post("/emails/{id}/approve", emailHandler.Approve)
			r.Post("/emails/{id}/schedule", emailHandler.Schedule)

			r.Get("/analytics/debriefings", analyticsHandler.DebriefingStats)
			r.Get("/analytics/sync", analyticsHandler.SyncStats)
			r.Get("/analytics/meetings", analyticsHandler.MeetingVolume)
		})
	})

	return router
}
