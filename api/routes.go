package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/skillarena/backend/models"
)

func setupPublicRoutes(r chi.Router, handlers *routeHandlers, backendPassword string) {
	r.Get("/health", handlers.healthHandler.health())
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/contests/popular", handlers.contestHandler.popularContests())
	r.Get("/winners", handlers.standingsHandler.winners())
	r.Get("/leaderboard", handlers.standingsHandler.leaderboard())
	r.Post("/users", handlers.userHandler.registerUser())

	r.Group(func(r chi.Router) {
		r.Use(requireBackendKey(backendPassword))
		r.Post("/auth/jwt", handlers.authHandler.issueToken())
	})
}

// setupAuthenticatedRoutes sets up all routes that need a bearer token
func setupAuthenticatedRoutes(r chi.Router, handlers *routeHandlers, authMiddleware authMiddleware) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.authenticate)

		// Users
		r.Get("/users/me", handlers.userHandler.me())
		r.Patch("/users/{userID}", handlers.userHandler.updateProfile())
		r.Post("/users/{userID}/bootstrap-admin", handlers.userHandler.bootstrapAdmin())

		// Contests
		r.Get("/contests", handlers.contestHandler.listContests())
		r.Get("/contests/participated", handlers.contestHandler.participatedContests())
		r.Get("/contests/won", handlers.contestHandler.wonContests())
		r.Get("/contests/{contestID}", handlers.contestHandler.getContest())
		r.Post("/contests/{contestID}/register", handlers.paymentHandler.registerParticipant())

		// Submissions
		r.Post("/submissions", handlers.submissionHandler.submitTask())
		r.Get("/submissions/{contestID}", handlers.submissionHandler.contestSubmissions())
		r.Get("/submissions/user/{userID}", handlers.submissionHandler.userSubmissions())

		// Payments
		r.Post("/create-payment-intent", handlers.paymentHandler.createPaymentIntent())
		r.Post("/confirm-payment", handlers.paymentHandler.confirmPayment())
		r.Get("/payments/user/{userID}", handlers.paymentHandler.userPayments())

		r.Post("/uploads/images", handlers.uploadHandler.presignImage())

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.requireRole(models.RoleCreator, models.RoleAdmin))
			r.Post("/contests", handlers.contestHandler.createContest())
			r.Put("/contests/{contestID}", handlers.contestHandler.editContest())
			r.Delete("/contests/{contestID}", handlers.contestHandler.deleteContest())
			r.Patch("/contests/{contestID}/status", handlers.contestHandler.setStatus())
			r.Post("/contests/{contestID}/winner", handlers.contestHandler.declareWinner())
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.requireRole(models.RoleAdmin))
			r.Get("/users", handlers.userHandler.listUsers())
			r.Patch("/users/{userID}/role", handlers.userHandler.setRole())
			r.Delete("/users/{userID}", handlers.userHandler.deleteUser())
			r.Get("/statistics", handlers.standingsHandler.statistics())
		})
	})
}
