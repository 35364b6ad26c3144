package api

import (
	"github.com/skillarena/backend/database"
	"github.com/skillarena/backend/lifecycle"
)

// initializeHandlers creates and returns all handlers organized in a routeHandlers struct
func initializeHandlers(db database.Database, manager *lifecycle.Manager, tokens tokenIssuer, r router) *routeHandlers {
	return &routeHandlers{
		contestHandler:    newContestHandler(manager, r.search),
		submissionHandler: newSubmissionHandler(manager, db.SubmissionRepo()),
		paymentHandler:    newPaymentHandler(manager, db.PaymentRepo()),
		userHandler:       newUserHandler(db.UserRepo()),
		authHandler:       newAuthHandler(db.UserRepo(), tokens),
		standingsHandler:  newStandingsHandler(manager, db.UserRepo(), r.cache),
		uploadHandler:     newUploadHandler(r.uploads),
		healthHandler:     newHealthHandler(db, r.startupTime),
	}
}
