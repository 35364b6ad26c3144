package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/skillarena/backend/errs"
	"github.com/skillarena/backend/lifecycle"
	"github.com/skillarena/backend/models"
)

type submissionFinder interface {
	FindByContest(ctx context.Context, contestID uuid.UUID) ([]models.Submission, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]models.Submission, error)
}

type submissionHandler struct {
	responder   Responder
	logger      zerolog.Logger
	manager     *lifecycle.Manager
	submissions submissionFinder
}

func newSubmissionHandler(manager *lifecycle.Manager, submissions submissionFinder) submissionHandler {
	logger := log.With().Str("handlerName", "submissionHandler").Logger()

	return submissionHandler{
		responder:   NewResponder(logger),
		logger:      logger,
		manager:     manager,
		submissions: submissions,
	}
}

// submitTask records or replaces the caller's submission
// @Summary Submit task
// @Tags Submissions
// @Failure 422 {object} ErrorResponse "Not registered or contest ended"
// @Router /submissions [post]
func (h submissionHandler) submitTask() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		var req submissionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.responder.WriteError(w, err)
			return
		}
		contestID, err := uuidField("contestId", req.ContestID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		submission, err := h.manager.SubmitTask(r.Context(), contestID, actor.ID, req.TaskLink)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSONStatus(w, http.StatusCreated, submission)
	}
}

func (h submissionHandler) contestSubmissions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		contestID, err := uuidParam(r, "contestID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}

		contest, err := h.manager.GetContest(r.Context(), contestID, actor)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if !lifecycle.CanReviewSubmissions(actor, contest) {
			h.responder.WriteError(w, errs.NewForbiddenError("only the contest creator or an admin can review submissions"))
			return
		}

		submissions, err := h.submissions.FindByContest(r.Context(), contestID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, nonNil(submissions))
	}
}

func (h submissionHandler) userSubmissions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, _ := ctxGetActor(r.Context())
		userID, err := uuidParam(r, "userID")
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		if err := selfOrAdmin(actor, userID); err != nil {
			h.responder.WriteError(w, err)
			return
		}

		submissions, err := h.submissions.FindByUser(r.Context(), userID)
		if err != nil {
			h.responder.WriteError(w, err)
			return
		}
		h.responder.WriteJSON(w, nonNil(submissions))
	}
}

func selfOrAdmin(actor lifecycle.Actor, userID uuid.UUID) error {
	if actor.ID == userID || actor.Role == models.RoleAdmin {
		return nil
	}
	return errs.NewForbiddenError("only the user or an admin can see this")
}
